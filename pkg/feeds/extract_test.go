package feeds

import "testing"

func TestExtractImageFallbackOrder(t *testing.T) {
	tests := []struct {
		name string
		item Item
		want string
	}{
		{
			name: "media content beats enclosure",
			item: Item{
				MediaContent: []string{"http://img/media.jpg"},
				Enclosures:   []Enclosure{{URL: "http://img/enc.jpg", Type: "image/jpeg"}},
			},
			want: "http://img/media.jpg",
		},
		{
			name: "image enclosure beats thumbnail",
			item: Item{
				Enclosures:      []Enclosure{{URL: "http://img/enc.jpg", Type: "image/png"}},
				MediaThumbnails: []string{"http://img/thumb.jpg"},
			},
			want: "http://img/enc.jpg",
		},
		{
			name: "non image enclosure ignored",
			item: Item{
				Enclosures:      []Enclosure{{URL: "http://audio/ep.mp3", Type: "audio/mpeg"}},
				MediaThumbnails: []string{"http://img/thumb.jpg"},
			},
			want: "http://img/thumb.jpg",
		},
		{
			name: "enclosure type is case insensitive",
			item: Item{Enclosures: []Enclosure{{URL: "http://img/enc.gif", Type: "IMAGE/GIF"}}},
			want: "http://img/enc.gif",
		},
		{
			name: "thumbnail beats plain image",
			item: Item{MediaThumbnails: []string{"http://img/thumb.jpg"}, Image: "http://img/plain.jpg"},
			want: "http://img/thumb.jpg",
		},
		{
			name: "plain image beats embedded html",
			item: Item{Image: " http://img/plain.jpg ", Description: `<img src="http://img/desc.jpg">`},
			want: "http://img/plain.jpg",
		},
		{
			name: "encoded content img preferred over description img",
			item: Item{
				Encoded:     `<p>x</p><img alt="a" src="http://img/encoded.jpg">`,
				Description: `<img src="http://img/desc.jpg">`,
			},
			want: "http://img/encoded.jpg",
		},
		{
			name: "description img used without encoded content",
			item: Item{Description: `<div><IMG SRC="http://img/desc.jpg"></div>`},
			want: "http://img/desc.jpg",
		},
		{
			name: "blank candidates are skipped",
			item: Item{MediaContent: []string{"  "}, Enclosures: []Enclosure{{URL: "", Type: "image/jpeg"}}},
			want: DefaultPlaceholderImage,
		},
		{
			name: "nothing found",
			item: Item{Description: "plain text"},
			want: DefaultPlaceholderImage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractImage(tt.item, ""); got != tt.want {
				t.Errorf("ExtractImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractImageCustomPlaceholder(t *testing.T) {
	if got := ExtractImage(Item{}, "/static/none.png"); got != "/static/none.png" {
		t.Errorf("ExtractImage() = %q", got)
	}
}

func TestExtractSummaryPrefersEncoded(t *testing.T) {
	tests := []struct {
		item Item
		want string
	}{
		{Item{Encoded: "<p>full</p>", Description: "short"}, "<p>full</p>"},
		{Item{Encoded: "   ", Description: "short"}, "short"},
		{Item{Description: "short"}, "short"},
		{Item{}, ""},
	}
	for _, tt := range tests {
		if got := ExtractSummary(tt.item); got != tt.want {
			t.Errorf("ExtractSummary(%+v) = %q, want %q", tt.item, got, tt.want)
		}
	}
}
