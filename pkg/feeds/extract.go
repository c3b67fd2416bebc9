package feeds

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed/atom"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
)

// DefaultPlaceholderImage is used when an item carries no usable image.
const DefaultPlaceholderImage = "/placeholder.jpg"

// Kind tags the feed dialect an Item was read from.
type Kind int

const (
	KindRSS Kind = iota + 1
	KindAtom
)

func (k Kind) String() string {
	switch k {
	case KindRSS:
		return "rss"
	case KindAtom:
		return "atom"
	default:
		return "unknown"
	}
}

// Enclosure is an attached resource with its declared MIME type.
type Enclosure struct {
	URL  string
	Type string
}

// Item is the dialect independent view of one RSS item or Atom entry, holding
// every candidate the fallback chains look at, in document order.
type Item struct {
	Kind            Kind
	Title           string
	Link            string
	Date            string
	MediaContent    []string
	Enclosures      []Enclosure
	MediaThumbnails []string
	Image           string
	Encoded         string
	Description     string
}

// ExtractImage walks the image fallback chain and returns the first hit, or placeholder.
func ExtractImage(it Item, placeholder string) string {
	if placeholder == "" {
		placeholder = DefaultPlaceholderImage
	}
	if u := firstNonEmpty(it.MediaContent...); u != "" {
		return u
	}
	for _, enc := range it.Enclosures {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(enc.Type)), "image/") {
			if u := strings.TrimSpace(enc.URL); u != "" {
				return u
			}
		}
	}
	if u := firstNonEmpty(it.MediaThumbnails...); u != "" {
		return u
	}
	if u := strings.TrimSpace(it.Image); u != "" {
		return u
	}
	if u := firstImageFromHTML(bodyHTML(it)); u != "" {
		return u
	}
	return placeholder
}

// ExtractSummary returns the unsanitized summary: full content first, then description.
func ExtractSummary(it Item) string {
	return bodyHTML(it)
}

func bodyHTML(it Item) string {
	if strings.TrimSpace(it.Encoded) != "" {
		return it.Encoded
	}
	if strings.TrimSpace(it.Description) != "" {
		return it.Description
	}
	return ""
}

// firstImageFromHTML returns the src of the first <img> in fragment.
func firstImageFromHTML(fragment string) string {
	if !strings.Contains(strings.ToLower(fragment), "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

// fromRSS maps a gofeed RSS item into an Item.
func fromRSS(ri *rss.Item) Item {
	it := Item{
		Kind:        KindRSS,
		Title:       strings.TrimSpace(ri.Title),
		Link:        strings.TrimSpace(ri.Link),
		Date:        firstNonEmpty(ri.PubDate),
		Encoded:     ri.Content,
		Description: ri.Description,
	}
	if it.Link == "" {
		it.Link = extensionHref(ri.Extensions, "atom", "link")
	}
	if it.Date == "" && ri.DublinCoreExt != nil {
		it.Date = firstNonEmpty(ri.DublinCoreExt.Date...)
	}
	for _, enc := range ri.Enclosures {
		if enc != nil {
			it.Enclosures = append(it.Enclosures, Enclosure{URL: enc.URL, Type: enc.Type})
		}
	}
	it.MediaContent = mediaURLs(ri.Extensions, "content")
	it.MediaThumbnails = mediaURLs(ri.Extensions, "thumbnail")
	if raw, ok := ri.Custom["image"]; ok {
		it.Image = strings.TrimSpace(raw)
	}
	return it
}

// fromAtom maps a gofeed Atom entry into an Item. Image enclosures are links with rel="enclosure".
func fromAtom(ae *atom.Entry) Item {
	it := Item{
		Kind:        KindAtom,
		Title:       strings.TrimSpace(ae.Title),
		Link:        atomLink(ae.Links),
		Date:        firstNonEmpty(ae.Published, ae.Updated),
		Description: ae.Summary,
	}
	if ae.Content != nil {
		it.Encoded = ae.Content.Value
	}
	for _, l := range ae.Links {
		if l != nil && strings.EqualFold(l.Rel, "enclosure") {
			it.Enclosures = append(it.Enclosures, Enclosure{URL: l.Href, Type: l.Type})
		}
	}
	it.MediaContent = mediaURLs(ae.Extensions, "content")
	it.MediaThumbnails = mediaURLs(ae.Extensions, "thumbnail")
	return it
}

// atomLink prefers the alternate link href, then any href.
func atomLink(links []*atom.Link) string {
	var fallback string
	for _, l := range links {
		if l == nil {
			continue
		}
		href := strings.TrimSpace(l.Href)
		if href == "" {
			continue
		}
		rel := strings.ToLower(strings.TrimSpace(l.Rel))
		if rel == "" || rel == "alternate" {
			return href
		}
		if fallback == "" && rel != "enclosure" && rel != "self" {
			fallback = href
		}
	}
	return fallback
}

// mediaURLs collects url attributes of media:<name> elements, including ones nested in media:group.
func mediaURLs(exts ext.Extensions, name string) []string {
	media, ok := exts["media"]
	if !ok {
		return nil
	}
	var urls []string
	collect := func(list []ext.Extension) {
		for _, e := range list {
			if u := strings.TrimSpace(e.Attrs["url"]); u != "" {
				urls = append(urls, u)
			}
		}
	}
	collect(media[name])
	for _, group := range media["group"] {
		collect(group.Children[name])
	}
	return urls
}

// extensionHref returns the href of the first prefix:name element that is an alternate link.
func extensionHref(exts ext.Extensions, prefix, name string) string {
	for _, e := range exts[prefix][name] {
		rel := strings.ToLower(strings.TrimSpace(e.Attrs["rel"]))
		if rel != "" && rel != "alternate" {
			continue
		}
		if href := strings.TrimSpace(e.Attrs["href"]); href != "" {
			return href
		}
	}
	return ""
}

// firstNonEmpty returns the first non-empty string from the given values.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
