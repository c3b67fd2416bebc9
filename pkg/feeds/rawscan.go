package feeds

import (
	"bytes"
	"encoding/xml"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"
)

var (
	rssSpaces  = []string{"", "http://purl.org/rss/1.0/", "http://my.netscape.com/rdf/simple/0.9/"}
	atomSpaces = []string{"", "http://www.w3.org/2005/Atom", "http://purl.org/atom/ns#"}
)

// rawFields are per-item values gofeed does not keep: the text of an Atom
// <link>, and a plain <image> as its url attribute or else its text.
type rawFields struct {
	LinkText string
	Image    string
}

// apply fills the Item fields the gofeed mapping left empty.
func (r rawFields) apply(it *Item) {
	switch it.Kind {
	case KindAtom:
		if it.Link == "" {
			it.Link = r.LinkText
		}
	case KindRSS:
		if r.Image != "" {
			it.Image = r.Image
		}
	}
}

// scanRawFields walks the document once and returns one rawFields per
// top-level item (RSS) or entry (Atom), in document order. A malformed
// document yields whatever was read before the error.
func scanRawFields(raw []byte, kind Kind) []rawFields {
	itemName, spaces := "item", rssSpaces
	if kind == KindAtom {
		itemName, spaces = "entry", atomSpaces
	}
	inSpace := func(n xml.Name) bool { return slices.Contains(spaces, n.Space) }

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = charset.NewReaderLabel

	var out []rawFields
	depth := 0 // depth inside the current item; 0 means outside any item
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Local == itemName && inSpace(t.Name) {
					out = append(out, rawFields{})
					depth = 1
				}
				continue
			}
			if depth != 1 || !inSpace(t.Name) {
				depth++
				continue
			}
			cur := &out[len(out)-1]
			switch {
			case kind == KindAtom && t.Name.Local == "link" && cur.LinkText == "":
				var text string
				if dec.DecodeElement(&text, &t) != nil {
					return out
				}
				cur.LinkText = strings.TrimSpace(text)
			case kind == KindRSS && t.Name.Local == "image" && cur.Image == "":
				var text string
				if dec.DecodeElement(&text, &t) != nil {
					return out
				}
				cur.Image = firstNonEmpty(attr(t, "url"), text)
			default:
				depth++
			}
		case xml.EndElement:
			if depth > 0 {
				depth--
			}
		}
	}
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}
