// Package sanitize cleans untrusted HTML fragments taken from third party feeds.
//
// The fragment is parsed with golang.org/x/net/html and rebuilt from the node
// tree, so the output is always well formed regardless of how broken the input
// was. Three passes run in order: dangerous subtrees are dropped, event handler
// and script URI attributes are stripped, and the visible text is cut to a
// character budget.
package sanitize

import (
	"bytes"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	// DefaultBudget is the visible text budget in characters.
	DefaultBudget = 1200
	// Ellipsis marks the truncation point.
	Ellipsis = "..."
)

// droppedTags lose their whole subtree.
var droppedTags = map[string]struct{}{
	"script": {},
	"style":  {},
	"iframe": {},
	"object": {},
	"embed":  {},
}

// scriptSchemes are URI schemes that execute when followed.
var scriptSchemes = []string{"javascript:", "vbscript:"}

// Sanitizer strips executable content and bounds visible text.
type Sanitizer struct {
	budget int
}

// New returns a Sanitizer with the given text budget. Non-positive budgets use DefaultBudget.
func New(budget int) *Sanitizer {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Sanitizer{budget: budget}
}

// Budget reports the visible text budget.
func (s *Sanitizer) Budget() int { return s.budget }

var defaultSanitizer = New(DefaultBudget)

// Sanitize cleans raw with the default budget.
func Sanitize(raw string) string {
	return defaultSanitizer.Sanitize(raw)
}

// Sanitize never fails; on unusable input it returns an empty string.
func (s *Sanitizer) Sanitize(raw string) (out string) {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(raw), root)
	if err != nil {
		return ""
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	strip(root)
	(&truncator{remaining: s.budget}).walk(root)

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// strip removes dropped subtrees, comments and unsafe attributes below n.
func strip(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch c.Type {
		case html.CommentNode:
			n.RemoveChild(c)
		case html.ElementNode:
			if _, drop := droppedTags[strings.ToLower(c.Data)]; drop {
				n.RemoveChild(c)
				break
			}
			c.Attr = safeAttrs(c.Attr)
			strip(c)
		}
		c = next
	}
}

func safeAttrs(attrs []html.Attribute) []html.Attribute {
	if len(attrs) == 0 {
		return attrs
	}
	kept := attrs[:0]
	for _, a := range attrs {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Key)), "on") {
			continue
		}
		if isScriptURI(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// isScriptURI reports whether v starts with a script scheme once the characters
// browsers ignore inside a scheme (whitespace and control characters) are removed.
func isScriptURI(v string) bool {
	var b strings.Builder
	for _, r := range v {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		if b.Len() >= 16 {
			break
		}
	}
	cleaned := b.String()
	for _, scheme := range scriptSchemes {
		if strings.HasPrefix(cleaned, scheme) {
			return true
		}
	}
	return false
}

// truncator walks text in document order and prunes everything after the budget runs out.
type truncator struct {
	remaining int
	cut       bool
}

func (t *truncator) walk(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if t.cut {
			n.RemoveChild(c)
			c = next
			continue
		}
		switch c.Type {
		case html.TextNode:
			runes := []rune(c.Data)
			if len(runes) > t.remaining {
				kept := strings.TrimRightFunc(string(runes[:t.remaining]), unicode.IsSpace)
				c.Data = kept + Ellipsis
				t.cut = true
			} else {
				t.remaining -= len(runes)
			}
		case html.ElementNode:
			t.walk(c)
		}
		c = next
	}
}
