package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// nonRendered lists tags whose content never reaches the screen.
var nonRendered = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"title":    true,
	"meta":     true,
	"link":     true,
	"base":     true,
}

// SkipFunc decides whether a subtree is excluded from text collection.
type SkipFunc func(n *html.Node) bool

// Text concatenates the text nodes under n, skipping subtrees for which skip
// returns true, and collapses whitespace.
func (d *Document) Text(n *html.Node, skip SkipFunc) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			b.WriteString(c.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			if skip != nil && skip(c) {
				return
			}
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return CollapseSpace(b.String())
}

// InnerText approximates element.innerText: the text of rendered descendants.
func (d *Document) InnerText(n *html.Node) string {
	return d.Text(n, func(c *html.Node) bool {
		return nonRendered[Tag(c)] || !d.Rendered(c)
	})
}

// Label returns the most human-readable name for an element: its visible
// text, then aria-label, alt, title, placeholder and value.
func (d *Document) Label(n *html.Node) string {
	if t := d.InnerText(n); t != "" {
		return t
	}
	for _, key := range []string{"aria-label", "alt", "title", "placeholder", "value"} {
		if v := CollapseSpace(Attr(n, key)); v != "" {
			return v
		}
	}
	return ""
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
