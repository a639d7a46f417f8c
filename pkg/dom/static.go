package dom

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Static documents have no layout engine, so geometry is a flow estimate.
const (
	StaticViewportWidth  = 1280
	StaticViewportHeight = 720

	staticLineHeight = 20
	staticIndent     = 8
	staticCharWidth  = 8
	staticPadding    = 24
)

var inlineTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
	"span": true, "label": true, "img": true, "strong": true, "em": true,
	"b": true, "i": true, "small": true, "code": true, "summary": true,
}

// Parse builds a Document from static HTML. Visibility comes from the hidden
// attribute, inline styles and non-rendered tags; rects are estimated.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	b := &staticBuilder{layout: make(map[*html.Node]Layout)}
	b.walk(root, inherited{visibility: "visible"}, 0)

	doc := newDocument(root, pageURL, "", Viewport{Width: StaticViewportWidth, Height: StaticViewportHeight}, b.layout)
	if t, _ := doc.Query("title"); t != nil {
		doc.title = doc.Text(t, nil)
	}
	return doc, nil
}

type inherited struct {
	hidden     bool
	visibility string
}

type staticBuilder struct {
	layout map[*html.Node]Layout
	y      float64
}

func (b *staticBuilder) walk(n *html.Node, parent inherited, depth int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		own := b.place(c, parent, depth)
		b.walk(c, own, depth+1)
	}
}

func (b *staticBuilder) place(n *html.Node, parent inherited, depth int) inherited {
	tag := Tag(n)
	decl := ParseInlineStyle(Attr(n, "style"))

	style := Style{
		Display:       "block",
		Visibility:    parent.visibility,
		Opacity:       1,
		PointerEvents: "auto",
		Cursor:        "auto",
	}
	if inlineTags[tag] {
		style.Display = "inline"
	}
	if tag == "a" {
		if _, ok := LookupAttr(n, "href"); ok {
			style.Cursor = "pointer"
		}
	}

	hidden := parent.hidden || nonRendered[tag]
	if _, ok := LookupAttr(n, "hidden"); ok {
		hidden = true
	}
	if tag == "input" && strings.EqualFold(Attr(n, "type"), "hidden") {
		hidden = true
	}
	if v, ok := decl["display"]; ok {
		style.Display = v
	}
	if style.Display == "none" {
		hidden = true
	}
	if hidden {
		style.Display = "none"
	}
	if v, ok := decl["visibility"]; ok {
		style.Visibility = v
	}
	if v, ok := decl["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			style.Opacity = f
		}
	}
	if v, ok := decl["pointer-events"]; ok {
		style.PointerEvents = v
	}
	if v, ok := decl["cursor"]; ok {
		style.Cursor = v
	}

	var rect Rect
	if !hidden {
		x := float64(depth * staticIndent)
		width := StaticViewportWidth - 2*x
		if style.Display == "inline" {
			text := CollapseSpace(textOf(n))
			if text == "" {
				text = Attr(n, "value") + Attr(n, "placeholder") + Attr(n, "aria-label")
			}
			width = minFloat(width, float64(len([]rune(text))*staticCharWidth+staticPadding))
		}
		rect = Rect{X: x, Y: b.y, Width: maxFloat(width, staticPadding), Height: staticLineHeight}
		if zeroLength(decl["width"]) {
			rect.Width = 0
		}
		if zeroLength(decl["height"]) {
			rect.Height = 0
		}
		b.y += staticLineHeight
	}

	b.layout[n] = Layout{Style: style, Rect: rect}
	return inherited{hidden: hidden, visibility: style.Visibility}
}

// ParseInlineStyle splits a style attribute into lower-cased property/value pairs.
func ParseInlineStyle(s string) map[string]string {
	out := make(map[string]string)
	for _, decl := range strings.Split(s, ";") {
		prop, val, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		prop = strings.ToLower(strings.TrimSpace(prop))
		val = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "!important")))
		if prop != "" {
			out[prop] = strings.TrimSpace(val)
		}
	}
	return out
}

func zeroLength(v string) bool {
	switch strings.TrimSpace(v) {
	case "0", "0px", "0%", "0em", "0rem":
		return true
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
		for k := c.FirstChild; k != nil; k = k.NextSibling {
			walk(k)
		}
	}
	walk(n)
	return b.String()
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
