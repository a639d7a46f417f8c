// Package dom mirrors a web page into golang.org/x/net/html nodes plus a side
// table of computed layout, so page analysis can run in Go instead of in the page.
//
// A Document is a point-in-time copy. It is built either from the JSON tree the
// in-page mirror script emits (Decode) or from static HTML (Parse). Nodes are
// plain *html.Node values; selectors are matched with cascadia.
//
// # Visibility
//
// An element is visible when its computed display is not "none", its visibility
// is not "hidden", its opacity is non-zero and its bounding box has a non-zero
// area. Documents built by Parse have no layout engine behind them, so their
// rects are a flow estimate in document order.
package dom

import (
	"fmt"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// Rect is a bounding client rect in CSS pixels relative to the viewport.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// CenterX returns the horizontal center.
func (r Rect) CenterX() float64 { return r.X + r.Width/2 }

// CenterY returns the vertical center.
func (r Rect) CenterY() float64 { return r.Y + r.Height/2 }

// Area returns width times height.
func (r Rect) Area() float64 { return r.Width * r.Height }

// Expand grows the rect by d on every side.
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Style is the subset of computed style the analysis needs.
type Style struct {
	Display       string  `json:"display"`
	Visibility    string  `json:"visibility"`
	Opacity       float64 `json:"opacity"`
	PointerEvents string  `json:"pointerEvents"`
	Cursor        string  `json:"cursor"`
}

// Layout pairs an element's computed style with its bounding rect.
type Layout struct {
	Style Style
	Rect  Rect
}

// Viewport describes the visible window and its scroll offset.
type Viewport struct {
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// Document is an immutable mirror of a page.
type Document struct {
	url      string
	title    string
	viewport Viewport
	root     *html.Node
	layout   map[*html.Node]Layout

	mu        sync.Mutex
	compiled  map[string]cascadia.Selector
	bodyCache *html.Node
}

func newDocument(root *html.Node, url, title string, vp Viewport, layout map[*html.Node]Layout) *Document {
	return &Document{
		url:      url,
		title:    title,
		viewport: vp,
		root:     root,
		layout:   layout,
		compiled: make(map[string]cascadia.Selector),
	}
}

// URL returns the page URL at capture time.
func (d *Document) URL() string { return d.url }

// Title returns the document title at capture time.
func (d *Document) Title() string { return d.title }

// Viewport returns the viewport at capture time.
func (d *Document) Viewport() Viewport { return d.viewport }

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the body element, or the document element when there is none.
func (d *Document) Body() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.bodyCache != nil {
		return d.bodyCache
	}
	var first *html.Node
	var find func(n *html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if first == nil {
				first = c
			}
			if c.Data == "body" {
				return c
			}
			if found := find(c); found != nil {
				return found
			}
		}
		return nil
	}
	body := find(d.root)
	if body == nil {
		body = first
	}
	d.bodyCache = body
	return body
}

// Layout returns the recorded layout for an element.
func (d *Document) Layout(n *html.Node) (Layout, bool) {
	l, ok := d.layout[n]
	return l, ok
}

func (d *Document) compile(selector string) (cascadia.Selector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.compiled[selector]; ok {
		return s, nil
	}
	s, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	d.compiled[selector] = s
	return s, nil
}

// QueryAll returns every element matching selector in document order.
func (d *Document) QueryAll(selector string) ([]*html.Node, error) {
	s, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	return s.MatchAll(d.root), nil
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(selector string) (*html.Node, error) {
	s, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	return s.MatchFirst(d.root), nil
}

// QueryWithin returns matches inside n, excluding n itself.
func (d *Document) QueryWithin(n *html.Node, selector string) ([]*html.Node, error) {
	s, err := d.compile(selector)
	if err != nil {
		return nil, err
	}
	var out []*html.Node
	for _, m := range s.MatchAll(n) {
		if m != n {
			out = append(out, m)
		}
	}
	return out, nil
}

// Count returns the number of matches for selector. Invalid selectors count as zero.
func (d *Document) Count(selector string) int {
	nodes, err := d.QueryAll(selector)
	if err != nil {
		return 0
	}
	return len(nodes)
}

// Connected reports whether n is still attached to this document's tree.
func (d *Document) Connected(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

// Rendered reports whether the element takes part in rendering at all:
// it is not display:none and not visibility:hidden.
func (d *Document) Rendered(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	l, ok := d.layout[n]
	if !ok {
		return false
	}
	return l.Style.Display != "none" && l.Style.Visibility != "hidden" && l.Style.Visibility != "collapse"
}

// Visible applies the visibility predicate: rendered, non-zero opacity and a
// non-zero bounding box.
func (d *Document) Visible(n *html.Node) bool {
	if !d.Rendered(n) {
		return false
	}
	l := d.layout[n]
	if l.Style.Opacity <= 0 {
		return false
	}
	return l.Rect.Width > 0 && l.Rect.Height > 0
}

// Tag returns the lower-cased tag name of an element, or "" for other nodes.
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr returns the value of an attribute, or "".
func Attr(n *html.Node, key string) string {
	v, _ := LookupAttr(n, key)
	return v
}

// LookupAttr returns an attribute value and whether it was present.
func LookupAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && strings.EqualFold(a.Key, key) {
			return a.Val, true
		}
	}
	return "", false
}

// Classes returns the element's class list.
func Classes(n *html.Node) []string {
	return strings.Fields(Attr(n, "class"))
}

// ElementParent returns the parent element, or nil at the document element.
func ElementParent(n *html.Node) *html.Node {
	if n == nil || n.Parent == nil || n.Parent.Type != html.ElementNode {
		return nil
	}
	return n.Parent
}

// ElementChildren returns the element children of n.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// CollapseSpace folds runs of whitespace into single spaces and trims the ends.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
