package dom

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// WireNode is one node of the tree emitted by the in-page mirror script.
// A node with an empty Tag is a text node.
type WireNode struct {
	Tag      string      `json:"tag,omitempty"`
	Text     string      `json:"text,omitempty"`
	Attrs    [][2]string `json:"attrs,omitempty"`
	Style    *WireStyle  `json:"style,omitempty"`
	Rect     [4]float64  `json:"rect"`
	Children []WireNode  `json:"children,omitempty"`
}

// WireStyle is the compact computed style of a mirrored element.
type WireStyle struct {
	Display       string   `json:"d"`
	Visibility    string   `json:"v"`
	Opacity       *float64 `json:"o,omitempty"`
	PointerEvents string   `json:"pe"`
	Cursor        string   `json:"c"`
}

// WireDocument is the top-level payload of the mirror script.
type WireDocument struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Viewport Viewport `json:"viewport"`
	Root     WireNode `json:"root"`
}

// Decode builds a Document from the mirror script's JSON payload.
func Decode(data []byte) (*Document, error) {
	var wire WireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode page mirror: %w", err)
	}
	return FromWire(&wire)
}

// FromWire builds a Document from an already decoded payload.
func FromWire(wire *WireDocument) (*Document, error) {
	if wire.Root.Tag == "" {
		return nil, fmt.Errorf("page mirror has no document element")
	}
	root := &html.Node{Type: html.DocumentNode}
	layout := make(map[*html.Node]Layout)
	root.AppendChild(buildWireNode(&wire.Root, layout))
	return newDocument(root, wire.URL, wire.Title, wire.Viewport, layout), nil
}

func buildWireNode(w *WireNode, layout map[*html.Node]Layout) *html.Node {
	if w.Tag == "" {
		return &html.Node{Type: html.TextNode, Data: w.Text}
	}

	tag := strings.ToLower(w.Tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for _, kv := range w.Attrs {
		n.Attr = append(n.Attr, html.Attribute{Key: strings.ToLower(kv[0]), Val: kv[1]})
	}

	style := Style{Display: "block", Visibility: "visible", Opacity: 1, PointerEvents: "auto", Cursor: "auto"}
	if w.Style != nil {
		style.Display = w.Style.Display
		style.Visibility = w.Style.Visibility
		style.PointerEvents = w.Style.PointerEvents
		style.Cursor = w.Style.Cursor
		if w.Style.Opacity != nil {
			style.Opacity = *w.Style.Opacity
		}
	}
	layout[n] = Layout{
		Style: style,
		Rect:  Rect{X: w.Rect[0], Y: w.Rect[1], Width: w.Rect[2], Height: w.Rect[3]},
	}

	for i := range w.Children {
		n.AppendChild(buildWireNode(&w.Children[i], layout))
	}
	return n
}
