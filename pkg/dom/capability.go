package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Capability is the closed set of ways a target can be presented.
type Capability int

const (
	// Scannable targets are read, not clicked.
	Scannable Capability = iota
	// Interactive targets accept a click or input.
	Interactive
)

// String returns the capability name.
func (c Capability) String() string {
	if c == Interactive {
		return "interactive"
	}
	return "scannable"
}

// MinPointerBox is the smallest box (in px, each side) the pointer-cursor
// heuristic accepts as a clickable container.
const MinPointerBox = 6

var actionableTags = map[string]bool{
	"button":   true,
	"input":    true,
	"select":   true,
	"textarea": true,
	"summary":  true,
	"option":   true,
}

var actionableRoles = map[string]bool{
	"button":           true,
	"link":             true,
	"menuitem":         true,
	"menuitemcheckbox": true,
	"menuitemradio":    true,
	"tab":              true,
	"checkbox":         true,
	"radio":            true,
	"switch":           true,
	"option":           true,
	"combobox":         true,
	"textbox":          true,
	"searchbox":        true,
}

// Actionable reports whether the element is directly actionable by its markup:
// a semantic control, a link with href, an ARIA widget role, an explicit click
// handler or a non-negative tab index.
func Actionable(n *html.Node) bool {
	tag := Tag(n)
	if tag == "" {
		return false
	}
	if tag == "input" && strings.EqualFold(Attr(n, "type"), "hidden") {
		return false
	}
	if actionableTags[tag] {
		return true
	}
	if tag == "a" {
		if _, ok := LookupAttr(n, "href"); ok {
			return true
		}
	}
	if actionableRoles[strings.ToLower(strings.TrimSpace(Attr(n, "role")))] {
		return true
	}
	if _, ok := LookupAttr(n, "onclick"); ok {
		return true
	}
	if ti, ok := LookupAttr(n, "tabindex"); ok {
		if v, err := strconv.Atoi(strings.TrimSpace(ti)); err == nil && v >= 0 {
			return true
		}
	}
	return false
}

// PointerTarget applies the clickable-container heuristic used for script-driven
// widgets without semantic markup: pointer events enabled, a pointer cursor and
// a box of at least MinPointerBox on each side.
func (d *Document) PointerTarget(n *html.Node) bool {
	l, ok := d.layout[n]
	if !ok || !d.Rendered(n) {
		return false
	}
	if l.Style.PointerEvents == "none" || l.Style.Cursor != "pointer" {
		return false
	}
	return l.Rect.Width >= MinPointerBox && l.Rect.Height >= MinPointerBox
}

// Classify tags an element as Interactive or Scannable. It is computed once per
// resolution and carried with the target.
func (d *Document) Classify(n *html.Node) Capability {
	if Actionable(n) || d.PointerTarget(n) {
		return Interactive
	}
	return Scannable
}
