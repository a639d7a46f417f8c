package snapshot

import (
	"fmt"
	"strings"

	"github.com/entrhq/beacon/pkg/dom"
	"golang.org/x/net/html"
)

// maxSelectorClasses bounds how many class names the tag+class step combines.
const maxSelectorClasses = 2

// SelectorFor returns a selector that re-queries doc to exactly n at the time
// of the call. Strategies, first success wins:
//
//  1. #id, when the id is unique
//  2. tag plus up to two class names, when unique
//  3. tag[data-*="value"], when unique
//  4. SelectorFor(parent) > tag:nth-child(k), ending at the document element
//     with its bare tag name
//
// The result is not guaranteed to survive later DOM mutation.
func SelectorFor(doc *dom.Document, n *html.Node) string {
	tag := dom.Tag(n)
	if tag == "" {
		return ""
	}

	if id := dom.Attr(n, "id"); strings.TrimSpace(id) != "" {
		sel := "#" + EscapeIdent(id)
		if unique(doc, sel, n) {
			return sel
		}
	}

	if classes := dom.Classes(n); len(classes) > 0 {
		if len(classes) > maxSelectorClasses {
			classes = classes[:maxSelectorClasses]
		}
		var b strings.Builder
		b.WriteString(tag)
		for _, c := range classes {
			b.WriteByte('.')
			b.WriteString(EscapeIdent(c))
		}
		if sel := b.String(); unique(doc, sel, n) {
			return sel
		}
	}

	for _, a := range n.Attr {
		if a.Namespace != "" || !strings.HasPrefix(strings.ToLower(a.Key), "data-") {
			continue
		}
		sel := fmt.Sprintf("%s[%s=%s]", tag, EscapeIdent(a.Key), quoteString(a.Val))
		if unique(doc, sel, n) {
			return sel
		}
	}

	parent := dom.ElementParent(n)
	if parent == nil {
		return tag
	}
	return fmt.Sprintf("%s > %s:nth-child(%d)", SelectorFor(doc, parent), tag, childPosition(n))
}

func unique(doc *dom.Document, selector string, n *html.Node) bool {
	matches, err := doc.QueryAll(selector)
	return err == nil && len(matches) == 1 && matches[0] == n
}

// childPosition is the 1-based index of n among its parent's element children.
func childPosition(n *html.Node) int {
	pos := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			pos++
		}
	}
	return pos
}

// EscapeIdent escapes s for use as a CSS identifier, following CSS.escape().
func EscapeIdent(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		switch {
		case r == 0:
			b.WriteRune('�')
		case (r >= 0x1 && r <= 0x1f) || r == 0x7f:
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r >= '0' && r <= '9':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 1 && r >= '0' && r <= '9' && runes[0] == '-':
			fmt.Fprintf(&b, "\\%x ", r)
		case i == 0 && r == '-' && len(runes) == 1:
			b.WriteString("\\-")
		case r >= 0x80 || r == '-' || r == '_' ||
			(r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString("\\a ")
		case '\r':
			b.WriteString("\\d ")
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
