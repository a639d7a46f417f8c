// Package parser extracts the bracket-tag blocks that models embed in their
// plain-text replies, such as [CLARIFY]...[/CLARIFY].
package parser

import "strings"

// Tags understood by the response grammar.
const (
	ClarifyTag   = "CLARIFY"
	HighlightTag = "HIGHLIGHT_ELEMENT"
)

// Open returns the opening form of tag, e.g. "[CLARIFY]".
func Open(tag string) string {
	return "[" + tag + "]"
}

// Close returns the closing form of tag, e.g. "[/CLARIFY]".
func Close(tag string) string {
	return "[/" + tag + "]"
}

// Block is one occurrence of a tagged block inside a reply.
type Block struct {
	// Start and End delimit the whole block, tags included, as byte offsets.
	Start int
	End   int

	// Content is the text between the tags, trimmed.
	Content string

	// Terminated is false when the closing tag is missing. The block then
	// runs to the end of the text.
	Terminated bool
}

// FindBlock returns the first block for tag in text. Tag matching ignores
// ASCII case.
func FindBlock(text, tag string) (Block, bool) {
	return findFrom(text, tag, 0)
}

func findFrom(text, tag string, from int) (Block, bool) {
	open, closing := Open(tag), Close(tag)

	i := indexFold(text[from:], open)
	if i < 0 {
		return Block{}, false
	}
	start := from + i
	body := start + len(open)

	j := indexFold(text[body:], closing)
	if j < 0 {
		return Block{
			Start:   start,
			End:     len(text),
			Content: strings.TrimSpace(text[body:]),
		}, true
	}
	return Block{
		Start:      start,
		End:        body + j + len(closing),
		Content:    strings.TrimSpace(text[body : body+j]),
		Terminated: true,
	}, true
}

// Strip removes every block for tag from text and trims the result. An
// unterminated block removes everything from its opening tag onward.
func Strip(text, tag string) string {
	var b strings.Builder
	pos := 0
	for {
		blk, ok := findFrom(text, tag, pos)
		if !ok {
			break
		}
		b.WriteString(text[pos:blk.Start])
		pos = blk.End
		if !blk.Terminated {
			break
		}
	}
	b.WriteString(text[pos:])
	return strings.TrimSpace(b.String())
}

// indexFold is strings.Index with ASCII case folding. Offsets refer to s
// unchanged.
func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}
