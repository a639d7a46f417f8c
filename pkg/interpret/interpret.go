// Package interpret turns a model's plain-text reply into a clarification
// request, a user-facing message and an optional highlight instruction.
//
// Reply grammar:
//
//	[CLARIFY]question[/CLARIFY]
//	prose... [HIGHLIGHT_ELEMENT]{"elementIndex":0,"description":"..."}[/HIGHLIGHT_ELEMENT]
//
// Parse problems never fail a command. A malformed highlight block is still
// removed from the message and simply yields no instruction.
package interpret

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/entrhq/beacon/pkg/llm/parser"
	"github.com/entrhq/beacon/pkg/prompt"
)

// Fallback messages used when the reply has no usable prose.
const (
	FallbackAction  = "Look for the highlighted area on the page."
	FallbackSummary = "I couldn't find anything to summarize on this page."
)

// MaxActionSentences bounds guide and navigate messages.
const MaxActionSentences = 2

// Instruction is the model's hint about which element to point at.
type Instruction struct {
	ElementIndex *int   `json:"elementIndex,omitempty"`
	Selector     string `json:"selector,omitempty"`
	Description  string `json:"description,omitempty"`
}

// HasIndex reports whether the instruction carries an element index.
func (i *Instruction) HasIndex() bool {
	return i != nil && i.ElementIndex != nil
}

// Result is an interpreted reply.
type Result struct {
	// Instruction is nil when the reply had no parseable highlight block.
	Instruction *Instruction

	// Clarification is set when the model asked a question instead of
	// answering. No instruction is derived in that case.
	Clarification string

	// Message is the text to display and speak.
	Message string
}

// NeedsClarification reports whether the reply is a question for the user.
func (r Result) NeedsClarification() bool {
	return r.Clarification != ""
}

var (
	listMarker  = regexp.MustCompile(`^\s*(?:[-*•·>]+|\d+[.)])\s+`)
	itemMarker  = regexp.MustCompile(`^\s*(?:[-*•·>]+|\d+[.)])(?:\s+|$)`)
	headingMark = regexp.MustCompile(`^\s*#{1,6}\s*`)
	emphasis    = regexp.MustCompile("\\*\\*|__|`+|~~")
	sentenceEnd = regexp.MustCompile(`[.!?]+(?:["')\]]+)?(?:\s+|$)`)
	codeFence   = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

// Interpret parses raw for a command of the given kind.
func Interpret(raw string, kind prompt.TaskKind) Result {
	if blk, ok := parser.FindBlock(raw, parser.ClarifyTag); ok {
		// An unterminated question runs to the end of the reply and may
		// swallow a highlight block.
		if q := collapse(parser.Strip(blk.Content, parser.HighlightTag)); q != "" {
			return Result{Clarification: q, Message: q}
		}
	}

	var instr *Instruction
	if blk, ok := parser.FindBlock(raw, parser.HighlightTag); ok {
		instr = parseInstruction(blk.Content)
	}

	text := parser.Strip(raw, parser.HighlightTag)
	text = parser.Strip(text, parser.ClarifyTag)

	var msg string
	if kind.WantsHighlight() {
		msg = FormatAction(text)
		if msg == "" {
			msg = FallbackAction
		}
	} else {
		msg = collapse(cleanMarkdown(text))
		if msg == "" {
			msg = FallbackSummary
		}
	}
	return Result{Message: msg, Instruction: instr}
}

// FormatAction reduces prose to at most two capitalized sentences without
// list markers or markdown.
func FormatAction(text string) string {
	text = collapse(cleanMarkdown(text))
	if text == "" {
		return ""
	}

	var sentences []string
	for len(text) > 0 && len(sentences) < MaxActionSentences {
		loc := sentenceEnd.FindStringIndex(text)
		var s string
		if loc == nil {
			s, text = text, ""
		} else {
			s, text = text[:loc[1]], text[loc[1]:]
		}
		// Inline list items split into a bare numeral before their text
		s = strings.TrimSpace(itemMarker.ReplaceAllString(s, ""))
		if s != "" {
			sentences = append(sentences, capitalize(s))
		}
	}
	return strings.Join(sentences, " ")
}

func cleanMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = headingMark.ReplaceAllString(line, "")
		line = listMarker.ReplaceAllString(line, "")
		line = emphasis.ReplaceAllString(line, "")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, " ")
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// parseInstruction decodes a highlight payload. It returns nil when the
// payload is not a JSON object or names no target at all.
func parseInstruction(payload string) *Instruction {
	payload = strings.TrimSpace(payload)
	if m := codeFence.FindStringSubmatch(payload); m != nil {
		payload = m[1]
	}

	var wire struct {
		ElementIndex *float64 `json:"elementIndex"`
		Selector     string   `json:"selector"`
		Description  string   `json:"description"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil
	}

	instr := &Instruction{
		Selector:    strings.TrimSpace(wire.Selector),
		Description: strings.TrimSpace(wire.Description),
	}
	if f := wire.ElementIndex; f != nil && *f == math.Trunc(*f) && !math.IsInf(*f, 0) {
		idx := int(*f)
		instr.ElementIndex = &idx
	}
	if instr.ElementIndex == nil && instr.Selector == "" && instr.Description == "" {
		return nil
	}
	return instr
}
