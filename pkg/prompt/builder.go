package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/beacon/pkg/dom"
	"github.com/entrhq/beacon/pkg/llm/parser"
	"github.com/entrhq/beacon/pkg/snapshot"
)

var (
	// ErrUnknownTask is returned for a task kind outside summarize/guide/navigate.
	ErrUnknownTask = errors.New("unknown task kind")

	// ErrEmptyQuery is returned when a navigate prompt has no query.
	ErrEmptyQuery = errors.New("navigate requires a query")

	// ErrNoSnapshot is returned when the builder has no snapshot.
	ErrNoSnapshot = errors.New("no page snapshot")
)

// GuideQuestion is the implicit question answered by guide prompts.
const GuideQuestion = "What is the single best next action for me on this page?"

// SummaryWordLimit caps summarize replies.
const SummaryWordLimit = 100

// Counter counts tokens in a prompt.
type Counter interface {
	CountTokens(text string) int
}

// Builder constructs model prompts for one command.
type Builder struct {
	snap    *snapshot.Snapshot
	counter Counter
	query   string
	budget  int
}

// NewBuilder creates a builder over snap.
func NewBuilder(snap *snapshot.Snapshot) *Builder {
	return &Builder{snap: snap}
}

// WithQuery sets the user's free-text request used by navigate prompts.
func (b *Builder) WithQuery(query string) *Builder {
	b.query = strings.TrimSpace(query)
	return b
}

// WithTokenBudget bounds the prompt size. When the prompt is over budget the
// page text is halved until it fits or is empty. A budget of zero or a nil
// counter disables the check.
func (b *Builder) WithTokenBudget(budget int, counter Counter) *Builder {
	b.budget = budget
	b.counter = counter
	return b
}

// Build returns the prompt text for kind. It does not modify the snapshot.
func (b *Builder) Build(kind TaskKind) (string, error) {
	if b.snap == nil {
		return "", ErrNoSnapshot
	}
	switch kind {
	case Summarize, Guide:
	case Navigate:
		if b.query == "" {
			return "", ErrEmptyQuery
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTask, kind)
	}

	snap := b.snap
	text := b.render(kind, snap)
	if b.budget <= 0 || b.counter == nil {
		return text, nil
	}
	for b.counter.CountTokens(text) > b.budget && snap.TextContent != "" {
		half := len([]rune(snap.TextContent)) / 2
		snap = snap.WithTextContent(dom.Truncate(snap.TextContent, half))
		text = b.render(kind, snap)
	}
	return text, nil
}

func (b *Builder) render(kind TaskKind, snap *snapshot.Snapshot) string {
	var sb strings.Builder
	sb.WriteString("You are an accessibility assistant helping a person with cognitive or visual impairments use a webpage. ")
	sb.WriteString("Use plain, friendly language.\n\n")

	writeContext(&sb, snap)

	switch kind {
	case Summarize:
		writeSummarize(&sb)
	case Guide:
		writeAction(&sb, GuideQuestion)
	case Navigate:
		writeAction(&sb, b.query)
	}
	return sb.String()
}

func writeContext(sb *strings.Builder, snap *snapshot.Snapshot) {
	sb.WriteString("<page>\n")
	fmt.Fprintf(sb, "URL: %s\n", snap.URL)
	fmt.Fprintf(sb, "Title: %s\n\n", snap.Title)

	sb.WriteString("Text content:\n")
	if snap.TextContent == "" {
		sb.WriteString("(none)\n")
	} else {
		sb.WriteString(snap.TextContent)
		sb.WriteString("\n")
	}

	sb.WriteString("\nInteractive elements (refer to them only by index):\n")
	elements, err := json.MarshalIndent(snap.Indexed(), "", "  ")
	if err != nil {
		elements = []byte("[]")
	}
	sb.Write(elements)
	sb.WriteString("\n")

	if len(snap.NavigationLinks) > 0 {
		sb.WriteString("\nNavigation links:\n")
		for _, l := range snap.NavigationLinks {
			fmt.Fprintf(sb, "- %s (%s)\n", l.Text, l.Href)
		}
	}

	if len(snap.Headings) > 0 {
		sb.WriteString("\nHeadings:\n")
		for _, h := range snap.Headings {
			fmt.Fprintf(sb, "- H%d: %s\n", h.Level, h.Text)
		}
	}
	sb.WriteString("</page>\n\n")
}

func writeSummarize(sb *strings.Builder) {
	fmt.Fprintf(sb, "Describe this page in no more than %d words of plain language. ", SummaryWordLimit)
	sb.WriteString("Say what the page is for and the main things a person can do here. ")
	sb.WriteString("Do not use markdown, lists or headings.\n")
}

func writeAction(sb *strings.Builder, request string) {
	fmt.Fprintf(sb, "User request: %s\n\n", request)
	sb.WriteString("Rules:\n")
	fmt.Fprintf(sb, "1. If the request is ambiguous or looks mis-transcribed, reply only with one short question wrapped as %sYour question%s. In that case do not include a %s block.\n",
		parser.Open(parser.ClarifyTag), parser.Close(parser.ClarifyTag), parser.Open(parser.HighlightTag))
	sb.WriteString("2. Otherwise reply with 1-2 short imperative sentences telling the person exactly what to do. No markdown, no lists.\n")
	fmt.Fprintf(sb, "3. After those sentences append exactly one block: %s{\"elementIndex\": <index>, \"description\": \"<short description of the element>\"}%s\n",
		parser.Open(parser.HighlightTag), parser.Close(parser.HighlightTag))
	sb.WriteString("4. elementIndex must be an index from the interactive elements list. If nothing matches exactly, choose the closest practical match.\n")
}
