// Package snapshot captures a structured, size-bounded model of a page: its
// main text, visible interactive elements, navigation links, headings, forms and
// landmarks. Every interactive element carries a selector that re-queries to
// exactly that element at capture time.
package snapshot

import "time"

// Position is an element's document-relative offset at capture time.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Element describes one visible interactive element.
type Element struct {
	Tag       string   `json:"tag"`
	Type      string   `json:"type,omitempty"`
	Text      string   `json:"text,omitempty"`
	AriaLabel string   `json:"ariaLabel,omitempty"`
	ID        string   `json:"id,omitempty"`
	ClassName string   `json:"className,omitempty"`
	Href      string   `json:"href,omitempty"`
	Selector  string   `json:"selector"`
	Position  Position `json:"position"`
}

// Label returns the element's visible text, or its aria-label.
func (e Element) Label() string {
	if e.Text != "" {
		return e.Text
	}
	return e.AriaLabel
}

// IndexedElement is the model-facing view of an element. Index is only valid
// for the command whose snapshot produced it.
type IndexedElement struct {
	Index int `json:"index"`
	Element
}

// Link is a navigation link.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Heading is an h1-h3 heading.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// FormField is one control inside a form.
type FormField struct {
	Tag   string `json:"tag"`
	Type  string `json:"type,omitempty"`
	Name  string `json:"name,omitempty"`
	Label string `json:"label,omitempty"`
}

// Form summarizes a form.
type Form struct {
	ID     string      `json:"id,omitempty"`
	Name   string      `json:"name,omitempty"`
	Action string      `json:"action,omitempty"`
	Method string      `json:"method,omitempty"`
	Fields []FormField `json:"fields,omitempty"`
}

// Landmark is an ARIA landmark region present on the page.
type Landmark struct {
	Role  string `json:"role"`
	Label string `json:"label,omitempty"`
}

// Snapshot is a point-in-time model of a page. It is rebuilt for every command
// and never mutated after capture.
type Snapshot struct {
	URL                 string     `json:"url"`
	Title               string     `json:"title"`
	TextContent         string     `json:"textContent"`
	InteractiveElements []Element  `json:"interactiveElements"`
	NavigationLinks     []Link     `json:"navigationLinks"`
	Headings            []Heading  `json:"headings"`
	Forms               []Form     `json:"forms"`
	Landmarks           []Landmark `json:"landmarks"`
	CapturedAt          time.Time  `json:"capturedAt"`
}

// MaxIndexed is how many interactive elements the model may reference.
const MaxIndexed = 20

// Indexed returns the first MaxIndexed interactive elements with their indexes.
func (s *Snapshot) Indexed() []IndexedElement {
	n := len(s.InteractiveElements)
	if n > MaxIndexed {
		n = MaxIndexed
	}
	out := make([]IndexedElement, n)
	for i := 0; i < n; i++ {
		out[i] = IndexedElement{Index: i, Element: s.InteractiveElements[i]}
	}
	return out
}

// WithTextContent returns a copy of the snapshot with different text content.
// Used when a prompt must shrink to fit a token budget.
func (s *Snapshot) WithTextContent(text string) *Snapshot {
	c := *s
	c.TextContent = text
	return &c
}
