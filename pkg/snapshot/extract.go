package snapshot

import (
	"strings"
	"time"

	"github.com/entrhq/beacon/pkg/dom"
	"golang.org/x/net/html"
)

// Limits bound the size of a snapshot, and with it the downstream prompt.
// Exceeding a limit truncates; it never fails a capture.
type Limits struct {
	TextChars   int
	Interactive int
	Links       int
	Headings    int
	Forms       int
	FormFields  int
	ElementText int
	LinkText    int
}

// DefaultLimits are the caps used unless overridden.
var DefaultLimits = Limits{
	TextChars:   5000,
	Interactive: 50,
	Links:       20,
	Headings:    15,
	Forms:       5,
	FormFields:  10,
	ElementText: 100,
	LinkText:    80,
}

// MainContentSelectors locate the main content region, in priority order.
var MainContentSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	"#content",
	".content",
	"#main",
}

// InteractiveSelector discovers candidate interactive elements.
var InteractiveSelector = strings.Join([]string{
	"button",
	"a[href]",
	"input",
	"select",
	"textarea",
	`[role="button"]`,
	`[role="link"]`,
	`[role="menuitem"]`,
	`[role="tab"]`,
	`[role="checkbox"]`,
	`[role="switch"]`,
	"[onclick]",
	`[tabindex="0"]`,
}, ", ")

// NavigationSelector discovers navigation links.
var NavigationSelector = `nav a[href], header a[href], [role="navigation"] a[href]`

// LandmarkRoles is the fixed set of landmark roles recorded, with the
// elements that carry each role implicitly.
var LandmarkRoles = []struct {
	Role     string
	Implicit string
}{
	{"banner", "header"},
	{"navigation", "nav"},
	{"main", "main"},
	{"search", "search"},
	{"complementary", "aside"},
	{"contentinfo", "footer"},
	{"form", ""},
	{"region", ""},
}

// Extractor captures snapshots. It holds no per-page state and is safe for
// concurrent use.
type Extractor struct {
	limits Limits
	now    func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLimits overrides the default caps.
func WithLimits(l Limits) Option {
	return func(e *Extractor) {
		e.limits = l
	}
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{limits: DefaultLimits, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Capture reads doc and returns a fresh snapshot. It never modifies doc.
func (e *Extractor) Capture(doc *dom.Document) *Snapshot {
	return &Snapshot{
		URL:                 doc.URL(),
		Title:               doc.Title(),
		TextContent:         e.mainText(doc),
		InteractiveElements: e.interactive(doc),
		NavigationLinks:     e.links(doc),
		Headings:            e.headings(doc),
		Forms:               e.forms(doc),
		Landmarks:           e.landmarks(doc),
		CapturedAt:          e.now(),
	}
}

// MainContent returns the first landmark region that exists, else the body.
func MainContent(doc *dom.Document) *html.Node {
	for _, sel := range MainContentSelectors {
		if n, err := doc.Query(sel); err == nil && n != nil {
			return n
		}
	}
	return doc.Body()
}

func (e *Extractor) mainText(doc *dom.Document) string {
	root := MainContent(doc)
	text := doc.Text(root, func(n *html.Node) bool {
		switch dom.Tag(n) {
		case "script", "style", "noscript", "template":
			return true
		}
		if strings.EqualFold(dom.Attr(n, "aria-hidden"), "true") {
			return true
		}
		return !doc.Rendered(n)
	})
	return dom.Truncate(text, e.limits.TextChars)
}

func (e *Extractor) interactive(doc *dom.Document) []Element {
	nodes, err := doc.QueryAll(InteractiveSelector)
	if err != nil {
		return nil
	}
	vp := doc.Viewport()
	out := make([]Element, 0, min(len(nodes), e.limits.Interactive))
	for _, n := range nodes {
		if len(out) >= e.limits.Interactive {
			break
		}
		if !doc.Visible(n) {
			continue
		}
		l, _ := doc.Layout(n)
		out = append(out, Element{
			Tag:       dom.Tag(n),
			Type:      dom.Attr(n, "type"),
			Text:      dom.Truncate(doc.InnerText(n), e.limits.ElementText),
			AriaLabel: dom.Attr(n, "aria-label"),
			ID:        dom.Attr(n, "id"),
			ClassName: dom.Attr(n, "class"),
			Href:      dom.Attr(n, "href"),
			Selector:  SelectorFor(doc, n),
			Position: Position{
				Top:  l.Rect.Y + vp.ScrollY,
				Left: l.Rect.X + vp.ScrollX,
			},
		})
	}
	return out
}

func (e *Extractor) links(doc *dom.Document) []Link {
	nodes, err := doc.QueryAll(NavigationSelector)
	if err != nil {
		return nil
	}
	var out []Link
	for _, n := range nodes {
		if len(out) >= e.limits.Links {
			break
		}
		if !doc.Visible(n) {
			continue
		}
		text := dom.Truncate(doc.Label(n), e.limits.LinkText)
		if text == "" {
			continue
		}
		out = append(out, Link{Text: text, Href: dom.Attr(n, "href")})
	}
	return out
}

func (e *Extractor) headings(doc *dom.Document) []Heading {
	nodes, err := doc.QueryAll("h1, h2, h3")
	if err != nil {
		return nil
	}
	var out []Heading
	for _, n := range nodes {
		if len(out) >= e.limits.Headings {
			break
		}
		if !doc.Visible(n) {
			continue
		}
		text := dom.Truncate(doc.InnerText(n), e.limits.ElementText)
		if text == "" {
			continue
		}
		out = append(out, Heading{Level: int(dom.Tag(n)[1] - '0'), Text: text})
	}
	return out
}

func (e *Extractor) forms(doc *dom.Document) []Form {
	nodes, err := doc.QueryAll("form")
	if err != nil {
		return nil
	}
	var out []Form
	for _, n := range nodes {
		if len(out) >= e.limits.Forms {
			break
		}
		form := Form{
			ID:     dom.Attr(n, "id"),
			Name:   dom.Attr(n, "name"),
			Action: dom.Attr(n, "action"),
			Method: strings.ToLower(dom.Attr(n, "method")),
		}
		fields, _ := doc.QueryWithin(n, "input, select, textarea")
		for _, f := range fields {
			if len(form.Fields) >= e.limits.FormFields {
				break
			}
			if strings.EqualFold(dom.Attr(f, "type"), "hidden") {
				continue
			}
			form.Fields = append(form.Fields, FormField{
				Tag:   dom.Tag(f),
				Type:  dom.Attr(f, "type"),
				Name:  dom.Attr(f, "name"),
				Label: fieldLabel(doc, f),
			})
		}
		out = append(out, form)
	}
	return out
}

func fieldLabel(doc *dom.Document, f *html.Node) string {
	if v := dom.Attr(f, "aria-label"); v != "" {
		return v
	}
	if id := dom.Attr(f, "id"); id != "" {
		if l, err := doc.Query(`label[for=` + quoteString(id) + `]`); err == nil && l != nil {
			if t := doc.InnerText(l); t != "" {
				return t
			}
		}
	}
	for p := dom.ElementParent(f); p != nil; p = dom.ElementParent(p) {
		if dom.Tag(p) == "label" {
			return doc.InnerText(p)
		}
	}
	return dom.Attr(f, "placeholder")
}

func (e *Extractor) landmarks(doc *dom.Document) []Landmark {
	var out []Landmark
	for _, lr := range LandmarkRoles {
		sel := `[role="` + lr.Role + `"]`
		if lr.Implicit != "" {
			sel = lr.Implicit + ", " + sel
		}
		n, err := doc.Query(sel)
		if err != nil || n == nil {
			continue
		}
		label := dom.Attr(n, "aria-label")
		if label == "" {
			if by := dom.Attr(n, "aria-labelledby"); by != "" {
				if ref, err := doc.Query("#" + EscapeIdent(by)); err == nil && ref != nil {
					label = doc.InnerText(ref)
				}
			}
		}
		out = append(out, Landmark{Role: lr.Role, Label: label})
	}
	return out
}
