package overlay

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/beacon/pkg/dom"
)

// Text fallback scoring. Empirical; tune with care.
const (
	FallbackThreshold  = 20
	ExactScore         = 120
	ContainsScore      = 90
	ContainedScore     = 60
	TokenMatchScore    = 10
	InteractiveBonus   = 25
	ScanLimit          = 700
	AncestorProbeDepth = 4
	MinTokenLength     = 1
)

// CandidateSelector lists the semantic and interactive tags the text fallback
// considers.
var CandidateSelector = strings.Join([]string{
	"a", "button", "input", "select", "textarea", "label", "summary",
	"[role]", "[onclick]", "[tabindex]",
	"h1", "h2", "h3", "h4", "h5", "h6", "p", "li", "td", "th", "dt", "dd",
	"span", "div", "img", "figcaption", "legend",
	"nav", "header", "footer", "main", "aside", "section", "article", "form",
}, ", ")

// Locate finds the node for selector, falling back to a text search for
// description when the selector is invalid, matches nothing or matches an
// invisible node. It returns nil when both fail.
func Locate(doc *dom.Document, selector, description string) (n *html.Node, byText bool) {
	if selector != "" {
		if n, err := doc.Query(selector); err == nil && n != nil && doc.Visible(n) {
			return n, false
		}
	}
	if n := FindByText(doc, description); n != nil {
		return n, true
	}
	return nil, false
}

// FindByText scores up to ScanLimit visible candidates against text and
// returns the best one scoring at least FallbackThreshold.
func FindByText(doc *dom.Document, text string) *html.Node {
	query := strings.ToLower(dom.CollapseSpace(text))
	if query == "" {
		return nil
	}
	nodes, err := doc.QueryAll(CandidateSelector)
	if err != nil {
		return nil
	}
	if len(nodes) > ScanLimit {
		nodes = nodes[:ScanLimit]
	}

	var best *html.Node
	bestScore := 0
	for _, n := range nodes {
		if !doc.Visible(n) {
			continue
		}
		s := textScore(doc, n, query)
		if s > bestScore {
			best, bestScore = n, s
		}
	}
	if bestScore < FallbackThreshold {
		return nil
	}
	return best
}

func textScore(doc *dom.Document, n *html.Node, query string) int {
	label := strings.ToLower(doc.Label(n))
	if label == "" {
		return 0
	}

	score := 0
	switch {
	case label == query:
		score += ExactScore
	case strings.Contains(label, query):
		score += ContainsScore
	case strings.Contains(query, label):
		score += ContainedScore
	}
	for _, tok := range strings.Fields(query) {
		if len([]rune(tok)) >= MinTokenLength && strings.Contains(label, tok) {
			score += TokenMatchScore
		}
	}
	if score > 0 && doc.Classify(n) == dom.Interactive {
		score += InteractiveBonus
	}
	return score
}

// Promote swaps a node that is not directly actionable for something the user
// can act on: the nearest actionable ancestor, else the nearest actionable
// descendant, else the closest of n and its AncestorProbeDepth ancestors that
// passes the pointer-cursor heuristic. If nothing qualifies n is returned and
// presented as a scan target.
func Promote(doc *dom.Document, n *html.Node) *html.Node {
	if dom.Actionable(n) {
		return n
	}
	for p := dom.ElementParent(n); p != nil; p = dom.ElementParent(p) {
		if dom.Actionable(p) && doc.Visible(p) {
			return p
		}
	}
	if d := actionableDescendant(doc, n); d != nil {
		return d
	}
	p := n
	for depth := 0; p != nil && depth <= AncestorProbeDepth; depth++ {
		if doc.PointerTarget(p) {
			return p
		}
		p = dom.ElementParent(p)
	}
	return n
}

// actionableDescendant is a breadth-first search so the nearest match wins.
func actionableDescendant(doc *dom.Document, n *html.Node) *html.Node {
	queue := dom.ElementChildren(n)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if dom.Actionable(c) && doc.Visible(c) {
			return c
		}
		queue = append(queue, dom.ElementChildren(c)...)
	}
	return nil
}
