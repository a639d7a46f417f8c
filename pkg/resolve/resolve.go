// Package resolve reconciles a highlight instruction with the snapshot it was
// produced from, yielding the selector and description the overlay should use.
//
// Resolution order, first success wins: the instruction's element index, its
// raw selector, then a text-overlap score of every snapshot element against
// the displayed message.
package resolve

import (
	"strings"

	"github.com/entrhq/beacon/pkg/interpret"
	"github.com/entrhq/beacon/pkg/snapshot"
)

// Fallback scoring weights. Empirical; tune with care.
const (
	ContainmentScore = 50
	TokenScore       = 4
	MinTokenLength   = 1
)

// Source records which resolution path produced a target.
type Source string

const (
	FromIndex    Source = "index"
	FromSelector Source = "selector"
	FromText     Source = "text"
	FromDefault  Source = "default"
)

// Target is a locatable element plus the description shown next to it.
type Target struct {
	Selector    string `json:"selector"`
	Description string `json:"description"`
	Source      Source `json:"-"`
}

// Resolve maps instr onto snap. instr may be nil. It returns nil only when the
// snapshot has no interactive elements and no selector was supplied.
func Resolve(instr *interpret.Instruction, snap *snapshot.Snapshot, displayText string) *Target {
	var elements []snapshot.Element
	if snap != nil {
		elements = snap.InteractiveElements
	}

	if instr.HasIndex() {
		if idx := *instr.ElementIndex; idx >= 0 && idx < len(elements) && elements[idx].Selector != "" {
			el := elements[idx]
			return &Target{
				Selector:    el.Selector,
				Description: firstNonEmpty(instr.Description, el.Label(), displayText),
				Source:      FromIndex,
			}
		}
	}

	if instr != nil && instr.Selector != "" {
		return &Target{
			Selector:    instr.Selector,
			Description: firstNonEmpty(instr.Description, displayText),
			Source:      FromSelector,
		}
	}

	if len(elements) == 0 {
		return nil
	}

	best, bestScore := 0, 0
	display := strings.ToLower(displayText)
	for i, el := range elements {
		if s := Score(el, display); s > bestScore {
			best, bestScore = i, s
		}
	}

	src := FromText
	if bestScore == 0 {
		src = FromDefault
	}
	el := elements[best]
	var desc string
	if instr != nil {
		desc = instr.Description
	}
	return &Target{
		Selector:    el.Selector,
		Description: firstNonEmpty(desc, el.Label(), displayText),
		Source:      src,
	}
}

// Score rates how well el's text and aria-label overlap the lower-cased
// display text.
func Score(el snapshot.Element, display string) int {
	if display == "" {
		return 0
	}
	score := 0
	seen := make(map[string]bool, 2)
	for _, name := range []string{el.Text, el.AriaLabel} {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		if strings.Contains(display, name) {
			score += ContainmentScore
		}
		for _, tok := range strings.Fields(name) {
			if len([]rune(tok)) >= MinTokenLength && strings.Contains(display, tok) {
				score += TokenScore
			}
		}
	}
	return score
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
