package headless

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/entrhq/beacon/pkg/orchestrator"
)

// Expectation is a check run against a finished step
type Expectation interface {
	// Name returns the name of the expectation
	Name() string

	// Check returns an error when the outcome does not satisfy it
	Check(out *orchestrator.Outcome) error
}

// ExpectationError describes a failed expectation
type ExpectationError struct {
	Name string
	Want string
	Got  string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("%s: want %s, got %q", e.Name, e.Want, e.Got)
}

// patternExpectation matches a glob against one field of the outcome.
// Matching ignores case.
type patternExpectation struct {
	name    string
	pattern string
	matcher glob.Glob
	field   func(out *orchestrator.Outcome) string
}

func newPatternExpectation(name, pattern string, field func(out *orchestrator.Outcome) string) (*patternExpectation, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid %s pattern '%s': %w", name, pattern, err)
	}
	return &patternExpectation{name: name, pattern: pattern, matcher: g, field: field}, nil
}

func (e *patternExpectation) Name() string {
	return e.name
}

func (e *patternExpectation) Check(out *orchestrator.Outcome) error {
	got := ""
	if out != nil {
		got = e.field(out)
	}
	if e.matcher.Match(strings.ToLower(got)) {
		return nil
	}
	return &ExpectationError{Name: e.name, Want: fmt.Sprintf("match for %q", e.pattern), Got: got}
}

// flagExpectation compares one boolean of the outcome
type flagExpectation struct {
	name  string
	want  bool
	field func(out *orchestrator.Outcome) bool
}

func (e *flagExpectation) Name() string {
	return e.name
}

func (e *flagExpectation) Check(out *orchestrator.Outcome) error {
	got := out != nil && e.field(out)
	if got == e.want {
		return nil
	}
	return &ExpectationError{Name: e.name, Want: fmt.Sprintf("%t", e.want), Got: fmt.Sprintf("%t", got)}
}

func replyOf(out *orchestrator.Outcome) string {
	return out.Message
}

func selectorOf(out *orchestrator.Outcome) string {
	if out.Target == nil {
		return ""
	}
	return out.Target.Selector
}

// CreateExpectations builds the checks described by cfg
func CreateExpectations(cfg ExpectConfig) ([]Expectation, error) {
	var checks []Expectation

	if cfg.Reply != "" {
		e, err := newPatternExpectation("reply", cfg.Reply, replyOf)
		if err != nil {
			return nil, err
		}
		checks = append(checks, e)
	}

	if cfg.Selector != "" {
		e, err := newPatternExpectation("selector", cfg.Selector, selectorOf)
		if err != nil {
			return nil, err
		}
		checks = append(checks, e)
	}

	if cfg.Highlighted != nil {
		checks = append(checks, &flagExpectation{
			name:  "highlighted",
			want:  *cfg.Highlighted,
			field: func(out *orchestrator.Outcome) bool { return out.Highlighted },
		})
	}

	if cfg.Clarification != nil {
		checks = append(checks, &flagExpectation{
			name:  "clarification",
			want:  *cfg.Clarification,
			field: func(out *orchestrator.Outcome) bool { return out.Clarification },
		})
	}

	return checks, nil
}

// ExpectationResult contains the result of one check
type ExpectationResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// RunExpectations checks out against every expectation
func RunExpectations(checks []Expectation, out *orchestrator.Outcome) ([]ExpectationResult, bool) {
	results := make([]ExpectationResult, 0, len(checks))
	allPassed := true
	for _, check := range checks {
		result := ExpectationResult{Name: check.Name(), Passed: true}
		if err := check.Check(out); err != nil {
			result.Passed = false
			result.Error = err.Error()
			allPassed = false
		}
		results = append(results, result)
	}
	return results, allPassed
}
