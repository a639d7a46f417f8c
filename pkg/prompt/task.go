// Package prompt turns a page snapshot, a task kind and an optional user query
// into the text sent to the language model.
package prompt

import (
	"fmt"
	"strings"
)

// TaskKind selects what the model is asked to do.
type TaskKind string

const (
	Summarize TaskKind = "summarize"
	Guide     TaskKind = "guide"
	Navigate  TaskKind = "navigate"
)

// ParseTaskKind parses a task name, ignoring case.
func ParseTaskKind(s string) (TaskKind, error) {
	switch k := TaskKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Summarize, Guide, Navigate:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTask, s)
}

// WantsHighlight reports whether replies for this kind carry a highlight
// block and a clarification escape hatch.
func (k TaskKind) WantsHighlight() bool {
	return k == Guide || k == Navigate
}

func (k TaskKind) String() string {
	return string(k)
}
