package orchestrator

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultRestrictedPatterns lists pages the browser keeps scripts out of.
var DefaultRestrictedPatterns = []string{
	"chrome://*",
	"chrome-extension://*",
	"chrome-search://*",
	"edge://*",
	"brave://*",
	"about:*",
	"view-source:*",
	"devtools://*",
	"https://chrome.google.com/webstore*",
	"https://chromewebstore.google.com/*",
	"https://microsoftedge.microsoft.com/addons*",
}

// FilePattern matches local files. It is not in the default list; add it
// when file access is disabled.
const FilePattern = "file://*"

// RestrictedMatcher reports whether a URL is off limits.
type RestrictedMatcher struct {
	patterns []glob.Glob
}

// NewRestrictedMatcher compiles patterns. Matching ignores case.
func NewRestrictedMatcher(patterns []string) (*RestrictedMatcher, error) {
	m := &RestrictedMatcher{}
	for _, pattern := range patterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid restricted pattern '%s': %w", pattern, err)
		}
		m.patterns = append(m.patterns, g)
	}
	return m, nil
}

// Match reports whether url matches any pattern.
func (m *RestrictedMatcher) Match(url string) bool {
	if m == nil {
		return false
	}
	url = strings.ToLower(strings.TrimSpace(url))
	for _, g := range m.patterns {
		if g.Match(url) {
			return true
		}
	}
	return false
}
