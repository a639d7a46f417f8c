package headless

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// ConstraintManager enforces safety limits during headless execution
type ConstraintManager struct {
	config *ConstraintConfig

	tokensUsed int
	urlMatcher *PatternMatcher

	mu sync.RWMutex
}

// ConstraintViolation represents a constraint violation error
type ConstraintViolation struct {
	Type    ViolationType
	Message string
	Details map[string]interface{}
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation (%s): %s", e.Type, e.Message)
}

// ViolationType identifies the type of constraint that was violated
type ViolationType string

const (
	ViolationTokenLimit ViolationType = "token_limit"
	ViolationURLPattern ViolationType = "url_pattern"
	ViolationTimeout    ViolationType = "timeout"
)

// ConstraintState is a point-in-time view of tracked usage
type ConstraintState struct {
	TokensUsed int
}

// NewConstraintManager creates a new constraint manager
func NewConstraintManager(config ConstraintConfig) (*ConstraintManager, error) {
	matcher, err := NewPatternMatcher(config.AllowedURLs, config.DeniedURLs)
	if err != nil {
		return nil, fmt.Errorf("failed to create url matcher: %w", err)
	}

	return &ConstraintManager{
		config:     &config,
		urlMatcher: matcher,
	}, nil
}

// ValidateURL checks a page address against the url patterns
func (cm *ConstraintManager) ValidateURL(url string) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if cm.urlMatcher.IsAllowed(url) {
		return nil
	}
	return &ConstraintViolation{
		Type:    ViolationURLPattern,
		Message: fmt.Sprintf("url '%s' does not match allowed patterns", url),
		Details: map[string]interface{}{
			"url":          url,
			"allowed_urls": cm.config.AllowedURLs,
			"denied_urls":  cm.config.DeniedURLs,
		},
	}
}

// RecordTokenUsage adds tokens and fails once the budget is passed
func (cm *ConstraintManager) RecordTokenUsage(tokens int) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.tokensUsed += tokens
	if cm.config.MaxTokens > 0 && cm.tokensUsed > cm.config.MaxTokens {
		return &ConstraintViolation{
			Type:    ViolationTokenLimit,
			Message: fmt.Sprintf("token limit exceeded: %d > %d", cm.tokensUsed, cm.config.MaxTokens),
			Details: map[string]interface{}{
				"tokens_used": cm.tokensUsed,
				"max_tokens":  cm.config.MaxTokens,
			},
		}
	}
	return nil
}

// Exceeded reports whether the token budget has been passed
func (cm *ConstraintManager) Exceeded() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config.MaxTokens > 0 && cm.tokensUsed > cm.config.MaxTokens
}

// GetCurrentState returns the current tracked usage
func (cm *ConstraintManager) GetCurrentState() ConstraintState {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return ConstraintState{TokensUsed: cm.tokensUsed}
}

// PatternMatcher handles glob pattern matching for page addresses
type PatternMatcher struct {
	allowedPatterns []glob.Glob
	deniedPatterns  []glob.Glob
}

// NewPatternMatcher creates a new pattern matcher
func NewPatternMatcher(allowed, denied []string) (*PatternMatcher, error) {
	pm := &PatternMatcher{}

	for _, pattern := range allowed {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed pattern '%s': %w", pattern, err)
		}
		pm.allowedPatterns = append(pm.allowedPatterns, g)
	}

	for _, pattern := range denied {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid denied pattern '%s': %w", pattern, err)
		}
		pm.deniedPatterns = append(pm.deniedPatterns, g)
	}

	return pm, nil
}

// IsAllowed returns true if the address is allowed by the pattern rules
func (pm *PatternMatcher) IsAllowed(url string) bool {
	// Denied patterns take precedence
	for _, pattern := range pm.deniedPatterns {
		if pattern.Match(url) {
			return false
		}
	}

	// If no allowed patterns specified, allow all (except denied)
	if len(pm.allowedPatterns) == 0 {
		return true
	}

	for _, pattern := range pm.allowedPatterns {
		if pattern.Match(url) {
			return true
		}
	}

	return false
}
