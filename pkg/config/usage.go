package config

import (
	"sync"

	"github.com/entrhq/beacon/pkg/types"
)

// SectionIDUsage is the identifier for the usage counters section.
const SectionIDUsage = "usage"

// UsageSection counts commands and tokens across sessions.
type UsageSection struct {
	Summaries        int
	Guides           int
	Navigations      int
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	mu               sync.RWMutex
}

// NewUsageSection creates zeroed counters.
func NewUsageSection() *UsageSection {
	return &UsageSection{}
}

// ID returns the section identifier.
func (s *UsageSection) ID() string {
	return SectionIDUsage
}

// Title returns the section title.
func (s *UsageSection) Title() string {
	return "Usage"
}

// Description returns the section description.
func (s *UsageSection) Description() string {
	return "How many commands of each kind have run and how many model tokens they used."
}

// Data returns the current configuration data.
func (s *UsageSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"summaries":         s.Summaries,
		"guides":            s.Guides,
		"navigations":       s.Navigations,
		"prompt_tokens":     s.PromptTokens,
		"completion_tokens": s.CompletionTokens,
		"total_tokens":      s.TotalTokens,
	}
}

// SetData updates the configuration from the provided data.
func (s *UsageSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setInt(data, "summaries", &s.Summaries)
	setInt(data, "guides", &s.Guides)
	setInt(data, "navigations", &s.Navigations)
	setInt(data, "prompt_tokens", &s.PromptTokens)
	setInt(data, "completion_tokens", &s.CompletionTokens)
	setInt(data, "total_tokens", &s.TotalTokens)
	return nil
}

// Validate validates the current configuration.
func (s *UsageSection) Validate() error {
	return nil
}

// Reset zeroes every counter.
func (s *UsageSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Summaries, s.Guides, s.Navigations = 0, 0, 0
	s.PromptTokens, s.CompletionTokens, s.TotalTokens = 0, 0, 0
}

// RecordCommand counts one command of kind.
func (s *UsageSection) RecordCommand(kind types.InputType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case types.InputTypeSummarize:
		s.Summaries++
	case types.InputTypeGuide:
		s.Guides++
	case types.InputTypeNavigate:
		s.Navigations++
	}
}

// RecordTokens adds a model call's token usage.
func (s *UsageSection) RecordTokens(usage types.TokenUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PromptTokens += usage.PromptTokens
	s.CompletionTokens += usage.CompletionTokens
	s.TotalTokens += usage.TotalTokens
}

// Commands returns the total number of commands recorded.
func (s *UsageSection) Commands() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Summaries + s.Guides + s.Navigations
}
