package config

import (
	"fmt"
	"sort"
	"sync"
)

// SectionIDFeatures is the identifier for the feature toggles section.
const SectionIDFeatures = "features"

// Feature names accepted by Toggle.
const (
	FeatureVoiceInput    = "voice_input"
	FeatureVoiceOutput   = "voice_output"
	FeatureCustomTTS     = "custom_tts"
	FeatureVisualArrows  = "visual_arrows"
	FeatureAutoSummarize = "auto_summarize"
)

// FeatureFlags is a point-in-time copy of the toggles.
type FeatureFlags struct {
	VoiceInput    bool
	VoiceOutput   bool
	CustomTTS     bool
	VisualArrows  bool
	AutoSummarize bool
}

// DefaultFeatureFlags has arrows on and everything else off.
func DefaultFeatureFlags() FeatureFlags {
	return FeatureFlags{VisualArrows: true}
}

// FeaturesSection holds the capability toggles.
type FeaturesSection struct {
	flags FeatureFlags
	mu    sync.RWMutex
}

// NewFeaturesSection creates the section with defaults.
func NewFeaturesSection() *FeaturesSection {
	return &FeaturesSection{flags: DefaultFeatureFlags()}
}

// ID returns the section identifier.
func (s *FeaturesSection) ID() string {
	return SectionIDFeatures
}

// Title returns the section title.
func (s *FeaturesSection) Title() string {
	return "Features"
}

// Description returns the section description.
func (s *FeaturesSection) Description() string {
	return "Turn voice input, spoken replies, custom voices, on-page arrows and automatic page summaries on or off."
}

func (s *FeaturesSection) fields() map[string]*bool {
	return map[string]*bool{
		FeatureVoiceInput:    &s.flags.VoiceInput,
		FeatureVoiceOutput:   &s.flags.VoiceOutput,
		FeatureCustomTTS:     &s.flags.CustomTTS,
		FeatureVisualArrows:  &s.flags.VisualArrows,
		FeatureAutoSummarize: &s.flags.AutoSummarize,
	}
}

// Data returns the current configuration data.
func (s *FeaturesSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := make(map[string]interface{}, 5)
	for name, v := range s.fields() {
		data[name] = *v
	}
	return data
}

// SetData updates the configuration from the provided data.
func (s *FeaturesSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, v := range s.fields() {
		if b, ok := data[name].(bool); ok {
			*v = b
		}
	}
	return nil
}

// Validate validates the current configuration.
func (s *FeaturesSection) Validate() error {
	return nil
}

// Reset resets the section to default configuration.
func (s *FeaturesSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags = DefaultFeatureFlags()
}

// Flags returns a copy of the toggles.
func (s *FeaturesSection) Flags() FeatureFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags
}

// Set changes one toggle.
func (s *FeaturesSection) Set(name string, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.fields()[name]
	if !ok {
		return fmt.Errorf("unknown feature %q (known: %v)", name, FeatureNames())
	}
	*v = on
	return nil
}

// Toggle flips one toggle and returns its new value.
func (s *FeaturesSection) Toggle(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.fields()[name]
	if !ok {
		return false, fmt.Errorf("unknown feature %q (known: %v)", name, FeatureNames())
	}
	*v = !*v
	return *v, nil
}

// FeatureNames lists the toggle names in sorted order.
func FeatureNames() []string {
	names := []string{
		FeatureVoiceInput,
		FeatureVoiceOutput,
		FeatureCustomTTS,
		FeatureVisualArrows,
		FeatureAutoSummarize,
	}
	sort.Strings(names)
	return names
}
