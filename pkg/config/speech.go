package config

import (
	"fmt"
	"sync"

	"github.com/entrhq/beacon/pkg/speech"
)

const (
	// SectionIDSpeech is the identifier for the speech settings section
	SectionIDSpeech = "speech"

	// TTS providers
	TTSProviderBrowser    = "browser"
	TTSProviderElevenLabs = "elevenlabs"

	defaultSpeechLang = "en-US"
	defaultSpeechRate = 1.0
	defaultPitch      = 1.0
)

// SpeechSection manages spoken output and recognition settings.
type SpeechSection struct {
	Lang        string
	Rate        float64
	Pitch       float64
	TTSProvider string
	TTSAPIKey   string
	VoiceID     string
	TTSModel    string
	mu          sync.RWMutex
}

// NewSpeechSection creates a new speech section with default settings.
func NewSpeechSection() *SpeechSection {
	return &SpeechSection{
		Lang:        defaultSpeechLang,
		Rate:        defaultSpeechRate,
		Pitch:       defaultPitch,
		TTSProvider: TTSProviderBrowser,
	}
}

// ID returns the section identifier.
func (s *SpeechSection) ID() string {
	return SectionIDSpeech
}

// Title returns the section title.
func (s *SpeechSection) Title() string {
	return "Speech"
}

// Description returns the section description.
func (s *SpeechSection) Description() string {
	return "Language, rate and pitch of spoken replies, and which text-to-speech provider reads them."
}

// Data returns the current configuration data.
func (s *SpeechSection) Data() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"lang":         s.Lang,
		"rate":         s.Rate,
		"pitch":        s.Pitch,
		"tts_provider": s.TTSProvider,
		"tts_api_key":  s.TTSAPIKey,
		"voice_id":     s.VoiceID,
		"tts_model":    s.TTSModel,
	}
}

// SetData updates the configuration from the provided data.
func (s *SpeechSection) SetData(data map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setString(data, "lang", &s.Lang)
	setFloat(data, "rate", &s.Rate)
	setFloat(data, "pitch", &s.Pitch)
	setString(data, "tts_provider", &s.TTSProvider)
	setString(data, "tts_api_key", &s.TTSAPIKey)
	setString(data, "voice_id", &s.VoiceID)
	setString(data, "tts_model", &s.TTSModel)
	return nil
}

// Validate validates the current configuration.
func (s *SpeechSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Rate < 0.1 || s.Rate > 10 {
		return fmt.Errorf("rate must be between 0.1 and 10, got %g", s.Rate)
	}
	if s.Pitch < 0 || s.Pitch > 2 {
		return fmt.Errorf("pitch must be between 0 and 2, got %g", s.Pitch)
	}
	switch s.TTSProvider {
	case TTSProviderBrowser, TTSProviderElevenLabs:
	default:
		return fmt.Errorf("unknown tts_provider %q", s.TTSProvider)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *SpeechSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Lang = defaultSpeechLang
	s.Rate = defaultSpeechRate
	s.Pitch = defaultPitch
	s.TTSProvider = TTSProviderBrowser
	s.TTSAPIKey = ""
	s.VoiceID = ""
	s.TTSModel = ""
}

// SpeechSettings is a point-in-time copy of the section.
type SpeechSettings struct {
	Lang        string
	Rate        float64
	Pitch       float64
	TTSProvider string
	TTSAPIKey   string
	VoiceID     string
	TTSModel    string
}

// Settings returns a copy of the section.
func (s *SpeechSection) Settings() SpeechSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SpeechSettings{
		Lang:        s.Lang,
		Rate:        s.Rate,
		Pitch:       s.Pitch,
		TTSProvider: s.TTSProvider,
		TTSAPIKey:   s.TTSAPIKey,
		VoiceID:     s.VoiceID,
		TTSModel:    s.TTSModel,
	}
}

// RemoteReady reports whether custom voices can be used: the provider is
// remote and a key is set.
func (v SpeechSettings) RemoteReady() bool {
	return v.TTSProvider == TTSProviderElevenLabs && v.TTSAPIKey != ""
}

// NarratorOptions maps the settings onto narrator options. Remote speech is
// used only when customTTS is on and the provider is ready.
func (v SpeechSettings) NarratorOptions(customTTS bool) speech.Options {
	return speech.Options{
		Lang:      v.Lang,
		Rate:      v.Rate,
		Pitch:     v.Pitch,
		UseRemote: customTTS && v.RemoteReady(),
	}
}

// RemoteClient builds the remote synthesizer, or returns nil when no key is
// configured.
func (v SpeechSettings) RemoteClient() (*speech.RemoteClient, error) {
	if !v.RemoteReady() {
		return nil, nil
	}
	var opts []speech.RemoteOption
	if v.VoiceID != "" {
		opts = append(opts, speech.WithVoice(v.VoiceID))
	}
	if v.TTSModel != "" {
		opts = append(opts, speech.WithRemoteModel(v.TTSModel))
	}
	return speech.NewRemoteClient(v.TTSAPIKey, opts...)
}

func setString(data map[string]interface{}, key string, dst *string) {
	if v, ok := data[key].(string); ok {
		*dst = v
	}
}

func setFloat(data map[string]interface{}, key string, dst *float64) {
	switch v := data[key].(type) {
	case float64:
		*dst = v
	case int:
		*dst = float64(v)
	}
}

func setInt(data map[string]interface{}, key string, dst *int) {
	switch v := data[key].(type) {
	case float64:
		*dst = int(v)
	case int:
		*dst = v
	}
}
