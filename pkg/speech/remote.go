package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultRemoteBaseURL = "https://api.elevenlabs.io"
	DefaultRemoteVoice   = "21m00Tcm4TlvDq8ikWAM"
	DefaultRemoteModel   = "eleven_multilingual_v2"

	// AudioMIME is the format requested from the remote service.
	AudioMIME = "audio/mpeg"
)

// VoiceSettings tune the remote voice.
type VoiceSettings struct {
	Speed           float64 `json:"speed"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings are sent unless overridden.
var DefaultVoiceSettings = VoiceSettings{
	Speed:           1.0,
	Stability:       0.5,
	SimilarityBoost: 0.75,
	Style:           0,
	UseSpeakerBoost: true,
}

// APIError is a non-2xx answer from the remote service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("text-to-speech request failed with status %d: %s", e.StatusCode, e.Message)
}

// RemoteClient synthesizes speech through an ElevenLabs-style HTTP API.
type RemoteClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	voice      string
	model      string
	settings   VoiceSettings
}

// RemoteOption configures a RemoteClient.
type RemoteOption func(*RemoteClient)

// WithRemoteBaseURL overrides the API base URL.
func WithRemoteBaseURL(u string) RemoteOption {
	return func(c *RemoteClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithVoice selects the voice id.
func WithVoice(id string) RemoteOption {
	return func(c *RemoteClient) {
		if id != "" {
			c.voice = id
		}
	}
}

// WithRemoteModel selects the synthesis model.
func WithRemoteModel(m string) RemoteOption {
	return func(c *RemoteClient) {
		if m != "" {
			c.model = m
		}
	}
}

// WithVoiceSettings overrides DefaultVoiceSettings.
func WithVoiceSettings(s VoiceSettings) RemoteOption {
	return func(c *RemoteClient) {
		c.settings = s
	}
}

// WithRemoteHTTPClient replaces the HTTP client.
func WithRemoteHTTPClient(h *http.Client) RemoteOption {
	return func(c *RemoteClient) {
		c.httpClient = h
	}
}

// NewRemoteClient creates a client. apiKey is required.
func NewRemoteClient(apiKey string, opts ...RemoteOption) (*RemoteClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("text-to-speech API key is required")
	}
	c := &RemoteClient{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		baseURL:    DefaultRemoteBaseURL,
		voice:      DefaultRemoteVoice,
		model:      DefaultRemoteModel,
		settings:   DefaultVoiceSettings,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Synthesize returns the audio for text. Cancelling ctx aborts the request.
func (c *RemoteClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:          text,
		ModelID:       c.model,
		VoiceSettings: c.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/v1/text-to-speech/" + url.PathEscape(c.voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", AudioMIME)
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("text-to-speech returned no audio")
	}
	return data, nil
}

// errorMessage extracts the human-readable message from an error body. Both
// {"detail":{"message":...}} and {"detail":"..."} shapes occur, as well as a
// top-level "message".
func errorMessage(body []byte, status string) string {
	var parsed struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		if s := strings.TrimSpace(string(body)); s != "" && len(s) < 300 {
			return s
		}
		return status
	}
	if len(parsed.Detail) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Detail, &detail) == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if json.Unmarshal(parsed.Detail, &s) == nil && s != "" {
			return s
		}
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return status
}
