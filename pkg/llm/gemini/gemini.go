// Package gemini provides a Gemini provider on top of google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"google.golang.org/genai"

	"github.com/entrhq/beacon/pkg/llm"
	"github.com/entrhq/beacon/pkg/logging"
	"github.com/entrhq/beacon/pkg/types"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.0-flash"

	DefaultTemperature     = 0.7
	DefaultTopK            = 40
	DefaultTopP            = 0.95
	DefaultMaxOutputTokens = 1024
)

var debugLog *logging.Logger

func init() {
	var err error
	debugLog, err = logging.NewLogger("gemini")
	if err != nil {
		// Logger fell back to stderr due to initialization failure
		debugLog.Warnf("Failed to initialize gemini logger, using stderr fallback: %v", err)
	}
}

// DefaultSafetySettings block medium-and-above harm in every category.
var DefaultSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockMediumAndAbove},
}

// Provider implements llm.Provider for the Gemini API.
type Provider struct {
	client     *genai.Client
	httpClient *http.Client
	modelInfo  *types.ModelInfo
	safety     []*genai.SafetySetting
	apiKey     string
	baseURL    string
	model      string

	temperature float32
	topK        float32
	topP        float32
	maxTokens   int32
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithSampling sets temperature, topK and topP.
func WithSampling(temperature, topK, topP float32) ProviderOption {
	return func(p *Provider) {
		p.temperature = temperature
		p.topK = topK
		p.topP = topP
	}
}

// WithMaxOutputTokens caps the length of a reply.
func WithMaxOutputTokens(n int32) ProviderOption {
	return func(p *Provider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithSafetySettings replaces DefaultSafetySettings.
func WithSafetySettings(s []*genai.SafetySetting) ProviderOption {
	return func(p *Provider) {
		p.safety = s
	}
}

// NewProvider creates a Gemini provider. An empty apiKey is read from
// GEMINI_API_KEY, then GOOGLE_API_KEY.
func NewProvider(ctx context.Context, apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (provide via parameter or GEMINI_API_KEY environment variable)")
	}

	p := &Provider{
		apiKey:      apiKey,
		model:       DefaultModel,
		safety:      DefaultSafetySettings,
		temperature: DefaultTemperature,
		topK:        DefaultTopK,
		topP:        DefaultTopP,
		maxTokens:   DefaultMaxOutputTokens,
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	p.client = client

	p.modelInfo = &types.ModelInfo{
		Metadata:          map[string]interface{}{"temperature": p.temperature, "top_k": p.topK, "top_p": p.topP},
		Provider:          "gemini",
		Name:              p.model,
		MaxTokens:         int(p.maxTokens),
		SupportsStreaming: true,
	}
	if p.baseURL != "" {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}
	return p, nil
}

func (p *Provider) config(messages []*types.Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		TopK:            genai.Ptr(p.topK),
		TopP:            genai.Ptr(p.topP),
		MaxOutputTokens: p.maxTokens,
		SafetySettings:  p.safety,
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			cfg.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case types.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, cfg
}

// Complete sends messages to the model and returns the reply. A response
// without candidates[0].content.parts[0].text is an error.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	contents, cfg := p.config(messages)

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	text, ok := firstText(resp)
	if !ok {
		debugLog.Warnf("reply without text from %s", p.model)
		return nil, llm.ErrEmptyResponse
	}
	msg := types.NewAssistantMessage(text)
	msg.Usage = usageOf(resp)
	return msg, nil
}

// StreamCompletion streams the reply as text deltas.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	contents, cfg := p.config(messages)
	chunks := make(chan *llm.StreamChunk, 10)

	go func() {
		defer close(chunks)

		// send gives up once ctx is done so an abandoned stream cannot
		// block this goroutine.
		send := func(c *llm.StreamChunk) bool {
			select {
			case chunks <- c:
				return true
			case <-ctx.Done():
				select {
				case chunks <- &llm.StreamChunk{Error: ctx.Err()}:
				default:
				}
				return false
			}
		}

		first := true
		var usage *types.TokenUsage
		for resp, err := range p.client.Models.GenerateContentStream(ctx, p.model, contents, cfg) {
			if err != nil {
				send(&llm.StreamChunk{Error: fmt.Errorf("gemini stream failed: %w", err)})
				return
			}
			if u := usageOf(resp); u != nil {
				usage = u
			}
			text, ok := firstText(resp)
			if !ok {
				continue
			}
			chunk := &llm.StreamChunk{Content: text}
			if first {
				chunk.Role = string(types.RoleAssistant)
				first = false
			}
			if !send(chunk) {
				return
			}
		}
		send(&llm.StreamChunk{Usage: usage, Finished: true})
	}()

	return chunks, nil
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// GetModel returns the model name being used.
func (p *Provider) GetModel() string {
	return p.model
}

func firstText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	c := resp.Candidates[0]
	if c.Content == nil || len(c.Content.Parts) == 0 || c.Content.Parts[0] == nil {
		return "", false
	}
	text := c.Content.Parts[0].Text
	return text, text != ""
}

func usageOf(resp *genai.GenerateContentResponse) *types.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	u := resp.UsageMetadata
	return &types.TokenUsage{
		PromptTokens:     int(u.PromptTokenCount),
		CompletionTokens: int(u.CandidatesTokenCount),
		TotalTokens:      int(u.TotalTokenCount),
	}
}
