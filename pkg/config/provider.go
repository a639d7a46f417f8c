package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/beacon/pkg/llm"
	"github.com/entrhq/beacon/pkg/llm/gemini"
	"github.com/entrhq/beacon/pkg/llm/openai"
)

// ProviderFlags are provider settings given on the command line. Empty
// fields defer to the environment, then the config file, then defaults.
type ProviderFlags struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

// ProviderSettings is the fully resolved provider configuration.
type ProviderSettings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// ResolveProvider applies CLI flags > environment variables > config file >
// defaults. It fails when no API key can be found.
func ResolveProvider(flags ProviderFlags) (ProviderSettings, error) {
	file := GetLLM()
	if file == nil {
		file = NewLLMSection()
		file.Provider = ""
	}

	name := strings.ToLower(firstSet(flags.Provider, os.Getenv("BEACON_LLM_PROVIDER"), file.GetProvider(), ProviderGemini))

	var envKey, envBaseURL string
	switch name {
	case ProviderGemini:
		envKey = firstSet(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		envBaseURL = os.Getenv("GEMINI_BASE_URL")
	case ProviderOpenAI:
		envKey = os.Getenv("OPENAI_API_KEY")
		envBaseURL = os.Getenv("OPENAI_BASE_URL")
	default:
		return ProviderSettings{}, fmt.Errorf("unknown provider %q (use %s or %s)", name, ProviderGemini, ProviderOpenAI)
	}

	s := ProviderSettings{
		Provider: name,
		Model:    firstSet(flags.Model, os.Getenv("BEACON_MODEL"), file.GetModel()),
		BaseURL:  firstSet(flags.BaseURL, envBaseURL, file.GetBaseURL()),
		APIKey:   firstSet(flags.APIKey, envKey, file.GetAPIKey()),
	}
	if s.Model == "" {
		if name == ProviderOpenAI {
			s.Model = openai.DefaultModel
		} else {
			s.Model = gemini.DefaultModel
		}
	}
	if s.APIKey == "" {
		return ProviderSettings{}, fmt.Errorf("API key is required for %s. Use the -api-key flag, set the environment variable, or add it to the llm section of ~/.beacon/config.json", name)
	}
	return s, nil
}

// BuildProvider resolves settings and creates the provider.
func BuildProvider(ctx context.Context, flags ProviderFlags) (llm.Provider, error) {
	s, err := ResolveProvider(flags)
	if err != nil {
		return nil, err
	}

	switch s.Provider {
	case ProviderOpenAI:
		opts := []openai.ProviderOption{openai.WithModel(s.Model)}
		if s.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(s.BaseURL))
		}
		p, err := openai.NewProvider(s.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return p, nil
	default:
		opts := []gemini.ProviderOption{gemini.WithModel(s.Model)}
		if s.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(s.BaseURL))
		}
		p, err := gemini.NewProvider(ctx, s.APIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		return p, nil
	}
}
