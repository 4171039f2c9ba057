package config

import (
	"fmt"
	"os"

	"github.com/entrhq/hoverpilot/pkg/llm"
	"github.com/entrhq/hoverpilot/pkg/llm/openai"
)

// ProviderFlags are the backend values given on the command line.
type ProviderFlags struct {
	Model   string
	BaseURL string
	APIKey  string
}

// BuildProviders resolves the backend chain, primary first.
//
// Each value is taken from the first source that sets it: CLI flags, then
// OPENAI_API_KEY / OPENAI_BASE_URL, then the config file, then defaults.
// A fallback backend is added when the config file names a fallback model.
func BuildProviders(flags ProviderFlags, settings LLMSettings, defaultModel string) ([]llm.Provider, error) {
	model := firstNonEmpty(flags.Model, settings.Model, defaultModel)
	baseURL := firstNonEmpty(flags.BaseURL, os.Getenv("OPENAI_BASE_URL"), settings.BaseURL)
	apiKey := firstNonEmpty(flags.APIKey, os.Getenv("OPENAI_API_KEY"), settings.APIKey)

	if apiKey == "" {
		return nil, fmt.Errorf("API key is required. Set OPENAI_API_KEY, use -api-key, or configure llm.api_key in ~/.hoverpilot/config.json")
	}

	primary, err := newProvider(model, baseURL, apiKey)
	if err != nil {
		return nil, err
	}
	providers := []llm.Provider{primary}

	if settings.FallbackModel != "" {
		fallback, err := newProvider(
			settings.FallbackModel,
			firstNonEmpty(settings.FallbackBaseURL, baseURL),
			firstNonEmpty(settings.FallbackAPIKey, apiKey),
		)
		if err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
		providers = append(providers, fallback)
	}
	return providers, nil
}

func newProvider(model, baseURL, apiKey string) (*openai.Provider, error) {
	opts := []openai.ProviderOption{openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	provider, err := openai.NewProvider(apiKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
