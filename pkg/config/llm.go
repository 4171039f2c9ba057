package config

import (
	"fmt"
	"sync"
	"time"
)

// SectionIDLLM is the identifier for the backend settings section.
const SectionIDLLM = "llm"

// LLMSection holds the primary and optional fallback backend settings.
type LLMSection struct {
	Model   string
	BaseURL string
	APIKey  string

	// Fallback fields are used when the primary backend fails. An empty
	// FallbackModel disables the fallback. Empty URL or key reuse the
	// primary's.
	FallbackModel   string
	FallbackBaseURL string
	FallbackAPIKey  string

	// Timeout bounds one backend call. Zero means the generator default.
	Timeout time.Duration

	mu sync.RWMutex
}

// NewLLMSection creates an empty LLM section.
func NewLLMSection() *LLMSection {
	return &LLMSection{}
}

// ID returns the section identifier.
func (s *LLMSection) ID() string { return SectionIDLLM }

// Title returns the section title.
func (s *LLMSection) Title() string { return "Suggestion Backends" }

// Description returns the section description.
func (s *LLMSection) Description() string {
	return "Chat-completions backends used for reply suggestions. The fallback is tried when the primary fails or stays rate limited."
}

// Data returns the current configuration data.
func (s *LLMSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := map[string]any{
		"model":             s.Model,
		"base_url":          s.BaseURL,
		"api_key":           s.APIKey,
		"fallback_model":    s.FallbackModel,
		"fallback_base_url": s.FallbackBaseURL,
		"fallback_api_key":  s.FallbackAPIKey,
	}
	if s.Timeout > 0 {
		data["timeout"] = s.Timeout.String()
	}
	return data
}

// SetData updates the settings present in data.
func (s *LLMSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, dst := range map[string]*string{
		"model":             &s.Model,
		"base_url":          &s.BaseURL,
		"api_key":           &s.APIKey,
		"fallback_model":    &s.FallbackModel,
		"fallback_base_url": &s.FallbackBaseURL,
		"fallback_api_key":  &s.FallbackAPIKey,
	} {
		if v, ok := data[key].(string); ok {
			*dst = v
		}
	}

	if raw, ok := data["timeout"]; ok {
		d, err := parseDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		s.Timeout = d
	}
	return nil
}

// Validate validates the current configuration. Missing credentials are
// reported when providers are built, not here.
func (s *LLMSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Reset clears every setting.
func (s *LLMSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Model, s.BaseURL, s.APIKey = "", "", ""
	s.FallbackModel, s.FallbackBaseURL, s.FallbackAPIKey = "", "", ""
	s.Timeout = 0
}

// Snapshot returns a copy of the settings safe to read without locking.
func (s *LLMSection) Snapshot() LLMSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return LLMSettings{
		Model:           s.Model,
		BaseURL:         s.BaseURL,
		APIKey:          s.APIKey,
		FallbackModel:   s.FallbackModel,
		FallbackBaseURL: s.FallbackBaseURL,
		FallbackAPIKey:  s.FallbackAPIKey,
		Timeout:         s.Timeout,
	}
}

// LLMSettings is a plain copy of LLMSection.
type LLMSettings struct {
	Model           string
	BaseURL         string
	APIKey          string
	FallbackModel   string
	FallbackBaseURL string
	FallbackAPIKey  string
	Timeout         time.Duration
}

func parseDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return 0, nil
		}
		return time.ParseDuration(v)
	case float64:
		return time.Duration(v) * time.Millisecond, nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case time.Duration:
		return v, nil
	default:
		return 0, fmt.Errorf("unsupported duration value %v", raw)
	}
}
