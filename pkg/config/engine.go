package config

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
)

// SectionIDEngine is the identifier for the engine timing section.
const SectionIDEngine = "engine"

// EngineSettings are the tunables of the polling engine and its helpers.
type EngineSettings struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	HealthInterval  time.Duration `mapstructure:"health_interval"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	MinTextLength   int           `mapstructure:"min_text_length"`
	HoverGrace      time.Duration `mapstructure:"hover_grace"`
	PasteTimeout    time.Duration `mapstructure:"paste_timeout"`
	FocusAttempts   int           `mapstructure:"focus_attempts"`
	FocusDelay      time.Duration `mapstructure:"focus_delay"`
	ScrollTolerance float64       `mapstructure:"scroll_tolerance"`
	ScrollBudget    time.Duration `mapstructure:"scroll_budget"`
	Suggestions     int           `mapstructure:"suggestions"`
	AutoSubmit      bool          `mapstructure:"auto_submit"`
}

// DefaultEngineSettings returns the built-in timings.
func DefaultEngineSettings() EngineSettings {
	return EngineSettings{
		PollInterval:    50 * time.Millisecond,
		HealthInterval:  2 * time.Second,
		QueryTimeout:    500 * time.Millisecond,
		MinTextLength:   5,
		PasteTimeout:    2 * time.Second,
		FocusAttempts:   18,
		FocusDelay:      300 * time.Millisecond,
		ScrollTolerance: 100,
		ScrollBudget:    15 * time.Second,
		Suggestions:     3,
	}
}

// Validate rejects settings the engine cannot run with.
func (e EngineSettings) Validate() error {
	switch {
	case e.PollInterval <= 0:
		return fmt.Errorf("poll_interval must be positive")
	case e.HealthInterval <= 0:
		return fmt.Errorf("health_interval must be positive")
	case e.MinTextLength < 1:
		return fmt.Errorf("min_text_length must be at least 1")
	case e.PasteTimeout <= 0:
		return fmt.Errorf("paste_timeout must be positive")
	case e.FocusAttempts < 1:
		return fmt.Errorf("focus_attempts must be at least 1")
	case e.HoverGrace < 0, e.QueryTimeout < 0, e.FocusDelay < 0, e.ScrollBudget < 0:
		return fmt.Errorf("durations must not be negative")
	case e.ScrollTolerance < 0:
		return fmt.Errorf("scroll_tolerance must not be negative")
	case e.Suggestions < 1:
		return fmt.Errorf("suggestions must be at least 1")
	}
	return nil
}

// EngineSection persists EngineSettings.
type EngineSection struct {
	settings EngineSettings
	mu       sync.RWMutex
}

// NewEngineSection creates a section holding the defaults.
func NewEngineSection() *EngineSection {
	return &EngineSection{settings: DefaultEngineSettings()}
}

// ID returns the section identifier.
func (s *EngineSection) ID() string { return SectionIDEngine }

// Title returns the section title.
func (s *EngineSection) Title() string { return "Engine" }

// Description returns the section description.
func (s *EngineSection) Description() string {
	return "Polling, clipboard, composer focus and scroll restoration timings. Durations accept Go syntax such as 50ms or plain milliseconds."
}

// Data returns the settings with durations rendered as strings.
func (s *EngineSection) Data() map[string]any {
	s.mu.RLock()
	settings := s.settings
	s.mu.RUnlock()

	data := make(map[string]any)
	if err := mapstructure.Decode(settings, &data); err != nil {
		return map[string]any{}
	}
	for k, v := range data {
		if d, ok := v.(time.Duration); ok {
			data[k] = d.String()
		}
	}
	return data
}

// SetData overlays data on the current settings. The result must validate
// or nothing changes.
func (s *EngineSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	if err := decodeEngine(data, &next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	s.settings = next
	return nil
}

// Validate validates the current settings.
func (s *EngineSection) Validate() error {
	return s.Settings().Validate()
}

// Reset restores the defaults.
func (s *EngineSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = DefaultEngineSettings()
}

// Settings returns a copy of the current settings.
func (s *EngineSection) Settings() EngineSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisecondsHook treats bare numbers destined for a duration as
// milliseconds.
func millisecondsHook(from, to reflect.Type, data any) (any, error) {
	if to != durationType || from == durationType {
		return data, nil
	}
	switch v := data.(type) {
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	}
	return data, nil
}

func decodeEngine(data map[string]any, out *EngineSettings) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			millisecondsHook,
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create engine decoder: %w", err)
	}
	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("failed to decode engine section: %w", err)
	}
	return nil
}
