package config

import (
	"fmt"
	"sync"
	"time"
)

const (
	// SectionIDPanel is the identifier for the panel settings section
	SectionIDPanel = "panel"

	// Default values for panel settings
	defaultMouseHold     = 1500 * time.Millisecond
	defaultStatusTimeout = 3 * time.Second
	defaultKeepErrors    = false
	defaultShowFullHelp  = false
)

// PanelSection manages the suggestion panel's behavior.
type PanelSection struct {
	// MouseHold is how long terminal mouse activity keeps the hover alive.
	MouseHold time.Duration `json:"mouse_hold"`

	// StatusTimeout clears the status line after a message; zero keeps it.
	StatusTimeout time.Duration `json:"status_timeout"`
	KeepErrors    bool          `json:"keep_errors"`
	ShowFullHelp  bool          `json:"show_full_help"`
	mu            sync.RWMutex
}

// PanelSettings is a plain copy of PanelSection.
type PanelSettings struct {
	MouseHold     time.Duration
	StatusTimeout time.Duration
	KeepErrors    bool
	ShowFullHelp  bool
}

// NewPanelSection creates a new panel section with default settings.
func NewPanelSection() *PanelSection {
	return &PanelSection{
		MouseHold:     defaultMouseHold,
		StatusTimeout: defaultStatusTimeout,
		KeepErrors:    defaultKeepErrors,
		ShowFullHelp:  defaultShowFullHelp,
	}
}

// ID returns the section identifier.
func (s *PanelSection) ID() string {
	return SectionIDPanel
}

// Title returns the section title.
func (s *PanelSection) Title() string {
	return "Panel Settings"
}

// Description returns the section description.
func (s *PanelSection) Description() string {
	return "Configure the suggestion panel: mouse hold, status line timeout and help display."
}

// Data returns the current configuration data.
func (s *PanelSection) Data() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"mouse_hold":     s.MouseHold.String(),
		"status_timeout": s.StatusTimeout.String(),
		"keep_errors":    s.KeepErrors,
		"show_full_help": s.ShowFullHelp,
	}
}

// SetData updates the configuration from the provided data.
func (s *PanelSection) SetData(data map[string]any) error {
	if data == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range data {
		switch key {
		case "mouse_hold", "status_timeout":
			d, err := parseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if key == "mouse_hold" {
				s.MouseHold = d
			} else {
				s.StatusTimeout = d
			}

		case "keep_errors", "show_full_help":
			enabled, ok := value.(bool)
			if !ok {
				return fmt.Errorf("invalid value type for %s: expected bool, got %T", key, value)
			}
			if key == "keep_errors" {
				s.KeepErrors = enabled
			} else {
				s.ShowFullHelp = enabled
			}

		default:
			// Ignore unknown keys for forward compatibility
			continue
		}
	}

	return nil
}

// Validate validates the current configuration.
func (s *PanelSection) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.MouseHold < 100*time.Millisecond || s.MouseHold > 10*time.Second {
		return fmt.Errorf("mouse_hold must be between 100ms and 10s, got %v", s.MouseHold)
	}
	if s.StatusTimeout < 0 || s.StatusTimeout > time.Minute {
		return fmt.Errorf("status_timeout must be between 0 and 1m, got %v", s.StatusTimeout)
	}
	return nil
}

// Reset resets the section to default configuration.
func (s *PanelSection) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.MouseHold = defaultMouseHold
	s.StatusTimeout = defaultStatusTimeout
	s.KeepErrors = defaultKeepErrors
	s.ShowFullHelp = defaultShowFullHelp
}

// Snapshot returns the current values.
func (s *PanelSection) Snapshot() PanelSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return PanelSettings{
		MouseHold:     s.MouseHold,
		StatusTimeout: s.StatusTimeout,
		KeepErrors:    s.KeepErrors,
		ShowFullHelp:  s.ShowFullHelp,
	}
}
