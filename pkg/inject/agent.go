package inject

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/entrhq/hoverpilot/pkg/keys"
	"github.com/entrhq/hoverpilot/pkg/types"
)

//go:embed agent.js
var agentScript string

// AgentScript returns the installer evaluated in every embedded context.
// It takes an AgentConfig and returns an InstallResult.
func AgentScript() string {
	return agentScript
}

// DefaultConsolePrefix marks clipboard requests on the console channel.
const DefaultConsolePrefix = "__hoverpilot:paste:"

// AgentConfig is passed to the agent on every installation. A repeated
// installation only swaps the configuration.
type AgentConfig struct {
	Role                types.SourceContext `json:"role"`
	EntitySelector      string              `json:"entitySelector"`
	TextSelector        string              `json:"textSelector"`
	HighlightClass      string              `json:"highlightClass"`
	MinTextLength       int                 `json:"minTextLength"`
	ModifierKey         string              `json:"modifierKey"`
	ModifierLocation    keys.Location       `json:"modifierLocation"`
	InterceptNavigation bool                `json:"interceptNavigation"`

	// DetailPatterns and ListingPatterns are anchored regular expressions
	// matched against location paths.
	DetailPatterns  []string `json:"detailPatterns"`
	ListingPatterns []string `json:"listingPatterns"`

	ExcludedSelector   string `json:"excludedSelector"`
	DetailLinkSelector string `json:"detailLinkSelector"`
	PasteTimeoutMs     int64  `json:"pasteTimeoutMs"`
	ConsolePrefix      string `json:"consolePrefix"`
	HoverGraceMs       int64  `json:"hoverGraceMs"`
}

// Validate checks the fields the agent cannot run without.
func (c AgentConfig) Validate() error {
	if c.EntitySelector == "" {
		return fmt.Errorf("entity selector is required")
	}
	if c.TextSelector == "" {
		return fmt.Errorf("text selector is required")
	}
	if c.ModifierKey == "" {
		return fmt.Errorf("modifier key is required")
	}
	if c.MinTextLength < 1 {
		return fmt.Errorf("minimum text length must be positive")
	}
	if c.PasteTimeoutMs <= 0 {
		return fmt.Errorf("paste timeout must be positive")
	}
	if c.ConsolePrefix == "" {
		return fmt.Errorf("console prefix is required")
	}
	return nil
}

// ForRole returns a copy of c for the given context. Only the primary
// context intercepts navigation.
func (c AgentConfig) ForRole(role types.SourceContext) AgentConfig {
	out := c
	out.Role = role
	out.InterceptNavigation = c.InterceptNavigation && role == types.SourcePrimary
	out.DetailPatterns = append([]string(nil), c.DetailPatterns...)
	out.ListingPatterns = append([]string(nil), c.ListingPatterns...)
	return out
}

// WithTimings sets the millisecond fields from durations.
func (c AgentConfig) WithTimings(pasteTimeout, hoverGrace time.Duration) AgentConfig {
	c.PasteTimeoutMs = pasteTimeout.Milliseconds()
	c.HoverGraceMs = hoverGrace.Milliseconds()
	return c
}

// InstallResult is returned by the agent installer.
type InstallResult struct {
	// Installed is false when the agent was already present.
	Installed bool `json:"installed"`

	// Listeners is the number of DOM listeners the agent holds.
	Listeners int `json:"listeners"`
}
