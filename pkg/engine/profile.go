package engine

import (
	"fmt"
	"net/url"

	"github.com/gobwas/glob"

	"github.com/entrhq/hoverpilot/pkg/config"
	"github.com/entrhq/hoverpilot/pkg/focus"
	"github.com/entrhq/hoverpilot/pkg/inject"
	"github.com/entrhq/hoverpilot/pkg/keys"
	"github.com/entrhq/hoverpilot/pkg/navigation"
)

// AgentConfig builds the in-page agent configuration for a profile. Path
// globs are shipped as regular expressions so the page matches exactly what
// the router matches. Interception stays off when nothing can open the
// secondary panel.
func AgentConfig(p *config.Profile, s config.EngineSettings, canOpen bool) (inject.AgentConfig, error) {
	detail, err := navigation.PatternSources(p.DetailPatterns)
	if err != nil {
		return inject.AgentConfig{}, fmt.Errorf("invalid detail pattern: %w", err)
	}
	listing, err := navigation.PatternSources(p.ListingPatterns)
	if err != nil {
		return inject.AgentConfig{}, fmt.Errorf("invalid listing pattern: %w", err)
	}
	return inject.AgentConfig{
		EntitySelector:      p.EntitySelector,
		TextSelector:        p.TextSelector,
		HighlightClass:      p.HighlightClass,
		MinTextLength:       s.MinTextLength,
		ModifierKey:         p.ModifierKey,
		ModifierLocation:    modifierLocation(p.ModifierSide),
		InterceptNavigation: canOpen && len(detail) > 0 && len(listing) > 0,
		DetailPatterns:      detail,
		ListingPatterns:     listing,
		ExcludedSelector:    p.ExcludedSelector,
		DetailLinkSelector:  p.DetailLinkSelector,
		ConsolePrefix:       inject.DefaultConsolePrefix,
	}.WithTimings(s.PasteTimeout, s.HoverGrace), nil
}

func modifierLocation(side string) keys.Location {
	switch side {
	case "left":
		return keys.LocationLeft
	case "right":
		return keys.LocationRight
	default:
		return keys.LocationAny
	}
}

func focusOptions(p *config.Profile, s config.EngineSettings) focus.Options {
	return focus.Options{
		ExpandSelectors:   p.ExpandSelectors,
		ComposerSelectors: p.ComposerSelectors,
		SubmitSelectors:   p.SubmitSelectors,
		MaxAttempts:       s.FocusAttempts,
		RetryDelay:        s.FocusDelay,
	}
}

func navigationRules(p *config.Profile) navigation.Rules {
	return navigation.Rules{
		DetailPatterns:  p.DetailPatterns,
		ListingPatterns: p.ListingPatterns,
	}
}

// composerMatcher decides which locations carry a composer worth focusing.
type composerMatcher []glob.Glob

func newComposerMatcher(patterns []string) (composerMatcher, error) {
	out := make(composerMatcher, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid composer pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func (m composerMatcher) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, g := range m {
		if g.Match(path) {
			return true
		}
	}
	return false
}
