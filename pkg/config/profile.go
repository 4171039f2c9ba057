package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes one site: how to find entities in its DOM, which
// locations are listings and details, and where its composer lives.
type Profile struct {
	Name     string `yaml:"name"`
	StartURL string `yaml:"start_url"`

	EntitySelector     string `yaml:"entity_selector"`
	TextSelector       string `yaml:"text_selector"`
	HighlightClass     string `yaml:"highlight_class"`
	DetailLinkSelector string `yaml:"detail_link_selector"`
	ExcludedSelector   string `yaml:"excluded_selector"`

	// ModifierKey is a KeyboardEvent.key value. ModifierSide is left,
	// right or any.
	ModifierKey  string `yaml:"modifier_key"`
	ModifierSide string `yaml:"modifier_side"`

	DetailPatterns   []string `yaml:"detail_patterns"`
	ListingPatterns  []string `yaml:"listing_patterns"`
	ComposerPatterns []string `yaml:"composer_patterns"`

	ExpandSelectors   []string `yaml:"expand_selectors"`
	ComposerSelectors []string `yaml:"composer_selectors"`
	SubmitSelectors   []string `yaml:"submit_selectors"`

	ContentSelector string `yaml:"content_selector"`
	MinContent      int    `yaml:"min_content"`
}

// DefaultProfile targets an X/Twitter-style feed.
func DefaultProfile() *Profile {
	return &Profile{
		Name:               "x",
		StartURL:           "https://x.com/home",
		EntitySelector:     `article[data-testid="tweet"]`,
		TextSelector:       `[data-testid="tweetText"]`,
		HighlightClass:     "hoverpilot-highlight",
		DetailLinkSelector: `a[href*="/status/"]:has(time)`,
		ExcludedSelector: strings.Join([]string{
			`[data-testid="reply"]`,
			`[data-testid="retweet"]`,
			`[data-testid="like"]`,
			`[data-testid="bookmark"]`,
			`[data-testid="caret"]`,
			`[data-testid="User-Name"] a`,
			`[data-testid="tweetPhoto"]`,
			`[role="menu"]`,
		}, ", "),
		ModifierKey:       "Control",
		ModifierSide:      "any",
		DetailPatterns:    []string{"/*/status/*", "/*/status/*/**"},
		ListingPatterns:   []string{"/home", "/explore", "/search", "/notifications", "/i/lists/*", "/*"},
		ComposerPatterns:  []string{"/*/status/*", "/compose/post"},
		ExpandSelectors:   []string{`[data-testid="tweetTextarea_0_label"]`, `[data-testid="tweetTextarea_0RichTextInputContainer"]`},
		ComposerSelectors: []string{`[data-testid="tweetTextarea_0"]`, `div[role="textbox"][contenteditable="true"]`},
		SubmitSelectors:   []string{`[data-testid="tweetButtonInline"]`, `[data-testid="tweetButton"]`},
		ContentSelector:   `article[data-testid="tweet"]`,
		MinContent:        3,
	}
}

// LoadProfile reads a YAML profile. Fields the file omits keep the
// default profile's values.
func LoadProfile(path string) (*Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	return ParseProfile(raw)
}

// ParseProfile decodes YAML over the default profile and validates it.
func ParseProfile(raw []byte) (*Profile, error) {
	p := DefaultProfile()
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the fields the engine cannot run without.
func (p *Profile) Validate() error {
	var errs []error
	if strings.TrimSpace(p.EntitySelector) == "" {
		errs = append(errs, errors.New("entity_selector is required"))
	}
	if strings.TrimSpace(p.TextSelector) == "" {
		errs = append(errs, errors.New("text_selector is required"))
	}
	if p.ModifierKey == "" {
		errs = append(errs, errors.New("modifier_key is required"))
	}
	switch p.ModifierSide {
	case "", "any", "left", "right":
	default:
		errs = append(errs, fmt.Errorf("modifier_side %q must be left, right or any", p.ModifierSide))
	}
	if p.MinContent < 0 {
		errs = append(errs, errors.New("min_content must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid profile: %w", errors.Join(errs...))
	}
	return nil
}

// Marshal renders the profile as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	return yaml.Marshal(p)
}
