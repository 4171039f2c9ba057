// Package navigation redirects detail-view navigations from the primary
// context into a secondary split panel.
package navigation

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/scroll"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/gobwas/glob"
)

// Rules decide which navigations open in the secondary panel. Patterns are
// path globs: '*' stays within one segment and '**' crosses segments.
type Rules struct {
	// DetailPatterns match target paths that open in the panel.
	DetailPatterns []string

	// ListingPatterns match the current paths that allow interception.
	ListingPatterns []string
}

// Opener loads a location in the secondary context.
type Opener interface {
	OpenSecondary(ctx context.Context, url string) error
}

// Router routes intercepted navigations.
type Router struct {
	mu      sync.RWMutex
	detail  []glob.Glob
	listing []glob.Glob
	opener  Opener
	scroll  *scroll.Store
	logger  *logging.Logger
}

// NewRouter compiles rules and returns a router that opens matches through opener.
func NewRouter(rules Rules, opener Opener, store *scroll.Store, logger *logging.Logger) (*Router, error) {
	r := &Router{
		opener: opener,
		scroll: store,
		logger: logging.OrDiscard(logger),
	}
	if err := r.SetRules(rules); err != nil {
		return nil, err
	}
	return r, nil
}

// SetRules replaces the routing rules.
func (r *Router) SetRules(rules Rules) error {
	detail, err := compile(rules.DetailPatterns)
	if err != nil {
		return fmt.Errorf("invalid detail pattern: %w", err)
	}
	listing, err := compile(rules.ListingPatterns)
	if err != nil {
		return fmt.Errorf("invalid listing pattern: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.detail = detail
	r.listing = listing
	return nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Matches reports whether intent targets a detail view from a listing page
// on the same site.
func (r *Router) Matches(intent types.NavigationIntent) bool {
	target, err := url.Parse(intent.Href)
	if err != nil || target.Path == "" {
		return false
	}
	from, err := url.Parse(intent.From)
	if err != nil {
		return false
	}
	if target.Host != "" && from.Host != "" && target.Host != from.Host {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return matchAny(r.detail, target.Path) && matchAny(r.listing, pathOrRoot(from.Path))
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func pathOrRoot(p string) string {
	if p == "" {
		return "/"
	}
	return p
}

// Route opens intent in the secondary context. The primary's scroll offset
// is saved first and restored once the panel is open, since the panel
// changes the layout. The primary already cancelled the click, so an intent
// the rules reject is replayed as a plain navigation there. Route reports
// whether the panel was used.
func (r *Router) Route(ctx context.Context, primary surface.Context, intent types.NavigationIntent) (bool, error) {
	if !r.Matches(intent) {
		r.logger.Debugf("Navigation to %s does not qualify, continuing in primary", intent.Href)
		if err := primary.Navigate(ctx, intent.Href); err != nil {
			return false, fmt.Errorf("failed to continue navigation: %w", err)
		}
		return false, nil
	}

	key := scroll.LocationKey(intent.From)
	if r.scroll != nil {
		if _, err := r.scroll.Save(ctx, primary, key, intent.TriggerSelector); err != nil {
			r.logger.Debugf("Could not save scroll before opening panel: %v", err)
		}
	}

	r.logger.Infof("Opening %s in secondary panel", intent.Href)
	if err := r.opener.OpenSecondary(ctx, intent.Href); err != nil {
		return true, fmt.Errorf("failed to open secondary panel: %w", err)
	}

	if r.scroll != nil {
		if _, err := r.scroll.Restore(ctx, primary, key); err != nil {
			r.logger.Debugf("Could not restore scroll after opening panel: %v", err)
		}
	}
	return true, nil
}
