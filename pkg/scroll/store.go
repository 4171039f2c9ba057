// Package scroll saves and restores per-location scroll offsets in embedded
// contexts whose content is lazily rendered.
package scroll

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

const (
	DefaultTolerance   = 100.0
	DefaultStep        = 1200.0
	DefaultStuckChecks = 4
	DefaultStepDelay   = 150 * time.Millisecond
	DefaultBudget      = 15 * time.Second
	DefaultMinContent  = 3
)

// Options configures restoration.
type Options struct {
	// Tolerance is the distance from the target treated as arrival.
	Tolerance float64

	// Step is the largest single advance in pixels.
	Step float64

	// StuckChecks is how many consecutive unchanged positions end a restore.
	StuckChecks int

	// StepDelay is waited between advances so new content can render.
	StepDelay time.Duration

	// Budget bounds one restore, including the wait for content.
	Budget time.Duration

	// ContentSelector matches content items; restoration waits for
	// MinContent of them first. Empty skips the wait.
	ContentSelector string
	MinContent      int
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	if o.StuckChecks <= 0 {
		o.StuckChecks = DefaultStuckChecks
	}
	if o.StepDelay <= 0 {
		o.StepDelay = DefaultStepDelay
	}
	if o.Budget <= 0 {
		o.Budget = DefaultBudget
	}
	if o.MinContent <= 0 {
		o.MinContent = DefaultMinContent
	}
	return o
}

// Store keeps one ScrollRecord per location key for the session.
type Store struct {
	mu      sync.RWMutex
	records map[string]types.ScrollRecord
	opts    Options
	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	logger  *logging.Logger
}

// NewStore creates an empty store.
func NewStore(opts Options, logger *logging.Logger) *Store {
	return &Store{
		records: make(map[string]types.ScrollRecord),
		opts:    opts.withDefaults(),
		now:     time.Now,
		sleep:   sleepContext,
		logger:  logging.OrDiscard(logger),
	}
}

// LocationKey derives the key for a document location: its path without a
// trailing slash. Query and fragment do not change the key.
func LocationKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	if p := strings.TrimRight(u.Path, "/"); p != "" {
		return p
	}
	return "/"
}

// Put stores rec, replacing any record for its key.
func (s *Store) Put(rec types.ScrollRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.LocationKey] = rec
}

// Get returns the record for key.
func (s *Store) Get(key string) (types.ScrollRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Save measures what is scrolled around the element matched by
// triggerSelector and records it under key.
func (s *Store) Save(ctx context.Context, c surface.Context, key, triggerSelector string) (types.ScrollRecord, error) {
	var rec types.ScrollRecord
	if err := surface.EvaluateInto(ctx, c, measureScript, triggerSelector, &rec); err != nil {
		return rec, fmt.Errorf("failed to measure scroll: %w", err)
	}
	if rec.AnchorKind == "" {
		rec.AnchorKind = types.AnchorViewport
	}
	rec.LocationKey = key
	s.Put(rec)

	s.logger.Debugf("Saved scroll %s=%.0f (%s %s)", key, rec.Value, rec.AnchorKind, rec.ElementSelector)
	return rec, nil
}

// Restore scrolls c back to the record for key. It advances in bounded
// steps so virtualized content can render, and stops on arrival, when the
// position stops changing, or when the time budget runs out. It reports
// whether the position arrived within tolerance. A missing or zero record
// is a no-op.
func (s *Store) Restore(ctx context.Context, c surface.Context, key string) (bool, error) {
	rec, ok := s.Get(key)
	if !ok || rec.Value <= 0 {
		return false, nil
	}

	opts := s.options()
	rctx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	ok, err := s.restore(rctx, c, key, rec, opts)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		s.logger.Infof("Scroll restore for %s ran out of time waiting on the page", key)
		return false, nil
	}
	return ok, err
}

func (s *Store) restore(ctx context.Context, c surface.Context, key string, rec types.ScrollRecord, opts Options) (bool, error) {
	deadline := s.now().Add(opts.Budget)

	if err := s.waitForContent(ctx, c, deadline, opts); err != nil {
		return false, err
	}

	arg := map[string]any{
		"anchorKind": rec.AnchorKind,
		"selector":   rec.ElementSelector,
		"target":     rec.Value,
		"step":       opts.Step,
	}

	last := math.NaN()
	stuck := 0
	for s.now().Before(deadline) {
		result, err := c.Evaluate(ctx, stepScript, arg)
		if err != nil {
			return false, fmt.Errorf("failed to scroll: %w", err)
		}
		if result == nil {
			s.logger.Debugf("Scroll anchor %q for %s no longer exists", rec.ElementSelector, key)
			return false, nil
		}
		var pos struct {
			Top float64 `json:"top"`
		}
		if err := surface.Decode(result, &pos); err != nil {
			return false, err
		}

		if math.Abs(rec.Value-pos.Top) <= opts.Tolerance {
			s.logger.Debugf("Restored scroll %s to %.0f (target %.0f)", key, pos.Top, rec.Value)
			return true, nil
		}

		if !math.IsNaN(last) && math.Abs(pos.Top-last) < 1 {
			stuck++
			if stuck >= opts.StuckChecks {
				s.logger.Infof("Scroll restore for %s stuck at %.0f of %.0f", key, pos.Top, rec.Value)
				return false, nil
			}
		} else {
			stuck = 0
		}
		last = pos.Top

		if err := s.sleep(ctx, opts.StepDelay); err != nil {
			return false, err
		}
	}

	s.logger.Infof("Scroll restore for %s ran out of time at %.0f of %.0f", key, last, rec.Value)
	return false, nil
}

// SetContent replaces the content selector and minimum count waited for
// before restoring.
func (s *Store) SetContent(selector string, min int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.ContentSelector = selector
	if min > 0 {
		s.opts.MinContent = min
	}
}

func (s *Store) options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

func (s *Store) waitForContent(ctx context.Context, c surface.Context, deadline time.Time, opts Options) error {
	if opts.ContentSelector == "" {
		return nil
	}
	for {
		var count int
		if err := surface.EvaluateInto(ctx, c, contentCountScript, opts.ContentSelector, &count); err != nil {
			return fmt.Errorf("failed to count content: %w", err)
		}
		if count >= opts.MinContent {
			return nil
		}
		if !s.now().Before(deadline) {
			return nil
		}
		if err := s.sleep(ctx, opts.StepDelay); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
