// Package focus delivers input focus to a composer that is rendered on
// demand by the embedded page.
//
// The composer may not exist yet (it mounts after a placeholder is
// expanded) and some rich-text editors ignore a plain DOM focus call. The
// Automator therefore expands, locates, clicks with synthetic events and
// focuses, and for host-controlled contexts repeats the click through real
// input injection. Every loop is bounded by an attempt count.
package focus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// ErrComposerNotFound is returned by Locate when no composer selector matches.
var ErrComposerNotFound = errors.New("composer not found")

const (
	DefaultMaxAttempts = 18
	DefaultRetryDelay  = 300 * time.Millisecond
	DefaultMountDelay  = 400 * time.Millisecond
	DefaultSettleDelay = 100 * time.Millisecond
)

// Options configures an Automator.
type Options struct {
	// ExpandSelectors match a collapsed placeholder, tried in order.
	ExpandSelectors []string

	// ComposerSelectors match the real composer, tried in order.
	ComposerSelectors []string

	// SubmitSelectors match the submit control, tried in order.
	SubmitSelectors []string

	MaxAttempts int
	RetryDelay  time.Duration

	// MountDelay is waited after an expansion click.
	MountDelay time.Duration

	// SettleDelay is waited after scrolling the composer into view.
	SettleDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.MountDelay <= 0 {
		o.MountDelay = DefaultMountDelay
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	return o
}

// Target is a located composer in viewport coordinates.
type Target struct {
	Selector string  `json:"selector"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// Automator focuses composers.
type Automator struct {
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
	logger *logging.Logger
}

// NewAutomator creates an Automator. Zero option values take the defaults.
func NewAutomator(opts Options, logger *logging.Logger) *Automator {
	return &Automator{
		opts:   opts.withDefaults(),
		sleep:  sleepContext,
		logger: logging.OrDiscard(logger),
	}
}

// Options returns the effective options.
func (a *Automator) Options() Options {
	return a.opts
}

// Focus locates the composer in c and focuses it, retrying until the
// attempt budget is spent. It reports whether focus was delivered and never
// fails: an absent composer may be transient UI state.
func (a *Automator) Focus(ctx context.Context, c surface.Context) bool {
	injector, _ := c.(surface.PointerInjector)

	for attempt := 1; attempt <= a.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil || c.Closed() {
			a.logger.Debugf("Composer focus stopped on attempt %d: context gone", attempt)
			return false
		}

		if a.expand(ctx, c) {
			if a.sleep(ctx, a.opts.MountDelay) != nil {
				return false
			}
		}

		target, err := a.Locate(ctx, c)
		if err == nil {
			if a.sleep(ctx, a.opts.SettleDelay) != nil {
				return false
			}
			if a.activate(ctx, c, target, injector) {
				a.logger.Debugf("Composer %q focused on attempt %d", target.Selector, attempt)
				return true
			}
		} else if !errors.Is(err, ErrComposerNotFound) {
			a.logger.Debugf("Composer lookup failed on attempt %d: %v", attempt, err)
		}

		if attempt < a.opts.MaxAttempts {
			if a.sleep(ctx, a.opts.RetryDelay) != nil {
				return false
			}
		}
	}

	a.logger.Infof("Giving up on composer focus in %s context after %d attempts", c.Role(), a.opts.MaxAttempts)
	return false
}

// Locate finds the first matching composer and scrolls it into view.
func (a *Automator) Locate(ctx context.Context, c surface.Context) (*Target, error) {
	if len(a.opts.ComposerSelectors) == 0 {
		return nil, ErrComposerNotFound
	}
	result, err := c.Evaluate(ctx, LocateScript, a.opts.ComposerSelectors)
	if err != nil {
		return nil, fmt.Errorf("failed to locate composer: %w", err)
	}
	if result == nil {
		return nil, ErrComposerNotFound
	}
	var target Target
	if err := surface.Decode(result, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

func (a *Automator) expand(ctx context.Context, c surface.Context) bool {
	if len(a.opts.ExpandSelectors) == 0 {
		return false
	}
	result, err := c.Evaluate(ctx, ExpandScript, a.opts.ExpandSelectors)
	if err != nil {
		a.logger.Debugf("Expand click failed: %v", err)
		return false
	}
	return result != nil
}

// activate runs the in-context tier first. Host-controlled contexts also get
// a real click through the input pipeline, as does any context whose
// synthetic focus did not stick.
func (a *Automator) activate(ctx context.Context, c surface.Context, target *Target, injector surface.PointerInjector) bool {
	focused, err := surface.EvaluateBool(ctx, c, ActivateScript, target.Selector)
	if err != nil {
		a.logger.Debugf("Synthetic focus failed: %v", err)
	}

	if injector == nil {
		return focused
	}
	if focused && c.Role() != types.SourceSecondary {
		return true
	}

	if err := a.realClick(ctx, injector, target.X, target.Y); err != nil {
		a.logger.Debugf("Pointer injection failed: %v", err)
		return focused
	}

	after, err := surface.EvaluateBool(ctx, c, FocusedScript, target.Selector)
	if err != nil {
		return focused
	}
	return after || focused
}

func (a *Automator) realClick(ctx context.Context, injector surface.PointerInjector, x, y float64) error {
	if err := injector.SendPointerEvent(ctx, surface.PointerMove, x, y); err != nil {
		return err
	}
	if err := injector.SendPointerEvent(ctx, surface.PointerDown, x, y); err != nil {
		return err
	}
	return injector.SendPointerEvent(ctx, surface.PointerUp, x, y)
}

// InsertText types text into the composer. The composer should already
// have focus.
func (a *Automator) InsertText(ctx context.Context, c surface.Context, text string) error {
	target, err := a.Locate(ctx, c)
	if err != nil {
		return err
	}
	ok, err := surface.EvaluateBool(ctx, c, InsertScript, map[string]string{
		"selector": target.Selector,
		"text":     text,
	})
	if err != nil {
		return fmt.Errorf("failed to insert text: %w", err)
	}
	if !ok {
		return ErrComposerNotFound
	}
	return nil
}

// Submit clicks the submit control. It returns an error when the control is
// missing or disabled.
func (a *Automator) Submit(ctx context.Context, c surface.Context) error {
	if len(a.opts.SubmitSelectors) == 0 {
		return fmt.Errorf("no submit selectors configured")
	}
	var res struct {
		Found   bool `json:"found"`
		Clicked bool `json:"clicked"`
	}
	if err := surface.EvaluateInto(ctx, c, SubmitScript, a.opts.SubmitSelectors, &res); err != nil {
		return fmt.Errorf("failed to submit: %w", err)
	}
	if !res.Found {
		return fmt.Errorf("submit control not found")
	}
	if !res.Clicked {
		return fmt.Errorf("submit control disabled")
	}
	return nil
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
