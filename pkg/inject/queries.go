package inject

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// ErrNotReady is returned when a query reaches a context without the agent.
var ErrNotReady = errors.New("agent not installed")

// Scripts evaluated against an installed agent.
const (
	ReadyScript          = `() => !!(window.__hoverpilotReady && window.__hoverpilot)`
	SnapshotScript       = `() => window.__hoverpilot ? window.__hoverpilot.snapshot() : null`
	SetHeldScript        = `(held) => window.__hoverpilot ? window.__hoverpilot.setHeld(held) : null`
	TakeNavigationScript = `() => window.__hoverpilot ? window.__hoverpilot.takeNavigation() : null`
	ResolvePasteScript   = `(resp) => window.__hoverpilot ? window.__hoverpilot.resolvePaste(resp) : false`
	PasteIntoScript      = `() => window.__hoverpilot ? window.__hoverpilot.pasteInto() : null`
	ListenerCountScript  = `() => window.__hoverpilot ? window.__hoverpilot.listenerCount() : 0`
	TeardownScript       = `() => { if (window.__hoverpilot) window.__hoverpilot.teardown(); return true; }`
)

// Snapshot reads the context's exported HoverState. It never mutates it.
func Snapshot(ctx context.Context, c surface.Context) (types.HoverState, error) {
	var state types.HoverState
	result, err := c.Evaluate(ctx, SnapshotScript, nil)
	if err != nil {
		return state, err
	}
	if result == nil {
		return state, ErrNotReady
	}
	if err := surface.Decode(result, &state); err != nil {
		return state, err
	}
	return state, nil
}

// PushHeld mirrors the host tracker into the context. It never touches the
// context's own key state, so a release pushed later always takes effect.
func PushHeld(ctx context.Context, c surface.Context, held bool) error {
	result, err := c.Evaluate(ctx, SetHeldScript, held)
	if err != nil {
		return err
	}
	if result == nil {
		return ErrNotReady
	}
	return nil
}

// TakeNavigation consumes the pending navigation intent, if any. A second
// call for the same intent returns nil.
func TakeNavigation(ctx context.Context, c surface.Context) (*types.NavigationIntent, error) {
	result, err := c.Evaluate(ctx, TakeNavigationScript, nil)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	var intent types.NavigationIntent
	if err := surface.Decode(result, &intent); err != nil {
		return nil, err
	}
	if intent.Href == "" {
		return nil, nil
	}
	return &intent, nil
}

// ResolvePaste delivers resp to the context's pending request table. It
// reports false when no request with that id is pending.
func ResolvePaste(ctx context.Context, c surface.Context, resp types.PasteResponse) (bool, error) {
	return surface.EvaluateBool(ctx, c, ResolvePasteScript, resp)
}

// PasteInto asks the context to paste clipboard contents into its focused
// element through the clipboard bridge and returns what was pasted.
func PasteInto(ctx context.Context, c surface.Context) (types.PasteKind, error) {
	result, err := c.Evaluate(ctx, PasteIntoScript, nil)
	if err != nil {
		return types.PasteKindNone, fmt.Errorf("paste failed: %w", err)
	}
	if result == nil {
		return types.PasteKindNone, ErrNotReady
	}
	kind, _ := result.(string)
	return types.PasteKind(kind), nil
}

// IsReady reports the context's ready flag.
func IsReady(ctx context.Context, c surface.Context) (bool, error) {
	return surface.EvaluateBool(ctx, c, ReadyScript, nil)
}

// AgentListeners returns the number of DOM listeners the agent holds.
func AgentListeners(ctx context.Context, c surface.Context) (int, error) {
	var n int
	if err := surface.EvaluateInto(ctx, c, ListenerCountScript, nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}
