package surface

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/mitchellh/mapstructure"
)

// ErrContextClosed is returned when a context was destroyed before or during a call.
var ErrContextClosed = errors.New("embedded context closed")

// PointerKind is a low-level pointer action.
type PointerKind string

const (
	PointerMove PointerKind = "move" // PointerMove moves the pointer.
	PointerDown PointerKind = "down" // PointerDown presses the primary button.
	PointerUp   PointerKind = "up"   // PointerUp releases the primary button.
)

// Context is an embedded document reachable only through script injection.
type Context interface {
	// ID identifies the underlying handle. A replaced document gets a new ID.
	ID() string

	// Role reports whether this is the primary or secondary context.
	Role() types.SourceContext

	// Evaluate runs a JavaScript function expression with arg and returns
	// its JSON-compatible result.
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	// Navigate loads url in the context.
	Navigate(ctx context.Context, url string) error

	// URL returns the current location.
	URL() string

	// OnLoad subscribes to load completion.
	OnLoad(fn func()) (unsubscribe func())

	// OnNavigated subscribes to main-frame navigations, including
	// same-document history changes.
	OnNavigated(fn func(url string)) (unsubscribe func())

	// OnConsole subscribes to console output.
	OnConsole(fn func(text string)) (unsubscribe func())

	// Closed reports whether the context has been destroyed.
	Closed() bool
}

// PointerInjector delivers host-privileged pointer input at viewport coordinates.
type PointerInjector interface {
	SendPointerEvent(ctx context.Context, kind PointerKind, x, y float64) error
}

// Decode converts an Evaluate result into out, matching json tags.
func Decode(result any, out any) error {
	if result == nil {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(result); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// EvaluateInto runs script on c and decodes the result into out.
func EvaluateInto(ctx context.Context, c Context, script string, arg any, out any) error {
	result, err := c.Evaluate(ctx, script, arg)
	if err != nil {
		return err
	}
	return Decode(result, out)
}

// EvaluateBool runs script on c and interprets the result as a boolean.
func EvaluateBool(ctx context.Context, c Context, script string, arg any) (bool, error) {
	result, err := c.Evaluate(ctx, script, arg)
	if err != nil {
		return false, err
	}
	b, _ := result.(bool)
	return b, nil
}
