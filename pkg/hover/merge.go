package hover

import (
	"github.com/entrhq/hoverpilot/pkg/types"
)

// Reading is one context's HoverState observed during a polling tick.
type Reading struct {
	Source types.SourceContext
	State  types.HoverState
}

// Resolve re-applies the qualification rule on the host side. Markup is
// preferred over the context's own text when present. A state that does not
// qualify comes back with Text nil.
func Resolve(state types.HoverState, minLength int) types.HoverState {
	text := ""
	if state.Text != nil {
		text = *state.Text
	}
	if state.TextHTML != "" {
		if extracted, err := ExtractText(state.TextHTML); err == nil && extracted != "" {
			text = extracted
		}
	}

	if trimmed, ok := Qualify(text, minLength); ok && state.Text != nil {
		state.Text = &trimmed
	} else {
		state.Text = nil
	}
	return state
}

// Merge combines the host tracker and every context reading into one state.
//
// CtrlHeld is the logical OR of all trackers. Text, coordinates and Source
// come from the secondary context when it reports text, else from the
// primary. With no text anywhere the primary's pointer position is kept.
func Merge(hostHeld bool, readings []Reading) types.MergedHoverState {
	merged := types.MergedHoverState{CtrlHeld: hostHeld, Source: types.SourcePrimary}

	var primary, secondary *Reading
	for i := range readings {
		r := &readings[i]
		merged.CtrlHeld = merged.CtrlHeld || r.State.CtrlHeld
		switch r.Source {
		case types.SourcePrimary:
			primary = r
		case types.SourceSecondary:
			secondary = r
		}
	}

	switch {
	case secondary != nil && secondary.State.HasText():
		apply(&merged, secondary)
	case primary != nil && primary.State.HasText():
		apply(&merged, primary)
	case primary != nil:
		merged.X, merged.Y = primary.State.X, primary.State.Y
	}
	return merged
}

func apply(merged *types.MergedHoverState, r *Reading) {
	text := *r.State.Text
	merged.Text = &text
	merged.X, merged.Y = r.State.X, r.State.Y
	merged.Source = r.Source
}
