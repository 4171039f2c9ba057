package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/hoverpilot/pkg/types"
)

// printEvents writes one line per engine event until ctx is done.
func printEvents(ctx context.Context, events <-chan types.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Println(formatEvent(ev))
		}
	}
}

func formatEvent(ev types.Event) string {
	switch ev.Type {
	case types.EventTypeActiveHover:
		source := ""
		if ev.Hover != nil {
			source = string(ev.Hover.Source)
		}
		return fmt.Sprintf("[hover:%s] %s", source, preview(ev.Text, 80))
	case types.EventTypeSuggestions:
		var b strings.Builder
		fmt.Fprintf(&b, "[suggestions] %s", preview(ev.Text, 40))
		for i, s := range ev.Suggestions {
			fmt.Fprintf(&b, "\n  %d. %s", i+1, s)
		}
		return b.String()
	case types.EventTypeSuggestionsError, types.EventTypeComposeDone:
		if ev.Error != nil {
			return fmt.Sprintf("[%s] error: %v", ev.Type, ev.Error)
		}
		return fmt.Sprintf("[%s] %s", ev.Type, preview(ev.Text, 40))
	case types.EventTypeSecondaryOpened:
		return fmt.Sprintf("[%s] %s", ev.Type, ev.URL)
	case types.EventTypeHeldChanged:
		return fmt.Sprintf("[%s] %t", ev.Type, ev.Held)
	default:
		return fmt.Sprintf("[%s]", ev.Type)
	}
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
