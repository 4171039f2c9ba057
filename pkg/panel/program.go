package panel

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/hoverpilot/pkg/types"
)

// Run shows the panel until the user quits or ctx is done. Engine events
// read from events are forwarded to the model.
func Run(ctx context.Context, m *Model, events <-chan types.Event) error {
	program := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				program.Send(ev)
			}
		}
	}()

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run panel: %w", err)
	}
	return nil
}
