// Package panel is the terminal suggestion panel. It shows the active hover,
// the generated replies and the engine status, and turns keystrokes into
// engine actions.
package panel

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/hoverpilot/pkg/clipboard"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// Actions are the engine operations the panel can trigger.
type Actions interface {
	// Compose writes text into the composer of the best context,
	// optionally attaching the clipboard and submitting.
	Compose(ctx context.Context, text string, pasteImage, submit bool) error

	// Regenerate requests fresh suggestions with a custom instruction.
	Regenerate(ctx context.Context, instruction string) error

	// Clear drops the active hover.
	Clear()

	// ToggleHold flips the host modifier and returns the new value.
	ToggleHold() bool

	// CloseSecondary tears down the split panel.
	CloseSecondary(ctx context.Context) error
}

// Config configures a Model.
type Config struct {
	Context    context.Context
	State      *State
	Actions    Actions
	Clipboard  clipboard.Provider
	AutoSubmit bool
	Profile    string

	// StatusTimeout clears the status line after a message; zero keeps it.
	// KeepErrors exempts failures.
	StatusTimeout time.Duration
	KeepErrors    bool
	FullHelp      bool
}

// actionResultMsg reports an engine action started from a key. done is
// shown on success when set.
type actionResultMsg struct {
	action string
	done   string
	err    error
}

// clearStatusMsg clears the status line unless a newer message replaced it.
type clearStatusMsg struct {
	seq int
}

// Model is the bubbletea model of the panel.
type Model struct {
	ctx       context.Context
	state     *State
	actions   Actions
	clipboard clipboard.Provider
	keys      KeyMap
	profile   string

	input   textinput.Model
	spinner spinner.Model
	help    help.Model

	hover       *types.MergedHoverState
	text        string
	suggestions []string
	selected    int
	loading     bool
	genErr      error

	held         bool
	secondaryURL string
	pasteImage   bool
	autoSubmit   bool
	busy         bool

	status        string
	statusErr     bool
	statusSeq     int
	statusTimeout time.Duration
	keepErrors    bool

	width  int
	height int
}

// New creates the panel model.
func New(cfg Config) *Model {
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	state := cfg.State
	if state == nil {
		state = NewState()
	}

	input := textinput.New()
	input.Placeholder = "e.g. more playful, ask a question"
	input.Prompt = "› "
	input.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = okStyle

	h := help.New()
	h.ShowAll = cfg.FullHelp

	return &Model{
		ctx:           ctx,
		state:         state,
		actions:       cfg.Actions,
		clipboard:     cfg.Clipboard,
		keys:          DefaultKeyMap(),
		profile:       cfg.Profile,
		input:         input,
		spinner:       sp,
		help:          h,
		autoSubmit:    cfg.AutoSubmit,
		statusTimeout: cfg.StatusTimeout,
		keepErrors:    cfg.KeepErrors,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.input.Width = max(10, msg.Width-8)
		return m, nil

	case tea.MouseMsg:
		m.state.TouchMouse()
		return m, nil

	case types.Event:
		return m, m.handleEvent(msg)

	case actionResultMsg:
		m.busy = false
		if msg.err != nil {
			return m, m.setStatus(msg.action+" failed: "+msg.err.Error(), true)
		}
		if msg.done != "" {
			return m, m.setStatus(msg.done, false)
		}
		return m, nil

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status, m.statusErr = "", false
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.input.Focused() {
			return m, m.handleInputKey(msg)
		}
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleEvent(ev types.Event) tea.Cmd {
	switch ev.Type {
	case types.EventTypeActiveHover:
		m.hover = ev.Hover
		m.text = ev.Text
		m.suggestions = nil
		m.selected = 0
		m.genErr = nil
		m.loading = false
		if !m.input.Focused() {
			m.input.SetValue(m.state.Instruction())
		}

	case types.EventTypeHoverCleared:
		m.hover = nil
		m.text = ""
		m.suggestions = nil
		m.selected = 0
		m.genErr = nil
		m.loading = false

	case types.EventTypeSuggestionsStart:
		if ev.Text == m.text {
			m.loading = true
			m.genErr = nil
			return m.spinner.Tick
		}

	case types.EventTypeSuggestions:
		if ev.Text == m.text {
			m.loading = false
			m.suggestions = ev.Suggestions
			m.selected = 0
		}

	case types.EventTypeSuggestionsError:
		if ev.Text == m.text {
			m.loading = false
			m.genErr = ev.Error
		}

	case types.EventTypeSecondaryOpened:
		m.secondaryURL = ev.URL

	case types.EventTypeSecondaryClosed:
		m.secondaryURL = ""

	case types.EventTypeComposeDone:
		if ev.Error != nil {
			return m.setStatus("reply failed: "+ev.Error.Error(), true)
		}
		return m.setStatus("reply inserted", false)

	case types.EventTypeHeldChanged:
		m.held = ev.Held
	}
	return nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		instruction := m.input.Value()
		m.state.SetInstruction(instruction)
		m.stopEditing()
		if m.text == "" || m.actions == nil {
			return nil
		}
		ctx := m.ctx
		return func() tea.Msg {
			return actionResultMsg{action: "regenerate", err: m.actions.Regenerate(ctx, instruction)}
		}
	case tea.KeyEsc:
		m.input.SetValue(m.state.Instruction())
		m.stopEditing()
		return nil
	case tea.KeyCtrlC:
		return tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) stopEditing() {
	m.input.Blur()
	m.state.SetEditing(false)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.suggestions)-1 {
			m.selected++
		}

	case key.Matches(msg, m.keys.Compose):
		return m.compose()

	case key.Matches(msg, m.keys.Copy):
		return m.copySelected()

	case key.Matches(msg, m.keys.Pin):
		if m.state.TogglePin() {
			return m.setStatus("pinned", false)
		}
		return m.setStatus("unpinned", false)

	case key.Matches(msg, m.keys.Hold):
		if m.actions != nil {
			m.held = m.actions.ToggleHold()
		}

	case key.Matches(msg, m.keys.Instruction):
		m.state.SetEditing(true)
		return m.input.Focus()

	case key.Matches(msg, m.keys.Regenerate):
		if m.text == "" || m.actions == nil {
			return nil
		}
		ctx, instruction := m.ctx, m.state.Instruction()
		return func() tea.Msg {
			return actionResultMsg{action: "regenerate", err: m.actions.Regenerate(ctx, instruction)}
		}

	case key.Matches(msg, m.keys.PasteImage):
		m.pasteImage = !m.pasteImage

	case key.Matches(msg, m.keys.AutoSubmit):
		m.autoSubmit = !m.autoSubmit

	case key.Matches(msg, m.keys.CloseSplit):
		if m.secondaryURL == "" || m.actions == nil {
			return nil
		}
		ctx := m.ctx
		return func() tea.Msg {
			return actionResultMsg{action: "close split", done: "split closed", err: m.actions.CloseSecondary(ctx)}
		}

	case key.Matches(msg, m.keys.Clear):
		if m.actions != nil {
			m.actions.Clear()
		}
	}
	return nil
}

func (m *Model) compose() tea.Cmd {
	text, ok := m.Selected()
	if !ok || m.actions == nil || m.busy {
		return nil
	}
	m.busy = true
	m.statusSeq++
	m.status, m.statusErr = "writing reply…", false

	ctx, paste, submit := m.ctx, m.pasteImage, m.autoSubmit
	return func() tea.Msg {
		return actionResultMsg{action: "reply", done: "reply inserted", err: m.actions.Compose(ctx, text, paste, submit)}
	}
}

func (m *Model) copySelected() tea.Cmd {
	text, ok := m.Selected()
	if !ok || m.clipboard == nil {
		return nil
	}
	if err := m.clipboard.WriteText(text); err != nil {
		return m.setStatus("copy failed: "+err.Error(), true)
	}
	return m.setStatus("copied to clipboard", false)
}

// setStatus shows s and returns the command that clears it later, if any.
func (m *Model) setStatus(s string, isErr bool) tea.Cmd {
	m.statusSeq++
	m.status = s
	m.statusErr = isErr

	if m.statusTimeout <= 0 || (isErr && m.keepErrors) {
		return nil
	}
	seq := m.statusSeq
	return tea.Tick(m.statusTimeout, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// Selected returns the highlighted suggestion.
func (m *Model) Selected() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.suggestions) {
		return "", false
	}
	return m.suggestions[m.selected], true
}
