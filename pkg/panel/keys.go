package panel

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the panel keybindings.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Compose     key.Binding
	Copy        key.Binding
	Pin         key.Binding
	Hold        key.Binding
	Instruction key.Binding
	Regenerate  key.Binding
	PasteImage  key.Binding
	AutoSubmit  key.Binding
	CloseSplit  key.Binding
	Clear       key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Compose: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "reply"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin"),
		),
		Hold: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "hold modifier"),
		),
		Instruction: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "instruction"),
		),
		Regenerate: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "regenerate"),
		),
		PasteImage: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "attach clipboard"),
		),
		AutoSubmit: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "auto-submit"),
		),
		CloseSplit: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close split"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Compose, k.Copy, k.Instruction, k.Pin, k.Hold, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Compose, k.Copy},
		{k.Instruction, k.Regenerate, k.PasteImage, k.AutoSubmit},
		{k.Pin, k.Hold, k.CloseSplit, k.Clear, k.Quit},
	}
}
