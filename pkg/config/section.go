package config

// Section is one named group of settings persisted in the config file.
type Section interface {
	// ID is the key the section is stored under.
	ID() string

	Title() string
	Description() string

	// Data returns the section as plain values suitable for JSON.
	Data() map[string]any

	// SetData replaces settings present in data. Unknown keys are ignored.
	SetData(data map[string]any) error

	Validate() error

	// Reset restores defaults.
	Reset()
}
