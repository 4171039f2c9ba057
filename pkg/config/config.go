// Package config loads and persists settings: the backend section, the
// engine timings section and the YAML site profile.
package config

import (
	"sync"
)

var (
	globalManager *Manager
	globalMu      sync.Mutex
)

// Initialize opens the store at configPath (DefaultPath when empty),
// registers the built-in sections and loads them. Call once at startup.
func Initialize(configPath string) error {
	manager, err := Open(configPath)
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalManager = manager
	globalMu.Unlock()
	return nil
}

// Open builds a manager with the built-in sections loaded from the file
// at configPath.
func Open(configPath string) (*Manager, error) {
	store, err := NewFileStore(configPath)
	if err != nil {
		return nil, err
	}

	manager := NewManager(store)
	if err := manager.RegisterSection(NewLLMSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewEngineSection()); err != nil {
		return nil, err
	}
	if err := manager.RegisterSection(NewPanelSection()); err != nil {
		return nil, err
	}

	if err := manager.LoadAll(); err != nil {
		return nil, err
	}
	return manager, nil
}

// Global returns the global configuration manager.
// Panics if Initialize has not been called.
func Global() *Manager {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalManager == nil {
		panic("config not initialized: call config.Initialize first")
	}
	return globalManager
}

// IsInitialized reports whether Initialize has succeeded.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalManager != nil
}

// GetLLM returns the backend section, or nil before Initialize.
func GetLLM() *LLMSection {
	return sectionAs[*LLMSection](SectionIDLLM)
}

// GetEngine returns the engine section, or nil before Initialize.
func GetEngine() *EngineSection {
	return sectionAs[*EngineSection](SectionIDEngine)
}

// Engine returns the engine settings, or the defaults before Initialize.
func Engine() EngineSettings {
	if section := GetEngine(); section != nil {
		return section.Settings()
	}
	return DefaultEngineSettings()
}

// GetPanel returns the panel section, or nil before Initialize.
func GetPanel() *PanelSection {
	return sectionAs[*PanelSection](SectionIDPanel)
}

// Panel returns the panel settings, or the defaults before Initialize.
func Panel() PanelSettings {
	if section := GetPanel(); section != nil {
		return section.Snapshot()
	}
	return NewPanelSection().Snapshot()
}

func sectionAs[T Section](id string) T {
	var zero T
	if !IsInitialized() {
		return zero
	}
	section, ok := Global().GetSection(id)
	if !ok {
		return zero
	}
	typed, ok := section.(T)
	if !ok {
		return zero
	}
	return typed
}
