package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobal(t *testing.T) {
	t.Helper()
	globalMu.Lock()
	globalManager = nil
	globalMu.Unlock()
	t.Cleanup(func() {
		globalMu.Lock()
		globalManager = nil
		globalMu.Unlock()
	})
}

func TestInitialize(t *testing.T) {
	resetGlobal(t)
	assert.False(t, IsInitialized())
	assert.Nil(t, GetLLM())
	assert.Equal(t, DefaultEngineSettings(), Engine())
	assert.Equal(t, NewPanelSection().Snapshot(), Panel())

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "version": "1",
  "sections": {
    "llm": {"model": "m", "fallback_model": "f", "timeout": "5s"},
    "engine": {"poll_interval": "40ms"},
    "panel": {"status_timeout": "0s", "keep_errors": true}
  }
}`), 0o600))

	require.NoError(t, Initialize(path))
	assert.True(t, IsInitialized())

	llm := GetLLM()
	require.NotNil(t, llm)
	assert.Equal(t, "m", llm.Snapshot().Model)
	assert.Equal(t, "f", llm.Snapshot().FallbackModel)
	assert.Equal(t, 5*time.Second, llm.Snapshot().Timeout)
	assert.Equal(t, 40*time.Millisecond, Engine().PollInterval)
	assert.Zero(t, Panel().StatusTimeout)
	assert.True(t, Panel().KeepErrors)
	assert.Equal(t, defaultMouseHold, Panel().MouseHold)
}

func TestInitialize_BadFile(t *testing.T) {
	resetGlobal(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sections": {"engine": {"poll_interval": "never"}}}`), 0o600))

	assert.Error(t, Initialize(path))
	assert.False(t, IsInitialized())
}

func TestGlobal_PanicsBeforeInitialize(t *testing.T) {
	resetGlobal(t)
	assert.Panics(t, func() { Global() })
}

func TestOpen_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	m, err := Open(path)
	require.NoError(t, err)
	section, ok := m.GetSection(SectionIDLLM)
	require.True(t, ok)
	llm := section.(*LLMSection)
	require.NoError(t, llm.SetData(map[string]any{"api_key": "secret", "timeout": float64(1500)}))
	require.NoError(t, m.SaveAll())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Open(path)
	require.NoError(t, err)
	section, _ = again.GetSection(SectionIDLLM)
	got := section.(*LLMSection).Snapshot()
	assert.Equal(t, "secret", got.APIKey)
	assert.Equal(t, 1500*time.Millisecond, got.Timeout)
}

func TestLLMSection_Validate(t *testing.T) {
	s := NewLLMSection()
	assert.NoError(t, s.Validate())
	assert.Error(t, s.SetData(map[string]any{"timeout": []string{"x"}}))

	s.Timeout = -time.Second
	assert.Error(t, s.Validate())
	s.Reset()
	assert.Equal(t, LLMSettings{}, s.Snapshot())
}
