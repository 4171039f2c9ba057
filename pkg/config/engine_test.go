package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineSection_Defaults(t *testing.T) {
	s := NewEngineSection()
	settings := s.Settings()

	assert.Equal(t, 50*time.Millisecond, settings.PollInterval)
	assert.Equal(t, 2*time.Second, settings.HealthInterval)
	assert.Equal(t, 2*time.Second, settings.PasteTimeout)
	assert.Equal(t, 18, settings.FocusAttempts)
	assert.Equal(t, 300*time.Millisecond, settings.FocusDelay)
	assert.Equal(t, 5, settings.MinTextLength)
	assert.NoError(t, s.Validate())
}

func TestEngineSection_SetData(t *testing.T) {
	tests := []struct {
		name   string
		data   map[string]any
		check  func(t *testing.T, got EngineSettings)
		hasErr bool
	}{
		{
			name: "duration strings",
			data: map[string]any{"poll_interval": "75ms", "scroll_budget": "10s"},
			check: func(t *testing.T, got EngineSettings) {
				assert.Equal(t, 75*time.Millisecond, got.PollInterval)
				assert.Equal(t, 10*time.Second, got.ScrollBudget)
			},
		},
		{
			name: "bare numbers are milliseconds",
			data: map[string]any{"paste_timeout": float64(1500), "hover_grace": 200},
			check: func(t *testing.T, got EngineSettings) {
				assert.Equal(t, 1500*time.Millisecond, got.PasteTimeout)
				assert.Equal(t, 200*time.Millisecond, got.HoverGrace)
			},
		},
		{
			name: "json numbers and weak typing",
			data: map[string]any{"focus_attempts": float64(5), "suggestions": "4", "auto_submit": "true"},
			check: func(t *testing.T, got EngineSettings) {
				assert.Equal(t, 5, got.FocusAttempts)
				assert.Equal(t, 4, got.Suggestions)
				assert.True(t, got.AutoSubmit)
			},
		},
		{
			name: "untouched keys keep values",
			data: map[string]any{"min_text_length": float64(8)},
			check: func(t *testing.T, got EngineSettings) {
				assert.Equal(t, 8, got.MinTextLength)
				assert.Equal(t, 50*time.Millisecond, got.PollInterval)
			},
		},
		{name: "invalid duration", data: map[string]any{"poll_interval": "soon"}, hasErr: true},
		{name: "fails validation", data: map[string]any{"poll_interval": "0s"}, hasErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewEngineSection()
			err := s.SetData(tt.data)
			if tt.hasErr {
				require.Error(t, err)
				assert.Equal(t, DefaultEngineSettings(), s.Settings(), "failed update leaves settings unchanged")
				return
			}
			require.NoError(t, err)
			tt.check(t, s.Settings())
		})
	}
}

func TestEngineSection_DataRoundTrip(t *testing.T) {
	s := NewEngineSection()
	require.NoError(t, s.SetData(map[string]any{"focus_delay": "250ms", "auto_submit": true}))

	data := s.Data()
	assert.Equal(t, "250ms", data["focus_delay"])
	assert.Equal(t, "50ms", data["poll_interval"])
	assert.Equal(t, true, data["auto_submit"])

	other := NewEngineSection()
	require.NoError(t, other.SetData(data))
	assert.Equal(t, s.Settings(), other.Settings())
}

func TestEngineSection_Reset(t *testing.T) {
	s := NewEngineSection()
	require.NoError(t, s.SetData(map[string]any{"suggestions": 5}))
	s.Reset()
	assert.Equal(t, DefaultEngineSettings(), s.Settings())
}
