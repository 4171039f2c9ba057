package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProfile_Valid(t *testing.T) {
	p := DefaultProfile()
	require.NoError(t, p.Validate())
	assert.NotEmpty(t, p.DetailPatterns)
	assert.NotEmpty(t, p.ListingPatterns)
	assert.Equal(t, p.EntitySelector, p.ContentSelector)
}

func TestParseProfile_OverlaysDefaults(t *testing.T) {
	p, err := ParseProfile([]byte(`
name: forum
entity_selector: .post
text_selector: .post-body
detail_patterns:
  - /t/*
listing_patterns:
  - /latest
`))
	require.NoError(t, err)

	assert.Equal(t, "forum", p.Name)
	assert.Equal(t, ".post", p.EntitySelector)
	assert.Equal(t, []string{"/t/*"}, p.DetailPatterns)
	assert.Equal(t, []string{"/latest"}, p.ListingPatterns)
	assert.Equal(t, DefaultProfile().ModifierKey, p.ModifierKey, "omitted fields keep defaults")
}

func TestParseProfile_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "entity_selector: [unclosed",
		"empty entity":  "entity_selector: ''",
		"bad side":      "modifier_side: middle",
		"neg content":   "min_content: -1",
		"empty textsel": "text_selector: '  '",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	raw, err := DefaultProfile().Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), p)

	_, err = LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
