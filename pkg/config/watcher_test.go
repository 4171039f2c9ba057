package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileWatcher_ReloadsOnWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("filesystem watcher test")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: first\n"), 0o600))

	changes := make(chan *Profile, 4)
	w, err := NewProfileWatcher(path, 20*time.Millisecond, func(p *Profile) { changes <- p }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	// Invalid content is skipped.
	require.NoError(t, os.WriteFile(path, []byte("entity_selector: ''\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: second\n"), 0o600))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-changes:
			assert.NotEmpty(t, p.EntitySelector, "invalid profiles are never delivered")
			if p.Name == "second" {
				return
			}
		case <-deadline:
			t.Fatal("profile change not observed")
		}
	}
}

func TestNewProfileWatcher_MissingDirectory(t *testing.T) {
	_, err := NewProfileWatcher(filepath.Join(t.TempDir(), "nope", "profile.yaml"), 0, nil, nil)
	assert.Error(t, err)
}
