package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/entrhq/hoverpilot/pkg/logging"
)

// DefaultDebounce coalesces the bursts of events editors produce on save.
const DefaultDebounce = 150 * time.Millisecond

// ProfileWatcher reloads a profile file whenever it changes on disk.
type ProfileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func(*Profile)
	logger   *logging.Logger
}

// NewProfileWatcher watches path. The parent directory is watched so
// editors that save by rename are still seen. onChange receives only
// profiles that parsed and validated.
func NewProfileWatcher(path string, debounce time.Duration, onChange func(*Profile), logger *logging.Logger) (*ProfileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve profile path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &ProfileWatcher{
		path:     abs,
		watcher:  watcher,
		debounce: debounce,
		onChange: onChange,
		logger:   logging.OrDiscard(logger),
	}, nil
}

// Run processes events until ctx is done, then closes the watcher.
func (w *ProfileWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	var fire <-chan time.Time
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debugf("Profile event: %s", event)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Profile watcher error: %v", err)
		}
	}
}

func (w *ProfileWatcher) reload() {
	profile, err := LoadProfile(w.path)
	if err != nil {
		w.logger.Warnf("Ignoring profile change: %v", err)
		return
	}
	w.logger.Infof("Profile %s reloaded", profile.Name)
	if w.onChange != nil {
		w.onChange(profile)
	}
}

// Close stops the watcher.
func (w *ProfileWatcher) Close() error {
	return w.watcher.Close()
}
