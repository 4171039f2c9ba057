package engine

import (
	"context"

	"github.com/entrhq/hoverpilot/pkg/surface"
)

// Browser opens and closes the secondary context.
type Browser interface {
	OpenSecondary(ctx context.Context, url string) (surface.Context, error)
	CloseSecondary() error
}

// SessionBrowser adapts a surface.SessionManager to Browser.
type SessionBrowser struct {
	Session *surface.SessionManager
}

// OpenSecondary implements Browser.
func (b SessionBrowser) OpenSecondary(ctx context.Context, url string) (surface.Context, error) {
	page, err := b.Session.OpenSecondary(ctx, url)
	if page == nil {
		return nil, err
	}
	return page, err
}

// CloseSecondary implements Browser.
func (b SessionBrowser) CloseSecondary() error {
	return b.Session.CloseSecondary()
}
