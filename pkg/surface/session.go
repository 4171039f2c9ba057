package surface

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/playwright-community/playwright-go"
)

const (
	// DefaultViewportWidth is the default browser viewport width in pixels.
	DefaultViewportWidth = 1280

	// DefaultViewportHeight is the default browser viewport height in pixels.
	DefaultViewportHeight = 900

	// DefaultTimeout is the default page operation timeout in milliseconds.
	DefaultTimeout = 30000
)

// SessionOptions configures the browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// UserDataDir keeps cookies and storage between runs when set.
	UserDataDir string

	// Width and Height set the viewport size.
	Width  int
	Height int

	// Timeout sets the default timeout for page operations in milliseconds.
	Timeout float64
}

// SessionManager owns the browser, its shared context, the primary page and
// at most one secondary page.
type SessionManager struct {
	mu          sync.RWMutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	primary     *PageContext
	secondary   *PageContext
	opts        SessionOptions
	initialized bool
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Initialize installs and starts Playwright.
// This must be called before Launch.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	// Discard driver output so it does not interfere with the terminal panel
	opts := &playwright.RunOptions{
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
		Browsers: []string{"chromium"},
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.initialized = true
	return nil
}

// Launch starts Chromium and opens the primary page at startURL.
func (m *SessionManager) Launch(ctx context.Context, startURL string, opts SessionOptions) (*PageContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, fmt.Errorf("session manager not initialized")
	}
	if m.primary != nil {
		return nil, fmt.Errorf("session already launched")
	}

	if opts.Width == 0 {
		opts.Width = DefaultViewportWidth
	}
	if opts.Height == 0 {
		opts.Height = DefaultViewportHeight
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	m.opts = opts

	viewport := &playwright.Size{Width: opts.Width, Height: opts.Height}

	var page playwright.Page
	if opts.UserDataDir != "" {
		bctx, err := m.playwright.Chromium.LaunchPersistentContext(opts.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(opts.Headless),
			Viewport: viewport,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch persistent context: %w", err)
		}
		m.context = bctx

		if pages := bctx.Pages(); len(pages) > 0 {
			page = pages[0]
		}
	} else {
		browser, err := m.playwright.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{Viewport: viewport})
		if err != nil {
			browser.Close()
			return nil, fmt.Errorf("failed to create context: %w", err)
		}
		m.browser = browser
		m.context = bctx
	}

	if page == nil {
		var err error
		page, err = m.context.NewPage()
		if err != nil {
			m.closeLocked()
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
	}
	page.SetDefaultTimeout(opts.Timeout)

	m.primary = NewPageContext(page, types.SourcePrimary)

	if startURL != "" {
		if err := m.primary.Navigate(ctx, startURL); err != nil {
			return m.primary, err
		}
	}
	return m.primary, nil
}

// Primary returns the primary page context, or nil before Launch.
func (m *SessionManager) Primary() *PageContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Secondary returns the open secondary page context, or nil.
func (m *SessionManager) Secondary() *PageContext {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.secondary != nil && m.secondary.Closed() {
		return nil
	}
	return m.secondary
}

// OpenSecondary loads url in the secondary page, creating it in the shared
// browser context when absent. The returned context is new whenever a
// fresh page had to be created.
func (m *SessionManager) OpenSecondary(ctx context.Context, url string) (*PageContext, error) {
	m.mu.Lock()
	if m.context == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("session not launched")
	}

	sec := m.secondary
	if sec == nil || sec.Closed() {
		page, err := m.context.NewPage()
		if err != nil {
			m.mu.Unlock()
			return nil, fmt.Errorf("failed to create secondary page: %w", err)
		}
		page.SetDefaultTimeout(m.opts.Timeout)
		sec = NewPageContext(page, types.SourceSecondary)
		m.secondary = sec
	}
	m.mu.Unlock()

	if err := sec.Navigate(ctx, url); err != nil {
		return sec, err
	}
	return sec, nil
}

// CloseSecondary closes the secondary page if one is open.
func (m *SessionManager) CloseSecondary() error {
	m.mu.Lock()
	sec := m.secondary
	m.secondary = nil
	m.mu.Unlock()

	if sec == nil {
		return nil
	}
	if err := sec.Close(); err != nil {
		return fmt.Errorf("failed to close secondary page: %w", err)
	}
	return nil
}

// Shutdown closes every page and stops Playwright.
func (m *SessionManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()

	if m.initialized && m.playwright != nil {
		if err := m.playwright.Stop(); err != nil {
			return fmt.Errorf("failed to stop playwright: %w", err)
		}
		m.initialized = false
	}
	return nil
}

func (m *SessionManager) closeLocked() {
	if m.secondary != nil {
		_ = m.secondary.Close() // Ignore errors, continue cleanup
		m.secondary = nil
	}
	if m.primary != nil {
		_ = m.primary.Close()
		m.primary = nil
	}
	if m.context != nil {
		_ = m.context.Close()
		m.context = nil
	}
	if m.browser != nil {
		_ = m.browser.Close()
		m.browser = nil
	}
}
