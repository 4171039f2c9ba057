package surface

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// PageContext adapts a playwright.Page to Context and PointerInjector.
//
// Playwright delivers page events on its connection goroutine, and calls
// back into the page from inside a handler would block it. Subscribers are
// therefore invoked on their own goroutine.
type PageContext struct {
	id   string
	role types.SourceContext
	page playwright.Page

	mu     sync.Mutex
	closed bool

	loads    *listenerSet[struct{}]
	navs     *listenerSet[string]
	consoles *listenerSet[string]
}

// NewPageContext wraps page. The page's event handlers are registered once
// and fan out to subscribers added through OnLoad, OnNavigated and OnConsole.
func NewPageContext(page playwright.Page, role types.SourceContext) *PageContext {
	pc := &PageContext{
		id:       uuid.New().String(),
		role:     role,
		page:     page,
		loads:    newListenerSet[struct{}](),
		navs:     newListenerSet[string](),
		consoles: newListenerSet[string](),
	}

	page.OnLoad(func(playwright.Page) {
		go pc.loads.emit(struct{}{})
	})
	page.OnFrameNavigated(func(frame playwright.Frame) {
		if frame != page.MainFrame() {
			return
		}
		url := frame.URL()
		go pc.navs.emit(url)
	})
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		text := msg.Text()
		go pc.consoles.emit(text)
	})
	page.OnClose(func(playwright.Page) {
		pc.markClosed()
	})

	return pc
}

// ID implements Context.
func (p *PageContext) ID() string { return p.id }

// Role implements Context.
func (p *PageContext) Role() types.SourceContext { return p.role }

// Page returns the wrapped page.
func (p *PageContext) Page() playwright.Page { return p.page }

// Evaluate implements Context. arg is normalized through JSON so Go structs
// reach the page with their json field names.
func (p *PageContext) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if p.Closed() {
		return nil, ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args := []any{}
	if arg != nil {
		normalized, err := normalizeArg(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, normalized)
	}

	result, err := bounded(ctx, func() (any, error) {
		return p.page.Evaluate(script, args...)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if p.Closed() {
			return nil, ErrContextClosed
		}
		return nil, fmt.Errorf("script evaluation failed: %w", err)
	}
	return result, nil
}

// Navigate implements Context.
func (p *PageContext) Navigate(ctx context.Context, url string) error {
	if p.Closed() {
		return ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	waitUntil := playwright.WaitUntilStateDomcontentloaded
	_, err := bounded(ctx, func() (playwright.Response, error) {
		return p.page.Goto(url, playwright.PageGotoOptions{WaitUntil: waitUntil})
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// URL implements Context.
func (p *PageContext) URL() string {
	if p.Closed() {
		return ""
	}
	return p.page.URL()
}

// OnLoad implements Context.
func (p *PageContext) OnLoad(fn func()) func() {
	return p.loads.add(func(struct{}) { fn() })
}

// OnNavigated implements Context.
func (p *PageContext) OnNavigated(fn func(url string)) func() {
	return p.navs.add(fn)
}

// OnConsole implements Context.
func (p *PageContext) OnConsole(fn func(text string)) func() {
	return p.consoles.add(fn)
}

// Closed implements Context.
func (p *PageContext) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed || p.page.IsClosed()
}

// SendPointerEvent implements PointerInjector using the browser's input pipeline.
func (p *PageContext) SendPointerEvent(ctx context.Context, kind PointerKind, x, y float64) error {
	if p.Closed() {
		return ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	mouse := p.page.Mouse()
	var call func() error
	switch kind {
	case PointerMove:
		call = func() error { return mouse.Move(x, y) }
	case PointerDown:
		call = func() error {
			if err := mouse.Move(x, y); err != nil {
				return err
			}
			return mouse.Down()
		}
	case PointerUp:
		call = func() error { return mouse.Up() }
	default:
		return fmt.Errorf("unknown pointer kind %q", kind)
	}
	_, err := bounded(ctx, func() (struct{}, error) { return struct{}{}, call() })
	if err != nil {
		return fmt.Errorf("pointer %s failed: %w", kind, err)
	}
	return nil
}

// Close closes the page and drops every subscriber.
func (p *PageContext) Close() error {
	p.markClosed()
	if p.page.IsClosed() {
		return nil
	}
	return p.page.Close()
}

func (p *PageContext) markClosed() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.loads.clear()
	p.navs.clear()
	p.consoles.clear()
}

// bounded runs call and returns ctx's error as soon as ctx ends. Playwright
// calls take no context, so an abandoned call completes on its own goroutine
// and its result is dropped.
func bounded[T any](ctx context.Context, call func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call()
		done <- outcome{v, err}
	}()

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-done:
		return o.value, o.err
	}
}

// normalizeArg converts arg into the plain maps and slices playwright serializes.
func normalizeArg(arg any) (any, error) {
	data, err := json.Marshal(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal script argument: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to normalize script argument: %w", err)
	}
	return out, nil
}
