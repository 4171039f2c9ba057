// Package surfacetest provides an in-memory surface.Context for tests.
package surfacetest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/google/uuid"
)

// Responder answers one script evaluation. arg has been normalized through
// JSON the way the real page receives it.
type Responder func(arg any) (any, error)

// Call records one Evaluate invocation.
type Call struct {
	Script string
	Arg    any
}

// PointerEvent records one injected pointer action.
type PointerEvent struct {
	Kind surface.PointerKind
	X, Y float64
}

// Fake is a scriptable surface.Context. Events fire synchronously.
type Fake struct {
	mu         sync.Mutex
	id         string
	role       types.SourceContext
	url        string
	closed     bool
	responders map[string]Responder
	calls      []Call
	navigated  []string
	pointer    []PointerEvent
	pointerErr error

	loads    map[int]func()
	navs     map[int]func(string)
	consoles map[int]func(string)
	nextID   int
}

// New returns an open fake context with the given role and URL.
func New(role types.SourceContext, url string) *Fake {
	return &Fake{
		id:         uuid.New().String(),
		role:       role,
		url:        url,
		responders: make(map[string]Responder),
		loads:      make(map[int]func()),
		navs:       make(map[int]func(string)),
		consoles:   make(map[int]func(string)),
	}
}

// On sets the responder for script.
func (f *Fake) On(script string, fn Responder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responders[script] = fn
}

// Return makes script always evaluate to v.
func (f *Fake) Return(script string, v any) {
	f.On(script, func(any) (any, error) { return v, nil })
}

// ID implements surface.Context.
func (f *Fake) ID() string { return f.id }

// Role implements surface.Context.
func (f *Fake) Role() types.SourceContext { return f.role }

// Evaluate implements surface.Context. Scripts without a responder return nil.
func (f *Fake) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var normalized any
	if arg != nil {
		data, err := json.Marshal(arg)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &normalized); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, surface.ErrContextClosed
	}
	f.calls = append(f.calls, Call{Script: script, Arg: normalized})
	fn := f.responders[script]
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(normalized)
}

// Navigate implements surface.Context and fires navigation listeners.
func (f *Fake) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return surface.ErrContextClosed
	}
	f.url = url
	f.navigated = append(f.navigated, url)
	f.mu.Unlock()

	f.FireNavigated(url)
	return nil
}

// URL implements surface.Context.
func (f *Fake) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// SetURL changes the location without firing events.
func (f *Fake) SetURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.url = url
}

// OnLoad implements surface.Context.
func (f *Fake) OnLoad(fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.loads[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.loads, id)
		f.mu.Unlock()
	}
}

// OnNavigated implements surface.Context.
func (f *Fake) OnNavigated(fn func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.navs[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.navs, id)
		f.mu.Unlock()
	}
}

// OnConsole implements surface.Context.
func (f *Fake) OnConsole(fn func(string)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.consoles[id] = fn
	return func() {
		f.mu.Lock()
		delete(f.consoles, id)
		f.mu.Unlock()
	}
}

// Closed implements surface.Context.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close marks the context destroyed.
func (f *Fake) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// SendPointerEvent implements surface.PointerInjector.
func (f *Fake) SendPointerEvent(ctx context.Context, kind surface.PointerKind, x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pointerErr != nil {
		return f.pointerErr
	}
	f.pointer = append(f.pointer, PointerEvent{Kind: kind, X: x, Y: y})
	return nil
}

// FailPointer makes SendPointerEvent return err.
func (f *Fake) FailPointer(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointerErr = err
}

// FireLoad invokes load listeners.
func (f *Fake) FireLoad() {
	f.mu.Lock()
	fns := make([]func(), 0, len(f.loads))
	for _, k := range sortedKeys(f.loads) {
		fns = append(fns, f.loads[k])
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// FireNavigated invokes navigation listeners.
func (f *Fake) FireNavigated(url string) {
	f.mu.Lock()
	fns := make([]func(string), 0, len(f.navs))
	for _, k := range sortedKeys(f.navs) {
		fns = append(fns, f.navs[k])
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(url)
	}
}

// FireConsole invokes console listeners.
func (f *Fake) FireConsole(text string) {
	f.mu.Lock()
	fns := make([]func(string), 0, len(f.consoles))
	for _, k := range sortedKeys(f.consoles) {
		fns = append(fns, f.consoles[k])
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(text)
	}
}

// ListenerCount reports host-side subscriptions still attached.
func (f *Fake) ListenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads) + len(f.navs) + len(f.consoles)
}

// Calls returns every recorded evaluation.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsTo returns evaluations of script.
func (f *Fake) CallsTo(script string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Call
	for _, c := range f.calls {
		if c.Script == script {
			out = append(out, c)
		}
	}
	return out
}

// Navigations returns URLs passed to Navigate.
func (f *Fake) Navigations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.navigated))
	copy(out, f.navigated)
	return out
}

// PointerEvents returns injected pointer actions.
func (f *Fake) PointerEvents() []PointerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]PointerEvent, len(f.pointer))
	copy(out, f.pointer)
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
