// Package poller runs the host-side loop that reads every embedded context,
// merges the readings into one authoritative hover state and drives the
// rest of the engine from its transitions.
//
// Contexts cannot call into the host, so state is pulled on a short fixed
// interval rather than pushed. A separate, slower loop runs the injection
// health check.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/entrhq/hoverpilot/pkg/hover"
	"github.com/entrhq/hoverpilot/pkg/inject"
	"github.com/entrhq/hoverpilot/pkg/keys"
	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

const (
	DefaultInterval       = 50 * time.Millisecond
	DefaultHealthInterval = 2 * time.Second
	DefaultQueryTimeout   = 500 * time.Millisecond
	DefaultRouteTimeout   = 30 * time.Second
)

// Contexts is the injection state the poller reads from.
type Contexts interface {
	ReadyContexts() []surface.Context
	MarkStale(role types.SourceContext)
	HealthCheck(ctx context.Context)
}

// Generator produces suggestions for hovered text.
type Generator interface {
	Suggest(ctx context.Context, text, instruction string) ([]string, error)
}

// Router handles navigations the primary context intercepted.
type Router interface {
	Route(ctx context.Context, primary surface.Context, intent types.NavigationIntent) (bool, error)
}

// PanelState is the suggestion panel state the transitions depend on.
type PanelState interface {
	// PointerOverPanel reports whether the user is interacting with the panel.
	PointerOverPanel() bool

	// ResetInstruction clears the custom instruction input.
	ResetInstruction()
}

// Emitter receives engine events.
type Emitter func(types.Event)

// Options configures a Poller.
type Options struct {
	Interval       time.Duration
	HealthInterval time.Duration
	QueryTimeout   time.Duration
	MinTextLength  int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.HealthInterval <= 0 {
		o.HealthInterval = DefaultHealthInterval
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	if o.MinTextLength <= 0 {
		o.MinTextLength = hover.DefaultMinTextLength
	}
	return o
}

// Poller merges context state every tick and reacts to transitions.
type Poller struct {
	opts      Options
	contexts  Contexts
	host      *keys.Tracker
	panel     PanelState
	generator Generator
	router    Router
	emit      Emitter
	logger    *logging.Logger

	mu       sync.Mutex
	held     bool
	lastText string
	active   *types.MergedHoverState
	cache    map[string][]string
	inflight map[string]bool

	routing atomic.Bool
	wg      sync.WaitGroup
}

// Config holds a Poller's collaborators. Router and Panel are optional.
type Config struct {
	Options   Options
	Contexts  Contexts
	Host      *keys.Tracker
	Panel     PanelState
	Generator Generator
	Router    Router
	Emit      Emitter
	Logger    *logging.Logger
}

// New creates a Poller.
func New(cfg Config) (*Poller, error) {
	if cfg.Contexts == nil {
		return nil, fmt.Errorf("contexts are required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Host == nil {
		cfg.Host = keys.NewTracker("Control", keys.LocationAny)
	}
	if cfg.Panel == nil {
		cfg.Panel = noPanel{}
	}
	if cfg.Emit == nil {
		cfg.Emit = func(types.Event) {}
	}
	return &Poller{
		opts:      cfg.Options.withDefaults(),
		contexts:  cfg.Contexts,
		host:      cfg.Host,
		panel:     cfg.Panel,
		generator: cfg.Generator,
		router:    cfg.Router,
		emit:      cfg.Emit,
		logger:    logging.OrDiscard(cfg.Logger),
		cache:     make(map[string][]string),
		inflight:  make(map[string]bool),
	}, nil
}

// Run ticks until ctx is done, with the health check on its own loop. It
// waits for outstanding generations before returning.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Infof("Polling every %v, health check every %v", p.opts.Interval, p.opts.HealthInterval)

	var healthWG sync.WaitGroup
	healthWG.Add(1)
	go func() {
		defer healthWG.Done()
		p.runHealth(ctx)
	}()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			healthWG.Wait()
			p.Wait()
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

func (p *Poller) runHealth(ctx context.Context) {
	ticker := time.NewTicker(p.opts.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.contexts.HealthCheck(ctx)
		}
	}
}

// Wait blocks until background generations and routings finish.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// Tick runs one polling cycle and returns the merged state it acted on.
func (p *Poller) Tick(ctx context.Context) types.MergedHoverState {
	contexts := p.contexts.ReadyContexts()
	readings := p.query(ctx, contexts)
	hostHeld := p.host.Held()

	for i, c := range contexts {
		r := readings[i]
		if r == nil {
			continue
		}
		if r.State.HostHeld != hostHeld {
			p.pushHeld(ctx, c, hostHeld)
		}
		if r.State.PendingNavigation != nil && c.Role() == types.SourcePrimary {
			p.route(ctx, c)
		}
	}

	resolved := make([]hover.Reading, 0, len(readings))
	for _, r := range readings {
		if r == nil {
			continue
		}
		resolved = append(resolved, hover.Reading{
			Source: r.Source,
			State:  hover.Resolve(r.State, p.opts.MinTextLength),
		})
	}

	merged := hover.Merge(hostHeld, resolved)
	p.transition(ctx, merged)
	return merged
}

// query snapshots every context concurrently and waits for all of them.
// Failed reads are nil; a context missing its agent is flagged for the
// health check.
func (p *Poller) query(ctx context.Context, contexts []surface.Context) []*hover.Reading {
	readings := make([]*hover.Reading, len(contexts))

	var wg sync.WaitGroup
	for i, c := range contexts {
		wg.Add(1)
		go func(i int, c surface.Context) {
			defer wg.Done()

			qctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
			defer cancel()

			state, err := inject.Snapshot(qctx, c)
			if err != nil {
				if errors.Is(err, inject.ErrNotReady) {
					p.logger.Debugf("%s context answered without agent, scheduling reinjection", c.Role())
					p.contexts.MarkStale(c.Role())
				}
				return
			}
			if !state.HelperReady {
				p.contexts.MarkStale(c.Role())
			}
			readings[i] = &hover.Reading{Source: c.Role(), State: state}
		}(i, c)
	}
	wg.Wait()

	return readings
}

func (p *Poller) pushHeld(ctx context.Context, c surface.Context, held bool) {
	qctx, cancel := context.WithTimeout(ctx, p.opts.QueryTimeout)
	defer cancel()
	if err := inject.PushHeld(qctx, c, held); err != nil {
		p.logger.Debugf("Failed to push held state into %s: %v", c.Role(), err)
	}
}

func (p *Poller) route(ctx context.Context, primary surface.Context) {
	if p.router == nil || !p.routing.CompareAndSwap(false, true) {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.routing.Store(false)

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultRouteTimeout)
		defer cancel()

		intent, err := inject.TakeNavigation(rctx, primary)
		if err != nil || intent == nil {
			return
		}
		if _, err := p.router.Route(rctx, primary, *intent); err != nil {
			p.logger.Warnf("Navigation routing failed: %v", err)
		}
	}()
}

// transition applies the per-tick state rules to merged.
func (p *Poller) transition(ctx context.Context, merged types.MergedHoverState) {
	overPanel := p.panel.PointerOverPanel()

	p.mu.Lock()
	if merged.CtrlHeld != p.held {
		p.held = merged.CtrlHeld
		p.mu.Unlock()
		p.emit(types.NewHeldChangedEvent(merged.CtrlHeld))
		p.mu.Lock()
	}

	if !merged.CtrlHeld || !merged.HasText() {
		if overPanel {
			p.mu.Unlock()
			return
		}
		cleared := p.clearLocked()
		p.mu.Unlock()
		if cleared {
			p.emit(types.NewHoverClearedEvent())
		}
		return
	}

	text := merged.TextValue()
	if text == p.lastText {
		p.mu.Unlock()
		return
	}
	p.lastText = text
	active := merged
	p.active = &active
	p.mu.Unlock()

	p.panel.ResetInstruction()
	p.emit(types.NewActiveHoverEvent(merged))
	p.requestSuggestions(ctx, text, "")
}

func (p *Poller) clearLocked() bool {
	if p.active == nil && p.lastText == "" {
		return false
	}
	p.active = nil
	p.lastText = ""
	return true
}

// Active returns the current active hover.
func (p *Poller) Active() (types.MergedHoverState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active == nil {
		return types.MergedHoverState{}, false
	}
	return *p.active, true
}

// Clear drops the active hover as if the modifier had been released.
func (p *Poller) Clear() {
	p.mu.Lock()
	cleared := p.clearLocked()
	p.mu.Unlock()
	if cleared {
		p.emit(types.NewHoverClearedEvent())
	}
}

// Regenerate requests suggestions for the active hover with a custom
// instruction.
func (p *Poller) Regenerate(ctx context.Context, instruction string) error {
	p.mu.Lock()
	text := p.lastText
	p.mu.Unlock()

	if text == "" {
		return fmt.Errorf("no active hover")
	}
	p.requestSuggestions(ctx, text, instruction)
	return nil
}

func cacheKey(text, instruction string) string {
	return text + "\x00" + instruction
}

// requestSuggestions issues at most one generation per text and
// instruction. Results are cached for the session; failures are not, so a
// later hover retries.
func (p *Poller) requestSuggestions(ctx context.Context, text, instruction string) {
	key := cacheKey(text, instruction)

	p.mu.Lock()
	if cached, ok := p.cache[key]; ok {
		p.mu.Unlock()
		p.emit(types.NewSuggestionsEvent(text, cached))
		return
	}
	if p.inflight[key] {
		p.mu.Unlock()
		return
	}
	p.inflight[key] = true
	p.mu.Unlock()

	p.emit(types.NewSuggestionsStartEvent(text))

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		suggestions, err := p.generator.Suggest(context.WithoutCancel(ctx), text, instruction)

		p.mu.Lock()
		delete(p.inflight, key)
		if err == nil {
			p.cache[key] = suggestions
		}
		p.mu.Unlock()

		if err != nil {
			p.logger.Warnf("Suggestion generation failed: %v", err)
			p.emit(types.NewSuggestionsErrorEvent(text, err))
			return
		}
		p.emit(types.NewSuggestionsEvent(text, suggestions))
	}()
}

type noPanel struct{}

func (noPanel) PointerOverPanel() bool { return false }
func (noPanel) ResetInstruction()      {}
