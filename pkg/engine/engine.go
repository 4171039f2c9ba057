// Package engine wires the injection lifecycle, clipboard bridge, composer
// automation, scroll store, navigation router and poller into one running
// system over a primary and an optional secondary context.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/entrhq/hoverpilot/pkg/clipboard"
	"github.com/entrhq/hoverpilot/pkg/config"
	"github.com/entrhq/hoverpilot/pkg/focus"
	"github.com/entrhq/hoverpilot/pkg/inject"
	"github.com/entrhq/hoverpilot/pkg/keys"
	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/navigation"
	"github.com/entrhq/hoverpilot/pkg/poller"
	"github.com/entrhq/hoverpilot/pkg/scroll"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 256

// Config configures an Engine.
type Config struct {
	Profile   *config.Profile
	Settings  config.EngineSettings
	Primary   surface.Context
	Browser   Browser
	Generator poller.Generator
	Clipboard clipboard.Provider
	Panel     poller.PanelState
	Logger    *logging.Logger

	// EventBuffer sizes the Events channel. Events are dropped when the
	// consumer falls this far behind.
	EventBuffer int
}

// Engine is the running automation system.
type Engine struct {
	primary surface.Context
	browser Browser
	logger  *logging.Logger

	inject *inject.Manager
	bridge *clipboard.Bridge
	server *clipboard.Server
	scroll *scroll.Store
	router *navigation.Router
	poller *poller.Poller
	host   *keys.Tracker

	mu        sync.RWMutex
	profile   *config.Profile
	settings  config.EngineSettings
	focus     *focus.Automator
	composers composerMatcher
	runCtx    context.Context

	focusing map[types.SourceContext]*atomic.Bool
	events   chan types.Event
	wg       sync.WaitGroup
}

// New builds an engine. Nothing touches the contexts until Run.
func New(cfg Config) (*Engine, error) {
	if cfg.Primary == nil {
		return nil, fmt.Errorf("primary context is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Profile == nil {
		cfg.Profile = config.DefaultProfile()
	}
	if err := cfg.Profile.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine settings: %w", err)
	}
	if cfg.Clipboard == nil {
		cfg.Clipboard = clipboard.NewSystemProvider()
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultEventBuffer
	}
	logger := logging.OrDiscard(cfg.Logger)

	agentCfg, err := AgentConfig(cfg.Profile, cfg.Settings, cfg.Browser != nil)
	if err != nil {
		return nil, err
	}
	if err := agentCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent config: %w", err)
	}

	composers, err := newComposerMatcher(cfg.Profile.ComposerPatterns)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		primary:   cfg.Primary,
		browser:   cfg.Browser,
		logger:    logger,
		profile:   cfg.Profile,
		settings:  cfg.Settings,
		composers: composers,
		runCtx:    context.Background(),
		focusing: map[types.SourceContext]*atomic.Bool{
			types.SourcePrimary:   {},
			types.SourceSecondary: {},
		},
		events: make(chan types.Event, cfg.EventBuffer),
	}

	e.inject = inject.NewManager(agentCfg, logger.Named("inject"))
	e.inject.OnNavigate(e.handleNavigated)

	e.bridge = clipboard.NewBridge(cfg.Clipboard, cfg.Settings.PasteTimeout, logger.Named("clipboard"))
	e.server = clipboard.NewServer(e.bridge, agentCfg.ConsolePrefix, logger.Named("clipboard"))

	e.focus = focus.NewAutomator(focusOptions(cfg.Profile, cfg.Settings), logger.Named("focus"))

	e.scroll = scroll.NewStore(scroll.Options{
		Tolerance:       cfg.Settings.ScrollTolerance,
		Budget:          cfg.Settings.ScrollBudget,
		ContentSelector: cfg.Profile.ContentSelector,
		MinContent:      cfg.Profile.MinContent,
	}, logger.Named("scroll"))

	var opener navigation.Opener
	if cfg.Browser != nil {
		opener = e
	}
	e.router, err = navigation.NewRouter(navigationRules(cfg.Profile), opener, e.scroll, logger.Named("navigation"))
	if err != nil {
		return nil, err
	}

	e.host = keys.NewTracker(cfg.Profile.ModifierKey, agentCfg.ModifierLocation)

	var router poller.Router
	if cfg.Browser != nil {
		router = e.router
	}
	e.poller, err = poller.New(poller.Config{
		Options: poller.Options{
			Interval:       cfg.Settings.PollInterval,
			HealthInterval: cfg.Settings.HealthInterval,
			QueryTimeout:   cfg.Settings.QueryTimeout,
			MinTextLength:  cfg.Settings.MinTextLength,
		},
		Contexts:  e.inject,
		Host:      e.host,
		Panel:     cfg.Panel,
		Generator: cfg.Generator,
		Router:    router,
		Emit:      e.emit,
		Logger:    logger.Named("poller"),
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Events returns the channel engine events are published on.
func (e *Engine) Events() <-chan types.Event {
	return e.events
}

// Start attaches the primary context and its clipboard listener.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.runCtx = ctx
	e.mu.Unlock()

	if err := e.attach(ctx, e.primary); err != nil {
		return fmt.Errorf("failed to prepare primary context: %w", err)
	}
	if e.hasComposer(e.primary.URL()) {
		e.autoFocus(e.primary)
	}
	return nil
}

// Run starts the engine and polls until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	err := e.poller.Run(ctx)
	e.wg.Wait()
	return err
}

// attach hands c to the injection manager. The clipboard listener is
// registered only when c is new to its role so it never doubles up.
func (e *Engine) attach(ctx context.Context, c surface.Context) error {
	prev := e.inject.Context(c.Role())
	fresh := prev == nil || prev.ID() != c.ID()

	err := e.inject.Attach(ctx, c)
	if fresh {
		e.inject.Track(c.Role(), e.server.Serve(c))
	}
	return err
}

// OpenSecondary loads url in the secondary context, injects it and starts
// composer focus when the location has one. It is the router's opener.
func (e *Engine) OpenSecondary(ctx context.Context, url string) error {
	if e.browser == nil {
		return fmt.Errorf("no secondary context available")
	}

	sec, err := e.browser.OpenSecondary(ctx, url)
	if sec == nil {
		if err == nil {
			err = fmt.Errorf("browser returned no secondary context")
		}
		return err
	}
	if attachErr := e.attach(ctx, sec); attachErr != nil {
		e.logger.Warnf("Secondary agent not ready yet: %v", attachErr)
	}
	if err != nil {
		return err
	}

	e.emit(types.NewSecondaryOpenedEvent(url))
	if e.hasComposer(url) {
		e.autoFocus(sec)
	}
	return nil
}

// CloseSecondary detaches and closes the secondary context. Polling
// continues over the primary alone.
func (e *Engine) CloseSecondary(ctx context.Context) error {
	if e.inject.Context(types.SourceSecondary) == nil {
		return nil
	}
	e.inject.Detach(ctx, types.SourceSecondary)

	var err error
	if e.browser != nil {
		err = e.browser.CloseSecondary()
	}
	e.emit(types.NewSecondaryClosedEvent())
	return err
}

// handleNavigated runs after the agent is ensured on a new location.
func (e *Engine) handleNavigated(c surface.Context, url string) {
	if c.Role() == types.SourceSecondary {
		e.emit(types.NewSecondaryOpenedEvent(url))
	}

	if e.hasComposer(url) {
		e.autoFocus(c)
	}
}

func (e *Engine) hasComposer(url string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.composers.Match(url)
}

// autoFocus focuses the composer of c in the background. Only one focus
// run per role is active at a time.
func (e *Engine) autoFocus(c surface.Context) {
	flag := e.focusing[c.Role()]
	if flag == nil || !flag.CompareAndSwap(false, true) {
		return
	}

	e.mu.RLock()
	ctx, automator := e.runCtx, e.focus
	e.mu.RUnlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer flag.Store(false)
		if automator.Focus(ctx, c) {
			e.logger.Infof("Composer focused in %s context", c.Role())
		}
	}()
}

// Compose writes text into the composer of the secondary context when one
// is ready, otherwise the primary. pasteImage attaches the clipboard
// contents through the bridge; submit presses the submit control.
func (e *Engine) Compose(ctx context.Context, text string, pasteImage, submit bool) error {
	err := e.compose(ctx, text, pasteImage, submit)
	e.emit(types.NewComposeDoneEvent(text, err))
	return err
}

func (e *Engine) compose(ctx context.Context, text string, pasteImage, submit bool) error {
	c := e.composeTarget()
	if c == nil {
		return fmt.Errorf("no ready context to compose in")
	}

	e.mu.RLock()
	automator := e.focus
	e.mu.RUnlock()

	if !automator.Focus(ctx, c) {
		return focus.ErrComposerNotFound
	}
	if err := automator.InsertText(ctx, c, text); err != nil {
		return err
	}
	if pasteImage {
		kind, err := inject.PasteInto(ctx, c)
		if err != nil {
			return err
		}
		e.logger.Debugf("Pasted %q clipboard content", kind)
	}
	if submit {
		if err := automator.Submit(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) composeTarget() surface.Context {
	if e.inject.Ready(types.SourceSecondary) {
		return e.inject.Context(types.SourceSecondary)
	}
	if e.inject.Ready(types.SourcePrimary) {
		return e.inject.Context(types.SourcePrimary)
	}
	return nil
}

// Regenerate asks for new suggestions for the active hover.
func (e *Engine) Regenerate(ctx context.Context, instruction string) error {
	return e.poller.Regenerate(ctx, instruction)
}

// Clear drops the active hover.
func (e *Engine) Clear() {
	e.poller.Clear()
}

// ToggleHold flips the host-side modifier state.
func (e *Engine) ToggleHold() bool {
	return e.host.Toggle()
}

// HandleHostKey feeds a key event from the host window.
func (e *Engine) HandleHostKey(ev keys.Event) bool {
	return e.host.Handle(ev)
}

// HostBlur releases the host modifier when the host window loses focus.
func (e *Engine) HostBlur() {
	e.host.Blur()
}

// ApplyProfile switches to p: agents are reconfigured in place, and the
// router, composer automation and scroll store pick up its selectors. The
// modifier key itself is fixed for the session.
func (e *Engine) ApplyProfile(ctx context.Context, next *config.Profile) error {
	p := *next
	if err := p.Validate(); err != nil {
		return err
	}
	composers, err := newComposerMatcher(p.ComposerPatterns)
	if err != nil {
		return err
	}
	if err := e.router.SetRules(navigationRules(&p)); err != nil {
		return err
	}
	agentCfg, err := AgentConfig(&p, e.settings, e.browser != nil)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if p.ModifierKey != e.profile.ModifierKey || p.ModifierSide != e.profile.ModifierSide {
		e.logger.Warnf("Modifier changes take effect after restart")
		p.ModifierKey, p.ModifierSide = e.profile.ModifierKey, e.profile.ModifierSide
	}
	e.profile = &p
	e.composers = composers
	e.focus = focus.NewAutomator(focusOptions(&p, e.settings), e.logger.Named("focus"))
	e.mu.Unlock()

	e.scroll.SetContent(p.ContentSelector, p.MinContent)
	e.inject.SetConfig(ctx, agentCfg)
	e.logger.Infof("Applied profile %s", p.Name)
	return nil
}

// Profile returns the active profile.
func (e *Engine) Profile() *config.Profile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profile
}

// Injection exposes the injection manager.
func (e *Engine) Injection() *inject.Manager {
	return e.inject
}

// Bridge exposes the clipboard bridge.
func (e *Engine) Bridge() *clipboard.Bridge {
	return e.bridge
}

// Poller exposes the poller.
func (e *Engine) Poller() *poller.Poller {
	return e.poller
}

// emit publishes ev without blocking the polling loop.
func (e *Engine) emit(ev types.Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Warnf("Dropping %s event, consumer is behind", ev.Type)
	}
}
