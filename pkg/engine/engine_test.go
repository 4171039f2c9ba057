package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/hoverpilot/pkg/clipboard"
	"github.com/entrhq/hoverpilot/pkg/config"
	"github.com/entrhq/hoverpilot/pkg/focus"
	"github.com/entrhq/hoverpilot/pkg/inject"
	"github.com/entrhq/hoverpilot/pkg/keys"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/surface/surfacetest"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// page is a fake context with an emulated agent and composer.
type page struct {
	*surfacetest.Fake

	mu       sync.Mutex
	ready    bool
	cfg      map[string]any
	held     bool
	hostHeld bool
	text     *string
	composer bool
	inserted []string
	submits  int
	resolved []map[string]any
}

func newPage(role types.SourceContext, url string) *page {
	p := &page{Fake: surfacetest.New(role, url), composer: true}

	p.On(inject.AgentScript(), func(arg any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.cfg, _ = arg.(map[string]any)
		installed := !p.ready
		p.ready = true
		return map[string]any{"installed": installed, "listeners": 9}, nil
	})
	p.On(inject.ReadyScript, func(any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.ready, nil
	})
	p.On(inject.TeardownScript, func(any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.ready = false
		return true, nil
	})
	p.On(inject.SnapshotScript, func(any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.ready {
			return nil, nil
		}
		var text any
		if p.text != nil {
			text = *p.text
		}
		return map[string]any{"ctrlHeld": p.held, "hostHeld": p.hostHeld, "text": text, "helperReady": true, "url": p.URL()}, nil
	})
	p.On(inject.SetHeldScript, func(arg any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.hostHeld, _ = arg.(bool)
		return p.hostHeld, nil
	})
	p.On(inject.ResolvePasteScript, func(arg any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		resp, _ := arg.(map[string]any)
		p.resolved = append(p.resolved, resp)
		return true, nil
	})
	p.On(inject.PasteIntoScript, func(any) (any, error) { return "text", nil })

	p.On(focus.LocateScript, func(any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.composer {
			return nil, nil
		}
		return map[string]any{"selector": "#composer", "x": 10, "y": 20, "width": 100, "height": 30}, nil
	})
	p.On(focus.ActivateScript, func(any) (any, error) { return true, nil })
	p.On(focus.FocusedScript, func(any) (any, error) { return true, nil })
	p.On(focus.InsertScript, func(arg any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		m, _ := arg.(map[string]any)
		text, _ := m["text"].(string)
		p.inserted = append(p.inserted, text)
		return true, nil
	})
	p.On(focus.SubmitScript, func(any) (any, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.submits++
		return map[string]any{"found": true, "clicked": true}, nil
	})
	return p
}

func (p *page) setHover(held bool, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.held = held
	p.text = &text
}

func (p *page) setComposer(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.composer = ok
}

func (p *page) agentConfig() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

func (p *page) insertedTexts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.inserted...)
}

type fakeBrowser struct {
	mu        sync.Mutex
	secondary *page
	opened    []string
	closed    int
	openErr   error
}

func (b *fakeBrowser) OpenSecondary(ctx context.Context, url string) (surface.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened = append(b.opened, url)
	if b.secondary == nil || b.secondary.Closed() {
		b.secondary = newPage(types.SourceSecondary, url)
		b.secondary.SetURL(url)
		return b.secondary, nil
	}
	return b.secondary, b.secondary.Navigate(ctx, url)
}

func (b *fakeBrowser) CloseSecondary() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	if b.secondary != nil {
		b.secondary.Close()
	}
	return nil
}

type stubGenerator struct {
	mu    sync.Mutex
	calls []string
}

func (g *stubGenerator) Suggest(_ context.Context, text, instruction string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, text+"|"+instruction)
	return []string{"reply to " + text}, nil
}

func testSettings() config.EngineSettings {
	s := config.DefaultEngineSettings()
	s.FocusAttempts = 2
	s.FocusDelay = time.Millisecond
	s.ScrollBudget = 50 * time.Millisecond
	return s
}

type harness struct {
	engine    *Engine
	primary   *page
	browser   *fakeBrowser
	generator *stubGenerator
	clip      *clipboard.MemoryProvider
}

func newHarness(t *testing.T, url string) *harness {
	t.Helper()
	h := &harness{
		primary:   newPage(types.SourcePrimary, url),
		browser:   &fakeBrowser{},
		generator: &stubGenerator{},
		clip:      &clipboard.MemoryProvider{},
	}
	e, err := New(Config{
		Profile:   config.DefaultProfile(),
		Settings:  testSettings(),
		Primary:   h.primary,
		Browser:   h.browser,
		Generator: h.generator,
		Clipboard: h.clip,
	})
	require.NoError(t, err)
	h.engine = e
	require.NoError(t, e.Start(context.Background()))
	return h
}

// drain collects the events published so far.
func drain(e *Engine) []types.Event {
	var out []types.Event
	for {
		select {
		case ev := <-e.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []types.Event) []types.EventType {
	out := make([]types.EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Generator: &stubGenerator{}, Settings: testSettings()})
	assert.Error(t, err, "primary required")

	_, err = New(Config{Primary: newPage(types.SourcePrimary, "https://x.com/home"), Settings: testSettings()})
	assert.Error(t, err, "generator required")

	bad := testSettings()
	bad.PollInterval = 0
	_, err = New(Config{Primary: newPage(types.SourcePrimary, "https://x.com/home"), Generator: &stubGenerator{}, Settings: bad})
	assert.Error(t, err, "settings validated")

	profile := config.DefaultProfile()
	profile.ComposerPatterns = []string{"[unclosed"}
	_, err = New(Config{Primary: newPage(types.SourcePrimary, "https://x.com/home"), Generator: &stubGenerator{}, Settings: testSettings(), Profile: profile})
	assert.Error(t, err, "composer patterns compiled")
}

func TestStart_InjectsPrimary(t *testing.T) {
	h := newHarness(t, "https://x.com/home")

	assert.True(t, h.engine.Injection().Ready(types.SourcePrimary))
	cfg := h.primary.agentConfig()
	assert.Equal(t, "primary", cfg["role"])
	assert.Equal(t, true, cfg["interceptNavigation"])
	assert.Equal(t, float64(2000), cfg["pasteTimeoutMs"])
	assert.Equal(t, 3, h.primary.ListenerCount(), "load, navigation and console")
	assert.Contains(t, cfg["detailPatterns"], `^/[^/]*/status/[^/]*$`)
	assert.Contains(t, cfg["listingPatterns"], `^/home$`)
}

func TestStart_WithoutBrowserDoesNotIntercept(t *testing.T) {
	primary := newPage(types.SourcePrimary, "https://x.com/home")
	e, err := New(Config{Primary: primary, Generator: &stubGenerator{}, Settings: testSettings()})
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))

	assert.Equal(t, false, primary.agentConfig()["interceptNavigation"])
}

func TestAgentConfig(t *testing.T) {
	profile := config.DefaultProfile()
	profile.DetailPatterns = []string{"/{status,photo}/[0-9]*"}

	cfg, err := AgentConfig(profile, testSettings(), true)
	require.NoError(t, err)
	assert.True(t, cfg.InterceptNavigation)
	assert.Equal(t, []string{`^/(?:status|photo)/[0-9][^/]*$`}, cfg.DetailPatterns)

	cfg, err = AgentConfig(profile, testSettings(), false)
	require.NoError(t, err)
	assert.False(t, cfg.InterceptNavigation)

	profile.ListingPatterns = []string{"/{unclosed"}
	_, err = AgentConfig(profile, testSettings(), true)
	assert.Error(t, err)
}

func TestStart_ServesClipboard(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	require.NoError(t, h.clip.WriteText("from host"))

	h.primary.FireConsole(inject.DefaultConsolePrefix + `{"requestId":"r1","kind":"paste"}`)

	require.Eventually(t, func() bool {
		h.primary.mu.Lock()
		defer h.primary.mu.Unlock()
		return len(h.primary.resolved) == 1
	}, time.Second, 5*time.Millisecond)

	h.primary.mu.Lock()
	resp := h.primary.resolved[0]
	h.primary.mu.Unlock()
	assert.Equal(t, "r1", resp["requestId"])
	assert.Equal(t, "text", resp["kind"])
	assert.Equal(t, "from host", resp["payload"])
	assert.Zero(t, h.engine.Bridge().Pending())
}

func TestTick_EmitsHoverAndSuggestions(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	h.primary.setHover(true, "an interesting post")

	merged := h.engine.Poller().Tick(context.Background())
	require.True(t, merged.HasText())

	require.Eventually(t, func() bool {
		h.generator.mu.Lock()
		defer h.generator.mu.Unlock()
		return len(h.generator.calls) == 1
	}, time.Second, 5*time.Millisecond)

	var seen []types.EventType
	require.Eventually(t, func() bool {
		seen = append(seen, eventTypes(drain(h.engine))...)
		return last(seen) == types.EventTypeSuggestions
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, seen, types.EventTypeHeldChanged)
	assert.Contains(t, seen, types.EventTypeActiveHover)
	assert.Contains(t, seen, types.EventTypeSuggestionsStart)
}

func last(ts []types.EventType) types.EventType {
	if len(ts) == 0 {
		return ""
	}
	return ts[len(ts)-1]
}

func TestToggleHold_HeldWithoutPageModifier(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	h.primary.setHover(false, "hovered without page modifier")

	assert.True(t, h.engine.ToggleHold())
	merged := h.engine.Poller().Tick(context.Background())
	assert.True(t, merged.CtrlHeld)
	assert.True(t, merged.HasText())

	h.primary.mu.Lock()
	assert.True(t, h.primary.hostHeld, "host hold is mirrored into the page")
	h.primary.mu.Unlock()

	assert.False(t, h.engine.ToggleHold())
	merged = h.engine.Poller().Tick(context.Background())
	assert.False(t, merged.CtrlHeld, "release clears within one tick")
	_, active := h.engine.Poller().Active()
	assert.False(t, active)
	assert.Contains(t, eventTypes(drain(h.engine)), types.EventTypeHoverCleared)

	h.primary.mu.Lock()
	assert.False(t, h.primary.hostHeld)
	h.primary.mu.Unlock()
}

func TestHostKeys(t *testing.T) {
	h := newHarness(t, "https://x.com/home")

	assert.False(t, h.engine.HandleHostKey(keys.Event{Key: "Shift", Down: true}))
	assert.True(t, h.engine.HandleHostKey(keys.Event{Key: "Control", Location: keys.LocationRight, Down: true}))
	assert.False(t, h.engine.HandleHostKey(keys.Event{Key: "Control", Location: keys.LocationRight, Down: true, Repeat: true}))

	h.primary.setHover(false, "text under the pointer")
	assert.True(t, h.engine.Poller().Tick(context.Background()).CtrlHeld)

	h.engine.HostBlur()
	assert.False(t, h.engine.host.Held())
	assert.False(t, h.engine.Poller().Tick(context.Background()).CtrlHeld)
}

func TestOpenSecondary_InjectsAndFocuses(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	ctx := context.Background()
	drain(h.engine)

	url := "https://x.com/someone/status/123"
	require.NoError(t, h.engine.OpenSecondary(ctx, url))

	sec := h.browser.secondary
	require.NotNil(t, sec)
	assert.True(t, h.engine.Injection().Ready(types.SourceSecondary))
	assert.Equal(t, "secondary", sec.agentConfig()["role"])
	assert.Equal(t, false, sec.agentConfig()["interceptNavigation"])
	assert.Equal(t, 3, sec.ListenerCount())

	require.Eventually(t, func() bool {
		return len(sec.CallsTo(focus.ActivateScript)) > 0
	}, 2*time.Second, 5*time.Millisecond, "composer auto-focus runs on detail locations")
	assert.NotEmpty(t, sec.PointerEvents(), "secondary contexts get a real click")

	assert.Contains(t, eventTypes(drain(h.engine)), types.EventTypeSecondaryOpened)

	// Reusing the same context keeps a single set of listeners.
	require.NoError(t, h.engine.OpenSecondary(ctx, "https://x.com/other/status/9"))
	assert.Equal(t, 3, sec.ListenerCount())
}

func TestOpenSecondary_Error(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	h.browser.openErr = errors.New("browser gone")

	err := h.engine.OpenSecondary(context.Background(), "https://x.com/a/status/1")
	assert.ErrorContains(t, err, "browser gone")
	assert.Nil(t, h.engine.Injection().Context(types.SourceSecondary))
}

func TestCloseSecondary(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	ctx := context.Background()

	require.NoError(t, h.engine.CloseSecondary(ctx), "closing without a secondary is a no-op")
	assert.Zero(t, h.browser.closed)

	require.NoError(t, h.engine.OpenSecondary(ctx, "https://x.com/a/status/1"))
	sec := h.browser.secondary
	h.engine.wg.Wait()
	drain(h.engine)

	require.NoError(t, h.engine.CloseSecondary(ctx))
	assert.Equal(t, 1, h.browser.closed)
	assert.Zero(t, sec.ListenerCount(), "every listener is released")
	assert.NotEmpty(t, sec.CallsTo(inject.TeardownScript))
	assert.Nil(t, h.engine.Injection().Context(types.SourceSecondary))
	assert.Equal(t, []types.EventType{types.EventTypeSecondaryClosed}, eventTypes(drain(h.engine)))

	contexts := h.engine.Injection().ReadyContexts()
	require.Len(t, contexts, 1)
	assert.Equal(t, types.SourcePrimary, contexts[0].Role())
}

func TestCompose(t *testing.T) {
	t.Run("prefers the secondary context", func(t *testing.T) {
		h := newHarness(t, "https://x.com/home")
		ctx := context.Background()
		require.NoError(t, h.engine.OpenSecondary(ctx, "https://x.com/a/status/1"))
		h.engine.wg.Wait()
		drain(h.engine)

		require.NoError(t, h.engine.Compose(ctx, "great point", true, true))

		sec := h.browser.secondary
		assert.Equal(t, []string{"great point"}, sec.insertedTexts())
		assert.Len(t, sec.CallsTo(inject.PasteIntoScript), 1)
		sec.mu.Lock()
		assert.Equal(t, 1, sec.submits)
		sec.mu.Unlock()
		assert.Empty(t, h.primary.insertedTexts())

		events := drain(h.engine)
		require.NotEmpty(t, events)
		done := events[len(events)-1]
		assert.Equal(t, types.EventTypeComposeDone, done.Type)
		assert.NoError(t, done.Error)
	})

	t.Run("falls back to the primary", func(t *testing.T) {
		h := newHarness(t, "https://x.com/home")
		require.NoError(t, h.engine.Compose(context.Background(), "hello", false, false))
		assert.Equal(t, []string{"hello"}, h.primary.insertedTexts())
		assert.Empty(t, h.primary.CallsTo(focus.SubmitScript))
	})

	t.Run("missing composer", func(t *testing.T) {
		h := newHarness(t, "https://x.com/home")
		h.primary.setComposer(false)

		err := h.engine.Compose(context.Background(), "hello", false, false)
		assert.ErrorIs(t, err, focus.ErrComposerNotFound)

		events := drain(h.engine)
		require.NotEmpty(t, events)
		assert.ErrorIs(t, events[len(events)-1].Error, focus.ErrComposerNotFound)
	})
}

func TestNavigatedToComposerLocation_Focuses(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	assert.Empty(t, h.primary.CallsTo(focus.LocateScript), "listing has no composer to focus")

	require.NoError(t, h.primary.Navigate(context.Background(), "https://x.com/compose/post"))
	require.Eventually(t, func() bool {
		return len(h.primary.CallsTo(focus.ActivateScript)) > 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestApplyProfile(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	ctx := context.Background()

	next := config.DefaultProfile()
	next.Name = "forum"
	next.EntitySelector = ".post"
	next.DetailPatterns = []string{"/t/*"}
	next.ListingPatterns = []string{"/latest"}
	next.ModifierKey = "Alt"

	require.NoError(t, h.engine.ApplyProfile(ctx, next))

	cfg := h.primary.agentConfig()
	assert.Equal(t, ".post", cfg["entitySelector"])
	assert.Equal(t, []any{`^/t/[^/]*$`}, cfg["detailPatterns"])
	assert.Equal(t, "Control", cfg["modifierKey"], "modifier is fixed for the session")
	assert.Equal(t, "Alt", next.ModifierKey, "caller's profile is not modified")
	assert.Equal(t, "forum", h.engine.Profile().Name)

	assert.True(t, h.engine.router.Matches(types.NavigationIntent{
		Href: "https://x.com/t/42",
		From: "https://x.com/latest",
	}))

	invalid := config.DefaultProfile()
	invalid.EntitySelector = ""
	assert.Error(t, h.engine.ApplyProfile(ctx, invalid))
	assert.Equal(t, "forum", h.engine.Profile().Name)
}

func TestEmit_DropsWhenFull(t *testing.T) {
	e, err := New(Config{
		Primary:     newPage(types.SourcePrimary, "https://x.com/home"),
		Generator:   &stubGenerator{},
		Settings:    testSettings(),
		EventBuffer: 1,
	})
	require.NoError(t, err)

	e.emit(types.NewHoverClearedEvent())
	e.emit(types.NewHeldChangedEvent(true))

	events := drain(e)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventTypeHoverCleared, events[0].Type)
}

func TestRun_StopsWithContext(t *testing.T) {
	h := newHarness(t, "https://x.com/home")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()

	time.Sleep(120 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.NotEmpty(t, h.primary.CallsTo(inject.SnapshotScript))
}
