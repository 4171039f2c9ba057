package inject

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feedFixture = `<!doctype html>
<html>
<head><style>body { margin: 0 } article, #outside { display: block; height: 200px }</style></head>
<body>
<article class="post" id="long"><div class="text">A post long enough to qualify</div><a class="detail" href="/alice/status/1">open</a> <button class="like">like</button></article>
<article class="post" id="short"><div class="text">tiny</div></article>
<div id="outside">nothing to see</div>
<textarea id="box"></textarea>
</body>
</html>`

func browserAgentConfig() AgentConfig {
	return AgentConfig{
		Role:                types.SourcePrimary,
		EntitySelector:      "article.post",
		TextSelector:        ".text",
		HighlightClass:      "hp-active",
		MinTextLength:       5,
		ModifierKey:         "Control",
		InterceptNavigation: true,
		DetailPatterns:      []string{`^/[^/]*/status/[^/]*$`},
		ListingPatterns:     []string{`^/(?:home|explore)$`},
		ExcludedSelector:    ".like",
		DetailLinkSelector:  "a.detail",
		ConsolePrefix:       DefaultConsolePrefix,
	}.WithTimings(300*time.Millisecond, 0)
}

type agentPage struct {
	t    *testing.T
	ctx  context.Context
	pc   *surface.PageContext
	base string
}

func newAgentPage(t *testing.T) *agentPage {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, feedFixture)
	}))
	t.Cleanup(srv.Close)

	manager := surface.NewSessionManager()
	require.NoError(t, manager.Initialize())
	t.Cleanup(func() { manager.Shutdown() })

	ctx := context.Background()
	pc, err := manager.Launch(ctx, "", surface.SessionOptions{Headless: true})
	require.NoError(t, err)

	return &agentPage{t: t, ctx: ctx, pc: pc, base: srv.URL}
}

// load opens path and installs a fresh agent.
func (p *agentPage) load(path string) {
	p.t.Helper()
	require.NoError(p.t, p.pc.Navigate(p.ctx, p.base+path))
	var res InstallResult
	require.NoError(p.t, surface.EvaluateInto(p.ctx, p.pc, AgentScript(), browserAgentConfig(), &res))
	require.True(p.t, res.Installed)
}

func (p *agentPage) snapshot() types.HoverState {
	p.t.Helper()
	s, err := Snapshot(p.ctx, p.pc)
	require.NoError(p.t, err)
	return s
}

func (p *agentPage) eval(script string) any {
	p.t.Helper()
	v, err := p.pc.Evaluate(p.ctx, script, nil)
	require.NoError(p.t, err)
	return v
}

func (p *agentPage) highlighted(id string) bool {
	p.t.Helper()
	return p.eval(`() => document.getElementById('`+id+`').classList.contains('hp-active')`) == true
}

func (p *agentPage) moveTo(x, y float64) {
	p.t.Helper()
	require.NoError(p.t, p.pc.SendPointerEvent(p.ctx, surface.PointerMove, x, y))
}

func TestAgent_InBrowser(t *testing.T) {
	p := newAgentPage(t)
	page := p.pc.Page()

	t.Run("installs once", func(t *testing.T) {
		p.load("/home")
		var res InstallResult
		require.NoError(t, surface.EvaluateInto(p.ctx, p.pc, AgentScript(), browserAgentConfig(), &res))
		assert.False(t, res.Installed)

		n, err := AgentListeners(p.ctx, p.pc)
		require.NoError(t, err)
		assert.Equal(t, res.Listeners, n)
		assert.True(t, p.snapshot().HelperReady)
	})

	t.Run("modifier tracking ignores auto-repeat", func(t *testing.T) {
		p.load("/home")

		p.eval(`() => window.dispatchEvent(new KeyboardEvent('keydown', { key: 'Control', repeat: true }))`)
		assert.False(t, p.snapshot().CtrlHeld)

		require.NoError(t, page.Keyboard().Down("Control"))
		assert.True(t, p.snapshot().CtrlHeld)
		require.NoError(t, page.Keyboard().Up("Control"))
		assert.False(t, p.snapshot().CtrlHeld)

		require.NoError(t, page.Keyboard().Down("Control"))
		p.eval(`() => window.dispatchEvent(new Event('blur'))`)
		assert.False(t, p.snapshot().CtrlHeld)
		require.NoError(t, page.Keyboard().Up("Control"))
	})

	t.Run("text only over a qualifying entity", func(t *testing.T) {
		p.load("/home")

		p.moveTo(40, 20)
		s := p.snapshot()
		require.NotNil(t, s.Text)
		assert.Equal(t, "A post long enough to qualify", *s.Text)

		p.moveTo(40, 220)
		assert.Nil(t, p.snapshot().Text, "entity text shorter than five characters")

		p.moveTo(40, 20)
		require.NotNil(t, p.snapshot().Text)
		p.moveTo(40, 420)
		assert.Nil(t, p.snapshot().Text, "pointer outside every entity")

		p.moveTo(40, 20)
		p.eval(`() => document.documentElement.dispatchEvent(new MouseEvent('mouseleave'))`)
		assert.Nil(t, p.snapshot().Text, "leaving the document clears at once")
	})

	t.Run("highlight follows held and hover", func(t *testing.T) {
		p.load("/home")
		p.moveTo(40, 20)
		assert.False(t, p.highlighted("long"))

		require.NoError(t, page.Keyboard().Down("Control"))
		assert.True(t, p.highlighted("long"))
		require.NoError(t, page.Keyboard().Up("Control"))
		assert.False(t, p.highlighted("long"))

		require.NoError(t, PushHeld(p.ctx, p.pc, true))
		s := p.snapshot()
		assert.True(t, s.HostHeld)
		assert.False(t, s.CtrlHeld, "host hold never touches the page's own keys")
		assert.True(t, p.highlighted("long"))

		require.NoError(t, PushHeld(p.ctx, p.pc, false))
		assert.False(t, p.snapshot().HostHeld)
		assert.False(t, p.highlighted("long"))
	})

	t.Run("click interception", func(t *testing.T) {
		p.load("/home")

		require.NoError(t, page.Click("#long .like"))
		assert.Nil(t, p.snapshot().PendingNavigation, "excluded control")

		require.NoError(t, page.Click("#long .text"))
		intent, err := TakeNavigation(p.ctx, p.pc)
		require.NoError(t, err)
		require.NotNil(t, intent)
		assert.Equal(t, p.base+"/alice/status/1", intent.Href)
		assert.Equal(t, p.base+"/home", intent.From)
		assert.Equal(t, "#long", intent.TriggerSelector)

		again, err := TakeNavigation(p.ctx, p.pc)
		require.NoError(t, err)
		assert.Nil(t, again)
		assert.Equal(t, p.base+"/home", p.pc.URL(), "default navigation was cancelled")
	})

	t.Run("no interception outside listings", func(t *testing.T) {
		p.load("/settings")
		require.NoError(t, page.Click("#long .text"))
		assert.Nil(t, p.snapshot().PendingNavigation)
	})

	t.Run("paste request times out to no data", func(t *testing.T) {
		p.load("/home")

		var mu sync.Mutex
		requests := 0
		stop := p.pc.OnConsole(func(text string) {
			if strings.HasPrefix(text, DefaultConsolePrefix) {
				mu.Lock()
				requests++
				mu.Unlock()
			}
		})
		defer stop()

		start := time.Now()
		got := p.eval(`() => {
			const api = window.__hoverpilot;
			const first = api.pasteInto();
			const second = api.pasteInto();
			return Promise.all([first, second]);
		}`)
		assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
		assert.Equal(t, []any{"", ""}, got)

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return requests == 1
		}, time.Second, 10*time.Millisecond, "in-flight guard allows one request")
	})

	t.Run("paste request answered by the host", func(t *testing.T) {
		p.load("/home")
		require.NoError(t, page.Focus("#box"))

		stop := p.pc.OnConsole(func(text string) {
			payload, ok := strings.CutPrefix(text, DefaultConsolePrefix)
			if !ok {
				return
			}
			var req types.PasteRequest
			if json.Unmarshal([]byte(payload), &req) != nil {
				return
			}
			ResolvePaste(p.ctx, p.pc, types.PasteResponse{RequestID: req.RequestID, Kind: types.PasteKindText, Payload: "from the host"})
		})
		defer stop()

		kind, err := PasteInto(p.ctx, p.pc)
		require.NoError(t, err)
		assert.Equal(t, types.PasteKindText, kind)
		assert.Equal(t, "from the host", p.eval(`() => document.getElementById('box').value`))
	})

	t.Run("teardown removes everything", func(t *testing.T) {
		p.load("/home")
		require.NoError(t, page.Keyboard().Down("Control"))
		p.moveTo(40, 20)
		require.True(t, p.highlighted("long"))

		p.eval(TeardownScript)
		require.NoError(t, page.Keyboard().Up("Control"))

		ready, err := IsReady(p.ctx, p.pc)
		require.NoError(t, err)
		assert.False(t, ready)
		assert.False(t, p.highlighted("long"))

		_, err = Snapshot(p.ctx, p.pc)
		assert.ErrorIs(t, err, ErrNotReady)
	})
}
