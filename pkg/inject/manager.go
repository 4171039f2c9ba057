package inject

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/hoverpilot/pkg/logging"
	"github.com/entrhq/hoverpilot/pkg/surface"
	"github.com/entrhq/hoverpilot/pkg/types"
)

// DefaultCallTimeout bounds a single installation or probe round trip.
const DefaultCallTimeout = 3 * time.Second

// NavigateHook is called after a context reports a main-frame navigation and
// the agent has been ensured for the new location.
type NavigateHook func(c surface.Context, url string)

// handle is the InjectionState of one context: its lifecycle state plus every
// host-side listener registered against it.
type handle struct {
	ctx            surface.Context
	state          State
	unsubs         []func()
	agentListeners int
}

// Manager keeps the agent installed exactly once in each attached context.
type Manager struct {
	mu          sync.Mutex
	cfg         AgentConfig
	handles     map[types.SourceContext]*handle
	onNavigate  NavigateHook
	callTimeout time.Duration
	logger      *logging.Logger
}

// NewManager creates a manager that installs the agent with cfg.
func NewManager(cfg AgentConfig, logger *logging.Logger) *Manager {
	return &Manager{
		cfg:         cfg,
		handles:     make(map[types.SourceContext]*handle),
		callTimeout: DefaultCallTimeout,
		logger:      logging.OrDiscard(logger),
	}
}

// OnNavigate sets the hook run after main-frame navigations.
func (m *Manager) OnNavigate(hook NavigateHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNavigate = hook
}

// Attach takes ownership of c for its role. When a different context already
// holds that role, the old one is detached first so none of its listeners
// survive. Attaching the same context again is a no-op apart from ensuring
// the agent.
func (m *Manager) Attach(ctx context.Context, c surface.Context) error {
	role := c.Role()

	m.mu.Lock()
	old := m.handles[role]
	if old != nil && old.ctx.ID() == c.ID() {
		m.mu.Unlock()
		return m.Ensure(ctx, role)
	}
	if old != nil {
		delete(m.handles, role)
	}
	h := &handle{ctx: c, state: StateUninitialized}
	m.handles[role] = h
	m.mu.Unlock()

	if old != nil {
		m.logger.Infof("Replacing %s context %s with %s", role, old.ctx.ID(), c.ID())
		m.release(ctx, old)
	}

	id := c.ID()
	m.Track(role, c.OnLoad(func() { m.handleLoad(role, id) }))
	m.Track(role, c.OnNavigated(func(url string) { m.handleNavigated(role, id, url) }))

	return m.Ensure(ctx, role)
}

// Track registers an unsubscribe function owned by the context in role. It
// runs when that context is detached or replaced. With no context attached
// it runs immediately.
func (m *Manager) Track(role types.SourceContext, unsubscribe func()) {
	m.mu.Lock()
	h := m.handles[role]
	if h == nil {
		m.mu.Unlock()
		unsubscribe()
		return
	}
	h.unsubs = append(h.unsubs, unsubscribe)
	m.mu.Unlock()
}

// Ensure installs the agent in the context for role unless it is already
// ready or an installation is in progress.
func (m *Manager) Ensure(ctx context.Context, role types.SourceContext) error {
	m.mu.Lock()
	h := m.handles[role]
	if h == nil {
		m.mu.Unlock()
		return fmt.Errorf("no %s context attached", role)
	}
	if h.state != StateUninitialized {
		m.mu.Unlock()
		return nil
	}
	h.state = StateInitializing
	m.mu.Unlock()

	return m.install(ctx, role, h)
}

// Inject runs the installer in the context for role regardless of state. The
// agent's own ready flag makes a repeated installation a no-op.
func (m *Manager) Inject(ctx context.Context, role types.SourceContext) error {
	m.mu.Lock()
	h := m.handles[role]
	if h == nil {
		m.mu.Unlock()
		return fmt.Errorf("no %s context attached", role)
	}
	h.state = StateInitializing
	m.mu.Unlock()

	return m.install(ctx, role, h)
}

func (m *Manager) install(ctx context.Context, role types.SourceContext, h *handle) error {
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()

	m.mu.Lock()
	cfg := m.cfg.ForRole(role)
	m.mu.Unlock()

	var res InstallResult
	err := surface.EvaluateInto(ctx, h.ctx, AgentScript(), cfg, &res)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handles[role] != h {
		// Replaced while installing; the new handle has its own lifecycle.
		return nil
	}
	if err != nil {
		h.state = StateUninitialized
		m.logger.Debugf("Injection into %s context failed, will retry: %v", role, err)
		return fmt.Errorf("failed to inject agent: %w", err)
	}

	h.state = StateReady
	h.agentListeners = res.Listeners
	if res.Installed {
		m.logger.Infof("Agent installed in %s context (%d listeners)", role, res.Listeners)
	}
	return nil
}

// SetConfig replaces the agent configuration and pushes it to every ready
// context.
func (m *Manager) SetConfig(ctx context.Context, cfg AgentConfig) {
	m.mu.Lock()
	m.cfg = cfg
	roles := make([]types.SourceContext, 0, len(m.handles))
	for role := range m.handles {
		roles = append(roles, role)
	}
	m.mu.Unlock()

	for _, role := range roles {
		if err := m.Inject(ctx, role); err != nil {
			m.logger.Warnf("Failed to reconfigure %s context: %v", role, err)
		}
	}
}

// MarkStale flags the context for reinstallation on the next Ensure or
// health check.
func (m *Manager) MarkStale(role types.SourceContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h := m.handles[role]; h != nil && h.state == StateReady {
		h.state = StateUninitialized
	}
}

// State returns the lifecycle state for role.
func (m *Manager) State(role types.SourceContext) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h := m.handles[role]; h != nil {
		return h.state
	}
	return StateUninitialized
}

// Ready reports whether the context for role is ready.
func (m *Manager) Ready(role types.SourceContext) bool {
	return m.State(role) == StateReady
}

// Context returns the context attached for role, or nil.
func (m *Manager) Context(role types.SourceContext) surface.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h := m.handles[role]; h != nil {
		return h.ctx
	}
	return nil
}

// ReadyContexts returns the ready contexts, primary first.
func (m *Manager) ReadyContexts() []surface.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []surface.Context
	for _, role := range []types.SourceContext{types.SourcePrimary, types.SourceSecondary} {
		if h := m.handles[role]; h != nil && h.state == StateReady && !h.ctx.Closed() {
			out = append(out, h.ctx)
		}
	}
	return out
}

// ListenerCount returns the host-side listeners registered for role.
func (m *Manager) ListenerCount(role types.SourceContext) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h := m.handles[role]; h != nil {
		return len(h.unsubs)
	}
	return 0
}

// AgentListenerCount returns the DOM listener count reported by the last
// installation in role.
func (m *Manager) AgentListenerCount(role types.SourceContext) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h := m.handles[role]; h != nil {
		return h.agentListeners
	}
	return 0
}

// HealthCheck probes every ready context's ready flag and reinstalls the
// agent where it was lost. Closed contexts are detached. Failures are logged
// and retried on the next call.
func (m *Manager) HealthCheck(ctx context.Context) {
	m.mu.Lock()
	handles := make(map[types.SourceContext]*handle, len(m.handles))
	for role, h := range m.handles {
		handles[role] = h
	}
	m.mu.Unlock()

	for role, h := range handles {
		if h.ctx.Closed() {
			m.logger.Infof("%s context closed, detaching", role)
			m.detachHandle(ctx, role, h)
			continue
		}

		if m.State(role) == StateReady {
			probeCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
			ready, err := IsReady(probeCtx, h.ctx)
			cancel()
			if err == nil && ready {
				continue
			}
			if errors.Is(err, surface.ErrContextClosed) {
				m.detachHandle(ctx, role, h)
				continue
			}
			m.logger.Warnf("%s context lost its agent (err=%v), reinjecting", role, err)
			m.MarkStale(role)
		}

		if err := m.Ensure(ctx, role); err != nil {
			m.logger.Debugf("Health check reinjection for %s deferred: %v", role, err)
		}
	}
}

// Detach releases the context in role: host listeners are unsubscribed and
// the agent is torn down if the document is still alive.
func (m *Manager) Detach(ctx context.Context, role types.SourceContext) {
	m.mu.Lock()
	h := m.handles[role]
	m.mu.Unlock()
	if h != nil {
		m.detachHandle(ctx, role, h)
	}
}

func (m *Manager) detachHandle(ctx context.Context, role types.SourceContext, h *handle) {
	m.mu.Lock()
	if m.handles[role] != h {
		m.mu.Unlock()
		return
	}
	delete(m.handles, role)
	m.mu.Unlock()

	m.release(ctx, h)
}

func (m *Manager) release(ctx context.Context, h *handle) {
	m.mu.Lock()
	unsubs := h.unsubs
	h.unsubs = nil
	h.state = StateUninitialized
	m.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}

	if h.ctx.Closed() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.callTimeout)
	defer cancel()
	if _, err := h.ctx.Evaluate(ctx, TeardownScript, nil); err != nil {
		m.logger.Debugf("Agent teardown in %s skipped: %v", h.ctx.ID(), err)
	}
}

func (m *Manager) current(role types.SourceContext, id string) *handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := m.handles[role]
	if h == nil || h.ctx.ID() != id {
		return nil
	}
	return h
}

func (m *Manager) handleLoad(role types.SourceContext, id string) {
	if m.current(role, id) == nil {
		return
	}
	m.mu.Lock()
	if h := m.handles[role]; h != nil && h.state == StateReady {
		h.state = StateUninitialized
	}
	m.mu.Unlock()

	if err := m.Ensure(context.Background(), role); err != nil {
		m.logger.Debugf("Load-triggered injection into %s failed: %v", role, err)
	}
}

func (m *Manager) handleNavigated(role types.SourceContext, id, url string) {
	h := m.current(role, id)
	if h == nil {
		return
	}

	ctx := context.Background()
	probeCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
	ready, err := IsReady(probeCtx, h.ctx)
	cancel()
	if err != nil || !ready {
		m.MarkStale(role)
	}
	if err := m.Ensure(ctx, role); err != nil {
		m.logger.Debugf("Navigation-triggered injection into %s failed: %v", role, err)
	}

	m.mu.Lock()
	hook := m.onNavigate
	m.mu.Unlock()
	if hook != nil {
		hook(h.ctx, url)
	}
}
