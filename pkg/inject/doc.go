// Package inject installs and maintains the automation agent inside embedded
// contexts.
//
// The agent (agent.js) implements the in-context halves of the engine: the
// modifier key tracker, the hover entity resolver with its highlight, the
// click interceptor for split-panel navigation, the clipboard requester and
// a read-only snapshot API. Installation is idempotent: the agent sets a
// global ready flag on first run and a later run only swaps its
// configuration.
//
// Manager owns the per-context lifecycle (uninitialized, initializing,
// ready) and every host-side listener attached to a context. Reinstallation
// happens on load, on a failed health check and on main-frame navigation.
// Injection failures are logged and retried by the next health check.
package inject
