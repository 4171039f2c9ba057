// Package surface abstracts an embedded, sandboxed document the host can
// only reach through script evaluation.
//
// # Embedded Contexts
//
// A Context is one browsing surface: the primary feed or the secondary
// split panel. The host never touches its DOM directly. Every read is a
// script evaluation returning a JSON-compatible value, and every action is
// another evaluation. Contexts also expose subscriptions for load,
// navigation and console signals; each subscription returns an unsubscribe
// function so listeners can be removed explicitly when a context is replaced.
//
// # Capability Tiers
//
// Evaluate covers in-context simulated events. Contexts that are driven by
// the host additionally implement PointerInjector, which delivers real input
// through the browser's input pipeline for editors that ignore synthetic
// DOM events.
//
// # Playwright
//
// PageContext adapts a playwright.Page. SessionManager launches Chromium and
// owns the primary page plus an optional secondary page in the same browser
// context, so both share the user's login.
package surface
