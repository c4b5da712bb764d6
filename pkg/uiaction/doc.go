// Package uiaction defines the engine-neutral contract page objects use to drive
// a browser.
//
// The package is built around four concepts:
//
//  1. Target: what an operation acts on. A Target is either a Query (a raw
//     selector string in the engine's selection language) or a Handle (an
//     engine-owned, lazily evaluated reference produced by a locator factory).
//  2. BrowserAction: the capability surface. Element actions, synchronization,
//     queries, page navigation, locator factories and scope teardown.
//  3. Scope: the page < context < browser lifecycle chain a BrowserAction is
//     bound to. Closing a scope makes every Handle it produced stale.
//  4. Errors: a small taxonomy (TimeoutError, NotActionableError,
//     StaleHandleError, NavigationError) that every engine translates into.
//
// # Target resolution
//
// Engines route every operation through Resolve. A Handle of the engine's own
// type passes through unchanged; a Query is wrapped into a new Handle without
// touching the document. Matching always happens inside the operation that
// consumes the Handle, so
//
//	a.Click(ctx, uiaction.Query("#login"))
//	a.Click(ctx, a.Locator("#login"))
//
// are indistinguishable to the caller.
//
// # Timeouts
//
// Every blocking operation accepts an optional per-call timeout. A zero value
// falls back to the instance's TimeoutSettings; an override never mutates the
// defaults. The context deadline, when earlier, caps the effective timeout.
//
// # Observability
//
// Engines report one Event per operation to an injected EventSink instead of
// printing. See package logging for the zap-backed sink.
//
// Two engines implement the contract: pwaction (Playwright) and cdpaction
// (Chrome DevTools Protocol via chromedp).
package uiaction
