// Package cdpaction implements uiaction.BrowserAction directly over the Chrome
// DevTools Protocol using chromedp.
//
// Query strings are CSS selectors. Handles are JSON query descriptors that an
// injected resolver script evaluates in the page on every use, so nothing is
// cached across navigations. Waits poll the element state every
// PollInterval until the condition holds or the per-call deadline passes.
//
// Scopes map onto chromedp contexts: the page is the tab context, the context
// is the chromedp browser context and the browser is the exec allocator.
// Closing the context scope therefore ends the browser session; closing the
// browser scope also removes the temporary profile directory.
package cdpaction
