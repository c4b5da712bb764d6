package pwaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// EngineName identifies this engine in events and reports.
const EngineName = "playwright"

// DefaultScreenshotDir is where TakeScreenshot writes when no directory is set.
const DefaultScreenshotDir = "screenshots"

var (
	_ uiaction.BrowserAction = (*Action)(nil)
	_ uiaction.Tracer        = (*Action)(nil)
)

// Action is a uiaction.BrowserAction bound to one Playwright page.
//
// Playwright calls do not observe a context. Each method checks ctx before it
// calls into the driver and caps the Playwright timeout at the ctx deadline,
// so deadlines are honored. A cancellation that arrives while a call is in
// flight is only noticed once that call returns or hits its timeout.
type Action struct {
	page    playwright.Page
	context playwright.BrowserContext
	browser playwright.Browser

	pageScope    *uiaction.Scope
	contextScope *uiaction.Scope
	browserScope *uiaction.Scope

	timeouts      *uiaction.TimeoutSettings
	rec           *uiaction.Recorder
	screenshotDir string

	// set while the context records a trace
	tracing atomic.Bool
}

// Option configures an Action.
type Option func(*Action)

// WithSink sets the event sink. The default discards events.
func WithSink(sink uiaction.EventSink) Option {
	return func(a *Action) {
		a.rec = uiaction.NewRecorder(EngineName, sink)
	}
}

// WithTimeouts sets the default timeouts.
func WithTimeouts(ts *uiaction.TimeoutSettings) Option {
	return func(a *Action) {
		if ts != nil {
			a.timeouts = ts
		}
	}
}

// WithScreenshotDir sets the directory TakeScreenshot writes to.
func WithScreenshotDir(dir string) Option {
	return func(a *Action) {
		if dir != "" {
			a.screenshotDir = dir
		}
	}
}

// New binds an Action to page. The context and browser are discovered from the
// page; the browser may be nil for persistent contexts.
func New(page playwright.Page, opts ...Option) *Action {
	a := &Action{
		page:          page,
		timeouts:      uiaction.NewTimeoutSettings(nil),
		rec:           uiaction.NewRecorder(EngineName, nil),
		screenshotDir: DefaultScreenshotDir,
	}
	a.pageScope, a.contextScope, a.browserScope = uiaction.NewScopeChain()

	if page != nil {
		a.context = page.Context()
	}
	if a.context != nil {
		a.browser = a.context.Browser()
	}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Page returns the underlying Playwright page.
func (a *Action) Page() playwright.Page {
	return a.page
}

func ms(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

// budget resolves the effective timeout for one call.
func (a *Action) budget(ctx context.Context, op string, kind uiaction.TimeoutKind, override time.Duration) (time.Duration, error) {
	d, err := uiaction.Budget(ctx, a.timeouts.Resolve(kind, override))
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, &uiaction.TimeoutError{Op: op, Err: err}
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return d, nil
}

// prepare resolves t, verifies its scope is open and computes the timeout.
func (a *Action) prepare(ctx context.Context, op string, t uiaction.Target, kind uiaction.TimeoutKind, override time.Duration, start time.Time) (*handle, failure, error) {
	f := failure{op: op, target: uiaction.Describe(t), start: start}

	h, err := uiaction.Resolve(t, a.fromQuery)
	if err != nil {
		return nil, f, fmt.Errorf("%s: %w", op, err)
	}
	if h.err != nil {
		return nil, f, fmt.Errorf("%s %q: %w", op, h.desc, h.err)
	}
	if err := h.scope.Err(op, t); err != nil {
		return nil, f, err
	}

	f.timeout, err = a.budget(ctx, op, kind, override)
	if err != nil {
		return nil, f, err
	}
	return h, f, nil
}

// Click clicks the single element t resolves to.
func (a *Action) Click(ctx context.Context, t uiaction.Target, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("click", t, start, err) }()

	h, f, err := a.prepare(ctx, "click", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.actionError(f, h.loc.Click(playwright.LocatorClickOptions{Timeout: ms(f.timeout)}))
}

// Fill replaces the value of an input, textarea or contenteditable element.
func (a *Action) Fill(ctx context.Context, t uiaction.Target, text string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("fill", t, start, err) }()

	h, f, err := a.prepare(ctx, "fill", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.actionError(f, h.loc.Fill(text, playwright.LocatorFillOptions{Timeout: ms(f.timeout)}))
}

// Type focuses the element and sends a keydown/keypress/keyup sequence for
// every character of text.
func (a *Action) Type(ctx context.Context, t uiaction.Target, text string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("type", t, start, err) }()

	h, f, err := a.prepare(ctx, "type", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.actionError(f, h.loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: ms(f.timeout)}))
}

func (a *Action) Press(ctx context.Context, t uiaction.Target, key string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("press", t, start, err) }()

	h, f, err := a.prepare(ctx, "press", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.actionError(f, h.loc.Press(key, playwright.LocatorPressOptions{Timeout: ms(f.timeout)}))
}

func (a *Action) SelectOption(ctx context.Context, t uiaction.Target, value string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("selectOption", t, start, err) }()

	h, f, err := a.prepare(ctx, "selectOption", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	values := []string{value}
	_, err = h.loc.SelectOption(
		playwright.SelectOptionValues{Values: &values},
		playwright.LocatorSelectOptionOptions{Timeout: ms(f.timeout)},
	)
	return a.actionError(f, err)
}

func (a *Action) ScrollToElement(ctx context.Context, t uiaction.Target, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("scrollToElement", t, start, err) }()

	h, f, err := a.prepare(ctx, "scrollToElement", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.actionError(f, h.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{Timeout: ms(f.timeout)}))
}

func (a *Action) waitFor(ctx context.Context, op string, t uiaction.Target, state *playwright.WaitForSelectorState, condition string, opts []uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record(op, t, start, err) }()

	h, f, err := a.prepare(ctx, op, t, uiaction.TimeoutWait, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.waitError(f, condition, h.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   state,
		Timeout: ms(f.timeout),
	}))
}

// WaitForVisible waits until t is visible.
func (a *Action) WaitForVisible(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return a.waitFor(ctx, "waitForVisible", t, playwright.WaitForSelectorStateVisible, uiaction.ConditionVisible, opts)
}

// WaitForHidden waits until t is hidden or detached.
func (a *Action) WaitForHidden(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return a.waitFor(ctx, "waitForHidden", t, playwright.WaitForSelectorStateHidden, uiaction.ConditionHidden, opts)
}

// WaitForElement waits for t to be attached and then visible. Both phases
// share one timeout.
func (a *Action) WaitForElement(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("waitForElement", t, start, err) }()

	h, f, err := a.prepare(ctx, "waitForElement", t, uiaction.TimeoutWait, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}

	// Attached
	err = h.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: ms(f.timeout),
	})
	if err != nil {
		return a.waitError(f, uiaction.ConditionAttached, err)
	}

	// Visible, with whatever budget is left
	left := f.timeout - a.rec.Now().Sub(start)
	if left < time.Millisecond {
		left = time.Millisecond
	}
	return a.waitError(f, uiaction.ConditionVisible, h.loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms(left),
	}))
}

// requireMatch fails with a NotActionableError when h matches nothing.
func (a *Action) requireMatch(f failure, h *handle) error {
	n, err := h.loc.Count()
	if err != nil {
		return a.waitError(f, "", err)
	}
	if n == 0 {
		return &uiaction.NotActionableError{Op: f.op, Target: f.target, Count: 0, Reason: "no matching element"}
	}
	return nil
}

// Text returns the rendered text of the first element t matches.
func (a *Action) Text(ctx context.Context, t uiaction.Target) (text string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("text", t, start, err) }()

	h, f, err := a.prepare(ctx, "text", t, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	if err := a.requireMatch(f, h); err != nil {
		return "", err
	}
	text, err = h.loc.First().InnerText(playwright.LocatorInnerTextOptions{Timeout: ms(f.timeout)})
	if err != nil {
		return "", a.waitError(f, uiaction.ConditionAttached, err)
	}
	return text, nil
}

// Count returns the number of elements t currently matches.
func (a *Action) Count(ctx context.Context, t uiaction.Target) (n int, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("count", t, start, err) }()

	h, f, err := a.prepare(ctx, "count", t, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return 0, err
	}
	n, err = h.loc.Count()
	if err != nil {
		return 0, a.waitError(f, "", err)
	}
	return n, nil
}

// attributeScript reads an attribute, preferring the live property for
// "value" so freshly filled form controls report what the user typed.
const attributeScript = `(el, name) => {
	if (name === "value" && "value" in el) return [String(el.value), true];
	return el.hasAttribute(name) ? [el.getAttribute(name), true] : ["", false];
}`

// Attribute returns the named attribute of the first element t matches.
func (a *Action) Attribute(ctx context.Context, t uiaction.Target, name string) (value string, ok bool, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("attribute", t, start, err) }()

	h, f, err := a.prepare(ctx, "attribute", t, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", false, err
	}
	if err := a.requireMatch(f, h); err != nil {
		return "", false, err
	}

	res, err := h.loc.First().Evaluate(attributeScript, name, playwright.LocatorEvaluateOptions{Timeout: ms(f.timeout)})
	if err != nil {
		return "", false, a.waitError(f, uiaction.ConditionAttached, err)
	}
	return decodeAttribute(res)
}

func decodeAttribute(res interface{}) (string, bool, error) {
	pair, ok := res.([]interface{})
	if !ok || len(pair) != 2 {
		return "", false, fmt.Errorf("attribute: unexpected result %T", res)
	}
	value, _ := pair[0].(string)
	present, _ := pair[1].(bool)
	return value, present, nil
}

// Navigate loads url and waits for the load event. Relative URLs resolve
// against the context base URL.
func (a *Action) Navigate(ctx context.Context, url string, opts ...uiaction.WaitOptions) error {
	return a.navigate(ctx, "navigate", url, opts)
}

func (a *Action) OpenURL(ctx context.Context, url string, opts ...uiaction.WaitOptions) error {
	return a.navigate(ctx, "openUrl", url, opts)
}

// pageOp starts a page-level operation: it checks the page scope and computes
// the navigation timeout.
func (a *Action) pageOp(ctx context.Context, op, target string, kind uiaction.TimeoutKind, override time.Duration, start time.Time) (failure, error) {
	f := failure{op: op, target: target, start: start}
	if err := a.pageScope.Err(op, nil); err != nil {
		return f, err
	}
	d, err := a.budget(ctx, op, kind, override)
	if err != nil {
		return f, err
	}
	f.timeout = d
	return f, nil
}

func (a *Action) navigate(ctx context.Context, op, url string, opts []uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record(op, uiaction.Query(url), start, err) }()

	f, err := a.pageOp(ctx, op, url, uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	_, err = a.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   ms(f.timeout),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return a.navigationError(f, err)
}

func (a *Action) RefreshPage(ctx context.Context, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("refreshPage", nil, start, err) }()

	f, err := a.pageOp(ctx, "refreshPage", a.page.URL(), uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	_, err = a.page.Reload(playwright.PageReloadOptions{
		Timeout:   ms(f.timeout),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return a.navigationError(f, err)
}

// GoBack navigates to the previous history entry. It is a no-op when there is none.
func (a *Action) GoBack(ctx context.Context, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("goBack", nil, start, err) }()

	f, err := a.pageOp(ctx, "goBack", "", uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	_, err = a.page.GoBack(playwright.PageGoBackOptions{
		Timeout:   ms(f.timeout),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return a.navigationError(f, err)
}

// GoForward navigates to the next history entry. It is a no-op when there is none.
func (a *Action) GoForward(ctx context.Context, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("goForward", nil, start, err) }()

	f, err := a.pageOp(ctx, "goForward", "", uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	_, err = a.page.GoForward(playwright.PageGoForwardOptions{
		Timeout:   ms(f.timeout),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return a.navigationError(f, err)
}

// WaitForPageLoad waits for the load event of the current document.
func (a *Action) WaitForPageLoad(ctx context.Context, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("waitForPageLoad", nil, start, err) }()

	f, err := a.pageOp(ctx, "waitForPageLoad", "", uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	return a.waitError(f, uiaction.ConditionLoad, a.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateLoad,
		Timeout: ms(f.timeout),
	}))
}

func (a *Action) PageTitle(ctx context.Context) (title string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("pageTitle", nil, start, err) }()

	f, err := a.pageOp(ctx, "pageTitle", "", uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	title, err = a.page.Title()
	if err != nil {
		return "", a.waitError(f, "", err)
	}
	return title, nil
}

func (a *Action) CurrentURL(ctx context.Context) (url string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("currentUrl", nil, start, err) }()

	if _, err := a.pageOp(ctx, "currentUrl", "", uiaction.TimeoutAction, 0, start); err != nil {
		return "", err
	}
	return a.page.URL(), nil
}

// TakeScreenshot writes a full-page PNG to <screenshot dir>/<name>.png.
func (a *Action) TakeScreenshot(ctx context.Context, name string) (path string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("takeScreenshot", uiaction.Query(name), start, err) }()

	f, err := a.pageOp(ctx, "takeScreenshot", name, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	path, err = uiaction.ScreenshotPath(a.screenshotDir, name)
	if err != nil {
		return "", fmt.Errorf("takeScreenshot: %w", err)
	}
	_, err = a.page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
		Timeout:  ms(f.timeout),
	})
	if err != nil {
		return "", a.waitError(f, "", err)
	}
	return path, nil
}

// StopTrace stops the trace started at launch and writes it to path as a
// Playwright trace archive. An empty path discards the recording.
func (a *Action) StopTrace(ctx context.Context, path string) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("stopTrace", uiaction.Query(path), start, err) }()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stopTrace: %w", err)
	}
	if err := a.contextScope.Err("stopTrace", nil); err != nil {
		return err
	}
	if a.context == nil || !a.tracing.CompareAndSwap(true, false) {
		return uiaction.ErrNotTracing
	}

	var paths []string
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("stopTrace: %w", err)
		}
		paths = append(paths, path)
	}
	if err := a.context.Tracing().Stop(paths...); err != nil {
		return fmt.Errorf("stopTrace: %w", err)
	}
	return nil
}

// closeScope marks s closed and runs release once. Release is skipped when an
// enclosing scope already closed, since the engine tore the resource down.
func closeScope(s *uiaction.Scope, release func() error) error {
	ancestorClosed := s.Parent().Closed()
	if !s.Close() || ancestorClosed || release == nil {
		return nil
	}
	if err := release(); err != nil && !errors.Is(err, playwright.ErrTargetClosed) {
		return err
	}
	return nil
}

// ClosePage closes the page. Handles created by this Action go stale.
func (a *Action) ClosePage(ctx context.Context) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("closePage", nil, start, err) }()

	if err := closeScope(a.pageScope, func() error { return a.page.Close() }); err != nil {
		return fmt.Errorf("close page: %w", err)
	}
	return nil
}

// CloseContext closes the browser context and every page in it.
func (a *Action) CloseContext(ctx context.Context) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("closeContext", nil, start, err) }()

	var release func() error
	if a.context != nil {
		release = func() error { return a.context.Close() }
	}
	if err := closeScope(a.contextScope, release); err != nil {
		return fmt.Errorf("close context: %w", err)
	}
	return nil
}

// CloseBrowser closes the browser process.
func (a *Action) CloseBrowser(ctx context.Context) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("closeBrowser", nil, start, err) }()

	var release func() error
	if a.browser != nil {
		release = func() error { return a.browser.Close() }
	}
	if err := closeScope(a.browserScope, release); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
