package cdpaction

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// EngineName identifies this engine in events and reports.
const EngineName = "chromedp"

// DefaultPollInterval is how often waits re-check element state.
const DefaultPollInterval = 100 * time.Millisecond

var _ uiaction.BrowserAction = (*Action)(nil)

// Action is a uiaction.BrowserAction bound to one Chrome tab.
type Action struct {
	drv driver
	tab context.Context

	pageScope    *uiaction.Scope
	contextScope *uiaction.Scope
	browserScope *uiaction.Scope

	releasePage    func() error
	releaseContext func() error
	releaseBrowser func() error

	timeouts      *uiaction.TimeoutSettings
	rec           *uiaction.Recorder
	screenshotDir string
	baseURL       *url.URL
	interval      time.Duration
}

// elementState mirrors the resolver's state() result.
type elementState struct {
	Count   int  `json:"count"`
	Visible bool `json:"visible"`
}

// actionState mirrors the resolver's actionable() result.
type actionState struct {
	Count   int     `json:"count"`
	Visible bool    `json:"visible"`
	Enabled bool    `json:"enabled"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (s actionState) ready() bool {
	return s.Count == 1 && s.Visible && s.Enabled
}

func (s actionState) reason() string {
	switch {
	case s.Count == 0:
		return "no matching element"
	case s.Count > 1:
		return fmt.Sprintf("resolved to %d elements", s.Count)
	case !s.Visible:
		return "element is not visible"
	case !s.Enabled:
		return "element is disabled"
	default:
		return ""
	}
}

// failure carries what the translators need to build a taxonomy error.
type failure struct {
	op      string
	target  string
	timeout time.Duration
	start   time.Time
}

// operation bundles the derived context of one call.
type operation struct {
	failure
	ctx    context.Context
	caller context.Context
	cancel func()
}

// begin derives the operation context from the tab: it expires after the
// effective timeout and is cancelled when the caller's context is done.
func (a *Action) begin(ctx context.Context, f failure, kind uiaction.TimeoutKind, override time.Duration) (*operation, error) {
	d, err := uiaction.Budget(ctx, a.timeouts.Resolve(kind, override))
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &uiaction.TimeoutError{Op: f.op, Target: f.target, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.op, err)
	}
	f.timeout = d

	opCtx, cancel := context.WithTimeout(a.tab, d)
	stop := context.AfterFunc(ctx, cancel)
	return &operation{
		failure: f,
		ctx:     opCtx,
		caller:  ctx,
		cancel: func() {
			stop()
			cancel()
		},
	}, nil
}

func (a *Action) prepare(ctx context.Context, op string, t uiaction.Target, kind uiaction.TimeoutKind, override time.Duration, start time.Time) (*handle, *operation, error) {
	f := failure{op: op, target: uiaction.Describe(t), start: start}

	h, err := uiaction.Resolve(t, a.fromQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	if h.err != nil {
		return nil, nil, fmt.Errorf("%s %q: %w", op, h.desc, h.err)
	}
	if err := h.scope.Err(op, t); err != nil {
		return nil, nil, err
	}

	o, err := a.begin(ctx, f, kind, override)
	if err != nil {
		return nil, nil, err
	}
	return h, o, nil
}

func (a *Action) pageOp(ctx context.Context, op, target string, kind uiaction.TimeoutKind, override time.Duration, start time.Time) (*operation, error) {
	if err := a.pageScope.Err(op, nil); err != nil {
		return nil, err
	}
	return a.begin(ctx, failure{op: op, target: target, start: start}, kind, override)
}

// expired reports whether o ran out of time. The budget is capped by the
// caller's deadline, so a caller deadline firing first is a timeout too.
func (o *operation) expired() bool {
	if errors.Is(o.caller.Err(), context.DeadlineExceeded) {
		return true
	}
	return o.caller.Err() == nil && errors.Is(o.ctx.Err(), context.DeadlineExceeded)
}

func (a *Action) timeoutError(o *operation, condition string, err error) *uiaction.TimeoutError {
	return &uiaction.TimeoutError{
		Op:        o.op,
		Target:    o.target,
		Condition: condition,
		Timeout:   o.timeout,
		Elapsed:   a.rec.Now().Sub(o.start),
		Err:       err,
	}
}

// translate maps a failed operation onto the taxonomy. Stale scopes win over
// everything else because a closed tab surfaces as a cancelled context.
func (a *Action) translate(o *operation, condition string, err error) error {
	if err == nil {
		return nil
	}
	if kind, closed := a.pageScope.ClosedAt(); closed {
		return &uiaction.StaleHandleError{Op: o.op, Target: o.target, Scope: kind, Err: err}
	}
	if o.expired() {
		return a.timeoutError(o, condition, err)
	}
	if cerr := o.caller.Err(); cerr != nil {
		return fmt.Errorf("%s %q: %w", o.op, o.target, cerr)
	}
	var typed interface{ Code() string }
	if errors.As(err, &typed) {
		return err
	}
	return fmt.Errorf("%s %q: %w", o.op, o.target, err)
}

// poll evaluates check every interval until it reports done or the operation
// context ends. The ticker and context are released before returning.
func (a *Action) poll(o *operation, check func(ctx context.Context) (bool, error)) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		done, err := check(o.ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-o.ctx.Done():
			return o.ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitActionable polls until h resolves to exactly one visible, enabled
// element and returns its last observed state.
func (a *Action) waitActionable(h *handle, o *operation) (actionState, error) {
	var st actionState
	err := a.poll(o, func(ctx context.Context) (bool, error) {
		var cur actionState
		if err := a.drv.call(ctx, "actionable", h.q, nil, &cur); err != nil {
			return false, err
		}
		st = cur
		if st.Count > 1 {
			return false, &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: st.Count, Reason: st.reason()}
		}
		return st.ready(), nil
	})
	if err == nil {
		return st, nil
	}

	var na *uiaction.NotActionableError
	if errors.As(err, &na) {
		return st, err
	}
	translated := a.translate(o, conditionActionable, err)
	var te *uiaction.TimeoutError
	if errors.As(translated, &te) {
		return st, &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: st.Count, Reason: st.reason(), Err: te}
	}
	return st, translated
}

const conditionActionable = "actionable"

func (a *Action) Click(ctx context.Context, t uiaction.Target, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("click", t, start, err) }()

	h, o, err := a.prepare(ctx, "click", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	st, err := a.waitActionable(h, o)
	if err != nil {
		return err
	}
	return a.translate(o, conditionActionable, a.drv.click(o.ctx, st.X, st.Y))
}

// Fill replaces the element value in one step and fires input and change.
func (a *Action) Fill(ctx context.Context, t uiaction.Target, text string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("fill", t, start, err) }()

	h, o, err := a.prepare(ctx, "fill", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	if _, err := a.waitActionable(h, o); err != nil {
		return err
	}
	var ok bool
	if err := a.drv.call(o.ctx, "fill", h.q, text, &ok); err != nil {
		return a.translate(o, conditionActionable, err)
	}
	if !ok {
		return &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: 0, Reason: "element detached before fill"}
	}
	return nil
}

// focus waits for h to be actionable and focuses it.
func (a *Action) focus(h *handle, o *operation) error {
	if _, err := a.waitActionable(h, o); err != nil {
		return err
	}
	var ok bool
	if err := a.drv.call(o.ctx, "focus", h.q, nil, &ok); err != nil {
		return a.translate(o, conditionActionable, err)
	}
	if !ok {
		return &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: 0, Reason: "element detached before focus"}
	}
	return nil
}

// Type dispatches key events for every rune of text into the focused element.
func (a *Action) Type(ctx context.Context, t uiaction.Target, text string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("type", t, start, err) }()

	h, o, err := a.prepare(ctx, "type", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	if err := a.focus(h, o); err != nil {
		return err
	}
	return a.translate(o, conditionActionable, a.drv.sendKeys(o.ctx, text, 0))
}

func (a *Action) Press(ctx context.Context, t uiaction.Target, key string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("press", t, start, err) }()

	keys, mods, err := parseKey(key)
	if err != nil {
		return fmt.Errorf("press: %w", err)
	}
	h, o, err := a.prepare(ctx, "press", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	if err := a.focus(h, o); err != nil {
		return err
	}
	return a.translate(o, conditionActionable, a.drv.sendKeys(o.ctx, keys, mods))
}

func (a *Action) SelectOption(ctx context.Context, t uiaction.Target, value string, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("selectOption", t, start, err) }()

	h, o, err := a.prepare(ctx, "selectOption", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	if _, err := a.waitActionable(h, o); err != nil {
		return err
	}
	var ok bool
	if err := a.drv.call(o.ctx, "select", h.q, value, &ok); err != nil {
		return a.translate(o, conditionActionable, err)
	}
	if !ok {
		return &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: 1, Reason: fmt.Sprintf("no option %q", value)}
	}
	return nil
}

func (a *Action) ScrollToElement(ctx context.Context, t uiaction.Target, opts ...uiaction.ActionOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("scrollToElement", t, start, err) }()

	h, o, err := a.prepare(ctx, "scrollToElement", t, uiaction.TimeoutAction, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	err = a.poll(o, func(ctx context.Context) (bool, error) {
		var ok bool
		err := a.drv.call(ctx, "scroll", h.q, nil, &ok)
		return ok, err
	})
	if err == nil {
		return nil
	}
	translated := a.translate(o, uiaction.ConditionAttached, err)
	var te *uiaction.TimeoutError
	if errors.As(translated, &te) {
		return &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: 0, Reason: "no matching element", Err: te}
	}
	return translated
}

// waitState polls the element state until cond holds.
func (a *Action) waitState(ctx context.Context, op string, t uiaction.Target, condition string, cond func(elementState) bool, opts []uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record(op, t, start, err) }()

	h, o, err := a.prepare(ctx, op, t, uiaction.TimeoutWait, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	err = a.poll(o, func(ctx context.Context) (bool, error) {
		var st elementState
		if err := a.drv.call(ctx, "state", h.q, nil, &st); err != nil {
			return false, err
		}
		return cond(st), nil
	})
	return a.translate(o, condition, err)
}

func (a *Action) WaitForVisible(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return a.waitState(ctx, "waitForVisible", t, uiaction.ConditionVisible,
		func(st elementState) bool { return st.Visible }, opts)
}

func (a *Action) WaitForHidden(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return a.waitState(ctx, "waitForHidden", t, uiaction.ConditionHidden,
		func(st elementState) bool { return !st.Visible }, opts)
}

// WaitForElement waits until the element exists and is visible. Visibility
// implies attachment, so a single poll covers both phases.
func (a *Action) WaitForElement(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return a.waitState(ctx, "waitForElement", t, uiaction.ConditionVisible,
		func(st elementState) bool { return st.Count > 0 && st.Visible }, opts)
}

// requireMatch fails with a NotActionableError when h matches nothing.
func (a *Action) requireMatch(h *handle, o *operation) error {
	var n int
	if err := a.drv.call(o.ctx, "count", h.q, nil, &n); err != nil {
		return a.translate(o, "", err)
	}
	if n == 0 {
		return &uiaction.NotActionableError{Op: o.op, Target: o.target, Count: 0, Reason: "no matching element"}
	}
	return nil
}

func (a *Action) Text(ctx context.Context, t uiaction.Target) (text string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("text", t, start, err) }()

	h, o, err := a.prepare(ctx, "text", t, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	defer o.cancel()

	if err := a.requireMatch(h, o); err != nil {
		return "", err
	}
	if err := a.drv.call(o.ctx, "text", h.q, nil, &text); err != nil {
		return "", a.translate(o, "", err)
	}
	return text, nil
}

func (a *Action) Count(ctx context.Context, t uiaction.Target) (n int, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("count", t, start, err) }()

	h, o, err := a.prepare(ctx, "count", t, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return 0, err
	}
	defer o.cancel()

	if err := a.drv.call(o.ctx, "count", h.q, nil, &n); err != nil {
		return 0, a.translate(o, "", err)
	}
	return n, nil
}

func (a *Action) Attribute(ctx context.Context, t uiaction.Target, name string) (value string, ok bool, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("attribute", t, start, err) }()

	h, o, err := a.prepare(ctx, "attribute", t, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", false, err
	}
	defer o.cancel()

	if err := a.requireMatch(h, o); err != nil {
		return "", false, err
	}
	var pair [2]any
	if err := a.drv.call(o.ctx, "attribute", h.q, name, &pair); err != nil {
		return "", false, a.translate(o, "", err)
	}
	value, _ = pair[0].(string)
	ok, _ = pair[1].(bool)
	return value, ok, nil
}

// resolveURL resolves ref against the base URL when one is configured.
func (a *Action) resolveURL(ref string) (string, error) {
	if a.baseURL == nil {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return a.baseURL.ResolveReference(u).String(), nil
}

func (a *Action) Navigate(ctx context.Context, rawURL string, opts ...uiaction.WaitOptions) error {
	return a.navigate(ctx, "navigate", rawURL, opts)
}

func (a *Action) OpenURL(ctx context.Context, rawURL string, opts ...uiaction.WaitOptions) error {
	return a.navigate(ctx, "openUrl", rawURL, opts)
}

func (a *Action) navigationError(o *operation, err error) error {
	if err == nil {
		return nil
	}
	translated := a.translate(o, uiaction.ConditionLoad, err)
	if errors.Is(translated, uiaction.ErrStaleHandle) || errors.Is(o.caller.Err(), context.Canceled) {
		return translated
	}
	var te *uiaction.TimeoutError
	if errors.As(translated, &te) {
		return &uiaction.NavigationError{Op: o.op, URL: o.target, Err: te}
	}
	return &uiaction.NavigationError{Op: o.op, URL: o.target, Err: err}
}

func (a *Action) navigate(ctx context.Context, op, rawURL string, opts []uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record(op, uiaction.Query(rawURL), start, err) }()

	target, err := a.resolveURL(rawURL)
	if err != nil {
		return &uiaction.NavigationError{Op: op, URL: rawURL, Err: err}
	}
	o, err := a.pageOp(ctx, op, target, uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	return a.navigationError(o, a.drv.navigate(o.ctx, target))
}

func (a *Action) RefreshPage(ctx context.Context, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("refreshPage", nil, start, err) }()

	o, err := a.pageOp(ctx, "refreshPage", "", uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()
	return a.navigationError(o, a.drv.reload(o.ctx))
}

func (a *Action) traverse(ctx context.Context, op string, delta int, opts []uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record(op, nil, start, err) }()

	o, err := a.pageOp(ctx, op, "", uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()
	return a.navigationError(o, a.drv.history(o.ctx, delta))
}

// GoBack is a no-op when there is no previous history entry.
func (a *Action) GoBack(ctx context.Context, opts ...uiaction.WaitOptions) error {
	return a.traverse(ctx, "goBack", -1, opts)
}

// GoForward is a no-op when there is no next history entry.
func (a *Action) GoForward(ctx context.Context, opts ...uiaction.WaitOptions) error {
	return a.traverse(ctx, "goForward", 1, opts)
}

// WaitForPageLoad polls document.readyState until it is "complete".
func (a *Action) WaitForPageLoad(ctx context.Context, opts ...uiaction.WaitOptions) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("waitForPageLoad", nil, start, err) }()

	o, err := a.pageOp(ctx, "waitForPageLoad", "", uiaction.TimeoutNavigation, uiaction.First(opts).Timeout, start)
	if err != nil {
		return err
	}
	defer o.cancel()

	err = a.poll(o, func(ctx context.Context) (bool, error) {
		var state string
		err := a.drv.call(ctx, "readyState", nil, nil, &state)
		return state == "complete", err
	})
	return a.translate(o, uiaction.ConditionLoad, err)
}

func (a *Action) PageTitle(ctx context.Context) (title string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("pageTitle", nil, start, err) }()

	o, err := a.pageOp(ctx, "pageTitle", "", uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	defer o.cancel()

	title, err = a.drv.title(o.ctx)
	if err != nil {
		return "", a.translate(o, "", err)
	}
	return title, nil
}

func (a *Action) CurrentURL(ctx context.Context) (u string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("currentUrl", nil, start, err) }()

	o, err := a.pageOp(ctx, "currentUrl", "", uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	defer o.cancel()

	u, err = a.drv.location(o.ctx)
	if err != nil {
		return "", a.translate(o, "", err)
	}
	return u, nil
}

func (a *Action) TakeScreenshot(ctx context.Context, name string) (path string, err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("takeScreenshot", uiaction.Query(name), start, err) }()

	o, err := a.pageOp(ctx, "takeScreenshot", name, uiaction.TimeoutAction, 0, start)
	if err != nil {
		return "", err
	}
	defer o.cancel()

	buf, err := a.drv.screenshot(o.ctx)
	if err != nil {
		return "", a.translate(o, "", err)
	}
	path, err = uiaction.ScreenshotPath(a.screenshotDir, name)
	if err != nil {
		return "", fmt.Errorf("takeScreenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", fmt.Errorf("takeScreenshot: %w", err)
	}
	return path, nil
}

func closeScope(s *uiaction.Scope, release func() error) error {
	ancestorClosed := s.Parent().Closed()
	if !s.Close() || ancestorClosed || release == nil {
		return nil
	}
	if err := release(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// ClosePage closes the tab.
func (a *Action) ClosePage(ctx context.Context) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("closePage", nil, start, err) }()

	if err := closeScope(a.pageScope, a.releasePage); err != nil {
		return fmt.Errorf("close page: %w", err)
	}
	return nil
}

// CloseContext ends the chromedp browser context, which closes the browser
// session and every tab in it.
func (a *Action) CloseContext(ctx context.Context) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("closeContext", nil, start, err) }()

	if err := closeScope(a.contextScope, a.releaseContext); err != nil {
		return fmt.Errorf("close context: %w", err)
	}
	return nil
}

// CloseBrowser stops the allocator, killing the process if it is still
// running and removing its profile directory.
func (a *Action) CloseBrowser(ctx context.Context) (err error) {
	start := a.rec.Now()
	defer func() { a.rec.Record("closeBrowser", nil, start, err) }()

	if err := closeScope(a.browserScope, a.releaseBrowser); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
