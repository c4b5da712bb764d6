package pwaction

import (
	"fmt"
	"os"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// The fakes embed the Playwright interfaces so only the methods under test
// need an implementation; anything else panics on the nil embedded value.

type fakeLocator struct {
	playwright.Locator

	page     *fakePage
	selector string

	mu        sync.Mutex
	calls     []string
	timeouts  []float64
	waitState []string
}

func (l *fakeLocator) record(call string, timeout *float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
	if timeout != nil {
		l.timeouts = append(l.timeouts, *timeout)
	}
}

func (l *fakeLocator) dom() *fakeDOM {
	return l.page.dom(l.selector)
}

func (l *fakeLocator) child(sel string) *fakeLocator {
	return &fakeLocator{page: l.page, selector: l.selector + " >> " + sel}
}

func (l *fakeLocator) Locator(sel interface{}, _ ...playwright.LocatorLocatorOptions) playwright.Locator {
	return l.child(fmt.Sprint(sel))
}

func (l *fakeLocator) GetByText(text interface{}, _ ...playwright.LocatorGetByTextOptions) playwright.Locator {
	return l.child(fmt.Sprintf("text=%v", text))
}

func (l *fakeLocator) Nth(i int) playwright.Locator {
	return l.child(fmt.Sprintf("nth=%d", i))
}

func (l *fakeLocator) Last() playwright.Locator  { return l.child("nth=-1") }
func (l *fakeLocator) First() playwright.Locator { return l }

func (l *fakeLocator) Click(opts ...playwright.LocatorClickOptions) error {
	l.record("click", opts[0].Timeout)
	return l.dom().actionErr
}

func (l *fakeLocator) Fill(value string, opts ...playwright.LocatorFillOptions) error {
	l.record("fill:"+value, opts[0].Timeout)
	if err := l.dom().actionErr; err != nil {
		return err
	}
	d := l.dom()
	l.page.mu.Lock()
	d.value = value
	l.page.mu.Unlock()
	return nil
}

func (l *fakeLocator) PressSequentially(text string, opts ...playwright.LocatorPressSequentiallyOptions) error {
	l.record("type:"+text, opts[0].Timeout)
	d := l.dom()
	l.page.mu.Lock()
	d.value += text
	l.page.mu.Unlock()
	return l.dom().actionErr
}

func (l *fakeLocator) Press(key string, opts ...playwright.LocatorPressOptions) error {
	l.record("press:"+key, opts[0].Timeout)
	return l.dom().actionErr
}

func (l *fakeLocator) WaitFor(opts ...playwright.LocatorWaitForOptions) error {
	l.record("waitFor", opts[0].Timeout)
	l.mu.Lock()
	l.waitState = append(l.waitState, string(*opts[0].State))
	l.mu.Unlock()
	return l.dom().waitErr
}

func (l *fakeLocator) Count() (int, error) {
	l.record("count", nil)
	d := l.dom()
	return d.count, d.countErr
}

func (l *fakeLocator) InnerText(opts ...playwright.LocatorInnerTextOptions) (string, error) {
	l.record("innerText", opts[0].Timeout)
	return l.dom().text, nil
}

func (l *fakeLocator) Evaluate(expr string, arg interface{}, opts ...playwright.LocatorEvaluateOptions) (interface{}, error) {
	l.record(fmt.Sprintf("evaluate:%v", arg), opts[0].Timeout)
	d := l.dom()
	if arg == "value" {
		return []interface{}{d.value, true}, nil
	}
	v, ok := d.attrs[fmt.Sprint(arg)]
	return []interface{}{v, ok}, nil
}

// fakeDOM is the state a selector resolves to.
type fakeDOM struct {
	count     int
	countErr  error
	actionErr error
	waitErr   error
	text      string
	value     string
	attrs     map[string]string
}

type fakePage struct {
	playwright.Page

	ctx *fakeContext

	mu       sync.Mutex
	elements map[string]*fakeDOM
	locators []*fakeLocator
	url      string
	gotoErr  error
	gotos    []string
	closed   int
	closeErr error
}

func newFakePage() *fakePage {
	p := &fakePage{elements: make(map[string]*fakeDOM), url: "about:blank"}
	p.ctx = &fakeContext{browser: &fakeBrowser{}}
	return p
}

func (p *fakePage) dom(sel string) *fakeDOM {
	p.mu.Lock()
	defer p.mu.Unlock()
	d, ok := p.elements[sel]
	if !ok {
		d = &fakeDOM{}
		p.elements[sel] = d
	}
	return d
}

func (p *fakePage) Locator(sel string, _ ...playwright.PageLocatorOptions) playwright.Locator {
	l := &fakeLocator{page: p, selector: sel}
	p.mu.Lock()
	p.locators = append(p.locators, l)
	p.mu.Unlock()
	return l
}

func (p *fakePage) GetByText(text interface{}, _ ...playwright.PageGetByTextOptions) playwright.Locator {
	return p.Locator(fmt.Sprintf("text=%v", text))
}

func (p *fakePage) GetByRole(role playwright.AriaRole, opts ...playwright.PageGetByRoleOptions) playwright.Locator {
	return p.Locator(fmt.Sprintf("role=%s[name=%v]", role, opts[0].Name))
}

func (p *fakePage) GetByLabel(text interface{}, _ ...playwright.PageGetByLabelOptions) playwright.Locator {
	return p.Locator(fmt.Sprintf("label=%v", text))
}

func (p *fakePage) Context() playwright.BrowserContext { return p.ctx }
func (p *fakePage) URL() string                        { return p.url }
func (p *fakePage) Title() (string, error)             { return "Sign In", nil }

func (p *fakePage) Goto(url string, opts ...playwright.PageGotoOptions) (playwright.Response, error) {
	p.gotos = append(p.gotos, url)
	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	p.url = url
	return nil, nil
}

func (p *fakePage) Screenshot(opts ...playwright.PageScreenshotOptions) ([]byte, error) {
	return []byte("png"), nil
}

func (p *fakePage) Close(...playwright.PageCloseOptions) error {
	p.closed++
	return p.closeErr
}

type fakeContext struct {
	playwright.BrowserContext
	browser *fakeBrowser
	closed  int
	page    *fakePage
	pageErr error
	tracing *fakeTracing
}

func (c *fakeContext) Tracing() playwright.Tracing {
	if c.tracing == nil {
		c.tracing = &fakeTracing{}
	}
	return c.tracing
}

// fakeTracing writes a placeholder archive for every path Stop receives.
type fakeTracing struct {
	playwright.Tracing
	started  *playwright.TracingStartOptions
	stops    [][]string
	startErr error
}

func (tr *fakeTracing) Start(opts ...playwright.TracingStartOptions) error {
	if tr.startErr != nil {
		return tr.startErr
	}
	tr.started = &opts[0]
	return nil
}

func (tr *fakeTracing) Stop(path ...string) error {
	tr.stops = append(tr.stops, path)
	for _, p := range path {
		if err := os.WriteFile(p, []byte("trace"), 0o600); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeContext) Browser() playwright.Browser {
	if c.browser == nil {
		return nil
	}
	return c.browser
}

func (c *fakeContext) Close(...playwright.BrowserContextCloseOptions) error {
	c.closed++
	return nil
}

func (c *fakeContext) NewPage() (playwright.Page, error) {
	if c.pageErr != nil {
		return nil, c.pageErr
	}
	return c.page, nil
}

type fakeBrowser struct {
	playwright.Browser
	closed     int
	closeErr   error
	ctx        *fakeContext
	ctxErr     error
	ctxOptions playwright.BrowserNewContextOptions
}

func (b *fakeBrowser) Close(...playwright.BrowserCloseOptions) error {
	b.closed++
	return b.closeErr
}

func (b *fakeBrowser) NewContext(opts ...playwright.BrowserNewContextOptions) (playwright.BrowserContext, error) {
	if len(opts) > 0 {
		b.ctxOptions = opts[0]
	}
	if b.ctxErr != nil {
		return nil, b.ctxErr
	}
	return b.ctx, nil
}

type fakeBrowserType struct {
	playwright.BrowserType
	browser    *fakeBrowser
	launchErr  error
	launchOpts playwright.BrowserTypeLaunchOptions
}

func (bt *fakeBrowserType) Name() string { return "chromium" }

func (bt *fakeBrowserType) Launch(opts ...playwright.BrowserTypeLaunchOptions) (playwright.Browser, error) {
	if len(opts) > 0 {
		bt.launchOpts = opts[0]
	}
	if bt.launchErr != nil {
		return nil, bt.launchErr
	}
	return bt.browser, nil
}
