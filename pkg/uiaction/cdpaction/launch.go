package cdpaction

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Options configures a Chrome session.
type Options struct {
	Headless          bool
	Width             int
	Height            int
	IgnoreHTTPSErrors bool
	// ExecPath overrides Chrome discovery.
	ExecPath      string
	BaseURL       string
	Timeouts      *uiaction.TimeoutSettings
	ScreenshotDir string
	Sink          uiaction.EventSink
	// PollInterval is how often waits re-check state; zero means DefaultPollInterval.
	PollInterval time.Duration
}

func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	width, height := o.Width, o.Height
	if width == 0 || height == 0 {
		width, height = 1280, 720
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(width, height),
	)
	if o.IgnoreHTTPSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	return opts
}

// Launch starts Chrome, opens a tab and binds an Action to it. ctx bounds the
// launch only; the session lives until the Action is torn down.
func Launch(ctx context.Context, opts Options) (*Action, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	stop := context.AfterFunc(ctx, allocCancel)
	defer stop()

	// The first Run on the browser context starts the process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		_ = chromedp.Cancel(browserCtx)
		allocCancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}

	a, err := newAction(chromeDriver{}, tabCtx, opts)
	if err != nil {
		tabCancel()
		_ = chromedp.Cancel(browserCtx)
		allocCancel()
		return nil, err
	}
	a.releasePage = func() error { return chromedp.Cancel(tabCtx) }
	a.releaseContext = func() error { return chromedp.Cancel(browserCtx) }
	a.releaseBrowser = func() error {
		allocCancel()
		return nil
	}
	return a, nil
}

func newAction(drv driver, tab context.Context, opts Options) (*Action, error) {
	a := &Action{
		drv:           drv,
		tab:           tab,
		timeouts:      opts.Timeouts,
		rec:           uiaction.NewRecorder(EngineName, opts.Sink),
		screenshotDir: opts.ScreenshotDir,
		interval:      opts.PollInterval,
	}
	a.pageScope, a.contextScope, a.browserScope = uiaction.NewScopeChain()

	if a.timeouts == nil {
		a.timeouts = uiaction.NewTimeoutSettings(nil)
	}
	if a.screenshotDir == "" {
		a.screenshotDir = "screenshots"
	}
	if a.interval <= 0 {
		a.interval = DefaultPollInterval
	}
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
		}
		a.baseURL = u
	}
	return a, nil
}
