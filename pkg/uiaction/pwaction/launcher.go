package pwaction

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Browser names accepted by LaunchOptions.
const (
	BrowserChromium = "chromium"
	BrowserFirefox  = "firefox"
	BrowserWebKit   = "webkit"
)

// Default viewport dimensions.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// Browsers lists every supported browser in fan-out order.
var Browsers = []string{BrowserChromium, BrowserFirefox, BrowserWebKit}

// NormalizeBrowser maps a user-facing browser name to a supported one. An
// empty name selects webkit and "chrome" is an alias for chromium.
func NormalizeBrowser(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BrowserWebKit, "safari":
		return BrowserWebKit, nil
	case BrowserChromium, "chrome":
		return BrowserChromium, nil
	case BrowserFirefox:
		return BrowserFirefox, nil
	default:
		return "", fmt.Errorf("unsupported browser %q (want chromium, chrome, firefox or webkit)", name)
	}
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures the browser, context and page behind one Action.
type LaunchOptions struct {
	// Browser is chromium, firefox or webkit ("chrome" is accepted)
	Browser string

	// Headless controls whether the browser runs without a visible window
	Headless bool

	// SlowMo delays every engine operation, useful when watching a run
	SlowMo time.Duration

	// Viewport sets the page size; zero means 1280x720
	Viewport Viewport

	// IgnoreHTTPSErrors accepts self-signed certificates
	IgnoreHTTPSErrors bool

	// BaseURL resolves relative Navigate targets
	BaseURL string

	// Timeouts are the defaults for the Action; nil uses the package defaults
	Timeouts *uiaction.TimeoutSettings

	// ScreenshotDir is where TakeScreenshot writes
	ScreenshotDir string

	// Sink receives one event per operation
	Sink uiaction.EventSink

	// Trace records screenshots, DOM snapshots and sources from the start of
	// the context; Action.StopTrace saves or discards the recording
	Trace bool
}

// LauncherOptions configures the Playwright driver.
type LauncherOptions struct {
	// Browsers limits which browsers Install downloads; empty means all
	Browsers []string

	// Stdout and Stderr receive driver output; nil discards it
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher owns the Playwright driver and creates Actions. One Launcher is
// shared by all workers; every Action gets its own browser process so test
// cases stay isolated.
type Launcher struct {
	mu      sync.Mutex
	pw      *playwright.Playwright
	runOpts *playwright.RunOptions
	started bool
}

// NewLauncher creates a launcher. Call Start before NewAction.
func NewLauncher(opts LauncherOptions) *Launcher {
	runOpts := &playwright.RunOptions{
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
		Browsers: opts.Browsers,
	}
	if opts.Stdout != nil {
		runOpts.Stdout = opts.Stdout
		runOpts.Verbose = true
	}
	if opts.Stderr != nil {
		runOpts.Stderr = opts.Stderr
	}
	return &Launcher{runOpts: runOpts}
}

// Install downloads the Playwright driver and browsers.
func (l *Launcher) Install() error {
	if err := playwright.Install(l.runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}
	return nil
}

// Start runs the Playwright driver. It is a no-op when already started.
func (l *Launcher) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return nil
	}

	pw, err := playwright.Run(l.runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.pw = pw
	l.started = true
	return nil
}

// Stop terminates the driver. Actions still open become unusable.
func (l *Launcher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started || l.pw == nil {
		return nil
	}
	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	l.started = false
	return nil
}

func (l *Launcher) browserType(name string) (playwright.BrowserType, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return nil, fmt.Errorf("launcher not started")
	}

	switch name {
	case BrowserChromium:
		return l.pw.Chromium, nil
	case BrowserFirefox:
		return l.pw.Firefox, nil
	default:
		return l.pw.WebKit, nil
	}
}

// NewAction launches a browser, context and page and binds an Action to them.
func (l *Launcher) NewAction(ctx context.Context, opts LaunchOptions) (*Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name, err := NormalizeBrowser(opts.Browser)
	if err != nil {
		return nil, err
	}
	bt, err := l.browserType(name)
	if err != nil {
		return nil, err
	}
	return launch(bt, opts)
}

// launch acquires browser, context and page in order. A failed step releases
// whatever was acquired before it.
func launch(bt playwright.BrowserType, opts LaunchOptions) (*Action, error) {
	// Set defaults
	if opts.Viewport.Width == 0 || opts.Viewport.Height == 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}

	// Launch browser
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(float64(opts.SlowMo.Milliseconds()))
	}
	browser, err := bt.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch %s: %w", bt.Name(), err)
	}

	// Create context
	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
		IgnoreHttpsErrors: playwright.Bool(opts.IgnoreHTTPSErrors),
	}
	if opts.BaseURL != "" {
		contextOpts.BaseURL = playwright.String(opts.BaseURL)
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	if opts.Trace {
		err := bctx.Tracing().Start(playwright.TracingStartOptions{
			Screenshots: playwright.Bool(true),
			Snapshots:   playwright.Bool(true),
			Sources:     playwright.Bool(true),
		})
		if err != nil {
			_ = bctx.Close()
			_ = browser.Close()
			return nil, fmt.Errorf("failed to start tracing: %w", err)
		}
	}

	// Create page
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	a := New(page,
		WithSink(opts.Sink),
		WithTimeouts(opts.Timeouts),
		WithScreenshotDir(opts.ScreenshotDir),
	)
	// Persistent or remote contexts may not report their browser.
	if a.browser == nil {
		a.browser = browser
	}
	a.tracing.Store(opts.Trace)
	return a, nil
}
