package runner

import (
	"context"

	"github.com/entrhq/uiharness/pkg/config"
	"github.com/entrhq/uiharness/pkg/uiaction"
	"github.com/entrhq/uiharness/pkg/uiaction/cdpaction"
	"github.com/entrhq/uiharness/pkg/uiaction/pwaction"
)

// Engine creates one BrowserAction per scenario attempt.
type Engine interface {
	Name() string
	NewAction(ctx context.Context, browser string, sink uiaction.EventSink) (uiaction.BrowserAction, error)
}

// PlaywrightEngine launches actions through a started pwaction.Launcher.
type PlaywrightEngine struct {
	launcher *pwaction.Launcher
	cfg      *config.Config
}

func NewPlaywrightEngine(l *pwaction.Launcher, cfg *config.Config) *PlaywrightEngine {
	return &PlaywrightEngine{launcher: l, cfg: cfg}
}

func (e *PlaywrightEngine) Name() string { return pwaction.EngineName }

func (e *PlaywrightEngine) NewAction(ctx context.Context, browser string, sink uiaction.EventSink) (uiaction.BrowserAction, error) {
	c := e.cfg
	a, err := e.launcher.NewAction(ctx, pwaction.LaunchOptions{
		Browser:           browser,
		Headless:          c.Browser.Headless,
		SlowMo:            c.Browser.SlowMo,
		Viewport:          pwaction.Viewport{Width: c.Browser.Viewport.Width, Height: c.Browser.Viewport.Height},
		IgnoreHTTPSErrors: c.Browser.IgnoreHTTPSErrors,
		BaseURL:           c.BaseURL,
		Timeouts:          c.TimeoutSettings(),
		ScreenshotDir:     c.Artifacts.ScreenshotDir,
		Sink:              sink,
		Trace:             c.Artifacts.Trace != config.TraceOff,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ChromedpEngine launches a Chrome process per action over the DevTools
// protocol. The browser argument is ignored; config validation restricts it
// to chromium. Its actions do not record traces.
type ChromedpEngine struct {
	cfg *config.Config
}

func NewChromedpEngine(cfg *config.Config) *ChromedpEngine {
	return &ChromedpEngine{cfg: cfg}
}

func (e *ChromedpEngine) Name() string { return cdpaction.EngineName }

func (e *ChromedpEngine) NewAction(ctx context.Context, _ string, sink uiaction.EventSink) (uiaction.BrowserAction, error) {
	c := e.cfg
	a, err := cdpaction.Launch(ctx, cdpaction.Options{
		Headless:          c.Browser.Headless,
		Width:             c.Browser.Viewport.Width,
		Height:            c.Browser.Viewport.Height,
		IgnoreHTTPSErrors: c.Browser.IgnoreHTTPSErrors,
		BaseURL:           c.BaseURL,
		Timeouts:          c.TimeoutSettings(),
		ScreenshotDir:     c.Artifacts.ScreenshotDir,
		Sink:              sink,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}
