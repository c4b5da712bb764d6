// Package pages holds page objects for the application under test. Page
// objects compose uiaction.BrowserAction into user-level steps and never reach
// the automation engine directly.
package pages

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// BasePage carries what every page object needs.
type BasePage struct {
	Browser uiaction.BrowserAction
	BaseURL string
	log     *zap.Logger
}

// NewBasePage binds a page to browser. A nil logger discards output.
func NewBasePage(browser uiaction.BrowserAction, baseURL string, log *zap.Logger) BasePage {
	if log == nil {
		log = zap.NewNop()
	}
	return BasePage{Browser: browser, BaseURL: baseURL, log: log}
}

// OpenApplication navigates to the application base URL.
func (p *BasePage) OpenApplication(ctx context.Context) error {
	p.log.Info("opening application", zap.String("url", p.BaseURL))
	return p.Browser.OpenURL(ctx, p.BaseURL)
}

// CloseApplication tears down page, context and browser.
func (p *BasePage) CloseApplication(ctx context.Context) error {
	p.log.Debug("closing application")
	return uiaction.Teardown(ctx, p.Browser)
}

// visible reports whether t becomes visible within timeout (zero uses the
// instance default). Only timeouts and actionability failures read as false.
func (p *BasePage) visible(ctx context.Context, t uiaction.Target, what string, timeout time.Duration) (bool, error) {
	ok, err := uiaction.Probe(p.Browser.WaitForVisible(ctx, t, uiaction.WaitOptions{Timeout: timeout}))
	if !ok && err == nil {
		p.log.Debug("element not visible", zap.String("element", what), zap.String("target", uiaction.Describe(t)))
	}
	return ok, err
}
