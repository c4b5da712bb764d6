package cdpaction

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

//go:embed resolver.js
var resolverScript string

// driver is the slice of the DevTools protocol the Action needs. Every ctx
// passed in is derived from the tab context.
type driver interface {
	// call runs window.__uiharness[fn](q, arg) in the page and decodes the
	// result into res.
	call(ctx context.Context, fn string, q *query, arg any, res any) error
	navigate(ctx context.Context, url string) error
	// history moves delta entries through session history; out of range is a no-op.
	history(ctx context.Context, delta int) error
	reload(ctx context.Context) error
	title(ctx context.Context) (string, error)
	location(ctx context.Context) (string, error)
	click(ctx context.Context, x, y float64) error
	sendKeys(ctx context.Context, keys string, mods input.Modifier) error
	screenshot(ctx context.Context) ([]byte, error)
}

// chromeDriver runs actions with chromedp.Run.
type chromeDriver struct{}

func callExpression(fn string, q *query, arg any) (string, error) {
	qJSON, err := json.Marshal(q)
	if err != nil {
		return "", err
	}
	argJSON, err := json.Marshal(arg)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(resolverScript)
	fmt.Fprintf(&b, "\nwindow.__uiharness[%q](%s, %s)", fn, qJSON, argJSON)
	return b.String(), nil
}

func (chromeDriver) call(ctx context.Context, fn string, q *query, arg any, res any) error {
	expr, err := callExpression(fn, q, arg)
	if err != nil {
		return fmt.Errorf("encode %s call: %w", fn, err)
	}
	return chromedp.Run(ctx, chromedp.Evaluate(expr, res))
}

func (chromeDriver) navigate(ctx context.Context, url string) error {
	return chromedp.Run(ctx, chromedp.Navigate(url))
}

func (chromeDriver) history(ctx context.Context, delta int) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		cur, entries, err := page.GetNavigationHistory().Do(ctx)
		if err != nil {
			return err
		}
		idx := int(cur) + delta
		if idx < 0 || idx >= len(entries) {
			return nil
		}
		if delta < 0 {
			return chromedp.NavigateBack().Do(ctx)
		}
		return chromedp.NavigateForward().Do(ctx)
	}))
}

func (chromeDriver) reload(ctx context.Context) error {
	return chromedp.Run(ctx, chromedp.Reload())
}

func (chromeDriver) title(ctx context.Context) (string, error) {
	var title string
	err := chromedp.Run(ctx, chromedp.Title(&title))
	return title, err
}

func (chromeDriver) location(ctx context.Context) (string, error) {
	var url string
	err := chromedp.Run(ctx, chromedp.Location(&url))
	return url, err
}

func (chromeDriver) click(ctx context.Context, x, y float64) error {
	return chromedp.Run(ctx, chromedp.MouseClickXY(x, y))
}

func (chromeDriver) sendKeys(ctx context.Context, keys string, mods input.Modifier) error {
	if mods == 0 {
		return chromedp.Run(ctx, chromedp.KeyEvent(keys))
	}
	return chromedp.Run(ctx, chromedp.KeyEvent(keys, chromedp.KeyModifiers(mods)))
}

func (chromeDriver) screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// Quality 100 selects PNG encoding.
	err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}
