// Package pwaction implements uiaction.BrowserAction on top of Playwright.
//
// A Launcher owns the Playwright driver process and hands out one Action per
// test case, each with its own browser, context and page:
//
//	l := pwaction.NewLauncher(pwaction.LauncherOptions{})
//	if err := l.Start(); err != nil {
//		return err
//	}
//	defer l.Stop()
//
//	a, err := l.NewAction(ctx, pwaction.LaunchOptions{Browser: "chromium", Headless: true})
//	if err != nil {
//		return err
//	}
//	defer uiaction.Teardown(ctx, a)
//
// Query strings are handed to Page.Locator unchanged, so any Playwright
// selector (css, text=, role=, xpath=, chained >>) is accepted.
package pwaction
