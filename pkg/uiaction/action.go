package uiaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
)

// ElementActions interact with a single element. Each waits for the element to
// be actionable and returns a *NotActionableError when it never becomes so.
type ElementActions interface {
	Click(ctx context.Context, t Target, opts ...ActionOptions) error
	// Fill replaces the element's value with text.
	Fill(ctx context.Context, t Target, text string, opts ...ActionOptions) error
	// Type sends text one key at a time without clearing existing content.
	Type(ctx context.Context, t Target, text string, opts ...ActionOptions) error
	// Press sends a single key or chord such as "Enter" or "Control+A".
	Press(ctx context.Context, t Target, key string, opts ...ActionOptions) error
	// SelectOption selects the option with the given value in a <select>.
	SelectOption(ctx context.Context, t Target, value string, opts ...ActionOptions) error
	ScrollToElement(ctx context.Context, t Target, opts ...ActionOptions) error
}

// Synchronizer blocks until an element reaches a state.
type Synchronizer interface {
	WaitForVisible(ctx context.Context, t Target, opts ...WaitOptions) error
	WaitForHidden(ctx context.Context, t Target, opts ...WaitOptions) error
	// WaitForElement waits for the element to be attached and then visible.
	WaitForElement(ctx context.Context, t Target, opts ...WaitOptions) error
}

// Queries read element state without waiting for visibility.
type Queries interface {
	// Text returns the rendered text of the first match.
	Text(ctx context.Context, t Target) (string, error)
	// Count returns the number of current matches; zero is not an error.
	Count(ctx context.Context, t Target) (int, error)
	// Attribute returns the named attribute of the first match and whether it
	// is present. The "value" attribute reports the live form value.
	Attribute(ctx context.Context, t Target, name string) (string, bool, error)
}

// Navigator drives the current page.
type Navigator interface {
	// Navigate loads url, resolving relative references against the base URL.
	Navigate(ctx context.Context, url string, opts ...WaitOptions) error
	// OpenURL is an alias of Navigate.
	OpenURL(ctx context.Context, url string, opts ...WaitOptions) error
	RefreshPage(ctx context.Context, opts ...WaitOptions) error
	GoBack(ctx context.Context, opts ...WaitOptions) error
	GoForward(ctx context.Context, opts ...WaitOptions) error
	WaitForPageLoad(ctx context.Context, opts ...WaitOptions) error
	PageTitle(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// TakeScreenshot writes a full-page PNG named after name and returns its path.
	TakeScreenshot(ctx context.Context, name string) (string, error)
}

// LocatorFactory builds handles. Factories never touch the document and
// never fail; problems surface when the handle is used.
type LocatorFactory interface {
	Locator(selector string, opts ...LocatorOptions) Handle
	GetByText(text string, opts ...TextOptions) Handle
	GetByRole(role string, opts ...RoleOptions) Handle
	GetByLabel(label string, opts ...LabelOptions) Handle
	// CSSContainsClass matches elements whose class attribute contains className.
	CSSContainsClass(className string) Handle
}

// Closer releases the scopes a BrowserAction is bound to. Each method is
// idempotent; after it returns every handle from the closed scope is stale.
type Closer interface {
	ClosePage(ctx context.Context) error
	CloseContext(ctx context.Context) error
	CloseBrowser(ctx context.Context) error
}

// BrowserAction is the full capability surface page objects are written against.
type BrowserAction interface {
	ElementActions
	Synchronizer
	Queries
	Navigator
	LocatorFactory
	Closer
}

// Teardown closes page, context and browser in that order and joins every
// failure. It is safe to call more than once.
func Teardown(ctx context.Context, c Closer) error {
	return errors.Join(
		c.ClosePage(ctx),
		c.CloseContext(ctx),
		c.CloseBrowser(ctx),
	)
}

// ErrNotTracing is returned by StopTrace when no trace is being recorded.
var ErrNotTracing = errors.New("no trace is being recorded")

// Tracer is implemented by actions that can record an execution trace of
// their browser context. Callers type-assert for it.
type Tracer interface {
	// StopTrace ends the recording and writes it to path. An empty path
	// discards the recording.
	StopTrace(ctx context.Context, path string) error
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ScreenshotPath returns dir/<sanitized name>.png and creates dir.
func ScreenshotPath(dir, name string) (string, error) {
	return artifactPath(dir, name, "screenshot", ".png")
}

// TracePath returns dir/<sanitized name>.zip and creates dir.
func TracePath(dir, name string) (string, error) {
	return artifactPath(dir, name, "trace", ".zip")
}

func artifactPath(dir, name, fallback, ext string) (string, error) {
	clean := unsafeFileChars.ReplaceAllString(name, "_")
	if clean == "" || clean == "." || clean == ".." {
		clean = fallback
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, clean+ext), nil
}
