// Package uiactiontest provides test doubles for code written against
// uiaction.BrowserAction.
package uiactiontest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Handle is a fake uiaction.Handle. Mocked factories return one with Desc set
// to the factory argument, so expectations can match on it.
type Handle struct {
	Desc  string
	Owner *uiaction.Scope
}

func (h *Handle) Describe() string       { return h.Desc }
func (h *Handle) Scope() *uiaction.Scope { return h.Owner }

// Target matches a Target argument by its description, so a Query and a
// Handle for the same selector satisfy the same expectation.
func Target(desc string) any {
	return mock.MatchedBy(func(t uiaction.Target) bool {
		return t != nil && t.Describe() == desc
	})
}

// BrowserAction is a testify mock of uiaction.BrowserAction. Locator
// factories are not mocked: they return a *Handle describing their input.
type BrowserAction struct {
	mock.Mock
	Scope *uiaction.Scope
}

var _ uiaction.BrowserAction = (*BrowserAction)(nil)

// NewBrowserAction returns a mock that asserts its expectations at cleanup.
func NewBrowserAction(t interface {
	mock.TestingT
	Cleanup(func())
}) *BrowserAction {
	m := &BrowserAction{Scope: uiaction.NewScope(uiaction.ScopePage, nil)}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *BrowserAction) handle(desc string) uiaction.Handle {
	return &Handle{Desc: desc, Owner: m.Scope}
}

func (m *BrowserAction) Click(ctx context.Context, t uiaction.Target, opts ...uiaction.ActionOptions) error {
	return m.Called(ctx, t).Error(0)
}

func (m *BrowserAction) Fill(ctx context.Context, t uiaction.Target, text string, opts ...uiaction.ActionOptions) error {
	return m.Called(ctx, t, text).Error(0)
}

func (m *BrowserAction) Type(ctx context.Context, t uiaction.Target, text string, opts ...uiaction.ActionOptions) error {
	return m.Called(ctx, t, text).Error(0)
}

func (m *BrowserAction) Press(ctx context.Context, t uiaction.Target, key string, opts ...uiaction.ActionOptions) error {
	return m.Called(ctx, t, key).Error(0)
}

func (m *BrowserAction) SelectOption(ctx context.Context, t uiaction.Target, value string, opts ...uiaction.ActionOptions) error {
	return m.Called(ctx, t, value).Error(0)
}

func (m *BrowserAction) ScrollToElement(ctx context.Context, t uiaction.Target, opts ...uiaction.ActionOptions) error {
	return m.Called(ctx, t).Error(0)
}

// WaitForVisible records the effective per-call timeout as the third argument.
func (m *BrowserAction) WaitForVisible(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx, t, uiaction.First(opts).Timeout).Error(0)
}

func (m *BrowserAction) WaitForHidden(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx, t, uiaction.First(opts).Timeout).Error(0)
}

func (m *BrowserAction) WaitForElement(ctx context.Context, t uiaction.Target, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx, t, uiaction.First(opts).Timeout).Error(0)
}

func (m *BrowserAction) Text(ctx context.Context, t uiaction.Target) (string, error) {
	args := m.Called(ctx, t)
	return args.String(0), args.Error(1)
}

func (m *BrowserAction) Count(ctx context.Context, t uiaction.Target) (int, error) {
	args := m.Called(ctx, t)
	return args.Int(0), args.Error(1)
}

func (m *BrowserAction) Attribute(ctx context.Context, t uiaction.Target, name string) (string, bool, error) {
	args := m.Called(ctx, t, name)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *BrowserAction) Navigate(ctx context.Context, url string, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx, url).Error(0)
}

func (m *BrowserAction) OpenURL(ctx context.Context, url string, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx, url).Error(0)
}

func (m *BrowserAction) RefreshPage(ctx context.Context, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx).Error(0)
}

func (m *BrowserAction) GoBack(ctx context.Context, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx).Error(0)
}

func (m *BrowserAction) GoForward(ctx context.Context, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx).Error(0)
}

func (m *BrowserAction) WaitForPageLoad(ctx context.Context, opts ...uiaction.WaitOptions) error {
	return m.Called(ctx).Error(0)
}

func (m *BrowserAction) PageTitle(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *BrowserAction) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *BrowserAction) TakeScreenshot(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *BrowserAction) Locator(selector string, opts ...uiaction.LocatorOptions) uiaction.Handle {
	o := uiaction.First(opts)
	if o.HasText != "" {
		return m.handle(selector + ":has-text(" + o.HasText + ")")
	}
	return m.handle(selector)
}

func (m *BrowserAction) GetByText(text string, opts ...uiaction.TextOptions) uiaction.Handle {
	return m.handle("text=" + text)
}

func (m *BrowserAction) GetByRole(role string, opts ...uiaction.RoleOptions) uiaction.Handle {
	o := uiaction.First(opts)
	if o.Name != "" {
		return m.handle("role=" + role + "[name=" + o.Name + "]")
	}
	return m.handle("role=" + role)
}

func (m *BrowserAction) GetByLabel(label string, opts ...uiaction.LabelOptions) uiaction.Handle {
	return m.handle("label=" + label)
}

func (m *BrowserAction) CSSContainsClass(className string) uiaction.Handle {
	return m.handle(string(uiaction.CSSContainsClassQuery(className)))
}

func (m *BrowserAction) ClosePage(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *BrowserAction) CloseContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *BrowserAction) CloseBrowser(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// ExpectTeardown registers successful close expectations for all three scopes.
func (m *BrowserAction) ExpectTeardown() {
	m.On("ClosePage", mock.Anything).Return(nil).Once()
	m.On("CloseContext", mock.Anything).Return(nil).Once()
	m.On("CloseBrowser", mock.Anything).Return(nil).Once()
}
