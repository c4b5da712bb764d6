package cdpaction

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

func newTestAction(t *testing.T, opts Options) (*Action, *fakeDriver) {
	t.Helper()
	drv := newFakeDriver()
	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	a, err := newAction(drv, context.Background(), opts)
	require.NoError(t, err)
	return a, drv
}

func TestClickViaQueryAndHandle(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	drv.set("#submit", &fakeElement{count: 1, visible: true})

	require.NoError(t, a.Click(ctx, uiaction.Query("#submit")))
	require.NoError(t, a.Click(ctx, a.Locator("#submit")))
	assert.Equal(t, 2, drv.clicks)
}

func TestClickMultipleMatchesFailsFast(t *testing.T) {
	a, drv := newTestAction(t, Options{})
	drv.set("button", &fakeElement{count: 3, visible: true})

	start := time.Now()
	err := a.Click(context.Background(), uiaction.Query("button"))

	var na *uiaction.NotActionableError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, 3, na.Count)
	assert.NotErrorIs(t, err, uiaction.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, drv.clicks)
}

func TestClickDisabledTimesOut(t *testing.T) {
	a, drv := newTestAction(t, Options{})
	drv.set("#save", &fakeElement{count: 1, visible: true, disabled: true})

	err := a.Click(context.Background(), uiaction.Query("#save"), uiaction.ActionOptions{Timeout: 50 * time.Millisecond})

	assert.ErrorIs(t, err, uiaction.ErrNotActionable)
	assert.ErrorIs(t, err, uiaction.ErrTimeout)
	var na *uiaction.NotActionableError
	require.ErrorAs(t, err, &na)
	assert.Equal(t, "element is disabled", na.Reason)
	assert.Zero(t, drv.clicks)
}

func TestWaitForVisibleTimeoutBounds(t *testing.T) {
	a, _ := newTestAction(t, Options{})
	timeout := 200 * time.Millisecond

	err := a.WaitForVisible(context.Background(), uiaction.Query("#missing"), uiaction.WaitOptions{Timeout: timeout})

	var te *uiaction.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uiaction.ConditionVisible, te.Condition)
	assert.Equal(t, timeout, te.Timeout)
	assert.GreaterOrEqual(t, te.Elapsed, timeout)
	assert.Less(t, te.Elapsed, timeout+500*time.Millisecond)
}

func TestWaitForVisibleThenHiddenTimesOut(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	drv.set(".banner", &fakeElement{count: 1, visible: true})

	require.NoError(t, a.WaitForVisible(ctx, uiaction.Query(".banner")))
	err := a.WaitForHidden(ctx, uiaction.Query(".banner"), uiaction.WaitOptions{Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, uiaction.ErrTimeout)
}

func TestHandleBuiltBeforeElementAppears(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})

	msg := a.GetByText("Invalid email or password")
	drv.set(`text:Invalid email or password`, &fakeElement{count: 1, visibleAfter: time.Now().Add(60 * time.Millisecond)})

	require.NoError(t, a.WaitForVisible(ctx, msg, uiaction.WaitOptions{Timeout: time.Second}))
}

func TestWaitHonorsCallerCancellation(t *testing.T) {
	a, drv := newTestAction(t, Options{})
	drv.hang = true

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := a.WaitForVisible(ctx, uiaction.Query("#x"), uiaction.WaitOptions{Timeout: 5 * time.Second})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, uiaction.ErrTimeout)
}

func TestWaitCappedByCallerDeadlineTimesOut(t *testing.T) {
	a, _ := newTestAction(t, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := a.WaitForVisible(ctx, uiaction.Query("#missing"), uiaction.WaitOptions{Timeout: 5 * time.Second})

	assert.ErrorIs(t, err, uiaction.ErrTimeout)
	var te *uiaction.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uiaction.CodeNotVisible, te.Code())
	assert.LessOrEqual(t, te.Timeout, 150*time.Millisecond)
	assert.Positive(t, te.Elapsed)

	shown, perr := uiaction.Probe(err)
	assert.False(t, shown)
	assert.NoError(t, perr)
}

func TestWaitAfterCallerDeadlineTimesOut(t *testing.T) {
	a, _ := newTestAction(t, Options{})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	err := a.WaitForVisible(ctx, uiaction.Query("#missing"))
	assert.ErrorIs(t, err, uiaction.ErrTimeout)
	assert.Equal(t, uiaction.CodeTimeout, uiaction.Code(err))
}

func TestFillThenAttributeValue(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	drv.set("#email", &fakeElement{count: 1, visible: true})

	require.NoError(t, a.Fill(ctx, uiaction.Query("#email"), "user@example.com"))

	v, ok, err := a.Attribute(ctx, uiaction.Query("#email"), "value")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user@example.com", v)
}

func TestTypeAndPressSendKeyEvents(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	drv.set("#q", &fakeElement{count: 1, visible: true})

	require.NoError(t, a.Type(ctx, uiaction.Query("#q"), "abc"))
	require.NoError(t, a.Press(ctx, uiaction.Query("#q"), "Enter"))
	assert.Equal(t, []string{`"abc"/0`, `"\r"/0`}, drv.keys)

	err := a.Press(ctx, uiaction.Query("#q"), "Hyper+Q")
	assert.Error(t, err)
}

func TestSelectOption(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	drv.set("select", &fakeElement{count: 1, visible: true, options: []string{"us", "ca"}})

	require.NoError(t, a.SelectOption(ctx, uiaction.Query("select"), "ca"))
	err := a.SelectOption(ctx, uiaction.Query("select"), "mx")
	assert.ErrorIs(t, err, uiaction.ErrNotActionable)
}

func TestQueriesOnZeroMatches(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestAction(t, Options{})

	n, err := a.Count(ctx, a.CSSContainsClass("toast"))
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = a.Text(ctx, uiaction.Query("h1"))
	var na *uiaction.NotActionableError
	require.ErrorAs(t, err, &na)
	assert.Zero(t, na.Count)
}

func TestTextAndAttribute(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	drv.set("#password", &fakeElement{count: 1, attrs: map[string]string{"type": "password"}})
	drv.set("h1", &fakeElement{count: 1, text: "Acme"})

	text, err := a.Text(ctx, uiaction.Query("h1"))
	require.NoError(t, err)
	assert.Equal(t, "Acme", text)

	v, ok, err := a.Attribute(ctx, uiaction.Query("#password"), "type")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "password", v)
}

func TestWithinAndNthCompose(t *testing.T) {
	a, drv := newTestAction(t, Options{})
	drv.set("form >> label:Email >> nth=0", &fakeElement{count: 1, visible: true})

	h := a.GetByLabel("Email", uiaction.LabelOptions{Within: a.Locator("form"), Nth: uiaction.Int(0)})
	assert.Equal(t, `form >> label="Email" >> nth=0`, h.Describe())
	require.NoError(t, a.Click(context.Background(), h))
}

func TestStaleAfterClose(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{})
	var released []string
	a.releasePage = func() error { released = append(released, "page"); return nil }
	a.releaseContext = func() error { released = append(released, "context"); return nil }
	a.releaseBrowser = func() error { released = append(released, "browser"); return nil }

	h := a.Locator("#email")
	require.NoError(t, a.CloseContext(ctx))

	err := a.Fill(ctx, h, "x")
	var stale *uiaction.StaleHandleError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, uiaction.ScopeContext, stale.Scope)

	err = a.Navigate(ctx, "/login")
	assert.ErrorIs(t, err, uiaction.ErrStaleHandle)
	assert.Empty(t, drv.calls)

	require.NoError(t, uiaction.Teardown(ctx, a))
	require.NoError(t, uiaction.Teardown(ctx, a))
	assert.Equal(t, []string{"context", "browser"}, released)
}

func TestTeardownReleasesInOrder(t *testing.T) {
	a, _ := newTestAction(t, Options{})
	var released []string
	a.releasePage = func() error { released = append(released, "page"); return nil }
	a.releaseContext = func() error { released = append(released, "context"); return context.Canceled }
	a.releaseBrowser = func() error { released = append(released, "browser"); return errors.New("kill failed") }

	err := uiaction.Teardown(context.Background(), a)
	assert.ErrorContains(t, err, "kill failed")
	assert.Equal(t, []string{"page", "context", "browser"}, released)
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()
	a, drv := newTestAction(t, Options{BaseURL: "http://localhost:3000/app/"})

	require.NoError(t, a.OpenURL(ctx, "login"))
	u, err := a.CurrentURL(ctx)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000/app/login", u)

	drv.navErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
	err = a.Navigate(ctx, "http://nope.invalid")
	var nav *uiaction.NavigationError
	require.ErrorAs(t, err, &nav)
	assert.Equal(t, "http://nope.invalid", nav.URL)

	title, err := a.PageTitle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sign In", title)
	require.NoError(t, a.WaitForPageLoad(ctx))
	require.NoError(t, a.GoBack(ctx))
	require.NoError(t, a.GoForward(ctx))
	require.NoError(t, a.RefreshPage(ctx))
}

func TestTakeScreenshotWritesFile(t *testing.T) {
	dir := t.TempDir()
	a, _ := newTestAction(t, Options{ScreenshotDir: dir})

	path, err := a.TakeScreenshot(context.Background(), "after login")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "after_login.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)
}

func TestScrollToElementMissing(t *testing.T) {
	a, _ := newTestAction(t, Options{})
	err := a.ScrollToElement(context.Background(), uiaction.Query("#footer"), uiaction.ActionOptions{Timeout: 30 * time.Millisecond})
	assert.ErrorIs(t, err, uiaction.ErrNotActionable)
	assert.ErrorIs(t, err, uiaction.ErrTimeout)
}

func TestCallExpressionEmbedsResolver(t *testing.T) {
	expr, err := callExpression("count", &query{Kind: kindCSS, Value: "#a"}, nil)
	require.NoError(t, err)
	assert.Contains(t, expr, "window.__uiharness")
	assert.Contains(t, expr, `window.__uiharness["count"]({"kind":"css","value":"#a"}, null)`)
}
