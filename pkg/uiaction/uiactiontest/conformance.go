package uiactiontest

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Factory opens a fresh BrowserAction for one conformance case. The action
// must resolve relative URLs against an internal/testapp server, write
// screenshots to a temporary directory and emit events to sink.
type Factory func(t *testing.T, sink uiaction.EventSink) uiaction.BrowserAction

// Conformance checks an engine against the behavior every BrowserAction
// shares. Each case gets its own action, torn down at cleanup.
func Conformance(t *testing.T, newAction Factory) {
	open := func(t *testing.T, sink uiaction.EventSink) (context.Context, uiaction.BrowserAction) {
		t.Helper()
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		t.Cleanup(cancel)

		a := newAction(t, sink)
		t.Cleanup(func() { _ = uiaction.Teardown(context.Background(), a) })
		require.NoError(t, a.Navigate(ctx, "/contract"))
		return ctx, a
	}
	short := uiaction.WaitOptions{Timeout: 300 * time.Millisecond}
	shortAction := uiaction.ActionOptions{Timeout: 300 * time.Millisecond}

	t.Run("fill is readable through the value attribute", func(t *testing.T) {
		ctx, a := open(t, nil)

		require.NoError(t, a.Fill(ctx, uiaction.Query("#email"), "user@example.com"))
		v, ok, err := a.Attribute(ctx, uiaction.Query("#email"), "value")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "user@example.com", v)

		require.NoError(t, a.Type(ctx, uiaction.Query("#email"), ".nz"))
		v, _, err = a.Attribute(ctx, uiaction.Query("#email"), "value")
		require.NoError(t, err)
		assert.Equal(t, "user@example.com.nz", v)
	})

	t.Run("missing attribute is absent not an error", func(t *testing.T) {
		ctx, a := open(t, nil)

		v, ok, err := a.Attribute(ctx, uiaction.Query("#email"), "data-missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, v)

		v, ok, err = a.Attribute(ctx, uiaction.Query("#email"), "data-state")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "initial", v)
	})

	t.Run("count reports zero without error", func(t *testing.T) {
		ctx, a := open(t, nil)

		n, err := a.Count(ctx, uiaction.Query(".absent"))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = a.Count(ctx, uiaction.Query(".item"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("handle and query act on the same element", func(t *testing.T) {
		ctx, a := open(t, nil)

		h := a.Locator("#email")
		require.NoError(t, a.Fill(ctx, h, "a@b.co"))
		v, _, err := a.Attribute(ctx, uiaction.Query("#email"), "value")
		require.NoError(t, err)
		assert.Equal(t, "a@b.co", v)

		// Handles re-resolve after navigation.
		require.NoError(t, a.RefreshPage(ctx))
		require.NoError(t, a.Fill(ctx, h, "c@d.co"))
		v, _, err = a.Attribute(ctx, h, "value")
		require.NoError(t, err)
		assert.Equal(t, "c@d.co", v)
	})

	t.Run("click", func(t *testing.T) {
		ctx, a := open(t, nil)

		require.NoError(t, a.Click(ctx, uiaction.Query("#counter")))
		require.NoError(t, a.Click(ctx, a.GetByRole("button", uiaction.RoleOptions{Name: "Count", Exact: true})))
		v, _, err := a.Attribute(ctx, uiaction.Query("#counter"), "data-clicks")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})

	t.Run("press and select", func(t *testing.T) {
		ctx, a := open(t, nil)

		require.NoError(t, a.Fill(ctx, uiaction.Query("#email"), "abc"))
		require.NoError(t, a.Press(ctx, uiaction.Query("#email"), "Backspace"))
		v, _, err := a.Attribute(ctx, uiaction.Query("#email"), "value")
		require.NoError(t, err)
		assert.Equal(t, "ab", v)

		require.NoError(t, a.SelectOption(ctx, a.GetByLabel("Country"), "nz"))
		v, _, err = a.Attribute(ctx, uiaction.Query("#country"), "value")
		require.NoError(t, err)
		assert.Equal(t, "nz", v)

		require.NoError(t, a.ScrollToElement(ctx, uiaction.Query("#steady")))
	})

	t.Run("locator factories", func(t *testing.T) {
		ctx, a := open(t, nil)

		text, err := a.Text(ctx, a.GetByText("Always here"))
		require.NoError(t, err)
		assert.Equal(t, "Always here", text)

		text, err = a.Text(ctx, a.CSSContainsClass("item-first"))
		require.NoError(t, err)
		assert.Equal(t, "one", text)

		text, err = a.Text(ctx, a.Locator(".item", uiaction.LocatorOptions{Nth: uiaction.Int(-1)}))
		require.NoError(t, err)
		assert.Equal(t, "three", text)

		n, err := a.Count(ctx, a.Locator(".item", uiaction.LocatorOptions{HasText: "TWO"}))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = a.Count(ctx, a.Locator("li", uiaction.LocatorOptions{Within: a.Locator("#list")}))
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = a.Count(ctx, a.GetByText("Twin", uiaction.TextOptions{Exact: true}))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, a.Fill(ctx, a.GetByLabel("Email"), "label@example.com"))
		v, _, err := a.Attribute(ctx, uiaction.Query("#email"), "value")
		require.NoError(t, err)
		assert.Equal(t, "label@example.com", v)
	})

	t.Run("wait for visible times out", func(t *testing.T) {
		ctx, a := open(t, nil)

		start := time.Now()
		err := a.WaitForVisible(ctx, uiaction.Query("#missing"), uiaction.WaitOptions{Timeout: 500 * time.Millisecond})
		elapsed := time.Since(start)
		require.ErrorIs(t, err, uiaction.ErrTimeout)
		assert.Equal(t, uiaction.CodeNotVisible, uiaction.Code(err))
		assert.GreaterOrEqual(t, elapsed, 500*time.Millisecond)
		assert.Less(t, elapsed, 5*time.Second)

		var te *uiaction.TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, 500*time.Millisecond, te.Timeout)
		assert.Equal(t, "#missing", te.Target)

		err = a.WaitForVisible(ctx, uiaction.Query("#ghost"), short)
		require.ErrorIs(t, err, uiaction.ErrTimeout)

		require.NoError(t, a.WaitForVisible(ctx, uiaction.Query("#steady")))
	})

	t.Run("wait for hidden", func(t *testing.T) {
		ctx, a := open(t, nil)

		require.NoError(t, a.WaitForHidden(ctx, uiaction.Query("#ghost")))
		require.NoError(t, a.WaitForHidden(ctx, uiaction.Query("#absent")))

		err := a.WaitForHidden(ctx, uiaction.Query("#steady"), short)
		require.ErrorIs(t, err, uiaction.ErrTimeout)
		assert.Equal(t, uiaction.CodeTimeout, uiaction.Code(err))
	})

	t.Run("wait for element that appears later", func(t *testing.T) {
		ctx, a := open(t, nil)

		// Built before the element exists.
		arrived := a.GetByText("Arrived")

		require.NoError(t, a.Navigate(ctx, "/contract?appear=300"))
		require.NoError(t, a.WaitForVisible(ctx, arrived, uiaction.WaitOptions{Timeout: 5 * time.Second}))
		require.NoError(t, a.WaitForElement(ctx, uiaction.Query("#late"), uiaction.WaitOptions{Timeout: 5 * time.Second}))
		text, err := a.Text(ctx, uiaction.Query("#late"))
		require.NoError(t, err)
		assert.Equal(t, "Arrived", text)
	})

	t.Run("unactionable elements", func(t *testing.T) {
		ctx, a := open(t, nil)

		for _, sel := range []string{"#absent", "#disabled", "#ghost"} {
			err := a.Click(ctx, uiaction.Query(sel), shortAction)
			require.ErrorIs(t, err, uiaction.ErrNotActionable, sel)
			assert.Equal(t, uiaction.CodeNotActionable, uiaction.Code(err), sel)
		}
	})

	t.Run("navigation", func(t *testing.T) {
		ctx, a := open(t, nil)

		title, err := a.PageTitle(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Contract", title)

		require.NoError(t, a.OpenURL(ctx, "/login"))
		require.NoError(t, a.WaitForPageLoad(ctx))
		u, err := a.CurrentURL(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(u, "/login"), u)

		require.NoError(t, a.GoBack(ctx))
		u, err = a.CurrentURL(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(u, "/contract"), u)

		require.NoError(t, a.GoForward(ctx))
		u, err = a.CurrentURL(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(u, "/login"), u)
	})

	t.Run("navigation failure", func(t *testing.T) {
		ctx, a := open(t, nil)

		err := a.Navigate(ctx, "http://127.0.0.1:1/", uiaction.WaitOptions{Timeout: 5 * time.Second})
		require.ErrorIs(t, err, uiaction.ErrNavigation)
		assert.Equal(t, uiaction.CodeNavigation, uiaction.Code(err))
	})

	t.Run("screenshot", func(t *testing.T) {
		ctx, a := open(t, nil)

		path, err := a.TakeScreenshot(ctx, "contract page")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(path, "contract_page.png"), path)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	})

	t.Run("invalid targets", func(t *testing.T) {
		ctx, a := open(t, nil)

		err := a.Click(ctx, uiaction.Query("  "))
		require.ErrorIs(t, err, uiaction.ErrInvalidTarget)
		assert.Equal(t, uiaction.CodeInvalidTarget, uiaction.Code(err))

		err = a.Click(ctx, &Handle{Desc: "#email"})
		require.ErrorIs(t, err, uiaction.ErrInvalidTarget)
	})

	t.Run("handles go stale when the context closes", func(t *testing.T) {
		ctx, a := open(t, nil)

		h := a.Locator("#email")
		require.NoError(t, a.CloseContext(ctx))
		require.NoError(t, a.CloseContext(ctx))

		err := a.Fill(ctx, h, "x")
		require.ErrorIs(t, err, uiaction.ErrStaleHandle)
		assert.Equal(t, uiaction.CodeStaleHandle, uiaction.Code(err))

		_, err = a.Count(ctx, uiaction.Query("#email"))
		require.ErrorIs(t, err, uiaction.ErrStaleHandle)

		require.NoError(t, uiaction.Teardown(ctx, a))
		require.NoError(t, uiaction.Teardown(ctx, a))
	})

	t.Run("events", func(t *testing.T) {
		var (
			mu     sync.Mutex
			events []uiaction.Event
		)
		sink := uiaction.SinkFunc(func(e uiaction.Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, e)
		})
		ctx, a := open(t, sink)

		mu.Lock()
		events = nil
		mu.Unlock()

		_, err := a.Count(ctx, uiaction.Query(".item"))
		require.NoError(t, err)
		_ = a.Click(ctx, uiaction.Query("#absent"), shortAction)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, events, 2)
		assert.Equal(t, "count", events[0].Op)
		assert.Equal(t, ".item", events[0].Target)
		assert.Equal(t, uiaction.OutcomeOK, events[0].Outcome)
		assert.Equal(t, "click", events[1].Op)
		assert.Equal(t, uiaction.OutcomeFailed, events[1].Outcome)
		assert.Equal(t, uiaction.CodeNotActionable, events[1].Code())
	})
}
