package pages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/entrhq/uiharness/pkg/datafactory"
	"github.com/entrhq/uiharness/pkg/uiaction"
	"github.com/entrhq/uiharness/pkg/uiaction/uiactiontest"
)

var anyCtx = mock.Anything

func timeoutErr(target string) error {
	return &uiaction.TimeoutError{Op: "wait_for_visible", Target: target, Condition: uiaction.ConditionVisible, Timeout: time.Second, Elapsed: time.Second}
}

func TestOpenAndCloseApplication(t *testing.T) {
	b := uiactiontest.NewBrowserAction(t)
	b.On("OpenURL", anyCtx, "http://app.test").Return(nil).Once()
	b.ExpectTeardown()

	page := NewSignInPage(b, "http://app.test", nil)
	ctx := context.Background()
	require.NoError(t, page.OpenApplication(ctx))
	require.NoError(t, page.CloseApplication(ctx))
}

func TestCloseApplicationJoinsFailures(t *testing.T) {
	b := uiactiontest.NewBrowserAction(t)
	pageErr := errors.New("page gone")
	b.On("ClosePage", anyCtx).Return(pageErr).Once()
	b.On("CloseContext", anyCtx).Return(nil).Once()
	b.On("CloseBrowser", anyCtx).Return(nil).Once()

	page := NewSignInPage(b, "http://app.test", nil)
	err := page.CloseApplication(context.Background())
	assert.ErrorIs(t, err, pageErr)
}

func TestSignIn(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	b := uiactiontest.NewBrowserAction(t)
	b.On("Fill", anyCtx, uiactiontest.Target("#email"), "qa@example.com").Return(nil).Once()
	b.On("Fill", anyCtx, uiactiontest.Target("#password"), "hunter2").Return(nil).Once()
	b.On("Click", anyCtx, uiactiontest.Target(`button[type="submit"]`)).Return(nil).Once()

	page := NewSignInPage(b, "http://app.test", zap.New(core))
	require.NoError(t, page.SignIn(context.Background(), "qa@example.com", "hunter2"))

	for _, e := range logs.All() {
		for _, v := range e.ContextMap() {
			assert.NotEqual(t, "hunter2", v, "password must not be logged")
		}
	}
	assert.Equal(t, "signin", logs.All()[0].LoggerName)
}

func TestSignInStopsAtFirstFailure(t *testing.T) {
	b := uiactiontest.NewBrowserAction(t)
	failure := &uiaction.NotActionableError{Op: "fill", Target: "#email", Reason: "not visible"}
	b.On("Fill", anyCtx, uiactiontest.Target("#email"), "qa@example.com").Return(failure).Once()

	page := NewSignInPage(b, "http://app.test", nil)
	err := page.SignIn(context.Background(), "qa@example.com", "pw")
	assert.ErrorIs(t, err, uiaction.ErrNotActionable)
}

func TestIsUserOnSignInScreen(t *testing.T) {
	const link = `a[href="/forgot-password"]`

	t.Run("visible", func(t *testing.T) {
		b := uiactiontest.NewBrowserAction(t)
		b.On("WaitForVisible", anyCtx, uiactiontest.Target(link), 5*time.Second).Return(nil).Once()

		ok, err := NewSignInPage(b, "", nil).IsUserOnSignInScreen(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("timeout reads as false", func(t *testing.T) {
		b := uiactiontest.NewBrowserAction(t)
		b.On("WaitForVisible", anyCtx, uiactiontest.Target(link), 5*time.Second).Return(timeoutErr(link)).Once()

		ok, err := NewSignInPage(b, "", nil).IsUserOnSignInScreen(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("stale handle is fatal", func(t *testing.T) {
		b := uiactiontest.NewBrowserAction(t)
		stale := &uiaction.StaleHandleError{Op: "wait_for_visible", Target: link, Scope: uiaction.ScopeContext}
		b.On("WaitForVisible", anyCtx, uiactiontest.Target(link), 5*time.Second).Return(stale).Once()

		ok, err := NewSignInPage(b, "", nil).IsUserOnSignInScreen(context.Background())
		assert.False(t, ok)
		assert.ErrorIs(t, err, uiaction.ErrStaleHandle)
	})
}

func TestErrorMessageProbes(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		probe func(*SignInPage, context.Context) (bool, error)
	}{
		{"invalid credentials", MsgInvalidCredentials, (*SignInPage).IsInvalidCredentialErrorVisible},
		{"invalid email", MsgInvalidEmail, (*SignInPage).IsInvalidEmailErrorVisible},
		{"password required", MsgPasswordRequired, (*SignInPage).IsPasswordRequiredErrorVisible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := uiactiontest.NewBrowserAction(t)
			b.On("WaitForVisible", anyCtx, uiactiontest.Target("text="+tt.text), time.Duration(0)).Return(nil).Once()

			ok, err := tt.probe(NewSignInPage(b, "", nil), context.Background())
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestNavigationFailureIsFatalForProbes(t *testing.T) {
	b := uiactiontest.NewBrowserAction(t)
	navErr := &uiaction.NavigationError{Op: "navigate", URL: "http://app.test", Err: errors.New("net::ERR_CONNECTION_REFUSED")}
	b.On("WaitForVisible", anyCtx, uiactiontest.Target("text="+MsgInvalidEmail), time.Duration(0)).Return(navErr).Once()

	ok, err := NewSignInPage(b, "", nil).IsInvalidEmailErrorVisible(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, uiaction.ErrNavigation)
}

func TestForgotPasswordFlow(t *testing.T) {
	b := uiactiontest.NewBrowserAction(t)
	sendLink := "button:has-text(Send Link)"
	b.On("Click", anyCtx, uiactiontest.Target(`a[href="/forgot-password"]`)).Return(nil).Once()
	b.On("WaitForVisible", anyCtx, uiactiontest.Target(sendLink), time.Duration(0)).Return(nil).Once()
	b.On("Click", anyCtx, uiactiontest.Target(sendLink)).Return(nil).Once()
	b.On("WaitForVisible", anyCtx, uiactiontest.Target("text="+MsgResetEmailSent), 5*time.Second).Return(nil).Once()
	b.On("Text", anyCtx, uiactiontest.Target("text="+MsgResetEmailSent)).
		Return("If an account with this email exists, password reset instructions have been sent.", nil).Once()
	b.On("Click", anyCtx, uiactiontest.Target(`a[href='/login']`)).Return(nil).Once()

	page := NewSignInPage(b, "", nil)
	ctx := context.Background()
	require.NoError(t, page.ClickForgotPasswordLink(ctx))
	require.NoError(t, page.ClickSendLinkButton(ctx))

	note, err := page.ResetNotification(ctx)
	require.NoError(t, err)
	assert.Equal(t, MsgResetEmailSent, note)

	require.NoError(t, page.ClickSignInLink(ctx))
}

func TestPasswordVisibility(t *testing.T) {
	b := uiactiontest.NewBrowserAction(t)
	b.On("Attribute", anyCtx, uiactiontest.Target("#password"), "type").Return("password", true, nil).Once()
	b.On("Click", anyCtx, uiactiontest.Target("svg.lucide-eye")).Return(nil).Once()
	b.On("Attribute", anyCtx, uiactiontest.Target("#password"), "type").Return("text", true, nil).Once()

	page := NewSignInPage(b, "", nil)
	ctx := context.Background()

	visible, err := page.IsPasswordVisible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	require.NoError(t, page.ToggleShowHidePassword(ctx))

	visible, err = page.IsPasswordVisible(ctx)
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestCompanyLabel(t *testing.T) {
	const label = ".border-sidebar-border h1"
	b := uiactiontest.NewBrowserAction(t)
	b.On("WaitForVisible", anyCtx, uiactiontest.Target(label), time.Duration(0)).Return(nil).Once()
	b.On("Text", anyCtx, uiactiontest.Target(label)).Return("ACME Corp", nil).Once()

	got, err := NewSignInPage(b, "", nil).CompanyLabel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme corp", got)
}

func TestCompanyLabelTimeout(t *testing.T) {
	const label = ".border-sidebar-border h1"
	b := uiactiontest.NewBrowserAction(t)
	b.On("WaitForVisible", anyCtx, uiactiontest.Target(label), time.Duration(0)).Return(timeoutErr(label)).Once()

	_, err := NewSignInPage(b, "", nil).CompanyLabel(context.Background())
	assert.ErrorIs(t, err, uiaction.ErrTimeout)
}

func TestSignUpFlow(t *testing.T) {
	info := datafactory.AccountInfo{
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Password:     datafactory.AccountPassword,
		Address1:     "1 Analytical Way",
		City:         "London",
		State:        "Greater London",
		ZipCode:      "N1",
		MobileNumber: "0123456789",
	}

	b := uiactiontest.NewBrowserAction(t)
	fill := func(sel, v string) {
		b.On("Fill", anyCtx, uiactiontest.Target(sel), v).Return(nil).Once()
	}
	fill(`[data-qa="signup-name"]`, "Ada")
	fill(`[data-qa="signup-email"]`, "ada@example.com")
	b.On("Click", anyCtx, uiactiontest.Target(`[data-qa="signup-button"]`)).Return(nil).Once()
	fill("#password", datafactory.AccountPassword)
	fill("#first_name", "Ada")
	fill("#last_name", "Lovelace")
	b.On("Click", anyCtx, uiactiontest.Target(`[data-qa="create-account"]`)).Return(nil).Once()
	fill("#address1", info.Address1)
	fill(`[data-qa="state"]`, info.State)
	fill(`[data-qa="city"]`, info.City)
	fill(`[data-qa="zipcode"]`, info.ZipCode)
	fill(`[data-qa="mobile_number"]`, info.MobileNumber)
	b.On("WaitForVisible", anyCtx, uiactiontest.Target("text=Account Created!"), time.Duration(0)).Return(nil).Once()
	b.On("WaitForElement", anyCtx, uiactiontest.Target(`[data-qa="continue-button"]`), time.Duration(0)).Return(nil).Once()
	b.On("Click", anyCtx, uiactiontest.Target(`[data-qa="continue-button"]`)).Return(nil).Once()

	page := NewSignUpPage(b, "", nil)
	ctx := context.Background()
	require.NoError(t, page.FillNewUserForm(ctx, "Ada", "ada@example.com"))
	require.NoError(t, page.EnterAddress(ctx, info))
	require.NoError(t, page.EnterAccountInformation(ctx, info))

	created, err := page.IsAccountCreated(ctx)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, page.Continue(ctx))
}

func TestSignUpContinueMissing(t *testing.T) {
	const btn = `[data-qa="continue-button"]`
	b := uiactiontest.NewBrowserAction(t)
	b.On("WaitForElement", anyCtx, uiactiontest.Target(btn), time.Duration(0)).Return(timeoutErr(btn)).Once()

	err := NewSignUpPage(b, "", nil).Continue(context.Background())
	assert.ErrorIs(t, err, uiaction.ErrTimeout)
}
