package pages

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

// Messages shown by the sign-in flow.
const (
	MsgInvalidCredentials = "Invalid email or password"
	MsgInvalidEmail       = "Please enter a valid email address"
	MsgPasswordRequired   = "Password is required"
	MsgResetEmailSent     = "if an account with this email exists, password reset instructions have been sent."
)

const signInScreenTimeout = 5 * time.Second

// SignInPage is the login screen together with its forgot-password flow.
type SignInPage struct {
	BasePage

	emailInput         uiaction.Query
	passwordInput      uiaction.Query
	loginButton        uiaction.Query
	companyLabel       uiaction.Query
	forgotPasswordLink uiaction.Query
	signInLink         uiaction.Query
	showPasswordToggle uiaction.Query

	sendLinkButton          uiaction.Handle
	invalidCredentialsError uiaction.Handle
	invalidEmailError       uiaction.Handle
	passwordRequiredError   uiaction.Handle
	resetEmailNotification  uiaction.Handle
}

func NewSignInPage(browser uiaction.BrowserAction, baseURL string, log *zap.Logger) *SignInPage {
	p := &SignInPage{
		BasePage:           NewBasePage(browser, baseURL, log),
		emailInput:         "#email",
		passwordInput:      "#password",
		loginButton:        `button[type="submit"]`,
		companyLabel:       ".border-sidebar-border h1",
		forgotPasswordLink: `a[href="/forgot-password"]`,
		signInLink:         `a[href='/login']`,
		showPasswordToggle: "svg.lucide-eye",
	}
	p.log = p.log.Named("signin")
	p.sendLinkButton = browser.Locator("button", uiaction.LocatorOptions{HasText: "Send Link"})
	p.invalidCredentialsError = browser.GetByText(MsgInvalidCredentials)
	p.invalidEmailError = browser.GetByText(MsgInvalidEmail)
	p.passwordRequiredError = browser.GetByText(MsgPasswordRequired)
	p.resetEmailNotification = browser.GetByText(MsgResetEmailSent)
	return p
}

// IsUserOnSignInScreen waits briefly for the forgot-password link.
func (p *SignInPage) IsUserOnSignInScreen(ctx context.Context) (bool, error) {
	return p.visible(ctx, p.forgotPasswordLink, "forgot password link", signInScreenTimeout)
}

func (p *SignInPage) EnterEmail(ctx context.Context, email string) error {
	p.log.Info("entering email", zap.String("email", email))
	return p.Browser.Fill(ctx, p.emailInput, email)
}

func (p *SignInPage) EnterPassword(ctx context.Context, password string) error {
	p.log.Info("entering password", zap.String("password", "[REDACTED]"))
	return p.Browser.Fill(ctx, p.passwordInput, password)
}

func (p *SignInPage) ClickLoginButton(ctx context.Context) error {
	p.log.Info("clicking login button")
	return p.Browser.Click(ctx, p.loginButton)
}

// ClickForgotPasswordLink opens the reset form and waits for its submit button.
func (p *SignInPage) ClickForgotPasswordLink(ctx context.Context) error {
	p.log.Info("clicking forgot password link")
	if err := p.Browser.Click(ctx, p.forgotPasswordLink); err != nil {
		return err
	}
	return p.Browser.WaitForVisible(ctx, p.sendLinkButton)
}

func (p *SignInPage) ClickSendLinkButton(ctx context.Context) error {
	p.log.Info("clicking send link button")
	return p.Browser.Click(ctx, p.sendLinkButton)
}

func (p *SignInPage) ClickSignInLink(ctx context.Context) error {
	p.log.Info("clicking sign in link")
	return p.Browser.Click(ctx, p.signInLink)
}

func (p *SignInPage) ToggleShowHidePassword(ctx context.Context) error {
	p.log.Info("clicking show/hide password toggle")
	return p.Browser.Click(ctx, p.showPasswordToggle)
}

// IsPasswordVisible reports whether the password input renders as plain text.
func (p *SignInPage) IsPasswordVisible(ctx context.Context) (bool, error) {
	typ, _, err := p.Browser.Attribute(ctx, p.passwordInput, "type")
	if err != nil {
		return false, err
	}
	return typ == "text", nil
}

// SignIn enters the credentials and submits the form.
func (p *SignInPage) SignIn(ctx context.Context, email, password string) error {
	if err := p.EnterEmail(ctx, email); err != nil {
		return err
	}
	if err := p.EnterPassword(ctx, password); err != nil {
		return err
	}
	return p.ClickLoginButton(ctx)
}

func (p *SignInPage) IsInvalidCredentialErrorVisible(ctx context.Context) (bool, error) {
	return p.visible(ctx, p.invalidCredentialsError, "invalid credential error", 0)
}

func (p *SignInPage) IsInvalidEmailErrorVisible(ctx context.Context) (bool, error) {
	return p.visible(ctx, p.invalidEmailError, "invalid email error", 0)
}

func (p *SignInPage) IsPasswordRequiredErrorVisible(ctx context.Context) (bool, error) {
	return p.visible(ctx, p.passwordRequiredError, "password required error", 0)
}

// CompanyLabel returns the lowercased company name shown after sign-in.
func (p *SignInPage) CompanyLabel(ctx context.Context) (string, error) {
	return p.lowerText(ctx, p.companyLabel, 0)
}

// ResetNotification returns the lowercased reset-email confirmation.
func (p *SignInPage) ResetNotification(ctx context.Context) (string, error) {
	return p.lowerText(ctx, p.resetEmailNotification, signInScreenTimeout)
}

func (p *SignInPage) lowerText(ctx context.Context, t uiaction.Target, timeout time.Duration) (string, error) {
	if err := p.Browser.WaitForVisible(ctx, t, uiaction.WaitOptions{Timeout: timeout}); err != nil {
		return "", err
	}
	text, err := p.Browser.Text(ctx, t)
	if err != nil {
		return "", err
	}
	return strings.ToLower(text), nil
}
