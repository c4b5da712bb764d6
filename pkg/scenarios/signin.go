// Package scenarios holds the built-in sign-in and sign-up suites.
package scenarios

import (
	"context"
	"strings"

	"github.com/entrhq/uiharness/pkg/datafactory"
	"github.com/entrhq/uiharness/pkg/pages"
	"github.com/entrhq/uiharness/pkg/runner"
)

// All returns every built-in scenario.
func All() []runner.Scenario {
	return append(SignIn(), SignUp()...)
}

var invalidEmailCases = []struct {
	kind        datafactory.InvalidEmail
	description string
}{
	{datafactory.EmailNoAt, "missing @ symbol"},
	{datafactory.EmailNoDomain, "missing domain"},
	{datafactory.EmailMissingTLD, "missing top-level domain"},
	{datafactory.EmailDoubleAt, "double @ symbols"},
	{datafactory.EmailLeadingDot, "leading dot in local part"},
	{datafactory.EmailTrailingDot, "trailing dot in local part"},
	{datafactory.EmailSpecialChars, "invalid characters in domain"},
}

// signInStep runs fn against a sign-in page opened on the base URL.
func signInStep(fn func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error) func(context.Context, *runner.Env) error {
	return func(ctx context.Context, env *runner.Env) error {
		p := pages.NewSignInPage(env.Browser, env.Config.BaseURL, env.Log)
		if err := p.OpenApplication(ctx); err != nil {
			return err
		}
		return fn(ctx, env, p)
	}
}

// SignIn returns the sign-in suite.
func SignIn() []runner.Scenario {
	suite := []runner.Scenario{
		{
			Name: "signin/valid user",
			Tags: []string{"signin", "smoke"},
			Run: signInStep(func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error {
				user := env.Config.Users.Valid
				if user.Email == "" || user.Password == "" {
					return runner.Skip("VALID_USER_EMAIL and VALID_USER_PASSWORD are not set")
				}
				if err := p.SignIn(ctx, user.Email, user.Password); err != nil {
					return err
				}
				label, err := p.CompanyLabel(ctx)
				if err != nil {
					return err
				}
				if user.Company == "" {
					return nil
				}
				return runner.Equal("company label", strings.ToLower(user.Company), label)
			}),
		},
		{
			Name: "signin/invalid user",
			Tags: []string{"signin", "negative"},
			Run: signInStep(func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error {
				account := env.Data.AccountInformation()
				if err := p.SignIn(ctx, env.Data.Email(), account.Password); err != nil {
					return err
				}
				ok, err := p.IsInvalidCredentialErrorVisible(ctx)
				return runner.Expect(ok, err, "invalid credential error visible")
			}),
		},
	}

	for _, tc := range invalidEmailCases {
		suite = append(suite, runner.Scenario{
			Name: "signin/invalid email - " + tc.description,
			Tags: []string{"signin", "negative", "email"},
			Run: signInStep(func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error {
				account := env.Data.AccountInformation()
				if err := p.SignIn(ctx, env.Data.InvalidEmail(tc.kind), account.Password); err != nil {
					return err
				}
				ok, err := p.IsInvalidEmailErrorVisible(ctx)
				return runner.Expect(ok, err, "invalid email error visible")
			}),
		})
	}

	return append(suite,
		runner.Scenario{
			Name: "signin/invalid password - contains only spaces",
			Tags: []string{"signin", "negative"},
			Run: signInStep(func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error {
				password := env.Data.InvalidPassword(datafactory.PasswordSpacesOnly)
				if err := p.SignIn(ctx, env.Data.Email(), password); err != nil {
					return err
				}
				ok, err := p.IsPasswordRequiredErrorVisible(ctx)
				return runner.Expect(ok, err, "password required error visible")
			}),
		},
		runner.Scenario{
			Name: "signin/forgot password",
			Tags: []string{"signin", "reset"},
			Run: signInStep(func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error {
				if err := p.ClickForgotPasswordLink(ctx); err != nil {
					return err
				}
				if err := p.EnterEmail(ctx, env.Data.Email()); err != nil {
					return err
				}
				if err := p.ClickSendLinkButton(ctx); err != nil {
					return err
				}
				note, err := p.ResetNotification(ctx)
				if err != nil {
					return err
				}
				return runner.Equal("reset notification", pages.MsgResetEmailSent, note)
			}),
		},
		runner.Scenario{
			Name: "signin/reset screen sign in link",
			Tags: []string{"signin", "reset"},
			Run: signInStep(func(ctx context.Context, _ *runner.Env, p *pages.SignInPage) error {
				if err := p.ClickForgotPasswordLink(ctx); err != nil {
					return err
				}
				if err := p.ClickSignInLink(ctx); err != nil {
					return err
				}
				ok, err := p.IsUserOnSignInScreen(ctx)
				return runner.Expect(ok, err, "user back on sign in screen")
			}),
		},
		runner.Scenario{
			Name: "signin/toggle show hide password",
			Tags: []string{"signin"},
			Run: signInStep(func(ctx context.Context, env *runner.Env, p *pages.SignInPage) error {
				if err := p.EnterPassword(ctx, env.Data.AccountInformation().Password); err != nil {
					return err
				}
				if err := p.ToggleShowHidePassword(ctx); err != nil {
					return err
				}
				ok, err := p.IsPasswordVisible(ctx)
				return runner.Expect(ok, err, "password shown as text")
			}),
		},
	)
}
