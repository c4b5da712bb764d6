package scenarios

import (
	"context"

	"github.com/entrhq/uiharness/pkg/pages"
	"github.com/entrhq/uiharness/pkg/runner"
)

// SignUp returns the sign-up suite.
func SignUp() []runner.Scenario {
	return []runner.Scenario{
		{
			Name: "signup/new user",
			Tags: []string{"signup"},
			Run: func(ctx context.Context, env *runner.Env) error {
				p := pages.NewSignUpPage(env.Browser, env.Config.BaseURL, env.Log)
				if err := p.OpenApplication(ctx); err != nil {
					return err
				}

				account := env.Data.AccountInformation()
				name := account.FirstName + " " + account.LastName
				if err := p.FillNewUserForm(ctx, name, env.Data.Email()); err != nil {
					return err
				}
				if err := p.EnterAccountInformation(ctx, account); err != nil {
					return err
				}
				ok, err := p.IsAccountCreated(ctx)
				if err := runner.Expect(ok, err, "account created banner visible"); err != nil {
					return err
				}
				return p.Continue(ctx)
			},
		},
	}
}
