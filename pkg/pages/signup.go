package pages

import (
	"context"

	"go.uber.org/zap"

	"github.com/entrhq/uiharness/pkg/datafactory"
	"github.com/entrhq/uiharness/pkg/uiaction"
)

// SignUpPage is the two-step registration form.
type SignUpPage struct {
	BasePage
}

const (
	signUpName         uiaction.Query = `[data-qa="signup-name"]`
	signUpEmail        uiaction.Query = `[data-qa="signup-email"]`
	signUpButton       uiaction.Query = `[data-qa="signup-button"]`
	accountPassword    uiaction.Query = "#password"
	accountFirstName   uiaction.Query = "#first_name"
	accountLastName    uiaction.Query = "#last_name"
	accountAddress1    uiaction.Query = "#address1"
	accountCity        uiaction.Query = `[data-qa="city"]`
	accountState       uiaction.Query = `[data-qa="state"]`
	accountZipCode     uiaction.Query = `[data-qa="zipcode"]`
	accountMobile      uiaction.Query = `[data-qa="mobile_number"]`
	createAccountBtn   uiaction.Query = `[data-qa="create-account"]`
	continueButton     uiaction.Query = `[data-qa="continue-button"]`
	accountCreatedText                = "Account Created!"
)

func NewSignUpPage(browser uiaction.BrowserAction, baseURL string, log *zap.Logger) *SignUpPage {
	p := &SignUpPage{BasePage: NewBasePage(browser, baseURL, log)}
	p.log = p.log.Named("signup")
	return p
}

// FillNewUserForm enters name and email and submits the first step.
func (p *SignUpPage) FillNewUserForm(ctx context.Context, name, email string) error {
	p.log.Info("filling signup form", zap.String("name", name), zap.String("email", email))
	if err := p.Browser.Fill(ctx, signUpName, name); err != nil {
		return err
	}
	if err := p.Browser.Fill(ctx, signUpEmail, email); err != nil {
		return err
	}
	return p.Browser.Click(ctx, signUpButton)
}

// EnterAccountInformation fills the required account fields and creates the
// account.
func (p *SignUpPage) EnterAccountInformation(ctx context.Context, info datafactory.AccountInfo) error {
	p.log.Info("entering account information",
		zap.String("first_name", info.FirstName),
		zap.String("last_name", info.LastName))

	fields := []struct {
		target uiaction.Query
		value  string
	}{
		{accountPassword, info.Password},
		{accountFirstName, info.FirstName},
		{accountLastName, info.LastName},
	}
	for _, f := range fields {
		if err := p.Browser.Fill(ctx, f.target, f.value); err != nil {
			return err
		}
	}
	return p.Browser.Click(ctx, createAccountBtn)
}

// EnterAddress fills the optional address section of the account form.
func (p *SignUpPage) EnterAddress(ctx context.Context, info datafactory.AccountInfo) error {
	fields := []struct {
		target uiaction.Query
		value  string
	}{
		{accountAddress1, info.Address1},
		{accountState, info.State},
		{accountCity, info.City},
		{accountZipCode, info.ZipCode},
		{accountMobile, info.MobileNumber},
	}
	for _, f := range fields {
		if err := p.Browser.Fill(ctx, f.target, f.value); err != nil {
			return err
		}
	}
	return nil
}

// Continue waits for the continue button shown after account creation and
// clicks it.
func (p *SignUpPage) Continue(ctx context.Context) error {
	p.log.Info("waiting for continue button after account creation")
	if err := p.Browser.WaitForElement(ctx, continueButton); err != nil {
		return err
	}
	return p.Browser.Click(ctx, continueButton)
}

// IsAccountCreated probes for the account-created banner.
func (p *SignUpPage) IsAccountCreated(ctx context.Context) (bool, error) {
	return p.visible(ctx, p.Browser.GetByText(accountCreatedText), "account created banner", 0)
}
