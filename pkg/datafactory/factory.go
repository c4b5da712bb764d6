// Package datafactory generates user, account and product data for scenarios,
// including the malformed email and password variants used by negative tests.
package datafactory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"
)

// AccountPassword is the fixed password used for generated accounts.
const AccountPassword = "12345678"

// AccountInfo is the data entered on the sign-up account information form.
type AccountInfo struct {
	FirstName    string
	LastName     string
	Password     string
	Address1     string
	City         string
	State        string
	MobileNumber string
	ZipCode      string
}

// InvalidEmail names a class of malformed email address.
type InvalidEmail string

const (
	EmailNoAt         InvalidEmail = "no_at"
	EmailNoDomain     InvalidEmail = "no_domain"
	EmailMissingTLD   InvalidEmail = "missing_tld"
	EmailDoubleAt     InvalidEmail = "double_at"
	EmailLeadingDot   InvalidEmail = "leading_dot"
	EmailTrailingDot  InvalidEmail = "trailing_dot"
	EmailTooLong      InvalidEmail = "too_long"
	EmailSpecialChars InvalidEmail = "special_chars"
)

// InvalidEmails lists every InvalidEmail kind.
var InvalidEmails = []InvalidEmail{
	EmailNoAt, EmailNoDomain, EmailMissingTLD, EmailDoubleAt,
	EmailLeadingDot, EmailTrailingDot, EmailTooLong, EmailSpecialChars,
}

// InvalidPassword names a class of password that violates the password policy.
type InvalidPassword string

const (
	PasswordTooShort      InvalidPassword = "too_short"
	PasswordSpacesOnly    InvalidPassword = "spaces_only"
	PasswordNoUppercase   InvalidPassword = "no_uppercase"
	PasswordNoLowercase   InvalidPassword = "no_lowercase"
	PasswordNoNumber      InvalidPassword = "no_number"
	PasswordNoSpecialChar InvalidPassword = "no_special_char"
	PasswordOnlyNumbers   InvalidPassword = "only_numbers"
	PasswordOnlyLetters   InvalidPassword = "only_letters"
	PasswordContainsSpace InvalidPassword = "contains_space"
	PasswordTooLong       InvalidPassword = "too_long"
	PasswordEmpty         InvalidPassword = "empty"
)

// InvalidPasswords lists every InvalidPassword kind.
var InvalidPasswords = []InvalidPassword{
	PasswordTooShort, PasswordSpacesOnly, PasswordNoUppercase, PasswordNoLowercase,
	PasswordNoNumber, PasswordNoSpecialChar, PasswordOnlyNumbers, PasswordOnlyLetters,
	PasswordContainsSpace, PasswordTooLong, PasswordEmpty,
}

// Factory generates test data. It is safe for concurrent use.
type Factory struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// New returns a factory. A zero seed draws a random one; any other seed makes
// the generated sequence reproducible.
func New(seed uint64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

func (f *Factory) with(fn func(*gofakeit.Faker) string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f.faker)
}

// AccountInformation returns a new account with the fixed AccountPassword.
func (f *Factory) AccountInformation() AccountInfo {
	f.mu.Lock()
	defer f.mu.Unlock()

	g := f.faker
	return AccountInfo{
		FirstName:    g.FirstName(),
		LastName:     g.LastName(),
		Password:     AccountPassword,
		Address1:     g.Street(),
		City:         g.City(),
		State:        g.State(),
		MobileNumber: g.DigitN(10),
		ZipCode:      g.Zip(),
	}
}

// ProductName returns "Test Product NNNN".
func (f *Factory) ProductName() string {
	return fmt.Sprintf("Test Product %d", f.RandomNumber(1000, 9999))
}

func (f *Factory) Email() string {
	return f.with(func(g *gofakeit.Faker) string { return g.Email() })
}

// RandomNumber returns an integer in [min, max].
func (f *Factory) RandomNumber(min, max int) int {
	if min > max {
		min, max = max, min
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.faker.Number(min, max)
}

// InvalidEmail returns an address of the given kind. Unknown kinds yield
// "not-an-email".
func (f *Factory) InvalidEmail(kind InvalidEmail) string {
	name := f.with(func(g *gofakeit.Faker) string { return strings.ToLower(g.FirstName()) })

	switch kind {
	case EmailNoAt:
		return name + "gmail.com"
	case EmailNoDomain:
		return name + "@"
	case EmailMissingTLD:
		return name + "@gmail"
	case EmailDoubleAt:
		return name + "@@gmail.com"
	case EmailLeadingDot:
		return "." + name + "@gmail.com"
	case EmailTrailingDot:
		return name + ".@gmail.com"
	case EmailTooLong:
		return strings.Repeat("a", 320) + "@example.com"
	case EmailSpecialChars:
		return name + "@do#main.com"
	default:
		return "not-an-email"
	}
}

// InvalidPassword returns a password of the given kind. Unknown kinds yield
// "invalid".
func (f *Factory) InvalidPassword(kind InvalidPassword) string {
	switch kind {
	case PasswordTooShort:
		return f.alphanumeric(5)
	case PasswordNoUppercase:
		return strings.ToLower(f.letters(8)) + "1!"
	case PasswordNoLowercase:
		return strings.ToUpper(f.letters(8)) + "1!"
	case PasswordNoNumber:
		return f.letters(10) + "!"
	case PasswordNoSpecialChar:
		return f.alphanumeric(10)
	case PasswordOnlyNumbers:
		return f.with(func(g *gofakeit.Faker) string { return g.DigitN(10) })
	case PasswordOnlyLetters:
		return f.letters(10)
	case PasswordContainsSpace:
		return "Pass word1!"
	case PasswordSpacesOnly:
		return strings.Repeat(" ", 10)
	case PasswordTooLong:
		return "A1!" + strings.Repeat("a", 300)
	case PasswordEmpty:
		return ""
	default:
		return "invalid"
	}
}

func (f *Factory) letters(n uint) string {
	return f.with(func(g *gofakeit.Faker) string { return g.LetterN(n) })
}

func (f *Factory) alphanumeric(n int) string {
	return f.with(func(g *gofakeit.Faker) string {
		return g.Password(true, true, true, false, false, n)
	})
}
