package runner

import (
	"errors"
	"fmt"
)

// CodeAssertion is reported for scenario checks that did not hold.
const CodeAssertion = "ASSERTION_FAILED"

// ErrSkip marks an attempt the scenario chose not to run, for example because
// required credentials are not configured. Skips are never retried.
var ErrSkip = errors.New("scenario skipped")

// Skip returns an error wrapping ErrSkip with a reason.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkip, reason)
}

// AssertionError reports a scenario check that failed.
type AssertionError struct {
	Check    string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %v, got %v", e.Check, e.Expected, e.Actual)
}

func (e *AssertionError) Code() string { return CodeAssertion }

func (e *AssertionError) Fields() map[string]any {
	return map[string]any{
		"code":     CodeAssertion,
		"check":    e.Check,
		"expected": fmt.Sprint(e.Expected),
		"actual":   fmt.Sprint(e.Actual),
	}
}

// Expect turns a probe result into an assertion. A probe error is returned
// unchanged so fatal conditions keep their own classification.
func Expect(ok bool, err error, check string) error {
	if err != nil {
		return err
	}
	if !ok {
		return &AssertionError{Check: check, Expected: true, Actual: false}
	}
	return nil
}

// Equal checks actual against expected.
func Equal[T comparable](check string, expected, actual T) error {
	if expected != actual {
		return &AssertionError{Check: check, Expected: expected, Actual: actual}
	}
	return nil
}
