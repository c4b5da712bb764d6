package pwaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/uiharness/pkg/uiaction"
)

const conditionActionable = "actionable"

// failure carries what the translators need to build a taxonomy error.
type failure struct {
	op      string
	target  string
	timeout time.Duration
	start   time.Time
}

func isStrictViolation(err error) bool {
	return strings.Contains(err.Error(), "strict mode violation")
}

// stale returns a StaleHandleError when the scope chain is closed or
// Playwright reports the target gone.
func (a *Action) stale(f failure, err error) error {
	if kind, closed := a.pageScope.ClosedAt(); closed {
		return &uiaction.StaleHandleError{Op: f.op, Target: f.target, Scope: kind, Err: err}
	}
	if errors.Is(err, playwright.ErrTargetClosed) {
		return &uiaction.StaleHandleError{Op: f.op, Target: f.target, Scope: uiaction.ScopePage, Err: err}
	}
	return nil
}

func (a *Action) timeoutError(f failure, condition string, err error) *uiaction.TimeoutError {
	return &uiaction.TimeoutError{
		Op:        f.op,
		Target:    f.target,
		Condition: condition,
		Timeout:   f.timeout,
		Elapsed:   a.rec.Now().Sub(f.start),
		Err:       err,
	}
}

// actionError translates a failed element interaction.
func (a *Action) actionError(f failure, err error) error {
	if err == nil {
		return nil
	}
	if s := a.stale(f, err); s != nil {
		return s
	}
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return &uiaction.NotActionableError{
			Op:     f.op,
			Target: f.target,
			Count:  -1,
			Reason: "not visible, enabled and stable before timeout",
			Err:    a.timeoutError(f, conditionActionable, err),
		}
	case isStrictViolation(err):
		return &uiaction.NotActionableError{
			Op:     f.op,
			Target: f.target,
			Count:  -1,
			Reason: "resolved to more than one element",
			Err:    err,
		}
	default:
		return fmt.Errorf("%s %q: %w", f.op, f.target, err)
	}
}

// waitError translates a failed wait or read.
func (a *Action) waitError(f failure, condition string, err error) error {
	if err == nil {
		return nil
	}
	if s := a.stale(f, err); s != nil {
		return s
	}
	switch {
	case errors.Is(err, playwright.ErrTimeout):
		return a.timeoutError(f, condition, err)
	case isStrictViolation(err):
		return &uiaction.NotActionableError{
			Op:     f.op,
			Target: f.target,
			Count:  -1,
			Reason: "resolved to more than one element",
			Err:    err,
		}
	default:
		return fmt.Errorf("%s %q: %w", f.op, f.target, err)
	}
}

// navigationError translates a failed page load or history traversal.
func (a *Action) navigationError(f failure, err error) error {
	if err == nil {
		return nil
	}
	if s := a.stale(f, err); s != nil {
		return s
	}
	cause := err
	if errors.Is(err, playwright.ErrTimeout) {
		cause = a.timeoutError(f, uiaction.ConditionLoad, err)
	}
	return &uiaction.NavigationError{Op: f.op, URL: f.target, Err: cause}
}
