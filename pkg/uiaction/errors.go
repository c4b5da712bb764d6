package uiaction

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels matched with errors.Is. Each typed error below reports Is for its
// own sentinel, and wrapping preserves both, so a NotActionableError caused by
// a timeout matches ErrNotActionable and ErrTimeout.
var (
	ErrTimeout       = errors.New("timeout")
	ErrNotActionable = errors.New("element not actionable")
	ErrStaleHandle   = errors.New("stale handle")
	ErrNavigation    = errors.New("navigation failed")
	ErrInvalidTarget = errors.New("invalid target")
)

// Stable error codes carried in events and reports.
const (
	CodeTimeout       = "TIMEOUT_ERROR"
	CodeNotVisible    = "LOCATOR_NOT_VISIBLE"
	CodeNotActionable = "LOCATOR_NOT_CLICKABLE"
	CodeStaleHandle   = "STALE_HANDLE"
	CodeNavigation    = "NAVIGATION_FAILED"
	CodeInvalidTarget = "INVALID_TARGET"
	CodeUnexpected    = "UNEXPECTED_ERROR"
)

// Wait conditions used in TimeoutError.Condition.
const (
	ConditionVisible  = "visible"
	ConditionHidden   = "hidden"
	ConditionAttached = "attached"
	ConditionLoad     = "load"
)

// TimeoutError reports a condition that did not hold before the deadline.
type TimeoutError struct {
	Op        string
	Target    string
	Condition string
	Timeout   time.Duration
	Elapsed   time.Duration
	Err       error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s: timed out after %s", e.Op, e.Elapsed.Round(time.Millisecond))
	if e.Condition != "" {
		msg += " waiting for " + e.Condition
	}
	if e.Target != "" {
		msg += fmt.Sprintf(" on %q", e.Target)
	}
	return msg + fmt.Sprintf(" (timeout %s)", e.Timeout)
}

func (e *TimeoutError) Unwrap() error        { return e.Err }
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// Code returns CodeNotVisible for visibility waits and CodeTimeout otherwise.
func (e *TimeoutError) Code() string {
	if e.Condition == ConditionVisible {
		return CodeNotVisible
	}
	return CodeTimeout
}

func (e *TimeoutError) Fields() map[string]any {
	return map[string]any{
		"code":       e.Code(),
		"op":         e.Op,
		"target":     e.Target,
		"condition":  e.Condition,
		"timeout_ms": e.Timeout.Milliseconds(),
		"elapsed_ms": e.Elapsed.Milliseconds(),
	}
}

// NotActionableError reports an element that could not be interacted with:
// no match, several matches where one was required, or an actionability check
// that never passed.
type NotActionableError struct {
	Op     string
	Target string
	// Count is the number of matches observed, or -1 when unknown.
	Count  int
	Reason string
	Err    error
}

func (e *NotActionableError) Error() string {
	msg := fmt.Sprintf("%s %q: element not actionable", e.Op, e.Target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotActionableError) Unwrap() error        { return e.Err }
func (e *NotActionableError) Is(target error) bool { return target == ErrNotActionable }
func (e *NotActionableError) Code() string         { return CodeNotActionable }

func (e *NotActionableError) Fields() map[string]any {
	return map[string]any{
		"code":   e.Code(),
		"op":     e.Op,
		"target": e.Target,
		"count":  e.Count,
		"reason": e.Reason,
	}
}

// StaleHandleError reports use of a handle or instance whose scope has closed.
type StaleHandleError struct {
	Op     string
	Target string
	Scope  ScopeKind
	Err    error
}

func (e *StaleHandleError) Error() string {
	msg := fmt.Sprintf("%s: stale handle: %s closed", e.Op, e.Scope)
	if e.Target != "" {
		msg = fmt.Sprintf("%s %q: stale handle: %s closed", e.Op, e.Target, e.Scope)
	}
	return msg
}

func (e *StaleHandleError) Unwrap() error        { return e.Err }
func (e *StaleHandleError) Is(target error) bool { return target == ErrStaleHandle }
func (e *StaleHandleError) Code() string         { return CodeStaleHandle }

func (e *StaleHandleError) Fields() map[string]any {
	return map[string]any{
		"code":   e.Code(),
		"op":     e.Op,
		"target": e.Target,
		"scope":  e.Scope.String(),
	}
}

// NavigationError reports a page load or history traversal that failed.
type NavigationError struct {
	Op  string
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	msg := e.Op + ": navigation failed"
	if e.URL != "" {
		msg = fmt.Sprintf("%s %s: navigation failed", e.Op, e.URL)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NavigationError) Unwrap() error        { return e.Err }
func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }
func (e *NavigationError) Code() string         { return CodeNavigation }

func (e *NavigationError) Fields() map[string]any {
	return map[string]any{
		"code": e.Code(),
		"op":   e.Op,
		"url":  e.URL,
	}
}

type coder interface{ Code() string }

type fielder interface{ Fields() map[string]any }

// Code returns the code of the outermost typed error in err's chain,
// CodeInvalidTarget for target errors, CodeUnexpected for anything else and
// "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	if errors.Is(err, ErrInvalidTarget) {
		return CodeInvalidTarget
	}
	return CodeUnexpected
}

// Fields returns structured context for err suitable for a log record.
func Fields(err error) map[string]any {
	if err == nil {
		return nil
	}
	var f fielder
	if errors.As(err, &f) {
		return f.Fields()
	}
	return map[string]any{"code": Code(err)}
}

// IsFatal reports errors a caller cannot recover from by retrying or probing:
// stale handles, failed navigations and invalid targets.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStaleHandle) ||
		errors.Is(err, ErrNavigation) ||
		errors.Is(err, ErrInvalidTarget)
}

// Probe converts the result of a wait into a boolean for "is X shown" style
// checks. Timeouts and actionability failures become false; fatal and
// unclassified errors are returned.
func Probe(err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case IsFatal(err):
		return false, err
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNotActionable):
		return false, nil
	default:
		return false, err
	}
}
