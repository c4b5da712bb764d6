package uiaction

import (
	"fmt"
	"strings"
)

// Target identifies the element(s) an operation acts on. The only values that
// satisfy the contract are a Query and a Handle created by the same engine.
type Target interface {
	// Describe returns a short human readable form used in events and errors.
	Describe() string
}

// Query is a selector in the engine's selection language. It is passed to the
// engine unchanged and is not evaluated until an operation consumes it.
type Query string

// Describe implements Target.
func (q Query) Describe() string {
	return string(q)
}

// Handle is an engine-owned reference to element(s). Matching is deferred to
// the operation that consumes the handle and repeated on every use, so a handle
// outlives navigations but goes stale once the scope that produced it closes.
type Handle interface {
	Target

	// Scope returns the browsing scope that owns the handle.
	Scope() *Scope
}

// Describe returns a printable description of t and tolerates nil.
func Describe(t Target) string {
	if t == nil {
		return "<nil>"
	}
	return t.Describe()
}

// Resolve turns a Target into the engine handle type H. A Handle of type H is
// returned as is; a Query is converted with fromQuery, which must not access
// the document. Handles of any other type are rejected with ErrInvalidTarget.
func Resolve[H Handle](t Target, fromQuery func(Query) H) (H, error) {
	var zero H

	switch v := t.(type) {
	case nil:
		return zero, fmt.Errorf("%w: nil target", ErrInvalidTarget)
	case Query:
		if strings.TrimSpace(string(v)) == "" {
			return zero, fmt.Errorf("%w: empty query", ErrInvalidTarget)
		}
		return fromQuery(v), nil
	case H:
		return v, nil
	case Handle:
		return zero, fmt.Errorf("%w: handle %q was created by a different engine", ErrInvalidTarget, v.Describe())
	default:
		return zero, fmt.Errorf("%w: unsupported target type %T", ErrInvalidTarget, t)
	}
}

// CSSContainsClassQuery builds a query matching elements whose class attribute
// contains className as a substring.
func CSSContainsClassQuery(className string) Query {
	escaped := strings.ReplaceAll(className, `"`, `\"`)
	return Query(fmt.Sprintf(`[class*="%s"]`, escaped))
}
