package uiaction

import "sync/atomic"

// ScopeKind names a level in the browsing lifecycle.
type ScopeKind int

const (
	// ScopePage is a single document/tab.
	ScopePage ScopeKind = iota
	// ScopeContext is an isolated browser context holding pages.
	ScopeContext
	// ScopeBrowser is the engine's browser process.
	ScopeBrowser
)

// String returns the lowercase scope name.
func (k ScopeKind) String() string {
	switch k {
	case ScopePage:
		return "page"
	case ScopeContext:
		return "context"
	case ScopeBrowser:
		return "browser"
	default:
		return "unknown"
	}
}

// Scope tracks whether a page, context or browser is still open. Scopes form a
// chain: a page scope is closed when it or any ancestor has been closed.
// Scope is safe for concurrent use.
type Scope struct {
	kind   ScopeKind
	parent *Scope
	closed atomic.Bool
}

// NewScope creates an open scope of the given kind under parent, which may be nil.
func NewScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{kind: kind, parent: parent}
}

// NewScopeChain creates a browser, context and page scope linked in that order
// and returns them innermost first.
func NewScopeChain() (page, context, browser *Scope) {
	browser = NewScope(ScopeBrowser, nil)
	context = NewScope(ScopeContext, browser)
	page = NewScope(ScopePage, context)
	return page, context, browser
}

// Kind returns the scope level.
func (s *Scope) Kind() ScopeKind {
	return s.kind
}

// Parent returns the enclosing scope or nil.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// Close marks the scope closed. It reports whether this call performed the
// transition, so callers can release engine resources exactly once.
func (s *Scope) Close() bool {
	if s == nil {
		return false
	}
	return s.closed.CompareAndSwap(false, true)
}

// Closed reports whether the scope or any ancestor is closed.
func (s *Scope) Closed() bool {
	_, closed := s.ClosedAt()
	return closed
}

// ClosedAt returns the kind of the innermost closed scope in the chain.
func (s *Scope) ClosedAt() (ScopeKind, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.closed.Load() {
			return cur.kind, true
		}
	}
	return 0, false
}

// Err returns a *StaleHandleError when the scope chain is closed.
func (s *Scope) Err(op string, target Target) error {
	if kind, closed := s.ClosedAt(); closed {
		return &StaleHandleError{Op: op, Target: Describe(target), Scope: kind}
	}
	return nil
}
