package uiaction

import "time"

// Int returns a pointer to n for optional integer fields such as Nth.
func Int(n int) *int {
	return &n
}

// LocatorOptions refine a selector-based handle.
type LocatorOptions struct {
	// HasText keeps matches whose text contains the value, case-insensitively.
	HasText string
	// Within restricts matching to descendants of another handle from the same engine.
	Within Handle
	// Nth keeps a single match by zero-based index; -1 selects the last match.
	Nth *int
}

// TextOptions refine a text-based handle.
type TextOptions struct {
	// Exact requires a full, case-sensitive match after whitespace trimming.
	Exact  bool
	Within Handle
	Nth    *int
}

// RoleOptions refine an accessibility-role handle.
type RoleOptions struct {
	// Name filters by accessible name, substring unless Exact is set.
	Name          string
	Exact         bool
	IncludeHidden bool
	Within        Handle
	Nth           *int
}

// LabelOptions refine a handle that finds form controls by their label text.
type LabelOptions struct {
	Exact  bool
	Within Handle
	Nth    *int
}

// ActionOptions apply to element interactions.
type ActionOptions struct {
	// Timeout overrides the instance default for this call only.
	Timeout time.Duration
}

// WaitOptions apply to synchronization and navigation calls.
type WaitOptions struct {
	Timeout time.Duration
}

// First returns the first element of opts or the zero value. Engines use it to
// unpack variadic option parameters.
func First[T any](opts []T) T {
	var zero T
	if len(opts) == 0 {
		return zero
	}
	return opts[0]
}
