package uiaction

import (
	"context"
	"sync"
	"time"
)

// Default timeouts applied when neither the call nor the instance overrides them.
const (
	DefaultActionTimeout     = 15 * time.Second
	DefaultWaitTimeout       = 10 * time.Second
	DefaultNavigationTimeout = 30 * time.Second
)

// TimeoutKind selects which default a blocking operation draws from.
type TimeoutKind int

const (
	// TimeoutAction covers element interactions and reads.
	TimeoutAction TimeoutKind = iota
	// TimeoutWait covers explicit waits such as WaitForVisible.
	TimeoutWait
	// TimeoutNavigation covers page loads and history traversal.
	TimeoutNavigation
)

// TimeoutSettings holds instance default timeouts. Unset values are looked up
// in the parent and then fall back to the package defaults.
type TimeoutSettings struct {
	parent *TimeoutSettings

	mu       sync.RWMutex
	defaults map[TimeoutKind]time.Duration
}

// NewTimeoutSettings returns settings that inherit from parent, which may be nil.
func NewTimeoutSettings(parent *TimeoutSettings) *TimeoutSettings {
	return &TimeoutSettings{
		parent:   parent,
		defaults: make(map[TimeoutKind]time.Duration),
	}
}

// SetDefault sets the default for kind. A non-positive duration clears it.
func (t *TimeoutSettings) SetDefault(kind TimeoutKind, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d <= 0 {
		delete(t.defaults, kind)
		return
	}
	t.defaults[kind] = d
}

// Default returns the effective default for kind.
func (t *TimeoutSettings) Default(kind TimeoutKind) time.Duration {
	if t == nil {
		return builtinTimeout(kind)
	}

	t.mu.RLock()
	d, ok := t.defaults[kind]
	t.mu.RUnlock()

	if ok {
		return d
	}
	if t.parent != nil {
		return t.parent.Default(kind)
	}
	return builtinTimeout(kind)
}

// Resolve returns override when positive and the default for kind otherwise.
func (t *TimeoutSettings) Resolve(kind TimeoutKind, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return t.Default(kind)
}

func builtinTimeout(kind TimeoutKind) time.Duration {
	switch kind {
	case TimeoutWait:
		return DefaultWaitTimeout
	case TimeoutNavigation:
		return DefaultNavigationTimeout
	default:
		return DefaultActionTimeout
	}
}

// Budget caps d by the time remaining until the context deadline. It returns
// the context error when ctx is already done.
func Budget(ctx context.Context, d time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			if left <= 0 {
				return 0, context.DeadlineExceeded
			}
			return left, nil
		}
	}
	return d, nil
}
