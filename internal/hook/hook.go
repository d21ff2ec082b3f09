// Package hook implements the five-slot lifecycle hook manager every
// action node carries.
package hook

import (
	"context"
	"fmt"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
)

// Type identifies one of the five ordered hook slots.
type Type int

const (
	Before Type = iota
	OnSuccess
	OnError
	After
	OnTeardown
)

func (t Type) String() string {
	switch t {
	case Before:
		return "BEFORE"
	case OnSuccess:
		return "ON_SUCCESS"
	case OnError:
		return "ON_ERROR"
	case After:
		return "AFTER"
	case OnTeardown:
		return "ON_TEARDOWN"
	default:
		return "UNKNOWN"
	}
}

// All enumerates the valid hook slots in lifecycle order.
var All = []Type{Before, OnSuccess, OnError, After, OnTeardown}

func valid(t Type) bool {
	return t >= Before && t <= OnTeardown
}

// Hook is any unit of work fired around an action's execution. A
// synchronous hook is simply one that returns immediately.
type Hook func(ctx context.Context, ec *execctx.ExecutionContext) error

// Manager stores and fires hooks for one action node.
type Manager struct {
	slots  map[Type][]Hook
	logger iface.Logger
}

// NewManager builds an empty Manager. logger may be nil, in which case
// hook errors are silently swallowed instead of logged (still swallowed,
// just not reported anywhere).
func NewManager(logger iface.Logger) *Manager {
	m := &Manager{slots: map[Type][]Hook{}, logger: logger}
	for _, t := range All {
		m.slots[t] = nil
	}
	return m
}

// Register appends h to slot t's hook list, in registration order.
func (m *Manager) Register(t Type, h Hook) error {
	if !valid(t) {
		return iface.NewInvalidHookError("unknown hook slot %v", t)
	}
	m.slots[t] = append(m.slots[t], h)
	return nil
}

// Clear removes all hooks from slot t, or every slot if t is nil.
func (m *Manager) Clear(t *Type) {
	if t == nil {
		for _, slot := range All {
			m.slots[slot] = nil
		}
		return
	}
	m.slots[*t] = nil
}

// Hooks returns a copy of slot t's registered hooks.
func (m *Manager) Hooks(t Type) []Hook {
	src := m.slots[t]
	out := make([]Hook, len(src))
	copy(out, src)
	return out
}

// Trigger runs every hook registered in slot t, in registration order.
//
// Hook errors are logged and swallowed, except in the ON_ERROR slot: if
// an ON_ERROR hook itself raises, the original ec.Exception is returned
// wrapped around the hook's error (the hook error becomes the chained
// cause). ON_ERROR hooks may mutate ec.Result and clear ec.Exception to
// signal recovery; when multiple ON_ERROR hooks are registered, they
// all run (no short-circuiting) and the last hook's state wins — later
// hooks observe whatever the previous hook left behind, including an
// already-cleared exception.
func (m *Manager) Trigger(ctx context.Context, t Type, ec *execctx.ExecutionContext) error {
	if !valid(t) {
		return iface.NewInvalidHookError("unknown hook slot %v", t)
	}
	for _, h := range m.slots[t] {
		if err := h(ctx, ec); err != nil {
			if t == OnError {
				if ec.Exception == nil {
					// A prior ON_ERROR hook already recovered; this
					// hook's own failure has nothing to chain onto, so
					// it is logged and swallowed like any other slot.
					m.logf("hook error in %v slot (post-recovery, swallowed): %v", t, err)
					continue
				}
				return fmt.Errorf("%w (hook error: %w)", ec.Exception, err)
			}
			m.logf("hook error in %v slot (swallowed): %v", t, err)
		}
	}
	return nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(fmt.Sprintf(format, args...))
	}
}

func (m *Manager) String() string {
	s := ""
	for _, t := range All {
		s += fmt.Sprintf("%s: %d hook(s)\n", t, len(m.slots[t]))
	}
	return s
}
