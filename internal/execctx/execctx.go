// Package execctx holds the per-invocation ExecutionContext, the
// per-composite SharedContext, and the Args value threaded into every
// action body.
package execctx

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Args is what an action body receives. It replaces Python's implicit
// kwarg injection: positional values, a keyword map, and the upstream
// last result (if any) all travel explicitly.
type Args struct {
	Positional []any
	Keywords   map[string]any
	LastResult any
	HasLast    bool
}

// NewArgs builds an empty Args value.
func NewArgs() Args {
	return Args{Keywords: map[string]any{}}
}

// WithLastResult returns a copy of a with LastResult set.
func (a Args) WithLastResult(v any) Args {
	a.LastResult = v
	a.HasLast = true
	return a
}

// Clear returns an Args carrying only the injected state (LastResult),
// with positional/keyword values reset — the "clear and inject only"
// chain-threading rule.
func (a Args) Clear() Args {
	return Args{Keywords: map[string]any{}, LastResult: a.LastResult, HasLast: a.HasLast}
}

// ExecutionContext is the per-invocation record for one action call.
// Once appended to a Recorder it is considered immutable.
type ExecutionContext struct {
	ID         string
	Name       string
	Args       Args
	Result     any
	HasResult  bool
	Exception  error
	StartedAt  time.Time
	EndedAt    time.Time
	Extra      map[string]any
	Shared     *SharedContext
	startMono  time.Time
	endMono    time.Time
	hasStarted bool
	hasStopped bool
}

// NewExecutionContext builds a fresh context for an action named name.
func NewExecutionContext(name string, args Args, shared *SharedContext) *ExecutionContext {
	return &ExecutionContext{
		ID:     ulid.Make().String(),
		Name:   name,
		Args:   args,
		Extra:  map[string]any{},
		Shared: shared,
	}
}

// StartTimer records the start instant. Safe to call at most once per context.
func (c *ExecutionContext) StartTimer(clockNow time.Time) {
	if c.hasStarted {
		return
	}
	c.hasStarted = true
	c.StartedAt = clockNow
	c.startMono = time.Now()
}

// StopTimer records the end instant.
func (c *ExecutionContext) StopTimer(clockNow time.Time) {
	if c.hasStopped {
		return
	}
	c.hasStopped = true
	c.EndedAt = clockNow
	c.endMono = time.Now()
}

// Duration returns EndedAt minus StartedAt, the instants the injected
// clock reported to StartTimer and StopTimer (zero until both ran). With
// the system clock these carry Go's monotonic reading, so the result is
// immune to wall-clock skew.
func (c *ExecutionContext) Duration() time.Duration {
	if !c.hasStarted || !c.hasStopped {
		return 0
	}
	return c.EndedAt.Sub(c.StartedAt)
}

// Success reports whether the context recorded a result rather than an
// exception. Exactly one of (result set, exception set) holds once the
// context has run to completion.
func (c *ExecutionContext) Success() bool {
	return c.Exception == nil
}

// SetResult records a successful outcome and clears any prior exception
// (used both on the normal success path and by ON_ERROR recovery).
func (c *ExecutionContext) SetResult(v any) {
	c.Result = v
	c.HasResult = true
	c.Exception = nil
}

// SetException records a failed outcome.
func (c *ExecutionContext) SetException(err error) {
	c.Exception = err
	c.HasResult = false
}

// Status renders a short human status string: "ok" or "error: <msg>".
func (c *ExecutionContext) Status() string {
	if c.Success() {
		return "ok"
	}
	return "error: " + c.Exception.Error()
}

// String renders a one-line summary, used by logging and the registry summary view.
func (c *ExecutionContext) String() string {
	return fmt.Sprintf("<ExecutionContext %s name=%s status=%s duration=%s>",
		c.ID, c.Name, c.Status(), c.Duration())
}

// SharedContext is the scratchpad a composite creates and threads
// through its children. Accessors encapsulate CurrentIndex so children
// observe a published value rather than a mutable counter.
type SharedContext struct {
	Name         string
	ActionName   string
	results      []any
	errors       []indexedError
	currentIndex int
	IsParallel   bool
	SharedResult any
	HasShared    bool
	slots        map[string]any
	mu           *sync.RWMutex
}

type indexedError struct {
	Index int
	Err   error
}

// NewSharedContext builds a SharedContext for a composite named actionName.
func NewSharedContext(name, actionName string, isParallel bool) *SharedContext {
	return &SharedContext{
		Name:         name,
		ActionName:   actionName,
		currentIndex: -1,
		IsParallel:   isParallel,
		slots:        map[string]any{},
		mu:           &sync.RWMutex{},
	}
}

// SetCurrentIndex publishes the index of the child currently executing.
func (s *SharedContext) SetCurrentIndex(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentIndex = i
}

// CurrentIndex returns the published current-child index, or -1 before
// the first child has started.
func (s *SharedContext) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

// AddResult appends a child's result to the ordered results slice.
func (s *SharedContext) AddResult(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, v)
}

// Results returns a copy of the ordered results recorded so far.
func (s *SharedContext) Results() []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]any, len(s.results))
	copy(out, s.results)
	return out
}

// AddError records a child failure against its index.
func (s *SharedContext) AddError(index int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, indexedError{Index: index, Err: err})
}

// Errors returns a copy of the recorded (index, error) pairs.
func (s *SharedContext) Errors() []struct {
	Index int
	Err   error
} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]struct {
		Index int
		Err   error
	}, len(s.errors))
	for i, e := range s.errors {
		out[i] = struct {
			Index int
			Err   error
		}{e.Index, e.Err}
	}
	return out
}

// SetSharedResult sets the upstream last-result value exposed to every
// child of a parallel group.
func (s *SharedContext) SetSharedResult(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SharedResult = v
	s.HasShared = true
}

// LastResult returns SharedResult in parallel mode, or the last recorded
// sequential result otherwise. The second return is false if nothing is
// available yet.
func (s *SharedContext) LastResult() (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.IsParallel || len(s.results) == 0 {
		return s.SharedResult, s.HasShared
	}
	return s.results[len(s.results)-1], true
}

// SetSlot stores sibling-visible state (e.g. a shared HTTP session)
// under key.
func (s *SharedContext) SetSlot(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[key] = v
}

// Slot retrieves sibling-visible state stored under key.
func (s *SharedContext) Slot(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.slots[key]
	return v, ok
}

func (s *SharedContext) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<SharedContext %s results=%d errors=%d parallel=%v>",
		s.Name, len(s.results), len(s.errors), s.IsParallel)
	return b.String()
}
