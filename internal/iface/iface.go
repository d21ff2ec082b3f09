// Package iface declares the small external-collaborator contracts the
// execution core consumes (options, console, prompt, clock, logging) plus
// the control-flow sentinels and typed error taxonomy it exposes.
package iface

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// OptionsManager is a namespaced key/value store. The core only ever
// touches the "cli_args" namespace with never_prompt/force_confirm/
// skip_confirm, but the interface is general.
type OptionsManager interface {
	Get(namespace, name string, fallback any) any
	Set(namespace, name string, value any)
	Toggle(namespace, name string) (bool, error)
	Has(namespace, name string) bool
}

// ConsoleSink is where help/preview text goes. Plain text only; no
// assumption of color or markup support.
type ConsoleSink interface {
	Write(s string)
}

// PromptSink asks the user a question and returns their answer.
// Implementations may return a *CancelSignal (possibly wrapped) to
// signal abort.
type PromptSink interface {
	Prompt(ctx context.Context, message string, validator func(string) error) (string, error)
}

// SpinnerSink renders a busy indicator around a long-running action.
// Start returns a stop function the caller invokes once the action
// settles; implementations decide how (or whether) to render anything.
type SpinnerSink interface {
	Start(message string) (stop func())
}

// Clock abstracts time so tests can fake it.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Logger is the minimal structured-ish logging contract the core uses.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// StdLogger is the default Logger, a bracketed-prefix wrapper around
// the standard library's *log.Logger — the same shape the server
// component uses (log.New(os.Stderr, "[component] ", log.LstdFlags)).
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger builds a StdLogger writing to dst with the given
// bracketed prefix, e.g. NewStdLogger(os.Stderr, "falyx").
func NewStdLogger(dst interface {
	Write([]byte) (int, error)
}, component string) *StdLogger {
	return &StdLogger{l: log.New(dst, "["+component+"] ", log.LstdFlags)}
}

func (s *StdLogger) Debug(msg string, args ...any) { s.log("DEBUG", msg, args...) }
func (s *StdLogger) Info(msg string, args ...any)  { s.log("INFO", msg, args...) }
func (s *StdLogger) Warn(msg string, args ...any)  { s.log("WARN", msg, args...) }
func (s *StdLogger) Error(msg string, args ...any) { s.log("ERROR", msg, args...) }

func (s *StdLogger) log(level, msg string, args ...any) {
	if len(args) == 0 {
		s.l.Printf("%s %s", level, msg)
		return
	}
	s.l.Printf("%s %s %v", level, msg, args)
}

// systemClock is the default Clock, backed by the real wall clock.
type systemClock struct{}

// SystemClock is the default Clock implementation.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Control-flow sentinels. These are not errors in the ordinary sense —
// callers must distinguish them from failures.

// HelpSignal is raised when a --help/-h flag is parsed. It carries the
// rendered help text so the caller can print it without re-deriving it.
type HelpSignal struct {
	Text string
}

func (h *HelpSignal) Error() string { return "help requested" }

// IsHelpSignal reports whether err is (or wraps) a *HelpSignal.
func IsHelpSignal(err error) bool {
	var h *HelpSignal
	return errors.As(err, &h)
}

// CancelSignal is raised when the user declines a confirmation prompt or
// otherwise aborts interactively. Callers treat it as a clean, non-error
// exit from the command.
type CancelSignal struct {
	Reason string
}

func (c *CancelSignal) Error() string {
	if c.Reason == "" {
		return "cancelled"
	}
	return "cancelled: " + c.Reason
}

// IsCancelSignal reports whether err is (or wraps) a *CancelSignal.
func IsCancelSignal(err error) bool {
	var c *CancelSignal
	return errors.As(err, &c)
}

// Typed error taxonomy. These are ordinary errors (unlike the
// signals above) and participate in the normal error-handling path.

// ConfigurationError reports a setup mistake outside argument parsing:
// an invalid retry policy, a factory that generates no action, a
// command with no parser or prompt sink. Argument registration failures
// (bad flag shape, duplicate dest, invalid nargs/kind combination, a
// non-coercible default, a choices type mismatch) are returned by the
// parser as CommandArgumentError, not as this type. Never caught by the
// core itself.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration error: " + e.Msg }

// NewConfigurationError builds a ConfigurationError with a formatted message.
func NewConfigurationError(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// CommandArgumentError is raised during parsing (unknown flag, missing
// required value, failed coercion, choice violation, extra positional)
// and by the parser's AddArgument for an invalid argument registration.
type CommandArgumentError struct {
	Msg string
}

func (e *CommandArgumentError) Error() string { return e.Msg }

// NewCommandArgumentError builds a CommandArgumentError with a formatted message.
func NewCommandArgumentError(format string, args ...any) error {
	return &CommandArgumentError{Msg: fmt.Sprintf(format, args...)}
}

// CompositeKind distinguishes the empty-composite error variants.
type CompositeKind int

const (
	KindChain CompositeKind = iota
	KindGroup
	KindPool
)

func (k CompositeKind) String() string {
	switch k {
	case KindChain:
		return "chain"
	case KindGroup:
		return "group"
	case KindPool:
		return "pool"
	default:
		return "composite"
	}
}

// EmptyCompositeError is raised by a composite asked to run with zero
// children.
type EmptyCompositeError struct {
	Kind CompositeKind
	Name string
}

func (e *EmptyCompositeError) Error() string {
	return fmt.Sprintf("empty %s: %q has no children", e.Kind, e.Name)
}

// NewEmptyCompositeError builds an EmptyCompositeError.
func NewEmptyCompositeError(kind CompositeKind, name string) error {
	return &EmptyCompositeError{Kind: kind, Name: name}
}

// AggregateGroupFailure is a group's synthesized exception carrying the
// names of failing children.
type AggregateGroupFailure struct {
	GroupName    string
	FailedNames  []string
	FailedErrors []error
}

func (e *AggregateGroupFailure) Error() string {
	return fmt.Sprintf("group %q: %d of its children failed: %v", e.GroupName, len(e.FailedNames), e.FailedNames)
}

// Unwrap exposes the first underlying child error so errors.Is/As can
// still reach into it; all child errors remain available via FailedErrors.
func (e *AggregateGroupFailure) Unwrap() error {
	if len(e.FailedErrors) == 0 {
		return nil
	}
	return e.FailedErrors[0]
}

// InvalidHookError is raised when a hook is registered against an
// unknown HookType.
type InvalidHookError struct {
	Msg string
}

func (e *InvalidHookError) Error() string { return "invalid hook: " + e.Msg }

// NewInvalidHookError builds an InvalidHookError with a formatted message.
func NewInvalidHookError(format string, args ...any) error {
	return &InvalidHookError{Msg: fmt.Sprintf(format, args...)}
}

// NotSerializableError is raised by the ProcessAction/ProcessPoolAction
// pre-dispatch check when the injected last result (or a task's args)
// fails to marshal in the serialization probe.
type NotSerializableError struct {
	Msg string
}

func (e *NotSerializableError) Error() string { return "not serializable: " + e.Msg }
