package action

import (
	"context"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/preview"
	"github.com/falyx-go/falyx/internal/registry"
	"github.com/falyx-go/falyx/internal/retry"
)

// Action is the function leaf: a sync-or-async callable holding
// static args/kwargs merged with the args it's called with at runtime.
type Action struct {
	*Base
	fn          LeafFunc
	staticArgs  []any
	staticKw    map[string]any
	retryPolicy retry.Policy
}

// NewAction builds a function leaf named name around fn.
func NewAction(name string, fn func(context.Context, execctx.Args) (any, error), logger iface.Logger) *Action {
	return &Action{Base: NewBase(name, logger), fn: LeafFunc(fn), staticKw: map[string]any{}}
}

// WithStaticArgs sets the args always appended after the received
// positional args: received_args + static_args.
func (a *Action) WithStaticArgs(args ...any) *Action {
	a.staticArgs = args
	return a
}

// WithStaticKwargs sets the kwargs merged under the received kwargs:
// static_kwargs ⊕ received_kwargs, received wins.
func (a *Action) WithStaticKwargs(kw map[string]any) *Action {
	a.staticKw = kw
	return a
}

// WithInjectLastResult enables last-result injection into kwargs[into].
func (a *Action) WithInjectLastResult(into string) *Action {
	a.InjectLastResult = true
	if into != "" {
		a.InjectInto = into
	}
	return a
}

// EnableRetry turns on policy and wires a single RetryHandler ON_ERROR
// hook backed by this action's own body.
func (a *Action) EnableRetry(policy retry.Policy) error {
	if err := policy.Enable(); err != nil {
		return err
	}
	a.retryPolicy = policy
	handler := retry.NewHandler(policy, func(ctx context.Context, args execctx.Args) (any, error) {
		return a.invoke(ctx, args)
	}, a.Clock)
	return a.Hooks.Register(hook.OnError, handler.Hook)
}

// RetryPolicy exposes the action's configured retry policy: the zero
// (disabled) Policy until EnableRetry succeeds.
func (a *Action) RetryPolicy() retry.Policy { return a.retryPolicy }

func (a *Action) invoke(ctx context.Context, args execctx.Args) (any, error) {
	merged := execctx.Args{
		Positional: append(append([]any{}, args.Positional...), a.staticArgs...),
		Keywords:   map[string]any{},
		LastResult: args.LastResult,
		HasLast:    args.HasLast,
	}
	for k, v := range a.staticKw {
		merged.Keywords[k] = v
	}
	for k, v := range args.Keywords {
		merged.Keywords[k] = v
	}
	merged = a.MaybeInjectLastResult(merged)
	return a.fn(ctx, merged)
}

// Call runs the action's full lifecycle skeleton.
func (a *Action) Call(ctx context.Context, args execctx.Args) (any, error) {
	return a.Execute(ctx, args, a.invoke)
}

func (a *Action) Preview() preview.Node { return preview.Node{Label: "Action: " + a.Name} }

func (a *Action) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	a.PrepareShared(shared, options)
	return a
}

func (a *Action) GetInferTarget() *InferMetadata {
	return &InferMetadata{Name: a.Name, Fn: a.fn}
}

// LiteralInputAction returns a fixed value unchanged, used to embed
// constants into a chain.
type LiteralInputAction struct {
	*Base
	value any
}

// NewLiteralInputAction builds a literal leaf named name around value.
func NewLiteralInputAction(name string, value any, logger iface.Logger) *LiteralInputAction {
	return &LiteralInputAction{Base: NewBase(name, logger), value: value}
}

func (l *LiteralInputAction) Call(ctx context.Context, args execctx.Args) (any, error) {
	return l.Execute(ctx, args, func(context.Context, execctx.Args) (any, error) {
		return l.value, nil
	})
}

func (l *LiteralInputAction) Preview() preview.Node {
	return preview.Node{Label: "Literal: " + l.Name}
}

func (l *LiteralInputAction) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	l.PrepareShared(shared, options)
	return l
}

func (l *LiteralInputAction) GetInferTarget() *InferMetadata { return nil }

// FallbackAction injects the last result and returns it unless it is
// nil, in which case it returns a fixed fallback value. See
// chain.go for the chain-level fallback-consumption protocol that gives
// this type its purpose.
type FallbackAction struct {
	*Base
	fallback any
}

// NewFallbackAction builds a fallback leaf named name.
func NewFallbackAction(name string, fallback any, logger iface.Logger) *FallbackAction {
	f := &FallbackAction{Base: NewBase(name, logger), fallback: fallback}
	f.InjectLastResult = true
	return f
}

func (f *FallbackAction) Call(ctx context.Context, args execctx.Args) (any, error) {
	return f.Execute(ctx, args, func(context.Context, execctx.Args) (any, error) {
		if f.Shared != nil {
			if last, ok := f.Shared.LastResult(); ok && last != nil {
				return last, nil
			}
		}
		return f.fallback, nil
	})
}

func (f *FallbackAction) Preview() preview.Node {
	return preview.Node{Label: "Fallback: " + f.Name}
}

func (f *FallbackAction) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	f.PrepareShared(shared, options)
	return f
}

func (f *FallbackAction) GetInferTarget() *InferMetadata { return nil }

// GetHistoryAction builds a function leaf that returns recorder's
// Summary() as its result, so a host CLI can bind "show history" to a
// key without writing its own registry-walking code.
func GetHistoryAction(name string, recorder *registry.Recorder, logger iface.Logger) *Action {
	return NewAction(name, func(ctx context.Context, args execctx.Args) (any, error) {
		return recorder.Summary(), nil
	}, logger)
}
