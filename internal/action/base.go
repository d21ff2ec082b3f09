// Package action implements the Falyx action model: the BaseAction
// contract and its leaf (Action, LiteralInputAction, FallbackAction,
// ProcessAction, ProcessPoolAction) and composite (ChainedAction,
// ActionGroup, ActionFactory) realizations.
package action

import (
	"context"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/preview"
	"github.com/falyx-go/falyx/internal/registry"
)

// InferMetadata describes the callable inference target exposed by
// GetInferTarget, used by Command's auto-args machinery.
type InferMetadata struct {
	Name string
	Fn   any // the underlying func, inspected via reflect by internal/command
}

// BaseAction is the uniform interface every leaf and composite action
// satisfies.
type BaseAction interface {
	ActionName() string
	Call(ctx context.Context, args execctx.Args) (any, error)
	Preview() preview.Node
	RegisterHooksRecursively(t hook.Type, h hook.Hook) error
	Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction
	GetInferTarget() *InferMetadata
	SetOptionsManager(om iface.OptionsManager)
	SetRecorder(r *registry.Recorder)
	SkipInChain() bool
	SetSkipInChain(bool)
}

// Base holds the fields and execution skeleton shared by every action
// node. Concrete node types embed *Base and supply their own
// body function to Execute.
type Base struct {
	Name             string
	Hooks            *hook.Manager
	InjectLastResult bool
	InjectInto       string
	NeverPromptOverr *bool
	skipInChain      bool

	Recorder *registry.Recorder
	Logger   iface.Logger
	Clock    iface.Clock
	Options  iface.OptionsManager
	Shared   *execctx.SharedContext
}

// NewBase builds a Base with the given name and sensible defaults
// (inject_into defaults to "last_result").
func NewBase(name string, logger iface.Logger) *Base {
	return &Base{
		Name:       name,
		Hooks:      hook.NewManager(logger),
		InjectInto: "last_result",
		Recorder:   registry.Default(),
		Logger:     logger,
		Clock:      iface.SystemClock,
	}
}

func (b *Base) ActionName() string { return b.Name }

func (b *Base) SkipInChain() bool     { return b.skipInChain }
func (b *Base) SetSkipInChain(v bool) { b.skipInChain = v }

func (b *Base) SetOptionsManager(om iface.OptionsManager) { b.Options = om }

// SetRecorder overrides the Recorder this node (and, via composite
// propagation, its descendants) writes ExecutionContexts into. Every
// node defaults to registry.Default(); a command or test harness that
// wants an isolated Recorder propagates one explicitly down the tree.
func (b *Base) SetRecorder(r *registry.Recorder) { b.Recorder = r }

// NeverPrompt resolves whether this action should skip confirmation,
// honoring an explicit override over the OptionsManager's cli_args
// namespace.
func (b *Base) NeverPrompt() bool {
	if b.NeverPromptOverr != nil {
		return *b.NeverPromptOverr
	}
	if b.Options == nil {
		return false
	}
	v := b.Options.Get("cli_args", "never_prompt", false)
	bv, _ := v.(bool)
	return bv
}

// PrepareShared attaches a SharedContext and propagates the options
// manager, mirroring BaseAction.prepare. Composites call this (through
// each child's Prepare) on every child before executing it.
func (b *Base) PrepareShared(shared *execctx.SharedContext, options iface.OptionsManager) {
	b.Shared = shared
	if options != nil {
		b.Options = options
	}
}

// RegisterHooksRecursively registers h on this node's own manager. Leaf
// types have no children, so this is the base case of the recursive
// registration composites perform over their children.
func (b *Base) RegisterHooksRecursively(t hook.Type, h hook.Hook) error {
	return b.Hooks.Register(t, h)
}

// MaybeInjectLastResult sets args.Keywords[InjectInto] to the shared
// context's last result if InjectLastResult is enabled and a
// SharedContext is attached. An explicitly provided keyword of the same
// name is overwritten, and a warning is logged.
func (b *Base) MaybeInjectLastResult(args execctx.Args) execctx.Args {
	if !b.InjectLastResult || b.Shared == nil {
		return args
	}
	last, ok := b.Shared.LastResult()
	if !ok {
		return args
	}
	if args.Keywords == nil {
		args.Keywords = map[string]any{}
	}
	if _, exists := args.Keywords[b.InjectInto]; exists {
		if b.Logger != nil {
			b.Logger.Warn("inject_into key already present in kwargs, overwriting with last result", "key", b.InjectInto, "action", b.Name)
		}
	}
	out := args
	out.Keywords = make(map[string]any, len(args.Keywords)+1)
	for k, v := range args.Keywords {
		out.Keywords[k] = v
	}
	out.Keywords[b.InjectInto] = last
	out.LastResult = last
	out.HasLast = true
	return out
}

// Execute runs the universal action skeleton around body,
// recording exactly one ExecutionContext regardless of outcome.
func (b *Base) Execute(ctx context.Context, args execctx.Args, body func(context.Context, execctx.Args) (any, error)) (any, error) {
	ec := execctx.NewExecutionContext(b.Name, args, b.Shared)
	ec.StartTimer(b.Clock.Now())
	defer func() {
		ec.StopTimer(b.Clock.Now())
		_ = b.Hooks.Trigger(ctx, hook.After, ec)
		_ = b.Hooks.Trigger(ctx, hook.OnTeardown, ec)
		if b.Recorder != nil {
			b.Recorder.Record(ec)
		}
	}()

	_ = b.Hooks.Trigger(ctx, hook.Before, ec)

	result, err := body(ctx, args)
	if err != nil {
		ec.SetException(err)
		if herr := b.Hooks.Trigger(ctx, hook.OnError, ec); herr != nil {
			return nil, herr
		}
		if ec.Exception == nil {
			return ec.Result, nil
		}
		return nil, ec.Exception
	}

	ec.SetResult(result)
	_ = b.Hooks.Trigger(ctx, hook.OnSuccess, ec)
	return ec.Result, nil
}
