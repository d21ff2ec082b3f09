package action

import (
	"context"
	"fmt"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/preview"
)

// FactoryFunc builds a fresh action at call time from the incoming args.
type FactoryFunc func(ctx context.Context, args execctx.Args) (BaseAction, error)

// ActionFactory builds and immediately runs a dynamically produced
// action.
type ActionFactory struct {
	*Base
	factory FactoryFunc
}

// NewActionFactory builds a factory leaf named name.
func NewActionFactory(name string, factory FactoryFunc, logger iface.Logger) *ActionFactory {
	return &ActionFactory{Base: NewBase(name, logger), factory: factory}
}

func (f *ActionFactory) Call(ctx context.Context, args execctx.Args) (any, error) {
	// The factory's own ExecutionContext is named "<name> (factory)";
	// swap Name for the duration of Execute and restore it.
	original := f.Name
	f.Name = fmt.Sprintf("%s (factory)", original)
	defer func() { f.Name = original }()

	return f.Execute(ctx, args, func(ctx context.Context, args execctx.Args) (any, error) {
		invokeArgs := f.MaybeInjectLastResult(args)
		generated, err := f.factory(ctx, invokeArgs)
		if err != nil {
			return nil, err
		}
		if generated == nil {
			return nil, iface.NewConfigurationError("action factory %q returned a nil action", original)
		}
		generated.Prepare(f.Shared, f.Options)
		if f.Recorder != nil {
			generated.SetRecorder(f.Recorder)
		}
		return generated.Call(ctx, invokeArgs)
	})
}

func (f *ActionFactory) Preview() preview.Node {
	return preview.Node{Label: "Factory: " + f.Name}
}

func (f *ActionFactory) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	f.PrepareShared(shared, options)
	return f
}

func (f *ActionFactory) GetInferTarget() *InferMetadata {
	return &InferMetadata{Name: f.Name, Fn: f.factory}
}
