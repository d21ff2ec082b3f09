package action

import (
	"context"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/preview"
)

// Rollbackable is implemented by actions that want a chance to undo
// their effect when a later sibling in the same chain fails. Optional —
// most actions don't implement it.
type Rollbackable interface {
	Rollback(ctx context.Context) error
}

// ChainedAction is the sequential composite.
type ChainedAction struct {
	*Base
	children   []BaseAction
	AutoInject bool
	ReturnList bool
}

// NewChainedAction builds a chain named name over children, which may
// be BaseActions, bare callables, or literal values (normalized via Wrap).
func NewChainedAction(name string, children []any, logger iface.Logger) *ChainedAction {
	return &ChainedAction{
		Base:     NewBase(name, logger),
		children: WrapAll(name, children, logger),
	}
}

func (c *ChainedAction) Call(ctx context.Context, args execctx.Args) (any, error) {
	return c.Execute(ctx, args, c.run)
}

func (c *ChainedAction) run(ctx context.Context, args execctx.Args) (any, error) {
	if len(c.children) == 0 {
		return nil, iface.NewEmptyCompositeError(iface.KindChain, c.Name)
	}

	var seed any
	var hasSeed bool
	if c.Shared != nil {
		seed, hasSeed = c.Shared.LastResult()
	} else if args.HasLast {
		seed, hasSeed = args.LastResult, true
	}
	shared := execctx.NewSharedContext(c.Name+"-shared", c.Name, false)
	if hasSeed {
		shared.SetSharedResult(seed)
	}

	var executed []BaseAction
	var results []any

	i := 0
	for i < len(c.children) {
		child := c.children[i]
		if child.SkipInChain() {
			i++
			continue
		}
		shared.SetCurrentIndex(i)

		childArgs := execctx.NewArgs()
		if i == 0 {
			childArgs = args
		}
		child.Prepare(shared, c.Options)
		if c.Recorder != nil {
			child.SetRecorder(c.Recorder)
		}

		result, err := child.Call(ctx, childArgs)
		if err != nil {
			if i+1 < len(c.children) {
				if fb, ok := c.children[i+1].(*FallbackAction); ok {
					shared.AddResult(nil)
					results = append(results, nil)
					fb.Prepare(shared, c.Options)
					if c.Recorder != nil {
						fb.SetRecorder(c.Recorder)
					}
					fbResult, fbErr := fb.Call(ctx, execctx.NewArgs())
					if fbErr != nil {
						shared.AddError(i+1, fbErr)
						c.rollback(ctx, executed)
						return nil, fbErr
					}
					shared.AddResult(fbResult)
					results = append(results, fbResult)
					executed = append(executed, child, fb)
					fb.SetSkipInChain(true)
					i += 2
					continue
				}
			}
			shared.AddError(i, err)
			c.rollback(ctx, executed)
			return nil, err
		}

		shared.AddResult(result)
		results = append(results, result)
		executed = append(executed, child)
		i++
	}

	if c.ReturnList {
		return results, nil
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[len(results)-1], nil
}

// rollback undoes executed children in reverse insertion order. Each
// child's optional Rollback handler is awaited; rollback errors are
// logged and do not abort the rollback of remaining children.
func (c *ChainedAction) rollback(ctx context.Context, executed []BaseAction) {
	for i := len(executed) - 1; i >= 0; i-- {
		rb, ok := executed[i].(Rollbackable)
		if !ok {
			continue
		}
		if err := rb.Rollback(ctx); err != nil && c.Logger != nil {
			c.Logger.Warn("rollback failed", "action", executed[i].ActionName(), "error", err)
		}
	}
}

func (c *ChainedAction) Preview() preview.Node {
	n := preview.Node{Label: "Chain: " + c.Name}
	for _, child := range c.children {
		n.Children = append(n.Children, child.Preview())
	}
	return n
}

func (c *ChainedAction) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	c.PrepareShared(shared, options)
	return c
}

func (c *ChainedAction) GetInferTarget() *InferMetadata { return nil }

// Children exposes the chain's child actions, used by Command.EnableRetryAll
// to walk the tree and enable retry on every leaf descendant.
func (c *ChainedAction) Children() []BaseAction { return c.children }

// RegisterHooksRecursively registers h on this chain's own manager and
// recurses into every child, so h fires for every descendant leaf as
// well as the chain itself.
func (c *ChainedAction) RegisterHooksRecursively(t hook.Type, h hook.Hook) error {
	if err := c.Base.RegisterHooksRecursively(t, h); err != nil {
		return err
	}
	for _, child := range c.children {
		if err := child.RegisterHooksRecursively(t, h); err != nil {
			return err
		}
	}
	return nil
}
