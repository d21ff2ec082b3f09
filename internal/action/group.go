package action

import (
	"context"
	"sort"
	"sync"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/preview"
)

// GroupResult is one child's outcome in an ActionGroup's result, kept
// in declaration order regardless of completion order.
type GroupResult struct {
	Name  string
	Value any
}

// ActionGroup is the concurrent composite.
type ActionGroup struct {
	*Base
	children []BaseAction
}

// NewActionGroup builds a group named name over children (normalized via Wrap).
func NewActionGroup(name string, children []any, logger iface.Logger) *ActionGroup {
	return &ActionGroup{
		Base:     NewBase(name, logger),
		children: WrapAll(name, children, logger),
	}
}

func (g *ActionGroup) Call(ctx context.Context, args execctx.Args) (any, error) {
	return g.Execute(ctx, args, g.run)
}

type groupOutcome struct {
	index int
	name  string
	value any
	err   error
}

func (g *ActionGroup) run(ctx context.Context, args execctx.Args) (any, error) {
	if len(g.children) == 0 {
		return nil, iface.NewEmptyCompositeError(iface.KindGroup, g.Name)
	}

	var seed any
	var hasSeed bool
	if g.Shared != nil {
		seed, hasSeed = g.Shared.LastResult()
	} else if args.HasLast {
		seed, hasSeed = args.LastResult, true
	}
	shared := execctx.NewSharedContext(g.Name+"-shared", g.Name, true)
	if hasSeed {
		shared.SetSharedResult(seed)
	}

	outcomes := make(chan groupOutcome, len(g.children))
	var wg sync.WaitGroup
	for i, child := range g.children {
		wg.Add(1)
		go func(i int, child BaseAction) {
			defer wg.Done()
			child.Prepare(shared, g.Options)
			if g.Recorder != nil {
				child.SetRecorder(g.Recorder)
			}
			v, err := child.Call(ctx, execctx.NewArgs())
			outcomes <- groupOutcome{index: i, name: child.ActionName(), value: v, err: err}
		}(i, child)
	}
	wg.Wait()
	close(outcomes)

	results := make([]groupOutcome, 0, len(g.children))
	for o := range outcomes {
		if o.err != nil {
			shared.AddError(o.index, o.err)
		} else {
			shared.AddResult(o.value)
		}
		results = append(results, o)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	errs := shared.Errors()
	if len(errs) > 0 {
		names := make([]string, 0, len(errs))
		causes := make([]error, 0, len(errs))
		for _, e := range errs {
			names = append(names, g.children[e.Index].ActionName())
			causes = append(causes, e.Err)
		}
		return nil, &iface.AggregateGroupFailure{GroupName: g.Name, FailedNames: names, FailedErrors: causes}
	}

	ordered := make([]GroupResult, len(results))
	for i, o := range results {
		ordered[i] = GroupResult{Name: o.name, Value: o.value}
	}
	return ordered, nil
}

func (g *ActionGroup) Preview() preview.Node {
	n := preview.Node{Label: "Group: " + g.Name}
	for _, child := range g.children {
		n.Children = append(n.Children, child.Preview())
	}
	return n
}

func (g *ActionGroup) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	g.PrepareShared(shared, options)
	return g
}

func (g *ActionGroup) GetInferTarget() *InferMetadata { return nil }

// Children exposes the group's child actions, used by Command.EnableRetryAll
// to walk the tree and enable retry on every leaf descendant.
func (g *ActionGroup) Children() []BaseAction { return g.children }

func (g *ActionGroup) RegisterHooksRecursively(t hook.Type, h hook.Hook) error {
	if err := g.Base.RegisterHooksRecursively(t, h); err != nil {
		return err
	}
	for _, child := range g.children {
		if err := child.RegisterHooksRecursively(t, h); err != nil {
			return err
		}
	}
	return nil
}
