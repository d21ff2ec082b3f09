package action

import (
	"context"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/preview"
	"github.com/falyx-go/falyx/internal/workerpool"
)

// ProcessAction off-loads a single callable to the worker pool so the
// cooperative scheduler is not blocked.
type ProcessAction struct {
	*Base
	fn   LeafFunc
	pool *workerpool.Pool
}

// NewProcessAction builds a process-dispatched leaf named name,
// running on pool.
func NewProcessAction(name string, fn func(context.Context, execctx.Args) (any, error), pool *workerpool.Pool, logger iface.Logger) *ProcessAction {
	return &ProcessAction{Base: NewBase(name, logger), fn: LeafFunc(fn), pool: pool}
}

func (p *ProcessAction) Call(ctx context.Context, args execctx.Args) (any, error) {
	return p.Execute(ctx, args, p.run)
}

func (p *ProcessAction) run(ctx context.Context, args execctx.Args) (any, error) {
	invokeArgs := p.MaybeInjectLastResult(args)
	if p.InjectLastResult {
		if err := workerpool.CheckSerializable(invokeArgs.LastResult); err != nil {
			return nil, err
		}
	}
	out := p.pool.Submit(ctx, func(ctx context.Context) (any, error) {
		return p.fn(ctx, invokeArgs)
	})
	select {
	case r := <-out:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (p *ProcessAction) Preview() preview.Node {
	return preview.Node{Label: "Process: " + p.Name}
}

func (p *ProcessAction) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	p.PrepareShared(shared, options)
	return p
}

func (p *ProcessAction) GetInferTarget() *InferMetadata {
	return &InferMetadata{Name: p.Name, Fn: p.fn}
}

// ProcessTask is one unit of work fanned out by ProcessPoolAction:
// a callable plus the args/kwargs to invoke it with.
type ProcessTask struct {
	Name string
	Fn   func(context.Context, execctx.Args) (any, error)
	Args execctx.Args
}

// ProcessPoolTaskResult preserves a task's outcome without merging
// errors into a raise: per-task exceptions travel alongside successes.
type ProcessPoolTaskResult struct {
	Name  string
	Value any
	Err   error
}

// ProcessPoolAction fans out a list of tasks and gathers results,
// preserving per-task exceptions in the result list.
type ProcessPoolAction struct {
	*Base
	tasks []ProcessTask
	pool  *workerpool.Pool
}

// NewProcessPoolAction builds a pool-dispatched composite named name
// over tasks, running on pool.
func NewProcessPoolAction(name string, tasks []ProcessTask, pool *workerpool.Pool, logger iface.Logger) *ProcessPoolAction {
	return &ProcessPoolAction{Base: NewBase(name, logger), tasks: tasks, pool: pool}
}

func (p *ProcessPoolAction) Call(ctx context.Context, args execctx.Args) (any, error) {
	return p.Execute(ctx, args, p.run)
}

func (p *ProcessPoolAction) run(ctx context.Context, args execctx.Args) (any, error) {
	if len(p.tasks) == 0 {
		return nil, iface.NewEmptyCompositeError(iface.KindPool, p.Name)
	}

	injected := args
	if p.InjectLastResult {
		injected = p.MaybeInjectLastResult(args)
		if err := workerpool.CheckSerializable(injected.LastResult); err != nil {
			return nil, err
		}
	}

	channels := make([]<-chan workerpool.Result, len(p.tasks))
	for i, task := range p.tasks {
		task := task
		taskArgs := task.Args
		if p.InjectLastResult {
			taskArgs.LastResult = injected.LastResult
			taskArgs.HasLast = injected.HasLast
		}
		if err := workerpool.CheckSerializable(taskArgs); err != nil {
			ch := make(chan workerpool.Result, 1)
			ch <- workerpool.Result{Err: err}
			channels[i] = ch
			continue
		}
		channels[i] = p.pool.Submit(ctx, func(ctx context.Context) (any, error) {
			return task.Fn(ctx, taskArgs)
		})
	}

	out := make([]ProcessPoolTaskResult, len(p.tasks))
	for i, ch := range channels {
		r := <-ch
		out[i] = ProcessPoolTaskResult{Name: p.tasks[i].Name, Value: r.Value, Err: r.Err}
	}
	return out, nil
}

func (p *ProcessPoolAction) Preview() preview.Node {
	n := preview.Node{Label: "ProcessPool: " + p.Name}
	for _, t := range p.tasks {
		n.Children = append(n.Children, preview.Node{Label: t.Name})
	}
	return n
}

func (p *ProcessPoolAction) Prepare(shared *execctx.SharedContext, options iface.OptionsManager) BaseAction {
	p.PrepareShared(shared, options)
	return p
}

func (p *ProcessPoolAction) GetInferTarget() *InferMetadata { return nil }
