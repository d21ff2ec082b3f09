// Package workerpool implements the WorkerPool contract ProcessAction
// and ProcessPoolAction dispatch through, plus the serializability
// pre-check both perform before dispatch.
//
// Go has no GIL to escape, so "worker process" is realized here as a
// bounded worker-goroutine pool rather than OS-process forking — the
// property that actually matters (the cooperative scheduler is not
// blocked by the dispatched work) is preserved without the portability
// cost of shipping callables across a process boundary (see DESIGN.md's
// Open Question resolution on this point).
package workerpool

import (
	"context"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/falyx-go/falyx/internal/iface"
)

// Task is a unit of work submitted to the pool.
type Task func(ctx context.Context) (any, error)

// Result is what a submitted Task resolves to.
type Result struct {
	Value any
	Err   error
}

// Pool is a WorkerPool: Submit dispatches fn on a worker goroutine and
// returns a channel that receives exactly one Result.
type Pool struct {
	sem chan struct{}
	wg  sync.WaitGroup
}

// New builds a Pool bounded to concurrency simultaneously running tasks.
// concurrency <= 0 means unbounded (one goroutine per submission).
func New(concurrency int) *Pool {
	p := &Pool{}
	if concurrency > 0 {
		p.sem = make(chan struct{}, concurrency)
	}
	return p
}

// Submit runs fn on a worker goroutine, respecting the pool's
// concurrency bound, and returns a buffered channel carrying the single
// Result.
func (p *Pool) Submit(ctx context.Context, fn Task) <-chan Result {
	out := make(chan Result, 1)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if p.sem != nil {
			select {
			case p.sem <- struct{}{}:
				defer func() { <-p.sem }()
			case <-ctx.Done():
				out <- Result{Err: ctx.Err()}
				return
			}
		}
		v, err := fn(ctx)
		out <- Result{Value: v, Err: err}
	}()
	return out
}

// Wait blocks until every task ever submitted to this pool has
// completed. Intended for shutdown/test cleanup.
func (p *Pool) Wait() { p.wg.Wait() }

// CheckSerializable runs the real pre-dispatch serializability probe:
// it attempts to marshal v through msgpack and reports a
// iface.NotSerializableError if that fails. Used before injecting a
// last result into process-dispatched work, and before fanning out
// ProcessPoolAction tasks.
func CheckSerializable(v any) error {
	if v == nil {
		return nil
	}
	if _, err := msgpack.Marshal(v); err != nil {
		return &iface.NotSerializableError{Msg: err.Error()}
	}
	return nil
}
