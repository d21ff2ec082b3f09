package action

import (
	"context"
	"testing"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/registry"
	"github.com/falyx-go/falyx/internal/workerpool"
)

func TestProcessAction_RunsOnPoolAndReturnsResult(t *testing.T) {
	pool := workerpool.New(2)
	p := NewProcessAction("square", func(ctx context.Context, args execctx.Args) (any, error) {
		return args.Positional[0].(int) * args.Positional[0].(int), nil
	}, pool, nil)
	p.Recorder = registry.NewRecorder()

	result, err := p.Call(context.Background(), execctx.Args{Positional: []any{6}, Keywords: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 36 {
		t.Fatalf("expected 36, got %v", result)
	}
	pool.Wait()
}

func TestProcessAction_RejectsUnserializableInjectedLastResult(t *testing.T) {
	pool := workerpool.New(1)
	p := NewProcessAction("echo", func(ctx context.Context, args execctx.Args) (any, error) {
		return args.LastResult, nil
	}, pool, nil)
	p.InjectLastResult = true
	p.Recorder = registry.NewRecorder()
	shared := execctx.NewSharedContext("s", "echo", false)
	shared.SetSharedResult(func() {})
	p.Shared = shared

	_, err := p.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected serializability error for a func last result")
	}
	pool.Wait()
}

func TestProcessPoolAction_PreservesPerTaskOutcomes(t *testing.T) {
	pool := workerpool.New(4)
	tasks := []ProcessTask{
		{Name: "ok", Fn: func(ctx context.Context, args execctx.Args) (any, error) { return "ok-value", nil }},
		{Name: "bad", Fn: func(ctx context.Context, args execctx.Args) (any, error) {
			return nil, errBadTask
		}},
	}
	pp := NewProcessPoolAction("fanout", tasks, pool, nil)
	pp.Recorder = registry.NewRecorder()

	result, err := pp.Call(context.Background(), execctx.NewArgs())
	if err != nil {
		t.Fatalf("unexpected top-level error: %v", err)
	}
	results, ok := result.([]ProcessPoolTaskResult)
	if !ok {
		t.Fatalf("expected []ProcessPoolTaskResult, got %T", result)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 task results, got %d", len(results))
	}
	if results[0].Name != "ok" || results[0].Err != nil || results[0].Value != "ok-value" {
		t.Fatalf("expected first task to succeed with 'ok-value', got %+v", results[0])
	}
	if results[1].Name != "bad" || results[1].Err == nil {
		t.Fatalf("expected second task to carry its own error, got %+v", results[1])
	}
	pool.Wait()
}

func TestProcessPoolAction_EmptyReturnsError(t *testing.T) {
	pool := workerpool.New(1)
	pp := NewProcessPoolAction("empty-pool", nil, pool, nil)
	pp.Recorder = registry.NewRecorder()
	_, err := pp.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected empty pool error")
	}
}

var errBadTask = &testError{"bad task exploded"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
