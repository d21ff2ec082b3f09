package action

import (
	"context"
	"errors"
	"testing"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/registry"
)

func withRecorder(b *Base) *registry.Recorder {
	r := registry.NewRecorder()
	b.Recorder = r
	return r
}

func TestAction_RecordsExactlyOneContextOnSuccess(t *testing.T) {
	a := NewAction("double", func(ctx context.Context, args execctx.Args) (any, error) {
		return args.Positional[0].(int) * 2, nil
	}, nil)
	r := withRecorder(a.Base)

	result, err := a.Call(context.Background(), execctx.Args{Positional: []any{21}, Keywords: map[string]any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 42 {
		t.Fatalf("expected 42, got %v", result)
	}

	all := r.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected exactly 1 recorded context, got %d", len(all))
	}
	ec := all[0]
	if !ec.Success() {
		t.Fatalf("expected success, got exception %v", ec.Exception)
	}
	if ec.StartedAt.After(ec.EndedAt) {
		t.Fatalf("start must not be after end")
	}
}

func TestAction_RecordsExceptionOnFailure(t *testing.T) {
	boom := errors.New("boom")
	a := NewAction("fails", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, boom
	}, nil)
	r := withRecorder(a.Base)

	_, err := a.Call(context.Background(), execctx.NewArgs())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	all := r.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected exactly 1 recorded context, got %d", len(all))
	}
	if all[0].Success() {
		t.Fatalf("expected failure recorded")
	}
}

func TestHookOrdering_SingleNode(t *testing.T) {
	var order []string
	a := NewAction("ordered", func(ctx context.Context, args execctx.Args) (any, error) {
		order = append(order, "body")
		return "ok", nil
	}, nil)
	withRecorder(a.Base)

	must := func(t hook.Type, label string) {
		_ = a.Hooks.Register(t, func(ctx context.Context, ec *execctx.ExecutionContext) error {
			order = append(order, label)
			return nil
		})
	}
	must(hook.Before, "before")
	must(hook.OnSuccess, "on_success")
	must(hook.After, "after")
	must(hook.OnTeardown, "on_teardown")

	if _, err := a.Call(context.Background(), execctx.NewArgs()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"before", "body", "on_success", "after", "on_teardown"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestOnErrorHook_RecoversResult(t *testing.T) {
	a := NewAction("recovering", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, errors.New("transient")
	}, nil)
	withRecorder(a.Base)

	_ = a.Hooks.Register(hook.OnError, func(ctx context.Context, ec *execctx.ExecutionContext) error {
		ec.SetResult("recovered")
		return nil
	})

	result, err := a.Call(context.Background(), execctx.NewArgs())
	if err != nil {
		t.Fatalf("expected recovery, got error: %v", err)
	}
	if result != "recovered" {
		t.Fatalf("expected 'recovered', got %v", result)
	}
}

func TestOnErrorHook_RaisesChainsHookError(t *testing.T) {
	orig := errors.New("original")
	a := NewAction("doubly-failing", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, orig
	}, nil)
	withRecorder(a.Base)

	hookErr := errors.New("hook blew up")
	_ = a.Hooks.Register(hook.OnError, func(ctx context.Context, ec *execctx.ExecutionContext) error {
		return hookErr
	})

	_, err := a.Call(context.Background(), execctx.NewArgs())
	if !errors.Is(err, orig) {
		t.Fatalf("expected wrapped original error, got %v", err)
	}
}

func TestEmptyComposite_Chain(t *testing.T) {
	c := NewChainedAction("empty-chain", nil, nil)
	r := withRecorder(c.Base)

	_, err := c.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected empty composite error")
	}

	all := r.GetAll()
	if len(all) != 1 {
		t.Fatalf("expected exactly 1 recorded context (the chain itself, no children), got %d", len(all))
	}
}
