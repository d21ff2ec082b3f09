package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/registry"
)

func TestGroup_PartialFailureAggregatesAndRecordsEveryChild(t *testing.T) {
	ok := NewAction("ok", func(ctx context.Context, args execctx.Args) (any, error) { return 1, nil }, nil)
	fail := NewAction("fail", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, errors.New("fail exploded")
	}, nil)
	ok2 := NewAction("ok2", func(ctx context.Context, args execctx.Args) (any, error) { return 2, nil }, nil)

	g := NewActionGroup("mixed", []any{ok, fail, ok2}, nil)
	r := registry.NewRecorder()
	g.Recorder, ok.Recorder, fail.Recorder, ok2.Recorder = r, r, r, r

	_, err := g.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected aggregate failure")
	}
	if !strings.Contains(err.Error(), "fail") {
		t.Fatalf("expected error message to mention 'fail', got: %v", err)
	}
	var agg *iface.AggregateGroupFailure
	if !errors.As(err, &agg) {
		t.Fatalf("expected *iface.AggregateGroupFailure, got %T", err)
	}
	if len(agg.FailedNames) != 1 || agg.FailedNames[0] != "fail" {
		t.Fatalf("expected only 'fail' to be recorded as failed, got %v", agg.FailedNames)
	}

	all := r.GetAll()
	if len(all) != 4 {
		t.Fatalf("expected 4 recorded contexts (group + 3 children), got %d", len(all))
	}
}

func TestGroup_EmptyReturnsError(t *testing.T) {
	g := NewActionGroup("empty-group", nil, nil)
	g.Recorder = registry.NewRecorder()
	_, err := g.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected empty group error")
	}
}

func TestGroup_ResultsPreserveDeclarationOrder(t *testing.T) {
	slow := NewAction("slow", func(ctx context.Context, args execctx.Args) (any, error) {
		return "slow-value", nil
	}, nil)
	fast := NewAction("fast", func(ctx context.Context, args execctx.Args) (any, error) {
		return "fast-value", nil
	}, nil)

	g := NewActionGroup("race", []any{slow, fast}, nil)
	g.Recorder = registry.NewRecorder()
	slow.Recorder, fast.Recorder = g.Recorder, g.Recorder

	result, err := g.Call(context.Background(), execctx.NewArgs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	results, ok := result.([]GroupResult)
	if !ok {
		t.Fatalf("expected []GroupResult, got %T", result)
	}
	if len(results) != 2 || results[0].Name != "slow" || results[1].Name != "fast" {
		t.Fatalf("expected declaration order [slow fast], got %v", results)
	}
}
