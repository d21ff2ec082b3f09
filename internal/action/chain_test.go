package action

import (
	"context"
	"errors"
	"testing"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/registry"
)

func TestChain_FallbackConsumesError(t *testing.T) {
	returnsNil := NewAction("returns-nil", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, errors.New("first attempt failed")
	}, nil)
	fallback := NewFallbackAction("use-default", "x", nil)
	identity := NewAction("identity", func(ctx context.Context, args execctx.Args) (any, error) {
		return args.LastResult, nil
	}, nil)
	identity.InjectLastResult = true

	c := NewChainedAction("with-fallback", []any{returnsNil, fallback, identity}, nil)
	r := registry.NewRecorder()
	returnsNil.Recorder = r
	fallback.Recorder = r
	identity.Recorder = r
	c.Recorder = r

	result, err := c.Call(context.Background(), execctx.NewArgs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "x" {
		t.Fatalf("expected result 'x', got %v", result)
	}

	all := r.GetAll()
	if len(all) != 4 {
		t.Fatalf("expected 4 recorded contexts (chain + 3 children), got %d", len(all))
	}
	var names []string
	for _, ec := range all {
		names = append(names, ec.Name)
	}
	wantOrder := []string{"returns-nil", "use-default", "identity", "with-fallback"}
	found := map[string]int{}
	for i, n := range names {
		found[n] = i
	}
	for i := 0; i < len(wantOrder)-1; i++ {
		if found[wantOrder[i]] > found[wantOrder[i+1]] {
			t.Fatalf("expected %s to record before %s, got order %v", wantOrder[i], wantOrder[i+1], names)
		}
	}
}

func TestChain_ErrorWithoutFallbackPropagates(t *testing.T) {
	boom := errors.New("boom")
	a := NewAction("a", func(ctx context.Context, args execctx.Args) (any, error) { return 1, nil }, nil)
	b := NewAction("b", func(ctx context.Context, args execctx.Args) (any, error) { return nil, boom }, nil)
	c := NewAction("c", func(ctx context.Context, args execctx.Args) (any, error) { return 3, nil }, nil)

	chain := NewChainedAction("no-fallback", []any{a, b, c}, nil)
	chain.Recorder = registry.NewRecorder()
	a.Recorder, b.Recorder, c.Recorder = chain.Recorder, chain.Recorder, chain.Recorder

	_, err := chain.Call(context.Background(), execctx.NewArgs())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}

	all := chain.Recorder.GetAll()
	var cNames []string
	for _, ec := range all {
		cNames = append(cNames, ec.Name)
	}
	for _, n := range cNames {
		if n == "c" {
			t.Fatalf("action c should not have run after b failed, recorded: %v", cNames)
		}
	}
}

func TestChain_EmptyReturnsError(t *testing.T) {
	c := NewChainedAction("empty", nil, nil)
	c.Recorder = registry.NewRecorder()
	_, err := c.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected empty chain error")
	}
}

func TestChain_ReturnListYieldsAllResultsInOrder(t *testing.T) {
	one := NewAction("one", func(ctx context.Context, args execctx.Args) (any, error) { return 1, nil }, nil)
	two := NewAction("two", func(ctx context.Context, args execctx.Args) (any, error) { return 2, nil }, nil)
	three := NewAction("three", func(ctx context.Context, args execctx.Args) (any, error) { return 3, nil }, nil)

	c := NewChainedAction("numbers", []any{one, two, three}, nil)
	c.ReturnList = true
	c.Recorder = registry.NewRecorder()

	result, err := c.Call(context.Background(), execctx.NewArgs())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, ok := result.([]any)
	if !ok {
		t.Fatalf("expected []any result, got %T", result)
	}
	if len(list) != 3 || list[0] != 1 || list[1] != 2 || list[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", list)
	}
}

type rollbackableAction struct {
	*Action
	rolled *bool
	order  *[]string
}

func (r *rollbackableAction) Rollback(ctx context.Context) error {
	*r.rolled = true
	if r.order != nil {
		*r.order = append(*r.order, r.Name+"-rollback")
	}
	return nil
}

func TestChain_RollsBackExecutedChildrenInReverseOrder(t *testing.T) {
	var order []string

	firstRolled := false
	first := &rollbackableAction{
		Action: NewAction("first", func(ctx context.Context, args execctx.Args) (any, error) {
			order = append(order, "first-run")
			return 1, nil
		}, nil),
		rolled: &firstRolled,
		order:  &order,
	}
	secondRolled := false
	second := &rollbackableAction{
		Action: NewAction("second", func(ctx context.Context, args execctx.Args) (any, error) {
			order = append(order, "second-run")
			return 2, nil
		}, nil),
		rolled: &secondRolled,
		order:  &order,
	}
	failing := NewAction("failing", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, errors.New("boom")
	}, nil)

	c := NewChainedAction("rollback-chain", []any{first, second, failing}, nil)
	c.Recorder = registry.NewRecorder()
	first.Recorder, second.Recorder, failing.Recorder = c.Recorder, c.Recorder, c.Recorder

	_, err := c.Call(context.Background(), execctx.NewArgs())
	if err == nil {
		t.Fatalf("expected chain to fail")
	}
	if !firstRolled || !secondRolled {
		t.Fatalf("expected both executed children to be rolled back, first=%v second=%v", firstRolled, secondRolled)
	}
	wantOrder := []string{"first-run", "second-run", "second-rollback", "first-rollback"}
	if len(order) != len(wantOrder) {
		t.Fatalf("got order %v, want %v", order, wantOrder)
	}
	for i := range wantOrder {
		if order[i] != wantOrder[i] {
			t.Fatalf("got order %v, want %v", order, wantOrder)
		}
	}
}
