package workerpool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSubmit_ReturnsValueAndError(t *testing.T) {
	p := New(2)
	out := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return 7, nil
	})
	r := <-out
	if r.Err != nil || r.Value != 7 {
		t.Fatalf("expected (7, nil), got (%v, %v)", r.Value, r.Err)
	}

	boom := errors.New("boom")
	out = p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, boom
	})
	r = <-out
	if r.Err != boom {
		t.Fatalf("expected boom, got %v", r.Err)
	}
}

func TestSubmit_RespectsConcurrencyBound(t *testing.T) {
	p := New(1)
	started := make(chan struct{})
	release := make(chan struct{})

	first := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		close(started)
		<-release
		return "first", nil
	})

	<-started
	secondDone := make(chan struct{})
	go func() {
		out := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
			return "second", nil
		})
		<-out
		close(secondDone)
	}()

	select {
	case <-secondDone:
		t.Fatalf("second task should not complete before the first releases the pool's only slot")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-first
	<-secondDone
}

func TestSubmit_CancelledContextWhileWaitingForSlot(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		<-release
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	out := p.Submit(ctx, func(ctx context.Context) (any, error) {
		return "should not run", nil
	})
	cancel()
	r := <-out
	if r.Err == nil {
		t.Fatalf("expected context cancellation error while waiting for a slot")
	}
	close(release)
}

func TestCheckSerializable(t *testing.T) {
	if err := CheckSerializable(nil); err != nil {
		t.Fatalf("expected nil to always be serializable, got %v", err)
	}
	if err := CheckSerializable(map[string]any{"a": 1, "b": []string{"x", "y"}}); err != nil {
		t.Fatalf("expected a plain map to be serializable, got %v", err)
	}
	if err := CheckSerializable(func() {}); err == nil {
		t.Fatalf("expected a function value to fail the serializability probe")
	}
}
