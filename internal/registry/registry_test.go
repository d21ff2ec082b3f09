package registry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/falyx-go/falyx/internal/execctx"
)

func recordedCtx(name string, fail bool) *execctx.ExecutionContext {
	ec := execctx.NewExecutionContext(name, execctx.NewArgs(), nil)
	now := time.Now()
	ec.StartTimer(now)
	ec.StopTimer(now.Add(time.Millisecond))
	if fail {
		ec.SetException(errors.New("boom"))
	} else {
		ec.SetResult("ok")
	}
	return ec
}

func TestRecorder_RecordAndQuery(t *testing.T) {
	r := NewRecorder()
	if r.GetLatest() != nil {
		t.Fatalf("expected no latest context on an empty recorder")
	}

	a1 := recordedCtx("a", false)
	b1 := recordedCtx("b", true)
	a2 := recordedCtx("a", false)
	r.Record(a1)
	r.Record(b1)
	r.Record(a2)

	all := r.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 recorded contexts, got %d", len(all))
	}
	if all[0] != a1 || all[2] != a2 {
		t.Fatalf("expected recording order preserved")
	}

	byA := r.GetByName("a")
	if len(byA) != 2 {
		t.Fatalf("expected 2 contexts named 'a', got %d", len(byA))
	}

	if r.GetLatest() != a2 {
		t.Fatalf("expected the most recently recorded context as latest")
	}
}

func TestRecorder_GetAllReturnsCopy(t *testing.T) {
	r := NewRecorder()
	r.Record(recordedCtx("a", false))
	all := r.GetAll()
	all[0] = nil
	if r.GetAll()[0] == nil {
		t.Fatalf("GetAll must return a defensive copy, not the internal slice")
	}
}

func TestRecorder_Clear(t *testing.T) {
	r := NewRecorder()
	r.Record(recordedCtx("a", false))
	r.Clear()
	if len(r.GetAll()) != 0 {
		t.Fatalf("expected GetAll empty after Clear")
	}
	if len(r.GetByName("a")) != 0 {
		t.Fatalf("expected GetByName empty after Clear")
	}
}

func TestRecorder_Summary(t *testing.T) {
	r := NewRecorder()
	r.Record(recordedCtx("deploy", false))
	r.Record(recordedCtx("deploy", true))
	r.Record(recordedCtx("greet", false))

	s := r.Summary()
	if !strings.Contains(s, "deploy") || !strings.Contains(s, "greet") {
		t.Fatalf("expected summary to mention both action names, got:\n%s", s)
	}
	if !strings.Contains(s, "error: boom") {
		t.Fatalf("expected summary to reflect the last recorded status, got:\n%s", s)
	}
}

func TestRecorder_SummaryEmpty(t *testing.T) {
	r := NewRecorder()
	s := r.Summary()
	if !strings.Contains(s, "no recorded executions") {
		t.Fatalf("expected empty-recorder summary to say so, got:\n%s", s)
	}
}
