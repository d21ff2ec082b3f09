package command

import (
	"context"
	"errors"
	"testing"

	"github.com/falyx-go/falyx/internal/action"
	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/parser"
	"github.com/falyx-go/falyx/internal/registry"
)

type fakeConsole struct{ lines []string }

func (f *fakeConsole) Write(s string) { f.lines = append(f.lines, s) }

type fakePrompt struct{ answer string }

func (f fakePrompt) Prompt(ctx context.Context, message string, validator func(string) error) (string, error) {
	return f.answer, nil
}

func TestCommand_RunWithoutConfirmation(t *testing.T) {
	act := action.NewAction("greet", func(ctx context.Context, args execctx.Args) (any, error) {
		return "hi " + args.Positional[0].(string), nil
	}, nil)
	cmd := New("greet", act, nil)
	if err := cmd.ArgParser.AddArgument([]string{"name"}, parser.ArgOptions{Required: true}); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	result, err := cmd.Run(context.Background(), []string{"ada"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "hi ada" {
		t.Fatalf("result = %v, want 'hi ada'", result)
	}
}

func TestCommand_ConfirmationDeclined(t *testing.T) {
	act := action.NewAction("deploy", func(ctx context.Context, args execctx.Args) (any, error) {
		return "deployed", nil
	}, nil)
	cmd := New("deploy", act, nil)
	cmd.Confirm = true
	cmd.Prompt = fakePrompt{answer: "n"}

	_, err := cmd.Run(context.Background(), nil)
	if !iface.IsCancelSignal(err) {
		t.Fatalf("expected cancel signal, got %v", err)
	}
}

func TestCommand_ConfirmationAccepted(t *testing.T) {
	act := action.NewAction("deploy", func(ctx context.Context, args execctx.Args) (any, error) {
		return "deployed", nil
	}, nil)
	cmd := New("deploy", act, nil)
	cmd.Confirm = true
	cmd.Prompt = fakePrompt{answer: "y"}

	result, err := cmd.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "deployed" {
		t.Fatalf("result = %v, want deployed", result)
	}
}

func TestCommand_MatchesKey(t *testing.T) {
	cmd := &Command{Key: "build", Aliases: []string{"b", "compile"}}
	for _, tok := range []string{"build", "b", "compile"} {
		if !cmd.MatchesKey(tok) {
			t.Fatalf("MatchesKey(%q) = false, want true", tok)
		}
	}
	if cmd.MatchesKey("nope") {
		t.Fatalf("MatchesKey(nope) = true, want false")
	}
}

func TestCommand_ParseArgsString(t *testing.T) {
	act := action.NewAction("echo", func(ctx context.Context, args execctx.Args) (any, error) {
		return args.Positional, nil
	}, nil)
	cmd := New("echo", act, nil)
	if err := cmd.ArgParser.AddArgument([]string{"text"}, parser.ArgOptions{Required: true}); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}
	positional, _, err := cmd.ParseArgsString(context.Background(), `"hello world"`)
	if err != nil {
		t.Fatalf("ParseArgsString: %v", err)
	}
	if len(positional) != 1 || positional[0] != "hello world" {
		t.Fatalf("positional = %#v, want one quoted token", positional)
	}
}

func TestCommand_FiresOwnHookLifecycleAndRecordsSeparately(t *testing.T) {
	act := action.NewAction("greet", func(ctx context.Context, args execctx.Args) (any, error) {
		return "hi", nil
	}, nil)
	cmd := New("greet-cmd", act, nil)
	cmd.Description = "greet someone"
	cmd.Recorder = registry.NewRecorder()
	act.Recorder = cmd.Recorder

	var order []string
	record := func(name string) hook.Hook {
		return func(ctx context.Context, ec *execctx.ExecutionContext) error {
			order = append(order, name)
			return nil
		}
	}
	if err := cmd.RegisterHook(hook.Before, record("before")); err != nil {
		t.Fatalf("RegisterHook(Before): %v", err)
	}
	if err := cmd.RegisterHook(hook.OnSuccess, record("on_success")); err != nil {
		t.Fatalf("RegisterHook(OnSuccess): %v", err)
	}
	if err := cmd.RegisterHook(hook.After, record("after")); err != nil {
		t.Fatalf("RegisterHook(After): %v", err)
	}
	if err := cmd.RegisterHook(hook.OnTeardown, record("on_teardown")); err != nil {
		t.Fatalf("RegisterHook(OnTeardown): %v", err)
	}

	result, err := cmd.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result != "hi" {
		t.Fatalf("result = %v, want hi", result)
	}

	want := []string{"before", "on_success", "after", "on_teardown"}
	if len(order) != len(want) {
		t.Fatalf("hook firing order = %v, want %v", order, want)
	}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("hook firing order = %v, want %v", order, want)
		}
	}

	all := cmd.Recorder.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 recorded contexts (command + leaf action), got %d", len(all))
	}
	cmdCtxs := cmd.Recorder.GetByName("greet someone")
	if len(cmdCtxs) != 1 {
		t.Fatalf("expected exactly 1 context recorded under the command's description, got %d", len(cmdCtxs))
	}
	leafCtxs := cmd.Recorder.GetByName("greet")
	if len(leafCtxs) != 1 {
		t.Fatalf("expected exactly 1 context recorded under the leaf action's name, got %d", len(leafCtxs))
	}
}

func TestCommand_OwnOnErrorHookFiresOnActionFailure(t *testing.T) {
	boom := errors.New("boom")
	act := action.NewAction("fails", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, boom
	}, nil)
	cmd := New("fails-cmd", act, nil)
	cmd.Recorder = registry.NewRecorder()
	act.Recorder = cmd.Recorder

	fired := false
	if err := cmd.RegisterHook(hook.OnError, func(ctx context.Context, ec *execctx.ExecutionContext) error {
		fired = true
		if !errors.Is(ec.Exception, boom) {
			t.Fatalf("expected ec.Exception to be boom, got %v", ec.Exception)
		}
		return nil
	}); err != nil {
		t.Fatalf("RegisterHook(OnError): %v", err)
	}

	_, err := cmd.Run(context.Background(), nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}
	if !fired {
		t.Fatalf("expected the command-level ON_ERROR hook to fire")
	}
}

func TestCommand_RegisterActionHookStillReachesActionTree(t *testing.T) {
	act := action.NewAction("noop", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, nil
	}, nil)
	cmd := New("noop-cmd", act, nil)

	fired := false
	if err := cmd.RegisterActionHook(hook.Before, func(ctx context.Context, ec *execctx.ExecutionContext) error {
		fired = true
		return nil
	}); err != nil {
		t.Fatalf("RegisterActionHook: %v", err)
	}

	if _, err := cmd.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !fired {
		t.Fatalf("expected RegisterActionHook's hook to fire on the wrapped action's own execution")
	}
}

func TestCommand_LogSummaryReadsCommandLevelRecord(t *testing.T) {
	act := action.NewAction("greet", func(ctx context.Context, args execctx.Args) (any, error) {
		return "hi", nil
	}, nil)
	cmd := New("greet-cmd", act, nil)
	cmd.Recorder = registry.NewRecorder()
	act.Recorder = cmd.Recorder

	if s := cmd.LogSummary(); s != "greet-cmd: (never run)" {
		t.Fatalf("LogSummary before Run = %q", s)
	}

	if _, err := cmd.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s := cmd.LogSummary(); s == "greet-cmd: (never run)" {
		t.Fatalf("expected LogSummary to reflect the command-level record after Run, got %q", s)
	}
}

func TestCommand_HelpSignature(t *testing.T) {
	act := action.NewAction("noop", func(ctx context.Context, args execctx.Args) (any, error) {
		return nil, nil
	}, nil)
	cmd := New("noop", act, nil)
	sig := cmd.HelpSignature()
	if sig == "" {
		t.Fatalf("HelpSignature returned empty string")
	}
}
