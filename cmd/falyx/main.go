// Command falyx is a thin demo binary wiring a couple of commands
// together to exercise the action execution core end to end: a two-step
// chain (greet), a confirm-gated, retrying, schema-validated single leaf
// (deploy), and a registry summary (history).
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/falyx-go/falyx/internal/action"
	"github.com/falyx-go/falyx/internal/command"
	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/options"
	"github.com/falyx-go/falyx/internal/parser"
	"github.com/falyx-go/falyx/internal/registry"
	"github.com/falyx-go/falyx/internal/retry"
)

// stdoutConsole writes help/preview text to stdout.
type stdoutConsole struct{}

func (stdoutConsole) Write(s string) { fmt.Fprintln(os.Stdout, s) }

// stderrSpinner prints a single "message..." line before the action runs
// and a "done" line once it settles; no terminal redraw, just plain text.
type stderrSpinner struct{}

func (stderrSpinner) Start(message string) func() {
	fmt.Fprintln(os.Stderr, message)
	return func() { fmt.Fprintln(os.Stderr, "done") }
}

// stdinPrompt reads one line from stdin for a confirmation prompt.
type stdinPrompt struct{ reader *bufio.Reader }

func (p stdinPrompt) Prompt(ctx context.Context, message string, validator func(string) error) (string, error) {
	fmt.Fprintf(os.Stdout, "%s [y/N]: ", message)
	line, err := p.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	answer := strings.TrimSpace(line)
	if validator != nil {
		if err := validator(answer); err != nil {
			return "", err
		}
	}
	return answer, nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := iface.NewStdLogger(os.Stderr, "falyx")
	opts := options.New()

	switch os.Args[1] {
	case "--version", "-v", "version":
		fmt.Println("falyx 0.1.0")
		os.Exit(0)
	case "run":
		runDemo(os.Args[2:], logger, opts)
	case "preview":
		previewDemo(os.Args[2:], logger, opts)
	case "list":
		listDemo(logger, opts)
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  falyx --version")
	fmt.Fprintln(os.Stderr, "  falyx run <greet|deploy|history> [args...]")
	fmt.Fprintln(os.Stderr, "  falyx preview <greet|deploy|history>")
	fmt.Fprintln(os.Stderr, "  falyx list")
}

func buildGreetCommand(logger iface.Logger, opts *options.Manager) *command.Command {
	say := action.NewAction("say", func(ctx context.Context, args execctx.Args) (any, error) {
		name := "world"
		if len(args.Positional) > 0 {
			if s, ok := args.Positional[0].(string); ok {
				name = s
			}
		}
		return "hello, " + name, nil
	}, logger)

	shout := action.NewAction("shout", func(ctx context.Context, args execctx.Args) (any, error) {
		greeting, _ := args.LastResult.(string)
		return strings.ToUpper(greeting), nil
	}, logger)
	shout.WithInjectLastResult("last_result")

	chain := action.NewChainedAction("greet-chain", []any{say, shout}, logger)

	cmd := command.New("greet", chain, logger)
	cmd.Description = "greets someone, loudly"
	cmd.Options = opts
	cmd.Console = stdoutConsole{}
	if err := cmd.ArgParser.AddArgument([]string{"name"}, parser.ArgOptions{
		Nargs: parser.NargsZeroOrOne(), HasNargs: true, Help: "who to greet",
	}); err != nil {
		logger.Error("failed to register argument", "error", err)
	}
	return cmd
}

func buildDeployCommand(logger iface.Logger, opts *options.Manager) *command.Command {
	attempts := 0
	deploy := action.NewAction("deploy", func(ctx context.Context, args execctx.Args) (any, error) {
		attempts++
		if attempts < 2 {
			return nil, fmt.Errorf("transient deploy failure (attempt %d)", attempts)
		}
		env := "staging"
		if len(args.Positional) > 0 {
			if s, ok := args.Positional[0].(string); ok {
				env = s
			}
		}
		return "deployed to " + env, nil
	}, logger)
	if err := deploy.EnableRetry(retry.Policy{Enabled: true, MaxRetries: 3, Delay: 10 * time.Millisecond, Backoff: 2.0, Jitter: 0.1}); err != nil {
		logger.Error("failed to enable retry", "error", err)
	}

	cmd := command.New("deploy", deploy, logger)
	cmd.Description = "deploys to an environment, retrying transient failures"
	cmd.Options = opts
	cmd.Console = stdoutConsole{}
	cmd.Prompt = stdinPrompt{reader: bufio.NewReader(os.Stdin)}
	cmd.Confirm = true
	cmd.ConfirmMessage = "Really deploy?"
	cmd.Spinner = true
	cmd.SpinnerMessage = "deploying..."
	cmd.SpinnerSink = stderrSpinner{}
	if err := cmd.ArgParser.AddArgument([]string{"env"}, parser.ArgOptions{
		Nargs: parser.NargsZeroOrOne(), HasNargs: true,
		Choices: []string{"staging", "production"}, Help: "target environment",
	}); err != nil {
		logger.Error("failed to register argument", "error", err)
	}
	_ = cmd.CompileResultSchema("deploy-result.json", map[string]any{
		"type": "object",
	})
	return cmd
}

func buildHistoryCommand(logger iface.Logger, opts *options.Manager) *command.Command {
	history := action.GetHistoryAction("history", registry.Default(), logger)
	cmd := command.New("history", history, logger)
	cmd.Description = "shows a summary of every recorded execution"
	cmd.Options = opts
	cmd.Console = stdoutConsole{}
	return cmd
}

func commandsByKey(logger iface.Logger, opts *options.Manager) map[string]*command.Command {
	return map[string]*command.Command{
		"greet":   buildGreetCommand(logger, opts),
		"deploy":  buildDeployCommand(logger, opts),
		"history": buildHistoryCommand(logger, opts),
	}
}

func runDemo(args []string, logger iface.Logger, opts *options.Manager) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	cmds := commandsByKey(logger, opts)
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		os.Exit(1)
	}
	result, err := cmd.Run(context.Background(), args[1:])
	if err != nil {
		if iface.IsCancelSignal(err) {
			fmt.Println("cancelled")
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("result: %v\n", result)
}

func previewDemo(args []string, logger iface.Logger, opts *options.Manager) {
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}
	cmds := commandsByKey(logger, opts)
	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		os.Exit(1)
	}
	fmt.Println(cmd.Preview())
}

func listDemo(logger iface.Logger, opts *options.Manager) {
	cmds := commandsByKey(logger, opts)
	for _, key := range []string{"greet", "deploy", "history"} {
		cmd := cmds[key]
		fmt.Printf("%-20s %s\n", cmd.HelpSignature(), cmd.Description)
	}
	fmt.Print(registry.Default().Summary())
}
