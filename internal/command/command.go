// Package command implements Command: the binding between a
// user-triggered key, an action tree, its argument parser, and its
// confirmation/retry policy.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/falyx-go/falyx/internal/action"
	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/hook"
	"github.com/falyx-go/falyx/internal/iface"
	"github.com/falyx-go/falyx/internal/options"
	"github.com/falyx-go/falyx/internal/parser"
	"github.com/falyx-go/falyx/internal/preview"
	"github.com/falyx-go/falyx/internal/registry"
	"github.com/falyx-go/falyx/internal/retry"
)

// ArgMeta overrides the auto-inferred name/help/type for one positional
// slot of an action's underlying function, since Go (unlike Python)
// carries no runtime parameter names to infer from.
type ArgMeta struct {
	Name string
	Help string
	Type parser.TypeSpec
}

// Command binds Key to Action, wiring a parser, confirmation policy,
// retry policy, and a place to register a cross-field result schema.
type Command struct {
	Key                  string
	Aliases              []string
	Description          string
	HelpText             string
	Tags                 []string
	Action               action.BaseAction
	StaticArgs           []any
	StaticKwargs         map[string]any
	Confirm              bool
	ConfirmMessage       string
	PreviewBeforeConfirm bool
	Spinner              bool
	SpinnerMessage       string
	SpinnerType          string
	Retry                bool
	RetryAll             bool
	RetryPolicy          retry.Policy
	AutoArgs             bool
	ArgMetadata          []ArgMeta
	CustomParser         func(ctx context.Context, tokens []string) (positional []any, kwargs map[string]any, err error)
	ResultSchema         *jsonschema.Schema

	ArgParser *parser.CommandArgumentParser

	// Hooks is the Command's own lifecycle manager, distinct from
	// whatever hooks Action (or its descendants) register on
	// themselves — mirroring command.py's `hooks: HookManager` field,
	// fired around the Command's own ExecutionContext in Run.
	Hooks *hook.Manager

	Options     iface.OptionsManager
	Console     iface.ConsoleSink
	Prompt      iface.PromptSink
	SpinnerSink iface.SpinnerSink
	Logger      iface.Logger
	Recorder    *registry.Recorder
	Clock       iface.Clock

	lastResult any
	hasResult  bool
}

// New builds a Command bound to key and act. The caller should follow
// up with AutoArgs/ArgMetadata/AddArgument calls (directly on
// cmd.ArgParser) or set CustomParser before the first ParseArgs call —
// exactly one of {CustomParser, ArgParser} is consulted, CustomParser
// taking precedence when both are set.
func New(key string, act action.BaseAction, logger iface.Logger) *Command {
	return &Command{
		Key:          key,
		Action:       act,
		StaticKwargs: map[string]any{},
		Logger:       logger,
		Recorder:     registry.Default(),
		ArgParser:    parser.New(key, "", nil),
		Hooks:        hook.NewManager(logger),
		Clock:        iface.SystemClock,
	}
}

// EnableRetry turns on Retry and validates the policy, mirroring
// model_post_init's retry wiring: a single leaf gets its own policy
// enabled directly.
func (c *Command) EnableRetry(policy retry.Policy) error {
	leaf, ok := c.Action.(*action.Action)
	if !ok {
		if c.Logger != nil {
			c.Logger.Warn("retry requested on a non-leaf action; use RetryAll for composites", "command", c.Key)
		}
		return iface.NewConfigurationError("retry requires a leaf *action.Action, command %q holds a composite", c.Key)
	}
	if err := leaf.EnableRetry(policy); err != nil {
		return err
	}
	c.Retry = true
	c.RetryPolicy = policy
	return nil
}

// enableRetryAllOn walks node's children (where exposed) enabling
// policy on every leaf *action.Action it finds.
func (c *Command) enableRetryAllOn(node action.BaseAction, policy retry.Policy) int {
	enabled := 0
	switch n := node.(type) {
	case *action.Action:
		if err := n.EnableRetry(policy); err == nil {
			enabled++
		}
	case interface{ Children() []action.BaseAction }:
		for _, child := range n.Children() {
			enabled += c.enableRetryAllOn(child, policy)
		}
	}
	return enabled
}

// EnableRetryAll recursively enables policy on every leaf *action.Action
// descendant reachable through a Children() accessor; composites that
// don't expose one (ActionFactory, ProcessPoolAction) are left untouched.
func (c *Command) EnableRetryAll(policy retry.Policy) error {
	if err := (&policy).Enable(); err != nil {
		return err
	}
	n := c.enableRetryAllOn(c.Action, policy)
	if n == 0 {
		if c.Logger != nil {
			c.Logger.Warn("retry_all found no leaf actions to enable", "command", c.Key)
		}
	}
	c.RetryAll = true
	c.RetryPolicy = policy
	return nil
}

// ApplyAutoArgs inspects the action's GetInferTarget() function value
// via reflect and registers one positional argument per input parameter
// on ArgParser, skipping a leading context.Context parameter and any
// execctx.Args parameter. Int and float kinds get int/float coercion,
// bool gets bool coercion (still a positional, not a store_true/false
// flag), and every other kind, slices included, is a single string
// positional (no append). ArgMetadata, matched by position, overrides the synthesized name/
// help/type — the closest Go equivalent of inferring from a Python
// function's parameter names, which Go's runtime doesn't expose.
func (c *Command) ApplyAutoArgs() error {
	if !c.AutoArgs || c.ArgParser == nil {
		return nil
	}
	target := c.Action.GetInferTarget()
	if target == nil || target.Fn == nil {
		return nil
	}
	fnType := reflect.TypeOf(target.Fn)
	if fnType == nil || fnType.Kind() != reflect.Func {
		return nil
	}
	start := 0
	ctxType := reflect.TypeOf((*context.Context)(nil)).Elem()
	if fnType.NumIn() > 0 && fnType.In(0).Implements(ctxType) {
		start = 1
	}
	slot := 0
	for i := start; i < fnType.NumIn(); i++ {
		in := fnType.In(i)
		if in == reflect.TypeOf(execctx.Args{}) {
			continue
		}
		name := fmt.Sprintf("arg%d", slot)
		typ := typeSpecFor(in)
		help := ""
		if slot < len(c.ArgMetadata) {
			meta := c.ArgMetadata[slot]
			if meta.Name != "" {
				name = meta.Name
			}
			help = meta.Help
			typ = meta.Type
		}
		opts := parser.ArgOptions{Help: help, HasType: true, Type: typ, Dest: name}
		if err := c.ArgParser.AddArgument([]string{name}, opts); err != nil {
			return err
		}
		slot++
	}
	return nil
}

func typeSpecFor(t reflect.Type) parser.TypeSpec {
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return parser.IntType()
	case reflect.Float32, reflect.Float64:
		return parser.FloatType()
	case reflect.Bool:
		return parser.BoolType()
	default:
		return parser.StringType()
	}
}

// RegisterHook registers h on slot t against the Command's own
// lifecycle, independent of whatever action it currently wraps. Use
// this for behavior that should run "for this Command regardless of
// which action it wraps" — e.g. a menu-level audit log.
func (c *Command) RegisterHook(t hook.Type, h hook.Hook) error {
	return c.Hooks.Register(t, h)
}

// RegisterActionHook registers h on slot t for the whole action tree
// rooted at Action, distinct from RegisterHook's Command-level hooks.
func (c *Command) RegisterActionHook(t hook.Type, h hook.Hook) error {
	return c.Action.RegisterHooksRecursively(t, h)
}

// ParseArgs resolves raw tokens into (positional, kwargs) via
// CustomParser if set, else ArgParser.ParseArgsSplit.
func (c *Command) ParseArgs(ctx context.Context, tokens []string) ([]any, map[string]any, error) {
	if c.CustomParser != nil {
		return c.CustomParser(ctx, tokens)
	}
	if c.ArgParser == nil {
		return nil, nil, iface.NewConfigurationError("command %q has neither a custom_parser nor an arg_parser", c.Key)
	}
	return c.ArgParser.ParseArgsSplit(ctx, tokens, false)
}

// ParseArgsString tokenizes raw shell-style input (honoring single and
// double quoted segments) before delegating to ParseArgs.
func (c *Command) ParseArgsString(ctx context.Context, raw string) ([]any, map[string]any, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, nil, iface.NewCommandArgumentError("%v", err)
	}
	return c.ParseArgs(ctx, tokens)
}

// validateResultSchema cross-checks kwargs against ResultSchema, if one
// is attached, folding positional values in under synthesized keys so
// positional-only commands can still be schema-validated.
func (c *Command) validateResultSchema(positional []any, kwargs map[string]any) error {
	if c.ResultSchema == nil {
		return nil
	}
	doc := map[string]any{}
	for k, v := range kwargs {
		doc[k] = v
	}
	for i, v := range positional {
		doc[fmt.Sprintf("arg%d", i)] = v
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return iface.NewCommandArgumentError("result could not be encoded for schema validation: %v", err)
	}
	var inst any
	if err := json.Unmarshal(b, &inst); err != nil {
		return iface.NewCommandArgumentError("result could not be decoded for schema validation: %v", err)
	}
	if err := c.ResultSchema.Validate(inst); err != nil {
		return iface.NewCommandArgumentError("result failed schema validation: %v", err)
	}
	return nil
}

// CompileResultSchema compiles a JSON Schema document (as a map, the
// same shape jsonschema.Compiler accepts) and attaches it as
// ResultSchema.
func (c *Command) CompileResultSchema(name string, schema map[string]any) error {
	b, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(string(b))); err != nil {
		return err
	}
	compiled, err := compiler.Compile(name)
	if err != nil {
		return err
	}
	c.ResultSchema = compiled
	return nil
}

// confirmationPrompt renders the message shown before executing a
// confirm-gated command, falling back to a generic phrasing.
func (c *Command) confirmationPrompt() string {
	if c.ConfirmMessage != "" {
		return c.ConfirmMessage
	}
	return fmt.Sprintf("Run %q?", c.Key)
}

// Run executes the command's full lifecycle: optional confirmation,
// argument resolution, the action tree, and result recording. tokens is
// raw user input already split into words; pass nil to invoke with no
// arguments (StaticArgs/StaticKwargs only).
func (c *Command) Run(ctx context.Context, tokens []string) (any, error) {
	if c.PreviewBeforeConfirm && c.Confirm && c.Console != nil {
		c.Console.Write(preview.Render(c.Action.Preview()))
	}

	if options.ShouldPromptUser(c.Confirm, managerOf(c.Options)) {
		if c.Prompt == nil {
			return nil, iface.NewConfigurationError("command %q requires confirmation but no prompt sink is configured", c.Key)
		}
		answer, err := c.Prompt.Prompt(ctx, c.confirmationPrompt(), nil)
		if err != nil {
			return nil, err
		}
		if !affirmative(answer) {
			return nil, &iface.CancelSignal{Reason: "user declined confirmation"}
		}
	}

	positional, kwargs, err := c.ParseArgs(ctx, tokens)
	if err != nil {
		var help *iface.HelpSignal
		if errors.As(err, &help) {
			if c.Console != nil {
				c.Console.Write(help.Text)
			}
			return nil, nil
		}
		return nil, err
	}
	if err := c.validateResultSchema(positional, kwargs); err != nil {
		return nil, err
	}

	args := execctx.Args{
		Positional: append(append([]any{}, c.StaticArgs...), positional...),
		Keywords:   mergeKwargs(c.StaticKwargs, kwargs),
	}

	c.Action.SetOptionsManager(c.Options)
	if c.Recorder != nil {
		c.Action.SetRecorder(c.Recorder)
	}

	result, callErr := c.execute(ctx, args)
	c.lastResult = result
	c.hasResult = callErr == nil
	return result, callErr
}

// contextName is the name a Command's own ExecutionContext is recorded
// under, preferring Description (mirroring command.py's
// `ExecutionContext(name=self.description, ...)`) and falling back to
// Key when no description was set.
func (c *Command) contextName() string {
	if c.Description != "" {
		return c.Description
	}
	return c.Key
}

// execute runs the Command's own lifecycle around the wrapped action's
// call: a dedicated ExecutionContext, the five hook slots fired on
// c.Hooks (separate from whatever hooks Action's own tree fires on
// itself), the optional spinner around the actual call, and a single
// Command-scoped record into Recorder — exactly mirroring
// command.py's Command.__call__.
func (c *Command) execute(ctx context.Context, args execctx.Args) (any, error) {
	clock := c.Clock
	if clock == nil {
		clock = iface.SystemClock
	}
	ec := execctx.NewExecutionContext(c.contextName(), args, nil)
	ec.StartTimer(clock.Now())
	defer func() {
		ec.StopTimer(clock.Now())
		_ = c.Hooks.Trigger(ctx, hook.After, ec)
		_ = c.Hooks.Trigger(ctx, hook.OnTeardown, ec)
		if c.Recorder != nil {
			c.Recorder.Record(ec)
		}
	}()

	_ = c.Hooks.Trigger(ctx, hook.Before, ec)

	result, err := c.callAction(ctx, args)
	if err != nil {
		ec.SetException(err)
		if herr := c.Hooks.Trigger(ctx, hook.OnError, ec); herr != nil {
			return nil, herr
		}
		if ec.Exception == nil {
			return ec.Result, nil
		}
		return nil, ec.Exception
	}

	ec.SetResult(result)
	_ = c.Hooks.Trigger(ctx, hook.OnSuccess, ec)
	return ec.Result, nil
}

// callAction invokes the wrapped action, wrapping the call with the
// spinner when configured.
func (c *Command) callAction(ctx context.Context, args execctx.Args) (any, error) {
	if c.Spinner && c.SpinnerSink != nil {
		msg := c.SpinnerMessage
		if msg == "" {
			msg = fmt.Sprintf("Running %s...", c.Key)
		}
		stop := c.SpinnerSink.Start(msg)
		defer stop()
	}
	return c.Action.Call(ctx, args)
}

func managerOf(m iface.OptionsManager) *options.Manager {
	if mgr, ok := m.(*options.Manager); ok {
		return mgr
	}
	return nil
}

func mergeKwargs(static, received map[string]any) map[string]any {
	out := make(map[string]any, len(static)+len(received))
	for k, v := range static {
		out[k] = v
	}
	for k, v := range received {
		out[k] = v
	}
	return out
}

func affirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Result returns the last outcome Run produced and whether one exists yet.
func (c *Command) Result() (any, bool) { return c.lastResult, c.hasResult }

// Preview renders the command's action tree as an ASCII tree.
func (c *Command) Preview() string { return preview.Render(c.Action.Preview()) }

// HelpSignature renders a one-line invocation signature suitable for a
// menu listing: "key [options] positional...".
func (c *Command) HelpSignature() string {
	if c.ArgParser != nil {
		return c.ArgParser.GetUsage()
	}
	return c.Key
}

// Usage renders the same text as ArgParser.RenderHelp, for commands
// that own a parser; returns a minimal fallback otherwise.
func (c *Command) Usage() string {
	if c.ArgParser != nil {
		return c.ArgParser.RenderHelp()
	}
	return c.Description
}

// ShowHelp writes Usage() to Console, if one is configured.
func (c *Command) ShowHelp() {
	if c.Console != nil {
		c.Console.Write(c.Usage())
	}
}

// LogSummary renders a short one-line status string for this command's
// last recorded execution, sourced from the Command-level context Run
// records under contextName() — not the wrapped action's own record,
// which may belong to a differently named leaf buried in a composite.
func (c *Command) LogSummary() string {
	if c.Recorder == nil {
		return fmt.Sprintf("%s: (no recorder attached)", c.Key)
	}
	ctxs := c.Recorder.GetByName(c.contextName())
	if len(ctxs) == 0 {
		return fmt.Sprintf("%s: (never run)", c.Key)
	}
	last := ctxs[len(ctxs)-1]
	return fmt.Sprintf("%s: %s (%s)", c.Key, last.Status(), last.Duration())
}

// MatchesKey reports whether token equals Key or one of Aliases.
func (c *Command) MatchesKey(token string) bool {
	if token == c.Key {
		return true
	}
	for _, a := range c.Aliases {
		if token == a {
			return true
		}
	}
	return false
}
