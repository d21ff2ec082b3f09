package parser

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/falyx-go/falyx/internal/action"
	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
)

// ArgOptions carries every optional field AddArgument accepts, since Go
// has no keyword arguments. Zero value means "use the default for this
// field" (Type's zero value is treated as StringType()).
type ArgOptions struct {
	Kind         ArgKind
	Nargs        Nargs
	HasNargs     bool
	Type         TypeSpec
	HasType      bool
	Default      any
	Choices      []string
	Required     bool
	Help         string
	Dest         string
	Resolver     action.BaseAction
	LazyResolver bool
	PathGlob     bool
}

// CommandArgumentParser is a deterministic, typed argument parser
// specialized for single-command workflows — not a general argparse
// replacement.
type CommandArgumentParser struct {
	CommandKey         string
	CommandDescription string
	HelpText           string
	HelpEpilog         string
	Aliases            []string

	console iface.ConsoleSink

	arguments   []*Argument
	positional  []*Argument
	keywordList []*Argument
	flagMap     map[string]*Argument
	keyword     map[string]*Argument
	destSet     map[string]bool
}

// New builds a parser for one command, pre-registering -h/--help.
func New(commandKey, description string, console iface.ConsoleSink) *CommandArgumentParser {
	p := &CommandArgumentParser{
		CommandKey:         commandKey,
		CommandDescription: description,
		console:            console,
		flagMap:            map[string]*Argument{},
		keyword:            map[string]*Argument{},
		destSet:            map[string]bool{},
	}
	_ = p.AddArgument([]string{"-h", "--help"}, ArgOptions{Kind: Help, Dest: "help", Help: "Show this help message."})
	return p
}

// GetArgument returns the registered argument with the given dest, or nil.
func (p *CommandArgumentParser) GetArgument(dest string) *Argument {
	for _, a := range p.arguments {
		if a.Dest == dest {
			return a
		}
	}
	return nil
}

func isPositional(flags []string) (bool, error) {
	positional := false
	for _, f := range flags {
		if !strings.HasPrefix(f, "-") {
			positional = true
		}
	}
	if positional && len(flags) > 1 {
		return false, iface.NewCommandArgumentError("positional arguments cannot have multiple flags")
	}
	return positional, nil
}

func destFromFlags(flags []string, dest string) (string, error) {
	if dest != "" {
		if err := validIdentifier(dest); err != nil {
			return "", iface.NewCommandArgumentError("%s", err.Error())
		}
		return dest, nil
	}
	var derived string
	for _, f := range flags {
		switch {
		case strings.HasPrefix(f, "--"):
			derived = strings.ToLower(strings.ReplaceAll(strings.TrimLeft(f, "-"), "-", "_"))
		case strings.HasPrefix(f, "-"):
			if derived == "" {
				derived = strings.ToLower(strings.ReplaceAll(strings.TrimLeft(f, "-"), "-", "_"))
			}
		default:
			derived = strings.ToLower(strings.ReplaceAll(f, "-", "_"))
		}
	}
	if err := validIdentifier(derived); err != nil {
		return "", iface.NewCommandArgumentError("%s", err.Error())
	}
	return derived, nil
}

func validateFlags(flags []string) error {
	if len(flags) == 0 {
		return iface.NewCommandArgumentError("no flags provided")
	}
	for _, f := range flags {
		if strings.HasPrefix(f, "--") && len(f) < 3 {
			return iface.NewCommandArgumentError("flag %q must be at least 3 characters long", f)
		}
		if strings.HasPrefix(f, "-") && !strings.HasPrefix(f, "--") && len(f) > 2 {
			return iface.NewCommandArgumentError("flag %q must be a single character or start with '--'", f)
		}
	}
	return nil
}

func validateKindPlacement(kind ArgKind, positional bool) error {
	if kind.flagToggling() && positional {
		return iface.NewCommandArgumentError("action %q cannot be used with positional arguments", kind)
	}
	return nil
}

func validateNargs(nargs Nargs, hasNargs bool, kind ArgKind) (Nargs, error) {
	if kind.flagToggling() {
		if hasNargs {
			return Nargs{}, iface.NewCommandArgumentError("nargs cannot be specified for %q actions", kind)
		}
		return NoNargs, nil
	}
	if !hasNargs {
		return NoNargs, nil
	}
	if nargs.Kind == NargsExact && nargs.Count <= 0 {
		return Nargs{}, iface.NewCommandArgumentError("nargs must be a positive integer")
	}
	return nargs, nil
}

func resolveDefault(def any, kind ArgKind, nargs Nargs) any {
	if def != nil {
		return def
	}
	switch kind {
	case StoreTrue:
		return false
	case StoreFalse:
		return true
	case StoreBoolOptional:
		return nil
	case Count:
		return 0
	case Append:
		if nargs.Kind == NargsExact && nargs.Count > 1 {
			return [][]any{}
		}
		return []any{}
	case Extend:
		return []any{}
	}
	if nargs.Kind == NargsExact || nargs.Kind == NargsStar || nargs.Kind == NargsPlus {
		return []any{}
	}
	return nil
}

// AddArgument registers one argument, validating eagerly per spec.md §4.8.
func (p *CommandArgumentParser) AddArgument(flags []string, opts ArgOptions) error {
	if err := validateFlags(flags); err != nil {
		return err
	}
	positional, err := isPositional(flags)
	if err != nil {
		return err
	}
	dest, err := destFromFlags(flags, opts.Dest)
	if err != nil {
		return err
	}
	if p.destSet[dest] {
		return iface.NewCommandArgumentError("destination %q is already defined; define a unique dest for each argument", dest)
	}
	kind := opts.Kind
	if err := validateKindPlacement(kind, positional); err != nil {
		return err
	}
	if kind == StoreBoolOptional {
		if positional {
			return iface.NewCommandArgumentError("store_bool_optional cannot be used with positional arguments")
		}
		longFlags := 0
		for _, f := range flags {
			if strings.HasPrefix(f, "--") {
				longFlags++
			} else {
				return iface.NewCommandArgumentError("store_bool_optional requires a single long flag and forbids short aliases")
			}
		}
		if longFlags != 1 {
			return iface.NewCommandArgumentError("store_bool_optional requires exactly one long flag")
		}
	}
	if kind == Action {
		if opts.Resolver == nil {
			return iface.NewCommandArgumentError("resolver must be provided for action=ACTION")
		}
	} else if opts.Resolver != nil {
		return iface.NewCommandArgumentError("resolver should not be provided for action %q", kind)
	}

	nargs, err := validateNargs(opts.Nargs, opts.HasNargs, kind)
	if err != nil {
		return err
	}
	typ := StringType()
	if opts.HasType {
		typ = opts.Type
	}
	def := resolveDefault(opts.Default, kind, nargs)

	if (kind == Store || kind == Append || kind == Extend) && def != nil {
		if list, ok := def.([]any); ok {
			for _, item := range list {
				if s, ok := item.(string); ok {
					if _, err := CoerceValue(s, typ); err != nil {
						return iface.NewCommandArgumentError("default list value %v for %q cannot be coerced to %s: %v", def, dest, typ.Name(), err)
					}
				}
			}
		} else if s, ok := def.(string); ok {
			if _, err := CoerceValue(s, typ); err != nil {
				return iface.NewCommandArgumentError("default value %v for %q cannot be coerced to %s: %v", def, dest, typ.Name(), err)
			}
		}
	}

	choices := append([]string{}, opts.Choices...)
	for _, c := range choices {
		if _, err := CoerceValue(c, typ); err != nil {
			return iface.NewCommandArgumentError("invalid choice %q: not coercible to %s: %v", c, typ.Name(), err)
		}
	}
	if def != nil && len(choices) > 0 {
		if s, ok := def.(string); ok {
			found := false
			for _, c := range choices {
				if c == s {
					found = true
				}
			}
			if !found {
				return iface.NewCommandArgumentError("default value %q not in allowed choices: %v", s, choices)
			}
		}
	}

	required := opts.Required
	if !required && positional {
		switch nargs.Kind {
		case NargsOne:
			required = true
		case NargsExact:
			required = nargs.Count > 0
		case NargsPlus:
			required = true
		case NargsOptional, NargsStar:
			required = false
		}
	}

	arg := &Argument{
		Flags: flags, Dest: dest, Kind: kind, Type: typ, Default: def,
		Choices: choices, Required: required, Nargs: nargs, Positional: positional,
		Resolver: opts.Resolver, LazyResolver: opts.LazyResolver, Help: opts.Help,
		PathGlob: opts.PathGlob,
	}

	for _, f := range flags {
		if existing, ok := p.flagMap[f]; ok {
			return iface.NewCommandArgumentError("flag %q is already used by argument %q", f, existing.Dest)
		}
	}
	for _, f := range flags {
		p.flagMap[f] = arg
		if !positional {
			p.keyword[f] = arg
		}
	}
	if kind == StoreBoolOptional {
		noFlag := "--no-" + strings.TrimPrefix(flags[0], "--")
		if _, ok := p.flagMap[noFlag]; ok {
			return iface.NewCommandArgumentError("flag %q is already used", noFlag)
		}
		p.flagMap[noFlag] = arg
		p.keyword[noFlag] = arg
		arg.Flags = append(arg.Flags, noFlag)
	}
	p.destSet[dest] = true
	p.arguments = append(p.arguments, arg)
	if positional {
		p.positional = append(p.positional, arg)
	} else {
		p.keywordList = append(p.keywordList, arg)
	}
	return nil
}

// expandPosixBundling expands a token like "-abc" into ["-a","-b","-c"]
// when it isn't itself a registered flag and isn't of form "--...".
// Errors if any expanded letter doesn't correspond to a registered
// short flag.
func (p *CommandArgumentParser) expandPosixBundling(token string) ([]string, error) {
	if _, ok := p.flagMap[token]; ok {
		return nil, nil
	}
	if !strings.HasPrefix(token, "-") || strings.HasPrefix(token, "--") || len(token) <= 2 {
		return nil, nil
	}
	var expanded []string
	for _, r := range token[1:] {
		flag := "-" + string(r)
		if _, ok := p.flagMap[flag]; !ok {
			return nil, iface.NewCommandArgumentError("unrecognized option: %s", flag)
		}
		expanded = append(expanded, flag)
	}
	return expanded, nil
}

// consumeNargs takes values starting at tokens[start] per spec's
// nargs-consumption rules.
func (p *CommandArgumentParser) consumeNargs(tokens []string, start int, spec *Argument) ([]string, int, error) {
	switch spec.Nargs.Kind {
	case NargsExact:
		end := start + spec.Nargs.Count
		if end > len(tokens) {
			end = len(tokens)
		}
		return tokens[start:end], start + spec.Nargs.Count, nil
	case NargsPlus:
		var vals []string
		i := start
		for i < len(tokens) {
			if _, isFlag := p.keyword[tokens[i]]; isFlag {
				break
			}
			vals = append(vals, tokens[i])
			i++
		}
		if len(vals) == 0 {
			return nil, start, iface.NewCommandArgumentError("expected at least one value for %q", spec.Dest)
		}
		return vals, i, nil
	case NargsStar:
		var vals []string
		i := start
		for i < len(tokens) {
			if _, isFlag := p.keyword[tokens[i]]; isFlag {
				break
			}
			vals = append(vals, tokens[i])
			i++
		}
		return vals, i, nil
	default: // NargsOptional, NargsOne
		if start < len(tokens) {
			if _, isFlag := p.keyword[tokens[start]]; !isFlag {
				return []string{tokens[start]}, start + 1, nil
			}
		}
		return nil, start, nil
	}
}

func (p *CommandArgumentParser) unrecognizedError(token string) error {
	var candidates []string
	for f := range p.flagMap {
		if strings.HasPrefix(f, token) {
			candidates = append(candidates, f)
		}
	}
	if len(candidates) > 0 {
		sort.Strings(candidates)
		return iface.NewCommandArgumentError("unrecognized option %q. Did you mean one of: %s?", token, strings.Join(candidates, ", "))
	}
	return iface.NewCommandArgumentError("unrecognized option %q. Use --help to see available options.", token)
}

// parseState is the mutable state threaded through one ParseArgs call.
type parseState struct {
	result            map[string]any
	consumedPositions map[int]bool
}

// ParseArgs parses tokens against the registered arguments and returns
// dest -> value. fromValidate suppresses lazy-resolver invocation, used
// by validation-only parses; -h/--help still returns a HelpSignal with
// the rendered help text.
func (p *CommandArgumentParser) ParseArgs(ctx context.Context, tokens []string, fromValidate bool) (map[string]any, error) {
	st := &parseState{result: map[string]any{}, consumedPositions: map[int]bool{}}
	for _, a := range p.arguments {
		st.result[a.Dest] = copyDefault(a.Default)
	}

	expanded := make([]string, 0, len(tokens))
	for _, t := range tokens {
		bundle, err := p.expandPosixBundling(t)
		if err != nil {
			return nil, err
		}
		if bundle != nil {
			expanded = append(expanded, bundle...)
		} else {
			expanded = append(expanded, t)
		}
	}

	i := 0
	for i < len(expanded) {
		token := expanded[i]
		next, err := p.handleToken(ctx, token, expanded, i, st, fromValidate)
		if err != nil {
			return nil, err
		}
		i = next
	}

	for _, spec := range p.arguments {
		if spec.Dest == "help" {
			continue
		}
		if spec.Required && isEmpty(st.result[spec.Dest]) {
			if spec.Kind == Action && spec.LazyResolver && fromValidate {
				continue
			}
			helpText := ""
			if spec.Help != "" {
				helpText = " help: " + spec.Help
			}
			return nil, iface.NewCommandArgumentError("missing required argument %q: %s%s", spec.Dest, spec.GetChoiceText(), helpText)
		}
		if len(spec.Choices) > 0 {
			if s, ok := st.result[spec.Dest].(string); ok && s != "" {
				found := false
				for _, c := range spec.Choices {
					if c == s {
						found = true
					}
				}
				if !found {
					return nil, iface.NewCommandArgumentError("invalid value for %q: must be one of {%s}", spec.Dest, strings.Join(spec.Choices, ", "))
				}
			}
		}
		if spec.Kind == Action {
			continue
		}
		if spec.Nargs.Kind == NargsExact && spec.Nargs.Count > 1 {
			switch spec.Kind {
			case Append:
				groups, _ := st.result[spec.Dest].([][]any)
				for _, g := range groups {
					if len(g)%spec.Nargs.Count != 0 {
						return nil, iface.NewCommandArgumentError("invalid number of values for %q: expected a multiple of %d", spec.Dest, spec.Nargs.Count)
					}
				}
			case Extend:
				vals, _ := st.result[spec.Dest].([]any)
				if len(vals)%spec.Nargs.Count != 0 {
					return nil, iface.NewCommandArgumentError("invalid number of values for %q: expected a multiple of %d", spec.Dest, spec.Nargs.Count)
				}
			default:
				vals, _ := st.result[spec.Dest].([]any)
				if len(vals) != spec.Nargs.Count && !(len(vals) == 0 && !spec.Required) {
					return nil, iface.NewCommandArgumentError("invalid number of values for %q: expected %d, got %d", spec.Dest, spec.Nargs.Count, len(vals))
				}
			}
		}
	}

	delete(st.result, "help")
	return st.result, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case [][]any:
		return len(t) == 0
	default:
		return false
	}
}

func copyDefault(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		copy(out, t)
		return out
	default:
		return v
	}
}

func (p *CommandArgumentParser) handleToken(ctx context.Context, token string, tokens []string, i int, st *parseState, fromValidate bool) (int, error) {
	if spec, ok := p.keyword[token]; ok {
		return p.handleFlagged(ctx, spec, token, tokens, i, st, fromValidate)
	}
	if strings.HasPrefix(token, "-") {
		return i, p.unrecognizedError(token)
	}
	// positional tail: collect up to the next known flag
	end := len(tokens)
	for j := i; j < len(tokens); j++ {
		if _, ok := p.keyword[tokens[j]]; ok {
			end = j
			break
		}
	}
	consumed, err := p.consumeAllPositional(ctx, tokens[i:end], st, fromValidate)
	if err != nil {
		return i, err
	}
	return i + consumed, nil
}

func (p *CommandArgumentParser) handleFlagged(ctx context.Context, spec *Argument, token string, tokens []string, i int, st *parseState, fromValidate bool) (int, error) {
	switch spec.Kind {
	case Help:
		var b strings.Builder
		p.renderHelpTo(&b)
		return i, &iface.HelpSignal{Text: b.String()}

	case StoreTrue:
		st.result[spec.Dest] = true
		return i + 1, nil

	case StoreFalse:
		st.result[spec.Dest] = false
		return i + 1, nil

	case StoreBoolOptional:
		st.result[spec.Dest] = !strings.HasPrefix(token, "--no-")
		return i + 1, nil

	case Count:
		cur, _ := st.result[spec.Dest].(int)
		st.result[spec.Dest] = cur + 1
		return i + 1, nil

	case Action:
		values, next, err := p.consumeNargs(tokens, i+1, spec)
		if err != nil {
			return i, err
		}
		typed, err := coerceAll(values, spec.Type, spec.Dest)
		if err != nil {
			return i, err
		}
		if spec.LazyResolver && fromValidate {
			return next, nil
		}
		v, err := spec.Resolver.Call(ctx, execctx.Args{Positional: typed, Keywords: map[string]any{}})
		if err != nil {
			return i, iface.NewCommandArgumentError("[%s] action failed: %v", spec.Dest, err)
		}
		st.result[spec.Dest] = v
		return next, nil

	case Append:
		values, next, err := p.consumeNargs(tokens, i+1, spec)
		if err != nil {
			return i, err
		}
		typed, err := coerceAll(values, spec.Type, spec.Dest)
		if err != nil {
			return i, err
		}
		if spec.Nargs.Kind == NargsOne {
			list, _ := st.result[spec.Dest].([]any)
			if len(typed) > 0 {
				list = append(list, typed[0])
			}
			st.result[spec.Dest] = list
		} else {
			groups, _ := st.result[spec.Dest].([][]any)
			groups = append(groups, typed)
			st.result[spec.Dest] = groups
		}
		return next, nil

	case Extend:
		values, next, err := p.consumeNargs(tokens, i+1, spec)
		if err != nil {
			return i, err
		}
		typed, err := coerceAll(values, spec.Type, spec.Dest)
		if err != nil {
			return i, err
		}
		list, _ := st.result[spec.Dest].([]any)
		list = append(list, typed...)
		st.result[spec.Dest] = list
		return next, nil

	default: // Store
		values, next, err := p.consumeNargs(tokens, i+1, spec)
		if err != nil {
			return i, err
		}
		typed, err := coerceAll(values, spec.Type, spec.Dest)
		if err != nil {
			return i, err
		}
		if len(typed) == 0 && spec.Nargs.Kind != NargsStar && spec.Nargs.Kind != NargsOptional {
			return i, p.missingValueError(spec)
		}
		if (spec.Nargs.Kind == NargsOne || spec.Nargs.Kind == NargsOptional || (spec.Nargs.Kind == NargsExact && spec.Nargs.Count == 1)) {
			if len(typed) == 1 {
				st.result[spec.Dest] = typed[0]
			} else {
				st.result[spec.Dest] = typed
			}
		} else {
			st.result[spec.Dest] = typed
		}
		return next, nil
	}
}

func (p *CommandArgumentParser) missingValueError(spec *Argument) error {
	var bits []string
	if spec.Default != nil {
		bits = append(bits, fmt.Sprintf("default=%v", spec.Default))
	}
	if len(spec.Choices) > 0 {
		bits = append(bits, fmt.Sprintf("choices=%v", spec.Choices))
	}
	if len(bits) > 0 {
		return iface.NewCommandArgumentError("argument %q requires a value. %s", spec.Dest, strings.Join(bits, ", "))
	}
	if spec.Nargs.Kind == NargsOne {
		return iface.NewCommandArgumentError("enter a %s value for %q", spec.Type.Name(), spec.Dest)
	}
	return iface.NewCommandArgumentError("argument %q requires a value. Expected %s values.", spec.Dest, spec.Nargs.String())
}

func coerceAll(values []string, typ TypeSpec, dest string) ([]any, error) {
	out := make([]any, 0, len(values))
	for _, v := range values {
		coerced, err := CoerceValue(v, typ)
		if err != nil {
			return nil, iface.NewCommandArgumentError("invalid value for %q: %v", dest, err)
		}
		out = append(out, coerced)
	}
	return out, nil
}

func (p *CommandArgumentParser) consumeAllPositional(ctx context.Context, tokens []string, st *parseState, fromValidate bool) (int, error) {
	var remaining []struct {
		idx  int
		spec *Argument
	}
	for j, spec := range p.positional {
		if !st.consumedPositions[j] {
			remaining = append(remaining, struct {
				idx  int
				spec *Argument
			}{j, spec})
		}
	}

	i := 0
	for _, r := range remaining {
		j, spec := r.idx, r.spec
		isLast := j == len(p.positional)-1
		remainingTokens := len(tokens) - i
		minRequired := 0
		for k := j + 1; k < len(p.positional); k++ {
			minRequired += p.positional[k].minRequired()
		}

		var slice []string
		if isLast {
			slice = tokens[i:]
		} else {
			end := i + (remainingTokens - minRequired)
			if end < i {
				end = i
			}
			if end > len(tokens) {
				end = len(tokens)
			}
			slice = tokens[i:end]
		}

		values, newI, err := p.consumeNargs(slice, 0, spec)
		if err != nil {
			return i, err
		}
		i += newI

		typed, err := coerceAll(values, spec.Type, spec.Dest)
		if err != nil {
			return i, err
		}

		switch {
		case spec.Kind == Action:
			if !spec.LazyResolver || !fromValidate {
				v, err := spec.Resolver.Call(ctx, execctx.Args{Positional: typed, Keywords: map[string]any{}})
				if err != nil {
					return i, iface.NewCommandArgumentError("[%s] action failed: %v", spec.Dest, err)
				}
				st.result[spec.Dest] = v
			}
		case len(typed) == 0 && spec.Default != nil:
			st.result[spec.Dest] = spec.Default
		case spec.Kind == Append:
			list, _ := st.result[spec.Dest].([]any)
			list = append(list, typed)
			st.result[spec.Dest] = list
		case spec.Kind == Extend:
			list, _ := st.result[spec.Dest].([]any)
			list = append(list, typed...)
			st.result[spec.Dest] = list
		case spec.Nargs.Kind == NargsOne || spec.Nargs.Kind == NargsOptional:
			if len(typed) == 1 {
				st.result[spec.Dest] = typed[0]
			} else {
				st.result[spec.Dest] = typed
			}
		default:
			st.result[spec.Dest] = typed
		}

		if spec.Nargs.Kind != NargsStar && spec.Nargs.Kind != NargsPlus {
			st.consumedPositions[j] = true
		}
	}

	if i < len(tokens) {
		rest := tokens[i:]
		if len(rest) == 1 && strings.HasPrefix(rest[0], "-") {
			return i, p.unrecognizedError(rest[0])
		}
		plural := ""
		if len(rest) > 1 {
			plural = "s"
		}
		return i, iface.NewCommandArgumentError("unexpected positional argument%s: %s", plural, strings.Join(rest, ", "))
	}
	return i, nil
}

// ParseArgsSplit parses tokens and splits the result into declaration-
// ordered positional values and a keyword map.
func (p *CommandArgumentParser) ParseArgsSplit(ctx context.Context, tokens []string, fromValidate bool) ([]any, map[string]any, error) {
	parsed, err := p.ParseArgs(ctx, tokens, fromValidate)
	if err != nil {
		return nil, nil, err
	}
	var positional []any
	kwargs := map[string]any{}
	for _, a := range p.arguments {
		if a.Dest == "help" {
			continue
		}
		if a.Positional {
			positional = append(positional, parsed[a.Dest])
		} else {
			kwargs[a.Dest] = parsed[a.Dest]
		}
	}
	return positional, kwargs, nil
}

// SuggestNext returns candidate next tokens for partial input: every
// not-yet-exhausted flag, plus the preceding flag's choices if any, or
// glob-matched filesystem entries if the preceding flag is PathGlob.
func (p *CommandArgumentParser) SuggestNext(tokens []string, partial string) []string {
	var preceding *Argument
	if n := len(tokens); n > 0 {
		if spec, ok := p.keyword[tokens[n-1]]; ok && !spec.Kind.flagToggling() {
			preceding = spec
		}
	}
	if preceding != nil {
		if preceding.PathGlob {
			matches, _ := doublestar.FilepathGlob(partial + "*")
			return matches
		}
		if len(preceding.Choices) > 0 {
			var out []string
			for _, c := range preceding.Choices {
				if strings.HasPrefix(c, partial) {
					out = append(out, c)
				}
			}
			return out
		}
	}
	used := map[string]bool{}
	for _, t := range tokens {
		used[t] = true
	}
	var out []string
	seen := map[string]bool{}
	for _, spec := range p.arguments {
		for _, f := range spec.Flags {
			if used[f] || seen[f] {
				continue
			}
			if strings.HasPrefix(f, partial) {
				out = append(out, f)
				seen[f] = true
			}
		}
	}
	sort.Strings(out)
	return out
}
