package parser

import (
	"fmt"
	"strings"

	"github.com/falyx-go/falyx/internal/action"
)

// Argument represents one command-line argument: a flagged option or
// (if no flag starts with "-") a positional slot.
type Argument struct {
	Flags        []string
	Dest         string
	Kind         ArgKind
	Type         TypeSpec
	Default      any
	Choices      []string
	Required     bool
	Nargs        Nargs
	Positional   bool
	Resolver     action.BaseAction
	LazyResolver bool
	Help         string

	// PathGlob marks a STORE-kind argument's values as filesystem
	// paths; SuggestNext switches to doublestar glob matching against
	// the working directory for this argument instead of suggesting
	// its (nonexistent) choice set.
	PathGlob bool
}

// GetPositionalText renders the label used in the positional section
// of rendered help.
func (a *Argument) GetPositionalText() string {
	if !a.Positional {
		return ""
	}
	if len(a.Choices) > 0 {
		return "{" + strings.Join(a.Choices, ",") + "}"
	}
	return a.Dest
}

// GetChoiceText renders the bracketed value placeholder used in usage
// and options-section rendering, honoring Nargs.
func (a *Argument) GetChoiceText() string {
	var text string
	switch {
	case len(a.Choices) > 0:
		text = "{" + strings.Join(a.Choices, ",") + "}"
	case (a.Kind == Store || a.Kind == Append || a.Kind == Extend || a.Kind == Action) && !a.Positional:
		text = strings.ToUpper(a.Dest)
	case a.Kind == Store || a.Kind == Append || a.Kind == Extend || a.Kind == Action || a.Nargs.Kind != NargsOne:
		text = a.Dest
	}

	switch a.Nargs.Kind {
	case NargsOptional:
		text = "[" + text + "]"
	case NargsStar:
		text = "[" + text + " ...]"
	case NargsPlus:
		text = text + " [" + text + " ...]"
	}
	return text
}

// minRequired returns how many tokens this argument needs at minimum
// when the positional distribution pass is reserving room for
// subsequent specs: nargs for int/"+", zero for "?"/"*"/defaulted.
func (a *Argument) minRequired() int {
	if a.Default != nil {
		return 0
	}
	switch a.Nargs.Kind {
	case NargsOne:
		return 1
	case NargsExact:
		return a.Nargs.Count
	case NargsPlus:
		return 1
	default: // "?", "*"
		return 0
	}
}

func validIdentifier(s string) error {
	if s == "" {
		return fmt.Errorf("dest must not be empty")
	}
	for _, r := range s {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return fmt.Errorf("dest must be a valid identifier (letters, digits, and underscores only)")
		}
	}
	if s[0] >= '0' && s[0] <= '9' {
		return fmt.Errorf("dest must not start with a digit")
	}
	return nil
}
