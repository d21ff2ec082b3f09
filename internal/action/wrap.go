package action

import (
	"context"
	"fmt"

	"github.com/falyx-go/falyx/internal/execctx"
	"github.com/falyx-go/falyx/internal/iface"
)

// LeafFunc is a bare callable child — a composite's children may be
// arbitrary actions, bare callables, or literal values.
type LeafFunc func(ctx context.Context, args execctx.Args) (any, error)

// Wrap normalizes a heterogeneous composite child into a BaseAction.
// Children are normalized once, at construction, so the runtime only
// ever holds BaseAction nodes.
//
// Accepted inputs: a BaseAction (returned unchanged), a LeafFunc or a
// plain func(context.Context, execctx.Args) (any, error) (wrapped in an
// Action), or any other value (wrapped in a LiteralInputAction).
func Wrap(name string, v any, logger iface.Logger) BaseAction {
	switch t := v.(type) {
	case BaseAction:
		return t
	case LeafFunc:
		return NewAction(name, t, logger)
	case func(context.Context, execctx.Args) (any, error):
		return NewAction(name, t, logger)
	default:
		return NewLiteralInputAction(name, v, logger)
	}
}

// WrapAll applies Wrap to every element of vs, synthesizing a name for
// each based on namePrefix and its index when the element isn't already
// a named BaseAction.
func WrapAll(namePrefix string, vs []any, logger iface.Logger) []BaseAction {
	out := make([]BaseAction, len(vs))
	for i, v := range vs {
		if ba, ok := v.(BaseAction); ok {
			out[i] = ba
			continue
		}
		out[i] = Wrap(fmt.Sprintf("%s[%d]", namePrefix, i), v, logger)
	}
	return out
}
