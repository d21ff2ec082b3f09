// Package preview renders an action tree as ASCII art for
// BaseAction.Preview(), used by Command's pre-confirmation preview and
// by any "preview" CLI surface a host binds to an action.
package preview

import (
	"github.com/m1gwings/treedrawer/tree"
)

// Node is a generic label + children description of one action in the
// tree, built by internal/action so this package never needs to import
// action types back (which would be circular).
type Node struct {
	Label    string
	Children []Node
}

// Render draws root as an ASCII tree and returns the rendered string.
func Render(root Node) string {
	t := build(root)
	return t.String()
}

func build(n Node) *tree.Tree {
	t := tree.NewTree(tree.NodeString(n.Label))
	for _, c := range n.Children {
		addChild(t, c)
	}
	return t
}

func addChild(parent *tree.Tree, n Node) {
	child := parent.AddChild(tree.NodeString(n.Label))
	for _, gc := range n.Children {
		addChild(child, gc)
	}
}
