// Package plugins defines the Transformer interface for tree middleware.
package plugins

import "github.com/bawdo/screenq/nodes"

// Transformer rewrites a filter tree before it is serialized or rendered.
// It receives a private copy of the root and may modify it in place or
// return a new root.
type Transformer interface {
	Transform(root *nodes.Expression) (*nodes.Expression, error)
}

// TransformerFunc adapts an ordinary function to the Transformer interface.
type TransformerFunc func(*nodes.Expression) (*nodes.Expression, error)

func (f TransformerFunc) Transform(root *nodes.Expression) (*nodes.Expression, error) {
	return f(root)
}
