// Package managers provides the Query root wrapper that owns a filter tree
// and runs the transformer pipeline before serialization or rendering.
package managers

import (
	"encoding/json"
	"errors"

	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/plugins"
)

// ErrNoRoot is returned when a Query has no tree to work on.
var ErrNoRoot = errors.New("managers: query has no root expression")

// Query owns exactly one expression tree. The tree is copied on the way in,
// so later changes to the caller's nodes do not leak into the Query.
type Query struct {
	root         *nodes.Expression
	transformers []plugins.Transformer
}

// NewQuery wraps a deep copy of root.
func NewQuery(root *nodes.Expression) *Query {
	return &Query{root: root.Clone()}
}

// Parse builds a Query from a wire map in strict mode.
func Parse(m map[string]any) (*Query, error) {
	return ParseWith(m, nodes.ParseOptions{})
}

// ParseWith builds a Query from a wire map with the given parse options.
func ParseWith(m map[string]any, opts nodes.ParseOptions) (*Query, error) {
	root, err := nodes.ParseWith(m, opts)
	if err != nil {
		return nil, err
	}
	return &Query{root: root}, nil
}

// ParseJSON builds a Query from a JSON wire document in strict mode.
func ParseJSON(data []byte) (*Query, error) {
	root, err := nodes.ParseJSON(data)
	if err != nil {
		return nil, err
	}
	return &Query{root: root}, nil
}

// Root returns the owned tree. Mutating it mutates the Query.
func (q *Query) Root() *nodes.Expression {
	return q.root
}

// Use appends a transformer to the pipeline.
func (q *Query) Use(t plugins.Transformer) *Query {
	q.transformers = append(q.transformers, t)
	return q
}

// Transformers returns the registered transformer pipeline.
func (q *Query) Transformers() []plugins.Transformer {
	return q.transformers
}

// SetProperty rewrites every node whose primary is field so that its value
// becomes value. It is Rebind on the root.
func (q *Query) SetProperty(field string, value any) error {
	if q.root == nil {
		return ErrNoRoot
	}
	o, err := nodes.NewOperand(value)
	if err != nil {
		return err
	}
	q.root.Rebind(field, o)
	return nil
}

// Tree returns the tree after running the transformer pipeline over a copy
// of the root. The owned root is never modified by transformers.
func (q *Query) Tree() (*nodes.Expression, error) {
	if q.root == nil {
		return nil, ErrNoRoot
	}
	tree := q.root.Clone()
	for _, t := range q.transformers {
		var err error
		if tree, err = t.Transform(tree); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// Serialize produces the wire map of the transformed tree.
func (q *Query) Serialize() (map[string]any, error) {
	tree, err := q.Tree()
	if err != nil {
		return nil, err
	}
	return tree.Serialize()
}

// MarshalJSON encodes the serialized wire map.
func (q *Query) MarshalJSON() ([]byte, error) {
	m, err := q.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// ToSQL renders the transformed tree with v and returns the SQL fragment
// along with any bind parameters collected by the visitor.
func (q *Query) ToSQL(v nodes.Visitor) (string, []any, error) {
	return toSQLParams(v, func(v nodes.Visitor) (string, error) {
		tree, err := q.Tree()
		if err != nil {
			return "", err
		}
		return tree.Accept(v), nil
	})
}

// toSQLParams resets a parameterizer (if present), calls the provided
// generate function, and returns SQL + params.
func toSQLParams(v nodes.Visitor, generate func(nodes.Visitor) (string, error)) (string, []any, error) {
	p, _ := v.(nodes.Parameterizer)
	if p != nil {
		p.Reset()
	}

	sql, err := generate(v)
	if err != nil {
		return "", nil, err
	}

	if p != nil {
		return sql, p.Params(), nil
	}
	return sql, nil, nil
}
