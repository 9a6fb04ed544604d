// Package nodes defines the filter-expression tree used to build screener
// queries: operators, operands, expression nodes, the combinator table and
// the nested-map wire codec.
package nodes

import "errors"

// Visitor defines the interface for walking an expression tree and producing
// output. Concrete visitors (SQL dialects, DOT, formatting) implement it.
type Visitor interface {
	// VisitLogical is called for AND/OR nodes.
	VisitLogical(node *Expression) string
	// VisitComparison is called for EQ/BTWN/GT/LT/GTE/LTE nodes.
	VisitComparison(node *Expression) string
	// VisitReference is called for nodes whose operator is still unset.
	VisitReference(node *Expression) string
}

// Parameterizer is implemented by visitors that support parameterized queries.
// Callers use type assertion to extract collected parameters after rendering.
type Parameterizer interface {
	Params() []any
	Reset()
}

// Errors returned by the engine. All of them are wrapped with context, so
// callers should match with errors.Is.
var (
	ErrInvalidOperator  = errors.New("nodes: invalid operator")
	ErrInvalidArguments = errors.New("nodes: invalid arguments")
	ErrInvalidField     = errors.New("nodes: invalid field")
	ErrIncompleteNode   = errors.New("nodes: incomplete node")
	ErrMalformedQuery   = errors.New("nodes: malformed query")
	ErrInvalidOperand   = errors.New("nodes: invalid operand")
)
