// Package screenq builds filter trees for a stock screener.
//
// This package re-exports commonly used types and functions from subpackages
// for convenience. Advanced users can import subpackages directly:
//   - github.com/bawdo/screenq/nodes (tree nodes, combinators, wire format)
//   - github.com/bawdo/screenq/managers (the Query wrapper)
//   - github.com/bawdo/screenq/visitors (SQL and DOT rendering)
//   - github.com/bawdo/screenq/plugins (tree transformers)
//   - github.com/bawdo/screenq/screener (request body and fetching)
package screenq

import (
	"github.com/bawdo/screenq/managers"
	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/visitors"
)

// --- Core Types ---

// Expression is one node of a filter tree.
type Expression = nodes.Expression

// Operand is a literal, a nested expression or unset.
type Operand = nodes.Operand

// Query owns a root expression and a transformer pipeline.
type Query = managers.Query

// Combinator is a named node factory.
type Combinator = nodes.Combinator

// --- Combinators ---

var (
	And  = nodes.And
	Or   = nodes.Or
	Eq   = nodes.Eq
	Btwn = nodes.Btwn
	Gt   = nodes.Gt
	Lt   = nodes.Lt
	Gte  = nodes.Gte
	Lte  = nodes.Lte
)

// --- Constructors ---

// NewQuery wraps a copy of root.
func NewQuery(root *nodes.Expression) *managers.Query {
	return managers.NewQuery(root)
}

// Parse builds a Query from a wire map.
func Parse(m map[string]any) (*managers.Query, error) {
	return managers.Parse(m)
}

// ParseJSON builds a Query from a JSON wire document.
func ParseJSON(data []byte) (*managers.Query, error) {
	return managers.ParseJSON(data)
}

// EquityQuery builds a node checked against the equity field list.
func EquityQuery(operator string, operands ...any) (*nodes.Expression, error) {
	return nodes.NewEquityQuery(operator, operands...)
}

// ETFQuery builds a node checked against the ETF field list.
func ETFQuery(operator string, operands ...any) (*nodes.Expression, error) {
	return nodes.NewETFQuery(operator, operands...)
}

// FundQuery builds a node checked against the mutual fund field list.
func FundQuery(operator string, operands ...any) (*nodes.Expression, error) {
	return nodes.NewFundQuery(operator, operands...)
}

// Must panics if err is non-nil.
func Must(e *nodes.Expression, err error) *nodes.Expression {
	return nodes.Must(e, err)
}

// --- Visitor Constructors ---

// NewSQLiteVisitor creates a new SQLite visitor.
func NewSQLiteVisitor(opts ...visitors.Option) *visitors.SQLiteVisitor {
	return visitors.NewSQLiteVisitor(opts...)
}

// NewPostgresVisitor creates a new PostgreSQL visitor.
func NewPostgresVisitor(opts ...visitors.Option) *visitors.PostgresVisitor {
	return visitors.NewPostgresVisitor(opts...)
}

// NewMySQLVisitor creates a new MySQL visitor.
func NewMySQLVisitor(opts ...visitors.Option) *visitors.MySQLVisitor {
	return visitors.NewMySQLVisitor(opts...)
}

// WithoutParams inlines values instead of emitting placeholders.
// Only use it for display.
func WithoutParams() visitors.Option {
	return visitors.WithoutParams()
}
