// Package visitors renders filter trees: SQL dialect generators, a Graphviz
// DOT generator and a multi-line formatting wrapper.
package visitors

import (
	"fmt"
	"strings"

	"github.com/bawdo/screenq/internal/quoting"
	"github.com/bawdo/screenq/nodes"
)

// Operator SQL strings for the binary comparison operators.
var comparisonOpSQL = map[nodes.Operator]string{
	nodes.OpEq:  "=",
	nodes.OpGt:  ">",
	nodes.OpLt:  "<",
	nodes.OpGte: ">=",
	nodes.OpLte: "<=",
}

// Option configures a visitor at construction time.
type Option func(*baseVisitor)

// WithParams enables parameterized query mode: literal values are replaced
// with bind placeholders and collected for separate retrieval. This is the
// default for every dialect.
func WithParams() Option {
	return func(b *baseVisitor) {
		b.parameterize = true
	}
}

// WithoutParams disables parameterized query mode.
//
// Literal values are interpolated directly into the SQL string with basic
// escaping only. Use it for display and debugging, never with untrusted input.
func WithoutParams() Option {
	return func(b *baseVisitor) {
		b.parameterize = false
	}
}

// baseVisitor implements the shared SQL generation logic used by all dialects.
// Dialect-specific visitors embed *baseVisitor and set the outer field to
// themselves, enabling correct virtual dispatch through the Visitor interface.
type baseVisitor struct {
	// outer is the concrete dialect visitor. All recursive Accept calls
	// go through outer so that dialect overrides are respected.
	outer nodes.Visitor

	// quoteIdent quotes a SQL identifier (table name, column name).
	quoteIdent func(string) string

	// parameterize enables bind-parameter mode.
	parameterize bool

	// params accumulates bind parameter values during SQL generation.
	params []any

	// paramIndex tracks the next parameter number (1-based).
	paramIndex int

	// placeholder returns the bind placeholder for a given parameter index.
	// PostgreSQL uses $1, $2; MySQL/SQLite use ?.
	placeholder func(int) string
}

func (b *baseVisitor) applyOptions(opts []Option) {
	for _, o := range opts {
		o(b)
	}
}

// Params returns the collected bind parameters from the last SQL generation.
func (b *baseVisitor) Params() []any {
	return b.params
}

// Reset clears collected parameters for reuse.
func (b *baseVisitor) Reset() {
	b.params = nil
	b.paramIndex = 0
}

// QuoteIdent quotes a table or column name for the dialect.
func (b *baseVisitor) QuoteIdent(name string) string {
	return b.quoteIdent(name)
}

// VisitLogical joins the operands with AND/OR. Nested logical groups are
// parenthesized.
func (b *baseVisitor) VisitLogical(n *nodes.Expression) string {
	ops := n.Operands()
	parts := make([]string, 0, len(ops))
	for _, o := range ops {
		if o.Elided() {
			continue
		}
		parts = append(parts, b.operandSQL(o))
	}
	return strings.Join(parts, " "+n.Operator().String()+" ")
}

// VisitComparison renders a comparison on the primary field. EQ with several
// values becomes IN (...), and EQ with no value becomes IS NOT NULL.
func (b *baseVisitor) VisitComparison(n *nodes.Expression) string {
	left := b.fieldSQL(n.Primary())
	values := comparisonValues(n)

	switch n.Operator() {
	case nodes.OpEq:
		switch len(values) {
		case 0:
			return left + " IS NOT NULL"
		case 1:
			return left + " = " + b.operandSQL(values[0])
		}
		vals := make([]string, len(values))
		for i, v := range values {
			vals[i] = b.operandSQL(v)
		}
		return left + " IN (" + strings.Join(vals, ", ") + ")"

	case nodes.OpBtwn:
		low, high := nodes.Unset, nodes.Unset
		if len(values) > 0 {
			low = values[0]
		}
		if len(values) > 1 {
			high = values[1]
		}
		return left + " BETWEEN " + b.operandSQL(low) + " AND " + b.operandSQL(high)
	}

	right := nodes.Unset
	if len(values) > 0 {
		right = values[0]
	}
	return left + " " + comparisonOpSQL[n.Operator()] + " " + b.operandSQL(right)
}

// VisitReference renders a bare field selection as its quoted identifier.
func (b *baseVisitor) VisitReference(n *nodes.Expression) string {
	return b.fieldSQL(n.Primary())
}

// comparisonValues returns the value operands of a comparison, skipping
// empty-string and unset slots.
func comparisonValues(n *nodes.Expression) []nodes.Operand {
	var out []nodes.Operand
	for _, o := range n.Rest() {
		if o.IsUnset() || o.Elided() {
			continue
		}
		out = append(out, o)
	}
	return out
}

// fieldSQL renders the primary operand of a comparison. String literals are
// column names; anything else is rendered as a value.
func (b *baseVisitor) fieldSQL(o nodes.Operand) string {
	if v, ok := o.Value(); ok {
		if name, isString := v.(string); isString {
			return b.quoteIdent(name)
		}
	}
	return b.operandSQL(o)
}

func (b *baseVisitor) operandSQL(o nodes.Operand) string {
	switch o.Kind() {
	case nodes.KindNode:
		child, _ := o.Node()
		sql := child.Accept(b.outer)
		if child.Operator().IsLogical() {
			return "(" + sql + ")"
		}
		return sql
	case nodes.KindLiteral:
		v, _ := o.Value()
		return b.literalToSQL(v)
	default:
		return "NULL"
	}
}

func (b *baseVisitor) literalToSQL(val any) string {
	// nil always renders as NULL keyword, never parameterized.
	if val == nil {
		return "NULL"
	}

	// In parameterize mode, emit a placeholder and collect the value.
	if b.parameterize {
		b.paramIndex++
		b.params = append(b.params, val)
		return b.placeholder(b.paramIndex)
	}

	switch v := val.(type) {
	case string:
		return quoting.StringLiteral(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%g", v)
	default:
		return quoting.StringLiteral(fmt.Sprint(v))
	}
}

// ToSQL resets v (when it collects parameters), renders e and returns the
// SQL together with the collected bind parameters.
func ToSQL(v nodes.Visitor, e *nodes.Expression) (string, []any) {
	p, _ := v.(nodes.Parameterizer)
	if p != nil {
		p.Reset()
	}
	sql := e.Accept(v)
	if p != nil {
		return sql, p.Params()
	}
	return sql, nil
}
