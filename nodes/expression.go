package nodes

import (
	"slices"
	"strings"
)

// Expression is a node of the filter tree: an operator applied to a primary
// operand followed by the remaining operands.
//
// For comparisons the primary is conventionally the field name and the rest
// holds the value(s). For AND/OR every operand is a child expression.
// Combinators always return new nodes; Rebind is the only method that
// mutates an existing tree.
type Expression struct {
	op      Operator
	primary Operand
	rest    []Operand
}

// NewExpression constructs a node. A non-empty operator must match one of the
// canonical tokens case-insensitively. When primary is Unset and operands are
// given, the first operand becomes the primary.
func NewExpression(operator string, primary Operand, operands ...Operand) (*Expression, error) {
	op, err := ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	return newExpression(op, primary, operands), nil
}

func newExpression(op Operator, primary Operand, operands []Operand) *Expression {
	rest := slices.Clone(operands)
	if primary.IsUnset() && len(rest) > 0 {
		primary, rest = rest[0], rest[1:]
	}
	return &Expression{op: op, primary: primary, rest: rest}
}

// Operator returns the node's operator (OpUnset for field references).
func (e *Expression) Operator() Operator { return e.op }

// Primary returns the first operand.
func (e *Expression) Primary() Operand { return e.primary }

// Rest returns a copy of the operands following the primary.
func (e *Expression) Rest() []Operand { return slices.Clone(e.rest) }

// Operands returns [primary] ++ rest.
func (e *Expression) Operands() []Operand {
	out := make([]Operand, 0, len(e.rest)+1)
	out = append(out, e.primary)
	return append(out, e.rest...)
}

// FieldName returns the primary as a string when it is a string literal.
func (e *Expression) FieldName() (string, bool) {
	v, ok := e.primary.Value()
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Children returns the nested expressions among the operands, in order.
func (e *Expression) Children() []*Expression {
	var out []*Expression
	for _, o := range e.Operands() {
		if n, ok := o.Node(); ok {
			out = append(out, n)
		}
	}
	return out
}

// Complete reports whether Serialize would succeed on this node alone
// (children are not inspected).
func (e *Expression) Complete() bool {
	return e.incompleteReason() == ""
}

func (e *Expression) incompleteReason() string {
	if e.op == OpUnset {
		return "operator is not set"
	}
	ops := e.Operands()
	if len(ops) < 2 {
		return "fewer than two operands"
	}
	for _, o := range ops {
		if o.IsUnset() {
			return "operand is unset"
		}
	}
	return ""
}

// Check reports whether the primary equals value. Unless exactOnly is set,
// child expressions are searched recursively.
func (e *Expression) Check(value any, exactOnly bool) bool {
	if e.primary.Equal(value) {
		return true
	}
	if exactOnly {
		return false
	}
	for _, child := range e.Children() {
		if child.Check(value, false) {
			return true
		}
	}
	return false
}

// Rebind rewrites the tree in place: every node whose primary equals field
// has its remaining operands replaced with [value]; other nodes are searched
// recursively. Every match is rewritten. Rebind is the one mutating
// operation on Expression and returns the receiver for chaining.
func (e *Expression) Rebind(field string, value Operand) *Expression {
	if e.primary.Equal(field) {
		e.rest = []Operand{value}
		return e
	}
	for _, child := range e.Children() {
		child.Rebind(field, value)
	}
	return e
}

// Clone returns a deep copy of the tree rooted at e.
func (e *Expression) Clone() *Expression {
	if e == nil {
		return nil
	}
	rest := make([]Operand, len(e.rest))
	for i, o := range e.rest {
		rest[i] = o.clone()
	}
	return &Expression{op: e.op, primary: e.primary.clone(), rest: rest}
}

// Fields returns the sorted, de-duplicated field names referenced by
// comparison and reference nodes in the tree.
func (e *Expression) Fields() []string {
	seen := map[string]bool{}
	e.walk(func(n *Expression) {
		if n.op.IsLogical() {
			return
		}
		if name, ok := n.FieldName(); ok && name != "" {
			seen[name] = true
		}
	})
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// walk visits e and its descendants depth-first.
func (e *Expression) walk(fn func(*Expression)) {
	fn(e)
	for _, child := range e.Children() {
		child.walk(fn)
	}
}

// Accept dispatches to the visitor method for the node's operator family.
func (e *Expression) Accept(v Visitor) string {
	switch {
	case e.op.IsLogical():
		return v.VisitLogical(e)
	case e.op.IsComparison():
		return v.VisitComparison(e)
	default:
		return v.VisitReference(e)
	}
}

// String renders the node in a compact prefix form, e.g.
// AND(EQ(sector, Technology), GT(eodprice, 50)).
func (e *Expression) String() string {
	var b strings.Builder
	if e.op == OpUnset {
		b.WriteString("FIELD")
	} else {
		b.WriteString(e.op.String())
	}
	b.WriteByte('(')
	for i, o := range e.Operands() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(o.String())
	}
	b.WriteByte(')')
	return b.String()
}
