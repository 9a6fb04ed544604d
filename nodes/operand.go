package nodes

import (
	"fmt"
	"reflect"
)

// OperandKind tags the variant held by an Operand.
type OperandKind int

const (
	KindUnset OperandKind = iota
	KindLiteral
	KindNode
)

// Operand is a leaf literal (string or number) or a nested expression.
// The zero value is Unset.
type Operand struct {
	kind  OperandKind
	value any
	node  *Expression
}

// Unset is the missing-operand value. Serializing a node that holds it fails.
var Unset = Operand{}

// Lit wraps a string or numeric value. It panics on any other type; use
// NewOperand for values that come from outside the program.
func Lit(v any) Operand {
	if !isLiteralValue(v) {
		panic(fmt.Sprintf("nodes: Lit requires a string or number, got %T", v))
	}
	return Operand{kind: KindLiteral, value: v}
}

// Sub wraps a nested expression. A nil expression yields Unset.
func Sub(e *Expression) Operand {
	if e == nil {
		return Unset
	}
	return Operand{kind: KindNode, node: e}
}

// NewOperand converts v into an Operand. It accepts Operand, *Expression,
// strings, numbers and nil (Unset).
func NewOperand(v any) (Operand, error) {
	switch x := v.(type) {
	case nil:
		return Unset, nil
	case Operand:
		return x, nil
	case *Expression:
		return Sub(x), nil
	}
	if isLiteralValue(v) {
		return Operand{kind: KindLiteral, value: v}, nil
	}
	return Unset, fmt.Errorf("%w: unsupported type %T", ErrInvalidOperand, v)
}

// rawLiteral keeps v as a literal without type checks. Used by permissive parsing.
func rawLiteral(v any) Operand {
	if v == nil {
		return Unset
	}
	return Operand{kind: KindLiteral, value: v}
}

func isLiteralValue(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (o Operand) Kind() OperandKind { return o.kind }
func (o Operand) IsUnset() bool     { return o.kind == KindUnset }
func (o Operand) IsNode() bool      { return o.kind == KindNode }
func (o Operand) IsLiteral() bool   { return o.kind == KindLiteral }

// Value returns the literal value and true when o is a literal.
func (o Operand) Value() (any, bool) {
	if o.kind != KindLiteral {
		return nil, false
	}
	return o.value, true
}

// Node returns the nested expression and true when o is a node.
func (o Operand) Node() (*Expression, bool) {
	if o.kind != KindNode {
		return nil, false
	}
	return o.node, true
}

// Elided reports whether o is the empty-string sentinel that serialization drops.
func (o Operand) Elided() bool {
	if o.kind != KindLiteral {
		return false
	}
	s, ok := o.value.(string)
	return ok && s == ""
}

// Equal reports whether o is a literal equal to v. Nodes never match.
func (o Operand) Equal(v any) bool {
	if o.kind != KindLiteral || v == nil {
		return false
	}
	if other, ok := v.(Operand); ok {
		lit, isLit := other.Value()
		return isLit && literalEqual(o.value, lit)
	}
	return literalEqual(o.value, v)
}

// literalEqual compares literals, treating numbers of different Go types as
// equal when they hold the same value. Integers compare exactly; float64 is
// used only when one side is a float.
func literalEqual(a, b any) bool {
	if reflect.TypeOf(a).Comparable() && reflect.TypeOf(b).Comparable() && a == b {
		return true
	}
	ak, bk := numericKind(a), numericKind(b)
	switch {
	case ak == notNumeric || bk == notNumeric:
		return false
	case ak == floatKind || bk == floatKind:
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return af == bf
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	switch {
	case ak == intKind && bk == intKind:
		return ra.Int() == rb.Int()
	case ak == uintKind && bk == uintKind:
		return ra.Uint() == rb.Uint()
	case ak == uintKind:
		ra, rb = rb, ra
	}
	return ra.Int() >= 0 && uint64(ra.Int()) == rb.Uint()
}

type numberKind int

const (
	notNumeric numberKind = iota
	intKind
	uintKind
	floatKind
)

func numericKind(v any) numberKind {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intKind
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintKind
	case reflect.Float32, reflect.Float64:
		return floatKind
	}
	return notNumeric
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch numericKind(v) {
	case intKind:
		return float64(rv.Int()), true
	case uintKind:
		return float64(rv.Uint()), true
	case floatKind:
		return rv.Float(), true
	}
	return 0, false
}

// clone deep-copies nested nodes; literals are immutable values.
func (o Operand) clone() Operand {
	if o.kind == KindNode {
		return Sub(o.node.Clone())
	}
	return o
}

// String renders the operand for diagnostics.
func (o Operand) String() string {
	switch o.kind {
	case KindLiteral:
		return fmt.Sprintf("%v", o.value)
	case KindNode:
		return o.node.String()
	default:
		return "<unset>"
	}
}
