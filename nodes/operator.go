package nodes

import (
	"fmt"
	"strings"
)

// Operator identifies the operation a node applies to its operands.
type Operator int

const (
	// OpUnset marks a field-reference node not yet bound to a comparison.
	OpUnset Operator = iota
	OpAnd
	OpOr
	OpEq
	OpBtwn
	OpGt
	OpLt
	OpGte
	OpLte
)

// Wire tokens for each operator.
var operatorNames = [...]string{
	OpUnset: "",
	OpAnd:   "AND",
	OpOr:    "OR",
	OpEq:    "EQ",
	OpBtwn:  "BTWN",
	OpGt:    "GT",
	OpLt:    "LT",
	OpGte:   "GTE",
	OpLte:   "LTE",
}

// String returns the canonical upper-case token, or "" for OpUnset.
func (o Operator) String() string {
	if o < 0 || int(o) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(o))
	}
	return operatorNames[o]
}

// IsLogical reports whether o combines child expressions (AND, OR).
func (o Operator) IsLogical() bool {
	return o == OpAnd || o == OpOr
}

// IsComparison reports whether o compares a field against values.
func (o Operator) IsComparison() bool {
	return o >= OpEq && o <= OpLte
}

// ParseOperator matches s case-insensitively against the canonical tokens.
// The empty string yields OpUnset.
func ParseOperator(s string) (Operator, error) {
	if s == "" {
		return OpUnset, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i := OpAnd; int(i) < len(operatorNames); i++ {
		if operatorNames[i] == upper {
			return i, nil
		}
	}
	return OpUnset, fmt.Errorf("%w: %q", ErrInvalidOperator, s)
}

// Operators returns every canonical operator in wire order.
func Operators() []Operator {
	return []Operator{OpAnd, OpOr, OpEq, OpBtwn, OpGt, OpLt, OpGte, OpLte}
}
