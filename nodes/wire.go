package nodes

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/bawdo/screenq/internal/jsonval"
)

// Wire format keys.
const (
	KeyOperator = "operator"
	KeyOperands = "operands"
)

// Serialize converts the tree into the nested wire map:
//
//	{"operator": "AND", "operands": [{"operator": "EQ", "operands": ["sector", "Technology"]}, ...]}
//
// Empty-string literals are dropped from the operand list. A node with an
// unset operator, an Unset operand or fewer than two operands fails with
// ErrIncompleteNode.
func (e *Expression) Serialize() (map[string]any, error) {
	if reason := e.incompleteReason(); reason != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrIncompleteNode, e, reason)
	}
	ops := e.Operands()
	operands := make([]any, 0, len(ops))
	for _, o := range ops {
		switch o.Kind() {
		case KindNode:
			child, err := o.node.Serialize()
			if err != nil {
				return nil, err
			}
			operands = append(operands, child)
		case KindLiteral:
			if o.Elided() {
				continue
			}
			operands = append(operands, o.value)
		}
	}
	return map[string]any{
		KeyOperator: e.op.String(),
		KeyOperands: operands,
	}, nil
}

// MarshalJSON encodes the serialized wire map.
func (e *Expression) MarshalJSON() ([]byte, error) {
	m, err := e.Serialize()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalJSON replaces e with the tree decoded from data (strict mode).
func (e *Expression) UnmarshalJSON(data []byte) error {
	parsed, err := ParseJSON(data)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// ParseOptions controls how wire maps are parsed.
type ParseOptions struct {
	// Permissive keeps malformed nested maps and non string/number scalars
	// as literals instead of failing. JSON null becomes Unset.
	Permissive bool

	// DuplicatePrimary reproduces the legacy wire consumer: the first operand
	// becomes the primary and the full operand list (first element included)
	// becomes the rest, so the first operand appears twice in Operands().
	DuplicatePrimary bool
}

// Parse builds a tree from a wire map in strict mode.
func Parse(m map[string]any) (*Expression, error) {
	return ParseWith(m, ParseOptions{})
}

// ParseJSON decodes a JSON document and parses it in strict mode.
func ParseJSON(data []byte) (*Expression, error) {
	return ParseJSONWith(data, ParseOptions{})
}

// ParseJSONWith decodes a JSON document and parses it with opts.
func ParseJSONWith(data []byte, opts ParseOptions) (*Expression, error) {
	m, err := jsonval.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuery, err)
	}
	return ParseWith(m, opts)
}

// ParseWith builds a tree from a wire map. The map's key set must be exactly
// {operator, operands} or the call fails with ErrMalformedQuery.
func ParseWith(m map[string]any, opts ParseOptions) (*Expression, error) {
	if !wellFormed(m) {
		return nil, fmt.Errorf("%w: keys must be exactly {%s, %s}, got %v", ErrMalformedQuery, KeyOperator, KeyOperands, keysOf(m))
	}
	token, ok := m[KeyOperator].(string)
	if !ok {
		return nil, fmt.Errorf("%w: operator must be a string, got %T", ErrMalformedQuery, m[KeyOperator])
	}
	op, err := ParseOperator(token)
	if err != nil {
		return nil, err
	}
	raw, ok := m[KeyOperands].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: operands must be a list, got %T", ErrMalformedQuery, m[KeyOperands])
	}

	parsed := make([]Operand, len(raw))
	for i, v := range raw {
		o, err := parseOperand(v, opts)
		if err != nil {
			return nil, fmt.Errorf("operands[%d]: %w", i, err)
		}
		parsed[i] = o
	}

	e := &Expression{op: op}
	if len(parsed) == 0 {
		return e, nil
	}
	e.primary = parsed[0]
	if opts.DuplicatePrimary {
		// The legacy reparse walks the whole list again, so the element
		// already taken as primary is parsed a second time into rest.
		e.rest = make([]Operand, len(raw))
		for i, v := range raw {
			o, err := parseOperand(v, opts)
			if err != nil {
				return nil, fmt.Errorf("operands[%d]: %w", i, err)
			}
			e.rest[i] = o
		}
	} else {
		e.rest = parsed[1:]
	}
	return e, nil
}

func parseOperand(v any, opts ParseOptions) (Operand, error) {
	switch x := v.(type) {
	case map[string]any:
		if wellFormed(x) {
			child, err := ParseWith(x, opts)
			if err != nil {
				return Unset, err
			}
			return Sub(child), nil
		}
		if opts.Permissive {
			return rawLiteral(x), nil
		}
		return Unset, fmt.Errorf("%w: nested keys must be exactly {%s, %s}, got %v", ErrMalformedQuery, KeyOperator, KeyOperands, keysOf(x))
	}
	if isLiteralValue(v) {
		return Operand{kind: KindLiteral, value: v}, nil
	}
	if opts.Permissive {
		return rawLiteral(v), nil
	}
	return Unset, fmt.Errorf("%w: unsupported literal %v (%T)", ErrInvalidOperand, v, v)
}

func wellFormed(m map[string]any) bool {
	if len(m) != 2 {
		return false
	}
	_, hasOp := m[KeyOperator]
	_, hasOperands := m[KeyOperands]
	return hasOp && hasOperands
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
