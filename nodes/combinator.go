package nodes

import (
	"fmt"
	"slices"
	"strings"
)

// Combinator is a named, pre-bound factory for expression nodes. It carries
// an operator, a bound field, or both. Combinators are immutable values:
// calling one returns a brand-new node and never changes the combinator.
type Combinator struct {
	name  string
	op    Operator
	field string // "" when no field is bound
}

// Generic operator combinators.
var (
	And   = Combinator{name: "and", op: OpAnd}
	Or    = Combinator{name: "or", op: OpOr}
	Eq    = Combinator{name: "eq", op: OpEq}
	Btwn  = Combinator{name: "btwn", op: OpBtwn}
	Gt    = Combinator{name: "gt", op: OpGt}
	Lt    = Combinator{name: "lt", op: OpLt}
	Gte   = Combinator{name: "gte", op: OpGte}
	Lte   = Combinator{name: "lte", op: OpLte}
	Field = Combinator{name: "field"}
)

// Categorical field shortcuts, bound to EQ.
var (
	Market    = Combinator{name: "market", op: OpEq, field: "exchange"}
	Region    = Combinator{name: "region", op: OpEq, field: "region"}
	Sector    = Combinator{name: "sector", op: OpEq, field: "sector"}
	Industry  = Combinator{name: "industry", op: OpEq, field: "industry"}
	PeerGroup = Combinator{name: "peergroup", op: OpEq, field: "peer_group"}
)

// Numeric field shortcuts. They carry no operator; supply one with
// WithOperator or Compare.
var (
	EpsGrowth     = Combinator{name: "epsgrowth", field: "epsgrowth.lasttwelvemonths"}
	Price         = Combinator{name: "price", field: "eodprice"}
	MarketCap     = Combinator{name: "marketcap", field: "intradaymarketcap"}
	PeRatio       = Combinator{name: "peratio", field: "peratio.lasttwelvemonths"}
	Volume        = Combinator{name: "volume", field: "dayvolume"}
	PercentChange = Combinator{name: "percentchange", field: "percentchange"}
)

var combinators = func() map[string]Combinator {
	m := make(map[string]Combinator)
	for _, c := range []Combinator{
		And, Or, Eq, Btwn, Gt, Lt, Gte, Lte, Field,
		Market, Region, Sector, Industry, PeerGroup,
		EpsGrowth, Price, MarketCap, PeRatio, Volume, PercentChange,
	} {
		m[c.name] = c
	}
	return m
}()

// Lookup finds a combinator by name, case-insensitively.
func Lookup(name string) (Combinator, bool) {
	c, ok := combinators[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Build looks up a combinator by name and calls it with args.
func Build(name string, args ...Arg) (*Expression, error) {
	c, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown combinator %q", ErrInvalidArguments, name)
	}
	return c.Call(args...)
}

// Names returns the registered combinator names, sorted.
func Names() []string {
	out := make([]string, 0, len(combinators))
	for name := range combinators {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Must panics if err is non-nil. It is intended for trees built from
// constants, e.g. package-level filters.
func Must(e *Expression, err error) *Expression {
	if err != nil {
		panic(err)
	}
	return e
}

func (c Combinator) Name() string       { return c.name }
func (c Combinator) Operator() Operator { return c.op }
func (c Combinator) BoundField() string { return c.field }

func (c Combinator) boundPrimary() Operand {
	if c.field == "" {
		return Unset
	}
	return Lit(c.field)
}

// Arg supplies one argument to Combinator.Call.
type Arg func(*callArgs)

type callArgs struct {
	operator    string
	hasOperator bool
	primary     any
	hasPrimary  bool
	operands    []any
	hasOperands bool
}

// WithOperator overrides the combinator's operator.
func WithOperator(op string) Arg {
	return func(a *callArgs) {
		a.operator = op
		a.hasOperator = true
	}
}

// WithPrimary supplies the primary operand, usually a field name.
func WithPrimary(v any) Arg {
	return func(a *callArgs) {
		a.primary = v
		a.hasPrimary = true
	}
}

// WithOperands supplies the operands. A single value becomes a one-element list.
func WithOperands(vs ...any) Arg {
	return func(a *callArgs) {
		a.operands = vs
		a.hasOperands = true
	}
}

// Call builds a new node. The argument combination selects the rule:
//
//  1. operator + operands: given operator, the combinator's bound field as
//     primary, given operands.
//  2. operands: the combinator's operator and bound field, given operands
//     (Market.Of("NMS")).
//  3. primary + operands: the combinator's operator, given primary and
//     operands (Eq.Call(WithPrimary("sector"), WithOperands("Technology"))).
//  4. primary on an EQ combinator: EQ with the value still pending.
//  5. primary on an operator-less combinator: a bare field reference.
//
// Anything else fails with ErrInvalidArguments.
func (c Combinator) Call(args ...Arg) (*Expression, error) {
	var a callArgs
	for _, fn := range args {
		fn(&a)
	}

	switch {
	case a.hasOperator && a.hasOperands && !a.hasPrimary:
		op, err := ParseOperator(a.operator)
		if err != nil {
			return nil, err
		}
		operands, err := toOperands(a.operands)
		if err != nil {
			return nil, err
		}
		return newExpression(op, c.boundPrimary(), operands), nil

	case a.hasOperands && !a.hasOperator && !a.hasPrimary:
		operands, err := toOperands(a.operands)
		if err != nil {
			return nil, err
		}
		return newExpression(c.op, c.boundPrimary(), operands), nil

	case a.hasPrimary && a.hasOperands && !a.hasOperator:
		primary, err := NewOperand(a.primary)
		if err != nil {
			return nil, err
		}
		operands, err := toOperands(a.operands)
		if err != nil {
			return nil, err
		}
		return newExpression(c.op, primary, operands), nil

	case a.hasPrimary && !a.hasOperands && !a.hasOperator && (c.op == OpEq || c.op == OpUnset):
		primary, err := NewOperand(a.primary)
		if err != nil {
			return nil, err
		}
		return &Expression{op: c.op, primary: primary, rest: []Operand{Unset}}, nil
	}

	return nil, fmt.Errorf("%w: %s called with primary=%t operands=%t operator=%t",
		ErrInvalidArguments, c.name, a.hasPrimary, a.hasOperands, a.hasOperator)
}

// Of binds operands to the combinator (rule 2).
func (c Combinator) Of(vs ...any) (*Expression, error) {
	return c.Call(WithOperands(vs...))
}

// Ref selects a field without a value (rules 4 and 5).
func (c Combinator) Ref(field string) (*Expression, error) {
	return c.Call(WithPrimary(field))
}

// Compare applies op to the combinator's bound field (rule 1), e.g.
// Price.Compare("gt", 50).
func (c Combinator) Compare(op string, vs ...any) (*Expression, error) {
	return c.Call(WithOperator(op), WithOperands(vs...))
}

func toOperands(vs []any) ([]Operand, error) {
	out := make([]Operand, len(vs))
	for i, v := range vs {
		o, err := NewOperand(v)
		if err != nil {
			return nil, fmt.Errorf("operands[%d]: %w", i, err)
		}
		out[i] = o
	}
	return out, nil
}
