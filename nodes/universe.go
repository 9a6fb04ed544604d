package nodes

import (
	"fmt"
	"slices"
	"strings"
)

// Universe identifies a screening universe. Each universe has its own
// field vocabulary.
type Universe int

const (
	Equity Universe = iota
	ETF
	Fund
)

var universeNames = [...]string{
	Equity: "equity",
	ETF:    "etf",
	Fund:   "fund",
}

var universeQuoteTypes = [...]string{
	Equity: "EQUITY",
	ETF:    "ETF",
	Fund:   "MUTUALFUND",
}

func (u Universe) String() string {
	if !u.Valid() {
		return fmt.Sprintf("Universe(%d)", int(u))
	}
	return universeNames[u]
}

// Valid reports whether u is one of the defined universes.
func (u Universe) Valid() bool { return u >= 0 && int(u) < len(universeNames) }

// QuoteType returns the screener body quote type for the universe, or ""
// for an unknown universe.
func (u Universe) QuoteType() string {
	if !u.Valid() {
		return ""
	}
	return universeQuoteTypes[u]
}

// ParseUniverse matches a universe name or quote type case-insensitively.
func ParseUniverse(s string) (Universe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := range universeNames {
		if universeNames[i] == s || strings.ToLower(universeQuoteTypes[i]) == s {
			return Universe(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown universe %q", ErrInvalidArguments, s)
}

// fieldTable is the allow-list for one universe. Categorical fields are
// valid with EQ; numeric fields with GT/LT/GTE/LTE/BTWN.
type fieldTable struct {
	categorical []string
	numeric     []string
}

var sharedCategorical = []string{"exchange", "region"}

var fieldTables = [...]fieldTable{
	Equity: {
		categorical: append(slices.Clone(sharedCategorical), "sector", "industry", "peer_group"),
		numeric: []string{
			"altmanzscoreusingtheaveragestockinformationforaperiod.lasttwelvemonths",
			"avgdailyvol3m",
			"beta",
			"bookvalueshare.lasttwelvemonths",
			"consecutive_years_of_dividend_growth_count",
			"currentratio.lasttwelvemonths",
			"dayvolume",
			"days_to_cover_short.value",
			"ebitda.lasttwelvemonths",
			"ebitdamargin.lasttwelvemonths",
			"eodprice",
			"eodvolume",
			"epsgrowth.lasttwelvemonths",
			"fiftytwowkpercentchange",
			"forward_dividend_yield",
			"grossprofitmargin.lasttwelvemonths",
			"intradaymarketcap",
			"intradayprice",
			"intradaypricechange",
			"lastclosemarketcap.lasttwelvemonths",
			"netincomemargin.lasttwelvemonths",
			"pegratio_5y",
			"peratio.lasttwelvemonths",
			"percentchange",
			"pricebookratio.quarterly",
			"quarterlyrevenuegrowth.quarterly",
			"returnonassets.lasttwelvemonths",
			"returnonequity.lasttwelvemonths",
			"short_percentage_of_float.value",
			"short_percentage_of_shares_outstanding.value",
			"totaldebtequity.lasttwelvemonths",
			"totalrevenues.lasttwelvemonths",
		},
	},
	ETF: {
		categorical: append(slices.Clone(sharedCategorical), "categoryname", "fundfamilyname"),
		numeric: []string{
			"annualreturnnavy1",
			"annualreturnnavy3",
			"annualreturnnavy5",
			"avgdailyvol3m",
			"dayvolume",
			"eodprice",
			"fundnetassets",
			"fundTotalAssets",
			"intradayprice",
			"netexpenseratio",
			"percentchange",
			"trailing_3m_return",
			"trailing_ytd_return",
		},
	},
	Fund: {
		categorical: append(slices.Clone(sharedCategorical), "categoryname", "fundfamilyname", "performanceratingoverall", "riskratingoverall"),
		numeric: []string{
			"annualreturnnavy1",
			"annualreturnnavy1categoryrank",
			"eodprice",
			"fundnetassets",
			"initialinvestment",
			"intradayprice",
			"percentchange",
			"trailing_3m_return",
			"trailing_ytd_return",
		},
	},
}

// regionValues lists the region codes accepted for the region field.
var regionValues = []string{
	"ar", "at", "au", "be", "br", "ca", "ch", "cl", "cn", "cz", "de", "dk",
	"ee", "eg", "es", "fi", "fr", "gb", "gr", "hk", "hu", "id", "ie", "il",
	"in", "is", "it", "jp", "kr", "kw", "lk", "lt", "lv", "mx", "my", "nl",
	"no", "nz", "pe", "ph", "pk", "pl", "pt", "qa", "ro", "ru", "sa", "se",
	"sg", "sr", "th", "tr", "tw", "us", "ve", "vn", "za",
}

// CategoricalFields returns the fields the universe accepts with EQ.
func (u Universe) CategoricalFields() []string {
	if !u.Valid() {
		return nil
	}
	return slices.Clone(fieldTables[u].categorical)
}

// NumericFields returns the fields the universe accepts with range operators.
func (u Universe) NumericFields() []string {
	if !u.Valid() {
		return nil
	}
	return slices.Clone(fieldTables[u].numeric)
}

// Allows reports whether field may be used with op in the universe.
func (u Universe) Allows(op Operator, field string) bool {
	if !u.Valid() {
		return false
	}
	t := fieldTables[u]
	switch {
	case op == OpEq:
		return slices.Contains(t.categorical, field)
	case op.IsComparison():
		return slices.Contains(t.numeric, field)
	}
	return false
}

// RegionCodes returns the accepted region codes.
func RegionCodes() []string {
	return slices.Clone(regionValues)
}

// NewTypedQuery builds a node checked against the universe's allow-lists.
//
// AND/OR take two or more child expressions. EQ/GT/LT/GTE/LTE take a field
// and one value; BTWN takes a field and two bounds.
func NewTypedQuery(u Universe, operator string, operands ...any) (*Expression, error) {
	if !u.Valid() {
		return nil, fmt.Errorf("%w: unknown universe %s", ErrInvalidArguments, u)
	}
	op, err := ParseOperator(operator)
	if err != nil {
		return nil, err
	}
	if op == OpUnset {
		return nil, fmt.Errorf("%w: %s query requires an operator", ErrInvalidOperator, u)
	}
	ops, err := toOperands(operands)
	if err != nil {
		return nil, err
	}

	if op.IsLogical() {
		if len(ops) < 2 {
			return nil, fmt.Errorf("%w: %s requires at least two operands, got %d", ErrInvalidOperand, op, len(ops))
		}
		for i, o := range ops {
			if !o.IsNode() {
				return nil, fmt.Errorf("%w: %s operands[%d] must be a query, got %s", ErrInvalidOperand, op, i, o)
			}
		}
		return newExpression(op, Unset, ops), nil
	}

	want := 2
	if op == OpBtwn {
		want = 3
	}
	if len(ops) != want {
		return nil, fmt.Errorf("%w: %s requires %d operands, got %d", ErrInvalidArguments, op, want, len(ops))
	}
	field, ok := ops[0].Value()
	name, isString := field.(string)
	if !ok || !isString {
		return nil, fmt.Errorf("%w: %s operands[0] must be a field name, got %s", ErrInvalidField, op, ops[0])
	}
	if !u.Allows(op, name) {
		return nil, fmt.Errorf("%w: %q is not valid for %s in the %s universe", ErrInvalidField, name, op, u)
	}
	for i, o := range ops[1:] {
		if !o.IsLiteral() {
			return nil, fmt.Errorf("%w: %s operands[%d] must be a literal, got %s", ErrInvalidOperand, op, i+1, o)
		}
	}
	if name == "region" {
		v, _ := ops[1].Value()
		code, _ := v.(string)
		if !slices.Contains(regionValues, strings.ToLower(code)) {
			return nil, fmt.Errorf("%w: unknown region %v", ErrInvalidOperand, v)
		}
	}
	return newExpression(op, Unset, ops), nil
}

// NewEquityQuery is NewTypedQuery for the equity universe.
func NewEquityQuery(operator string, operands ...any) (*Expression, error) {
	return NewTypedQuery(Equity, operator, operands...)
}

// NewETFQuery is NewTypedQuery for the ETF universe.
func NewETFQuery(operator string, operands ...any) (*Expression, error) {
	return NewTypedQuery(ETF, operator, operands...)
}

// NewFundQuery is NewTypedQuery for the mutual fund universe.
func NewFundQuery(operator string, operands ...any) (*Expression, error) {
	return NewTypedQuery(Fund, operator, operands...)
}
