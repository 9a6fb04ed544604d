package nodes

import (
	"errors"
	"testing"
)

func TestETFQueryRejectsUnknownField(t *testing.T) {
	t.Parallel()
	e, err := NewETFQuery("eq", "invalid_field", "value")
	if !errors.Is(err, ErrInvalidField) {
		t.Fatalf("expected ErrInvalidField, got %v", err)
	}
	if e != nil {
		t.Error("expected no node on failure")
	}
}

func TestETFQueryNumericField(t *testing.T) {
	t.Parallel()
	e, err := NewETFQuery("gt", "fundTotalAssets", 1000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Operator() != OpGt {
		t.Errorf("expected GT, got %v", e.Operator())
	}
	if !e.Check("fundTotalAssets", true) {
		t.Error("expected fundTotalAssets primary")
	}
}

func TestTypedQueryFieldFamilyMismatch(t *testing.T) {
	t.Parallel()
	// sector is categorical: valid with EQ only.
	if _, err := NewEquityQuery("gt", "sector", 5); !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField for GT on sector, got %v", err)
	}
	// eodprice is numeric: not valid with EQ.
	if _, err := NewEquityQuery("eq", "eodprice", 5); !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField for EQ on eodprice, got %v", err)
	}
}

func TestTypedQueryBetween(t *testing.T) {
	t.Parallel()
	e, err := NewEquityQuery("btwn", "beta", 0.5, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Operands()) != 3 {
		t.Errorf("expected 3 operands, got %d", len(e.Operands()))
	}
	if _, err := NewEquityQuery("btwn", "beta", 0.5); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("expected ErrInvalidArguments for missing bound, got %v", err)
	}
}

func TestTypedQueryLogical(t *testing.T) {
	t.Parallel()
	a, err := NewFundQuery("eq", "categoryname", "Large Growth")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := NewFundQuery("lt", "initialinvestment", 3000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	and, err := NewFundQuery("and", a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(and.Children()) != 2 {
		t.Errorf("expected two children, got %d", len(and.Children()))
	}

	if _, err := NewFundQuery("and", a); !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("expected ErrInvalidOperand for single child, got %v", err)
	}
	if _, err := NewFundQuery("or", a, "literal"); !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("expected ErrInvalidOperand for literal child, got %v", err)
	}
}

func TestTypedQueryRegionCodes(t *testing.T) {
	t.Parallel()
	if _, err := NewEquityQuery("eq", "region", "us"); err != nil {
		t.Errorf("unexpected error for us: %v", err)
	}
	if _, err := NewEquityQuery("eq", "region", "xx"); !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("expected ErrInvalidOperand for xx, got %v", err)
	}
}

func TestTypedQueryRequiresOperator(t *testing.T) {
	t.Parallel()
	if _, err := NewEquityQuery("", "sector", "Energy"); !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("expected ErrInvalidOperator, got %v", err)
	}
	if _, err := NewEquityQuery("like", "sector", "Energy"); !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("expected ErrInvalidOperator, got %v", err)
	}
}

func TestTypedQueryFieldMustBeString(t *testing.T) {
	t.Parallel()
	if _, err := NewEquityQuery("gt", 12, 5); !errors.Is(err, ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestParseUniverse(t *testing.T) {
	t.Parallel()
	cases := map[string]Universe{"equity": Equity, "ETF": ETF, "mutualfund": Fund, " Fund ": Fund}
	for in, want := range cases {
		got, err := ParseUniverse(in)
		if err != nil {
			t.Errorf("ParseUniverse(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseUniverse(%q): expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseUniverse("bond"); err == nil {
		t.Error("expected error for unknown universe")
	}
}

func TestUniverseAllows(t *testing.T) {
	t.Parallel()
	if !ETF.Allows(OpEq, "categoryname") {
		t.Error("expected ETF to allow EQ on categoryname")
	}
	if ETF.Allows(OpEq, "sector") {
		t.Error("expected ETF to reject sector")
	}
	if Equity.Allows(OpAnd, "sector") {
		t.Error("expected logical operators to allow no field")
	}
	if Fund.QuoteType() != "MUTUALFUND" {
		t.Errorf("expected MUTUALFUND, got %s", Fund.QuoteType())
	}
}

func TestUnknownUniverse(t *testing.T) {
	t.Parallel()
	u := Universe(9)
	if _, err := NewTypedQuery(u, "gt", "eodprice", 1); !errors.Is(err, ErrInvalidArguments) {
		t.Errorf("expected ErrInvalidArguments, got %v", err)
	}
	if got := u.String(); got != "Universe(9)" {
		t.Errorf("expected:\n  Universe(9)\ngot:\n  %s", got)
	}
	if u.QuoteType() != "" || u.Allows(OpGt, "eodprice") || u.NumericFields() != nil {
		t.Error("expected an unknown universe to allow nothing")
	}
	if Universe(-1).Valid() {
		t.Error("expected negative universe to be invalid")
	}
}
