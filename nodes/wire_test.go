package nodes

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestSerializeNestedTree(t *testing.T) {
	t.Parallel()
	got, err := sampleTree(t).Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"operator": "AND",
		"operands": []any{
			map[string]any{"operator": "EQ", "operands": []any{"sector", "Technology"}},
			map[string]any{"operator": "GT", "operands": []any{"eodprice", 50}},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected:\n  %v\ngot:\n  %v", want, got)
	}
}

func TestSerializeUnsetOperatorFails(t *testing.T) {
	t.Parallel()
	ref := Must(Field.Ref("beta"))
	if _, err := ref.Serialize(); !errors.Is(err, ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode, got %v", err)
	}
}

func TestSerializeUnsetOperandFails(t *testing.T) {
	t.Parallel()
	pending := Must(Sector.Ref("sector"))
	if _, err := pending.Serialize(); !errors.Is(err, ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode, got %v", err)
	}
}

func TestSerializeTooFewOperandsFails(t *testing.T) {
	t.Parallel()
	e, err := NewExpression("gt", Lit("eodprice"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Serialize(); !errors.Is(err, ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode, got %v", err)
	}
}

func TestSerializeIncompleteChildFails(t *testing.T) {
	t.Parallel()
	tree := Must(And.Of(Must(Eq.Of("sector", "Energy")), Must(Eq.Ref("industry"))))
	if _, err := tree.Serialize(); !errors.Is(err, ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode from child, got %v", err)
	}
}

func TestSerializeElidesEmptyString(t *testing.T) {
	t.Parallel()
	e := Must(Eq.Of("sector", ""))
	got, err := e.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"operator": "EQ", "operands": []any{"sector"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	trees := map[string]*Expression{
		"nested":  sampleTree(t),
		"between": Must(Btwn.Of("beta", 0.5, 1.5)),
		"or":      Must(Or.Of(Must(Market.Of("NMS")), Must(Market.Of("NYQ")))),
		"bound":   Must(Price.Compare("lte", 20)),
	}
	for name, tree := range trees {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			first, err := tree.Serialize()
			if err != nil {
				t.Fatalf("serialize: %v", err)
			}
			parsed, err := Parse(first)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			second, err := parsed.Serialize()
			if err != nil {
				t.Fatalf("reserialize: %v", err)
			}
			if !reflect.DeepEqual(first, second) {
				t.Errorf("expected:\n  %v\ngot:\n  %v", first, second)
			}
		})
	}
}

func TestParseNormalizesOperatorCase(t *testing.T) {
	t.Parallel()
	e, err := Parse(map[string]any{"operator": "gt", "operands": []any{"eodprice", 5}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, _ := e.Serialize()
	if m["operator"] != "GT" {
		t.Errorf("expected GT, got %v", m["operator"])
	}
}

func TestParseRejectsExtraKeys(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"operator": "EQ", "operands": []any{"a", "b"}, "extra": 1})
	if !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestParseRejectsMissingKey(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"operator": "EQ"})
	if !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestParseRejectsUnknownOperator(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"operator": "NE", "operands": []any{"a", "b"}})
	if !errors.Is(err, ErrInvalidOperator) {
		t.Errorf("expected ErrInvalidOperator, got %v", err)
	}
}

func TestParseStrictRejectsMalformedNested(t *testing.T) {
	t.Parallel()
	m := map[string]any{
		"operator": "AND",
		"operands": []any{
			map[string]any{"operator": "EQ", "operands": []any{"sector", "Energy"}},
			map[string]any{"op": "GT"},
		},
	}
	if _, err := Parse(m); !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestParsePermissiveKeepsMalformedNestedAsLiteral(t *testing.T) {
	t.Parallel()
	m := map[string]any{
		"operator": "AND",
		"operands": []any{
			map[string]any{"operator": "EQ", "operands": []any{"sector", "Energy"}},
			map[string]any{"op": "GT"},
		},
	}
	e, err := ParseWith(m, ParseOptions{Permissive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Children()) != 1 {
		t.Errorf("expected one child node, got %d", len(e.Children()))
	}
	if !e.Rest()[0].IsLiteral() {
		t.Errorf("expected malformed map kept as literal, got %v", e.Rest()[0])
	}
}

func TestParseStrictRejectsBool(t *testing.T) {
	t.Parallel()
	_, err := Parse(map[string]any{"operator": "EQ", "operands": []any{"flag", true}})
	if !errors.Is(err, ErrInvalidOperand) {
		t.Errorf("expected ErrInvalidOperand, got %v", err)
	}
}

func TestParsePermissiveNullBecomesUnset(t *testing.T) {
	t.Parallel()
	e, err := ParseWith(map[string]any{"operator": "EQ", "operands": []any{"sector", nil}}, ParseOptions{Permissive: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Rest()[0].IsUnset() {
		t.Errorf("expected Unset, got %v", e.Rest()[0])
	}
	if _, err := e.Serialize(); !errors.Is(err, ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode, got %v", err)
	}
}

func TestParseDuplicatePrimary(t *testing.T) {
	t.Parallel()
	m := map[string]any{"operator": "EQ", "operands": []any{"sector", "Technology"}}

	plain, err := Parse(m)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := len(plain.Operands()); got != 2 {
		t.Errorf("expected 2 operands by default, got %d", got)
	}

	legacy, err := ParseWith(m, ParseOptions{DuplicatePrimary: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ops := legacy.Operands()
	if len(ops) != 3 {
		t.Fatalf("expected 3 operands in legacy mode, got %d", len(ops))
	}
	if !ops[0].Equal("sector") || !ops[1].Equal("sector") || !ops[2].Equal("Technology") {
		t.Errorf("expected [sector sector Technology], got %v", ops)
	}
	got, _ := legacy.Serialize()
	want := map[string]any{"operator": "EQ", "operands": []any{"sector", "sector", "Technology"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseEmptyOperands(t *testing.T) {
	t.Parallel()
	e, err := Parse(map[string]any{"operator": "AND", "operands": []any{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := e.Serialize(); !errors.Is(err, ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode, got %v", err)
	}
}

func TestParseJSONKeepsIntegers(t *testing.T) {
	t.Parallel()
	e, err := ParseJSON([]byte(`{"operator":"gt","operands":["intradaymarketcap",2000000000]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, _ := e.Rest()[0].Value()
	if v != int64(2000000000) {
		t.Errorf("expected int64 2000000000, got %v (%T)", v, v)
	}
}

func TestParseJSONInvalid(t *testing.T) {
	t.Parallel()
	if _, err := ParseJSON([]byte(`{"operator":`)); !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
	if _, err := ParseJSON([]byte(`["EQ"]`)); !errors.Is(err, ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery for non-object, got %v", err)
	}
}

func TestJSONMarshalling(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(sampleTree(t))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"operands":[{"operands":["sector","Technology"],"operator":"EQ"},{"operands":["eodprice",50],"operator":"GT"}],"operator":"AND"}`
	if string(data) != want {
		t.Errorf("expected:\n  %s\ngot:\n  %s", want, data)
	}

	var back Expression
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.String() != sampleTree(t).String() {
		t.Errorf("expected %s, got %s", sampleTree(t), back.String())
	}
}
