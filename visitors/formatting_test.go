package visitors

import (
	"reflect"
	"testing"

	"github.com/bawdo/screenq/internal/testutil"
	"github.com/bawdo/screenq/nodes"
)

func TestFormattingNestedGroups(t *testing.T) {
	t.Parallel()
	f := NewFormattingVisitor(NewPostgresVisitor(WithoutParams()))
	want := `"sector" = 'Tech'
AND (
  "eodprice" > 5
  OR "beta" < 1
)`
	testutil.AssertSQL(t, f, nestedTree(), want)
}

func TestFormattingDeeplyNested(t *testing.T) {
	t.Parallel()
	tree := nodes.Must(nodes.Or.Of(
		nodes.Must(nodes.And.Of(
			nodes.Must(nodes.Region.Of("us")),
			nodes.Must(nodes.Or.Of(
				nodes.Must(nodes.Gt.Of("beta", 1)),
				nodes.Must(nodes.Lt.Of("beta", 0)),
			)),
		)),
		nodes.Must(nodes.Region.Of("gb")),
	))
	f := NewFormattingVisitor(NewSQLiteVisitor(WithoutParams()))
	want := `(
  "region" = 'us'
  AND (
    "beta" > 1
    OR "beta" < 0
  )
)
OR "region" = 'gb'`
	testutil.AssertSQL(t, f, tree, want)
}

func TestFormattingSingleComparison(t *testing.T) {
	t.Parallel()
	f := NewFormattingVisitor(NewPostgresVisitor(WithoutParams()))
	testutil.AssertSQL(t, f, nodes.Must(nodes.Gt.Of("beta", 1)), `"beta" > 1`)
}

func TestFormattingDelegatesParams(t *testing.T) {
	t.Parallel()
	f := NewFormattingVisitor(NewPostgresVisitor())
	sql, params := ToSQL(f, nestedTree())
	want := `"sector" = $1
AND (
  "eodprice" > $2
  OR "beta" < $3
)`
	testutil.AssertEqual(t, sql, want)
	if !reflect.DeepEqual(params, []any{"Tech", 5, 1}) {
		t.Errorf("unexpected params %v", params)
	}
}

func TestFormattingWithoutParameterizer(t *testing.T) {
	t.Parallel()
	f := NewFormattingVisitor(testutil.StubVisitor{})
	if f.Params() != nil {
		t.Error("expected nil params from a non-parameterizing inner visitor")
	}
	f.Reset()
}

func TestFormattingNilInnerPanics(t *testing.T) {
	t.Parallel()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil inner visitor")
		}
	}()
	NewFormattingVisitor(nil)
}
