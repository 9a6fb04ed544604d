package testutil

import (
	"errors"
	"testing"

	"github.com/bawdo/screenq/nodes"
)

// AssertEqual checks that got == want and reports a descriptive error if not.
func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("expected:\n  %v\ngot:\n  %v", want, got)
	}
}

// AssertSQL renders the expression with the visitor and compares it with the expected string.
func AssertSQL(t *testing.T, v nodes.Visitor, e *nodes.Expression, expected string) {
	t.Helper()
	got := e.Accept(v)
	if got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}
}

// AssertNoError fails the test if err is non-nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error but got nil")
	}
}

// AssertErrorIs fails the test unless err matches target.
func AssertErrorIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected error matching %v, got %v", target, err)
	}
}
