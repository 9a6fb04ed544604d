// Package testutil provides shared test helpers for the screenq project.
package testutil

import (
	"strings"

	"github.com/bawdo/screenq/nodes"
)

// StubVisitor implements nodes.Visitor with compact, predictable output for
// testing code that only needs to see which nodes were visited.
type StubVisitor struct{}

var _ nodes.Visitor = StubVisitor{}

func (sv StubVisitor) VisitLogical(n *nodes.Expression) string {
	parts := make([]string, 0, len(n.Children()))
	for _, c := range n.Children() {
		parts = append(parts, c.Accept(sv))
	}
	return strings.ToLower(n.Operator().String()) + "(" + strings.Join(parts, ",") + ")"
}

func (sv StubVisitor) VisitComparison(n *nodes.Expression) string {
	name, _ := n.FieldName()
	return name + "?"
}

func (sv StubVisitor) VisitReference(n *nodes.Expression) string {
	name, _ := n.FieldName()
	return name
}

// StubParamVisitor implements nodes.Visitor and nodes.Parameterizer for
// testing. Each comparison records its first value as a parameter.
type StubParamVisitor struct {
	StubVisitor
	params []any
	resets int
}

var _ nodes.Visitor = (*StubParamVisitor)(nil)
var _ nodes.Parameterizer = (*StubParamVisitor)(nil)

func (sv *StubParamVisitor) VisitLogical(n *nodes.Expression) string {
	parts := make([]string, 0, len(n.Children()))
	for _, c := range n.Children() {
		parts = append(parts, c.Accept(sv))
	}
	return strings.ToLower(n.Operator().String()) + "(" + strings.Join(parts, ",") + ")"
}

func (sv *StubParamVisitor) VisitComparison(n *nodes.Expression) string {
	if rest := n.Rest(); len(rest) > 0 {
		if v, ok := rest[0].Value(); ok {
			sv.params = append(sv.params, v)
		}
	}
	return sv.StubVisitor.VisitComparison(n)
}

func (sv *StubParamVisitor) Params() []any { return sv.params }
func (sv *StubParamVisitor) Reset()        { sv.params = nil; sv.resets++ }

// Resets reports how many times Reset has been called.
func (sv *StubParamVisitor) Resets() int { return sv.resets }
