package visitors

import (
	"github.com/bawdo/screenq/internal/quoting"
	"github.com/bawdo/screenq/nodes"
)

// MySQLVisitor generates MySQL-dialect SQL.
// Identifiers are quoted with backticks: `table`.`column`.
type MySQLVisitor struct {
	*baseVisitor
}

// NewMySQLVisitor creates a MySQLVisitor ready for use.
// Parameterized mode is enabled by default; pass WithoutParams() to inline values.
func NewMySQLVisitor(opts ...Option) *MySQLVisitor {
	v := &MySQLVisitor{}
	v.baseVisitor = &baseVisitor{
		outer:        v,
		quoteIdent:   quoting.Backtick,
		placeholder:  func(_ int) string { return "?" },
		parameterize: true,
	}
	v.applyOptions(opts)
	return v
}

// VisitComparison makes EQ matches case-sensitive. MySQL's default
// collations compare strings case-insensitively.
func (v *MySQLVisitor) VisitComparison(n *nodes.Expression) string {
	if n.Operator() == nodes.OpEq && len(comparisonValues(n)) > 0 {
		return "BINARY " + v.baseVisitor.VisitComparison(n)
	}
	return v.baseVisitor.VisitComparison(n)
}
