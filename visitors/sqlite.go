package visitors

import (
	"github.com/bawdo/screenq/internal/quoting"
)

// SQLiteVisitor generates SQLite-dialect SQL.
// Identifiers are quoted with double quotes (ANSI SQL) and placeholders are ?.
type SQLiteVisitor struct {
	*baseVisitor
}

// NewSQLiteVisitor creates a SQLiteVisitor ready for use.
// Parameterized mode is enabled by default; pass WithoutParams() to inline values.
func NewSQLiteVisitor(opts ...Option) *SQLiteVisitor {
	v := &SQLiteVisitor{}
	v.baseVisitor = &baseVisitor{
		outer:        v,
		quoteIdent:   quoting.DoubleQuote,
		placeholder:  func(_ int) string { return "?" },
		parameterize: true,
	}
	v.applyOptions(opts)
	return v
}
