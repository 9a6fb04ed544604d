// Package quoting provides identifier and string quoting for SQL rendering.
package quoting

import "strings"

// DoubleQuote quotes a SQL identifier using double quotes (PostgreSQL, SQLite).
// Internal double quotes are escaped by doubling them.
func DoubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Backtick quotes a SQL identifier using backticks (MySQL).
// Internal backticks are escaped by doubling them.
func Backtick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Qualified quotes each dot-separated part of a table name, so that
// "market.quotes" becomes "market"."quotes". Field names are never passed
// through here: screener fields such as "peratio.lasttwelvemonths" are
// single column names.
func Qualified(quote func(string) string, name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quote(p)
	}
	return strings.Join(parts, ".")
}

// EscapeString escapes a string literal for SQL by doubling single quotes
// and escaping backslashes (for MySQL compatibility).
//
// SECURITY: This escaping is intended for non-parameterized mode only, which
// the visitors use for display. Queries that reach a database are always
// parameterized.
func EscapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "'", "''")
}

// StringLiteral returns s as a single-quoted, escaped SQL string literal.
func StringLiteral(s string) string {
	return "'" + EscapeString(s) + "'"
}
