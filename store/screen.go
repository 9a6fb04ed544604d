package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bawdo/screenq/internal/quoting"
	"github.com/bawdo/screenq/managers"
)

// MaxRows caps the rows returned by Screen.
const MaxRows = 1000

// Result holds the rows returned by Screen, with columns in table order.
type Result struct {
	Columns []string
	Rows    []map[string]any
}

// ScreenSQL renders the statement Screen would run, with its bind parameters.
func (s *Store) ScreenSQL(table string, q *managers.Query, limit int) (string, []any, error) {
	v := s.dialect.newVisitor()
	where, params, err := q.ToSQL(v)
	if err != nil {
		return "", nil, err
	}
	if limit <= 0 || limit > MaxRows {
		limit = MaxRows
	}
	stmt := "SELECT * FROM " + quoting.Qualified(v.QuoteIdent, table) +
		" WHERE " + where +
		" LIMIT " + strconv.Itoa(limit)
	return stmt, params, nil
}

// Screen runs the query against table and returns the matching rows.
func (s *Store) Screen(ctx context.Context, table string, q *managers.Query, limit int) (*Result, error) {
	stmt, params, err := s.ScreenSQL(table, q, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("screening locally", "sql", stmt, "params", len(params))

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("store: screen: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("store: columns: %w", err)
	}
	res := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return res, nil
}
