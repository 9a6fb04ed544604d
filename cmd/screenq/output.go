package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/bawdo/screenq/store"
)

// quoteColumns are shown for screener results when present.
var quoteColumns = []string{"symbol", "shortName", "exchange", "regularMarketPrice", "regularMarketChangePercent", "marketCap"}

func newTable(w io.Writer, header ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	row := make(table.Row, len(header))
	for i, h := range header {
		row[i] = h
	}
	t.AppendHeader(row)
	return t
}

func rowCount(w io.Writer, n int) {
	if n == 1 {
		_, _ = fmt.Fprintln(w, "(1 row)")
		return
	}
	_, _ = fmt.Fprintf(w, "(%d rows)\n", n)
}

// renderResult prints local screening rows.
func renderResult(w io.Writer, res *store.Result) {
	if len(res.Rows) == 0 {
		rowCount(w, 0)
		return
	}
	t := newTable(w, res.Columns...)
	for _, r := range res.Rows {
		row := make(table.Row, len(res.Columns))
		for i, c := range res.Columns {
			row[i] = cell(r[c])
		}
		t.AppendRow(row)
	}
	t.Render()
	rowCount(w, len(res.Rows))
}

func cell(v any) any {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	}
	return v
}

// quotes extracts finance.result[0].quotes from a screener response.
func quotes(resp map[string]any) ([]map[string]any, bool) {
	finance, ok := resp["finance"].(map[string]any)
	if !ok {
		return nil, false
	}
	results, ok := finance["result"].([]any)
	if !ok || len(results) == 0 {
		return nil, false
	}
	first, ok := results[0].(map[string]any)
	if !ok {
		return nil, false
	}
	raw, ok := first["quotes"].([]any)
	if !ok {
		return nil, false
	}
	out := make([]map[string]any, 0, len(raw))
	for _, q := range raw {
		if m, ok := q.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, true
}

// renderResponse prints the quotes of a screener response as a table, or
// the raw JSON when the response has no recognisable quote list.
func renderResponse(w io.Writer, resp map[string]any) error {
	qs, ok := quotes(resp)
	if !ok {
		return writeJSON(w, resp)
	}
	if len(qs) == 0 {
		rowCount(w, 0)
		return nil
	}
	var cols []string
	for _, c := range quoteColumns {
		for _, q := range qs {
			if _, present := q[c]; present {
				cols = append(cols, c)
				break
			}
		}
	}
	if len(cols) == 0 {
		return writeJSON(w, qs)
	}
	t := newTable(w, cols...)
	for _, q := range qs {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = cell(q[c])
		}
		t.AppendRow(row)
	}
	t.Render()
	rowCount(w, len(qs))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
