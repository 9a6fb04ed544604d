package main

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/bawdo/screenq/internal/config"
	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/plugins"
	"github.com/bawdo/screenq/screener"
)

type fakeTransport struct {
	posts []map[string]any
	gets  []url.Values
	resp  map[string]any
}

func (f *fakeTransport) Post(_ context.Context, _ string, body map[string]any) (map[string]any, error) {
	f.posts = append(f.posts, body)
	return f.resp, nil
}

func (f *fakeTransport) Get(_ context.Context, _ string, params url.Values) (map[string]any, error) {
	f.gets = append(f.gets, params)
	return f.resp, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Endpoints: screener.DefaultEndpoints(),
		Body:      screener.DefaultBody(),
		Regions:   []string{"us"},
	}
}

// newTestSession returns a session writing into the returned buffer.
func newTestSession(t *testing.T, tr screener.Transport) (*Session, *bytes.Buffer) {
	t.Helper()
	sess := NewSession(context.Background(), testConfig(), tr, nil)
	var buf bytes.Buffer
	sess.out = &buf
	t.Cleanup(func() { _ = sess.Close() })
	return sess, &buf
}

// run executes commands, failing the test on the first error.
func run(t *testing.T, sess *Session, commands ...string) {
	t.Helper()
	for _, cmd := range commands {
		if err := sess.Execute(cmd); err != nil {
			t.Fatalf("command %q failed: %v", cmd, err)
		}
	}
}

func render(t *testing.T, sess *Session, format string) string {
	t.Helper()
	var buf bytes.Buffer
	if err := sess.render(&buf, format); err != nil {
		t.Fatalf("render %s failed: %v", format, err)
	}
	return strings.TrimSpace(buf.String())
}

func TestBuildAndCombine(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t, nil)
	run(t, sess, "eq sector Technology", "gt eodprice 5", "and")

	expected := "AND(EQ(sector, Technology), GT(eodprice, 5))"
	if got := sess.Top().String(); got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}
	if len(sess.stack) != 1 {
		t.Errorf("expected 1 tree on the stack, got %d", len(sess.stack))
	}
}

func TestShortcuts(t *testing.T) {
	t.Parallel()
	tests := []struct {
		command  string
		expected string
	}{
		{"sector Technology", "EQ(sector, Technology)"},
		{"region us", "EQ(region, us)"},
		{"market NMS NYQ", "EQ(exchange, NMS, NYQ)"},
		{"price gt 50", "GT(eodprice, 50)"},
		{"marketcap btwn 1000 5000", "BTWN(intradaymarketcap, 1000, 5000)"},
		{"eq sector 'Consumer Cyclical'", "EQ(sector, Consumer Cyclical)"},
		{"field sector", "FIELD(sector, <unset>)"},
		{"eq sector", "EQ(sector, <unset>)"},
	}
	for _, tt := range tests {
		sess, _ := newTestSession(t, nil)
		run(t, sess, tt.command)
		if got := sess.Top().String(); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.command, tt.expected, got)
		}
	}
}

func TestShortcutErrors(t *testing.T) {
	t.Parallel()
	for _, cmd := range []string{
		"price 50",
		"price gt",
		"gt eodprice",
		"and",
		"and 1",
		"or x",
		"bogus",
	} {
		sess, _ := newTestSession(t, nil)
		if err := sess.Execute(cmd); err == nil {
			t.Errorf("%q: expected error", cmd)
		}
	}
}

func TestLogicalAll(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t, nil)
	run(t, sess, "sector Technology", "sector Energy", "sector Utilities", "or all")

	expected := "OR(EQ(sector, Technology), EQ(sector, Energy), EQ(sector, Utilities))"
	if got := sess.Top().String(); got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}
}

func TestUniverseChecksFields(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t, nil)
	run(t, sess, "universe etf")

	if err := sess.Execute("sector Technology"); !errors.Is(err, nodes.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField for sector in etf, got %v", err)
	}
	run(t, sess, "gt netexpenseratio 0.5", "eq categoryname Technology", "and")
	if sess.body.QuoteType != "ETF" {
		t.Errorf("expected quote type ETF, got %s", sess.body.QuoteType)
	}
	run(t, sess, "universe off", "sector Technology")
}

func TestSetAndCheck(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t, nil)
	run(t, sess, "sector Technology", "price gt 5", "and", "set sector Energy")

	expected := "AND(EQ(sector, Energy), GT(eodprice, 5))"
	if got := sess.Top().String(); got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}

	buf.Reset()
	run(t, sess, "check sector")
	if strings.TrimSpace(buf.String()) != "true" {
		t.Errorf("expected nested check to find sector, got %q", buf.String())
	}
	buf.Reset()
	run(t, sess, "check sector exact")
	if strings.TrimSpace(buf.String()) != "false" {
		t.Errorf("expected exact check on AND root to fail, got %q", buf.String())
	}
}

func TestRenderFormats(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t, nil)
	run(t, sess, "sector Technology", "price gt 5", "and")

	sql := render(t, sess, "sql")
	if sql != `"sector" = 'Technology' AND "eodprice" > 5` {
		t.Errorf("unexpected sql: %s", sql)
	}

	run(t, sess, "dialect mysql", "params")
	sql = render(t, sess, "sql")
	expected := "BINARY `sector` = ? AND `eodprice` > ?\n-- params: [Technology 5]"
	if sql != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, sql)
	}

	js := render(t, sess, "json")
	if !strings.Contains(js, `"operator": "AND"`) {
		t.Errorf("expected JSON wire map, got %s", js)
	}
	if dot := render(t, sess, "dot"); !strings.HasPrefix(dot, "digraph Query {") {
		t.Errorf("expected DOT output, got %s", dot)
	}
	if err := sess.Execute("show yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
	if err := sess.Execute("dialect oracle"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestRegionPlugin(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t, nil)
	run(t, sess, "sector Technology", "price gt 5", "and", "plugin region")

	expected := `("sector" = 'Technology' AND "eodprice" > 5) AND "region" = 'us'`
	if got := render(t, sess, "sql"); got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}
	// The stack keeps the untransformed tree.
	if strings.Contains(sess.Top().String(), "region") {
		t.Errorf("plugin leaked into the stack: %s", sess.Top())
	}

	run(t, sess, "plugin region us gb")
	expected = `("sector" = 'Technology' AND "eodprice" > 5) AND ("region" = 'us' OR "region" = 'gb')`
	if got := render(t, sess, "sql"); got != expected {
		t.Errorf("expected:\n  %s\ngot:\n  %s", expected, got)
	}

	run(t, sess, "plugin off")
	if got := render(t, sess, "sql"); strings.Contains(got, "region") {
		t.Errorf("expected plugin off, got %s", got)
	}
	if err := sess.Execute("plugin region xx"); err == nil {
		t.Error("expected error for unknown region code")
	}
}

func TestPluginsCommand(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t, nil)

	run(t, sess, "plugins")
	if !strings.Contains(buf.String(), "region     off") {
		t.Errorf("expected region off, got:\n%s", buf.String())
	}
	if err := sess.Execute("plugin off region"); err == nil {
		t.Error("expected error disabling a plugin that is not enabled")
	}
	if err := sess.Execute("plugin softdelete"); err == nil {
		t.Error("expected error for unknown plugin")
	}

	buf.Reset()
	run(t, sess, "plugin region us, gb", "plugins")
	if !strings.Contains(buf.String(), `region     on   (us, gb on "region")`) {
		t.Errorf("expected region status, got:\n%s", buf.String())
	}

	run(t, sess, "sector Technology", "plugin off region")
	if got := render(t, sess, "sql"); got != `"sector" = 'Technology'` {
		t.Errorf("expected plugin removed, got %s", got)
	}
	if names := sess.plugins.names(); len(names) != 0 {
		t.Errorf("expected no enabled plugins, got %v", names)
	}
}

func TestPluginRegistry(t *testing.T) {
	t.Parallel()
	var r pluginRegistry
	noop := func() plugins.Transformer {
		return plugins.TransformerFunc(func(e *nodes.Expression) (*nodes.Expression, error) { return e, nil })
	}
	r.register(pluginEntry{name: "a", factory: noop, status: func() string { return "first" }})
	r.register(pluginEntry{name: "b", factory: noop})
	r.register(pluginEntry{name: "a", factory: noop, status: func() string { return "second" }})

	if got := r.names(); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("expected [a b], got %v", got)
	}
	if e, ok := r.get("a"); !ok || e.status() != "second" {
		t.Error("expected register to replace by name")
	}
	calls := 0
	r.applyTo(func(plugins.Transformer) { calls++ })
	if calls != 2 {
		t.Errorf("expected 2 transformers, got %d", calls)
	}
	if !r.deregister("a") || r.deregister("a") {
		t.Error("expected deregister to succeed once")
	}
	r.deregisterAll()
	if len(r.names()) != 0 {
		t.Error("expected empty registry")
	}
}

func TestBodyCommands(t *testing.T) {
	t.Parallel()
	sess, _ := newTestSession(t, nil)
	run(t, sess, "size 250", "offset 25", "sort eodprice asc", "quote etf")

	b := sess.body
	if b.Size != 250 || b.Offset != 25 || b.SortField != "eodprice" || b.SortType != "ASC" || b.QuoteType != "ETF" {
		t.Errorf("unexpected body: %+v", b)
	}

	err := sess.Execute("size 251")
	if !errors.Is(err, screener.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if sess.body.Size != 250 {
		t.Errorf("rejected size must not be applied, got %d", sess.body.Size)
	}
	for _, cmd := range []string{"offset -1", "sort eodprice up", "quote bond", "size x"} {
		if err := sess.Execute(cmd); err == nil {
			t.Errorf("%q: expected error", cmd)
		}
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{resp: map[string]any{
		"finance": map[string]any{
			"result": []any{map[string]any{
				"quotes": []any{
					map[string]any{"symbol": "AAPL", "regularMarketPrice": 190.5},
					map[string]any{"symbol": "MSFT", "regularMarketPrice": 410.0},
				},
			}},
		},
	}}
	sess, buf := newTestSession(t, tr)
	run(t, sess, "sector Technology", "size 10", "fetch")

	if len(tr.posts) != 1 {
		t.Fatalf("expected 1 post, got %d", len(tr.posts))
	}
	if tr.posts[0]["size"] != 10 {
		t.Errorf("expected size 10 in request, got %v", tr.posts[0]["size"])
	}
	out := buf.String()
	if !strings.Contains(out, "AAPL") || !strings.Contains(out, "(2 rows)") {
		t.Errorf("expected quote table, got:\n%s", out)
	}
}

func TestFetchIncompleteTree(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{}
	sess, _ := newTestSession(t, tr)
	run(t, sess, "field sector")

	if err := sess.Execute("fetch"); !errors.Is(err, nodes.ErrIncompleteNode) {
		t.Errorf("expected ErrIncompleteNode, got %v", err)
	}
	if len(tr.posts) != 0 {
		t.Error("incomplete tree must not reach the transport")
	}
}

func TestPredefined(t *testing.T) {
	t.Parallel()
	tr := &fakeTransport{resp: map[string]any{"ok": true}}
	sess, buf := newTestSession(t, tr)

	run(t, sess, "predefined")
	if !strings.Contains(buf.String(), "day_gainers") {
		t.Errorf("expected screen list, got %s", buf.String())
	}

	run(t, sess, "predefined day_gainers most_actives")
	if len(tr.gets) != 2 {
		t.Errorf("expected 2 gets, got %d", len(tr.gets))
	}
	if err := sess.Execute("predefined nope"); !errors.Is(err, screener.ErrUnknownScreen) {
		t.Errorf("expected ErrUnknownScreen, got %v", err)
	}
}

func TestEmptyStack(t *testing.T) {
	t.Parallel()
	for _, cmd := range []string{"pop", "show sql", "set sector x", "check x", "fetch", "request"} {
		sess, _ := newTestSession(t, &fakeTransport{})
		if err := sess.Execute(cmd); !errors.Is(err, errEmptyStack) {
			t.Errorf("%q: expected errEmptyStack, got %v", cmd, err)
		}
	}
}

func TestParseLoadSave(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	sess, _ := newTestSession(t, nil)
	run(t, sess, `parse {"operator": "gt", "operands": ["eodprice", 3]}`)

	path := filepath.Join(dir, "q.json")
	run(t, sess, "save "+path, "clear", "load "+path)
	if got := sess.Top().String(); got != "GT(eodprice, 3)" {
		t.Errorf("unexpected reloaded tree %s", got)
	}

	yamlPath := filepath.Join(dir, "q.yaml")
	body := "operator: AND\noperands:\n  - {operator: EQ, operands: [sector, Technology]}\n  - {operator: LT, operands: [beta, 1.5]}\n"
	if err := os.WriteFile(yamlPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	run(t, sess, "load "+yamlPath)
	if got := sess.Top().String(); got != "AND(EQ(sector, Technology), LT(beta, 1.5))" {
		t.Errorf("unexpected yaml tree %s", got)
	}

	if err := sess.Execute(`parse {"operator": "EQ"}`); !errors.Is(err, nodes.ErrMalformedQuery) {
		t.Errorf("expected ErrMalformedQuery, got %v", err)
	}
}

func TestStackTable(t *testing.T) {
	t.Parallel()
	sess, buf := newTestSession(t, nil)
	run(t, sess, "stack")
	if !strings.Contains(buf.String(), "(empty)") {
		t.Errorf("expected empty stack, got %s", buf.String())
	}
	run(t, sess, "sector Technology", "price gt 5")
	buf.Reset()
	run(t, sess, "stack")
	out := buf.String()
	for _, want := range []string{"GT(eodprice, 5)", "EQ(sector, Technology)", "eodprice"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in stack table:\n%s", want, out)
		}
	}
}

func TestLocalScreen(t *testing.T) {
	t.Parallel()
	dsn := filepath.Join(t.TempDir(), "quotes.db")
	sess, buf := newTestSession(t, nil)
	run(t, sess, "connect sqlite "+dsn)

	_, err := sess.store.DB().Exec(`CREATE TABLE quotes (symbol TEXT, sector TEXT, eodprice REAL)`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = sess.store.DB().Exec(`INSERT INTO quotes VALUES ('AAPL', 'Technology', 190), ('XOM', 'Energy', 110), ('TINY', 'Technology', 2)`)
	if err != nil {
		t.Fatal(err)
	}

	buf.Reset()
	run(t, sess, "sector Technology", "price gt 5", "and", "screen quotes")
	out := buf.String()
	if !strings.Contains(out, "AAPL") || strings.Contains(out, "XOM") || strings.Contains(out, "TINY") {
		t.Errorf("unexpected screen output:\n%s", out)
	}
	if !strings.Contains(out, "(1 row)") {
		t.Errorf("expected row count, got:\n%s", out)
	}

	run(t, sess, "tz aapl America/New_York")
	buf.Reset()
	run(t, sess, "tz AAPL")
	if strings.TrimSpace(buf.String()) != "America/New_York" {
		t.Errorf("unexpected timezone %q", buf.String())
	}
	run(t, sess, "disconnect")
	if err := sess.Execute("screen quotes"); err == nil {
		t.Error("expected error when disconnected")
	}
}
