package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bawdo/screenq/internal/config"
	"github.com/bawdo/screenq/managers"
	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/plugins"
	"github.com/bawdo/screenq/screener"
	"github.com/bawdo/screenq/store"
	"github.com/bawdo/screenq/visitors"
)

var errEmptyStack = errors.New("stack is empty (build a node with eq/gt/lt/btwn or a field shortcut first)")

var dialectNames = []string{"mysql", "postgres", "sqlite"}

// Session holds the REPL state: a stack of trees under construction, the
// request body, the render dialect, the enabled plugins and the optional
// database connection.
type Session struct {
	ctx          context.Context
	stack        []*nodes.Expression
	universe     *nodes.Universe // nil when node construction is unchecked
	dialect      string
	parameterize bool
	plugins      pluginRegistry
	regions      []string // codes used by a bare "plugin region"
	body         screener.Body
	endpoints    screener.Endpoints
	transport    screener.Transport
	store        *store.Store // nil when disconnected
	logger       *slog.Logger
	commands     []commandEntry
	out          io.Writer
}

// NewSession creates a session from the loaded configuration. t sends
// screener requests; it may be nil when fetching is not needed.
func NewSession(ctx context.Context, cfg *config.Config, t screener.Transport, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		ctx:       ctx,
		dialect:   "postgres",
		regions:   slices.Clone(cfg.Regions),
		body:      cfg.Body,
		endpoints: cfg.Endpoints,
		transport: t,
		logger:    logger,
		out:       os.Stdout,
	}
	s.initCommands()
	return s
}

// Execute parses and runs a single REPL command.
func (s *Session) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	lower := strings.ToLower(line)

	for _, cmd := range s.commands {
		if strings.HasSuffix(cmd.prefix, " ") {
			if strings.HasPrefix(lower, cmd.prefix) {
				return cmd.handler(line[len(cmd.prefix):])
			}
		} else if lower == cmd.prefix {
			return cmd.handler("")
		}
	}

	word := strings.Fields(line)[0]
	return fmt.Errorf("unknown command: %s (type 'help' for commands)", word)
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

// --- stack ---

func (s *Session) push(e *nodes.Expression) {
	s.stack = append(s.stack, e)
	s.printf("  [%d] %s\n", len(s.stack)-1, e)
}

func (s *Session) top() (*nodes.Expression, error) {
	if len(s.stack) == 0 {
		return nil, errEmptyStack
	}
	return s.stack[len(s.stack)-1], nil
}

// Top returns the tree on top of the stack, or nil.
func (s *Session) Top() *nodes.Expression {
	e, _ := s.top()
	return e
}

// query wraps the top of the stack with the active plugins.
func (s *Session) query() (*managers.Query, error) {
	e, err := s.top()
	if err != nil {
		return nil, err
	}
	q := managers.NewQuery(e)
	s.plugins.applyTo(func(t plugins.Transformer) { q.Use(t) })
	return q, nil
}

func (s *Session) cmdPop() error {
	e, err := s.top()
	if err != nil {
		return err
	}
	s.stack = s.stack[:len(s.stack)-1]
	s.printf("  Popped %s\n", e)
	return nil
}

func (s *Session) cmdClear() error {
	s.stack = nil
	s.printf("  Stack cleared\n")
	return nil
}

func (s *Session) cmdStack() error {
	if len(s.stack) == 0 {
		s.printf("  (empty)\n")
		return nil
	}
	t := newTable(s.out, "#", "operator", "fields", "complete", "tree")
	for i := len(s.stack) - 1; i >= 0; i-- {
		e := s.stack[i]
		t.AppendRow([]any{i, e.Operator(), strings.Join(e.Fields(), ", "), e.Complete(), e.String()})
	}
	t.Render()
	return nil
}

// --- building ---

// cmdCompare handles eq/gt/lt/gte/lte/btwn: <field> <value>...
func (s *Session) cmdCompare(c nodes.Combinator, args string) error {
	tokens := tokenize(args)
	if len(tokens) == 0 {
		return fmt.Errorf("usage: %s <field> [value ...]", c.Name())
	}
	field := unquote(tokens[0])
	values := parseValues(tokens[1:])

	var e *nodes.Expression
	var err error
	switch {
	case s.universe != nil:
		e, err = nodes.NewTypedQuery(*s.universe, c.Operator().String(), append([]any{field}, values...)...)
	case len(values) == 0:
		e, err = c.Ref(field)
	default:
		e, err = c.Call(nodes.WithPrimary(field), nodes.WithOperands(values...))
	}
	if err != nil {
		return err
	}
	s.push(e)
	return nil
}

// cmdShortcut handles the field shortcuts. Categorical shortcuts take
// values; numeric ones take an operator first: price gt 50.
func (s *Session) cmdShortcut(c nodes.Combinator, args string) error {
	tokens := tokenize(args)
	if len(tokens) == 0 {
		return fmt.Errorf("usage: %s [operator] <value ...>", c.Name())
	}
	op := c.Operator()
	if op == nodes.OpUnset {
		parsed, err := nodes.ParseOperator(tokens[0])
		if err != nil {
			return err
		}
		op = parsed
		tokens = tokens[1:]
		if len(tokens) == 0 {
			return fmt.Errorf("usage: %s %s <value ...>", c.Name(), strings.ToLower(op.String()))
		}
	}
	values := parseValues(tokens)

	var e *nodes.Expression
	var err error
	if s.universe != nil {
		e, err = nodes.NewTypedQuery(*s.universe, op.String(), append([]any{c.BoundField()}, values...)...)
	} else if op == c.Operator() {
		e, err = c.Of(values...)
	} else {
		e, err = c.Compare(op.String(), values...)
	}
	if err != nil {
		return err
	}
	s.push(e)
	return nil
}

func (s *Session) cmdField(args string) error {
	name := unquote(strings.TrimSpace(args))
	if name == "" {
		return errors.New("usage: field <name>")
	}
	e, err := nodes.Field.Ref(name)
	if err != nil {
		return err
	}
	s.push(e)
	return nil
}

// cmdLogical pops n trees (default 2, or "all") and pushes them combined.
func (s *Session) cmdLogical(c nodes.Combinator, args string) error {
	n := 2
	switch arg := strings.TrimSpace(strings.ToLower(args)); arg {
	case "":
	case "all":
		n = len(s.stack)
	default:
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("usage: %s [n|all]", c.Name())
		}
		n = v
	}
	if n < 2 {
		return fmt.Errorf("%s needs at least 2 trees, asked for %d", c.Name(), n)
	}
	if n > len(s.stack) {
		return fmt.Errorf("%s needs %d trees, stack has %d", c.Name(), n, len(s.stack))
	}

	children := s.stack[len(s.stack)-n:]
	operands := make([]any, n)
	for i, child := range children {
		operands[i] = child
	}
	var e *nodes.Expression
	var err error
	if s.universe != nil {
		e, err = nodes.NewTypedQuery(*s.universe, c.Operator().String(), operands...)
	} else {
		e, err = c.Of(operands...)
	}
	if err != nil {
		return err
	}
	s.stack = s.stack[:len(s.stack)-n]
	s.push(e)
	return nil
}

func (s *Session) cmdUniverse(args string) error {
	arg := strings.TrimSpace(args)
	if strings.EqualFold(arg, "off") {
		s.universe = nil
		s.printf("  Field checks disabled\n")
		return nil
	}
	u, err := nodes.ParseUniverse(arg)
	if err != nil {
		return err
	}
	s.universe = &u
	s.body.QuoteType = u.QuoteType()
	s.printf("  Universe: %s (quote type %s)\n", u, u.QuoteType())
	return nil
}

func (s *Session) cmdFields() error {
	universes := []nodes.Universe{nodes.Equity, nodes.ETF, nodes.Fund}
	if s.universe != nil {
		universes = []nodes.Universe{*s.universe}
	}
	for _, u := range universes {
		s.printf("  %s\n", u)
		s.printf("    EQ:    %s\n", strings.Join(u.CategoricalFields(), ", "))
		s.printf("    range: %s\n", strings.Join(u.NumericFields(), ", "))
	}
	return nil
}

func (s *Session) cmdParse(args string) error {
	e, err := decodeQuery([]byte(args))
	if err != nil {
		return err
	}
	s.push(e)
	return nil
}

func (s *Session) cmdLoad(args string) error {
	path := strings.TrimSpace(args)
	q, err := loadQueryFile(path)
	if err != nil {
		return err
	}
	s.push(q.Root())
	return nil
}

func (s *Session) cmdSave(args string) error {
	path := strings.TrimSpace(args)
	q, err := s.query()
	if err != nil {
		return err
	}
	data, err := q.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Clean(path), append(data, '\n'), 0o644); err != nil {
		return err
	}
	s.printf("  Saved to %s\n", path)
	return nil
}

// --- editing ---

func (s *Session) cmdSet(args string) error {
	tokens := tokenize(args)
	if len(tokens) != 2 {
		return errors.New("usage: set <field> <value>")
	}
	e, err := s.top()
	if err != nil {
		return err
	}
	q := managers.NewQuery(e)
	if err := q.SetProperty(unquote(tokens[0]), parseValue(tokens[1])); err != nil {
		return err
	}
	s.stack[len(s.stack)-1] = q.Root()
	s.printf("  %s\n", q.Root())
	return nil
}

func (s *Session) cmdCheck(args string) error {
	tokens := tokenize(args)
	if len(tokens) == 0 || len(tokens) > 2 {
		return errors.New("usage: check <value> [exact]")
	}
	exact := len(tokens) == 2 && strings.EqualFold(tokens[1], "exact")
	if len(tokens) == 2 && !exact {
		return errors.New("usage: check <value> [exact]")
	}
	e, err := s.top()
	if err != nil {
		return err
	}
	s.printf("  %t\n", e.Check(parseValue(tokens[0]), exact))
	return nil
}

// --- display ---

func (s *Session) visitor() nodes.Visitor {
	return newVisitor(s.dialect, s.parameterize)
}

func newVisitor(dialect string, parameterize bool) nodes.Visitor {
	var opts []visitors.Option
	if !parameterize {
		opts = append(opts, visitors.WithoutParams())
	}
	switch dialect {
	case "mysql":
		return visitors.NewMySQLVisitor(opts...)
	case "sqlite":
		return visitors.NewSQLiteVisitor(opts...)
	default:
		return visitors.NewPostgresVisitor(opts...)
	}
}

// render writes the top of the stack in the given format.
func (s *Session) render(w io.Writer, format string) error {
	q, err := s.query()
	if err != nil {
		return err
	}
	return renderQuery(w, q, format, s.visitor())
}

func renderQuery(w io.Writer, q *managers.Query, format string, v nodes.Visitor) error {
	switch format {
	case "json":
		m, err := q.Serialize()
		if err != nil {
			return err
		}
		return writeJSON(w, m)
	case "sql":
		sql, params, err := q.ToSQL(v)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, sql)
		if len(params) > 0 {
			_, _ = fmt.Fprintf(w, "-- params: %v\n", params)
		}
		return nil
	case "pretty":
		sql, params, err := q.ToSQL(visitors.NewFormattingVisitor(v))
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, sql)
		if len(params) > 0 {
			_, _ = fmt.Fprintf(w, "-- params: %v\n", params)
		}
		return nil
	case "dot":
		tree, err := q.Tree()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprint(w, visitors.Dot(tree))
		return nil
	case "tree", "":
		tree, err := q.Tree()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, tree)
		return nil
	}
	return fmt.Errorf("unknown format %q (json, sql, pretty, dot, tree)", format)
}

func (s *Session) cmdShow(args string) error {
	return s.render(s.out, strings.ToLower(strings.TrimSpace(args)))
}

func (s *Session) cmdDot(args string) error {
	path := strings.TrimSpace(args)
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return err
	}
	if err := s.render(f, "dot"); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	s.printf("  DOT written to %s\n", path)
	return nil
}

func (s *Session) cmdDialect(args string) error {
	d := strings.ToLower(strings.TrimSpace(args))
	if !slices.Contains(dialectNames, d) {
		return fmt.Errorf("unknown dialect %q (%s)", d, strings.Join(dialectNames, ", "))
	}
	s.dialect = d
	s.printf("  Dialect: %s\n", d)
	return nil
}

func (s *Session) cmdParameterize() error {
	s.parameterize = !s.parameterize
	state := "off"
	if s.parameterize {
		state = "on"
	}
	s.printf("  Parameterize: %s\n", state)
	return nil
}

// --- body ---

func (s *Session) setBody(b screener.Body) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.body = b
	return nil
}

func (s *Session) cmdSize(args string) error {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return errors.New("usage: size <1-250>")
	}
	b := s.body
	b.Size = n
	return s.setBody(b)
}

func (s *Session) cmdOffset(args string) error {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil {
		return errors.New("usage: offset <n>")
	}
	b := s.body
	b.Offset = n
	return s.setBody(b)
}

func (s *Session) cmdSort(args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return errors.New("usage: sort <field> [asc|desc]")
	}
	b := s.body
	b.SortField = parts[0]
	if len(parts) == 2 {
		b.SortType = strings.ToUpper(parts[1])
	}
	return s.setBody(b)
}

func (s *Session) cmdQuote(args string) error {
	b := s.body
	b.QuoteType = strings.ToUpper(strings.TrimSpace(args))
	return s.setBody(b)
}

func (s *Session) cmdBody() error {
	return writeJSON(s.out, s.body.Map())
}

// --- plugins ---

func (s *Session) cmdPlugin(args string) error {
	parts := strings.Fields(strings.TrimSpace(args))
	if len(parts) == 0 {
		return errors.New("usage: plugin <name> [args] | plugin off [name]")
	}
	name := strings.ToLower(parts[0])
	if name == "off" {
		return s.cmdPluginOff(parts[1:])
	}
	for _, c := range pluginConfigurers {
		if c.name == name {
			return c.configure(s, strings.TrimSpace(args[strings.Index(args, parts[0])+len(parts[0]):]))
		}
	}
	return fmt.Errorf("unknown plugin %q (%s)", name, strings.Join(pluginNames(), ", "))
}

func (s *Session) cmdPluginOff(parts []string) error {
	if len(parts) == 0 {
		s.plugins.deregisterAll()
		s.printf("  All plugins disabled\n")
		return nil
	}
	name := strings.ToLower(parts[0])
	if !s.plugins.deregister(name) {
		return fmt.Errorf("plugin %q is not enabled", name)
	}
	s.printf("  %s disabled\n", name)
	return nil
}

func (s *Session) cmdPlugins() {
	s.printf("  Available plugins:\n")
	for _, c := range pluginConfigurers {
		if entry, ok := s.plugins.get(c.name); ok {
			s.printf("    %-10s on   (%s)\n", c.name, entry.status())
		} else {
			s.printf("    %-10s off\n", c.name)
		}
	}
}

// --- screener ---

func (s *Session) screener() (*screener.Screener, error) {
	if s.transport == nil {
		return nil, errors.New("no transport configured")
	}
	opts := []screener.Option{
		screener.WithLogger(s.logger),
		screener.WithEndpoints(s.endpoints),
		screener.WithBody(s.body),
	}
	if s.store != nil {
		opts = append(opts, screener.WithRecorder(s.store))
	}
	return screener.New(s.transport, opts...), nil
}

func (s *Session) cmdRequest() error {
	q, err := s.query()
	if err != nil {
		return err
	}
	sc, err := s.screener()
	if err != nil {
		return err
	}
	sc.SetQuery(q)
	req, err := sc.Request()
	if err != nil {
		return err
	}
	return writeJSON(s.out, req)
}

func (s *Session) cmdFetch() error {
	q, err := s.query()
	if err != nil {
		return err
	}
	sc, err := s.screener()
	if err != nil {
		return err
	}
	sc.SetQuery(q)
	resp, err := sc.Fetch(s.ctx)
	if err != nil {
		return err
	}
	return renderResponse(s.out, resp)
}

func (s *Session) cmdPredefined(args string) error {
	names := strings.Fields(args)
	if len(names) == 0 {
		s.printf("  %s\n", strings.Join(screener.PredefinedScreens(), ", "))
		return nil
	}
	sc, err := s.screener()
	if err != nil {
		return err
	}
	if len(names) == 1 {
		resp, err := sc.FetchPredefined(s.ctx, names[0], s.body.Size)
		if err != nil {
			return err
		}
		return renderResponse(s.out, resp)
	}
	all, err := sc.FetchPredefinedAll(s.ctx, s.body.Size, names...)
	if err != nil {
		return err
	}
	for _, name := range names {
		s.printf("  %s\n", name)
		if err := renderResponse(s.out, all[name]); err != nil {
			return err
		}
	}
	return nil
}

// --- database ---

// cmdConnect takes "<engine> <dsn>".
func (s *Session) cmdConnect(args string) error {
	parts := strings.Fields(args)
	if len(parts) != 2 {
		return fmt.Errorf("usage: connect <%s> <dsn>", strings.Join(store.Engines(), "|"))
	}
	st, err := store.Open(s.ctx, strings.ToLower(parts[0]), parts[1], store.WithLogger(s.logger))
	if err != nil {
		return err
	}
	if err := st.Migrate(s.ctx); err != nil {
		_ = st.Close()
		return err
	}
	if s.store != nil {
		_ = s.store.Close()
	}
	s.store = st
	s.dialect = st.Engine()
	s.printf("  Connected to %s (%s)\n", st.Engine(), store.SanitizeDSN(parts[1]))
	return nil
}

func (s *Session) cmdDisconnect() error {
	if s.store == nil {
		return errors.New("not connected")
	}
	err := s.store.Close()
	s.store = nil
	s.printf("  Disconnected\n")
	return err
}

// cmdScreen takes "<table> [limit]" and runs the top of the stack locally.
func (s *Session) cmdScreen(args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return errors.New("usage: screen <table> [limit]")
	}
	if s.store == nil {
		return errors.New("not connected (use 'connect <engine> <dsn>' first)")
	}
	limit := s.body.Size
	if len(parts) == 2 {
		n, err := strconv.Atoi(parts[1])
		if err != nil {
			return errors.New("usage: screen <table> [limit]")
		}
		limit = n
	}
	q, err := s.query()
	if err != nil {
		return err
	}
	res, err := s.store.Screen(s.ctx, parts[0], q, limit)
	if err != nil {
		return err
	}
	renderResult(s.out, res)
	return nil
}

func (s *Session) cmdTimezone(args string) error {
	parts := strings.Fields(args)
	if len(parts) == 0 || len(parts) > 2 {
		return errors.New("usage: tz <ticker> [zone]")
	}
	if s.store == nil {
		return errors.New("not connected")
	}
	if len(parts) == 2 {
		return s.store.StoreTimezone(s.ctx, parts[0], parts[1])
	}
	tz, err := s.store.LookupTimezone(s.ctx, parts[0])
	if err != nil {
		return err
	}
	s.printf("  %s\n", tz)
	return nil
}

// Close releases the database connection, if any.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Session) cmdHelp() {
	s.printf(`  Building (pushes onto the stack):
    eq|gt|lt|gte|lte|btwn <field> [values...]   comparison node
    <shortcut> [op] <values...>                  e.g. sector Technology, price gt 50
    field <name>                                 bare field reference
    and|or [n|all]                               combine the top n trees (default 2)
    parse <json>  /  load <file>                 read a wire map
    universe equity|etf|fund|off                 check fields against a universe
    fields                                       list allowed fields
  Editing:
    set <field> <value>    rebind every node on <field>
    check <value> [exact]  search primaries for <value>
    pop / clear / stack
  Output:
    show json|sql|pretty|dot|tree   save <file>   dot <file>
    dialect postgres|mysql|sqlite   params
  Request body:
    size <n>  offset <n>  sort <field> [asc|desc]  quote <type>  body  request
  Plugins:
    plugin region [codes...]   plugin off   plugins
  Remote:
    fetch                       post the top tree to the screener
    predefined [names...]       list or fetch predefined screens
  Local database:
    connect <engine> <dsn>  disconnect  screen <table> [limit]  tz <ticker> [zone]
`)
}
