// Package store persists screener responses and timezone lookups, and runs
// filter trees locally against a quotes table. PostgreSQL, MySQL and SQLite
// are supported through database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/bawdo/screenq/nodes"
	"github.com/bawdo/screenq/visitors"
)

var (
	// ErrUnknownEngine is returned by Open for engines without a driver.
	ErrUnknownEngine = errors.New("store: unknown engine")
	// ErrNotFound is returned when a lookup has no row.
	ErrNotFound = errors.New("store: not found")
)

// sqlVisitor is what the store needs from a dialect visitor.
type sqlVisitor interface {
	nodes.Visitor
	nodes.Parameterizer
	QuoteIdent(name string) string
}

type dialect struct {
	driver     string
	newVisitor func(opts ...visitors.Option) sqlVisitor
	// upsertTZ is the dialect's insert-or-update statement for timezones.
	upsertTZ string
}

var dialects = map[string]dialect{
	"postgres": {
		driver:     "pgx",
		newVisitor: func(opts ...visitors.Option) sqlVisitor { return visitors.NewPostgresVisitor(opts...) },
		upsertTZ:   "INSERT INTO timezones (ticker, tz) VALUES (?, ?) ON CONFLICT (ticker) DO UPDATE SET tz = excluded.tz",
	},
	"mysql": {
		driver:     "mysql",
		newVisitor: func(opts ...visitors.Option) sqlVisitor { return visitors.NewMySQLVisitor(opts...) },
		upsertTZ:   "INSERT INTO timezones (ticker, tz) VALUES (?, ?) ON DUPLICATE KEY UPDATE tz = VALUES(tz)",
	},
	"sqlite": {
		driver:     "sqlite",
		newVisitor: func(opts ...visitors.Option) sqlVisitor { return visitors.NewSQLiteVisitor(opts...) },
		upsertTZ:   "INSERT INTO timezones (ticker, tz) VALUES (?, ?) ON CONFLICT (ticker) DO UPDATE SET tz = excluded.tz",
	},
}

// Engines returns the supported engine names, sorted.
func Engines() []string {
	out := make([]string, 0, len(dialects))
	for name := range dialects {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Store wraps a database handle for one engine.
type Store struct {
	db      *sql.DB
	engine  string
	dialect dialect
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, engine, dsn string, opts ...Option) (*Store, error) {
	d, ok := dialects[engine]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownEngine, engine, strings.Join(Engines(), ", "))
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db, engine: engine, dialect: d, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("store connected", "engine", engine, "dsn", SanitizeDSN(dsn))
	return s, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Engine returns the engine name the store was opened with.
func (s *Store) Engine() string { return s.engine }

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Visitor returns a fresh parameterized SQL visitor for the store's dialect.
func (s *Store) Visitor() nodes.Visitor { return s.dialect.newVisitor() }

// DisplayVisitor returns a visitor for the store's dialect that inlines
// values, for showing SQL to a user.
func (s *Store) DisplayVisitor() nodes.Visitor {
	return s.dialect.newVisitor(visitors.WithoutParams())
}

// bind rewrites ? placeholders to $n for PostgreSQL. Statements passed here
// never contain ? inside string literals.
func (s *Store) bind(query string) string {
	if s.engine != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizeDSN masks the password in a DSN for logging.
func SanitizeDSN(dsn string) string {
	// Try parsing as URL (postgres style).
	u, err := url.Parse(dsn)
	if err == nil && u.Scheme != "" && u.User != nil {
		if _, hasPass := u.User.Password(); hasPass {
			// Rebuild manually to avoid percent-encoding the mask.
			masked := u.Scheme + "://" + u.User.Username() + ":****@" + u.Host + u.Path
			if u.RawQuery != "" {
				masked += "?" + u.RawQuery
			}
			return masked
		}
		return dsn
	}

	// Try MySQL-style DSN: user:pass@tcp(host)/db
	if atIdx := strings.Index(dsn, "@"); atIdx > 0 {
		userPass := dsn[:atIdx]
		if colonIdx := strings.Index(userPass, ":"); colonIdx >= 0 {
			return userPass[:colonIdx+1] + "****" + dsn[atIdx:]
		}
	}

	return dsn
}
