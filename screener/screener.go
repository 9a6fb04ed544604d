// Package screener assembles screener requests around a filter Query and
// hands them to a Transport. It validates the request body locally so that
// oversized or malformed requests never reach the network.
package screener

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/bawdo/screenq/managers"
)

// Default endpoints.
const (
	DefaultScreenerURL   = "https://query1.finance.yahoo.com/v1/finance/screener"
	DefaultPredefinedURL = "https://query1.finance.yahoo.com/v1/finance/screener/predefined/saved"
)

// ErrNoQuery is returned by Fetch when no query has been set.
var ErrNoQuery = errors.New("screener: no query set")

// Transport sends a request and returns the decoded response body.
type Transport interface {
	Post(ctx context.Context, url string, body map[string]any) (map[string]any, error)
	Get(ctx context.Context, url string, params url.Values) (map[string]any, error)
}

// Recorder receives every successful response. The store implements it.
type Recorder interface {
	RecordResponse(ctx context.Context, key string, response map[string]any) error
}

// Endpoints holds the URLs the screener talks to.
type Endpoints struct {
	Screener   string `koanf:"screener"`
	Predefined string `koanf:"predefined"`
}

// DefaultEndpoints returns the public screener endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{Screener: DefaultScreenerURL, Predefined: DefaultPredefinedURL}
}

// Screener holds a Query and a Body and fetches results through a Transport.
// A Screener is not safe for concurrent mutation; concurrent fetches on an
// unchanging Screener are fine.
type Screener struct {
	transport Transport
	endpoints Endpoints
	body      Body
	query     *managers.Query
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Screener.
type Option func(*Screener)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(s *Screener) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithEndpoints overrides the screener URLs. Empty fields keep the defaults.
func WithEndpoints(e Endpoints) Option {
	return func(s *Screener) {
		if e.Screener != "" {
			s.endpoints.Screener = e.Screener
		}
		if e.Predefined != "" {
			s.endpoints.Predefined = e.Predefined
		}
	}
}

// WithBody sets the initial request body.
func WithBody(b Body) Option {
	return func(s *Screener) { s.body = b }
}

// WithRecorder hands every response to r.
func WithRecorder(r Recorder) Option {
	return func(s *Screener) { s.recorder = r }
}

// New creates a Screener that sends requests through t.
func New(t Transport, opts ...Option) *Screener {
	s := &Screener{
		transport: t,
		endpoints: DefaultEndpoints(),
		body:      DefaultBody(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetQuery replaces the query sent by Fetch.
func (s *Screener) SetQuery(q *managers.Query) { s.query = q }

// Query returns the current query, or nil.
func (s *Screener) Query() *managers.Query { return s.query }

// SetBody replaces the request body after validating it.
func (s *Screener) SetBody(b Body) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.body = b
	return nil
}

// Body returns the current request body.
func (s *Screener) Body() Body { return s.body }

// Endpoints returns the configured URLs.
func (s *Screener) Endpoints() Endpoints { return s.endpoints }

// Request composes the body that Fetch would send: a copy of the body map
// with the serialized query under "query".
func (s *Screener) Request() (map[string]any, error) {
	if s.query == nil {
		return nil, ErrNoQuery
	}
	if err := s.body.Validate(); err != nil {
		return nil, err
	}
	q, err := s.query.Serialize()
	if err != nil {
		return nil, fmt.Errorf("screener: serialize query: %w", err)
	}
	req := s.body.Map()
	req["query"] = q
	return req, nil
}

// Fetch posts the composed request to the screener endpoint.
func (s *Screener) Fetch(ctx context.Context) (map[string]any, error) {
	req, err := s.Request()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("fetching screen", "url", s.endpoints.Screener, "size", s.body.Size, "offset", s.body.Offset)

	resp, err := s.transport.Post(ctx, s.endpoints.Screener, req)
	if err != nil {
		return nil, fmt.Errorf("screener: fetch: %w", err)
	}
	s.record(ctx, "query:"+s.query.Root().String(), resp)
	return resp, nil
}

func (s *Screener) record(ctx context.Context, key string, resp map[string]any) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordResponse(ctx, key, resp); err != nil {
		s.logger.Warn("failed to record response", "key", key, "error", err)
	}
}
