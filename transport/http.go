// Package transport implements screener.Transport over HTTP.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/bawdo/screenq/internal/jsonval"
	"github.com/bawdo/screenq/screener"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "screenq/1.0"

	// maxErrorBody caps how much of a failed response is kept in StatusError.
	maxErrorBody = 512
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Code      int
	Body      string
	RequestID string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("transport: status %d (request %s): %s", e.Code, e.RequestID, e.Body)
}

// HTTP sends JSON requests and decodes JSON responses.
type HTTP struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ screener.Transport = (*HTTP)(nil)

// Option configures an HTTP transport.
type Option func(*HTTP)

// WithTimeout sets the client timeout.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTP) { h.client.Timeout = d }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(h *HTTP) { h.userAgent = ua }
}

// WithHTTPClient uses a copy of c as the underlying client, so later
// options never modify the caller's client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTP) {
		if c == nil {
			return
		}
		cp := *c
		h.client = &cp
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *HTTP) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTP creates an HTTP transport.
func NewHTTP(opts ...Option) *HTTP {
	h := &HTTP{
		client:    &http.Client{Timeout: defaultTimeout},
		userAgent: defaultUserAgent,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Post sends body as JSON and decodes the JSON response object.
func (h *HTTP) Post(ctx context.Context, rawURL string, body map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("transport: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return h.do(req)
}

// Get sends a GET with params appended to the URL's query string.
func (h *HTTP) Get(ctx context.Context, rawURL string, params url.Values) (map[string]any, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return h.do(req)
}

func (h *HTTP) do(req *http.Request) (map[string]any, error) {
	id := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("X-Request-Id", id)

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.URL.Redacted(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}
	h.logger.Debug("http request",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"status", resp.StatusCode,
		"request_id", id,
		"bytes", len(data),
		"elapsed", time.Since(start),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(data), maxErrorBody), RequestID: id}
	}
	out, err := jsonval.DecodeObject(data)
	if err != nil {
		return nil, fmt.Errorf("transport: decode response: %w", err)
	}
	return out, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	if !strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		return io.ReadAll(resp.Body)
	}
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, err
	}
	defer func() { _ = zr.Close() }()
	return io.ReadAll(zr)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
