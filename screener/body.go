package screener

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// MaxSize is the largest page the screener endpoint accepts.
const MaxSize = 250

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("screener: validation failed")

// ValidationError reports a request body or argument that would be rejected
// by the server. It is raised before any transport call.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("screener: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Body is the request-body configuration sent alongside the query.
type Body struct {
	Offset     int    `koanf:"offset" yaml:"offset"`
	Size       int    `koanf:"size" yaml:"size"`
	SortField  string `koanf:"sort_field" yaml:"sort_field"`
	SortType   string `koanf:"sort_type" yaml:"sort_type"`
	QuoteType  string `koanf:"quote_type" yaml:"quote_type"`
	UserID     string `koanf:"user_id" yaml:"user_id"`
	UserIDType string `koanf:"user_id_type" yaml:"user_id_type"`
}

var quoteTypes = []string{"EQUITY", "ETF", "MUTUALFUND"}

// DefaultBody returns the body used when none is configured.
func DefaultBody() Body {
	return Body{
		Offset:     0,
		Size:       25,
		SortField:  "ticker",
		SortType:   "DESC",
		QuoteType:  "EQUITY",
		UserID:     "",
		UserIDType: "guid",
	}
}

// Validate checks the body against the server's limits.
func (b Body) Validate() error {
	if err := validateCount("size", b.Size); err != nil {
		return err
	}
	if b.Offset < 0 {
		return &ValidationError{Field: "offset", Value: b.Offset, Reason: "must not be negative"}
	}
	if st := strings.ToUpper(b.SortType); st != "ASC" && st != "DESC" {
		return &ValidationError{Field: "sortType", Value: b.SortType, Reason: "must be ASC or DESC"}
	}
	if !slices.Contains(quoteTypes, strings.ToUpper(b.QuoteType)) {
		return &ValidationError{Field: "quoteType", Value: b.QuoteType, Reason: "must be one of " + strings.Join(quoteTypes, ", ")}
	}
	return nil
}

func validateCount(field string, n int) error {
	if n > MaxSize {
		return &ValidationError{Field: field, Value: n, Reason: fmt.Sprintf("must be at most %d", MaxSize)}
	}
	if n < 1 {
		return &ValidationError{Field: field, Value: n, Reason: "must be at least 1"}
	}
	return nil
}

// Map returns a fresh request body map. The query key is added by the
// Screener at fetch time.
func (b Body) Map() map[string]any {
	return map[string]any{
		"offset":     b.Offset,
		"size":       b.Size,
		"sortField":  b.SortField,
		"sortType":   strings.ToUpper(b.SortType),
		"quoteType":  strings.ToUpper(b.QuoteType),
		"userId":     b.UserID,
		"userIdType": b.UserIDType,
	}
}
