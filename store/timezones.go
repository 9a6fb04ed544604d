package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// LookupTimezone returns the cached IANA zone for ticker.
func (s *Store) LookupTimezone(ctx context.Context, ticker string) (string, error) {
	var tz string
	err := s.db.QueryRowContext(ctx, s.bind("SELECT tz FROM timezones WHERE ticker = ?"), normalizeTicker(ticker)).Scan(&tz)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: timezone for %q", ErrNotFound, ticker)
	}
	if err != nil {
		return "", fmt.Errorf("store: lookup timezone: %w", err)
	}
	return tz, nil
}

// StoreTimezone caches the zone for ticker, replacing any previous value.
func (s *Store) StoreTimezone(ctx context.Context, ticker, tz string) error {
	if strings.TrimSpace(tz) == "" {
		return fmt.Errorf("store: empty timezone for %q", ticker)
	}
	if _, err := s.db.ExecContext(ctx, s.bind(s.dialect.upsertTZ), normalizeTicker(ticker), tz); err != nil {
		return fmt.Errorf("store: store timezone: %w", err)
	}
	return nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
