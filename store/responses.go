package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bawdo/screenq/internal/jsonval"
)

// Snapshot is a stored response body.
type Snapshot struct {
	ID        string
	Key       string
	Body      map[string]any
	CreatedAt time.Time
}

// keyDigest is the indexed form of a request key. Keys grow with the query
// tree, so the column holds the hex SHA-256 and the text is kept beside it.
func keyDigest(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// RecordResponse stores a response body under key. It implements
// screener.Recorder.
func (s *Store) RecordResponse(ctx context.Context, key string, response map[string]any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("store: encode response: %w", err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		s.bind("INSERT INTO responses (id, request_key, request, body, created_at) VALUES (?, ?, ?, ?, ?)"),
		id, keyDigest(key), key, string(body), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("store: record response: %w", err)
	}
	s.logger.Debug("response recorded", "id", id, "key", key, "bytes", len(body))
	return nil
}

// LatestResponse returns the most recent snapshot for key.
func (s *Store) LatestResponse(ctx context.Context, key string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		s.bind("SELECT id, body, created_at FROM responses WHERE request_key = ? AND request = ? ORDER BY created_at DESC LIMIT 1"),
		keyDigest(key), key,
	)
	var (
		snap    = Snapshot{Key: key}
		body    string
		created int64
	)
	if err := row.Scan(&snap.ID, &body, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: response %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("store: latest response: %w", err)
	}
	decoded, err := jsonval.DecodeObject([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("store: decode response %s: %w", snap.ID, err)
	}
	snap.Body = decoded
	snap.CreatedAt = time.Unix(0, created)
	return &snap, nil
}
