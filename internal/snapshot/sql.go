package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/veriscope/console/pkg/logger"
)

// Queries are written with ? placeholders and rebound per driver
const (
	getQuery = `SELECT payload FROM console_snapshots WHERE namespace = ? AND key = ?`

	setQuery = `INSERT INTO console_snapshots (namespace, key, payload, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

	deleteQuery = `DELETE FROM console_snapshots WHERE namespace = ? AND key = ?`
)

// sqlStore is the part of the SQLite and PostgreSQL stores that is the same
type sqlStore struct {
	db        *sqlx.DB
	namespace string
	logger    *logger.Logger
	// mapErr translates driver errors; it returns nil for errors it does not know
	mapErr func(error) error
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, s.db.Rebind(getQuery), s.namespace, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.wrap("get", key, err)
	}
	return payload, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(setQuery), s.namespace, key, string(value), time.Now().UTC())
	if err != nil {
		return s.wrap("set", key, err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(deleteQuery), s.namespace, key); err != nil {
		return s.wrap("delete", key, err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) wrap(op, key string, err error) error {
	if s.mapErr != nil {
		if mapped := s.mapErr(err); mapped != nil {
			return mapped
		}
	}
	return fmt.Errorf("failed to %s snapshot %s/%s: %w", op, s.namespace, key, err)
}
