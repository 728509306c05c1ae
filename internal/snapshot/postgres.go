package snapshot

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/veriscope/console/pkg/database"
	"github.com/veriscope/console/pkg/logger"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS console_snapshots (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (namespace, key),
	CONSTRAINT console_snapshots_key_not_empty CHECK (key <> ''),
	CONSTRAINT console_snapshots_payload_object CHECK (jsonb_typeof(payload) = 'object')
)`

const postgresUpdatedIndex = `CREATE INDEX IF NOT EXISTS console_snapshots_updated_at_idx
	ON console_snapshots (namespace, updated_at DESC)`

// PostgresStore keeps snapshots in the console_snapshots table
type PostgresStore struct {
	sqlStore
	conn *database.DB
}

// NewPostgresStore uses an open connection. Call Migrate before first use
// on a fresh database.
func NewPostgresStore(db *database.DB, namespace string, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		sqlStore: sqlStore{
			db:        db.DB,
			namespace: namespace,
			logger:    log,
			mapErr: func(err error) error {
				if appErr := database.MapPQError(err); appErr != nil {
					return appErr
				}
				return nil
			},
		},
		conn: db,
	}
}

// Migrate creates the snapshot table and its index in one transaction
func (s *PostgresStore) Migrate(ctx context.Context) error {
	err := s.conn.Transaction(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{postgresSchema, postgresUpdatedIndex} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to migrate snapshot table: %w", err)
	}
	return nil
}

// Health reports the connection state
func (s *PostgresStore) Health(ctx context.Context) map[string]string {
	return s.conn.Health(ctx)
}
