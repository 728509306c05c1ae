package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/veriscope/console/pkg/logger"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS console_snapshots (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL CHECK (key <> ''),
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, key)
)`

// SQLiteStore keeps snapshots in a local database file
type SQLiteStore struct {
	sqlStore
	path string
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path, namespace string, log *logger.Logger) (*SQLiteStore, error) {
	dsn := path
	if path == ":memory:" {
		dsn = "file::memory:"
	} else {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create store directory: %w", err)
			}
		}
		dsn = "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// a single writer keeps SQLite from reporting busy under concurrent saves
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot table: %w", err)
	}

	log.Info().Str("path", path).Str("namespace", namespace).Msg("sqlite snapshot store ready")

	return &SQLiteStore{
		sqlStore: sqlStore{db: db, namespace: namespace, logger: log},
		path:     path,
	}, nil
}
