// Package snapshot persists comparison selections in a small key-value store.
//
// Three backends share one contract: an in-process map, a local SQLite file
// and a PostgreSQL table. Every backend scopes keys by a namespace so several
// consoles can share one database.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/veriscope/console/pkg/config"
	"github.com/veriscope/console/pkg/database"
	"github.com/veriscope/console/pkg/logger"
)

// ErrNotFound is returned by Get when no value is stored under the key
var ErrNotFound = errors.New("snapshot not found")

// Store is a namespaced key-value store for snapshot payloads
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open creates the store selected by cfg.Store.Driver and prepares its schema
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (Store, error) {
	ns := cfg.Store.Namespace

	switch cfg.Store.Driver {
	case config.StoreMemory:
		return NewMemoryStore(), nil

	case config.StoreSQLite:
		return OpenSQLite(ctx, cfg.Store.SQLitePath, ns, log)

	case config.StorePostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, err
		}
		s := NewPostgresStore(db, ns, log)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
