// Package store persists table definitions in PostgreSQL or SQLite.
//
// Lookups of a missing id return (nil, nil): absence is not an error.
package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tabledef/internal/config"
)

// Backend is implemented by PostgresStore and SQLiteStore.
type Backend interface {
	Migrate(ctx context.Context) error
	Insert(ctx context.Context, n NewTableDefinition) (*TableDefinition, error)
	List(ctx context.Context) ([]TableDefinition, error)
	Get(ctx context.Context, id int64) (*TableDefinition, error)
	Update(ctx context.Context, id int64, p Patch) (*TableDefinition, error)
	Delete(ctx context.Context, id int64) (*TableDefinition, error)
	Close() error
}

var (
	_ Backend = (*PostgresStore)(nil)
	_ Backend = (*SQLiteStore)(nil)
)

// Open connects to the backend selected by cfg.StoreDriver and ensures the
// schema exists.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	var b Backend
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		b = NewPostgresStore(pool, cfg.QueryTimeout)
	case config.DriverSQLite:
		s, err := OpenSQLite(cfg.SQLitePath, cfg.QueryTimeout)
		if err != nil {
			return nil, err
		}
		b = s
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	if err := b.Migrate(ctx); err != nil {
		b.Close()
		return nil, err
	}
	log.Printf("[STORE] Using %s store (%s)", cfg.StoreDriver, cfg.CurrentDatabase())
	return b, nil
}
