package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tabledef/internal/shorthand"
)

// mtableShorthand describes the store's own table in shorthand notation.
const mtableShorthand = "name t, shorthand_definition t, generated_sql t, created_at tzn"

// PostgresStore persists table definitions in PostgreSQL.
type PostgresStore struct {
	pool         *pgxpool.Pool
	q            queries
	queryTimeout time.Duration
}

// NewPostgresStore creates a store on an open pool. The caller owns the pool
// unless Close is called.
func NewPostgresStore(pool *pgxpool.Pool, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{
		pool:         pool,
		q:            newQueries(sq.Dollar),
		queryTimeout: queryTimeout,
	}
}

// postgresSchema returns the CREATE TABLE statement for the mtable table.
func postgresSchema() (string, error) {
	ddl, err := shorthand.Compile(tableName, mtableShorthand)
	if err != nil {
		return "", err
	}
	return strings.Replace(ddl, "CREATE TABLE ", "CREATE TABLE IF NOT EXISTS ", 1), nil
}

// Migrate creates the mtable table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl, err := postgresSchema()
	if err != nil {
		return fmt.Errorf("failed to build schema: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create %s table: %w", tableName, err)
	}
	return nil
}

// Insert stores a new definition. id and created_at are assigned by the database.
func (s *PostgresStore) Insert(ctx context.Context, n NewTableDefinition) (*TableDefinition, error) {
	query, args, err := s.q.insert(n, time.Time{}).Suffix(returning).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	def, err := scanDefinition(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to insert table definition: %w", err)
	}
	return def, nil
}

// List returns all definitions in insertion order.
func (s *PostgresStore) List(ctx context.Context) ([]TableDefinition, error) {
	query, args, err := s.q.list().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list table definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]TableDefinition, 0, 16)
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table definition: %w", err)
		}
		defs = append(defs, *def)
	}
	return defs, rows.Err()
}

// Get returns the definition with the given id, or nil if there is none.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*TableDefinition, error) {
	query, args, err := s.q.get(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	return s.queryOne(ctx, "get", query, args)
}

// Update applies p to the definition with the given id and returns the
// result, or nil if there is no such definition.
func (s *PostgresStore) Update(ctx context.Context, id int64, p Patch) (*TableDefinition, error) {
	if p.IsEmpty() {
		return s.Get(ctx, id)
	}
	query, args, err := s.q.update(id, p).Suffix(returning).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}
	return s.queryOne(ctx, "update", query, args)
}

// Delete removes the definition and returns it, or nil if there was none.
func (s *PostgresStore) Delete(ctx context.Context, id int64) (*TableDefinition, error) {
	query, args, err := s.q.delete(id).Suffix(returning).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete: %w", err)
	}
	return s.queryOne(ctx, "delete", query, args)
}

// Close closes the underlying pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) queryOne(ctx context.Context, op, query string, args []any) (*TableDefinition, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	def, err := scanDefinition(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s table definition: %w", op, err)
	}
	return def, nil
}
