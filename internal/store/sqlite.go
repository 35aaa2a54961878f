package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS mtable (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	name                 TEXT NOT NULL,
	shorthand_definition TEXT NOT NULL,
	generated_sql        TEXT NOT NULL,
	created_at           DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore persists table definitions in a local SQLite file.
type SQLiteStore struct {
	db           *sql.DB
	q            queries
	queryTimeout time.Duration
	now          func() time.Time
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string, queryTimeout time.Duration) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	// Single writer; avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)
	return NewSQLiteStore(db, queryTimeout), nil
}

// NewSQLiteStore wraps an open database handle.
func NewSQLiteStore(db *sql.DB, queryTimeout time.Duration) *SQLiteStore {
	return &SQLiteStore{
		db:           db,
		q:            newQueries(sq.Question),
		queryTimeout: queryTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Migrate creates the mtable table if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to create %s table: %w", tableName, err)
	}
	return nil
}

// Insert stores a new definition.
func (s *SQLiteStore) Insert(ctx context.Context, n NewTableDefinition) (*TableDefinition, error) {
	query, args, err := s.q.insert(n, s.now()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build insert: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert table definition: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	def, err := s.get(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("inserted table definition %d not found", id)
	}
	return def, nil
}

// List returns all definitions in insertion order.
func (s *SQLiteStore) List(ctx context.Context) ([]TableDefinition, error) {
	query, args, err := s.q.list().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*TableDefinition, error) {
	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.get(ctx, s.db, id)
}

// Update applies p to the definition with the given id and returns the
// result, or nil if there is no such definition.
func (s *SQLiteStore) Update(ctx context.Context, id int64, p Patch) (*TableDefinition, error) {
	if p.IsEmpty() {
		return s.Get(ctx, id)
	}
	query, args, err := s.q.update(id, p).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update table definition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return s.get(ctx, s.db, id)
}

// Delete removes the definition and returns it, or nil if there was none.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (*TableDefinition, error) {
	query, args, err := s.q.delete(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build delete: %w", err)
	}

	ctx, cancel := withTimeout(ctx, s.queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	def, err := s.get(ctx, tx, id)
	if err != nil || def == nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to delete table definition: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return def, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) get(ctx context.Context, db queryRower, id int64) (*TableDefinition, error) {
	query, args, err := s.q.get(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	def, err := scanDefinition(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table definition: %w", err)
	}
	return def, nil
}
