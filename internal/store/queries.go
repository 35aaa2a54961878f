package store

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

const tableName = "mtable"

var columns = []string{"id", "name", "shorthand_definition", "generated_sql", "created_at"}

// returning is appended by backends that support RETURNING on writes.
var returning = "RETURNING " + strings.Join(columns, ", ")

// queries builds the statements shared by every backend. Only the
// placeholder format differs between drivers.
type queries struct {
	qb sq.StatementBuilderType
}

func newQueries(format sq.PlaceholderFormat) queries {
	return queries{qb: sq.StatementBuilder.PlaceholderFormat(format)}
}

func (q queries) list() sq.SelectBuilder {
	return q.qb.Select(columns...).From(tableName).OrderBy("id")
}

func (q queries) get(id int64) sq.SelectBuilder {
	return q.qb.Select(columns...).From(tableName).Where(sq.Eq{"id": id})
}

// insert sets created_at only when createdAt is non-zero; otherwise the
// column default applies.
func (q queries) insert(n NewTableDefinition, createdAt time.Time) sq.InsertBuilder {
	cols := []string{"name", "shorthand_definition", "generated_sql"}
	vals := []any{n.Name, n.ShorthandDefinition, n.GeneratedSQL}
	if !createdAt.IsZero() {
		cols = append(cols, "created_at")
		vals = append(vals, createdAt)
	}
	return q.qb.Insert(tableName).Columns(cols...).Values(vals...)
}

func (q queries) update(id int64, p Patch) sq.UpdateBuilder {
	return q.qb.Update(tableName).SetMap(p.values()).Where(sq.Eq{"id": id})
}

func (q queries) delete(id int64) sq.DeleteBuilder {
	return q.qb.Delete(tableName).Where(sq.Eq{"id": id})
}

// rowScanner is satisfied by pgx.Row, pgx.Rows, *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*TableDefinition, error) {
	var d TableDefinition
	if err := row.Scan(&d.ID, &d.Name, &d.ShorthandDefinition, &d.GeneratedSQL, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// withTimeout returns a context with the query timeout applied.
// If the parent context already has a shorter deadline, that deadline is preserved.
func withTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok && time.Until(deadline) <= timeout {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
