// Package shorthand compiles compact column notation into PostgreSQL
// CREATE TABLE statements.
//
// Compilation is a pure function of the table name and definition text:
// no I/O, no shared state, safe for concurrent use.
package shorthand

import (
	"errors"
	"strings"
)

// Compile renders a CREATE TABLE statement, detecting the grammar from text.
func Compile(table, text string) (string, error) {
	return CompileWith(table, text, GrammarAuto)
}

// CompileWith renders a CREATE TABLE statement using grammar g.
func CompileWith(table, text string, g Grammar) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", ErrTableName
	}
	cols, err := Columns(text, g)
	if err != nil {
		return "", err
	}
	return Render(table, cols), nil
}

// Columns parses text into the final ordered column list, including the
// synthesized id column when the grammar calls for one.
func Columns(text string, g Grammar) ([]ColumnSpec, error) {
	g = g.resolve(text)
	segments := Split(text, g)

	cols := make([]ColumnSpec, 0, len(segments)+1)
	for i, seg := range segments {
		col, err := ParseSegment(seg, g)
		if err != nil {
			var e *Error
			if errors.As(err, &e) {
				e.Index = i + 1
			}
			return nil, err
		}
		cols = append(cols, col)
	}

	switch g {
	case GrammarColon:
		if len(cols) == 0 {
			return nil, &Error{Kind: ErrEmptyDefinition, Msg: ErrEmptyDefinition.Error()}
		}
	default:
		if !hasPrimaryKey(cols) {
			cols = append([]ColumnSpec{IDColumn()}, cols...)
		}
	}
	return cols, nil
}

// Render assembles the statement. The table name is inserted verbatim.
func Render(table string, cols []ColumnSpec) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table)
	b.WriteString(" (\n")
	for i, c := range cols {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString("  ")
		b.WriteString(c.Clause())
	}
	b.WriteString("\n);")
	return b.String()
}
