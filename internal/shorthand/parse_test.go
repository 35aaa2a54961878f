package shorthand

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }

func TestParseSegment(t *testing.T) {
	tests := []struct {
		segment string
		grammar Grammar
		want    ColumnSpec
	}{
		{"title:t", GrammarColon, ColumnSpec{Name: "title", Type: TypeText}},
		{"  title:t  ", GrammarAuto, ColumnSpec{Name: "title", Type: TypeText}},
		{"status:t d 'active'", GrammarColon, ColumnSpec{Name: "status", Type: TypeText, Default: strp("'active'")}},
		{"status:t d'active'", GrammarColon, ColumnSpec{Name: "status", Type: TypeText, Default: strp("'active'")}},
		{"empty:tn d ''", GrammarColon, ColumnSpec{Name: "empty", Type: TypeTextNull, Default: strp("''")}},
		{"count   i", GrammarSpace, ColumnSpec{Name: "count", Type: TypeInt}},
		{"count i   d   '7'", GrammarAuto, ColumnSpec{Name: "count", Type: TypeInt, Default: strp("'7'")}},
		{"key id", GrammarSpace, ColumnSpec{Name: "key", Type: TypeID}},
		{"data JSONB", GrammarSpace, ColumnSpec{Name: "data", Raw: "JSONB"}},
		{"label t   UNIQUE", GrammarSpace, ColumnSpec{Name: "label", Raw: "t UNIQUE"}},
		{"code varchar(8) d 'a'", GrammarSpace, ColumnSpec{Name: "code", Raw: "varchar(8) DEFAULT 'a'"}},
		{"code varchar(8)   NOT NULL d'x y'", GrammarSpace, ColumnSpec{Name: "code", Raw: "varchar(8) NOT NULL DEFAULT 'x y'"}},
		{"qty INTEGER CHECK (d > 0)", GrammarSpace, ColumnSpec{Name: "qty", Raw: "INTEGER CHECK (d > 0)"}},
		{"_x$1 t", GrammarSpace, ColumnSpec{Name: "_x$1", Type: TypeText}},
	}
	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			got, err := ParseSegment(tt.segment, tt.grammar)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestColumnSpec_Clause(t *testing.T) {
	tests := []struct {
		code TypeCode
		want string
	}{
		{TypeID, "c SERIAL PRIMARY KEY"},
		{TypeText, "c TEXT NOT NULL DEFAULT ''"},
		{TypeTextNull, "c TEXT"},
		{TypeInt, "c INTEGER NOT NULL DEFAULT 0"},
		{TypeIntNull, "c INTEGER"},
		{TypeTimestamp, "c TIMESTAMPTZ"},
		{TypeTimestampNow, "c TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			col := ColumnSpec{Name: "c", Type: tt.code}
			require.Equal(t, tt.want, col.Clause())
			require.Equal(t, tt.code == TypeID, col.IsPrimaryKey())
		})
	}

	// Override replaces the default but never the nullability.
	require.Equal(t, "c SERIAL DEFAULT '5' PRIMARY KEY", ColumnSpec{Name: "c", Type: TypeID, Default: strp("'5'")}.Clause())
	require.Equal(t, "c INTEGER DEFAULT '5'", ColumnSpec{Name: "c", Type: TypeIntNull, Default: strp("'5'")}.Clause())
}

func TestValidLiteral(t *testing.T) {
	for lit, want := range map[string]bool{
		"'a'":       true,
		"''":        true,
		"'it''s'":   true,
		"'{}'":      true,
		"'a' 'b'":   false,
		"'it's'":    false,
		"'open":     false,
		"plain":     false,
		"'":         false,
		"'trail'x":  false,
		"'x''''y'":  true,
		"'''quote'": true,
	} {
		require.Equal(t, want, validLiteral(lit), lit)
	}
}
