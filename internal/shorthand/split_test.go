package shorthand

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		grammar Grammar
		want    []string
	}{
		{"commas", "a t, b i", GrammarSpace, []string{"a t", "b i"}},
		{"mixed delimiters", " a t ,\n b i \n\n, c tz ", GrammarSpace, []string{"a t", "b i", "c tz"}},
		{"quoted comma", "a t d 'x, y', b i", GrammarSpace, []string{"a t d 'x, y'", "b i"}},
		{"parenthesized comma", "a NUMERIC(10, 2), b i", GrammarSpace, []string{"a NUMERIC(10, 2)", "b i"}},
		{"colon keeps commas", "a:t d 'x, y'\nb:i", GrammarColon, []string{"a:t d 'x, y'", "b:i"}},
		{"empty", "", GrammarSpace, nil},
		{"whitespace only", " \n\t ", GrammarColon, nil},
		{"auto colon", "a:t\nb:i", GrammarAuto, []string{"a:t", "b:i"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Split(tt.text, tt.grammar))
		})
	}
}

func TestDetectGrammar(t *testing.T) {
	require.Equal(t, GrammarColon, DetectGrammar("title:t\ndescription:tn"))
	require.Equal(t, GrammarColon, DetectGrammar("\n\n   id:id"))
	require.Equal(t, GrammarSpace, DetectGrammar("name t, email t"))
	require.Equal(t, GrammarSpace, DetectGrammar("starts t d '12:00'"))
	require.Equal(t, GrammarSpace, DetectGrammar(""))
}

func TestParseGrammar(t *testing.T) {
	for in, want := range map[string]Grammar{
		"":      GrammarAuto,
		"auto":  GrammarAuto,
		"Space": GrammarSpace,
		"colon": GrammarColon,
	} {
		got, err := ParseGrammar(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
		if in != "" {
			require.Equal(t, want.String(), got.String())
		}
	}
	_, err := ParseGrammar("yaml")
	require.Error(t, err)
}

func TestTypeCodes(t *testing.T) {
	codes := TypeCodes()
	require.Len(t, codes, 7)
	for _, info := range codes {
		rule, ok := Rule(TypeCode(info.Code))
		require.True(t, ok, info.Code)
		require.Equal(t, rule.SQLType, info.SQLType)
		require.Equal(t, rule.PrimaryKey, info.Code == "id")
	}
	_, ok := Rule("varchar")
	require.False(t, ok)
}

func TestStripQuoted(t *testing.T) {
	for in, want := range map[string]string{
		"TEXT DEFAULT 'primary key'": "TEXT DEFAULT ?",
		"TEXT DEFAULT 'it''s'":       "TEXT DEFAULT ??",
		"VARCHAR(8) PRIMARY KEY":     "VARCHAR(8) PRIMARY KEY",
		"TEXT PRIMARY 'x' KEY":       "TEXT PRIMARY ? KEY",
	} {
		require.Equal(t, want, stripQuoted(in), in)
	}
}
