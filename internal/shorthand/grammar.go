package shorthand

import (
	"fmt"
	"strings"
)

// Grammar selects the surface syntax of a shorthand definition.
//
// The space grammar ("name t, email t") is permissive: segments are split on
// commas or newlines, an unrecognized type is passed through as raw SQL, and
// an id primary key is synthesized when no column provides one.
//
// The colon grammar ("name:t" one per line) is strict: segments are split on
// newlines only, unknown types are rejected, nothing is synthesized and an
// empty definition is an error.
type Grammar int

const (
	GrammarAuto Grammar = iota
	GrammarSpace
	GrammarColon
)

func (g Grammar) String() string {
	switch g {
	case GrammarSpace:
		return "space"
	case GrammarColon:
		return "colon"
	default:
		return "auto"
	}
}

// ParseGrammar parses a grammar name. The empty string means auto.
func ParseGrammar(s string) (Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return GrammarAuto, nil
	case "space":
		return GrammarSpace, nil
	case "colon":
		return GrammarColon, nil
	}
	return GrammarAuto, fmt.Errorf("unknown grammar %q: want auto, space or colon", s)
}

// DetectGrammar picks the grammar from the first non-empty line: if its first
// token contains a colon the text is in colon form, otherwise space form.
func DetectGrammar(text string) Grammar {
	for _, line := range strings.Split(text, "\n") {
		first, _ := cutToken(line)
		if first == "" {
			continue
		}
		if strings.Contains(first, ":") {
			return GrammarColon
		}
		return GrammarSpace
	}
	return GrammarSpace
}

func (g Grammar) resolve(text string) Grammar {
	if g == GrammarAuto {
		return DetectGrammar(text)
	}
	return g
}
