package shorthand

import (
	"strings"
	"unicode"
)

// Split breaks text into trimmed, non-empty segments using the separators of
// g. Separators inside single-quoted literals do not split, and commas inside
// parentheses do not split, so raw types such as NUMERIC(10, 2) stay whole.
func Split(text string, g Grammar) []string {
	g = g.resolve(text)

	var (
		segments []string
		b        strings.Builder
		inQuote  bool
		depth    int
	)
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			segments = append(segments, s)
		}
		b.Reset()
	}
	for _, r := range text {
		switch {
		case r == '\'':
			inQuote = !inQuote
			b.WriteRune(r)
		case !inQuote && r == '(':
			depth++
			b.WriteRune(r)
		case !inQuote && r == ')' && depth > 0:
			depth--
			b.WriteRune(r)
		case !inQuote && r == '\n':
			depth = 0
			flush()
		case !inQuote && depth == 0 && isSeparator(r, g):
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return segments
}

func isSeparator(r rune, g Grammar) bool {
	return r == '\n' || (g == GrammarSpace && r == ',')
}

// cutToken returns the first whitespace-delimited token of s and the trimmed
// remainder.
func cutToken(s string) (token, rest string) {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimSpace(s[i:])
}

// collapseSpace replaces whitespace runs outside quotes with a single space.
func collapseSpace(s string) string {
	var (
		b       strings.Builder
		inQuote bool
		pending bool
	)
	for _, r := range strings.TrimSpace(s) {
		if !inQuote && unicode.IsSpace(r) {
			pending = true
			continue
		}
		if pending {
			b.WriteByte(' ')
			pending = false
		}
		if r == '\'' {
			inQuote = !inQuote
		}
		b.WriteRune(r)
	}
	return b.String()
}

// stripQuoted replaces each single-quoted literal with a "?" placeholder so
// keyword checks only see SQL text.
func stripQuoted(s string) string {
	var (
		b       strings.Builder
		inQuote bool
	)
	for _, r := range s {
		if r == '\'' {
			if !inQuote {
				b.WriteByte('?')
			}
			inQuote = !inQuote
			continue
		}
		if !inQuote {
			b.WriteRune(r)
		}
	}
	return b.String()
}
