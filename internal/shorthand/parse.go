package shorthand

import (
	"strings"
	"unicode"
)

// ParseSegment parses a single trimmed segment. With GrammarAuto the grammar
// is detected from the segment itself.
func ParseSegment(segment string, g Grammar) (ColumnSpec, error) {
	segment = strings.TrimSpace(segment)
	if g.resolve(segment) == GrammarColon {
		return parseColon(segment)
	}
	return parseSpace(segment)
}

// parseColon parses <name>:<code>[ d '<literal>'].
func parseColon(seg string) (ColumnSpec, error) {
	name, rest, ok := strings.Cut(seg, ":")
	if !ok {
		return ColumnSpec{}, malformed(seg, "expected <name>:<type>")
	}
	name = strings.TrimSpace(name)
	if !validColumnName(name) {
		return ColumnSpec{}, malformed(seg, "missing or invalid column name")
	}

	code, tail := cutToken(rest)
	if code == "" {
		return ColumnSpec{}, malformed(seg, "missing type")
	}
	if _, ok := Rule(TypeCode(code)); !ok {
		return ColumnSpec{}, unknownType(seg, code)
	}

	col := ColumnSpec{Name: name, Type: TypeCode(code)}
	if tail == "" {
		return col, nil
	}
	lit, isDefault := cutDefaultMarker(tail)
	if !isDefault {
		return ColumnSpec{}, malformed(seg, "unexpected "+quote(tail)+" after type")
	}
	if !validLiteral(lit) {
		return ColumnSpec{}, malformed(seg, "default marker needs a single-quoted literal")
	}
	col.Default = &lit
	return col, nil
}

// parseSpace parses <name> <code>[ d '<literal>'], falling back to raw SQL
// after the name when the remainder is not in that form.
func parseSpace(seg string) (ColumnSpec, error) {
	name, rest := cutToken(seg)
	if !validColumnName(name) {
		return ColumnSpec{}, malformed(seg, "missing or invalid column name")
	}
	if rest == "" {
		return ColumnSpec{}, malformed(seg, "missing type")
	}

	code, tail := cutToken(rest)
	if _, ok := Rule(TypeCode(code)); ok {
		col := ColumnSpec{Name: name, Type: TypeCode(code)}
		if tail == "" {
			return col, nil
		}
		if lit, isDefault := cutDefaultMarker(tail); isDefault {
			if !validLiteral(lit) {
				return ColumnSpec{}, malformed(seg, "default marker needs a single-quoted literal")
			}
			col.Default = &lit
			return col, nil
		}
	}

	if strings.Count(rest, "'")%2 != 0 {
		return ColumnSpec{}, malformed(seg, "unterminated quoted literal")
	}
	if base, lit, ok := cutRawDefault(rest); ok {
		if base == "" {
			return ColumnSpec{}, malformed(seg, "missing type")
		}
		if !validLiteral(lit) {
			return ColumnSpec{}, malformed(seg, "default marker needs a single-quoted literal")
		}
		return ColumnSpec{Name: name, Raw: collapseSpace(base) + " DEFAULT " + lit}, nil
	}
	return ColumnSpec{Name: name, Raw: collapseSpace(rest)}, nil
}

// cutDefaultMarker reports whether s starts with the d marker and returns
// the trimmed literal that follows it.
func cutDefaultMarker(s string) (string, bool) {
	if !strings.HasPrefix(s, "d") {
		return "", false
	}
	after := s[1:]
	if after != "" && after[0] != '\'' && !unicode.IsSpace(rune(after[0])) {
		return "", false
	}
	return strings.TrimSpace(after), true
}

// cutRawDefault finds a d marker in raw column SQL: a standalone "d" outside
// quotes and parentheses that is followed by a quoted literal. It returns the
// SQL before the marker and the trimmed text after it.
func cutRawDefault(raw string) (base, lit string, ok bool) {
	var (
		inQuote bool
		depth   int
	)
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == 'd' && depth == 0 && (i == 0 || raw[i-1] == ' ' || raw[i-1] == '\t'):
			if after := strings.TrimSpace(raw[i+1:]); strings.HasPrefix(after, "'") {
				return strings.TrimSpace(raw[:i]), after, true
			}
		}
	}
	return "", "", false
}

// validLiteral accepts exactly one single-quoted literal. Embedded quotes
// must be doubled.
func validLiteral(lit string) bool {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return false
	}
	inner := lit[1 : len(lit)-1]
	for i := 0; i < len(inner); i++ {
		if inner[i] != '\'' {
			continue
		}
		if i+1 < len(inner) && inner[i+1] == '\'' {
			i++
			continue
		}
		return false
	}
	return true
}

// validColumnName checks for an unquoted identifier: a letter or underscore
// followed by letters, digits, underscores or dollar signs.
func validColumnName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '$'):
		default:
			return false
		}
	}
	return true
}

func quote(s string) string {
	return `"` + s + `"`
}
