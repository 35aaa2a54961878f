package shorthand

import "strings"

// ColumnSpec is one parsed column of a shorthand definition.
type ColumnSpec struct {
	Name    string
	Type    TypeCode
	Default *string // explicit override, rendered verbatim after DEFAULT
	Raw     string  // raw SQL after the name (space grammar only); Type is unset
}

// IDColumn is the column synthesized when a definition has no primary key.
func IDColumn() ColumnSpec {
	return ColumnSpec{Name: "id", Type: TypeID}
}

// IsPrimaryKey reports whether the column renders as a primary key.
func (c ColumnSpec) IsPrimaryKey() bool {
	if c.Raw != "" {
		return strings.Contains(strings.ToUpper(collapseSpace(stripQuoted(c.Raw))), "PRIMARY KEY")
	}
	rule, _ := Rule(c.Type)
	return rule.PrimaryKey
}

// Clause renders the column as a single CREATE TABLE column clause:
// <name> <SQL type> [NOT NULL] [DEFAULT <expr>] [PRIMARY KEY]
func (c ColumnSpec) Clause() string {
	if c.Raw != "" {
		return c.Name + " " + c.Raw
	}

	rule, _ := Rule(c.Type)
	parts := []string{c.Name, rule.SQLType}

	if !rule.Nullable && !rule.PrimaryKey {
		parts = append(parts, "NOT NULL")
	}

	def := rule.Default
	if c.Default != nil {
		def = *c.Default
	}
	if def != "" {
		parts = append(parts, "DEFAULT "+def)
	}

	if rule.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
	}
	return strings.Join(parts, " ")
}

func hasPrimaryKey(cols []ColumnSpec) bool {
	for _, c := range cols {
		if c.IsPrimaryKey() {
			return true
		}
	}
	return false
}
