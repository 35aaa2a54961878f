package store

import "time"

// TableDefinition is a stored shorthand definition together with the
// statement generated from it.
type TableDefinition struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	ShorthandDefinition string    `json:"shorthand_definition"`
	GeneratedSQL        string    `json:"generated_sql"`
	CreatedAt           time.Time `json:"created_at"`
}

// NewTableDefinition holds the fields supplied on insert. ID and CreatedAt
// are assigned by the store.
type NewTableDefinition struct {
	Name                string
	ShorthandDefinition string
	GeneratedSQL        string
}

// Patch lists the fields to overwrite on update. Nil fields are left as is.
type Patch struct {
	Name                *string
	ShorthandDefinition *string
	GeneratedSQL        *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.ShorthandDefinition == nil && p.GeneratedSQL == nil
}

func (p Patch) values() map[string]any {
	m := make(map[string]any, 3)
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.ShorthandDefinition != nil {
		m["shorthand_definition"] = *p.ShorthandDefinition
	}
	if p.GeneratedSQL != nil {
		m["generated_sql"] = *p.GeneratedSQL
	}
	return m
}
