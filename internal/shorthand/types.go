package shorthand

// TypeCode is the short token that selects a column's SQL type, nullability
// and default clause.
type TypeCode string

const (
	TypeID           TypeCode = "id"
	TypeText         TypeCode = "t"
	TypeTextNull     TypeCode = "tn"
	TypeInt          TypeCode = "i"
	TypeIntNull      TypeCode = "in"
	TypeTimestamp    TypeCode = "tz"
	TypeTimestampNow TypeCode = "tzn"
)

// ColumnRule describes how a type code renders.
type ColumnRule struct {
	SQLType    string
	Nullable   bool
	Default    string // empty means no default clause
	PrimaryKey bool
}

// Rule returns the rule for code. ok is false when code is not one of the
// known type codes.
func Rule(code TypeCode) (rule ColumnRule, ok bool) {
	switch code {
	case TypeID:
		return ColumnRule{SQLType: "SERIAL", PrimaryKey: true}, true
	case TypeText:
		return ColumnRule{SQLType: "TEXT", Default: "''"}, true
	case TypeTextNull:
		return ColumnRule{SQLType: "TEXT", Nullable: true}, true
	case TypeInt:
		return ColumnRule{SQLType: "INTEGER", Default: "0"}, true
	case TypeIntNull:
		return ColumnRule{SQLType: "INTEGER", Nullable: true}, true
	case TypeTimestamp:
		return ColumnRule{SQLType: "TIMESTAMPTZ", Nullable: true}, true
	case TypeTimestampNow:
		return ColumnRule{SQLType: "TIMESTAMPTZ", Default: "NOW()"}, true
	}
	return ColumnRule{}, false
}

// TypeInfo describes a type code for clients.
// Frontend should fetch this via API to stay in sync.
type TypeInfo struct {
	Code        string `json:"code"`
	SQLType     string `json:"sqlType"`
	Nullable    bool   `json:"nullable"`
	Default     string `json:"default,omitempty"`
	PrimaryKey  bool   `json:"primaryKey"`
	Description string `json:"description"`
}

var typeDescriptions = []struct {
	code TypeCode
	desc string
}{
	{TypeID, "Auto-increment primary key"},
	{TypeText, "Text, empty string by default"},
	{TypeTextNull, "Nullable text"},
	{TypeInt, "Integer, zero by default"},
	{TypeIntNull, "Nullable integer"},
	{TypeTimestamp, "Nullable timestamp with timezone"},
	{TypeTimestampNow, "Timestamp with timezone, current time by default"},
}

// TypeCodes returns every known type code in display order.
func TypeCodes() []TypeInfo {
	out := make([]TypeInfo, 0, len(typeDescriptions))
	for _, td := range typeDescriptions {
		rule, _ := Rule(td.code)
		out = append(out, TypeInfo{
			Code:        string(td.code),
			SQLType:     rule.SQLType,
			Nullable:    rule.Nullable,
			Default:     rule.Default,
			PrimaryKey:  rule.PrimaryKey,
			Description: td.desc,
		})
	}
	return out
}
