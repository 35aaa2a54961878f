package shorthand

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrUnknownType      = errors.New("unknown type")
	ErrMalformedSegment = errors.New("malformed column definition")
	ErrEmptyDefinition  = errors.New("no valid column definitions found")
)

// ErrTableName is returned when the table name is empty or blank.
var ErrTableName = errors.New("table name is required")

// Error is a compilation failure. No statement is produced when one is
// returned.
type Error struct {
	Kind    error  // one of ErrUnknownType, ErrMalformedSegment, ErrEmptyDefinition
	Index   int    // 1-based segment position, 0 if not tied to a segment
	Segment string // offending segment text
	Msg     string
}

func (e *Error) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("column %d (%q): %s", e.Index, e.Segment, e.Msg)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func unknownType(segment, code string) *Error {
	return &Error{Kind: ErrUnknownType, Segment: segment, Msg: "unknown type: " + code}
}

func malformed(segment, msg string) *Error {
	return &Error{Kind: ErrMalformedSegment, Segment: segment, Msg: msg}
}
