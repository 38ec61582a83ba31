package mapfile

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a mapfile parse failure.
type ErrorKind int

const (
	ErrKindMalformedCurrentState ErrorKind = iota + 1
	ErrKindMalformedBlock
	ErrKindUnknownStatusCode
	ErrKindNumericOverflow
	ErrKindTrailingInput
)

// Sentinel errors, one per ErrorKind. A *ParseError matches its kind's
// sentinel with errors.Is.
var (
	ErrMalformedCurrentState = errors.New("malformed current-state line")
	ErrMalformedBlock        = errors.New("malformed block line")
	ErrUnknownStatusCode     = errors.New("unknown status code")
	ErrNumericOverflow       = errors.New("numeric overflow")
	ErrTrailingInput         = errors.New("unconsumed trailing input")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case ErrKindMalformedCurrentState:
		return ErrMalformedCurrentState
	case ErrKindMalformedBlock:
		return ErrMalformedBlock
	case ErrKindUnknownStatusCode:
		return ErrUnknownStatusCode
	case ErrKindNumericOverflow:
		return ErrNumericOverflow
	case ErrKindTrailingInput:
		return ErrTrailingInput
	}
	return nil
}

func (k ErrorKind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseError reports where and why a mapfile could not be parsed.
type ParseError struct {
	Kind ErrorKind
	// Construct names the grammar element being parsed, e.g. "current-state line".
	Construct string
	// Offset is the byte offset of the failure; Line and Column are 1-based.
	Offset int
	Line   int
	Column int
	// Detail is an optional human-readable note.
	Detail string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("mapfile: %s in %s at line %d, column %d (offset %d)",
		e.Kind, e.Construct, e.Line, e.Column, e.Offset)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Kind.sentinel()
}

// newParseError builds a ParseError, resolving the offset into a line and column.
func newParseError(data []byte, kind ErrorKind, construct string, offset int, detail string) *ParseError {
	if offset > len(data) {
		offset = len(data)
	}
	line, col := 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return &ParseError{
		Kind:      kind,
		Construct: construct,
		Offset:    offset,
		Line:      line,
		Column:    col,
		Detail:    detail,
	}
}
