package formula

import (
	"errors"
	"fmt"
)

// ParseError is the base error type for all formula errors.
type ParseError struct {
	Message string
	Pos     Position
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Pos.Offset, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Position returns the source location the error points at.
func (e *ParseError) Position() Position { return e.Pos }

// LexError reports an input character that matches no token class.
type LexError struct {
	ParseError
	Char rune
}

// UnexpectedTokenError reports a token that cannot start a group where one
// was required.
type UnexpectedTokenError struct {
	ParseError
	Found    Token
	Expected string
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("offset %d: expected %s, got %s", e.Pos.Offset, e.Expected, e.Found.describe())
}

// UnmatchedBracketError reports end of input while a closing bracket was
// still expected. Pos is the EOF position; Open is the bracket left open.
type UnmatchedBracketError struct {
	ParseError
	Open Position
}

// TrailingInputError reports input left over after a complete molecule.
type TrailingInputError struct {
	ParseError
	Found Token
}

// ValueError reports a factor or a multiplied count that does not fit in an int.
type ValueError struct{ ParseError }

// Error kinds as reported by Kind.
const (
	KindLex              = "lex"
	KindUnexpectedToken  = "unexpected_token"
	KindUnmatchedBracket = "unmatched_bracket"
	KindTrailingInput    = "trailing_input"
	KindValue            = "value"
)

// Kind returns a stable name for the kind of formula error wrapped in err,
// or "" if err is not a formula error.
func Kind(err error) string {
	var (
		lexErr     *LexError
		unexpected *UnexpectedTokenError
		unmatched  *UnmatchedBracketError
		trailing   *TrailingInputError
		valueErr   *ValueError
	)
	switch {
	case errors.As(err, &lexErr):
		return KindLex
	case errors.As(err, &unexpected):
		return KindUnexpectedToken
	case errors.As(err, &unmatched):
		return KindUnmatchedBracket
	case errors.As(err, &trailing):
		return KindTrailingInput
	case errors.As(err, &valueErr):
		return KindValue
	}
	return ""
}

// ErrorPosition extracts the source position from a formula error.
func ErrorPosition(err error) (Position, bool) {
	var positioned interface{ Position() Position }
	if errors.As(err, &positioned) {
		return positioned.Position(), true
	}
	return Position{}, false
}
