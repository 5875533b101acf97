package lexer

import (
	"fmt"

	"github.com/informatter/zinclang/token"
)

// Error is the lexer's closed error taxonomy (spec §4.1/§7). Every error
// carries the Location at which scanning was when it gave up, so a caller
// can always produce a diagnostic against the original source.
type Error struct {
	Kind     Kind
	Location token.Location
	Cause    string
}

// Kind enumerates the lexer's error categories.
type Kind int

const (
	UnexpectedEnd Kind = iota
	InvalidIntegerLiteral
	InvalidWord
	InvalidSymbol
	InvalidCharacter
)

func (k Kind) String() string {
	switch k {
	case UnexpectedEnd:
		return "UnexpectedEnd"
	case InvalidIntegerLiteral:
		return "InvalidIntegerLiteral"
	case InvalidWord:
		return "InvalidWord"
	case InvalidSymbol:
		return "InvalidSymbol"
	case InvalidCharacter:
		return "InvalidCharacter"
	default:
		return "UnknownLexError"
	}
}

func (e Error) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Location, e.Cause)
	}
	return fmt.Sprintf("%s at %s", e.Kind, e.Location)
}
