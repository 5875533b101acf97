package parser

import (
	"fmt"

	"github.com/informatter/zinclang/token"
)

// Error is a compile-time Syntax error (spec §7): the parser encountered a
// token it could not fit into the grammar rule it was trying to satisfy.
// Parsing stops at the first error — there is no error-recovery pass, per
// spec §7's "compilation stops at the first error" policy, a narrowing of
// the teacher's parser/parser.go (which collects multiple errors and
// resynchronizes past each one).
type Error struct {
	Location token.Location
	Expected string
	Got      token.Token
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: expected %s, found %q", e.Location, e.Expected, e.Got.Lexeme)
}

// Expected constructs a syntax Error reporting that `want` was expected at
// got's location but got was found instead. This is the single shape every
// parser state machine in this package raises (spec §7's `Syntax{Expected}`).
func Expected(want string, got token.Token) *Error {
	return &Error{Location: got.Location, Expected: want, Got: got}
}
