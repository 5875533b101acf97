// Package semantic resolves identifiers and types over the parser's AST
// and checks every operator application against its declared signature,
// producing the closed error taxonomy of spec §7's `Semantic{...}` family.
//
// The scope tree (Scope.Parent chain, map-backed bindings per scope) is
// grounded on the teacher's interpreter/environment.go `Environment`, but
// generalized from the teacher's single flat, parent-less map into a
// proper tree: the teacher's REPL only ever has one live scope at a time,
// so sibling blocks never needed isolation from each other. This
// language's nested blocks, loop bodies, and function bodies do.
//
// The error taxonomy is grounded on compiler/errors.go's
// SemanticError/DeveloperError split (a user-facing vs. a bug-class
// error), generalized here into the full closed set spec §7 names.
package semantic

import (
	"fmt"

	"github.com/informatter/zinclang/token"
)

// Kind is the closed taxonomy of semantic errors (spec §7).
type Kind int

const (
	KindOperandFirstOperatorUnavailable Kind = iota
	KindOperandSecondOperatorUnavailable
	KindOperandTypeMismatch
	KindIndexSecondOperandExpectedIntegerOrRange
	KindCastToInvalidType
	KindUndefinedIdentifier
	KindUndefinedType
	KindDuplicateBinding
	KindAssignToImmutable
	KindConstantExpressionRequired
	KindLoopBoundsNotConstant
	KindFunctionNotMonomorphic
	KindRecursiveFunction
	KindArityMismatch
	KindFieldNotFound
	KindWrongNumberOfStructFields
)

func (k Kind) String() string {
	names := [...]string{
		"OperandFirstOperatorUnavailable",
		"OperandSecondOperatorUnavailable",
		"OperandTypeMismatch",
		"IndexSecondOperandExpectedIntegerOrRange",
		"CastToInvalidType",
		"UndefinedIdentifier",
		"UndefinedType",
		"DuplicateBinding",
		"AssignToImmutable",
		"ConstantExpressionRequired",
		"LoopBoundsNotConstant",
		"FunctionNotMonomorphic",
		"RecursiveFunction",
		"ArityMismatch",
		"FieldNotFound",
		"WrongNumberOfStructFields",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Error is one compile-time Semantic error, carrying enough context for a
// caret-underlined diagnostic (spec §7).
type Error struct {
	Kind     Kind
	Location token.Location
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location, e.Kind, e.Message)
}

func errf(kind Kind, loc token.Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Location: loc, Message: fmt.Sprintf(format, args...)}
}
