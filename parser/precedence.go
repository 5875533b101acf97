package parser

import (
	"github.com/informatter/zinclang/ast"
	"github.com/informatter/zinclang/token"
)

// precedence levels, lowest to highest, per spec §4.2's ladder:
// Assignment → Range → Or → Xor → And → equality → order → BitOr →
// BitXor → BitAnd → shifts → additive → multiplicative → As → unary →
// postfix.
//
// Grounded on the teacher's compiler/compiler.go Pratt table (`PREC_NONE`
// .. `PREC_UNARY`, a `map[token.TokenType]ParseRule{prefix, infix,
// precedence}`); generalized from the teacher's five levels to the full
// sixteen-level ladder spec.md's grammar requires.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precRange
	precOr
	precXor
	precAnd
	precEquality
	precOrder
	precBitOr
	precBitXor
	precBitAnd
	precShift
	precAdditive
	precMultiplicative
	precAs
	precUnary
	precPostfix
)

// associativity of a binary operator.
type associativity int

const (
	leftAssoc associativity = iota
	rightAssoc
)

// infixRule describes one binary/postfix operator's place in the ladder.
type infixRule struct {
	op            ast.Operator
	precedence    precedence
	associativity associativity
}

// infixRules maps a token type to the operator it produces when found in
// infix position. Tokens absent from this map are not infix/binary
// operators.
var infixRules = map[token.Type]infixRule{
	token.ASSIGN:           {ast.OpAssignment, precAssignment, rightAssoc},
	token.RANGE:            {ast.OpRange, precRange, leftAssoc},
	token.RANGE_INCLUSIVE:  {ast.OpRangeInclusive, precRange, leftAssoc},
	token.OR:               {ast.OpOr, precOr, leftAssoc},
	token.XOR:              {ast.OpXor, precXor, leftAssoc},
	token.AND:              {ast.OpAnd, precAnd, leftAssoc},
	token.EQ:               {ast.OpEq, precEquality, leftAssoc},
	token.NE:               {ast.OpNe, precEquality, leftAssoc},
	token.GE:               {ast.OpGe, precOrder, leftAssoc},
	token.LE:               {ast.OpLe, precOrder, leftAssoc},
	token.GT:               {ast.OpGt, precOrder, leftAssoc},
	token.LT:               {ast.OpLt, precOrder, leftAssoc},
	token.BIT_OR:           {ast.OpBitOr, precBitOr, leftAssoc},
	token.BIT_XOR:          {ast.OpBitXor, precBitXor, leftAssoc},
	token.BIT_AND:          {ast.OpBitAnd, precBitAnd, leftAssoc},
	token.BIT_SHIFT_LEFT:   {ast.OpBitShiftLeft, precShift, leftAssoc},
	token.BIT_SHIFT_RIGHT:  {ast.OpBitShiftRight, precShift, leftAssoc},
	token.ADDITION:         {ast.OpAddition, precAdditive, leftAssoc},
	token.SUBTRACTION:      {ast.OpSubtraction, precAdditive, leftAssoc},
	token.MULTIPLICATION:   {ast.OpMultiplication, precMultiplicative, leftAssoc},
	token.DIVISION:         {ast.OpDivision, precMultiplicative, leftAssoc},
	token.REMAINDER:        {ast.OpRemainder, precMultiplicative, leftAssoc},
	token.AS:               {ast.OpAs, precAs, leftAssoc},
}

// prefixOperators maps a token type to the unary operator it produces when
// found in prefix position.
var prefixOperators = map[token.Type]ast.Operator{
	token.SUBTRACTION: ast.OpNegation,
	token.NOT:         ast.OpNot,
	token.BITWISE_NOT: ast.OpBitwiseNot,
}
