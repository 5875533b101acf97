package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/informatter/zinclang/token"
)

func tok(typ token.Type) token.Token {
	return token.CreateToken(typ, token.Location{Line: 1, Column: 1})
}

func TestExpressionElementRoundTrip(t *testing.T) {
	lit := OperandOf(OperandLiteral, Literal{Kind: LiteralInteger, Value: "1"}, tok(token.INTEGER))
	assert.Equal(t, OperandLiteral, OperandKindOf(lit))
	assert.Equal(t, Literal{Kind: LiteralInteger, Value: "1"}, OperandPayload(lit))

	op := OperatorOf(OpAddition, tok(token.ADDITION))
	assert.Equal(t, OpAddition, OperatorValue(op))
}

func TestPostfixArityMatchesOperandCount(t *testing.T) {
	// "1 2 +" as a flat RPN Expression.
	expr := Expression{
		OperandOf(OperandLiteral, Literal{Kind: LiteralInteger, Value: "1"}, tok(token.INTEGER)),
		OperandOf(OperandLiteral, Literal{Kind: LiteralInteger, Value: "2"}, tok(token.INTEGER)),
		OperatorOf(OpAddition, tok(token.ADDITION)),
	}
	assert.Len(t, expr, 3)
	assert.Equal(t, 2, OperatorValue(expr[2]).Arity())
}

func TestCallCarriesArgCount(t *testing.T) {
	el := CallOf(3, tok(token.LPA))
	assert.Equal(t, OpCall, OperatorValue(el))
	assert.Equal(t, 3, el.CallArgCount)
}

func TestFnBuilderRequiresBody(t *testing.T) {
	b := NewFnBuilder(tok(token.FN), "main")
	assert.Panics(t, func() { b.Finish() })

	b.SetBody(NewBlockBuilder().Finish())
	assert.NotPanics(t, func() { b.Finish() })
}

func TestEnumBuilderAutoAssignsDiscriminants(t *testing.T) {
	b := NewEnumBuilder(tok(token.ENUM), "Color")
	b.AddVariant("Red", nil)
	b.AddVariant("Green", nil)
	stmt := b.AddVariant("Blue", nil).Finish()

	assert.Equal(t, int64(0), *stmt.Enum.Variants[0].Value)
	assert.Equal(t, int64(1), *stmt.Enum.Variants[1].Value)
	assert.Equal(t, int64(2), *stmt.Enum.Variants[2].Value)
}

func TestEnumBuilderRespectsExplicitValue(t *testing.T) {
	explicit := int64(10)
	b := NewEnumBuilder(tok(token.ENUM), "Code")
	b.AddVariant("A", &explicit)
	stmt := b.AddVariant("B", nil).Finish()

	assert.Equal(t, int64(11), *stmt.Enum.Variants[1].Value)
}

func TestBlockBuilderWithTail(t *testing.T) {
	tail := Expression{OperandOf(OperandLiteral, Literal{Kind: LiteralBoolean, Value: true}, tok(token.BOOLEAN))}
	block := NewBlockBuilder().SetTail(tail).Finish()
	assert.NotNil(t, block.Tail)
	assert.Len(t, *block.Tail, 1)
}
