package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informatter/zinclang/ast"
	"github.com/informatter/zinclang/lexer"
)

func parseExpr(t *testing.T, src string) ast.Expression {
	t.Helper()
	tokens, err := lexer.ScanAll(src + ";")
	require.NoError(t, err)
	p := New(tokens)
	expr, err := p.parseExpression()
	require.NoError(t, err)
	return expr
}

func operatorsOf(expr ast.Expression) []ast.Operator {
	var ops []ast.Operator
	for _, el := range expr {
		if el.Kind == ast.ElementOperator {
			ops = append(ops, ast.OperatorValue(el))
		}
	}
	return ops
}

func TestPrecedenceOfMultiplicationOverAddition(t *testing.T) {
	expr := parseExpr(t, "1 + 2 * 3")
	// RPN: 1 2 3 * +
	assert.Equal(t, []ast.Operator{ast.OpMultiplication, ast.OpAddition}, operatorsOf(expr))
}

func TestLeftAssociativityOfSubtraction(t *testing.T) {
	expr := parseExpr(t, "1 - 2 - 3")
	// (1-2)-3 -> RPN: 1 2 - 3 -
	assert.Equal(t, []ast.Operator{ast.OpSubtraction, ast.OpSubtraction}, operatorsOf(expr))
}

func TestRightAssociativityOfAssignment(t *testing.T) {
	expr := parseExpr(t, "a = b = 1")
	ops := operatorsOf(expr)
	require.Len(t, ops, 2)
	assert.Equal(t, ast.OpAssignment, ops[0])
	assert.Equal(t, ast.OpAssignment, ops[1])
}

func TestUnaryBindsTighterThanBinary(t *testing.T) {
	expr := parseExpr(t, "-a + b")
	ops := operatorsOf(expr)
	assert.Equal(t, []ast.Operator{ast.OpNegation, ast.OpAddition}, ops)
}

func TestFieldAccessBindsTighterThanAddition(t *testing.T) {
	expr := parseExpr(t, "a.b + c")
	ops := operatorsOf(expr)
	assert.Equal(t, []ast.Operator{ast.OpField, ast.OpAddition}, ops)
}

func TestCallParsesArgCount(t *testing.T) {
	expr := parseExpr(t, "foo(1, 2, 3)")
	last := expr[len(expr)-1]
	assert.Equal(t, ast.OpCall, ast.OperatorValue(last))
	assert.Equal(t, 3, last.CallArgCount)
}

func TestIndexBindsTighterThanComparison(t *testing.T) {
	expr := parseExpr(t, "a[0] == true")
	ops := operatorsOf(expr)
	assert.Equal(t, []ast.Operator{ast.OpIndex, ast.OpEq}, ops)
}

func TestParseLetStatement(t *testing.T) {
	tokens, err := lexer.ScanAll("let mut x: u8 = 1;")
	require.NoError(t, err)
	stmts, err := ParseProgram(tokens)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, ast.StmtLet, stmts[0].Kind)
	assert.True(t, stmts[0].Let.Mutable)
	assert.Equal(t, "x", stmts[0].Let.Name)
	assert.Equal(t, "u8", stmts[0].Let.Type.Name)
}

func TestParseFnStatement(t *testing.T) {
	tokens, err := lexer.ScanAll("fn add(a: field, b: field) -> field { a + b }")
	require.NoError(t, err)
	stmts, err := ParseProgram(tokens)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	fn := stmts[0].Fn
	require.NotNil(t, fn)
	assert.Equal(t, "add", fn.Name)
	assert.Len(t, fn.Params, 2)
	assert.Equal(t, "field", fn.Return.Name)
	require.NotNil(t, fn.Body.Tail)
}

func TestParseLoopStatement(t *testing.T) {
	tokens, err := lexer.ScanAll("for i in 0..10 { let x = i; }")
	require.NoError(t, err)
	stmts, err := ParseProgram(tokens)
	require.NoError(t, err)
	loop := stmts[0].Loop
	require.NotNil(t, loop)
	assert.Equal(t, "i", loop.Iterator)
	assert.False(t, loop.Inclusive)
}

func TestParseStructAndEnum(t *testing.T) {
	tokens, err := lexer.ScanAll("struct P { x: field, y: field } enum Color { Red, Green, Blue = 5 }")
	require.NoError(t, err)
	stmts, err := ParseProgram(tokens)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, ast.StmtStruct, stmts[0].Kind)
	assert.Len(t, stmts[0].Struct.Fields, 2)
	assert.Equal(t, ast.StmtEnum, stmts[1].Kind)
	assert.Equal(t, int64(5), *stmts[1].Enum.Variants[2].Value)
}

func TestUnterminatedExpressionIsSyntaxError(t *testing.T) {
	tokens, err := lexer.ScanAll("let x = ;")
	require.NoError(t, err)
	_, err = ParseProgram(tokens)
	require.Error(t, err)
}

func TestCastParsesTypeOperandNotIdentifier(t *testing.T) {
	expr := parseExpr(t, "x as u8")
	require.Len(t, expr, 3)
	assert.Equal(t, ast.OperandIdentifier, ast.OperandKindOf(expr[0]))
	assert.Equal(t, ast.OperandType, ast.OperandKindOf(expr[1]))
	te := ast.OperandPayload(expr[1]).(ast.TypeExpr)
	assert.Equal(t, "u8", te.Name)
	assert.Equal(t, ast.OpAs, operatorsOf(expr)[0])
}
