package lexer

import (
	"testing"

	"github.com/informatter/zinclang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanTypes(t *testing.T, src string) []token.Type {
	t.Helper()
	tokens, err := ScanAll(src)
	require.NoError(t, err)
	types := make([]token.Type, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestOperatorsSuccess(t *testing.T) {
	types := scanTypes(t, "== != <= >= && || << >> .. ..= -> => :: = * + > - < ! ~")
	assert.Equal(t, []token.Type{
		token.EQ, token.NE, token.LE, token.GE, token.AND, token.OR,
		token.BIT_SHIFT_LEFT, token.BIT_SHIFT_RIGHT, token.RANGE, token.RANGE_INCLUSIVE,
		token.ARROW, token.FAT_ARROW, token.DOUBLE_COLON,
		token.ASSIGN, token.MULTIPLICATION, token.ADDITION, token.GT, token.SUBTRACTION,
		token.LT, token.NOT, token.BITWISE_NOT, token.EOF,
	}, types)
}

func TestDelimitersSuccess(t *testing.T) {
	types := scanTypes(t, "(){}[];,.")
	assert.Equal(t, []token.Type{
		token.LPA, token.RPA, token.LCUR, token.RCUR, token.LBRACKET, token.RBRACKET,
		token.SEMICOLON, token.COMMA, token.DOT, token.EOF,
	}, types)
}

func TestIntegerLiterals(t *testing.T) {
	tokens, err := ScanAll("42 0x2a 1_000")
	require.NoError(t, err)
	require.Len(t, tokens, 4)
	assert.Equal(t, uint64(42), tokens[0].Literal)
	assert.Equal(t, token.Decimal, tokens[0].Base)
	assert.Equal(t, uint64(42), tokens[1].Literal)
	assert.Equal(t, token.Hex, tokens[1].Base)
	assert.Equal(t, uint64(1000), tokens[2].Literal)
}

func TestLeadingZeroDecimalIsInvalid(t *testing.T) {
	_, err := ScanAll("0123")
	require.Error(t, err)
	var lexErr Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, InvalidIntegerLiteral, lexErr.Kind)
}

func TestStringLiteralWithEscapes(t *testing.T) {
	tokens, err := ScanAll(`"a\nb\"c"`)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\"c", tokens[0].Literal)
}

func TestUnterminatedStringFails(t *testing.T) {
	_, err := ScanAll(`"unterminated`)
	require.Error(t, err)
	var lexErr Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, UnexpectedEnd, lexErr.Kind)
}

func TestUnterminatedBlockCommentFails(t *testing.T) {
	_, err := ScanAll("/* never closes")
	require.Error(t, err)
	var lexErr Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, UnexpectedEnd, lexErr.Kind)
}

func TestLineCommentConsumesThroughNewline(t *testing.T) {
	types := scanTypes(t, "let x = 1; // trailing comment\nlet y = 2;")
	assert.Contains(t, types, token.COMMENT)
	assert.Contains(t, types, token.LET)
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens, err := ScanAll("fn let mut const static for in if else match struct enum impl use mod type return true false as myVar _")
	require.NoError(t, err)
	wantTypes := []token.Type{
		token.FN, token.LET, token.MUT, token.CONST, token.STATIC, token.FOR, token.IN,
		token.IF, token.ELSE, token.MATCH, token.STRUCT, token.ENUM, token.IMPL, token.USE,
		token.MOD, token.TYPE, token.RETURN, token.BOOLEAN, token.BOOLEAN, token.AS,
		token.IDENTIFIER, token.UNDERSCORE, token.EOF,
	}
	require.Len(t, tokens, len(wantTypes))
	for i, tok := range tokens {
		assert.Equal(t, wantTypes[i], tok.Type, "token %d", i)
	}
}

func TestLineColumnTracking(t *testing.T) {
	tokens, err := ScanAll("let\nx")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, token.Location{Line: 1, Column: 1}, tokens[0].Location)
	assert.Equal(t, token.Location{Line: 2, Column: 1}, tokens[1].Location)
}

func TestInvalidCharacterFails(t *testing.T) {
	_, err := ScanAll("let x = @;")
	require.Error(t, err)
	var lexErr Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, InvalidCharacter, lexErr.Kind)
}

func TestEofIsIdempotent(t *testing.T) {
	l := New("")
	first, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, token.EOF, first.Type)
	second, err := l.Next()
	require.NoError(t, err)
	assert.Equal(t, token.EOF, second.Type)
}
