package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateToken(t *testing.T) {
	tok := CreateToken(ASSIGN, Location{Line: 1, Column: 3})
	assert.Equal(t, ASSIGN, tok.Type)
	assert.Equal(t, "=", tok.Lexeme)
	assert.Equal(t, Location{Line: 1, Column: 3}, tok.Location)
}

func TestCreateLiteralToken(t *testing.T) {
	tok := CreateLiteralToken(INTEGER, "42", int64(42), Location{Line: 2, Column: 5})
	assert.Equal(t, INTEGER, tok.Type)
	assert.Equal(t, "42", tok.Lexeme)
	assert.Equal(t, int64(42), tok.Literal)
}

func TestKeywordsAreClosed(t *testing.T) {
	for word, typ := range Keywords {
		assert.NotEmpty(t, word)
		assert.NotEmpty(t, typ)
	}
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "3:7", Location{Line: 3, Column: 7}.String())
}
