package fake

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/lexer"
	"github.com/informatter/zinclang/parser"
	"github.com/informatter/zinclang/semantic"
)

func compile(t *testing.T, src string) *bytecode.Program {
	t.Helper()
	tokens, err := lexer.ScanAll(src)
	require.NoError(t, err)
	statements, perr := parser.ParseProgram(tokens)
	require.NoError(t, perr)
	prog, serr := semantic.Check(statements)
	require.Nil(t, serr)
	p, eerr := bytecode.Emit(prog)
	require.NoError(t, eerr)
	return p
}

const sumSource = `
	fn main(a: field, b: field) -> field {
		a + b
	}
`

func TestSetupProveVerifyRoundTrips(t *testing.T) {
	p := compile(t, sumSource)
	var backend Backend

	params, err := backend.Setup(p)
	require.NoError(t, err)

	output, proof, err := backend.Prove(p, params, json.RawMessage(`[3,4]`))
	require.NoError(t, err)
	assert.JSONEq(t, `"7"`, string(output))

	vk := params.(Parameters).VerifyingKey()
	ok, err := backend.Verify(vk, proof, output)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedOutput(t *testing.T) {
	p := compile(t, sumSource)
	var backend Backend

	params, err := backend.Setup(p)
	require.NoError(t, err)
	_, proof, err := backend.Prove(p, params, json.RawMessage(`[3,4]`))
	require.NoError(t, err)

	vk := params.(Parameters).VerifyingKey()
	ok, err := backend.Verify(vk, proof, json.RawMessage(`"8"`))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	p := compile(t, sumSource)
	var backend Backend

	params, err := backend.Setup(p)
	require.NoError(t, err)
	output, proof, err := backend.Prove(p, params, json.RawMessage(`[3,4]`))
	require.NoError(t, err)

	tampered := proof.(Proof)
	tampered.Tag[0] ^= 0xff

	vk := params.(Parameters).VerifyingKey()
	ok, err := backend.Verify(vk, tampered, output)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProveRejectsParamsFromDifferentProgram(t *testing.T) {
	p := compile(t, sumSource)
	other := compile(t, `
		fn main(a: field, b: field) -> field {
			a - b
		}
	`)
	var backend Backend

	params, err := backend.Setup(other)
	require.NoError(t, err)

	_, _, err = backend.Prove(p, params, json.RawMessage(`[3,4]`))
	assert.Error(t, err)
}
