package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informatter/zinclang/lexer"
	"github.com/informatter/zinclang/parser"
	"github.com/informatter/zinclang/semantic"
)

// emitSource runs the full lexer -> parser -> semantic -> bytecode pipeline,
// the same chain semantic's own checkSource test helper stops one stage
// short of (semantic/checker_test.go).
func emitSource(t *testing.T, src string) *Program {
	t.Helper()
	tokens, err := lexer.ScanAll(src)
	require.NoError(t, err)
	statements, perr := parser.ParseProgram(tokens)
	require.NoError(t, perr)
	prog, serr := semantic.Check(statements)
	require.Nil(t, serr)
	p, eerr := Emit(prog)
	require.NoError(t, eerr)
	return p
}

func TestEmitRejectsProgramWithoutMain(t *testing.T) {
	tokens, err := lexer.ScanAll(`fn helper() -> field { 1 }`)
	require.NoError(t, err)
	statements, perr := parser.ParseProgram(tokens)
	require.NoError(t, perr)
	prog, serr := semantic.Check(statements)
	require.Nil(t, serr)

	_, err = Emit(prog)
	assert.Error(t, err)
}

func TestEmitAdditionProducesAddInstruction(t *testing.T) {
	p := emitSource(t, `
		fn main(a: field, b: field) -> field {
			a + b
		}
	`)
	instrs, err := p.Instructions()
	require.NoError(t, err)

	var sawAdd bool
	for _, in := range instrs {
		if in.Op == OpAdd {
			sawAdd = true
		}
	}
	assert.True(t, sawAdd, "expected an Add instruction in %v", instrs)
}

func TestEmitMainEndsWithOutputAndReturn(t *testing.T) {
	p := emitSource(t, `
		fn main(a: field) -> field {
			a
		}
	`)
	instrs, err := p.Instructions()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(instrs), 2)

	last := instrs[len(instrs)-1]
	secondLast := instrs[len(instrs)-2]
	assert.Equal(t, OpReturn, last.Op)
	assert.Equal(t, OpOutput, secondLast.Op)
}

func TestEmitLoopUnrollsBody(t *testing.T) {
	p := emitSource(t, `
		fn main() -> field {
			let mut total = 0;
			for i in 0..3 {
				total = total + i;
			}
			total
		}
	`)
	instrs, err := p.Instructions()
	require.NoError(t, err)

	count := 0
	for _, in := range instrs {
		if in.Op == OpAdd {
			count++
		}
	}
	assert.Equal(t, 3, count, "0..3 should unroll to three loop-body Adds")
}

func TestEmitCallPatchesAddrToCalleeStart(t *testing.T) {
	p := emitSource(t, `
		fn double(x: field) -> field {
			x + x
		}

		fn main(a: field) -> field {
			double(a)
		}
	`)
	instrs, err := p.Instructions()
	require.NoError(t, err)

	var callOperand int
	for _, in := range instrs {
		if in.Op == OpCall {
			callOperand = in.Operands[0]
		}
	}
	assert.NotZero(t, callOperand, "Call's addr operand should have been backpatched past main's own prologue")
}

func TestEmitArrayIndexUsesSequenceLoad(t *testing.T) {
	p := emitSource(t, `
		fn main(i: field) -> field {
			let xs = [1, 2, 3];
			xs[0]
		}
	`)
	instrs, err := p.Instructions()
	require.NoError(t, err)

	var sawSeqLoad bool
	for _, in := range instrs {
		if in.Op == OpLoadSequenceLocal {
			sawSeqLoad = true
		}
	}
	assert.True(t, sawSeqLoad)
}

func TestEmitConditionalCombinesBranchesArithmetically(t *testing.T) {
	p := emitSource(t, `
		fn main(cond: bool) -> field {
			if cond { 1 } else { 2 }
		}
	`)
	instrs, err := p.Instructions()
	require.NoError(t, err)

	var sawIf, sawElse, sawEndIf bool
	for _, in := range instrs {
		switch in.Op {
		case OpIf:
			sawIf = true
		case OpElse:
			sawElse = true
		case OpEndIf:
			sawEndIf = true
		}
	}
	assert.True(t, sawIf)
	assert.True(t, sawElse)
	assert.True(t, sawEndIf)
}
