package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgramEncodeDecodeRoundTrips(t *testing.T) {
	p := &Program{
		Version: ContainerVersion,
		Input:   TypeTag{Kind: 1},
		Output:  TypeTag{Kind: 0},
		Constants: []Constant{
			{Value: "5"},
			{Value: "3"},
		},
		Types:   []TypeTag{{Kind: 1}},
		Globals: []Constant{{Value: "0"}},
	}
	p.Code = MakeInstruction(OpPush, 0)
	p.Code = append(p.Code, MakeInstruction(OpPush, 1)...)
	p.Code = append(p.Code, MakeInstruction(OpAdd, 0)...)

	data, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	p := &Program{Version: ContainerVersion + 1}
	data, err := Encode(p)
	require.NoError(t, err)

	_, err = Decode(data)
	assert.Error(t, err)
}

func TestAddTypeAndAddConstantReturnIndicesWithoutDedup(t *testing.T) {
	p := &Program{}
	i0 := p.AddType(TypeTag{Kind: 1})
	i1 := p.AddType(TypeTag{Kind: 1})
	assert.Equal(t, 0, i0)
	assert.Equal(t, 1, i1)
	assert.Len(t, p.Types, 2)

	c0 := p.AddConstant(Constant{Value: "1"})
	c1 := p.AddConstant(Constant{Value: "1"})
	assert.Equal(t, 0, c0)
	assert.Equal(t, 1, c1)
	assert.Len(t, p.Constants, 2)
}

func TestProgramInstructionsDecodesCodeStream(t *testing.T) {
	p := &Program{}
	p.Code = MakeInstruction(OpPush, 0)
	p.Code = append(p.Code, MakeInstruction(OpPop)...)
	p.Code = append(p.Code, MakeInstruction(OpAdd, 2)...)

	instrs, err := p.Instructions()
	require.NoError(t, err)
	require.Len(t, instrs, 3)
	assert.Equal(t, OpPush, instrs[0].Op)
	assert.Equal(t, []int{0}, instrs[0].Operands)
	assert.Equal(t, OpPop, instrs[1].Op)
	assert.Equal(t, OpAdd, instrs[2].Op)
	assert.Equal(t, []int{2}, instrs[2].Operands)
}

func TestProgramInstructionsRejectsTruncatedOperands(t *testing.T) {
	p := &Program{Code: []byte{byte(OpPush), 0, 0}}
	_, err := p.Instructions()
	require.Error(t, err)
	lerr, ok := err.(*LoadError)
	require.True(t, ok)
	assert.Equal(t, UnexpectedEof, lerr.Kind)
}

func TestDisassembleRendersOneMnemonicPerLine(t *testing.T) {
	p := &Program{}
	p.Code = MakeInstruction(OpPush, 0)
	p.Code = append(p.Code, MakeInstruction(OpPop)...)

	out := Disassemble(p)
	assert.Equal(t, "Push 0\nPop\n", out)
}
