package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeInstructionEncodesOperandsBigEndian(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		want     []byte
	}{
		{OpPush, []int{65534}, []byte{byte(OpPush), 0, 0, 255, 254}},
		{OpPop, nil, []byte{byte(OpPop)}},
		{OpCall, []int{1, 2}, []byte{byte(OpCall), 0, 0, 0, 1, 0, 0, 0, 2}},
	}
	for _, tt := range tests {
		got := MakeInstruction(tt.op, tt.operands...)
		assert.Equal(t, tt.want, got)
	}
}

func TestReadOperandsRoundTripsMakeInstruction(t *testing.T) {
	ins := MakeInstruction(OpLoadSequenceLocal, 3, 7)
	def, err := Get(OpLoadSequenceLocal)
	assert.NoError(t, err)

	operands, n := ReadOperands(def, ins[1:])
	assert.Equal(t, []int{3, 7}, operands)
	assert.Equal(t, 8, n)
}

func TestGetRejectsUndefinedOpcode(t *testing.T) {
	_, err := Get(Opcode(255))
	assert.Error(t, err)
}

func TestMakeInstructionUnknownOpcodeReturnsEmpty(t *testing.T) {
	got := MakeInstruction(Opcode(255))
	assert.Empty(t, got)
}
