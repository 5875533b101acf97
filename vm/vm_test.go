package vm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/types"
)

func fieldTag() bytecode.TypeTag { return bytecode.TypeTag{Kind: byte(types.KindField)} }
func uintTag(bits int) bytecode.TypeTag {
	return bytecode.TypeTag{Kind: byte(types.KindIntegerUnsigned), Bits: bits}
}
func intTag(bits int) bytecode.TypeTag {
	return bytecode.TypeTag{Kind: byte(types.KindIntegerSigned), Bits: bits}
}
func boolTag() bytecode.TypeTag { return bytecode.TypeTag{Kind: byte(types.KindBool)} }

// progBuilder assembles a Program by hand from raw instructions, standing
// in for bytecode.Emit the way bytecode's own emitter tests exercise
// MakeInstruction directly without a full parse.
type progBuilder struct {
	p *bytecode.Program
}

func newProgBuilder() *progBuilder {
	return &progBuilder{p: &bytecode.Program{Version: bytecode.ContainerVersion}}
}

func (b *progBuilder) emit(op bytecode.Opcode, operands ...int) {
	b.p.Code = append(b.p.Code, bytecode.MakeInstruction(op, operands...)...)
}

func (b *progBuilder) constInt(n int64) int {
	return b.p.AddConstant(bytecode.Constant{Value: field.FromInt64(n, field.Modulus).String()})
}

func (b *progBuilder) addType(t bytecode.TypeTag) int { return b.p.AddType(t) }

func TestRunAddTwoConstants(t *testing.T) {
	b := newProgBuilder()
	tField := b.addType(fieldTag())
	b.emit(bytecode.OpPush, b.constInt(5))
	b.emit(bytecode.OpPush, b.constInt(3))
	b.emit(bytecode.OpAdd, tField)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = fieldTag()

	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "8", out[0].String())
}

func TestRunAddEmitsConstraints(t *testing.T) {
	b := newProgBuilder()
	tField := b.addType(fieldTag())
	b.emit(bytecode.OpPush, b.constInt(5))
	b.emit(bytecode.OpPush, b.constInt(3))
	b.emit(bytecode.OpAdd, tField)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = fieldTag()

	sys := constraint.NewR1CS()
	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, sys)
	require.NoError(t, err)
	assert.Equal(t, "8", out[0].String())
	assert.Greater(t, sys.NumConstraints(), 0)
}

func TestRunInputOutputRoundTrip(t *testing.T) {
	b := newProgBuilder()
	tField := b.addType(fieldTag())
	b.emit(bytecode.OpInput, 0)
	b.emit(bytecode.OpStoreLocal, 0)
	b.emit(bytecode.OpLoadLocal, 0)
	b.emit(bytecode.OpPush, b.constInt(10))
	b.emit(bytecode.OpAdd, tField)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Input = fieldTag()
	b.p.Output = fieldTag()

	m := New(field.Modulus)
	out, err := m.Run(b.p, []field.Element{field.FromInt64(7, field.Modulus)}, constraint.NewNullSystem())
	require.NoError(t, err)
	assert.Equal(t, "17", out[0].String())
}

func TestRunLessThanUnsigned(t *testing.T) {
	for _, tc := range []struct {
		a, b int64
		want string
	}{
		{3, 5, "1"},
		{5, 3, "0"},
		{5, 5, "0"},
	} {
		b2 := newProgBuilder()
		tU8 := b2.addType(uintTag(8))
		b2.emit(bytecode.OpPush, b2.constInt(tc.a))
		b2.emit(bytecode.OpPush, b2.constInt(tc.b))
		b2.emit(bytecode.OpLt, tU8)
		b2.emit(bytecode.OpOutput, 0)
		b2.emit(bytecode.OpReturn, 0)
		b2.p.Output = boolTag()

		m := New(field.Modulus)
		out, err := m.Run(b2.p, nil, constraint.NewNullSystem())
		require.NoError(t, err)
		assert.Equal(t, tc.want, out[0].String(), "Lt(%d,%d)", tc.a, tc.b)
	}
}

func TestRunSignedComparisonHandlesNegatives(t *testing.T) {
	b := newProgBuilder()
	tI8 := b.addType(intTag(8))
	negIdx := b.p.AddConstant(bytecode.Constant{Value: field.FromInt64(-3, field.Modulus).String()})
	b.emit(bytecode.OpPush, negIdx)
	b.emit(bytecode.OpPush, b.constInt(5))
	b.emit(bytecode.OpLt, tI8)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = boolTag()

	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.NoError(t, err)
	assert.Equal(t, "1", out[0].String(), "-3 < 5 should hold under signed comparison")
}

func TestRunEquality(t *testing.T) {
	b := newProgBuilder()
	b.emit(bytecode.OpPush, b.constInt(9))
	b.emit(bytecode.OpPush, b.constInt(9))
	b.emit(bytecode.OpEq)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = boolTag()

	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.NoError(t, err)
	assert.Equal(t, "1", out[0].String())
}

func TestRunBitwiseNot(t *testing.T) {
	b := newProgBuilder()
	tU8 := b.addType(uintTag(8))
	b.emit(bytecode.OpPush, b.constInt(0))
	b.emit(bytecode.OpBitwiseNot, tU8)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = uintTag(8)

	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.NoError(t, err)
	assert.Equal(t, "255", out[0].String())
}

func TestRunDivisionByZero(t *testing.T) {
	b := newProgBuilder()
	tField := b.addType(fieldTag())
	b.emit(bytecode.OpPush, b.constInt(9))
	b.emit(bytecode.OpPush, b.constInt(0))
	b.emit(bytecode.OpDiv, tField)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = fieldTag()

	m := New(field.Modulus)
	_, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.Error(t, err)
	rerr, ok := err.(*RuntimeError)
	require.True(t, ok)
	assert.Equal(t, DivisionByZero, rerr.Kind)
}

// TestRunConditionStackMuxesStores exercises spec §8's condition-stack
// soundness property: a Store* inside a branch that was not taken must
// leave the prior value in place, for both the then and else arms.
func TestRunConditionStackMuxesStores(t *testing.T) {
	for _, tc := range []struct {
		cond int64
		want string
	}{
		{1, "42"},
		{0, "7"},
	} {
		b := newProgBuilder()
		b.emit(bytecode.OpPush, b.constInt(tc.cond))
		b.emit(bytecode.OpIf)
		b.emit(bytecode.OpPush, b.constInt(42))
		b.emit(bytecode.OpStoreLocal, 0)
		b.emit(bytecode.OpElse)
		b.emit(bytecode.OpPush, b.constInt(7))
		b.emit(bytecode.OpStoreLocal, 0)
		b.emit(bytecode.OpEndIf)
		b.emit(bytecode.OpLoadLocal, 0)
		b.emit(bytecode.OpOutput, 0)
		b.emit(bytecode.OpReturn, 0)
		b.p.Output = fieldTag()

		m := New(field.Modulus)
		out, err := m.Run(b.p, nil, constraint.NewNullSystem())
		require.NoError(t, err)
		assert.Equal(t, tc.want, out[0].String(), "cond=%d", tc.cond)
	}
}

func TestRunFunctionCall(t *testing.T) {
	b := newProgBuilder()
	tField := b.addType(fieldTag())

	b.emit(bytecode.OpPush, b.constInt(21))
	callPos := len(b.p.Code)
	b.emit(bytecode.OpCall, 0, 1)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)

	doubleAddr := len(b.p.Code)
	b.emit(bytecode.OpLoadLocal, 0)
	b.emit(bytecode.OpLoadLocal, 0)
	b.emit(bytecode.OpAdd, tField)
	b.emit(bytecode.OpReturn, 1)

	patchCallAddr(b.p.Code, callPos+1, doubleAddr)
	b.p.Output = fieldTag()

	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.NoError(t, err)
	assert.Equal(t, "42", out[0].String())
}

func patchCallAddr(code []byte, pos, addr int) {
	code[pos] = byte(addr >> 24)
	code[pos+1] = byte(addr >> 16)
	code[pos+2] = byte(addr >> 8)
	code[pos+3] = byte(addr)
}

func TestRunArrayIndexSelectsDynamicElement(t *testing.T) {
	b := newProgBuilder()
	b.p.Globals = []bytecode.Constant{{Value: "10"}, {Value: "20"}, {Value: "30"}}
	b.emit(bytecode.OpPush, b.constInt(1))
	b.emit(bytecode.OpLoadSequenceGlobal, 0, 3)
	b.emit(bytecode.OpOutput, 0)
	b.emit(bytecode.OpReturn, 0)
	b.p.Output = fieldTag()

	m := New(field.Modulus)
	out, err := m.Run(b.p, nil, constraint.NewNullSystem())
	require.NoError(t, err)
	assert.Equal(t, "20", out[0].String())
}
