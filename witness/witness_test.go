package witness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/types"
)

func boolTag() bytecode.TypeTag { return bytecode.TypeTag{Kind: byte(types.KindBool)} }
func fieldTag() bytecode.TypeTag { return bytecode.TypeTag{Kind: byte(types.KindField)} }
func uintTag(bits int) bytecode.TypeTag {
	return bytecode.TypeTag{Kind: byte(types.KindIntegerUnsigned), Bits: bits}
}
func intTag(bits int) bytecode.TypeTag {
	return bytecode.TypeTag{Kind: byte(types.KindIntegerSigned), Bits: bits}
}

func TestDecodeScalarShapes(t *testing.T) {
	cells, err := Decode(nil, boolTag(), json.RawMessage(`true`))
	require.NoError(t, err)
	assert.Equal(t, "1", cells[0].String())

	cells, err = Decode(nil, fieldTag(), json.RawMessage(`42`))
	require.NoError(t, err)
	assert.Equal(t, "42", cells[0].String())

	cells, err = Decode(nil, fieldTag(), json.RawMessage(`"42"`))
	require.NoError(t, err)
	assert.Equal(t, "42", cells[0].String())
}

func TestDecodeRejectsWrongKind(t *testing.T) {
	_, err := Decode(nil, boolTag(), json.RawMessage(`1`))
	require.Error(t, err)
	jerr, ok := err.(*JsonValueError)
	require.True(t, ok)
	assert.Equal(t, "$", jerr.Path)
}

func TestDecodeArrayRequiresExactLength(t *testing.T) {
	pool := []bytecode.TypeTag{uintTag(8)}
	arr := bytecode.TypeTag{Kind: byte(types.KindArray), Element: 0, Length: 3}

	_, err := Decode(pool, arr, json.RawMessage(`[1,2]`))
	require.Error(t, err)

	cells, err := Decode(pool, arr, json.RawMessage(`[1,2,3]`))
	require.NoError(t, err)
	require.Len(t, cells, 3)
	assert.Equal(t, "3", cells[2].String())
}

func TestDecodeStructureRequiresNamedFields(t *testing.T) {
	pool := []bytecode.TypeTag{fieldTag(), fieldTag()}
	structType := bytecode.TypeTag{
		Kind:       byte(types.KindStructure),
		Name:       "Point",
		Fields:     []int{0, 1},
		FieldNames: []string{"x", "y"},
	}

	cells, err := Decode(pool, structType, json.RawMessage(`{"x":1,"y":2}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, []string{cells[0].String(), cells[1].String()})

	_, err = Decode(pool, structType, json.RawMessage(`{"x":1}`))
	require.Error(t, err)
}

func TestEncodeDecodeRoundTripsTuple(t *testing.T) {
	pool := []bytecode.TypeTag{boolTag(), fieldTag()}
	tup := bytecode.TypeTag{Kind: byte(types.KindTuple), Fields: []int{0, 1}}

	raw := json.RawMessage(`[true,"7"]`)
	cells, err := Decode(pool, tup, raw)
	require.NoError(t, err)

	out, err := Encode(pool, tup, cells)
	require.NoError(t, err)
	assert.JSONEq(t, `[true,"7"]`, string(out))
}

func TestDecodeIntegerAcceptsNegativeSignedValue(t *testing.T) {
	cells, err := Decode(nil, intTag(8), json.RawMessage(`-3`))
	require.NoError(t, err)
	want := field.FromInt64(-3, field.Modulus)
	assert.True(t, want.Equal(cells[0]))
}

func TestEncodeArray(t *testing.T) {
	pool := []bytecode.TypeTag{uintTag(8)}
	arr := bytecode.TypeTag{Kind: byte(types.KindArray), Element: 0, Length: 2}

	cells := []field.Element{
		field.FromInt64(1, field.Modulus),
		field.FromInt64(2, field.Modulus),
	}
	out, err := Encode(pool, arr, cells)
	require.NoError(t, err)
	assert.JSONEq(t, `["1","2"]`, string(out))
}
