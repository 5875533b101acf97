// Package witness implements the JSON codec spec.md §6 names for a
// program's input and output: a flat sequence of field.Element cells,
// encoded and decoded against the shape a bytecode.Program's TypeTag
// pool describes.
//
// New code — the teacher (informatter-nilan) has no typed witness format
// of its own (its REPL and run command feed a program no external input
// at all); this is grounded directly on spec.md §6's shape rules, using
// stdlib encoding/json since no JSON schema/codec library appears
// anywhere in the retrieved corpus to prefer over it (see DESIGN.md).
//
// Decode/Encode take a bytecode.TypeTag plus its owning Program's Types
// pool rather than a types.Arena/Handle: a loaded .znb container (or a
// prover.Backend operating on one) never has the original types.Arena
// around, only the self-describing TypeTag pool spec §6 requires the
// container to carry.
package witness

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/types"
)

// JsonValueError reports a witness value that does not match the shape
// its declared type requires, with Path identifying where in the JSON
// document the mismatch occurred (e.g. "$.fields[1]").
type JsonValueError struct {
	Path    string
	Message string
}

func (e *JsonValueError) Error() string {
	return fmt.Sprintf("witness: %s: %s", e.Path, e.Message)
}

func valueErrorf(path, format string, args ...any) *JsonValueError {
	return &JsonValueError{Path: path, Message: fmt.Sprintf(format, args...)}
}

// Decode parses raw against t's shape (spec.md §6), producing the flat
// sequence of field cells in declaration order that the vm package's
// Run consumes as its witness input. pool resolves t's nested Element/
// Fields indices (bytecode.Program.Types).
func Decode(pool []bytecode.TypeTag, t bytecode.TypeTag, raw json.RawMessage) ([]field.Element, error) {
	var out []field.Element
	if err := decodeInto(pool, t, raw, "$", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeInto(pool []bytecode.TypeTag, t bytecode.TypeTag, raw json.RawMessage, path string, out *[]field.Element) error {
	switch types.Kind(t.Kind) {
	case types.KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return valueErrorf(path, "expected a JSON boolean")
		}
		if b {
			*out = append(*out, field.One(field.Modulus))
		} else {
			*out = append(*out, field.Zero(field.Modulus))
		}
		return nil

	case types.KindField, types.KindIntegerSigned, types.KindIntegerUnsigned:
		v, err := decodeNumber(raw)
		if err != nil {
			return valueErrorf(path, "%s", err)
		}
		*out = append(*out, field.FromBigInt(v, field.Modulus))
		return nil

	case types.KindArray:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return valueErrorf(path, "expected a JSON array")
		}
		if len(elems) != t.Length {
			return valueErrorf(path, "array has length %d, want %d", len(elems), t.Length)
		}
		elem := pool[t.Element]
		for i, el := range elems {
			if err := decodeInto(pool, elem, el, fmt.Sprintf("%s[%d]", path, i), out); err != nil {
				return err
			}
		}
		return nil

	case types.KindTuple:
		var elems []json.RawMessage
		if err := json.Unmarshal(raw, &elems); err != nil {
			return valueErrorf(path, "expected a JSON array")
		}
		if len(elems) != len(t.Fields) {
			return valueErrorf(path, "tuple has %d elements, want %d", len(elems), len(t.Fields))
		}
		for i, f := range t.Fields {
			if err := decodeInto(pool, pool[f], elems[i], fmt.Sprintf("%s[%d]", path, i), out); err != nil {
				return err
			}
		}
		return nil

	case types.KindStructure:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return valueErrorf(path, "expected a JSON object")
		}
		if len(obj) != len(t.Fields) {
			return valueErrorf(path, "object has %d fields, want %d", len(obj), len(t.Fields))
		}
		for i, f := range t.Fields {
			name := t.FieldNames[i]
			fieldRaw, ok := obj[name]
			if !ok {
				return valueErrorf(path, "missing field %q", name)
			}
			if err := decodeInto(pool, pool[f], fieldRaw, path+"."+name, out); err != nil {
				return err
			}
		}
		return nil

	case types.KindUnit:
		return nil

	default:
		return valueErrorf(path, "type %s has no witness representation", types.Kind(t.Kind))
	}
}

// Encode is Decode's inverse: it consumes cells in declaration order and
// produces the JSON value t's shape requires.
func Encode(pool []bytecode.TypeTag, t bytecode.TypeTag, cells []field.Element) (json.RawMessage, error) {
	rest := cells
	raw, err := encodeFrom(pool, t, &rest)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, valueErrorf("$", "%d cells left over after encoding", len(rest))
	}
	return raw, nil
}

func encodeFrom(pool []bytecode.TypeTag, t bytecode.TypeTag, cells *[]field.Element) (json.RawMessage, error) {
	switch types.Kind(t.Kind) {
	case types.KindBool:
		v, err := takeCell(cells)
		if err != nil {
			return nil, err
		}
		return json.Marshal(!v.IsZero())

	case types.KindField, types.KindIntegerSigned, types.KindIntegerUnsigned:
		v, err := takeCell(cells)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v.String())

	case types.KindArray:
		elem := pool[t.Element]
		parts := make([]json.RawMessage, t.Length)
		for i := range parts {
			raw, err := encodeFrom(pool, elem, cells)
			if err != nil {
				return nil, err
			}
			parts[i] = raw
		}
		return marshalRawArray(parts)

	case types.KindTuple:
		parts := make([]json.RawMessage, len(t.Fields))
		for i, f := range t.Fields {
			raw, err := encodeFrom(pool, pool[f], cells)
			if err != nil {
				return nil, err
			}
			parts[i] = raw
		}
		return marshalRawArray(parts)

	case types.KindStructure:
		var b strings.Builder
		b.WriteByte('{')
		for i, f := range t.Fields {
			if i > 0 {
				b.WriteByte(',')
			}
			raw, err := encodeFrom(pool, pool[f], cells)
			if err != nil {
				return nil, err
			}
			name, err := json.Marshal(t.FieldNames[i])
			if err != nil {
				return nil, err
			}
			b.Write(name)
			b.WriteByte(':')
			b.Write(raw)
		}
		b.WriteByte('}')
		return json.RawMessage(b.String()), nil

	case types.KindUnit:
		return json.RawMessage("null"), nil

	default:
		return nil, valueErrorf("$", "type %s has no witness representation", types.Kind(t.Kind))
	}
}

func takeCell(cells *[]field.Element) (field.Element, error) {
	if len(*cells) == 0 {
		return field.Element{}, valueErrorf("$", "ran out of cells while encoding")
	}
	v := (*cells)[0]
	*cells = (*cells)[1:]
	return v, nil
}

func marshalRawArray(parts []json.RawMessage) (json.RawMessage, error) {
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range parts {
		if i > 0 {
			b.WriteByte(',')
		}
		b.Write(p)
	}
	b.WriteByte(']')
	return json.RawMessage(b.String()), nil
}

// decodeNumber accepts either a JSON number or a decimal string (spec.md
// §6: "JSON number or decimal string"), the latter needed for values that
// don't fit a float64's exact-integer range.
func decodeNumber(raw json.RawMessage) (*big.Int, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("%q is not a decimal integer", s)
		}
		return n, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return nil, fmt.Errorf("expected a JSON number or decimal string")
	}
	n, ok := new(big.Int).SetString(num.String(), 10)
	if !ok {
		return nil, fmt.Errorf("%q is not an integer", num.String())
	}
	return n, nil
}
