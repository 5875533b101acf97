package semantic

import (
	"strconv"
	"strings"

	"github.com/informatter/zinclang/ast"
	"github.com/informatter/zinclang/token"
	"github.com/informatter/zinclang/types"
)

// TypeRegistry maps named types (builtins and user-declared
// struct/enum/alias names) to their arena Handle. It is populated once,
// before bodies are checked, by a forward pass over top-level Struct/Enum/
// Type statements — the language allows a function to reference a struct
// declared later in the same file.
type TypeRegistry struct {
	arena *types.Arena
	byName map[string]types.Handle
}

// NewTypeRegistry seeds the registry with the language's fixed-name
// built-ins: bool, field and (). The iN/uN family up to types.MaxBits is
// not seeded; Resolve recognizes those names through parseIntegerTypeName.
func NewTypeRegistry(arena *types.Arena) *TypeRegistry {
	r := &TypeRegistry{arena: arena, byName: make(map[string]types.Handle)}
	r.byName["bool"] = arena.Bool()
	r.byName["field"] = arena.Field()
	r.byName["()"] = arena.Unit()
	return r
}

// Register binds name to handle, overwriting any existing entry — used
// for the forward pass over struct/enum/alias declarations.
func (r *TypeRegistry) Register(name string, handle types.Handle) {
	r.byName[name] = handle
}

// Resolve turns a parsed ast.TypeExpr into a types.Handle, allocating
// array/tuple nodes in the arena as needed and looking up named types
// (built-ins, `iN`/`uN`, or a previously Register-ed user type) in the
// registry.
func (r *TypeRegistry) Resolve(te ast.TypeExpr) (types.Handle, *Error) {
	if te.ArrayElement != nil {
		elem, err := r.Resolve(*te.ArrayElement)
		if err != nil {
			return 0, err
		}
		length, ok := constantArrayLength(*te.ArrayLength)
		if !ok {
			return 0, errf(KindConstantExpressionRequired, te.Location, "array length must be a compile-time constant")
		}
		return r.arena.Array(elem, length), nil
	}
	if te.TupleFields != nil {
		fields := make([]types.Handle, len(te.TupleFields))
		for i, f := range te.TupleFields {
			h, err := r.Resolve(f)
			if err != nil {
				return 0, err
			}
			fields[i] = h
		}
		return r.arena.Tuple(fields), nil
	}
	if h, ok := r.byName[te.Name]; ok {
		return h, nil
	}
	if bits, signed, ok := parseIntegerTypeName(te.Name); ok {
		if signed {
			return r.arena.IntegerSigned(bits), nil
		}
		return r.arena.IntegerUnsigned(bits), nil
	}
	return 0, errf(KindUndefinedType, te.Location, "undefined type %q", te.Name)
}

// parseIntegerTypeName recognizes the `iN`/`uN` family, N in
// [1, types.MaxBits].
func parseIntegerTypeName(name string) (bits int, signed bool, ok bool) {
	if len(name) < 2 {
		return 0, false, false
	}
	switch name[0] {
	case 'i':
		signed = true
	case 'u':
		signed = false
	default:
		return 0, false, false
	}
	n, err := strconv.Atoi(name[1:])
	if err != nil || n < 1 || n > types.MaxBits {
		return 0, false, false
	}
	return n, signed, true
}

// constantArrayLength evaluates a trivially-constant array-length
// expression: a single integer literal, optionally negated (never valid
// for a length, but parsed so the later type check can reject it
// precisely). Like checker.go's foldConstantInt, it takes no Scope and
// does not resolve identifiers to constants.
func constantArrayLength(expr ast.Expression) (int, bool) {
	if len(expr) != 1 || expr[0].Kind != ast.ElementOperand {
		return 0, false
	}
	if ast.OperandKindOf(expr[0]) != ast.OperandLiteral {
		return 0, false
	}
	lit := ast.OperandPayload(expr[0]).(ast.Literal)
	if lit.Kind != ast.LiteralInteger {
		return 0, false
	}
	digits := strings.ReplaceAll(lit.Value.(string), "_", "")
	base := 10
	if lit.Base == token.Hex {
		base = 16
		digits = strings.TrimPrefix(strings.TrimPrefix(digits, "0x"), "0X")
	}
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
