// Package types implements the language's type system as an arena of type
// nodes addressed by stable integer handles (spec §9 REDESIGN FLAGS), rather
// than as a tree of Go pointers. A struct field can reference a function
// type that in turn mentions the struct by name without forming an
// ownership cycle, because containment is always by Handle, never by
// embedding another Type value.
//
// Grounded on kralicky-protocompile's symbol-table-by-index style for
// linking descriptors (there, a file's types reference each other by index
// into a table rather than by direct pointer); generalized here from
// protobuf descriptor linking to this language's struct/function/enum type
// graph.
package types

import "fmt"

// Handle addresses a Type node inside an Arena. The zero Handle is never
// valid; arenas allocate starting at 1.
type Handle int

// Kind distinguishes the tagged variants of Type (spec §3).
type Kind int

const (
	KindBool Kind = iota
	KindField
	KindIntegerSigned
	KindIntegerUnsigned
	KindArray
	KindTuple
	KindStructure
	KindEnumeration
	KindFunction
	KindUnit
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindField:
		return "field"
	case KindIntegerSigned:
		return "integer(signed)"
	case KindIntegerUnsigned:
		return "integer(unsigned)"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindStructure:
		return "struct"
	case KindEnumeration:
		return "enum"
	case KindFunction:
		return "function"
	case KindUnit:
		return "unit"
	default:
		return "unknown"
	}
}

// MaxBits is the largest bit-width an integer type may declare; it must fit
// within the field modulus minus a safety margin (spec §3).
const MaxBits = 248

// StructureField names one field of a Structure type.
type StructureField struct {
	Name string
	Type Handle
}

// EnumerationVariant names one variant of an Enumeration type and its
// discriminant value.
type EnumerationVariant struct {
	Name  string
	Value int64
}

// Node is one entry in the Arena: the tagged union described by spec §3,
// with all recursive references expressed as Handles.
type Node struct {
	Kind Kind

	// IntegerSigned / IntegerUnsigned
	Bits int

	// Array
	Element Handle
	Length  int

	// Tuple
	Fields []Handle

	// Structure
	Name            string
	StructureFields []StructureField

	// Enumeration
	Variants []EnumerationVariant

	// Function
	Params []Handle
	Return Handle
}

// Arena owns every Type node reachable from a compiled program. Handles are
// stable for the arena's lifetime: once allocated, a Handle never changes
// meaning.
type Arena struct {
	nodes []Node // nodes[0] is unused; handles start at 1

	boolHandle  Handle
	fieldHandle Handle
	unitHandle  Handle
}

// NewArena returns an Arena pre-populated with the primitive types (Bool,
// Field, Unit), always at handles 1, 2, and 3 respectively.
func NewArena() *Arena {
	a := &Arena{nodes: make([]Node, 1)}
	a.boolHandle = a.alloc(Node{Kind: KindBool})
	a.fieldHandle = a.alloc(Node{Kind: KindField})
	a.unitHandle = a.alloc(Node{Kind: KindUnit})
	return a
}

func (a *Arena) alloc(n Node) Handle {
	a.nodes = append(a.nodes, n)
	return Handle(len(a.nodes) - 1)
}

// Bool returns the handle of the arena's Bool type.
func (a *Arena) Bool() Handle { return a.boolHandle }

// Field returns the handle of the arena's Field type.
func (a *Arena) Field() Handle { return a.fieldHandle }

// Unit returns the handle of the arena's Unit type.
func (a *Arena) Unit() Handle { return a.unitHandle }

// IntegerSigned allocates (or would allocate) a signed integer type of the
// given bit width.
func (a *Arena) IntegerSigned(bits int) Handle {
	return a.alloc(Node{Kind: KindIntegerSigned, Bits: bits})
}

// IntegerUnsigned allocates an unsigned integer type of the given bit width.
func (a *Arena) IntegerUnsigned(bits int) Handle {
	return a.alloc(Node{Kind: KindIntegerUnsigned, Bits: bits})
}

// Array allocates an Array{element,length} type.
func (a *Arena) Array(element Handle, length int) Handle {
	return a.alloc(Node{Kind: KindArray, Element: element, Length: length})
}

// Tuple allocates a Tuple{fields} type.
func (a *Arena) Tuple(fields []Handle) Handle {
	return a.alloc(Node{Kind: KindTuple, Fields: fields})
}

// Structure allocates a Structure{name,fields} type.
func (a *Arena) Structure(name string, fields []StructureField) Handle {
	return a.alloc(Node{Kind: KindStructure, Name: name, StructureFields: fields})
}

// SetStructureFields backfills a Structure node's fields after allocation,
// so a forward pass can register every struct's name (and Handle, stable
// for self- and mutually-recursive field types) before any of their field
// types — which may reference a struct declared later in the same file —
// are resolved.
func (a *Arena) SetStructureFields(h Handle, fields []StructureField) {
	a.nodes[h].StructureFields = fields
}

// Enumeration allocates an Enumeration{name,variants} type.
func (a *Arena) Enumeration(name string, variants []EnumerationVariant) Handle {
	return a.alloc(Node{Kind: KindEnumeration, Name: name, Variants: variants})
}

// Function allocates a Function{params,return} type.
func (a *Arena) Function(params []Handle, ret Handle) Handle {
	return a.alloc(Node{Kind: KindFunction, Params: params, Return: ret})
}

// Get dereferences a Handle into its Node. Invariant: every Handle passed in
// was returned by this same Arena.
func (a *Arena) Get(h Handle) Node {
	if int(h) <= 0 || int(h) >= len(a.nodes) {
		panic(fmt.Sprintf("types: invalid handle %d", h))
	}
	return a.nodes[h]
}

// Equal reports whether two handles denote structurally identical types.
// Structure/Enumeration equality is nominal (by Name); every other kind is
// structural.
func (a *Arena) Equal(x, y Handle) bool {
	if x == y {
		return true
	}
	nx, ny := a.Get(x), a.Get(y)
	if nx.Kind != ny.Kind {
		return false
	}
	switch nx.Kind {
	case KindBool, KindField, KindUnit:
		return true
	case KindIntegerSigned, KindIntegerUnsigned:
		return nx.Bits == ny.Bits
	case KindArray:
		return nx.Length == ny.Length && a.Equal(nx.Element, ny.Element)
	case KindTuple:
		if len(nx.Fields) != len(ny.Fields) {
			return false
		}
		for i := range nx.Fields {
			if !a.Equal(nx.Fields[i], ny.Fields[i]) {
				return false
			}
		}
		return true
	case KindStructure, KindEnumeration:
		return nx.Name == ny.Name
	case KindFunction:
		if len(nx.Params) != len(ny.Params) || !a.Equal(nx.Return, ny.Return) {
			return false
		}
		for i := range nx.Params {
			if !a.Equal(nx.Params[i], ny.Params[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a Handle's type as source-like text, for diagnostics and
// disassembly.
func (a *Arena) String(h Handle) string {
	n := a.Get(h)
	switch n.Kind {
	case KindBool:
		return "bool"
	case KindField:
		return "field"
	case KindIntegerSigned:
		return fmt.Sprintf("i%d", n.Bits)
	case KindIntegerUnsigned:
		return fmt.Sprintf("u%d", n.Bits)
	case KindArray:
		return fmt.Sprintf("[%s; %d]", a.String(n.Element), n.Length)
	case KindTuple:
		s := "("
		for i, f := range n.Fields {
			if i > 0 {
				s += ", "
			}
			s += a.String(f)
		}
		return s + ")"
	case KindStructure:
		return n.Name
	case KindEnumeration:
		return n.Name
	case KindFunction:
		s := "fn("
		for i, p := range n.Params {
			if i > 0 {
				s += ", "
			}
			s += a.String(p)
		}
		return s + fmt.Sprintf(") -> %s", a.String(n.Return))
	case KindUnit:
		return "()"
	default:
		return "?"
	}
}
