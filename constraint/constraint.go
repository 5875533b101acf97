// Package constraint models the arithmetic constraint system the VM
// populates while it executes: a borrowed collaborator exposing Alloc,
// AllocInput, Enforce, and One, consumed by the external prover once
// execution completes (spec §3, §4.5, §6).
//
// The teacher has no direct analog for a constraint system — Nilan never
// proves anything about its own execution — so this package is new code.
// Its shape is deliberately as small as the teacher's own vm/stack.go: a
// single-purpose mutable collaborator backed by plain slices, no
// abstraction beyond what the VM actually calls.
package constraint

import "fmt"

// Variable is an opaque handle to one wire of the constraint system.
type Variable int

// Term is one coefficient*variable summand of a LinearCombination.
type Term struct {
	Variable    Variable
	Coefficient string // decimal string, so this package does not depend on field.Element; System implementations interpret it in their own field.
}

// LinearCombination is a sum of Terms, the operand shape Enforce takes.
type LinearCombination []Term

// LC is a convenience constructor for a single-term linear combination with
// coefficient 1.
func LC(v Variable) LinearCombination {
	return LinearCombination{{Variable: v, Coefficient: "1"}}
}

// Scaled returns a single-term linear combination with the given
// coefficient.
func Scaled(v Variable, coefficient string) LinearCombination {
	return LinearCombination{{Variable: v, Coefficient: coefficient}}
}

// System is the constraint-system contract the VM is coded against. A
// concrete System is created per Run/Prove invocation and borrowed mutably
// by the VM for the duration of exactly one execution (spec §3).
type System interface {
	// Alloc allocates a fresh private variable, annotated with hint for
	// debugging/disassembly.
	Alloc(hint string) Variable
	// AllocInput allocates a fresh public variable — used for a program's
	// declared output cells, which the prover pins as public signals.
	AllocInput(hint string) Variable
	// Enforce records the constraint a*b = c over linear combinations of
	// variables.
	Enforce(a, b, c LinearCombination)
	// One returns the constant-1 variable every System exposes.
	One() Variable
}

// Row is one recorded a*b=c triple.
type Row struct {
	A, B, C LinearCombination
}

// R1CS is an in-memory System that records every constraint for later
// hand-off to the external prover (spec §6's `setup`/`prove`/`verify`
// module).
type R1CS struct {
	nextVar Variable
	one     Variable
	hints   map[Variable]string
	inputs  map[Variable]bool
	Rows    []Row
}

// NewR1CS returns an R1CS with its constant-1 variable already allocated.
func NewR1CS() *R1CS {
	r := &R1CS{hints: make(map[Variable]string), inputs: make(map[Variable]bool)}
	r.one = r.alloc("one", false)
	return r
}

func (r *R1CS) alloc(hint string, isInput bool) Variable {
	r.nextVar++
	v := r.nextVar
	r.hints[v] = hint
	r.inputs[v] = isInput
	return v
}

func (r *R1CS) Alloc(hint string) Variable      { return r.alloc(hint, false) }
func (r *R1CS) AllocInput(hint string) Variable { return r.alloc(hint, true) }
func (r *R1CS) One() Variable                   { return r.one }

func (r *R1CS) Enforce(a, b, c LinearCombination) {
	r.Rows = append(r.Rows, Row{A: a, B: b, C: c})
}

// NumVariables reports how many variables (including `one`) have been
// allocated.
func (r *R1CS) NumVariables() int { return int(r.nextVar) }

// NumConstraints reports how many a*b=c rows have been recorded.
func (r *R1CS) NumConstraints() int { return len(r.Rows) }

// Hint returns the debugging annotation a variable was allocated with.
func (r *R1CS) Hint(v Variable) string { return r.hints[v] }

// IsPublicInput reports whether v was allocated via AllocInput.
func (r *R1CS) IsPublicInput(v Variable) bool { return r.inputs[v] }

// String renders a short human-readable summary, used by `zinc assembly`
// and tests.
func (r *R1CS) String() string {
	return fmt.Sprintf("R1CS{variables: %d, constraints: %d}", r.NumVariables(), r.NumConstraints())
}

// NullSystem is a no-op System used for value-only runs that don't need a
// constraint system at all (plain `zinc run`, as opposed to `zinc prove`).
// Every call is cheap and every constraint is discarded.
type NullSystem struct {
	nextVar Variable
}

func NewNullSystem() *NullSystem { return &NullSystem{} }

func (n *NullSystem) Alloc(hint string) Variable {
	n.nextVar++
	return n.nextVar
}

func (n *NullSystem) AllocInput(hint string) Variable {
	n.nextVar++
	return n.nextVar
}

func (n *NullSystem) Enforce(a, b, c LinearCombination) {}

func (n *NullSystem) One() Variable { return 0 }
