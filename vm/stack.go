package vm

import (
	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
)

// Scalar is the VM's one stack/memory cell (spec §3): a concrete field
// value paired with the constraint-system variable it is tied to. Every
// instruction below updates both halves in lockstep, the "dual mode"
// spec §4.5 names.
type Scalar struct {
	Concrete field.Element
	Variable constraint.Variable
}

// Stack is the teacher's vm/stack.go generalized from Stack []any to a
// typed Stack []Scalar: same IsEmpty/Push/Pop/Peek shape, no behavior
// change beyond the element type.
type Stack []Scalar

func (s *Stack) IsEmpty() bool {
	return len(*s) == 0
}

func (s *Stack) Push(value Scalar) {
	*s = append(*s, value)
}

func (s *Stack) Pop() (Scalar, bool) {
	if s.IsEmpty() {
		return Scalar{}, false
	}
	index := len(*s) - 1
	element := (*s)[index]
	*s = (*s)[:index]
	return element, true
}

func (s *Stack) Peek() (Scalar, bool) {
	if s.IsEmpty() {
		return Scalar{}, false
	}
	index := len(*s) - 1
	return (*s)[index], true
}
