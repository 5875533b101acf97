package constraint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestR1CSAllocatesOneFirst(t *testing.T) {
	r := NewR1CS()
	assert.Equal(t, 1, r.NumVariables())
	assert.Equal(t, "one", r.Hint(r.One()))
	assert.False(t, r.IsPublicInput(r.One()))
}

func TestR1CSAllocDistinctVariables(t *testing.T) {
	r := NewR1CS()
	a := r.Alloc("a")
	b := r.AllocInput("b")
	assert.NotEqual(t, a, b)
	assert.False(t, r.IsPublicInput(a))
	assert.True(t, r.IsPublicInput(b))
	assert.Equal(t, 3, r.NumVariables())
}

func TestR1CSEnforceRecordsRows(t *testing.T) {
	r := NewR1CS()
	a := r.Alloc("a")
	b := r.Alloc("b")
	c := r.Alloc("c")
	r.Enforce(LC(a), LC(b), LC(c))
	assert.Equal(t, 1, r.NumConstraints())
	assert.Equal(t, a, r.Rows[0].A[0].Variable)
}

func TestScaledSetsCoefficient(t *testing.T) {
	lc := Scaled(Variable(5), "-1")
	assert.Equal(t, "-1", lc[0].Coefficient)
}

func TestNullSystemDiscardsConstraintsButAllocatesDistinctVariables(t *testing.T) {
	n := NewNullSystem()
	a := n.Alloc("a")
	b := n.AllocInput("b")
	assert.NotEqual(t, a, b)
	n.Enforce(LC(a), LC(b), LC(a)) // must not panic
}
