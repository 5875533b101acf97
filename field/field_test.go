package field

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArithmeticWrapsModulo(t *testing.T) {
	p := big.NewInt(17)
	a := FromInt64(10, p)
	b := FromInt64(12, p)
	assert.Equal(t, "5", a.Add(b).String()) // 22 mod 17
	assert.Equal(t, "15", a.Sub(b).Add(FromInt64(17, p)).String())
}

func TestSubUnderModulusNormalizes(t *testing.T) {
	p := big.NewInt(17)
	a := FromInt64(3, p)
	b := FromInt64(10, p)
	got := a.Sub(b)
	assert.Equal(t, "10", got.String()) // 3-10 = -7 -> +17 = 10
}

func TestInverse(t *testing.T) {
	p := big.NewInt(17)
	a := FromInt64(5, p)
	inv, err := a.Inverse()
	require.NoError(t, err)
	assert.True(t, a.Mul(inv).Equal(One(p)))
}

func TestInverseOfZeroFails(t *testing.T) {
	p := big.NewInt(17)
	_, err := Zero(p).Inverse()
	require.Error(t, err)
}

func TestBitsRoundTrip(t *testing.T) {
	p := Modulus
	e := FromInt64(0b1011, p)
	bits := e.Bits(8)
	got := Recompose(bits, p)
	assert.True(t, e.Equal(got))
}

func TestEuclideanDivMod(t *testing.T) {
	cases := []struct{ a, b, q, r int64 }{
		{7, 3, 2, 1},
		{-7, 3, -3, 2},
		{7, -3, -2, 1},
		{-7, -3, 3, 2},
	}
	for _, c := range cases {
		q, r, err := EuclideanDivMod(big.NewInt(c.a), big.NewInt(c.b))
		require.NoError(t, err)
		assert.Equal(t, c.q, q.Int64(), "quotient for %d/%d", c.a, c.b)
		assert.Equal(t, c.r, r.Int64(), "remainder for %d/%d", c.a, c.b)
		assert.True(t, r.Sign() >= 0 && r.CmpAbs(big.NewInt(c.b)) < 0)
	}
}

func TestEuclideanDivModByZero(t *testing.T) {
	_, _, err := EuclideanDivMod(big.NewInt(1), big.NewInt(0))
	require.Error(t, err)
}
