// Package field implements arithmetic in a prime field using math/big. No
// finite-field or big-integer library appears anywhere in the retrieved
// example corpus (six Go repos: a toy interpreter, a protobuf compiler, a
// shell-command DSL, a wasm runtime, and their shared dependencies) — none
// touch cryptography or modular arithmetic, so math/big is used directly
// rather than an invented or mismatched ecosystem dependency. See
// DESIGN.md's standard-library justification entry for this package.
package field

import (
	"fmt"
	"math/big"
)

// Modulus is the default scalar-field order of the scaffold's chosen curve
// (the BN254/alt_bn128 scalar field), matching the zinc scaffold's field.
var Modulus = mustParse("21888242871839275222246405745257275088548364400416034343698204186575808495617")

func mustParse(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("field: invalid modulus literal")
	}
	return n
}

// Element is a field value: an arbitrary-precision integer normalized into
// [0, p). The invariant is enforced by every constructor and operation in
// this package — no exported function can produce an Element outside that
// range.
type Element struct {
	value *big.Int
	mod   *big.Int
}

// Zero returns the additive identity of the field with modulus p.
func Zero(p *big.Int) Element {
	return Element{value: big.NewInt(0), mod: p}
}

// One returns the multiplicative identity of the field with modulus p.
func One(p *big.Int) Element {
	return Element{value: big.NewInt(1), mod: p}
}

// FromInt64 reduces n modulo p into an Element.
func FromInt64(n int64, p *big.Int) Element {
	v := big.NewInt(n)
	return normalize(v, p)
}

// FromBigInt reduces n modulo p into an Element. n is not mutated.
func FromBigInt(n *big.Int, p *big.Int) Element {
	return normalize(new(big.Int).Set(n), p)
}

func normalize(v *big.Int, p *big.Int) Element {
	v.Mod(v, p)
	return Element{value: v, mod: p}
}

// Modulus returns the field this Element belongs to.
func (e Element) Modulus() *big.Int { return e.mod }

// BigInt returns the element's representative in [0, p) as a fresh big.Int.
func (e Element) BigInt() *big.Int { return new(big.Int).Set(e.value) }

// IsZero reports whether the element is the field's additive identity.
func (e Element) IsZero() bool { return e.value.Sign() == 0 }

// Bit reports whether bit i (0 = least significant) of the element's
// canonical representative is set. Used by the VM's bit-decomposition
// gadgets for comparison, bitwise ops, and shifts.
func (e Element) Bit(i int) uint {
	return e.value.Bit(i)
}

func (e Element) requireSameField(o Element) {
	if e.mod.Cmp(o.mod) != 0 {
		panic(fmt.Sprintf("field: operands belong to different fields (%s vs %s)", e.mod, o.mod))
	}
}

// Add returns e+o mod p.
func (e Element) Add(o Element) Element {
	e.requireSameField(o)
	return normalize(new(big.Int).Add(e.value, o.value), e.mod)
}

// Sub returns e-o mod p.
func (e Element) Sub(o Element) Element {
	e.requireSameField(o)
	return normalize(new(big.Int).Sub(e.value, o.value), e.mod)
}

// Mul returns e*o mod p.
func (e Element) Mul(o Element) Element {
	e.requireSameField(o)
	return normalize(new(big.Int).Mul(e.value, o.value), e.mod)
}

// Neg returns -e mod p.
func (e Element) Neg() Element {
	return normalize(new(big.Int).Neg(e.value), e.mod)
}

// Inverse returns the multiplicative inverse of e, or an error if e is zero.
func (e Element) Inverse() (Element, error) {
	if e.IsZero() {
		return Element{}, fmt.Errorf("field: inverse of zero is undefined")
	}
	inv := new(big.Int).ModInverse(e.value, e.mod)
	return Element{value: inv, mod: e.mod}, nil
}

// Pow returns e^n mod p for n >= 0.
func (e Element) Pow(n uint64) Element {
	exp := new(big.Int).SetUint64(n)
	return normalize(new(big.Int).Exp(e.value, exp, e.mod), e.mod)
}

// Equal reports whether two elements of the same field have equal value.
func (e Element) Equal(o Element) bool {
	return e.mod.Cmp(o.mod) == 0 && e.value.Cmp(o.value) == 0
}

// String renders the element's decimal representative.
func (e Element) String() string {
	return e.value.String()
}

// Bits returns the low n bits of e's canonical representative, least
// significant first. Used to implement bit-decomposition-based gadgets
// (comparison, bitwise ops, shifts) per spec §4.5.
func (e Element) Bits(n int) []uint {
	out := make([]uint, n)
	for i := 0; i < n; i++ {
		out[i] = e.value.Bit(i)
	}
	return out
}

// Recompose reassembles an Element from its low-to-high bit decomposition,
// the inverse of Bits.
func Recompose(bits []uint, p *big.Int) Element {
	v := new(big.Int)
	for i := len(bits) - 1; i >= 0; i-- {
		v.Lsh(v, 1)
		if bits[i] != 0 {
			v.SetBit(v, 0, 1)
		}
	}
	return normalize(v, p)
}

// EuclideanDivMod computes the Euclidean quotient and remainder of signed
// integers a/b: the unique q, r such that a = b*q + r and 0 <= r < |b|. This
// is the contract spec §9(c)/GLOSSARY pins down for signed integer division
// and remainder inside the VM, since the Rust original left its sign
// convention implicit.
func EuclideanDivMod(a, b *big.Int) (q, r *big.Int, err error) {
	if b.Sign() == 0 {
		return nil, nil, fmt.Errorf("field: division by zero")
	}
	q, r = new(big.Int), new(big.Int)
	q.QuoRem(a, b, r)
	if r.Sign() < 0 {
		if b.Sign() > 0 {
			r.Add(r, b)
			q.Sub(q, big.NewInt(1))
		} else {
			r.Sub(r, b)
			q.Add(q, big.NewInt(1))
		}
	}
	return q, r, nil
}
