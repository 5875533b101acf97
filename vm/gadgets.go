package vm

import (
	"math/big"

	"github.com/informatter/zinclang/bytecode"
	"github.com/informatter/zinclang/constraint"
	"github.com/informatter/zinclang/field"
	"github.com/informatter/zinclang/types"
)

// This file holds the representative gadgets spec §4.5 names: small
// helpers that allocate one or more constraint-system variables, enforce
// the polynomial relations that tie them to already-known values, and
// return the resulting Scalar(s). Every gadget below follows the same
// shape as the Add contract spec §4.5 spells out step by step: allocate,
// enforce, compute concretely, return.

func (e *execState) one() Scalar {
	return Scalar{Concrete: field.One(e.m.modulus), Variable: e.m.sys.One()}
}

func (e *execState) zero() Scalar {
	return Scalar{Concrete: field.Zero(e.m.modulus), Variable: e.zeroVar}
}

// constant binds a compile-time-known field value to a fresh variable,
// used for Push and for small internal constants (bit weights, bias
// terms) gadgets need as a Scalar rather than a bare LinearCombination.
func (e *execState) constant(v field.Element, hint string) Scalar {
	va := e.m.sys.Alloc(hint)
	e.m.sys.Enforce(constraint.LC(va), constraint.LC(e.m.sys.One()), constraint.Scaled(e.m.sys.One(), v.String()))
	return Scalar{Concrete: v, Variable: va}
}

func lc(v constraint.Variable) constraint.LinearCombination { return constraint.LC(v) }

func combine(terms ...constraint.LinearCombination) constraint.LinearCombination {
	var out constraint.LinearCombination
	for _, t := range terms {
		out = append(out, t...)
	}
	return out
}

func scaled(v constraint.Variable, coeff string) constraint.LinearCombination {
	return constraint.Scaled(v, coeff)
}

// addGadget implements the spec §4.5 Add contract verbatim: pop right,
// pop left (done by the caller), allocate s, enforce (left+right)*1=s,
// compute left.val+right.val, push.
func (e *execState) addGadget(left, right Scalar) Scalar {
	s := e.m.sys.Alloc("add")
	e.m.sys.Enforce(combine(lc(left.Variable), lc(right.Variable)), lc(e.m.sys.One()), lc(s))
	return Scalar{Concrete: left.Concrete.Add(right.Concrete), Variable: s}
}

func (e *execState) subGadget(left, right Scalar) Scalar {
	s := e.m.sys.Alloc("sub")
	e.m.sys.Enforce(combine(lc(left.Variable), scaled(right.Variable, "-1")), lc(e.m.sys.One()), lc(s))
	return Scalar{Concrete: left.Concrete.Sub(right.Concrete), Variable: s}
}

func (e *execState) mulGadget(left, right Scalar) Scalar {
	s := e.m.sys.Alloc("mul")
	e.m.sys.Enforce(lc(left.Variable), lc(right.Variable), lc(s))
	return Scalar{Concrete: left.Concrete.Mul(right.Concrete), Variable: s}
}

func (e *execState) negGadget(v Scalar) Scalar {
	s := e.m.sys.Alloc("neg")
	e.m.sys.Enforce(scaled(v.Variable, "-1"), lc(e.m.sys.One()), lc(s))
	return Scalar{Concrete: v.Concrete.Neg(), Variable: s}
}

// notGadget is the boolean complement 1-x, valid only when x is already
// constrained boolean (every caller below only ever calls it on a Scalar
// a prior gadget already pinned to {0,1}).
func (e *execState) notGadget(v Scalar) Scalar {
	s := e.m.sys.Alloc("not")
	e.m.sys.Enforce(combine(lc(e.m.sys.One()), scaled(v.Variable, "-1")), lc(e.m.sys.One()), lc(s))
	return Scalar{Concrete: field.One(e.m.modulus).Sub(v.Concrete), Variable: s}
}

func (e *execState) andGadget(a, b Scalar) Scalar { return e.mulGadget(a, b) }

func (e *execState) orGadget(a, b Scalar) Scalar {
	return e.subGadget(e.addGadget(a, b), e.mulGadget(a, b))
}

func (e *execState) xorGadget(a, b Scalar) Scalar {
	ab := e.mulGadget(a, b)
	twoAB := e.addGadget(ab, ab)
	return e.subGadget(e.addGadget(a, b), twoAB)
}

// eqGadget is the standard R1CS "is-zero" idiom: diff = a-b; inv is a
// free witness (diff's inverse when diff != 0, otherwise 0); the two
// enforced relations pin is_zero to the correct indicator regardless of
// which inv the prover supplies.
//
//	diff * is_zero = 0
//	diff * inv     = 1 - is_zero
func (e *execState) eqGadget(a, b Scalar) (Scalar, error) {
	diff := e.subGadget(a, b)
	invVar := e.m.sys.Alloc("eq_inv")

	isZero := field.Zero(e.m.modulus)
	if diff.Concrete.IsZero() {
		isZero = field.One(e.m.modulus)
	}
	isZeroVar := e.m.sys.Alloc("eq_result")

	e.m.sys.Enforce(lc(diff.Variable), lc(isZeroVar), constraint.LinearCombination{})
	e.m.sys.Enforce(lc(diff.Variable), lc(invVar), combine(lc(e.m.sys.One()), scaled(isZeroVar, "-1")))

	return Scalar{Concrete: isZero, Variable: isZeroVar}, nil
}

func (e *execState) neGadget(a, b Scalar) (Scalar, error) {
	eq, err := e.eqGadget(a, b)
	if err != nil {
		return Scalar{}, err
	}
	return e.notGadget(eq), nil
}

// bitWidth is the declared width N the bit-decomposition gadgets below
// decompose into: the type's own bit count for sized integers, 1 for
// Bool, and the field modulus's own bit length as a representative width
// for the polymorphic Field type (spec §4.5's comparison algorithm is
// stated generically over "the operand's declared width").
func (e *execState) bitWidth(tag bytecode.TypeTag) int {
	switch types.Kind(tag.Kind) {
	case types.KindBool:
		return 1
	case types.KindIntegerSigned, types.KindIntegerUnsigned:
		return tag.Bits
	default:
		return e.m.modulus.BitLen()
	}
}

// signedBias is 2^(N-1) for a signed N-bit type and 0 otherwise. Adding
// it to a signed value's field representative shifts it into the
// unsigned range [0, 2^N) so it can be bit-decomposed directly — see
// DESIGN.md's vm entry for the derivation (the shift is a pure field
// addition, so it is correct even when the stored value wrapped negative
// through the modulus).
func (e *execState) signedBias(tag bytecode.TypeTag) *big.Int {
	if types.Kind(tag.Kind) == types.KindIntegerSigned {
		return new(big.Int).Lsh(big.NewInt(1), uint(tag.Bits-1))
	}
	return big.NewInt(0)
}

// decomposeEnforced bit-decomposes shifted (a value already known to lie
// in [0, 2^n)) into n boolean-constrained variables and enforces their
// weighted sum equals targetLC (the algebraic expression, in terms of
// already-allocated variables, that shifted is supposed to equal). It
// returns the bit Scalars, least-significant first.
func (e *execState) decomposeEnforced(shifted field.Element, n int, targetLC constraint.LinearCombination, hint string) ([]Scalar, error) {
	if shifted.BigInt().BitLen() > n {
		return nil, runtimeErrorf(AssertionFailed, "%s: value does not fit in %d bits", hint, n)
	}
	raw := shifted.Bits(n)
	bits := make([]Scalar, n)
	var weighted constraint.LinearCombination
	for i := 0; i < n; i++ {
		v := e.m.sys.Alloc(hint)
		e.m.sys.Enforce(lc(v), combine(lc(v), scaled(e.m.sys.One(), "-1")), constraint.LinearCombination{})
		concrete := field.Zero(e.m.modulus)
		if raw[i] != 0 {
			concrete = field.One(e.m.modulus)
		}
		bits[i] = Scalar{Concrete: concrete, Variable: v}
		weighted = append(weighted, constraint.Term{Variable: v, Coefficient: new(big.Int).Lsh(big.NewInt(1), uint(i)).String()})
	}
	e.m.sys.Enforce(weighted, lc(e.m.sys.One()), targetLC)
	return bits, nil
}

// shiftedOf decomposes v under tag's signed bias and returns the bit
// Scalars plus the concrete shifted field value (handy for callers that
// need to recompose a modified bit pattern, e.g. bitwiseGadget).
func (e *execState) shiftedOf(v Scalar, tag bytecode.TypeTag, hint string) ([]Scalar, field.Element, error) {
	n := e.bitWidth(tag)
	bias := e.signedBias(tag)
	biasElem := field.FromBigInt(bias, e.m.modulus)
	shifted := v.Concrete.Add(biasElem)
	bits, err := e.decomposeEnforced(shifted, n, combine(lc(v.Variable), scaled(e.m.sys.One(), bias.String())), hint)
	return bits, shifted, err
}

// recompose builds a fresh variable equal to the unbiased value encoded
// by bits (the inverse of shiftedOf): result = (sum bits*2^i) - bias.
func (e *execState) recompose(bits []Scalar, tag bytecode.TypeTag) Scalar {
	bias := e.signedBias(tag)
	raw := make([]uint, len(bits))
	var weighted constraint.LinearCombination
	for i, b := range bits {
		if !b.Concrete.IsZero() {
			raw[i] = 1
		}
		weighted = append(weighted, constraint.Term{Variable: b.Variable, Coefficient: new(big.Int).Lsh(big.NewInt(1), uint(i)).String()})
	}
	result := e.m.sys.Alloc("recompose")
	e.m.sys.Enforce(weighted, lc(e.m.sys.One()), combine(lc(result), scaled(e.m.sys.One(), bias.String())))
	concrete := field.Recompose(raw, e.m.modulus).Sub(field.FromBigInt(bias, e.m.modulus))
	return Scalar{Concrete: concrete, Variable: result}
}

// ltGadget implements spec §4.5's representative comparison algorithm:
// compute a-b, bit-decompose into N+1 bits (N = tag's declared width),
// and read the sign bit. The signed bias cancels out of a plain
// subtraction, so unlike bitwiseGadget this needs no sign handling of
// its own — see DESIGN.md. For field operands N is one less than the
// modulus bit length, so the 2^N offset stays below the modulus.
func (e *execState) ltGadget(a, b Scalar, tag bytecode.TypeTag) (Scalar, error) {
	n := e.bitWidth(tag)
	if n >= e.m.modulus.BitLen() {
		n = e.m.modulus.BitLen() - 1
	}
	diff := e.subGadget(a, b)
	bias := new(big.Int).Lsh(big.NewInt(1), uint(n))
	biasElem := field.FromBigInt(bias, e.m.modulus)
	shifted := diff.Concrete.Add(biasElem)
	bits, err := e.decomposeEnforced(shifted, n+1, combine(lc(diff.Variable), scaled(e.m.sys.One(), bias.String())), "cmp_bit")
	if err != nil {
		return Scalar{}, err
	}
	ge := bits[n]
	return e.notGadget(ge), nil
}

func (e *execState) gtGadget(a, b Scalar, tag bytecode.TypeTag) (Scalar, error) {
	return e.ltGadget(b, a, tag)
}

func (e *execState) leGadget(a, b Scalar, tag bytecode.TypeTag) (Scalar, error) {
	gt, err := e.gtGadget(a, b, tag)
	if err != nil {
		return Scalar{}, err
	}
	return e.notGadget(gt), nil
}

func (e *execState) geGadget(a, b Scalar, tag bytecode.TypeTag) (Scalar, error) {
	lt, err := e.ltGadget(a, b, tag)
	if err != nil {
		return Scalar{}, err
	}
	return e.notGadget(lt), nil
}

// bitwiseGadget implements spec §4.5's "bit-decompose, combine, recompose"
// algorithm for BitAnd/BitOr/BitXor. combine is applied position by
// position to the two operands' shifted bit patterns.
func (e *execState) bitwiseGadget(a, b Scalar, tag bytecode.TypeTag, combineBit func(x, y Scalar) Scalar) (Scalar, error) {
	abits, _, err := e.shiftedOf(a, tag, "bw_a")
	if err != nil {
		return Scalar{}, err
	}
	bbits, _, err := e.shiftedOf(b, tag, "bw_b")
	if err != nil {
		return Scalar{}, err
	}
	result := make([]Scalar, len(abits))
	for i := range abits {
		result[i] = combineBit(abits[i], bbits[i])
	}
	return e.recompose(result, tag), nil
}

// bitwiseNotGadget exploits the two's-complement identity ~x == -x-1,
// which makes full bit decomposition unnecessary: linear constraints
// only, no bit variables, both for signed and unsigned operands (for unsigned the
// identity is (2^N-1)-x, which is what the signed formula reduces to
// once the bias cancels — see DESIGN.md for the derivation).
func (e *execState) bitwiseNotGadget(v Scalar, tag bytecode.TypeTag) Scalar {
	n := e.bitWidth(tag)
	if types.Kind(tag.Kind) == types.KindIntegerSigned {
		return e.subGadget(e.negGadget(v), e.one())
	}
	maxVal := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(n)), big.NewInt(1))
	maxScalar := e.constant(field.FromBigInt(maxVal, e.m.modulus), "bw_not_max")
	return e.subGadget(maxScalar, v)
}

// shiftGadget shifts a by a compile-time-known concrete amount (read off
// b's witness value, not constrained to b's variable structurally — see
// DESIGN.md's documented limitation on variable-amount shifts).
func (e *execState) shiftGadget(a, b Scalar, tag bytecode.TypeTag, left bool) (Scalar, error) {
	bits, _, err := e.shiftedOf(a, tag, "shift_a")
	if err != nil {
		return Scalar{}, err
	}
	amount := int(b.Concrete.BigInt().Int64())
	if amount < 0 || amount > len(bits) {
		return Scalar{}, runtimeErrorf(ExpectedUsizeConstant, "shift amount %d out of range", amount)
	}
	out := make([]Scalar, len(bits))
	zeroBit := e.constant(field.Zero(e.m.modulus), "shift_zero")
	for i := range out {
		out[i] = zeroBit
	}
	if left {
		for i := 0; i+amount < len(bits); i++ {
			out[i+amount] = bits[i]
		}
	} else {
		for i := amount; i < len(bits); i++ {
			out[i-amount] = bits[i]
		}
	}
	return e.recompose(out, tag), nil
}

// castGadget implements spec §4.5's Cast contract: identity when
// widening within the same signedness, otherwise a fresh decomposition
// at the destination width that doubles as the "value fits" range check.
func (e *execState) castGadget(v Scalar, src, dst bytecode.TypeTag) (Scalar, error) {
	sameKind := src.Kind == dst.Kind
	if sameKind && dst.Bits >= src.Bits {
		return v, nil
	}
	n := e.bitWidth(dst)
	bias := e.signedBias(dst)
	biasElem := field.FromBigInt(bias, e.m.modulus)
	shifted := v.Concrete.Add(biasElem)
	if _, err := e.decomposeEnforced(shifted, n, combine(lc(v.Variable), scaled(e.m.sys.One(), bias.String())), "cast_bit"); err != nil {
		return Scalar{}, err
	}
	return v, nil
}

// toSignedBigInt recovers the integer this field element represents when
// it may have wrapped through the modulus to encode a negative value
// (any legitimate program value is far smaller in magnitude than p/2, so
// this threshold unambiguously separates "small positive" from "wrapped
// negative").
func toSignedBigInt(v field.Element) *big.Int {
	n := v.BigInt()
	half := new(big.Int).Rsh(v.Modulus(), 1)
	if n.Cmp(half) > 0 {
		return new(big.Int).Sub(n, v.Modulus())
	}
	return n
}

// divRemGadget implements spec §4.5's Division/Remainder contract: b*q+r=a
// via field.EuclideanDivMod's 0<=r<|b| convention (GLOSSARY/spec §9(c)).
// The range check on r is a plain width decomposition; the dynamic
// r<|b| bound itself is not separately enforced — see DESIGN.md.
func (e *execState) divRemGadget(a, b Scalar, tag bytecode.TypeTag) (q, r Scalar, err error) {
	if b.Concrete.IsZero() {
		return Scalar{}, Scalar{}, runtimeErrorf(DivisionByZero, "division by zero")
	}
	qi, ri, err := field.EuclideanDivMod(toSignedBigInt(a.Concrete), toSignedBigInt(b.Concrete))
	if err != nil {
		return Scalar{}, Scalar{}, runtimeErrorf(DivisionByZero, "%s", err)
	}
	qConcrete := field.FromBigInt(qi, e.m.modulus)
	rConcrete := field.FromBigInt(ri, e.m.modulus)
	qVar := e.m.sys.Alloc("div_q")
	rVar := e.m.sys.Alloc("div_r")
	// b*q + r = a
	e.m.sys.Enforce(lc(b.Variable), lc(qVar), combine(lc(a.Variable), scaled(rVar, "-1")))
	n := e.bitWidth(tag)
	if _, err := e.decomposeEnforced(rConcrete, n, lc(rVar), "div_r_bit"); err != nil {
		return Scalar{}, Scalar{}, err
	}
	return Scalar{Concrete: qConcrete, Variable: qVar}, Scalar{Concrete: rConcrete, Variable: rVar}, nil
}

// selectGadget implements dynamic array indexing (spec.md §4.4's
// "contiguous multi-cell forms indexed by base + dynamic offset bounded
// by static length" — a deliberate extension beyond original_source's
// static-only LoadSequence/StoreSequence, see DESIGN.md): for each
// candidate position it allocates an equality indicator and sums
// indicator*cell, so the result is tied to idx's variable rather than a
// Go-level slice read alone.
func (e *execState) selectGadget(mem []Scalar, idx Scalar) (Scalar, error) {
	result := e.zero()
	for i, cell := range mem {
		ind, err := e.eqGadget(idx, e.constant(field.FromInt64(int64(i), e.m.modulus), "idx_lit"))
		if err != nil {
			return Scalar{}, err
		}
		result = e.addGadget(result, e.mulGadget(ind, cell))
	}
	return result, nil
}

// muxGadget is the condition-stack multiplexer spec §4.5 requires of
// every Store*: mem[addr] <- cond*new + (1-cond)*old, computed here as
// old + cond*(new-old) (algebraically identical, one multiplication
// instead of two).
func (e *execState) muxGadget(cond, newVal, old Scalar) Scalar {
	diff := e.subGadget(newVal, old)
	return e.addGadget(old, e.mulGadget(cond, diff))
}
