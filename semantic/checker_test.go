package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/informatter/zinclang/lexer"
	"github.com/informatter/zinclang/parser"
)

func checkSource(t *testing.T, src string) (*Program, *Error) {
	t.Helper()
	tokens, err := lexer.ScanAll(src)
	require.NoError(t, err)
	statements, perr := parser.ParseProgram(tokens)
	require.NoError(t, perr)
	return Check(statements)
}

func TestCheckAcceptsArithmeticOverMatchingFieldOperands(t *testing.T) {
	_, err := checkSource(t, `
		fn add(a: field, b: field) -> field {
			a + b
		}
	`)
	require.Nil(t, err)
}

func TestCheckRejectsMixedTypeArithmetic(t *testing.T) {
	_, err := checkSource(t, `
		fn bad(a: field, b: bool) -> field {
			a + b
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindOperandTypeMismatch, err.Kind)
}

func TestCheckRejectsUndefinedIdentifier(t *testing.T) {
	_, err := checkSource(t, `
		fn bad() -> field {
			missing
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindUndefinedIdentifier, err.Kind)
}

func TestCheckResolvesLetAndAssignment(t *testing.T) {
	_, err := checkSource(t, `
		fn f() -> field {
			let mut x = 1;
			x = 2;
			x
		}
	`)
	require.Nil(t, err)
}

func TestCheckRejectsAssignmentToImmutableLet(t *testing.T) {
	_, err := checkSource(t, `
		fn f() -> field {
			let x = 1;
			x = 2;
			x
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindAssignToImmutable, err.Kind)
}

func TestCheckRejectsNonConstantLoopBound(t *testing.T) {
	_, err := checkSource(t, `
		fn f(n: field) {
			for i in 0..n {
				let x = i;
			}
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindLoopBoundsNotConstant, err.Kind)
}

func TestCheckAcceptsConstantLoopBounds(t *testing.T) {
	_, err := checkSource(t, `
		fn f() {
			for i in 0..4 {
				let x = i;
			}
		}
	`)
	require.Nil(t, err)
}

func TestCheckFunctionCallArityAndTypes(t *testing.T) {
	_, err := checkSource(t, `
		fn double(a: field) -> field {
			a * 2
		}
		fn f() -> field {
			double(5)
		}
	`)
	require.Nil(t, err)
}

func TestCheckRejectsWrongArgumentCount(t *testing.T) {
	_, err := checkSource(t, `
		fn double(a: field) -> field {
			a * 2
		}
		fn f() -> field {
			double(5, 6)
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindArityMismatch, err.Kind)
}

func TestCheckStructFieldAccess(t *testing.T) {
	_, err := checkSource(t, `
		struct Point {
			x: field,
			y: field,
		}
		fn f() -> field {
			let p = Point { x: 1, y: 2 };
			p.x
		}
	`)
	require.Nil(t, err)
}

func TestCheckRejectsUnknownStructField(t *testing.T) {
	_, err := checkSource(t, `
		struct Point {
			x: field,
		}
		fn f() -> field {
			let p = Point { x: 1 };
			p.z
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindFieldNotFound, err.Kind)
}

func TestCheckConditionalBranchesMustMatch(t *testing.T) {
	_, err := checkSource(t, `
		fn f(cond: bool) -> field {
			if cond { 1 } else { true }
		}
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindOperandTypeMismatch, err.Kind)
}

func TestCheckTopLevelConstMustBeCompileTimeConstant(t *testing.T) {
	_, err := checkSource(t, `
		fn one() -> field { 1 }
		const N: field = one();
	`)
	require.NotNil(t, err)
	assert.Equal(t, KindConstantExpressionRequired, err.Kind)
}

func TestCheckArrayLiteralAndIndex(t *testing.T) {
	_, err := checkSource(t, `
		fn f() -> field {
			let xs = [1, 2, 3];
			xs[0]
		}
	`)
	require.Nil(t, err)
}

func TestCheckCastNarrowsToDeclaredIntegerType(t *testing.T) {
	_, err := checkSource(t, `
		fn f() -> u8 {
			let x = 200;
			x as u8
		}
	`)
	require.Nil(t, err)
}
