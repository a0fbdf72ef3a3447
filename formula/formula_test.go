// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for formula parsing, variable collection, and engine binding.

package formula

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/gumtree/cuncert"
	"github.com/AleutianAI/gumtree/uncert"
)

// evalScalar parses src, binds it with no inputs, and returns the
// value.
func evalScalar(t *testing.T, src string) float64 {
	t.Helper()
	f, err := Parse(src)
	require.NoError(t, err)
	node, err := f.BindScalar(nil)
	require.NoError(t, err)
	return node.Value()
}

// Test variable collection
func TestParse_Variables(t *testing.T) {
	cases := []struct {
		src  string
		want []string
	}{
		{"V * cos(phi) / I", []string{"I", "V", "phi"}},
		{"pi * r^2", []string{"r"}},
		{"j * x + e", []string{"x"}},
		{"hypot(a, b) + a", []string{"a", "b"}},
		{"42", []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			f, err := Parse(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.Variables())
			assert.Equal(t, tc.src, f.Source())
		})
	}
}

// Test precedence and associativity through evaluated values
func TestBindScalar_Precedence(t *testing.T) {
	cases := []struct {
		src  string
		want float64
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"2 + 3 * 4 ^ 2 - 6 / 3", 48},
		{"2 ^ 3 ^ 2", 512},
		{"-2 ^ 2", -4},
		{"2 ^ -2", 0.25},
		{"--3", 3},
		{"1.5e-3 * 2000", 3},
		{".5 * 4", 2},
		{"10 - 4 - 3", 3},
	}

	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			assert.InDelta(t, tc.want, evalScalar(t, tc.src), 1e-12)
		})
	}
}

// Test the built-in constants
func TestBindScalar_Constants(t *testing.T) {
	assert.InDelta(t, 2*math.Pi, evalScalar(t, "2 * pi"), 1e-15)
	assert.InDelta(t, math.E*math.E, evalScalar(t, "e ^ 2"), 1e-12)
	assert.InDelta(t, math.E, evalScalar(t, "exp(1)"), 1e-15)
}

// Test syntax error reporting
func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		pos  int
		msg  string
	}{
		{"empty", "", 1, "unexpected end of formula"},
		{"dangling operator", "1 +", 4, "unexpected end of formula"},
		{"unclosed paren", "(1 + 2", 7, `expected ")"`},
		{"unclosed call", "sin(x", 6, `expected ")"`},
		{"bad character", "2 $ 2", 3, "unexpected character"},
		{"trailing input", "1 2", 3, "unexpected trailing input"},
		{"adjacent number and constant", "2e", 2, "unexpected trailing input"},
		{"empty argument", "sin(x,)", 7, `unexpected ")"`},
		{"lone dot", ".", 1, "malformed number"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.src)
			require.Error(t, err)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tc.pos, parseErr.Pos)
			assert.Contains(t, parseErr.Msg, tc.msg)
		})
	}
}

// Test binding failures
func TestBindScalar_Errors(t *testing.T) {
	x := uncert.NewInput(2, 0.1, uncert.InfiniteDof)
	inputs := map[string]*uncert.Input{"x": x}

	t.Run("unknown variable", func(t *testing.T) {
		f, err := Parse("x + y")
		require.NoError(t, err)
		_, err = f.BindScalar(inputs)
		require.ErrorIs(t, err, ErrUnknownVariable)

		var bindErr *BindError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, "y", bindErr.Name)
		assert.Equal(t, 5, bindErr.Pos)
	})

	t.Run("unknown function", func(t *testing.T) {
		f, err := Parse("x + cot(x)")
		require.NoError(t, err)
		_, err = f.BindScalar(inputs)
		assert.ErrorIs(t, err, ErrUnknownFunction)
	})

	t.Run("complex-only function", func(t *testing.T) {
		f, err := Parse("conj(x)")
		require.NoError(t, err)
		_, err = f.BindScalar(inputs)
		assert.ErrorIs(t, err, ErrUnknownFunction)
	})

	t.Run("imaginary unit has no scalar value", func(t *testing.T) {
		f, err := Parse("j * x")
		require.NoError(t, err)
		_, err = f.BindScalar(inputs)
		require.ErrorIs(t, err, ErrUnknownVariable)

		var bindErr *BindError
		require.ErrorAs(t, err, &bindErr)
		assert.Equal(t, "j", bindErr.Name)
	})

	t.Run("wrong arity", func(t *testing.T) {
		f, err := Parse("hypot(x)")
		require.NoError(t, err)
		_, err = f.BindScalar(inputs)

		var arityErr *ArityError
		require.ErrorAs(t, err, &arityErr)
		assert.Equal(t, "hypot", arityErr.Name)
		assert.Equal(t, 2, arityErr.Want)
		assert.Equal(t, 1, arityErr.Got)
	})

	t.Run("constant zero divisor", func(t *testing.T) {
		f, err := Parse("x / 0")
		require.NoError(t, err)
		_, err = f.BindScalar(inputs)
		assert.ErrorIs(t, err, uncert.ErrDivisionByZero)
	})
}

// Test the GUM resistance example end to end through a formula
func TestBindScalar_ResistanceExample(t *testing.T) {
	v := uncert.NewInput(4.999, 0.0032, uncert.InfiniteDof)
	i := uncert.NewInput(19.661e-3, 0.0095e-3, uncert.InfiniteDof)
	phi := uncert.NewInput(1.04446, 0.00075, uncert.InfiniteDof)

	ctx := uncert.NewContext()
	require.NoError(t, ctx.SetCorrelation(v, i, -0.36))
	require.NoError(t, ctx.SetCorrelation(v, phi, 0.86))
	require.NoError(t, ctx.SetCorrelation(i, phi, -0.65))

	f, err := Parse("V * cos(phi) / I")
	require.NoError(t, err)
	assert.Equal(t, []string{"I", "V", "phi"}, f.Variables())

	r, err := f.BindScalar(map[string]*uncert.Input{"V": v, "I": i, "phi": phi})
	require.NoError(t, err)

	assert.InDelta(t, 127.732169928, r.Value(), 5e-9)

	u, err := ctx.Uncertainty(r)
	require.NoError(t, err)
	assert.InDelta(t, 0.069978727988, u, 5e-9)
}

// Test complex binding with the imaginary unit
func TestBindComplex_ImpedanceExample(t *testing.T) {
	v := cuncert.Gaussian(4.999, 0.003209, 0, cuncert.InfiniteDof)
	i := cuncert.Gaussian(19.661e-3, 9.47e-6, 0, cuncert.InfiniteDof)
	phi := cuncert.Gaussian(1.04446, 7.521e-4, 0, cuncert.InfiniteDof)

	ctx := cuncert.NewContext()
	require.NoError(t, ctx.SetCorrelation(v, i, mat.NewDense(2, 2, []float64{-0.36, 0, 0, 0})))
	require.NoError(t, ctx.SetCorrelation(v, phi, mat.NewDense(2, 2, []float64{0.86, 0, 0, 0})))
	require.NoError(t, ctx.SetCorrelation(i, phi, mat.NewDense(2, 2, []float64{-0.65, 0, 0, 0})))

	f, err := Parse("V * exp(j * phi) / I")
	require.NoError(t, err)

	z, err := f.BindComplex(map[string]*cuncert.Input{"V": v, "I": i, "phi": phi})
	require.NoError(t, err)

	assert.Less(t, cmplx.Abs((127.732169928+219.846511913i)-z.Value()), 1e-5)

	cov, err := ctx.Uncertainty(z)
	require.NoError(t, err)
	want := mat.NewDense(2, 2, []float64{0.00493636, -0.01237897, -0.01237897, 0.08766197})
	assert.True(t, mat.EqualApprox(want, cov, 1e-8),
		"want\n%v\ngot\n%v", mat.Formatted(want), mat.Formatted(cov))
}

// Test complex-only names
func TestBindComplex_Conj(t *testing.T) {
	x := cuncert.NewInput(3+4i, 0.1, 0.1, cuncert.InfiniteDof)

	f, err := Parse("conj(x)")
	require.NoError(t, err)
	node, err := f.BindComplex(map[string]*cuncert.Input{"x": x})
	require.NoError(t, err)
	assert.Equal(t, 3-4i, node.Value())
}

// Test that binding reuses the same leaf for repeated identifiers
func TestBind_SharedLeafIdentity(t *testing.T) {
	x := uncert.NewInput(3, 0.1, uncert.InfiniteDof)

	f, err := Parse("x * x")
	require.NoError(t, err)
	node, err := f.BindScalar(map[string]*uncert.Input{"x": x})
	require.NoError(t, err)

	require.Len(t, node.Leaves(), 1)

	// d(x^2) weighted by u: 2 * 3 * 0.1
	d, err := node.DerivativeWrt(x)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, d, 1e-15)
}
