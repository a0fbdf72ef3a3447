// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for complex correlation bookkeeping, covariance combination,
// and Willink-Hall effective degrees of freedom.

package cuncert

import (
	"math"
	"math/cmplx"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// badRef resolves to no leaf at all.
type badRef struct{}

func (badRef) UncertainInput() (*Input, error) { return nil, ErrNotLeaf }

// covariance evaluates the combined covariance matrix and fails the
// test on error.
func covariance(t *testing.T, ctx *Context, node Component) *mat.Dense {
	t.Helper()
	cov, err := ctx.Uncertainty(node)
	require.NoError(t, err)
	return cov
}

// Test correlation registration and lookup
func TestContext_Correlation(t *testing.T) {
	ctx := NewContext()
	a := NewInput(1+1i, 0.1, 0.1, InfiniteDof)
	b := NewInput(2-1i, 0.2, 0.2, InfiniteDof)

	t.Run("unknown pairs are uncorrelated", func(t *testing.T) {
		m, err := ctx.Correlation(a, b)
		require.NoError(t, err)
		requireMatEqual(t, zeroJacobian(), m, 0)
	})

	t.Run("self correlation is the identity", func(t *testing.T) {
		m, err := ctx.Correlation(a, a)
		require.NoError(t, err)
		requireMatEqual(t, mat.NewDense(2, 2, []float64{1, 0, 0, 1}), m, 0)
	})

	t.Run("both orderings share one matrix", func(t *testing.T) {
		// Deliberately asymmetric so a transpose would be caught.
		reg := mat.NewDense(2, 2, []float64{0.5, 0.3, 0.1, 0.2})
		require.NoError(t, ctx.SetCorrelation(a, b, reg))

		ab, err := ctx.Correlation(a, b)
		require.NoError(t, err)
		ba, err := ctx.Correlation(b, a)
		require.NoError(t, err)
		requireMatEqual(t, reg, ab, 0)
		requireMatEqual(t, reg, ba, 0)
		assert.Equal(t, 1, ctx.Size())
	})

	t.Run("overwrite keeps a single entry", func(t *testing.T) {
		require.NoError(t, ctx.SetCorrelation(b, a, mat.NewDense(2, 2, []float64{0.9, 0, 0, 0})))
		m, err := ctx.Correlation(a, b)
		require.NoError(t, err)
		assert.Equal(t, 0.9, m.At(0, 0))
		assert.Equal(t, 1, ctx.Size())
	})
}

// Test that registered and returned matrices are detached copies
func TestContext_Correlation_CopySemantics(t *testing.T) {
	ctx := NewContext()
	a := NewInput(1, 0.1, 0.1, InfiniteDof)
	b := NewInput(2, 0.2, 0.2, InfiniteDof)

	reg := mat.NewDense(2, 2, []float64{0.5, 0, 0, 0})
	require.NoError(t, ctx.SetCorrelation(a, b, reg))

	reg.Set(0, 0, -1)
	m, err := ctx.Correlation(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.At(0, 0))

	m.Set(0, 0, 99)
	again, err := ctx.Correlation(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.5, again.At(0, 0))
}

// Test SetCorrelation rejections
func TestContext_SetCorrelation_Errors(t *testing.T) {
	ctx := NewContext()
	a := NewInput(1, 0.1, 0.1, InfiniteDof)
	b := NewInput(2, 0.2, 0.2, InfiniteDof)

	t.Run("nil matrix", func(t *testing.T) {
		err := ctx.SetCorrelation(a, b, nil)
		require.Error(t, err)
		var shape *CorrelationShapeError
		assert.ErrorAs(t, err, &shape)
	})

	t.Run("wrong shape", func(t *testing.T) {
		err := ctx.SetCorrelation(a, b, mat.NewDense(3, 3, nil))
		require.Error(t, err)
		var shape *CorrelationShapeError
		require.ErrorAs(t, err, &shape)
		assert.Equal(t, 3, shape.Rows)
		assert.Equal(t, 3, shape.Cols)
	})

	t.Run("unresolvable reference", func(t *testing.T) {
		err := ctx.SetCorrelation(badRef{}, b, mat.NewDense(2, 2, nil))
		assert.ErrorIs(t, err, ErrNotLeaf)

		_, err = ctx.Correlation(a, badRef{})
		assert.ErrorIs(t, err, ErrNotLeaf)
	})

	t.Run("self registration is a no-op", func(t *testing.T) {
		require.NoError(t, ctx.SetCorrelation(a, a, mat.NewDense(2, 2, []float64{0, 1, 1, 0})))
		assert.Equal(t, 0, ctx.Size())

		m, err := ctx.Correlation(a, a)
		require.NoError(t, err)
		requireMatEqual(t, mat.NewDense(2, 2, []float64{1, 0, 0, 1}), m, 0)
	})
}

// Test covariance of bare and combined leaves
func TestContext_Uncertainty(t *testing.T) {
	ctx := NewContext()

	t.Run("single leaf", func(t *testing.T) {
		a := NewInput(1+2i, 0.3, 0.4, InfiniteDof)
		want := mat.NewDense(2, 2, []float64{0.09, 0, 0, 0.16})
		requireMatEqual(t, want, covariance(t, ctx, a), 1e-15)
	})

	t.Run("uncorrelated sum adds variances", func(t *testing.T) {
		a := NewInput(1, 0.1, 0, InfiniteDof)
		b := NewInput(1, 0.2, 0, InfiniteDof)
		cov := covariance(t, ctx, Add(a, b))
		assert.InDelta(t, 0.05, cov.At(0, 0), 1e-15)
		assert.InDelta(t, 0, cov.At(1, 1), 1e-15)
	})

	t.Run("correlated sum matches the scalar cross term", func(t *testing.T) {
		a := NewInput(1, 0.1, 0, InfiniteDof)
		b := NewInput(1, 0.2, 0, InfiniteDof)
		require.NoError(t, ctx.SetCorrelation(a, b, mat.NewDense(2, 2, []float64{0.5, 0, 0, 0})))

		cov := covariance(t, ctx, Add(a, b))
		// u1^2 + u2^2 + 2*r*u1*u2
		assert.InDelta(t, 0.07, cov.At(0, 0), 1e-15)
	})

	t.Run("nil component", func(t *testing.T) {
		_, err := ctx.Uncertainty(nil)
		assert.ErrorIs(t, err, ErrNilComponent)
	})

	t.Run("derivative errors propagate", func(t *testing.T) {
		zero := NewInput(0, 0.1, 0.1, InfiniteDof)
		_, err := ctx.Uncertainty(Sqrt(zero))
		assert.ErrorIs(t, err, ErrDivisionByZero)
	})
}

// Test the ByGUM impedance example.
//
// "ByGUM: A Python software package for calculating measurement
// uncertainty"; B. D. Hall; Industrial Research Limited Report 1305;
// 2005.
func TestContext_ByGUMExample(t *testing.T) {
	ctx := NewContext()
	j := Const(1i)

	v := Gaussian(4.999, 0.003209, 0.0, InfiniteDof)
	i := Gaussian(19.661e-3, 9.47e-6, 0.0, InfiniteDof)
	phi := Gaussian(1.04446, 7.521e-4, 0, InfiniteDof)

	require.NoError(t, ctx.SetCorrelation(v, i, mat.NewDense(2, 2, []float64{-0.36, 0, 0, 0})))
	require.NoError(t, ctx.SetCorrelation(v, phi, mat.NewDense(2, 2, []float64{0.86, 0, 0, 0})))
	require.NoError(t, ctx.SetCorrelation(i, phi, mat.NewDense(2, 2, []float64{-0.65, 0, 0, 0})))

	z, err := Div(Mul(v, Exp(Mul(j, phi))), i)
	require.NoError(t, err)

	// Values from the manual.
	wantValue := 127.732169928 + 219.846511913i
	wantCov := mat.NewDense(2, 2, []float64{
		0.00493636, -0.01237897,
		-0.01237897, 0.08766197,
	})

	assert.Less(t, cmplx.Abs(wantValue-z.Value()), 1e-5)
	requireMatEqual(t, wantCov, covariance(t, ctx, z), 1e-8)

	nu, err := ctx.DegreesOfFreedom(z)
	require.NoError(t, err)
	assert.True(t, math.IsInf(nu, 1))
}

// Test Willink-Hall effective degrees of freedom
func TestContext_DegreesOfFreedom(t *testing.T) {
	ctx := NewContext()

	t.Run("single leaf recovers its own dof", func(t *testing.T) {
		a := NewInput(2+3i, 0.5, 0.3, 7)
		nu, err := ctx.DegreesOfFreedom(a)
		require.NoError(t, err)
		assert.InDelta(t, 7.0, nu, 1e-12)
	})

	t.Run("real-axis leaves reduce to Welch-Satterthwaite", func(t *testing.T) {
		a := NewInput(1, 2, 0, 10)
		b := NewInput(1, 3, 0, 5)
		nu, err := ctx.DegreesOfFreedom(Add(a, b))
		require.NoError(t, err)
		// (u1^2 + u2^2)^2 / (u1^4/nu1 + u2^4/nu2)
		assert.InDelta(t, 169.0/17.8, nu, 1e-12)
	})

	t.Run("any infinite leaf gives infinity", func(t *testing.T) {
		a := NewInput(1, 0.1, 0.1, 10)
		b := NewInput(1, 0.2, 0.2, InfiniteDof)
		nu, err := ctx.DegreesOfFreedom(Add(a, b))
		require.NoError(t, err)
		assert.True(t, math.IsInf(nu, 1))
	})

	t.Run("zero dof counts as infinite", func(t *testing.T) {
		a := NewInput(1, 0.1, 0.1, 0)
		nu, err := ctx.DegreesOfFreedom(a)
		require.NoError(t, err)
		assert.True(t, math.IsInf(nu, 1))
	})

	t.Run("exact leaf with finite dof has no spread", func(t *testing.T) {
		a := NewInput(5, 0, 0, 3)
		nu, err := ctx.DegreesOfFreedom(a)
		require.NoError(t, err)
		assert.True(t, math.IsInf(nu, 1))
	})

	t.Run("constants are infinite", func(t *testing.T) {
		nu, err := ctx.DegreesOfFreedom(Mul(Const(2), Const(3)))
		require.NoError(t, err)
		assert.True(t, math.IsInf(nu, 1))
	})

	t.Run("nil component", func(t *testing.T) {
		_, err := ctx.DegreesOfFreedom(nil)
		assert.ErrorIs(t, err, ErrNilComponent)
	})
}

// Test concurrent registration and evaluation
func TestContext_ConcurrentUse(t *testing.T) {
	ctx := NewContext()
	a := NewInput(1+1i, 0.1, 0.1, InfiniteDof)
	b := NewInput(2-1i, 0.2, 0.2, InfiniteDof)
	node := Mul(a, b)

	var wg sync.WaitGroup
	for g := 0; g < 50; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ctx.SetCorrelation(a, b, mat.NewDense(2, 2, []float64{0.1, 0, 0, 0.1}))
			_, _ = ctx.Uncertainty(node)
			_, _ = ctx.DegreesOfFreedom(node)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ctx.Size())
}
