// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cuncert

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// pairKey is a canonical unordered pair of leaf identities.
type pairKey struct {
	lo LeafID
	hi LeafID
}

// keyFor normalizes the pair ordering so (a, b) and (b, a) address the
// same table entry.
func keyFor(a, b LeafID) pairKey {
	if b.less(a) {
		return pairKey{lo: b, hi: a}
	}
	return pairKey{lo: a, hi: b}
}

// Context holds 2x2 correlation matrices between leaf inputs and
// combines weighted Jacobians into a covariance matrix and effective
// degrees of freedom.
//
// A zero matrix is assumed for every pair that was never registered; a
// leaf is always correlated with itself by the identity matrix. One
// matrix serves both orderings of a pair.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Context struct {
	mu    sync.RWMutex
	coeff map[pairKey]*mat.Dense
}

// NewContext creates an empty correlation context.
func NewContext() *Context {
	return &Context{coeff: make(map[pairKey]*mat.Dense)}
}

// SetCorrelation registers the 2x2 correlation matrix between two leaf
// inputs. The registration is symmetric: storing (a, b) also answers
// (b, a) with the same matrix.
//
// Setting a leaf's correlation with itself is a no-op; self-correlation
// is always the identity and cannot be overridden.
//
// Entries outside [-1, 1] are accepted with a warning, as in the
// scalar engine.
//
// Inputs:
//   - a, b: Leaf references. May be bare *Input values or quantity
//     wrappers around leaves.
//   - m: The correlation matrix. It is copied; later mutation by the
//     caller does not affect the context.
//
// Outputs:
//   - error: Non-nil when either reference does not resolve to a leaf
//     or when m is not 2x2.
func (c *Context) SetCorrelation(a, b InputRef, m mat.Matrix) error {
	la, err := a.UncertainInput()
	if err != nil {
		return err
	}
	lb, err := b.UncertainInput()
	if err != nil {
		return err
	}
	if m == nil {
		return &CorrelationShapeError{}
	}
	if r, cols := m.Dims(); r != 2 || cols != 2 {
		return &CorrelationShapeError{Rows: r, Cols: cols}
	}
	if la.id == lb.id {
		return nil
	}

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if v := m.At(i, j); v < -1 || v > 1 {
				slog.Warn("correlation entry outside [-1, 1]",
					slog.Float64("entry", v),
					slog.String("a", la.id.String()),
					slog.String("b", lb.id.String()),
				)
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.coeff[keyFor(la.id, lb.id)] = mat.DenseCopyOf(m)
	return nil
}

// Correlation returns a copy of the correlation matrix between two
// leaf inputs: the identity for the same leaf, the registered matrix
// for a known pair, and the zero matrix otherwise.
func (c *Context) Correlation(a, b InputRef) (*mat.Dense, error) {
	la, err := a.UncertainInput()
	if err != nil {
		return nil, err
	}
	lb, err := b.UncertainInput()
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return mat.DenseCopyOf(c.correlationLocked(la.id, lb.id)), nil
}

// correlationLocked looks up a matrix for internal sums. Callers hold
// at least a read lock and must not mutate the result.
func (c *Context) correlationLocked(a, b LeafID) *mat.Dense {
	if a == b {
		return mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	}
	if m, ok := c.coeff[keyFor(a, b)]; ok {
		return m
	}
	return zeroJacobian()
}

// Uncertainty returns the combined standard uncertainty of a node as a
// 2x2 covariance matrix over the (real, imaginary) plane:
//
//	sum_i sum_j J_i * R_ij * J_j^T
//
// where J_i is the node's weighted Jacobian with respect to its i-th
// distinct leaf. The diagonal holds the variances of the real and
// imaginary parts; no square root is applied.
func (c *Context) Uncertainty(node Component) (*mat.Dense, error) {
	if node == nil {
		return nil, ErrNilComponent
	}

	leaves := node.Leaves()
	jacs := make([]*mat.Dense, len(leaves))
	for i, leaf := range leaves {
		j, err := node.DerivativeWrt(leaf)
		if err != nil {
			return nil, err
		}
		jacs[i] = j
	}

	sum := zeroJacobian()
	var term, outer mat.Dense

	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range leaves {
		for j := range leaves {
			corr := c.correlationLocked(leaves[i].id, leaves[j].id)
			term.Mul(jacs[i], corr)
			outer.Mul(&term, jacs[j].T())
			sum.Add(sum, &outer)
		}
	}
	return sum, nil
}

// DegreesOfFreedom returns the effective degrees of freedom of a node
// by the Willink-Hall total-variance formula. Each leaf contributes a
// per-leaf covariance v_i = sum_j J_i * R_ij * J_j^T; with
// S = sum_i v_i the result is
//
//	(2*S_11^2 + S_11*S_22 + S_12^2 + 2*S_22^2) /
//	sum_i (2*v_11^2 + v_11*v_22 + v_12^2 + 2*v_22^2) / nu_i
//
// Any leaf with infinite degrees of freedom makes the result infinite.
// Leaves declared with zero degrees of freedom short-circuit to
// infinity as well, as in the scalar engine.
func (c *Context) DegreesOfFreedom(node Component) (float64, error) {
	if node == nil {
		return 0, ErrNilComponent
	}

	leaves := node.Leaves()
	jacs := make([]*mat.Dense, len(leaves))
	for i, leaf := range leaves {
		j, err := node.DerivativeWrt(leaf)
		if err != nil {
			return 0, err
		}
		jacs[i] = j
	}

	var sum11, sum12, sum22 float64
	var a, d, f float64
	var term, outer mat.Dense

	c.mu.RLock()
	defer c.mu.RUnlock()
	for i, leaf := range leaves {
		nu := leaf.dof
		if math.IsInf(nu, 1) {
			return InfiniteDof, nil
		}
		if nu == 0 {
			return InfiniteDof, nil
		}

		vi := zeroJacobian()
		for j := range leaves {
			corr := c.correlationLocked(leaves[i].id, leaves[j].id)
			term.Mul(jacs[i], corr)
			outer.Mul(&term, jacs[j].T())
			vi.Add(vi, &outer)
		}

		v11 := vi.At(0, 0)
		v12 := vi.At(0, 1)
		v22 := vi.At(1, 1)

		sum11 += v11
		sum12 += v12
		sum22 += v22

		a += 2 * v11 * v11 / nu
		d += (v11*v22 + v12*v12) / nu
		f += 2 * v22 * v22 / nu
	}

	denom := a + d + f
	if denom == 0 {
		return InfiniteDof, nil
	}

	num := 2*sum11*sum11 + sum11*sum22 + sum12*sum12 + 2*sum22*sum22
	return num / denom, nil
}

// Size returns the number of registered correlation pairs, for logs
// and debugging output.
func (c *Context) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.coeff)
}
