// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package uncert

import (
	"log/slog"
	"math"
	"sync"
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

// Context holds pairwise correlation coefficients between leaf inputs
// and combines weighted derivatives into standard uncertainties and
// effective degrees of freedom.
//
// A zero correlation is assumed for every pair that was never
// registered; a leaf is always fully correlated with itself.
//
// # Thread Safety
//
// All methods are safe for concurrent use. The correlation table is
// guarded by an RWMutex so concurrent Uncertainty calls do not block
// each other.
type Context struct {
	mu    sync.RWMutex
	coeff map[pairKey]float64
}

// NewContext creates an empty correlation context.
func NewContext() *Context {
	return &Context{
		coeff: make(map[pairKey]float64),
	}
}

// SetCorrelation registers the correlation coefficient between two
// leaf inputs. The registration is symmetric: storing (a, b) also
// answers (b, a).
//
// Setting a leaf's correlation with itself is a no-op; self-correlation
// is always exactly 1 and cannot be overridden.
//
// Coefficients outside [-1, 1] are accepted with a warning. They have
// no physical interpretation but are useful for sensitivity
// experiments; a combined variance driven negative by such values
// yields a NaN uncertainty.
//
// Inputs:
//   - a, b: Leaf references. May be bare *Input values or quantity
//     wrappers around leaves.
//   - coeff: The correlation coefficient.
//
// Outputs:
//   - error: Non-nil when either reference does not resolve to a leaf.
func (c *Context) SetCorrelation(a, b InputRef, coeff float64) error {
	la, err := a.UncertainInput()
	if err != nil {
		return err
	}
	lb, err := b.UncertainInput()
	if err != nil {
		return err
	}
	if la.id == lb.id {
		return nil
	}
	if coeff < -1 || coeff > 1 {
		slog.Warn("correlation coefficient outside [-1, 1]",
			slog.Float64("coefficient", coeff),
			slog.String("a", la.id.String()),
			slog.String("b", lb.id.String()),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.coeff[keyFor(la.id, lb.id)] = coeff
	return nil
}

// Correlation returns the correlation coefficient between two leaf
// inputs: 1 for the same leaf, the registered value for a known pair,
// and 0 otherwise.
func (c *Context) Correlation(a, b InputRef) (float64, error) {
	la, err := a.UncertainInput()
	if err != nil {
		return 0, err
	}
	lb, err := b.UncertainInput()
	if err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.correlationLocked(la.id, lb.id), nil
}

// correlationLocked looks up a coefficient. Callers hold at least a
// read lock.
func (c *Context) correlationLocked(a, b LeafID) float64 {
	if a == b {
		return 1
	}
	if r, ok := c.coeff[keyFor(a, b)]; ok {
		return r
	}
	return 0
}

// Variance returns the combined variance of a node under this
// context's correlation model:
//
//	sum over i, j of d_i * r_ij * d_j
//
// where d_i is the node's uncertainty-weighted derivative with respect
// to its i-th distinct leaf. This is the square of Uncertainty and the
// form in which covariances compose with squared units.
func (c *Context) Variance(node Component) (float64, error) {
	if node == nil {
		return 0, ErrNilComponent
	}

	leaves := node.Leaves()
	derivs := make([]float64, len(leaves))
	for i, leaf := range leaves {
		d, err := node.DerivativeWrt(leaf)
		if err != nil {
			return 0, err
		}
		derivs[i] = d
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var sum float64
	for i := range leaves {
		for j := range leaves {
			r := c.correlationLocked(leaves[i].id, leaves[j].id)
			sum += derivs[i] * r * derivs[j]
		}
	}
	return sum, nil
}

// Uncertainty returns the combined standard uncertainty of a node:
// the square root of Variance.
//
// When out-of-range correlation coefficients drive the combined
// variance negative the result is NaN, reported with a warning.
func (c *Context) Uncertainty(node Component) (float64, error) {
	variance, err := c.Variance(node)
	if err != nil {
		return 0, err
	}
	if variance < 0 {
		slog.Warn("combined variance is negative, uncertainty is NaN",
			slog.Float64("variance", variance),
		)
	}
	return math.Sqrt(variance), nil
}

// DegreesOfFreedom returns the effective degrees of freedom of a node
// by the Welch-Satterthwaite formula:
//
//	u_c^4 / sum over i of d_i^4 / nu_i
//
// Leaves declared with zero degrees of freedom short-circuit the
// result to infinity. Leaves with infinite degrees of freedom
// contribute nothing to the denominator; when every leaf is infinite
// the result is infinite.
func (c *Context) DegreesOfFreedom(node Component) (float64, error) {
	variance, err := c.Variance(node)
	if err != nil {
		return 0, err
	}

	var denom float64
	for _, leaf := range node.Leaves() {
		nu := leaf.dof
		if nu == 0 {
			return math.Inf(1), nil
		}
		if math.IsInf(nu, 1) {
			continue
		}
		d, err := node.DerivativeWrt(leaf)
		if err != nil {
			return 0, err
		}
		denom += d * d * d * d / nu
	}
	if denom == 0 {
		return math.Inf(1), nil
	}
	return variance * variance / denom, nil
}

// Size returns the number of registered correlation pairs, for logs
// and debugging output.
func (c *Context) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.coeff)
}
