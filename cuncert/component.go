// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cuncert propagates measurement uncertainty through expression
// trees of complex-valued components.
//
// The engine parallels package uncert, with derivatives generalized to
// 2x2 real Jacobians over the (real, imaginary) plane. Holomorphic
// operations lift their complex derivative to the matrix form
// [[re, -im], [im, re]]; non-holomorphic operations (Abs, Conj) carry
// explicit Jacobians. A Context holds 2x2 correlation matrices between
// leaves and combines Jacobians into a 2x2 covariance matrix and
// effective degrees of freedom by the Willink-Hall formula.
//
// Use either this engine or package uncert for a given model, not both:
// the two component types do not mix within one tree.
//
// Leaf identity works as in package uncert: equality is identity, the
// LeafID survives serialization, and reusing one *Input keeps every
// occurrence the same quantity.
package cuncert

import (
	"bytes"
	"math"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// InfiniteDof is the degrees-of-freedom value for inputs whose
// uncertainty is considered exactly known.
var InfiniteDof = math.Inf(1)

// LeafID is an opaque identity handle attached to each leaf input. It
// keys correlation registrations and survives Marshal/Unmarshal.
type LeafID struct {
	id uuid.UUID
}

// newLeafID returns a fresh unique handle.
func newLeafID() LeafID {
	return LeafID{id: uuid.New()}
}

// String returns the handle in canonical UUID form.
func (l LeafID) String() string {
	return l.id.String()
}

// less orders handles for canonical correlation-pair keys.
func (l LeafID) less(other LeafID) bool {
	return bytes.Compare(l.id[:], other.id[:]) < 0
}

// Component is a node of a complex-valued measurement model.
//
// The implementing set is closed: leaves (*Input) and the operation
// nodes built by this package's constructors.
type Component interface {
	// Value returns the nominal complex value of the node.
	Value() complex128

	// DerivativeWrt returns the 2x2 Jacobian of the node with respect
	// to leaf, already weighted by the leaf's uncertainty Jacobian
	// diag(uRe, uIm). A leaf the node does not depend on yields the
	// zero matrix.
	DerivativeWrt(leaf *Input) (*mat.Dense, error)

	// Leaves returns the distinct leaf inputs the node depends on, in
	// first-encounter order of a left-to-right tree walk.
	Leaves() []*Input

	// LinearMap returns the node's value as the matrix
	// [[re, -im], [im, re]], the real-linear form of multiplication by
	// the value.
	LinearMap() *mat.Dense

	// component marks the closed implementation set.
	component()
}

// InputRef resolves to a leaf input. *Input implements InputRef by
// returning itself; quantity wrappers around leaves implement it by
// unwrapping.
type InputRef interface {
	UncertainInput() (*Input, error)
}

// linearMap lifts a complex value to its 2x2 real-linear matrix form.
func linearMap(c complex128) *mat.Dense {
	re, im := real(c), imag(c)
	return mat.NewDense(2, 2, []float64{re, -im, im, re})
}

// zeroJacobian returns a fresh 2x2 zero matrix.
func zeroJacobian() *mat.Dense {
	return mat.NewDense(2, 2, nil)
}

// liftMul returns lift(c) * j.
func liftMul(c complex128, j *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(linearMap(c), j)
	return &out
}

// mergeLeaves concatenates the dependency sets of parts, removing
// duplicates by leaf identity while preserving first-encounter order.
func mergeLeaves(parts ...Component) []*Input {
	seen := make(map[LeafID]struct{})
	var out []*Input
	for _, part := range parts {
		for _, leaf := range part.Leaves() {
			if _, ok := seen[leaf.id]; ok {
				continue
			}
			seen[leaf.id] = struct{}{}
			out = append(out, leaf)
		}
	}
	return out
}
