// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package uncert propagates measurement uncertainty through expression
// trees of real-valued components.
//
// The package implements the GUM tree pattern: a measurement model is an
// immutable expression tree whose leaves are uncertain inputs. Partial
// derivatives are computed by forward-mode automatic differentiation (the
// chain rule applied recursively), already weighted by each leaf's
// standard uncertainty. A Context holds pairwise correlation coefficients
// and combines the weighted derivatives into a standard uncertainty and
// effective degrees of freedom.
//
// # Identity
//
// Equality between leaves is identity, not value. Two inputs constructed
// with identical numbers are independent quantities; reusing one *Input in
// several places of a tree makes every occurrence the same quantity:
//
//	a := uncert.NewInput(1.0, 0.1, uncert.InfiniteDof)
//	y := uncert.Mul(uncert.Sin(a), a) // one distinct leaf, not two
//
// Each leaf carries an opaque LeafID that survives serialization, so a
// reloaded tree keeps its sharing structure and its correlation
// registrations.
//
// # Concurrency
//
// Components are immutable after construction and safe for concurrent
// reads. Context guards its correlation table with a mutex and may be
// shared across goroutines.
//
// # Example
//
// The resistance example from the GUM annex:
//
//	v := uncert.Gaussian(4.9990, 0.0032, uncert.InfiniteDof)
//	i := uncert.Gaussian(19.6610e-3, 9.5e-6, uncert.InfiniteDof)
//	phi := uncert.Gaussian(1.04446, 7.5e-4, uncert.InfiniteDof)
//
//	r, err := uncert.Div(uncert.Mul(v, uncert.Cos(phi)), i)
//	if err != nil {
//	    return err
//	}
//
//	ctx := uncert.NewContext()
//	ctx.SetCorrelation(v, i, -0.36)
//	ctx.SetCorrelation(v, phi, 0.86)
//	ctx.SetCorrelation(i, phi, -0.65)
//
//	u, err := ctx.Uncertainty(r)
package uncert

import (
	"bytes"
	"math"

	"github.com/google/uuid"
)

// InfiniteDof is the degrees-of-freedom value for inputs whose
// uncertainty is considered exactly known.
var InfiniteDof = math.Inf(1)

// LeafID is an opaque identity handle attached to each leaf input.
//
// LeafID values are comparable and unique per constructed input. They
// key correlation registrations and survive Marshal/Unmarshal, so a
// context populated against the original tree remains valid for a
// reloaded copy.
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

// Component is a node of a real-valued measurement model.
//
// The implementing set is closed: leaves (*Input) and the operation
// nodes built by this package's constructors. Mixing components from
// the complex engine is rejected at compile time.
type Component interface {
	// Value returns the nominal value of the node.
	Value() float64

	// DerivativeWrt returns the partial derivative of the node with
	// respect to leaf, multiplied by the leaf's standard uncertainty.
	// Requesting the derivative of a node containing an operation whose
	// derivative is undefined at the current values (Pow outside its
	// restriction, Sqrt or Log at zero) returns an error.
	DerivativeWrt(leaf *Input) (float64, error)

	// Leaves returns the distinct leaf inputs the node depends on, in
	// first-encounter order of a left-to-right tree walk.
	Leaves() []*Input

	// component marks the closed implementation set.
	component()
}

// InputRef resolves to a leaf input.
//
// Context correlation operations accept InputRef so callers can pass
// leaves directly or wrapped in a quantity. *Input implements InputRef
// by returning itself.
type InputRef interface {
	// UncertainInput returns the underlying leaf, or ErrNotLeaf when
	// the reference wraps a derived expression.
	UncertainInput() (*Input, error)
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
