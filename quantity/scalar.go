// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package quantity

import (
	"fmt"

	"github.com/AleutianAI/gumtree/uncert"
)

// Scalar is a real-domain measurement tree tagged with a unit.
//
// Scalar implements uncert.InputRef: a Scalar wrapping a leaf input
// can be handed to correlation setters directly, and unwraps to the
// unit-free leaf before any lookup.
type Scalar struct {
	unit Unit
	node uncert.Component
}

// NewScalar wraps an existing tree with a unit.
func NewScalar(unit Unit, node uncert.Component) Scalar {
	return Scalar{unit: unit, node: node}
}

// ScalarInput lifts a raw measurement into a leaf carrying a unit.
func ScalarInput(unit Unit, value, uncertainty, dof float64) Scalar {
	return Scalar{unit: unit, node: uncert.NewInput(value, uncertainty, dof)}
}

// Unit returns the unit the quantity is expressed in.
func (s Scalar) Unit() Unit {
	return s.unit
}

// Node returns the wrapped unit-free tree.
func (s Scalar) Node() uncert.Component {
	return s.node
}

// Value returns the tree's value, in the quantity's unit.
func (s Scalar) Value() float64 {
	return s.node.Value()
}

// UncertainInput unwraps the quantity to its underlying leaf input.
// A quantity wrapping a derived node is not a leaf.
func (s Scalar) UncertainInput() (*uncert.Input, error) {
	if leaf, ok := s.node.(*uncert.Input); ok {
		return leaf, nil
	}
	return nil, uncert.ErrNotLeaf
}

// Uncertainty returns the combined standard uncertainty under ctx as a
// quantity in the same unit. A standard deviation has the dimension of
// the measurement itself.
func (s Scalar) Uncertainty(ctx *uncert.Context) (Scalar, error) {
	u, err := ctx.Uncertainty(s.node)
	if err != nil {
		return Scalar{}, err
	}
	return Scalar{unit: s.unit, node: uncert.Const(u)}, nil
}

// Variance returns the combined variance under ctx as a quantity in
// the squared unit.
func (s Scalar) Variance(ctx *uncert.Context) (Scalar, error) {
	v, err := ctx.Variance(s.node)
	if err != nil {
		return Scalar{}, err
	}
	return Scalar{unit: s.unit.Squared(), node: uncert.Const(v)}, nil
}

// DegreesOfFreedom returns the effective degrees of freedom under ctx.
// The result is dimensionless.
func (s Scalar) DegreesOfFreedom(ctx *uncert.Context) (float64, error) {
	return ctx.DegreesOfFreedom(s.node)
}

func (s Scalar) String() string {
	if s.unit.IsDimensionless() {
		return fmt.Sprintf("%g", s.node.Value())
	}
	return fmt.Sprintf("%g %s", s.node.Value(), s.unit)
}
