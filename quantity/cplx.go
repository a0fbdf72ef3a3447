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

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/gumtree/cuncert"
)

// Cplx is a complex-domain measurement tree tagged with a unit. It
// implements cuncert.InputRef the way Scalar implements the scalar
// one.
type Cplx struct {
	unit Unit
	node cuncert.Component
}

// NewCplx wraps an existing complex tree with a unit.
func NewCplx(unit Unit, node cuncert.Component) Cplx {
	return Cplx{unit: unit, node: node}
}

// CplxInput lifts a raw complex measurement into a leaf carrying a
// unit.
func CplxInput(unit Unit, value complex128, uRe, uIm, dof float64) Cplx {
	return Cplx{unit: unit, node: cuncert.NewInput(value, uRe, uIm, dof)}
}

// Covariance is a 2x2 covariance matrix over the (real, imaginary)
// plane, expressed in the squared unit of the quantity it describes.
type Covariance struct {
	Unit   Unit
	Matrix *mat.Dense
}

func (c Covariance) String() string {
	return fmt.Sprintf("%v %s", mat.Formatted(c.Matrix), c.Unit)
}

// Unit returns the unit the quantity is expressed in.
func (c Cplx) Unit() Unit {
	return c.unit
}

// Node returns the wrapped unit-free tree.
func (c Cplx) Node() cuncert.Component {
	return c.node
}

// Value returns the tree's value, in the quantity's unit.
func (c Cplx) Value() complex128 {
	return c.node.Value()
}

// UncertainInput unwraps the quantity to its underlying leaf input.
func (c Cplx) UncertainInput() (*cuncert.Input, error) {
	if leaf, ok := c.node.(*cuncert.Input); ok {
		return leaf, nil
	}
	return nil, cuncert.ErrNotLeaf
}

// Uncertainty returns the combined covariance matrix under ctx,
// expressed in the squared unit.
func (c Cplx) Uncertainty(ctx *cuncert.Context) (Covariance, error) {
	cov, err := ctx.Uncertainty(c.node)
	if err != nil {
		return Covariance{}, err
	}
	return Covariance{Unit: c.unit.Squared(), Matrix: cov}, nil
}

// DegreesOfFreedom returns the effective degrees of freedom under ctx.
// The result is dimensionless.
func (c Cplx) DegreesOfFreedom(ctx *cuncert.Context) (float64, error) {
	return ctx.DegreesOfFreedom(c.node)
}

func (c Cplx) String() string {
	if c.unit.IsDimensionless() {
		return fmt.Sprintf("%v", c.node.Value())
	}
	return fmt.Sprintf("%v %s", c.node.Value(), c.unit)
}
