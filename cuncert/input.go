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
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Input is a leaf of a complex measurement model: a complex value with
// independent standard uncertainties for the real and imaginary parts.
//
// The leaf's uncertainty Jacobian is diag(uRe, uIm). Inputs are
// immutable; identity is carried by the LeafID assigned at
// construction.
type Input struct {
	id    LeafID
	value complex128
	uRe   float64
	uIm   float64
	dof   float64
}

// NewInput creates a leaf with the given complex value, per-part
// standard uncertainties, and degrees of freedom.
func NewInput(value complex128, uRe, uIm, dof float64) *Input {
	return &Input{
		id:    newLeafID(),
		value: value,
		uRe:   uRe,
		uIm:   uIm,
		dof:   dof,
	}
}

// Gaussian creates a leaf quantified by a bivariate normal
// distribution: standard deviation uRe along the real axis and uIm
// along the imaginary axis.
func Gaussian(value complex128, uRe, uIm, dof float64) *Input {
	return NewInput(value, uRe, uIm, dof)
}

// Const creates an exactly known complex constant: zero uncertainty in
// both parts and infinite degrees of freedom.
func Const(value complex128) *Input {
	return NewInput(value, 0, 0, InfiniteDof)
}

// ID returns the input's identity handle.
func (in *Input) ID() LeafID {
	return in.id
}

// Value returns the nominal complex value.
func (in *Input) Value() complex128 {
	return in.value
}

// UncertaintyRe returns the standard uncertainty of the real part.
func (in *Input) UncertaintyRe() float64 {
	return in.uRe
}

// UncertaintyIm returns the standard uncertainty of the imaginary part.
func (in *Input) UncertaintyIm() float64 {
	return in.uIm
}

// Jacobian returns a copy of the leaf's uncertainty Jacobian
// diag(uRe, uIm).
func (in *Input) Jacobian() *mat.Dense {
	return mat.NewDense(2, 2, []float64{in.uRe, 0, 0, in.uIm})
}

// DegreesOfFreedom returns the degrees of freedom assigned at
// construction. InfiniteDof means the uncertainty is exactly known.
func (in *Input) DegreesOfFreedom() float64 {
	return in.dof
}

// String returns a short human-readable form for logs and reports.
func (in *Input) String() string {
	if math.IsInf(in.dof, 1) {
		return fmt.Sprintf("%v ± (%g, %g)", in.value, in.uRe, in.uIm)
	}
	return fmt.Sprintf("%v ± (%g, %g) (ν=%g)", in.value, in.uRe, in.uIm, in.dof)
}

// DerivativeWrt implements Component. Against itself the weighted
// Jacobian is diag(uRe, uIm); against any other leaf it is zero.
func (in *Input) DerivativeWrt(leaf *Input) (*mat.Dense, error) {
	if leaf == nil {
		return nil, ErrNilLeaf
	}
	if in.id == leaf.id {
		return in.Jacobian(), nil
	}
	return zeroJacobian(), nil
}

// Leaves implements Component.
func (in *Input) Leaves() []*Input {
	return []*Input{in}
}

// LinearMap implements Component.
func (in *Input) LinearMap() *mat.Dense {
	return linearMap(in.value)
}

// UncertainInput implements InputRef: a leaf resolves to itself.
func (in *Input) UncertainInput() (*Input, error) {
	return in, nil
}

func (in *Input) component() {}
