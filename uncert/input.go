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
	"fmt"
	"math"
	"math/big"

	"gonum.org/v1/gonum/stat/distuv"
)

// Input is a leaf of a measurement model: a value paired with a
// standard uncertainty and degrees of freedom.
//
// Inputs are immutable. Identity is carried by the LeafID assigned at
// construction; two inputs with equal numbers remain distinct
// quantities.
type Input struct {
	id          LeafID
	value       float64
	uncertainty float64
	dof         float64

	// exact mirrors value as a rational when the input was constructed
	// through Exact or NewExactInput. Nil otherwise.
	exact *big.Rat
}

// NewInput creates a leaf with the given value, standard uncertainty,
// and degrees of freedom.
//
// Use InfiniteDof when the uncertainty is considered exactly known.
func NewInput(value, uncertainty, dof float64) *Input {
	return &Input{
		id:          newLeafID(),
		value:       value,
		uncertainty: uncertainty,
		dof:         dof,
	}
}

// Const creates an exactly known constant: zero uncertainty and
// infinite degrees of freedom.
//
// Constants are how plain numbers enter a model. There is no implicit
// lift from float64 to Component; the call site makes the conversion
// visible:
//
//	halfLife := uncert.Mul(uncert.Const(0.5), decay)
func Const(value float64) *Input {
	return NewInput(value, 0, InfiniteDof)
}

// Gaussian creates a leaf quantified by a normal distribution centered
// at value with standard deviation sigma.
func Gaussian(value, sigma, dof float64) *Input {
	dist := distuv.Normal{Mu: value, Sigma: sigma}
	return NewInput(value, dist.StdDev(), dof)
}

// Uniform creates a leaf quantified by a rectangular distribution
// centered at value with the given half-width. The standard
// uncertainty is halfWidth/sqrt(3).
func Uniform(value, halfWidth, dof float64) *Input {
	dist := distuv.Uniform{Min: value - halfWidth, Max: value + halfWidth}
	return NewInput(value, dist.StdDev(), dof)
}

// Triangular creates a leaf quantified by a symmetric triangular
// distribution centered at value with the given half-width. The
// standard uncertainty is halfWidth/sqrt(6).
func Triangular(value, halfWidth, dof float64) *Input {
	dist := distuv.NewTriangle(value-halfWidth, value+halfWidth, value, nil)
	return NewInput(value, dist.StdDev(), dof)
}

// Beta creates a leaf whose uncertainty is the standard deviation of a
// beta distribution with shape parameters p and q:
// sqrt(p*q / ((p+q)^2 * (p+q+1))).
func Beta(value, p, q, dof float64) *Input {
	dist := distuv.Beta{Alpha: p, Beta: q}
	return NewInput(value, dist.StdDev(), dof)
}

// Arcsine creates a leaf quantified by an arcsine (U-shaped)
// distribution, the beta distribution with p = q = 1/2.
func Arcsine(value, dof float64) *Input {
	return Beta(value, 0.5, 0.5, dof)
}

// ID returns the input's identity handle.
func (in *Input) ID() LeafID {
	return in.id
}

// Value returns the nominal value.
func (in *Input) Value() float64 {
	return in.value
}

// Uncertainty returns the standard uncertainty assigned at construction.
func (in *Input) Uncertainty() float64 {
	return in.uncertainty
}

// DegreesOfFreedom returns the degrees of freedom assigned at
// construction. InfiniteDof means the uncertainty is exactly known.
func (in *Input) DegreesOfFreedom() float64 {
	return in.dof
}

// String returns a short human-readable form for logs and reports.
func (in *Input) String() string {
	if math.IsInf(in.dof, 1) {
		return fmt.Sprintf("%g ± %g", in.value, in.uncertainty)
	}
	return fmt.Sprintf("%g ± %g (ν=%g)", in.value, in.uncertainty, in.dof)
}

// DerivativeWrt implements Component. The derivative of a leaf with
// respect to itself is 1, so the weighted derivative is its own
// uncertainty; with respect to any other leaf it is 0.
func (in *Input) DerivativeWrt(leaf *Input) (float64, error) {
	if leaf == nil {
		return 0, ErrNilLeaf
	}
	if in.id == leaf.id {
		return in.uncertainty, nil
	}
	return 0, nil
}

// Leaves implements Component.
func (in *Input) Leaves() []*Input {
	return []*Input{in}
}

// UncertainInput implements InputRef: a leaf resolves to itself.
func (in *Input) UncertainInput() (*Input, error) {
	return in, nil
}

func (in *Input) component() {}
