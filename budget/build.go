// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package budget

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/AleutianAI/gumtree/cuncert"
	"github.com/AleutianAI/gumtree/formula"
	"github.com/AleutianAI/gumtree/uncert"
)

// Model is a built budget: engine leaves for every declared input, a
// correlation context populated from the correlation entries, and one
// bound expression tree per output.
//
// A model is immutable after Build and safe for concurrent Evaluate
// calls.
type Model struct {
	name   string
	domain Domain

	scalar *scalarModel
	cplx   *cplxModel
}

type scalarModel struct {
	ctx     *uncert.Context
	order   []string
	leaves  map[string]*uncert.Input
	outputs []boundOutput[uncert.Component]
}

type cplxModel struct {
	ctx     *cuncert.Context
	order   []string
	leaves  map[string]*cuncert.Input
	outputs []boundOutput[cuncert.Component]
}

type boundOutput[T any] struct {
	name string
	node T
}

// Build validates the budget and constructs its evaluation model in
// the domain's engine.
func (b *Budget) Build() (*Model, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	m := &Model{name: b.Name, domain: b.Domain}
	var err error
	switch b.Domain {
	case DomainComplex:
		m.cplx, err = buildComplex(b)
	default:
		m.scalar, err = buildScalar(b)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the budget's name.
func (m *Model) Name() string {
	return m.name
}

// Domain returns the domain the model evaluates in.
func (m *Model) Domain() Domain {
	return m.domain
}

// Outputs returns the output names in declaration order.
func (m *Model) Outputs() []string {
	var outs []string
	if m.scalar != nil {
		for _, out := range m.scalar.outputs {
			outs = append(outs, out.name)
		}
	}
	if m.cplx != nil {
		for _, out := range m.cplx.outputs {
			outs = append(outs, out.name)
		}
	}
	return outs
}

// Input returns the scalar engine leaf for a declared input. The
// second return is false when the name is unknown or the model is
// complex.
func (m *Model) Input(name string) (*uncert.Input, bool) {
	if m.scalar == nil {
		return nil, false
	}
	leaf, ok := m.scalar.leaves[name]
	return leaf, ok
}

// ComplexInput returns the complex engine leaf for a declared input.
func (m *Model) ComplexInput(name string) (*cuncert.Input, bool) {
	if m.cplx == nil {
		return nil, false
	}
	leaf, ok := m.cplx.leaves[name]
	return leaf, ok
}

func buildScalar(b *Budget) (*scalarModel, error) {
	sm := &scalarModel{
		ctx:    uncert.NewContext(),
		leaves: make(map[string]*uncert.Input, len(b.Inputs)),
	}

	for i := range b.Inputs {
		in := &b.Inputs[i]
		sm.order = append(sm.order, in.Name)
		sm.leaves[in.Name] = scalarLeaf(in)
	}

	for i := range b.Correlations {
		c := &b.Correlations[i]
		a, bb := sm.leaves[c.A], sm.leaves[c.B]
		if err := sm.ctx.SetCorrelation(a, bb, *c.Coefficient); err != nil {
			return nil, fmt.Errorf("correlation %d: %w", i, err)
		}
	}

	for _, out := range b.Outputs {
		f, err := formula.Parse(out.Formula)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		node, err := f.BindScalar(sm.leaves)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		sm.outputs = append(sm.outputs, boundOutput[uncert.Component]{name: out.Name, node: node})
	}
	return sm, nil
}

// scalarLeaf lifts one input declaration into an engine leaf. The
// distribution factories convert half-widths and shape parameters to
// standard uncertainties.
func scalarLeaf(in *InputSpec) *uncert.Input {
	dof := uncert.InfiniteDof
	if in.Dof != nil {
		dof = *in.Dof
	}
	switch in.Distribution {
	case "uniform":
		return uncert.Uniform(in.Value, *in.HalfWidth, dof)
	case "triangular":
		return uncert.Triangular(in.Value, *in.HalfWidth, dof)
	case "beta":
		return uncert.Beta(in.Value, *in.P, *in.Q, dof)
	case "arcsine":
		return uncert.Arcsine(in.Value, dof)
	case "constant":
		return uncert.Const(in.Value)
	default:
		return uncert.Gaussian(in.Value, *in.Uncertainty, dof)
	}
}

func buildComplex(b *Budget) (*cplxModel, error) {
	cm := &cplxModel{
		ctx:    cuncert.NewContext(),
		leaves: make(map[string]*cuncert.Input, len(b.Inputs)),
	}

	for i := range b.Inputs {
		in := &b.Inputs[i]
		cm.order = append(cm.order, in.Name)
		cm.leaves[in.Name] = complexLeaf(in)
	}

	for i := range b.Correlations {
		c := &b.Correlations[i]
		r := mat.NewDense(2, 2, []float64{
			c.Matrix[0][0], c.Matrix[0][1],
			c.Matrix[1][0], c.Matrix[1][1],
		})
		if err := cm.ctx.SetCorrelation(cm.leaves[c.A], cm.leaves[c.B], r); err != nil {
			return nil, fmt.Errorf("correlation %d: %w", i, err)
		}
	}

	for _, out := range b.Outputs {
		f, err := formula.Parse(out.Formula)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		node, err := f.BindComplex(cm.leaves)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Name, err)
		}
		cm.outputs = append(cm.outputs, boundOutput[cuncert.Component]{name: out.Name, node: node})
	}
	return cm, nil
}

func complexLeaf(in *InputSpec) *cuncert.Input {
	value := complex(in.Value, in.ValueIm)
	if in.Distribution == "constant" {
		return cuncert.Const(value)
	}
	dof := cuncert.InfiniteDof
	if in.Dof != nil {
		dof = *in.Dof
	}
	var uIm float64
	if in.UncertaintyIm != nil {
		uIm = *in.UncertaintyIm
	}
	return cuncert.Gaussian(value, *in.Uncertainty, uIm, dof)
}
