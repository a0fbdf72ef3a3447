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
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/gumtree/cuncert"
	"github.com/AleutianAI/gumtree/uncert"
)

// Result is the evaluation of one output: the value, the combined
// standard uncertainty, the effective degrees of freedom, and the
// per-input rows of the budget table.
//
// Scalar results populate StdUncertainty and Contributions; complex
// results populate ValueIm and the 2x2 Covariance instead.
// DegreesOfFreedom is nil when the effective degrees of freedom are
// infinite, so results stay representable in JSON.
type Result struct {
	Name             string         `json:"name"`
	Value            float64        `json:"value"`
	ValueIm          float64        `json:"value_im,omitempty"`
	StdUncertainty   *float64       `json:"std_uncertainty,omitempty"`
	Covariance       *[2][2]float64 `json:"covariance,omitempty"`
	DegreesOfFreedom *float64       `json:"dof,omitempty"`
	Contributions    []Contribution `json:"contributions,omitempty"`
}

// Contribution is one row of a scalar budget table: an input's
// estimate and standard uncertainty, the output's sensitivity to it,
// and the magnitude of its uncertainty contribution.
//
// Contribution equals |Sensitivity| * Uncertainty. Inputs the output
// does not read, and exact inputs with no spread, get no row.
type Contribution struct {
	Input        string  `json:"input"`
	Value        float64 `json:"value"`
	Uncertainty  float64 `json:"uncertainty"`
	Sensitivity  float64 `json:"sensitivity"`
	Contribution float64 `json:"contribution"`
}

// Evaluate computes every output of the model. Outputs are evaluated
// concurrently; the returned slice is in declaration order.
//
// An error from any output aborts the whole evaluation, wrapped with
// the output's name. Lazily detected domain errors such as a division
// whose divisor is exactly zero surface here rather than at Build.
func (m *Model) Evaluate(ctx context.Context) ([]Result, error) {
	var results []Result
	g, gCtx := errgroup.WithContext(ctx)

	switch {
	case m.scalar != nil:
		results = make([]Result, len(m.scalar.outputs))
		for i, out := range m.scalar.outputs {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				r, err := m.scalar.evaluate(out)
				if err != nil {
					return fmt.Errorf("output %q: %w", out.name, err)
				}
				results[i] = r
				return nil
			})
		}
	case m.cplx != nil:
		results = make([]Result, len(m.cplx.outputs))
		for i, out := range m.cplx.outputs {
			g.Go(func() error {
				if err := gCtx.Err(); err != nil {
					return err
				}
				r, err := m.cplx.evaluate(out)
				if err != nil {
					return fmt.Errorf("output %q: %w", out.name, err)
				}
				results[i] = r
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (sm *scalarModel) evaluate(out boundOutput[uncert.Component]) (Result, error) {
	u, err := sm.ctx.Uncertainty(out.node)
	if err != nil {
		return Result{}, err
	}
	dof, err := sm.ctx.DegreesOfFreedom(out.node)
	if err != nil {
		return Result{}, err
	}

	contribs, err := sm.contributions(out.node)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Name:             out.name,
		Value:            out.node.Value(),
		StdUncertainty:   &u,
		DegreesOfFreedom: finiteDof(dof),
		Contributions:    contribs,
	}, nil
}

// contributions builds the budget table rows in input declaration
// order. The engine reports uncertainty-weighted derivatives; dividing
// by the leaf uncertainty recovers the plain sensitivity coefficient.
func (sm *scalarModel) contributions(node uncert.Component) ([]Contribution, error) {
	inTree := make(map[uncert.LeafID]bool)
	for _, leaf := range node.Leaves() {
		inTree[leaf.ID()] = true
	}

	var rows []Contribution
	for _, name := range sm.order {
		leaf := sm.leaves[name]
		if !inTree[leaf.ID()] || leaf.Uncertainty() == 0 {
			continue
		}
		d, err := node.DerivativeWrt(leaf)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Contribution{
			Input:        name,
			Value:        leaf.Value(),
			Uncertainty:  leaf.Uncertainty(),
			Sensitivity:  d / leaf.Uncertainty(),
			Contribution: math.Abs(d),
		})
	}
	return rows, nil
}

func (cm *cplxModel) evaluate(out boundOutput[cuncert.Component]) (Result, error) {
	cov, err := cm.ctx.Uncertainty(out.node)
	if err != nil {
		return Result{}, err
	}
	dof, err := cm.ctx.DegreesOfFreedom(out.node)
	if err != nil {
		return Result{}, err
	}

	value := out.node.Value()
	return Result{
		Name:    out.name,
		Value:   real(value),
		ValueIm: imag(value),
		Covariance: &[2][2]float64{
			{cov.At(0, 0), cov.At(0, 1)},
			{cov.At(1, 0), cov.At(1, 1)},
		},
		DegreesOfFreedom: finiteDof(dof),
	}, nil
}

// finiteDof maps infinite degrees of freedom to nil so a Result can
// round-trip through JSON.
func finiteDof(dof float64) *float64 {
	if math.IsInf(dof, 1) {
		return nil
	}
	return &dof
}
