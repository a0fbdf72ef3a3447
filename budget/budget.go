// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package budget loads, validates, and evaluates measurement
// uncertainty budgets.
//
// A budget file declares measured inputs with their distributions,
// pairwise correlations, and named output formulas. Building a budget
// produces leaves and a populated correlation context in the uncert or
// cuncert engine; evaluating it yields one Result per output with the
// combined standard uncertainty, the effective degrees of freedom, and
// the per-input contribution rows of the classic budget table.
package budget

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/gumtree/formula"
	"github.com/AleutianAI/gumtree/pkg/validation"
)

// Domain selects the evaluation engine for a budget.
type Domain string

const (
	// DomainScalar evaluates with the real-valued engine. This is the
	// default.
	DomainScalar Domain = "scalar"

	// DomainComplex evaluates with the complex engine; uncertainties
	// become 2x2 covariance matrices.
	DomainComplex Domain = "complex"
)

// budgetValidate is the validator instance for budget files.
var budgetValidate *validator.Validate

func init() {
	budgetValidate = validator.New()
}

// InputSpec declares one measured input.
//
// The distribution decides which parameters apply:
//
//   - gaussian: uncertainty (the standard deviation); the default
//   - uniform, triangular: half_width
//   - beta: p and q shape parameters
//   - arcsine: no parameter
//   - constant: no parameter, no spread
//
// dof is the degrees of freedom backing the uncertainty estimate;
// omitted means infinite. In a complex budget the value carries an
// optional imaginary part and gaussian inputs take separate real and
// imaginary uncertainties; an omitted uncertainty_im means no
// imaginary spread.
type InputSpec struct {
	Name         string   `yaml:"name" json:"name" validate:"required"`
	Distribution string   `yaml:"distribution,omitempty" json:"distribution,omitempty" validate:"omitempty,oneof=gaussian uniform triangular beta arcsine constant"`
	Value        float64  `yaml:"value" json:"value"`
	Uncertainty  *float64 `yaml:"uncertainty,omitempty" json:"uncertainty,omitempty"`
	HalfWidth    *float64 `yaml:"half_width,omitempty" json:"half_width,omitempty"`
	P            *float64 `yaml:"p,omitempty" json:"p,omitempty"`
	Q            *float64 `yaml:"q,omitempty" json:"q,omitempty"`
	Dof          *float64 `yaml:"dof,omitempty" json:"dof,omitempty"`

	// Complex-domain fields.
	ValueIm       float64  `yaml:"value_im,omitempty" json:"value_im,omitempty"`
	UncertaintyIm *float64 `yaml:"uncertainty_im,omitempty" json:"uncertainty_im,omitempty"`
}

// CorrelationSpec declares the correlation between two inputs. Scalar
// budgets use coefficient; complex budgets use a 2x2 matrix literal.
type CorrelationSpec struct {
	A           string      `yaml:"a" json:"a" validate:"required"`
	B           string      `yaml:"b" json:"b" validate:"required"`
	Coefficient *float64    `yaml:"coefficient,omitempty" json:"coefficient,omitempty"`
	Matrix      [][]float64 `yaml:"matrix,omitempty" json:"matrix,omitempty"`
}

// OutputSpec declares one named output formula over the input names.
type OutputSpec struct {
	Name    string `yaml:"name" json:"name" validate:"required"`
	Formula string `yaml:"formula" json:"formula" validate:"required"`
}

// Budget is a declarative uncertainty budget.
type Budget struct {
	Name         string            `yaml:"name" json:"name" validate:"required"`
	Description  string            `yaml:"description,omitempty" json:"description,omitempty"`
	Domain       Domain            `yaml:"domain,omitempty" json:"domain,omitempty" validate:"omitempty,oneof=scalar complex"`
	Inputs       []InputSpec       `yaml:"inputs" json:"inputs" validate:"required,min=1,dive"`
	Correlations []CorrelationSpec `yaml:"correlations,omitempty" json:"correlations,omitempty" validate:"omitempty,dive"`
	Outputs      []OutputSpec      `yaml:"outputs" json:"outputs" validate:"required,min=1,dive"`
}

// applyDefaults fills the omitted domain and distributions in place.
func (b *Budget) applyDefaults() {
	if b.Domain == "" {
		b.Domain = DomainScalar
	}
	for i := range b.Inputs {
		if b.Inputs[i].Distribution == "" {
			b.Inputs[i].Distribution = "gaussian"
		}
	}
}

// Validate checks the budget against its struct tags and the semantic
// rules the tags cannot express: unique identifier names, the
// per-distribution parameter requirements, resolvable correlation
// pairs, and parseable output formulas whose variables are all
// declared inputs.
//
// Unlike the engine contexts, which accept out-of-range correlation
// coefficients with a warning, a declarative budget file is rejected
// outright: a coefficient outside [-1, 1] in a file is a typo, not an
// experiment.
func (b *Budget) Validate() error {
	if err := budgetValidate.Struct(b); err != nil {
		return err
	}

	var errs []error

	inputNames := make(map[string]bool, len(b.Inputs))
	for i := range b.Inputs {
		in := &b.Inputs[i]
		if err := validation.ValidateName(in.Name); err != nil {
			errs = append(errs, fmt.Errorf("input %d: %w", i, err))
			continue
		}
		if formula.IsReserved(in.Name) {
			errs = append(errs, fmt.Errorf("input %q shadows a built-in constant", in.Name))
			continue
		}
		if inputNames[in.Name] {
			errs = append(errs, fmt.Errorf("input %q declared twice", in.Name))
			continue
		}
		inputNames[in.Name] = true

		errs = append(errs, in.validateParams(b.Domain)...)
	}

	outputNames := make(map[string]bool, len(b.Outputs))
	for i := range b.Outputs {
		out := &b.Outputs[i]
		if err := validation.ValidateName(out.Name); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
			continue
		}
		if outputNames[out.Name] || inputNames[out.Name] {
			errs = append(errs, fmt.Errorf("output %q collides with another name", out.Name))
			continue
		}
		outputNames[out.Name] = true

		f, err := formula.Parse(out.Formula)
		if err != nil {
			errs = append(errs, fmt.Errorf("output %q: %w", out.Name, err))
			continue
		}
		for _, v := range f.Variables() {
			if !inputNames[v] {
				errs = append(errs, fmt.Errorf("output %q reads undeclared input %q", out.Name, v))
			}
		}
	}

	for i := range b.Correlations {
		errs = append(errs, b.Correlations[i].validate(i, b.Domain, inputNames)...)
	}

	return errors.Join(errs...)
}

// validateParams checks the distribution-specific parameters of one
// input.
func (in *InputSpec) validateParams(domain Domain) []error {
	var errs []error

	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("input %q: "+format, append([]any{in.Name}, args...)...))
	}

	if !isFinite(in.Value) || !isFinite(in.ValueIm) {
		fail("value must be finite")
	}
	if in.Dof != nil && (*in.Dof < 0 || math.IsNaN(*in.Dof)) {
		fail("dof must be non-negative")
	}

	if domain == DomainComplex {
		switch in.Distribution {
		case "gaussian":
			if in.Uncertainty == nil {
				fail("gaussian input needs an uncertainty")
			} else if *in.Uncertainty < 0 || !isFinite(*in.Uncertainty) {
				fail("uncertainty must be non-negative")
			}
			if in.UncertaintyIm != nil && (*in.UncertaintyIm < 0 || !isFinite(*in.UncertaintyIm)) {
				fail("uncertainty_im must be non-negative")
			}
		case "constant":
			if in.Uncertainty != nil || in.UncertaintyIm != nil {
				fail("constant input takes no spread parameter")
			}
		default:
			fail("distribution %q is not available in the complex domain", in.Distribution)
		}
		return errs
	}

	if in.ValueIm != 0 || in.UncertaintyIm != nil {
		fail("imaginary parts need domain: complex")
	}

	switch in.Distribution {
	case "gaussian":
		if in.HalfWidth != nil {
			fail("gaussian input takes an uncertainty, not a half_width")
		}
		if in.Uncertainty == nil {
			fail("gaussian input needs an uncertainty")
		} else if *in.Uncertainty < 0 || !isFinite(*in.Uncertainty) {
			fail("uncertainty must be non-negative")
		}
	case "uniform", "triangular":
		if in.Uncertainty != nil {
			fail("%s input takes a half_width, not an uncertainty", in.Distribution)
		}
		if in.HalfWidth == nil {
			fail("%s input needs a half_width", in.Distribution)
		} else if *in.HalfWidth < 0 || !isFinite(*in.HalfWidth) {
			fail("half_width must be non-negative")
		}
	case "beta":
		if in.P == nil || in.Q == nil {
			fail("beta input needs p and q")
		} else if *in.P <= 0 || *in.Q <= 0 {
			fail("beta shape parameters must be positive")
		}
	case "arcsine", "constant":
		if in.Uncertainty != nil || in.HalfWidth != nil {
			fail("%s input takes no spread parameter", in.Distribution)
		}
	}
	return errs
}

// validate checks one correlation entry against the declared inputs.
func (c *CorrelationSpec) validate(i int, domain Domain, inputNames map[string]bool) []error {
	var errs []error

	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("correlation %d: "+format, append([]any{i}, args...)...))
	}

	if !inputNames[c.A] {
		fail("unknown input %q", c.A)
	}
	if !inputNames[c.B] {
		fail("unknown input %q", c.B)
	}
	if c.A == c.B {
		fail("an input cannot be correlated with itself")
	}

	if domain == DomainComplex {
		if c.Coefficient != nil {
			fail("complex budgets use a matrix, not a coefficient")
		}
		if len(c.Matrix) != 2 || len(c.Matrix[0]) != 2 || len(c.Matrix[1]) != 2 {
			fail("matrix must be 2x2")
			return errs
		}
		for _, row := range c.Matrix {
			for _, v := range row {
				if v < -1 || v > 1 || math.IsNaN(v) {
					fail("matrix entry %g outside [-1, 1]", v)
				}
			}
		}
		return errs
	}

	if c.Matrix != nil {
		fail("scalar budgets use a coefficient, not a matrix")
	}
	if c.Coefficient == nil {
		fail("missing coefficient")
	} else if *c.Coefficient < -1 || *c.Coefficient > 1 || math.IsNaN(*c.Coefficient) {
		fail("coefficient %g outside [-1, 1]", *c.Coefficient)
	}
	return errs
}

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
