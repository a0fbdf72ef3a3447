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

import "math/big"

// maxExactExponent bounds the integer exponents evaluated exactly.
// Larger exponents fall back to floating point rather than building
// huge numerators.
const maxExactExponent = 1024

// Exact creates an exactly known rational constant: zero uncertainty
// and infinite degrees of freedom. The float64 value of the leaf is
// the nearest representable value of r.
//
// The rational is copied; later mutation of r does not affect the leaf.
func Exact(r *big.Rat) *Input {
	v, _ := new(big.Rat).Set(r).Float64()
	in := NewInput(v, 0, InfiniteDof)
	in.exact = new(big.Rat).Set(r)
	return in
}

// NewExactInput creates a leaf whose value and uncertainty are given
// as rationals. The exact value participates in ExactValue; the
// uncertainty is carried in floating point only, since combined
// uncertainties pass through a square root regardless.
func NewExactInput(value, uncertainty *big.Rat, dof float64) *Input {
	v, _ := new(big.Rat).Set(value).Float64()
	u, _ := new(big.Rat).Set(uncertainty).Float64()
	in := NewInput(v, u, dof)
	in.exact = new(big.Rat).Set(value)
	return in
}

// ExactValue reports the exact rational value of a node's value
// channel. It succeeds when every leaf below the node carries an exact
// payload and every operation on the path is closed over the
// rationals: Add, Sub, Mul, Div, Neg, Abs, and Pow with a moderate
// integer exponent. Transcendental operations are never exact and make
// the whole subtree fall back to floating point.
//
// The returned rational is freshly allocated on every call.
func ExactValue(node Component) (*big.Rat, bool) {
	switch n := node.(type) {
	case *Input:
		if n.exact == nil {
			return nil, false
		}
		return new(big.Rat).Set(n.exact), true

	case *unaryNode:
		arg, ok := ExactValue(n.arg)
		if !ok {
			return nil, false
		}
		switch n.op {
		case OpNeg:
			return arg.Neg(arg), true
		case OpAbs:
			return arg.Abs(arg), true
		default:
			return nil, false
		}

	case *binaryNode:
		left, ok := ExactValue(n.left)
		if !ok {
			return nil, false
		}
		right, ok := ExactValue(n.right)
		if !ok {
			return nil, false
		}
		switch n.op {
		case OpAdd:
			return left.Add(left, right), true
		case OpSub:
			return left.Sub(left, right), true
		case OpMul:
			return left.Mul(left, right), true
		case OpDiv:
			// The construction check ran on the float mirror; an exact
			// zero can still hide behind a rounded nonzero float.
			if right.Sign() == 0 {
				return nil, false
			}
			return left.Quo(left, right), true
		case OpPow:
			if !right.IsInt() || !right.Num().IsInt64() {
				return nil, false
			}
			exp := right.Num().Int64()
			if exp > maxExactExponent || exp < -maxExactExponent {
				return nil, false
			}
			return ratPow(left, exp)
		default:
			return nil, false
		}

	default:
		return nil, false
	}
}

// ExactValue reports the leaf's exact rational payload, if one was
// assigned at construction. The returned rational is a copy.
func (in *Input) ExactValue() (*big.Rat, bool) {
	if in.exact == nil {
		return nil, false
	}
	return new(big.Rat).Set(in.exact), true
}

// ratPow raises base to an integer power. A negative exponent of a
// zero base reports not exact.
func ratPow(base *big.Rat, exp int64) (*big.Rat, bool) {
	if exp < 0 {
		if base.Sign() == 0 {
			return nil, false
		}
		return ratPow(new(big.Rat).Inv(base), -exp)
	}
	e := big.NewInt(exp)
	num := new(big.Int).Exp(base.Num(), e, nil)
	den := new(big.Int).Exp(base.Denom(), e, nil)
	return new(big.Rat).SetFrac(num, den), true
}
