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
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// BinaryOp identifies a binary operation node.
type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpPow
	OpArcTan2
)

// String returns the operation name.
func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "Add"
	case OpSub:
		return "Sub"
	case OpMul:
		return "Mul"
	case OpDiv:
		return "Div"
	case OpPow:
		return "Pow"
	case OpArcTan2:
		return "ArcTan2"
	default:
		return "UNKNOWN"
	}
}

// binaryNode applies a binary operation to two subtrees.
type binaryNode struct {
	op    BinaryOp
	left  Component
	right Component
}

// Add returns the sum x1 + x2.
func Add(x1, x2 Component) Component {
	return &binaryNode{op: OpAdd, left: x1, right: x2}
}

// Sub returns the difference x1 - x2.
func Sub(x1, x2 Component) Component {
	return &binaryNode{op: OpSub, left: x1, right: x2}
}

// Mul returns the product x1 * x2.
func Mul(x1, x2 Component) Component {
	return &binaryNode{op: OpMul, left: x1, right: x2}
}

// Div returns the quotient x1 / x2.
//
// The divisor's value is fixed at construction, so a zero divisor is
// rejected here rather than at evaluation.
func Div(x1, x2 Component) (Component, error) {
	if x2.Value() == 0 {
		return nil, &DivisionError{Op: "Div"}
	}
	return &binaryNode{op: OpDiv, left: x1, right: x2}, nil
}

// Pow returns x1 raised to the power x2. The derivative takes the
// logarithm of the base; at a zero base it evaluates to a
// DivisionError.
func Pow(x1, x2 Component) Component {
	return &binaryNode{op: OpPow, left: x1, right: x2}
}

// ArcTan2 returns the two-argument arctangent extended to complex
// operands: -i log((x + iy) / sqrt(x^2 + y^2)). The derivative divides
// by x^2 + y^2; where that vanishes it evaluates to a DivisionError.
func ArcTan2(y, x Component) Component {
	return &binaryNode{op: OpArcTan2, left: y, right: x}
}

// Square returns x * x.
func Square(x Component) Component {
	return &binaryNode{op: OpMul, left: x, right: x}
}

// Hypot returns sqrt(x^2 + y^2).
func Hypot(x, y Component) Component {
	sum := Add(Square(x), Square(y))
	return &unaryNode{op: OpSqrt, arg: sum}
}

// Value implements Component.
func (n *binaryNode) Value() complex128 {
	x1 := n.left.Value()
	x2 := n.right.Value()
	switch n.op {
	case OpAdd:
		return x1 + x2
	case OpSub:
		return x1 - x2
	case OpMul:
		return x1 * x2
	case OpDiv:
		return x1 / x2
	case OpPow:
		return cmplx.Pow(x1, x2)
	case OpArcTan2:
		y, x := x1, x2
		return (0 - 1i) * cmplx.Log((x+1i*y)/cmplx.Sqrt(x*x+y*y))
	default:
		return cmplx.NaN()
	}
}

// DerivativeWrt implements Component. Binary operations compose as
// Rv*Lj + Lv*Rj, the linear maps of the operand values applied to the
// accumulated Jacobians.
func (n *binaryNode) DerivativeWrt(leaf *Input) (*mat.Dense, error) {
	lj, err := n.left.DerivativeWrt(leaf)
	if err != nil {
		return nil, err
	}
	rj, err := n.right.DerivativeWrt(leaf)
	if err != nil {
		return nil, err
	}

	l := n.left.Value()
	r := n.right.Value()

	var out mat.Dense

	switch n.op {
	case OpAdd:
		out.Add(lj, rj)
		return &out, nil

	case OpSub:
		out.Sub(lj, rj)
		return &out, nil

	case OpMul:
		out.Add(liftMul(r, lj), liftMul(l, rj))
		return &out, nil

	case OpDiv:
		// r != 0 is a construction invariant.
		out.Add(liftMul(1/r, lj), liftMul(-l/(r*r), rj))
		return &out, nil

	case OpPow:
		if l == 0 {
			return nil, &DivisionError{Op: "Pow"}
		}
		dl := r * cmplx.Pow(l, r-1)
		dr := cmplx.Pow(l, r) * cmplx.Log(l)
		out.Add(liftMul(dl, lj), liftMul(dr, rj))
		return &out, nil

	case OpArcTan2:
		y, x := l, r
		r2 := x*x + y*y
		if r2 == 0 {
			return nil, &DivisionError{Op: "ArcTan2"}
		}
		out.Add(liftMul(x/r2, lj), liftMul(-y/r2, rj))
		return &out, nil

	default:
		return nil, &DomainError{Op: n.op.String(), Value: l, Reason: "unknown operation"}
	}
}

// Leaves implements Component.
func (n *binaryNode) Leaves() []*Input {
	return mergeLeaves(n.left, n.right)
}

// LinearMap implements Component.
func (n *binaryNode) LinearMap() *mat.Dense {
	return linearMap(n.Value())
}

func (n *binaryNode) component() {}
