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

import "math"

// BinaryOp identifies a binary operation node.
type BinaryOp int

const (
	OpAdd     BinaryOp = iota // x1 + x2
	OpSub                     // x1 - x2
	OpMul                     // x1 * x2
	OpDiv                     // x1 / x2
	OpPow                     // x1 ** x2
	OpArcTan2                 // atan2(y, x)
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

// Inv returns the reciprocal 1 / x.
func Inv(x Component) (Component, error) {
	if x.Value() == 0 {
		return nil, &DivisionError{Op: "Inv"}
	}
	return &binaryNode{op: OpDiv, left: Const(1), right: x}, nil
}

// Pow returns x1 raised to the power x2.
//
// The derivative rule requires x1 > 0 and x2 > 0; the restriction is
// checked when a derivative is evaluated, not at construction, so the
// nominal value of an out-of-range power remains available.
func Pow(x1, x2 Component) Component {
	return &binaryNode{op: OpPow, left: x1, right: x2}
}

// ArcTan2 returns the two-argument arctangent atan2(y, x).
//
// The derivative divides by x^2 + y^2; evaluating a derivative at the
// origin returns a DivisionError.
func ArcTan2(y, x Component) Component {
	return &binaryNode{op: OpArcTan2, left: y, right: x}
}

// Square returns x * x.
func Square(x Component) Component {
	return &binaryNode{op: OpMul, left: x, right: x}
}

// Hypot returns sqrt(x^2 + y^2).
//
// The argument of the square root is non-negative for every input, so
// no construction check is needed. When both values are zero the
// derivative is undefined and evaluates to a DivisionError, as for
// Sqrt at zero.
func Hypot(x, y Component) Component {
	sum := Add(Square(x), Square(y))
	return &unaryNode{op: OpSqrt, arg: sum}
}

// Value implements Component.
func (n *binaryNode) Value() float64 {
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
		return math.Pow(x1, x2)
	case OpArcTan2:
		return math.Atan2(x1, x2)
	default:
		return math.NaN()
	}
}

// DerivativeWrt implements Component by the chain rule over both
// operands.
func (n *binaryNode) DerivativeWrt(leaf *Input) (float64, error) {
	du1, err := n.left.DerivativeWrt(leaf)
	if err != nil {
		return 0, err
	}
	du2, err := n.right.DerivativeWrt(leaf)
	if err != nil {
		return 0, err
	}

	x1 := n.left.Value()
	x2 := n.right.Value()

	switch n.op {
	case OpAdd:
		return du1 + du2, nil

	case OpSub:
		return du1 - du2, nil

	case OpMul:
		return x2*du1 + x1*du2, nil

	case OpDiv:
		// x2 != 0 is a construction invariant.
		return du1/x2 - du2*x1/(x2*x2), nil

	case OpPow:
		if !(x1 > 0 && x2 > 0) {
			return 0, &DomainError{
				Op:     "Pow",
				Value:  x1,
				Reason: "base and exponent must be positive for the derivative",
			}
		}
		return x2*math.Pow(x1, x2-1)*du1 + math.Pow(x1, x2)*math.Log(x1)*du2, nil

	case OpArcTan2:
		y := x1
		x := x2
		r2 := x*x + y*y
		if r2 == 0 {
			return 0, &DivisionError{Op: "ArcTan2"}
		}
		return x/r2*du1 - y/r2*du2, nil

	default:
		return 0, &DomainError{Op: n.op.String(), Value: x1, Reason: "unknown operation"}
	}
}

// Leaves implements Component.
func (n *binaryNode) Leaves() []*Input {
	return mergeLeaves(n.left, n.right)
}

func (n *binaryNode) component() {}
