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

// UnaryOp identifies a unary operation node.
type UnaryOp int

const (
	OpSin UnaryOp = iota
	OpCos
	OpTan
	OpSqrt
	OpLog
	OpExp
	OpArcSin
	OpArcCos
	OpArcTan
	OpSinh
	OpCosh
	OpTanh
	OpArcSinh
	OpArcCosh
	OpArcTanh
	OpAbs
	OpNeg
)

// String returns the operation name.
func (op UnaryOp) String() string {
	switch op {
	case OpSin:
		return "Sin"
	case OpCos:
		return "Cos"
	case OpTan:
		return "Tan"
	case OpSqrt:
		return "Sqrt"
	case OpLog:
		return "Log"
	case OpExp:
		return "Exp"
	case OpArcSin:
		return "ArcSin"
	case OpArcCos:
		return "ArcCos"
	case OpArcTan:
		return "ArcTan"
	case OpSinh:
		return "Sinh"
	case OpCosh:
		return "Cosh"
	case OpTanh:
		return "Tanh"
	case OpArcSinh:
		return "ArcSinh"
	case OpArcCosh:
		return "ArcCosh"
	case OpArcTanh:
		return "ArcTanh"
	case OpAbs:
		return "Abs"
	case OpNeg:
		return "Neg"
	default:
		return "UNKNOWN"
	}
}

// unaryNode applies a unary operation to a subtree.
type unaryNode struct {
	op  UnaryOp
	arg Component
}

// Sin returns the sine of x.
func Sin(x Component) Component { return &unaryNode{op: OpSin, arg: x} }

// Cos returns the cosine of x.
func Cos(x Component) Component { return &unaryNode{op: OpCos, arg: x} }

// Tan returns the tangent of x.
func Tan(x Component) Component { return &unaryNode{op: OpTan, arg: x} }

// Exp returns e raised to x.
func Exp(x Component) Component { return &unaryNode{op: OpExp, arg: x} }

// Sinh returns the hyperbolic sine of x.
func Sinh(x Component) Component { return &unaryNode{op: OpSinh, arg: x} }

// Cosh returns the hyperbolic cosine of x.
func Cosh(x Component) Component { return &unaryNode{op: OpCosh, arg: x} }

// Tanh returns the hyperbolic tangent of x.
func Tanh(x Component) Component { return &unaryNode{op: OpTanh, arg: x} }

// ArcTan returns the inverse tangent of x.
func ArcTan(x Component) Component { return &unaryNode{op: OpArcTan, arg: x} }

// ArcSinh returns the inverse hyperbolic sine of x.
func ArcSinh(x Component) Component { return &unaryNode{op: OpArcSinh, arg: x} }

// Abs returns the absolute value of x.
//
// The weighted derivative of Abs is the absolute value of the
// argument's weighted derivative. This loses the sign of the
// sensitivity and is kept for compatibility with the established
// propagation behavior; prefer Square followed by Sqrt when a signed
// sensitivity matters.
func Abs(x Component) Component { return &unaryNode{op: OpAbs, arg: x} }

// Neg returns the negation of x.
func Neg(x Component) Component { return &unaryNode{op: OpNeg, arg: x} }

// Sqrt returns the square root of x.
//
// The argument must be non-negative at construction. At exactly zero
// the node constructs but its derivative is undefined and evaluates to
// a DivisionError.
func Sqrt(x Component) (Component, error) {
	if v := x.Value(); v < 0 {
		return nil, &DomainError{Op: "Sqrt", Value: v, Reason: "argument must be non-negative"}
	}
	return &unaryNode{op: OpSqrt, arg: x}, nil
}

// Log returns the natural logarithm of x.
//
// The argument must be non-negative at construction. At exactly zero
// the node constructs but both its value (-Inf) and its derivative are
// degenerate; the derivative evaluates to a DivisionError.
func Log(x Component) (Component, error) {
	if v := x.Value(); v < 0 {
		return nil, &DomainError{Op: "Log", Value: v, Reason: "argument must be non-negative"}
	}
	return &unaryNode{op: OpLog, arg: x}, nil
}

// Log10 returns the base-10 logarithm of x, built as Log(x)/ln(10).
func Log10(x Component) (Component, error) {
	lx, err := Log(x)
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: OpDiv, left: lx, right: Const(math.Ln10)}, nil
}

// Log2 returns the base-2 logarithm of x, built as Log(x)/ln(2).
func Log2(x Component) (Component, error) {
	lx, err := Log(x)
	if err != nil {
		return nil, err
	}
	return &binaryNode{op: OpDiv, left: lx, right: Const(math.Ln2)}, nil
}

// ArcSin returns the inverse sine of x.
//
// The argument must lie in [-1, 1]. At the endpoints the node
// constructs but the derivative evaluates to a DivisionError.
func ArcSin(x Component) (Component, error) {
	if v := x.Value(); v < -1 || v > 1 {
		return nil, &DomainError{Op: "ArcSin", Value: v, Reason: "argument must be in [-1, 1]"}
	}
	return &unaryNode{op: OpArcSin, arg: x}, nil
}

// ArcCos returns the inverse cosine of x.
//
// The argument must lie in [-1, 1]. At the endpoints the node
// constructs but the derivative evaluates to a DivisionError.
func ArcCos(x Component) (Component, error) {
	if v := x.Value(); v < -1 || v > 1 {
		return nil, &DomainError{Op: "ArcCos", Value: v, Reason: "argument must be in [-1, 1]"}
	}
	return &unaryNode{op: OpArcCos, arg: x}, nil
}

// ArcCosh returns the inverse hyperbolic cosine of x.
//
// The argument must be strictly greater than 1.
func ArcCosh(x Component) (Component, error) {
	if v := x.Value(); v <= 1 {
		return nil, &DomainError{Op: "ArcCosh", Value: v, Reason: "argument must be greater than 1"}
	}
	return &unaryNode{op: OpArcCosh, arg: x}, nil
}

// ArcTanh returns the inverse hyperbolic tangent of x.
//
// The argument must lie strictly inside (-1, 1).
func ArcTanh(x Component) (Component, error) {
	if v := x.Value(); v <= -1 || v >= 1 {
		return nil, &DomainError{Op: "ArcTanh", Value: v, Reason: "argument must be in (-1, 1)"}
	}
	return &unaryNode{op: OpArcTanh, arg: x}, nil
}

// Value implements Component.
func (n *unaryNode) Value() float64 {
	x := n.arg.Value()
	switch n.op {
	case OpSin:
		return math.Sin(x)
	case OpCos:
		return math.Cos(x)
	case OpTan:
		return math.Tan(x)
	case OpSqrt:
		return math.Sqrt(x)
	case OpLog:
		return math.Log(x)
	case OpExp:
		return math.Exp(x)
	case OpArcSin:
		return math.Asin(x)
	case OpArcCos:
		return math.Acos(x)
	case OpArcTan:
		return math.Atan(x)
	case OpSinh:
		return math.Sinh(x)
	case OpCosh:
		return math.Cosh(x)
	case OpTanh:
		return math.Tanh(x)
	case OpArcSinh:
		return math.Asinh(x)
	case OpArcCosh:
		return math.Acosh(x)
	case OpArcTanh:
		return math.Atanh(x)
	case OpAbs:
		return math.Abs(x)
	case OpNeg:
		return -x
	default:
		return math.NaN()
	}
}

// DerivativeWrt implements Component by the chain rule.
func (n *unaryNode) DerivativeWrt(leaf *Input) (float64, error) {
	du, err := n.arg.DerivativeWrt(leaf)
	if err != nil {
		return 0, err
	}

	x := n.arg.Value()

	switch n.op {
	case OpSin:
		return math.Cos(x) * du, nil

	case OpCos:
		return -math.Sin(x) * du, nil

	case OpTan:
		c := math.Cos(x)
		return du / (c * c), nil

	case OpSqrt:
		if x == 0 {
			return 0, &DivisionError{Op: "Sqrt"}
		}
		return du / (2 * math.Sqrt(x)), nil

	case OpLog:
		if x == 0 {
			return 0, &DivisionError{Op: "Log"}
		}
		return du / x, nil

	case OpExp:
		return math.Exp(x) * du, nil

	case OpArcSin:
		if x == 1 || x == -1 {
			return 0, &DivisionError{Op: "ArcSin"}
		}
		return du / math.Sqrt(1-x*x), nil

	case OpArcCos:
		if x == 1 || x == -1 {
			return 0, &DivisionError{Op: "ArcCos"}
		}
		return -du / math.Sqrt(1-x*x), nil

	case OpArcTan:
		return du / (1 + x*x), nil

	case OpSinh:
		return math.Cosh(x) * du, nil

	case OpCosh:
		return math.Sinh(x) * du, nil

	case OpTanh:
		th := math.Tanh(x)
		return (1 - th*th) * du, nil

	case OpArcSinh:
		return du / math.Sqrt(1+x*x), nil

	case OpArcCosh:
		// x > 1 is a construction invariant.
		return du / (math.Sqrt(x-1) * math.Sqrt(x+1)), nil

	case OpArcTanh:
		// |x| < 1 is a construction invariant.
		return du / (1 - x*x), nil

	case OpAbs:
		return math.Abs(du), nil

	case OpNeg:
		return -du, nil

	default:
		return 0, &DomainError{Op: n.op.String(), Value: x, Reason: "unknown operation"}
	}
}

// Leaves implements Component.
func (n *unaryNode) Leaves() []*Input {
	return n.arg.Leaves()
}

func (n *unaryNode) component() {}
