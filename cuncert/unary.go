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
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// UnaryOp identifies a unary operation node.
type UnaryOp int

const (
	OpExp UnaryOp = iota
	OpLog
	OpSqrt
	OpSin
	OpCos
	OpTan
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
	OpConj
	OpNeg
	OpInv
)

// String returns the operation name.
func (op UnaryOp) String() string {
	switch op {
	case OpExp:
		return "Exp"
	case OpLog:
		return "Log"
	case OpSqrt:
		return "Sqrt"
	case OpSin:
		return "Sin"
	case OpCos:
		return "Cos"
	case OpTan:
		return "Tan"
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
	case OpConj:
		return "Conj"
	case OpNeg:
		return "Neg"
	case OpInv:
		return "Inv"
	default:
		return "UNKNOWN"
	}
}

// unaryNode applies a unary operation to one subtree. base is the
// logarithm base, meaningful for OpLog only.
type unaryNode struct {
	op   UnaryOp
	arg  Component
	base float64
}

// Exp returns e raised to x.
func Exp(x Component) Component { return &unaryNode{op: OpExp, arg: x} }

// Log returns the natural logarithm of x. At exactly zero the
// derivative evaluates to a DivisionError.
func Log(x Component) Component { return &unaryNode{op: OpLog, arg: x, base: math.E} }

// LogBase returns the logarithm of x to a real base. The base must be
// positive and not 1.
func LogBase(x Component, base float64) (Component, error) {
	if base <= 0 || base == 1 {
		return nil, &DomainError{
			Op:     "LogBase",
			Value:  complex(base, 0),
			Reason: "base must be positive and not 1",
		}
	}
	return &unaryNode{op: OpLog, arg: x, base: base}, nil
}

// Log10 returns the decadic logarithm of x.
func Log10(x Component) Component { return &unaryNode{op: OpLog, arg: x, base: 10} }

// Log2 returns the binary logarithm of x.
func Log2(x Component) Component { return &unaryNode{op: OpLog, arg: x, base: 2} }

// Sqrt returns the principal square root of x. At exactly zero the
// derivative evaluates to a DivisionError.
func Sqrt(x Component) Component { return &unaryNode{op: OpSqrt, arg: x} }

// Sin returns the sine of x.
func Sin(x Component) Component { return &unaryNode{op: OpSin, arg: x} }

// Cos returns the cosine of x.
func Cos(x Component) Component { return &unaryNode{op: OpCos, arg: x} }

// Tan returns the tangent of x.
func Tan(x Component) Component { return &unaryNode{op: OpTan, arg: x} }

// ArcSin returns the inverse sine of x.
func ArcSin(x Component) Component { return &unaryNode{op: OpArcSin, arg: x} }

// ArcCos returns the inverse cosine of x.
func ArcCos(x Component) Component { return &unaryNode{op: OpArcCos, arg: x} }

// ArcTan returns the inverse tangent of x.
func ArcTan(x Component) Component { return &unaryNode{op: OpArcTan, arg: x} }

// Sinh returns the hyperbolic sine of x.
func Sinh(x Component) Component { return &unaryNode{op: OpSinh, arg: x} }

// Cosh returns the hyperbolic cosine of x.
func Cosh(x Component) Component { return &unaryNode{op: OpCosh, arg: x} }

// Tanh returns the hyperbolic tangent of x.
func Tanh(x Component) Component { return &unaryNode{op: OpTanh, arg: x} }

// ArcSinh returns the inverse hyperbolic sine of x.
func ArcSinh(x Component) Component { return &unaryNode{op: OpArcSinh, arg: x} }

// ArcCosh returns the inverse hyperbolic cosine of x.
func ArcCosh(x Component) Component { return &unaryNode{op: OpArcCosh, arg: x} }

// ArcTanh returns the inverse hyperbolic tangent of x.
func ArcTanh(x Component) Component { return &unaryNode{op: OpArcTanh, arg: x} }

// Abs returns the modulus of x as a real-valued component. The
// operation is not holomorphic; its Jacobian maps both input axes onto
// the real axis. At exactly zero the derivative evaluates to a
// DivisionError.
func Abs(x Component) Component { return &unaryNode{op: OpAbs, arg: x} }

// Conj returns the complex conjugate of x. The operation is not
// holomorphic; its Jacobian is diag(1, -1).
func Conj(x Component) Component { return &unaryNode{op: OpConj, arg: x} }

// Neg returns the negation of x.
func Neg(x Component) Component { return &unaryNode{op: OpNeg, arg: x} }

// Inv returns the reciprocal 1 / x. The value is fixed at
// construction, so a zero argument is rejected here.
func Inv(x Component) (Component, error) {
	if x.Value() == 0 {
		return nil, &DivisionError{Op: "Inv"}
	}
	return &unaryNode{op: OpInv, arg: x}, nil
}

// logScale returns 1/ln(base), kept exact for the natural base.
func logScale(base float64) complex128 {
	if base == math.E {
		return 1
	}
	return complex(1/math.Log(base), 0)
}

// Value implements Component.
func (n *unaryNode) Value() complex128 {
	x := n.arg.Value()
	switch n.op {
	case OpExp:
		return cmplx.Exp(x)
	case OpLog:
		return cmplx.Log(x) * logScale(n.base)
	case OpSqrt:
		return cmplx.Sqrt(x)
	case OpSin:
		return cmplx.Sin(x)
	case OpCos:
		return cmplx.Cos(x)
	case OpTan:
		return cmplx.Tan(x)
	case OpArcSin:
		return cmplx.Asin(x)
	case OpArcCos:
		return cmplx.Acos(x)
	case OpArcTan:
		return cmplx.Atan(x)
	case OpSinh:
		return cmplx.Sinh(x)
	case OpCosh:
		return cmplx.Cosh(x)
	case OpTanh:
		return cmplx.Tanh(x)
	case OpArcSinh:
		return cmplx.Asinh(x)
	case OpArcCosh:
		return cmplx.Acosh(x)
	case OpArcTanh:
		return cmplx.Atanh(x)
	case OpAbs:
		return complex(cmplx.Abs(x), 0)
	case OpConj:
		return cmplx.Conj(x)
	case OpNeg:
		return -x
	case OpInv:
		return 1 / x
	default:
		return cmplx.NaN()
	}
}

// DerivativeWrt implements Component. Holomorphic operations lift
// their complex derivative to a linear map and left-multiply the
// argument's Jacobian; Abs, Conj, and Neg apply their explicit real
// Jacobians.
func (n *unaryNode) DerivativeWrt(leaf *Input) (*mat.Dense, error) {
	arg, err := n.arg.DerivativeWrt(leaf)
	if err != nil {
		return nil, err
	}

	z := n.arg.Value()

	switch n.op {
	case OpExp:
		return liftMul(cmplx.Exp(z), arg), nil

	case OpLog:
		if z == 0 {
			return nil, &DivisionError{Op: "Log"}
		}
		return liftMul(logScale(n.base)/z, arg), nil

	case OpSqrt:
		if z == 0 {
			return nil, &DivisionError{Op: "Sqrt"}
		}
		return liftMul(0.5/cmplx.Sqrt(z), arg), nil

	case OpSin:
		return liftMul(cmplx.Cos(z), arg), nil

	case OpCos:
		return liftMul(-cmplx.Sin(z), arg), nil

	case OpTan:
		c := cmplx.Cos(z)
		return liftMul(1/(c*c), arg), nil

	case OpArcSin:
		return liftMul(1/cmplx.Sqrt(1-z*z), arg), nil

	case OpArcCos:
		return liftMul(-1/cmplx.Sqrt(1-z*z), arg), nil

	case OpArcTan:
		return liftMul(1/(1+z*z), arg), nil

	case OpSinh:
		return liftMul(cmplx.Cosh(z), arg), nil

	case OpCosh:
		return liftMul(cmplx.Sinh(z), arg), nil

	case OpTanh:
		c := cmplx.Cosh(z)
		return liftMul(1/(c*c), arg), nil

	case OpArcSinh:
		return liftMul(1/cmplx.Sqrt(1+z*z), arg), nil

	case OpArcCosh:
		return liftMul(1/(cmplx.Sqrt(z-1)*cmplx.Sqrt(z+1)), arg), nil

	case OpArcTanh:
		return liftMul(1/(1-z*z), arg), nil

	case OpAbs:
		x, y := real(z), imag(z)
		r2 := x*x + y*y
		if r2 == 0 {
			return nil, &DivisionError{Op: "Abs"}
		}
		var out mat.Dense
		out.Mul(mat.NewDense(2, 2, []float64{x / r2, y / r2, 0, 0}), arg)
		return &out, nil

	case OpConj:
		var out mat.Dense
		out.Mul(mat.NewDense(2, 2, []float64{1, 0, 0, -1}), arg)
		return &out, nil

	case OpNeg:
		var out mat.Dense
		out.Scale(-1, arg)
		return &out, nil

	case OpInv:
		// z != 0 is a construction invariant.
		return liftMul(-1/(z*z), arg), nil

	default:
		return nil, &DomainError{Op: n.op.String(), Value: z, Reason: "unknown operation"}
	}
}

// Leaves implements Component.
func (n *unaryNode) Leaves() []*Input {
	return n.arg.Leaves()
}

// LinearMap implements Component.
func (n *unaryNode) LinearMap() *mat.Dense {
	return linearMap(n.Value())
}

func (n *unaryNode) component() {}
