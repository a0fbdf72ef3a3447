// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package formula

import (
	"math"

	"github.com/AleutianAI/gumtree/cuncert"
	"github.com/AleutianAI/gumtree/uncert"
)

// scalarFn builds one scalar engine node from resolved arguments.
type scalarFn struct {
	arity int
	build func(args []uncert.Component) (uncert.Component, error)
}

// cplxFn builds one complex engine node from resolved arguments.
type cplxFn struct {
	arity int
	build func(args []cuncert.Component) (cuncert.Component, error)
}

var scalarConstants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

var cplxConstants = map[string]complex128{
	"pi": complex(math.Pi, 0),
	"e":  complex(math.E, 0),
	"j":  1i,
}

var scalarFunctions = map[string]scalarFn{
	"exp":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Exp(a[0]), nil }},
	"log":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Log(a[0]) }},
	"ln":      {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Log(a[0]) }},
	"log10":   {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Log10(a[0]) }},
	"log2":    {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Log2(a[0]) }},
	"sqrt":    {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Sqrt(a[0]) }},
	"sin":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Sin(a[0]), nil }},
	"cos":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Cos(a[0]), nil }},
	"tan":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Tan(a[0]), nil }},
	"arcsin":  {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcSin(a[0]) }},
	"arccos":  {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcCos(a[0]) }},
	"arctan":  {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcTan(a[0]), nil }},
	"sinh":    {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Sinh(a[0]), nil }},
	"cosh":    {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Cosh(a[0]), nil }},
	"tanh":    {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Tanh(a[0]), nil }},
	"arcsinh": {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcSinh(a[0]), nil }},
	"arccosh": {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcCosh(a[0]) }},
	"arctanh": {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcTanh(a[0]) }},
	"abs":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Abs(a[0]), nil }},
	"inv":     {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Inv(a[0]) }},
	"square":  {1, func(a []uncert.Component) (uncert.Component, error) { return uncert.Square(a[0]), nil }},
	"pow":     {2, func(a []uncert.Component) (uncert.Component, error) { return uncert.Pow(a[0], a[1]), nil }},
	"hypot":   {2, func(a []uncert.Component) (uncert.Component, error) { return uncert.Hypot(a[0], a[1]), nil }},
	"arctan2": {2, func(a []uncert.Component) (uncert.Component, error) { return uncert.ArcTan2(a[0], a[1]), nil }},
}

var cplxFunctions = map[string]cplxFn{
	"exp":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Exp(a[0]), nil }},
	"log":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Log(a[0]), nil }},
	"ln":      {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Log(a[0]), nil }},
	"log10":   {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Log10(a[0]), nil }},
	"log2":    {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Log2(a[0]), nil }},
	"sqrt":    {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Sqrt(a[0]), nil }},
	"sin":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Sin(a[0]), nil }},
	"cos":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Cos(a[0]), nil }},
	"tan":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Tan(a[0]), nil }},
	"arcsin":  {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcSin(a[0]), nil }},
	"arccos":  {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcCos(a[0]), nil }},
	"arctan":  {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcTan(a[0]), nil }},
	"sinh":    {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Sinh(a[0]), nil }},
	"cosh":    {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Cosh(a[0]), nil }},
	"tanh":    {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Tanh(a[0]), nil }},
	"arcsinh": {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcSinh(a[0]), nil }},
	"arccosh": {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcCosh(a[0]), nil }},
	"arctanh": {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcTanh(a[0]), nil }},
	"abs":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Abs(a[0]), nil }},
	"conj":    {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Conj(a[0]), nil }},
	"inv":     {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Inv(a[0]) }},
	"square":  {1, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Square(a[0]), nil }},
	"pow":     {2, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Pow(a[0], a[1]), nil }},
	"hypot":   {2, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.Hypot(a[0], a[1]), nil }},
	"arctan2": {2, func(a []cuncert.Component) (cuncert.Component, error) { return cuncert.ArcTan2(a[0], a[1]), nil }},
}

// BindScalar resolves the formula against scalar leaf inputs and
// returns the corresponding uncert expression tree. Identifiers are
// looked up as built-in constants first, then in inputs. Construction
// checks of the engine, such as a zero constant divisor, surface as
// the engine's own errors.
func (f *Formula) BindScalar(inputs map[string]*uncert.Input) (uncert.Component, error) {
	return bindScalarNode(f.root, inputs)
}

func bindScalarNode(n node, inputs map[string]*uncert.Input) (uncert.Component, error) {
	switch v := n.(type) {
	case *numberNode:
		return uncert.Const(v.value), nil

	case *identNode:
		if c, ok := scalarConstants[v.name]; ok {
			return uncert.Const(c), nil
		}
		if leaf, ok := inputs[v.name]; ok {
			return leaf, nil
		}
		return nil, &BindError{Pos: v.at, Name: v.name, Err: ErrUnknownVariable}

	case *negNode:
		arg, err := bindScalarNode(v.arg, inputs)
		if err != nil {
			return nil, err
		}
		return uncert.Neg(arg), nil

	case *binNode:
		left, err := bindScalarNode(v.left, inputs)
		if err != nil {
			return nil, err
		}
		right, err := bindScalarNode(v.right, inputs)
		if err != nil {
			return nil, err
		}
		switch v.op {
		case tokenPlus:
			return uncert.Add(left, right), nil
		case tokenMinus:
			return uncert.Sub(left, right), nil
		case tokenStar:
			return uncert.Mul(left, right), nil
		case tokenSlash:
			return uncert.Div(left, right)
		default:
			return uncert.Pow(left, right), nil
		}

	case *callNode:
		fn, ok := scalarFunctions[v.name]
		if !ok {
			return nil, &BindError{Pos: v.at, Name: v.name, Err: ErrUnknownFunction}
		}
		if len(v.args) != fn.arity {
			return nil, &ArityError{Pos: v.at, Name: v.name, Want: fn.arity, Got: len(v.args)}
		}
		args := make([]uncert.Component, len(v.args))
		for i, argNode := range v.args {
			arg, err := bindScalarNode(argNode, inputs)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return fn.build(args)
	}
	return nil, &ParseError{Pos: n.pos(), Msg: "unsupported expression"}
}

// BindComplex resolves the formula against complex leaf inputs and
// returns the corresponding cuncert expression tree. The imaginary
// unit j is available as a constant.
func (f *Formula) BindComplex(inputs map[string]*cuncert.Input) (cuncert.Component, error) {
	return bindCplxNode(f.root, inputs)
}

func bindCplxNode(n node, inputs map[string]*cuncert.Input) (cuncert.Component, error) {
	switch v := n.(type) {
	case *numberNode:
		return cuncert.Const(complex(v.value, 0)), nil

	case *identNode:
		if c, ok := cplxConstants[v.name]; ok {
			return cuncert.Const(c), nil
		}
		if leaf, ok := inputs[v.name]; ok {
			return leaf, nil
		}
		return nil, &BindError{Pos: v.at, Name: v.name, Err: ErrUnknownVariable}

	case *negNode:
		arg, err := bindCplxNode(v.arg, inputs)
		if err != nil {
			return nil, err
		}
		return cuncert.Neg(arg), nil

	case *binNode:
		left, err := bindCplxNode(v.left, inputs)
		if err != nil {
			return nil, err
		}
		right, err := bindCplxNode(v.right, inputs)
		if err != nil {
			return nil, err
		}
		switch v.op {
		case tokenPlus:
			return cuncert.Add(left, right), nil
		case tokenMinus:
			return cuncert.Sub(left, right), nil
		case tokenStar:
			return cuncert.Mul(left, right), nil
		case tokenSlash:
			return cuncert.Div(left, right)
		default:
			return cuncert.Pow(left, right), nil
		}

	case *callNode:
		fn, ok := cplxFunctions[v.name]
		if !ok {
			return nil, &BindError{Pos: v.at, Name: v.name, Err: ErrUnknownFunction}
		}
		if len(v.args) != fn.arity {
			return nil, &ArityError{Pos: v.at, Name: v.name, Want: fn.arity, Got: len(v.args)}
		}
		args := make([]cuncert.Component, len(v.args))
		for i, argNode := range v.args {
			arg, err := bindCplxNode(argNode, inputs)
			if err != nil {
				return nil, err
			}
			args[i] = arg
		}
		return fn.build(args)
	}
	return nil, &ParseError{Pos: n.pos(), Msg: "unsupported expression"}
}
