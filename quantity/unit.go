// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package quantity pairs measurement trees with the units they are
// expressed in.
//
// The uncert and cuncert engines are unit-free. This package carries a
// unit alongside a tree and re-wraps evaluation results under the
// documented contract: the standard uncertainty of a quantity measured
// in unit u stays in u, while a variance or covariance is expressed in
// u squared. Degrees of freedom are dimensionless and pass through
// unchanged.
//
// Units here are labels with an integer exponent. There is no
// conversion or product-unit algebra; combining quantities of
// different units is the caller's responsibility.
package quantity

import (
	"fmt"
)

// Unit is a named measurement unit raised to an integer exponent.
// The zero value is dimensionless. Unit is comparable, so equal units
// compare equal with ==.
type Unit struct {
	symbol string
	exp    int
}

// NewUnit returns the unit with the given symbol and exponent 1.
func NewUnit(symbol string) Unit {
	return Unit{symbol: symbol, exp: 1}
}

// Common units of the worked examples.
var (
	One    = Unit{}
	Meter  = NewUnit("m")
	Volt   = NewUnit("V")
	Ampere = NewUnit("A")
	Ohm    = NewUnit("Ω")
	Radian = NewUnit("rad")
	Kelvin = NewUnit("K")
)

// Squared returns the unit with its exponent doubled, the unit of a
// variance over this unit.
func (u Unit) Squared() Unit {
	return Unit{symbol: u.symbol, exp: u.exp * 2}
}

// IsDimensionless reports whether the unit carries no dimension.
func (u Unit) IsDimensionless() bool {
	return u.symbol == "" || u.exp == 0
}

func (u Unit) String() string {
	if u.IsDimensionless() {
		return "1"
	}
	if u.exp == 1 {
		return u.symbol
	}
	return fmt.Sprintf("%s^%d", u.symbol, u.exp)
}
