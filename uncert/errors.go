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

import (
	"errors"
	"fmt"
)

// Sentinel errors for uncertainty propagation.
var (
	// ErrDomain indicates an operation argument outside its real domain.
	ErrDomain = errors.New("argument outside domain")

	// ErrDivisionByZero indicates a zero divisor or a derivative
	// denominator that evaluates to zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNilComponent is returned when a nil component is passed to a
	// context operation.
	ErrNilComponent = errors.New("component must not be nil")

	// ErrNilLeaf is returned when a derivative is requested with respect
	// to a nil leaf.
	ErrNilLeaf = errors.New("leaf must not be nil")

	// ErrNotLeaf is returned when an InputRef does not resolve to a
	// leaf input (for example a quantity wrapping a derived expression).
	ErrNotLeaf = errors.New("reference does not resolve to a leaf input")

	// ErrCodecFormat is returned when serialized data carries an
	// unrecognized format marker.
	ErrCodecFormat = errors.New("unrecognized serialization format")

	// ErrCodecVersion is returned when serialized data carries an
	// unsupported version.
	ErrCodecVersion = errors.New("unsupported serialization version")
)

// DomainError reports an argument outside the real domain of an operation.
//
// Domain checks run at construction time for operations whose domain is
// statically known (Sqrt, Log, ArcSin, ArcCos, ArcCosh, ArcTanh) and at
// derivative evaluation time for Pow, whose restriction depends on both
// operands.
type DomainError struct {
	// Op is the operation that rejected the argument.
	Op string

	// Value is the offending argument value.
	Value float64

	// Reason describes the violated constraint.
	Reason string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s(%g): %s", e.Op, e.Value, e.Reason)
}

// Unwrap returns ErrDomain for errors.Is support.
func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// DivisionError reports a division by zero.
//
// Div and Inv raise it at construction when the divisor is zero.
// Operations whose derivative divides by a quantity that can reach zero
// inside the permitted domain (Sqrt at 0, Log at 0, ArcSin and ArcCos at
// the interval endpoints, ArcTan2 at the origin) raise it lazily when the
// derivative is evaluated.
type DivisionError struct {
	// Op is the operation whose evaluation divided by zero.
	Op string
}

// Error implements the error interface.
func (e *DivisionError) Error() string {
	return fmt.Sprintf("%s: division by zero", e.Op)
}

// Unwrap returns ErrDivisionByZero for errors.Is support.
func (e *DivisionError) Unwrap() error {
	return ErrDivisionByZero
}

// DecodeError reports a malformed node record during Unmarshal.
type DecodeError struct {
	// Index is the position of the record in the node table.
	Index int

	// Reason describes what was wrong with the record.
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("node %d: %s", e.Index, e.Reason)
}
