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
	"errors"
	"fmt"
)

var (
	// ErrDomain indicates an argument outside an operation's domain.
	ErrDomain = errors.New("argument outside operation domain")

	// ErrDivisionByZero indicates a division by zero, at construction
	// or during derivative evaluation.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNilComponent indicates a nil component where a tree was
	// required.
	ErrNilComponent = errors.New("nil component")

	// ErrNilLeaf indicates a nil leaf in a derivative request.
	ErrNilLeaf = errors.New("nil leaf input")

	// ErrNotLeaf indicates a reference that does not resolve to a leaf
	// input, such as a composite quantity.
	ErrNotLeaf = errors.New("reference does not resolve to a leaf input")

	// ErrCorrelationShape indicates a correlation matrix with the
	// wrong dimensions.
	ErrCorrelationShape = errors.New("correlation matrix is not 2x2")

	// ErrCodecFormat indicates a serialized payload with the wrong
	// format marker.
	ErrCodecFormat = errors.New("unexpected tree format")

	// ErrCodecVersion indicates a serialized payload with an
	// unsupported version.
	ErrCodecVersion = errors.New("unsupported tree version")
)

// DomainError reports an argument outside an operation's domain, with
// the offending operation and value.
type DomainError struct {
	Op     string
	Value  complex128
	Reason string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s(%v): %s", e.Op, e.Value, e.Reason)
}

func (e *DomainError) Unwrap() error { return ErrDomain }

// DivisionError reports a division by zero in the named operation.
type DivisionError struct {
	Op string
}

func (e *DivisionError) Error() string {
	return fmt.Sprintf("%s: division by zero", e.Op)
}

func (e *DivisionError) Unwrap() error { return ErrDivisionByZero }

// CorrelationShapeError reports a correlation matrix that is not 2x2.
type CorrelationShapeError struct {
	Rows int
	Cols int
}

func (e *CorrelationShapeError) Error() string {
	return fmt.Sprintf("correlation matrix must be 2x2, got %dx%d", e.Rows, e.Cols)
}

func (e *CorrelationShapeError) Unwrap() error { return ErrCorrelationShape }

// DecodeError reports a malformed record in a serialized tree.
type DecodeError struct {
	Index  int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("node %d: %s", e.Index, e.Reason)
}
