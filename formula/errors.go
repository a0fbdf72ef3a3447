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
	"errors"
	"fmt"
)

var (
	// ErrUnknownFunction indicates a call to a function the target
	// domain does not provide.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownVariable indicates an identifier with no bound input
	// and no constant meaning in the target domain.
	ErrUnknownVariable = errors.New("unknown variable")
)

// ParseError reports a syntax error with its 1-based position in the
// source.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("position %d: %s", e.Pos, e.Msg)
}

// BindError reports a name that could not be resolved while binding a
// formula to engine inputs.
type BindError struct {
	Pos  int
	Name string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("position %d: %s %q", e.Pos, e.Err, e.Name)
}

func (e *BindError) Unwrap() error { return e.Err }

// ArityError reports a call with the wrong number of arguments.
type ArityError struct {
	Pos  int
	Name string
	Want int
	Got  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("position %d: %s takes %d argument(s), got %d",
		e.Pos, e.Name, e.Want, e.Got)
}
