// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for
// security-critical operations.
//
// Budget input and output names become formula variables and appear
// verbatim in reports and log output, so they are validated at the
// boundary before any parsing or evaluation happens.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxNameLength is the longest accepted input or output name.
//
// Budget names appear as report column labels; anything longer than
// this is almost certainly a pasted formula rather than a name.
const MaxNameLength = 64

// namePattern matches valid budget and formula identifiers:
// a letter or underscore followed by letters, digits, or underscores.
var namePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateName checks whether a budget input or output name is a
// valid identifier.
//
// Names are case-sensitive: "V" and "v" are distinct variables.
//
// Returns an error describing the problem, or nil if the name is valid.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("name %q exceeds %d characters", name, MaxNameLength)
	}
	if !namePattern.MatchString(name) {
		return fmt.Errorf("invalid name %q: must start with a letter or underscore and contain only letters, digits, and underscores", name)
	}
	return nil
}

// ValidateNames checks a list of names, collecting every invalid entry.
//
// Returns nil if all names are valid, otherwise an error listing the
// invalid names.
func ValidateNames(names []string) error {
	var invalid []string
	for _, name := range names {
		if err := ValidateName(name); err != nil {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid names: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// SanitizeName trims surrounding whitespace and validates the result.
//
// Unlike validation alone, this tolerates padding that YAML authors
// commonly leave around quoted scalars.
//
// Returns the trimmed name, or an error if the trimmed name is invalid.
func SanitizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := ValidateName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}
