// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package budget

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads, parses, and validates a budget file.
func Load(path string) (*Budget, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the budget file: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Parse decodes a YAML budget, applies defaults, and validates it.
// Unknown fields are rejected so that a misspelled key fails loudly
// instead of silently dropping a parameter.
func Parse(data []byte) (*Budget, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var b Budget
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to parse the budget: %w", err)
	}
	b.applyDefaults()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid budget: %w", err)
	}
	return &b, nil
}
