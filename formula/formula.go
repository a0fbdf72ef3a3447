// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package formula parses measurement-model expressions and binds them
// to the uncertainty engines.
//
// A formula is an arithmetic expression over named inputs, such as
//
//	V * cos(phi) / I
//
// with the usual precedence, right-associative exponentiation via ^,
// function calls, and scientific-notation numbers. Parsing is
// domain-neutral; BindScalar and BindComplex turn the parsed tree into
// an uncert or cuncert expression by resolving identifiers against a
// map of leaf inputs and the built-in constants (pi and e in both
// domains, the imaginary unit j in the complex domain only).
package formula

import (
	"sort"
)

// Formula is a parsed measurement-model expression. It is immutable
// and safe for concurrent use.
type Formula struct {
	src  string
	root node
	vars []string
}

// Parse parses src into a Formula. Syntax problems are reported as a
// *ParseError carrying the offending position.
func Parse(src string) (*Formula, error) {
	tokens, err := scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokenEOF {
		return nil, &ParseError{Pos: t.pos, Msg: "unexpected trailing input"}
	}
	return &Formula{src: src, root: root, vars: collectVariables(root)}, nil
}

// Source returns the original expression text.
func (f *Formula) Source() string {
	return f.src
}

// Variables returns the sorted distinct identifiers the formula reads
// as inputs. Built-in constants and function names are not variables.
func (f *Formula) Variables() []string {
	out := make([]string, len(f.vars))
	copy(out, f.vars)
	return out
}

// reservedConstants are identifier spellings that never act as
// variables. j only has a value in the complex domain, but reserving
// it in both keeps a formula's variable set domain-independent.
var reservedConstants = map[string]bool{
	"pi": true,
	"e":  true,
	"j":  true,
}

// IsReserved reports whether an identifier is a built-in constant
// spelling and therefore can never name an input.
func IsReserved(name string) bool {
	return reservedConstants[name]
}

func collectVariables(root node) []string {
	seen := make(map[string]bool)
	var walk func(n node)
	walk = func(n node) {
		switch v := n.(type) {
		case *identNode:
			if !reservedConstants[v.name] {
				seen[v.name] = true
			}
		case *callNode:
			for _, arg := range v.args {
				walk(arg)
			}
		case *negNode:
			walk(v.arg)
		case *binNode:
			walk(v.left)
			walk(v.right)
		}
	}
	walk(root)

	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}

func (f *Formula) String() string {
	return f.src
}
