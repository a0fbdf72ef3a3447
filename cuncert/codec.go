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
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	// codecFormat marks complex tree payloads.
	codecFormat = "gumtree/complex"

	// codecVersion is the current node-table layout version.
	codecVersion = 1
)

// nodeRecord is one entry of the serialized node table.
//
// Complex values are stored as separate real and imaginary fields.
// Leaf numeric fields are pointers so a stored zero survives the round
// trip; a nil Dof encodes infinite degrees of freedom.
type nodeRecord struct {
	Kind string `json:"kind"`

	// Leaf fields
	ID      string   `json:"id,omitempty"`
	ValueRe *float64 `json:"value_re,omitempty"`
	ValueIm *float64 `json:"value_im,omitempty"`
	URe     *float64 `json:"u_re,omitempty"`
	UIm     *float64 `json:"u_im,omitempty"`
	Dof     *float64 `json:"dof,omitempty"`

	// Operation fields
	Op   string   `json:"op,omitempty"`
	Base *float64 `json:"base,omitempty"`
	Args []int    `json:"args,omitempty"`
}

// treeEnvelope is the serialized form of a complex measurement model.
// The node table is topologically ordered, as in the scalar codec.
type treeEnvelope struct {
	Format  string       `json:"format"`
	Version int          `json:"version"`
	Root    int          `json:"root"`
	Nodes   []nodeRecord `json:"nodes"`
}

var (
	binaryOpByName = map[string]BinaryOp{
		"Add":     OpAdd,
		"Sub":     OpSub,
		"Mul":     OpMul,
		"Div":     OpDiv,
		"Pow":     OpPow,
		"ArcTan2": OpArcTan2,
	}

	unaryOpByName = map[string]UnaryOp{
		"Exp":     OpExp,
		"Log":     OpLog,
		"Sqrt":    OpSqrt,
		"Sin":     OpSin,
		"Cos":     OpCos,
		"Tan":     OpTan,
		"ArcSin":  OpArcSin,
		"ArcCos":  OpArcCos,
		"ArcTan":  OpArcTan,
		"Sinh":    OpSinh,
		"Cosh":    OpCosh,
		"Tanh":    OpTanh,
		"ArcSinh": OpArcSinh,
		"ArcCosh": OpArcCosh,
		"ArcTanh": OpArcTanh,
		"Abs":     OpAbs,
		"Conj":    OpConj,
		"Neg":     OpNeg,
		"Inv":     OpInv,
	}
)

// Marshal serializes a complex measurement model to JSON. Sharing
// structure and leaf identity handles are preserved, as in the scalar
// codec. Non-finite leaf values make Marshal fail.
func Marshal(node Component) ([]byte, error) {
	if node == nil {
		return nil, ErrNilComponent
	}
	enc := &encoder{index: make(map[Component]int)}
	root, err := enc.encode(node)
	if err != nil {
		return nil, err
	}
	return json.Marshal(treeEnvelope{
		Format:  codecFormat,
		Version: codecVersion,
		Root:    root,
		Nodes:   enc.nodes,
	})
}

// Unmarshal rebuilds a complex measurement model from Marshal output.
// Violations are reported as DecodeError with the offending index.
func Unmarshal(data []byte) (Component, error) {
	var env treeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse tree payload: %w", err)
	}
	if env.Format != codecFormat {
		return nil, fmt.Errorf("%w: %q", ErrCodecFormat, env.Format)
	}
	if env.Version != codecVersion {
		return nil, fmt.Errorf("%w: %d", ErrCodecVersion, env.Version)
	}
	if len(env.Nodes) == 0 {
		return nil, &DecodeError{Index: 0, Reason: "empty node table"}
	}

	built := make([]Component, len(env.Nodes))
	for i, rec := range env.Nodes {
		node, err := decodeRecord(i, rec, built)
		if err != nil {
			return nil, err
		}
		built[i] = node
	}

	if env.Root < 0 || env.Root >= len(built) {
		return nil, &DecodeError{Index: env.Root, Reason: "root index out of range"}
	}
	return built[env.Root], nil
}

// encoder assigns table indexes to nodes by identity.
type encoder struct {
	index map[Component]int
	nodes []nodeRecord
}

func (e *encoder) encode(node Component) (int, error) {
	if i, ok := e.index[node]; ok {
		return i, nil
	}

	var rec nodeRecord
	switch n := node.(type) {
	case *Input:
		re, im := real(n.value), imag(n.value)
		uRe, uIm := n.uRe, n.uIm
		rec = nodeRecord{
			Kind:    "input",
			ID:      n.id.String(),
			ValueRe: &re,
			ValueIm: &im,
			URe:     &uRe,
			UIm:     &uIm,
		}
		if !math.IsInf(n.dof, 1) {
			dof := n.dof
			rec.Dof = &dof
		}

	case *unaryNode:
		arg, err := e.encode(n.arg)
		if err != nil {
			return 0, err
		}
		rec = nodeRecord{
			Kind: "unary",
			Op:   n.op.String(),
			Args: []int{arg},
		}
		if n.op == OpLog {
			base := n.base
			rec.Base = &base
		}

	case *binaryNode:
		left, err := e.encode(n.left)
		if err != nil {
			return 0, err
		}
		right, err := e.encode(n.right)
		if err != nil {
			return 0, err
		}
		rec = nodeRecord{
			Kind: "binary",
			Op:   n.op.String(),
			Args: []int{left, right},
		}

	default:
		return 0, fmt.Errorf("unsupported component type %T", node)
	}

	e.nodes = append(e.nodes, rec)
	idx := len(e.nodes) - 1
	e.index[node] = idx
	return idx, nil
}

// decodeRecord rebuilds one node. built holds every earlier record's
// node; children must already be present.
func decodeRecord(i int, rec nodeRecord, built []Component) (Component, error) {
	switch rec.Kind {
	case "input":
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("invalid leaf id %q", rec.ID)}
		}
		if rec.ValueRe == nil || rec.ValueIm == nil {
			return nil, &DecodeError{Index: i, Reason: "missing value"}
		}
		if rec.URe == nil || rec.UIm == nil {
			return nil, &DecodeError{Index: i, Reason: "missing uncertainty"}
		}
		dof := InfiniteDof
		if rec.Dof != nil {
			dof = *rec.Dof
		}
		return &Input{
			id:    LeafID{id: id},
			value: complex(*rec.ValueRe, *rec.ValueIm),
			uRe:   *rec.URe,
			uIm:   *rec.UIm,
			dof:   dof,
		}, nil

	case "unary":
		op, ok := unaryOpByName[rec.Op]
		if !ok {
			return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("unknown unary op %q", rec.Op)}
		}
		if len(rec.Args) != 1 {
			return nil, &DecodeError{Index: i, Reason: "unary node needs exactly one argument"}
		}
		arg := rec.Args[0]
		if arg < 0 || arg >= i {
			return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("argument index %d out of range", arg)}
		}
		node := &unaryNode{op: op, arg: built[arg]}
		if op == OpLog {
			if rec.Base == nil {
				return nil, &DecodeError{Index: i, Reason: "missing log base"}
			}
			node.base = *rec.Base
		}
		return node, nil

	case "binary":
		op, ok := binaryOpByName[rec.Op]
		if !ok {
			return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("unknown binary op %q", rec.Op)}
		}
		if len(rec.Args) != 2 {
			return nil, &DecodeError{Index: i, Reason: "binary node needs exactly two arguments"}
		}
		left, right := rec.Args[0], rec.Args[1]
		if left < 0 || left >= i {
			return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("argument index %d out of range", left)}
		}
		if right < 0 || right >= i {
			return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("argument index %d out of range", right)}
		}
		return &binaryNode{op: op, left: built[left], right: built[right]}, nil

	default:
		return nil, &DecodeError{Index: i, Reason: fmt.Sprintf("unknown node kind %q", rec.Kind)}
	}
}
