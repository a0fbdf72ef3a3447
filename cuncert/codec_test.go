// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for complex tree serialization.

package cuncert

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// Test that a model survives a round trip with its values, leaf
// identities, and derivatives intact
func TestCodec_RoundTrip(t *testing.T) {
	a := NewInput(1+2i, 0.05, 0.07, 7.3)
	model := Mul(Exp(a), a)

	data, err := Marshal(model)
	require.NoError(t, err)

	restored, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, model.Value(), restored.Value())

	leaves := restored.Leaves()
	require.Len(t, leaves, 1, "the shared leaf must stay one quantity")
	assert.Equal(t, a.ID(), leaves[0].ID())
	assert.Equal(t, a.Value(), leaves[0].Value())
	assert.Equal(t, a.UncertaintyRe(), leaves[0].UncertaintyRe())
	assert.Equal(t, a.UncertaintyIm(), leaves[0].UncertaintyIm())
	assert.Equal(t, a.DegreesOfFreedom(), leaves[0].DegreesOfFreedom())

	// Identity is carried by the LeafID, so derivatives against the
	// pre-serialization leaf still resolve.
	want, err := model.DerivativeWrt(a)
	require.NoError(t, err)
	got, err := restored.DerivativeWrt(a)
	require.NoError(t, err)
	requireMatEqual(t, want, got, 0)
}

// Test that correlations registered before serialization apply to the
// reloaded tree
func TestCodec_RoundTrip_KeepsCorrelationsValid(t *testing.T) {
	ctx := NewContext()
	a := NewInput(1+1i, 0.1, 0.1, InfiniteDof)
	b := NewInput(2-1i, 0.2, 0.2, InfiniteDof)
	require.NoError(t, ctx.SetCorrelation(a, b, mat.NewDense(2, 2, []float64{-0.4, 0, 0, 0.3})))

	model := Mul(a, b)
	wantCov, err := ctx.Uncertainty(model)
	require.NoError(t, err)

	data, err := Marshal(model)
	require.NoError(t, err)
	restored, err := Unmarshal(data)
	require.NoError(t, err)

	gotCov, err := ctx.Uncertainty(restored)
	require.NoError(t, err)
	requireMatEqual(t, wantCov, gotCov, 0)
}

// Test that the logarithm base is persisted
func TestCodec_RoundTrip_LogBase(t *testing.T) {
	model := Log10(Const(100))

	data, err := Marshal(model)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"base":10`)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, real(restored.Value()), 1e-12)

	t.Run("base only appears on logarithms", func(t *testing.T) {
		data, err := Marshal(Sin(Const(1)))
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"base"`)
	})
}

// Test that stored zeros survive and stay distinct from absent fields
func TestCodec_RoundTrip_ZeroFields(t *testing.T) {
	a := NewInput(0, 0, 0, 0)

	data, err := Marshal(a)
	require.NoError(t, err)
	restored, err := Unmarshal(data)
	require.NoError(t, err)

	leaf := restored.Leaves()[0]
	assert.Equal(t, complex128(0), leaf.Value())
	assert.Equal(t, 0.0, leaf.UncertaintyRe())
	assert.Equal(t, 0.0, leaf.UncertaintyIm())
	assert.Equal(t, 0.0, leaf.DegreesOfFreedom(), "zero dof must not decode as infinite")
}

// Test that infinite degrees of freedom are encoded by omission
func TestCodec_RoundTrip_InfiniteDof(t *testing.T) {
	a := NewInput(1+1i, 0.1, 0.2, InfiniteDof)

	data, err := Marshal(a)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"dof"`)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, math.IsInf(restored.Leaves()[0].DegreesOfFreedom(), 1))
}

// Test that a shared subtree is written once
func TestCodec_SharedSubtreeEncodedOnce(t *testing.T) {
	a := NewInput(2+1i, 0.1, 0.1, InfiniteDof)
	s := Square(a)
	model := Add(s, s)

	data, err := Marshal(model)
	require.NoError(t, err)

	var env treeEnvelope
	require.NoError(t, json.Unmarshal(data, &env))
	// Square expands to Mul(a, a): leaf, product, outer sum.
	assert.Len(t, env.Nodes, 3)

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, model.Value(), restored.Value())
	assert.Len(t, restored.Leaves(), 1)
}

// Test a tree that exercises every operation kind
func TestCodec_RoundTrip_MixedOps(t *testing.T) {
	a := NewInput(0.5+0.25i, 0.01, 0.02, 12)
	b := NewInput(1.5-0.5i, 0.03, 0.01, 9)
	q, err := Div(Conj(a), b)
	require.NoError(t, err)
	model := ArcTan2(Abs(Add(Sin(a), q)), Pow(b, Const(2)))

	data, err := Marshal(model)
	require.NoError(t, err)
	restored, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, model.Value(), restored.Value())

	for _, leaf := range []*Input{a, b} {
		want, err := model.DerivativeWrt(leaf)
		require.NoError(t, err)
		got, err := restored.DerivativeWrt(leaf)
		require.NoError(t, err)
		requireMatEqual(t, want, got, 0)
	}
}

func TestMarshal_NilComponent(t *testing.T) {
	_, err := Marshal(nil)
	assert.ErrorIs(t, err, ErrNilComponent)
}

// Test that non-finite leaf values cannot be serialized
func TestMarshal_NonFiniteValue(t *testing.T) {
	a := NewInput(complex(math.Inf(1), 0), 0.1, 0.1, InfiniteDof)

	_, err := Marshal(a)
	assert.Error(t, err)
}

// Test rejection of malformed payloads, record by record
func TestUnmarshal_MalformedPayloads(t *testing.T) {
	leaf := `{"kind":"input","id":"9a3e1c6e-45dd-4b10-a4f8-1f2ad3f19b57","value_re":1,"value_im":2,"u_re":0.1,"u_im":0.2}`

	envelope := func(root int, nodes string) string {
		return fmt.Sprintf(`{"format":%q,"version":%d,"root":%d,"nodes":[%s]}`,
			codecFormat, codecVersion, root, nodes)
	}

	t.Run("not json", func(t *testing.T) {
		_, err := Unmarshal([]byte("not json"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse tree payload")
	})

	t.Run("wrong format", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"format":"gumtree/scalar","version":1,"root":0,"nodes":[` + leaf + `]}`))
		assert.ErrorIs(t, err, ErrCodecFormat)
	})

	t.Run("wrong version", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"format":"gumtree/complex","version":99,"root":0,"nodes":[` + leaf + `]}`))
		assert.ErrorIs(t, err, ErrCodecVersion)
	})

	t.Run("empty node table", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"format":"gumtree/complex","version":1,"root":0,"nodes":[]}`))
		var decodeErr *DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})

	cases := []struct {
		name    string
		payload string
		index   int
		reason  string
	}{
		{
			name:    "unknown kind",
			payload: envelope(0, `{"kind":"mystery"}`),
			index:   0,
			reason:  "unknown node kind",
		},
		{
			name:    "invalid leaf id",
			payload: envelope(0, `{"kind":"input","id":"not-a-uuid","value_re":1,"value_im":0,"u_re":0.1,"u_im":0.1}`),
			index:   0,
			reason:  "invalid leaf id",
		},
		{
			name:    "missing imaginary value",
			payload: envelope(0, `{"kind":"input","id":"9a3e1c6e-45dd-4b10-a4f8-1f2ad3f19b57","value_re":1,"u_re":0.1,"u_im":0.1}`),
			index:   0,
			reason:  "missing value",
		},
		{
			name:    "missing uncertainty",
			payload: envelope(0, `{"kind":"input","id":"9a3e1c6e-45dd-4b10-a4f8-1f2ad3f19b57","value_re":1,"value_im":2,"u_re":0.1}`),
			index:   0,
			reason:  "missing uncertainty",
		},
		{
			name:    "unknown unary op",
			payload: envelope(1, leaf+`,{"kind":"unary","op":"Cot","args":[0]}`),
			index:   1,
			reason:  "unknown unary op",
		},
		{
			name:    "unknown binary op",
			payload: envelope(1, leaf+`,{"kind":"binary","op":"Mod","args":[0,0]}`),
			index:   1,
			reason:  "unknown binary op",
		},
		{
			name:    "unary arity",
			payload: envelope(1, leaf+`,{"kind":"unary","op":"Sin","args":[0,0]}`),
			index:   1,
			reason:  "exactly one argument",
		},
		{
			name:    "binary arity",
			payload: envelope(1, leaf+`,{"kind":"binary","op":"Add","args":[0]}`),
			index:   1,
			reason:  "exactly two arguments",
		},
		{
			name:    "missing log base",
			payload: envelope(1, leaf+`,{"kind":"unary","op":"Log","args":[0]}`),
			index:   1,
			reason:  "missing log base",
		},
		{
			name:    "forward argument reference",
			payload: envelope(1, leaf+`,{"kind":"unary","op":"Sin","args":[1]}`),
			index:   1,
			reason:  "out of range",
		},
		{
			name:    "self argument reference",
			payload: envelope(0, `{"kind":"binary","op":"Add","args":[0,0]}`),
			index:   0,
			reason:  "out of range",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tc.payload))
			require.Error(t, err)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tc.index, decodeErr.Index)
			assert.Contains(t, decodeErr.Reason, tc.reason)
		})
	}

	t.Run("root out of range", func(t *testing.T) {
		_, err := Unmarshal([]byte(envelope(5, leaf)))
		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Contains(t, decodeErr.Reason, "root index out of range")
	})
}
