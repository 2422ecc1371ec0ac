// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConst(t *testing.T) {
	g := NewGraph("TestConst")
	x := Const(g, 2.5)
	assert.Equal(t, NodeTypeConstant, x.Type())
	assert.Equal(t, 2.5, x.Value())
	assert.Zero(t, x.Grad())
	assert.True(t, x.IsLeaf())
	assert.Equal(t, 0, x.NumInputs())
	assert.Empty(t, x.Inputs())
	assert.Same(t, g, x.Graph())

	// Scalar accepts any Go number.
	assert.Equal(t, 3.0, Scalar(g, 3).Value())
	assert.Equal(t, 7.0, Scalar(g, uint8(7)).Value())
	assert.Equal(t, -1.5, Scalar(g, float32(-1.5)).Value())
	assert.Equal(t, NodeTypeConstant, Scalar(g, int64(1)).Type())
}

func TestBinaryOps(t *testing.T) {
	g := NewGraph("TestBinaryOps")
	a, b := Const(g, 3), Const(g, -4)

	sum := Add(a, b)
	assert.Equal(t, NodeTypeAdd, sum.Type())
	assert.Equal(t, -1.0, sum.Value())
	assert.Equal(t, []*Node{a, b}, sum.Inputs())

	prod := Mul(a, b)
	assert.Equal(t, NodeTypeMul, prod.Type())
	assert.Equal(t, -12.0, prod.Value())
	assert.Equal(t, 2, prod.NumInputs())
	assert.False(t, prod.IsLeaf())

	assert.Equal(t, 5.0, AddScalar(a, 2).Value())
	assert.Equal(t, 1.5, MulScalar(a, 0.5).Value())
	assert.Equal(t, -3.0, Neg(a).Value())
	assert.Equal(t, 7.0, Sub(a, b).Value())
	assert.Equal(t, 16.0, Square(b).Value())
	assert.Equal(t, 2.0, Sum(a, b, a).Value())
	assert.Same(t, a, Sum(a))
}

func TestReLU(t *testing.T) {
	g := NewGraph("TestReLU")
	for _, tc := range []struct{ in, want float64 }{{-5, 0}, {0, 0}, {2.5, 2.5}} {
		out := ReLU(Const(g, tc.in))
		assert.Equal(t, NodeTypeReLU, out.Type())
		assert.Equalf(t, tc.want, out.Value(), "ReLU(%g)", tc.in)
		assert.Equal(t, 1, out.NumInputs())
	}
}

func TestOpsValidation(t *testing.T) {
	g0, g1 := NewGraph("g0"), NewGraph("g1")
	x0, x1 := Const(g0, 1), Const(g1, 1)

	err := exceptions.TryCatch[error](func() { Add(x0, x1) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different graphs")

	err = exceptions.TryCatch[error](func() { Mul(x0, nil) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input[1]")

	require.Panics(t, func() { ReLU(nil) })
	require.Panics(t, func() { Sum() })
	require.Panics(t, func() { Const(nil, 1) })
	require.Panics(t, func() { AddScalar(&Node{}, 1) }, "unregistered node")

	// Nothing was added to the graphs by failed ops.
	assert.Equal(t, 1, g0.NumNodes())
	assert.Equal(t, 1, g1.NumNodes())

	// Composite ops are checked by the ops they are built on, except Sum, which returns a single node as is.
	err = exceptions.TryCatch[error](func() { Sub(x0, x1) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different graphs")
	err = exceptions.TryCatch[error](func() { Sum(nil) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input[0]")
	require.Panics(t, func() { Sum(x0, nil) })
}
