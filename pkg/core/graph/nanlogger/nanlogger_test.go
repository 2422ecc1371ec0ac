// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package nanlogger

import (
	"math"
	"testing"

	. "github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNanLogger(t *testing.T) {
	var numHandlerCalls int
	var lastTrace *Trace
	var lastValue float64
	handler := func(nanType float64, info *Trace) {
		numHandlerCalls++
		lastTrace = info
		lastValue = nanType
	}

	// build creates a fresh graph with the NanLogger attached, with x as the only variable input.
	l := New().WithHandler(handler)
	build := func(x float64) (*Graph, *Node) {
		g := NewGraph("")
		l.Attach(g)
		l.PushScope("scope1")
		v1 := Mul(Const(g, x), Const(g, 2))
		l.Trace(v1)
		l.PopScope()
		l.PushScope("base")
		v2 := ReLU(v1)
		l.Trace(v2, "scope2")
		l.PopScope()
		return g, Add(v1, v2)
	}

	// Checks that without any NaN, nothing happens.
	_, out := build(1.0)
	require.NotPanics(t, func() { Backward(out) })
	assert.Equal(t, 0, numHandlerCalls)

	// Check that NaN is observed in the first traced node, with the correct scope.
	_, out = build(math.NaN())
	Backward(out)
	require.Equal(t, 1, numHandlerCalls)
	assert.Equal(t, []string{"scope1"}, lastTrace.Scope)
	assert.False(t, lastTrace.InGradient)
	assert.True(t, math.IsNaN(lastValue))
	assert.Error(t, lastTrace.StackTrace)

	// Inf in a value: v1 is reported before v2, since it comes first in the graph.
	_, out = build(math.Inf(1))
	Backward(out)
	require.Equal(t, 2, numHandlerCalls)
	assert.Equal(t, []string{"scope1"}, lastTrace.Scope)
	assert.True(t, math.IsInf(lastValue, 1))
}

func TestNanLoggerGradient(t *testing.T) {
	var traces []*Trace
	l := New().WithHandler(func(_ float64, info *Trace) { traces = append(traces, info) })

	g := NewGraph("TestNanLoggerGradient")
	l.Attach(g)
	x := Const(g, 1)
	huge := Const(g, math.MaxFloat64)
	l.Trace(x, "x")
	// The gradient of x is 2*huge, which overflows to +Inf, while x's own value is fine.
	y := Mul(Mul(x, huge), Const(g, 0.5))
	Backward(Mul(y, Const(g, 4)))
	require.Len(t, traces, 1)
	assert.True(t, traces[0].InGradient)
	assert.Same(t, x, traces[0].Node)
	assert.Equal(t, []string{"x"}, traces[0].Scope)
}

func TestNanLoggerCheck(t *testing.T) {
	var numHandlerCalls int
	l := New().WithHandler(func(_ float64, _ *Trace) { numHandlerCalls++ })
	g := NewGraph("TestNanLoggerCheck")
	assert.False(t, l.Check(g), "no traced nodes")
	x := Const(g, math.Inf(-1))
	l.Trace(x)
	assert.True(t, l.Check(g))
	assert.Equal(t, 1, numHandlerCalls)
}

func TestNilNanLogger(t *testing.T) {
	var l *NanLogger
	g := NewGraph("TestNilNanLogger")
	x := Const(g, math.NaN())
	require.NotPanics(t, func() {
		l.Attach(g)
		l.PushScope("a")
		l.Trace(x)
		l.PopScope()
		assert.False(t, l.Check(g))
		assert.Nil(t, l.WithHandler(DefaultHandler))
	})
	// Popping an empty scope only logs a warning.
	require.NotPanics(t, func() { New().PopScope() })
}

func TestNanLoggerTraceAll(t *testing.T) {
	var traces []*Trace
	l := New().WithHandler(func(_ float64, info *Trace) { traces = append(traces, info) })

	// Attached but nothing traced: nothing is reported.
	g := NewGraph("TestNanLoggerTraceAll")
	l.Attach(g)
	x := Const(g, math.NaN())
	y := Mul(x, Const(g, math.Inf(1))).WithAlias("y")
	Backward(y)
	assert.Empty(t, traces)

	l.PushScope("model")
	l.TraceAll(g)
	l.PopScope()
	g.ZeroGradients()
	Backward(y)
	require.Len(t, traces, 1)
	assert.Same(t, x, traces[0].Node)
	assert.Equal(t, []string{"model"}, traces[0].Scope)

	// Aliased nodes use their alias as scope.
	assert.True(t, l.Check(g))
	require.Len(t, traces, 2)
	g2 := NewGraph("TestNanLoggerTraceAllAliases")
	l.Attach(g2)
	z := MulScalar(Const(g2, math.MaxFloat64), 2).WithAlias("z") // Overflows to +Inf.
	l.TraceAll(g2)
	Backward(z)
	require.Len(t, traces, 3)
	assert.Same(t, z, traces[2].Node)
	assert.False(t, traces[2].InGradient)
	assert.Equal(t, []string{"/z"}, traces[2].Scope)

	var nilLogger *NanLogger
	require.NotPanics(t, func() { nilLogger.TraceAll(g) })
}
