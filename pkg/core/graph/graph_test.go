// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"flag"
	"os"
	"strings"
	"testing"

	"github.com/gomlx/exceptions"
	. "github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

func TestMain(m *testing.M) {
	flag.Parse()
	os.Exit(m.Run())
}

func TestNewGraph(t *testing.T) {
	g := NewGraph("named")
	assert.Equal(t, "named", g.Name())
	assert.Equal(t, 0, g.NumNodes())

	g0, g1 := NewGraph(""), NewGraph("")
	assert.True(t, strings.HasPrefix(g0.Name(), "graph_#"))
	assert.NotEqual(t, g0.Name(), g1.Name())
	assert.NotEqual(t, g0.GraphId(), g1.GraphId())
}

func TestGraphNodes(t *testing.T) {
	g := NewGraph("TestGraphNodes")
	x := Const(g, 2)
	y := Const(g, 3)
	z := Mul(x, y)
	require.Equal(t, 3, g.NumNodes())
	assert.Equal(t, NodeId(0), x.Id())
	assert.Equal(t, NodeId(2), z.Id())
	assert.Same(t, y, g.NodeById(1))

	var collected []*Node
	for node := range g.Nodes() {
		collected = append(collected, node)
	}
	assert.Equal(t, []*Node{x, y, z}, collected)

	// Early break of the iteration.
	count := 0
	for range g.Nodes() {
		count++
		break
	}
	assert.Equal(t, 1, count)

	err := exceptions.TryCatch[error](func() { g.NodeById(3) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has only 3 nodes")
	require.Panics(t, func() { g.NodeById(InvalidNodeId) })
}

func TestGraphString(t *testing.T) {
	g := NewGraph("TestGraphString")
	x := Const(g, 2).WithAlias("x")
	y := ReLU(Add(x, x))
	Backward(y)
	str := g.String()
	t.Logf("\n%s", str)
	lines := strings.Split(str, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `Graph "TestGraphString": 3 nodes`, lines[0])
	assert.Equal(t, "\t#0: Constant(2) (grad=2) [\"/x\"]", lines[1])
	assert.Equal(t, "\t#1: Add(#0, #0) = 4 (grad=1)", lines[2])
	assert.Equal(t, "\t#2: ReLU(#1) = 4 (grad=1)", lines[3])

	var nilGraph *Graph
	assert.Equal(t, "Graph(nil)", nilGraph.String())
}

func TestGraphTraced(t *testing.T) {
	g := NewGraph("TestGraphTraced")
	x := Const(g, 1)
	assert.NoError(t, x.Trace())
	g.SetTraced(true)
	require.True(t, g.IsTraced())
	y := AddScalar(x, 1)
	require.Error(t, y.Trace())
	assert.Contains(t, strings.ToLower(y.Trace().Error()), "stack-trace")
}

func TestNodeTypeEnum(t *testing.T) {
	assert.Equal(t, "Add", NodeTypeAdd.String())
	assert.Equal(t, "ReLU", NodeTypeReLU.String())
	nodeType, err := NodeTypeString("mul")
	require.NoError(t, err)
	assert.Equal(t, NodeTypeMul, nodeType)
	_, err = NodeTypeString("div")
	require.Error(t, err)
	assert.True(t, NodeTypeConstant.IsANodeType())
	assert.False(t, NodeType(42).IsANodeType())
	assert.Equal(t, "NodeType(42)", NodeType(42).String())
	assert.Equal(t, []string{"Invalid", "Constant", "Add", "Mul", "ReLU"}, NodeTypeStrings())
}
