// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph implements reverse-mode automatic differentiation over scalar (float64) values.
//
// The main elements in the package are:
//
//   - Graph is the arena that owns every Node created for one computation. Nodes are only ever
//     appended to it, and each node is identified by its NodeId, its index in the arena.
//
//   - Node represents one scalar value of the computation: a constant (a leaf), or the result of one of
//     the ops (Add, Mul, ReLU). The forward value is computed eagerly when the node is created, so it's
//     available immediately with Node.Value.
//
//   - Backward walks the sub-graph reachable from a root node, from the root towards the leaves, and
//     accumulates into each node the gradient of the root with respect to it. See Node.Grad.
//
// Since every op takes only already existing nodes as inputs, the graph is always a DAG: there is no way
// to create a cycle using the public API.
//
// Example:
//
//	g := graph.NewGraph("example")
//	x := graph.Const(g, 3)
//	y := graph.Add(graph.Mul(x, x), graph.Scalar(g, 1)) // y = x^2 + 1
//	graph.Backward(y)
//	fmt.Println(y.Value(), x.Grad()) // 10 6
//
// # Error Handling
//
// Like the rest of GoMLX, the Graph and its ops "throw" errors with panic() (see package
// github.com/gomlx/exceptions), with meaningful messages, instead of returning errors for every op.
// Misuse -- e.g.: mixing nodes of different graphs, or running a second backward pass without resetting
// gradients -- panics early.
//
// # Repeated Backward Passes
//
// Gradients are accumulated with `+=`, so running Backward twice on overlapping sub-graphs would
// silently double the gradients. By default, Backward refuses to run if any node reachable from its root
// was already reached by a previous backward pass, until Graph.ZeroGradients is called. Passes over
// disjoint sub-graphs of the same Graph are allowed. Use Graph.WithGradientAccumulation to allow
// accumulation across overlapping passes.
package graph

//go:generate go tool enumer -type=NodeType -trimprefix=NodeType -output=gen_nodetype_enumer.go nodetype.go

import (
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
)

// Graph holds all the nodes of a computation.
//
// Nodes are kept in an append-only arena, and they reference their inputs by NodeId.
// A Graph is not safe for concurrent use.
type Graph struct {
	id   GraphId
	name string

	// nodes include all nodes known to Graph, indexed by NodeId.
	nodes []*Node

	// aliasToNode allows retrieval or nodes by their aliases.
	aliasToNode map[string]*Node

	// aliasScope is the current scope for aliases
	aliasScope []string

	traced bool

	// accumulate allows backward passes to accumulate over dirty gradients.
	accumulate bool


	backwardHooks []BackwardHook
}

// GraphId is globally unique.
type GraphId int

// NodeId is a unique NodeId within a Graph: it's the index of the node in the Graph.
type NodeId int

// InvalidNodeId indicates a node that failed to be created.
const InvalidNodeId = NodeId(-1)

// BackwardHook is called at the end of every backward pass, with the root used and the
// topological order (leaves first) of the nodes reached.
type BackwardHook func(g *Graph, root *Node, order []*Node)

var (
	muGraphCount sync.Mutex
	graphCount   GraphId
)

// NewGraph constructs an empty Graph.
//
// If name is empty, a unique name is generated.
func NewGraph(name string) *Graph {
	muGraphCount.Lock()
	defer muGraphCount.Unlock()

	if name == "" {
		name = fmt.Sprintf("graph_#%d", graphCount)
	}
	g := &Graph{
		id:          graphCount,
		name:        name,
		aliasToNode: make(map[string]*Node),
	}
	graphCount++
	return g
}

// Name of the Graph.
func (g *Graph) Name() string { return g.name }

// GraphId is a unique id of the graph.
func (g *Graph) GraphId() GraphId { return g.id }

// NumNodes returns the number of nodes created so far in the Graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// AssertValid panics if graph is nil.
func (g *Graph) AssertValid() {
	if g == nil {
		exceptions.Panicf("the Graph is nil")
	}
}

// SetTraced defines whether each node creation is traced.
// If true, every node will save a stack-trace of where it was created, which is helpful for debugging.
// See Node.Trace.
func (g *Graph) SetTraced(traced bool) {
	g.traced = traced
}

// IsTraced returns whether Graph is tracing node creation.
func (g *Graph) IsTraced() bool {
	return g.traced
}

// WithGradientAccumulation configures whether a backward pass is allowed to run over gradients left by a previous
// backward pass, accumulating on top of them.
//
// The default is false, and a Backward reaching nodes already reached by a previous pass panics until
// Graph.ZeroGradients is called.
//
// It returns the Graph itself, for cascading configuration calls.
func (g *Graph) WithGradientAccumulation(accumulate bool) *Graph {
	g.accumulate = accumulate
	return g
}

// GradientAccumulation returns whether backward passes are allowed to accumulate. See WithGradientAccumulation.
func (g *Graph) GradientAccumulation() bool {
	return g.accumulate
}

// ZeroGradients resets the gradient of every node in the Graph to 0, so a new backward pass can run.
func (g *Graph) ZeroGradients() {
	for _, node := range g.nodes {
		node.grad = 0
		node.backpropagated = false
	}
}

// OnBackward registers a hook to be called at the end of every backward pass on this Graph.
// Hooks are called in the order they were registered.
func (g *Graph) OnBackward(hook BackwardHook) {
	g.backwardHooks = append(g.backwardHooks, hook)
}

// registerNode in the graph, setting its unique NodeId within the Graph.
func (g *Graph) registerNode(node *Node) {
	node.id = NodeId(len(g.nodes))
	g.nodes = append(g.nodes, node)
}

// NodeById returns the node with the given id.
// It panics if id is not valid.
func (g *Graph) NodeById(id NodeId) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		exceptions.Panicf("invalid request Graph.NodeById(id=%d): graph %q has only %d nodes", id, g.name, len(g.nodes))
	}
	return g.nodes[id]
}

// Nodes iterates over all nodes of the Graph, in the order they were created.
func (g *Graph) Nodes() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for _, node := range g.nodes {
			if !yield(node) {
				return
			}
		}
	}
}

// String converts the Graph to a multiline string with a description of the full graph.
func (g *Graph) String() string {
	if g == nil {
		return "Graph(nil)"
	}
	parts := make([]string, 0, len(g.nodes)+1)
	parts = append(parts, fmt.Sprintf("Graph %q: %d nodes", g.name, len(g.nodes)))
	for _, node := range g.nodes {
		parts = append(parts, fmt.Sprintf("\t#%d: %s", node.id, node))
	}
	return strings.Join(parts, "\n")
}
