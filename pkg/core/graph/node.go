// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// Node represents one scalar value in the computation graph, and can be used as input to further operations.
//
// The forward value is computed when the node is created and never changes. The gradient starts at 0 and is only
// changed by a backward pass (see Backward) or reset by Graph.ZeroGradients.
//
// Inputs are kept as NodeId references into the Graph arena, so the same input can be shared by any number of
// nodes (fan-out), or even appear twice as the input of the same node (e.g.: Mul(x, x)).
//
// Node.String allows for a pretty-printing of node. To see the full graph with all nodes, use Graph.String.
type Node struct {
	graph    *Graph
	id       NodeId // id within graph.
	nodeType NodeType

	value float64
	grad  float64

	// backpropagated is set when a backward pass reaches the node, and cleared by Graph.ZeroGradients.
	backpropagated bool

	// inputs are the edges of the computation graph, in the order given to the op.
	inputs []NodeId

	// alias is a name by which the Node be referred in the Graph.
	alias string

	trace error // Stack-trace error of where Node was created. Stored if graph.traced is true.
}

// newNode creates and registers a node in g.
// Inputs must already be registered in g.
func newNode(g *Graph, nodeType NodeType, value float64, inputs ...*Node) *Node {
	node := &Node{
		graph:    g,
		nodeType: nodeType,
		value:    value,
	}
	if len(inputs) > 0 {
		node.inputs = make([]NodeId, len(inputs))
		for ii, input := range inputs {
			node.inputs[ii] = input.id
		}
	}
	if g.traced {
		node.trace = errors.New("Stack-trace")
	}
	g.registerNode(node)
	return node
}

// Graph that holds this Node.
func (n *Node) Graph() *Graph {
	if n == nil {
		return nil
	}
	return n.graph
}

// Id is the unique id of this node within the Graph.
func (n *Node) Id() NodeId {
	return n.id
}

// Type identify the operation performed by the node.
func (n *Node) Type() NodeType {
	if n == nil {
		return NodeTypeInvalid
	}
	return n.nodeType
}

// Value returns the forward value computed for the node.
func (n *Node) Value() float64 {
	return n.value
}

// Grad returns the gradient accumulated in the node by the backward passes so far.
func (n *Node) Grad() float64 {
	return n.grad
}

// Inputs are the other nodes that are direct inputs to the node, in the order they were given to the op.
// Leaf nodes (constants) have no inputs.
func (n *Node) Inputs() []*Node {
	inputs := make([]*Node, len(n.inputs))
	for ii, id := range n.inputs {
		inputs[ii] = n.graph.nodes[id]
	}
	return inputs
}

// NumInputs returns the number of inputs of the node: 0 for leaf nodes.
func (n *Node) NumInputs() int {
	return len(n.inputs)
}

// IsLeaf returns whether the node has no inputs.
func (n *Node) IsLeaf() bool {
	return len(n.inputs) == 0
}

// AssertValid panics if `n` is nil, or if it is not registered in a graph.
func (n *Node) AssertValid() {
	if n == nil {
		exceptions.Panicf("Node is nil")
	}
	if n.graph == nil || n.id == InvalidNodeId || int(n.id) >= len(n.graph.nodes) || n.graph.nodes[n.id] != n {
		exceptions.Panicf("Node in an invalid state")
	}
}

// Trace returns stack-trace in form of an error, of when the node was created.
// Only available if enabled by `Graph.SetTraced(true)`.
func (n *Node) Trace() error {
	return n.trace
}

// String implements the `fmt.Stringer` interface.
func (n *Node) String() string {
	if n == nil {
		return "Node(nil)"
	}
	if n.graph == nil {
		return "Node(invalid graph)"
	}
	var sb strings.Builder
	if n.nodeType == NodeTypeConstant {
		_, _ = fmt.Fprintf(&sb, "%s(%g)", n.nodeType, n.value)
	} else {
		inputs := make([]string, len(n.inputs))
		for ii, id := range n.inputs {
			inputs[ii] = fmt.Sprintf("#%d", id)
		}
		_, _ = fmt.Fprintf(&sb, "%s(%s) = %g", n.nodeType, strings.Join(inputs, ", "), n.value)
	}
	_, _ = fmt.Fprintf(&sb, " (grad=%g)", n.grad)
	if n.alias != "" {
		_, _ = fmt.Fprintf(&sb, " [%q]", n.alias)
	}
	return sb.String()
}
