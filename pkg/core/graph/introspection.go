// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

// This file defines methods that allow for introspection of the graph.
//
// The API is limited -- because we want flexibility to change the implementation without concerns on breaking
// compatibility.

// ConstantValue returns the value of a constant node, and whether n is a constant.
// It's an "introspection" method.
func (n *Node) ConstantValue() (value float64, ok bool) {
	if n.Type() != NodeTypeConstant {
		return 0, false
	}
	return n.value, true
}

// IsActive returns whether a ReLU node lets gradients through, that is, if its output is positive.
// It returns false for nodes of any other type.
func (n *Node) IsActive() bool {
	return n.Type() == NodeTypeReLU && n.value > 0
}

// Leaves returns the leaf nodes (constants) root depends on, in topological order.
// If root is itself a leaf, it returns only root.
func Leaves(root *Node) []*Node {
	var leaves []*Node
	for _, node := range TopologicalOrder(root) {
		if node.IsLeaf() {
			leaves = append(leaves, node)
		}
	}
	return leaves
}

// DependsOn returns whether x is reachable from n through the input edges, that is, whether the value of n
// was computed (directly or indirectly) from x. A node does not depend on itself.
//
// Since inputs are always created before the nodes that use them, only nodes with a smaller NodeId need
// to be visited.
func DependsOn(n, x *Node) bool {
	g := validateBuildingGraphFromInputs(n, x)
	if x.id >= n.id {
		return false
	}
	visited := make([]bool, n.id)
	stack := make([]NodeId, 0, len(n.inputs))
	stack = append(stack, n.inputs...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == x.id {
			return true
		}
		if id < x.id || visited[id] {
			continue
		}
		visited[id] = true
		stack = append(stack, g.nodes[id].inputs...)
	}
	return false
}
