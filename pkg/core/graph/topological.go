// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

// topoFrame is one entry of the explicit DFS stack: the node being expanded and the index of the
// next input to visit.
type topoFrame struct {
	id        NodeId
	nextInput int
}

// TopologicalOrder returns all nodes reachable from root (root included), ordered such that every node
// comes after all of its inputs: leaves first, root last. Each node appears exactly once, even if it's
// used by many nodes.
//
// It's a post-order depth-first traversal, using an explicit stack so the depth of the expression is not
// limited by the goroutine stack.
//
// Complexity: O(V+E) on the reachable sub-graph, plus O(N) for the visited bitmap, where N is the number
// of nodes in the Graph.
func TopologicalOrder(root *Node) []*Node {
	g := validateBuildingGraphFromInputs(root)
	visited := make([]bool, len(g.nodes))
	order := make([]*Node, 0, int(root.id)+1)

	visited[root.id] = true
	stack := []topoFrame{{id: root.id}}
	for len(stack) > 0 {
		frame := &stack[len(stack)-1]
		node := g.nodes[frame.id]
		if frame.nextInput < len(node.inputs) {
			inputId := node.inputs[frame.nextInput]
			frame.nextInput++
			if !visited[inputId] {
				visited[inputId] = true
				stack = append(stack, topoFrame{id: inputId})
			}
			continue
		}
		// All inputs emitted: node can be emitted.
		order = append(order, node)
		stack = stack[:len(stack)-1]
	}
	return order
}
