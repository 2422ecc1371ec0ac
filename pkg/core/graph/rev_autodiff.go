// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// This file implements the reverse-mode automatic differentiation.
//
// Conventions:
//
// * root node: the value we want the gradient of. Its gradient with respect to itself is seeded with 1.
// * gradient (or adjoint) of a node: the derivative of the root with respect to the node. It's the sum of the
//   contributions back-propagated by every node that uses it as input.
// * The nodes are visited in reverse topological order, so by the time a node is visited, all the nodes
//   that use it (and could contribute to its gradient) have already been visited: its gradient is final, and it
//   can be back-propagated to its own inputs.

// gradientRule back-propagates the gradient of node to its inputs, accumulating into them.
//
// Rules read node.grad and input values, and only ever add to the inputs' grad.
type gradientRule func(g *Graph, node *Node)

// gradientRules maps each node type to its gradient rule.
//
// There is one entry for each valid NodeType: Backward panics on a node type without a rule.
var gradientRules = map[NodeType]gradientRule{
	NodeTypeConstant: constantGradient,
	NodeTypeAdd:      addGradient,
	NodeTypeMul:      mulGradient,
	NodeTypeReLU:     reluGradient,
}

// constantGradient is a no-op: constants have no inputs.
func constantGradient(_ *Graph, _ *Node) {}

func addGradient(g *Graph, node *Node) {
	a, b := g.nodes[node.inputs[0]], g.nodes[node.inputs[1]]
	a.grad += node.grad
	b.grad += node.grad
}

// mulGradient implements the product rule. Notice that for Mul(x, x), x receives both contributions.
func mulGradient(g *Graph, node *Node) {
	a, b := g.nodes[node.inputs[0]], g.nodes[node.inputs[1]]
	a.grad += b.value * node.grad
	b.grad += a.value * node.grad
}

// reluGradient passes the gradient through only where the unit is active (output > 0).
func reluGradient(g *Graph, node *Node) {
	if node.value > 0 {
		g.nodes[node.inputs[0]].grad += node.grad
	}
}

// Backward computes the gradient of root with respect to every node reachable from it, and accumulates
// it in each node -- see Node.Grad.
//
// It seeds root's gradient with 1, and then back-propagates in reverse topological order (see TopologicalOrder),
// so each node's gradient is complete before it is propagated to its inputs.
//
// Gradients are accumulated. If any node reachable from root was already reached by a previous backward pass,
// it panics, unless Graph.WithGradientAccumulation(true) was set. Use Graph.ZeroGradients to reset the gradients
// in between passes. Passes from roots whose sub-graphs don't overlap don't interfere, and are always allowed.
//
// Forward values are never changed.
func Backward(root *Node) {
	g := validateBuildingGraphFromInputs(root)
	order := TopologicalOrder(root)
	klog.V(2).Infof("Backward(#%d) in graph %q: %d of %d nodes reachable", root.id, g.name, len(order), len(g.nodes))
	if !g.accumulate {
		for _, node := range order {
			if node.backpropagated {
				exceptions.Panicf("Backward(%s) on graph %q reaches node #%d, which holds the gradient of a previous "+
					"backward pass: call Graph.ZeroGradients first, or enable Graph.WithGradientAccumulation",
					root, g.name, node.id)
			}
		}
	}

	for _, node := range order {
		node.backpropagated = true
	}
	root.grad = 1
	for ii := len(order) - 1; ii >= 0; ii-- {
		node := order[ii]
		rule, found := gradientRules[node.nodeType]
		if !found {
			exceptions.Panicf("graph %q has node %s, for which no gradient is defined, cannot back-propagate",
				g.name, node)
		}
		rule(g, node)
	}

	for _, hook := range g.backwardHooks {
		hook(g, root, order)
	}
}

// Gradient returns the gradient of output with respect to each of the wrt nodes.
//
// It resets all the gradients of the Graph (see Graph.ZeroGradients) before running Backward(output), so it
// can be called multiple times. Nodes in wrt that are not reachable from output get a gradient of 0.
func Gradient(output *Node, wrt ...*Node) []float64 {
	g := validateBuildingGraphFromInputs(append([]*Node{output}, wrt...)...)
	g.ZeroGradients()
	Backward(output)
	gradients := make([]float64, len(wrt))
	for ii, node := range wrt {
		gradients[ii] = node.grad
	}
	return gradients
}
