// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"golang.org/x/exp/constraints"
)

// Number is any Go numeric type that can be converted to a constant node with Scalar.
type Number interface {
	constraints.Integer | constraints.Float
}

// validateBuildingGraphFromInputs checks that all inputs are valid and from the same graph, and returns the graph.
func validateBuildingGraphFromInputs(inputs ...*Node) (g *Graph) {
	if len(inputs) == 0 {
		exceptions.Panicf("no input nodes provided, at least one is required")
	}
	for ii, n := range inputs {
		if err := exceptions.TryCatch[error](n.AssertValid); err != nil {
			panic(errors.WithMessagef(err, "invalid input[%d]", ii))
		}
		if g == nil {
			g = n.Graph()
		} else if n.Graph() != g {
			exceptions.Panicf("combining nodes from different graphs not allowed: "+
				"input[0] graph is %q, input[%d] graph is %q", g.Name(), ii, n.Graph().Name())
		}
	}
	return
}

// Const creates a constant (leaf) node in the Graph holding x.
//
// Constants have no inputs, and back-propagation stops at them: after Backward their gradient holds the
// derivative of the root with respect to them.
func Const(g *Graph, x float64) *Node {
	g.AssertValid()
	return newNode(g, NodeTypeConstant, x)
}

// Scalar converts a Go number of any numeric type to a constant node.
// It's the explicit path to use a literal wherever a Node is required.
func Scalar[T Number](g *Graph, x T) *Node {
	return Const(g, float64(x))
}

// Add returns a node with a + b.
//
// The gradient of the output is back-propagated unchanged to both inputs.
func Add(a, b *Node) *Node {
	g := validateBuildingGraphFromInputs(a, b)
	return newNode(g, NodeTypeAdd, a.value+b.value, a, b)
}

// Mul returns a node with a * b.
//
// The gradient back-propagated to each input is the output gradient times the value of the other input.
func Mul(a, b *Node) *Node {
	g := validateBuildingGraphFromInputs(a, b)
	return newNode(g, NodeTypeMul, a.value*b.value, a, b)
}

// ReLU returns a node with max(0, x).
//
// Gradient only flows back to x if the output is positive. At x == 0 (where the function is not
// differentiable) the gradient is taken to be 0.
func ReLU(x *Node) *Node {
	g := validateBuildingGraphFromInputs(x)
	return newNode(g, NodeTypeReLU, max(0, x.value), x)
}

// AddScalar returns x + c, with c converted to a constant node.
func AddScalar[T Number](x *Node, c T) *Node {
	g := validateBuildingGraphFromInputs(x)
	return Add(x, Scalar(g, c))
}

// MulScalar returns x * c, with c converted to a constant node.
func MulScalar[T Number](x *Node, c T) *Node {
	g := validateBuildingGraphFromInputs(x)
	return Mul(x, Scalar(g, c))
}

// Neg returns -x, as x * (-1).
func Neg(x *Node) *Node {
	return MulScalar(x, -1.0)
}

// Sub returns a - b, as a + b * (-1).
func Sub(a, b *Node) *Node {
	return Add(a, Neg(b))
}

// Square returns x * x.
func Square(x *Node) *Node {
	return Mul(x, x)
}

// Sum returns the sum of all the given nodes, chaining Add nodes from left to right.
// With a single node, it is returned unchanged.
func Sum(nodes ...*Node) *Node {
	// Validated up-front since a single node is returned without going through Add.
	validateBuildingGraphFromInputs(nodes...)
	sum := nodes[0]
	for _, node := range nodes[1:] {
		sum = Add(sum, node)
	}
	return sum
}
