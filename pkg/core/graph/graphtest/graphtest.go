// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graphtest holds test utilities for packages that depend on the graph package.
//
// Besides helpers to compare values and gradients, it provides random "programs" (expressions over a set of leaves)
// that can be rebuilt on any leaf values, used to cross-check the gradients computed by graph.Backward with a
// numerical (finite differences) estimate.
package graphtest

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"
)

// TestGraphFn should build its own inputs (leaves) and return them along with the output.
type TestGraphFn func(g *graph.Graph) (inputs []*graph.Node, output *graph.Node)

// RunGradientTest builds the graph with graphFn, runs the backward pass from its output, and checks that the output
// value is wantValue and the gradient of each of the inputs is the corresponding value in wantGrads.
//
// delta is the margin of value on the difference of output and want values that are acceptable.
// Values of delta <= 0 means only exact equality is accepted.
func RunGradientTest(t *testing.T, testName string, graphFn TestGraphFn, wantValue float64, wantGrads []float64, delta float64) {
	t.Run(testName, func(t *testing.T) {
		g := graph.NewGraph(testName)
		inputs, output := graphFn(g)
		require.Lenf(t, wantGrads, len(inputs), "%s: number of wanted gradients doesn't match number of inputs", testName)
		var grads []float64
		require.NotPanicsf(t, func() { grads = graph.Gradient(output, inputs...) }, "%s: failed backward pass", testName)
		if delta <= 0 {
			require.Equalf(t, wantValue, output.Value(), "%s: output value", testName)
			require.Equalf(t, wantGrads, grads, "%s: gradients", testName)
			return
		}
		require.InDeltaf(t, wantValue, output.Value(), delta, "%s: output value", testName)
		require.InDeltaSlicef(t, wantGrads, grads, delta, "%s: gradients", testName)
	})
}

// OpCode of one Instruction of a Program.
type OpCode int

const (
	OpAdd OpCode = iota
	OpMul
	OpReLU
	numOpCodes
)

// Instruction of a Program: it applies Op to the values in registers A and B (B is ignored by OpReLU).
//
// Registers 0 to NumLeaves-1 hold the leaves; the result of instruction i is stored in register NumLeaves+i.
type Instruction struct {
	Op   OpCode
	A, B int
}

// Program is a straight-line expression over NumLeaves leaves. The last instruction is the output.
//
// The same Program can be built (see Program.Build) on different leaf values, which is what allows
// numerical differentiation, since graph nodes are immutable once created.
type Program struct {
	NumLeaves    int
	Instructions []Instruction
}

// RandomProgram creates a Program with numOps random instructions over numLeaves leaves.
//
// Operands are drawn from all registers available so far, so leaves and intermediary results are frequently
// shared (fan-out), and occasionally an instruction uses the same register twice (e.g.: squaring).
func RandomProgram(rng *rand.Rand, numLeaves, numOps int) *Program {
	if numLeaves <= 0 || numOps <= 0 {
		panic(fmt.Sprintf("RandomProgram requires numLeaves > 0 and numOps > 0, got %d and %d", numLeaves, numOps))
	}
	p := &Program{
		NumLeaves:    numLeaves,
		Instructions: make([]Instruction, numOps),
	}
	for ii := range p.Instructions {
		numRegisters := numLeaves + ii
		inst := Instruction{
			Op: OpCode(rng.IntN(int(numOpCodes))),
			A:  rng.IntN(numRegisters),
			B:  rng.IntN(numRegisters),
		}
		if ii == numOps-1 && numOps > 1 {
			// Make the output depend on the previous result, so programs don't degenerate.
			inst.A = numRegisters - 1
		}
		p.Instructions[ii] = inst
	}
	return p
}

// Build creates the nodes of the program in g, given the leaf nodes, and returns the output node.
func (p *Program) Build(g *graph.Graph, leaves []*graph.Node) *graph.Node {
	if len(leaves) != p.NumLeaves {
		panic(fmt.Sprintf("Program.Build requires %d leaves, got %d", p.NumLeaves, len(leaves)))
	}
	registers := make([]*graph.Node, 0, p.NumLeaves+len(p.Instructions))
	registers = append(registers, leaves...)
	for _, inst := range p.Instructions {
		var result *graph.Node
		switch inst.Op {
		case OpAdd:
			result = graph.Add(registers[inst.A], registers[inst.B])
		case OpMul:
			result = graph.Mul(registers[inst.A], registers[inst.B])
		case OpReLU:
			result = graph.ReLU(registers[inst.A])
		default:
			panic(fmt.Sprintf("unknown OpCode %d", inst.Op))
		}
		registers = append(registers, result)
	}
	return registers[len(registers)-1]
}

// BuildWithValues creates a new graph with leaves set to the given values, and returns the leaves and the output.
func (p *Program) BuildWithValues(values []float64) (leaves []*graph.Node, output *graph.Node) {
	g := graph.NewGraph("")
	leaves = make([]*graph.Node, len(values))
	for ii, v := range values {
		leaves[ii] = graph.Const(g, v)
	}
	return leaves, p.Build(g, leaves)
}

// String implements fmt.Stringer, with one instruction per line.
func (p *Program) String() string {
	opNames := [...]string{OpAdd: "add", OpMul: "mul", OpReLU: "relu"}
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Program(%d leaves):", p.NumLeaves)
	for ii, inst := range p.Instructions {
		if inst.Op == OpReLU {
			_, _ = fmt.Fprintf(&sb, "\n\tr%d = relu(r%d)", p.NumLeaves+ii, inst.A)
		} else {
			_, _ = fmt.Fprintf(&sb, "\n\tr%d = %s(r%d, r%d)", p.NumLeaves+ii, opNames[inst.Op], inst.A, inst.B)
		}
	}
	return sb.String()
}

// NumericalGradient estimates the derivative of the program output with respect to leaf number `leaf`, at the
// given values, using centered finite differences with step eps.
//
// It also returns whether the estimate is reliable: it's not when any ReLU changes between active and
// inactive across the evaluated points, since the function has a kink in between.
func NumericalGradient(p *Program, values []float64, leaf int, eps float64) (grad float64, reliable bool) {
	_, center := p.BuildWithValues(values)

	shifted := make([]float64, len(values))
	copy(shifted, values)
	shifted[leaf] = values[leaf] + eps
	_, plus := p.BuildWithValues(shifted)
	shifted[leaf] = values[leaf] - eps
	_, minus := p.BuildWithValues(shifted)

	grad = (plus.Value() - minus.Value()) / (2 * eps)
	reliable = sameActivations(center.Graph(), plus.Graph()) && sameActivations(center.Graph(), minus.Graph())
	return
}

// sameActivations compares the ReLU activations of two graphs built from the same Program.
// Nodes are created in the same order, so they can be matched by NodeId.
func sameActivations(g0, g1 *graph.Graph) bool {
	for node := range g0.Nodes() {
		if node.Type() != graph.NodeTypeReLU {
			continue
		}
		input0 := node.Inputs()[0].Value()
		input1 := g1.NodeById(node.Id()).Inputs()[0].Value()
		if (input0 > 0) != (input1 > 0) {
			return false
		}
	}
	return true
}

// GradientCheck holds the result of comparing the gradients computed by the backward pass with the
// numerical estimates, for one Program and one set of leaf values.
type GradientCheck struct {
	Backward, Numerical []float64

	// Skipped leaves whose numerical estimate was not reliable (a ReLU kink was crossed).
	Skipped []bool

	// Mismatches lists the leaves whose gradients didn't match.
	Mismatches []int
}

// CompareGradients computes the gradients of the program at values with graph.Backward and with
// NumericalGradient, and compares them with scalar.EqualWithinAbsOrRel using tol for both absolute
// and relative tolerance.
func CompareGradients(p *Program, values []float64, eps, tol float64) *GradientCheck {
	leaves, output := p.BuildWithValues(values)
	check := &GradientCheck{
		Backward:  graph.Gradient(output, leaves...),
		Numerical: make([]float64, len(values)),
		Skipped:   make([]bool, len(values)),
	}
	for ii := range values {
		numerical, reliable := NumericalGradient(p, values, ii, eps)
		check.Numerical[ii] = numerical
		if !reliable {
			check.Skipped[ii] = true
			continue
		}
		if !scalar.EqualWithinAbsOrRel(check.Backward[ii], numerical, tol, tol) {
			check.Mismatches = append(check.Mismatches, ii)
		}
	}
	return check
}

// CheckGradients is the testing version of CompareGradients: it fails the test if any of the gradients
// doesn't match its numerical estimate. It returns the number of leaves checked (not skipped).
func CheckGradients(t *testing.T, p *Program, values []float64, eps, tol float64) (numChecked int) {
	check := CompareGradients(p, values, eps, tol)
	for ii := range values {
		if check.Skipped[ii] {
			continue
		}
		numChecked++
		require.Truef(t, scalar.EqualWithinAbsOrRel(check.Backward[ii], check.Numerical[ii], tol, tol),
			"gradient of leaf #%d: backward=%g, numerical=%g, values=%v\n%s",
			ii, check.Backward[ii], check.Numerical[ii], values, p)
	}
	return numChecked
}

// RandomValues returns n values uniformly drawn from [-scale, scale).
func RandomValues(rng *rand.Rand, n int, scale float64) []float64 {
	values := make([]float64, n)
	for ii := range values {
		values[ii] = (2*rng.Float64() - 1) * scale
	}
	return values
}
