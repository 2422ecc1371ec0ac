// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package nanlogger monitors selected `graph.Node` objects for `NaN` ("not-a-number") or `Inf` (infinity)
// values and gradients.
//
// It hooks to the backward passes of a graph.Graph (see graph.Graph.OnBackward): at the end of each
// backward pass, if a monitored node holds a `NaN` or `Inf` value or gradient, the first such node
// (often `NaN` values spread through the graph) is reported back.
//
// The report includes the stack trace of where the node was traced and an optional user set scoped context.
//
// Example:
//
//	l := nanlogger.New()
//	g := graph.NewGraph("model")
//	l.Attach(g)
//	for ii, w := range weights {
//		l.PushScope(fmt.Sprintf("layer-%d", ii))
//		x = graph.ReLU(graph.Mul(x, w))
//		l.Trace(x)
//		l.PopScope()
//	}
//	graph.Backward(x) // Reports NaN/Inf in any of the traced nodes.
package nanlogger

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// NanLogger monitors traced nodes for NaN (and Inf) values and gradients.
// You manually select the nodes you want to monitor, and it saves the stack where it was called
// along with user provided scope information.
//
// See example in package documentation.
type NanLogger struct {
	handler HandlerFn

	traces map[graph.GraphId]map[graph.NodeId]*Trace

	currentScope []string
}

// Trace information of a node that is set to monitor.
// This is what is passed to the handler function when a `NaN` or `Inf` is found.
type Trace struct {
	// Node where the NaN or Inf was observed.
	Node *graph.Node

	// InGradient is true if the NaN or Inf was observed in the gradient of the node, false if in its value.
	InGradient bool

	// StackTrace of where the node was traced, stored as an error that can be printed.
	StackTrace error

	// Scope saved when the node was traced.
	Scope []string
}

// HandlerFn is the type of function to handle NaN traces.
// nanType is the offending value: NaN, +Inf or -Inf.
type HandlerFn func(nanType float64, info *Trace)

// New creates a NanLogger that can be used to debug where NaN happen in graphs.
// See NanLogger for details.
func New() *NanLogger {
	return &NanLogger{
		handler: DefaultHandler,
		traces:  make(map[graph.GraphId]map[graph.NodeId]*Trace),
	}
}

// WithHandler sets the function called when a `NaN` is observed. The default is DefaultHandler.
// It returns the NanLogger itself, for cascading configuration.
func (l *NanLogger) WithHandler(handler HandlerFn) *NanLogger {
	if l == nil {
		return nil
	}
	l.handler = handler
	return l
}

// Attach the NanLogger to g, so traced nodes are checked at the end of every backward pass.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) Attach(g *graph.Graph) {
	if l == nil {
		return
	}
	g.OnBackward(func(g *graph.Graph, _ *graph.Node, _ []*graph.Node) {
		l.Check(g)
	})
}

// Trace the given node: its value and gradient are monitored.
//
// A user-provided scope can be given. If none is given, then it uses the current NanLogger scope.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) Trace(node *graph.Node, scope ...string) {
	if l == nil {
		return
	}
	node.AssertValid()
	trace := &Trace{
		Node:       node,
		StackTrace: errors.Errorf("Stack-trace"),
	}
	if len(scope) == 0 {
		trace.Scope = slices.Clone(l.currentScope)
	} else {
		trace.Scope = slices.Clone(scope)
	}

	gId := node.Graph().GraphId()
	graphMap, found := l.traces[gId]
	if !found {
		graphMap = make(map[graph.NodeId]*Trace)
		l.traces[gId] = graphMap
	}
	graphMap[node.Id()] = trace
}

// TraceAll traces every node created so far in g. Nodes with an alias use it as their scope,
// the others use the current NanLogger scope.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) TraceAll(g *graph.Graph) {
	if l == nil {
		return
	}
	for node := range g.Nodes() {
		if alias := node.GetAlias(); alias != "" {
			l.Trace(node, alias)
		} else {
			l.Trace(node)
		}
	}
}

// PushScope to current scope stack.
// These values are added by default to any new Trace.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) PushScope(scope string) {
	if l == nil {
		return
	}
	l.currentScope = append(l.currentScope, scope)
}

// PopScope removes the last entry in the current scope stack.
//
// A nil NanLogger is valid, and it will simply be a no-op.
func (l *NanLogger) PopScope() {
	if l == nil {
		return
	}
	if len(l.currentScope) == 0 {
		klog.Warningf("NanLogger.PopScope() called on an already empty scope stack!?")
		return
	}
	l.currentScope = l.currentScope[:len(l.currentScope)-1]
}

// Check the traced nodes of g, and calls the handler for the first one (lowest NodeId) with a NaN or Inf, in its
// value or gradient. It returns whether a NaN or Inf was found.
//
// It's called automatically at the end of backward passes if the NanLogger is attached to g, but it can also be
// called directly to check forward values only.
func (l *NanLogger) Check(g *graph.Graph) bool {
	if l == nil {
		return false
	}
	graphMap := l.traces[g.GraphId()]
	if len(graphMap) == 0 {
		return false
	}
	ids := make([]graph.NodeId, 0, len(graphMap))
	for id := range graphMap {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		trace := graphMap[id]
		if isNanOrInf(trace.Node.Value()) {
			trace.InGradient = false
			l.handler(trace.Node.Value(), trace)
			return true
		}
		if isNanOrInf(trace.Node.Grad()) {
			trace.InGradient = true
			l.handler(trace.Node.Grad(), trace)
			return true
		}
	}
	return false
}

func isNanOrInf(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// DefaultHandler when a `NaN` or `Inf` is observed: it logs all the information on the node as an error.
func DefaultHandler(nanType float64, info *Trace) {
	var scopeTxt string
	if len(info.Scope) > 0 {
		scopeTxt = fmt.Sprintf("Scope:\n\t%s\n", strings.Join(info.Scope, "\n\t"))
	}
	where := "value"
	if info.InGradient {
		where = "gradient"
	}
	klog.Errorf("NanLogger observed a %f in the %s of node %s:\n%sStack-trace of node:\n%+v\n",
		nanType, where, info.Node, scopeTxt, info.StackTrace)
}
