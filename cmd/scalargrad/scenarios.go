// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/gomlx/scalargrad/pkg/core/graph/nanlogger"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// config of a scalargrad run.
type config struct {
	out, progressOut  io.Writer
	trials            int
	maxOps, maxLeaves int
	seed              uint64
	nanLogger         bool
}

// scenarioFn builds a graph, and returns its root: the node from which the backward pass starts.
type scenarioFn func(g *graph.Graph) (root *graph.Node)

// graphScenarios are the scenarios that build one fixed graph.
var graphScenarios = map[string]scenarioFn{
	"demo":     demoScenario,
	"fanout":   fanOutScenario,
	"square":   squareScenario,
	"relu":     reluScenario,
	"overflow": overflowScenario,
}

const gradCheckScenario = "gradcheck"

// scenarioNames returns all scenario names, sorted, excluding "all".
func scenarioNames() []string {
	names := make([]string, 0, len(graphScenarios)+1)
	for name := range graphScenarios {
		names = append(names, name)
	}
	names = append(names, gradCheckScenario)
	slices.Sort(names)
	return names
}

func scenarioNamesList() string {
	quoted := make([]string, 0, len(graphScenarios)+1)
	for _, name := range scenarioNames() {
		quoted = append(quoted, strconv.Quote(name))
	}
	return strings.Join(quoted, ", ")
}

// parseScenarios parses a comma-separated list of scenario names, expanding "all".
func parseScenarios(list string) ([]string, error) {
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			continue
		case name == "all":
			names = append(names, scenarioNames()...)
		case name == gradCheckScenario:
			names = append(names, name)
		default:
			if _, found := graphScenarios[name]; !found {
				return nil, errors.Errorf("unknown scenario %q, valid values are %s or \"all\"", name, scenarioNamesList())
			}
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.New("no scenario given")
	}
	return names, nil
}

// runScenario runs the named scenario, printing its report to cfg.out.
//
// Panics raised while building the graph or during the backward pass are converted to errors.
func runScenario(cfg *config, name string) error {
	klog.V(1).Infof("running scenario %q", name)
	if name == gradCheckScenario {
		return runGradCheck(cfg)
	}
	fn, found := graphScenarios[name]
	if !found {
		return errors.Errorf("unknown scenario %q", name)
	}
	var g *graph.Graph
	var root *graph.Node
	err := exceptions.TryCatch[error](func() {
		g = graph.NewGraph(name)
		var l *nanlogger.NanLogger
		if cfg.nanLogger {
			l = nanlogger.New().WithHandler(nanReporter(cfg.out))
			l.Attach(g)
		}
		root = fn(g)
		l.TraceAll(g)
		graph.Backward(root)
	})
	if err != nil {
		return errors.WithMessagef(err, "scenario %q", name)
	}
	_, err = fmt.Fprintln(cfg.out, titleStyle.Render(fmt.Sprintf("Scenario %q: root %s", name, describe(root))))
	if err != nil {
		return errors.Wrapf(err, "writing report of scenario %q", name)
	}
	_, err = fmt.Fprintln(cfg.out, nodesTable(g).Render())
	if err != nil {
		return errors.Wrapf(err, "writing report of scenario %q", name)
	}
	return nil
}

// nanReporter returns a nanlogger.HandlerFn that prints the offending node to out, and then logs the full
// trace with nanlogger.DefaultHandler.
func nanReporter(out io.Writer) nanlogger.HandlerFn {
	return func(nanType float64, info *nanlogger.Trace) {
		where := "value"
		if info.InGradient {
			where = "gradient"
		}
		_, _ = fmt.Fprintf(out, "NanLogger: %s in the %s of node %s\n", formatFloat(nanType), where, describe(info.Node))
		nanlogger.DefaultHandler(nanType, info)
	}
}

// describe returns the node alias if it has one, or its id otherwise.
func describe(node *graph.Node) string {
	if alias := node.GetAlias(); alias != "" {
		return alias
	}
	return fmt.Sprintf("#%d", node.Id())
}

// formatFloat formats with the shortest representation that round-trips.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// demoScenario builds:
//
//	d = a + b*c
//	e = 7 * 2
//	f = e + d
//	g = relu(f)
func demoScenario(g *graph.Graph) *graph.Node {
	a := graph.Const(g, 2).WithAlias("a")
	b := graph.Const(g, 3).WithAlias("b")
	c := graph.Const(g, 10).WithAlias("c")
	d := graph.Add(a, graph.Mul(b, c)).WithAlias("d")
	e := graph.Mul(graph.Const(g, 7), graph.Const(g, 2)).WithAlias("e")
	f := graph.Add(e, d).WithAlias("f")
	return graph.ReLU(f).WithAlias("g")
}

// fanOutScenario uses x twice: y = x + x.
func fanOutScenario(g *graph.Graph) *graph.Node {
	x := graph.Const(g, 3).WithAlias("x")
	return graph.Add(x, x).WithAlias("y")
}

// squareScenario: y = x * x.
func squareScenario(g *graph.Graph) *graph.Node {
	x := graph.Const(g, 3).WithAlias("x")
	return graph.Mul(x, x).WithAlias("y")
}

// reluScenario sums ReLU over an inactive, a boundary and an active input, each in its own alias scope.
func reluScenario(g *graph.Graph) *graph.Node {
	outputs := make([]*graph.Node, 0, 3)
	for _, v := range []float64{-5, 0, 5} {
		g.PushAliasScope(fmt.Sprintf("x=%g", v))
		x := graph.Const(g, v).WithAlias("x")
		outputs = append(outputs, graph.ReLU(x).WithAlias("relu"))
		g.PopAliasScope()
	}
	return graph.Sum(outputs...).WithAlias("sum")
}

// overflowScenario squares a value large enough for the result to overflow to +Inf.
// Run it with -nanlogger to have the overflow reported.
func overflowScenario(g *graph.Graph) *graph.Node {
	x := graph.Const(g, 1e200).WithAlias("x")
	return graph.Square(x).WithAlias("y")
}

// nodesTable lists all nodes of the graph: id, alias, op (with inputs), value and gradient.
func nodesTable(g *graph.Graph) *lgtable.Table {
	table := newPlainTable()
	table.Headers("#", "Alias", "Op", "Value", "Grad")
	for node := range g.Nodes() {
		op := node.Type().String()
		if node.Type() == graph.NodeTypeConstant {
			op = fmt.Sprintf("Constant(%s)", formatFloat(node.Value()))
		} else {
			inputs := make([]string, node.NumInputs())
			for ii, input := range node.Inputs() {
				inputs[ii] = describe(input)
			}
			op = fmt.Sprintf("%s(%s)", op, strings.Join(inputs, ", "))
		}
		table.Row(strconv.Itoa(int(node.Id())), node.GetAlias(), op, formatFloat(node.Value()), formatFloat(node.Grad()))
	}
	return table
}
