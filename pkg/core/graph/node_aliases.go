// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
)

// AliasScopeSeparator is the string used to join the individual alias scope parts as well as
// the alias itself. So if the scope is currently ["a", "b"] and an alias "output" is created,
// it will be renamed "/a/b/output".
const AliasScopeSeparator = "/"

// PushAliasScope pushes another scope to the current alias scope for new aliases.
//
// E.g.: an expression built by a function called twice can push a different scope on each call,
// so the alias "output" can be given to both results.
//
// Each call to Graph.PushAliasScope should be matched by a call to Graph.PopAliasScope, usually using defer.
func (g *Graph) PushAliasScope(scope string) {
	g.aliasScope = append(g.aliasScope, scope)
}

// PopAliasScope removes the scope previously pushed with PushAliasScope.
//
// It panics if there are no scopes pushed.
func (g *Graph) PopAliasScope() {
	if len(g.aliasScope) == 0 {
		exceptions.Panicf("no scopes pushed when calling Graph.PopAliasScope")
	}
	g.aliasScope = g.aliasScope[:len(g.aliasScope)-1]
}

// WithAlias sets an alias in the Graph for the node.
// It allows it to be retrieved with Graph.GetNodeByAlias.
//
// The alias is prefixed with the Graph current "alias scope", see Graph.PushAliasScope, except
// if it starts with AliasScopeSeparator, in which case it is taken as an absolute path.
//
// It returns the Node itself, to allow cascading method calling.
//
// It panics if the exact same alias already exists, or if the node already has an alias.
func (n *Node) WithAlias(alias string) *Node {
	n.AssertValid()
	if n.alias != "" {
		exceptions.Panicf("node #%d already has alias %q, cannot set it to %q", n.id, n.alias, alias)
	}
	n.graph.insertNodeAlias(n, alias)
	return n
}

// GetAlias returns the alias (with the absolute path) of the current node, if one was registered
// with Node.WithAlias, otherwise returns "".
func (n *Node) GetAlias() string {
	return n.alias
}

// absoluteAlias returns an alias with an absolute path, by prepending the current scope.
func (g *Graph) absoluteAlias(alias string) string {
	if strings.HasPrefix(alias, AliasScopeSeparator) {
		return alias
	}
	if len(g.aliasScope) == 0 {
		return fmt.Sprintf("%s%s", AliasScopeSeparator, alias)
	}
	return AliasScopeSeparator + strings.Join(append(slices.Clone(g.aliasScope), alias), AliasScopeSeparator)
}

func (g *Graph) insertNodeAlias(n *Node, alias string) {
	if alias == "" {
		exceptions.Panicf("empty alias given to Node.WithAlias for node #%d", n.id)
	}
	alias = g.absoluteAlias(alias)
	if _, found := g.aliasToNode[alias]; found {
		exceptions.Panicf("alias already exists in Node.WithAlias(%q) -- they must be unique within the scope they are defined",
			alias)
	}
	n.alias = alias
	g.aliasToNode[alias] = n
}

// GetNodeByAlias returns a node with the given alias or nil if it didn't find it.
//
// Relative aliases (not starting with AliasScopeSeparator) are searched within the current scope.
func (g *Graph) GetNodeByAlias(alias string) *Node {
	return g.aliasToNode[g.absoluteAlias(alias)]
}

// IterAliasedNodes provides an iterator over all aliased nodes, sorted by alias.
// It yields pairs (alias, node).
func (g *Graph) IterAliasedNodes() iter.Seq2[string, *Node] {
	aliases := make([]string, 0, len(g.aliasToNode))
	for alias := range g.aliasToNode {
		aliases = append(aliases, alias)
	}
	slices.Sort(aliases)
	return func(yield func(string, *Node) bool) {
		for _, alias := range aliases {
			if !yield(alias, g.aliasToNode[alias]) {
				return
			}
		}
	}
}
