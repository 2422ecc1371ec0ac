// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph_test

import (
	"fmt"
	"testing"

	. "github.com/gomlx/scalargrad/pkg/core/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeAliases(t *testing.T) {
	g := NewGraph("Graph With Aliases")

	// Create some nodes
	n1 := Const(g, 0)
	n2 := Const(g, 1)

	// Test adding aliases
	n1.WithAlias("n1")
	n2.WithAlias("n2")

	assert.Equal(t, n1, g.GetNodeByAlias("n1"))
	assert.Equal(t, n2, g.GetNodeByAlias("n2"))
	assert.Equal(t, "/n1", n1.GetAlias())
	assert.Nil(t, g.GetNodeByAlias("n3"), "Node with alias 'n3' should not exist yet")

	// Test alias scopes
	g.PushAliasScope("scope1")
	n3 := Add(n1, n2).WithAlias("n3")
	assert.Equal(t, n3, g.GetNodeByAlias("/scope1/n3"))
	assert.Equal(t, n3, g.GetNodeByAlias("n3"))
	assert.Nil(t, g.GetNodeByAlias("n1"))         // "n1" doesn't exist in this scope.
	assert.True(t, n1 == g.GetNodeByAlias("/n1")) // But it still exists in the global scope.

	g.PushAliasScope("scope2")
	n4 := Mul(n3, n3).WithAlias("n4")
	assert.Equal(t, "/scope1/scope2/n4", n4.GetAlias())
	g.PopAliasScope()

	// Test IterAliasedNodes: sorted by alias.
	var aliases []string
	for alias, node := range g.IterAliasedNodes() {
		fmt.Printf("\tGraph[%q] = %s\n", alias, node)
		aliases = append(aliases, alias)
	}
	assert.Equal(t, []string{"/n1", "/n2", "/scope1/n3", "/scope1/scope2/n4"}, aliases)

	// Test popping alias scope
	g.PopAliasScope()
	assert.Equal(t, n3, g.GetNodeByAlias("/scope1/n3")) // "/scope1/n3" still exists.
	assert.True(t, g.GetNodeByAlias("n3") == nil)       // But it is now on a different context.
	require.Panics(t, func() { g.PopAliasScope() })

	// Duplicates and re-aliasing are not allowed.
	require.Panics(t, func() { Const(g, 2).WithAlias("n1") })
	require.Panics(t, func() { n1.WithAlias("other") })
	require.Panics(t, func() { Const(g, 2).WithAlias("") })
}
