// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

// NodeType identifies the operation performed by a Node, and with it the rule used to back-propagate
// gradients to its inputs (see gradientRules).
//
// It's used only for introspection and for dispatching the gradient rule: the set of node types is
// closed, and adding one requires adding its gradient rule.
type NodeType int

const (
	NodeTypeInvalid NodeType = iota
	NodeTypeConstant
	NodeTypeAdd
	NodeTypeMul
	NodeTypeReLU
)
