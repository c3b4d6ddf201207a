// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package document

import "github.com/zclconf/go-cty/cty"

// Document is the serializable form of a script.
type Document struct {
	// Variables are kept in declaration order.
	Variables []*Variable
	Nodes     []*Node
}

// Variable is a script-level variable with its initial value. Value is null
// for object-typed variables, which are never persisted.
type Variable struct {
	Name  string
	Type  string
	Value cty.Value
}

// Position is the editor placement of a node.
type Position struct {
	X float64
	Y float64
}

// Node is one node block.
type Node struct {
	// Name is the unique node name, taken from the block label.
	Name string

	// Type is the registered node kind, e.g. "Branch" or "CallFunction".
	Type string

	Position Position

	// Fields holds the kind-specific binding attributes such as "event",
	// "variable", "class" or "function".
	Fields map[string]string

	// Defaults are the persisted default values of data-in pins.
	Defaults []*Default

	// Connections are the links whose "in" end belongs to this node.
	Connections []*Connection
}

// Default is the persisted default value of one data-in pin.
type Default struct {
	Pin   string
	Type  string
	Value cty.Value
}

// Connection is a persisted link between an input pin and an output pin.
type Connection struct {
	In  Endpoint `hcl:"in,block"`
	Out Endpoint `hcl:"out,block"`
}

// Endpoint addresses a pin by node name and pin name.
type Endpoint struct {
	Node string `hcl:"node"`
	Pin  string `hcl:"pin"`
}

// Node returns the node with the given name, or nil.
func (d *Document) Node(name string) *Node {
	for _, n := range d.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// Variable returns the variable with the given name, or nil.
func (d *Document) Variable(name string) *Variable {
	for _, v := range d.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}
