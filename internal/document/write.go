// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package document

import (
	"fmt"
	"os"
	"sort"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// Bytes renders the document as HCL. Variables keep their order; nodes are
// sorted by name so that saving an unchanged script produces identical
// output.
func (d *Document) Bytes() []byte {
	f := hclwrite.NewEmptyFile()
	root := f.Body()

	for _, v := range d.Variables {
		body := root.AppendNewBlock("variable", []string{v.Name}).Body()
		body.SetAttributeValue("type", cty.StringVal(v.Type))
		if writable(v.Value) {
			body.SetAttributeValue("value", v.Value)
		}
		root.AppendNewline()
	}

	nodes := make([]*Node, len(d.Nodes))
	copy(nodes, d.Nodes)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })

	for i, n := range nodes {
		if i > 0 {
			root.AppendNewline()
		}
		writeNode(root, n)
	}
	return f.Bytes()
}

// WriteFile saves the document to path.
func (d *Document) WriteFile(path string) error {
	if err := os.WriteFile(path, d.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write script %s: %w", path, err)
	}
	return nil
}

func writeNode(root *hclwrite.Body, n *Node) {
	body := root.AppendNewBlock("node", []string{n.Name}).Body()
	body.SetAttributeValue("type", cty.StringVal(n.Type))
	body.SetAttributeValue("position", cty.TupleVal([]cty.Value{
		cty.NumberFloatVal(n.Position.X),
		cty.NumberFloatVal(n.Position.Y),
	}))
	for _, name := range KindFields {
		if value, ok := n.Fields[name]; ok {
			body.SetAttributeValue(name, cty.StringVal(value))
		}
	}

	for _, d := range n.Defaults {
		body.AppendNewline()
		db := body.AppendNewBlock("default", []string{d.Pin}).Body()
		db.SetAttributeValue("type", cty.StringVal(d.Type))
		if writable(d.Value) {
			db.SetAttributeValue("value", d.Value)
		}
	}

	for _, c := range n.Connections {
		body.AppendNewline()
		cb := body.AppendNewBlock("connection", nil).Body()
		writeEndpoint(cb, "in", c.In)
		writeEndpoint(cb, "out", c.Out)
	}
}

func writeEndpoint(body *hclwrite.Body, name string, e Endpoint) {
	eb := body.AppendNewBlock(name, nil).Body()
	eb.SetAttributeValue("node", cty.StringVal(e.Node))
	eb.SetAttributeValue("pin", cty.StringVal(e.Pin))
}

// writable reports whether v can be rendered as an HCL literal. Null values
// and object handles are left out.
func writable(v cty.Value) bool {
	if v.IsNull() || !v.IsWhollyKnown() {
		return false
	}
	ty := v.Type()
	return ty.IsPrimitiveType()
}
