// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package document

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// KindFields lists the node attributes that carry kind-specific bindings.
var KindFields = []string{"event", "payload", "variable", "class", "field", "function"}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "variable", LabelNames: []string{"name"}},
		{Type: "node", LabelNames: []string{"name"}},
	},
}

var variableSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		// `type` is required, but we check for its existence manually
		// to provide a better error message.
		{Name: "type"},
		{Name: "value"},
	},
}

var nodeSchema = func() *hcl.BodySchema {
	s := &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "type"},
			{Name: "position"},
		},
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "default", LabelNames: []string{"pin"}},
			{Type: "connection"},
		},
	}
	for _, name := range KindFields {
		s.Attributes = append(s.Attributes, hcl.AttributeSchema{Name: name})
	}
	return s
}()

// Load reads and parses the script document at path.
func Load(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}
	doc, diags := Parse(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, diags)
	}
	return doc, nil
}

// Parse decodes a document from HCL source. filename is only used in
// diagnostics.
func Parse(src []byte, filename string) (*Document, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	content, contentDiags := file.Body.Content(rootSchema)
	diags = append(diags, contentDiags...)
	if contentDiags.HasErrors() {
		return nil, diags
	}

	doc := &Document{}
	seenVars := make(map[string]struct{})
	seenNodes := make(map[string]struct{})
	for _, block := range content.Blocks {
		// The schema guarantees us one label.
		name := block.Labels[0]
		switch block.Type {
		case "variable":
			if _, exists := seenVars[name]; exists {
				diags = append(diags, duplicate("variable", name, block))
				continue
			}
			seenVars[name] = struct{}{}
			v, vDiags := parseVariable(block)
			diags = append(diags, vDiags...)
			if v != nil {
				doc.Variables = append(doc.Variables, v)
			}
		case "node":
			if _, exists := seenNodes[name]; exists {
				diags = append(diags, duplicate("node", name, block))
				continue
			}
			seenNodes[name] = struct{}{}
			n, nDiags := parseNode(block)
			diags = append(diags, nDiags...)
			if n != nil {
				doc.Nodes = append(doc.Nodes, n)
			}
		}
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return doc, diags
}

func duplicate(kind, name string, block *hcl.Block) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("Duplicate %s definition", kind),
		Detail:   fmt.Sprintf("A %s named '%s' has already been defined.", kind, name),
		Subject:  &block.DefRange,
	}
}

// requireType decodes the mandatory `type` attribute of a block.
func requireType(block *hcl.Block, attrs hcl.Attributes) (string, hcl.Diagnostics) {
	attr, exists := attrs["type"]
	if !exists {
		missingItemRange := block.Body.MissingItemRange()
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Missing 'type' attribute",
			Detail:   fmt.Sprintf("The 'type' attribute is required for all %s blocks.", block.Type),
			Subject:  &missingItemRange,
		}}
	}
	var typeName string
	diags := gohcl.DecodeExpression(attr.Expr, nil, &typeName)
	return typeName, diags
}

// literal evaluates an optional attribute with a nil eval context, because
// persisted values must be literals. A missing attribute yields cty.NilVal.
func literal(attrs hcl.Attributes, name string) (cty.Value, hcl.Diagnostics) {
	attr, exists := attrs[name]
	if !exists {
		return cty.NilVal, nil
	}
	return attr.Expr.Value(nil)
}

func parseVariable(block *hcl.Block) (*Variable, hcl.Diagnostics) {
	content, diags := block.Body.Content(variableSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	typeName, typeDiags := requireType(block, content.Attributes)
	diags = append(diags, typeDiags...)
	value, valueDiags := literal(content.Attributes, "value")
	diags = append(diags, valueDiags...)
	if diags.HasErrors() {
		return nil, diags
	}
	return &Variable{Name: block.Labels[0], Type: typeName, Value: value}, diags
}

func parseNode(block *hcl.Block) (*Node, hcl.Diagnostics) {
	content, diags := block.Body.Content(nodeSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	n := &Node{Name: block.Labels[0], Fields: make(map[string]string)}
	kind, typeDiags := requireType(block, content.Attributes)
	diags = append(diags, typeDiags...)
	n.Type = kind

	if attr, exists := content.Attributes["position"]; exists {
		var pos []float64
		posDiags := gohcl.DecodeExpression(attr.Expr, nil, &pos)
		diags = append(diags, posDiags...)
		switch {
		case posDiags.HasErrors():
		case len(pos) != 2:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid position",
				Detail:   fmt.Sprintf("The 'position' attribute must have exactly two elements, got %d.", len(pos)),
				Subject:  attr.Expr.Range().Ptr(),
			})
		default:
			n.Position = Position{X: pos[0], Y: pos[1]}
		}
	}

	for _, name := range KindFields {
		attr, exists := content.Attributes[name]
		if !exists {
			continue
		}
		var value string
		fieldDiags := gohcl.DecodeExpression(attr.Expr, nil, &value)
		diags = append(diags, fieldDiags...)
		n.Fields[name] = value
	}

	seenDefaults := make(map[string]struct{})
	for _, b := range content.Blocks.OfType("default") {
		pin := b.Labels[0]
		if _, exists := seenDefaults[pin]; exists {
			diags = append(diags, duplicate("default", pin, b))
			continue
		}
		seenDefaults[pin] = struct{}{}
		d, dDiags := parseDefault(b)
		diags = append(diags, dDiags...)
		if d != nil {
			n.Defaults = append(n.Defaults, d)
		}
	}

	for _, b := range content.Blocks.OfType("connection") {
		var conn Connection
		connDiags := gohcl.DecodeBody(b.Body, nil, &conn)
		diags = append(diags, connDiags...)
		if connDiags.HasErrors() {
			continue
		}
		n.Connections = append(n.Connections, &conn)
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return n, diags
}

func parseDefault(block *hcl.Block) (*Default, hcl.Diagnostics) {
	content, diags := block.Body.Content(variableSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	typeName, typeDiags := requireType(block, content.Attributes)
	diags = append(diags, typeDiags...)
	value, valueDiags := literal(content.Attributes, "value")
	diags = append(diags, valueDiags...)
	if diags.HasErrors() {
		return nil, diags
	}
	return &Default{Pin: block.Labels[0], Type: typeName, Value: value}, diags
}
