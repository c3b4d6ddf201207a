package script

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/document"
	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/multierr"
)

// Document returns the persisted form of the script. Hidden pins are left
// out, defaults are only recorded where they differ from the zero value, and
// object values are never written.
func (s *Script) Document() *document.Document {
	doc := &document.Document{}
	for _, name := range s.vars.order {
		v := s.vars.vars[name]
		dv := &document.Variable{Name: v.Name, Type: v.Type.Name}
		if v.Type.IsPrimitive() {
			dv.Value = v.Value
		}
		doc.Variables = append(doc.Variables, dv)
	}

	byID := make(map[NodeID]*document.Node)
	nodes := s.Nodes()
	for _, n := range nodes {
		dn := &document.Node{
			Name:     n.Name,
			Type:     n.Kind.String(),
			Position: n.Position,
			Fields:   n.Fields(),
		}
		for _, p := range n.DataInputs() {
			if p.hasDefault && p.Type.IsPrimitive() && (p.required || !p.def.RawEquals(typesys.Zero(p.Type))) {
				dn.Defaults = append(dn.Defaults, &document.Default{Pin: p.Name, Type: p.Type.Name, Value: p.def})
			}
		}
		byID[n.ID] = dn
		doc.Nodes = append(doc.Nodes, dn)
	}

	// Connections are stored once, on the node owning the input end.
	for _, n := range nodes {
		for _, p := range n.Inputs() {
			owner := byID[n.ID]
			if p.SerialOwner != NoNode {
				if o, ok := byID[p.SerialOwner]; ok {
					owner = o
				}
			}
			for _, link := range p.links {
				peer := s.nodes[link.Node]
				owner.Connections = append(owner.Connections, &document.Connection{
					In:  document.Endpoint{Node: n.Name, Pin: p.Name},
					Out: document.Endpoint{Node: peer.Name, Pin: peer.pins[link.Pin].Name},
				})
			}
		}
	}
	return doc
}

// Save writes the script to path as HCL.
func (s *Script) Save(path string) error {
	if err := s.Document().WriteFile(path); err != nil {
		return err
	}
	s.path = path
	return nil
}

// Load replaces the script with the document at path and compiles it.
func (s *Script) Load(ctx context.Context, path string) error {
	doc, err := document.Load(path)
	if err != nil {
		return err
	}
	if err := s.LoadDocument(ctx, doc); err != nil {
		return fmt.Errorf("failed to load script %s: %w", path, err)
	}
	s.path = path
	return nil
}

// LoadDocument replaces the script with doc and compiles it. Structural
// problems such as unknown kinds, names or pins leave the script untouched.
// A compile failure keeps the loaded graph but leaves it non-executable.
func (s *Script) LoadDocument(ctx context.Context, doc *document.Document) error {
	if s.running > 0 {
		return ErrBusy
	}
	next, err := s.build(doc)
	if err != nil {
		return err
	}
	s.graph = next.graph
	if err := s.compile(ctx); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Script document loaded.", "nodes", len(s.names), "variables", s.vars.Len())
	return nil
}

// build constructs a fresh, uncompiled script from doc, sharing the
// receiver's resolver and options.
func (s *Script) build(doc *document.Document) (*Script, error) {
	next := &Script{resolver: s.resolver, opts: s.opts, graph: newGraph()}

	var errs error
	for _, dv := range doc.Variables {
		t, ok := s.resolver.Type(dv.Type)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("variable %q: unknown type %q", dv.Name, dv.Type))
			continue
		}
		value, err := initialValue(s.resolver, t, dv.Value)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("variable %q: %w", dv.Name, err))
			continue
		}
		if err := next.vars.Declare(dv.Name, t, value); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}

	for _, dn := range doc.Nodes {
		k, ok := ParseKind(dn.Type)
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("node %q: %w: %q", dn.Name, ErrUnknownKind, dn.Type))
			continue
		}
		n, err := next.addNode(k, dn.Name, dn.Fields)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		n.Position = dn.Position
		for _, d := range dn.Defaults {
			p, ok := n.Pin(d.Pin)
			if !ok || !p.IsData() || !p.IsInput() || p.Hidden {
				errs = multierr.Append(errs, &CompileError{Node: n.Name, Pin: d.Pin, Msg: "default given for a pin that is not a data input"})
				continue
			}
			if d.Type != "" && d.Type != p.Type.Name {
				errs = multierr.Append(errs, &CompileError{
					Node: n.Name,
					Pin:  d.Pin,
					Msg:  fmt.Sprintf("default has type %s, pin expects %s", d.Type, p.Type.Name),
				})
				continue
			}
			if !d.Value.IsNull() {
				p.setDefault(d.Value)
			}
		}
	}
	if errs != nil {
		return nil, errs
	}

	for _, dn := range doc.Nodes {
		holder := next.NodeByName(dn.Name)
		for _, c := range dn.Connections {
			in, inErr := next.endpoint(c.In)
			out, outErr := next.endpoint(c.Out)
			if err := multierr.Combine(inErr, outErr); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if !next.Connect(in, out) {
				errs = multierr.Append(errs, &CompileError{
					Node: c.In.Node,
					Pin:  c.In.Pin,
					Msg:  fmt.Sprintf("cannot connect to %s.%s", c.Out.Node, c.Out.Pin),
				})
				continue
			}
			// A connection stored away from its input's node was redirected
			// there on save.
			if !next.Pin(in).IsInput() {
				in = out
			}
			if in.Node != holder.ID {
				next.Pin(in).SerialOwner = holder.ID
			}
		}
	}
	if errs != nil {
		return nil, errs
	}
	return next, nil
}

func (s *Script) endpoint(e document.Endpoint) (PinRef, error) {
	n := s.NodeByName(e.Node)
	if n == nil {
		return PinRef{}, fmt.Errorf("connection to unknown node %q", e.Node)
	}
	ref, ok := n.Ref(e.Pin)
	if !ok {
		return PinRef{}, &CompileError{Node: e.Node, Pin: e.Pin, Msg: "no such pin"}
	}
	return ref, nil
}

// initialValue picks the starting value of a declared variable. Pointer
// flavoured object variables start null; value flavoured ones get a fresh
// instance.
func initialValue(r typesys.Resolver, t *typesys.Type, v cty.Value) (cty.Value, error) {
	if !v.IsNull() {
		return v, nil
	}
	if t.IsObject() && !t.Pointer {
		return r.New(t)
	}
	return typesys.Zero(t), nil
}

// PendingReload is a parsed and compiled replacement for a live script,
// waiting to be committed.
type PendingReload struct {
	script *Script
	next   graph
	path   string
}

// PrepareReload parses and compiles the document at path without touching
// the live script.
func (s *Script) PrepareReload(ctx context.Context, path string) (*PendingReload, error) {
	doc, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	next, err := s.build(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to reload script %s: %w", path, err)
	}
	if err := next.compile(ctx); err != nil {
		return nil, fmt.Errorf("failed to reload script %s: %w", path, err)
	}
	return &PendingReload{script: s, next: next.graph, path: path}, nil
}

// Commit swaps the prepared graph into the script. Callers keep their
// *Script handle; node handles from before the reload are invalid.
func (r *PendingReload) Commit() error {
	if r.script.running > 0 {
		return ErrBusy
	}
	r.script.graph = r.next
	r.script.path = r.path
	return nil
}

// Reload loads the script again from the path it was last loaded from.
func (s *Script) Reload(ctx context.Context) error {
	if s.path == "" {
		return fmt.Errorf("script has no path to reload from")
	}
	if s.running > 0 {
		return ErrBusy
	}
	pending, err := s.PrepareReload(ctx, s.path)
	if err != nil {
		return err
	}
	if err := pending.Commit(); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("Script reloaded.", "path", s.path, "nodes", len(s.names))
	return nil
}
