package script

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// Option configures a Script.
type Option func(*options)

type options struct {
	maxSteps      int
	autoRecompile bool
}

// WithMaxSteps bounds the number of control-flow activations a single
// Execute call may perform. Zero, the default, means unlimited.
func WithMaxSteps(n int) Option {
	return func(o *options) { o.maxSteps = n }
}

// WithAutoRecompile makes the executor recompile every control-flow node
// right before it runs, so structural edits made after Compile take effect
// immediately at the cost of speed.
func WithAutoRecompile(enabled bool) Option {
	return func(o *options) { o.autoRecompile = enabled }
}

// graph is the swappable part of a Script: everything a reload replaces.
type graph struct {
	nodes    []*Node
	names    map[string]NodeID
	events   map[string]NodeID
	vars     *Variables
	compiled bool
}

func newGraph() graph {
	return graph{names: make(map[string]NodeID), vars: newVariables()}
}

// Script owns a graph of nodes, its variables and its compilation state.
type Script struct {
	resolver typesys.Resolver
	opts     options
	path     string
	// running counts the Execute calls on the stack, nested ones included.
	running int

	graph
}

// New creates an empty script resolving names through r.
func New(r typesys.Resolver, opts ...Option) *Script {
	s := &Script{resolver: r, graph: newGraph()}
	for _, opt := range opts {
		opt(&s.opts)
	}
	return s
}

// Resolver returns the registry the script resolves names against.
func (s *Script) Resolver() typesys.Resolver {
	return s.resolver
}

// Path returns the file the script was last loaded from or saved to.
func (s *Script) Path() string {
	return s.path
}

// Variables returns the script's variable registry.
func (s *Script) Variables() *Variables {
	return s.vars
}

// SetObject stores a host object into an object-typed variable.
func (s *Script) SetObject(name string, obj any) error {
	v, _, err := s.resolver.Wrap(obj)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	return s.vars.Set(name, v)
}

// Compiled reports whether the last Compile succeeded and no node has been
// removed since.
func (s *Script) Compiled() bool {
	return s.compiled
}

// Node returns the node with the given handle, or nil if the slot is empty.
func (s *Script) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// NodeByName looks a node up by its unique name.
func (s *Script) NodeByName(name string) *Node {
	id, ok := s.names[name]
	if !ok {
		return nil
	}
	return s.nodes[id]
}

// Nodes returns the live nodes in creation order.
func (s *Script) Nodes() []*Node {
	nodes := make([]*Node, 0, len(s.names))
	for _, n := range s.nodes {
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// Events returns the event names of the compiled script, sorted.
func (s *Script) Events() []string {
	return slices.Sorted(maps.Keys(s.events))
}

// Pin resolves a pin handle, or returns nil.
func (s *Script) Pin(ref PinRef) *Pin {
	n := s.Node(ref.Node)
	if n == nil || ref.Pin < 0 || ref.Pin >= len(n.pins) {
		return nil
	}
	return n.pins[ref.Pin]
}

func (s *Script) mustPin(ref PinRef) *Pin {
	p := s.Pin(ref)
	if p == nil {
		invariant("no pin at %s", ref)
	}
	return p
}

// NewNode creates a node of the named kind, bound to the given
// kind-specific fields, and gives it a unique name of the form
// "<Kind><ordinal>".
func (s *Script) NewNode(kind string, fields map[string]string) (*Node, error) {
	k, ok := ParseKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return s.addNode(k, s.uniqueName(k), fields)
}

// uniqueName returns the first free "<Kind><n>" name, counting from 1.
func (s *Script) uniqueName(k Kind) string {
	for i := 1; ; i++ {
		name := k.String() + strconv.Itoa(i)
		if _, taken := s.names[name]; !taken {
			return name
		}
	}
}

func (s *Script) addNode(k Kind, name string, fields map[string]string) (*Node, error) {
	if _, taken := s.names[name]; taken {
		return nil, &CompileError{Node: name, Msg: "duplicate node name"}
	}
	fields = maps.Clone(fields)
	if fields == nil {
		fields = make(map[string]string)
	}
	b, pins, err := s.bind(k, name, fields)
	if err != nil {
		return nil, err
	}

	n := &Node{
		ID:      NodeID(len(s.nodes)),
		Kind:    k,
		Name:    name,
		byName:  make(map[string]int),
		fields:  fields,
		binding: b,
	}
	for _, p := range pins {
		n.addPin(p)
	}
	s.nodes = append(s.nodes, n)
	s.names[name] = n.ID
	return n, nil
}

// RemoveNode disconnects every pin of the node and frees its slot. The
// script must be compiled again before it can execute.
func (s *Script) RemoveNode(id NodeID) {
	n := s.Node(id)
	if n == nil {
		return
	}
	for i, p := range n.pins {
		self := PinRef{Node: id, Pin: i}
		for _, peer := range p.Links() {
			s.Disconnect(self, peer)
		}
	}
	delete(s.names, n.Name)
	s.nodes[id] = nil
	s.invalidate()
}

// invalidate drops every compiled order and the event index.
func (s *Script) invalidate() {
	s.compiled = false
	s.events = nil
	for _, n := range s.nodes {
		if n != nil {
			n.compiled, n.compiledValid = nil, false
		}
	}
}

// Connect links two pins, in either argument order. It returns false,
// leaving the graph untouched, when the pins do not exist, are hidden, share
// a direction, differ in flow, or carry incompatible data types. A data-in
// or control-out pin that is already connected is disconnected first.
func (s *Script) Connect(a, b PinRef) bool {
	pa, pb := s.Pin(a), s.Pin(b)
	if pa == nil || pb == nil || a == b {
		return false
	}
	if pa.Hidden || pb.Hidden || pa.Direction == pb.Direction || pa.Flow != pb.Flow {
		return false
	}

	outRef, inRef := a, b
	if pa.IsInput() {
		outRef, inRef = b, a
	}
	out, in := s.Pin(outRef), s.Pin(inRef)
	if out.IsData() && !typesys.Compatible(out.Type, in.Type) {
		return false
	}
	if out.linked(inRef) {
		return true
	}

	if in.IsData() && len(in.links) > 0 {
		s.Disconnect(inRef, in.links[0])
	}
	if out.IsControl() && len(out.links) > 0 {
		s.Disconnect(outRef, out.links[0])
	}
	out.links = append(out.links, inRef)
	in.links = append(in.links, outRef)
	return true
}

// Disconnect removes the link between two pins, if any.
func (s *Script) Disconnect(a, b PinRef) {
	pa, pb := s.Pin(a), s.Pin(b)
	if pa == nil || pb == nil {
		return
	}
	pa.unlink(b)
	pb.unlink(a)
}

// Value reads a data pin. A data-in pin yields the value of the data-out it
// is connected to, coerced to its own type, or its default when
// unconnected. Reading a control pin panics.
func (s *Script) Value(ref PinRef) cty.Value {
	p := s.mustPin(ref)
	if p.IsControl() {
		invariant("reading control pin %q as data", p.Name)
	}
	if p.IsOutput() {
		return p.value
	}
	if len(p.links) == 0 {
		if p.hasDefault {
			return p.def
		}
		return typesys.Zero(p.Type)
	}
	return typesys.Convert(s.mustPin(p.links[0]).value, p.Type)
}

// SetValue stores v, coerced to the pin type, on a data-out pin. Any other
// pin role panics.
func (s *Script) SetValue(ref PinRef, v cty.Value) {
	p := s.mustPin(ref)
	if !p.IsData() || !p.IsOutput() {
		invariant("setting value on %s pin %q", p.Role(), p.Name)
	}
	p.value = typesys.Convert(v, p.Type)
}

// SetDefault stores the default value of a data-in pin. Any other pin role
// panics.
func (s *Script) SetDefault(ref PinRef, v cty.Value) {
	p := s.mustPin(ref)
	if !p.IsData() || !p.IsInput() {
		invariant("setting default on %s pin %q", p.Role(), p.Name)
	}
	p.setDefault(v)
}

// target returns the control-in pin a control-out pin leads to.
func (s *Script) target(ref PinRef) (PinRef, bool) {
	p := s.mustPin(ref)
	if len(p.links) == 0 {
		return PinRef{}, false
	}
	return p.links[0], true
}
