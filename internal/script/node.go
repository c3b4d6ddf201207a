package script

import (
	"maps"
	"slices"

	"github.com/specialistvlad/gridscript/internal/document"
	"github.com/specialistvlad/gridscript/internal/typesys"
)

// Position is the editor placement of a node. It is opaque to execution.
type Position = document.Position

// Node owns a set of pins and the kind-specific binding that drives its
// behaviour.
type Node struct {
	ID       NodeID
	Kind     Kind
	Name     string
	Position Position

	pins   []*Pin
	byName map[string]int

	// fields holds the kind-specific binding names, e.g. "class" and
	// "function" for a CallFunction node.
	fields  map[string]string
	binding binding

	compiled      []NodeID
	compiledValid bool
}

// binding is the resolved reflection context of a node. Only the members
// relevant to the node's kind are set.
type binding struct {
	// event and payload bind an Event node.
	event   string
	payload *typesys.Type
	// path binds the variable nodes: the root variable name followed by the
	// field chain leading to the target.
	root  string
	chain []typesys.Field
	// field binds the member nodes.
	field typesys.Field
	// fn binds a CallFunction node.
	fn typesys.Function
}

// Field returns a kind-specific binding name such as "event" or "class".
func (n *Node) Field(name string) string {
	return n.fields[name]
}

// Fields returns a copy of every kind-specific binding name.
func (n *Node) Fields() map[string]string {
	return maps.Clone(n.fields)
}

// Pins returns every pin in template order, hidden ones included.
func (n *Node) Pins() []*Pin {
	return slices.Clone(n.pins)
}

// Pin looks up a pin by name.
func (n *Node) Pin(name string) (*Pin, bool) {
	i, ok := n.byName[name]
	if !ok {
		return nil, false
	}
	return n.pins[i], true
}

// Ref returns the handle of the named pin.
func (n *Node) Ref(name string) (PinRef, bool) {
	i, ok := n.byName[name]
	if !ok {
		return PinRef{}, false
	}
	return PinRef{Node: n.ID, Pin: i}, true
}

// mustRef is Ref for pin names that the node's own template guarantees.
func (n *Node) mustRef(name string) PinRef {
	ref, ok := n.Ref(name)
	if !ok {
		invariant("node %q has no pin %q", n.Name, name)
	}
	return ref
}

func (n *Node) filter(keep func(*Pin) bool) []*Pin {
	var pins []*Pin
	for _, p := range n.pins {
		if !p.Hidden && keep(p) {
			pins = append(pins, p)
		}
	}
	return pins
}

// Inputs lists the visible input pins.
func (n *Node) Inputs() []*Pin { return n.filter((*Pin).IsInput) }

// Outputs lists the visible output pins.
func (n *Node) Outputs() []*Pin { return n.filter((*Pin).IsOutput) }

// DataInputs lists the visible data-in pins.
func (n *Node) DataInputs() []*Pin {
	return n.filter(func(p *Pin) bool { return p.IsData() && p.IsInput() })
}

// DataOutputs lists the visible data-out pins.
func (n *Node) DataOutputs() []*Pin {
	return n.filter(func(p *Pin) bool { return p.IsData() && p.IsOutput() })
}

// ControlInputs lists the visible control-in pins.
func (n *Node) ControlInputs() []*Pin {
	return n.filter(func(p *Pin) bool { return p.IsControl() && p.IsInput() })
}

// ControlOutputs lists the visible control-out pins.
func (n *Node) ControlOutputs() []*Pin {
	return n.filter(func(p *Pin) bool { return p.IsControl() && p.IsOutput() })
}

// Pure reports whether the node has no control pins and is therefore
// evaluated on demand by its dependents.
func (n *Node) Pure() bool {
	switch n.Kind {
	case KindGetVariable, KindGetMember:
		return true
	case KindCallFunction:
		for _, p := range n.pins {
			if p.IsControl() {
				return false
			}
		}
		return true
	}
	return false
}

// CompiledOrder returns the evaluation order computed for this node, and
// whether it is valid.
func (n *Node) CompiledOrder() ([]NodeID, bool) {
	return slices.Clone(n.compiled), n.compiledValid
}

func (n *Node) addPin(p *Pin) {
	n.byName[p.Name] = len(n.pins)
	n.pins = append(n.pins, p)
}
