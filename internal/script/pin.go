package script

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// NodeID is a stable handle into a script's node arena.
type NodeID int

// NoNode marks an unset node handle.
const NoNode NodeID = -1

// PinRef addresses a pin by its owning node and its index in that node.
type PinRef struct {
	Node NodeID
	Pin  int
}

func (r PinRef) String() string {
	return fmt.Sprintf("%d:%d", r.Node, r.Pin)
}

// Direction tells inputs from outputs.
type Direction uint8

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "in"
	}
	return "out"
}

// Flow tells control-flow pins from data pins.
type Flow uint8

const (
	Control Flow = iota
	Data
)

func (f Flow) String() string {
	if f == Control {
		return "control"
	}
	return "data"
}

// Pin is a typed, directional connection point owned by a node.
type Pin struct {
	Name      string
	Direction Direction
	Flow      Flow
	// Type is nil for control pins.
	Type *typesys.Type
	// Hidden pins are internal re-entry markers. They are left out of the
	// role lists, cannot be connected and are never saved.
	Hidden bool
	// SerialOwner redirects persistence of this pin's connections to another
	// node, for pins re-exposed by a composite node. NoNode when unset.
	SerialOwner NodeID

	value      cty.Value
	def        cty.Value
	hasDefault bool
	// required inputs have no implicit default, so an explicit one is
	// always saved.
	required bool
	links    []PinRef
}

func newPin(name string, dir Direction, flow Flow, t *typesys.Type) *Pin {
	p := &Pin{Name: name, Direction: dir, Flow: flow, Type: t, SerialOwner: NoNode}
	if flow == Data && dir == Out {
		p.value = typesys.Zero(t)
	}
	return p
}

// IsControl reports whether p is a control-flow pin.
func (p *Pin) IsControl() bool { return p.Flow == Control }

// IsData reports whether p carries a value.
func (p *Pin) IsData() bool { return p.Flow == Data }

// IsInput reports whether p is an input.
func (p *Pin) IsInput() bool { return p.Direction == In }

// IsOutput reports whether p is an output.
func (p *Pin) IsOutput() bool { return p.Direction == Out }

// Role describes the pin for logs and errors, e.g. "data-in".
func (p *Pin) Role() string {
	return p.Flow.String() + "-" + p.Direction.String()
}

// Links returns the peers this pin is connected to, in connection order.
func (p *Pin) Links() []PinRef {
	return slices.Clone(p.links)
}

// Connected reports whether p has at least one link.
func (p *Pin) Connected() bool {
	return len(p.links) > 0
}

// Default returns the default value of a data-in pin.
func (p *Pin) Default() (cty.Value, bool) {
	return p.def, p.hasDefault
}

// setDefault stores v, coerced to the pin type, as the default.
func (p *Pin) setDefault(v cty.Value) {
	p.def = typesys.Convert(v, p.Type)
	p.hasDefault = true
}

func (p *Pin) linked(ref PinRef) bool {
	return slices.Contains(p.links, ref)
}

func (p *Pin) unlink(ref PinRef) {
	p.links = slices.DeleteFunc(p.links, func(r PinRef) bool { return r == ref })
}
