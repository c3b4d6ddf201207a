// Package script implements the node-graph engine: a Script owns typed nodes
// and pins, compiles the pure data dependencies of every control-flow node
// into an evaluation order, and interprets control flow with a stack machine
// when the host dispatches a named event.
//
// Nodes live in an arena indexed by NodeID and own their pins inline, so a
// pin is addressed by a PinRef (node, pin index). Removing a node clears its
// slot. Values travel as cty.Value and are typed through package typesys;
// class names, fields and functions resolve through a typesys.Resolver.
//
// A Script is not safe for concurrent use. Hosts that dispatch events from
// several goroutines must serialise access per script.
package script
