package script

import (
	"context"
	"slices"
	"strings"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/dag"
	"go.uber.org/multierr"
)

// CompileEntry computes the evaluation order of the node owning the entry
// pin: its pure data dependencies, found breadth-first through connected
// data-in pins, followed by the node itself. GetVariable, GetMember and pure
// CallFunction nodes are dependencies and are expanded recursively; any
// other upstream node is read as-is, since control flow reaches it on its
// own.
//
// The order is stored on the entry node. On error the node's order is
// invalid and the returned error lists every problem found.
func (s *Script) CompileEntry(entry PinRef) error {
	n := s.Node(entry.Node)
	if n == nil {
		invariant("compiling missing node %d", entry.Node)
	}
	n.compiled, n.compiledValid = nil, false

	var errs error
	visited := map[NodeID]bool{n.ID: true}
	queue := []NodeID{n.ID}
	var visits []NodeID
	type edge struct{ from, to NodeID }
	var edges []edge

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visits = append(visits, id)

		cur := s.nodes[id]
		for _, p := range cur.pins {
			if !p.IsData() || !p.IsInput() {
				continue
			}
			if len(p.links) == 0 {
				if !p.hasDefault {
					errs = multierr.Append(errs, &CompileError{Node: cur.Name, Pin: p.Name, Msg: "input is not connected and has no default"})
				}
				continue
			}
			up := s.Node(p.links[0].Node)
			if up == nil {
				invariant("pin %q of node %q is linked to a removed node", p.Name, cur.Name)
			}
			if !up.Pure() {
				continue
			}
			edges = append(edges, edge{from: up.ID, to: id})
			if !visited[up.ID] {
				visited[up.ID] = true
				queue = append(queue, up.ID)
			}
		}
	}
	if errs != nil {
		return errs
	}

	// Reversing the breadth-first visits puts most dependencies first; the
	// graph repairs the cases where it does not, and rejects cycles.
	g := dag.New[NodeID]()
	slices.Reverse(visits)
	for _, id := range visits {
		g.AddNode(id)
	}
	for _, e := range edges {
		if e.from == e.to {
			return &CompileError{Node: s.nodes[e.from].Name, Msg: "pure node depends on itself"}
		}
		if err := g.AddEdge(e.from, e.to); err != nil {
			invariant("compile %q: %v", n.Name, err)
		}
	}
	order, err := g.TopologicalOrder()
	if err != nil {
		var names []string
		for _, id := range cycleMembers(g, visits) {
			names = append(names, s.nodes[id].Name)
		}
		return &CompileError{Node: n.Name, Msg: "pure dependencies form a cycle through " + strings.Join(names, ", ")}
	}

	n.compiled, n.compiledValid = order, true
	return nil
}

// cycleMembers returns the nodes of g that lie on a cycle, or between
// cycles, by stripping nodes that have no remaining dependencies or no
// remaining dependents until nothing changes.
func cycleMembers(g *dag.Graph[NodeID], ids []NodeID) []NodeID {
	left := make(map[NodeID]bool, len(ids))
	for _, id := range ids {
		left[id] = true
	}
	remaining := func(related []NodeID) int {
		count := 0
		for _, id := range related {
			if left[id] {
				count++
			}
		}
		return count
	}

	for changed := true; changed; {
		changed = false
		for _, id := range ids {
			if !left[id] {
				continue
			}
			deps, _ := g.Dependencies(id)
			dependents, _ := g.Dependents(id)
			if remaining(deps) == 0 || remaining(dependents) == 0 {
				delete(left, id)
				changed = true
			}
		}
	}

	var members []NodeID
	for _, id := range ids {
		if left[id] {
			members = append(members, id)
		}
	}
	return members
}

// Compile binds every node's reflection context again, compiles every
// control-flow node and every event node, and rebuilds the event index. It
// is idempotent and may be called after any structural edit. When it fails
// the script cannot execute until a later Compile succeeds; the returned
// error aggregates a *CompileError per problem.
func (s *Script) Compile() error {
	return s.compile(context.Background())
}

func (s *Script) compile(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s.invalidate()

	var errs error
	for _, n := range s.nodes {
		if n == nil {
			continue
		}
		errs = multierr.Append(errs, s.rebind(n))
	}
	if errs != nil {
		logger.Debug("Script binding failed.", "errors", len(multierr.Errors(errs)))
		return errs
	}

	events := make(map[string]NodeID)
	for _, n := range s.nodes {
		if n == nil {
			continue
		}
		switch {
		case n.Kind == KindEvent:
			if other, dup := events[n.binding.event]; dup {
				errs = multierr.Append(errs, &CompileError{
					Node: n.Name,
					Msg:  "event " + n.binding.event + " is already handled by node " + s.nodes[other].Name,
				})
				continue
			}
			events[n.binding.event] = n.ID
			errs = multierr.Append(errs, s.CompileEntry(PinRef{Node: n.ID}))
		case len(n.ControlInputs()) > 0:
			errs = multierr.Append(errs, s.CompileEntry(PinRef{Node: n.ID}))
		}
	}
	if errs != nil {
		logger.Debug("Script compilation failed.", "errors", len(multierr.Errors(errs)))
		return errs
	}

	s.events = events
	s.compiled = true
	logger.Debug("Script compiled.", "nodes", len(s.names), "events", len(events))
	return nil
}

// rebind resolves a node's fields again so that handles follow the current
// variables and registry. The pin layout must not change.
func (s *Script) rebind(n *Node) error {
	b, pins, err := s.bind(n.Kind, n.Name, n.fields)
	if err != nil {
		return err
	}
	if !sameLayout(n.pins, pins) {
		return &CompileError{Node: n.Name, Msg: "pin layout no longer matches its binding"}
	}
	n.binding = b
	return nil
}
