package script

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// executor is the stack machine for one Execute call. The stack holds the
// control-in pins still to be activated.
type executor struct {
	s      *Script
	ctx    context.Context
	logger *slog.Logger
	stack  []PinRef
	steps  int
}

func (x *executor) push(ref PinRef) {
	x.stack = append(x.stack, ref)
}

// follow pushes the target of a control-out pin, if it is connected.
func (x *executor) follow(n *Node, pin string) {
	if target, ok := x.s.target(n.mustRef(pin)); ok {
		x.push(target)
	}
}

// run starts from an event node and returns once the stack is empty.
func (x *executor) run(event *Node) error {
	if err := x.activate(event, nil); err != nil {
		return err
	}
	for len(x.stack) > 0 {
		p := x.stack[len(x.stack)-1]
		x.stack = x.stack[:len(x.stack)-1]

		n := x.s.Node(p.Node)
		if n == nil {
			invariant("activating removed node %d", p.Node)
		}
		if err := x.activate(n, &p); err != nil {
			return err
		}
	}
	return nil
}

// activate runs the compiled order of n. Only n itself sees the entry pin;
// its dependencies are pulled, not pushed.
func (x *executor) activate(n *Node, entry *PinRef) error {
	if x.s.opts.maxSteps > 0 && x.steps >= x.s.opts.maxSteps {
		return fmt.Errorf("%w: %d activations", ErrStepLimit, x.steps)
	}
	x.steps++

	if x.s.opts.autoRecompile {
		if err := x.s.CompileEntry(PinRef{Node: n.ID}); err != nil {
			return fmt.Errorf("recompiling node %q: %w", n.Name, err)
		}
	}
	if !n.compiledValid {
		invariant("node %q has no valid compiled order", n.Name)
	}

	for _, id := range n.compiled {
		m := x.s.Node(id)
		if m == nil {
			invariant("compiled order of %q references removed node %d", n.Name, id)
		}
		pin := ""
		if id == n.ID && entry != nil {
			pin = n.pins[entry.Pin].Name
		}
		x.step(m, pin)
	}
	return nil
}

// step performs the kind-specific behaviour of one node. entry is the name
// of the control-in pin that activated it, or empty for pulled nodes.
func (x *executor) step(n *Node, entry string) {
	s := x.s
	switch n.Kind {
	case KindEvent:
		x.follow(n, PinFired)

	case KindGetVariable:
		v, err := s.readPath(n.binding)
		if err != nil {
			x.miss(n, err)
			return
		}
		s.SetValue(n.mustRef(PinValue), v)

	case KindSetVariable:
		if err := s.writePath(n.binding, s.Value(n.mustRef(PinSet))); err != nil {
			x.miss(n, err)
		} else if v, err := s.readPath(n.binding); err != nil {
			x.miss(n, err)
		} else {
			s.SetValue(n.mustRef(PinGet), v)
		}
		x.follow(n, PinExit)

	case KindGetMember:
		v, err := n.binding.field.Get(s.Value(n.mustRef(PinObject)))
		if err != nil {
			x.miss(n, err)
			return
		}
		s.SetValue(n.mustRef(PinValue), v)

	case KindSetMember:
		obj := s.Value(n.mustRef(PinObject))
		f := n.binding.field
		if err := f.Set(obj, s.Value(n.mustRef(PinSet))); err != nil {
			x.miss(n, err)
		} else if v, err := f.Get(obj); err != nil {
			x.miss(n, err)
		} else {
			s.SetValue(n.mustRef(PinGet), v)
		}
		x.follow(n, PinExit)

	case KindCallFunction:
		x.call(n)

	case KindBranch:
		if typesys.Truthy(s.Value(n.mustRef(PinCondition))) {
			x.follow(n, PinTrue)
		} else {
			x.follow(n, PinFalse)
		}

	case KindFor:
		x.forLoop(n, entry)

	case KindWhile:
		if typesys.Truthy(s.Value(n.mustRef(PinCondition))) {
			x.push(n.mustRef(PinCycle))
			x.follow(n, PinBody)
		} else {
			x.follow(n, PinCompleted)
		}

	default:
		invariant("node %q has unknown kind %d", n.Name, n.Kind)
	}
}

func (x *executor) call(n *Node) {
	s := x.s
	fn := n.binding.fn
	params := fn.Params()
	args := make([]cty.Value, len(params))
	for i, param := range params {
		args[i] = s.Value(n.mustRef(param.Name))
	}

	result, err := fn.Invoke(x.ctx, args)
	if err != nil {
		x.miss(n, err)
	} else if ref, ok := n.Ref(PinResult); ok {
		s.SetValue(ref, result)
	}
	if _, ok := n.Ref(PinExit); ok {
		x.follow(n, PinExit)
	}
}

// forLoop runs the index loop. The loop body runs while index <= last;
// a hidden cycle marker pushed under the body resumes the loop once the
// body's control chain has drained.
func (x *executor) forLoop(n *Node, entry string) {
	s := x.s
	index := n.mustRef(PinIndex)
	last := typesys.Int(s.Value(n.mustRef(PinLast)))
	switch entry {
	case PinExec:
		s.SetValue(index, s.Value(n.mustRef(PinFirst)))
	case PinCycle:
		// Compared before incrementing so that last == MaxInt32 ends. The
		// index is left one past last unless that would overflow.
		current := typesys.Int(s.Value(index))
		if current < math.MaxInt32 {
			s.SetValue(index, cty.NumberIntVal(int64(current)+1))
		}
		if current >= last {
			x.follow(n, PinCompleted)
			return
		}
	case PinBreak:
		x.unwind(n)
		return
	default:
		invariant("for node %q activated without an entry pin", n.Name)
	}

	if typesys.Int(s.Value(index)) <= last {
		x.push(n.mustRef(PinCycle))
		x.follow(n, PinBody)
		return
	}
	x.follow(n, PinCompleted)
}

// unwind discards stack entries down to and including the loop's own cycle
// marker, then continues with the loop's completed target. A break without
// an active marker is ignored.
func (x *executor) unwind(n *Node) {
	marker := n.mustRef(PinCycle)
	for i := len(x.stack) - 1; i >= 0; i-- {
		if x.stack[i] == marker {
			x.stack = x.stack[:i]
			x.follow(n, PinCompleted)
			return
		}
	}
	x.logger.Warn("Break ignored: loop is not running.", "node", n.Name)
}

// miss reports a binding that failed at execution time. The node keeps its
// previous outputs and control flow continues.
func (x *executor) miss(n *Node, err error) {
	x.logger.Warn("Node skipped: resolution failed.", "node", n.Name, "kind", n.Kind.String(), "error", err)
}

// readPath reads the value a variable binding points at.
func (s *Script) readPath(b binding) (cty.Value, error) {
	v, ok := s.vars.Get(b.root)
	if !ok {
		return cty.NilVal, fmt.Errorf("variable %q is not declared", b.root)
	}
	for _, f := range b.chain {
		next, err := f.Get(v)
		if err != nil {
			return cty.NilVal, err
		}
		v = next
	}
	return v, nil
}

// writePath stores v where a variable binding points.
func (s *Script) writePath(b binding, v cty.Value) error {
	if len(b.chain) == 0 {
		return s.vars.Set(b.root, v)
	}
	obj, ok := s.vars.Get(b.root)
	if !ok {
		return fmt.Errorf("variable %q is not declared", b.root)
	}
	for _, f := range b.chain[:len(b.chain)-1] {
		next, err := f.Get(obj)
		if err != nil {
			return err
		}
		obj = next
	}
	return b.chain[len(b.chain)-1].Set(obj, v)
}

func newExecutor(ctx context.Context, s *Script) *executor {
	return &executor{s: s, ctx: ctx, logger: ctxlog.FromContext(ctx)}
}
