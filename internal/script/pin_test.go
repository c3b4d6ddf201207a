package script

import (
	"math/rand/v2"
	"testing"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// newCatalogFixture builds one node of every kind over variables of every
// primitive type, so that pin pairs cover the whole compatibility table.
func newCatalogFixture(t *testing.T) (*fixture, []PinRef) {
	f := newFixture(t)
	for _, typ := range typesys.Primitives() {
		f.declare("v_"+typ.Name, typ.Name, cty.NilVal)
	}
	f.declare("player", "Player*", cty.NilVal)

	for _, name := range f.s.Variables().Names() {
		f.getVar(name)
		f.setVar(name)
	}
	f.event("Tick")
	f.node("Event", map[string]string{"event": "Frame", "payload": "TickEvent"})
	f.node("Branch", nil)
	f.node("For", nil)
	f.node("While", nil)
	f.node("GetMember", map[string]string{"class": "Player", "field": "hp"})
	f.node("SetMember", map[string]string{"class": "Player*", "field": "Name"})
	f.call("Log", "Write")
	f.call("Math", "Add")

	var refs []PinRef
	for _, n := range f.s.Nodes() {
		for i := range n.Pins() {
			refs = append(refs, PinRef{Node: n.ID, Pin: i})
		}
	}
	return f, refs
}

func TestConnect_IsSymmetric(t *testing.T) {
	f, refs := newCatalogFixture(t)
	s := f.s

	for _, a := range refs {
		for _, b := range refs {
			ab := s.Connect(a, b)
			if ab {
				s.Disconnect(a, b)
			}
			ba := s.Connect(b, a)
			if ba {
				s.Disconnect(b, a)
			}
			if ab != ba {
				pa, pb := s.Pin(a), s.Pin(b)
				t.Errorf("Connect(%s %s, %s %s) = %v but reversed = %v", pa.Role(), pa.Name, pb.Role(), pb.Name, ab, ba)
			}
		}
	}
}

func TestConnect_Rules(t *testing.T) {
	f := newFixture(t)
	f.declare("b", "bool", cty.False)
	f.declare("i", "int32", cty.Zero)
	f.declare("u", "uint32", cty.Zero)
	f.declare("s", "string", cty.StringVal(""))
	f.declare("player", "Player*", cty.NilVal)

	getB, getI, getU, getS := f.getVar("b"), f.getVar("i"), f.getVar("u"), f.getVar("s")
	getPlayer := f.getVar("player")
	setF := f.node("SetVariable", map[string]string{"variable": "i"})
	branch := f.node("Branch", nil)
	loop := f.node("For", nil)
	member := f.node("GetMember", map[string]string{"class": "Player", "field": "hp"})
	write := f.call("Log", "Write")
	s := f.s

	testCases := []struct {
		name string
		a, b PinRef
		want bool
	}{
		{"data out to compatible in", f.ref(getI, PinValue), f.ref(setF, PinSet), true},
		{"argument order does not matter", f.ref(setF, PinSet), f.ref(getU, PinValue), true},
		{"bool to int32", f.ref(getB, PinValue), f.ref(setF, PinSet), true},
		{"string to int32", f.ref(getS, PinValue), f.ref(loop, PinLast), true},
		{"uint32 to bool", f.ref(getU, PinValue), f.ref(branch, PinCondition), true},
		{"string to bool is not coercible", f.ref(getS, PinValue), f.ref(branch, PinCondition), false},
		{"int32 to string", f.ref(getI, PinValue), f.ref(write, "msg"), true},
		{"same direction", f.ref(getI, PinValue), f.ref(getB, PinValue), false},
		{"control to data", f.ref(branch, PinTrue), f.ref(setF, PinSet), false},
		{"control out to control in", f.ref(branch, PinTrue), f.ref(loop, PinExec), true},
		{"hidden pin", f.ref(branch, PinFalse), f.ref(loop, PinCycle), false},
		{"object to object", f.ref(getPlayer, PinValue), f.ref(member, PinObject), true},
		{"primitive to object", f.ref(getI, PinValue), f.ref(member, PinObject), false},
		{"object to primitive", f.ref(getPlayer, PinValue), f.ref(write, "msg"), false},
		{"same pin", f.ref(loop, PinExec), f.ref(loop, PinExec), false},
		{"missing pin", PinRef{Node: getI.ID, Pin: 42}, f.ref(setF, PinSet), false},
		{"missing node", PinRef{Node: 999}, f.ref(setF, PinSet), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Connect(tc.a, tc.b))
			s.Disconnect(tc.a, tc.b)
		})
	}
}

func TestConnect_ReplacesSingleLinks(t *testing.T) {
	f := newFixture(t)
	f.declare("i", "int32", cty.Zero)
	get1, get2 := f.getVar("i"), f.getVar("i")
	set := f.setVar("i")
	branch := f.node("Branch", nil)
	w1, w2 := f.write("a"), f.write("b")
	s := f.s

	t.Run("data-in keeps one source", func(t *testing.T) {
		f.connect(get1, PinValue, set, PinSet)
		f.connect(get2, PinValue, set, PinSet)

		in := s.Pin(f.ref(set, PinSet))
		assert.Equal(t, []PinRef{f.ref(get2, PinValue)}, in.Links())
		assert.Empty(t, s.Pin(f.ref(get1, PinValue)).Links())
	})

	t.Run("control-out keeps one target", func(t *testing.T) {
		f.connect(branch, PinTrue, w1, PinExec)
		f.connect(branch, PinTrue, w2, PinExec)

		assert.Equal(t, []PinRef{f.ref(w2, PinExec)}, s.Pin(f.ref(branch, PinTrue)).Links())
		assert.Empty(t, s.Pin(f.ref(w1, PinExec)).Links())
	})

	t.Run("data-out and control-in fan out", func(t *testing.T) {
		f.connect(get1, PinValue, w1, "msg")
		f.connect(get1, PinValue, w2, "msg")
		assert.Len(t, s.Pin(f.ref(get1, PinValue)).Links(), 2)

		f.connect(branch, PinFalse, w1, PinExec)
		f.connect(w2, PinExit, w1, PinExec)
		assert.Len(t, s.Pin(f.ref(w1, PinExec)).Links(), 2)
	})

	t.Run("reconnecting is a no-op", func(t *testing.T) {
		f.connect(get1, PinValue, w1, "msg")
		assert.Len(t, s.Pin(f.ref(w1, "msg")).Links(), 1)
	})

	t.Run("disconnect is symmetric and tolerant", func(t *testing.T) {
		s.Disconnect(f.ref(w1, "msg"), f.ref(get1, PinValue))
		assert.Empty(t, s.Pin(f.ref(w1, "msg")).Links())
		assert.Equal(t, []PinRef{f.ref(w2, "msg")}, s.Pin(f.ref(get1, PinValue)).Links())

		s.Disconnect(f.ref(w1, "msg"), f.ref(get1, PinValue))
		s.Disconnect(PinRef{Node: 99}, f.ref(get1, PinValue))
	})
}

func TestConnect_FanInvariantsHold(t *testing.T) {
	f, refs := newCatalogFixture(t)
	s := f.s
	rng := rand.New(rand.NewPCG(7, 11))

	for step := 0; step < 3000; step++ {
		a := refs[rng.IntN(len(refs))]
		b := refs[rng.IntN(len(refs))]
		if rng.IntN(4) == 0 {
			s.Disconnect(a, b)
		} else {
			s.Connect(a, b)
		}

		for _, ref := range refs {
			p := s.Pin(ref)
			if (p.IsData() && p.IsInput()) || (p.IsControl() && p.IsOutput()) {
				require.LessOrEqual(t, len(p.links), 1, "step %d: %s pin %q", step, p.Role(), p.Name)
			}
			for _, peer := range p.links {
				require.True(t, s.Pin(peer).linked(ref), "step %d: link %s -> %s is one-sided", step, ref, peer)
			}
		}
	}
}

func TestValue(t *testing.T) {
	f := newFixture(t)
	f.declare("i", "int32", cty.Zero)
	get := f.getVar("i")
	set := f.setVar("i")
	loop := f.node("For", nil)
	s := f.s

	t.Run("unconnected input reads its default", func(t *testing.T) {
		assert.True(t, s.Value(f.ref(loop, PinLast)).RawEquals(cty.Zero))
		f.setDefault(loop, PinLast, cty.StringVal("12"))
		assert.True(t, s.Value(f.ref(loop, PinLast)).RawEquals(cty.NumberIntVal(12)))
	})

	t.Run("connected input reads upstream value", func(t *testing.T) {
		f.connect(get, PinValue, loop, PinLast)
		s.SetValue(f.ref(get, PinValue), cty.NumberFloatVal(7.9))
		assert.True(t, s.Value(f.ref(get, PinValue)).RawEquals(cty.NumberIntVal(7)), "outputs are coerced on write")
		assert.True(t, s.Value(f.ref(loop, PinLast)).RawEquals(cty.NumberIntVal(7)))
	})

	t.Run("role violations panic", func(t *testing.T) {
		assertInvariantPanic(t, func() { s.Value(f.ref(loop, PinExec)) })
		assertInvariantPanic(t, func() { s.SetValue(f.ref(set, PinSet), cty.Zero) })
		assertInvariantPanic(t, func() { s.SetValue(f.ref(loop, PinBody), cty.Zero) })
		assertInvariantPanic(t, func() { s.SetDefault(f.ref(get, PinValue), cty.Zero) })
		assertInvariantPanic(t, func() { s.Value(PinRef{Node: 99}) })
	})
}
