package script

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestExecute_ForLoop(t *testing.T) {
	testCases := []struct {
		name        string
		first, last int64
		want        []string
	}{
		{"single iteration", 1, 1, []string{"1", "done"}},
		{"three iterations", 1, 3, []string{"1", "2", "3", "done"}},
		{"negative range", -1, 0, []string{"-1", "0", "done"}},
		{"last before first", 3, 1, []string{"done"}},
		{"at int32 max", math.MaxInt32, math.MaxInt32, []string{"2147483647", "done"}},
		{"ending at int32 max", math.MaxInt32 - 1, math.MaxInt32, []string{"2147483646", "2147483647", "done"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ev := f.event("Tick")
			loop := f.node("For", nil)
			body := f.call("Log", "Write")
			done := f.write("done")
			f.connect(ev, PinFired, loop, PinExec)
			f.connect(loop, PinBody, body, PinExec)
			f.connect(loop, PinIndex, body, "msg")
			f.connect(loop, PinCompleted, done, PinExec)
			f.setDefault(loop, PinFirst, cty.NumberIntVal(tc.first))
			f.setDefault(loop, PinLast, cty.NumberIntVal(tc.last))
			f.compile()

			f.run("Tick")
			assert.Equal(t, tc.want, f.rec.lines)
		})
	}
}

func TestExecute_ForLoopWithoutBody(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Tick")
	loop := f.node("For", nil)
	done := f.write("done")
	f.connect(ev, PinFired, loop, PinExec)
	f.connect(loop, PinCompleted, done, PinExec)
	f.setDefault(loop, PinLast, cty.NumberIntVal(5))
	f.compile()

	f.run("Tick")
	assert.Equal(t, []string{"done"}, f.rec.lines)
	assert.True(t, f.s.Value(f.ref(loop, PinIndex)).RawEquals(cty.NumberIntVal(6)))
}

func TestExecute_BranchIsExclusive(t *testing.T) {
	for _, cond := range []bool{true, false} {
		f := newFixture(t)
		ev := f.event("Tick")
		branch := f.node("Branch", nil)
		yes, no := f.write("yes"), f.write("no")
		f.connect(ev, PinFired, branch, PinExec)
		f.connect(branch, PinTrue, yes, PinExec)
		f.connect(branch, PinFalse, no, PinExec)
		f.setDefault(branch, PinCondition, cty.BoolVal(cond))
		f.compile()

		f.run("Tick")
		if cond {
			assert.Equal(t, []string{"yes"}, f.rec.lines)
		} else {
			assert.Equal(t, []string{"no"}, f.rec.lines)
		}
	}
}

func TestExecute_NestedBreakResumesOuterLoop(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Tick")
	outer := f.node("For", nil)
	inner := f.node("For", nil)
	body := f.call("Log", "Write")
	innerDone := f.write("inner done")
	outerDone := f.write("outer done")

	f.setDefault(outer, PinFirst, cty.NumberIntVal(1))
	f.setDefault(outer, PinLast, cty.NumberIntVal(2))
	f.setDefault(inner, PinFirst, cty.NumberIntVal(1))
	f.setDefault(inner, PinLast, cty.NumberIntVal(3))

	f.connect(ev, PinFired, outer, PinExec)
	f.connect(outer, PinBody, inner, PinExec)
	f.connect(outer, PinCompleted, outerDone, PinExec)
	f.connect(inner, PinBody, body, PinExec)
	f.connect(inner, PinIndex, body, "msg")
	f.connect(body, PinExit, inner, PinBreak)
	f.connect(inner, PinCompleted, innerDone, PinExec)
	f.compile()

	f.run("Tick")
	assert.Equal(t, []string{"1", "inner done", "1", "inner done", "outer done"}, f.rec.lines)
}

func TestExecute_BreakOutsideLoopIsIgnored(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Tick")
	loop := f.node("For", nil)
	done := f.write("done")
	f.connect(ev, PinFired, loop, PinBreak)
	f.connect(loop, PinCompleted, done, PinExec)
	f.compile()

	f.run("Tick")
	assert.Empty(t, f.rec.lines)
	assert.Contains(t, f.log.String(), "Break ignored")
}

func TestExecute_WhileLoop(t *testing.T) {
	f := newFixture(t)
	f.declare("n", "int32", cty.Zero)
	ev := f.event("Tick")
	loop := f.node("While", nil)
	get := f.getVar("n")
	less := f.call("Math", "Less")
	add := f.call("Math", "Add")
	set := f.setVar("n")
	done := f.call("Log", "Write")

	f.connect(ev, PinFired, loop, PinExec)
	f.connect(get, PinValue, less, "a")
	f.setDefault(less, "b", cty.NumberIntVal(3))
	f.connect(less, PinResult, loop, PinCondition)
	f.connect(loop, PinBody, set, PinExec)
	f.connect(get, PinValue, add, "a")
	f.setDefault(add, "b", cty.NumberIntVal(1))
	f.connect(add, PinResult, set, PinSet)
	f.connect(loop, PinCompleted, done, PinExec)
	f.connect(get, PinValue, done, "msg")
	f.compile()

	f.run("Tick")
	assert.True(t, f.variable("n").RawEquals(cty.NumberIntVal(3)))
	assert.Equal(t, []string{"3"}, f.rec.lines)
	assert.True(t, f.s.Value(f.ref(set, PinGet)).RawEquals(cty.NumberIntVal(3)))
}

func TestExecute_UnknownEventIsNoop(t *testing.T) {
	f := newFixture(t)
	f.declare("n", "int32", cty.NumberIntVal(5))
	ev := f.event("Tick")
	set := f.setVar("n")
	f.connect(ev, PinFired, set, PinExec)
	f.compile()

	require.NoError(t, f.s.Execute(f.ctx, "Unknown", MapPayload{"n": cty.NumberIntVal(1)}))
	assert.True(t, f.variable("n").RawEquals(cty.NumberIntVal(5)))
	assert.True(t, f.s.Value(f.ref(set, PinGet)).RawEquals(cty.Zero))
	assert.False(t, f.s.Running())
}

func TestExecute_BindsPayload(t *testing.T) {
	f := newFixture(t)
	ev := f.node("Event", map[string]string{"event": "Tick", "payload": "TickEvent"})
	w := f.call("Log", "Write")
	f.connect(ev, PinFired, w, PinExec)
	f.connect(ev, "Frame", w, "msg")
	f.compile()

	payload, err := ObjectPayload(f.reg, &tickEvent{Frame: 7, Delta: 0.5})
	require.NoError(t, err)
	require.NoError(t, f.s.Execute(f.ctx, "Tick", payload))

	require.NoError(t, f.s.Execute(f.ctx, "Tick", MapPayload{"Frame": cty.StringVal("9")}))

	// Fields missing from the payload keep their last value.
	require.NoError(t, f.s.Execute(f.ctx, "Tick", MapPayload{}))
	require.NoError(t, f.s.Execute(f.ctx, "Tick", nil))

	assert.Equal(t, []string{"7", "9", "9", "9"}, f.rec.lines)

	_, err = ObjectPayload(f.reg, int32(3))
	assert.Error(t, err)
}

func TestExecute_VariablePathIntoObject(t *testing.T) {
	f := newFixture(t)
	f.declare("player", "Player*", cty.NilVal)
	player := &testPlayer{Name: "ann", Health: 10}
	require.NoError(t, f.s.SetObject("player", player))

	ev := f.event("Hit")
	set := f.setVar("player.hp")
	w := f.call("Log", "Write")
	f.setDefault(set, PinSet, cty.NumberIntVal(50))
	f.connect(ev, PinFired, set, PinExec)
	f.connect(set, PinExit, w, PinExec)
	f.connect(set, PinGet, w, "msg")
	f.compile()

	f.run("Hit")
	assert.Equal(t, int32(50), player.Health)
	assert.Equal(t, []string{"50"}, f.rec.lines)
}

func TestExecute_MemberAccess(t *testing.T) {
	f := newFixture(t)
	f.declare("player", "Player*", cty.NilVal)
	player := &testPlayer{Name: "ann", Health: 10}
	require.NoError(t, f.s.SetObject("player", player))

	ev := f.event("Rename")
	get := f.getVar("player")
	set := f.node("SetMember", map[string]string{"class": "Player", "field": "Name"})
	read := f.node("GetMember", map[string]string{"class": "Player", "field": "hp"})
	w1, w2 := f.call("Log", "Write"), f.call("Log", "Write")
	f.setDefault(set, PinSet, cty.StringVal("bob"))
	f.connect(get, PinValue, set, PinObject)
	f.connect(get, PinValue, read, PinObject)
	f.connect(ev, PinFired, set, PinExec)
	f.connect(set, PinExit, w1, PinExec)
	f.connect(set, PinGet, w1, "msg")
	f.connect(w1, PinExit, w2, PinExec)
	f.connect(read, PinValue, w2, "msg")
	f.compile()

	f.run("Rename")
	assert.Equal(t, "bob", player.Name)
	assert.Equal(t, []string{"bob", "10"}, f.rec.lines)
}

func TestExecute_ResolutionMissContinues(t *testing.T) {
	f := newFixture(t)
	f.declare("player", "Player*", cty.NilVal)
	ev := f.event("Tick")
	get := f.getVar("player")
	read := f.node("GetMember", map[string]string{"class": "Player", "field": "hp"})
	w := f.call("Log", "Write")
	after := f.write("after")
	f.connect(get, PinValue, read, PinObject)
	f.connect(read, PinValue, w, "msg")
	f.connect(ev, PinFired, w, PinExec)
	f.connect(w, PinExit, after, PinExec)
	f.compile()

	f.run("Tick")
	assert.Equal(t, []string{"0", "after"}, f.rec.lines)
	assert.Contains(t, f.log.String(), "resolution failed")
	assert.Contains(t, f.log.String(), read.Name)
}

func TestExecute_FunctionErrorContinues(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Tick")
	fail := f.call("Log", "Fail")
	after := f.write("after")
	f.connect(ev, PinFired, fail, PinExec)
	f.connect(fail, PinExit, after, PinExec)
	f.compile()

	f.run("Tick")
	assert.Equal(t, []string{"after"}, f.rec.lines)
	assert.Contains(t, f.log.String(), "boom")
}

func TestExecute_MaxSteps(t *testing.T) {
	f := newFixture(t, WithMaxSteps(50))
	ev := f.event("Tick")
	loop := f.node("While", nil)
	f.setDefault(loop, PinCondition, cty.True)
	f.connect(ev, PinFired, loop, PinExec)
	f.compile()

	err := f.s.Execute(f.ctx, "Tick", nil)
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.False(t, f.s.Running())
}

func TestExecute_AutoRecompile(t *testing.T) {
	build := func(t *testing.T, opts ...Option) *fixture {
		f := newFixture(t, opts...)
		f.declare("x", "int32", cty.NumberIntVal(5))
		ev := f.event("Tick")
		w := f.call("Log", "Write")
		f.connect(ev, PinFired, w, PinExec)
		f.compile()

		// Edited after compiling: the new pure node is not in w's order.
		get := f.getVar("x")
		f.connect(get, PinValue, w, "msg")
		return f
	}

	t.Run("stale order", func(t *testing.T) {
		f := build(t)
		f.run("Tick")
		assert.Equal(t, []string{"0"}, f.rec.lines)
	})

	t.Run("recompiled before running", func(t *testing.T) {
		f := build(t, WithAutoRecompile(true))
		f.run("Tick")
		assert.Equal(t, []string{"5"}, f.rec.lines)
	})
}

func TestExecute_UncompiledNodePanics(t *testing.T) {
	f := newFixture(t)
	ev := f.event("Tick")
	f.compile()

	w := f.write("late")
	f.connect(ev, PinFired, w, PinExec)
	assertInvariantPanic(t, func() { _ = f.s.Execute(f.ctx, "Tick", nil) })
}

func TestExecute_NestedDispatch(t *testing.T) {
	f := newFixture(t)
	outer := f.event("Outer")
	inner := f.event("Inner")
	hook := f.call("Log", "Hook")
	w := f.write("inner")
	after := f.write("outer")
	f.connect(outer, PinFired, hook, PinExec)
	f.connect(hook, PinExit, after, PinExec)
	f.connect(inner, PinFired, w, PinExec)
	f.compile()

	f.rec.hook = func() {
		assert.True(t, f.s.Running())
		assert.NoError(t, f.s.Execute(f.ctx, "Inner", nil))
	}
	f.run("Outer")
	assert.Equal(t, []string{"inner", "outer"}, f.rec.lines)
	assert.False(t, f.s.Running())
}
