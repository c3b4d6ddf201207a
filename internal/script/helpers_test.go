package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type testPlayer struct {
	Name   string
	Health int32 `script:"hp"`
}

type tickEvent struct {
	Delta float32
	Frame int32
}

// recorder is the singleton behind the "Log" service class.
type recorder struct {
	lines []string
	hook  func()
}

type mathLib struct{}

func newTestRegistry(t *testing.T) (*registry.Registry, *recorder) {
	t.Helper()
	rec := &recorder{}
	r := registry.New()
	r.RegisterClass("Player", (*testPlayer)(nil))
	r.RegisterClass("TickEvent", (*tickEvent)(nil))
	r.RegisterClass("Log", (*recorder)(nil), registry.Singleton(rec))
	r.RegisterClass("Math", (*mathLib)(nil))

	r.RegisterFunction("Log", "Write", func(l *recorder, msg string) {
		l.lines = append(l.lines, msg)
	}, registry.Args("msg"))
	r.RegisterFunction("Log", "Pair", func(l *recorder, a, b int32) {
		l.lines = append(l.lines, fmt.Sprintf("%d,%d", a, b))
	}, registry.Args("a", "b"))
	r.RegisterFunction("Log", "Fail", func(l *recorder) error {
		return errors.New("boom")
	})
	r.RegisterFunction("Log", "Hook", func(l *recorder) {
		if l.hook != nil {
			l.hook()
		}
	})
	r.RegisterFunction("Math", "Add", func(a, b int32) int32 { return a + b }, registry.Const(), registry.Args("a", "b"))
	r.RegisterFunction("Math", "Less", func(a, b int32) bool { return a < b }, registry.Const(), registry.Args("a", "b"))
	return r, rec
}

type fixture struct {
	t   *testing.T
	reg *registry.Registry
	s   *Script
	rec *recorder
	log *bytes.Buffer
	ctx context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	r, rec := newTestRegistry(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &fixture{
		t:   t,
		reg: r,
		s:   New(r, opts...),
		rec: rec,
		log: &buf,
		ctx: ctxlog.WithLogger(context.Background(), logger),
	}
}

func (f *fixture) declare(name, typeName string, v cty.Value) {
	f.t.Helper()
	typ, ok := f.reg.Type(typeName)
	require.True(f.t, ok, "unknown type %s", typeName)
	require.NoError(f.t, f.s.Variables().Declare(name, typ, v))
}

func (f *fixture) node(kind string, fields map[string]string) *Node {
	f.t.Helper()
	n, err := f.s.NewNode(kind, fields)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) ref(n *Node, pin string) PinRef {
	f.t.Helper()
	ref, ok := n.Ref(pin)
	require.True(f.t, ok, "node %s has no pin %q", n.Name, pin)
	return ref
}

func (f *fixture) connect(from *Node, out string, to *Node, in string) {
	f.t.Helper()
	require.True(f.t, f.s.Connect(f.ref(from, out), f.ref(to, in)), "connect %s.%s -> %s.%s", from.Name, out, to.Name, in)
}

func (f *fixture) setDefault(n *Node, pin string, v cty.Value) {
	f.t.Helper()
	f.s.SetDefault(f.ref(n, pin), v)
}

func (f *fixture) event(name string) *Node {
	return f.node("Event", map[string]string{"event": name})
}

func (f *fixture) getVar(path string) *Node {
	return f.node("GetVariable", map[string]string{"variable": path})
}

func (f *fixture) setVar(path string) *Node {
	return f.node("SetVariable", map[string]string{"variable": path})
}

func (f *fixture) call(class, function string) *Node {
	return f.node("CallFunction", map[string]string{"class": class, "function": function})
}

// write creates a Log.Write call whose message defaults to msg.
func (f *fixture) write(msg string) *Node {
	n := f.call("Log", "Write")
	f.setDefault(n, "msg", cty.StringVal(msg))
	return n
}

func (f *fixture) compile() {
	f.t.Helper()
	require.NoError(f.t, f.s.Compile())
}

func (f *fixture) run(event string) {
	f.t.Helper()
	require.NoError(f.t, f.s.Execute(f.ctx, event, nil))
}

func (f *fixture) variable(name string) cty.Value {
	f.t.Helper()
	v, ok := f.s.Variables().Get(name)
	require.True(f.t, ok)
	return v
}

func assertInvariantPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		require.NotNil(t, r, "expected a panic")
		_, ok := r.(InvariantError)
		assert.True(t, ok, "expected InvariantError, got %T: %v", r, r)
	}()
	fn()
}
