package script

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/gridscript/internal/typesys"
)

// Pin names of the node catalog.
const (
	PinFired     = "fired"
	PinValue     = "value"
	PinExec      = "exec"
	PinExit      = "exit"
	PinSet       = "set"
	PinGet       = "get"
	PinObject    = "object"
	PinResult    = "result"
	PinCondition = "condition"
	PinTrue      = "true"
	PinFalse     = "false"
	PinBreak     = "break"
	PinCycle     = "cycle"
	PinFirst     = "first index"
	PinLast      = "last index"
	PinBody      = "loop body"
	PinCompleted = "completed"
	PinIndex     = "index"
)

// template accumulates the pin layout of a node under construction.
type template struct {
	node string
	pins []*Pin
	seen map[string]bool
	err  error
}

func (t *template) add(p *Pin) *Pin {
	if t.seen[p.Name] && t.err == nil {
		t.err = &CompileError{Node: t.node, Pin: p.Name, Msg: "duplicate pin name"}
	}
	t.seen[p.Name] = true
	t.pins = append(t.pins, p)
	return p
}

func (t *template) control(name string, dir Direction) {
	t.add(newPin(name, dir, Control, nil))
}

func (t *template) hidden(name string) {
	p := t.add(newPin(name, In, Control, nil))
	p.Hidden = true
}

func (t *template) output(name string, typ *typesys.Type) {
	t.add(newPin(name, Out, Data, typ))
}

// input adds a data-in pin. Primitive inputs default to their zero value;
// object inputs have no default and must be connected.
func (t *template) input(name string, typ *typesys.Type) *Pin {
	p := t.add(newPin(name, In, Data, typ))
	if typ.IsPrimitive() {
		p.setDefault(typesys.Zero(typ))
	}
	return p
}

// required adds a data-in pin that must be connected or given a default
// before the node compiles.
func (t *template) required(name string, typ *typesys.Type) {
	p := t.add(newPin(name, In, Data, typ))
	p.required = true
}

// bind resolves the kind-specific fields of a node against the variable
// registry and the resolver, and returns the binding together with the pin
// layout it implies.
func (s *Script) bind(kind Kind, name string, fields map[string]string) (binding, []*Pin, error) {
	var b binding
	t := &template{node: name, seen: make(map[string]bool)}
	fail := func(format string, args ...any) (binding, []*Pin, error) {
		return binding{}, nil, &CompileError{Node: name, Msg: fmt.Sprintf(format, args...)}
	}
	require := func(keys ...string) error {
		for _, key := range keys {
			if fields[key] == "" {
				return &CompileError{Node: name, Msg: fmt.Sprintf("missing %q", key)}
			}
		}
		return nil
	}

	switch kind {
	case KindEvent:
		if err := require("event"); err != nil {
			return binding{}, nil, err
		}
		b.event = fields["event"]
		t.control(PinFired, Out)
		if class := fields["payload"]; class != "" {
			typ, ok := s.resolver.Type(class)
			if !ok || !typ.IsObject() {
				return fail("unknown payload class %q", class)
			}
			b.payload = typ
			payloadFields, _ := s.resolver.Fields(typ.ValueType().Name)
			for _, f := range payloadFields {
				t.output(f.Name(), f.Type())
			}
		}

	case KindGetVariable, KindSetVariable:
		if err := require("variable"); err != nil {
			return binding{}, nil, err
		}
		root, chain, typ, err := s.resolvePath(fields["variable"])
		if err != nil {
			return fail("%v", err)
		}
		b.root, b.chain = root, chain
		if kind == KindGetVariable {
			t.output(PinValue, typ)
			break
		}
		t.control(PinExec, In)
		t.control(PinExit, Out)
		t.input(PinSet, typ)
		t.output(PinGet, typ)

	case KindGetMember, KindSetMember:
		if err := require("class", "field"); err != nil {
			return binding{}, nil, err
		}
		class, objType, ok := s.class(fields["class"])
		if !ok {
			return fail("unknown class %q", fields["class"])
		}
		f, ok := s.resolver.Field(class, fields["field"])
		if !ok {
			return fail("class %q has no field %q", class, fields["field"])
		}
		b.field = f
		if kind == KindGetMember {
			t.add(newPin(PinObject, In, Data, objType))
			t.output(PinValue, f.Type())
			break
		}
		t.control(PinExec, In)
		t.control(PinExit, Out)
		t.add(newPin(PinObject, In, Data, objType))
		t.input(PinSet, f.Type())
		t.output(PinGet, f.Type())

	case KindCallFunction:
		if err := require("class", "function"); err != nil {
			return binding{}, nil, err
		}
		class, _, ok := s.class(fields["class"])
		if !ok {
			return fail("unknown class %q", fields["class"])
		}
		fn, ok := s.resolver.Function(class, fields["function"])
		if !ok {
			return fail("class %q has no function %q", class, fields["function"])
		}
		b.fn = fn
		if !fn.Const() && !fn.Static() {
			t.control(PinExec, In)
			t.control(PinExit, Out)
		}
		for i, param := range fn.Params() {
			if param.Type == nil || param.Type.Kind == typesys.KindVoid {
				return fail("parameter %q of %s.%s has no usable type", param.Name, class, fn.Name())
			}
			p := t.input(param.Name, param.Type)
			if v, ok := fn.Default(i); ok {
				p.setDefault(v)
			}
		}
		if r := fn.Result(); r != nil && r.Kind != typesys.KindVoid {
			t.output(PinResult, r)
		}

	case KindBranch:
		t.control(PinExec, In)
		t.required(PinCondition, typesys.Bool)
		t.control(PinTrue, Out)
		t.control(PinFalse, Out)

	case KindFor:
		t.control(PinExec, In)
		t.control(PinBreak, In)
		t.hidden(PinCycle)
		t.input(PinFirst, typesys.Int32)
		t.input(PinLast, typesys.Int32)
		t.control(PinBody, Out)
		t.control(PinCompleted, Out)
		t.output(PinIndex, typesys.Int32)

	case KindWhile:
		t.control(PinExec, In)
		t.hidden(PinCycle)
		t.required(PinCondition, typesys.Bool)
		t.control(PinBody, Out)
		t.control(PinCompleted, Out)

	default:
		return binding{}, nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}

	if t.err != nil {
		return binding{}, nil, t.err
	}
	return b, t.pins, nil
}

// class resolves a class name given in either flavour. It returns the value
// type's name and the type object pins should carry, which is the pointer
// flavour when the registry knows one.
func (s *Script) class(name string) (string, *typesys.Type, bool) {
	typ, ok := s.resolver.Type(name)
	if !ok || !typ.IsObject() {
		return "", nil, false
	}
	class := typ.ValueType().Name
	if ptr, ok := s.resolver.Type(class + "*"); ok {
		return class, ptr, true
	}
	return class, typ, true
}

// resolvePath resolves a dotted variable path: the first segment names a
// script variable and every further segment a field of the value reached so
// far.
func (s *Script) resolvePath(path string) (string, []typesys.Field, *typesys.Type, error) {
	segments := strings.Split(path, ".")
	root := s.vars.Lookup(segments[0])
	if root == nil {
		return "", nil, nil, fmt.Errorf("unknown variable %q", segments[0])
	}
	typ := root.Type
	var chain []typesys.Field
	for _, segment := range segments[1:] {
		if !typ.IsObject() {
			return "", nil, nil, fmt.Errorf("variable path %q: %s has no fields", path, typ)
		}
		f, ok := s.resolver.Field(typ.ValueType().Name, segment)
		if !ok {
			return "", nil, nil, fmt.Errorf("variable path %q: %s has no field %q", path, typ.ValueType(), segment)
		}
		chain = append(chain, f)
		typ = f.Type()
	}
	return root.Name, chain, typ, nil
}

// sameLayout reports whether two pin templates expose the same pins.
func sameLayout(a, b []*Pin) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || a[i].Direction != b[i].Direction ||
			a[i].Flow != b[i].Flow || a[i].Hidden != b[i].Hidden ||
			a[i].Type.String() != b[i].Type.String() {
			return false
		}
	}
	return true
}
