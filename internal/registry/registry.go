package registry

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that every builtin module implements to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds all registered types, classes and functions for a single
// application instance. It implements typesys.Resolver.
type Registry struct {
	types   map[string]*typesys.Type
	classes map[string]*class
	byGo    map[reflect.Type]*class
}

var _ typesys.Resolver = (*Registry)(nil)

// New creates a Registry that knows the primitive types.
func New() *Registry {
	r := &Registry{
		types:   make(map[string]*typesys.Type),
		classes: make(map[string]*class),
		byGo:    make(map[reflect.Type]*class),
	}
	for _, t := range typesys.Primitives() {
		r.types[t.Name] = t
	}
	return r
}

// Use registers every given module.
func (r *Registry) Use(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Type resolves a type name.
func (r *Registry) Type(name string) (*typesys.Type, bool) {
	t, ok := r.types[name]
	return t, ok
}

// Classes returns the registered class names, sorted.
func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fields lists the fields of a class, inherited ones first.
func (r *Registry) Fields(className string) ([]typesys.Field, bool) {
	c, ok := r.classes[className]
	if !ok {
		return nil, false
	}
	var chain []*class
	for cur := c; cur != nil; cur = cur.base {
		chain = append([]*class{cur}, chain...)
	}
	var fields []typesys.Field
	for _, cur := range chain {
		for _, f := range cur.fields {
			fields = append(fields, f)
		}
	}
	return fields, true
}

// Field resolves a field of a class or one of its bases.
func (r *Registry) Field(className, name string) (typesys.Field, bool) {
	c, ok := r.classes[className]
	if !ok {
		return nil, false
	}
	for cur := c; cur != nil; cur = cur.base {
		if f, ok := cur.fieldsByName[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// Function resolves a function of a class or one of its bases.
func (r *Registry) Function(className, name string) (typesys.Function, bool) {
	c, ok := r.classes[className]
	if !ok {
		return nil, false
	}
	for cur := c; cur != nil; cur = cur.base {
		if f, ok := cur.functions[name]; ok {
			return f, true
		}
	}
	return nil, false
}

// New returns a default-constructed value of t: the zero value for
// primitives and a freshly allocated instance for classes.
func (r *Registry) New(t *typesys.Type) (cty.Value, error) {
	if !t.IsObject() {
		return typesys.Zero(t), nil
	}
	c, ok := r.classes[t.ValueType().Name]
	if !ok {
		return cty.NilVal, fmt.Errorf("class %q is not registered", t.Name)
	}
	return cty.CapsuleVal(c.value.Cty, reflect.New(c.goType).Interface()), nil
}

// Wrap converts a host object into a dynamic value. Pointers to registered
// structs keep their identity; everything else is copied.
func (r *Registry) Wrap(obj any) (cty.Value, *typesys.Type, error) {
	if obj == nil {
		return cty.NilVal, nil, fmt.Errorf("cannot wrap nil")
	}
	rv := reflect.ValueOf(obj)
	t, ok := r.typeOf(rv.Type())
	if !ok {
		return cty.NilVal, nil, fmt.Errorf("go type %s is not registered", rv.Type())
	}
	v, err := r.toCty(rv, t)
	if err != nil {
		return cty.NilVal, nil, err
	}
	return v, t, nil
}

func (r *Registry) addType(t *typesys.Type) {
	if _, exists := r.types[t.Name]; exists {
		panic(fmt.Sprintf("type with name '%s' already registered", t.Name))
	}
	slog.Debug("Registering type.", "name", t.Name)
	r.types[t.Name] = t
}
