package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// ErrNilObject is returned when a field or method is used on a null object.
var ErrNilObject = errors.New("object is null")

// class is a registered Go struct type.
type class struct {
	name         string
	value        *typesys.Type
	pointer      *typesys.Type
	goType       reflect.Type
	base         *class
	fields       []*field
	fieldsByName map[string]*field
	functions    map[string]*function
	singleton    any
}

// ClassOption customises a class registration.
type ClassOption func(*class)

// Singleton declares the instance used as "self" when a method call leaves
// its self pin unconnected. obj must be a pointer to the class's struct.
func Singleton(obj any) ClassOption {
	return func(c *class) {
		if reflect.TypeOf(obj) != reflect.PointerTo(c.goType) {
			panic(fmt.Sprintf("singleton for class '%s' must be a %s", c.name, reflect.PointerTo(c.goType)))
		}
		c.singleton = obj
	}
}

// RegisterClass registers the struct type of sample under name. sample may be
// a struct value or a pointer to one, typically a typed nil pointer such as
// (*Player)(nil).
//
// Exported fields of a supported type become script fields, named after the
// `script` struct tag when present; `script:"-"` hides a field. An embedded
// struct that is itself a registered class becomes the declared base, so a
// derived object may be connected wherever the base is expected.
func (r *Registry) RegisterClass(name string, sample any, opts ...ClassOption) *typesys.Type {
	if _, exists := r.classes[name]; exists {
		panic(fmt.Sprintf("class with name '%s' already registered", name))
	}
	goType := reflect.TypeOf(sample)
	if goType != nil && goType.Kind() == reflect.Pointer {
		goType = goType.Elem()
	}
	if goType == nil || goType.Kind() != reflect.Struct {
		panic(fmt.Sprintf("class '%s' must be backed by a struct type, got %v", name, goType))
	}
	if _, exists := r.byGo[goType]; exists {
		panic(fmt.Sprintf("go type %s already registered", goType))
	}

	c := &class{
		name:         name,
		goType:       goType,
		fieldsByName: make(map[string]*field),
		functions:    make(map[string]*function),
	}
	for i := 0; i < goType.NumField(); i++ {
		sf := goType.Field(i)
		if !sf.Anonymous {
			continue
		}
		embedded := sf.Type
		if embedded.Kind() == reflect.Pointer {
			embedded = embedded.Elem()
		}
		if base, ok := r.byGo[embedded]; ok {
			c.base = base
			break
		}
	}

	var baseType *typesys.Type
	if c.base != nil {
		baseType = c.base.value
	}
	c.value, c.pointer = typesys.NewClass(name, goType, baseType)
	for _, opt := range opts {
		opt(c)
	}

	// The class must be known before its fields are typed, so that a struct
	// can hold pointers to its own type.
	r.classes[name] = c
	r.byGo[goType] = c
	r.addType(c.value)
	r.addType(c.pointer)

	for i := 0; i < goType.NumField(); i++ {
		sf := goType.Field(i)
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		fieldName := sf.Name
		if tag, ok := sf.Tag.Lookup("script"); ok {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				fieldName = tagName
			}
		}
		ft, ok := r.typeOf(sf.Type)
		if !ok {
			slog.Debug("Skipping field with unsupported type.", "class", name, "field", sf.Name, "go_type", sf.Type.String())
			continue
		}
		f := &field{name: fieldName, typ: ft, goType: sf.Type, index: sf.Index, owner: c, reg: r}
		c.fields = append(c.fields, f)
		c.fieldsByName[fieldName] = f
	}

	baseName := ""
	if c.base != nil {
		baseName = c.base.name
	}
	slog.Debug("Registering class.", "name", name, "fields", len(c.fields), "base", baseName)
	return c.value
}

// field is a resolved accessor for one struct field.
type field struct {
	name   string
	typ    *typesys.Type
	goType reflect.Type
	index  []int
	owner  *class
	reg    *Registry
}

func (f *field) Name() string { return f.name }
func (f *field) Type() *typesys.Type { return f.typ }

// Get reads the field from obj.
func (f *field) Get(obj cty.Value) (cty.Value, error) {
	target, err := f.reg.target(obj, f.owner)
	if err != nil {
		return cty.NilVal, fmt.Errorf("get %s.%s: %w", f.owner.name, f.name, err)
	}
	return f.reg.toCty(target.FieldByIndex(f.index), f.typ)
}

// Set writes v, coerced to the field type, into obj.
func (f *field) Set(obj, v cty.Value) error {
	target, err := f.reg.target(obj, f.owner)
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", f.owner.name, f.name, err)
	}
	rv, err := f.reg.fromCty(v, f.typ, f.goType)
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", f.owner.name, f.name, err)
	}
	target.FieldByIndex(f.index).Set(rv)
	return nil
}

// target returns the addressable struct of class c held by obj, walking
// embedded bases when obj holds a derived class.
func (r *Registry) target(obj cty.Value, c *class) (reflect.Value, error) {
	if obj.IsNull() || !obj.IsKnown() {
		return reflect.Value{}, ErrNilObject
	}
	if !obj.Type().IsCapsuleType() {
		return reflect.Value{}, fmt.Errorf("value of type %s is not an object", obj.Type().FriendlyName())
	}
	p, ok := upcast(reflect.ValueOf(obj.EncapsulatedValue()), reflect.PointerTo(c.goType))
	if !ok {
		return reflect.Value{}, fmt.Errorf("object %s is not a %s", obj.Type().FriendlyName(), c.name)
	}
	return p.Elem(), nil
}
