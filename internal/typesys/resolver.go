package typesys

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// Resolver is the type registry the engine resolves names against. Lookups
// of unknown names report false rather than failing.
type Resolver interface {
	// Type resolves a registered type name, primitives included.
	Type(name string) (*Type, bool)
	// Fields lists the fields of a class in declaration order.
	Fields(class string) ([]Field, bool)
	// Field resolves a single field accessor of a class.
	Field(class, name string) (Field, bool)
	// Function resolves a function handle of a class.
	Function(class, name string) (Function, bool)
	// New returns a default-constructed value of t.
	New(t *Type) (cty.Value, error)
	// Wrap turns a host object into a dynamic value.
	Wrap(obj any) (cty.Value, *Type, error)
}

// Field is a resolved member accessor.
type Field interface {
	Name() string
	Type() *Type
	Get(obj cty.Value) (cty.Value, error)
	Set(obj, v cty.Value) error
}

// Param describes one function parameter.
type Param struct {
	Name string
	Type *Type
}

// Function is a resolved function handle.
type Function interface {
	Name() string
	// Params lists the parameters in call order. For methods the first one is
	// "self".
	Params() []Param
	// Result is nil for functions returning nothing.
	Result() *Type
	Method() bool
	Static() bool
	Const() bool
	// Default returns a fallback value for parameter i, if the registry
	// knows one (the singleton instance of a service class for "self").
	Default(i int) (cty.Value, bool)
	Invoke(ctx context.Context, args []cty.Value) (cty.Value, error)
}
