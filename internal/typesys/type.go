package typesys

import (
	"reflect"

	"github.com/zclconf/go-cty/cty"
)

// Kind classifies a Type.
type Kind int

const (
	KindVoid Kind = iota
	KindBool
	KindInt32
	KindUint32
	KindFloat32
	KindString
	KindCharPtr
	KindName
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindUint32:
		return "uint32"
	case KindFloat32:
		return "float32"
	case KindString:
		return "string"
	case KindCharPtr:
		return "char*"
	case KindName:
		return "name"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Type describes a value type known to the engine.
type Type struct {
	// Name is the registered type name, e.g. "int32", "Player" or "Player*".
	Name string
	Kind Kind
	// Pointer marks the pointer flavour of a class type. Elem is then the
	// value flavour.
	Pointer bool
	Elem    *Type
	// Base is the declared upcast target of a class type, if any.
	Base *Type
	// Cty is the cty type used to carry values of this type.
	Cty cty.Type
}

func (t *Type) String() string {
	if t == nil {
		return "<control>"
	}
	return t.Name
}

// IsPrimitive reports whether t is one of the predeclared value kinds.
func (t *Type) IsPrimitive() bool {
	return t != nil && t.Kind != KindObject && t.Kind != KindVoid
}

// IsObject reports whether t is a class type, in either flavour.
func (t *Type) IsObject() bool {
	return t != nil && t.Kind == KindObject
}

// ValueType strips the pointer flavour of a class type.
func (t *Type) ValueType() *Type {
	if t != nil && t.Pointer && t.Elem != nil {
		return t.Elem
	}
	return t
}

// Predeclared types.
var (
	Void    = &Type{Name: "void", Kind: KindVoid, Cty: cty.DynamicPseudoType}
	Bool    = &Type{Name: "bool", Kind: KindBool, Cty: cty.Bool}
	Int32   = &Type{Name: "int32", Kind: KindInt32, Cty: cty.Number}
	Uint32  = &Type{Name: "uint32", Kind: KindUint32, Cty: cty.Number}
	Float32 = &Type{Name: "float32", Kind: KindFloat32, Cty: cty.Number}
	String  = &Type{Name: "string", Kind: KindString, Cty: cty.String}
	CharPtr = &Type{Name: "char*", Kind: KindCharPtr, Cty: cty.String}
	Name    = &Type{Name: "name", Kind: KindName, Cty: cty.String}
)

var primitives = map[string]*Type{
	Bool.Name:    Bool,
	Int32.Name:   Int32,
	Uint32.Name:  Uint32,
	Float32.Name: Float32,
	String.Name:  String,
	CharPtr.Name: CharPtr,
	Name.Name:    Name,
}

// Primitive looks up a predeclared value type by name.
func Primitive(name string) (*Type, bool) {
	t, ok := primitives[name]
	return t, ok
}

// Primitives returns the predeclared value types in a stable order.
func Primitives() []*Type {
	return []*Type{Bool, Int32, Uint32, Float32, String, CharPtr, Name}
}

// NewClass builds the value and pointer flavours of a class type backed by
// the Go struct type goType. Both flavours share one capsule type, whose
// values always hold a *goType.
func NewClass(name string, goType reflect.Type, base *Type) (value, pointer *Type) {
	capsule := cty.Capsule(name, goType)
	value = &Type{Name: name, Kind: KindObject, Base: base, Cty: capsule}
	pointer = &Type{Name: name + "*", Kind: KindObject, Pointer: true, Elem: value, Base: base, Cty: capsule}
	return value, pointer
}
