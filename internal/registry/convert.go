package registry

import (
	"fmt"
	"reflect"
	"unique"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

var (
	bytesType  = reflect.TypeFor[[]byte]()
	handleType = reflect.TypeFor[unique.Handle[string]]()
)

// typeOf maps a Go type onto an engine type.
func (r *Registry) typeOf(gt reflect.Type) (*typesys.Type, bool) {
	switch gt {
	case bytesType:
		return typesys.CharPtr, true
	case handleType:
		return typesys.Name, true
	}
	switch gt.Kind() {
	case reflect.Bool:
		return typesys.Bool, true
	case reflect.Int32:
		return typesys.Int32, true
	case reflect.Uint32:
		return typesys.Uint32, true
	case reflect.Float32:
		return typesys.Float32, true
	case reflect.String:
		return typesys.String, true
	case reflect.Pointer:
		if c, ok := r.byGo[gt.Elem()]; ok {
			return c.pointer, true
		}
	case reflect.Struct:
		if c, ok := r.byGo[gt]; ok {
			return c.value, true
		}
	}
	return nil, false
}

// toCty converts a Go value of engine type t into a cty value.
func (r *Registry) toCty(rv reflect.Value, t *typesys.Type) (cty.Value, error) {
	switch t.Kind {
	case typesys.KindCharPtr:
		return cty.StringVal(string(rv.Bytes())), nil
	case typesys.KindName:
		if rv.IsZero() {
			return cty.StringVal(""), nil
		}
		return cty.StringVal(rv.Interface().(unique.Handle[string]).Value()), nil
	case typesys.KindObject:
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return cty.NullVal(t.Cty), nil
			}
			return cty.CapsuleVal(t.Cty, rv.Interface()), nil
		}
		if rv.CanAddr() {
			return cty.CapsuleVal(t.Cty, rv.Addr().Interface()), nil
		}
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		return cty.CapsuleVal(t.Cty, p.Interface()), nil
	case typesys.KindVoid:
		return cty.NilVal, fmt.Errorf("void has no values")
	}
	v, err := gocty.ToCtyValue(rv.Interface(), t.Cty)
	if err != nil {
		return cty.NilVal, err
	}
	return typesys.Convert(v, t), nil
}

// fromCty converts v into a Go value of type gt, coercing through t first.
func (r *Registry) fromCty(v cty.Value, t *typesys.Type, gt reflect.Type) (reflect.Value, error) {
	if t.IsObject() {
		if v.IsNull() || !v.IsKnown() {
			return reflect.Zero(gt), nil
		}
		if !v.Type().IsCapsuleType() {
			return reflect.Value{}, fmt.Errorf("value of type %s is not an object", v.Type().FriendlyName())
		}
		want := gt
		if gt.Kind() != reflect.Pointer {
			want = reflect.PointerTo(gt)
		}
		p, ok := upcast(reflect.ValueOf(v.EncapsulatedValue()), want)
		if !ok {
			return reflect.Value{}, fmt.Errorf("object %s cannot be used as %s", v.Type().FriendlyName(), t.Name)
		}
		if gt.Kind() != reflect.Pointer {
			return p.Elem(), nil
		}
		return p, nil
	}

	v = typesys.Convert(v, t)
	switch t.Kind {
	case typesys.KindCharPtr:
		return reflect.ValueOf([]byte(v.AsString())), nil
	case typesys.KindName:
		return reflect.ValueOf(unique.Make(v.AsString())), nil
	}
	ptr := reflect.New(gt)
	if err := gocty.FromCtyValue(v, ptr.Interface()); err != nil {
		return reflect.Value{}, err
	}
	return ptr.Elem(), nil
}

// upcast walks embedded structs of the object p points to until it finds a
// pointer of type want.
func upcast(p reflect.Value, want reflect.Type) (reflect.Value, bool) {
	if p.Type() == want {
		return p, true
	}
	if p.Kind() != reflect.Pointer || p.IsNil() || p.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, false
	}
	elem := p.Elem()
	for i := 0; i < elem.NumField(); i++ {
		sf := elem.Type().Field(i)
		if !sf.Anonymous {
			continue
		}
		fv := elem.Field(i)
		var next reflect.Value
		switch sf.Type.Kind() {
		case reflect.Pointer:
			if fv.IsNil() {
				continue
			}
			next = fv
		case reflect.Struct:
			next = fv.Addr()
		default:
			continue
		}
		if found, ok := upcast(next, want); ok {
			return found, true
		}
	}
	return reflect.Value{}, false
}
