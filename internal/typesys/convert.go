package typesys

import (
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Zero returns the zero value of t. Class types yield a null capsule.
func Zero(t *Type) cty.Value {
	if t == nil {
		return cty.NilVal
	}
	switch t.Kind {
	case KindBool:
		return cty.False
	case KindInt32, KindUint32, KindFloat32:
		return cty.Zero
	case KindString, KindCharPtr, KindName:
		return cty.StringVal("")
	case KindObject:
		return cty.NullVal(t.Cty)
	default:
		return cty.NullVal(cty.DynamicPseudoType)
	}
}

// Convert coerces v into a value of type to. It never fails: values that
// cannot be interpreted (an unparsable string, a null) become the zero value
// of the target. Numbers truncate toward zero and the 32-bit integer kinds
// wrap the way a C cast does. Class values pass through unchanged.
func Convert(v cty.Value, to *Type) cty.Value {
	if to == nil || to.Kind == KindVoid {
		return v
	}
	if v.IsNull() || !v.IsKnown() {
		return Zero(to)
	}

	switch to.Kind {
	case KindObject:
		return v
	case KindBool:
		if v.Type().Equals(cty.Bool) {
			return v
		}
		if v.Type().Equals(cty.String) {
			if b, err := convert.Convert(v, cty.Bool); err == nil {
				return b
			}
		}
		n, ok := number(v)
		if !ok {
			return cty.False
		}
		return cty.BoolVal(n.Sign() != 0)
	case KindInt32:
		n, ok := number(v)
		if !ok {
			return Zero(to)
		}
		i, _ := n.Int64()
		return cty.NumberIntVal(int64(int32(i)))
	case KindUint32:
		n, ok := number(v)
		if !ok {
			return Zero(to)
		}
		i, _ := n.Int64()
		return cty.NumberUIntVal(uint64(uint32(i)))
	case KindFloat32:
		n, ok := number(v)
		if !ok {
			return Zero(to)
		}
		f, _ := n.Float64()
		return cty.NumberFloatVal(float64(float32(f)))
	case KindString, KindCharPtr, KindName:
		if v.Type().Equals(cty.String) {
			return v
		}
		s, err := convert.Convert(v, cty.String)
		if err != nil {
			return Zero(to)
		}
		return s
	}
	return v
}

// number interprets a primitive value as a number.
func number(v cty.Value) (*big.Float, bool) {
	switch {
	case v.Type().Equals(cty.Number):
		return v.AsBigFloat(), true
	case v.Type().Equals(cty.Bool):
		if v.True() {
			return big.NewFloat(1), true
		}
		return new(big.Float), true
	case v.Type().Equals(cty.String):
		n, err := convert.Convert(v, cty.Number)
		if err != nil {
			return nil, false
		}
		return n.AsBigFloat(), true
	}
	return nil, false
}

// Truthy reads v as a branch condition.
func Truthy(v cty.Value) bool {
	return Convert(v, Bool).True()
}

// Int reads v as an int32.
func Int(v cty.Value) int32 {
	i, _ := Convert(v, Int32).AsBigFloat().Int64()
	return int32(i)
}

// Format renders v for logs and diagnostics.
func Format(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case !v.IsKnown():
		return "unknown"
	case v.Type().IsCapsuleType():
		return "<" + v.Type().FriendlyName() + ">"
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return v.GoString()
	}
	return s.AsString()
}
