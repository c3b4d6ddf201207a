package typesys

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func int64Of(t *testing.T, v cty.Value) int64 {
	t.Helper()
	require.True(t, v.Type().Equals(cty.Number), "expected a number, got %s", v.Type().FriendlyName())
	i, _ := v.AsBigFloat().Int64()
	return i
}

func TestZero(t *testing.T) {
	assert.True(t, Zero(Bool).RawEquals(cty.False))
	assert.True(t, Zero(Int32).RawEquals(cty.Zero))
	assert.True(t, Zero(Float32).RawEquals(cty.Zero))
	assert.True(t, Zero(Name).RawEquals(cty.StringVal("")))
	assert.True(t, Zero(nil).IsNull())

	shapeT, _ := NewClass("Shape", reflect.TypeOf(shape{}), nil)
	z := Zero(shapeT)
	assert.True(t, z.IsNull())
	assert.True(t, z.Type().Equals(shapeT.Cty))
}

func TestConvert_Numbers(t *testing.T) {
	testCases := []struct {
		name string
		in   cty.Value
		to   *Type
		want int64
	}{
		{"float truncates toward zero", cty.NumberFloatVal(3.9), Int32, 3},
		{"negative float truncates toward zero", cty.NumberFloatVal(-3.9), Int32, -3},
		{"int32 wraps", cty.NumberIntVal(4294967295), Int32, -1},
		{"uint32 wraps", cty.NumberIntVal(-1), Uint32, 4294967295},
		{"bool true", cty.True, Int32, 1},
		{"bool false", cty.False, Uint32, 0},
		{"numeric string", cty.StringVal("42"), Int32, 42},
		{"fractional string", cty.StringVal("12.7"), Int32, 12},
		{"unparsable string", cty.StringVal("forty-two"), Int32, 0},
		{"null", cty.NullVal(cty.Number), Int32, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, int64Of(t, Convert(tc.in, tc.to)))
		})
	}
}

func TestConvert_Float32(t *testing.T) {
	got := Convert(cty.StringVal("1.5"), Float32)
	f, _ := got.AsBigFloat().Float64()
	assert.Equal(t, 1.5, f)

	got = Convert(cty.NumberIntVal(7), Float32)
	f, _ = got.AsBigFloat().Float64()
	assert.Equal(t, 7.0, f)
}

func TestConvert_Bool(t *testing.T) {
	assert.True(t, Convert(cty.NumberIntVal(2), Bool).True())
	assert.False(t, Convert(cty.Zero, Bool).True())
	assert.True(t, Convert(cty.StringVal("true"), Bool).True())
	assert.False(t, Convert(cty.StringVal("false"), Bool).True())
	assert.False(t, Convert(cty.StringVal("maybe"), Bool).True())
	assert.False(t, Convert(cty.NullVal(cty.Bool), Bool).True())
}

func TestConvert_Strings(t *testing.T) {
	assert.Equal(t, "5", Convert(cty.NumberIntVal(5), String).AsString())
	assert.Equal(t, "true", Convert(cty.True, Name).AsString())
	assert.Equal(t, "abc", Convert(cty.StringVal("abc"), CharPtr).AsString())
	assert.Equal(t, "", Convert(cty.NullVal(cty.String), String).AsString())
}

func TestConvert_ObjectsPassThrough(t *testing.T) {
	shapeT, _ := NewClass("Shape", reflect.TypeOf(shape{}), nil)
	obj := cty.CapsuleVal(shapeT.Cty, &shape{})

	got := Convert(obj, shapeT)
	assert.True(t, got.RawEquals(obj))
	assert.True(t, Convert(cty.NullVal(shapeT.Cty), shapeT).IsNull())
}

func TestTruthyAndInt(t *testing.T) {
	assert.True(t, Truthy(cty.NumberIntVal(1)))
	assert.False(t, Truthy(cty.StringVal("")))
	assert.Equal(t, int32(-2), Int(cty.NumberFloatVal(-2.5)))
	assert.Equal(t, int32(9), Int(cty.StringVal("9")))
}

func TestFormat(t *testing.T) {
	shapeT, _ := NewClass("Shape", reflect.TypeOf(shape{}), nil)

	assert.Equal(t, "null", Format(cty.NullVal(cty.Number)))
	assert.Equal(t, "5", Format(cty.NumberIntVal(5)))
	assert.Equal(t, "true", Format(cty.True))
	assert.Equal(t, "hi", Format(cty.StringVal("hi")))
	assert.Equal(t, "<Shape>", Format(cty.CapsuleVal(shapeT.Cty, &shape{})))
}
