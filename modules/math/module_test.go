package math

import (
	"context"
	"testing"

	"github.com/specialistvlad/gridscript/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func TestMath(t *testing.T) {
	r := registry.New()
	r.Use(&Module{})

	testCases := []struct {
		fn   string
		args []cty.Value
		want cty.Value
	}{
		{"Add", []cty.Value{cty.NumberIntVal(2), cty.NumberIntVal(3)}, cty.NumberIntVal(5)},
		{"Sub", []cty.Value{cty.NumberIntVal(2), cty.NumberIntVal(3)}, cty.NumberIntVal(-1)},
		{"Mul", []cty.Value{cty.NumberIntVal(4), cty.NumberIntVal(3)}, cty.NumberIntVal(12)},
		{"Div", []cty.Value{cty.NumberIntVal(7), cty.NumberIntVal(2)}, cty.NumberIntVal(3)},
		{"Mod", []cty.Value{cty.NumberIntVal(7), cty.NumberIntVal(2)}, cty.NumberIntVal(1)},
		{"Min", []cty.Value{cty.NumberIntVal(7), cty.NumberIntVal(2)}, cty.NumberIntVal(2)},
		{"Max", []cty.Value{cty.NumberIntVal(7), cty.NumberIntVal(2)}, cty.NumberIntVal(7)},
		{"Clamp", []cty.Value{cty.NumberIntVal(12), cty.NumberIntVal(0), cty.NumberIntVal(10)}, cty.NumberIntVal(10)},
		{"AddFloat", []cty.Value{cty.NumberFloatVal(0.5), cty.NumberFloatVal(0.25)}, cty.NumberFloatVal(0.75)},
		{"MulFloat", []cty.Value{cty.NumberFloatVal(0.5), cty.NumberFloatVal(4)}, cty.NumberFloatVal(2)},
		{"Less", []cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}, cty.True},
		{"Greater", []cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(2)}, cty.False},
		{"Equal", []cty.Value{cty.NumberIntVal(2), cty.NumberIntVal(2)}, cty.True},
		{"Not", []cty.Value{cty.True}, cty.False},
		{"And", []cty.Value{cty.True, cty.False}, cty.False},
		{"Or", []cty.Value{cty.True, cty.False}, cty.True},
	}
	for _, tc := range testCases {
		t.Run(tc.fn, func(t *testing.T) {
			fn, ok := r.Function("Math", tc.fn)
			require.True(t, ok)
			assert.True(t, fn.Const())
			got, err := fn.Invoke(context.Background(), tc.args)
			require.NoError(t, err)
			assert.True(t, got.RawEquals(tc.want), "got %#v", got)
		})
	}
}

func TestMath_DivisionByZero(t *testing.T) {
	r := registry.New()
	r.Use(&Module{})
	for _, name := range []string{"Div", "Mod"} {
		fn, ok := r.Function("Math", name)
		require.True(t, ok)
		_, err := fn.Invoke(context.Background(), []cty.Value{cty.NumberIntVal(1), cty.Zero})
		assert.ErrorIs(t, err, ErrDivisionByZero)
	}
}
