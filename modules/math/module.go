// Package math registers the "Math" class: side-effect free arithmetic,
// comparison and logic helpers. Every function is const, so calls are
// evaluated on demand as pure nodes.
package math

import (
	"errors"

	"github.com/specialistvlad/gridscript/internal/registry"
)

// ErrDivisionByZero is returned by Div and Mod.
var ErrDivisionByZero = errors.New("division by zero")

type Module struct{}

// Math has no state.
type Math struct{}

func Div(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}

func Mod(a, b int32) (int32, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a % b, nil
}

func Clamp(v, lo, hi int32) int32 {
	return min(max(v, lo), hi)
}

// Register registers the class and its functions with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterClass("Math", (*Math)(nil))

	binary := registry.Args("a", "b")
	r.RegisterFunction("Math", "Add", func(a, b int32) int32 { return a + b }, registry.Const(), binary)
	r.RegisterFunction("Math", "Sub", func(a, b int32) int32 { return a - b }, registry.Const(), binary)
	r.RegisterFunction("Math", "Mul", func(a, b int32) int32 { return a * b }, registry.Const(), binary)
	r.RegisterFunction("Math", "Div", Div, registry.Const(), binary)
	r.RegisterFunction("Math", "Mod", Mod, registry.Const(), binary)
	r.RegisterFunction("Math", "Min", func(a, b int32) int32 { return min(a, b) }, registry.Const(), binary)
	r.RegisterFunction("Math", "Max", func(a, b int32) int32 { return max(a, b) }, registry.Const(), binary)
	r.RegisterFunction("Math", "Clamp", Clamp, registry.Const(), registry.Args("value", "min", "max"))

	r.RegisterFunction("Math", "AddFloat", func(a, b float32) float32 { return a + b }, registry.Const(), binary)
	r.RegisterFunction("Math", "MulFloat", func(a, b float32) float32 { return a * b }, registry.Const(), binary)

	r.RegisterFunction("Math", "Less", func(a, b int32) bool { return a < b }, registry.Const(), binary)
	r.RegisterFunction("Math", "Greater", func(a, b int32) bool { return a > b }, registry.Const(), binary)
	r.RegisterFunction("Math", "Equal", func(a, b int32) bool { return a == b }, registry.Const(), binary)

	r.RegisterFunction("Math", "Not", func(v bool) bool { return !v }, registry.Const(), registry.Args("value"))
	r.RegisterFunction("Math", "And", func(a, b bool) bool { return a && b }, registry.Const(), binary)
	r.RegisterFunction("Math", "Or", func(a, b bool) bool { return a || b }, registry.Const(), binary)
}
