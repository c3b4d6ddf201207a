// Package typesys describes the value types a script can carry and the rules
// that govern them: which pin types may be connected, how a value of one
// primitive kind is coerced into another, and what the zero value of a type
// is.
//
// Values are go-cty values. Booleans map to cty.Bool, the numeric kinds
// (int32, uint32, float32) share cty.Number and are normalised on conversion,
// the string kinds (string, char*, name) share cty.String, and class
// instances are capsule values wrapping a Go pointer.
//
// The package also declares Resolver, the boundary between the engine and
// whatever type registry the host provides.
package typesys
