// Package registry provides the reflection-backed type registry scripts are
// resolved against.
//
// The Registry maps the string identifiers used in script documents (class
// names such as "Player", function names such as "Print.Line") to Go struct
// types, their exported fields and Go functions. Field and argument values
// cross the boundary as cty values; the registry converts them to and from
// the concrete Go types with gocty.
//
// Registration is a startup concern. Registering the same name twice is a
// programmer error and panics.
package registry
