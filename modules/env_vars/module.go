package env_vars

import (
	"os"

	"github.com/specialistvlad/gridscript/internal/registry"
)

// Module registers the "Env" class, giving scripts read access to the
// process environment.
type Module struct{}

// Env has no state; all its functions are class-level.
type Env struct{}

// Get returns the value of the variable, or "" when unset.
func Get(name string) string {
	return os.Getenv(name)
}

// Has reports whether the variable is set, even to "".
func Has(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// GetOr returns the value of the variable, or fallback when unset.
func GetOr(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

// Register registers the class and its functions with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterClass("Env", (*Env)(nil))
	r.RegisterFunction("Env", "Get", Get, registry.Const(), registry.Args("name"))
	r.RegisterFunction("Env", "Has", Has, registry.Const(), registry.Args("name"))
	r.RegisterFunction("Env", "GetOr", GetOr, registry.Const(), registry.Args("name", "fallback"))
}
