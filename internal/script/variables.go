package script

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// Variable is one script-level variable.
type Variable struct {
	Name  string
	Type  *typesys.Type
	Value cty.Value
}

// Variables is the ordered variable registry of a script. Variable nodes
// read and write it in place during execution.
type Variables struct {
	order []string
	vars  map[string]*Variable
}

func newVariables() *Variables {
	return &Variables{vars: make(map[string]*Variable)}
}

// Declare adds a variable holding v coerced to t.
func (vs *Variables) Declare(name string, t *typesys.Type, v cty.Value) error {
	if name == "" {
		return fmt.Errorf("variable name must not be empty")
	}
	if _, exists := vs.vars[name]; exists {
		return fmt.Errorf("variable %q already declared", name)
	}
	if t == nil || t.Kind == typesys.KindVoid {
		return fmt.Errorf("variable %q: invalid type %s", name, t)
	}
	vs.vars[name] = &Variable{Name: name, Type: t, Value: typesys.Convert(v, t)}
	vs.order = append(vs.order, name)
	return nil
}

// Lookup returns the named variable, or nil.
func (vs *Variables) Lookup(name string) *Variable {
	return vs.vars[name]
}

// Get returns the value of the named variable.
func (vs *Variables) Get(name string) (cty.Value, bool) {
	v, ok := vs.vars[name]
	if !ok {
		return cty.NilVal, false
	}
	return v.Value, true
}

// Set stores v, coerced to the variable's type.
func (vs *Variables) Set(name string, v cty.Value) error {
	variable, ok := vs.vars[name]
	if !ok {
		return fmt.Errorf("variable %q is not declared", name)
	}
	if variable.Type.IsObject() && !v.IsNull() && !v.Type().IsCapsuleType() {
		return fmt.Errorf("variable %q: cannot store %s in %s", name, v.Type().FriendlyName(), variable.Type)
	}
	variable.Value = typesys.Convert(v, variable.Type)
	return nil
}

// Names returns the variable names in declaration order.
func (vs *Variables) Names() []string {
	return slices.Clone(vs.order)
}

// Len returns the number of variables.
func (vs *Variables) Len() int {
	return len(vs.order)
}
