package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

type functionOptions struct {
	static   bool
	constant bool
	args     []string
}

// FunctionOption customises a function registration.
type FunctionOption func(*functionOptions)

// Const marks a function as free of side effects. Calls to const functions
// are pure and evaluated on demand.
func Const() FunctionOption {
	return func(o *functionOptions) { o.constant = true }
}

// Static marks a function as class-level even when its first parameter
// happens to be a pointer to the class.
func Static() FunctionOption {
	return func(o *functionOptions) { o.static = true }
}

// Args names the non-self parameters in order.
func Args(names ...string) FunctionOption {
	return func(o *functionOptions) { o.args = names }
}

// function is a registered Go function bound to a class.
type function struct {
	name       string
	owner      *class
	fn         reflect.Value
	params     []typesys.Param
	goParams   []reflect.Type
	withCtx    bool
	method     bool
	static     bool
	constant   bool
	result     *typesys.Type
	returnsErr bool
	reg        *Registry
}

// RegisterFunction registers fn as function name of the class className.
//
// A leading context.Context parameter is supplied by the engine. If the next
// parameter is a pointer to the class's struct, the function is an instance
// method and that parameter becomes the "self" pin. fn may return nothing, a
// value, an error, or a value and an error.
func (r *Registry) RegisterFunction(className, name string, fn any, opts ...FunctionOption) {
	c, ok := r.classes[className]
	if !ok {
		panic(fmt.Sprintf("function '%s' registered on unknown class '%s'", name, className))
	}
	if _, exists := c.functions[name]; exists {
		panic(fmt.Sprintf("function '%s.%s' already registered", className, name))
	}
	var o functionOptions
	for _, opt := range opts {
		opt(&o)
	}

	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		panic(fmt.Sprintf("function '%s.%s' must be a func, got %s", className, name, ft))
	}

	f := &function{name: name, owner: c, fn: fv, constant: o.constant, reg: r}
	first := 0
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		f.withCtx = true
		first = 1
	}
	if !o.static && ft.NumIn() > first && ft.In(first) == reflect.PointerTo(c.goType) {
		f.method = true
		f.params = append(f.params, typesys.Param{Name: "self", Type: c.pointer})
		f.goParams = append(f.goParams, ft.In(first))
		first++
	}
	f.static = !f.method

	argCount := ft.NumIn() - first
	if o.args != nil && len(o.args) != argCount {
		panic(fmt.Sprintf("function '%s.%s' declares %d argument names for %d arguments", className, name, len(o.args), argCount))
	}
	for i := first; i < ft.NumIn(); i++ {
		pt, ok := r.typeOf(ft.In(i))
		if !ok {
			panic(fmt.Sprintf("function '%s.%s': unsupported parameter type %s", className, name, ft.In(i)))
		}
		argName := fmt.Sprintf("arg%d", i-first)
		if o.args != nil {
			argName = o.args[i-first]
		}
		f.params = append(f.params, typesys.Param{Name: argName, Type: pt})
		f.goParams = append(f.goParams, ft.In(i))
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			f.returnsErr = true
			break
		}
		f.result = r.mustType(className, name, ft.Out(0))
	case 2:
		if ft.Out(1) != errorType {
			panic(fmt.Sprintf("function '%s.%s': second result must be error", className, name))
		}
		f.result = r.mustType(className, name, ft.Out(0))
		f.returnsErr = true
	default:
		panic(fmt.Sprintf("function '%s.%s' returns too many values", className, name))
	}

	slog.Debug("Registering function.", "class", className, "name", name, "method", f.method, "const", f.constant)
	c.functions[name] = f
}

func (r *Registry) mustType(className, name string, gt reflect.Type) *typesys.Type {
	t, ok := r.typeOf(gt)
	if !ok {
		panic(fmt.Sprintf("function '%s.%s': unsupported result type %s", className, name, gt))
	}
	return t
}

func (f *function) Name() string { return f.name }
func (f *function) Params() []typesys.Param { return f.params }
func (f *function) Result() *typesys.Type { return f.result }
func (f *function) Method() bool { return f.method }
func (f *function) Static() bool { return f.static }
func (f *function) Const() bool { return f.constant }
func (f *function) String() string { return f.owner.name + "." + f.name }

// Default supplies the class singleton for an unconnected self pin.
func (f *function) Default(i int) (cty.Value, bool) {
	if !f.method || i != 0 || f.owner.singleton == nil {
		return cty.NilVal, false
	}
	return cty.CapsuleVal(f.owner.pointer.Cty, f.owner.singleton), true
}

// Invoke calls the Go function. Panics raised by the host function are
// returned as errors.
func (f *function) Invoke(ctx context.Context, args []cty.Value) (result cty.Value, err error) {
	if len(args) != len(f.params) {
		return cty.NilVal, fmt.Errorf("%s: expected %d arguments, got %d", f, len(f.params), len(args))
	}
	defer func() {
		if rec := recover(); rec != nil {
			result, err = cty.NilVal, fmt.Errorf("%s panicked: %v", f, rec)
		}
	}()

	in := make([]reflect.Value, 0, len(args)+1)
	if f.withCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}
	for i, p := range f.params {
		rv, err := f.reg.fromCty(args[i], p.Type, f.goParams[i])
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: argument %q: %w", f, p.Name, err)
		}
		if f.method && i == 0 && rv.IsNil() {
			return cty.NilVal, fmt.Errorf("%s: %w", f, ErrNilObject)
		}
		in = append(in, rv)
	}

	out := f.fn.Call(in)
	if f.returnsErr {
		if errV := out[len(out)-1]; !errV.IsNil() {
			return cty.NilVal, errV.Interface().(error)
		}
	}
	if f.result == nil {
		return cty.NilVal, nil
	}
	return f.reg.toCty(out[0], f.result)
}
