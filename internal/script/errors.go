package script

import (
	"errors"
	"fmt"
)

var (
	// ErrNotCompiled is returned by Execute when the script has no valid
	// compilation, either because Compile was never called or because the
	// last Compile failed.
	ErrNotCompiled = errors.New("script is not compiled")

	// ErrBusy is returned when a reload is committed while an Execute call
	// for the same script is still running.
	ErrBusy = errors.New("script is executing")

	// ErrUnknownKind is returned when a node kind name is not in the catalog.
	ErrUnknownKind = errors.New("unknown node kind")

	// ErrStepLimit is returned when an Execute call exceeds the limit set
	// with WithMaxSteps.
	ErrStepLimit = errors.New("step limit exceeded")
)

// CompileError is a structural error tied to a node and, optionally, one of
// its pins. Compile and Load aggregate them with multierr; use
// multierr.Errors to list them individually.
type CompileError struct {
	Node string
	Pin  string
	Msg  string
}

func (e *CompileError) Error() string {
	if e.Pin == "" {
		return fmt.Sprintf("node %q: %s", e.Node, e.Msg)
	}
	return fmt.Sprintf("node %q, pin %q: %s", e.Node, e.Pin, e.Msg)
}

// InvariantError is the panic value raised when the engine is used in a way
// that can only result from a programming error, such as reading a control
// pin as data.
type InvariantError struct {
	Msg string
}

func (e InvariantError) Error() string {
	return "script invariant violated: " + e.Msg
}

func invariant(format string, args ...any) {
	panic(InvariantError{Msg: fmt.Sprintf(format, args...)})
}
