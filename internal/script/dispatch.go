package script

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/typesys"
	"github.com/zclconf/go-cty/cty"
)

// Payload supplies the field values of a dispatched event.
type Payload interface {
	Lookup(name string) (cty.Value, bool)
}

// MapPayload is a Payload backed by a plain map, typically decoded from
// JSON.
type MapPayload map[string]cty.Value

func (p MapPayload) Lookup(name string) (cty.Value, bool) {
	v, ok := p[name]
	return v, ok
}

type objectPayload struct {
	resolver typesys.Resolver
	class    string
	obj      cty.Value
}

// ObjectPayload wraps a registered Go object, so that its fields feed the
// event node's outputs of the same name.
func ObjectPayload(r typesys.Resolver, obj any) (Payload, error) {
	v, t, err := r.Wrap(obj)
	if err != nil {
		return nil, fmt.Errorf("event payload: %w", err)
	}
	if !t.IsObject() {
		return nil, fmt.Errorf("event payload: %s is not a class", t)
	}
	return &objectPayload{resolver: r, class: t.ValueType().Name, obj: v}, nil
}

func (p *objectPayload) Lookup(name string) (cty.Value, bool) {
	f, ok := p.resolver.Field(p.class, name)
	if !ok {
		return cty.NilVal, false
	}
	v, err := f.Get(p.obj)
	if err != nil {
		return cty.NilVal, false
	}
	return v, true
}

// Execute dispatches a named event. An event no node handles is a no-op.
// Otherwise the payload's fields are bound onto the event node's outputs by
// name and control flow runs from the node's "fired" target until no work
// is left. payload may be nil.
//
// Resolution failures inside nodes are logged through the logger carried by
// ctx and do not stop execution; ctx is also handed to host functions.
func (s *Script) Execute(ctx context.Context, event string, payload Payload) error {
	if !s.compiled {
		return ErrNotCompiled
	}
	logger := ctxlog.FromContext(ctx)
	id, ok := s.events[event]
	if !ok {
		logger.Debug("No handler for event.", "event", event)
		return nil
	}
	n := s.nodes[id]

	s.running++
	defer func() { s.running-- }()

	if payload != nil {
		for _, p := range n.DataOutputs() {
			if v, ok := payload.Lookup(p.Name); ok {
				p.value = typesys.Convert(v, p.Type)
			}
		}
	}

	logger.Debug("Executing event.", "event", event, "node", n.Name)
	return newExecutor(ctx, s).run(n)
}

// Running reports whether an Execute call is in progress.
func (s *Script) Running() bool {
	return s.running > 0
}
