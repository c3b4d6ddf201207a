package statestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// ErrNotFound is returned by Restore when no snapshot exists for a script.
var ErrNotFound = errors.New("snapshot not found")

// Store saves and restores variable snapshots keyed by script name.
type Store interface {
	Save(ctx context.Context, name string, vars *script.Variables) error
	Restore(ctx context.Context, name string, vars *script.Variables) error
	Close() error
}

// Entry is one stored variable.
type Entry struct {
	Name  string
	Type  string
	Value cty.Value
}

// Snapshot collects the primitive variables of vars in declaration order.
func Snapshot(vars *script.Variables) []Entry {
	var entries []Entry
	for _, name := range vars.Names() {
		v := vars.Lookup(name)
		if !v.Type.IsPrimitive() {
			continue
		}
		entries = append(entries, Entry{Name: v.Name, Type: v.Type.Name, Value: v.Value})
	}
	return entries
}

// Apply writes entries back into vars. Entries for variables that are no
// longer declared, or whose type changed, are skipped and logged.
func Apply(ctx context.Context, vars *script.Variables, entries []Entry) error {
	logger := ctxlog.FromContext(ctx)
	for _, e := range entries {
		v := vars.Lookup(e.Name)
		if v == nil || v.Type.Name != e.Type {
			logger.Warn("Skipping stale snapshot entry.", "variable", e.Name, "type", e.Type)
			continue
		}
		if err := vars.Set(e.Name, e.Value); err != nil {
			return fmt.Errorf("restoring variable %q: %w", e.Name, err)
		}
	}
	return nil
}

// Open picks a store from a location: a redis:// or rediss:// URL selects
// Redis, anything else is a directory for snapshot files. Snapshots older
// than ttl are treated as missing; zero keeps them forever.
func Open(ctx context.Context, location string, ttl time.Duration) (Store, error) {
	if strings.HasPrefix(location, "redis://") || strings.HasPrefix(location, "rediss://") {
		r, err := NewRedis(ctx, location)
		if err != nil {
			return nil, err
		}
		return r.WithTTL(ttl), nil
	}
	f, err := NewFile(location)
	if err != nil {
		return nil, err
	}
	return f.WithTTL(ttl), nil
}
