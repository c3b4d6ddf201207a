package statestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/document"
	"github.com/specialistvlad/gridscript/internal/script"
)

// File stores each snapshot as an HCL document holding only variable
// blocks, so snapshots read like the scripts they belong to.
type File struct {
	dir string
	ttl time.Duration
}

// NewFile returns a store writing into dir, creating it when needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("state directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

// WithTTL makes snapshots older than ttl restore as not found. Zero keeps
// them forever.
func (f *File) WithTTL(ttl time.Duration) *File {
	f.ttl = ttl
	return f
}

func (f *File) path(name string) string {
	return filepath.Join(f.dir, name+".state.hcl")
}

func (f *File) Save(ctx context.Context, name string, vars *script.Variables) error {
	doc := &document.Document{}
	for _, e := range Snapshot(vars) {
		doc.Variables = append(doc.Variables, &document.Variable{Name: e.Name, Type: e.Type, Value: e.Value})
	}
	if err := doc.WriteFile(f.path(name)); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Snapshot saved.", "script", name, "variables", len(doc.Variables))
	return nil
}

func (f *File) Restore(ctx context.Context, name string, vars *script.Variables) error {
	path := f.path(name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	if age := time.Since(info.ModTime()); f.ttl > 0 && age > f.ttl {
		ctxlog.FromContext(ctx).Debug("Snapshot expired.", "script", name, "age", age.String())
		return fmt.Errorf("%w: %s expired", ErrNotFound, name)
	}
	doc, err := document.Load(path)
	if err != nil {
		return err
	}
	entries := make([]Entry, 0, len(doc.Variables))
	for _, v := range doc.Variables {
		entries = append(entries, Entry{Name: v.Name, Type: v.Type, Value: v.Value})
	}
	return Apply(ctx, vars, entries)
}

func (f *File) Close() error { return nil }
