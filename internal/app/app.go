package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/fsutil"
	"github.com/specialistvlad/gridscript/internal/registry"
	"github.com/specialistvlad/gridscript/internal/script"
	"github.com/specialistvlad/gridscript/internal/statestore"
	"github.com/specialistvlad/gridscript/modules/socketio"
	"go.uber.org/multierr"
)

const (
	scriptExt = ".hcl"
	stateExt  = ".state.hcl"
)

// hosted is a loaded script. Scripts are not safe for concurrent use, and
// socket.io events arrive on their own goroutines, so every access goes
// through mu.
type hosted struct {
	name   string
	mu     sync.Mutex
	script *script.Script
}

// execute runs one event, turning an engine panic into an error so a bad
// script cannot take the host down.
func (h *hosted) execute(ctx context.Context, event string, payload script.Payload) (err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("script %s panicked: %v", h.name, r)
		}
	}()
	return h.script.Execute(ctxlog.With(ctx, "script", h.name, "event", event), event, payload)
}

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	config   *Config
	socket   *socketio.Socket
	store    statestore.Store

	ctx        context.Context
	httpServer *http.Server

	scripts []*hosted
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance, including its own isolated logger and registry.
// Without explicit modules the core modules are registered.
func NewApp(outW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	sock := &socketio.Socket{}
	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules(outW, sock)
	}
	reg.Use(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "classes", reg.Classes())

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		config:   cfg,
		socket:   sock,
		ctx:      ctxlog.WithLogger(context.Background(), logger),
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// ScriptNames returns the names of the loaded scripts, sorted.
func (a *App) ScriptNames() []string {
	names := make([]string, len(a.scripts))
	for i, h := range a.scripts {
		names[i] = h.name
	}
	return names
}

// Script returns the loaded script with the given name, or nil.
func (a *App) Script(name string) *script.Script {
	for _, h := range a.scripts {
		if h.name == name {
			return h.script
		}
	}
	return nil
}

func (a *App) scriptOptions() []script.Option {
	return []script.Option{
		script.WithMaxSteps(a.config.MaxSteps),
		script.WithAutoRecompile(a.config.AutoRecompile),
	}
}

// scriptPaths lists the script files under the configured path. Snapshot
// files written by the file state store are skipped.
func (a *App) scriptPaths() (string, []string, error) {
	root := a.config.ScriptPath
	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read script path: %w", err)
	}
	if !info.IsDir() {
		return filepath.Dir(root), []string{root}, nil
	}
	files, err := fsutil.FindFilesByExtension(root, scriptExt, stateExt)
	if err != nil {
		return "", nil, fmt.Errorf("failed to find scripts in %s: %w", root, err)
	}
	return root, files, nil
}

// scriptName derives a script's name from its path relative to root.
func scriptName(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), scriptExt)
}

// LoadScripts loads and compiles every script under the configured path and
// restores saved variables when a state store is open. A script that fails
// to load is reported and skipped.
func (a *App) LoadScripts(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading scripts...", "script_path", a.config.ScriptPath)

	root, paths, err := a.scriptPaths()
	if err != nil {
		return err
	}

	var errs error
	for _, path := range paths {
		h := &hosted{name: scriptName(root, path), script: script.New(a.registry, a.scriptOptions()...)}
		if err := h.script.Load(ctx, path); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if a.store != nil {
			err := a.store.Restore(ctx, h.name, h.script.Variables())
			switch {
			case errors.Is(err, statestore.ErrNotFound):
				logger.Debug("No saved state for script.", "script", h.name)
			case err != nil:
				errs = multierr.Append(errs, fmt.Errorf("script %s: %w", h.name, err))
				continue
			}
		}
		a.scripts = append(a.scripts, h)
		logger.Info("Script loaded.", "script", h.name, "events", h.script.Events())
	}
	return errs
}

// Dispatch fires event in every loaded script. Failures of individual
// scripts are collected; the remaining scripts still run.
func (a *App) Dispatch(ctx context.Context, event string, payload script.Payload) error {
	var errs error
	for _, h := range a.scripts {
		if err := h.execute(ctx, event, payload); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("script %s: %w", h.name, err))
		}
	}
	return errs
}

// Reload reloads every script from disk. A script that fails to reload
// keeps running its previous version.
func (a *App) Reload(ctx context.Context) error {
	var errs error
	for _, h := range a.scripts {
		h.mu.Lock()
		err := h.script.Reload(ctx)
		h.mu.Unlock()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("script %s: %w", h.name, err))
		}
	}
	return errs
}

// SaveState writes the variables of every script to the state store, if
// one is open.
func (a *App) SaveState(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	var errs error
	for _, h := range a.scripts {
		h.mu.Lock()
		err := a.store.Save(ctx, h.name, h.script.Variables())
		h.mu.Unlock()
		errs = multierr.Append(errs, err)
	}
	return errs
}
