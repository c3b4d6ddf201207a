package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/gridscript/internal/ctxlog"
	"github.com/specialistvlad/gridscript/internal/statestore"
	"github.com/specialistvlad/gridscript/modules/socketio"
)

// Run executes the main application logic: open the state store, load the
// scripts, fire the configured event, optionally serve socket.io events
// until ctx is cancelled, and save state on the way out.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if a.config.StatePath != "" {
		store, err := statestore.Open(ctx, a.config.StatePath, a.config.StateTTL)
		if err != nil {
			return fmt.Errorf("failed to open state store: %w", err)
		}
		a.store = store
		defer func() {
			a.store.Close()
			a.store = nil
		}()
	}

	if err := a.LoadScripts(ctx); err != nil {
		return fmt.Errorf("failed to load scripts: %w", err)
	}
	if len(a.scripts) == 0 {
		a.logger.Warn("No scripts found, nothing to run.")
		return nil
	}

	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		defer a.closeHealthCheckServer()
	}

	if a.config.Event != "" {
		payload, err := DecodePayload(a.config.Payload)
		if err != nil {
			return err
		}
		a.logger.Info("🚀 Dispatching event.", "event", a.config.Event)
		if err := a.Dispatch(ctx, a.config.Event, payload); err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}
	}

	if a.config.Serving() {
		if err := a.serve(ctx); err != nil {
			return err
		}
	}

	if err := a.SaveState(ctx); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")
	return nil
}

// serve forwards socket.io events into the scripts until ctx is done.
func (a *App) serve(ctx context.Context) error {
	cfg := socketio.Config{
		URL:            a.config.SocketIOURL,
		Namespace:      a.config.SocketIONamespace,
		Events:         a.config.SocketIOEvents,
		ConnectTimeout: a.config.SocketIOTimeout,
	}
	err := a.socket.Connect(ctx, cfg, func(event string, data map[string]any) {
		if err := a.Dispatch(ctx, event, PayloadFromMap(data)); err != nil {
			a.logger.Error("Event dispatch failed.", "event", event, "error", err)
		}
	})
	if err != nil {
		return err
	}
	defer a.socket.Close()

	a.logger.Info("Listening for socket.io events.", "url", cfg.URL, "namespace", cfg.Namespace)
	<-ctx.Done()
	a.logger.Info("Shutting down.")
	return nil
}
