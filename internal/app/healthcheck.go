package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/specialistvlad/gridscript/internal/ctxlog"
)

// scriptStatus is one entry of the /scripts listing.
type scriptStatus struct {
	Name      string   `json:"name"`
	Path      string   `json:"path"`
	Compiled  bool     `json:"compiled"`
	Events    []string `json:"events"`
	Variables []string `json:"variables"`
}

// healthHandler answers with the number of loaded scripts.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	logger := ctxlog.FromContext(app.ctx)
	logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK %d scripts\n", len(app.scripts))
}

// scriptsHandler lists the loaded scripts as JSON.
func (app *App) scriptsHandler(w http.ResponseWriter, r *http.Request) {
	statuses := make([]scriptStatus, 0, len(app.scripts))
	for _, h := range app.scripts {
		h.mu.Lock()
		statuses = append(statuses, scriptStatus{
			Name:      h.name,
			Path:      h.script.Path(),
			Compiled:  h.script.Compiled(),
			Events:    h.script.Events(),
			Variables: h.script.Variables().Names(),
		})
		h.mu.Unlock()
	}
	body, err := sonic.Marshal(statuses)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

// healthCheckServer initializes and runs the health check HTTP server.
func (app *App) healthCheckServer() {
	logger := ctxlog.FromContext(app.ctx)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", app.healthHandler)
	mux.HandleFunc("/scripts", app.scriptsHandler)

	addr := fmt.Sprintf(":%d", app.config.HealthcheckPort)
	app.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (app *App) closeHealthCheckServer() error {
	logger := ctxlog.FromContext(app.ctx)
	if app.httpServer == nil {
		logger.Debug("Health check server was not running.")
		return nil
	}

	// The run context may already be cancelled at this point.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(app.ctx), 5*time.Second)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := app.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	app.httpServer = nil
	return nil
}
