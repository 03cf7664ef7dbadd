package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/specialistvlad/stageloader/internal/version"
)

// moduleView is the JSON shape of one registry entry.
type moduleView struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Handle string `json:"handle,omitempty"`
	Error  string `json:"error,omitempty"`
}

// diagnosticsRouter serves the plugin's state and module registry.
func (a *App) diagnosticsRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", a.healthHandler)
	r.Get("/modules", a.modulesHandler)
	return r
}

// healthHandler reports liveness and the plugin state.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	writeJSON(w, map[string]string{
		"status":  "ok",
		"plugin":  a.model.Plugin.Name,
		"version": version.Format(a.model.Plugin.Version),
		"state":   a.plugin.State().String(),
	})
}

// modulesHandler lists every library the plugin attempted to load.
func (a *App) modulesHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Modules endpoint hit.", "remote_addr", r.RemoteAddr)
	handles := a.plugin.Registry().Snapshot()
	views := make([]moduleView, 0, len(handles))
	for i := range handles {
		h := &handles[i]
		v := moduleView{Path: h.Path, Status: h.Status.String()}
		if h.Loaded() {
			v.Handle = fmt.Sprintf("%#x", h.Raw())
		}
		if h.Err != nil {
			v.Error = h.Err.Error()
		}
		views = append(views, v)
	}
	writeJSON(w, views)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// startDiagnosticsServer runs the diagnostics server in the background.
func (a *App) startDiagnosticsServer(port int) {
	a.logger.Debug("Configuring diagnostics server.")
	addr := fmt.Sprintf(":%d", port)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.diagnosticsRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("Diagnostics server starting.", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Diagnostics server failed unexpectedly.", "error", err)
		}
	}()
}

func (a *App) closeDiagnosticsServer(ctx context.Context) error {
	if a.httpServer == nil {
		a.logger.Debug("Diagnostics server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	a.logger.Info("Shutting down diagnostics server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Diagnostics server shutdown failed.", "error", err)
		return err
	}
	a.logger.Debug("Diagnostics server shut down gracefully.")
	return nil
}
