package internal

import (
	"c2c-client/observability"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type StatsProvider interface {
	GetLatest() observability.MonitoringStats
}

// StateProvider reports the connection state shown next to the stats.
type StateProvider func() string

func NewDebugRouter(stats StatsProvider, state StateProvider) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/debug/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, stats.GetLatest())
	})
	r.Get("/debug/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"state": state()})
	})
	return r
}

// StartDebugServer serves the debug routes on localhost until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, stats StatsProvider, state StateProvider) {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           NewDebugRouter(stats, state),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn("Debug server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("Debug server available", "url", fmt.Sprintf("http://%s/debug/stats", srv.Addr))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
