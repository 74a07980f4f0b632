package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/little-explorers/storefront/pkg/config"
	"github.com/little-explorers/storefront/pkg/logger"
)

// Handler serves the gatherer's families at path and 404s everything else.
func Handler(gatherer prometheus.Gatherer, path string) http.Handler {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}

// ServeWorker exposes metrics for a background worker on cfg.WorkerAddr.
// The returned func shuts the listener down; it is a no-op when metrics are
// disabled.
func ServeWorker(ctx context.Context, cfg config.MetricsConfig, gatherer prometheus.Gatherer, logg *logger.Logger) func() {
	if !cfg.Enabled {
		return func() {}
	}
	srv := &http.Server{
		Addr:              cfg.WorkerAddr,
		Handler:           Handler(gatherer, cfg.Path),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics listener stopped", err)
		}
	}()
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
