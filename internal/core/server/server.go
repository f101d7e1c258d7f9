// Package server assembles the HTTP API and runs it.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/health"
	middleware "github.com/mohammed-shakir/airfoil-geometry/internal/core/middleware"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/router"
)

// NewRouter wires middleware, probes and the API routes. ready serves
// /readyz; nil makes readiness equal liveness.
func NewRouter(logger *slog.Logger, h *router.Handler, ready http.HandlerFunc) http.Handler {
	if ready == nil {
		ready = health.Readiness(nil, nil)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", ready)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	h.Mount(r)
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
