package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohammed-shakir/airfoil-geometry/internal/app"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/health"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/router"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/server"
	"github.com/mohammed-shakir/airfoil-geometry/internal/logger"
	"github.com/mohammed-shakir/airfoil-geometry/internal/metrics"
	"github.com/mohammed-shakir/airfoil-geometry/internal/popularity"
	invkafka "github.com/mohammed-shakir/airfoil-geometry/pkg/invalidation/kafka"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "airfoil-server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting airfoil server",
		"addr", cfg.Addr,
		"version", Version,
		"catalog", cfg.CatalogURL,
		"redis", cfg.RedisEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		p := metrics.Init(metrics.Config{
			Enabled: true,
			Addr:    cfg.Metrics.Addr,
			Path:    cfg.Metrics.Path,
			Build: metrics.BuildInfo{
				Version:   Version,
				Revision:  os.Getenv("BUILD_REVISION"),
				Branch:    os.Getenv("BUILD_BRANCH"),
				BuildDate: os.Getenv("BUILD_DATE"),
			},
		})
		go func() {
			if err := p.Serve(ctx, appLog); err != nil {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
	}

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("failed to initialize sources", "err", err)
		return 1
	}
	defer a.Close()

	gate := &popularity.Gate{
		Tracker:   popularity.New(cfg.HotHalfLife),
		Threshold: cfg.HotThreshold,
	}
	go gate.Maintain(ctx, cfg.HotHalfLife)

	h := &router.Handler{
		Loader:   a.Loader,
		Catalog:  a.Index,
		Gate:     gate,
		Defaults: cfg.Resample,
		Log:      appLog,
	}
	deps := map[string]health.Pinger{}
	if a.Store != nil {
		h.Cache = a.Store
		deps["redis"] = a.Redis
	}

	var rr health.ReadinessReporter
	if cfg.Invalidation.Enabled {
		runner, err := startInvalidation(ctx, cfg, a, gate.Tracker, appLog)
		if err != nil {
			appLog.Error("invalidation runner failed to start", "err", err)
			return 1
		}
		defer runner.Stop()
		rr = runner
	}

	handler := server.NewRouter(appLog, h, health.Readiness(rr, deps))
	if err := server.Run(ctx, cfg, appLog, handler); err != nil && err != http.ErrServerClosed {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func startInvalidation(ctx context.Context, cfg config.Config, a *app.App, hot *popularity.Tracker, log *slog.Logger) (*invkafka.Runner, error) {
	opts := invkafka.Options{
		Logger:     log,
		Popularity: hot,
	}
	if a.Store != nil {
		opts.Resample = a.Store
	}
	runner := invkafka.New(invkafka.ConfigFrom(cfg.Invalidation), a.Docs, opts)
	if err := runner.Start(ctx); err != nil {
		return nil, err
	}
	return runner, nil
}
