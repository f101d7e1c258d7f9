// Package app assembles the coordinate source stack shared by the server
// and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/airfoil-geometry/internal/airfoil"
	"github.com/mohammed-shakir/airfoil-geometry/internal/cache/redisstore"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/config"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/httpclient"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source/tiered"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source/uiuc"
)

type App struct {
	Upstream *uiuc.Client
	Index    *uiuc.IndexCache
	// Redis and Store are nil when Redis is disabled.
	Redis  *redisstore.Client
	Store  *redisstore.DocumentStore
	Docs   *tiered.Source
	Loader *airfoil.Loader
}

// New connects to Redis when enabled and builds the memory, store and
// upstream tiers on top of the catalog client.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	up, err := uiuc.New(cfg.CatalogURL, httpclient.NewOutbound())
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	a := &App{
		Upstream: up,
		Index:    uiuc.NewIndexCache(up, cfg.IndexTTL),
	}

	opts := []tiered.Option{
		tiered.WithLRUSize(cfg.LRUSize),
		tiered.WithLogger(log),
		tiered.WithStoreTimeout(cfg.StoreOpTimeout),
	}
	if cfg.RedisEnabled {
		cli, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.Redis = cli
		a.Store = redisstore.NewDocumentStore(cli, cfg.StoreTTL)
		opts = append(opts, tiered.WithStore(a.Store))
		log.Info("document store enabled", "addr", cfg.RedisAddr, "ttl", cfg.StoreTTL.String())
	}

	a.Docs, err = tiered.New(up, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Loader = &airfoil.Loader{Source: a.Docs, Logger: log}
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
