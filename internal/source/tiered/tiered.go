// Package tiered answers coordinate lookups from an in-process LRU, then the
// Redis document store, then the upstream catalog, filling the faster tiers
// on the way back.
package tiered

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/golang/groupcache/singleflight"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"

	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source"
)

// Store is the persistent tier. redisstore.DocumentStore satisfies it.
type Store interface {
	source.Source
	Put(ctx context.Context, doc model.Document) error
	Delete(ctx context.Context, code string) error
}

type Option func(*Source)

func WithStore(s Store) Option {
	return func(t *Source) { t.store = s }
}

func WithLRUSize(n int) Option {
	return func(t *Source) {
		if n > 0 {
			t.size = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Source) {
		if l != nil {
			t.log = l
		}
	}
}

// WithStoreTimeout bounds each call into the store so a slow Redis degrades
// to an upstream fetch instead of stalling the request.
func WithStoreTimeout(d time.Duration) Option {
	return func(t *Source) { t.storeTimeout = d }
}

type Source struct {
	upstream     source.Source
	store        Store
	mem          *lru.Cache[string, model.Document]
	size         int
	storeTimeout time.Duration
	log          *slog.Logger

	// concurrent misses on one code share a single upstream fetch
	flight singleflight.Group
}

var _ source.Source = (*Source)(nil)

func New(upstream source.Source, opts ...Option) (*Source, error) {
	if upstream == nil {
		return nil, errors.New("tiered: upstream source is required")
	}
	t := &Source{
		upstream: upstream,
		size:     512,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(t)
	}
	mem, err := lru.New[string, model.Document](t.size)
	if err != nil {
		return nil, fmt.Errorf("tiered: lru: %w", err)
	}
	t.mem = mem
	return t, nil
}

func (t *Source) Fetch(ctx context.Context, code string) (model.Document, error) {
	if doc, ok := t.mem.Get(code); ok {
		observability.IncSourceResult("memory", "hit")
		return doc, nil
	}
	observability.IncSourceResult("memory", "miss")

	if t.store != nil {
		doc, err := t.fromStore(ctx, code)
		switch {
		case err == nil:
			observability.IncSourceResult("store", "hit")
			t.mem.Add(code, doc)
			return doc, nil
		case errors.Is(err, model.ErrNotFound):
			observability.IncSourceResult("store", "miss")
		default:
			observability.IncSourceResult("store", "error")
			t.log.WarnContext(ctx, "document store read failed, falling back to upstream", "code", code, "err", err)
		}
	}

	v, err := t.flight.Do(code, func() (any, error) {
		return t.fill(ctx, code)
	})
	if err != nil {
		return model.Document{}, err
	}
	return v.(model.Document), nil
}

// fill fetches code upstream and writes it through to the faster tiers.
func (t *Source) fill(ctx context.Context, code string) (model.Document, error) {
	doc, err := t.upstream.Fetch(ctx, code)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			observability.IncSourceResult("upstream", "miss")
		} else {
			observability.IncSourceResult("upstream", "error")
		}
		return model.Document{}, err
	}
	observability.IncSourceResult("upstream", "hit")

	if t.store != nil {
		if err := t.toStore(ctx, doc); err != nil {
			t.log.WarnContext(ctx, "document store write-through failed", "code", code, "err", err)
		}
	}
	t.mem.Add(code, doc)
	return doc, nil
}

// Evict drops codes from memory only, leaving the store untouched. Use it
// when the store already holds the new coordinates.
func (t *Source) Evict(codes ...string) {
	for _, c := range codes {
		t.mem.Remove(c)
	}
}

// Invalidate evicts codes from memory and from the store. Every code is
// attempted; the failures are combined.
func (t *Source) Invalidate(ctx context.Context, codes ...string) error {
	var errs error
	for _, c := range codes {
		t.mem.Remove(c)
		if t.store == nil {
			continue
		}
		if err := t.store.Delete(ctx, c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("invalidate %q: %w", c, err))
		}
	}
	return errs
}

// Cached reports whether code is held in memory.
func (t *Source) Cached(code string) bool {
	return t.mem.Contains(code)
}

func (t *Source) fromStore(ctx context.Context, code string) (model.Document, error) {
	if t.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.storeTimeout)
		defer cancel()
	}
	return t.store.Fetch(ctx, code)
}

func (t *Source) toStore(ctx context.Context, doc model.Document) error {
	if t.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.storeTimeout)
		defer cancel()
	}
	return t.store.Put(ctx, doc)
}
