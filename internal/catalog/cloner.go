// Package catalog copies the whole upstream coordinate catalog into the
// document store.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/airfoil-geometry/internal/catalogevents"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/model"
	"github.com/mohammed-shakir/airfoil-geometry/internal/core/observability"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source"
	"github.com/mohammed-shakir/airfoil-geometry/internal/source/uiuc"
)

type Store interface {
	Put(ctx context.Context, doc model.Document) error
}

type Publisher interface {
	Publish(ev catalogevents.Event) bool
}

// Progress is called after each airfoil with the running counts.
type Progress func(code string, done, total int, err error)

type Cloner struct {
	Index  uiuc.Indexer
	Source source.Source
	Store  Store
	// Events, when set, receives an upsert for every stored airfoil.
	Events Publisher
	// Buckets restricts the clone to these buckets; empty means all.
	Buckets []string
	Workers int
	// Limiter, when set, paces upstream fetches across all workers.
	Limiter  *rate.Limiter
	Log      *slog.Logger
	Progress Progress

	now func() time.Time
}

type Summary struct {
	Buckets int
	Stored  int
	Failed  int
}

type result struct {
	code string
	err  error
}

// Run clones every indexed airfoil. It keeps going past individual
// failures and returns them combined; the summary is valid either way.
func (c *Cloner) Run(ctx context.Context) (Summary, error) {
	log := c.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := c.now
	if now == nil {
		now = time.Now
	}

	idx, err := c.Index.Index(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("clone: index: %w", err)
	}
	codes, buckets := c.selectCodes(idx)
	sum := Summary{Buckets: buckets}
	log.InfoContext(ctx, "catalog clone started", "buckets", buckets, "airfoils", len(codes))

	workerN := c.Workers
	if workerN <= 0 {
		workerN = 8
	}
	jobs := make(chan string)
	results := make(chan result)

	var wg sync.WaitGroup
	wg.Add(workerN)
	for range workerN {
		go func() {
			defer wg.Done()
			for code := range jobs {
				res := result{code: code, err: c.cloneOne(ctx, code, now)}
				select {
				case results <- res:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, code := range codes {
			select {
			case jobs <- code:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var errs error
	done := 0
	for r := range results {
		done++
		if r.err != nil {
			sum.Failed++
			observability.IncClone("failed")
			errs = multierr.Append(errs, r.err)
			log.WarnContext(ctx, "airfoil clone failed", "code", r.code, "err", r.err)
		} else {
			sum.Stored++
			observability.IncClone("stored")
		}
		if c.Progress != nil {
			c.Progress(r.code, done, len(codes), r.err)
		}
	}
	if err := ctx.Err(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("clone interrupted after %d/%d: %w", done, len(codes), err))
	}

	log.InfoContext(ctx, "catalog clone finished", "stored", sum.Stored, "failed", sum.Failed)
	return sum, errs
}

func (c *Cloner) cloneOne(ctx context.Context, code string, now func() time.Time) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("fetch %q: %w", code, err)
		}
	}
	doc, err := c.Source.Fetch(ctx, code)
	if err != nil {
		return fmt.Errorf("fetch %q: %w", code, err)
	}
	if len(doc.X) == 0 || len(doc.X) != len(doc.Y) {
		return fmt.Errorf("%w: %q has %d x and %d y values", model.ErrMalformedGeometry, code, len(doc.X), len(doc.Y))
	}
	if err := c.Store.Put(ctx, doc); err != nil {
		return fmt.Errorf("store %q: %w", code, err)
	}
	if c.Events != nil {
		// wall-clock nanoseconds keep versions increasing across clones
		if !c.Events.Publish(catalogevents.New(catalogevents.OpUpsert, code, uint64(now().UnixNano()))) {
			return fmt.Errorf("publish %q: event queue full", code)
		}
	}
	return nil
}

// selectCodes flattens the chosen buckets into a sorted, de-duplicated list.
func (c *Cloner) selectCodes(idx uiuc.Index) ([]string, int) {
	want := func(string) bool { return true }
	if len(c.Buckets) > 0 {
		want = func(b string) bool { return slices.Contains(c.Buckets, b) }
	}
	var codes []string
	buckets := 0
	for b, cs := range idx {
		if !want(b) {
			continue
		}
		buckets++
		codes = append(codes, cs...)
	}
	slices.Sort(codes)
	return slices.Compact(codes), buckets
}
