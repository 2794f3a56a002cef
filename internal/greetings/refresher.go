package greetings

import (
	"context"
	"errors"
	"log"
	"time"
)

const DefaultInterval = 30 * time.Second

type Fetcher interface {
	Fetch(ctx context.Context) (*Collection, error)
	Count(ctx context.Context) (int, error)
}

// Cache persists the last good collection so a cold start still has greetings.
type Cache interface {
	SaveGreetings(ctx context.Context, path string, recs []Record, total int) error
	LoadGreetings(ctx context.Context, path string) ([]Record, int, error)
}

// Refresher polls a Fetcher into a Store.
type Refresher struct {
	Fetcher  Fetcher
	Store    *Store
	Cache    Cache // optional
	Path     string
	Interval time.Duration
	Logger   *log.Logger
}

// Warm loads the cached collection when the store is still empty.
func (r *Refresher) Warm(ctx context.Context) error {
	if r.Cache == nil || r.Store.Current().Len() > 0 {
		return nil
	}
	recs, total, err := r.Cache.LoadGreetings(ctx, r.Path)
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		r.Store.Set(NewCollection(recs, total))
	}
	return nil
}

// Refresh fetches once. On failure the store keeps its previous collection.
func (r *Refresher) Refresh(ctx context.Context) error {
	col, err := r.Fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	if n, err := r.Fetcher.Count(ctx); err == nil && n > col.Total() {
		col = NewCollection(col.records, n)
	} else if err != nil {
		r.logf("greetings count: %v", err)
	}
	r.Store.Set(col)
	if r.Cache != nil {
		if err := r.Cache.SaveGreetings(ctx, r.Path, col.Records(), col.Total()); err != nil {
			r.logf("greetings cache save: %v", err)
		}
	}
	return nil
}

// Run warms from the cache, then refreshes immediately and on every interval until ctx
// is done. A fetcher that is not configured stops the loop after warming.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.Warm(ctx); err != nil {
		r.logf("greetings cache load: %v", err)
	}
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if err := r.Refresh(ctx); err != nil {
		if errors.Is(err, ErrNotConfigured) {
			r.logf("greetings: waline not configured, serving cached greetings only")
			return nil
		}
		r.logf("greetings refresh: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil && ctx.Err() == nil {
				r.logf("greetings refresh: %v", err)
			}
		}
	}
}

func (r *Refresher) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
