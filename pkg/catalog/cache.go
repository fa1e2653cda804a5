// Package catalog provides the shared, read-mostly menu cache.
//
// The cache holds one immutable Snapshot at a time. Reads never block on each
// other; a refresh builds a new Snapshot and swaps it in whole. Concurrent
// refreshes collapse into a single call to the catalog service.
package catalog

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/roomservice/internal/logging"
	"github.com/aretw0/roomservice/pkg/domain"
	"github.com/aretw0/roomservice/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Snapshot is a consistent copy of the catalog. It is never modified after
// being published.
type Snapshot struct {
	Categories []domain.Category
	Items      []domain.MenuItem
	FetchedAt  time.Time
}

// Refresh outcomes reported to observers.
const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeError   = "error"
)

// Cache is safe for concurrent use.
type Cache struct {
	source       ports.CatalogService
	logger       *slog.Logger
	maxAge       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	observe      func(outcome string, took time.Duration)

	group singleflight.Group
	snap  atomic.Pointer[Snapshot]
}

// Option configures the Cache.
type Option func(*Cache)

// WithLogger configures a logger for refresh failures.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithMaxAge makes snapshots older than d reload on the next read.
// Zero keeps a snapshot until it is force-refreshed.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) {
		c.maxAge = d
	}
}

// WithFetchTimeout bounds a refresh. The fetch is detached from the caller's
// cancellation so one hung-up session cannot fail a refresh others wait on.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		c.fetchTimeout = d
	}
}

// WithObserver registers a callback invoked after every remote refresh.
func WithObserver(fn func(outcome string, took time.Duration)) Option {
	return func(c *Cache) {
		c.observe = fn
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty cache backed by source.
func New(source ports.CatalogService, opts ...Option) *Cache {
	c := &Cache{
		source:       source,
		logger:       logging.NewNop(),
		fetchTimeout: 10 * time.Second,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Categories returns the active categories, loading the catalog first if
// needed. It never fails: an unreachable service yields an empty list.
func (c *Cache) Categories(ctx context.Context, forceRefresh bool) []domain.Category {
	return c.Snapshot(ctx, forceRefresh).Categories
}

// Items returns the available menu items in catalog order.
func (c *Cache) Items(ctx context.Context, forceRefresh bool) []domain.MenuItem {
	return c.Snapshot(ctx, forceRefresh).Items
}

// ItemsByCategory filters the cached items by category.
func (c *Cache) ItemsByCategory(ctx context.Context, categoryID string) []domain.MenuItem {
	var out []domain.MenuItem
	for _, it := range c.Items(ctx, false) {
		if it.CategoryID == categoryID {
			out = append(out, it)
		}
	}
	return out
}

// Loaded reports whether a snapshot has been published.
func (c *Cache) Loaded() bool {
	return c.snap.Load() != nil
}

// Snapshot returns the current snapshot, refreshing when none is loaded, when
// it expired or when forceRefresh is set.
func (c *Cache) Snapshot(ctx context.Context, forceRefresh bool) *Snapshot {
	if s := c.snap.Load(); s != nil && !forceRefresh && !c.expired(s) {
		return s
	}
	return c.refresh(ctx)
}

func (c *Cache) expired(s *Snapshot) bool {
	return c.maxAge > 0 && c.now().Sub(s.FetchedAt) > c.maxAge
}

func (c *Cache) refresh(ctx context.Context) *Snapshot {
	v, _, _ := c.group.Do("catalog", func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		start := c.now()
		s, outcome := c.fetch(fetchCtx)
		c.snap.Store(s)
		if c.observe != nil {
			c.observe(outcome, c.now().Sub(start))
		}
		return s, nil
	})
	return v.(*Snapshot)
}

func (c *Cache) fetch(ctx context.Context) (*Snapshot, string) {
	s := &Snapshot{FetchedAt: c.now()}
	failures := 0

	cats, err := c.source.ActiveCategories(ctx)
	if err != nil {
		failures++
		c.logger.Warn("Catalog refresh: categories unavailable, serving empty list", "err", err)
	}
	for _, cat := range cats {
		if cat.Active {
			s.Categories = append(s.Categories, cat)
		}
	}

	items, err := c.source.AvailableItems(ctx, "")
	if err != nil {
		failures++
		c.logger.Warn("Catalog refresh: menu items unavailable, serving empty list", "err", err)
	}
	for _, it := range items {
		if it.Available {
			s.Items = append(s.Items, it)
		}
	}

	switch failures {
	case 0:
		c.logger.Debug("Catalog refreshed", "categories", len(s.Categories), "items", len(s.Items))
		return s, OutcomeOK
	case 1:
		return s, OutcomePartial
	default:
		return s, OutcomeError
	}
}
