// Package catalog keeps the per-warehouse slice of sellable presentations for
// one editing session and validates requested quantities against it.
package catalog

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ariefcatur/go-distribution-orders/internal/metrics"
	"github.com/ariefcatur/go-distribution-orders/internal/orders"
)

// Fetcher loads the presentations stocked by one warehouse.
type Fetcher interface {
	ListPresentations(ctx context.Context, warehouseID int64) ([]orders.Presentation, error)
}

type FetcherFunc func(ctx context.Context, warehouseID int64) ([]orders.Presentation, error)

func (f FetcherFunc) ListPresentations(ctx context.Context, warehouseID int64) ([]orders.Presentation, error) {
	return f(ctx, warehouseID)
}

type entry struct {
	items     []orders.Presentation
	byID      map[int64]orders.Presentation
	fetchedAt time.Time
}

// Cache memoizes catalog slices by warehouse id. Entries live until
// Invalidate; there is no eviction. Safe for concurrent use.
type Cache struct {
	fetch   Fetcher
	clock   func() time.Time
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[int64]*entry
	gen     map[int64]uint64
	group   singleflight.Group
}

type Option func(*Cache)

func WithClock(clock func() time.Time) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func New(fetch Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetch:   fetch,
		clock:   time.Now,
		logger:  zap.NewNop(),
		entries: make(map[int64]*entry),
		gen:     make(map[int64]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the warehouse slice, fetching it on a miss. Concurrent misses
// for the same warehouse share a single fetch. The returned slice is a copy.
func (c *Cache) Get(ctx context.Context, warehouseID int64) ([]orders.Presentation, error) {
	e, err := c.load(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	out := make([]orders.Presentation, len(e.items))
	copy(out, e.items)
	return out, nil
}

// Lookup finds one presentation in the warehouse slice. ok is false when the
// warehouse does not stock it.
func (c *Cache) Lookup(ctx context.Context, warehouseID, presentationID int64) (orders.Presentation, bool, error) {
	e, err := c.load(ctx, warehouseID)
	if err != nil {
		return orders.Presentation{}, false, err
	}
	p, ok := e.byID[presentationID]
	return p, ok, nil
}

// Invalidate drops the slice. A fetch already in flight for the warehouse
// completes for its callers but is not stored.
func (c *Cache) Invalidate(warehouseID int64) {
	c.mu.Lock()
	delete(c.entries, warehouseID)
	c.gen[warehouseID]++
	c.mu.Unlock()
	c.logger.Debug("catalog invalidated", zap.Int64("almacen_id", warehouseID))
}

func (c *Cache) FetchedAt(warehouseID int64) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[warehouseID]
	if !ok {
		return time.Time{}, false
	}
	return e.fetchedAt, true
}

func (c *Cache) load(ctx context.Context, warehouseID int64) (*entry, error) {
	label := strconv.FormatInt(warehouseID, 10)

	c.mu.Lock()
	if e, ok := c.entries[warehouseID]; ok {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.CatalogHits.WithLabelValues(label).Inc()
		}
		return e, nil
	}
	gen := c.gen[warehouseID]
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.CatalogMisses.WithLabelValues(label).Inc()
	}

	key := label + ":" + strconv.FormatUint(gen, 10)
	v, err, shared := c.group.Do(key, func() (any, error) {
		items, err := c.fetch.ListPresentations(ctx, warehouseID)
		if err != nil {
			return nil, orders.Transport("catalog.list_presentations", err)
		}
		e := &entry{items: items, byID: make(map[int64]orders.Presentation, len(items)), fetchedAt: c.clock()}
		for _, p := range items {
			e.byID[p.ID] = p
		}

		c.mu.Lock()
		if c.gen[warehouseID] == gen {
			c.entries[warehouseID] = e
		}
		c.mu.Unlock()

		c.logger.Debug("catalog fetched",
			zap.Int64("almacen_id", warehouseID),
			zap.Int("presentaciones", len(items)))
		return e, nil
	})
	if err != nil {
		c.logger.Warn("catalog fetch failed", zap.Int64("almacen_id", warehouseID), zap.Bool("shared", shared), zap.Error(err))
		return nil, err
	}
	return v.(*entry), nil
}
