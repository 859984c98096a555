package tender

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/b-max/backend/internal/metrics"
	"github.com/b-max/backend/pkg/logger"
)

// Scanner is the slice of the database client the cache needs.
type Scanner interface {
	ScanTenders(ctx context.Context) ([]map[string]any, error)
}

// errorBackoff bounds how long a failed scan is allowed to leave the cache
// empty: with no previous snapshot to serve, the next request past the
// backoff re-scans instead of waiting out a full TTL.
const errorBackoff = 30 * time.Second

// Cache holds the in-process snapshot of the tenders table and re-fetches it
// after a fixed TTL. The mutex makes the refresh single-writer: concurrent
// requests either win the stale check and scan, or read the snapshot the
// winner installed.
type Cache struct {
	mu          sync.Mutex
	scanner     Scanner
	ttl         time.Duration
	now         func() time.Time
	records     []Tender
	nextRefresh time.Time
}

func NewCache(scanner Scanner, ttl time.Duration) *Cache {
	return &Cache{
		scanner: scanner,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Snapshot returns the cached records, refreshing first when the TTL has
// lapsed. A failed refresh keeps the previous snapshot; with no previous
// snapshot the result is empty, never an error.
func (c *Cache) Snapshot(ctx context.Context) []Tender {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.stale(now) {
		c.refresh(ctx, now)
	}

	out := make([]Tender, len(c.records))
	copy(out, c.records)
	return out
}

// Invalidate forces the next Snapshot call to re-scan.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextRefresh = time.Time{}
}

func (c *Cache) stale(now time.Time) bool {
	return c.nextRefresh.IsZero() || !now.Before(c.nextRefresh)
}

func (c *Cache) refresh(ctx context.Context, now time.Time) {
	if c.scanner == nil {
		return
	}

	items, err := c.scanner.ScanTenders(ctx)
	if err != nil {
		metrics.CacheRefreshes.WithLabelValues("error").Inc()
		logger.Warn("Tender snapshot refresh failed, keeping previous snapshot",
			zap.Error(err),
			zap.Int("cached_records", len(c.records)),
		)
		// With a previous snapshot to serve, push the retry out a full TTL
		// so a dead table is not re-scanned on every request. With nothing
		// cached, retry on the short backoff instead of answering "no
		// tenders" for a whole TTL after a transient startup error.
		if len(c.records) > 0 {
			c.nextRefresh = now.Add(c.ttl)
		} else {
			c.nextRefresh = now.Add(errorBackoff)
		}
		return
	}

	c.records = FromItems(items)
	c.nextRefresh = now.Add(c.ttl)

	metrics.CacheRefreshes.WithLabelValues("ok").Inc()
	metrics.RecordsCached.Set(float64(len(c.records)))
	logger.Info("Tender snapshot refreshed", zap.Int("records", len(c.records)))
}
