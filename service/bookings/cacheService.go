package bookingsvc

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Az-source-create/tillgng-2/model"
	nocodbrepo "github.com/Az-source-create/tillgng-2/repository/nocodb"
)

const (
	snapshotTTL        = 5 * time.Minute
	productIndexTTL    = 5 * time.Minute
	fetchAttempts      = 3
	fetchBackoffBase   = 1 * time.Second
	bookingsFetchLimit = 50
)

type indexEntry struct {
	records   []model.BookingRecord
	expiresAt time.Time
}

// Cache holds the process-wide snapshot of the bookings table plus a
// per-product index derived from it. Both are time-boxed; the index dies
// with the snapshot it was derived from. Refresh failures degrade to the
// stale snapshot (or an empty list) instead of reaching callers, because a
// broken availability column must never break page rendering.
//
// Every snapshot replacement bumps a generation counter, so a batch cycle
// can pin the snapshot it warmed and keep resolving against it even if a
// refresh lands mid-cycle.
type Cache struct {
	r   nocodbrepo.Repo
	log *slog.Logger

	mu          sync.Mutex
	snapshot    []model.BookingRecord
	hasSnapshot bool
	gen         uint64
	fetchedAt   time.Time
	expiresAt   time.Time
	byProduct   map[string]indexEntry

	now   func() time.Time
	sleep func(time.Duration)
}

func NewCache(r nocodbrepo.Repo, log *slog.Logger) *Cache {
	return &Cache{
		r:         r,
		log:       log,
		byProduct: make(map[string]indexEntry),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// GetAllBookings returns the cached snapshot, refreshing it first when it has
// expired or force is set.
func (c *Cache) GetAllBookings(ctx context.Context, force bool) []model.BookingRecord {
	records, _ := c.loadSnapshot(ctx, force)
	return records
}

// loadSnapshot returns the snapshot plus its generation. The whole
// check-refresh-replace sequence runs under the lock so concurrent callers
// observe either the old snapshot or the new one, never a half-replaced
// state.
func (c *Cache) loadSnapshot(ctx context.Context, force bool) ([]model.BookingRecord, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.hasSnapshot && !force && now.Before(c.expiresAt) {
		return c.snapshot, c.gen
	}

	records, err := c.fetchWithRetry(ctx)
	if err == nil {
		c.snapshot = records
		c.hasSnapshot = true
		c.gen++
		c.fetchedAt = now
		c.expiresAt = now.Add(snapshotTTL)
		// derived entries die with the snapshot they came from
		c.byProduct = make(map[string]indexEntry)
		return records, c.gen
	}

	if c.hasSnapshot {
		c.log.Warn("bookings refresh failed, serving stale snapshot",
			"err", err, "snapshot_age", now.Sub(c.fetchedAt).String())
		return c.snapshot, c.gen
	}
	c.log.Warn("bookings refresh failed with nothing cached, serving empty list", "err", err)
	return []model.BookingRecord{}, c.gen
}

// BookingsForProduct returns the bookings referencing productID, from the
// per-product index when fresh, otherwise filtered out of the snapshot.
func (c *Cache) BookingsForProduct(ctx context.Context, productID string) []model.BookingRecord {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return []model.BookingRecord{}
	}

	c.mu.Lock()
	if entry, ok := c.byProduct[productID]; ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.records
	}
	c.mu.Unlock()

	snap, gen := c.loadSnapshot(ctx, false)
	return c.bookingsForProductIn(snap, gen, productID)
}

// bookingsForProductIn filters productID's bookings out of a pinned
// snapshot. The index is consulted and updated only while the pinned
// generation is still current, so a batch that spans a refresh neither
// reads newer data than its snapshot nor poisons the index with older data.
func (c *Cache) bookingsForProductIn(snap []model.BookingRecord, gen uint64, productID string) []model.BookingRecord {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return []model.BookingRecord{}
	}

	c.mu.Lock()
	if c.gen == gen {
		if entry, ok := c.byProduct[productID]; ok && c.now().Before(entry.expiresAt) {
			c.mu.Unlock()
			return entry.records
		}
	}
	c.mu.Unlock()

	matched := make([]model.BookingRecord, 0, 4)
	for _, rec := range snap {
		if rec.ProductID == productID {
			matched = append(matched, rec)
		}
	}

	c.mu.Lock()
	if c.gen == gen {
		c.byProduct[productID] = indexEntry{records: matched, expiresAt: c.now().Add(productIndexTTL)}
	}
	c.mu.Unlock()

	return matched
}

func (c *Cache) fetchWithRetry(ctx context.Context) ([]model.BookingRecord, error) {
	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		if attempt > 0 {
			// 1s, 2s, ...
			c.sleep(fetchBackoffBase * time.Duration(1<<(attempt-1)))
		}
		records, err := c.r.ListBookings(ctx, bookingsFetchLimit)
		if err == nil {
			return records, nil
		}
		lastErr = err
		c.log.Warn("bookings fetch attempt failed", "attempt", attempt+1, "err", err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}
