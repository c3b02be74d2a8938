package bookingsvc

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Az-source-create/tillgng-2/model"
)

const (
	maxBatchSize    = 10
	interBatchDelay = 300 * time.Millisecond
)

type batchResult struct {
	records []model.BookingRecord
	err     error
}

type pending struct {
	productID  string
	done       chan batchResult
	enqueuedAt time.Time
}

// Batcher coalesces per-product booking lookups. A product page can need
// availability for dozens of products at once; draining them in bounded
// batches with one shared snapshot read per cycle keeps the table store at
// one fetch per batch instead of one per product.
//
// The drain loop is a two-state machine: idle until an enqueue starts it,
// running until the queue empties. Members of one cycle all observe the
// snapshot warmed at the top of that cycle; ordering across cycles is not
// guaranteed.
type Batcher struct {
	cache *Cache
	log   *slog.Logger

	mu      sync.Mutex
	queue   []*pending
	running bool

	sleep func(time.Duration)
}

func NewBatcher(cache *Cache, log *slog.Logger) *Batcher {
	return &Batcher{cache: cache, log: log, sleep: time.Sleep}
}

// QueueProduct enqueues a lookup and blocks until its batch is processed or
// ctx is canceled. Cancellation abandons the wait only; the queued entry is
// still resolved by the loop.
func (b *Batcher) QueueProduct(ctx context.Context, productID string) ([]model.BookingRecord, error) {
	p := &pending{
		productID:  productID,
		done:       make(chan batchResult, 1),
		enqueuedAt: time.Now(),
	}

	b.mu.Lock()
	b.queue = append(b.queue, p)
	if !b.running {
		b.running = true
		go b.run()
	}
	b.mu.Unlock()

	select {
	case res := <-p.done:
		return res.records, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Batcher) run() {
	// lookups run on behalf of many callers, so the loop deliberately does
	// not inherit any single caller's context
	ctx := context.Background()

	for {
		b.mu.Lock()
		n := len(b.queue)
		if n == 0 {
			b.running = false
			b.mu.Unlock()
			return
		}
		if n > maxBatchSize {
			n = maxBatchSize
		}
		batch := b.queue[:n:n]
		b.queue = b.queue[n:]
		b.mu.Unlock()

		// pin the snapshot warmed at the top of the cycle; every member
		// resolves against it even if the cache refreshes mid-batch
		snap, gen := b.cache.loadSnapshot(ctx, false)

		for _, p := range batch {
			records := b.cache.bookingsForProductIn(snap, gen, p.productID)
			p.done <- batchResult{records: records}
		}
		b.log.Debug("batch cycle done", "size", len(batch), "oldest_wait", oldestWait(batch))

		b.mu.Lock()
		empty := len(b.queue) == 0
		if empty {
			b.running = false
		}
		b.mu.Unlock()
		if empty {
			return
		}
		b.sleep(interBatchDelay)
	}
}

// oldestWait reports how long the oldest member of the batch sat in the queue.
func oldestWait(batch []*pending) string {
	if len(batch) == 0 {
		return "0s"
	}
	return time.Since(batch[0].enqueuedAt).String()
}
