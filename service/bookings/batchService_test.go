package bookingsvc

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Az-source-create/tillgng-2/model"
)

func TestQueueProduct_ResolvesFilteredBookings(t *testing.T) {
	m := &repoMock{listBookingsFn: func(ctx context.Context, limit int) ([]model.BookingRecord, error) {
		return bookingsFor("a", "b", "a"), nil
	}}
	cache, _ := newTestCache(m)
	b := NewBatcher(cache, testLogger())
	b.sleep = func(time.Duration) {}

	got, err := b.QueueProduct(context.Background(), "a")
	if err != nil {
		t.Fatalf("QueueProduct: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d bookings, want 2", len(got))
	}
}

func TestQueueProduct_ManyCallersOneFetch(t *testing.T) {
	var mu sync.Mutex
	fetches := 0
	m := &repoMock{listBookingsFn: func(ctx context.Context, limit int) ([]model.BookingRecord, error) {
		mu.Lock()
		fetches++
		mu.Unlock()
		return bookingsFor("p0", "p1", "p2"), nil
	}}
	cache := NewCache(m, testLogger())
	cache.sleep = func(time.Duration) {}
	b := NewBatcher(cache, testLogger())
	b.sleep = func(time.Duration) {}

	// a full product page's worth of concurrent lookups, several batch
	// cycles deep
	const callers = 25
	var wg sync.WaitGroup
	errs := make([]error, callers)
	results := make([][]model.BookingRecord, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = b.QueueProduct(context.Background(), fmt.Sprintf("p%d", i%3))
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if len(results[i]) != 1 {
			t.Fatalf("caller %d: got %d bookings, want 1", i, len(results[i]))
		}
	}

	// the snapshot TTL keeps every cycle on one fetch
	mu.Lock()
	defer mu.Unlock()
	if fetches != 1 {
		t.Fatalf("bookings fetched %d times for %d callers, want 1", fetches, callers)
	}
}

func TestRun_BoundedCyclesShareOnePinnedSnapshot(t *testing.T) {
	const queued = 25

	// every fetch tags its records so each resolution reveals which snapshot
	// it was answered from
	fetchN := 0
	m := &repoMock{listBookingsFn: func(ctx context.Context, limit int) ([]model.BookingRecord, error) {
		fetchN++
		out := make([]model.BookingRecord, 0, queued)
		for i := 0; i < queued; i++ {
			out = append(out, model.BookingRecord{
				ID:        fmt.Sprintf("fetch-%d", fetchN),
				ProductID: fmt.Sprintf("p%d", i),
				Quantity:  1,
			})
		}
		return out, nil
	}}

	c := NewCache(m, testLogger())
	c.sleep = func(time.Duration) {}
	// the clock jumps past the snapshot TTL on every read, so any member
	// resolved without pinning would observe a newer snapshot than the one
	// warmed at the top of its cycle
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { base = base.Add(snapshotTTL + time.Second); return base }

	b := NewBatcher(c, testLogger())
	b.sleep = func(time.Duration) {}

	members := make([]*pending, queued)
	for i := range members {
		members[i] = &pending{
			productID:  fmt.Sprintf("p%d", i),
			done:       make(chan batchResult, 1),
			enqueuedAt: time.Now(),
		}
	}
	b.mu.Lock()
	b.queue = append(b.queue, members...)
	b.running = true
	b.mu.Unlock()
	b.run()

	tags := make([]string, queued)
	for i, p := range members {
		res := <-p.done
		if res.err != nil {
			t.Fatalf("member %d: %v", i, res.err)
		}
		if len(res.records) != 1 {
			t.Fatalf("member %d: got %d bookings, want 1", i, len(res.records))
		}
		tags[i] = res.records[0].ID
	}

	// the queue drains front to back, so consecutive runs of maxBatchSize
	// members form one cycle and must share that cycle's snapshot
	for i := 0; i < queued; i++ {
		if want := tags[i-i%maxBatchSize]; tags[i] != want {
			t.Errorf("member %d resolved against %s, its cycle pinned %s", i, tags[i], want)
		}
	}

	perSnapshot := map[string]int{}
	for _, tag := range tags {
		perSnapshot[tag]++
	}
	for tag, n := range perSnapshot {
		if n > maxBatchSize {
			t.Errorf("%d resolutions against %s without an intervening fetch, max %d", n, tag, maxBatchSize)
		}
	}
	if wantCycles := (queued + maxBatchSize - 1) / maxBatchSize; fetchN != wantCycles {
		t.Fatalf("fetches = %d, want %d (one per cycle)", fetchN, wantCycles)
	}
}

func TestQueueProduct_CanceledContextAbandonsWait(t *testing.T) {
	release := make(chan struct{})
	m := &repoMock{listBookingsFn: func(ctx context.Context, limit int) ([]model.BookingRecord, error) {
		<-release
		return nil, nil
	}}
	cache := NewCache(m, testLogger())
	cache.sleep = func(time.Duration) {}
	b := NewBatcher(cache, testLogger())
	b.sleep = func(time.Duration) {}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := b.QueueProduct(ctx, "p1")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("QueueProduct did not return after cancellation")
	}
	close(release)
}

func TestBatcher_ReturnsToIdleAndRestarts(t *testing.T) {
	m := &repoMock{listBookingsFn: func(ctx context.Context, limit int) ([]model.BookingRecord, error) {
		return bookingsFor("x"), nil
	}}
	cache, _ := newTestCache(m)
	b := NewBatcher(cache, testLogger())
	b.sleep = func(time.Duration) {}

	if _, err := b.QueueProduct(context.Background(), "x"); err != nil {
		t.Fatalf("first round: %v", err)
	}

	waitIdle(t, b)

	// a fresh enqueue after idle must start a new cycle
	if _, err := b.QueueProduct(context.Background(), "x"); err != nil {
		t.Fatalf("second round: %v", err)
	}
}

func waitIdle(t *testing.T, b *Batcher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		idle := !b.running
		b.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("batcher never went idle")
}
