package catalogsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/Az-source-create/tillgng-2/model"
	nocodbrepo "github.com/Az-source-create/tillgng-2/repository/nocodb"
)

const (
	defaultPageSize = 25
	resultTTL       = 5 * time.Minute
	// transient outages should not be remembered for long, but a retry storm
	// against a rate-limited store is worse
	errorResultTTL = 30 * time.Second

	rateLimitedMsg = "Too many requests to the database. Please try again in a few minutes."
)

type Query struct {
	Limit        int
	Page         int // 1-based
	Search       string
	ForceRefresh bool
}

type PageInfo struct {
	CurrentPage     int    `json:"currentPage"`
	PageSize        int    `json:"pageSize"`
	TotalItems      int    `json:"totalItems"`
	TotalPages      int    `json:"totalPages"`
	HasNextPage     bool   `json:"hasNextPage"`
	HasPreviousPage bool   `json:"hasPreviousPage"`
	SearchTerm      string `json:"searchTerm"`
}

// Result is one assembled product page. Products keep their raw table
// columns with an "availability" object attached. Err is a user-facing
// message; upstream failures never surface as Go errors from this service,
// the page renders with a message instead.
type Result struct {
	Products []map[string]any `json:"products"`
	PageInfo PageInfo         `json:"pageInfo"`
	Err      string           `json:"error,omitempty"`
}

// BookingFetcher is the batcher seam: give me this product's bookings,
// eventually.
type BookingFetcher interface {
	QueueProduct(ctx context.Context, productID string) ([]model.BookingRecord, error)
}

type Service interface {
	FetchProducts(ctx context.Context, q Query) Result
}

type cachedResult struct {
	result    Result
	expiresAt time.Time
}

type service struct {
	r       nocodbrepo.Repo
	batcher BookingFetcher
	log     *slog.Logger

	mu    sync.Mutex
	cache map[string]cachedResult

	now func() time.Time
}

func New(r nocodbrepo.Repo, batcher BookingFetcher, log *slog.Logger) Service {
	return &service{
		r:       r,
		batcher: batcher,
		log:     log,
		cache:   make(map[string]cachedResult),
		now:     time.Now,
	}
}

func (s *service) FetchProducts(ctx context.Context, q Query) Result {
	if q.Limit <= 0 {
		q.Limit = defaultPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	key := fmt.Sprintf("%d|%d|%s", q.Limit, q.Page, q.Search)

	if !q.ForceRefresh {
		s.mu.Lock()
		entry, ok := s.cache[key]
		fresh := ok && s.now().Before(entry.expiresAt)
		s.mu.Unlock()
		if fresh {
			return entry.result
		}
	}

	page, err := s.r.ListProducts(ctx, (q.Page-1)*q.Limit, q.Limit, q.Search)
	if err != nil {
		s.log.Error("products fetch failed", "page", q.Page, "search", q.Search, "err", err)
		msg := err.Error()
		if errors.Is(err, nocodbrepo.ErrRateLimited) {
			msg = rateLimitedMsg
		}
		res := Result{
			Products: []map[string]any{},
			PageInfo: s.pageInfo(q, 0, true),
			Err:      msg,
		}
		s.store(key, res, errorResultTTL)
		return res
	}

	products := make([]map[string]any, len(page.Products))
	var wg sync.WaitGroup
	for i, p := range page.Products {
		if p.AvailableQty >= p.TotalQty {
			// nothing out, skip the booking lookup entirely
			products[i] = productView(p, Availability{Total: p.TotalQty, Available: p.AvailableQty})
			continue
		}
		wg.Add(1)
		go func(i int, p model.Product) {
			defer wg.Done()
			products[i] = productView(p, s.availabilityFor(ctx, p))
		}(i, p)
	}
	wg.Wait()

	res := Result{
		Products: products,
		PageInfo: s.pageInfo(q, page.TotalRows, page.IsLastPage),
	}
	// commit only after every member's availability has settled
	s.store(key, res, resultTTL)
	return res
}

func (s *service) availabilityFor(ctx context.Context, p model.Product) Availability {
	records, err := s.batcher.QueueProduct(ctx, p.ID)
	if err != nil {
		s.log.Warn("booking lookup failed, degrading to bare counts",
			"product", p.ID, "err", err)
		records = nil
	}

	av := ComputeAvailability(p.TotalQty, p.AvailableQty, records, s.now())
	if av.Booked != p.TotalQty-p.AvailableQty {
		// data-quality signal only; the store's reported count wins
		s.log.Warn("reported availability disagrees with bookings",
			"product", p.ID, "name", p.Name,
			"available", p.AvailableQty, "total", p.TotalQty, "booked", av.Booked)
	}
	return av
}

func (s *service) pageInfo(q Query, totalItems int, isLastPage bool) PageInfo {
	return PageInfo{
		CurrentPage:     q.Page,
		PageSize:        q.Limit,
		TotalItems:      totalItems,
		TotalPages:      (totalItems + q.Limit - 1) / q.Limit,
		HasNextPage:     !isLastPage,
		HasPreviousPage: q.Page > 1,
		SearchTerm:      q.Search,
	}
}

func (s *service) store(key string, res Result, ttl time.Duration) {
	s.mu.Lock()
	s.cache[key] = cachedResult{result: res, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

func productView(p model.Product, av Availability) map[string]any {
	view := maps.Clone(p.Fields)
	if view == nil {
		view = map[string]any{}
	}
	view["availability"] = av
	return view
}
