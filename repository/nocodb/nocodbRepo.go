package nocodbrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Az-source-create/tillgng-2/model"
)

// ProductPage is one page of the products table plus the store's own
// pagination metadata.
type ProductPage struct {
	Products   []model.Product
	TotalRows  int
	IsLastPage bool
}

type Repo interface {
	// ListProducts reads one page of the products table. search, when
	// non-empty, becomes a substring filter on the product name column.
	ListProducts(ctx context.Context, offset, limit int, search string) (*ProductPage, error)

	// ListBookings reads up to limit rows of the bookings table.
	ListBookings(ctx context.Context, limit int) ([]model.BookingRecord, error)

	// CreateBooking inserts one row into the bookings table and returns the
	// store's response body.
	CreateBooking(ctx context.Context, fields map[string]any) (map[string]any, error)
}

// ErrRateLimited marks an HTTP 429 from the store so callers can back off
// instead of retrying immediately.
var ErrRateLimited = errors.New("nocodb: rate limit exceeded")

type APIError struct {
	Status     int
	StatusText string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nocodb: api error: %d %s", e.Status, e.StatusText)
}

// MalformedResponseError means the store answered 2xx but the body was not
// the JSON we expect.
type MalformedResponseError struct {
	Err  error
	Body string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("nocodb: malformed response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
