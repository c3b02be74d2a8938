package nocodbrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Az-source-create/tillgng-2/model"
	"github.com/Az-source-create/tillgng-2/util/httpx"
)

type httpRepo struct {
	productsURL string
	bookingsURL string
	token       string
	client      *http.Client
}

func NewHTTP(productsURL, bookingsURL, token string) Repo {
	return &httpRepo{
		// table URLs from the env sometimes carry leftover query params
		productsURL: strings.SplitN(productsURL, "?", 2)[0],
		bookingsURL: strings.SplitN(bookingsURL, "?", 2)[0],
		token:       token,
		client:      httpx.Client(),
	}
}

func (r *httpRepo) ListProducts(ctx context.Context, offset, limit int, search string) (*ProductPage, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))
	q.Set("fields", "*")
	if strings.TrimSpace(search) != "" {
		q.Set("where", fmt.Sprintf("(Produkt,like,%%%s%%)", search))
	}

	body, err := r.get(ctx, r.productsURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var out struct {
		List     []map[string]any `json:"list"`
		PageInfo struct {
			TotalRows  int  `json:"totalRows"`
			IsLastPage bool `json:"isLastPage"`
		} `json:"pageInfo"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &MalformedResponseError{Err: err, Body: bodyPrefix(body)}
	}

	page := &ProductPage{
		Products:   make([]model.Product, 0, len(out.List)),
		TotalRows:  out.PageInfo.TotalRows,
		IsLastPage: out.PageInfo.IsLastPage,
	}
	for _, row := range out.List {
		page.Products = append(page.Products, model.ProductFromRow(row))
	}
	return page, nil
}

func (r *httpRepo) ListBookings(ctx context.Context, limit int) ([]model.BookingRecord, error) {
	body, err := r.get(ctx, fmt.Sprintf("%s?limit=%d", r.bookingsURL, limit))
	if err != nil {
		return nil, err
	}

	var out struct {
		List []map[string]any `json:"list"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &MalformedResponseError{Err: err, Body: bodyPrefix(body)}
	}

	records := make([]model.BookingRecord, 0, len(out.List))
	for _, row := range out.List {
		records = append(records, model.BookingFromRow(row))
	}
	return records, nil
}

func (r *httpRepo) CreateBooking(ctx context.Context, fields map[string]any) (map[string]any, error) {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.bookingsURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	body, err := r.do(req)
	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		// the store occasionally answers a bare string on inserts
		return map[string]any{"message": string(body)}, nil
	}
	return out, nil
}

func (r *httpRepo) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return r.do(req)
}

func (r *httpRepo) do(req *http.Request) ([]byte, error) {
	req.Header.Set("xc-token", r.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, resp.Status)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, StatusText: resp.Status}
	}
	return body, nil
}

func bodyPrefix(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
