package bookingsvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Az-source-create/tillgng-2/model"
	nocodbrepo "github.com/Az-source-create/tillgng-2/repository/nocodb"
)

// errors used by controllers

type ErrCode string

const (
	ErrNoItems            ErrCode = "NO_ITEMS"
	ErrBadDate            ErrCode = "BAD_DATE"
	ErrPickupInPast       ErrCode = "PICKUP_IN_PAST"
	ErrReturnBeforePickup ErrCode = "RETURN_BEFORE_PICKUP"
	ErrBookingTooLong     ErrCode = "BOOKING_TOO_LONG"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

const (
	// the booking form submits dates as DD-MM-YYYY HH:mm
	bookingDateLayout = "02-01-2006 15:04"
	maxRentalDays     = 7
)

type SubmitItem struct {
	ID       string
	Quantity int
}

type SubmitRequest struct {
	FullName string
	Email    string
	Phone    string
	Address  string
	Pickup   string // formatted, bookingDateLayout
	Return   string // formatted, bookingDateLayout
	Notes    string
	Items    []SubmitItem
}

type ItemResult struct {
	Product string         `json:"product"`
	Data    map[string]any `json:"data,omitempty"`
}

type ItemFailure struct {
	Product string `json:"product"`
	Error   string `json:"error"`
}

// SubmitResult reports the outcome per item. A multi-item booking becomes one
// table row per item, and rows are written independently, so some can land
// while others fail.
type SubmitResult struct {
	Submitted []ItemResult
	Failed    []ItemFailure
}

func (r *SubmitResult) PartialSuccess() bool {
	return len(r.Failed) > 0 && len(r.Submitted) > 0
}

type Service interface {
	// Submit validates the booking and writes one bookings-table row per
	// item. Validation problems come back as coded errors; write failures
	// are reported inside the result, item by item.
	Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
}

type service struct {
	r   nocodbrepo.Repo
	log *slog.Logger
	now func() time.Time
}

func New(r nocodbrepo.Repo, log *slog.Logger) Service {
	return &service{r: r, log: log, now: time.Now}
}

func (s *service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if len(req.Items) == 0 {
		return nil, makeErr(ErrNoItems)
	}

	// the form sends Stockholm wall-clock times, so the past-pickup check
	// has to interpret them in that zone
	pickup, err := time.ParseInLocation(bookingDateLayout, req.Pickup, model.Stockholm())
	if err != nil {
		return nil, makeErr(ErrBadDate)
	}
	ret, err := time.ParseInLocation(bookingDateLayout, req.Return, model.Stockholm())
	if err != nil {
		return nil, makeErr(ErrBadDate)
	}
	if pickup.Before(s.now().Truncate(time.Minute)) {
		return nil, makeErr(ErrPickupInPast)
	}
	if !ret.After(pickup) {
		return nil, makeErr(ErrReturnBeforePickup)
	}
	if ret.Sub(pickup) > maxRentalDays*24*time.Hour {
		return nil, makeErr(ErrBookingTooLong)
	}

	out := &SubmitResult{}
	for _, item := range req.Items {
		fields := map[string]any{
			"Name":             req.FullName,
			"Email":            req.Email,
			"Phone":            req.Phone,
			"Address":          req.Address,
			"Pickup date-time": req.Pickup,
			"Return date-time": req.Return,
			"Notes":            req.Notes,
			// linked-record field takes the product id, not the name
			"Product":  item.ID,
			"Quantity": item.Quantity,
		}

		resp, err := s.r.CreateBooking(ctx, fields)
		if err != nil {
			s.log.Error("booking row write failed", "product", item.ID, "err", err)
			out.Failed = append(out.Failed, ItemFailure{Product: item.ID, Error: err.Error()})
			continue
		}
		out.Submitted = append(out.Submitted, ItemResult{Product: item.ID, Data: resp})
	}

	s.log.Info("booking submitted",
		"items", len(req.Items), "ok", len(out.Submitted), "failed", len(out.Failed))
	return out, nil
}
