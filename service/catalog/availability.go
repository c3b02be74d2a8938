package catalogsvc

import (
	"fmt"
	"time"

	"github.com/Az-source-create/tillgng-2/model"
)

// Availability explains a product's known available count in terms of its
// bookings. It never computes availability itself; the store's reported
// available count passes through untouched.
type Availability struct {
	Total               int    `json:"total"`
	Booked              int    `json:"booked"`
	Available           int    `json:"available"`
	NextAvailable       string `json:"nextAvailable,omitempty"`
	NextReturnTimestamp int64  `json:"nextReturnTimestamp,omitempty"`
	ReturningQuantity   int    `json:"returningQuantity,omitempty"`
	HasOverdueReturns   bool   `json:"hasOverdueReturns"`
	OverdueQuantity     int    `json:"overdueQuantity,omitempty"`
	OverdueDate         string `json:"overdueDate,omitempty"`
	DaysOverdue         int    `json:"daysOverdue,omitempty"`
}

// ComputeAvailability reduces a product's bookings to a summary. Pure: no
// I/O, no clock reads, same inputs always give the same summary. Bookings
// without a resolvable return timestamp are excluded from every figure.
//
// The earliest future return supplies nextAvailable and its quantity (that
// one booking's quantity, not a sum). Overdue quantity is summed across all
// overdue bookings; overdueDate and daysOverdue come from the most overdue
// one.
func ComputeAvailability(totalQty, availableQty int, bookings []model.BookingRecord, now time.Time) Availability {
	a := Availability{Total: totalQty, Available: availableQty}

	var nextReturn, earliestOverdue *time.Time
	returningQty := 0
	for _, rec := range bookings {
		ret := rec.ReturnAt
		if ret == nil {
			continue
		}
		a.Booked += rec.Quantity
		if ret.After(now) {
			if nextReturn == nil || ret.Before(*nextReturn) {
				nextReturn = ret
				returningQty = rec.Quantity
			}
		} else {
			a.OverdueQuantity += rec.Quantity
			if earliestOverdue == nil || ret.Before(*earliestOverdue) {
				earliestOverdue = ret
			}
		}
	}

	if nextReturn != nil {
		a.NextAvailable = formatReturnDate(*nextReturn)
		a.NextReturnTimestamp = nextReturn.UnixMilli()
		a.ReturningQuantity = returningQty
	}
	if earliestOverdue != nil {
		a.HasOverdueReturns = true
		a.OverdueDate = formatReturnDate(*earliestOverdue)
		a.DaysOverdue = int(now.Sub(*earliestOverdue) / (24 * time.Hour))
	}
	return a
}

var svMonths = [...]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

// formatReturnDate renders a timestamp the way the storefront shows it,
// e.g. "04 mars 2025 15:00".
func formatReturnDate(t time.Time) string {
	t = t.In(model.Stockholm())
	return fmt.Sprintf("%02d %s %d %02d:%02d",
		t.Day(), svMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}
