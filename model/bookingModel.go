// model/booking.go
package model

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// Stockholm returns the storefront's timezone: the booking form submits
// local wall-clock times and display dates render in it. Loaded lazily so
// an embedded zone database registered at init is already in place; falls
// back to UTC when no zone database is available at all.
var Stockholm = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		return time.UTC
	}
	return loc
})

// BookingRecord is one rental line from the bookings table. The store returns
// the linked product either as a bare id or as an embedded object keyed "id"
// or "Id", and the date columns under several spellings, sometimes wrapped in
// a {value: ...} object. All of that is normalized here, once, when the row
// comes off the wire; nothing downstream re-inspects the raw shape.
type BookingRecord struct {
	ID        string
	ProductID string // canonical id of the linked product, "" when the link is missing
	PickupAt  *time.Time
	ReturnAt  *time.Time
	Quantity  int
	Fields    map[string]any
}

func BookingFromRow(row map[string]any) BookingRecord {
	return BookingRecord{
		ID:        scalarString(firstField(row, "Id", "id")),
		ProductID: NormalizeProductRef(row["Product"]),
		PickupAt:  timeField(row, "Pickup date-time", "PickupDateTime", "pickupDateTime", "Pickup datetime", "pickup_date"),
		ReturnAt:  timeField(row, "Return date-time", "ReturnDateTime", "returnDateTime", "Return datetime", "return_date"),
		Quantity:  quantityField(row),
		Fields:    row,
	}
}

// NormalizeProductRef resolves the polymorphic linked-record field into a
// plain string id. Ids are compared as strings everywhere because the store
// is not consistent about numeric vs string ids.
func NormalizeProductRef(v any) string {
	switch ref := v.(type) {
	case map[string]any:
		if id := scalarString(ref["id"]); id != "" {
			return id
		}
		return scalarString(ref["Id"])
	default:
		return scalarString(v)
	}
}

func quantityField(row map[string]any) int {
	if n, ok := asInt(firstField(row, "Quantity", "quantity", "Antal")); ok && n > 0 {
		return n
	}
	return 1
}

// dateLayouts covers the formats the store has been seen emitting.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func timeField(row map[string]any, keys ...string) *time.Time {
	raw := firstField(row, keys...)
	if wrapped, ok := raw.(map[string]any); ok {
		raw = wrapped["value"]
	}
	s, _ := raw.(string)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	default:
		return ""
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}
