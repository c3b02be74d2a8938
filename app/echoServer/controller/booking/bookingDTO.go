package booking

type SubmitItemReq struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// SubmitBookingReq mirrors what the booking form posts: renter fields shared
// across items, pre-formatted pickup/return strings, one entry per product.
type SubmitBookingReq struct {
	FullName string          `json:"fullName" validate:"required"`
	Email    string          `json:"email" validate:"required,email"`
	Phone    string          `json:"phone" validate:"required"`
	Address  string          `json:"address" validate:"required"`
	Pickup   string          `json:"pickupDateTimeFormatted" validate:"required"`
	Return   string          `json:"returnDateTimeFormatted" validate:"required"`
	Notes    string          `json:"notes"`
	Items    []SubmitItemReq `json:"bookingItems" validate:"required,min=1,dive"`
}
