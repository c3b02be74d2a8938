package booking

import (
	"fmt"
	"log/slog"
	"net/http"

	bookingsvc "github.com/Az-source-create/tillgng-2/service/bookings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc bookingsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/bookings
func (h *Controller) Submit(c echo.Context) error {
	var req SubmitBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.Submit(c.Request().Context(), toSubmitRequest(req))
	if err != nil {
		h.Log.Error("booking submit", "err", err)
		switch bookingsvc.Code(err) {
		case bookingsvc.ErrNoItems:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "no items in booking"})
		case bookingsvc.ErrBadDate:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "pickup and return must be DD-MM-YYYY HH:mm"})
		case bookingsvc.ErrPickupInPast:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "pickup date cannot be in the past"})
		case bookingsvc.ErrReturnBeforePickup:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "return must be after pickup"})
		case bookingsvc.ErrBookingTooLong:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "maximum 7 days per booking"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}

	if len(out.Failed) > 0 {
		total := len(out.Submitted) + len(out.Failed)
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":              fmt.Sprintf("Failed to submit %d of %d booking records", len(out.Failed), total),
			"details":            out.Failed,
			"partialSuccess":     out.PartialSuccess(),
			"successfulBookings": out.Submitted,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": fmt.Sprintf("Successfully submitted %d booking records", len(out.Submitted)),
		"count":   len(out.Submitted),
	})
}

func toSubmitRequest(req SubmitBookingReq) bookingsvc.SubmitRequest {
	items := make([]bookingsvc.SubmitItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, bookingsvc.SubmitItem{ID: it.ID, Quantity: it.Quantity})
	}
	return bookingsvc.SubmitRequest{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
		Pickup:   req.Pickup,
		Return:   req.Return,
		Notes:    req.Notes,
		Items:    items,
	}
}
