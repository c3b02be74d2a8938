package echoServer

import (
	"github.com/Az-source-create/tillgng-2/app/echoServer/controller/booking"
	"github.com/Az-source-create/tillgng-2/app/echoServer/controller/product"

	"github.com/labstack/echo/v4"
)

type C struct {
	Product *product.Controller
	Booking *booking.Controller
}

func Register(e *echo.Echo, c C) {
	// the storefront is anonymous; every route is public
	pub := e.Group("/v1")

	pub.GET("/products", c.Product.List)
	pub.POST("/bookings", c.Booking.Submit)
}
