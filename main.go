// Package main rental storefront API.
//
// @title           Tillgänglighet Rental API
// @version         1.0
// @description     rental storefront (products with live availability, bookings).
// @BasePath        /
// @schemes         http
package main

import (
	"log/slog"
	"os"
	_ "time/tzdata" // Stockholm zone data on scratch images

	"github.com/Az-source-create/tillgng-2/app/echoServer"
	bookingctrl "github.com/Az-source-create/tillgng-2/app/echoServer/controller/booking"
	productctrl "github.com/Az-source-create/tillgng-2/app/echoServer/controller/product"
	"github.com/Az-source-create/tillgng-2/app/echoServer/validation"
	"github.com/Az-source-create/tillgng-2/config"
	nocodbrepo "github.com/Az-source-create/tillgng-2/repository/nocodb"
	bookingsvc "github.com/Az-source-create/tillgng-2/service/bookings"
	catalogsvc "github.com/Az-source-create/tillgng-2/service/catalog"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// repos
	nr := nocodbrepo.NewHTTP(cfg.ProductsTableURL, cfg.BookingTableURL, cfg.NocoDBToken)

	// services
	cache := bookingsvc.NewCache(nr, log)
	batcher := bookingsvc.NewBatcher(cache, log)
	cs := catalogsvc.New(nr, batcher, log)
	bs := bookingsvc.New(nr, log)

	// controllers
	v := validator.New()
	productC := &productctrl.Controller{Svc: cs, Log: log}
	bookingC := &bookingctrl.Controller{Svc: bs, V: v, Log: log}

	// echo
	e := echo.New()
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Product: productC,
		Booking: bookingC,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}
