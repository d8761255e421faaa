// Package router mounts the API routes on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Bookings  *handler.BookingHandler
	Showtimes *handler.ShowtimeHandler
	Health    echo.HandlerFunc
}

// RegisterRoutes mounts /healthz at the root and the API under prefix.
// limiter wraps every API route; pass nil to disable it.
func RegisterRoutes(e *echo.Echo, prefix, jwtSecret string, h Handlers, limiter echo.MiddlewareFunc) {
	e.GET("/healthz", h.Health)

	api := e.Group(prefix, middleware.Identify(jwtSecret))
	if limiter != nil {
		api.Use(limiter)
	}
	authn := middleware.JWTAuth(jwtSecret)

	// sessions
	a := api.Group("/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/refresh", h.Auth.Refresh)
	a.POST("/logout", h.Auth.Logout, middleware.OptionalJWT(jwtSecret))
	api.GET("/me", h.Auth.Me, authn)

	// account administration
	api.POST("/customers", h.Auth.CreateCustomer, authn, middleware.RequireCapability(model.CapManageCustomers))
	api.POST("/staff", h.Auth.CreateStaff, authn, middleware.RequireCapability(model.CapManageStaff))

	// seat maps are public so guests can browse before logging in
	api.GET("/showtimes", h.Showtimes.Search)
	api.GET("/showtimes/:id/seats", h.Showtimes.Seats)

	b := api.Group("/bookings", authn)
	b.POST("", h.Bookings.Create)
	b.GET("", h.Bookings.List)
	b.POST("/cleanup", h.Bookings.Cleanup, middleware.RequireCapability(model.CapCleanupBookings))
	b.GET("/code/:code", h.Bookings.GetByCode, middleware.RequireCapability(model.CapLookupByCode))
	b.GET("/:id", h.Bookings.Get)
	b.PUT("/:id", h.Bookings.Update, middleware.RequireCapability(model.CapUpdateBooking))
	b.POST("/:id/confirm", h.Bookings.Confirm)
	b.GET("/:id/ticket", h.Bookings.Ticket)
	b.DELETE("/:id", h.Bookings.Delete, middleware.RequireCapability(model.CapDeleteBooking))
}
