// Package router registers the HTTP API on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/handler"
	"github.com/iliyamo/train-seat-reservation/internal/middleware"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// Handlers groups every handler the API serves.
type Handlers struct {
	Auth     *handler.AuthHandler
	Trips    *handler.TripHandler
	Holds    *handler.HoldHandler
	Bookings *handler.BookingHandler
	Operator *handler.OperatorHandler
}

// Options carries the middleware settings.  A nil Redis client disables
// the rate limiter and the response cache.
type Options struct {
	JWTSecret string
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Redis     *redis.Client
}

// RegisterRoutes registers the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts the versioned API under /v1.
func RegisterAPI(e *echo.Echo, h Handlers, opt Options) {
	limit := middleware.NewTokenBucket(opt.RateLimit, opt.Redis)
	cache := middleware.NewRedisCache(opt.Cache, opt.Redis)
	auth := middleware.JWTAuth(opt.JWTSecret)

	v1 := e.Group("/v1")
	v1.POST("/auth/login", h.Auth.Login, limit)

	// Public catalog.  Availability changes with every hold and is never cached.
	v1.GET("/trips", h.Trips.Search, cache)
	v1.GET("/trips/:id/schedule", h.Trips.Schedule, cache)
	v1.GET("/trips/:id/feed", h.Trips.Feed, cache)
	v1.GET("/trips/:id/quote", h.Trips.Quote)
	v1.GET("/trips/:id/seats", h.Trips.Seats, middleware.JWTOptional(opt.JWTSecret))

	customer := v1.Group("", auth, middleware.RequireRole(model.RoleCustomer, model.RoleOperator), limit)
	customer.GET("/me", h.Auth.Me)
	customer.POST("/trips/:id/holds", h.Holds.Hold)
	customer.DELETE("/trips/:id/holds", h.Holds.Release)
	customer.POST("/bookings", h.Bookings.Create)
	customer.GET("/bookings/:id", h.Bookings.Get)
	customer.POST("/bookings/:id/tickets", h.Bookings.Confirm)
	customer.POST("/bookings/:id/pay", h.Bookings.Pay)
	customer.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	customer.GET("/tickets/:id/pdf", h.Bookings.TicketPDF)

	operator := v1.Group("/operator", auth, middleware.RequireRole(model.RoleOperator),
		middleware.BumpCacheGeneration(opt.Cache, opt.Redis))
	operator.POST("/trips", h.Operator.CreateTrip)
	operator.PUT("/trips/:id/schedule", h.Operator.Reschedule)
	operator.POST("/trips/:id/cancel", h.Operator.CancelTrip)
	operator.POST("/holds/sweep", h.Holds.Sweep)
}
