package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-reservation/internal/schedule"
	"github.com/iliyamo/train-seat-reservation/internal/service"
)

// OperatorHandler manages trips.  Routes, trains and seats are reference
// data maintained outside this API.
type OperatorHandler struct {
	Trips *service.TripService
}

func NewOperatorHandler(trips *service.TripService) *OperatorHandler {
	return &OperatorHandler{Trips: trips}
}

type createTripReq struct {
	TrainID         uint64    `json:"train_id"`
	RouteID         uint64    `json:"route_id"`
	DepartureAt     time.Time `json:"departure_at"`
	ArrivalAt       time.Time `json:"arrival_at"`
	PriceMultiplier float64   `json:"price_multiplier"`
}

// CreateTrip handles POST /operator/trips.  A route too short to
// schedule still creates the trip; the response then carries a warning
// and an empty station list.
func (h *OperatorHandler) CreateTrip(c echo.Context) error {
	var req createTripReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	trip, err := h.Trips.CreateTrip(c.Request().Context(), service.CreateTripRequest{
		TrainID:         req.TrainID,
		RouteID:         req.RouteID,
		DepartureAt:     req.DepartureAt,
		ArrivalAt:       req.ArrivalAt,
		PriceMultiplier: req.PriceMultiplier,
	})
	if schedule.IsUngeneratable(err) {
		return c.JSON(http.StatusCreated, echo.Map{"trip": toTripView(trip), "warning": err.Error()})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"trip": toTripView(trip)})
}

type timingReq struct {
	DepartureAt time.Time `json:"departure_at"`
	ArrivalAt   time.Time `json:"arrival_at"`
}

// Reschedule handles PUT /operator/trips/:id/schedule.
func (h *OperatorHandler) Reschedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req timingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	trip, err := h.Trips.RegenerateSchedule(c.Request().Context(), id, req.DepartureAt, req.ArrivalAt)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip": toTripView(trip)})
}

// CancelTrip handles POST /operator/trips/:id/cancel and cancels every
// active ticket on the trip with it.
func (h *OperatorHandler) CancelTrip(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	trip, n, err := h.Trips.CancelTrip(c.Request().Context(), id, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip": toTripView(trip), "tickets_cancelled": n})
}
