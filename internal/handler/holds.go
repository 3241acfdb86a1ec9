package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-reservation/internal/service"
)

// HoldHandler exposes the seat hold ledger to authenticated customers.
// The hold owner is always derived from the token, never the body.
type HoldHandler struct {
	Ledger *service.SeatHoldLedger
}

func NewHoldHandler(ledger *service.SeatHoldLedger) *HoldHandler {
	return &HoldHandler{Ledger: ledger}
}

type holdReq struct {
	SeatIDs       []uint64 `json:"seat_ids"`
	TTLSeconds    int      `json:"ttl_seconds"`
	FromStationID uint64   `json:"from_station_id"`
	ToStationID   uint64   `json:"to_station_id"`
}

// Hold handles POST /trips/:id/holds.  Every seat gets its own result;
// the response is 200 when at least one seat was held and 409 when none
// was.
func (h *HoldHandler) Hold(c echo.Context) error {
	_, holder, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	tripID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req holdReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}

	results, err := h.Ledger.Acquire(c.Request().Context(), service.AcquireRequest{
		TripID:        tripID,
		SeatIDs:       req.SeatIDs,
		HolderID:      holder,
		TTL:           time.Duration(req.TTLSeconds) * time.Second,
		FromStationID: req.FromStationID,
		ToStationID:   req.ToStationID,
	})
	if err != nil {
		return respondError(c, err)
	}
	status := http.StatusOK
	failed := service.FailedSeats(results)
	if len(failed) == len(results) {
		status = http.StatusConflict
	}
	return c.JSON(status, echo.Map{"trip_id": tripID, "results": results, "failed_seat_ids": failed})
}

type releaseReq struct {
	SeatIDs []uint64 `json:"seat_ids"`
}

// Release handles DELETE /trips/:id/holds.  An empty seat list releases
// all of the caller's holds on the trip.
func (h *HoldHandler) Release(c echo.Context) error {
	_, holder, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	tripID, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var req releaseReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	released, err := h.Ledger.Release(c.Request().Context(), tripID, req.SeatIDs, holder)
	if err != nil {
		return respondError(c, err)
	}
	if released == nil {
		released = []uint64{}
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_id": tripID, "released_seat_ids": released})
}

// Sweep handles POST /operator/holds/sweep and purges expired holds now.
func (h *HoldHandler) Sweep(c echo.Context) error {
	n, err := h.Ledger.Sweep(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": n})
}
