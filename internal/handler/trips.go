package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/feed"
	"github.com/iliyamo/train-seat-reservation/internal/service"
)

// TripHandler serves the public trip catalog: search, schedules,
// availability and fare quotes.
type TripHandler struct {
	Trips   *service.TripService
	Ledger  *service.SeatHoldLedger
	Pricing *service.PricingService
}

func NewTripHandler(trips *service.TripService, ledger *service.SeatHoldLedger, pricing *service.PricingService) *TripHandler {
	return &TripHandler{Trips: trips, Ledger: ledger, Pricing: pricing}
}

// Search handles GET /trips?origin=&destination=&date=YYYY-MM-DD.
func (h *TripHandler) Search(c echo.Context) error {
	origin, err := queryID(c, "origin")
	if err != nil {
		return respondError(c, err)
	}
	dest, err := queryID(c, "destination")
	if err != nil {
		return respondError(c, err)
	}
	if origin == 0 || dest == 0 {
		return respondError(c, domain.ValidationError{Field: "origin", Msg: "origin and destination are required"})
	}
	date, err := time.Parse("2006-01-02", c.QueryParam("date"))
	if err != nil {
		return respondError(c, domain.ValidationError{Field: "date", Msg: "must be YYYY-MM-DD", Err: err})
	}

	trips, err := h.Trips.SearchTrips(c.Request().Context(), origin, dest, date)
	if err != nil {
		return respondError(c, err)
	}
	out := make([]tripView, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripView(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"trips": out})
}

// Schedule handles GET /trips/:id/schedule.
func (h *TripHandler) Schedule(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	trip, err := h.Trips.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toTripView(trip))
}

// Feed handles GET /trips/:id/feed and returns the schedule as a
// GTFS-realtime message.  format=text selects the protobuf text form.
func (h *TripHandler) Feed(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	ctx := c.Request().Context()
	trip, err := h.Trips.GetSchedule(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	route, err := h.Trips.GetRoute(ctx, trip.RouteID)
	if err != nil {
		return respondError(c, err)
	}

	text := c.QueryParam("format") == "text"
	var buf bytes.Buffer
	if err := feed.Dump(&buf, feed.TripSchedule(trip, route, time.Now().UTC()), text); err != nil {
		return respondError(c, err)
	}
	if text {
		return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
	}
	return c.Blob(http.StatusOK, "application/x-protobuf", buf.Bytes())
}

// Seats handles GET /trips/:id/seats?coach_id=&from=&to=.  Seats held
// by the caller are reported as available to them.
func (h *TripHandler) Seats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var ids [3]uint64
	for i, name := range []string{"coach_id", "from", "to"} {
		if ids[i], err = queryID(c, name); err != nil {
			return respondError(c, err)
		}
	}
	_, holder, _ := caller(c)

	seats, err := h.Ledger.ListAvailable(c.Request().Context(), id, ids[0], holder, ids[1], ids[2])
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"trip_id": id, "seats": toSeatViews(seats)})
}

// Quote handles GET /trips/:id/quote?seat_id=&round_trip=true.
func (h *TripHandler) Quote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	seatID, err := queryID(c, "seat_id")
	if err != nil {
		return respondError(c, err)
	}
	roundTrip := false
	if raw := c.QueryParam("round_trip"); raw != "" {
		if roundTrip, err = strconv.ParseBool(raw); err != nil {
			return respondError(c, domain.ValidationError{Field: "round_trip", Msg: "must be a boolean", Err: err})
		}
	}
	q, err := h.Pricing.Quote(c.Request().Context(), id, seatID, roundTrip)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, q)
}
