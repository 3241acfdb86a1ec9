package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-reservation/internal/docs"
	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/middleware"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/service"
)

// BookingHandler drives the booking lifecycle for the authenticated
// payer.  Operators may read and cancel any booking.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: bookings}
}

type passengerReq struct {
	FullName       string `json:"full_name"`
	IdentityNumber string `json:"identity_number"`
	PassengerType  string `json:"passenger_type"`
}

type createBookingReq struct {
	Code         string         `json:"code"`
	ContactEmail string         `json:"contact_email"`
	TotalCents   int64          `json:"total_cents"`
	Passengers   []passengerReq `json:"passengers"`
}

// newBookingCode returns a short public code such as "BK-3F9A1C2E".
func newBookingCode() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Create handles POST /bookings.  A missing code is generated.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, holder, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	if strings.TrimSpace(req.Code) == "" {
		req.Code = newBookingCode()
	}
	passengers := make([]model.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, model.Passenger{
			FullName:       p.FullName,
			IdentityNumber: p.IdentityNumber,
			PassengerType:  strings.ToUpper(strings.TrimSpace(p.PassengerType)),
		})
	}

	b, err := h.Bookings.CreateBooking(c.Request().Context(), service.CreateBookingRequest{
		Code:         req.Code,
		PayerID:      uid,
		HolderID:     holder,
		ContactEmail: req.ContactEmail,
		TotalCents:   req.TotalCents,
		Passengers:   passengers,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingView(b))
}

// owned loads the booking and checks the caller may act on it.
func (h *BookingHandler) owned(c echo.Context) (model.Booking, error) {
	uid, _, ok := caller(c)
	if !ok {
		return model.Booking{}, errUnauthorized
	}
	id, err := pathID(c, "id")
	if err != nil {
		return model.Booking{}, err
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id)
	if err != nil {
		return model.Booking{}, err
	}
	// Foreign bookings are reported as missing.
	if b.PayerID != uid && middleware.CurrentRole(c) != model.RoleOperator {
		return model.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
	}
	return b, nil
}

var errUnauthorized = errors.New("unauthorized")

func (h *BookingHandler) fail(c echo.Context, err error) error {
	if errors.Is(err, errUnauthorized) {
		return unauthorized(c)
	}
	return respondError(c, err)
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, toBookingView(b))
}

type confirmReq struct {
	TripID      uint64                   `json:"trip_id"`
	Assignments []service.SeatAssignment `json:"assignments"`
}

// Confirm handles POST /bookings/:id/tickets.  Either every assignment
// becomes a ticket or none does; stale holds come back as 409 with the
// seat ids.
func (h *BookingHandler) Confirm(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req confirmReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	tickets, err := h.Bookings.ConfirmTickets(c.Request().Context(), service.ConfirmRequest{
		BookingID:   b.ID,
		TripID:      req.TripID,
		HolderID:    b.HolderID,
		Assignments: req.Assignments,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"booking_id": b.ID, "tickets": toTicketViews(tickets)})
}

type payReq struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
}

// Pay handles POST /bookings/:id/pay.  A declined charge answers 402
// with the still pending booking.
func (h *BookingHandler) Pay(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req payReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	paid, err := h.Bookings.ProcessPayment(c.Request().Context(), b.ID, req.AmountCents, req.Method)
	if errors.Is(err, domain.ErrPaymentDeclined) {
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": err.Error(), "booking": toBookingView(paid)})
	}
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingView(paid))
}

type cancelReq struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /bookings/:id/cancel.  Cancelling twice is not an
// error.
func (h *BookingHandler) Cancel(c echo.Context) error {
	b, err := h.owned(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req cancelReq
	if err := c.Bind(&req); err != nil {
		return badBody(c)
	}
	cancelled, err := h.Bookings.CancelBooking(c.Request().Context(), b.ID, req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toBookingView(cancelled))
}

// TicketPDF handles GET /tickets/:id/pdf.
func (h *BookingHandler) TicketPDF(c echo.Context) error {
	uid, _, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	v, err := h.Bookings.GetTicketView(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	if v.Booking.PayerID != uid && middleware.CurrentRole(c) != model.RoleOperator {
		return respondError(c, domain.NotFoundError{Resource: "ticket", ID: id})
	}

	pdf, name, err := docs.BuildETicket(eticketFor(v))
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

func eticketFor(v service.TicketView) docs.ETicket {
	names := make(map[uint64]string, len(v.Route.Stations))
	for _, st := range v.Route.Stations {
		names[st.StationID] = st.StationName
	}
	d := docs.ETicket{
		BookingCode: v.Booking.Code,
		Ticket:      v.Ticket,
		TrainCode:   v.Train.Code,
		FromStation: names[v.Ticket.Leg.FromStationID],
		ToStation:   names[v.Ticket.Leg.ToStationID],
	}
	for _, st := range v.Trip.Stations {
		if st.StationID == v.Ticket.Leg.FromStationID && st.ScheduledDeparture != nil {
			d.DepartureAt = *st.ScheduledDeparture
		}
		if st.StationID == v.Ticket.Leg.ToStationID {
			d.ArrivalAt = st.ScheduledArrival
		}
	}
	return d
}
