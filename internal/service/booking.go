package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/pricing"
	"github.com/iliyamo/train-seat-reservation/internal/queue"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// Passenger types accepted on bookings.
var passengerTypes = map[string]bool{"ADULT": true, "CHILD": true, "SENIOR": true}

// CreateBookingRequest is the header and passenger list of a new booking.
type CreateBookingRequest struct {
	Code         string
	PayerID      uint64
	HolderID     string
	ContactEmail string
	TotalCents   int64
	Passengers   []model.Passenger
}

// SeatAssignment puts one passenger of a booking on one held seat.
type SeatAssignment struct {
	SeatID      uint64 `json:"seat_id"`
	PassengerID uint64 `json:"passenger_id"`
}

// ConfirmRequest converts the holder's holds on a trip into tickets.
type ConfirmRequest struct {
	BookingID   uint64
	TripID      uint64
	HolderID    string
	Assignments []SeatAssignment
}

// BookingService drives the booking state machine:
//
//	PENDING/UNPAID -> CONFIRMED/PAID         payment approved
//	PENDING/UNPAID -> CANCELLED/UNPAID       payment declined or caller cancels
//	CONFIRMED/PAID -> CANCELLED/REFUNDED     cancelled before travel
type BookingService struct {
	store     store.Store
	resolver  pricing.Resolver
	gateway   PaymentGateway
	publisher EventPublisher
	now       Clock
}

// NewBookingService wires a booking service.  A nil publisher drops
// events; a nil clock uses UTC wall time.
func NewBookingService(st store.Store, resolver pricing.Resolver, gateway PaymentGateway, publisher EventPublisher, now Clock) *BookingService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if now == nil {
		now = utcNow
	}
	return &BookingService{store: st, resolver: resolver, gateway: gateway, publisher: publisher, now: now}
}

func validateBooking(req CreateBookingRequest) error {
	if strings.TrimSpace(req.Code) == "" {
		return domain.ValidationError{Field: "code", Msg: "is required"}
	}
	if req.TotalCents <= 0 {
		return domain.ValidationError{Field: "total_cents", Msg: "must be positive"}
	}
	if req.PayerID == 0 {
		return domain.ValidationError{Field: "payer_id", Msg: "is required"}
	}
	if req.HolderID == "" {
		return domain.ValidationError{Field: "holder_id", Msg: "is required"}
	}
	if req.ContactEmail != "" {
		if _, err := mail.ParseAddress(req.ContactEmail); err != nil {
			return domain.ValidationError{Field: "contact_email", Msg: "is not a valid address", Err: err}
		}
	}
	if len(req.Passengers) == 0 {
		return domain.ValidationError{Field: "passengers", Msg: "at least one passenger is required"}
	}
	for i, p := range req.Passengers {
		if strings.TrimSpace(p.FullName) == "" {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].full_name", i), Msg: "is required"}
		}
		if strings.TrimSpace(p.IdentityNumber) == "" {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].identity_number", i), Msg: "is required"}
		}
		if p.PassengerType != "" && !passengerTypes[p.PassengerType] {
			return domain.ValidationError{Field: fmt.Sprintf("passengers[%d].passenger_type", i), Msg: "must be ADULT, CHILD or SENIOR"}
		}
	}
	return nil
}

// CreateBooking validates the header and persists it with its
// passengers as PENDING/UNPAID.  Nothing is written when validation fails.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (model.Booking, error) {
	if err := validateBooking(req); err != nil {
		return model.Booking{}, err
	}
	b := model.Booking{
		Code:          strings.TrimSpace(req.Code),
		PayerID:       req.PayerID,
		HolderID:      req.HolderID,
		ContactEmail:  req.ContactEmail,
		TotalCents:    req.TotalCents,
		Status:        model.BookingPending,
		PaymentStatus: model.PaymentUnpaid,
	}
	for _, p := range req.Passengers {
		p.FullName = strings.TrimSpace(p.FullName)
		p.IdentityNumber = strings.TrimSpace(p.IdentityNumber)
		if p.PassengerType == "" {
			p.PassengerType = "ADULT"
		}
		b.Passengers = append(b.Passengers, p)
	}
	err := do(ctx, s.store, "create_booking", bookingLog, func(tx store.Tx) error {
		row := b
		row.Passengers = append([]model.Passenger(nil), b.Passengers...)
		if err := tx.CreateBooking(&row); err != nil {
			return err
		}
		b = row
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	bookingLog.Infoj(log.JSON{"action": "created", "booking_id": b.ID, "code": b.Code, "payer_id": b.PayerID, "passengers": len(b.Passengers)})
	return b, nil
}

// GetBooking loads a booking with its passengers and tickets.
func (s *BookingService) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	var b model.Booking
	err := do(ctx, s.store, "get_booking", bookingLog, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBooking(id); err != nil {
			return err
		}
		b.Tickets, err = tx.ListTicketsByBooking(id)
		return err
	})
	return b, err
}

// ConfirmTickets turns the holder's live holds into tickets owned by the
// booking.  Every hold is re-validated and every ticket written in one
// unit of work: if any seat's hold is missing, expired or owned by
// someone else, no ticket is created and no hold is consumed.  The
// booking total is reset to the sum of its active tickets.
func (s *BookingService) ConfirmTickets(ctx context.Context, req ConfirmRequest) ([]model.Ticket, error) {
	if len(req.Assignments) == 0 {
		return nil, domain.ValidationError{Field: "assignments", Msg: "at least one seat is required"}
	}
	seen := make(map[uint64]bool, len(req.Assignments))
	for i, a := range req.Assignments {
		if a.SeatID == 0 || a.PassengerID == 0 {
			return nil, domain.ValidationError{Field: fmt.Sprintf("assignments[%d]", i), Msg: "seat_id and passenger_id are required"}
		}
		if seen[a.SeatID] {
			return nil, domain.ValidationError{Field: fmt.Sprintf("assignments[%d].seat_id", i), Msg: "duplicate seat"}
		}
		seen[a.SeatID] = true
	}

	var issued []model.Ticket
	err := do(ctx, s.store, "confirm_tickets", bookingLog, func(tx store.Tx) error {
		issued = nil
		now := s.now()

		b, err := tx.GetBooking(req.BookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentUnpaid {
			return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s/%s", b.Status, b.PaymentStatus)}
		}
		if b.HolderID != req.HolderID {
			return domain.ConflictError{Resource: "booking", Msg: "booking belongs to another holder"}
		}
		passengers := make(map[uint64]model.Passenger, len(b.Passengers))
		for _, p := range b.Passengers {
			passengers[p.ID] = p
		}

		trip, err := tx.GetTrip(req.TripID)
		if err != nil {
			return err
		}
		if !trip.Bookable(now) {
			return domain.ConflictError{Resource: "trip", Msg: "trip is not open for booking"}
		}

		// lock and check every hold before writing anything
		holds := make([]model.SeatHold, len(req.Assignments))
		var stale []uint64
		for i, a := range req.Assignments {
			if _, ok := passengers[a.PassengerID]; !ok {
				return domain.ValidationError{Field: fmt.Sprintf("assignments[%d].passenger_id", i), Msg: "passenger is not on this booking"}
			}
			h, err := tx.LockHold(trip.ID, a.SeatID)
			if err != nil {
				return err
			}
			if h == nil || !h.LiveAt(now) || h.HolderID != req.HolderID {
				stale = append(stale, a.SeatID)
				continue
			}
			holds[i] = *h
		}
		if len(stale) > 0 {
			return domain.ConflictError{Resource: "hold", Msg: "hold expired or not owned by caller", SeatIDs: stale}
		}

		fare, err := tripFare(tx, s.resolver, trip, false)
		if err != nil {
			return err
		}
		for i, a := range req.Assignments {
			seat, err := tx.GetSeat(a.SeatID)
			if err != nil {
				return err
			}
			if seat.TrainID != trip.TrainID {
				return domain.NotFoundError{Resource: "seat", ID: a.SeatID}
			}
			existing, err := tx.ListActiveTicketsBySeat(trip.ID, seat.ID)
			if err != nil {
				return err
			}
			for _, tk := range existing {
				if tk.Leg.Overlaps(holds[i].Leg) {
					return domain.ConflictError{Resource: "ticket", Msg: "seat already ticketed", SeatIDs: []uint64{seat.ID}}
				}
			}
			p := passengers[a.PassengerID]
			tk := model.Ticket{
				BookingID:         b.ID,
				TripID:            trip.ID,
				SeatID:            seat.ID,
				PassengerID:       p.ID,
				Leg:               holds[i].Leg,
				SeatName:          seat.Name,
				CoachName:         seat.CoachName,
				PassengerName:     p.FullName,
				PassengerIdentity: p.IdentityNumber,
				PriceCents:        seatPrice(fare, trip, seat),
				Status:            model.TicketActive,
				CreatedAt:         now,
			}
			if err := tx.CreateTicket(&tk); err != nil {
				return err
			}
			if _, err := tx.DeleteHold(trip.ID, seat.ID, req.HolderID); err != nil {
				return err
			}
			issued = append(issued, tk)
		}

		all, err := tx.ListTicketsByBooking(b.ID)
		if err != nil {
			return err
		}
		var total int64
		for _, tk := range all {
			if tk.Status == model.TicketActive {
				total += tk.PriceCents
			}
		}
		return tx.UpdateBookingTotal(b.ID, total)
	})
	if err != nil {
		bookingLog.Warnf("action=confirm_tickets booking_id=%d trip_id=%d err=%q", req.BookingID, req.TripID, err.Error())
		return nil, err
	}
	bookingLog.Infoj(log.JSON{"action": "tickets_confirmed", "booking_id": req.BookingID, "trip_id": req.TripID, "tickets": len(issued)})
	return issued, nil
}

// ProcessPayment charges the booking total through the gateway.  The
// amount must match the total exactly.  On approval the booking becomes
// CONFIRMED/PAID and a booking.confirmed event is published; on decline
// the payment attempt is recorded, the booking stays PENDING and
// domain.ErrPaymentDeclined is returned so the caller can cancel.
func (s *BookingService) ProcessPayment(ctx context.Context, bookingID uint64, amountCents int64, method string) (model.Booking, error) {
	if strings.TrimSpace(method) == "" {
		return model.Booking{}, domain.ValidationError{Field: "method", Msg: "is required"}
	}
	var b model.Booking
	err := do(ctx, s.store, "payment.check", bookingLog, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBooking(bookingID); err != nil {
			return err
		}
		return checkPayable(tx, b, amountCents)
	})
	if err != nil {
		return model.Booking{}, err
	}

	// the gateway is never called inside a unit of work
	approved, err := s.gateway.Charge(ctx, b.Code, amountCents, method)
	if err != nil {
		bookingLog.Errorf("action=charge booking_id=%d err=%q", bookingID, err.Error())
		return model.Booking{}, domain.TransientError{Op: "payment gateway", Err: err}
	}

	var tickets []model.Ticket
	err = do(ctx, s.store, "payment.record", bookingLog, func(tx store.Tx) error {
		var err error
		if b, err = tx.GetBooking(bookingID); err != nil {
			return err
		}
		if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentUnpaid {
			return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking changed to %s/%s during payment", b.Status, b.PaymentStatus)}
		}
		if err := tx.RecordPayment(&model.Payment{
			BookingID:   b.ID,
			AmountCents: amountCents,
			Method:      method,
			Success:     approved,
			CreatedAt:   s.now(),
		}); err != nil {
			return err
		}
		if !approved {
			return nil
		}
		if err := tx.UpdateBookingStatus(b.ID, model.BookingConfirmed, model.PaymentPaid, ""); err != nil {
			return err
		}
		b.Status, b.PaymentStatus = model.BookingConfirmed, model.PaymentPaid
		tickets, err = tx.ListTicketsByBooking(b.ID)
		return err
	})
	if err != nil {
		if approved {
			bookingLog.Errorf("action=payment booking_id=%d charged=true err=%q refund required", bookingID, err.Error())
		}
		return model.Booking{}, err
	}
	if !approved {
		bookingLog.Infoj(log.JSON{"action": "payment_declined", "booking_id": b.ID})
		return b, domain.ErrPaymentDeclined
	}
	b.Tickets = tickets
	bookingLog.Infoj(log.JSON{"action": "confirmed", "booking_id": b.ID, "total_cents": b.TotalCents})
	if err := s.publisher.PublishBookingConfirmed(ctx, bookingEvent(b, tickets, "", s.now())); err != nil {
		bookingLog.Warnf("action=publish event=booking.confirmed booking_id=%d err=%q", b.ID, err.Error())
	}
	return b, nil
}

func checkPayable(tx store.Tx, b model.Booking, amountCents int64) error {
	if b.Status != model.BookingPending || b.PaymentStatus != model.PaymentUnpaid {
		return domain.ConflictError{Resource: "booking", Msg: fmt.Sprintf("booking is %s/%s", b.Status, b.PaymentStatus)}
	}
	tickets, err := tx.ListTicketsByBooking(b.ID)
	if err != nil {
		return err
	}
	active := 0
	for _, tk := range tickets {
		if tk.Status == model.TicketActive {
			active++
		}
	}
	if active == 0 {
		return domain.ConflictError{Resource: "booking", Msg: "booking has no tickets"}
	}
	if amountCents != b.TotalCents {
		return domain.ValidationError{Field: "amount_cents", Msg: fmt.Sprintf("must equal booking total %d", b.TotalCents)}
	}
	return nil
}

// CancelBooking cancels the booking and its active tickets, releases the
// holder's remaining holds and marks a paid booking REFUNDED.  Tickets
// of other bookings are never touched.  Cancelling an already cancelled
// booking returns it unchanged.  Refund amounts are not computed here.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uint64, reason string) (model.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "cancelled by customer"
	}
	var (
		b       model.Booking
		changed bool
	)
	err := do(ctx, s.store, "cancel_booking", bookingLog, func(tx store.Tx) error {
		changed = false
		now := s.now()
		var err error
		if b, err = tx.GetBooking(bookingID); err != nil {
			return err
		}
		if b.Status == model.BookingCancelled {
			b.Tickets, err = tx.ListTicketsByBooking(b.ID)
			return err
		}
		tickets, err := tx.ListTicketsByBooking(b.ID)
		if err != nil {
			return err
		}
		departed := map[uint64]bool{}
		for _, tk := range tickets {
			if tk.Status != model.TicketActive {
				continue
			}
			if _, seen := departed[tk.TripID]; !seen {
				trip, err := tx.GetTrip(tk.TripID)
				if err != nil {
					return err
				}
				departed[tk.TripID] = !trip.DepartureAt.After(now) && trip.Status != model.TripCancelled
			}
			if departed[tk.TripID] {
				return domain.ConflictError{Resource: "booking", Msg: "travel has already started"}
			}
		}

		payment := b.PaymentStatus
		if payment == model.PaymentPaid {
			payment = model.PaymentRefunded
		}
		if err := tx.UpdateBookingStatus(b.ID, model.BookingCancelled, payment, reason); err != nil {
			return err
		}
		if _, err := tx.CancelTicketsByBooking(b.ID, reason); err != nil {
			return err
		}
		// release what the holder still holds on this booking's trips;
		// holds on other trips may belong to another checkout
		released := map[uint64]bool{}
		for _, tk := range tickets {
			if released[tk.TripID] {
				continue
			}
			released[tk.TripID] = true
			if _, err := tx.DeleteHoldsByHolder(tk.TripID, b.HolderID); err != nil {
				return err
			}
		}
		b.Status, b.PaymentStatus, b.CancelReason = model.BookingCancelled, payment, reason
		b.Tickets, err = tx.ListTicketsByBooking(b.ID)
		changed = true
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}
	if !changed {
		return b, nil
	}
	bookingLog.Infoj(log.JSON{"action": "cancelled", "booking_id": b.ID, "payment_status": string(b.PaymentStatus)})
	if err := s.publisher.PublishBookingCancelled(ctx, bookingEvent(b, b.Tickets, reason, s.now())); err != nil {
		bookingLog.Warnf("action=publish event=booking.cancelled booking_id=%d err=%q", b.ID, err.Error())
	}
	return b, nil
}

func bookingEvent(b model.Booking, tickets []model.Ticket, reason string, at time.Time) queue.BookingEvent {
	ev := queue.BookingEvent{
		BookingID:     b.ID,
		BookingCode:   b.Code,
		PayerID:       b.PayerID,
		TotalCents:    b.TotalCents,
		PaymentStatus: string(b.PaymentStatus),
		Reason:        reason,
		OccurredAt:    at.UTC().Format(time.RFC3339),
	}
	trips := map[uint64]bool{}
	for _, tk := range tickets {
		if !trips[tk.TripID] {
			trips[tk.TripID] = true
			ev.TripIDs = append(ev.TripIDs, tk.TripID)
		}
		ev.SeatLabels = append(ev.SeatLabels, tk.CoachName+"-"+tk.SeatName)
	}
	return ev
}

// TicketView bundles a ticket with the booking, trip, route and train it
// belongs to, as needed to print it.
type TicketView struct {
	Ticket  model.Ticket
	Booking model.Booking
	Trip    model.Trip
	Route   model.Route
	Train   model.Train
}

// GetTicketView loads a ticket and its context in one unit of work.
func (s *BookingService) GetTicketView(ctx context.Context, ticketID uint64) (TicketView, error) {
	var v TicketView
	err := do(ctx, s.store, "ticket_view", bookingLog, func(tx store.Tx) error {
		var err error
		if v.Ticket, err = tx.GetTicket(ticketID); err != nil {
			return err
		}
		if v.Booking, err = tx.GetBooking(v.Ticket.BookingID); err != nil {
			return err
		}
		if v.Trip, err = tx.GetTrip(v.Ticket.TripID); err != nil {
			return err
		}
		if v.Route, err = tx.GetRoute(v.Trip.RouteID); err != nil {
			return err
		}
		v.Train, err = tx.GetTrain(v.Trip.TrainID)
		return err
	})
	return v, err
}
