package handler

import (
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/docs"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// JSON shapes returned by the API.  Passenger identity numbers are
// always masked on the way out.

type stationView struct {
	StationID          uint64     `json:"station_id"`
	Sequence           int        `json:"sequence"`
	ScheduledArrival   time.Time  `json:"scheduled_arrival"`
	ScheduledDeparture *time.Time `json:"scheduled_departure,omitempty"`
}

type tripView struct {
	ID              uint64        `json:"id"`
	TrainID         uint64        `json:"train_id"`
	RouteID         uint64        `json:"route_id"`
	DepartureAt     time.Time     `json:"departure_at"`
	ArrivalAt       time.Time     `json:"arrival_at"`
	Status          string        `json:"status"`
	PriceMultiplier float64       `json:"price_multiplier"`
	Stations        []stationView `json:"stations"`
}

func toTripView(t model.Trip) tripView {
	v := tripView{
		ID:              t.ID,
		TrainID:         t.TrainID,
		RouteID:         t.RouteID,
		DepartureAt:     t.DepartureAt,
		ArrivalAt:       t.ArrivalAt,
		Status:          string(t.Status),
		PriceMultiplier: t.PriceMultiplier,
		Stations:        make([]stationView, 0, len(t.Stations)),
	}
	for _, st := range t.Stations {
		v.Stations = append(v.Stations, stationView{
			StationID:          st.StationID,
			Sequence:           st.Sequence,
			ScheduledArrival:   st.ScheduledArrival,
			ScheduledDeparture: st.ScheduledDeparture,
		})
	}
	return v
}

type seatView struct {
	ID        uint64 `json:"id"`
	CoachID   uint64 `json:"coach_id"`
	CoachName string `json:"coach_name"`
	Name      string `json:"name"`
}

func toSeatViews(seats []model.Seat) []seatView {
	out := make([]seatView, 0, len(seats))
	for _, s := range seats {
		out = append(out, seatView{ID: s.ID, CoachID: s.CoachID, CoachName: s.CoachName, Name: s.Name})
	}
	return out
}

type passengerView struct {
	ID             uint64 `json:"id"`
	FullName       string `json:"full_name"`
	IdentityNumber string `json:"identity_number"`
	PassengerType  string `json:"passenger_type"`
}

type ticketView struct {
	ID                uint64 `json:"id"`
	BookingID         uint64 `json:"booking_id"`
	TripID            uint64 `json:"trip_id"`
	SeatID            uint64 `json:"seat_id"`
	PassengerID       uint64 `json:"passenger_id"`
	FromStationID     uint64 `json:"from_station_id"`
	ToStationID       uint64 `json:"to_station_id"`
	SeatName          string `json:"seat_name"`
	CoachName         string `json:"coach_name"`
	PassengerName     string `json:"passenger_name"`
	PassengerIdentity string `json:"passenger_identity"`
	PriceCents        int64  `json:"price_cents"`
	Status            string `json:"status"`
	CancelReason      string `json:"cancel_reason,omitempty"`
}

func toTicketViews(tickets []model.Ticket) []ticketView {
	out := make([]ticketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, ticketView{
			ID:                t.ID,
			BookingID:         t.BookingID,
			TripID:            t.TripID,
			SeatID:            t.SeatID,
			PassengerID:       t.PassengerID,
			FromStationID:     t.Leg.FromStationID,
			ToStationID:       t.Leg.ToStationID,
			SeatName:          t.SeatName,
			CoachName:         t.CoachName,
			PassengerName:     t.PassengerName,
			PassengerIdentity: docs.MaskIdentity(t.PassengerIdentity),
			PriceCents:        t.PriceCents,
			Status:            string(t.Status),
			CancelReason:      t.CancelReason,
		})
	}
	return out
}

type bookingView struct {
	ID            uint64          `json:"id"`
	Code          string          `json:"code"`
	PayerID       uint64          `json:"payer_id"`
	ContactEmail  string          `json:"contact_email,omitempty"`
	TotalCents    int64           `json:"total_cents"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Passengers    []passengerView `json:"passengers"`
	Tickets       []ticketView    `json:"tickets"`
}

func toBookingView(b model.Booking) bookingView {
	v := bookingView{
		ID:            b.ID,
		Code:          b.Code,
		PayerID:       b.PayerID,
		ContactEmail:  b.ContactEmail,
		TotalCents:    b.TotalCents,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CancelReason:  b.CancelReason,
		CreatedAt:     b.CreatedAt,
		Passengers:    make([]passengerView, 0, len(b.Passengers)),
		Tickets:       toTicketViews(b.Tickets),
	}
	for _, p := range b.Passengers {
		v.Passengers = append(v.Passengers, passengerView{
			ID:             p.ID,
			FullName:       p.FullName,
			IdentityNumber: docs.MaskIdentity(p.IdentityNumber),
			PassengerType:  p.PassengerType,
		})
	}
	return v
}
