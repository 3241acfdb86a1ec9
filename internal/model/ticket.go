package model

import "time"

// TicketStatus enumerates ticket states.
type TicketStatus string

const (
	TicketActive    TicketStatus = "ACTIVE"
	TicketCancelled TicketStatus = "CANCELLED"
)

// Ticket is a confirmed seat assignment for one passenger on one trip
// leg.  SeatName, CoachName, PassengerName and PassengerIdentity are
// snapshots taken at creation and never change afterwards.
type Ticket struct {
	ID                uint64       // tickets.id
	BookingID         uint64       // tickets.booking_id
	TripID            uint64       // tickets.trip_id
	SeatID            uint64       // tickets.seat_id
	PassengerID       uint64       // tickets.passenger_id
	Leg               Leg          // tickets.from_station_id/to_station_id/from_seq/to_seq
	SeatName          string       // tickets.seat_name
	CoachName         string       // tickets.coach_name
	PassengerName     string       // tickets.passenger_name
	PassengerIdentity string       // tickets.passenger_identity
	PriceCents        int64        // tickets.price_cents
	Status            TicketStatus // tickets.status
	CancelReason      string       // tickets.cancel_reason
	CreatedAt         time.Time    // tickets.created_at
}
