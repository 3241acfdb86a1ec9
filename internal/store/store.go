// Package store declares the persistence ports used by the reservation
// services.  Every read-check-write sequence of the engine runs inside
// one Store.Do call, which gives it a single serializable unit of work
// with a bounded wait.
package store

import (
	"context"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// Store runs units of work.  Do commits when fn returns nil and rolls
// back otherwise.  Implementations bound the time spent waiting on
// locks and report an exhausted wait as a domain.TransientError.
type Store interface {
	Do(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the backing store inside one unit of work.  Lookups
// of a single entity return domain.NotFoundError when it does not exist.
type Tx interface {
	ReferenceData
	Trips
	Holds
	Tickets
	Bookings
}

// ReferenceData is read-only catalog data owned outside the engine.
type ReferenceData interface {
	GetRoute(id uint64) (model.Route, error)
	GetTrain(id uint64) (model.Train, error)
	GetTrainType(id uint64) (model.TrainType, error)
	GetSeat(id uint64) (model.Seat, error)
	// ListSeats returns the seats of a train, optionally limited to one
	// coach when coachID is non-zero.
	ListSeats(trainID, coachID uint64) ([]model.Seat, error)
	ListPricingRules() ([]model.PricingRule, error)
}

// Trips persists trips and their derived schedules.
type Trips interface {
	CreateTrip(t *model.Trip) error
	// GetTrip loads the trip with its stations ordered by sequence.
	GetTrip(id uint64) (model.Trip, error)
	UpdateTripTiming(id uint64, departure, arrival time.Time) error
	ReplaceTripStations(tripID uint64, stations []model.TripStation) error
	UpdateTripStatus(id uint64, status model.TripStatus) error
	// SearchTrips returns scheduled trips departing in [from, to) that call
	// at originID before destinationID.
	SearchTrips(originID, destinationID uint64, from, to time.Time) ([]model.Trip, error)
}

// Holds persists seat holds.  At most one row exists per (trip, seat);
// whether it is live is decided by the caller against its clock.
type Holds interface {
	// LockHold returns the hold row for (trip, seat), or nil when none
	// exists, and locks the slot for the rest of the unit of work.
	LockHold(tripID, seatID uint64) (*model.SeatHold, error)
	UpsertHold(h model.SeatHold) error
	// DeleteHold removes the hold only when holderID owns it.
	DeleteHold(tripID, seatID uint64, holderID string) (bool, error)
	// DeleteHoldsByHolder removes the holder's holds on one trip.
	DeleteHoldsByHolder(tripID uint64, holderID string) (int64, error)
	// DeleteExpiredHolds removes dead holds of one trip, or of every trip
	// when tripID is zero.
	DeleteExpiredHolds(tripID uint64, now time.Time) (int64, error)
	// ListLiveHolds returns holds on the trip expiring after now.
	ListLiveHolds(tripID uint64, now time.Time) ([]model.SeatHold, error)
}

// Tickets persists issued tickets.
type Tickets interface {
	CreateTicket(t *model.Ticket) error
	GetTicket(id uint64) (model.Ticket, error)
	ListActiveTicketsBySeat(tripID, seatID uint64) ([]model.Ticket, error)
	ListActiveTicketsByTrip(tripID uint64) ([]model.Ticket, error)
	ListTicketsByBooking(bookingID uint64) ([]model.Ticket, error)
	CancelTicketsByBooking(bookingID uint64, reason string) (int64, error)
	CancelTicketsByTrip(tripID uint64, reason string) (int64, error)
}

// Bookings persists booking headers, passengers and payments.
type Bookings interface {
	// CreateBooking inserts the header and its passengers, filling in
	// their IDs.  A duplicate code is a domain.ConflictError.
	CreateBooking(b *model.Booking) error
	// GetBooking loads the header with its passengers and locks it for
	// the rest of the unit of work.
	GetBooking(id uint64) (model.Booking, error)
	UpdateBookingStatus(id uint64, status model.BookingStatus, payment model.PaymentStatus, reason string) error
	UpdateBookingTotal(id uint64, totalCents int64) error
	RecordPayment(p *model.Payment) error
}
