package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// sqlTx adapts the repositories to store.Tx for one transaction.
type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
	s   *SQLStore
}

var _ store.Tx = (*sqlTx)(nil)

func (t *sqlTx) GetRoute(id uint64) (model.Route, error) {
	return t.s.Reference.GetRouteTx(t.ctx, t.tx, id)
}

func (t *sqlTx) GetTrain(id uint64) (model.Train, error) {
	return t.s.Reference.GetTrainTx(t.ctx, t.tx, id)
}

func (t *sqlTx) GetTrainType(id uint64) (model.TrainType, error) {
	return t.s.Reference.GetTrainTypeTx(t.ctx, t.tx, id)
}

func (t *sqlTx) GetSeat(id uint64) (model.Seat, error) {
	return t.s.Reference.GetSeatTx(t.ctx, t.tx, id)
}

func (t *sqlTx) ListSeats(trainID, coachID uint64) ([]model.Seat, error) {
	return t.s.Reference.ListSeatsTx(t.ctx, t.tx, trainID, coachID)
}

func (t *sqlTx) ListPricingRules() ([]model.PricingRule, error) {
	return t.s.Reference.ListPricingRulesTx(t.ctx, t.tx)
}

func (t *sqlTx) CreateTrip(trip *model.Trip) error {
	return t.s.Trips.CreateTx(t.ctx, t.tx, trip)
}

func (t *sqlTx) GetTrip(id uint64) (model.Trip, error) {
	return t.s.Trips.GetTx(t.ctx, t.tx, id)
}

func (t *sqlTx) UpdateTripTiming(id uint64, departure, arrival time.Time) error {
	return t.s.Trips.UpdateTimingTx(t.ctx, t.tx, id, departure, arrival)
}

func (t *sqlTx) ReplaceTripStations(tripID uint64, stations []model.TripStation) error {
	return t.s.Trips.ReplaceStationsTx(t.ctx, t.tx, tripID, stations)
}

func (t *sqlTx) UpdateTripStatus(id uint64, status model.TripStatus) error {
	return t.s.Trips.UpdateStatusTx(t.ctx, t.tx, id, status)
}

func (t *sqlTx) SearchTrips(originID, destinationID uint64, from, to time.Time) ([]model.Trip, error) {
	return t.s.Trips.SearchTx(t.ctx, t.tx, originID, destinationID, from, to)
}

func (t *sqlTx) LockHold(tripID, seatID uint64) (*model.SeatHold, error) {
	return t.s.Holds.LockTx(t.ctx, t.tx, tripID, seatID)
}

func (t *sqlTx) UpsertHold(h model.SeatHold) error {
	return t.s.Holds.UpsertTx(t.ctx, t.tx, h)
}

func (t *sqlTx) DeleteHold(tripID, seatID uint64, holderID string) (bool, error) {
	return t.s.Holds.DeleteTx(t.ctx, t.tx, tripID, seatID, holderID)
}

func (t *sqlTx) DeleteHoldsByHolder(tripID uint64, holderID string) (int64, error) {
	return t.s.Holds.DeleteByHolderTx(t.ctx, t.tx, tripID, holderID)
}

func (t *sqlTx) DeleteExpiredHolds(tripID uint64, now time.Time) (int64, error) {
	return t.s.Holds.ExpireHoldsTx(t.ctx, t.tx, tripID, now)
}

func (t *sqlTx) ListLiveHolds(tripID uint64, now time.Time) ([]model.SeatHold, error) {
	return t.s.Holds.LiveHoldsTx(t.ctx, t.tx, tripID, now)
}

func (t *sqlTx) CreateTicket(tk *model.Ticket) error {
	return t.s.Tickets.CreateTx(t.ctx, t.tx, tk)
}

func (t *sqlTx) GetTicket(id uint64) (model.Ticket, error) {
	return t.s.Tickets.GetTx(t.ctx, t.tx, id)
}

func (t *sqlTx) ListActiveTicketsBySeat(tripID, seatID uint64) ([]model.Ticket, error) {
	return t.s.Tickets.ActiveBySeatTx(t.ctx, t.tx, tripID, seatID)
}

func (t *sqlTx) ListActiveTicketsByTrip(tripID uint64) ([]model.Ticket, error) {
	return t.s.Tickets.ActiveByTripTx(t.ctx, t.tx, tripID)
}

func (t *sqlTx) ListTicketsByBooking(bookingID uint64) ([]model.Ticket, error) {
	return t.s.Tickets.ByBookingTx(t.ctx, t.tx, bookingID)
}

func (t *sqlTx) CancelTicketsByBooking(bookingID uint64, reason string) (int64, error) {
	return t.s.Tickets.CancelByBookingTx(t.ctx, t.tx, bookingID, reason)
}

func (t *sqlTx) CancelTicketsByTrip(tripID uint64, reason string) (int64, error) {
	return t.s.Tickets.CancelByTripTx(t.ctx, t.tx, tripID, reason)
}

func (t *sqlTx) CreateBooking(b *model.Booking) error {
	return t.s.Bookings.CreateTx(t.ctx, t.tx, b)
}

func (t *sqlTx) GetBooking(id uint64) (model.Booking, error) {
	return t.s.Bookings.GetForUpdateTx(t.ctx, t.tx, id)
}

func (t *sqlTx) UpdateBookingStatus(id uint64, status model.BookingStatus, payment model.PaymentStatus, reason string) error {
	return t.s.Bookings.UpdateStatusTx(t.ctx, t.tx, id, status, payment, reason)
}

func (t *sqlTx) UpdateBookingTotal(id uint64, totalCents int64) error {
	return t.s.Bookings.UpdateTotalTx(t.ctx, t.tx, id, totalCents)
}

func (t *sqlTx) RecordPayment(p *model.Payment) error {
	return t.s.Bookings.RecordPaymentTx(t.ctx, t.tx, p)
}
