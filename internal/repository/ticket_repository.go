package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// TicketRepo persists issued tickets.  Snapshot columns are written once
// at creation and never updated.
type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

const ticketColumns = `SELECT id, booking_id, trip_id, seat_id, passenger_id, from_station_id, to_station_id, from_seq, to_seq,
	seat_name, coach_name, passenger_name, passenger_identity, price_cents, status, cancel_reason, created_at
	FROM tickets`

func scanTicket(sc scanner) (model.Ticket, error) {
	var (
		t      model.Ticket
		status string
	)
	err := sc.Scan(&t.ID, &t.BookingID, &t.TripID, &t.SeatID, &t.PassengerID,
		&t.Leg.FromStationID, &t.Leg.ToStationID, &t.Leg.FromSeq, &t.Leg.ToSeq,
		&t.SeatName, &t.CoachName, &t.PassengerName, &t.PassengerIdentity,
		&t.PriceCents, &status, &t.CancelReason, &t.CreatedAt)
	t.Status = model.TicketStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, err
}

// CreateTx inserts an active ticket.  An active ticket already covering
// an overlapping leg of the same seat is a ConflictError; the rows are
// read FOR UPDATE so concurrent confirmations serialize on them.
func (r *TicketRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const check = `SELECT id FROM tickets
	               WHERE trip_id = ? AND seat_id = ? AND status = ? AND from_seq < ? AND ? < to_seq
	               LIMIT 1 FOR UPDATE`
	var existing uint64
	err := tx.QueryRowContext(ctx, check, t.TripID, t.SeatID, string(model.TicketActive), t.Leg.ToSeq, t.Leg.FromSeq).Scan(&existing)
	switch {
	case err == nil:
		return domain.ConflictError{Resource: "ticket", Msg: "seat already ticketed", SeatIDs: []uint64{t.SeatID}}
	case !errors.Is(err, sql.ErrNoRows):
		return mapError("create ticket", "ticket", 0, err)
	}

	if t.Status == "" {
		t.Status = model.TicketActive
	}
	const q = `INSERT INTO tickets
	             (booking_id, trip_id, seat_id, passenger_id, from_station_id, to_station_id, from_seq, to_seq,
	              seat_name, coach_name, passenger_name, passenger_identity, price_cents, status, cancel_reason, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.BookingID, t.TripID, t.SeatID, t.PassengerID,
		t.Leg.FromStationID, t.Leg.ToStationID, t.Leg.FromSeq, t.Leg.ToSeq,
		t.SeatName, t.CoachName, t.PassengerName, t.PassengerIdentity,
		t.PriceCents, string(t.Status), t.CancelReason, t.CreatedAt.UTC())
	if err != nil {
		return mapError("create ticket", "ticket", 0, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TicketRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Ticket, error) {
	t, err := scanTicket(tx.QueryRowContext(ctx, ticketColumns+` WHERE id = ?`, id))
	return t, mapError("get ticket", "ticket", id, err)
}

func (r *TicketRepo) ActiveBySeatTx(ctx context.Context, tx *sql.Tx, tripID, seatID uint64) ([]model.Ticket, error) {
	return r.listTx(ctx, tx, ` WHERE trip_id = ? AND seat_id = ? AND status = ? ORDER BY id`, tripID, seatID, string(model.TicketActive))
}

func (r *TicketRepo) ActiveByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.Ticket, error) {
	return r.listTx(ctx, tx, ` WHERE trip_id = ? AND status = ? ORDER BY id`, tripID, string(model.TicketActive))
}

func (r *TicketRepo) ByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]model.Ticket, error) {
	return r.listTx(ctx, tx, ` WHERE booking_id = ? ORDER BY id`, bookingID)
}

func (r *TicketRepo) listTx(ctx context.Context, tx *sql.Tx, where string, args ...interface{}) ([]model.Ticket, error) {
	rows, err := tx.QueryContext(ctx, ticketColumns+where, args...)
	if err != nil {
		return nil, mapError("list tickets", "ticket", 0, err)
	}
	defer rows.Close()
	var out []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CancelByBookingTx cancels the booking's active tickets.
func (r *TicketRepo) CancelByBookingTx(ctx context.Context, tx *sql.Tx, bookingID uint64, reason string) (int64, error) {
	return r.cancelTx(ctx, tx, `booking_id = ?`, bookingID, reason)
}

// CancelByTripTx cancels every active ticket of the trip.
func (r *TicketRepo) CancelByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64, reason string) (int64, error) {
	return r.cancelTx(ctx, tx, `trip_id = ?`, tripID, reason)
}

func (r *TicketRepo) cancelTx(ctx context.Context, tx *sql.Tx, cond string, id uint64, reason string) (int64, error) {
	q := `UPDATE tickets SET status = ?, cancel_reason = ? WHERE status = ? AND ` + cond
	res, err := tx.ExecContext(ctx, q, string(model.TicketCancelled), reason, string(model.TicketActive), id)
	if err != nil {
		return 0, mapError("cancel tickets", "ticket", 0, err)
	}
	return res.RowsAffected()
}
