package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table.  The
// (trip_id, seat_id) unique key guarantees one row per seat and trip;
// liveness is always judged against the caller's clock, never the
// database's, so every time comparison takes an explicit instant.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

const holdColumns = `SELECT trip_id, seat_id, holder_id, hold_token, from_station_id, to_station_id, from_seq, to_seq, expires_at, created_at
	FROM seat_holds`

func scanHold(sc scanner) (model.SeatHold, error) {
	var h model.SeatHold
	err := sc.Scan(&h.TripID, &h.SeatID, &h.HolderID, &h.HoldToken,
		&h.Leg.FromStationID, &h.Leg.ToStationID, &h.Leg.FromSeq, &h.Leg.ToSeq,
		&h.ExpiresAt, &h.CreatedAt)
	h.ExpiresAt, h.CreatedAt = h.ExpiresAt.UTC(), h.CreatedAt.UTC()
	return h, err
}

// LockTx reads the hold row for (trip, seat) with SELECT ... FOR UPDATE.
// When no row exists the gap is locked instead and nil is returned.
func (r *SeatHoldRepo) LockTx(ctx context.Context, tx *sql.Tx, tripID, seatID uint64) (*model.SeatHold, error) {
	h, err := scanHold(tx.QueryRowContext(ctx, holdColumns+` WHERE trip_id = ? AND seat_id = ? FOR UPDATE`, tripID, seatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError("lock hold", "seat hold", seatID, err)
	}
	return &h, nil
}

// UpsertTx creates the hold or overwrites the existing row for the same
// seat.  Callers must hold the row lock from LockTx.
func (r *SeatHoldRepo) UpsertTx(ctx context.Context, tx *sql.Tx, h model.SeatHold) error {
	const q = `INSERT INTO seat_holds
	             (trip_id, seat_id, holder_id, hold_token, from_station_id, to_station_id, from_seq, to_seq, expires_at, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	           ON DUPLICATE KEY UPDATE
	             holder_id = VALUES(holder_id), hold_token = VALUES(hold_token),
	             from_station_id = VALUES(from_station_id), to_station_id = VALUES(to_station_id),
	             from_seq = VALUES(from_seq), to_seq = VALUES(to_seq),
	             expires_at = VALUES(expires_at), created_at = VALUES(created_at)`
	_, err := tx.ExecContext(ctx, q, h.TripID, h.SeatID, h.HolderID, h.HoldToken,
		h.Leg.FromStationID, h.Leg.ToStationID, h.Leg.FromSeq, h.Leg.ToSeq,
		h.ExpiresAt.UTC(), h.CreatedAt.UTC())
	return mapError("upsert hold", "seat hold", h.SeatID, err)
}

// DeleteTx removes the hold on a seat only when holderID owns it.
func (r *SeatHoldRepo) DeleteTx(ctx context.Context, tx *sql.Tx, tripID, seatID uint64, holderID string) (bool, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE trip_id = ? AND seat_id = ? AND holder_id = ?`, tripID, seatID, holderID)
	if err != nil {
		return false, mapError("delete hold", "seat hold", seatID, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteByHolderTx removes the holds holderID owns on one trip.
func (r *SeatHoldRepo) DeleteByHolderTx(ctx context.Context, tx *sql.Tx, tripID uint64, holderID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `DELETE FROM seat_holds WHERE trip_id = ? AND holder_id = ?`, tripID, holderID)
	if err != nil {
		return 0, mapError("delete holds by holder", "seat hold", 0, err)
	}
	return res.RowsAffected()
}

// ExpireHoldsTx deletes holds whose expires_at is at or before now, for
// one trip or for every trip when tripID is zero.
func (r *SeatHoldRepo) ExpireHoldsTx(ctx context.Context, tx *sql.Tx, tripID uint64, now time.Time) (int64, error) {
	q := `DELETE FROM seat_holds WHERE expires_at <= ?`
	args := []interface{}{now.UTC()}
	if tripID != 0 {
		q += ` AND trip_id = ?`
		args = append(args, tripID)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, mapError("expire holds", "seat hold", 0, err)
	}
	return res.RowsAffected()
}

// LiveHoldsTx lists holds on the trip that expire after now.
func (r *SeatHoldRepo) LiveHoldsTx(ctx context.Context, tx *sql.Tx, tripID uint64, now time.Time) ([]model.SeatHold, error) {
	rows, err := tx.QueryContext(ctx, holdColumns+` WHERE trip_id = ? AND expires_at > ? ORDER BY seat_id`, tripID, now.UTC())
	if err != nil {
		return nil, mapError("list live holds", "seat hold", 0, err)
	}
	defer rows.Close()
	var holds []model.SeatHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}
