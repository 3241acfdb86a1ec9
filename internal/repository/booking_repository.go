package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// BookingRepo provides persistence for bookings, their passengers and
// payment attempts.  All timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts the booking header and then all passengers in one
// multi-row statement.  Generated IDs are written back to b.  A
// duplicate booking code is reported as a ConflictError.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	now := time.Now().UTC()
	const q = `INSERT INTO bookings (code, payer_id, holder_id, contact_email, total_cents, status, payment_status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.Code, b.PayerID, b.HolderID, b.ContactEmail, b.TotalCents,
		string(b.Status), string(b.PaymentStatus), now, now)
	if err != nil {
		if isDuplicate(err) {
			return domain.ConflictError{Resource: "booking", Msg: "code already exists", Err: err}
		}
		return mapError("create booking", "booking", 0, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.CreatedAt, b.UpdatedAt = now, now

	if len(b.Passengers) == 0 {
		return nil
	}
	query := `INSERT INTO booking_passengers (booking_id, full_name, identity_number, passenger_type) VALUES `
	args := make([]interface{}, 0, len(b.Passengers)*4)
	for i, p := range b.Passengers {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, b.ID, p.FullName, p.IdentityNumber, p.PassengerType)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return mapError("create passengers", "booking", b.ID, err)
	}

	// Interleaved auto-increment does not promise consecutive ids, only
	// increasing ones in row order, so read them back.
	rows, err := tx.QueryContext(ctx, `SELECT id FROM booking_passengers WHERE booking_id = ? ORDER BY id`, b.ID)
	if err != nil {
		return mapError("read passenger ids", "booking", b.ID, err)
	}
	defer rows.Close()
	i := 0
	for rows.Next() {
		if i >= len(b.Passengers) {
			return fmt.Errorf("booking %d: more passenger rows than inserted", b.ID)
		}
		if err := rows.Scan(&b.Passengers[i].ID); err != nil {
			return err
		}
		b.Passengers[i].BookingID = b.ID
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if i != len(b.Passengers) {
		return fmt.Errorf("booking %d: inserted %d passengers, read back %d", b.ID, len(b.Passengers), i)
	}
	return nil
}

// GetForUpdateTx loads and locks a booking with its passengers.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	const q = `SELECT id, code, payer_id, holder_id, contact_email, total_cents, status, payment_status, cancel_reason, created_at, updated_at
	           FROM bookings WHERE id = ? FOR UPDATE`
	var (
		b               model.Booking
		status, payment string
	)
	err := tx.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.Code, &b.PayerID, &b.HolderID, &b.ContactEmail, &b.TotalCents,
		&status, &payment, &b.CancelReason, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return model.Booking{}, mapError("get booking", "booking", id, err)
	}
	b.Status = model.BookingStatus(status)
	b.PaymentStatus = model.PaymentStatus(payment)

	rows, err := tx.QueryContext(ctx,
		`SELECT id, booking_id, full_name, identity_number, passenger_type FROM booking_passengers WHERE booking_id = ? ORDER BY id`, id)
	if err != nil {
		return model.Booking{}, mapError("get passengers", "booking", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Passenger
		if err := rows.Scan(&p.ID, &p.BookingID, &p.FullName, &p.IdentityNumber, &p.PassengerType); err != nil {
			return model.Booking{}, err
		}
		b.Passengers = append(b.Passengers, p)
	}
	return b, rows.Err()
}

// UpdateStatusTx moves the booking to a new state.  An empty reason
// keeps the stored one.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, payment model.PaymentStatus, reason string) error {
	const q = `UPDATE bookings SET status = ?, payment_status = ?, cancel_reason = IF(? = '', cancel_reason, ?), updated_at = ? WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, string(status), string(payment), reason, reason, time.Now().UTC(), id)
	return affected("update booking status", "booking", id, res, err)
}

func (r *BookingRepo) UpdateTotalTx(ctx context.Context, tx *sql.Tx, id uint64, totalCents int64) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET total_cents = ?, updated_at = ? WHERE id = ?`, totalCents, time.Now().UTC(), id)
	return affected("update booking total", "booking", id, res, err)
}

// RecordPaymentTx appends a payment attempt.
func (r *BookingRepo) RecordPaymentTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payments (booking_id, amount_cents, method, success, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.BookingID, p.AmountCents, p.Method, p.Success, p.CreatedAt.UTC())
	if err != nil {
		return mapError("record payment", "booking", p.BookingID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}
