package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// SQLStore runs each unit of work in one SERIALIZABLE transaction.
type SQLStore struct {
	db      *sql.DB
	timeout time.Duration

	Reference *ReferenceRepo
	Trips     *TripRepo
	Holds     *SeatHoldRepo
	Tickets   *TicketRepo
	Bookings  *BookingRepo
}

// NewSQLStore binds the repositories to db.  timeout bounds each unit of
// work including lock waits; zero leaves it to the caller's context.
func NewSQLStore(db *sql.DB, timeout time.Duration) *SQLStore {
	return &SQLStore{
		db:        db,
		timeout:   timeout,
		Reference: NewReferenceRepo(db),
		Trips:     NewTripRepo(db),
		Holds:     NewSeatHoldRepo(db),
		Tickets:   NewTicketRepo(db),
		Bookings:  NewBookingRepo(db),
	}
}

var _ store.Store = (*SQLStore)(nil)

// Do begins a transaction, runs fn and commits when fn succeeds.
func (s *SQLStore) Do(ctx context.Context, fn func(tx store.Tx) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return mapError("begin", "", 0, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&sqlTx{ctx: ctx, tx: tx, s: s}); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !domain.IsTransient(err) {
			return domain.TransientError{Op: "unit of work", Err: err}
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit", "", 0, err)
	}
	committed = true
	return nil
}
