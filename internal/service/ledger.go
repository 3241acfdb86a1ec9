package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// Reasons reported for seats that could not be held.
const (
	ReasonHeldByOther = "held_by_other"
	ReasonTicketed    = "ticketed"
	ReasonNotFound    = "seat_not_found"
	ReasonDisabled    = "seat_disabled"
	ReasonTemporary   = "temporary_failure"
	ReasonTripClosed  = "trip_closed"
)

// SeatResult is the outcome of one seat in an Acquire call.
type SeatResult struct {
	SeatID    uint64    `json:"seat_id"`
	Held      bool      `json:"held"`
	HoldToken string    `json:"hold_token,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Err       error     `json:"-"`
}

// AcquireRequest asks for holds on several seats of one trip.  Zero
// station ids cover the whole trip.
type AcquireRequest struct {
	TripID        uint64
	SeatIDs       []uint64
	HolderID      string
	TTL           time.Duration
	FromStationID uint64
	ToStationID   uint64
}

// SeatHoldLedger grants, renews and releases time-bounded exclusive
// claims on (trip, seat) pairs.  Every seat is checked and written in
// its own unit of work, so one contended seat never blocks or fails the
// others of the same request.
type SeatHoldLedger struct {
	store store.Store
	cfg   config.EngineConfig
	now   Clock
}

// NewSeatHoldLedger builds a ledger over st.  A nil clock uses UTC wall time.
func NewSeatHoldLedger(st store.Store, cfg config.EngineConfig, now Clock) *SeatHoldLedger {
	if now == nil {
		now = utcNow
	}
	return &SeatHoldLedger{store: st, cfg: cfg, now: now}
}

// Acquire creates or refreshes a hold for every requested seat.  The
// returned slice has one entry per distinct seat in request order.  The
// error is non-nil only when the request as a whole is unusable: bad
// input, an unknown trip or a trip that no longer accepts holds.
func (l *SeatHoldLedger) Acquire(ctx context.Context, req AcquireRequest) ([]SeatResult, error) {
	if req.HolderID == "" {
		return nil, domain.ValidationError{Field: "holder_id", Msg: "is required"}
	}
	seatIDs := dedupe(req.SeatIDs)
	if len(seatIDs) == 0 {
		return nil, domain.ValidationError{Field: "seat_ids", Msg: "at least one seat is required"}
	}
	ttl := l.cfg.HoldTTL(req.TTL)

	var (
		trip model.Trip
		leg  model.Leg
	)
	err := do(ctx, l.store, "acquire.prepare", ledgerLog, func(tx store.Tx) error {
		now := l.now()
		if _, err := tx.DeleteExpiredHolds(req.TripID, now); err != nil {
			return err
		}
		var err error
		if trip, err = tx.GetTrip(req.TripID); err != nil {
			return err
		}
		if !trip.Bookable(now) {
			return domain.ConflictError{Resource: "trip", Msg: "trip is not open for booking"}
		}
		leg, err = resolveLeg(trip, req.FromStationID, req.ToStationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	results := make([]SeatResult, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		res := l.acquireSeat(ctx, trip, leg, seatID, req.HolderID, ttl)
		results = append(results, res)
	}
	held := 0
	for _, r := range results {
		if r.Held {
			held++
		}
	}
	ledgerLog.Infoj(log.JSON{
		"action":    "acquire",
		"trip_id":   trip.ID,
		"holder":    req.HolderID,
		"requested": len(seatIDs),
		"held":      held,
	})
	return results, nil
}

func (l *SeatHoldLedger) acquireSeat(ctx context.Context, trip model.Trip, leg model.Leg, seatID uint64, holderID string, ttl time.Duration) SeatResult {
	res := SeatResult{SeatID: seatID}
	err := do(ctx, l.store, "acquire.seat", ledgerLog, func(tx store.Tx) error {
		now := l.now()
		// the trip may have been cancelled since the request was prepared
		current, err := tx.GetTrip(trip.ID)
		if err != nil {
			return err
		}
		if !current.Bookable(now) {
			return domain.ConflictError{Resource: "trip", Msg: ReasonTripClosed, SeatIDs: []uint64{seatID}}
		}
		seat, err := tx.GetSeat(seatID)
		if err != nil {
			return err
		}
		if seat.TrainID != trip.TrainID {
			return domain.NotFoundError{Resource: "seat", ID: seatID}
		}
		if !seat.IsEnabled {
			return domain.ConflictError{Resource: "seat", Msg: ReasonDisabled, SeatIDs: []uint64{seatID}}
		}

		existing, err := tx.LockHold(trip.ID, seatID)
		if err != nil {
			return err
		}
		if existing != nil && existing.LiveAt(now) && existing.HolderID != holderID {
			return domain.ConflictError{Resource: "hold", Msg: ReasonHeldByOther, SeatIDs: []uint64{seatID}}
		}

		tickets, err := tx.ListActiveTicketsBySeat(trip.ID, seatID)
		if err != nil {
			return err
		}
		for _, tk := range tickets {
			if tk.Leg.Overlaps(leg) {
				return domain.ConflictError{Resource: "ticket", Msg: ReasonTicketed, SeatIDs: []uint64{seatID}}
			}
		}

		hold := model.SeatHold{
			TripID:    trip.ID,
			SeatID:    seatID,
			HolderID:  holderID,
			HoldToken: uuid.NewString(),
			Leg:       leg,
			ExpiresAt: now.Add(ttl),
			CreatedAt: now,
		}
		// renewal keeps the original token
		if existing != nil && existing.LiveAt(now) {
			hold.HoldToken = existing.HoldToken
			hold.CreatedAt = existing.CreatedAt
		}
		if err := tx.UpsertHold(hold); err != nil {
			return err
		}
		res.HoldToken = hold.HoldToken
		res.ExpiresAt = hold.ExpiresAt
		return nil
	})
	if err == nil {
		res.Held = true
		return res
	}

	res.Err = err
	res.HoldToken, res.ExpiresAt = "", time.Time{}
	var conflict domain.ConflictError
	switch {
	case errors.As(err, &conflict) && conflict.Resource == "seat":
		res.Reason = ReasonDisabled
	case errors.As(err, &conflict) && conflict.Resource == "ticket":
		res.Reason = ReasonTicketed
	case errors.As(err, &conflict) && conflict.Resource == "trip":
		res.Reason = ReasonTripClosed
	case domain.IsConflict(err):
		res.Reason = ReasonHeldByOther
	case domain.IsNotFound(err):
		res.Reason = ReasonNotFound
	case domain.IsTransient(err):
		res.Reason = ReasonTemporary
	default:
		ledgerLog.Errorf("action=acquire trip_id=%d seat_id=%d err=%q", trip.ID, seatID, err.Error())
	}
	return res
}

// Release removes the caller's holds on the given seats, or all of the
// caller's holds on the trip when seatIDs is empty.  Seats not held by
// the caller are skipped silently; releasing twice is not an error.
func (l *SeatHoldLedger) Release(ctx context.Context, tripID uint64, seatIDs []uint64, holderID string) ([]uint64, error) {
	if holderID == "" {
		return nil, domain.ValidationError{Field: "holder_id", Msg: "is required"}
	}
	var released []uint64
	err := do(ctx, l.store, "release", ledgerLog, func(tx store.Tx) error {
		released = released[:0]
		targets := dedupe(seatIDs)
		if len(targets) == 0 {
			holds, err := tx.ListLiveHolds(tripID, l.now())
			if err != nil {
				return err
			}
			for _, h := range holds {
				if h.HolderID == holderID {
					targets = append(targets, h.SeatID)
				}
			}
		}
		for _, seatID := range targets {
			ok, err := tx.DeleteHold(tripID, seatID, holderID)
			if err != nil {
				return err
			}
			if ok {
				released = append(released, seatID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	ledgerLog.Infof("action=release trip_id=%d holder=%s released=%d", tripID, holderID, len(released))
	return released, nil
}

// ListAvailable returns the enabled seats of the trip, optionally one
// coach, that have no active ticket overlapping the leg and no live hold
// owned by someone other than holderID.
func (l *SeatHoldLedger) ListAvailable(ctx context.Context, tripID, coachID uint64, holderID string, fromStationID, toStationID uint64) ([]model.Seat, error) {
	var out []model.Seat
	err := do(ctx, l.store, "list_available", ledgerLog, func(tx store.Tx) error {
		out = nil
		now := l.now()
		if _, err := tx.DeleteExpiredHolds(tripID, now); err != nil {
			return err
		}
		trip, err := tx.GetTrip(tripID)
		if err != nil {
			return err
		}
		leg, err := resolveLeg(trip, fromStationID, toStationID)
		if err != nil {
			return err
		}
		seats, err := tx.ListSeats(trip.TrainID, coachID)
		if err != nil {
			return err
		}
		tickets, err := tx.ListActiveTicketsByTrip(tripID)
		if err != nil {
			return err
		}
		holds, err := tx.ListLiveHolds(tripID, now)
		if err != nil {
			return err
		}

		blocked := make(map[uint64]bool)
		for _, tk := range tickets {
			if tk.Leg.Overlaps(leg) {
				blocked[tk.SeatID] = true
			}
		}
		for _, h := range holds {
			if h.HolderID != holderID {
				blocked[h.SeatID] = true
			}
		}
		for _, s := range seats {
			if s.IsEnabled && !blocked[s.ID] {
				out = append(out, s)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Sweep deletes holds that are no longer live.  Reads and acquires
// already ignore them, so sweeping only reclaims storage.
func (l *SeatHoldLedger) Sweep(ctx context.Context) (int64, error) {
	var n int64
	err := do(ctx, l.store, "sweep", ledgerLog, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteExpiredHolds(0, l.now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("sweep expired holds: %w", err)
	}
	return n, nil
}

// FailedSeats lists the seats of results that were not held.
func FailedSeats(results []SeatResult) []uint64 {
	var out []uint64
	for _, r := range results {
		if !r.Held {
			out = append(out, r.SeatID)
		}
	}
	return out
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
