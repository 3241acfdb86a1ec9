// Package memstore is a single-process implementation of store.Store.
// Units of work are serialized by one global lock; each runs against a
// copy of the mutable state that replaces the live state only when the
// unit returns without error.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

type holdKey struct {
	tripID uint64
	seatID uint64
}

// Store keeps every table in memory.  The zero value is not usable;
// call New.
type Store struct {
	lock    chan struct{}
	timeout time.Duration

	// reference data; written only through the Put methods
	refMu      sync.RWMutex
	routes     map[uint64]model.Route
	trains     map[uint64]model.Train
	trainTypes map[uint64]model.TrainType
	seats      map[uint64]model.Seat
	rules      map[uint64]model.PricingRule
	users      map[string]model.User

	st *state
}

type state struct {
	nextID     uint64
	trips      map[uint64]model.Trip
	stations   map[uint64][]model.TripStation
	holds      map[holdKey]model.SeatHold
	tickets    map[uint64]model.Ticket
	bookings   map[uint64]model.Booking
	passengers map[uint64][]model.Passenger
	codes      map[string]uint64
	payments   []model.Payment
}

// New returns an empty store.  timeout bounds how long Do waits for the
// lock; zero means the caller's context alone bounds it.
func New(timeout time.Duration) *Store {
	return &Store{
		lock:       make(chan struct{}, 1),
		timeout:    timeout,
		routes:     map[uint64]model.Route{},
		trains:     map[uint64]model.Train{},
		trainTypes: map[uint64]model.TrainType{},
		seats:      map[uint64]model.Seat{},
		rules:      map[uint64]model.PricingRule{},
		users:      map[string]model.User{},
		st: &state{
			trips:      map[uint64]model.Trip{},
			stations:   map[uint64][]model.TripStation{},
			holds:      map[holdKey]model.SeatHold{},
			tickets:    map[uint64]model.Ticket{},
			bookings:   map[uint64]model.Booking{},
			passengers: map[uint64][]model.Passenger{},
			codes:      map[string]uint64{},
		},
	}
}

var _ store.Store = (*Store)(nil)

// Do runs fn with exclusive access to the store.  Waiting longer than
// the configured timeout, or past the context deadline, fails with a
// domain.TransientError and fn is not run.
func (s *Store) Do(ctx context.Context, fn func(tx store.Tx) error) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	select {
	case s.lock <- struct{}{}:
	case <-ctx.Done():
		return domain.TransientError{Op: "memstore: acquire lock", Err: ctx.Err()}
	}
	defer func() { <-s.lock }()

	work := s.st.clone()
	if err := fn(&tx{s: s, st: work}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// clone copies the maps so a failed unit of work leaves the live state
// untouched.  Slice values are never mutated in place, so sharing their
// backing arrays is safe.
func (st *state) clone() *state {
	c := &state{
		nextID:     st.nextID,
		trips:      make(map[uint64]model.Trip, len(st.trips)),
		stations:   make(map[uint64][]model.TripStation, len(st.stations)),
		holds:      make(map[holdKey]model.SeatHold, len(st.holds)),
		tickets:    make(map[uint64]model.Ticket, len(st.tickets)),
		bookings:   make(map[uint64]model.Booking, len(st.bookings)),
		passengers: make(map[uint64][]model.Passenger, len(st.passengers)),
		codes:      make(map[string]uint64, len(st.codes)),
		payments:   append([]model.Payment(nil), st.payments...),
	}
	for k, v := range st.trips {
		c.trips[k] = v
	}
	for k, v := range st.stations {
		c.stations[k] = v
	}
	for k, v := range st.holds {
		c.holds[k] = v
	}
	for k, v := range st.tickets {
		c.tickets[k] = v
	}
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	for k, v := range st.passengers {
		c.passengers[k] = v
	}
	for k, v := range st.codes {
		c.codes[k] = v
	}
	return c
}

func (st *state) id() uint64 {
	st.nextID++
	return st.nextID
}

// PutRoute registers or replaces a route.
func (s *Store) PutRoute(r model.Route) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	r.Stations = append([]model.RouteStation(nil), r.Stations...)
	sort.SliceStable(r.Stations, func(i, j int) bool { return r.Stations[i].Sequence < r.Stations[j].Sequence })
	s.routes[r.ID] = r
}

// PutTrain registers or replaces a train.
func (s *Store) PutTrain(t model.Train) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.trains[t.ID] = t
}

// PutTrainType registers or replaces a train type.
func (s *Store) PutTrainType(t model.TrainType) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.trainTypes[t.ID] = t
}

// PutSeat registers or replaces a seat.
func (s *Store) PutSeat(seat model.Seat) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.seats[seat.ID] = seat
}

// PutPricingRule registers or replaces a pricing rule.
func (s *Store) PutPricingRule(r model.PricingRule) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.rules[r.ID] = r
}

// PutUser registers or replaces a user keyed by email.
func (s *Store) PutUser(u model.User) {
	s.refMu.Lock()
	defer s.refMu.Unlock()
	s.users[strings.ToLower(u.Email)] = u
}

// GetUserByEmail looks up a user for credential verification.
func (s *Store) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	s.refMu.RLock()
	defer s.refMu.RUnlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return model.User{}, domain.NotFoundError{Resource: "user"}
	}
	return u, nil
}

// Payments returns the recorded payments of a booking.  It waits for
// the store like any other unit of work.
func (s *Store) Payments(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	var out []model.Payment
	err := s.Do(ctx, func(utx store.Tx) error {
		for _, p := range utx.(*tx).st.payments {
			if p.BookingID == bookingID {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}
