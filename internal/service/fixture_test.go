package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/pricing"
	"github.com/iliyamo/train-seat-reservation/internal/queue"
	"github.com/iliyamo/train-seat-reservation/internal/schedule"
	"github.com/iliyamo/train-seat-reservation/internal/store/memstore"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) Charge(ctx context.Context, code string, amountCents int64, method string) (bool, error) {
	args := m.Called(ctx, code, amountCents, method)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) PublishBookingCancelled(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type fixture struct {
	store     *memstore.Store
	clock     *testClock
	cfg       config.EngineConfig
	ledger    *SeatHoldLedger
	trips     *TripService
	bookings  *BookingService
	pricing   *PricingService
	gateway   *mockGateway
	publisher *mockPublisher
	trip      model.Trip
}

const (
	stationA = 1
	stationB = 2
	stationC = 3
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.DefaultEngineConfig()
	clock := &testClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	st := memstore.New(time.Second)

	st.PutTrainType(model.TrainType{ID: 1, Name: "Intercity", AverageSpeedKmh: 120})
	st.PutTrain(model.Train{ID: 1, Code: "IC-101", TrainTypeID: 1})
	st.PutTrain(model.Train{ID: 2, Code: "IC-202", TrainTypeID: 1})
	st.PutRoute(model.Route{ID: 7, Name: "A-C", Stations: []model.RouteStation{
		{StationID: stationA, StationCode: "A", Sequence: 1, DistanceKm: 0, DefaultStopMinutes: 5},
		{StationID: stationB, StationCode: "B", Sequence: 2, DistanceKm: 50, DefaultStopMinutes: 5},
		{StationID: stationC, StationCode: "C", Sequence: 3, DistanceKm: 120, DefaultStopMinutes: 5},
	}})
	st.PutSeat(model.Seat{ID: 5, TrainID: 1, CoachID: 10, CoachName: "C1", Name: "5", SeatTypeMultiplier: 1, CoachTypeMultiplier: 1, IsEnabled: true})
	st.PutSeat(model.Seat{ID: 6, TrainID: 1, CoachID: 10, CoachName: "C1", Name: "6", SeatTypeMultiplier: 1.5, CoachTypeMultiplier: 1, IsEnabled: true})
	st.PutSeat(model.Seat{ID: 7, TrainID: 1, CoachID: 11, CoachName: "C2", Name: "7", SeatTypeMultiplier: 1, CoachTypeMultiplier: 1, IsEnabled: false})
	st.PutSeat(model.Seat{ID: 8, TrainID: 2, CoachID: 20, CoachName: "D1", Name: "8", SeatTypeMultiplier: 1, CoachTypeMultiplier: 1, IsEnabled: true})

	f := &fixture{
		store:     st,
		clock:     clock,
		cfg:       cfg,
		gateway:   &mockGateway{},
		publisher: &mockPublisher{},
	}
	f.ledger = NewSeatHoldLedger(st, cfg, clock.Now)
	f.trips = NewTripService(st, schedule.New(cfg), clock.Now)
	f.bookings = NewBookingService(st, pricing.NewResolver(cfg), f.gateway, f.publisher, clock.Now)
	f.pricing = NewPricingService(st, pricing.NewResolver(cfg))

	dep := clock.Now().Add(48 * time.Hour)
	trip, err := f.trips.CreateTrip(context.Background(), CreateTripRequest{
		TrainID:     1,
		RouteID:     7,
		DepartureAt: dep,
		ArrivalAt:   dep.Add(4 * time.Hour),
	})
	require.NoError(t, err)
	f.trip = trip
	return f
}

func (f *fixture) hold(t *testing.T, holder string, ttl time.Duration, seatIDs ...uint64) []SeatResult {
	t.Helper()
	res, err := f.ledger.Acquire(context.Background(), AcquireRequest{
		TripID:   f.trip.ID,
		SeatIDs:  seatIDs,
		HolderID: holder,
		TTL:      ttl,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) booking(t *testing.T, payer uint64, holder string, passengers ...string) model.Booking {
	t.Helper()
	req := CreateBookingRequest{
		Code:       "B-" + holder,
		PayerID:    payer,
		HolderID:   holder,
		TotalCents: 1,
	}
	for i, name := range passengers {
		req.Passengers = append(req.Passengers, model.Passenger{FullName: name, IdentityNumber: name + "-id-" + string(rune('0'+i))})
	}
	b, err := f.bookings.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	return b
}

func (f *fixture) confirm(holder string, b model.Booking, seatIDs ...uint64) ([]model.Ticket, error) {
	req := ConfirmRequest{BookingID: b.ID, TripID: f.trip.ID, HolderID: holder}
	for i, id := range seatIDs {
		req.Assignments = append(req.Assignments, SeatAssignment{SeatID: id, PassengerID: b.Passengers[i].ID})
	}
	return f.bookings.ConfirmTickets(context.Background(), req)
}
