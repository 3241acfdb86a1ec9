package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/schedule"
)

func TestCreateTripPropagatesSchedule(t *testing.T) {
	f := newFixture(t)
	dep := f.trip.DepartureAt

	got, err := f.trips.GetSchedule(context.Background(), f.trip.ID)
	require.NoError(t, err)
	require.Len(t, got.Stations, 3)
	assert.Equal(t, dep, got.Stations[0].ScheduledArrival)
	assert.Equal(t, dep.Add(55*time.Minute), got.Stations[1].ScheduledArrival)
	assert.Equal(t, f.trip.ArrivalAt, got.Stations[2].ScheduledArrival)
	assert.Nil(t, got.Stations[2].ScheduledDeparture)
	assert.Equal(t, 1.0, got.PriceMultiplier)
}

func TestCreateTripOnEmptyRouteIsUngeneratable(t *testing.T) {
	f := newFixture(t)
	f.store.PutRoute(model.Route{ID: 8, Name: "stub"})

	dep := f.clock.Now().Add(time.Hour)
	trip, err := f.trips.CreateTrip(context.Background(), CreateTripRequest{TrainID: 1, RouteID: 8, DepartureAt: dep, ArrivalAt: dep.Add(time.Hour)})
	assert.True(t, schedule.IsUngeneratable(err))
	assert.True(t, domain.IsConfiguration(err))
	require.NotZero(t, trip.ID, "trip is stored with an empty schedule")
	assert.Empty(t, trip.Stations)

	_, err = f.ledger.Acquire(context.Background(), AcquireRequest{TripID: trip.ID, SeatIDs: []uint64{5}, HolderID: "A"})
	assert.True(t, domain.IsConfiguration(err))
}

func TestCreateTripValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dep := f.clock.Now().Add(time.Hour)

	_, err := f.trips.CreateTrip(ctx, CreateTripRequest{TrainID: 1, RouteID: 7, DepartureAt: dep, ArrivalAt: dep})
	assert.True(t, domain.IsValidation(err))

	_, err = f.trips.CreateTrip(ctx, CreateTripRequest{TrainID: 9, RouteID: 7, DepartureAt: dep, ArrivalAt: dep.Add(time.Hour)})
	assert.True(t, domain.IsNotFound(err))
}

func TestRegenerateSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	same, err := f.trips.RegenerateSchedule(ctx, f.trip.ID, f.trip.DepartureAt, f.trip.ArrivalAt)
	require.NoError(t, err)
	assert.Equal(t, f.trip.Stations, same.Stations)

	dep := f.trip.DepartureAt.Add(time.Hour)
	moved, err := f.trips.RegenerateSchedule(ctx, f.trip.ID, dep, dep.Add(4*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, dep, moved.DepartureAt)
	assert.Equal(t, dep, moved.Stations[0].ScheduledArrival)

	f.hold(t, "user:1", 0, 5)
	b := f.booking(t, 1, "user:1", "Ada")
	_, err = f.confirm("user:1", b, 5)
	require.NoError(t, err)

	_, err = f.trips.RegenerateSchedule(ctx, f.trip.ID, dep.Add(time.Hour), dep.Add(5*time.Hour))
	assert.True(t, domain.IsConflict(err))
}

func TestSearchTrips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	found, err := f.trips.SearchTrips(ctx, stationA, stationC, f.trip.DepartureAt)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, f.trip.ID, found[0].ID)

	found, err = f.trips.SearchTrips(ctx, stationC, stationA, f.trip.DepartureAt)
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = f.trips.SearchTrips(ctx, stationA, stationB, f.trip.DepartureAt.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = f.trips.SearchTrips(ctx, stationA, stationA, f.trip.DepartureAt)
	assert.True(t, domain.IsValidation(err))
}

func TestCancelTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.hold(t, "user:1", 0, 5)
	b := f.booking(t, 1, "user:1", "Ada")
	_, err := f.confirm("user:1", b, 5)
	require.NoError(t, err)
	f.hold(t, "user:2", 0, 6)

	trip, n, err := f.trips.CancelTrip(ctx, f.trip.ID, "")
	require.NoError(t, err)
	assert.Equal(t, model.TripCancelled, trip.Status)
	assert.Equal(t, int64(1), n)

	got, err := f.bookings.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketCancelled, got.Tickets[0].Status)

	_, err = f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, SeatIDs: []uint64{6}, HolderID: "user:2"})
	assert.True(t, domain.IsConflict(err))

	_, n, err = f.trips.CancelTrip(ctx, f.trip.ID, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}
