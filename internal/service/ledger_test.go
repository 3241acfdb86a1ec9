package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

func seatIDs(seats []model.Seat) []uint64 {
	out := make([]uint64, len(seats))
	for i, s := range seats {
		out[i] = s.ID
	}
	return out
}

func TestAcquireSecondHolderConflictsOnlyOnSharedSeat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.hold(t, "A", 15*time.Minute, 5, 6)
	require.Len(t, first, 2)
	assert.True(t, first[0].Held)
	assert.True(t, first[1].Held)

	second := f.hold(t, "B", 15*time.Minute, 6)
	require.Len(t, second, 1)
	assert.False(t, second[0].Held)
	assert.Equal(t, ReasonHeldByOther, second[0].Reason)
	assert.True(t, domain.IsConflict(second[0].Err))
	assert.Equal(t, []uint64{6}, FailedSeats(second))

	// seat 5 is still A's: hidden from B, visible to A
	forB, err := f.ledger.ListAvailable(ctx, f.trip.ID, 0, "B", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, seatIDs(forB))

	forA, err := f.ledger.ListAvailable(ctx, f.trip.ID, 0, "A", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6}, seatIDs(forA))
}

func TestAcquireReportsPartialFailures(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "A", 0, 6)

	res := f.hold(t, "B", 0, 5, 6, 7, 8, 99, 5)
	require.Len(t, res, 5, "duplicates are collapsed")

	byID := map[uint64]SeatResult{}
	for _, r := range res {
		byID[r.SeatID] = r
	}
	assert.True(t, byID[5].Held)
	assert.NotEmpty(t, byID[5].HoldToken)
	assert.Equal(t, ReasonHeldByOther, byID[6].Reason)
	assert.Equal(t, ReasonDisabled, byID[7].Reason)
	assert.Equal(t, ReasonNotFound, byID[8].Reason, "seat of another train")
	assert.Equal(t, ReasonNotFound, byID[99].Reason)
}

func TestAcquireRejectsWholeRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, HolderID: "A"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.ledger.Acquire(ctx, AcquireRequest{TripID: 404, SeatIDs: []uint64{5}, HolderID: "A"})
	assert.True(t, domain.IsNotFound(err))

	_, err = f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, SeatIDs: []uint64{5}, HolderID: "A", FromStationID: stationC, ToStationID: stationA})
	assert.True(t, domain.IsValidation(err))

	f.clock.Advance(72 * time.Hour)
	_, err = f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, SeatIDs: []uint64{5}, HolderID: "A"})
	assert.True(t, domain.IsConflict(err), "departed trips accept no holds")
}

// A trip cancelled after the request was prepared must not receive holds.
func TestAcquireSeatRechecksTrip(t *testing.T) {
	f := newFixture(t)
	stale := f.trip
	leg, err := resolveLeg(stale, 0, 0)
	require.NoError(t, err)

	_, _, err = f.trips.CancelTrip(context.Background(), stale.ID, "storm")
	require.NoError(t, err)

	res := f.ledger.acquireSeat(context.Background(), stale, leg, 5, "A", 10*time.Minute)
	assert.False(t, res.Held)
	assert.Equal(t, ReasonTripClosed, res.Reason)
	assert.Empty(t, res.HoldToken)
}

func TestAcquireRenewalKeepsTokenAndExtendsExpiry(t *testing.T) {
	f := newFixture(t)

	first := f.hold(t, "A", 10*time.Minute, 5)
	f.clock.Advance(5 * time.Minute)
	second := f.hold(t, "A", 10*time.Minute, 5)

	assert.Equal(t, first[0].HoldToken, second[0].HoldToken)
	assert.True(t, second[0].ExpiresAt.After(first[0].ExpiresAt))
}

func TestAcquireTTLIsClamped(t *testing.T) {
	f := newFixture(t)
	res := f.hold(t, "A", 24*time.Hour, 5)
	assert.Equal(t, f.clock.Now().Add(f.cfg.MaxHoldTTL), res[0].ExpiresAt)
}

func TestExpiredHoldIsDead(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "A", time.Minute, 5)

	f.clock.Advance(time.Minute) // expiresAt == now is already dead
	res := f.hold(t, "B", 0, 5)
	assert.True(t, res[0].Held)
}

// Two holders racing for one seat: exactly one wins every round.
func TestConcurrentAcquireExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for round := 0; round < 25; round++ {
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []string
			losers  []error
		)
		start := make(chan struct{})
		for _, holder := range []string{fmt.Sprintf("A%d", round), fmt.Sprintf("B%d", round)} {
			wg.Add(1)
			go func(holder string) {
				defer wg.Done()
				<-start
				res, err := f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, SeatIDs: []uint64{5}, HolderID: holder})
				if !assert.NoError(t, err) || !assert.Len(t, res, 1) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if res[0].Held {
					winners = append(winners, holder)
				} else {
					losers = append(losers, res[0].Err)
				}
			}(holder)
		}
		close(start)
		wg.Wait()

		require.Len(t, winners, 1, "round %d", round)
		require.Len(t, losers, 1, "round %d", round)
		assert.True(t, domain.IsConflict(losers[0]))

		_, err := f.ledger.Release(ctx, f.trip.ID, []uint64{5}, winners[0])
		require.NoError(t, err)
	}
}

func TestReleaseIsOwnerOnlyAndIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.hold(t, "A", 0, 5, 6)

	released, err := f.ledger.Release(ctx, f.trip.ID, []uint64{5}, "B")
	require.NoError(t, err)
	assert.Empty(t, released)

	res := f.hold(t, "B", 0, 5)
	assert.False(t, res[0].Held, "A still holds seat 5")

	released, err = f.ledger.Release(ctx, f.trip.ID, []uint64{5}, "A")
	require.NoError(t, err)
	assert.Equal(t, []uint64{5}, released)

	released, err = f.ledger.Release(ctx, f.trip.ID, []uint64{5}, "A")
	require.NoError(t, err)
	assert.Empty(t, released)

	// empty seat list releases everything the holder has on the trip
	released, err = f.ledger.Release(ctx, f.trip.ID, nil, "A")
	require.NoError(t, err)
	assert.Equal(t, []uint64{6}, released)
}

func TestListAvailableFiltersByCoachAndLeg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seats, err := f.ledger.ListAvailable(ctx, f.trip.ID, 10, "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6}, seatIDs(seats), "disabled seat 7 is never offered")

	// ticket seat 5 on A->B only
	res, err := f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, SeatIDs: []uint64{5}, HolderID: "A", FromStationID: stationA, ToStationID: stationB})
	require.NoError(t, err)
	require.True(t, res[0].Held)
	b := f.booking(t, 1, "A", "Ada")
	_, err = f.confirm("A", b, 5)
	require.NoError(t, err)

	ab, err := f.ledger.ListAvailable(ctx, f.trip.ID, 0, "", stationA, stationB)
	require.NoError(t, err)
	assert.Equal(t, []uint64{6}, seatIDs(ab))

	bc, err := f.ledger.ListAvailable(ctx, f.trip.ID, 0, "", stationB, stationC)
	require.NoError(t, err)
	assert.Equal(t, []uint64{5, 6}, seatIDs(bc), "touching leg does not overlap")

	// and the seat can be held again for the later leg
	res, err = f.ledger.Acquire(ctx, AcquireRequest{TripID: f.trip.ID, SeatIDs: []uint64{5}, HolderID: "B", FromStationID: stationB, ToStationID: stationC})
	require.NoError(t, err)
	assert.True(t, res[0].Held)
}

func TestSweepDeletesOnlyDeadHolds(t *testing.T) {
	f := newFixture(t)
	f.hold(t, "A", time.Minute, 5)
	f.hold(t, "A", 20*time.Minute, 6)
	f.clock.Advance(2 * time.Minute)

	n, err := f.ledger.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = f.ledger.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
