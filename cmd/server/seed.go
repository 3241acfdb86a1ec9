package main

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/service"
	"github.com/iliyamo/train-seat-reservation/internal/store/memstore"
	"github.com/iliyamo/train-seat-reservation/internal/utils"
)

const demoPassword = "demo-pass"

// seedDemo loads a small network into the in-memory store: one route
// with three stations, one train with two coaches and a trip tomorrow.
func seedDemo(ctx context.Context, mem *memstore.Store, trips *service.TripService) error {
	hash, err := utils.HashPassword(demoPassword, 10)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	mem.PutUser(model.User{ID: 1, Email: "operator@example.com", PasswordHash: hash, Role: model.RoleOperator, IsActive: true, CreatedAt: now, UpdatedAt: now})
	mem.PutUser(model.User{ID: 2, Email: "customer@example.com", PasswordHash: hash, Role: model.RoleCustomer, IsActive: true, CreatedAt: now, UpdatedAt: now})

	mem.PutRoute(model.Route{ID: 1, Name: "Coastal Line", Stations: []model.RouteStation{
		{StationID: 1, StationCode: "NTH", StationName: "North Terminal", Sequence: 1, DistanceKm: 0},
		{StationID: 2, StationCode: "MID", StationName: "Midway", Sequence: 2, DistanceKm: 60, DefaultStopMinutes: 5},
		{StationID: 3, StationCode: "STH", StationName: "South Harbour", Sequence: 3, DistanceKm: 120},
	}})
	mem.PutTrainType(model.TrainType{ID: 1, Name: "InterCity", AverageSpeedKmh: 120})
	mem.PutTrain(model.Train{ID: 1, Code: "IC-101", TrainTypeID: 1})

	// Coach 1 is first class.
	var seatID uint64
	for i, mult := range []float64{1.5, 1} {
		coach := uint64(i + 1)
		for n := 1; n <= 8; n++ {
			seatID++
			mem.PutSeat(model.Seat{
				ID:                  seatID,
				CoachID:             coach,
				CoachName:           fmt.Sprintf("C%d", coach),
				TrainID:             1,
				Name:                fmt.Sprintf("%dA", n),
				SeatTypeMultiplier:  1,
				CoachTypeMultiplier: mult,
				IsEnabled:           true,
			})
		}
	}

	dep := now.Truncate(24 * time.Hour).Add(32 * time.Hour)
	trip, err := trips.CreateTrip(ctx, service.CreateTripRequest{
		TrainID:     1,
		RouteID:     1,
		DepartureAt: dep,
		ArrivalAt:   dep.Add(2*time.Hour + 5*time.Minute),
	})
	if err != nil {
		return err
	}
	logger.Infof("action=seed trip_id=%d departure=%s users=operator@example.com,customer@example.com",
		trip.ID, trip.DepartureAt.Format(time.RFC3339))
	return nil
}
