package service

import (
	"context"

	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/pricing"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// Quote is a priced offer for a trip, and for one seat when SeatID is set.
type Quote struct {
	TripID          uint64  `json:"trip_id"`
	RuleID          uint64  `json:"rule_id"`
	DistanceKm      float64 `json:"distance_km"`
	PricePerKmCents float64 `json:"price_per_km_cents"`
	RoundTrip       bool    `json:"round_trip"`
	BaseCents       int64   `json:"base_cents"`
	TripCents       int64   `json:"trip_cents"`
	SeatID          uint64  `json:"seat_id,omitempty"`
	SeatCents       int64   `json:"seat_cents,omitempty"`
}

// PricingService answers fare quotes with the same computation used
// when tickets are issued.
type PricingService struct {
	store    store.Store
	resolver pricing.Resolver
}

func NewPricingService(st store.Store, resolver pricing.Resolver) *PricingService {
	return &PricingService{store: st, resolver: resolver}
}

// Quote prices tripID.  A zero seatID quotes the trip without seat
// multipliers.
func (s *PricingService) Quote(ctx context.Context, tripID, seatID uint64, roundTrip bool) (Quote, error) {
	var q Quote
	err := do(ctx, s.store, "quote", pricingLog, func(tx store.Tx) error {
		trip, err := tx.GetTrip(tripID)
		if err != nil {
			return err
		}
		fare, err := tripFare(tx, s.resolver, trip, roundTrip)
		if err != nil {
			return err
		}
		q = Quote{
			TripID:          trip.ID,
			RuleID:          fare.RuleID,
			DistanceKm:      fare.DistanceKm,
			PricePerKmCents: fare.PricePerKmCents,
			RoundTrip:       roundTrip,
			BaseCents:       fare.BaseCents,
			TripCents:       pricing.SeatFare(fare.BaseCents, trip.PriceMultiplier),
		}
		if seatID == 0 {
			return nil
		}
		seat, err := tx.GetSeat(seatID)
		if err != nil {
			return err
		}
		q.SeatID = seat.ID
		q.SeatCents = seatPrice(fare, trip, seat)
		return nil
	})
	return q, err
}

// tripFare resolves the base fare for a trip from its route, train type
// and departure date.
func tripFare(tx store.ReferenceData, r pricing.Resolver, trip model.Trip, roundTrip bool) (pricing.Fare, error) {
	route, err := tx.GetRoute(trip.RouteID)
	if err != nil {
		return pricing.Fare{}, err
	}
	train, err := tx.GetTrain(trip.TrainID)
	if err != nil {
		return pricing.Fare{}, err
	}
	trainType, err := tx.GetTrainType(train.TrainTypeID)
	if err != nil {
		return pricing.Fare{}, err
	}
	rules, err := tx.ListPricingRules()
	if err != nil {
		return pricing.Fare{}, err
	}
	return r.Resolve(route, pricing.Query{
		RouteID:     route.ID,
		TrainTypeID: trainType.ID,
		RoundTrip:   roundTrip,
		TravelDate:  trip.DepartureAt,
	}, rules)
}

func seatPrice(fare pricing.Fare, trip model.Trip, seat model.Seat) int64 {
	return pricing.SeatFare(fare.BaseCents, trip.PriceMultiplier, seat.SeatTypeMultiplier, seat.CoachTypeMultiplier)
}
