package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
	"github.com/iliyamo/train-seat-reservation/internal/schedule"
	"github.com/iliyamo/train-seat-reservation/internal/store"
)

// CreateTripRequest describes a new scheduled run.
type CreateTripRequest struct {
	TrainID         uint64
	RouteID         uint64
	DepartureAt     time.Time
	ArrivalAt       time.Time
	PriceMultiplier float64
}

// TripService creates trips and owns their derived schedules.
type TripService struct {
	store      store.Store
	propagator schedule.Propagator
	now        Clock
}

func NewTripService(st store.Store, p schedule.Propagator, now Clock) *TripService {
	if now == nil {
		now = utcNow
	}
	return &TripService{store: st, propagator: p, now: now}
}

// CreateTrip persists a trip together with its propagated schedule.  A
// route with fewer than two stations still produces a stored trip, with
// an empty schedule; the trip is returned alongside an error satisfying
// schedule.IsUngeneratable so the caller knows it cannot be sold.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (model.Trip, error) {
	switch {
	case req.TrainID == 0:
		return model.Trip{}, domain.ValidationError{Field: "train_id", Msg: "is required"}
	case req.RouteID == 0:
		return model.Trip{}, domain.ValidationError{Field: "route_id", Msg: "is required"}
	case req.DepartureAt.IsZero() || req.ArrivalAt.IsZero():
		return model.Trip{}, domain.ValidationError{Field: "departure_at", Msg: "departure_at and arrival_at are required"}
	case !req.ArrivalAt.After(req.DepartureAt):
		return model.Trip{}, domain.ValidationError{Field: "arrival_at", Msg: "must be after departure_at"}
	case req.PriceMultiplier < 0:
		return model.Trip{}, domain.ValidationError{Field: "price_multiplier", Msg: "must not be negative"}
	}
	if req.PriceMultiplier == 0 {
		req.PriceMultiplier = 1
	}

	var (
		trip   model.Trip
		marker error
	)
	err := do(ctx, s.store, "create_trip", tripLog, func(tx store.Tx) error {
		marker = nil
		if _, err := tx.GetTrain(req.TrainID); err != nil {
			return err
		}
		route, err := tx.GetRoute(req.RouteID)
		if err != nil {
			return err
		}
		stations, err := s.propagator.Propagate(route.Stations, req.DepartureAt.UTC(), req.ArrivalAt.UTC())
		if schedule.IsUngeneratable(err) {
			marker, stations = err, nil
		} else if err != nil {
			return err
		}
		trip = model.Trip{
			TrainID:         req.TrainID,
			RouteID:         req.RouteID,
			DepartureAt:     req.DepartureAt.UTC(),
			ArrivalAt:       req.ArrivalAt.UTC(),
			Status:          model.TripScheduled,
			PriceMultiplier: req.PriceMultiplier,
			Stations:        stations,
		}
		return tx.CreateTrip(&trip)
	})
	if err != nil {
		return model.Trip{}, err
	}
	tripLog.Infoj(log.JSON{"action": "created", "trip_id": trip.ID, "route_id": trip.RouteID, "stations": len(trip.Stations)})
	if marker != nil {
		tripLog.Warnf("action=create trip_id=%d route_id=%d schedule=empty", trip.ID, trip.RouteID)
	}
	return trip, marker
}

// RegenerateSchedule re-runs propagation for a new timing template.  It
// is a no-op when the timing is unchanged and the schedule exists, and it
// refuses trips that are cancelled or already have active tickets.
func (s *TripService) RegenerateSchedule(ctx context.Context, tripID uint64, departure, arrival time.Time) (model.Trip, error) {
	departure, arrival = departure.UTC(), arrival.UTC()
	var trip model.Trip
	err := do(ctx, s.store, "regenerate_schedule", tripLog, func(tx store.Tx) error {
		var err error
		if trip, err = tx.GetTrip(tripID); err != nil {
			return err
		}
		if trip.Status != model.TripScheduled {
			return domain.ConflictError{Resource: "trip", Msg: "only scheduled trips can be rescheduled"}
		}
		if trip.DepartureAt.Equal(departure) && trip.ArrivalAt.Equal(arrival) && len(trip.Stations) > 0 {
			return nil
		}
		tickets, err := tx.ListActiveTicketsByTrip(tripID)
		if err != nil {
			return err
		}
		if len(tickets) > 0 {
			return domain.ConflictError{Resource: "trip", Msg: "trip already has active tickets"}
		}
		route, err := tx.GetRoute(trip.RouteID)
		if err != nil {
			return err
		}
		stations, err := s.propagator.Propagate(route.Stations, departure, arrival)
		if err != nil {
			return err
		}
		if err := tx.UpdateTripTiming(tripID, departure, arrival); err != nil {
			return err
		}
		if err := tx.ReplaceTripStations(tripID, stations); err != nil {
			return err
		}
		trip, err = tx.GetTrip(tripID)
		return err
	})
	if err != nil {
		return model.Trip{}, err
	}
	tripLog.Infof("action=regenerate trip_id=%d departure=%s arrival=%s", tripID, departure.Format(time.RFC3339), arrival.Format(time.RFC3339))
	return trip, nil
}

// GetSchedule returns the trip with its stations.
func (s *TripService) GetSchedule(ctx context.Context, tripID uint64) (model.Trip, error) {
	var trip model.Trip
	err := do(ctx, s.store, "get_schedule", tripLog, func(tx store.Tx) error {
		var err error
		trip, err = tx.GetTrip(tripID)
		return err
	})
	return trip, err
}

// SearchTrips lists scheduled trips departing on date (UTC day) that
// call at origin before destination.
func (s *TripService) SearchTrips(ctx context.Context, originID, destinationID uint64, date time.Time) ([]model.Trip, error) {
	if originID == 0 || destinationID == 0 {
		return nil, domain.ValidationError{Field: "from", Msg: "from and to are required"}
	}
	if originID == destinationID {
		return nil, domain.ValidationError{Field: "to", Msg: "must differ from origin"}
	}
	date = date.UTC()
	from := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	var trips []model.Trip
	err := do(ctx, s.store, "search_trips", tripLog, func(tx store.Tx) error {
		var err error
		trips, err = tx.SearchTrips(originID, destinationID, from, from.AddDate(0, 0, 1))
		return err
	})
	return trips, err
}

// CancelTrip marks the trip cancelled and cancels its active tickets.
// Existing holds die with it because cancelled trips accept no holds
// or confirmations.
func (s *TripService) CancelTrip(ctx context.Context, tripID uint64, reason string) (model.Trip, int64, error) {
	if reason == "" {
		reason = "trip cancelled"
	}
	var (
		trip      model.Trip
		cancelled int64
	)
	err := do(ctx, s.store, "cancel_trip", tripLog, func(tx store.Tx) error {
		cancelled = 0
		var err error
		if trip, err = tx.GetTrip(tripID); err != nil {
			return err
		}
		if trip.Status == model.TripCancelled {
			return nil
		}
		if trip.Status == model.TripCompleted {
			return domain.ConflictError{Resource: "trip", Msg: "trip already completed"}
		}
		if err := tx.UpdateTripStatus(tripID, model.TripCancelled); err != nil {
			return err
		}
		trip.Status = model.TripCancelled
		cancelled, err = tx.CancelTicketsByTrip(tripID, reason)
		return err
	})
	if err != nil {
		return model.Trip{}, 0, err
	}
	tripLog.Infoj(log.JSON{"action": "cancelled", "trip_id": tripID, "tickets_cancelled": cancelled})
	return trip, cancelled, nil
}

// GetRoute returns the route template of a trip, for station names and codes.
func (s *TripService) GetRoute(ctx context.Context, routeID uint64) (model.Route, error) {
	var route model.Route
	err := do(ctx, s.store, "get_route", tripLog, func(tx store.Tx) error {
		var err error
		route, err = tx.GetRoute(routeID)
		return err
	})
	return route, err
}
