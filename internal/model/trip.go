package model

import "time"

// TripStatus enumerates the lifecycle of a scheduled run.
type TripStatus string

const (
	TripScheduled TripStatus = "SCHEDULED"
	TripCancelled TripStatus = "CANCELLED"
	TripCompleted TripStatus = "COMPLETED"
)

// Trip is a single scheduled run of a train over a route.  Stations is
// derived once at creation time by the schedule propagator and is only
// recomputed when the timing template changes.
type Trip struct {
	ID              uint64        // trips.id
	TrainID         uint64        // trips.train_id
	RouteID         uint64        // trips.route_id
	DepartureAt     time.Time     // trips.departure_at (UTC)
	ArrivalAt       time.Time     // trips.arrival_at (UTC)
	Status          TripStatus    // trips.status
	PriceMultiplier float64       // trips.price_multiplier
	Stations        []TripStation // derived schedule, ordered by sequence
}

// TripStation is the scheduled call of a trip at one station.  The
// terminal station has no departure.
type TripStation struct {
	TripID             uint64     // trip_stations.trip_id
	StationID          uint64     // trip_stations.station_id
	Sequence           int        // trip_stations.sequence
	ScheduledArrival   time.Time  // trip_stations.scheduled_arrival
	ScheduledDeparture *time.Time // trip_stations.scheduled_departure (nullable)
}

// Bookable reports whether new holds or tickets may be placed on the
// trip at instant now.
func (t Trip) Bookable(now time.Time) bool {
	return t.Status == TripScheduled && t.DepartureAt.After(now)
}
