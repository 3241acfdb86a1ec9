package model

// Route is a read-only template of ordered stations a trip runs over.
// Stations are sorted by Sequence; DistanceKm is cumulative from the
// first station.
type Route struct {
	ID       uint64         // routes.id
	Name     string         // routes.name
	Stations []RouteStation // route_stations ordered by sequence
}

// RouteStation is one stop of a route template.
//
// Fields:
//  StationID          – station referenced by this stop.
//  StationCode        – short public code (used as GTFS stop_id).
//  StationName        – display name.
//  Sequence           – 1-based order along the route.
//  DistanceKm         – cumulative distance from the first station.
//  DefaultStopMinutes – dwell time applied when generating schedules.
type RouteStation struct {
	StationID          uint64
	StationCode        string
	StationName        string
	Sequence           int
	DistanceKm         float64
	DefaultStopMinutes int
}

// TotalDistanceKm returns the largest cumulative distance among the
// route's stations, which is the length of the full route.
func (r Route) TotalDistanceKm() float64 {
	var max float64
	for _, s := range r.Stations {
		if s.DistanceKm > max {
			max = s.DistanceKm
		}
	}
	return max
}
