// Package schedule derives per-station arrival and departure times for a
// trip from its route template.  The computation is pure: the same route
// and timing inputs always produce the same stations, so it is run once
// at trip creation and again only when the timing template changes.
package schedule

import (
	"errors"
	"sort"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// ErrUngeneratable marks a route that cannot produce a schedule: it has
// fewer than two stations.  The trip may still be stored, with an empty
// schedule, but it cannot be sold.
var ErrUngeneratable = domain.ConfigurationError{Msg: "route has fewer than two stations", Err: errUngeneratable}

var errUngeneratable = errors.New("ungeneratable schedule")

// IsUngeneratable reports whether err came from a route without a schedule.
func IsUngeneratable(err error) bool { return errors.Is(err, errUngeneratable) }

// Propagator computes schedules at one configured average speed for
// every train; TrainType.AverageSpeedKmh is not consulted.
type Propagator struct {
	AverageSpeedKmh float64
}

// New builds a Propagator from the engine configuration.
func New(cfg config.EngineConfig) Propagator {
	return Propagator{AverageSpeedKmh: cfg.AverageSpeedKmh}
}

// Propagate returns one TripStation per route station, ordered by
// sequence.  The first station arrives at departure and leaves after its
// stop time; every intermediate station arrives after the travel time
// for its distance delta and leaves after its own stop time; the last
// station arrives at arrival and has no departure.  Intermediate times
// never pass the trip arrival, which keeps arrivals non-decreasing even
// when the route template is slower than the trip's timing.
//
// TripID is left zero; the caller stamps it once the trip has an id.
func (p Propagator) Propagate(stations []model.RouteStation, departure, arrival time.Time) ([]model.TripStation, error) {
	if !arrival.After(departure) {
		return nil, domain.ValidationError{Field: "arrival_at", Msg: "must be after departure_at"}
	}
	if len(stations) < 2 {
		return nil, ErrUngeneratable
	}
	if p.AverageSpeedKmh <= 0 {
		return nil, domain.ConfigurationError{Msg: "average speed must be positive"}
	}

	ordered := make([]model.RouteStation, len(stations))
	copy(ordered, stations)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	out := make([]model.TripStation, 0, len(ordered))
	clamp := func(t time.Time) time.Time {
		if t.After(arrival) {
			return arrival
		}
		return t
	}

	first := ordered[0]
	firstDeparture := clamp(departure.Add(stopTime(first)))
	out = append(out, model.TripStation{
		StationID:          first.StationID,
		Sequence:           first.Sequence,
		ScheduledArrival:   departure,
		ScheduledDeparture: &firstDeparture,
	})

	current := firstDeparture
	for i := 1; i < len(ordered)-1; i++ {
		st := ordered[i]
		arr := clamp(current.Add(p.travelTime(ordered[i-1].DistanceKm, st.DistanceKm)))
		dep := clamp(arr.Add(stopTime(st)))
		out = append(out, model.TripStation{
			StationID:          st.StationID,
			Sequence:           st.Sequence,
			ScheduledArrival:   arr,
			ScheduledDeparture: &dep,
		})
		current = dep
	}

	last := ordered[len(ordered)-1]
	out = append(out, model.TripStation{
		StationID:        last.StationID,
		Sequence:         last.Sequence,
		ScheduledArrival: arrival,
	})
	return out, nil
}

// travelTime converts a distance delta into a duration rounded to the
// second.  Decreasing cumulative distances count as zero travel.
func (p Propagator) travelTime(fromKm, toKm float64) time.Duration {
	delta := toKm - fromKm
	if delta <= 0 {
		return 0
	}
	hours := delta / p.AverageSpeedKmh
	return time.Duration(hours * float64(time.Hour)).Round(time.Second)
}

func stopTime(s model.RouteStation) time.Duration {
	if s.DefaultStopMinutes <= 0 {
		return 0
	}
	return time.Duration(s.DefaultStopMinutes) * time.Minute
}
