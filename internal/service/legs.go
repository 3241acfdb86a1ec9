package service

import (
	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// resolveLeg maps a station pair onto the trip's call sequence.  Zero
// station ids default to the first and last stations of the trip.
func resolveLeg(trip model.Trip, fromStationID, toStationID uint64) (model.Leg, error) {
	if len(trip.Stations) < 2 {
		return model.Leg{}, domain.ConfigurationError{Msg: "trip has no schedule"}
	}
	first, last := trip.Stations[0], trip.Stations[len(trip.Stations)-1]
	if fromStationID == 0 {
		fromStationID = first.StationID
	}
	if toStationID == 0 {
		toStationID = last.StationID
	}
	leg := model.Leg{FromStationID: fromStationID, ToStationID: toStationID, FromSeq: -1, ToSeq: -1}
	for _, st := range trip.Stations {
		if st.StationID == fromStationID && leg.FromSeq < 0 {
			leg.FromSeq = st.Sequence
		}
		if st.StationID == toStationID {
			leg.ToSeq = st.Sequence
		}
	}
	switch {
	case leg.FromSeq < 0:
		return model.Leg{}, domain.ValidationError{Field: "from_station_id", Msg: "trip does not call at this station"}
	case leg.ToSeq < 0:
		return model.Leg{}, domain.ValidationError{Field: "to_station_id", Msg: "trip does not call at this station"}
	case leg.FromSeq >= leg.ToSeq:
		return model.Leg{}, domain.ValidationError{Field: "to_station_id", Msg: "must come after from_station_id"}
	}
	return leg, nil
}
