// Package feed exports propagated trip schedules as GTFS-realtime
// TripUpdate messages.
package feed

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"

	"github.com/iliyamo/train-seat-reservation/internal/model"
)

const (
	Binary        = false
	HumanReadable = true
)

// TripSchedule builds a feed with one TripUpdate entity for trip.  Stop
// ids are the route's station codes, falling back to the numeric
// station id.  A cancelled trip carries no stop times.
func TripSchedule(trip model.Trip, route model.Route, at time.Time) *gtfs.FeedMessage {
	codes := make(map[uint64]string, len(route.Stations))
	for _, st := range route.Stations {
		codes[st.StationID] = st.StationCode
	}

	tripID := strconv.FormatUint(trip.ID, 10)
	update := &gtfs.TripUpdate{
		Trip: &gtfs.TripDescriptor{
			TripId:    ptr(tripID),
			RouteId:   ptr(strconv.FormatUint(trip.RouteID, 10)),
			StartDate: ptr(trip.DepartureAt.UTC().Format("20060102")),
			StartTime: ptr(trip.DepartureAt.UTC().Format("15:04:05")),
		},
		Timestamp: ptr(uint64(at.Unix())),
	}

	if trip.Status == model.TripCancelled {
		update.Trip.ScheduleRelationship = ptr(gtfs.TripDescriptor_CANCELED)
	} else {
		update.Trip.ScheduleRelationship = ptr(gtfs.TripDescriptor_SCHEDULED)
		update.StopTimeUpdate = make([]*gtfs.TripUpdate_StopTimeUpdate, len(trip.Stations))
		for i, st := range trip.Stations {
			update.StopTimeUpdate[i] = stopTime(st, codes)
		}
	}

	return &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: ptr("2.0"),
			Incrementality:      ptr(gtfs.FeedHeader_FULL_DATASET),
			Timestamp:           ptr(uint64(at.Unix())),
		},
		Entity: []*gtfs.FeedEntity{{
			Id:         ptr("trip-" + tripID),
			TripUpdate: update,
		}},
	}
}

func stopTime(st model.TripStation, codes map[uint64]string) *gtfs.TripUpdate_StopTimeUpdate {
	stopID := codes[st.StationID]
	if stopID == "" {
		stopID = strconv.FormatUint(st.StationID, 10)
	}
	g := &gtfs.TripUpdate_StopTimeUpdate{
		StopSequence:         ptr(uint32(st.Sequence)),
		StopId:               ptr(stopID),
		ScheduleRelationship: ptr(gtfs.TripUpdate_StopTimeUpdate_SCHEDULED),
		Arrival: &gtfs.TripUpdate_StopTimeEvent{
			Time: ptr(st.ScheduledArrival.Unix()),
		},
	}
	if st.ScheduledDeparture != nil {
		g.Departure = &gtfs.TripUpdate_StopTimeEvent{
			Time: ptr(st.ScheduledDeparture.Unix()),
		}
	}
	return g
}

// Dump writes msg as protobuf binary or, when humanReadable is set, as
// protobuf text.
func Dump(w io.Writer, msg *gtfs.FeedMessage, humanReadable bool) error {
	var (
		data []byte
		err  error
	)
	if humanReadable {
		data, err = prototext.Marshal(msg)
	} else {
		data, err = proto.Marshal(msg)
	}
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

func ptr[T any](v T) *T {
	return &v
}
