package model

// TrainType groups trains sharing a service class; pricing rules may be
// scoped to it.  AverageSpeedKmh is informational only: schedule
// generation uses the engine-wide constant speed.
type TrainType struct {
	ID              uint64  // train_types.id
	Name            string  // train_types.name
	AverageSpeedKmh float64 // train_types.average_speed_kmh
}

// Train is a fleet unit of a given type.
type Train struct {
	ID          uint64 // trains.id
	Code        string // trains.code
	TrainTypeID uint64 // trains.train_type_id
}

// Seat is shared reference data.  Its availability is trip-scoped and
// never stored on the seat itself.
//
// Fields:
//  ID                  – primary key identifier.
//  CoachID             – coach the seat belongs to.
//  CoachName           – coach display name (e.g. "C3"); snapshotted onto tickets.
//  TrainID             – train owning the coach.
//  Name                – seat label (e.g. "12A"); snapshotted onto tickets.
//  SeatTypeMultiplier  – price multiplier of the seat type.
//  CoachTypeMultiplier – price multiplier of the coach type.
//  IsEnabled           – disabled seats are never offered or held.
type Seat struct {
	ID                  uint64
	CoachID             uint64
	CoachName           string
	TrainID             uint64
	Name                string
	SeatTypeMultiplier  float64
	CoachTypeMultiplier float64
	IsEnabled           bool
}
