package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// TripRepo persists trips and their generated station schedules.
type TripRepo struct {
	db *sql.DB
}

func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// CreateTx inserts the trip and its stations, filling in the trip ID.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
	if t.Status == "" {
		t.Status = model.TripScheduled
	}
	const q = `INSERT INTO trips (train_id, route_id, departure_at, arrival_at, status, price_multiplier) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, t.TrainID, t.RouteID, t.DepartureAt.UTC(), t.ArrivalAt.UTC(), string(t.Status), t.PriceMultiplier)
	if err != nil {
		return mapError("create trip", "trip", 0, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	for i := range t.Stations {
		t.Stations[i].TripID = t.ID
	}
	return r.insertStationsTx(ctx, tx, t.ID, t.Stations)
}

// insertStationsTx writes the schedule in a single multi-row INSERT.
func (r *TripRepo) insertStationsTx(ctx context.Context, tx *sql.Tx, tripID uint64, stations []model.TripStation) error {
	if len(stations) == 0 {
		return nil
	}
	query := `INSERT INTO trip_stations (trip_id, station_id, sequence, scheduled_arrival, scheduled_departure) VALUES `
	args := make([]interface{}, 0, len(stations)*5)
	for i, st := range stations {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		var dep interface{}
		if st.ScheduledDeparture != nil {
			dep = st.ScheduledDeparture.UTC()
		}
		args = append(args, tripID, st.StationID, st.Sequence, st.ScheduledArrival.UTC(), dep)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return mapError("insert trip stations", "trip", tripID, err)
}

const tripColumns = `SELECT t.id, t.train_id, t.route_id, t.departure_at, t.arrival_at, t.status, t.price_multiplier FROM trips t`

func scanTrip(sc scanner) (model.Trip, error) {
	var (
		t      model.Trip
		status string
	)
	err := sc.Scan(&t.ID, &t.TrainID, &t.RouteID, &t.DepartureAt, &t.ArrivalAt, &status, &t.PriceMultiplier)
	t.Status = model.TripStatus(status)
	t.DepartureAt, t.ArrivalAt = t.DepartureAt.UTC(), t.ArrivalAt.UTC()
	return t, err
}

// GetTx loads a trip with its stations.
func (r *TripRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Trip, error) {
	t, err := scanTrip(tx.QueryRowContext(ctx, tripColumns+` WHERE t.id = ?`, id))
	if err != nil {
		return model.Trip{}, mapError("get trip", "trip", id, err)
	}
	t.Stations, err = r.stationsTx(ctx, tx, id)
	return t, err
}

func (r *TripRepo) stationsTx(ctx context.Context, tx *sql.Tx, tripID uint64) ([]model.TripStation, error) {
	const q = `SELECT trip_id, station_id, sequence, scheduled_arrival, scheduled_departure
	           FROM trip_stations WHERE trip_id = ? ORDER BY sequence`
	rows, err := tx.QueryContext(ctx, q, tripID)
	if err != nil {
		return nil, mapError("list trip stations", "trip", tripID, err)
	}
	defer rows.Close()
	var out []model.TripStation
	for rows.Next() {
		var (
			st  model.TripStation
			dep sql.NullTime
		)
		if err := rows.Scan(&st.TripID, &st.StationID, &st.Sequence, &st.ScheduledArrival, &dep); err != nil {
			return nil, err
		}
		st.ScheduledArrival = st.ScheduledArrival.UTC()
		st.ScheduledDeparture = nullTime(dep)
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateTimingTx changes the trip's departure and arrival template.
func (r *TripRepo) UpdateTimingTx(ctx context.Context, tx *sql.Tx, id uint64, departure, arrival time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE trips SET departure_at = ?, arrival_at = ? WHERE id = ?`, departure.UTC(), arrival.UTC(), id)
	return affected("update trip timing", "trip", id, res, err)
}

// ReplaceStationsTx swaps the generated schedule for a new one.
func (r *TripRepo) ReplaceStationsTx(ctx context.Context, tx *sql.Tx, tripID uint64, stations []model.TripStation) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM trip_stations WHERE trip_id = ?`, tripID); err != nil {
		return mapError("replace trip stations", "trip", tripID, err)
	}
	return r.insertStationsTx(ctx, tx, tripID, stations)
}

func (r *TripRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.TripStatus) error {
	res, err := tx.ExecContext(ctx, `UPDATE trips SET status = ? WHERE id = ?`, string(status), id)
	return affected("update trip status", "trip", id, res, err)
}

// SearchTx finds scheduled trips departing in [from, to) that call at
// origin before destination.
func (r *TripRepo) SearchTx(ctx context.Context, tx *sql.Tx, originID, destinationID uint64, from, to time.Time) ([]model.Trip, error) {
	const q = tripColumns + `
	           JOIN trip_stations o ON o.trip_id = t.id AND o.station_id = ?
	           JOIN trip_stations d ON d.trip_id = t.id AND d.station_id = ?
	           WHERE t.status = ? AND t.departure_at >= ? AND t.departure_at < ? AND o.sequence < d.sequence
	           ORDER BY t.departure_at, t.id`
	rows, err := tx.QueryContext(ctx, q, originID, destinationID, string(model.TripScheduled), from.UTC(), to.UTC())
	if err != nil {
		return nil, mapError("search trips", "trip", 0, err)
	}
	var trips []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		trips = append(trips, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range trips {
		if trips[i].Stations, err = r.stationsTx(ctx, tx, trips[i].ID); err != nil {
			return nil, err
		}
	}
	return trips, nil
}

// affected turns an UPDATE that matched no row into NotFoundError.
func affected(op, resource string, id uint64, res sql.Result, err error) error {
	if err != nil {
		return mapError(op, resource, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundError{Resource: resource, ID: id}
	}
	return nil
}
