package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// ReferenceRepo reads the catalog tables: routes, stations, trains,
// coaches, seats and pricing rules.  The engine never writes them.
type ReferenceRepo struct {
	db *sql.DB
}

func NewReferenceRepo(db *sql.DB) *ReferenceRepo { return &ReferenceRepo{db: db} }

// GetRouteTx loads a route with its stations ordered by sequence.
func (r *ReferenceRepo) GetRouteTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Route, error) {
	var route model.Route
	err := tx.QueryRowContext(ctx, `SELECT id, name FROM routes WHERE id = ?`, id).Scan(&route.ID, &route.Name)
	if err != nil {
		return model.Route{}, mapError("get route", "route", id, err)
	}

	const q = `SELECT rs.station_id, s.code, s.name, rs.sequence, rs.distance_km, rs.default_stop_minutes
	           FROM route_stations rs
	           JOIN stations s ON s.id = rs.station_id
	           WHERE rs.route_id = ?
	           ORDER BY rs.sequence`
	rows, err := tx.QueryContext(ctx, q, id)
	if err != nil {
		return model.Route{}, mapError("get route", "route", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var st model.RouteStation
		if err := rows.Scan(&st.StationID, &st.StationCode, &st.StationName, &st.Sequence, &st.DistanceKm, &st.DefaultStopMinutes); err != nil {
			return model.Route{}, err
		}
		route.Stations = append(route.Stations, st)
	}
	return route, rows.Err()
}

func (r *ReferenceRepo) GetTrainTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Train, error) {
	var t model.Train
	err := tx.QueryRowContext(ctx, `SELECT id, code, train_type_id FROM trains WHERE id = ?`, id).
		Scan(&t.ID, &t.Code, &t.TrainTypeID)
	return t, mapError("get train", "train", id, err)
}

func (r *ReferenceRepo) GetTrainTypeTx(ctx context.Context, tx *sql.Tx, id uint64) (model.TrainType, error) {
	var t model.TrainType
	err := tx.QueryRowContext(ctx, `SELECT id, name, average_speed_kmh FROM train_types WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.AverageSpeedKmh)
	return t, mapError("get train type", "train type", id, err)
}

const seatColumns = `SELECT s.id, s.coach_id, c.name, c.train_id, s.name, st.price_multiplier, ct.price_multiplier, s.is_enabled
	FROM seats s
	JOIN coaches c ON c.id = s.coach_id
	JOIN seat_types st ON st.id = s.seat_type_id
	JOIN coach_types ct ON ct.id = c.coach_type_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanSeat(sc scanner) (model.Seat, error) {
	var s model.Seat
	err := sc.Scan(&s.ID, &s.CoachID, &s.CoachName, &s.TrainID, &s.Name, &s.SeatTypeMultiplier, &s.CoachTypeMultiplier, &s.IsEnabled)
	return s, err
}

// GetSeatTx loads a seat together with its coach and type multipliers.
func (r *ReferenceRepo) GetSeatTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Seat, error) {
	s, err := scanSeat(tx.QueryRowContext(ctx, seatColumns+` WHERE s.id = ?`, id))
	return s, mapError("get seat", "seat", id, err)
}

// ListSeatsTx returns a train's seats, limited to one coach when coachID
// is non-zero.
func (r *ReferenceRepo) ListSeatsTx(ctx context.Context, tx *sql.Tx, trainID, coachID uint64) ([]model.Seat, error) {
	q := seatColumns + ` WHERE c.train_id = ?`
	args := []interface{}{trainID}
	if coachID != 0 {
		q += ` AND s.coach_id = ?`
		args = append(args, coachID)
	}
	q += ` ORDER BY s.id`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError("list seats", "seat", 0, err)
	}
	defer rows.Close()
	var out []model.Seat
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListPricingRulesTx returns every rule; filtering is the resolver's job.
func (r *ReferenceRepo) ListPricingRulesTx(ctx context.Context, tx *sql.Tx) ([]model.PricingRule, error) {
	const q = `SELECT id, name, route_id, train_type_id, is_round_trip, applicable_from, applicable_to,
	                  effective_from, effective_to, price_per_km_cents, priority, is_active
	           FROM pricing_rules ORDER BY id`
	rows, err := tx.QueryContext(ctx, q)
	if err != nil {
		return nil, mapError("list pricing rules", "pricing rule", 0, err)
	}
	defer rows.Close()
	var out []model.PricingRule
	for rows.Next() {
		var (
			p                        model.PricingRule
			routeID, trainTypeID     sql.NullInt64
			roundTrip                sql.NullBool
			appFrom, appTo, effectTo sql.NullTime
		)
		if err := rows.Scan(&p.ID, &p.Name, &routeID, &trainTypeID, &roundTrip, &appFrom, &appTo,
			&p.EffectiveFrom, &effectTo, &p.PricePerKmCents, &p.Priority, &p.IsActive); err != nil {
			return nil, err
		}
		p.RouteID = nullUint(routeID)
		p.TrainTypeID = nullUint(trainTypeID)
		if roundTrip.Valid {
			b := roundTrip.Bool
			p.IsForRoundTrip = &b
		}
		p.ApplicableFrom = nullTime(appFrom)
		p.ApplicableTo = nullTime(appTo)
		p.EffectiveTo = nullTime(effectTo)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullUint(v sql.NullInt64) *uint64 {
	if !v.Valid {
		return nil
	}
	u := uint64(v.Int64)
	return &u
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
