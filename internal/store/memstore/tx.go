package memstore

import (
	"sort"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// tx is the unit-of-work view handed to Store.Do callbacks.  It mutates
// only its private state copy.
type tx struct {
	s  *Store
	st *state
}

func (t *tx) GetRoute(id uint64) (model.Route, error) {
	t.s.refMu.RLock()
	defer t.s.refMu.RUnlock()
	r, ok := t.s.routes[id]
	if !ok {
		return model.Route{}, domain.NotFoundError{Resource: "route", ID: id}
	}
	r.Stations = append([]model.RouteStation(nil), r.Stations...)
	return r, nil
}

func (t *tx) GetTrain(id uint64) (model.Train, error) {
	t.s.refMu.RLock()
	defer t.s.refMu.RUnlock()
	tr, ok := t.s.trains[id]
	if !ok {
		return model.Train{}, domain.NotFoundError{Resource: "train", ID: id}
	}
	return tr, nil
}

func (t *tx) GetTrainType(id uint64) (model.TrainType, error) {
	t.s.refMu.RLock()
	defer t.s.refMu.RUnlock()
	tt, ok := t.s.trainTypes[id]
	if !ok {
		return model.TrainType{}, domain.NotFoundError{Resource: "train type", ID: id}
	}
	return tt, nil
}

func (t *tx) GetSeat(id uint64) (model.Seat, error) {
	t.s.refMu.RLock()
	defer t.s.refMu.RUnlock()
	seat, ok := t.s.seats[id]
	if !ok {
		return model.Seat{}, domain.NotFoundError{Resource: "seat", ID: id}
	}
	return seat, nil
}

func (t *tx) ListSeats(trainID, coachID uint64) ([]model.Seat, error) {
	t.s.refMu.RLock()
	defer t.s.refMu.RUnlock()
	var out []model.Seat
	for _, seat := range t.s.seats {
		if seat.TrainID != trainID || (coachID != 0 && seat.CoachID != coachID) {
			continue
		}
		out = append(out, seat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) ListPricingRules() ([]model.PricingRule, error) {
	t.s.refMu.RLock()
	defer t.s.refMu.RUnlock()
	out := make([]model.PricingRule, 0, len(t.s.rules))
	for _, r := range t.s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// trips

func (t *tx) CreateTrip(trip *model.Trip) error {
	trip.ID = t.st.id()
	stations := stamp(trip.ID, trip.Stations)
	trip.Stations = stations
	row := *trip
	row.Stations = nil
	t.st.trips[trip.ID] = row
	t.st.stations[trip.ID] = stations
	return nil
}

func (t *tx) GetTrip(id uint64) (model.Trip, error) {
	trip, ok := t.st.trips[id]
	if !ok {
		return model.Trip{}, domain.NotFoundError{Resource: "trip", ID: id}
	}
	trip.Stations = append([]model.TripStation(nil), t.st.stations[id]...)
	return trip, nil
}

func (t *tx) UpdateTripTiming(id uint64, departure, arrival time.Time) error {
	trip, ok := t.st.trips[id]
	if !ok {
		return domain.NotFoundError{Resource: "trip", ID: id}
	}
	trip.DepartureAt, trip.ArrivalAt = departure, arrival
	t.st.trips[id] = trip
	return nil
}

func (t *tx) ReplaceTripStations(tripID uint64, stations []model.TripStation) error {
	if _, ok := t.st.trips[tripID]; !ok {
		return domain.NotFoundError{Resource: "trip", ID: tripID}
	}
	t.st.stations[tripID] = stamp(tripID, stations)
	return nil
}

func (t *tx) UpdateTripStatus(id uint64, status model.TripStatus) error {
	trip, ok := t.st.trips[id]
	if !ok {
		return domain.NotFoundError{Resource: "trip", ID: id}
	}
	trip.Status = status
	t.st.trips[id] = trip
	return nil
}

func (t *tx) SearchTrips(originID, destinationID uint64, from, to time.Time) ([]model.Trip, error) {
	var out []model.Trip
	for id, trip := range t.st.trips {
		if trip.Status != model.TripScheduled || trip.DepartureAt.Before(from) || !trip.DepartureAt.Before(to) {
			continue
		}
		originSeq, destSeq := -1, -1
		for _, st := range t.st.stations[id] {
			switch st.StationID {
			case originID:
				originSeq = st.Sequence
			case destinationID:
				destSeq = st.Sequence
			}
		}
		if originSeq < 0 || destSeq < 0 || originSeq >= destSeq {
			continue
		}
		trip.Stations = append([]model.TripStation(nil), t.st.stations[id]...)
		out = append(out, trip)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DepartureAt.Equal(out[j].DepartureAt) {
			return out[i].DepartureAt.Before(out[j].DepartureAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func stamp(tripID uint64, stations []model.TripStation) []model.TripStation {
	out := make([]model.TripStation, len(stations))
	for i, st := range stations {
		st.TripID = tripID
		out[i] = st
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// holds

func (t *tx) LockHold(tripID, seatID uint64) (*model.SeatHold, error) {
	h, ok := t.st.holds[holdKey{tripID, seatID}]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (t *tx) UpsertHold(h model.SeatHold) error {
	t.st.holds[holdKey{h.TripID, h.SeatID}] = h
	return nil
}

func (t *tx) DeleteHold(tripID, seatID uint64, holderID string) (bool, error) {
	k := holdKey{tripID, seatID}
	h, ok := t.st.holds[k]
	if !ok || h.HolderID != holderID {
		return false, nil
	}
	delete(t.st.holds, k)
	return true, nil
}

func (t *tx) DeleteHoldsByHolder(tripID uint64, holderID string) (int64, error) {
	var n int64
	for k, h := range t.st.holds {
		if k.tripID == tripID && h.HolderID == holderID {
			delete(t.st.holds, k)
			n++
		}
	}
	return n, nil
}

func (t *tx) DeleteExpiredHolds(tripID uint64, now time.Time) (int64, error) {
	var n int64
	for k, h := range t.st.holds {
		if (tripID == 0 || h.TripID == tripID) && !h.LiveAt(now) {
			delete(t.st.holds, k)
			n++
		}
	}
	return n, nil
}

func (t *tx) ListLiveHolds(tripID uint64, now time.Time) ([]model.SeatHold, error) {
	var out []model.SeatHold
	for _, h := range t.st.holds {
		if h.TripID == tripID && h.LiveAt(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out, nil
}

// tickets

func (t *tx) CreateTicket(tk *model.Ticket) error {
	for _, other := range t.st.tickets {
		if other.Status == model.TicketActive && other.TripID == tk.TripID &&
			other.SeatID == tk.SeatID && other.Leg.Overlaps(tk.Leg) {
			return domain.ConflictError{Resource: "ticket", Msg: "seat already ticketed", SeatIDs: []uint64{tk.SeatID}}
		}
	}
	tk.ID = t.st.id()
	if tk.Status == "" {
		tk.Status = model.TicketActive
	}
	t.st.tickets[tk.ID] = *tk
	return nil
}

func (t *tx) GetTicket(id uint64) (model.Ticket, error) {
	tk, ok := t.st.tickets[id]
	if !ok {
		return model.Ticket{}, domain.NotFoundError{Resource: "ticket", ID: id}
	}
	return tk, nil
}

func (t *tx) ListActiveTicketsBySeat(tripID, seatID uint64) ([]model.Ticket, error) {
	return t.tickets(func(tk model.Ticket) bool {
		return tk.Status == model.TicketActive && tk.TripID == tripID && tk.SeatID == seatID
	}), nil
}

func (t *tx) ListActiveTicketsByTrip(tripID uint64) ([]model.Ticket, error) {
	return t.tickets(func(tk model.Ticket) bool {
		return tk.Status == model.TicketActive && tk.TripID == tripID
	}), nil
}

func (t *tx) ListTicketsByBooking(bookingID uint64) ([]model.Ticket, error) {
	return t.tickets(func(tk model.Ticket) bool { return tk.BookingID == bookingID }), nil
}

func (t *tx) CancelTicketsByBooking(bookingID uint64, reason string) (int64, error) {
	return t.cancelTickets(func(tk model.Ticket) bool { return tk.BookingID == bookingID }, reason), nil
}

func (t *tx) CancelTicketsByTrip(tripID uint64, reason string) (int64, error) {
	return t.cancelTickets(func(tk model.Ticket) bool { return tk.TripID == tripID }, reason), nil
}

func (t *tx) tickets(keep func(model.Ticket) bool) []model.Ticket {
	var out []model.Ticket
	for _, tk := range t.st.tickets {
		if keep(tk) {
			out = append(out, tk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) cancelTickets(match func(model.Ticket) bool, reason string) int64 {
	var n int64
	for id, tk := range t.st.tickets {
		if tk.Status != model.TicketActive || !match(tk) {
			continue
		}
		tk.Status = model.TicketCancelled
		tk.CancelReason = reason
		t.st.tickets[id] = tk
		n++
	}
	return n
}

// bookings

func (t *tx) CreateBooking(b *model.Booking) error {
	if _, dup := t.st.codes[b.Code]; dup {
		return domain.ConflictError{Resource: "booking", Msg: "code already exists"}
	}
	now := time.Now().UTC()
	b.ID = t.st.id()
	b.CreatedAt, b.UpdatedAt = now, now
	passengers := make([]model.Passenger, len(b.Passengers))
	for i, p := range b.Passengers {
		p.ID = t.st.id()
		p.BookingID = b.ID
		passengers[i] = p
	}
	b.Passengers = passengers

	row := *b
	row.Passengers, row.Tickets = nil, nil
	t.st.bookings[b.ID] = row
	t.st.passengers[b.ID] = passengers
	t.st.codes[b.Code] = b.ID
	return nil
}

func (t *tx) GetBooking(id uint64) (model.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return model.Booking{}, domain.NotFoundError{Resource: "booking", ID: id}
	}
	b.Passengers = append([]model.Passenger(nil), t.st.passengers[id]...)
	return b, nil
}

func (t *tx) UpdateBookingStatus(id uint64, status model.BookingStatus, payment model.PaymentStatus, reason string) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking", ID: id}
	}
	b.Status, b.PaymentStatus = status, payment
	if reason != "" {
		b.CancelReason = reason
	}
	b.UpdatedAt = time.Now().UTC()
	t.st.bookings[id] = b
	return nil
}

func (t *tx) UpdateBookingTotal(id uint64, totalCents int64) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return domain.NotFoundError{Resource: "booking", ID: id}
	}
	b.TotalCents = totalCents
	b.UpdatedAt = time.Now().UTC()
	t.st.bookings[id] = b
	return nil
}

func (t *tx) RecordPayment(p *model.Payment) error {
	if _, ok := t.st.bookings[p.BookingID]; !ok {
		return domain.NotFoundError{Resource: "booking", ID: p.BookingID}
	}
	p.ID = t.st.id()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	t.st.payments = append(t.st.payments, *p)
	return nil
}
