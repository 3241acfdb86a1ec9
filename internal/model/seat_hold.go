package model

import "time"

// SeatHold represents a temporary, exclusive claim on a seat for one
// trip while a customer completes checkout.  At most one live hold
// exists per (trip, seat); a hold whose ExpiresAt is at or before the
// current instant is dead for every read and acquire.
//
// Fields:
//  TripID    – trip the seat is held on.
//  SeatID    – seat being held.
//  HolderID  – session or user identifier that owns the hold.
//  HoldToken – opaque token returned to the client for reference.
//  Leg       – stations the hold covers.
//  ExpiresAt – when the hold stops being live.
//  CreatedAt – when the hold was first created.
type SeatHold struct {
	TripID    uint64    // seat_holds.trip_id
	SeatID    uint64    // seat_holds.seat_id
	HolderID  string    // seat_holds.holder_id
	HoldToken string    // seat_holds.hold_token
	Leg       Leg       // seat_holds.from_station_id/to_station_id/from_seq/to_seq
	ExpiresAt time.Time // seat_holds.expires_at
	CreatedAt time.Time // seat_holds.created_at
}

// LiveAt reports whether the hold is still live at instant now.
func (h SeatHold) LiveAt(now time.Time) bool {
	return h.ExpiresAt.After(now)
}
