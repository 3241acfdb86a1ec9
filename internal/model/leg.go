package model

// Leg is the origin→destination pair a hold or ticket covers, resolved
// against the trip's station sequence.  FromSeq is strictly less than
// ToSeq for a valid leg.
type Leg struct {
	FromStationID uint64
	ToStationID   uint64
	FromSeq       int
	ToSeq         int
}

// Overlaps reports whether two legs share at least one track segment.
// Touching legs (one ends where the other starts) do not overlap.
func (l Leg) Overlaps(o Leg) bool {
	return l.FromSeq < o.ToSeq && o.FromSeq < l.ToSeq
}
