// Package queue defines booking events exchanged over RabbitMQ together
// with their publisher and the consumer that writes them to the booking
// log.
package queue

// Queue names, one per event type.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published after a booking is confirmed or cancelled.
// It carries enough detail for downstream consumers to log or notify
// without querying the primary database.  Passenger identity numbers are
// never included.
type BookingEvent struct {
	EventID       string   `json:"event_id"`
	Type          string   `json:"type"`
	BookingID     uint64   `json:"booking_id"`
	BookingCode   string   `json:"booking_code"`
	PayerID       uint64   `json:"payer_id"`
	TripIDs       []uint64 `json:"trip_ids"`
	SeatLabels    []string `json:"seats"`
	TotalCents    int64    `json:"total_cents"`
	PaymentStatus string   `json:"payment_status"`
	Reason        string   `json:"reason,omitempty"`
	OccurredAt    string   `json:"occurred_at"`
}
