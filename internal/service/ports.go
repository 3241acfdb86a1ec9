package service

import (
	"context"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/queue"
)

// EventPublisher receives booking lifecycle events after the unit of
// work that produced them has committed.  Failures are logged by the
// caller and never undo the booking change.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingEvent) error
	PublishBookingCancelled(ctx context.Context, ev queue.BookingEvent) error
}

// PaymentGateway charges a payer.  It is treated as an opaque approve or
// decline decision; an error means the gateway could not be reached.
type PaymentGateway interface {
	Charge(ctx context.Context, bookingCode string, amountCents int64, method string) (bool, error)
}

// Clock returns the current instant.
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

type nopPublisher struct{}

func (nopPublisher) PublishBookingConfirmed(context.Context, queue.BookingEvent) error { return nil }
func (nopPublisher) PublishBookingCancelled(context.Context, queue.BookingEvent) error { return nil }
