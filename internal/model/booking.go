package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// PaymentStatus is the money state of a booking.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "UNPAID"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Booking groups one or more tickets under one payer.
//
// Fields:
//  ID            – primary key identifier.
//  Code          – unique public booking code.
//  PayerID       – user paying for the booking.
//  HolderID      – session/holder identifier whose holds mature into tickets.
//  ContactEmail  – where confirmations are sent.
//  TotalCents    – amount due; recomputed from active tickets on confirmation.
//  Status        – PENDING, CONFIRMED or CANCELLED.
//  PaymentStatus – UNPAID, PAID or REFUNDED.
//  CancelReason  – free text supplied on cancellation.
type Booking struct {
	ID            uint64        // bookings.id
	Code          string        // bookings.code
	PayerID       uint64        // bookings.payer_id
	HolderID      string        // bookings.holder_id
	ContactEmail  string        // bookings.contact_email
	TotalCents    int64         // bookings.total_cents
	Status        BookingStatus // bookings.status
	PaymentStatus PaymentStatus // bookings.payment_status
	CancelReason  string        // bookings.cancel_reason
	CreatedAt     time.Time     // bookings.created_at
	UpdatedAt     time.Time     // bookings.updated_at
	Passengers    []Passenger   // loaded on demand
	Tickets       []Ticket      // loaded on demand
}

// Passenger is a traveller recorded under a booking.
type Passenger struct {
	ID             uint64 // booking_passengers.id
	BookingID      uint64 // booking_passengers.booking_id
	FullName       string // booking_passengers.full_name
	IdentityNumber string // booking_passengers.identity_number
	PassengerType  string // booking_passengers.passenger_type (ADULT, CHILD, SENIOR)
}

// Payment records one call to the payment gateway.
type Payment struct {
	ID          uint64    // payments.id
	BookingID   uint64    // payments.booking_id
	AmountCents int64     // payments.amount_cents
	Method      string    // payments.method
	Success     bool      // payments.success
	CreatedAt   time.Time // payments.created_at
}
