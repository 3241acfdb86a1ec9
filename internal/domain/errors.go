// Package domain defines the error taxonomy shared by the reservation
// engine.  Callers branch on the kind of failure with the IsX helpers
// rather than on message text: conflicts prompt reselection, transient
// failures may be retried, validation failures are the caller's fault.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports malformed input rejected before persistence.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ConflictError reports that a seat is already held or ticketed, or
// that an entity is in a state that forbids the operation.  SeatIDs
// lists the seats responsible when the conflict is seat-scoped.
type ConflictError struct {
	Resource string
	Msg      string
	SeatIDs  []uint64
	Err      error
}

func (e ConflictError) Error() string {
	var b strings.Builder
	switch {
	case e.Msg != "" && e.Resource != "":
		fmt.Fprintf(&b, "%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		b.WriteString(e.Msg)
	case e.Resource != "":
		fmt.Fprintf(&b, "%s conflict", e.Resource)
	default:
		b.WriteString("conflict")
	}
	if len(e.SeatIDs) > 0 {
		fmt.Fprintf(&b, " (seats %v)", e.SeatIDs)
	}
	return b.String()
}

func (e ConflictError) Unwrap() error { return e.Err }

// NotFoundError reports an unknown trip, seat, booking or rule reference.
type NotFoundError struct {
	Resource string
	ID       uint64
	Err      error
}

func (e NotFoundError) Error() string {
	switch {
	case e.Resource == "":
		return "not found"
	case e.ID == 0:
		return fmt.Sprintf("%s not found", e.Resource)
	default:
		return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
	}
}

func (e NotFoundError) Unwrap() error { return e.Err }

// TransientError reports contention or a timeout while waiting for a
// transaction or lock.  The operation is safe to retry.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: temporary failure", e.Op)
	}
	return fmt.Sprintf("%s: temporary failure: %v", e.Op, e.Err)
}

func (e TransientError) Unwrap() error { return e.Err }

// ConfigurationError reports missing reference or engine configuration,
// such as a route without stations or no pricing rule and no default.
type ConfigurationError struct {
	Msg string
	Err error
}

func (e ConfigurationError) Error() string {
	if e.Msg == "" {
		return "configuration error"
	}
	return e.Msg
}

func (e ConfigurationError) Unwrap() error { return e.Err }

// ErrPaymentDeclined is returned when the payment gateway refuses a
// charge.  The booking stays pending; the caller is expected to cancel it.
var ErrPaymentDeclined = errors.New("payment declined")

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsTransient(err error) bool {
	var target TransientError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target ConfigurationError
	return errors.As(err, &target)
}
