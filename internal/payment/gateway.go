// Package payment provides the payment gateway collaborator.  Real
// gateway integration is out of scope; Simulated approves or declines
// from static rules so the booking flow can run end to end.
package payment

import (
	"context"
	"strings"

	"github.com/labstack/gommon/log"
)

var gwLog = log.New("payment")

// Simulated approves every charge except those whose method is listed in
// DeclineMethods or whose amount exceeds MaxAmountCents (when set).
type Simulated struct {
	DeclineMethods []string
	MaxAmountCents int64
}

// NewSimulated returns a gateway that declines the "declined" test method.
func NewSimulated() *Simulated {
	return &Simulated{DeclineMethods: []string{"declined"}}
}

// Charge implements the booking service's gateway port.
func (g *Simulated) Charge(ctx context.Context, bookingCode string, amountCents int64, method string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	approved := amountCents > 0
	for _, m := range g.DeclineMethods {
		if strings.EqualFold(m, method) {
			approved = false
		}
	}
	if g.MaxAmountCents > 0 && amountCents > g.MaxAmountCents {
		approved = false
	}
	gwLog.Infof("action=charge booking=%s amount_cents=%d method=%s approved=%t", bookingCode, amountCents, method, approved)
	return approved, nil
}
