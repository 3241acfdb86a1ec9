package queue

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLineConfirmed(t *testing.T) {
	var buf bytes.Buffer
	err := writeLine(&buf, BookingEvent{
		Type:          BookingConfirmedQueue,
		BookingID:     12,
		BookingCode:   "TR-00AB12",
		PayerID:       3,
		TripIDs:       []uint64{1, 2},
		SeatLabels:    []string{"C1-5", "C1-6"},
		TotalCents:    36000,
		PaymentStatus: "PAID",
		OccurredAt:    "2026-05-10T08:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-05-10T08:00:00Z] Booking confirmed | booking_id=12 | code=TR-00AB12 | payer_id=3 | trips=[1,2] | total=36000 cents | payment=PAID | seats=[C1-5,C1-6]\n",
		buf.String())
}

func TestWriteLineCancelledIncludesReason(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeLine(&buf, BookingEvent{Type: BookingCancelledQueue, BookingID: 4, Reason: "changed plans"}))
	assert.Contains(t, buf.String(), "Booking cancelled")
	assert.Contains(t, buf.String(), `reason="changed plans"`)
}
