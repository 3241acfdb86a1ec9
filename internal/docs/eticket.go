// Package docs renders passenger documents.  Only frozen ticket
// snapshots are printed; live seat or passenger records are never read.
package docs

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// ETicket is everything printed on one e-ticket.
type ETicket struct {
	BookingCode string
	Ticket      model.Ticket
	TrainCode   string
	FromStation string
	ToStation   string
	DepartureAt time.Time
	ArrivalAt   time.Time
}

// BuildETicket renders d as a one-page A4 PDF and returns it with a
// suggested file name.
func BuildETicket(d ETicket) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking     : " + safe(d.BookingCode, "-"),
		fmt.Sprintf("Ticket No   : %d", d.Ticket.ID),
		"Passenger   : " + safe(d.Ticket.PassengerName, "-"),
		"Identity    : " + MaskIdentity(d.Ticket.PassengerIdentity),
		"Train       : " + safe(d.TrainCode, "-"),
		"From        : " + safe(d.FromStation, "-"),
		"To          : " + safe(d.ToStation, "-"),
		"Departure   : " + formatTime(d.DepartureAt),
		"Arrival     : " + formatTime(d.ArrivalAt),
		fmt.Sprintf("Coach/Seat  : %s / %s", safe(d.Ticket.CoachName, "-"), safe(d.Ticket.SeatName, "-")),
		"Price       : " + formatCents(d.Ticket.PriceCents),
		"Status      : " + string(d.Ticket.Status),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This e-ticket is valid for one passenger on the seat shown. Present it with an identity document when boarding.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", fmt.Errorf("render e-ticket: %w", err)
	}
	name := fmt.Sprintf("eticket-%s-%d.pdf", safeFilenamePart(d.BookingCode), d.Ticket.ID)
	return buf.Bytes(), name, nil
}

func safe(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func formatCents(v int64) string {
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}

// MaskIdentity keeps only the last four characters of an identity number.
func MaskIdentity(id string) string {
	id = strings.TrimSpace(id)
	if len(id) <= 4 {
		return safe(id, "-")
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}

func safeFilenamePart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "ticket"
	}
	return b.String()
}
