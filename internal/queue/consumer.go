package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

var consumerLog = log.New("booking-consumer")

// StartBookingConsumer connects to RabbitMQ, declares both booking
// queues and appends every event to logs/booking.log, one line each.  It
// reconnects with exponential backoff and returns only when ctx is done.
func StartBookingConsumer(ctx context.Context, url string) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			consumerLog.Warnf("action=dial err=%q retry_in=%s", err.Error(), backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		consumerLog.Warnf("action=consume err=%q reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		consumerLog.Warnf("action=qos err=%q", err.Error())
	}

	merged := make(chan amqp.Delivery)
	for _, name := range []string{BookingConfirmedQueue, BookingCancelledQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(in <-chan amqp.Delivery) {
			for d := range in {
				select {
				case merged <- d:
				case <-ctx.Done():
					return
				}
			}
		}(msgs)
	}

	closed := ch.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d := <-merged:
			if err := handleMessage(d.Body); err != nil {
				consumerLog.Errorf("action=handle err=%q", err.Error())
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	return writeLine(f, ev)
}

// writeLine formats one human-readable line for ev.
func writeLine(w io.Writer, ev BookingEvent) error {
	verb := "Booking confirmed"
	if ev.Type == BookingCancelledQueue {
		verb = "Booking cancelled"
	}
	trips := make([]string, len(ev.TripIDs))
	for i, id := range ev.TripIDs {
		trips[i] = fmt.Sprint(id)
	}
	line := fmt.Sprintf("[%s] %s | booking_id=%d | code=%s | payer_id=%d | trips=[%s] | total=%d cents | payment=%s | seats=[%s]",
		ev.OccurredAt, verb, ev.BookingID, ev.BookingCode, ev.PayerID, strings.Join(trips, ","),
		ev.TotalCents, ev.PaymentStatus, strings.Join(ev.SeatLabels, ","))
	if ev.Reason != "" {
		line += fmt.Sprintf(" | reason=%q", ev.Reason)
	}
	if _, err := io.WriteString(w, line+"\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
