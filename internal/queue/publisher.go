package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

var pubLog = log.New("queue")

// Publisher sends booking events to RabbitMQ.  Each publish dials the
// broker, declares the durable queue and sends one persistent message;
// errors are logged and returned so callers may ignore them.
type Publisher struct {
	URL string
}

// NewPublisher returns a Publisher for the given AMQP URL.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url}
}

// PublishBookingConfirmed publishes ev to the booking.confirmed queue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingEvent) error {
	ev.Type = BookingConfirmedQueue
	return p.publish(ctx, BookingConfirmedQueue, ev)
}

// PublishBookingCancelled publishes ev to the booking.cancelled queue.
func (p *Publisher) PublishBookingCancelled(ctx context.Context, ev BookingEvent) error {
	ev.Type = BookingCancelledQueue
	return p.publish(ctx, BookingCancelledQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, ev BookingEvent) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(ev)
	if err != nil {
		pubLog.Errorf("action=marshal queue=%s err=%q", queueName, err.Error())
		return err
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		pubLog.Errorf("action=dial queue=%s err=%q", queueName, err.Error())
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		pubLog.Errorf("action=channel queue=%s err=%q", queueName, err.Error())
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // autoDelete
		false,     // exclusive
		false,     // noWait
		nil,       // args
	); err != nil {
		pubLog.Errorf("action=declare queue=%s err=%q", queueName, err.Error())
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",        // default exchange
		queueName, // routing key = queue name
		false,     // mandatory
		false,     // immediate
		msg,
	); err != nil {
		pubLog.Errorf("action=publish queue=%s err=%q", queueName, err.Error())
		return err
	}
	pubLog.Infoj(log.JSON{"action": "published", "queue": queueName, "booking_id": ev.BookingID, "event_id": ev.EventID})
	return nil
}
