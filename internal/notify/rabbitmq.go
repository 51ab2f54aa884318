// Package notify announces committed reservation changes to other systems.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/example/training-reservations/internal/application"
)

// Message is the JSON body published for every reservation event.
type Message struct {
	Event         string    `json:"event"`
	OccurredAt    time.Time `json:"occurredAt"`
	ReservationID string    `json:"reservationId"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username,omitempty"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	Type          int       `json:"type"`
}

// NewMessage converts a reservation event to its wire form.
func NewMessage(event application.ReservationChange) Message {
	r := event.Reservation
	return Message{
		Event:         string(event.Kind),
		OccurredAt:    event.OccurredAt.UTC(),
		ReservationID: r.ID,
		UserID:        r.UserID,
		Username:      r.Username,
		StartTime:     r.Start.UTC(),
		EndTime:       r.End.UTC(),
		Type:          int(r.Type),
	}
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher writes reservation events to a durable queue.
type RabbitMQPublisher struct {
	conn    *amqp.Connection
	channel channel
	queue   string
}

// NewRabbitMQ dials url and declares queueName as a durable queue.
func NewRabbitMQ(url, queueName string) (*RabbitMQPublisher, error) {
	const op = "notify.NewRabbitMQ"

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(
		queueName, true, false, false, false, nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RabbitMQPublisher{
		conn:    conn,
		channel: ch,
		queue:   q.Name,
	}, nil
}

// PublishReservationChange implements application.EventPublisher.
func (p *RabbitMQPublisher) PublishReservationChange(ctx context.Context, event application.ReservationChange) error {
	const op = "notify.PublishReservationChange"

	body, err := json.Marshal(NewMessage(event))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",
		p.queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(event.Kind),
			MessageId:    event.Reservation.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *RabbitMQPublisher) Close() {
	_ = p.channel.Close()
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
