// Package notify publishes user-facing events to a message queue for the
// notification workers to deliver (webhook, email, in-app).
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/reachforge/puppet/internal/dto"
)

// Publisher pushes notification payloads onto a durable queue.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *logrus.Entry
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   queue,
		log:     logrus.WithField("component", "notify"),
	}, nil
}

// Publish enqueues one event as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, payload dto.NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		p.log.WithError(err).WithField("event", payload.EventType).Error("notification publish failed")
		return fmt.Errorf("publish notification: %w", err)
	}

	p.log.WithFields(logrus.Fields{
		"event":   payload.EventType,
		"user_id": payload.UserID,
		"job_id":  payload.JobID,
	}).Debug("notification published")
	return nil
}

func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

// LogNotifier is the fallback when no broker is configured; events are
// written to the process log and nothing else.
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, payload dto.NotificationPayload) error {
	logrus.WithFields(logrus.Fields{
		"component": "notify",
		"event":     payload.EventType,
		"user_id":   payload.UserID,
		"job_id":    payload.JobID,
	}).Info(payload.Message)
	return nil
}
