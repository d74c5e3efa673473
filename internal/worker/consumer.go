package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliverySource starts a broker subscription
type DeliverySource interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Acknowledger settles a delivery. amqp.Delivery satisfies it.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Consumer turns job-enqueued messages into scheduler nudges. Messages only
// carry the job id; the database stays the source of truth.
type Consumer struct {
	logger *slog.Logger
	source DeliverySource
	tag    string
}

// NewConsumer creates a new consumer
func NewConsumer(source DeliverySource, consumerTag string, logger *slog.Logger) *Consumer {
	return &Consumer{logger: logger, source: source, tag: consumerTag}
}

// Run consumes until ctx is canceled or the delivery channel closes
func (c *Consumer) Run(ctx context.Context, nudge func()) error {
	deliveries, err := c.source.Consume(c.tag)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", c.tag),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("RabbitMQ consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("RabbitMQ delivery channel closed")
				return nil
			}
			c.handle(delivery.Body, delivery, nudge)
		}
	}
}

func (c *Consumer) handle(body []byte, ack Acknowledger, nudge func()) {
	var msg domain.JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		c.logger.Error("Failed to parse message JSON",
			slog.String("error", err.Error()),
			slog.String("body", string(body)),
		)
		c.nack(ack, msg.JobID)
		return
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		c.logger.Error("Invalid job_id format - not a UUID",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		c.nack(ack, msg.JobID)
		return
	}

	if err := ack.Ack(false); err != nil {
		c.logger.Error("Failed to ACK message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
	}

	c.logger.Debug("Job notification received",
		slog.String("job_id", msg.JobID),
		slog.String("job_type", string(msg.Type)),
	)
	nudge()
}

// nack drops a malformed message without requeue
func (c *Consumer) nack(ack Acknowledger, jobID string) {
	if err := ack.Nack(false, false); err != nil {
		c.logger.Error("Failed to NACK message",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
