package jobs

import (
	"context"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// Publisher publishes JSON messages to a broker
type Publisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// BrokerNotifier publishes job messages through a broker
type BrokerNotifier struct {
	publisher Publisher
}

// NewBrokerNotifier creates a notifier backed by publisher
func NewBrokerNotifier(publisher Publisher) *BrokerNotifier {
	return &BrokerNotifier{publisher: publisher}
}

// Notify publishes msg
func (n *BrokerNotifier) Notify(ctx context.Context, msg domain.JobMessage) error {
	return n.publisher.PublishJSON(ctx, msg)
}

// NopNotifier drops notifications; workers still find jobs by polling
type NopNotifier struct{}

// Notify does nothing
func (NopNotifier) Notify(context.Context, domain.JobMessage) error { return nil }
