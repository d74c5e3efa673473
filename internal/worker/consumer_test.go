package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuongbtq/launchloop/internal/storage/storagetest"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func TestConsumer_Handle(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantAck   bool
		wantNudge bool
	}{
		{
			name:      "valid notification",
			body:      `{"job_id":"0192f0c4-7a6e-7cc2-9a49-3e5c6d1f2a10","type":"DEPLOY_LANDING_REPO"}`,
			wantAck:   true,
			wantNudge: true,
		},
		{
			name: "malformed json",
			body: `{"job_id":`,
		},
		{
			name: "job id is not a uuid",
			body: `{"job_id":"42"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer(nil, "test", storagetest.DiscardLogger())
			ack := &fakeAck{}
			nudged := false

			c.handle([]byte(tt.body), ack, func() { nudged = true })

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.False(t, ack.requeue)
			assert.Equal(t, tt.wantNudge, nudged)
		})
	}
}

type chanSource struct {
	ch  chan amqp.Delivery
	err error
}

func (s *chanSource) Consume(string) (<-chan amqp.Delivery, error) {
	return s.ch, s.err
}

func TestConsumer_RunStopsWhenChannelCloses(t *testing.T) {
	src := &chanSource{ch: make(chan amqp.Delivery, 2)}
	src.ch <- amqp.Delivery{Body: []byte(`{"job_id":"0192f0c4-7a6e-7cc2-9a49-3e5c6d1f2a10"}`)}
	src.ch <- amqp.Delivery{Body: []byte(`not json`)}
	close(src.ch)

	nudges := 0
	c := NewConsumer(src, "test", storagetest.DiscardLogger())
	require.NoError(t, c.Run(context.Background(), func() { nudges++ }))
	assert.Equal(t, 1, nudges)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	src := &chanSource{ch: make(chan amqp.Delivery)}
	c := NewConsumer(src, "test", storagetest.DiscardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx, func() {}) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_RunConsumeError(t *testing.T) {
	c := NewConsumer(&chanSource{err: errors.New("channel closed")}, "test", storagetest.DiscardLogger())
	err := c.Run(context.Background(), func() {})
	assert.ErrorContains(t, err, "channel closed")
}
