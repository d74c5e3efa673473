package activity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	events    []*domain.ActivityEvent
	insertErr error
	lastLimit int
}

func (m *memStore) Insert(_ context.Context, ev *domain.ActivityEvent) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) List(_ context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error) {
	m.lastLimit = limit
	var out []*domain.ActivityEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		if m.events[i].ProjectID == projectID {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

func TestLog_AppendDefaults(t *testing.T) {
	store := &memStore{}
	log := NewLog(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ev, err := log.Append(context.Background(), Entry{ProjectID: "p1", Message: "Project created"})
	require.NoError(t, err)
	assert.Equal(t, domain.LevelInfo, ev.Level)
	assert.Equal(t, domain.ActorSystem, ev.Actor)
	assert.Len(t, store.events, 1)
}

func TestLog_AppendValidation(t *testing.T) {
	log := NewLog(&memStore{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	tests := []struct {
		name  string
		entry Entry
		field string
	}{
		{name: "missing project", entry: Entry{Message: "x"}, field: "projectId"},
		{name: "missing message", entry: Entry{ProjectID: "p1"}, field: "message"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := log.Append(context.Background(), tt.entry)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestLog_RecordSwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	store := &memStore{insertErr: errors.New("disk full")}
	log := NewLog(store, slog.New(slog.NewTextHandler(&buf, nil)))

	assert.NotPanics(t, func() {
		log.Record(context.Background(), Entry{ProjectID: "p1", Message: "Job started: X", JobID: "j1"})
	})
	assert.Contains(t, buf.String(), "Failed to record activity")
	assert.Contains(t, buf.String(), "disk full")
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -1, want: DefaultLimit},
		{in: 0, want: DefaultLimit},
		{in: 1, want: 1},
		{in: 250, want: 250},
		{in: 10000, want: MaxLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.in))
	}
}

func TestLog_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	log := NewLog(store, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	for _, msg := range []string{"first", "second", "third"} {
		_, err := log.Append(ctx, Entry{ProjectID: "p1", Message: msg})
		require.NoError(t, err)
	}

	events, err := log.List(ctx, "p1", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, store.lastLimit)
	require.Len(t, events, 3)
	assert.Equal(t, "third", events[0].Message)
}
