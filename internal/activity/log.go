// Package activity records the per-project audit trail shown to users.
package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/launchloop/internal/domain"
)

// Listing bounds
const (
	DefaultLimit = 100
	MaxLimit     = 500
)

// Store persists activity events
type Store interface {
	Insert(ctx context.Context, ev *domain.ActivityEvent) error
	List(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error)
}

// Entry describes an event to append. Level defaults to info and Actor to
// system.
type Entry struct {
	ProjectID     string
	Level         string
	Actor         string
	Message       string
	Meta          map[string]any
	CorrelationID string
	JobID         string
}

// Log is the activity log
type Log struct {
	store  Store
	logger *slog.Logger
}

// NewLog creates a new activity log
func NewLog(store Store, logger *slog.Logger) *Log {
	return &Log{store: store, logger: logger}
}

// Append persists an entry and returns the stored event
func (l *Log) Append(ctx context.Context, e Entry) (*domain.ActivityEvent, error) {
	if e.ProjectID == "" {
		return nil, domain.NewValidationError("projectId", "projectId is required")
	}
	if e.Message == "" {
		return nil, domain.NewValidationError("message", "message is required")
	}

	ev := &domain.ActivityEvent{
		ProjectID:     e.ProjectID,
		Level:         e.Level,
		Actor:         e.Actor,
		Message:       e.Message,
		Meta:          e.Meta,
		CorrelationID: e.CorrelationID,
		JobID:         e.JobID,
	}
	if ev.Level == "" {
		ev.Level = domain.LevelInfo
	}
	if ev.Actor == "" {
		ev.Actor = domain.ActorSystem
	}

	if err := l.store.Insert(ctx, ev); err != nil {
		return nil, fmt.Errorf("failed to append activity: %w", err)
	}
	return ev, nil
}

// Record appends an entry and never fails the caller; a write error is
// logged at warn level.
func (l *Log) Record(ctx context.Context, e Entry) {
	if _, err := l.Append(ctx, e); err != nil {
		l.logger.Warn("Failed to record activity",
			slog.String("project_id", e.ProjectID),
			slog.String("job_id", e.JobID),
			slog.String("message", e.Message),
			slog.Any("error", err),
		)
	}
}

// List returns the newest events of a project
func (l *Log) List(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error) {
	events, err := l.store.List(ctx, projectID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return events, nil
}

// ClampLimit maps a requested limit into [1, MaxLimit], using DefaultLimit
// for non-positive values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
