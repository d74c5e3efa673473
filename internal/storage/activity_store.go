package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type activityRow struct {
	ID            string         `db:"id"`
	ProjectID     string         `db:"project_id"`
	Timestamp     time.Time      `db:"ts"`
	Level         string         `db:"level"`
	Actor         string         `db:"actor"`
	Message       string         `db:"message"`
	Meta          sql.NullString `db:"meta"`
	CorrelationID sql.NullString `db:"correlation_id"`
	JobID         sql.NullString `db:"job_id"`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ActivityStore persists activity events
type ActivityStore struct {
	base
}

// NewActivityStore creates a new ActivityStore instance
func NewActivityStore(db *sqlx.DB, logger *slog.Logger, opts ...Option) *ActivityStore {
	return &ActivityStore{base: newBase(db, logger, opts)}
}

// Insert assigns an ID and timestamp to ev and stores it
func (s *ActivityStore) Insert(ctx context.Context, ev *domain.ActivityEvent) error {
	id, err := uuid.NewV7()
	if err != nil {
		return domain.NewStorageError("insert activity", err)
	}
	ev.ID = id.String()
	ev.Timestamp = s.timestamp()

	var meta sql.NullString
	if len(ev.Meta) > 0 {
		encoded, err := marshalJSON(ev.Meta)
		if err != nil {
			return err
		}
		meta = nullString(encoded)
	}

	query := s.rebind(`
		INSERT INTO activity_events (id, project_id, ts, level, actor, message, meta, correlation_id, job_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		ev.ID, ev.ProjectID, ev.Timestamp, ev.Level, ev.Actor, ev.Message,
		meta, nullString(ev.CorrelationID), nullString(ev.JobID),
	)
	if err != nil {
		return domain.NewStorageError("insert activity", err)
	}
	return nil
}

// List returns up to limit events of a project, newest first
func (s *ActivityStore) List(ctx context.Context, projectID string, limit int) ([]*domain.ActivityEvent, error) {
	query := s.rebind(`
		SELECT id, project_id, ts, level, actor, message, meta, correlation_id, job_id
		FROM activity_events
		WHERE project_id = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`)

	var rows []activityRow
	if err := s.db.SelectContext(ctx, &rows, query, projectID, limit); err != nil {
		return nil, domain.NewStorageError("list activity", err)
	}

	events := make([]*domain.ActivityEvent, 0, len(rows))
	for _, r := range rows {
		meta, err := unmarshalObject(r.Meta.String)
		if err != nil {
			return nil, err
		}
		events = append(events, &domain.ActivityEvent{
			ID:            r.ID,
			ProjectID:     r.ProjectID,
			Timestamp:     r.Timestamp.UTC(),
			Level:         r.Level,
			Actor:         r.Actor,
			Message:       r.Message,
			Meta:          meta,
			CorrelationID: r.CorrelationID.String,
			JobID:         r.JobID.String,
		})
	}
	return events, nil
}
