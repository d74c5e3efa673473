package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `id, type, project_id, payload, status, summary, output, created_at, updated_at`

type jobRow struct {
	ID        string         `db:"id"`
	Type      string         `db:"type"`
	ProjectID string         `db:"project_id"`
	Payload   string         `db:"payload"`
	Status    string         `db:"status"`
	Summary   sql.NullString `db:"summary"`
	Output    sql.NullString `db:"output"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r *jobRow) toDomain() (*domain.Job, error) {
	output, err := unmarshalObject(r.Output.String)
	if err != nil {
		return nil, err
	}
	return &domain.Job{
		ID:        r.ID,
		Type:      domain.JobType(r.Type),
		ProjectID: r.ProjectID,
		Payload:   json.RawMessage(r.Payload),
		Status:    domain.JobStatus(r.Status),
		Summary:   r.Summary.String,
		Output:    output,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

// JobFilter selects a page of a project's jobs
type JobFilter struct {
	ProjectID string
	Status    domain.JobStatus
	PageSize  int
	Cursor    *JobCursor
}

// JobCursor marks the last job of the previous page
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// JobStore handles all job persistence
type JobStore struct {
	base
}

// NewJobStore creates a new JobStore instance
func NewJobStore(db *sqlx.DB, logger *slog.Logger, opts ...Option) *JobStore {
	return &JobStore{base: newBase(db, logger, opts)}
}

// Enqueue inserts a new queued job
func (s *JobStore) Enqueue(ctx context.Context, jobType domain.JobType, projectID string, payload json.RawMessage) (*domain.Job, error) {
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if !json.Valid(payload) {
		return nil, domain.NewValidationError("payload", "payload must be valid JSON")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, domain.NewStorageError("enqueue job", fmt.Errorf("failed to generate job id: %w", err))
	}

	now := s.timestamp()
	job := &domain.Job{
		ID:        id.String(),
		Type:      jobType,
		ProjectID: projectID,
		Payload:   payload,
		Status:    domain.JobStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := s.rebind(`
		INSERT INTO jobs (id, type, project_id, payload, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		job.ID, string(job.Type), job.ProjectID, string(job.Payload), string(job.Status), now, now,
	)
	if err != nil {
		return nil, domain.NewStorageError("enqueue job", err)
	}

	s.logger.Debug("Job enqueued",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.String("project_id", job.ProjectID),
	)

	return job, nil
}

// Get retrieves a job by its ID
func (s *JobStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	return s.get(ctx, s.db, id)
}

func (s *JobStore) get(ctx context.Context, q sqlx.QueryerContext, id string) (*domain.Job, error) {
	var row jobRow
	err := sqlx.GetContext(ctx, q, &row, s.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, domain.NewStorageError("get job", err)
	}
	return row.toDomain()
}

// NextQueued returns the oldest queued job without claiming it.
// It returns (nil, nil) when the queue is empty.
func (s *JobStore) NextQueued(ctx context.Context) (*domain.Job, error) {
	query := s.rebind(`
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = ?
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`)

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, string(domain.JobStatusQueued)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStorageError("peek queued job", err)
	}
	return row.toDomain()
}

// UpdateStatus moves a job to update.Status. The update only applies when
// the job is in one of the allowed source states, otherwise
// domain.ErrInvalidTransition is returned. A nil Summary keeps the stored
// summary; a non-nil Output is merged into the stored output.
func (s *JobStore) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error {
	from := update.Status.AllowedFrom()
	if len(from) == 0 {
		return fmt.Errorf("%w: nothing transitions to %s", domain.ErrInvalidTransition, update.Status)
	}

	return s.withTx(ctx, "update job status", func(tx *sqlx.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		output, err := mergeOutput(current.Output, update.Output)
		if err != nil {
			return err
		}

		var summary sql.NullString
		if update.Summary != nil {
			summary = sql.NullString{String: *update.Summary, Valid: true}
		}

		sources := make([]string, len(from))
		for i, st := range from {
			sources[i] = string(st)
		}

		query, args, err := sqlx.In(`
			UPDATE jobs
			SET status = ?,
			    summary = COALESCE(?, summary),
			    output = ?,
			    updated_at = ?
			WHERE id = ? AND status IN (?)
		`, string(update.Status), summary, output, s.timestamp(), id, sources)
		if err != nil {
			return fmt.Errorf("failed to build status update: %w", err)
		}

		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return domain.NewStorageError("update job status", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return domain.NewStorageError("update job status", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, update.Status)
		}

		s.logger.Info("Job status updated",
			slog.String("job_id", id),
			slog.String("from", string(current.Status)),
			slog.String("status", string(update.Status)),
		)
		return nil
	})
}

// UpdateOutput merges output into the job's stored output without changing
// its status.
func (s *JobStore) UpdateOutput(ctx context.Context, id string, output map[string]any) error {
	return s.withTx(ctx, "update job output", func(tx *sqlx.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		merged, err := mergeOutput(current.Output, output)
		if err != nil {
			return err
		}

		query := tx.Rebind(`UPDATE jobs SET output = ?, updated_at = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, query, merged, s.timestamp(), id); err != nil {
			return domain.NewStorageError("update job output", err)
		}
		return nil
	})
}

// ListByProject returns a page of a project's jobs, newest first. One row
// beyond PageSize is fetched so callers can tell whether more exist.
func (s *JobStore) ListByProject(ctx context.Context, filter JobFilter) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE project_id = ?`
	args := []any{filter.ProjectID}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}

	if filter.Cursor != nil {
		query += ` AND (created_at < ? OR (created_at = ? AND id < ?))`
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.JobID)
	}

	// created_at DESC, id DESC keeps pagination stable
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, filter.PageSize+1)

	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, domain.NewStorageError("list jobs", err)
	}

	jobs := make([]*domain.Job, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *JobStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.NewStorageError(op, fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError(op, fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// mergeOutput overlays the top-level keys of add onto stored and returns the
// encoded result as a nullable column value.
func mergeOutput(stored, add map[string]any) (sql.NullString, error) {
	if stored == nil && add == nil {
		return sql.NullString{}, nil
	}

	merged := make(map[string]any, len(stored)+len(add))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range add {
		merged[k] = v
	}

	encoded, err := marshalJSON(merged)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: encoded, Valid: true}, nil
}
