package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/launchloop/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type experimentRow struct {
	ID        string         `db:"id"`
	ProjectID string         `db:"project_id"`
	Type      string         `db:"type"`
	Variants  string         `db:"variants"`
	StartAt   time.Time      `db:"start_at"`
	EndAt     sql.NullTime   `db:"end_at"`
	Winner    sql.NullString `db:"winner"`
}

// ExperimentStore persists experiments
type ExperimentStore struct {
	base
}

// NewExperimentStore creates a new ExperimentStore instance
func NewExperimentStore(db *sqlx.DB, logger *slog.Logger, opts ...Option) *ExperimentStore {
	return &ExperimentStore{base: newBase(db, logger, opts)}
}

// Create starts a new experiment now
func (s *ExperimentStore) Create(ctx context.Context, projectID, experimentType string, variants []domain.Variant) (*domain.Experiment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, domain.NewStorageError("create experiment", err)
	}

	encoded, err := marshalJSON(variants)
	if err != nil {
		return nil, err
	}

	exp := &domain.Experiment{
		ID:        id.String(),
		ProjectID: projectID,
		Type:      experimentType,
		Variants:  variants,
		StartAt:   s.timestamp(),
	}

	query := s.rebind(`
		INSERT INTO experiments (id, project_id, type, variants, start_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if _, err := s.db.ExecContext(ctx, query, exp.ID, exp.ProjectID, exp.Type, encoded, exp.StartAt); err != nil {
		return nil, domain.NewStorageError("create experiment", err)
	}

	s.logger.Info("Experiment created",
		slog.String("experiment_id", exp.ID),
		slog.String("project_id", projectID),
		slog.String("type", experimentType),
	)
	return exp, nil
}

// ListByProject returns a project's experiments, newest start first
func (s *ExperimentStore) ListByProject(ctx context.Context, projectID string) ([]*domain.Experiment, error) {
	query := s.rebind(`
		SELECT id, project_id, type, variants, start_at, end_at, winner
		FROM experiments
		WHERE project_id = ?
		ORDER BY start_at DESC, id DESC
	`)

	var rows []experimentRow
	if err := s.db.SelectContext(ctx, &rows, query, projectID); err != nil {
		return nil, domain.NewStorageError("list experiments", err)
	}

	out := make([]*domain.Experiment, 0, len(rows))
	for _, r := range rows {
		exp := &domain.Experiment{
			ID:        r.ID,
			ProjectID: r.ProjectID,
			Type:      r.Type,
			StartAt:   r.StartAt.UTC(),
			Winner:    r.Winner.String,
		}
		if err := json.Unmarshal([]byte(r.Variants), &exp.Variants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
		}
		if r.EndAt.Valid {
			end := r.EndAt.Time.UTC()
			exp.EndAt = &end
		}
		out = append(out, exp)
	}
	return out, nil
}
