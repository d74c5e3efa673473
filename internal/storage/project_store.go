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

const projectColumns = `id, name, brief, funnel_archetype, repo_owner, repo_name, mode, status, demo_mode, created_at, updated_at`

type projectRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Brief           string         `db:"brief"`
	FunnelArchetype string         `db:"funnel_archetype"`
	RepoOwner       sql.NullString `db:"repo_owner"`
	RepoName        sql.NullString `db:"repo_name"`
	Mode            string         `db:"mode"`
	Status          string         `db:"status"`
	DemoMode        bool           `db:"demo_mode"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (r *projectRow) toDomain() (*domain.Project, error) {
	p := &domain.Project{
		ID:              r.ID,
		Name:            r.Name,
		FunnelArchetype: r.FunnelArchetype,
		Mode:            r.Mode,
		Status:          r.Status,
		DemoMode:        r.DemoMode,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Brief), &p.Brief); err != nil {
		return nil, fmt.Errorf("failed to unmarshal brief: %w", err)
	}
	if r.RepoOwner.Valid && r.RepoName.Valid {
		p.Repo = &domain.RepoRef{Owner: r.RepoOwner.String, Name: r.RepoName.String}
	}
	return p, nil
}

// ProjectStore handles project persistence
type ProjectStore struct {
	base
}

// NewProjectStore creates a new ProjectStore instance
func NewProjectStore(db *sqlx.DB, logger *slog.Logger, opts ...Option) *ProjectStore {
	return &ProjectStore{base: newBase(db, logger, opts)}
}

// Create inserts a project in mode full-agent and status building
func (s *ProjectStore) Create(ctx context.Context, in domain.NewProject) (*domain.Project, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, domain.NewStorageError("create project", err)
	}

	brief, err := marshalJSON(in.Brief)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	p := &domain.Project{
		ID:              id.String(),
		Name:            in.Name,
		Brief:           in.Brief,
		FunnelArchetype: in.FunnelArchetype,
		Mode:            domain.ProjectModeFullAgent,
		Status:          domain.ProjectStatusBuilding,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := s.rebind(`
		INSERT INTO projects (id, name, brief, funnel_archetype, mode, status, demo_mode, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Name, brief, p.FunnelArchetype, p.Mode, p.Status, p.DemoMode, now, now,
	)
	if err != nil {
		return nil, domain.NewStorageError("create project", err)
	}

	s.logger.Info("Project created",
		slog.String("project_id", p.ID),
		slog.String("name", p.Name),
	)
	return p, nil
}

// Get retrieves a project by ID
func (s *ProjectStore) Get(ctx context.Context, id string) (*domain.Project, error) {
	var row projectRow
	err := s.db.GetContext(ctx, &row, s.rebind(`SELECT `+projectColumns+` FROM projects WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, domain.NewStorageError("get project", err)
	}
	return row.toDomain()
}

// SetRepo records the hosted repository of a project
func (s *ProjectStore) SetRepo(ctx context.Context, id string, repo domain.RepoRef) error {
	query := s.rebind(`UPDATE projects SET repo_owner = ?, repo_name = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, repo.Owner, repo.Name, s.timestamp(), id)
	if err != nil {
		return domain.NewStorageError("set project repo", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return domain.NewStorageError("set project repo", err)
	}
	if n == 0 {
		return domain.ErrProjectNotFound
	}

	s.logger.Info("Project repo updated",
		slog.String("project_id", id),
		slog.String("repo", repo.FullName()),
	)
	return nil
}
