// Package storage persists jobs, projects, activity events and experiments
// with sqlx. Queries are written with ? placeholders and rebound for the
// connected driver, so the same code runs on PostgreSQL and SQLite.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Option configures a store
type Option func(*base)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		b.now = now
	}
}

type base struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

func newBase(db *sqlx.DB, logger *slog.Logger, opts []Option) base {
	b := base{db: db, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) rebind(query string) string {
	return b.db.Rebind(query)
}

// timestamp returns the current time in UTC at the precision both drivers
// round-trip.
func (b *base) timestamp() time.Time {
	return b.now().UTC().Truncate(time.Microsecond)
}

func marshalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json: %w", err)
	}
	return string(data), nil
}

func unmarshalObject(s string) (map[string]any, error) {
	if s == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return out, nil
}

var schemaStatements = map[string][]string{
	"postgres": {
		`CREATE TABLE IF NOT EXISTS jobs (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			project_id  TEXT NOT NULL,
			payload     TEXT NOT NULL DEFAULT '{}',
			status      TEXT NOT NULL,
			summary     TEXT,
			output      TEXT,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs (status, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_project_created ON jobs (project_id, created_at, id)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			brief             TEXT NOT NULL,
			funnel_archetype  TEXT NOT NULL,
			repo_owner        TEXT,
			repo_name         TEXT,
			mode              TEXT NOT NULL,
			status            TEXT NOT NULL,
			demo_mode         BOOLEAN NOT NULL DEFAULT FALSE,
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity_events (
			id              TEXT PRIMARY KEY,
			project_id      TEXT NOT NULL,
			ts              TIMESTAMPTZ NOT NULL,
			level           TEXT NOT NULL,
			actor           TEXT NOT NULL,
			message         TEXT NOT NULL,
			meta            TEXT,
			correlation_id  TEXT,
			job_id          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_project_ts ON activity_events (project_id, ts DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS experiments (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL,
			type        TEXT NOT NULL,
			variants    TEXT NOT NULL,
			start_at    TIMESTAMPTZ NOT NULL,
			end_at      TIMESTAMPTZ,
			winner      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_project ON experiments (project_id, start_at DESC)`,
	},
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS jobs (
			id          TEXT PRIMARY KEY,
			type        TEXT NOT NULL,
			project_id  TEXT NOT NULL,
			payload     TEXT NOT NULL DEFAULT '{}',
			status      TEXT NOT NULL,
			summary     TEXT,
			output      TEXT,
			created_at  TIMESTAMP NOT NULL,
			updated_at  TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs (status, created_at, id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_project_created ON jobs (project_id, created_at, id)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id                TEXT PRIMARY KEY,
			name              TEXT NOT NULL,
			brief             TEXT NOT NULL,
			funnel_archetype  TEXT NOT NULL,
			repo_owner        TEXT,
			repo_name         TEXT,
			mode              TEXT NOT NULL,
			status            TEXT NOT NULL,
			demo_mode         BOOLEAN NOT NULL DEFAULT 0,
			created_at        TIMESTAMP NOT NULL,
			updated_at        TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS activity_events (
			id              TEXT PRIMARY KEY,
			project_id      TEXT NOT NULL,
			ts              TIMESTAMP NOT NULL,
			level           TEXT NOT NULL,
			actor           TEXT NOT NULL,
			message         TEXT NOT NULL,
			meta            TEXT,
			correlation_id  TEXT,
			job_id          TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_project_ts ON activity_events (project_id, ts DESC, id DESC)`,
		`CREATE TABLE IF NOT EXISTS experiments (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL,
			type        TEXT NOT NULL,
			variants    TEXT NOT NULL,
			start_at    TIMESTAMP NOT NULL,
			end_at      TIMESTAMP,
			winner      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_experiments_project ON experiments (project_id, start_at DESC)`,
	},
}

// Migrate creates the schema if it does not exist yet
func Migrate(ctx context.Context, db *sqlx.DB, logger *slog.Logger) error {
	stmts, ok := schemaStatements[db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", db.DriverName())
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	logger.Info("Database schema ready",
		slog.String("driver", db.DriverName()),
		slog.Int("statements", len(stmts)),
	)
	return nil
}
