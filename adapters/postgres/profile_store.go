package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
	"datalyst/ports"
)

// Bootstrap creates the profile_runs table when it does not exist yet. The
// schema is small enough that a single idempotent statement replaces a
// migration chain.
func Bootstrap(ctx context.Context, db *sqlx.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS profile_runs (
		run_id TEXT PRIMARY KEY,
		dataset_name TEXT NOT NULL,
		source_path TEXT NOT NULL DEFAULT '',
		row_count BIGINT NOT NULL DEFAULT 0,
		column_count BIGINT NOT NULL DEFAULT 0,
		fingerprint TEXT NOT NULL,
		narrative_source TEXT NOT NULL DEFAULT '',
		options JSONB NOT NULL DEFAULT '{}',
		profile JSONB NOT NULL,
		narrative TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL,
		duration_ms BIGINT NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_profile_runs_completed_at ON profile_runs (completed_at DESC)`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to bootstrap profile_runs: %w", err)
	}
	return nil
}

// profileStore implements the ProfileStore interface
type profileStore struct {
	db *sqlx.DB
}

// NewProfileStore creates a new Postgres-backed profile store
func NewProfileStore(db *sqlx.DB) ports.ProfileStore {
	return &profileStore{db: db}
}

// Save inserts a completed profiling run
func (s *profileStore) Save(ctx context.Context, rec ports.StoredRun) error {
	optionsJSON, err := json.Marshal(rec.Manifest.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}
	profileJSON, err := json.Marshal(rec.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `INSERT INTO profile_runs (
		run_id, dataset_name, source_path, row_count, column_count,
		fingerprint, narrative_source, options, profile, narrative,
		started_at, completed_at, duration_ms
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
	)`

	m := rec.Manifest
	_, err = s.db.ExecContext(ctx, query,
		m.RunID.String(), m.DatasetName, m.SourcePath, m.RowCount, m.ColumnCount,
		m.Fingerprint.String(), string(m.NarrativeSource), optionsJSON, profileJSON, rec.Narrative,
		m.StartedAt.Time(), m.CompletedAt.Time(), m.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// Get retrieves a stored run by its ID
func (s *profileStore) Get(ctx context.Context, id core.RunID) (*ports.StoredRun, error) {
	query := `SELECT
		run_id, dataset_name, source_path, row_count, column_count,
		fingerprint, narrative_source, options, profile, COALESCE(narrative, '') as narrative,
		started_at, completed_at, duration_ms
	FROM profile_runs WHERE run_id = $1`

	var (
		rec         ports.StoredRun
		runID       string
		fingerprint string
		source      string
		optionsJSON []byte
		profileJSON []byte
		startedAt   time.Time
		completedAt time.Time
	)

	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&runID, &rec.Manifest.DatasetName, &rec.Manifest.SourcePath,
		&rec.Manifest.RowCount, &rec.Manifest.ColumnCount,
		&fingerprint, &source, &optionsJSON, &profileJSON, &rec.Narrative,
		&startedAt, &completedAt, &rec.Manifest.DurationMs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	rec.Manifest.RunID = core.RunID(runID)
	rec.Manifest.Fingerprint = core.Fingerprint(fingerprint)
	rec.Manifest.NarrativeSource = run.NarrativeSource(source)
	rec.Manifest.StartedAt = core.NewTimestamp(startedAt)
	rec.Manifest.CompletedAt = core.NewTimestamp(completedAt)

	if len(optionsJSON) > 0 {
		if err := json.Unmarshal(optionsJSON, &rec.Manifest.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
	}
	var p profile.DatasetProfile
	if err := json.Unmarshal(profileJSON, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	rec.Profile = &p

	return &rec, nil
}

// List retrieves run manifests newest first
func (s *profileStore) List(ctx context.Context, limit, offset int) ([]run.RunManifest, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT
		run_id, dataset_name, source_path, row_count, column_count,
		fingerprint, narrative_source, options,
		started_at, completed_at, duration_ms
	FROM profile_runs
	ORDER BY completed_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return s.scanManifests(rows)
}

// scanManifests is a helper function to scan multiple manifest rows
func (s *profileStore) scanManifests(rows *sql.Rows) ([]run.RunManifest, error) {
	var manifests []run.RunManifest
	for rows.Next() {
		var (
			m           run.RunManifest
			runID       string
			fingerprint string
			source      string
			optionsJSON []byte
			startedAt   time.Time
			completedAt time.Time
		)

		err := rows.Scan(
			&runID, &m.DatasetName, &m.SourcePath, &m.RowCount, &m.ColumnCount,
			&fingerprint, &source, &optionsJSON,
			&startedAt, &completedAt, &m.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		m.RunID = core.RunID(runID)
		m.Fingerprint = core.Fingerprint(fingerprint)
		m.NarrativeSource = run.NarrativeSource(source)
		m.StartedAt = core.NewTimestamp(startedAt)
		m.CompletedAt = core.NewTimestamp(completedAt)

		if len(optionsJSON) > 0 {
			if err := json.Unmarshal(optionsJSON, &m.Options); err != nil {
				return nil, fmt.Errorf("failed to unmarshal options: %w", err)
			}
		}

		manifests = append(manifests, m)
	}

	return manifests, rows.Err()
}
