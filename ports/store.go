package ports

import (
	"context"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
)

// StoredRun bundles everything persisted for one profiling run.
type StoredRun struct {
	Manifest  run.RunManifest         `json:"manifest"`
	Profile   *profile.DatasetProfile `json:"profile"`
	Narrative string                  `json:"narrative,omitempty"`
}

// ProfileStore persists completed profiling runs for later browsing.
// Implementations map their storage-level not-found onto core.ErrRunNotFound.
type ProfileStore interface {
	Save(ctx context.Context, rec StoredRun) error
	Get(ctx context.Context, id core.RunID) (*StoredRun, error)
	List(ctx context.Context, limit, offset int) ([]run.RunManifest, error)
}
