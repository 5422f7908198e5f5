package run

import (
	"datalyst/domain/core"
	"datalyst/domain/profile"
)

// RunManifest records the context of one profiling run: which source was
// read, what the resulting profile hashed to, and how the narrative was
// produced. Run metadata lives here so the profile itself stays a pure
// function of the data.
type RunManifest struct {
	RunID           core.RunID       `json:"run_id"`
	DatasetName     string           `json:"dataset_name"`
	SourcePath      string           `json:"source_path"`
	RowCount        int              `json:"row_count"`
	ColumnCount     int              `json:"column_count"`
	Fingerprint     core.Fingerprint `json:"fingerprint"` // profile content hash
	NarrativeSource NarrativeSource  `json:"narrative_source"`
	Options         profile.Options  `json:"options"`
	StartedAt       core.Timestamp   `json:"started_at"`
	CompletedAt     core.Timestamp   `json:"completed_at"`
	DurationMs      int64            `json:"duration_ms"`
}

// NewRunManifest creates a manifest for a completed profiling run
func NewRunManifest(sourcePath string, p *profile.DatasetProfile, opts profile.Options, startedAt core.Timestamp) (*RunManifest, error) {
	fingerprint, err := ComputeProfileFingerprint(p)
	if err != nil {
		return nil, err
	}

	completedAt := core.Now()
	return &RunManifest{
		RunID:       core.NewRunID(),
		DatasetName: p.DatasetName,
		SourcePath:  sourcePath,
		RowCount:    p.RowCount,
		ColumnCount: p.ColumnCount,
		Fingerprint: fingerprint,
		Options:     opts,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  completedAt.Time().Sub(startedAt.Time()).Milliseconds(),
	}, nil
}

// Validate checks if the manifest is complete
func (m *RunManifest) Validate() error {
	if m.RunID.IsEmpty() {
		return core.NewValidationError("run_manifest", "run_id cannot be empty")
	}
	if m.DatasetName == "" {
		return core.NewValidationError("run_manifest", "dataset_name cannot be empty")
	}
	if m.Fingerprint.IsEmpty() {
		return core.NewValidationError("run_manifest", "fingerprint cannot be empty")
	}
	if m.CompletedAt.Before(m.StartedAt) {
		return core.NewValidationError("run_manifest", "completed_at precedes started_at")
	}
	return nil
}
