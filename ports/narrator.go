package ports

import (
	"context"

	"datalyst/domain/core"
	"datalyst/domain/profile"
	"datalyst/domain/run"
)

// Synthesis is a produced narrative plus audit metadata about how it came to
// be. The hashes make a synthesis traceable without storing the prompt text.
type Synthesis struct {
	Markdown     string              `json:"markdown"`
	Source       run.NarrativeSource `json:"source"`
	Model        string              `json:"model,omitempty"`
	PromptHash   core.Hash           `json:"prompt_hash,omitempty"`
	ResponseHash core.Hash           `json:"response_hash,omitempty"`
}

// Narrator turns a dataset profile into README-style prose. Implementations
// fail with an error wrapping core.ErrSynthesisUnavailable when no narrative
// can be produced; they never invent statistics beyond what the profile says.
type Narrator interface {
	Synthesize(ctx context.Context, p *profile.DatasetProfile) (*Synthesis, error)
}
