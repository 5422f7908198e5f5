package run

import (
	"encoding/json"

	"datalyst/domain/core"
	"datalyst/domain/profile"
)

// NarrativeSource records how a run's narrative was produced
type NarrativeSource string

const (
	NarrativeLLM      NarrativeSource = "llm"      // language model synthesis succeeded
	NarrativeFallback NarrativeSource = "fallback" // deterministic fallback narrative
	NarrativeDisabled NarrativeSource = "disabled" // narrative synthesis turned off
	NarrativeFailed   NarrativeSource = "failed"   // synthesis attempted but unavailable
)

// ComputeProfileFingerprint hashes the canonical JSON serialization of a
// profile. Profiles are pure functions of their dataset, so equal datasets
// always fingerprint identically.
func ComputeProfileFingerprint(p *profile.DatasetProfile) (core.Fingerprint, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return core.NewFingerprint(data), nil
}
