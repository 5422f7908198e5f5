package ports

import (
	"datalyst/domain/dataset"
	"datalyst/domain/profile"
)

// Profiler computes the complete statistical profile of one dataset. The
// computation is pure: no I/O, no clocks, no randomness, so the same dataset
// and options always yield the same profile. An error from Profile means the
// pipeline itself is broken (core.ErrInternalConsistency), never a data
// condition; data conditions surface as warnings inside the profile.
type Profiler interface {
	Profile(ds *dataset.Dataset, opts profile.Options) (*profile.DatasetProfile, error)
}
