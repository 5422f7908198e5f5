package ports

import (
	"context"

	"datalyst/domain/dataset"
)

// DatasetReader loads a tabular source file into a Dataset. Implementations
// decide which raw cell texts map to absent values; downstream stages trust
// Cell.Present and never re-guess absence.
type DatasetReader interface {
	Read(ctx context.Context, path string) (*dataset.Dataset, error)
}
