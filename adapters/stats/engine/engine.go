package engine

import (
	"fmt"

	"datalyst/adapters/stats/stages"
	"datalyst/domain/dataset"
	"datalyst/domain/profile"
)

// Engine computes dataset profiles by composing the schema, correlation and
// outlier stages. Profiling is a pure function of the dataset and options:
// no clocks, no randomness, no environment reads, so two runs over the same
// dataset serialize byte-identically.
type Engine struct {
	schema      *stages.SchemaStage
	correlation *stages.CorrelationStage
}

// NewEngine creates a new profiling engine
func NewEngine() *Engine {
	return &Engine{
		schema:      stages.NewSchemaStage(),
		correlation: stages.NewCorrelationStage(),
	}
}

// Profile computes the complete profile for one dataset and verifies its
// referential consistency before returning it. A consistency violation
// wraps core.ErrInternalConsistency and callers must treat it as fatal for
// the run.
func (e *Engine) Profile(ds *dataset.Dataset, opts profile.Options) (*profile.DatasetProfile, error) {
	columns, vectors := e.schema.Execute(ds)

	numericVectors := make([]stages.ColumnVector, 0, len(columns))
	for i, col := range columns {
		if col.Kind == profile.KindNumeric {
			numericVectors = append(numericVectors, vectors[i])
		}
	}

	matrix := e.correlation.Execute(numericVectors)
	report := stages.NewOutlierStage(opts.IdentifierColumns).Execute(numericVectors)

	p := &profile.DatasetProfile{
		DatasetName:  ds.Name,
		RowCount:     ds.RowCount(),
		ColumnCount:  ds.ColumnCount(),
		Columns:      columns,
		Correlations: matrix,
		Outliers:     report,
		Warnings:     collectWarnings(ds, numericVectors, report),
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profiling %s: %w", ds.Name, err)
	}
	return p, nil
}

// collectWarnings gathers dataset-level and column-level conditions.
// Pairwise conditions stay on the matrix cells themselves.
func collectWarnings(ds *dataset.Dataset, numericVectors []stages.ColumnVector, report profile.OutlierReport) []profile.Warning {
	var warnings []profile.Warning

	if ds.RowCount() == 0 {
		warnings = append(warnings, profile.Warning{
			Code:   profile.WarningEmptyDataset,
			Detail: "dataset has zero rows; all statistics are vacuous",
		})
	}

	for _, vec := range numericVectors {
		entry := report.Columns[vec.Name]
		switch {
		case entry.Skipped:
			warnings = append(warnings, profile.Warning{
				Code:   profile.WarningIdentifierExcluded,
				Column: vec.Name,
			})
		case !entry.Sufficient:
			warnings = append(warnings, profile.Warning{
				Code:   profile.WarningInsufficientData,
				Column: vec.Name,
				Detail: fmt.Sprintf("%d present values, need at least 4", entry.PresentCount),
			})
		}
	}
	return warnings
}
