package profile

import (
	"fmt"

	"datalyst/domain/core"
)

// Validate checks the profile's referential consistency. A violation means
// the profiling pipeline itself is broken, so the returned error wraps
// core.ErrInternalConsistency and callers must treat it as fatal for the run
// rather than as a data condition.
func (p *DatasetProfile) Validate() error {
	if p.RowCount < 0 {
		return core.NewConsistencyError("row_count", fmt.Sprintf("negative row count %d", p.RowCount))
	}
	if p.ColumnCount != len(p.Columns) {
		return core.NewConsistencyError("column_count",
			fmt.Sprintf("declared %d columns, carrying %d profiles", p.ColumnCount, len(p.Columns)))
	}

	for _, col := range p.Columns {
		if err := validateColumn(col, p.RowCount); err != nil {
			return err
		}
	}

	numeric := p.NumericColumns()
	if err := validateMatrix(&p.Correlations, numeric); err != nil {
		return err
	}
	return validateOutliers(&p.Outliers, numeric)
}

func validateColumn(col ColumnProfile, rowCount int) error {
	if col.MissingCount+col.PresentCount != rowCount {
		return core.NewConsistencyError("column_counts",
			fmt.Sprintf("column %s: missing %d + present %d != rows %d",
				col.Name, col.MissingCount, col.PresentCount, rowCount))
	}
	if col.MissingFraction < 0 || col.MissingFraction > 1 {
		return core.NewConsistencyError("missing_fraction",
			fmt.Sprintf("column %s: fraction %f out of range", col.Name, col.MissingFraction))
	}
	if col.PresentCount == 0 && col.Kind != KindEntirelyAbsent {
		return core.NewConsistencyError("column_kind",
			fmt.Sprintf("column %s: no present values but kind %s", col.Name, col.Kind))
	}
	if col.Kind == KindNumeric && col.Summary == nil {
		return core.NewConsistencyError("column_summary",
			fmt.Sprintf("column %s: numeric without summary stats", col.Name))
	}
	if col.Kind != KindNumeric && col.Summary != nil {
		return core.NewConsistencyError("column_summary",
			fmt.Sprintf("column %s: %s column carries summary stats", col.Name, col.Kind))
	}
	return nil
}

func validateMatrix(m *CorrelationMatrix, numeric []string) error {
	if len(m.Columns) != len(numeric) {
		return core.NewConsistencyError("correlation_columns",
			fmt.Sprintf("matrix covers %d columns, profile has %d numeric", len(m.Columns), len(numeric)))
	}
	for i, name := range numeric {
		if m.Columns[i] != name {
			return core.NewConsistencyError("correlation_columns",
				fmt.Sprintf("matrix column %d is %s, expected %s", i, m.Columns[i], name))
		}
	}

	n := len(m.Columns)
	if len(m.Cells) != n {
		return core.NewConsistencyError("correlation_shape",
			fmt.Sprintf("matrix has %d rows for %d columns", len(m.Cells), n))
	}
	for i, row := range m.Cells {
		if len(row) != n {
			return core.NewConsistencyError("correlation_shape",
				fmt.Sprintf("matrix row %d has %d cells for %d columns", i, len(row), n))
		}
	}

	for i := 0; i < n; i++ {
		diag := m.Cells[i][i]
		if diag.Defined && (diag.R == nil || *diag.R != 1.0) {
			return core.NewConsistencyError("correlation_diagonal",
				fmt.Sprintf("defined diagonal cell for %s is not 1.0", m.Columns[i]))
		}
		for j := i + 1; j < n; j++ {
			a, b := m.Cells[i][j], m.Cells[j][i]
			if a.Defined != b.Defined || a.N != b.N || a.Reason != b.Reason {
				return core.NewConsistencyError("correlation_symmetry",
					fmt.Sprintf("cells (%s,%s) disagree", m.Columns[i], m.Columns[j]))
			}
			if a.Defined && *a.R != *b.R {
				return core.NewConsistencyError("correlation_symmetry",
					fmt.Sprintf("cells (%s,%s) hold different values", m.Columns[i], m.Columns[j]))
			}
		}
	}

	for i := range m.Cells {
		for j, cell := range m.Cells[i] {
			if cell.Defined && cell.R == nil {
				return core.NewConsistencyError("correlation_cell",
					fmt.Sprintf("defined cell (%s,%s) carries no value", m.Columns[i], m.Columns[j]))
			}
			if !cell.Defined && cell.R != nil {
				return core.NewConsistencyError("correlation_cell",
					fmt.Sprintf("undefined cell (%s,%s) carries a value", m.Columns[i], m.Columns[j]))
			}
			if !cell.Defined && cell.Reason == "" {
				return core.NewConsistencyError("correlation_cell",
					fmt.Sprintf("undefined cell (%s,%s) carries no reason", m.Columns[i], m.Columns[j]))
			}
		}
	}
	return nil
}

func validateOutliers(r *OutlierReport, numeric []string) error {
	if len(r.Columns) != len(numeric) {
		return core.NewConsistencyError("outlier_columns",
			fmt.Sprintf("report covers %d columns, profile has %d numeric", len(r.Columns), len(numeric)))
	}
	for _, name := range numeric {
		entry, ok := r.Columns[name]
		if !ok {
			return core.NewConsistencyError("outlier_columns",
				fmt.Sprintf("numeric column %s has no outlier entry", name))
		}
		if entry.Column != name {
			return core.NewConsistencyError("outlier_columns",
				fmt.Sprintf("entry keyed %s names column %s", name, entry.Column))
		}
		if entry.Count > entry.PresentCount {
			return core.NewConsistencyError("outlier_counts",
				fmt.Sprintf("column %s: %d outliers among %d present values", name, entry.Count, entry.PresentCount))
		}
		if entry.Fraction < 0 || entry.Fraction > 1 {
			return core.NewConsistencyError("outlier_fraction",
				fmt.Sprintf("column %s: fraction %f out of range", name, entry.Fraction))
		}
		if (!entry.Sufficient || entry.Skipped) && entry.Count != 0 {
			return core.NewConsistencyError("outlier_counts",
				fmt.Sprintf("column %s: flagged values without detection", name))
		}
		if entry.Sufficient && !entry.Skipped && len(entry.Values) != entry.Count {
			return core.NewConsistencyError("outlier_counts",
				fmt.Sprintf("column %s: %d flagged values for count %d", name, len(entry.Values), entry.Count))
		}
	}
	return nil
}
