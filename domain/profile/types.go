package profile

// ============================================================================
// COLUMN PROFILES
// ============================================================================

// ColumnKind classifies a column by what its present values hold
type ColumnKind string

const (
	KindNumeric        ColumnKind = "numeric"         // every present value parses as a number
	KindCategorical    ColumnKind = "categorical"     // at least one present value is non-numeric
	KindEntirelyAbsent ColumnKind = "entirely_absent" // no present values at all
)

// SummaryStats holds descriptive statistics over the present values of a
// numeric column. Median, Q25 and Q75 use the same linear order-statistic
// interpolation as the outlier fences.
type SummaryStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Median float64 `json:"median"`
	Q25    float64 `json:"q25"`
	Q75    float64 `json:"q75"`
}

// ColumnProfile describes one column: its kind and its missingness.
// MissingFraction is MissingCount over the dataset row count; for a zero-row
// dataset it is 0 by convention.
type ColumnProfile struct {
	Name            string        `json:"name"`
	Kind            ColumnKind    `json:"kind"`
	MissingCount    int           `json:"missing_count"`
	PresentCount    int           `json:"present_count"`
	MissingFraction float64       `json:"missing_fraction"`
	Summary         *SummaryStats `json:"summary,omitempty"` // numeric columns only
}

// ============================================================================
// CORRELATIONS
// ============================================================================

// PairwiseCorrelation is one cell of the correlation matrix. An undefined
// cell carries no fabricated value: R and PValue stay nil and Reason says why.
type PairwiseCorrelation struct {
	R       *float64    `json:"r,omitempty"`
	PValue  *float64    `json:"p_value,omitempty"`
	N       int         `json:"n"`                // co-present sample size
	Defined bool        `json:"defined"`
	Reason  WarningCode `json:"reason,omitempty"` // set when undefined
}

// CorrelationMatrix holds pairwise Pearson correlations over the numeric
// columns, in profile order. Cells[i][j] relates Columns[i] to Columns[j];
// the matrix is symmetric by construction.
type CorrelationMatrix struct {
	Columns []string                `json:"columns"`
	Cells   [][]PairwiseCorrelation `json:"cells"`
}

// At returns the cell relating columns i and j
func (m *CorrelationMatrix) At(i, j int) PairwiseCorrelation {
	return m.Cells[i][j]
}

// Lookup returns the cell for two named columns
func (m *CorrelationMatrix) Lookup(colA, colB string) (PairwiseCorrelation, bool) {
	ia, ja := -1, -1
	for idx, name := range m.Columns {
		if name == colA {
			ia = idx
		}
		if name == colB {
			ja = idx
		}
	}
	if ia < 0 || ja < 0 {
		return PairwiseCorrelation{}, false
	}
	return m.Cells[ia][ja], true
}

// ============================================================================
// OUTLIERS
// ============================================================================

// ColumnOutliers summarizes IQR outlier detection for one numeric column.
// Fraction is Count over PresentCount, never over the raw row count. Values
// lists the flagged present values sorted ascending, so the result does not
// depend on row order.
type ColumnOutliers struct {
	Column       string      `json:"column"`
	Sufficient   bool        `json:"sufficient"`        // false when fewer than 4 present values
	Skipped      bool        `json:"skipped,omitempty"` // excluded via identifier override
	Reason       WarningCode `json:"reason,omitempty"`
	PresentCount int         `json:"present_count"`
	Count        int         `json:"outlier_count"`
	Fraction     float64     `json:"outlier_fraction"`
	LowerFence   *float64    `json:"lower_fence,omitempty"`
	UpperFence   *float64    `json:"upper_fence,omitempty"`
	Values       []float64   `json:"values,omitempty"`
}

// OutlierReport maps numeric column names to their outlier summaries
type OutlierReport struct {
	Columns map[string]ColumnOutliers `json:"columns"`
}

// For returns the outlier summary of a named column
func (r *OutlierReport) For(column string) (ColumnOutliers, bool) {
	c, ok := r.Columns[column]
	return c, ok
}

// ============================================================================
// WARNINGS
// ============================================================================

// WarningCode represents structured warning types
type WarningCode string

const (
	WarningEmptyDataset       WarningCode = "EMPTY_DATASET"       // dataset has zero rows
	WarningLowN               WarningCode = "LOW_N"               // fewer than 2 co-present rows for a pair
	WarningLowVariance        WarningCode = "LOW_VARIANCE"        // zero variance over the co-present rows
	WarningInsufficientData   WarningCode = "INSUFFICIENT_DATA"   // fewer than 4 present values for quartiles
	WarningIdentifierExcluded WarningCode = "IDENTIFIER_EXCLUDED" // column excluded by explicit override
)

// Warning is a non-fatal condition recorded inside the profile
type Warning struct {
	Code   WarningCode `json:"code"`
	Column string      `json:"column,omitempty"`
	Detail string      `json:"detail,omitempty"`
}

// ============================================================================
// OPTIONS
// ============================================================================

// Options control profiling behavior independent of any particular dataset.
// The zero value profiles every column.
type Options struct {
	// IdentifierColumns names numeric columns that hold identifiers rather
	// than measurements. They keep their entry in the outlier report but are
	// not scanned. Membership is always an explicit caller decision, never
	// inferred from names or values.
	IdentifierColumns []string `json:"identifier_columns,omitempty"`
}

// ============================================================================
// DATASET PROFILE
// ============================================================================

// DatasetProfile is the complete, self-describing profiling result. It holds
// no timestamps, identifiers or environment data: profiling the same dataset
// twice produces byte-identical serializations.
type DatasetProfile struct {
	DatasetName  string            `json:"dataset_name"`
	RowCount     int               `json:"row_count"`
	ColumnCount  int               `json:"column_count"`
	Columns      []ColumnProfile   `json:"columns"`
	Correlations CorrelationMatrix `json:"correlations"`
	Outliers     OutlierReport     `json:"outliers"`
	Warnings     []Warning         `json:"warnings,omitempty"`
}

// NumericColumns returns the names of numeric columns in profile order
func (p *DatasetProfile) NumericColumns() []string {
	var names []string
	for _, col := range p.Columns {
		if col.Kind == KindNumeric {
			names = append(names, col.Name)
		}
	}
	return names
}

// ColumnByName returns the profile of a named column
func (p *DatasetProfile) ColumnByName(name string) (ColumnProfile, bool) {
	for _, col := range p.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return ColumnProfile{}, false
}
