package stages

import (
	"sort"
	"sync"

	"datalyst/domain/profile"
)

// OutlierStage flags values outside the 1.5*IQR Tukey fences of each numeric
// column. Quartiles come from the shared quantile scheme, so the fences and
// the summary statistics always agree.
type OutlierStage struct {
	identifiers map[string]bool
}

// NewOutlierStage creates an outlier stage. identifierColumns names numeric
// columns excluded from detection by explicit caller choice; the stage never
// infers identifier-ness on its own.
func NewOutlierStage(identifierColumns []string) *OutlierStage {
	identifiers := make(map[string]bool, len(identifierColumns))
	for _, name := range identifierColumns {
		identifiers[name] = true
	}
	return &OutlierStage{identifiers: identifiers}
}

// Execute runs detection across numeric columns concurrently. Every numeric
// column gets an entry, including skipped and insufficient ones.
func (o *OutlierStage) Execute(vectors []ColumnVector) profile.OutlierReport {
	entries := make([]profile.ColumnOutliers, len(vectors))

	var wg sync.WaitGroup
	for i, vec := range vectors {
		wg.Add(1)
		go func(i int, vec ColumnVector) {
			defer wg.Done()
			entries[i] = o.detect(vec)
		}(i, vec)
	}
	wg.Wait()

	report := profile.OutlierReport{
		Columns: make(map[string]profile.ColumnOutliers, len(entries)),
	}
	for _, entry := range entries {
		report.Columns[entry.Column] = entry
	}
	return report
}

// detect analyzes one column. The flagged values are reported sorted
// ascending, so the outcome depends only on the multiset of present values,
// never on row order.
func (o *OutlierStage) detect(vec ColumnVector) profile.ColumnOutliers {
	entry := profile.ColumnOutliers{
		Column:       vec.Name,
		PresentCount: len(vec.Dense),
	}

	if o.identifiers[vec.Name] {
		entry.Skipped = true
		entry.Reason = profile.WarningIdentifierExcluded
		return entry
	}

	// Quartiles over fewer than 4 values would be interpolation noise.
	if len(vec.Dense) < 4 {
		entry.Reason = profile.WarningInsufficientData
		return entry
	}
	entry.Sufficient = true

	sorted := make([]float64, len(vec.Dense))
	copy(sorted, vec.Dense)
	sort.Float64s(sorted)

	q1 := quantile(sorted, 0.25)
	q3 := quantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - 1.5*iqr
	upper := q3 + 1.5*iqr
	entry.LowerFence = &lower
	entry.UpperFence = &upper

	// Zero spread between the quartiles means no outliers by convention.
	if iqr == 0 {
		entry.Reason = profile.WarningLowVariance
		return entry
	}

	var flagged []float64
	for _, v := range vec.Dense {
		if v < lower || v > upper {
			flagged = append(flagged, v)
		}
	}
	sort.Float64s(flagged)

	entry.Count = len(flagged)
	entry.Fraction = float64(entry.Count) / float64(entry.PresentCount)
	entry.Values = flagged
	return entry
}
