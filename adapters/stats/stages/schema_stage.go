package stages

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"datalyst/domain/dataset"
	"datalyst/domain/profile"

	"github.com/montanaflynn/stats"
)

// ColumnVector caches the parsed values of one numeric column in the two
// shapes downstream stages need. Aligned has one slot per dataset row with
// NaN marking absent rows; Dense holds the present values only, in row
// order. Non-numeric columns carry no vector.
type ColumnVector struct {
	Name    string
	Aligned []float64
	Dense   []float64
}

// SchemaStage classifies columns and computes per-column missingness and
// summary statistics. Numeric parsing happens here exactly once per column;
// later stages reuse the cached vectors instead of re-reading cells.
type SchemaStage struct{}

// NewSchemaStage creates a new schema stage
func NewSchemaStage() *SchemaStage {
	return &SchemaStage{}
}

// Execute profiles every column, fanning out across goroutines. Results land
// by column index, so goroutine scheduling cannot affect output order.
func (s *SchemaStage) Execute(ds *dataset.Dataset) ([]profile.ColumnProfile, []ColumnVector) {
	profiles := make([]profile.ColumnProfile, ds.ColumnCount())
	vectors := make([]ColumnVector, ds.ColumnCount())

	var wg sync.WaitGroup
	for j := range ds.Columns {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			profiles[j], vectors[j] = s.profileColumn(ds, j)
		}(j)
	}
	wg.Wait()

	return profiles, vectors
}

// profileColumn classifies one column and, when numeric, builds its vector
// and summary. A column is numeric only when every present value parses;
// mixed columns are categorical and contribute no partial numeric view.
func (s *SchemaStage) profileColumn(ds *dataset.Dataset, j int) (profile.ColumnProfile, ColumnVector) {
	name := ds.Columns[j]
	rowCount := ds.RowCount()

	aligned := make([]float64, rowCount)
	dense := make([]float64, 0, rowCount)
	present := 0
	allNumeric := true

	for i := 0; i < rowCount; i++ {
		cell := ds.Rows[i][j]
		if !cell.Present {
			aligned[i] = math.NaN()
			continue
		}
		present++

		v, ok := parseNumeric(cell.Raw)
		if !ok {
			allNumeric = false
			aligned[i] = math.NaN()
			continue
		}
		aligned[i] = v
		dense = append(dense, v)
	}

	col := profile.ColumnProfile{
		Name:         name,
		MissingCount: rowCount - present,
		PresentCount: present,
	}
	// Zero-row datasets report missing fraction 0 by convention.
	if rowCount > 0 {
		col.MissingFraction = float64(col.MissingCount) / float64(rowCount)
	}

	switch {
	case present == 0:
		col.Kind = profile.KindEntirelyAbsent
	case allNumeric:
		col.Kind = profile.KindNumeric
		col.Summary = summarize(dense)
	default:
		col.Kind = profile.KindCategorical
	}

	if col.Kind != profile.KindNumeric {
		return col, ColumnVector{Name: name}
	}
	return col, ColumnVector{Name: name, Aligned: aligned, Dense: dense}
}

// parseNumeric applies the single numeric parse rule: trimmed text must be a
// base-10 integer or float literal with a locale-invariant decimal point.
// NaN and infinity literals do not count as numeric data.
func parseNumeric(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// summarize computes descriptive statistics over the present values
func summarize(dense []float64) *profile.SummaryStats {
	mean, _ := stats.Mean(dense)
	stdDev, _ := stats.StandardDeviation(dense)
	minVal, _ := stats.Min(dense)
	maxVal, _ := stats.Max(dense)

	sorted := make([]float64, len(dense))
	copy(sorted, dense)
	sort.Float64s(sorted)

	return &profile.SummaryStats{
		Mean:   mean,
		StdDev: stdDev,
		Min:    minVal,
		Max:    maxVal,
		Median: quantile(sorted, 0.50),
		Q25:    quantile(sorted, 0.25),
		Q75:    quantile(sorted, 0.75),
	}
}
