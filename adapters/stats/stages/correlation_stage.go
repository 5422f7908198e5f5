package stages

import (
	"math"

	"datalyst/domain/profile"
)

// CorrelationStage computes the pairwise Pearson matrix over the numeric
// columns. Correlation is pairwise-complete-case: each pair draws on the
// rows where both values are present, so different pairs may rest on
// different row subsets. That uses all available data per pair at the cost
// of sample consistency across cells.
type CorrelationStage struct{}

// NewCorrelationStage creates a new correlation stage
func NewCorrelationStage() *CorrelationStage {
	return &CorrelationStage{}
}

// Execute builds the full matrix from cached numeric column vectors. The
// upper triangle is computed once and mirrored, so symmetry holds exactly.
func (c *CorrelationStage) Execute(vectors []ColumnVector) profile.CorrelationMatrix {
	n := len(vectors)

	matrix := profile.CorrelationMatrix{
		Columns: make([]string, n),
		Cells:   make([][]profile.PairwiseCorrelation, n),
	}
	for i, vec := range vectors {
		matrix.Columns[i] = vec.Name
		matrix.Cells[i] = make([]profile.PairwiseCorrelation, n)
	}

	// Diagonal: defined 1.0 only when the column varies at all. A constant
	// or sub-2-sample column gets an undefined diagonal, never a fabricated
	// value.
	for i, vec := range vectors {
		switch {
		case len(vec.Dense) < 2:
			matrix.Cells[i][i] = undefinedCell(len(vec.Dense), profile.WarningLowN)
		case hasZeroVariance(vec.Dense):
			matrix.Cells[i][i] = undefinedCell(len(vec.Dense), profile.WarningLowVariance)
		default:
			one := 1.0
			matrix.Cells[i][i] = profile.PairwiseCorrelation{R: &one, N: len(vec.Dense), Defined: true}
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			cell := c.correlate(vectors[i].Aligned, vectors[j].Aligned)
			matrix.Cells[i][j] = cell
			matrix.Cells[j][i] = cell
		}
	}

	return matrix
}

// correlate computes one off-diagonal cell from two row-aligned vectors
func (c *CorrelationStage) correlate(x, y []float64) profile.PairwiseCorrelation {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}

	n := len(xs)
	if n < 2 {
		return undefinedCell(n, profile.WarningLowN)
	}
	if hasZeroVariance(xs) || hasZeroVariance(ys) {
		return undefinedCell(n, profile.WarningLowVariance)
	}

	r, ok := pearson(xs, ys)
	if !ok {
		return undefinedCell(n, profile.WarningLowVariance)
	}

	cell := profile.PairwiseCorrelation{R: &r, N: n, Defined: true}
	if n >= 3 {
		p := correlationPValue(r, n)
		cell.PValue = &p
	}
	return cell
}

func undefinedCell(n int, reason profile.WarningCode) profile.PairwiseCorrelation {
	return profile.PairwiseCorrelation{N: n, Defined: false, Reason: reason}
}

// hasZeroVariance checks if values are essentially constant
func hasZeroVariance(values []float64) bool {
	if len(values) < 2 {
		return true
	}
	first := values[0]
	for _, v := range values[1:] {
		if math.Abs(v-first) > 1e-10 {
			return false
		}
	}
	return true
}

// pearson calculates the Pearson correlation coefficient, clamped to [-1, 1]
// against floating point drift. ok is false when either sum of squares
// vanishes despite the variance guard.
func pearson(x, y []float64) (r float64, ok bool) {
	n := float64(len(x))

	sumX, sumY := 0.0, 0.0
	for i := range x {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / n
	meanY := sumY / n

	numerator := 0.0
	sumXX := 0.0
	sumYY := 0.0
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		sumXX += dx * dx
		sumYY += dy * dy
	}

	if sumXX == 0 || sumYY == 0 {
		return 0, false
	}

	r = numerator / math.Sqrt(sumXX*sumYY)
	if r > 1.0 {
		r = 1.0
	} else if r < -1.0 {
		r = -1.0
	}
	return r, true
}
