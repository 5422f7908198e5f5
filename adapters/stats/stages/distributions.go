package stages

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// correlationPValue computes the two-sided p-value for a Pearson correlation
// using the t-distribution transform t = r * sqrt(df / (1 - r^2)) with
// df = n - 2.
func correlationPValue(r float64, n int) float64 {
	if n < 3 {
		return 1.0
	}
	if math.Abs(r) >= 1.0 {
		// Perfect correlation saturates the transform.
		return 0.0
	}

	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * (1 - tDist.CDF(math.Abs(t)))

	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}
	return p
}
