// Package density computes information-density weights: how typical each
// corpus row is relative to the rest of the corpus, used to bias uncertainty
// scores away from outliers.
package density

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
)

// Compute returns, for every row, the average dot-product similarity to all
// other rows raised to beta. It returns nil when beta <= 0, which disables
// density weighting. Negative averages are clamped to zero before the power
// is taken.
//
// The sum of similarities is x_i . S - x_i . x_i, where S is the column sum
// of the whole matrix, so the cost is linear in the number of non-zeros.
func Compute(x feature.Matrix, beta float64) []float64 {
	if beta <= 0 {
		return nil
	}
	n := x.Len()
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	colSum := make([]float64, x.Dim)
	for _, row := range x.Rows {
		row.AddTo(colSum, 1)
	}
	others := float64(n - 1)
	for i, row := range x.Rows {
		avg := (row.DotDense(colSum) - row.Dot(row)) / others
		if avg < 0 {
			avg = 0
		}
		out[i] = math.Pow(avg, beta)
	}
	return out
}

// Restrict returns the weights of the given rows in order, or nil when
// weights is nil.
func Restrict(weights []float64, rows []int) []float64 {
	if weights == nil {
		return nil
	}
	out := make([]float64, len(rows))
	for k, i := range rows {
		out[k] = weights[i]
	}
	return out
}

// Summary reports the range and mean of a weight vector for logging.
func Summary(weights []float64) (lo, hi, mean float64) {
	if len(weights) == 0 {
		return 0, 0, 0
	}
	return floats.Min(weights), floats.Max(weights), floats.Sum(weights) / float64(len(weights))
}
