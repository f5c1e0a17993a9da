package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
)

// MultinomialNB is a multinomial naive Bayes model with additive (Lidstone)
// smoothing. Feature values are treated as fractional term counts.
type MultinomialNB struct {
	Alpha float64

	classes  []int
	dim      int
	logPrior []float64
	// logLik[k][j] is log P(feature j | class k).
	logLik [][]float64
}

func NewMultinomialNB(alpha float64) *MultinomialNB {
	return &MultinomialNB{Alpha: alpha}
}

func (nb *MultinomialNB) Fit(x feature.Matrix, y []int) error {
	if err := checkTrainingSet(x, y); err != nil {
		return err
	}
	if nb.Alpha <= 0 {
		return fmt.Errorf("%w: naive bayes alpha must be positive, got %g", apperrors.ErrInvalidInput, nb.Alpha)
	}
	classes := uniqueClasses(y)
	index := classIndex(classes)
	k := len(classes)

	featureCount := make([][]float64, k)
	for c := range featureCount {
		featureCount[c] = make([]float64, x.Dim)
	}
	classCount := make([]float64, k)
	for i, row := range x.Rows {
		c := index[y[i]]
		classCount[c]++
		row.AddTo(featureCount[c], 1)
	}

	logPrior := make([]float64, k)
	logLik := make([][]float64, k)
	n := float64(len(y))
	for c := 0; c < k; c++ {
		logPrior[c] = math.Log(classCount[c] / n)
		var total float64
		for _, v := range featureCount[c] {
			total += v
		}
		denom := math.Log(total + nb.Alpha*float64(x.Dim))
		ll := featureCount[c]
		for j, v := range ll {
			ll[j] = math.Log(v+nb.Alpha) - denom
		}
		logLik[c] = ll
	}

	nb.classes = classes
	nb.dim = x.Dim
	nb.logPrior = logPrior
	nb.logLik = logLik
	return nil
}

func (nb *MultinomialNB) PredictProba(x feature.Matrix) (*mat.Dense, error) {
	if nb.classes == nil {
		return nil, apperrors.ErrNotFitted
	}
	if x.Dim != nb.dim {
		return nil, fmt.Errorf("%w: model has %d features, input has %d", apperrors.ErrDimensionMismatch, nb.dim, x.Dim)
	}
	if x.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows to predict", apperrors.ErrInvalidInput)
	}
	k := len(nb.classes)
	out := mat.NewDense(x.Len(), k, nil)
	for i, row := range x.Rows {
		jll := out.RawRowView(i)
		for c := 0; c < k; c++ {
			jll[c] = nb.logPrior[c] + row.DotDense(nb.logLik[c])
		}
		normalizeLog(jll)
	}
	return out, nil
}

func (nb *MultinomialNB) Score(x feature.Matrix, y []int) (float64, error) {
	return score(nb, x, y)
}

func (nb *MultinomialNB) Classes() []int {
	return append([]int(nil), nb.classes...)
}
