// Package classifier implements the probabilistic text classifiers the active
// learning loop retrains every round: multinomial naive Bayes and multinomial
// logistic regression with an L1 or L2 penalty.
package classifier

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
)

// Classifier is fit once on labeled rows and then queried for per-class
// probabilities and accuracy.
type Classifier interface {
	// Fit trains the model from scratch on x and y.
	Fit(x feature.Matrix, y []int) error
	// PredictProba returns one row per input row and one column per entry of
	// Classes; each row sums to 1.
	PredictProba(x feature.Matrix) (*mat.Dense, error)
	// Score returns the fraction of rows whose most probable class equals y.
	Score(x feature.Matrix, y []int) (float64, error)
	// Classes returns the sorted labels seen by Fit.
	Classes() []int
}

// Factory produces a fresh, untrained Classifier.
type Factory func() Classifier

// NewFactory returns the factory for the configured family.
func NewFactory(cfg config.ClassifierConfig) (Factory, error) {
	switch cfg.Family {
	case "nb", "":
		alpha := cfg.Alpha
		return func() Classifier { return NewMultinomialNB(alpha) }, nil
	case "lr1", "lr2":
		penalty := PenaltyL2
		if cfg.Family == "lr1" {
			penalty = PenaltyL1
		}
		opts := LogisticOptions{
			Penalty:      penalty,
			C:            cfg.C,
			MaxIter:      cfg.MaxIter,
			LearningRate: cfg.LearningRate,
			Tol:          cfg.Tol,
		}
		return func() Classifier { return NewLogisticRegression(opts) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownClassifier, cfg.Family)
	}
}

// Describe renders the configured classifier for log output.
func Describe(cfg config.ClassifierConfig) string {
	switch cfg.Family {
	case "lr1":
		return fmt.Sprintf("Logistic Regression with L1-regularity : C = %f", cfg.C)
	case "lr2":
		return fmt.Sprintf("Logistic Regression with L2-regularity : C = %f", cfg.C)
	default:
		return fmt.Sprintf("Naive Bayes Classifier : alpha = %f", cfg.Alpha)
	}
}

func checkTrainingSet(x feature.Matrix, y []int) error {
	if x.Len() != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", apperrors.ErrDimensionMismatch, x.Len(), len(y))
	}
	if len(y) == 0 {
		return fmt.Errorf("%w: empty training set", apperrors.ErrInvalidInput)
	}
	return nil
}

func uniqueClasses(y []int) []int {
	seen := make(map[int]struct{})
	classes := make([]int, 0)
	for _, label := range y {
		if _, ok := seen[label]; !ok {
			seen[label] = struct{}{}
			classes = append(classes, label)
		}
	}
	sort.Ints(classes)
	return classes
}

func classIndex(classes []int) map[int]int {
	idx := make(map[int]int, len(classes))
	for k, c := range classes {
		idx[c] = k
	}
	return idx
}

// normalizeLog turns per-class joint log-likelihoods into probabilities in
// place.
func normalizeLog(row []float64) {
	lse := floats.LogSumExp(row)
	for k, v := range row {
		row[k] = math.Exp(v - lse)
	}
}

// score is the shared accuracy computation on top of PredictProba.
func score(c Classifier, x feature.Matrix, y []int) (float64, error) {
	if x.Len() != len(y) {
		return 0, fmt.Errorf("%w: %d rows but %d labels", apperrors.ErrDimensionMismatch, x.Len(), len(y))
	}
	if len(y) == 0 {
		return 0, fmt.Errorf("%w: empty evaluation set", apperrors.ErrInvalidInput)
	}
	proba, err := c.PredictProba(x)
	if err != nil {
		return 0, err
	}
	classes := c.Classes()
	correct := 0
	for i, want := range y {
		if classes[floats.MaxIdx(proba.RawRowView(i))] == want {
			correct++
		}
	}
	return float64(correct) / float64(len(y)), nil
}
