package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
)

// Penalty selects the regularisation term of LogisticRegression.
type Penalty int

const (
	PenaltyL2 Penalty = iota
	PenaltyL1
)

func (p Penalty) String() string {
	if p == PenaltyL1 {
		return "l1"
	}
	return "l2"
}

// LogisticOptions configures LogisticRegression. C is the inverse
// regularisation strength: smaller values regularise more.
type LogisticOptions struct {
	Penalty      Penalty
	C            float64
	MaxIter      int
	LearningRate float64
	Tol          float64
}

// LogisticRegression is a multinomial (softmax) logistic regression trained
// with full-batch gradient descent on the mean cross-entropy plus
// penalty/(C*n). The L1 penalty is applied with a proximal soft-threshold
// step so that weights reach exactly zero. Training is deterministic.
type LogisticRegression struct {
	opts LogisticOptions

	classes []int
	dim     int
	weights [][]float64
	bias    []float64
	iters   int
}

func NewLogisticRegression(opts LogisticOptions) *LogisticRegression {
	if opts.MaxIter <= 0 {
		opts.MaxIter = 100
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = 0.5
	}
	return &LogisticRegression{opts: opts}
}

func (lr *LogisticRegression) Fit(x feature.Matrix, y []int) error {
	if err := checkTrainingSet(x, y); err != nil {
		return err
	}
	if lr.opts.C <= 0 {
		return fmt.Errorf("%w: logistic regression C must be positive, got %g", apperrors.ErrInvalidInput, lr.opts.C)
	}
	classes := uniqueClasses(y)
	if len(classes) < 2 {
		return fmt.Errorf("%w: only label %d present", apperrors.ErrSingleClass, classes[0])
	}
	index := classIndex(classes)
	k := len(classes)
	n := float64(len(y))

	weights := make([][]float64, k)
	grad := make([][]float64, k)
	for c := 0; c < k; c++ {
		weights[c] = make([]float64, x.Dim)
		grad[c] = make([]float64, x.Dim)
	}
	bias := make([]float64, k)
	gradBias := make([]float64, k)
	logits := make([]float64, k)

	step := lr.opts.LearningRate
	reg := 1 / (lr.opts.C * n)
	iters := 0
	for iter := 0; iter < lr.opts.MaxIter; iter++ {
		iters++
		for c := 0; c < k; c++ {
			clear(grad[c])
		}
		clear(gradBias)

		for i, row := range x.Rows {
			for c := 0; c < k; c++ {
				logits[c] = bias[c] + row.DotDense(weights[c])
			}
			normalizeLog(logits)
			target := index[y[i]]
			for c := 0; c < k; c++ {
				d := logits[c]
				if c == target {
					d--
				}
				if d != 0 {
					row.AddTo(grad[c], d)
				}
				gradBias[c] += d
			}
		}

		var maxDelta float64
		for c := 0; c < k; c++ {
			w := weights[c]
			g := grad[c]
			for j := range w {
				old := w[j]
				switch lr.opts.Penalty {
				case PenaltyL1:
					w[j] = softThreshold(old-step*g[j]/n, step*reg)
				default:
					w[j] = old - step*(g[j]/n+reg*old)
				}
				if d := math.Abs(w[j] - old); d > maxDelta {
					maxDelta = d
				}
			}
			db := step * gradBias[c] / n
			bias[c] -= db
			if d := math.Abs(db); d > maxDelta {
				maxDelta = d
			}
		}
		if maxDelta < lr.opts.Tol {
			break
		}
	}

	lr.classes = classes
	lr.dim = x.Dim
	lr.weights = weights
	lr.bias = bias
	lr.iters = iters
	return nil
}

func (lr *LogisticRegression) PredictProba(x feature.Matrix) (*mat.Dense, error) {
	if lr.classes == nil {
		return nil, apperrors.ErrNotFitted
	}
	if x.Dim != lr.dim {
		return nil, fmt.Errorf("%w: model has %d features, input has %d", apperrors.ErrDimensionMismatch, lr.dim, x.Dim)
	}
	if x.Len() == 0 {
		return nil, fmt.Errorf("%w: no rows to predict", apperrors.ErrInvalidInput)
	}
	k := len(lr.classes)
	out := mat.NewDense(x.Len(), k, nil)
	for i, row := range x.Rows {
		logits := out.RawRowView(i)
		for c := 0; c < k; c++ {
			logits[c] = lr.bias[c] + row.DotDense(lr.weights[c])
		}
		normalizeLog(logits)
	}
	return out, nil
}

func (lr *LogisticRegression) Score(x feature.Matrix, y []int) (float64, error) {
	return score(lr, x, y)
}

func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes...)
}

// Iterations reports how many gradient steps the last Fit took.
func (lr *LogisticRegression) Iterations() int {
	return lr.iters
}

// NonZero counts the non-zero weights of class k.
func (lr *LogisticRegression) NonZero(k int) int {
	return len(lr.weights[k]) - countZeros(lr.weights[k])
}

func softThreshold(w, t float64) float64 {
	switch {
	case w > t:
		return w - t
	case w < -t:
		return w + t
	default:
		return 0
	}
}

func countZeros(v []float64) int {
	n := 0
	for _, x := range v {
		if x == 0 {
			n++
		}
	}
	return n
}
