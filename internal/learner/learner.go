// Package learner drives pool-based active learning: starting from a seed
// training set, it repeatedly acquires the most informative pool item,
// retrains a fresh classifier and measures test accuracy, producing one
// learning curve per selection strategy.
package learner

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/density"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
)

// Point is one measurement on a learning curve.
type Point struct {
	TrainSize int     `json:"train_size"`
	Accuracy  float64 `json:"accuracy"`
}

// Curve is the accuracy sequence of one strategy run. Points[0] is measured
// on the initial training set before any acquisition.
type Curve struct {
	Strategy scoring.Strategy `json:"strategy"`
	Points   []Point          `json:"points"`
}

// Accuracies returns the accuracy column of the curve.
func (c Curve) Accuracies() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Accuracy
	}
	return out
}

// Sink receives completed learning curves.
type Sink interface {
	Record(ctx context.Context, curve Curve) error
}

// BatchSink is a Sink that records the curves of one experiment together.
type BatchSink interface {
	Sink
	RecordAll(ctx context.Context, curves []Curve) error
}

// Params configures a single strategy run.
type Params struct {
	Strategy scoring.Strategy
	// Data holds the rows that Train and Pool index into; Test is the
	// held-out evaluation corpus.
	Data *corpus.Corpus
	Test *corpus.Corpus
	// Train and Pool are copied before use and never modified.
	Train []int
	Pool  []int

	Factory  classifier.Factory
	MaxTrain int
	// Densities has one weight per Data row. Nil disables density weighting.
	Densities []float64
	Rand      scoring.Source
	Observer  Observer
}

// Validate checks every precondition of Run.
func Validate(p Params) error {
	if p.Data == nil || p.Test == nil {
		return fmt.Errorf("%w: training and test corpora are required", apperrors.ErrInvalidInput)
	}
	if p.Factory == nil {
		return fmt.Errorf("%w: classifier factory is required", apperrors.ErrInvalidInput)
	}
	if !slices.Contains(scoring.All(), p.Strategy) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownStrategy, p.Strategy)
	}
	if p.Strategy == scoring.Random && p.Rand == nil {
		return fmt.Errorf("%w: random strategy needs a random source", apperrors.ErrInvalidInput)
	}
	if p.Data.X.Dim != p.Test.X.Dim {
		return fmt.Errorf("%w: training corpus has %d features, test corpus %d",
			apperrors.ErrDimensionMismatch, p.Data.X.Dim, p.Test.X.Dim)
	}
	if len(p.Train) == 0 {
		return fmt.Errorf("%w: initial training set is empty", apperrors.ErrInvalidInput)
	}
	if p.MaxTrain <= len(p.Train) {
		return fmt.Errorf("%w: max train %d must exceed the initial training size %d",
			apperrors.ErrInvalidInput, p.MaxTrain, len(p.Train))
	}
	if need := p.MaxTrain - len(p.Train); need > len(p.Pool) {
		return fmt.Errorf("%w: %d acquisitions needed but the pool holds %d items",
			apperrors.ErrPoolExhausted, need, len(p.Pool))
	}
	if p.Densities != nil && len(p.Densities) != p.Data.Len() {
		return fmt.Errorf("%w: %d density weights for %d rows",
			apperrors.ErrDimensionMismatch, len(p.Densities), p.Data.Len())
	}

	n := p.Data.Len()
	seen := make(map[int]string, len(p.Train)+len(p.Pool))
	check := func(set string, idx []int) error {
		for _, i := range idx {
			if i < 0 || i >= n {
				return fmt.Errorf("%w: %s index %d out of range [0, %d)", apperrors.ErrInvalidInput, set, i, n)
			}
			if prev, ok := seen[i]; ok {
				return fmt.Errorf("%w: row %d appears in %s and %s", apperrors.ErrInvalidInput, i, prev, set)
			}
			seen[i] = set
		}
		return nil
	}
	if err := check("train", p.Train); err != nil {
		return err
	}
	return check("pool", p.Pool)
}

// Run executes one strategy to completion and returns its learning curve,
// which holds exactly MaxTrain-len(Train)+1 points. Any classifier or scoring
// error aborts the run and no partial curve is returned.
func Run(ctx context.Context, p Params) (Curve, error) {
	if err := Validate(p); err != nil {
		return Curve{}, err
	}
	train := slices.Clone(p.Train)
	pool := slices.Clone(p.Pool)
	rounds := p.MaxTrain - len(train)
	points := make([]Point, 0, rounds+1)
	observer := p.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	log := logger.FromContext(ctx).With("component", "learner", "strategy", string(p.Strategy))
	runID := logger.RunID(ctx)

	var model classifier.Classifier
	for round := 0; round <= rounds; round++ {
		if err := ctx.Err(); err != nil {
			return Curve{}, err
		}

		acquired := -1
		if round > 0 {
			pos, err := scoring.Select(ctx, scoring.Request{
				Strategy:  p.Strategy,
				Model:     model,
				Pool:      p.Data.Rows(pool),
				Densities: density.Restrict(p.Densities, pool),
				Rand:      p.Rand,
			})
			if err != nil {
				return Curve{}, fmt.Errorf("round %d: selecting: %w", round, err)
			}
			acquired = pool[pos]
			train = append(train, acquired)
			pool = slices.Delete(pool, pos, pos+1)
		}

		model = p.Factory()
		start := time.Now()
		if err := model.Fit(p.Data.Rows(train), p.Data.LabelsAt(train)); err != nil {
			return Curve{}, fmt.Errorf("round %d: fitting on %d rows: %w", round, len(train), err)
		}
		fitDuration := time.Since(start)

		acc, err := model.Score(p.Test.X, p.Test.Labels)
		if err != nil {
			return Curve{}, fmt.Errorf("round %d: evaluating: %w", round, err)
		}
		points = append(points, Point{TrainSize: len(train), Accuracy: acc})

		log.Info("round complete",
			"round", round,
			"train_size", len(train),
			"accuracy", acc,
		)
		observer.OnRound(ctx, Round{
			RunID:       runID,
			Strategy:    p.Strategy,
			Round:       round,
			Rounds:      rounds + 1,
			TrainSize:   len(train),
			PoolSize:    len(pool),
			Acquired:    acquired,
			Accuracy:    acc,
			FitDuration: fitDuration,
			Train:       train,
			Pool:        pool,
		})
	}
	return Curve{Strategy: p.Strategy, Points: points}, nil
}
