package learner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
)

// Experiment runs several strategies over the same initial split. Each run
// owns private copies of Train and Pool and a random source seeded with Seed,
// so the curves are comparable and reproducible.
type Experiment struct {
	Strategies []scoring.Strategy
	Data       *corpus.Corpus
	Test       *corpus.Corpus
	Train      []int
	Pool       []int
	Factory    classifier.Factory
	MaxTrain   int
	Densities  []float64
	Seed       int64
	// Parallelism bounds the number of concurrent strategy runs. Values
	// below 2 run strategies one after another.
	Parallelism int
	Observer    Observer
	Sink        Sink
	Metrics     *metrics.Metrics
}

// Run executes every strategy and records the curves to Sink in strategy
// order once all runs succeed, in a single RecordAll call when Sink is a
// BatchSink. The first failure cancels the remaining runs
// and is returned; nothing is recorded in that case.
func (e *Experiment) Run(ctx context.Context) ([]Curve, error) {
	if len(e.Strategies) == 0 {
		return nil, fmt.Errorf("%w: no strategy selected", apperrors.ErrInvalidInput)
	}
	log := logger.FromContext(ctx).With("component", "experiment")
	curves := make([]Curve, len(e.Strategies))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.Parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, s := range e.Strategies {
		g.Go(func() error {
			curve, err := Run(gctx, e.params(s))
			if err != nil {
				if e.Metrics != nil {
					e.Metrics.RunFailuresTotal.WithLabelValues(string(s)).Inc()
				}
				log.Error("strategy run failed", "strategy", string(s), "error", err)
				return fmt.Errorf("strategy %q: %w", s, err)
			}
			curves[i] = curve
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := e.record(ctx, curves); err != nil {
		return curves, err
	}
	log.Info("experiment complete",
		slog.Int("strategies", len(curves)),
		slog.Int("max_train", e.MaxTrain),
	)
	return curves, nil
}

func (e *Experiment) record(ctx context.Context, curves []Curve) error {
	switch sink := e.Sink.(type) {
	case nil:
		return nil
	case BatchSink:
		if err := sink.RecordAll(ctx, curves); err != nil {
			return fmt.Errorf("recording %d curves: %w", len(curves), err)
		}
	default:
		for _, c := range curves {
			if err := sink.Record(ctx, c); err != nil {
				return fmt.Errorf("recording %q curve: %w", c.Strategy, err)
			}
		}
	}
	return nil
}

func (e *Experiment) params(s scoring.Strategy) Params {
	return Params{
		Strategy:  s,
		Data:      e.Data,
		Test:      e.Test,
		Train:     e.Train,
		Pool:      e.Pool,
		Factory:   e.Factory,
		MaxTrain:  e.MaxTrain,
		Densities: e.Densities,
		Rand:      rand.New(rand.NewSource(e.Seed)),
		Observer:  e.Observer,
	}
}
