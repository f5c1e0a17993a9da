package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
)

// Assembler rebuilds learning curves from round events. Once the final round
// of a run arrives the curve is recorded to the sink under the run's id.
type Assembler struct {
	sink    learner.Sink
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string][]learner.Point
}

// NewAssembler creates an Assembler. m may be nil.
func NewAssembler(sink learner.Sink, m *metrics.Metrics) *Assembler {
	return &Assembler{
		sink:    sink,
		metrics: m,
		logger:  logger.WithComponent("curve-assembler"),
		pending: make(map[string][]learner.Point),
	}
}

// Handle is a kafka.MessageHandler. Duplicate rounds are ignored; a gap in
// the round sequence drops the partial curve, since it can no longer be
// completed. A sink failure is returned so the message is redelivered.
func (a *Assembler) Handle(ctx context.Context, _ []byte, value []byte) error {
	r, err := kafka.DecodeJSON[learner.Round](value)
	if err != nil {
		a.count("invalid")
		return err
	}
	if r.RunID == "" || r.Strategy == "" || r.Rounds <= 0 {
		a.count("invalid")
		return fmt.Errorf("round event without run id, strategy or round count")
	}
	key := Key(r.RunID, string(r.Strategy))

	a.mu.Lock()
	points := a.pending[key]
	switch {
	case r.Round == 0:
		points = nil
	case r.Round < len(points):
		a.mu.Unlock()
		a.count("duplicate")
		return nil
	case r.Round > len(points):
		delete(a.pending, key)
		a.mu.Unlock()
		a.count("gap")
		a.logger.Warn("dropping incomplete curve",
			"run_id", r.RunID,
			"strategy", string(r.Strategy),
			"expected_round", len(points),
			"got_round", r.Round,
		)
		return nil
	}
	points = append(points, learner.Point{TrainSize: r.TrainSize, Accuracy: r.Accuracy})
	if !r.Last() {
		a.pending[key] = points
		a.mu.Unlock()
		a.count("ok")
		return nil
	}
	a.mu.Unlock()

	curve := learner.Curve{Strategy: r.Strategy, Points: points}
	if err := a.sink.Record(logger.WithRunID(ctx, r.RunID), curve); err != nil {
		a.count("error")
		return fmt.Errorf("recording assembled curve %s: %w", key, err)
	}

	a.mu.Lock()
	delete(a.pending, key)
	a.mu.Unlock()
	a.count("ok")
	a.logger.Info("curve assembled",
		"run_id", r.RunID,
		"strategy", string(r.Strategy),
		"points", len(points),
	)
	return nil
}

// Pending returns the number of runs still waiting for rounds.
func (a *Assembler) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Assembler) count(status string) {
	if a.metrics != nil {
		a.metrics.RoundEventsConsumed.WithLabelValues(status).Inc()
	}
}
