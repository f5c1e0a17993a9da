package learner

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
)

// Round describes one completed fit/evaluate round.
type Round struct {
	RunID    string           `json:"run_id"`
	Strategy scoring.Strategy `json:"strategy"`
	Round    int              `json:"round"`
	// Rounds is the total number of rounds in the run.
	Rounds    int `json:"rounds"`
	TrainSize int `json:"train_size"`
	PoolSize  int `json:"pool_size"`
	// Acquired is the corpus row added this round, -1 on round 0.
	Acquired    int           `json:"acquired"`
	Accuracy    float64       `json:"accuracy"`
	FitDuration time.Duration `json:"fit_duration_ns"`

	// Train and Pool alias the run's working sets and are only valid during
	// OnRound.
	Train []int `json:"-"`
	Pool  []int `json:"-"`
}

// Last reports whether r is the final round of its run.
func (r Round) Last() bool {
	return r.Round == r.Rounds-1
}

// Observer is notified after every round. Implementations shared by an
// Experiment with Parallelism > 1 must be safe for concurrent use.
type Observer interface {
	OnRound(ctx context.Context, r Round)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r Round)

func (f ObserverFunc) OnRound(ctx context.Context, r Round) {
	f(ctx, r)
}

// Observers fans a round out to each observer in order.
type Observers []Observer

func (o Observers) OnRound(ctx context.Context, r Round) {
	for _, obs := range o {
		if obs != nil {
			obs.OnRound(ctx, r)
		}
	}
}

type nopObserver struct{}

func (nopObserver) OnRound(context.Context, Round) {}

// MetricsObserver records round progress on Prometheus collectors.
type MetricsObserver struct {
	m *metrics.Metrics
}

func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{m: m}
}

func (mo *MetricsObserver) OnRound(_ context.Context, r Round) {
	s := string(r.Strategy)
	mo.m.RoundsTotal.WithLabelValues(s).Inc()
	if r.Acquired >= 0 {
		mo.m.AcquisitionsTotal.WithLabelValues(s).Inc()
	}
	mo.m.FitDuration.WithLabelValues(s).Observe(r.FitDuration.Seconds())
	mo.m.Accuracy.WithLabelValues(s).Set(r.Accuracy)
	mo.m.TrainSize.WithLabelValues(s).Set(float64(r.TrainSize))
}
