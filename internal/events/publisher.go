// Package events streams learner rounds over Kafka and reassembles them into
// learning curves on the consuming side.
package events

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
)

// Producer is the publishing side of pkg/kafka.
type Producer interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Key identifies the stream of one strategy run. All rounds of a run share
// a key so they stay ordered on a single partition.
func Key(runID string, strategy string) string {
	return runID + "/" + strategy
}

// Publisher is a learner.Observer that publishes every round. Publish
// failures are logged and counted but never abort the run.
type Publisher struct {
	producer Producer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewPublisher creates a Publisher. m may be nil.
func NewPublisher(p Producer, m *metrics.Metrics) *Publisher {
	return &Publisher{
		producer: p,
		metrics:  m,
		logger:   logger.WithComponent("round-publisher"),
	}
}

func (p *Publisher) OnRound(ctx context.Context, r learner.Round) {
	err := p.producer.Publish(ctx, kafka.Event{
		Key:   Key(r.RunID, string(r.Strategy)),
		Value: r,
	})
	if err != nil {
		p.logger.Error("round event not published",
			"run_id", r.RunID,
			"strategy", string(r.Strategy),
			"round", r.Round,
			"error", err,
		)
		p.count("error")
		return
	}
	p.count("ok")
}

func (p *Publisher) count(status string) {
	if p.metrics != nil {
		p.metrics.RoundEventsPublished.WithLabelValues(status).Inc()
	}
}
