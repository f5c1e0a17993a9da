package events

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/feature"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
)

type fakeProducer struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (f *fakeProducer) Publish(_ context.Context, e kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, e)
	return nil
}

type recordingSink struct {
	runIDs []string
	curves []learner.Curve
	err    error
}

func (s *recordingSink) Record(ctx context.Context, c learner.Curve) error {
	if s.err != nil {
		return s.err
	}
	s.runIDs = append(s.runIDs, logger.RunID(ctx))
	s.curves = append(s.curves, c)
	return nil
}

func round(i, total int, acc float64) learner.Round {
	return learner.Round{
		RunID:     "run-1",
		Strategy:  scoring.Margin,
		Round:     i,
		Rounds:    total,
		TrainSize: 2 + i,
		Accuracy:  acc,
		Acquired:  -1,
	}
}

func encode(t *testing.T, r learner.Round) []byte {
	t.Helper()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	return b
}

func TestPublisherKeysByRunAndStrategy(t *testing.T) {
	p := &fakeProducer{}
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(p, m)

	pub.OnRound(context.Background(), round(0, 3, 0.5))
	require.Len(t, p.events, 1)
	assert.Equal(t, "run-1/margin sampling", p.events[0].Key)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundEventsPublished.WithLabelValues("ok")))

	p.err = errors.New("broker down")
	pub.OnRound(context.Background(), round(1, 3, 0.6))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundEventsPublished.WithLabelValues("error")))
}

func TestAssemblerBuildsCurve(t *testing.T) {
	sink := &recordingSink{}
	a := NewAssembler(sink, nil)
	ctx := context.Background()

	require.NoError(t, a.Handle(ctx, nil, encode(t, round(0, 3, 0.5))))
	require.NoError(t, a.Handle(ctx, nil, encode(t, round(1, 3, 0.6))))
	require.NoError(t, a.Handle(ctx, nil, encode(t, round(1, 3, 0.6))))
	assert.Equal(t, 1, a.Pending())
	assert.Empty(t, sink.curves)

	require.NoError(t, a.Handle(ctx, nil, encode(t, round(2, 3, 0.7))))
	require.Len(t, sink.curves, 1)
	assert.Equal(t, []string{"run-1"}, sink.runIDs)
	assert.Equal(t, scoring.Margin, sink.curves[0].Strategy)
	assert.Equal(t, []learner.Point{
		{TrainSize: 2, Accuracy: 0.5},
		{TrainSize: 3, Accuracy: 0.6},
		{TrainSize: 4, Accuracy: 0.7},
	}, sink.curves[0].Points)
	assert.Zero(t, a.Pending())
}

func TestAssemblerDropsCurveWithGap(t *testing.T) {
	sink := &recordingSink{}
	m := metrics.New(prometheus.NewRegistry())
	a := NewAssembler(sink, m)
	ctx := context.Background()

	require.NoError(t, a.Handle(ctx, nil, encode(t, round(0, 3, 0.5))))
	require.NoError(t, a.Handle(ctx, nil, encode(t, round(2, 3, 0.7))))
	assert.Zero(t, a.Pending())
	assert.Empty(t, sink.curves)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoundEventsConsumed.WithLabelValues("gap")))
}

func TestAssemblerRetriesFailedRecord(t *testing.T) {
	sink := &recordingSink{err: errors.New("db down")}
	a := NewAssembler(sink, nil)
	ctx := context.Background()

	require.NoError(t, a.Handle(ctx, nil, encode(t, round(0, 2, 0.5))))
	last := encode(t, round(1, 2, 0.6))
	assert.ErrorIs(t, a.Handle(ctx, nil, last), sink.err)
	assert.Equal(t, 1, a.Pending())

	sink.err = nil
	require.NoError(t, a.Handle(ctx, nil, last))
	require.Len(t, sink.curves, 1)
	assert.Len(t, sink.curves[0].Points, 2)
}

func TestAssemblerRejectsInvalidEvents(t *testing.T) {
	a := NewAssembler(&recordingSink{}, nil)
	assert.Error(t, a.Handle(context.Background(), nil, []byte("not json")))
	assert.Error(t, a.Handle(context.Background(), nil, []byte(`{"round":0}`)))
}

// TestPublishedRunReassembles streams a real learner run through the
// publisher and back through the assembler.
func TestPublishedRunReassembles(t *testing.T) {
	x := feature.Matrix{Dim: 2}
	var labels []int
	for i := 0; i < 16; i++ {
		y := i % 2
		x.Rows = append(x.Rows, feature.FromMap(map[int]float64{y: 1 + float64(i%3), 1 - y: 0.2}))
		labels = append(labels, y)
	}
	data, err := corpus.New("train", x, labels, nil)
	require.NoError(t, err)
	train := []int{0, 1}
	pool, err := corpus.Split(data.Len(), train)
	require.NoError(t, err)

	prod := &fakeProducer{}
	ctx := logger.WithRunID(context.Background(), "run-7")
	curve, err := learner.Run(ctx, learner.Params{
		Strategy: scoring.Random,
		Data:     data,
		Test:     data,
		Train:    train,
		Pool:     pool,
		Factory:  func() classifier.Classifier { return classifier.NewMultinomialNB(0.01) },
		MaxTrain: 8,
		Rand:     rand.New(rand.NewSource(1)),
		Observer: NewPublisher(prod, nil),
	})
	require.NoError(t, err)
	require.Len(t, prod.events, len(curve.Points))

	sink := &recordingSink{}
	a := NewAssembler(sink, nil)
	for _, ev := range prod.events {
		value, err := json.Marshal(ev.Value)
		require.NoError(t, err)
		require.NoError(t, a.Handle(ctx, []byte(ev.Key), value))
	}
	require.Len(t, sink.curves, 1)
	assert.Equal(t, curve, sink.curves[0])
	assert.Equal(t, []string{"run-7"}, sink.runIDs)
}
