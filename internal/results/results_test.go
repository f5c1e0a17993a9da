package results

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
)

func curve(s scoring.Strategy, start int, acc ...float64) learner.Curve {
	c := learner.Curve{Strategy: s}
	for i, a := range acc {
		c.Points = append(c.Points, learner.Point{TrainSize: start + i, Accuracy: a})
	}
	return c
}

func TestCollectorTable(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()
	require.NoError(t, c.Record(ctx, curve(scoring.Random, 2, 0.5, 0.625, 0.75)))
	require.NoError(t, c.Record(ctx, curve(scoring.Margin, 2, 0.5, 0.7, 0.9)))

	var buf bytes.Buffer
	require.NoError(t, c.Table(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "\trandom\tmargin sampling", lines[0])
	assert.Equal(t, "2\t0.500000\t0.500000", lines[1])
	assert.Equal(t, "3\t0.625000\t0.700000", lines[2])
	assert.Equal(t, "4\t0.750000\t0.900000", lines[3])
}

func TestCollectorTableRaggedAndEmpty(t *testing.T) {
	c := NewCollector()
	var buf bytes.Buffer
	require.NoError(t, c.Table(&buf))
	assert.Empty(t, buf.String())

	ctx := context.Background()
	require.NoError(t, c.Record(ctx, curve(scoring.Entropy, 1, 0.1)))
	require.NoError(t, c.Record(ctx, curve(scoring.LeastConfident, 1, 0.2, 0.3)))
	require.NoError(t, c.Table(&buf))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2\t\t0.300000", lines[2])
}

func TestCollectorCurvesIsSnapshot(t *testing.T) {
	c := NewCollector()
	require.NoError(t, c.Record(context.Background(), curve(scoring.Random, 1, 0.5)))
	got := c.Curves()
	got[0].Strategy = "changed"
	assert.Equal(t, scoring.Random, c.Curves()[0].Strategy)
}

type failingSink struct{ err error }

func (f failingSink) Record(context.Context, learner.Curve) error { return f.err }

func TestMultiRecordsToEverySink(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	boom := errors.New("store down")
	m := Multi{a, failingSink{err: boom}, b}

	err := m.Record(context.Background(), curve(scoring.Margin, 1, 0.4))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.Curves(), 1)
	assert.Len(t, b.Curves(), 1)

	assert.NoError(t, Multi{a}.Record(context.Background(), curve(scoring.Margin, 1, 0.4)))
}

type batchRecorder struct {
	batches [][]learner.Curve
}

func (b *batchRecorder) Record(ctx context.Context, c learner.Curve) error {
	return b.RecordAll(ctx, []learner.Curve{c})
}

func (b *batchRecorder) RecordAll(_ context.Context, curves []learner.Curve) error {
	b.batches = append(b.batches, curves)
	return nil
}

func TestMultiRecordAllBatchesWherePossible(t *testing.T) {
	col := NewCollector()
	batch := &batchRecorder{}
	boom := errors.New("store down")
	curves := []learner.Curve{curve(scoring.Random, 1, 0.4), curve(scoring.Entropy, 1, 0.5)}

	err := Multi{col, failingSink{err: boom}, batch}.RecordAll(context.Background(), curves)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, curves, col.Curves())
	require.Len(t, batch.batches, 1)
	assert.Equal(t, curves, batch.batches[0])
}
