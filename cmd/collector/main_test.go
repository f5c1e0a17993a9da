package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/results"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/postgres"
)

type recordedCurve struct {
	runID string
	curve learner.Curve
}

type memorySink struct {
	mu     sync.Mutex
	curves []recordedCurve
}

func (s *memorySink) Record(ctx context.Context, c learner.Curve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.curves = append(s.curves, recordedCurve{runID: logger.RunID(ctx), curve: c})
	return nil
}

func okPing(context.Context) error { return nil }

// roundEvents encodes a complete run as the events activelearn publishes.
func roundEvents(t *testing.T, runID string, s scoring.Strategy, accuracies ...float64) [][]byte {
	t.Helper()
	out := make([][]byte, len(accuracies))
	for i, acc := range accuracies {
		data, err := json.Marshal(learner.Round{
			RunID:     runID,
			Strategy:  s,
			Round:     i,
			Rounds:    len(accuracies),
			TrainSize: 2 + i,
			Acquired:  -1,
			Accuracy:  acc,
		})
		require.NoError(t, err)
		out[i] = data
	}
	return out
}

func get(t *testing.T, h http.Handler, path string) (int, health.Report) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var report health.Report
	if path == "/health/ready" {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	}
	return rec.Code, report
}

func TestCollectorAssemblesRoundEvents(t *testing.T) {
	sink := &memorySink{}
	m := metrics.New(prometheus.NewRegistry())
	svc := newCollector(sink, okPing, m)
	ctx := context.Background()

	evs := roundEvents(t, "run-1", scoring.Margin, 0.5, 0.6, 0.7)
	for _, ev := range evs[:2] {
		require.NoError(t, svc.assembler.Handle(ctx, nil, ev))
	}
	assert.Equal(t, 1, svc.assembler.Pending())
	assert.Empty(t, sink.curves)

	code, report := get(t, svc.routes(), "/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, health.StatusUp, report.Components["assembler"].Status)
	assert.Equal(t, "1 pending runs", report.Components["assembler"].Message)

	require.NoError(t, svc.assembler.Handle(ctx, nil, evs[2]))
	assert.Zero(t, svc.assembler.Pending())
	require.Len(t, sink.curves, 1)
	assert.Equal(t, "run-1", sink.curves[0].runID)
	assert.Equal(t, scoring.Margin, sink.curves[0].curve.Strategy)
	assert.Equal(t, []float64{0.5, 0.6, 0.7}, sink.curves[0].curve.Accuracies())
	assert.Equal(t, 3.0, testutil.ToFloat64(m.RoundEventsConsumed.WithLabelValues("ok")))
}

func TestCollectorNotReadyWithoutPostgres(t *testing.T) {
	down := func(context.Context) error { return errors.New("connection refused") }
	svc := newCollector(&memorySink{}, down, nil)
	h := svc.routes()

	code, report := get(t, h, "/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, health.StatusDown, report.Status)
	assert.Equal(t, "connection refused", report.Components["postgres"].Message)

	code, _ = get(t, h, "/health/live")
	assert.Equal(t, http.StatusOK, code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health/ready", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	cfg := config.Default().Postgres
	if v := os.Getenv("TEST_POSTGRES_HOST"); v != "" {
		cfg.Host = v
	}
	if v, err := strconv.Atoi(os.Getenv("TEST_POSTGRES_PORT")); err == nil {
		cfg.Port = v
	}
	cfg.Database = "activelearn_test"
	if v := os.Getenv("TEST_POSTGRES_DB"); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv("TEST_POSTGRES_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("TEST_POSTGRES_PASSWORD"); v != "" {
		cfg.Password = v
	}

	db, err := postgres.New(cfg)
	if err != nil {
		t.Skipf("skipping: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestCollectorStoresCurvesInPostgres(t *testing.T) {
	db := skipIfNoPostgres(t)
	store := results.NewStore(db, nil)
	svc := newCollector(store, db.Ping, nil)

	runID := fmt.Sprintf("collector-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		db.DB.Exec(`DELETE FROM learning_curves WHERE run_id = $1`, runID)
	})
	for _, ev := range roundEvents(t, runID, scoring.Entropy, 0.4, 0.8) {
		require.NoError(t, svc.assembler.Handle(context.Background(), nil, ev))
	}

	curves, err := store.ListCurves(context.Background(), runID)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	assert.Equal(t, scoring.Entropy, curves[0].Strategy)
	assert.Equal(t, []float64{0.4, 0.8}, curves[0].Accuracies())

	code, _ := get(t, svc.routes(), "/health/ready")
	assert.Equal(t, http.StatusOK, code)
}
