package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/postgres"
)

// Store persists learning curves in the learning_curves table, one row per
// run and strategy. Recording the same run and strategy again replaces the
// stored points.
type Store struct {
	db      *postgres.Client
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStore creates a curve store. m may be nil.
func NewStore(db *postgres.Client, m *metrics.Metrics) *Store {
	return &Store{
		db:      db,
		metrics: m,
		logger:  logger.WithComponent("curve-store"),
	}
}

// Record stores curve under the run id carried by ctx.
func (s *Store) Record(ctx context.Context, curve learner.Curve) error {
	return s.Save(ctx, logger.RunID(ctx), curve)
}

func (s *Store) Save(ctx context.Context, runID string, curve learner.Curve) error {
	if runID == "" {
		return fmt.Errorf("saving %q curve: empty run id", curve.Strategy)
	}
	if err := upsertCurve(ctx, s.db.DB, runID, curve); err != nil {
		s.count("error")
		return err
	}
	s.count("ok")
	s.logger.Info("learning curve stored",
		"run_id", runID,
		"strategy", string(curve.Strategy),
		"points", len(curve.Points),
	)
	return nil
}

// RecordAll stores every curve of the run carried by ctx in one transaction.
// Either all curves are stored or none is.
func (s *Store) RecordAll(ctx context.Context, curves []learner.Curve) error {
	runID := logger.RunID(ctx)
	if runID == "" {
		return fmt.Errorf("saving %d curves: empty run id", len(curves))
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		for _, c := range curves {
			if err := upsertCurve(ctx, tx, runID, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.count("error")
		return err
	}
	for range curves {
		s.count("ok")
	}
	s.logger.Info("learning curves stored", "run_id", runID, "curves", len(curves))
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertCurve(ctx context.Context, db execer, runID string, curve learner.Curve) error {
	data, err := json.Marshal(curve.Points)
	if err != nil {
		return fmt.Errorf("marshaling curve points: %w", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO learning_curves (run_id, strategy, points)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (run_id, strategy)
		 DO UPDATE SET points = EXCLUDED.points, recorded_at = NOW()`,
		runID, string(curve.Strategy), data,
	)
	if err != nil {
		return fmt.Errorf("saving %q curve: %w", curve.Strategy, err)
	}
	return nil
}

// ListCurves returns the curves of a run in the order they were first
// recorded.
func (s *Store) ListCurves(ctx context.Context, runID string) ([]learner.Curve, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT strategy, points FROM learning_curves WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing curves for run %s: %w", runID, err)
	}
	defer rows.Close()

	var curves []learner.Curve
	for rows.Next() {
		var strategy string
		var data []byte
		if err := rows.Scan(&strategy, &data); err != nil {
			return nil, fmt.Errorf("scanning curve row: %w", err)
		}
		var points []learner.Point
		if err := json.Unmarshal(data, &points); err != nil {
			s.logger.Warn("skipping corrupt curve", "run_id", runID, "strategy", strategy, "error", err)
			continue
		}
		curves = append(curves, learner.Curve{Strategy: scoring.Strategy(strategy), Points: points})
	}
	return curves, rows.Err()
}

func (s *Store) count(status string) {
	if s.metrics != nil {
		s.metrics.CurvesStoredTotal.WithLabelValues(status).Inc()
	}
}
