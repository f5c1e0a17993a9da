// Command collector consumes round events published by activelearn runs,
// reassembles them into learning curves and stores completed curves in
// PostgreSQL. It serves liveness and readiness probes and, when enabled,
// Prometheus metrics.
//
// Usage:
//
//	go run ./cmd/collector [-config configs/activelearn.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/events"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/results"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/postgres"
)

// maxPendingRuns is the number of partially assembled curves above which the
// collector reports itself degraded.
const maxPendingRuns = 1000

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(apperrors.ExitUsage)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting collector", "port", cfg.Collector.Port, "topic", cfg.Kafka.Topics.RoundEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("postgres unavailable", "error", err)
		os.Exit(apperrors.ExitFailure)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(apperrors.ExitFailure)
	}

	svc := newCollector(results.NewStore(db, m), db.Ping, m)
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RoundEvents, svc.assembler.Handle)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Collector.Port),
		Handler:      svc.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("collector listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(apperrors.ExitFailure)
	}

	slog.Info("collector stopped", "pending_runs", svc.assembler.Pending())
}

// collector assembles round events into stored curves and reports its
// health over HTTP.
type collector struct {
	assembler *events.Assembler
	checker   *health.Checker
}

func newCollector(sink learner.Sink, ping func(ctx context.Context) error, m *metrics.Metrics) *collector {
	assembler := events.NewAssembler(sink, m)
	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(ping))
	checker.Register("assembler", health.ThresholdCheck("pending runs", assembler.Pending, maxPendingRuns))
	return &collector{assembler: assembler, checker: checker}
}

func (c *collector) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", c.checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", c.checker.ReadyHandler())
	return mux
}
