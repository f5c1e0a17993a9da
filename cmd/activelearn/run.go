package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/density"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/events"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/learner"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/results"
	"github.com/Adithya-Monish-Kumar-K/activelearn/internal/scoring"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/redis"
)

func runExperiment(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	out := cmd.OutOrStdout()

	names := selectedStrategies(opts)
	if names == nil {
		names = cfg.Experiment.Strategies
	}
	strategies, err := scoring.ParseStrategies(names)
	if err != nil {
		return apperrors.Newf(apperrors.ErrUnknownStrategy, apperrors.ExitUsage, "selecting strategies %v: %v", names, err)
	}
	if len(strategies) == 0 {
		return apperrors.New(apperrors.ErrInvalidInput, apperrors.ExitUsage,
			"no strategy selected; use -r, -l, -m, -e or -a")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var seed int64
	if cfg.Experiment.Seed != nil {
		seed = *cfg.Experiment.Seed
	} else {
		seed = time.Now().UnixNano()
	}
	runID := cfg.Experiment.RunID
	if runID == "" {
		runID = fmt.Sprintf("run-%s-%d", time.Now().UTC().Format("20060102T150405"), seed)
	}
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx).With("component", "activelearn")
	log.Info("starting experiment", "seed", seed, "strategies", len(strategies))

	m := metrics.New(prometheus.NewRegistry())
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	provider := corpus.NewProvider(cfg.Corpus)
	data, err := provider.Split(ctx, corpus.SplitTrain)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "(train size, voca size) : (%d, %d)\n", data.Len(), data.X.Dim)

	rnd := rand.New(rand.NewSource(seed))
	train := cfg.Experiment.InitialTrain
	if opts.training != "" {
		if train, err = corpus.ParseIndices(opts.training); err != nil {
			return err
		}
	}
	if len(train) == 0 {
		if train, err = corpus.SeedPerClass(data, rnd); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "indexes of training set :  %s\n", corpus.FormatIndices(train))
	pool, err := corpus.Split(data.Len(), train)
	if err != nil {
		return err
	}

	test, err := provider.Split(ctx, corpus.SplitTest)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "(test size, voca size) : (%d, %d)\n", test.Len(), test.X.Dim)

	densities, err := densityWeights(ctx, cfg, data, m)
	if err != nil {
		return err
	}

	factory, err := classifier.NewFactory(cfg.Classifier)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, classifier.Describe(cfg.Classifier))

	collector := results.NewCollector()
	sinks := results.Multi{collector}
	observers := learner.Observers{
		learner.NewMetricsObserver(m),
		&progressPrinter{w: out},
	}

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		sinks = append(sinks, results.NewStore(db, m))
	}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RoundEvents)
		defer producer.Close()
		observers = append(observers, events.NewPublisher(producer, m))
	}

	exp := &learner.Experiment{
		Strategies:  strategies,
		Data:        data,
		Test:        test,
		Train:       train,
		Pool:        pool,
		Factory:     factory,
		MaxTrain:    cfg.Experiment.MaxTrain,
		Densities:   densities,
		Seed:        seed,
		Parallelism: cfg.Experiment.Parallelism,
		Observer:    observers,
		Sink:        sinks,
		Metrics:     m,
	}
	if _, err := exp.Run(ctx); err != nil {
		return err
	}
	return collector.Table(out)
}

// densityWeights computes the density vector of data, through the Redis
// cache when it is enabled. It returns nil when beta <= 0.
func densityWeights(ctx context.Context, cfg *config.Config, data *corpus.Corpus, m *metrics.Metrics) ([]float64, error) {
	beta := cfg.Experiment.Beta
	if beta <= 0 {
		return nil, nil
	}
	log := logger.FromContext(ctx).With("component", "density")

	var w []float64
	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		cache := density.NewCache(rc, cfg.Redis.DensityTTL)
		if w, err = cache.Weights(ctx, data, beta); err != nil {
			return nil, err
		}
		hits, misses := cache.Stats()
		m.DensityCacheHits.Add(float64(hits))
		m.DensityCacheMisses.Add(float64(misses))
	} else {
		w = density.Compute(data.X, beta)
	}

	lo, hi, mean := density.Summary(w)
	log.Info("density weights ready",
		slog.Float64("beta", beta),
		slog.Float64("min", lo),
		slog.Float64("max", hi),
		slog.Float64("mean", mean),
	)
	return w, nil
}

// progressPrinter writes one "strategy size : accuracy" line per round.
type progressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *progressPrinter) OnRound(_ context.Context, r learner.Round) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.Round == 0 {
		fmt.Fprintln(p.w, r.Strategy)
	}
	fmt.Fprintf(p.w, "%s %d : %f\n", r.Strategy, r.TrainSize, r.Accuracy)
}
