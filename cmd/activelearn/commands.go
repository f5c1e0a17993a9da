package main

import (
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/activelearn/pkg/logger"
)

// options holds the command-line flags. Flags that were not set leave the
// configuration file values untouched.
type options struct {
	configPath string

	random, least, margin, entropy, all bool

	nb, lr1, lr2 float64

	maxTrain     int
	training     string
	beta         float64
	seed         int64
	parallel     int
	runID        string
	store        bool
	publish      bool
	densityRedis bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "activelearn",
		Short: "Compare active learning strategies on a labeled corpus",
		Long: `activelearn starts from a small seed training set and repeatedly moves the
most informative pool item into it, retraining a fresh classifier and
measuring test accuracy after every acquisition.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runExperiment(cmd, cfg, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	f := root.Flags()
	f.BoolVarP(&opts.random, "random", "r", false, "use random sampling")
	f.BoolVarP(&opts.least, "least", "l", false, "use least confident")
	f.BoolVarP(&opts.margin, "margin", "m", false, "use margin sampling")
	f.BoolVarP(&opts.entropy, "entropy", "e", false, "use entropy-based method")
	f.BoolVarP(&opts.all, "all", "a", false, "use all methods")
	f.Float64Var(&opts.nb, "nb", 0.01, "use naive bayes classifier with this smoothing alpha")
	f.Float64Var(&opts.lr1, "lr1", 1, "use logistic regression with l1-regularity and this C")
	f.Float64Var(&opts.lr2, "lr2", 1, "use logistic regression with l2-regularity and this C")
	f.IntVarP(&opts.maxTrain, "max-train", "n", 300, "max size of training")
	f.StringVarP(&opts.training, "training", "t", "", "comma separated indexes of the initial training set")
	f.Float64VarP(&opts.beta, "beta", "b", 0, "density importance; 0 disables density weighting")
	f.Int64Var(&opts.seed, "seed", 0, "random seed")
	f.IntVar(&opts.parallel, "parallel", 1, "number of strategies to run concurrently")
	f.StringVar(&opts.runID, "run-id", "", "identifier attached to logs, events and stored curves")
	f.BoolVar(&opts.store, "store", false, "store learning curves in PostgreSQL")
	f.BoolVar(&opts.publish, "publish", false, "publish round events to Kafka")
	f.BoolVar(&opts.densityRedis, "density-cache", false, "cache density weights in Redis")
	root.MarkFlagsMutuallyExclusive("nb", "lr1", "lr2")

	root.AddCommand(newCurvesCmd(opts), newCacheCmd(opts))
	return root
}

// loadConfig reads the config file, applies the flags that were set and
// validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "loading config: %v", err)
	}
	applyFlags(cmd, opts, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, apperrors.ExitUsage, "invalid configuration: %v", err)
	}
	logger.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, opts *options, cfg *config.Config) {
	f := cmd.Flags()
	exp := &cfg.Experiment

	if f.Changed("max-train") {
		exp.MaxTrain = opts.maxTrain
	}
	if f.Changed("beta") {
		exp.Beta = opts.beta
	}
	if f.Changed("seed") {
		seed := opts.seed
		exp.Seed = &seed
	}
	if f.Changed("parallel") {
		exp.Parallelism = opts.parallel
	}
	if f.Changed("run-id") {
		exp.RunID = opts.runID
	}

	// A zero classifier parameter falls back to naive Bayes with the
	// default alpha.
	switch {
	case f.Changed("lr1") && opts.lr1 != 0:
		cfg.Classifier.Family, cfg.Classifier.C = "lr1", opts.lr1
	case f.Changed("lr2") && opts.lr2 != 0:
		cfg.Classifier.Family, cfg.Classifier.C = "lr2", opts.lr2
	case f.Changed("nb"), f.Changed("lr1"), f.Changed("lr2"):
		cfg.Classifier.Family, cfg.Classifier.Alpha = "nb", opts.nb
		if opts.nb == 0 {
			cfg.Classifier.Alpha = config.Default().Classifier.Alpha
		}
	}

	if opts.store {
		cfg.Postgres.Enabled = true
	}
	if opts.publish {
		cfg.Kafka.Enabled = true
	}
	if opts.densityRedis {
		cfg.Redis.Enabled = true
	}
}

// selectedStrategies returns the strategy names picked by flags, in the
// fixed order random, least confident, margin, entropy. Nil means no
// strategy flag was given.
func selectedStrategies(opts *options) []string {
	if opts.all {
		return []string{"all"}
	}
	var names []string
	if opts.random {
		names = append(names, "random")
	}
	if opts.least {
		names = append(names, "least confident")
	}
	if opts.margin {
		names = append(names, "margin sampling")
	}
	if opts.entropy {
		names = append(names, "entropy-based")
	}
	return names
}
