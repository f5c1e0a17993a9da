// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Experiment, Classifier, Corpus, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the top-level application configuration.
type Config struct {
	Experiment ExperimentConfig `yaml:"experiment"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Collector  CollectorConfig  `yaml:"collector"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ExperimentConfig controls which strategies run and how far each learning
// curve extends.
type ExperimentConfig struct {
	Strategies   []string `yaml:"strategies" validate:"dive,required"`
	MaxTrain     int      `yaml:"maxTrain" validate:"gt=0"`
	InitialTrain []int    `yaml:"initialTrain" validate:"dive,gte=0"`
	// Beta is the density importance exponent. Values <= 0 disable density
	// weighting.
	Beta        float64 `yaml:"beta"`
	Seed        *int64  `yaml:"seed"`
	Parallelism int     `yaml:"parallelism" validate:"gte=1"`
	RunID       string  `yaml:"runId"`
}

// ClassifierConfig selects the model family and its single regularisation or
// smoothing parameter.
type ClassifierConfig struct {
	Family       string  `yaml:"family" validate:"oneof=nb lr1 lr2"`
	Alpha        float64 `yaml:"alpha" validate:"gt=0"`
	C            float64 `yaml:"c" validate:"gt=0"`
	MaxIter      int     `yaml:"maxIter" validate:"gt=0"`
	LearningRate float64 `yaml:"learningRate" validate:"gt=0"`
	Tol          float64 `yaml:"tol" validate:"gte=0"`
}

// CorpusConfig locates the training/pool split and the held-out test split.
type CorpusConfig struct {
	Format    string `yaml:"format" validate:"oneof=dir svmlight"`
	TrainPath string `yaml:"trainPath"`
	TestPath  string `yaml:"testPath"`
	// Dim fixes the feature dimension for svmlight input. Zero infers it.
	Dim int `yaml:"dim" validate:"gte=0"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	RoundEvents string `yaml:"roundEvents"`
}

// RedisConfig holds Redis connection and density-cache parameters.
type RedisConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	PoolSize   int           `yaml:"poolSize"`
	DensityTTL time.Duration `yaml:"densityTTL"`
}

// CollectorConfig holds the learning-curve collector's HTTP port.
type CollectorConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks struct-tag constraints on the whole configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// Default returns a Config with the defaults of the command-line tool.
func Default() *Config {
	return &Config{
		Experiment: ExperimentConfig{
			MaxTrain:    300,
			Beta:        0,
			Parallelism: 1,
		},
		Classifier: ClassifierConfig{
			Family:       "nb",
			Alpha:        0.01,
			C:            1.0,
			MaxIter:      100,
			LearningRate: 0.5,
			Tol:          1e-4,
		},
		Corpus: CorpusConfig{
			Format:    "dir",
			TrainPath: "data/train",
			TestPath:  "data/test",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "activelearn",
			User:            "activelearn",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "activelearn-collector",
			Topics: KafkaTopics{
				RoundEvents: "activelearn.rounds",
			},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   4,
			DensityTTL: 24 * time.Hour,
		},
		Collector: CollectorConfig{
			Port: 8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads AL_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AL_STRATEGIES"); v != "" {
		cfg.Experiment.Strategies = strings.Split(v, ",")
	}
	if v := os.Getenv("AL_MAX_TRAIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Experiment.MaxTrain = n
		}
	}
	if v := os.Getenv("AL_BETA"); v != "" {
		if beta, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Experiment.Beta = beta
		}
	}
	if v := os.Getenv("AL_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Experiment.Seed = &seed
		}
	}
	if v := os.Getenv("AL_CLASSIFIER_FAMILY"); v != "" {
		cfg.Classifier.Family = v
	}
	if v := os.Getenv("AL_CORPUS_TRAIN_PATH"); v != "" {
		cfg.Corpus.TrainPath = v
	}
	if v := os.Getenv("AL_CORPUS_TEST_PATH"); v != "" {
		cfg.Corpus.TestPath = v
	}
	if v := os.Getenv("AL_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("AL_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("AL_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("AL_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("AL_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("AL_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("AL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AL_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AL_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
