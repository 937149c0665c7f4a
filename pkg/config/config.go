// Package config loads and validates featurepic configuration from YAML
// files with environment-variable overrides. It provides typed structs for
// the mapper, the smoother, the worker and the services the worker talks to.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/featurepic/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Mapper   MapperConfig   `yaml:"mapper"`
	Smoother SmootherConfig `yaml:"smoother"`
	Worker   WorkerConfig   `yaml:"worker"`
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// MapperConfig controls feature refinement and parallelism. Both refinements
// default to off; with both on, duplicates are resolved before outliers are
// removed.
type MapperConfig struct {
	RemoveDuplicatesInScan bool   `yaml:"removeDuplicatesInScan"`
	RemoveOutliers         bool   `yaml:"removeOutliers"`
	Workers                int    `yaml:"workers"`
	OutputDir              string `yaml:"outputDir"`
}

// SmootherConfig controls chromatogram smoothing.
type SmootherConfig struct {
	Type   string `yaml:"type"`
	Points int    `yaml:"points"`
}

// WorkerConfig holds settings of the streaming worker.
type WorkerConfig struct {
	ReferencePath string        `yaml:"referencePath"`
	JobTimeout    time.Duration `yaml:"jobTimeout"`
}

// ServerConfig holds the worker's health server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
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
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	MapJobs    string `yaml:"mapJobs"`
	MapResults string `yaml:"mapResults"`
}

// RedisConfig holds Redis connection and result-cache parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging of run phases.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
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
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, apperrors.Newf(apperrors.ErrNotFound, "config file %s", path)
			}
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, apperrors.Newf(apperrors.ErrConfig, "parsing config file %s: %v", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks the settings every command relies on.
func (c *Config) Validate() error {
	if c.Mapper.Workers < 1 {
		return apperrors.Newf(apperrors.ErrConfig, "mapper.workers must be at least 1, got %d", c.Mapper.Workers)
	}
	switch c.Smoother.Type {
	case "median", "none":
	default:
		return apperrors.Newf(apperrors.ErrConfig, "smoother.type must be median or none, got %q", c.Smoother.Type)
	}
	if c.Smoother.Points < 1 || c.Smoother.Points%2 == 0 {
		return apperrors.Newf(apperrors.ErrConfig, "smoother.points must be a positive odd number, got %d", c.Smoother.Points)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return apperrors.Newf(apperrors.ErrConfig, "logging.format must be json or text, got %q", c.Logging.Format)
	}
	return nil
}

// ValidateWorker checks the settings the streaming worker needs on top of
// Validate.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Kafka.Brokers) == 0 {
		return apperrors.New(apperrors.ErrConfig, "kafka.brokers must not be empty")
	}
	if c.Kafka.Topics.MapJobs == "" || c.Kafka.Topics.MapResults == "" {
		return apperrors.New(apperrors.ErrConfig, "kafka.topics.mapJobs and kafka.topics.mapResults are required")
	}
	if c.Worker.ReferencePath == "" {
		return apperrors.New(apperrors.ErrConfig, "worker.referencePath is required")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local runs.
func defaultConfig() *Config {
	return &Config{
		Mapper: MapperConfig{
			Workers: 4,
		},
		Smoother: SmootherConfig{
			Type:   "median",
			Points: 29,
		},
		Worker: WorkerConfig{
			JobTimeout: 2 * time.Minute,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "featurepic",
			User:            "featurepic",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "featurepic-workers",
			Topics: KafkaTopics{
				MapJobs:    "pic.map-jobs",
				MapResults: "pic.map-results",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
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

// applyEnvOverrides reads PIC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PIC_MAPPER_REMOVE_DUPLICATES_IN_SCAN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Mapper.RemoveDuplicatesInScan = b
		}
	}
	if v := os.Getenv("PIC_MAPPER_REMOVE_OUTLIERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Mapper.RemoveOutliers = b
		}
	}
	if v := os.Getenv("PIC_MAPPER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Mapper.Workers = n
		}
	}
	if v := os.Getenv("PIC_MAPPER_OUTPUT_DIR"); v != "" {
		cfg.Mapper.OutputDir = v
	}
	if v := os.Getenv("PIC_WORKER_REFERENCE_PATH"); v != "" {
		cfg.Worker.ReferencePath = v
	}
	if v := os.Getenv("PIC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PIC_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("PIC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("PIC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("PIC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("PIC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("PIC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("PIC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("PIC_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("PIC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("PIC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PIC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PIC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("PIC_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
}
