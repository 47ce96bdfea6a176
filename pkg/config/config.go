// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, LSH, Corpus, Snapshot, Postgres, Kafka, Redis, etc.).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/lsh-plagiarism-detector/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LSH      LSHConfig      `yaml:"lsh"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	RPC      RPCConfig      `yaml:"rpc"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `yaml:"corsOrigins"`
	// RateLimitPerMinute caps requests per client IP. 0 disables limiting.
	RateLimitPerMinute int `yaml:"rateLimitPerMinute"`
	// RequireAPIKey guards mutating endpoints with keys stored in PostgreSQL.
	RequireAPIKey bool `yaml:"requireApiKey"`
}

// LSHConfig describes the MinHash/LSH index. NumHashFunctions must be a
// multiple of Bands.
type LSHConfig struct {
	NumHashFunctions uint32  `yaml:"numHashFunctions"`
	Bands            uint32  `yaml:"bands"`
	ShingleSize      uint32  `yaml:"shingleSize"`
	Seed             uint64  `yaml:"seed"`
	DefaultThreshold float64 `yaml:"defaultThreshold"`
}

// RowsPerBand returns the number of signature positions in every band.
func (l LSHConfig) RowsPerBand() uint32 {
	if l.Bands == 0 {
		return 0
	}
	return l.NumHashFunctions / l.Bands
}

// Validate checks the index invariants. Every failure wraps
// ErrInvalidConfiguration.
func (l LSHConfig) Validate() error {
	switch {
	case l.NumHashFunctions == 0:
		return fmt.Errorf("%w: numHashFunctions must be positive", apperrors.ErrInvalidConfiguration)
	case l.Bands == 0:
		return fmt.Errorf("%w: bands must be positive", apperrors.ErrInvalidConfiguration)
	case l.ShingleSize == 0:
		return fmt.Errorf("%w: shingleSize must be positive", apperrors.ErrInvalidConfiguration)
	case l.NumHashFunctions%l.Bands != 0:
		return fmt.Errorf("%w: numHashFunctions (%d) must be divisible by bands (%d)",
			apperrors.ErrInvalidConfiguration, l.NumHashFunctions, l.Bands)
	}
	return nil
}

// CorpusConfig locates the reference corpus and the document under check.
type CorpusConfig struct {
	DocumentsDir string `yaml:"documentsDir"`
	MainFile     string `yaml:"mainFile"`
	RenamePrefix string `yaml:"renamePrefix"`
}

// SnapshotConfig controls signature snapshot persistence. An empty DataDir
// disables snapshots.
type SnapshotConfig struct {
	DataDir       string        `yaml:"dataDir"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
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
	DocumentIngest  string `yaml:"documentIngest"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RPCConfig controls the JSON-over-TCP RPC listener. Port 0 disables it.
type RPCConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. The resulting LSH section is validated before it is returned.
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
	if err := cfg.LSH.Validate(); err != nil {
		return nil, err
	}
	if t := cfg.LSH.DefaultThreshold; math.IsNaN(t) || t < 0 || t > 1 {
		return nil, fmt.Errorf("%w: defaultThreshold must be within [0,1]", apperrors.ErrInvalidConfiguration)
	}
	if cfg.Snapshot.DataDir != "" && cfg.Snapshot.FlushInterval <= 0 {
		return nil, fmt.Errorf("%w: snapshot flushInterval must be positive", apperrors.ErrInvalidConfiguration)
	}
	return cfg, nil
}

// Default returns a Config with defaults for local development. The LSH
// defaults match the reference detector: 100 hash functions in 20 bands,
// 3-character shingles, seed 42.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		LSH: LSHConfig{
			NumHashFunctions: 100,
			Bands:            20,
			ShingleSize:      3,
			Seed:             42,
			DefaultThreshold: 0.1,
		},
		Corpus: CorpusConfig{
			DocumentsDir: "./documents",
			MainFile:     "main.txt",
			RenamePrefix: "essay",
		},
		Snapshot: SnapshotConfig{
			DataDir:       "",
			FlushInterval: time.Minute,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "plagiarism",
			User:            "plagiarism",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "lsh-detector",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				AnalyticsEvents: "similarity-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		RPC: RPCConfig{
			Port: 9100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads LSH_* environment variables and overrides the
// corresponding config fields. Unparseable numbers are ignored.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LSH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LSH_NUM_HASH_FUNCTIONS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.LSH.NumHashFunctions = uint32(n)
		}
	}
	if v := os.Getenv("LSH_BANDS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.LSH.Bands = uint32(n)
		}
	}
	if v := os.Getenv("LSH_SHINGLE_SIZE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.LSH.ShingleSize = uint32(n)
		}
	}
	if v := os.Getenv("LSH_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.LSH.Seed = n
		}
	}
	if v := os.Getenv("LSH_DEFAULT_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LSH.DefaultThreshold = f
		}
	}
	if v := os.Getenv("LSH_DOCUMENTS_DIR"); v != "" {
		cfg.Corpus.DocumentsDir = v
	}
	if v := os.Getenv("LSH_MAIN_FILE"); v != "" {
		cfg.Corpus.MainFile = v
	}
	if v := os.Getenv("LSH_SNAPSHOT_DIR"); v != "" {
		cfg.Snapshot.DataDir = v
	}
	if v := os.Getenv("LSH_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LSH_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("LSH_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("LSH_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("LSH_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LSH_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("LSH_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LSH_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LSH_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LSH_RPC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.RPC.Port = port
		}
	}
	if v := os.Getenv("LSH_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LSH_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
