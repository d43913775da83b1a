package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/feastly/marketplace/pkg/config"
	"github.com/feastly/marketplace/pkg/database"
	"github.com/feastly/marketplace/pkg/tracing"
)

// Storage technology selectors.
const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

// Config holds all configuration for the marketplace query service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"MARKETPLACE_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Storage backend selection (postgres, mongo or memory)
	StorageTechnology string `env:"STORAGE_TECHNOLOGY" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"marketplace"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"marketplace"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"marketplace"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// MongoDB
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"marketplace"`

	// Query semantics
	ExpensivePriceThreshold float64 `env:"EXPENSIVE_PRICE_THRESHOLD" envDefault:"100"`

	// Ranking windows, in days
	RankingWeekDays  int `env:"RANKING_WEEK_DAYS" envDefault:"7"`
	RankingMonthDays int `env:"RANKING_MONTH_DAYS" envDefault:"30"`
	RankingYearDays  int `env:"RANKING_YEAR_DAYS" envDefault:"90"`

	// Kafka; events are disabled when no brokers are configured.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`

	// Tracing
	TracingEnabled    bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint   string  `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	TracingSampleRate float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`

	// Slow query logging; zero disables it.
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load marketplace config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	switch c.StorageTechnology {
	case StoragePostgres, StorageMongo, StorageMemory:
	default:
		return fmt.Errorf("invalid storage technology: %q", c.StorageTechnology)
	}
	if c.ExpensivePriceThreshold < 0 {
		return fmt.Errorf("expensive price threshold cannot be negative: %v", c.ExpensivePriceThreshold)
	}
	for name, days := range map[string]int{
		"week":  c.RankingWeekDays,
		"month": c.RankingMonthDays,
		"year":  c.RankingYearDays,
	} {
		if days < 1 {
			return fmt.Errorf("ranking %s window must be at least one day: %d", name, days)
		}
	}
	return nil
}

// PostgresConfig assembles the pool configuration for the Postgres backend.
func (c *Config) PostgresConfig() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPassword
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSLMode
	return pg
}

// MongoConfig assembles the client configuration for the Mongo backend.
func (c *Config) MongoConfig() database.MongoConfig {
	m := database.DefaultMongoConfig()
	m.URI = c.MongoURI
	m.Database = c.MongoDatabase
	return m
}

// TracingConfig assembles the tracer configuration.
func (c *Config) TracingConfig() tracing.Config {
	t := tracing.DefaultConfig("marketplace-query")
	t.Environment = c.Environment
	t.OTLPEndpoint = c.TracingEndpoint
	t.SampleRate = c.TracingSampleRate
	t.Enabled = c.TracingEnabled
	return t
}
