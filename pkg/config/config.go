package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the library.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Graph traversal configuration
	Graph GraphConfig `mapstructure:"graph"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// TelemetryDir, when set, additionally captures error-level records
	// into Parquet files under this directory.
	TelemetryDir string `mapstructure:"telemetry_dir"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // neo4j, embedded
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// GraphConfig holds defaults applied to graph operations when the caller
// does not pass explicit options.
type GraphConfig struct {
	DefaultDepth          int  `mapstructure:"default_depth"`
	CreateMissingNodes    bool `mapstructure:"create_missing_nodes"`
	UpdateExistingNodes   bool `mapstructure:"update_existing_nodes"`
	CascadeDeleteDefaults bool `mapstructure:"cascade_delete_defaults"`
	BulkConcurrency       int  `mapstructure:"bulk_concurrency"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	MaxRequests      uint32 `mapstructure:"max_requests"`
	Interval         int    `mapstructure:"interval"` // in seconds
	Timeout          int    `mapstructure:"timeout"`  // in seconds
	FailureThreshold uint32 `mapstructure:"failure_threshold"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	viper.SetEnvPrefix("GRAPHMODEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// LoadFile loads configuration from a specific file, then applies
// environment overrides.
func LoadFile(path string) (*Config, error) {
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Load()
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.telemetry_dir", "")

	// Database defaults: an embedded store needs no credentials
	viper.SetDefault("database.driver", "embedded")
	viper.SetDefault("database.uri", "")
	viper.SetDefault("database.username", "")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.database", "")

	// Graph defaults
	viper.SetDefault("graph.default_depth", 5)
	viper.SetDefault("graph.create_missing_nodes", false)
	viper.SetDefault("graph.update_existing_nodes", false)
	viper.SetDefault("graph.bulk_concurrency", 0)

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.failure_threshold", 5)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Database.Driver = "neo4j"
		config.Database.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Database.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Database.Password = pass
	}
	if db := os.Getenv("NEO4J_DATABASE"); db != "" {
		config.Database.Database = db
	}

	if dbDriver := os.Getenv("DB_DRIVER"); dbDriver != "" {
		config.Database.Driver = dbDriver
	}
	if dbPath := os.Getenv("EMBEDDED_DB_PATH"); dbPath != "" {
		config.Database.URI = dbPath
	}
}
