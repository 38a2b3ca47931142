// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/hermes.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultDatabaseEnableWAL         = true
	defaultDatabaseMigrationsPath    = "file://./migrations"
	defaultPlayoutLookahead          = 48 * time.Hour
	defaultPlayoutBuildInterval      = 5 * time.Minute
	defaultPlayoutHistoryRetention   = 24 * time.Hour
	defaultPlayoutDefaultOrder       = "shuffle"
	defaultPlayoutTimeZone           = "UTC"
	defaultPlayoutAvoidRepeats       = true
	defaultEventsSubjectPrefix       = "hermes"
	defaultMetricsEnabled            = true
	defaultMetricsPath               = "/metrics"
	envPrefix                        = "HERMES"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Media    MediaConfig
	Playout  PlayoutConfig
	Events   EventsConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// MediaConfig holds media library configuration
type MediaConfig struct {
	// LibraryPath resolves relative file paths in lineup files
	LibraryPath      string
	SupportedFormats []string
}

// PlayoutConfig controls timeline building
type PlayoutConfig struct {
	// Lookahead is how far past now the worker keeps the timeline built
	Lookahead time.Duration
	// BuildInterval is how often each channel worker checks its coverage
	BuildInterval time.Duration
	// HistoryRetention is how long finished items are kept before trimming
	HistoryRetention time.Duration
	// DefaultOrder applies to schedule items without a playback order
	DefaultOrder string
	// TimeZone is used for fixed start times of channels without their own zone
	TimeZone     string
	AvoidRepeats bool
}

// EventsConfig holds build notification settings. An empty NATSURL disables publishing.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// Load .env file if present (optional, won't error if missing)
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/hermes")

	// Environment variable settings
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Unmarshal into struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultDatabaseMigrationsPath)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	// Media defaults
	v.SetDefault("media.supportedformats", []string{"mp4", "mkv", "avi", "mov"})

	// Playout defaults
	v.SetDefault("playout.lookahead", defaultPlayoutLookahead)
	v.SetDefault("playout.buildinterval", defaultPlayoutBuildInterval)
	v.SetDefault("playout.historyretention", defaultPlayoutHistoryRetention)
	v.SetDefault("playout.defaultorder", defaultPlayoutDefaultOrder)
	v.SetDefault("playout.timezone", defaultPlayoutTimeZone)
	v.SetDefault("playout.avoidrepeats", defaultPlayoutAvoidRepeats)

	// Events defaults
	v.SetDefault("events.natsurl", "")
	v.SetDefault("events.subjectprefix", defaultEventsSubjectPrefix)

	// Metrics defaults
	v.SetDefault("metrics.enabled", defaultMetricsEnabled)
	v.SetDefault("metrics.path", defaultMetricsPath)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	// Validate server port
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	// Validate timeout durations
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	// Validate log level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	// Validate playout settings
	if c.Playout.Lookahead <= 0 {
		return fmt.Errorf("invalid playout lookahead: %v (must be > 0)", c.Playout.Lookahead)
	}
	if c.Playout.BuildInterval <= 0 {
		return fmt.Errorf("invalid playout build interval: %v (must be > 0)", c.Playout.BuildInterval)
	}
	if c.Playout.HistoryRetention < 0 {
		return fmt.Errorf("invalid playout history retention: %v (must be >= 0)", c.Playout.HistoryRetention)
	}
	validOrders := []string{"chronological", "shuffle", "random", "rotating_shuffle"}
	if !contains(validOrders, c.Playout.DefaultOrder) {
		return fmt.Errorf("invalid playout default order: %s (must be one of: %s)", c.Playout.DefaultOrder, strings.Join(validOrders, ", "))
	}
	if _, err := time.LoadLocation(c.Playout.TimeZone); err != nil {
		return fmt.Errorf("invalid playout time zone: %s: %w", c.Playout.TimeZone, err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path: %q (must start with /)", c.Metrics.Path)
	}

	// Database path validation will be done when opening DB
	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
