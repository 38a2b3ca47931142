package config

import (
	"testing"
	"time"
)

func TestConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Test server defaults
	if cfg.Server.Port != defaultServerPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, defaultServerPort)
	}
	if cfg.Server.Host != defaultServerHost {
		t.Errorf("Server.Host = %s, want %s", cfg.Server.Host, defaultServerHost)
	}

	// Test database defaults
	if cfg.Database.Path != defaultDatabasePath {
		t.Errorf("Database.Path = %s, want %s", cfg.Database.Path, defaultDatabasePath)
	}
	if cfg.Database.EnableWAL != defaultDatabaseEnableWAL {
		t.Errorf("Database.EnableWAL = %v, want %v", cfg.Database.EnableWAL, defaultDatabaseEnableWAL)
	}
	if cfg.Database.MigrationsPath != defaultDatabaseMigrationsPath {
		t.Errorf("Database.MigrationsPath = %s, want %s", cfg.Database.MigrationsPath, defaultDatabaseMigrationsPath)
	}

	// Test logging defaults
	if cfg.Logging.Level != defaultLogLevel {
		t.Errorf("Logging.Level = %s, want %s", cfg.Logging.Level, defaultLogLevel)
	}
	if cfg.Logging.Pretty != defaultLogPretty {
		t.Errorf("Logging.Pretty = %v, want %v", cfg.Logging.Pretty, defaultLogPretty)
	}

	// Test playout defaults
	if cfg.Playout.Lookahead != defaultPlayoutLookahead {
		t.Errorf("Playout.Lookahead = %v, want %v", cfg.Playout.Lookahead, defaultPlayoutLookahead)
	}
	if cfg.Playout.BuildInterval != defaultPlayoutBuildInterval {
		t.Errorf("Playout.BuildInterval = %v, want %v", cfg.Playout.BuildInterval, defaultPlayoutBuildInterval)
	}
	if cfg.Playout.HistoryRetention != defaultPlayoutHistoryRetention {
		t.Errorf("Playout.HistoryRetention = %v, want %v", cfg.Playout.HistoryRetention, defaultPlayoutHistoryRetention)
	}
	if cfg.Playout.DefaultOrder != defaultPlayoutDefaultOrder {
		t.Errorf("Playout.DefaultOrder = %s, want %s", cfg.Playout.DefaultOrder, defaultPlayoutDefaultOrder)
	}
	if cfg.Playout.TimeZone != defaultPlayoutTimeZone {
		t.Errorf("Playout.TimeZone = %s, want %s", cfg.Playout.TimeZone, defaultPlayoutTimeZone)
	}
	if !cfg.Playout.AvoidRepeats {
		t.Errorf("Playout.AvoidRepeats = false, want true")
	}

	// Test events and metrics defaults
	if cfg.Events.NATSURL != "" {
		t.Errorf("Events.NATSURL = %s, want empty", cfg.Events.NATSURL)
	}
	if cfg.Events.SubjectPrefix != defaultEventsSubjectPrefix {
		t.Errorf("Events.SubjectPrefix = %s, want %s", cfg.Events.SubjectPrefix, defaultEventsSubjectPrefix)
	}
	if cfg.Metrics.Enabled != defaultMetricsEnabled {
		t.Errorf("Metrics.Enabled = %v, want %v", cfg.Metrics.Enabled, defaultMetricsEnabled)
	}
	if cfg.Metrics.Path != defaultMetricsPath {
		t.Errorf("Metrics.Path = %s, want %s", cfg.Metrics.Path, defaultMetricsPath)
	}
}

func TestConfigEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HERMES_SERVER_PORT", "9090")
	t.Setenv("HERMES_PLAYOUT_LOOKAHEAD", "12h")
	t.Setenv("HERMES_PLAYOUT_DEFAULTORDER", "chronological")
	t.Setenv("HERMES_EVENTS_NATSURL", "nats://localhost:4222")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Playout.Lookahead != 12*time.Hour {
		t.Errorf("Playout.Lookahead = %v, want 12h", cfg.Playout.Lookahead)
	}
	if cfg.Playout.DefaultOrder != "chronological" {
		t.Errorf("Playout.DefaultOrder = %s, want chronological", cfg.Playout.DefaultOrder)
	}
	if cfg.Events.NATSURL != "nats://localhost:4222" {
		t.Errorf("Events.NATSURL = %s, want nats://localhost:4222", cfg.Events.NATSURL)
	}
}

// validConfig returns a configuration that passes validation
func validConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  defaultReadTimeout,
			WriteTimeout: defaultWriteTimeout,
		},
		Database: DatabaseConfig{
			Path:              "./data/hermes.db",
			ConnectionTimeout: defaultDatabaseConnectionTimeout,
			EnableWAL:         true,
			MigrationsPath:    defaultDatabaseMigrationsPath,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
		Playout: PlayoutConfig{
			Lookahead:        defaultPlayoutLookahead,
			BuildInterval:    defaultPlayoutBuildInterval,
			HistoryRetention: defaultPlayoutHistoryRetention,
			DefaultOrder:     "shuffle",
			TimeZone:         "UTC",
			AvoidRepeats:     true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "invalid server port (too low)",
			modify:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid server port (too high)",
			modify:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "invalid read timeout",
			modify:  func(c *Config) { c.Server.ReadTimeout = 0 },
			wantErr: true,
		},
		{
			name:    "invalid database connection timeout",
			modify:  func(c *Config) { c.Database.ConnectionTimeout = -time.Second },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			modify:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: true,
		},
		{
			name:    "zero lookahead",
			modify:  func(c *Config) { c.Playout.Lookahead = 0 },
			wantErr: true,
		},
		{
			name:    "zero build interval",
			modify:  func(c *Config) { c.Playout.BuildInterval = 0 },
			wantErr: true,
		},
		{
			name:    "history retention can be zero",
			modify:  func(c *Config) { c.Playout.HistoryRetention = 0 },
			wantErr: false,
		},
		{
			name:    "unknown playback order",
			modify:  func(c *Config) { c.Playout.DefaultOrder = "alphabetical" },
			wantErr: true,
		},
		{
			name:    "all playback orders valid",
			modify:  func(c *Config) { c.Playout.DefaultOrder = "rotating_shuffle" },
			wantErr: false,
		},
		{
			name:    "unknown time zone",
			modify:  func(c *Config) { c.Playout.TimeZone = "Mars/Olympus_Mons" },
			wantErr: true,
		},
		{
			name:    "named time zone",
			modify:  func(c *Config) { c.Playout.TimeZone = "America/New_York" },
			wantErr: false,
		},
		{
			name:    "relative metrics path",
			modify:  func(c *Config) { c.Metrics.Path = "metrics" },
			wantErr: true,
		},
		{
			name: "metrics path ignored when disabled",
			modify: func(c *Config) {
				c.Metrics.Enabled = false
				c.Metrics.Path = ""
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
