package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultDatabasePath = "data/news.db"
	defaultLogLevel     = "info"
	defaultIntervalMin  = 60

	configPathEnv   = "NEWS_ORCHESTRATOR_CONFIG"
	databasePathEnv = "NEWS_ORCHESTRATOR_DB"
	logLevelEnv     = "NEWS_ORCHESTRATOR_LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Database DatabaseConfig `yaml:"database"`
	Refresh  RefreshConfig  `yaml:"refresh"`
	Sources  []SourceConfig `yaml:"sources"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig locates the embedded database file.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RefreshConfig tunes fan-out width and the optional auto-refresh loop.
type RefreshConfig struct {
	MaxWorkers      int  `yaml:"maxWorkers"`
	Auto            bool `yaml:"auto"`
	IntervalMinutes int  `yaml:"intervalMinutes"`
}

// Interval resolves the auto-refresh period.
func (r RefreshConfig) Interval() time.Duration {
	minutes := r.IntervalMinutes
	if minutes <= 0 {
		minutes = defaultIntervalMin
	}
	return time.Duration(minutes) * time.Minute
}

// SourceConfig describes one configured news source.
type SourceConfig struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	URL      string            `yaml:"url"`
	Category string            `yaml:"category"`
	Enabled  *bool             `yaml:"enabled"`
	Options  map[string]string `yaml:"options"`
}

// IsEnabled defaults to true when the key is absent from YAML.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Refresh.MaxWorkers != 0 {
		base.Refresh.MaxWorkers = override.Refresh.MaxWorkers
	}
	if override.Refresh.IntervalMinutes != 0 {
		base.Refresh.IntervalMinutes = override.Refresh.IntervalMinutes
	}
	base.Refresh.Auto = override.Refresh.Auto

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: defaultLogLevel},
		Database: DatabaseConfig{Path: defaultDatabasePath},
		Refresh: RefreshConfig{
			MaxWorkers:      8,
			Auto:            false,
			IntervalMinutes: defaultIntervalMin,
		},
		Sources: []SourceConfig{
			{
				Name:     "bbc-world",
				Type:     "rss",
				URL:      "https://feeds.bbci.co.uk/news/world/rss.xml",
				Category: "world",
			},
		},
	}
}
