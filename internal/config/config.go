package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Environment string `toml:"-"`

	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// postgres
	PostgresHost   string `toml:"postgres_host"`
	PostgresPort   string `toml:"postgres_port"`
	PostgresDBName string `toml:"postgres_db_name"`
	PostgresUser   string `toml:"postgres_user"`
	RunMigrations  bool   `toml:"run_migrations"`

	// redis
	RedisHost string `toml:"redis_host"`
	RedisPort string `toml:"redis_port"`

	// timer & analytics
	CheckpointTTL            Duration `toml:"checkpoint_ttl"`
	AnalyticsRefreshInterval Duration `toml:"analytics_refresh_interval"`
	AnalyticsCacheSizeMB     int      `toml:"analytics_cache_size_mb"`
	HistoryLimit             int      `toml:"history_limit"`
	StreakTimezone           string   `toml:"streak_timezone"`

	// http
	AllowedOrigins         []string `toml:"allowed_origins"`
	MutationsAllowedPerMin int      `toml:"mutations_allowed_per_min"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	cfg.Environment = strings.ToLower(env)
	cfg.applyDefaults()
	return cfg, nil
}

// Load reads the TOML file at path and returns the section for env.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return t.Get(env)
}

func (c *Config) applyDefaults() {
	if c.CheckpointTTL.Duration == 0 {
		c.CheckpointTTL.Duration = 48 * time.Hour
	}
	if c.AnalyticsRefreshInterval.Duration == 0 {
		c.AnalyticsRefreshInterval.Duration = 5 * time.Second
	}
	if c.AnalyticsCacheSizeMB == 0 {
		c.AnalyticsCacheSizeMB = 10
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = 500
	}
	if c.StreakTimezone == "" {
		c.StreakTimezone = "Local"
	}
	if c.MutationsAllowedPerMin == 0 {
		c.MutationsAllowedPerMin = 120
	}
}

// StreakLocation resolves the timezone used to group sessions into calendar days.
func (c *Config) StreakLocation() (*time.Location, error) {
	return time.LoadLocation(c.StreakTimezone)
}

// Duration lets TOML values like "5s" or "48h" decode into time.Duration.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}
