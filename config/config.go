package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

const (
	defaultTickInterval          = time.Second
	defaultNormalDuration        = 30 * time.Minute
	defaultLateDuration          = 10 * time.Minute
	defaultMaxImportUploadMB     = 10
	defaultShutdownGraceDuration = 10 * time.Second
)

type Config struct {
	// database path
	DatabasePath string `env:"DATABASE_PATH" envDefault:"attendance.db"`

	// http server
	Port               string   `env:"PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// session clock; how often the active session is advanced
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`

	// defaults offered to operators when a start request omits durations
	DefaultNormalDuration time.Duration `env:"DEFAULT_NORMAL_DURATION" envDefault:"30m"`
	DefaultLateDuration   time.Duration `env:"DEFAULT_LATE_DURATION" envDefault:"10m"`

	// import settings
	MaxImportUploadMB int `env:"MAX_IMPORT_UPLOAD_MB" envDefault:"10"`

	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`

	// logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DatabasePath != ":memory:" {
		absDB, err := filepath.Abs(cfg.DatabasePath)
		if err != nil {
			return Config{}, fmt.Errorf("failed to get absolute path for database '%s': %w", cfg.DatabasePath, err)
		}
		cfg.DatabasePath = absDB
	}

	cfg.sanitize()
	return cfg, nil
}

// sanitize replaces non-positive values with defaults, warning like the env
// helpers always have.
func (c *Config) sanitize() {
	if c.TickInterval <= 0 {
		zap.S().Warnf("Invalid TICK_INTERVAL '%s'. Using default %s", c.TickInterval, defaultTickInterval)
		c.TickInterval = defaultTickInterval
	}
	if c.DefaultNormalDuration <= 0 {
		zap.S().Warnf("Invalid DEFAULT_NORMAL_DURATION '%s'. Using default %s", c.DefaultNormalDuration, defaultNormalDuration)
		c.DefaultNormalDuration = defaultNormalDuration
	}
	if c.DefaultLateDuration < 0 {
		zap.S().Warnf("Invalid DEFAULT_LATE_DURATION '%s'. Using default %s", c.DefaultLateDuration, defaultLateDuration)
		c.DefaultLateDuration = defaultLateDuration
	}
	if c.MaxImportUploadMB <= 0 {
		zap.S().Warnf("Invalid MAX_IMPORT_UPLOAD_MB '%d'. Using default %d", c.MaxImportUploadMB, defaultMaxImportUploadMB)
		c.MaxImportUploadMB = defaultMaxImportUploadMB
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = defaultShutdownGraceDuration
	}
}
