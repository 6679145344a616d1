package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig
	DB        DBConfig
	Logging   LoggingConfig
	SMTP      SMTPConfig
	Scheduler SchedulerConfig
}

// HTTPConfig governs the API server.
type HTTPConfig struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// DBConfig selects the store driver. Driver is "sqlite" or "postgres".
type DBConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DB_DSN" envDefault:"ticovision.db"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"` // text|json
	// File enables a rotating log file next to stdout when set.
	File       string `env:"LOG_FILE"`
	MaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	MaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"`
}

// SMTPConfig configures reminder email delivery. An empty Host disables
// sending and reminders are only logged.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"office@ticovision.local"`
}

// SchedulerConfig drives automatic reminder runs.
type SchedulerConfig struct {
	Enabled  bool          `env:"SCHEDULER_ENABLED" envDefault:"false"`
	Interval time.Duration `env:"SCHEDULER_INTERVAL" envDefault:"1h"`
	// Cooldown suppresses automatic reminders for fees reminded more recently.
	Cooldown time.Duration `env:"REMINDER_COOLDOWN" envDefault:"24h"`
}

// Load reads an optional .env file (or the given files) and then parses the
// environment, applying defaults.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DB.Driver != "sqlite" && cfg.DB.Driver != "postgres" {
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.Interval <= 0 {
		return Config{}, fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", cfg.Scheduler.Interval)
	}

	return cfg, nil
}
