package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime configuration for the agent
type Config struct {
	Env string `yaml:"env" env:"APP_ENV" env-default:"local"`

	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
		Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"`
	} `yaml:"log"`

	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-default:"activitytrack.db"`

	Tracking struct {
		// IdleThreshold is the number of seconds without input before
		// the user is considered idle.
		IdleThreshold int `yaml:"idle_threshold" env:"IDLE_THRESHOLD" env-default:"180"`
		// SuspendGapThreshold is the wall-clock gap (seconds) between
		// foreground ticks above which the interval is treated as
		// system sleep and discarded.
		SuspendGapThreshold int `yaml:"suspend_gap_threshold" env:"SUSPEND_GAP_THRESHOLD" env-default:"120"`
		// TickInterval drives foreground attribution and idle checks.
		TickInterval int `yaml:"tick_interval" env:"TICK_INTERVAL" env-default:"5"`
		// FlushInterval is how often buffered counters are persisted.
		FlushInterval int `yaml:"flush_interval" env:"FLUSH_INTERVAL" env-default:"30"`
		// DataRetentionDays controls cleanup of old rows. -1 keeps forever.
		DataRetentionDays int `yaml:"data_retention_days" env:"DATA_RETENTION_DAYS" env-default:"365"`
	} `yaml:"tracking"`

	Reminder struct {
		Enabled bool `yaml:"enabled" env:"REMINDER_ENABLED" env-default:"true"`
		// IntervalMinutes of continuous usage before a reminder. 0 disables.
		IntervalMinutes int `yaml:"interval_minutes" env:"REMINDER_INTERVAL_MINUTES" env-default:"60"`
		// BreakDurationMinutes of idle time that counts as a taken break.
		BreakDurationMinutes int `yaml:"break_duration_minutes" env:"REMINDER_BREAK_DURATION_MINUTES" env-default:"5"`
	} `yaml:"reminder"`
}

// LoadConfig reads configuration from the given YAML file with environment
// variable overrides. A missing file is not an error; defaults and the
// environment are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Tracking.IdleThreshold < 0 {
		return fmt.Errorf("tracking.idle_threshold must be non-negative, got %d", c.Tracking.IdleThreshold)
	}
	if c.Tracking.SuspendGapThreshold < 0 {
		return fmt.Errorf("tracking.suspend_gap_threshold must be non-negative, got %d", c.Tracking.SuspendGapThreshold)
	}
	if c.Tracking.TickInterval <= 0 {
		return fmt.Errorf("tracking.tick_interval must be positive, got %d", c.Tracking.TickInterval)
	}
	if c.Tracking.FlushInterval <= 0 {
		return fmt.Errorf("tracking.flush_interval must be positive, got %d", c.Tracking.FlushInterval)
	}
	if c.Reminder.IntervalMinutes < 0 {
		return fmt.Errorf("reminder.interval_minutes must be non-negative, got %d", c.Reminder.IntervalMinutes)
	}
	if c.Reminder.BreakDurationMinutes < 0 {
		return fmt.Errorf("reminder.break_duration_minutes must be non-negative, got %d", c.Reminder.BreakDurationMinutes)
	}
	return nil
}
