package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds everything the broker reads from the environment.
type Config struct {
	Addr            string        `env:"MQ_ADDR" envDefault:"127.0.0.1:6000"`
	MaxMessageBytes int64         `env:"MQ_MAX_MESSAGE_BYTES" envDefault:"512000"`
	DefaultWait     time.Duration `env:"MQ_DEFAULT_WAIT" envDefault:"1s"`
	MaxWait         time.Duration `env:"MQ_MAX_WAIT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"MQ_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	// Cron spec for the queue depth report, "off" disables it
	StatsSchedule string `env:"MQ_STATS_SCHEDULE" envDefault:"@every 30s"`
	Metrics       bool   `env:"MQ_METRICS" envDefault:"true"`

	LogLevel  string `env:"MQ_LOG_LEVEL" envDefault:"info"`
	LogOutput string `env:"MQ_LOG_OUTPUT" envDefault:"stderr"` // stderr, stdout, file
	LogFile   string `env:"MQ_LOG_FILE"`
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, "couldn't parse config from environment")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("listen address is required")
	}
	if c.MaxMessageBytes <= 0 {
		return errors.Errorf("max message bytes must be positive, got %d", c.MaxMessageBytes)
	}
	if c.DefaultWait <= 0 {
		return errors.Errorf("default wait must be positive, got %s", c.DefaultWait)
	}
	if c.MaxWait <= 0 {
		return errors.Errorf("max wait must be positive, got %s", c.MaxWait)
	}
	if c.DefaultWait > c.MaxWait {
		return errors.Errorf("default wait %s exceeds max wait %s", c.DefaultWait, c.MaxWait)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
