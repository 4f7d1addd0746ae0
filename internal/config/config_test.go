package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:6000", cfg.Addr)
	require.EqualValues(t, 512000, cfg.MaxMessageBytes)
	require.Equal(t, time.Second, cfg.DefaultWait)
	require.Equal(t, 30*time.Second, cfg.MaxWait)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "@every 30s", cfg.StatsSchedule)
	require.True(t, cfg.Metrics)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "stderr", cfg.LogOutput)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("MQ_ADDR", ":7000")
	t.Setenv("MQ_MAX_MESSAGE_BYTES", "1024")
	t.Setenv("MQ_DEFAULT_WAIT", "250ms")
	t.Setenv("MQ_STATS_SCHEDULE", "@every 1m")
	t.Setenv("MQ_METRICS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":7000", cfg.Addr)
	require.EqualValues(t, 1024, cfg.MaxMessageBytes)
	require.Equal(t, 250*time.Millisecond, cfg.DefaultWait)
	require.Equal(t, "@every 1m", cfg.StatsSchedule)
	require.False(t, cfg.Metrics)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("MQ_MAX_WAIT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Addr:            ":6000",
		MaxMessageBytes: 10,
		DefaultWait:     time.Second,
		MaxWait:         2 * time.Second,
		ShutdownTimeout: time.Second,
	}
	require.NoError(t, valid.Validate())

	tests := map[string]func(c *Config){
		"empty addr":            func(c *Config) { c.Addr = "" },
		"zero size":             func(c *Config) { c.MaxMessageBytes = 0 },
		"zero default wait":     func(c *Config) { c.DefaultWait = 0 },
		"zero max wait":         func(c *Config) { c.MaxWait = 0 },
		"default over max":      func(c *Config) { c.DefaultWait = time.Minute },
		"zero shutdown":         func(c *Config) { c.ShutdownTimeout = 0 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
