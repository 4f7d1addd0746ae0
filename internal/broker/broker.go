package broker

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/jnfrati/buzon/api"
	"github.com/jnfrati/buzon/internal/config"
	"github.com/jnfrati/buzon/internal/logger"
	"github.com/jnfrati/buzon/internal/metrics"
	"github.com/jnfrati/buzon/internal/queue"
	"github.com/jnfrati/buzon/internal/reporter"
)

// Run serves the broker described by cfg until ctx is canceled. The registry
// lives exactly as long as this call.
func Run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	if err := logger.Configure(cfg.LogLevel, cfg.LogOutput, cfg.LogFile); err != nil {
		return err
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	registry := queue.NewRegistry()

	opts := api.OptionsFromConfig(cfg)

	if cfg.Metrics {
		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		m, err := metrics.New(promRegistry)
		if err != nil {
			return errors.Wrap(err, "couldn't register metrics")
		}

		opts.Metrics = m
		opts.Gatherer = promRegistry
	}

	statsReporter, err := reporter.NewReporter(cfg.StatsSchedule, registry, opts.Metrics, logger.Global)
	if err != nil {
		return err
	}

	router := api.NewRouter(registry, opts)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return statsReporter.Start(ctx)
	})

	eg.Go(func() error {
		return api.Start(ctx, cfg.Addr, router, cfg.MaxWait, cfg.ShutdownTimeout)
	})

	if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Global.Error().Err(err).Msg("broker stopped with error")
		return err
	}

	logger.Global.Info().Msg("broker shutdown complete")
	return nil
}
