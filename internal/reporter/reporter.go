package reporter

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jnfrati/buzon/internal/metrics"
	"github.com/jnfrati/buzon/internal/models"
)

// Disabled turns the reporter into a no-op when used as the schedule.
const Disabled = "off"

type StatsSource interface {
	Stats() []models.QueueStats
}

// Reporter periodically logs queue depths and feeds them to the metrics.
type Reporter struct {
	source  StatsSource
	metrics *metrics.Metrics
	log     zerolog.Logger

	cronManager *cron.Cron
}

func NewReporter(schedule string, source StatsSource, m *metrics.Metrics, log zerolog.Logger) (*Reporter, error) {
	r := &Reporter{
		source:  source,
		metrics: m,
		log:     log.With().Str("component", "reporter").Logger(),
	}

	if schedule == "" || schedule == Disabled {
		return r, nil
	}

	c := cron.New(
		cron.WithParser(
			cron.NewParser(
				cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
			),
		),
	)

	if _, err := c.AddFunc(schedule, r.Report); err != nil {
		return nil, errors.Wrapf(err, "couldn't schedule stats report %q", schedule)
	}

	r.cronManager = c

	return r, nil
}

// Report takes one snapshot of the registry.
func (r *Reporter) Report() {
	stats := r.source.Stats()
	r.metrics.ObserveStats(stats)

	pending := 0
	for _, s := range stats {
		r.log.Debug().Str("queue", s.Name).Int("depth", s.Depth).Msg("queue depth")
		if s.Depth < 0 {
			r.log.Warn().Str("queue", s.Name).Msg("queue is poisoned")
			continue
		}
		pending += s.Depth
	}

	r.log.Info().Int("queues", len(stats)).Int("pending", pending).Msg("queue stats")
}

// Start runs the schedule until ctx is done.
func (r *Reporter) Start(ctx context.Context) error {
	if r.cronManager == nil {
		<-ctx.Done()
		return nil
	}

	r.cronManager.Start()
	<-ctx.Done()
	<-r.cronManager.Stop().Done()

	return nil
}
