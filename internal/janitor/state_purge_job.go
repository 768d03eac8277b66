package janitor

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// Purger is a state backend that can drop expired entries. Redis expires
// keys itself and does not need one.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type statePurgeJob struct {
	purger  Purger
	logg    *logger.Logger
	metrics *metrics.JanitorMetrics
}

func NewStatePurgeJob(purger Purger, logg *logger.Logger, m *metrics.JanitorMetrics) (Job, error) {
	if purger == nil {
		return nil, fmt.Errorf("purger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &statePurgeJob{purger: purger, logg: logg, metrics: m}, nil
}

func (j *statePurgeJob) Name() string { return "session-state-purge" }

func (j *statePurgeJob) Run(ctx context.Context) error {
	purged, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired state: %w", err)
	}
	j.metrics.AddPurged(purged)
	j.logg.Info(j.logg.WithField(ctx, "rows_deleted", purged), "janitor.state.purged")
	return nil
}
