package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

// Evictor drops in-process checkout resolvers that sat unused for maxIdle.
type Evictor interface {
	EvictIdle(ctx context.Context, maxIdle time.Duration) int64
}

type resolverEvictJob struct {
	evictor Evictor
	maxIdle time.Duration
	logg    *logger.Logger
	metrics *metrics.JanitorMetrics
}

func NewResolverEvictJob(evictor Evictor, maxIdle time.Duration, logg *logger.Logger, m *metrics.JanitorMetrics) (Job, error) {
	if evictor == nil {
		return nil, fmt.Errorf("evictor required")
	}
	if maxIdle <= 0 {
		return nil, fmt.Errorf("max idle must be positive")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &resolverEvictJob{evictor: evictor, maxIdle: maxIdle, logg: logg, metrics: m}, nil
}

func (j *resolverEvictJob) Name() string { return "checkout-resolver-evict" }

func (j *resolverEvictJob) Run(ctx context.Context) error {
	evicted := j.evictor.EvictIdle(ctx, j.maxIdle)
	j.metrics.AddEvicted(evicted)
	j.logg.Debug(j.logg.WithField(ctx, "evicted", evicted), "janitor.resolvers.swept")
	return nil
}
