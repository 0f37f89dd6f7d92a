// Package pipeline runs collection jobs behind a common run boundary: run ids,
// one failure log per run and prometheus instrumentation.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/festy23/dora_collector/internal/apperr"
)

const outcomeSuccess = "success"

// Job performs one run and returns the number of records it collected.
type Job func(ctx context.Context) (int, error)

// Runner executes jobs and records their outcome.
type Runner struct {
	metrics *Metrics
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(metrics *Metrics, logger *zap.SugaredLogger) *Runner {
	return &Runner{
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes job as a run of the named pipeline. A failed run is logged once with
// its error kind and the error is returned unchanged.
func (r *Runner) Run(ctx context.Context, name string, pastDue bool, job Job) error {
	runID := uuid.NewString()
	log := r.logger.With("pipeline", name, "run_id", runID)

	if pastDue {
		log.Warnw("pipeline trigger is past due")
	}
	log.Infow("pipeline run started")

	start := r.now()
	collected, err := job(ctx)
	elapsed := r.now().Sub(start)

	r.metrics.duration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.metrics.collected.WithLabelValues(name).Add(float64(collected))

	if err != nil {
		kind := apperr.KindOf(err)
		r.metrics.runs.WithLabelValues(name, kind).Inc()
		log.Errorw("pipeline run failed",
			"kind", kind,
			"collected", collected,
			"duration", elapsed,
			"error", err,
		)
		return err
	}

	r.metrics.runs.WithLabelValues(name, outcomeSuccess).Inc()
	log.Infow("pipeline run finished",
		"collected", collected,
		"duration", elapsed,
	)
	return nil
}
