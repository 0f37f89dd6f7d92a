// Package scheduler triggers pipelines on cron schedules with seconds precision.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultGrace is how late a job may start before its trigger counts as past due.
const DefaultGrace = time.Second

// Func runs one triggered execution. pastDue reports a late start.
type Func func(ctx context.Context, pastDue bool)

// Scheduler runs registered jobs on their cron specs. Jobs do not coordinate:
// a job may start while its previous run is still going.
type Scheduler struct {
	cron   *cron.Cron
	grace  time.Duration
	now    func() time.Time
	logger *zap.SugaredLogger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    map[string]Func
	running sync.WaitGroup
}

// New creates a Scheduler whose specs carry a leading seconds field.
func New(logger *zap.SugaredLogger) *Scheduler {
	adapter := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter)),
		),
		grace:  DefaultGrace,
		now:    time.Now,
		logger: logger,
		ctx:    context.Background(),
		jobs:   make(map[string]Func),
	}
}

// Register adds fn under name on spec.
func (s *Scheduler) Register(name, spec string, fn Func) error {
	var id cron.EntryID
	id, err := s.cron.AddFunc(spec, func() {
		started := s.now()
		scheduled := s.cron.Entry(id).Prev
		fn(s.context(), isPastDue(scheduled, started, s.grace))
	})
	if err != nil {
		return fmt.Errorf("schedule %s with %q: %w", name, spec, err)
	}

	s.mu.Lock()
	s.jobs[name] = fn
	s.mu.Unlock()

	s.logger.Infow("pipeline scheduled", "pipeline", name, "schedule", spec)
	return nil
}

// TriggerAll fires every registered job once, outside its schedule. Call after Start.
func (s *Scheduler) TriggerAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := s.ctx
	for name, fn := range s.jobs {
		name, fn := name, fn
		s.running.Add(1)
		go func() {
			defer s.running.Done()
			s.logger.Infow("pipeline triggered on start", "pipeline", name)
			fn(ctx, false)
		}()
	}
}

// Start begins firing jobs. Jobs receive ctx's values but not its
// cancellation: a run in flight is cancelled only by Stop, after it returned.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Infow("scheduler started", "entries", len(s.cron.Entries()))
}

// Stop stops firing new jobs, waits for running ones to return and then cancels
// the job context.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.running.Wait()

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.logger.Infow("scheduler stopped")
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func isPastDue(scheduled, started time.Time, grace time.Duration) bool {
	if scheduled.IsZero() {
		return false
	}
	return started.Sub(scheduled) > grace
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
