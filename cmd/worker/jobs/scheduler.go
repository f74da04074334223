package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ceseminars/internal/logger"
	"ceseminars/internal/metrics"

	"github.com/robfig/cron/v3"
)

// Job is one periodic sweep. Run returns the number of items it handled.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) (int, error)
}

// Scheduler runs jobs on cron specs in UTC. A job that is still running
// when its next tick arrives is skipped, and panics are recovered.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
}

func NewScheduler(timeout time.Duration) *Scheduler {
	l := cronLogger{log: logger.Get().With("component", "scheduler")}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		timeout: timeout,
	}
}

// Add registers a job. An empty spec disables it.
func (s *Scheduler) Add(job Job) error {
	if job.Spec == "" {
		logger.Get().Info("Job disabled", "job", job.Name)
		return nil
	}
	if _, err := s.cron.AddFunc(job.Spec, func() { s.run(job) }); err != nil {
		return fmt.Errorf("failed to schedule %s (%q): %w", job.Name, job.Spec, err)
	}
	logger.Get().Info("Job scheduled", "job", job.Name, "spec", job.Spec)
	return nil
}

// Len is the number of scheduled jobs
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		logger.Get().Warn("Jobs still running at shutdown")
	}
}

func (s *Scheduler) run(job Job) (int, error) {
	ctx := logger.ContextWithRequestID(context.Background(), logger.NewRequestID())
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	log := logger.WithContext(ctx).With("job", job.Name)

	start := time.Now()
	n, err := job.Run(ctx)
	metrics.ObserveJob(job.Name, n, err)
	if err != nil {
		log.Error("Job failed", "error", err, "items", n, "duration_ms", time.Since(start).Milliseconds())
		return n, err
	}
	log.Info("Job finished", "items", n, "duration_ms", time.Since(start).Milliseconds())
	return n, nil
}

// cronLogger routes cron's own logging to slog
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
