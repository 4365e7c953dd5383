package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one periodic unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs a Job every interval until its context is cancelled.
type Scheduler struct {
	interval time.Duration
	timeout  time.Duration
	job      Job
	log      *zerolog.Logger
}

// NewScheduler defaults interval to one minute when it is not positive.
// Each run is bounded by the interval.
func NewScheduler(interval time.Duration, job Job, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "scheduler").Str("job", job.Name()).Logger()
	return &Scheduler{interval: interval, timeout: interval, job: job, log: &l}
}

// Run executes the job once immediately and then on every tick. It returns
// ctx.Err() when cancelled; job failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	if err := s.job.Run(runCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error().Err(err).Msg("job failed")
		return
	}
	s.log.Debug().Dur("duration", time.Since(start)).Msg("job finished")
}
