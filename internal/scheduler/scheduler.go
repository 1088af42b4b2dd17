// Package scheduler runs Ali's cron-driven maintenance: nightly memory
// consolidation, periodic reflection, and emotion/salience decay.
// Maintenance runs in-process against the mind; a missed tick is simply
// picked up at the next one.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ckaya/ali/internal/config"
)

// Mind is the surface the maintenance jobs need from the consciousness.
type Mind interface {
	// Consolidate moves salient working-memory items into episodic memory
	// and returns how many were persisted.
	Consolidate(ctx context.Context) (int, error)
	// Reflect generates an internal thought about recent experience.
	Reflect(ctx context.Context) error
	// Decay fades emotional intensity and stimulus salience.
	Decay()
}

const jobTimeout = 2 * time.Minute

// Scheduler owns the cron runner and the registered maintenance jobs.
type Scheduler struct {
	mind    Mind
	config  *config.SchedulerConfig
	metrics *Metrics
	logger  *slog.Logger
	cron    *cron.Cron
}

// New creates a Scheduler. The config supplies the cron specs; nil metrics
// disables instrumentation.
func New(mind Mind, cfg *config.SchedulerConfig, metrics *Metrics, logger *slog.Logger) *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		mind:    mind,
		config:  cfg,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(cron.WithParser(parser)),
	}
}

// Start registers the maintenance jobs and starts the cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"consolidation", s.config.Consolidation(), s.consolidate},
		{"reflection", s.config.Reflection(), s.reflect},
		{"decay", s.config.EmotionDecay(), s.decay},
	}

	for _, j := range jobs {
		job := j
		_, err := s.cron.AddFunc(job.spec, func() {
			s.runJob(ctx, job.name, job.run)
		})
		if err != nil {
			return fmt.Errorf("registering %s job (%q): %w", job.name, job.spec, err)
		}
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "maintenance scheduler started",
		slog.String("consolidation", s.config.Consolidation()),
		slog.String("reflection", s.config.Reflection()),
		slog.String("decay", s.config.EmotionDecay()),
	)
	return nil
}

// Stop halts the cron runner and waits for running jobs, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stopping scheduler: %w", ctx.Err())
	}
}

// runJob executes one job with a timeout, metrics, and failure logging.
func (s *Scheduler) runJob(ctx context.Context, name string, run func(ctx context.Context) error) {
	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := run(jobCtx)
	duration := time.Since(start).Seconds()

	if s.metrics != nil {
		s.metrics.JobDuration.WithLabelValues(name).Observe(duration)
		if err != nil {
			s.metrics.JobsFailed.WithLabelValues(name).Inc()
		} else {
			s.metrics.JobsRun.WithLabelValues(name).Inc()
		}
	}

	if err != nil {
		s.logger.ErrorContext(jobCtx, "maintenance job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scheduler) consolidate(ctx context.Context) error {
	stored, err := s.mind.Consolidate(ctx)
	if err != nil {
		return fmt.Errorf("consolidating memories: %w", err)
	}
	if stored > 0 {
		s.logger.InfoContext(ctx, "nightly consolidation complete",
			slog.Int("stored", stored),
		)
	}
	return nil
}

func (s *Scheduler) reflect(ctx context.Context) error {
	if err := s.mind.Reflect(ctx); err != nil {
		return fmt.Errorf("reflecting: %w", err)
	}
	return nil
}

func (s *Scheduler) decay(ctx context.Context) error {
	s.mind.Decay()
	return nil
}
