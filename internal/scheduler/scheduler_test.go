package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ckaya/ali/internal/config"
)

type fakeMind struct {
	consolidated int
	reflected    int
	decayed      int
	stored       int
	err          error
}

func (f *fakeMind) Consolidate(ctx context.Context) (int, error) {
	f.consolidated++
	return f.stored, f.err
}

func (f *fakeMind) Reflect(ctx context.Context) error {
	f.reflected++
	return f.err
}

func (f *fakeMind) Decay() { f.decayed++ }

func testScheduler(mind Mind) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(mind, &config.SchedulerConfig{}, nil, logger)
}

func TestStartRegistersJobs(t *testing.T) {
	s := testScheduler(&fakeMind{})

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop(context.Background())

	if got := len(s.cron.Entries()); got != 3 {
		t.Errorf("registered jobs = %d, want 3", got)
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(&fakeMind{}, &config.SchedulerConfig{ConsolidationSpec: "not a cron spec"}, nil, logger)

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestJobsCallIntoMind(t *testing.T) {
	mind := &fakeMind{stored: 2}
	s := testScheduler(mind)
	ctx := context.Background()

	s.runJob(ctx, "consolidation", s.consolidate)
	s.runJob(ctx, "reflection", s.reflect)
	s.runJob(ctx, "decay", s.decay)

	if mind.consolidated != 1 || mind.reflected != 1 || mind.decayed != 1 {
		t.Errorf("mind calls = %+v", mind)
	}
}

func TestRunJobRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := New(&fakeMind{}, &config.SchedulerConfig{}, metrics, logger)
	s.runJob(context.Background(), "decay", s.decay)

	failing := New(&fakeMind{err: errors.New("db down")}, &config.SchedulerConfig{}, metrics, logger)
	failing.runJob(context.Background(), "consolidation", failing.consolidate)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"ali_scheduler_jobs_run_total",
		"ali_scheduler_jobs_failed_total",
		"ali_scheduler_job_duration_seconds",
	} {
		if !names[want] {
			t.Errorf("metric %s not gathered", want)
		}
	}
}

func TestNewMetricsNilRegistry(t *testing.T) {
	if NewMetrics(nil) != nil {
		t.Error("nil registry should disable metrics")
	}
}
