package observability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/llm"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_NilConfigDisablesEverything(t *testing.T) {
	obs, err := New(nil, discardLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if obs != nil {
		t.Fatal("nil config should return nil observability")
	}
	// Nil-safe accessors.
	obs.Shutdown(context.Background())
	if obs.TracerOrNil() != nil {
		t.Error("TracerOrNil on nil should be nil")
	}
}

func TestNew_MetricsEnabled(t *testing.T) {
	obs, err := New(&config.ObservabilityConfig{
		Metrics: &config.MetricsConfig{Enabled: true},
	}, discardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if obs.Metrics == nil || obs.Metrics.Registry == nil {
		t.Fatal("metrics not created")
	}
	if obs.Health == nil || obs.Monitor == nil {
		t.Error("health checker and self-monitor should always exist")
	}
	if obs.Tracer != nil {
		t.Error("tracer created without tracing config")
	}
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker(discardLogger())

	if s := h.CheckReady(context.Background()); s.Status != "ok" {
		t.Errorf("no checks should be ok, got %s", s.Status)
	}

	h.AddCheck("db", func(ctx context.Context) error { return nil })
	h.AddCheck("llm", func(ctx context.Context) error { return errors.New("down") })

	s := h.CheckReady(context.Background())
	if s.Status != "degraded" {
		t.Errorf("status = %s, want degraded", s.Status)
	}
	if s.Checks["db"].Status != "ok" || s.Checks["llm"].Status != "fail" {
		t.Errorf("checks = %+v", s.Checks)
	}

	if h.CheckHealth().Status != "ok" {
		t.Error("liveness should always be ok")
	}
}

func TestSelfMonitor_Confidence(t *testing.T) {
	m := NewSelfMonitor(discardLogger())

	if a := m.MonitorConfidence(0.3); a.Status != ConfidenceLow || a.Recommendation != "ask_for_clarification" {
		t.Errorf("low = %+v", a)
	}
	if a := m.MonitorConfidence(0.7); a.Status != ConfidenceModerate {
		t.Errorf("moderate = %+v", a)
	}
	if a := m.MonitorConfidence(0.9); a.Status != ConfidenceHigh {
		t.Errorf("high = %+v", a)
	}
}

func TestSelfMonitor_Understanding(t *testing.T) {
	m := NewSelfMonitor(discardLogger())

	if got := m.MonitorUnderstanding(false, false, false); got != UnderstandingLow {
		t.Errorf("no knowledge = %s", got)
	}
	if got := m.MonitorUnderstanding(true, false, false); got != UnderstandingPartial {
		t.Errorf("memory only = %s", got)
	}
	if got := m.MonitorUnderstanding(true, true, true); got != UnderstandingGood {
		t.Errorf("full = %s", got)
	}
}

func TestSelfMonitor_ShouldAskQuestion(t *testing.T) {
	m := NewSelfMonitor(discardLogger())

	if m.ShouldAskQuestion(0.2, UnderstandingLow, false) {
		t.Error("must not question strangers")
	}
	if !m.ShouldAskQuestion(0.2, UnderstandingGood, true) {
		t.Error("low confidence should ask")
	}
	if !m.ShouldAskQuestion(0.9, UnderstandingLow, true) {
		t.Error("low understanding should ask")
	}
	if m.ShouldAskQuestion(0.9, UnderstandingGood, true) {
		t.Error("confident and understood should not ask")
	}
}

func TestSelfMonitor_RecordsNilSafe(t *testing.T) {
	var m *SelfMonitor
	m.RecordError("op")
	m.RecordSuccess("op")

	real := NewSelfMonitor(discardLogger())
	for i := 0; i < 10; i++ {
		real.RecordError("llm_request")
	}
	real.RecordSuccess("llm_request")
}

type stubProvider struct {
	resp *llm.Response
	err  error
}

func (s *stubProvider) SendMessage(context.Context, *llm.Request) (*llm.Response, error) {
	return s.resp, s.err
}

func (s *stubProvider) Name() string { return "stub" }

func TestInstrumentedProvider(t *testing.T) {
	metrics := NewMetricsCollector()
	monitor := NewSelfMonitor(discardLogger())
	p := NewInstrumentedProvider(&stubProvider{resp: &llm.Response{
		Content: "ok",
		Usage:   llm.Usage{InputTokens: 5, OutputTokens: 7},
	}}, metrics, nil, monitor)

	if p.Name() != "stub" {
		t.Errorf("name = %q", p.Name())
	}
	resp, err := p.SendMessage(context.Background(), &llm.Request{})
	if err != nil || resp.Content != "ok" {
		t.Fatalf("resp = %+v err = %v", resp, err)
	}

	failing := NewInstrumentedProvider(&stubProvider{err: errors.New("down")}, metrics, nil, monitor)
	if _, err := failing.SendMessage(context.Background(), &llm.Request{}); err == nil {
		t.Fatal("expected error to propagate")
	}
}
