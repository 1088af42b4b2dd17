package observability

import (
	"log/slog"
	"sync"
	"time"
)

// Confidence assessment levels.
const (
	ConfidenceLow      = "low_confidence"
	ConfidenceModerate = "moderate_confidence"
	ConfidenceHigh     = "high_confidence"
)

// Understanding levels.
const (
	UnderstandingLow     = "low"
	UnderstandingPartial = "partial"
	UnderstandingGood    = "good"
)

const (
	confidenceThreshold = 0.6
	monitorWindow       = 5 * time.Minute
	errorRateThreshold  = 0.5
)

// SelfMonitor is the mind watching itself: confidence in its own
// thoughts, how well it understands the current topic, and whether its
// subsystems are failing more often than they should.
type SelfMonitor struct {
	logger *slog.Logger

	mu        sync.Mutex
	errors    map[string]*slidingWindow
	successes map[string]*slidingWindow
}

// NewSelfMonitor creates the monitor.
func NewSelfMonitor(logger *slog.Logger) *SelfMonitor {
	return &SelfMonitor{
		logger:    logger,
		errors:    make(map[string]*slidingWindow),
		successes: make(map[string]*slidingWindow),
	}
}

// Assessment is the result of monitoring one dimension of the mind.
type Assessment struct {
	Status         string
	Recommendation string
}

// MonitorConfidence classifies a confidence score and recommends how to
// proceed. Low confidence should turn into a clarifying question.
func (s *SelfMonitor) MonitorConfidence(confidence float64) Assessment {
	switch {
	case confidence < confidenceThreshold:
		return Assessment{Status: ConfidenceLow, Recommendation: "ask_for_clarification"}
	case confidence < 0.8:
		return Assessment{Status: ConfidenceModerate, Recommendation: "proceed_cautiously"}
	default:
		return Assessment{Status: ConfidenceHigh, Recommendation: "proceed"}
	}
}

// MonitorUnderstanding scores how well the current topic is understood
// from what the memory systems and the predictor report.
func (s *SelfMonitor) MonitorUnderstanding(hasMemory, hasConcept, predictionMatched bool) string {
	var score float64
	if hasMemory {
		score += 0.3
	}
	if hasConcept {
		score += 0.4
	}
	if predictionMatched {
		score += 0.3
	}

	switch {
	case score < 0.3:
		return UnderstandingLow
	case score < 0.7:
		return UnderstandingPartial
	default:
		return UnderstandingGood
	}
}

// ShouldAskQuestion decides whether uncertainty warrants asking the
// creator. Questions only go to the creator.
func (s *SelfMonitor) ShouldAskQuestion(confidence float64, understanding string, fromCreator bool) bool {
	if !fromCreator {
		return false
	}
	return confidence < confidenceThreshold || understanding == UnderstandingLow
}

// RecordError records a failed operation for failure-rate tracking.
func (s *SelfMonitor) RecordError(operation string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateWindow(s.errors, operation).add(1)
	s.checkErrorRate(operation)
}

// RecordSuccess records a successful operation.
func (s *SelfMonitor) RecordSuccess(operation string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.getOrCreateWindow(s.successes, operation).add(1)
}

// checkErrorRate warns when an operation fails more than half the time.
// Must be called with s.mu held.
func (s *SelfMonitor) checkErrorRate(operation string) {
	errors := s.getOrCreateWindow(s.errors, operation).sum()
	successes := s.getOrCreateWindow(s.successes, operation).sum()
	total := errors + successes

	if total < 5 {
		return // Not enough data.
	}

	rate := errors / total
	if rate > errorRateThreshold && s.logger != nil {
		s.logger.Warn("self-monitoring: high failure rate",
			slog.String("operation", operation),
			slog.Float64("error_rate", rate),
			slog.Float64("errors", errors),
			slog.Float64("total", total),
		)
	}
}

func (s *SelfMonitor) getOrCreateWindow(m map[string]*slidingWindow, key string) *slidingWindow {
	w, ok := m[key]
	if !ok {
		w = &slidingWindow{window: monitorWindow}
		m[key] = w
	}
	return w
}

type slidingWindow struct {
	entries []windowEntry
	window  time.Duration
}

type windowEntry struct {
	timestamp time.Time
	value     float64
}

// add appends a value and prunes expired entries.
func (w *slidingWindow) add(value float64) {
	now := time.Now()
	w.entries = append(w.entries, windowEntry{timestamp: now, value: value})
	w.prune(now)
}

// sum returns the total value within the window.
func (w *slidingWindow) sum() float64 {
	w.prune(time.Now())
	var total float64
	for _, e := range w.entries {
		total += e.value
	}
	return total
}

func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.entries) && w.entries[i].timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = w.entries[i:]
	}
}
