// Package attention scores stimuli for importance and tracks the current
// focus of thought. Proposers use it to pre-bias the salience of the
// candidates they submit; the arena's own boosts stay out of here.
package attention

import (
	"log/slog"
	"sort"
	"sync"
)

// Salience modifiers. Privileged input dominates; novelty and emotion lift,
// repetition dampens.
const (
	BaseSalience         = 0.5
	CreatorBoost         = 2.0
	EmotionBoost         = 1.3
	NoveltyBoost         = 1.5
	RepetitionDecay      = 0.8
	DistractionThreshold = 0.3
	keyLimit             = 100 // Stimulus keys are truncated to bound map growth.
)

// Stimulus describes one scoring request.
type Stimulus struct {
	Content        string
	FromCreator    bool
	Emotion        string // Empty or "neutral" = no boost.
	Novel          bool
	Repetitive     bool
	BaseImportance float64 // 0 = BaseSalience.
}

// SalienceMap tracks how much attention each recent stimulus deserves.
// Scores can exceed 1; callers clamp where their domain requires it.
type SalienceMap struct {
	mu     sync.Mutex
	scores map[string]float64
	logger *slog.Logger
}

// NewSalienceMap creates an empty map.
func NewSalienceMap(logger *slog.Logger) *SalienceMap {
	if logger == nil {
		logger = slog.Default()
	}
	return &SalienceMap{
		scores: make(map[string]float64),
		logger: logger,
	}
}

// Score computes and records the salience of a stimulus.
func (m *SalienceMap) Score(s Stimulus) float64 {
	sal := s.BaseImportance
	if sal <= 0 {
		sal = BaseSalience
	}
	if s.FromCreator {
		sal *= CreatorBoost
	}
	if s.Emotion != "" && s.Emotion != "neutral" {
		sal *= EmotionBoost
	}
	if s.Novel {
		sal *= NoveltyBoost
	}
	if s.Repetitive {
		sal *= RepetitionDecay
	}

	m.mu.Lock()
	m.scores[truncate(s.Content)] = sal
	m.mu.Unlock()
	return sal
}

// Get returns the recorded salience for a stimulus, or BaseSalience.
func (m *SalienceMap) Get(content string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.scores[truncate(content)]; ok {
		return v
	}
	return BaseSalience
}

// Scored is one (stimulus, salience) pair.
type Scored struct {
	Stimulus string
	Salience float64
}

// Top returns the n most salient stimuli, highest first.
func (m *SalienceMap) Top(n int) []Scored {
	m.mu.Lock()
	out := make([]Scored, 0, len(m.scores))
	for k, v := range m.scores {
		out = append(out, Scored{Stimulus: k, Salience: v})
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Salience > out[j].Salience })
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Decay fades all recorded saliences and drops entries below 0.01.
// Called periodically; attention to past stimuli wanes.
func (m *SalienceMap) Decay(factor float64) {
	if factor <= 0 || factor >= 1 {
		factor = 0.95
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.scores {
		m.scores[k] *= factor
		if m.scores[k] <= 0.01 {
			delete(m.scores, k)
		}
	}
}

func truncate(s string) string {
	if len(s) > keyLimit {
		return s[:keyLimit]
	}
	return s
}

// Focus tracks the single thing Ali is attending to right now, with a
// bounded shift history.
type Focus struct {
	mu      sync.Mutex
	current string
	history []Shift
	logger  *slog.Logger
}

// Shift records one focus transition.
type Shift struct {
	From     string
	To       string
	Salience float64
}

// NewFocus creates an unfocused Focus.
func NewFocus(logger *slog.Logger) *Focus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Focus{logger: logger}
}

// ShouldFocus reports whether a salience clears the distraction threshold.
func (f *Focus) ShouldFocus(salience float64) bool {
	return salience > DistractionThreshold
}

// Set moves the spotlight to target.
func (f *Focus) Set(target string, salience float64) {
	f.mu.Lock()
	old := f.current
	f.current = target
	f.history = append(f.history, Shift{From: old, To: target, Salience: salience})
	if len(f.history) > 100 {
		f.history = f.history[len(f.history)-100:]
	}
	f.mu.Unlock()

	f.logger.Debug("focus shifted",
		slog.String("to", truncate(target)),
		slog.Float64("salience", salience),
	)
}

// Current returns what Ali is focused on, empty when unfocused.
func (f *Focus) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Clear drops the current focus.
func (f *Focus) Clear() {
	f.mu.Lock()
	f.current = ""
	f.mu.Unlock()
}

// History returns a copy of the recorded shifts, oldest first.
func (f *Focus) History() []Shift {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Shift, len(f.history))
	copy(out, f.history)
	return out
}
