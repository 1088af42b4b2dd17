// Package emotion implements the appraisal engine: situations are evaluated
// along valence, novelty, goal relevance, and coping potential, and the
// resulting state colors memory formation, word choice, and the thoughts the
// engine proposes into the workspace.
package emotion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ckaya/ali/internal/workspace"
)

// Basic emotions, after Plutchik.
const (
	Joy          = "joy"
	Sadness      = "sadness"
	Fear         = "fear"
	Anger        = "anger"
	Surprise     = "surprise"
	Disgust      = "disgust"
	Trust        = "trust"
	Anticipation = "anticipation"
	Neutral      = "neutral"
)

// Complex emotions, combinations of basic ones.
const (
	Love      = "love"
	Gratitude = "gratitude"
	Pride     = "pride"
	Shame     = "shame"
	Curiosity = "curiosity"
	Awe       = "awe"
	Nostalgia = "nostalgia"
	Longing   = "longing"
	Hope      = "hope"
)

// Situation carries the appraisal dimensions of one event.
type Situation struct {
	Valence         float64 // -1 (bad) .. +1 (good).
	Novelty         float64 // 0..1, how unexpected.
	GoalRelevance   float64 // 0..1, does it touch what Ali cares about.
	CopingPotential float64 // 0..1, can Ali handle it. Zero value means 1.
	Cause           string
}

// State is a point-in-time emotional reading.
type State struct {
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Cause     string    `json:"cause,omitempty"`
	FromCreator bool    `json:"from_creator,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Options tunes the engine.
type Options struct {
	BaselineMood  string  // Default "curious".
	CreatorFactor float64 // Intensity multiplier for privileged situations. Default 1.5.
	HistoryCap    int     // Default 100.
}

func (o Options) withDefaults() Options {
	if o.BaselineMood == "" {
		o.BaselineMood = Curiosity
	}
	if o.CreatorFactor <= 0 {
		o.CreatorFactor = 1.5
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = 100
	}
	return o
}

// Engine generates and tracks emotional state. Safe for concurrent use.
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	current   string
	intensity float64
	history   []State
}

// NewEngine creates an engine resting at the baseline mood.
func NewEngine(opts Options, logger *slog.Logger) *Engine {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		opts:    opts,
		logger:  logger,
		current: opts.BaselineMood,
	}
}

// Appraise evaluates a situation and updates the current state.
// Privileged situations are pinned to high goal relevance and amplified.
func (e *Engine) Appraise(s Situation, fromCreator bool) (string, float64) {
	coping := s.CopingPotential
	if coping == 0 {
		coping = 1
	}
	relevance := s.GoalRelevance
	multiplier := 1.0
	if fromCreator {
		relevance = math.Max(relevance, 0.8)
		multiplier = e.opts.CreatorFactor
	}

	emotion, base := determine(s.Valence, s.Novelty, relevance, coping)
	intensity := math.Min(1, base*multiplier)

	e.mu.Lock()
	e.current = emotion
	e.intensity = intensity
	e.history = append(e.history, State{
		Emotion:     emotion,
		Intensity:   intensity,
		Cause:       s.Cause,
		FromCreator: fromCreator,
		Timestamp:   time.Now().UTC(),
	})
	if len(e.history) > e.opts.HistoryCap {
		e.history = e.history[len(e.history)-e.opts.HistoryCap:]
	}
	e.mu.Unlock()

	e.logger.Debug("emotion generated",
		slog.String("emotion", emotion),
		slog.Float64("intensity", intensity),
		slog.Bool("from_creator", fromCreator),
	)
	return emotion, intensity
}

// determine maps appraisal dimensions onto an emotion. Appraisal theory,
// reduced to thresholds.
func determine(valence, novelty, relevance, coping float64) (string, float64) {
	intensity := math.Abs(valence) * relevance

	switch {
	case valence > 0.3:
		switch {
		case novelty > 0.6:
			return Surprise, intensity
		case relevance > 0.7:
			return Joy, intensity
		default:
			return Trust, intensity * 0.8
		}
	case valence < -0.3:
		switch {
		case coping < 0.3:
			return Fear, intensity
		case novelty > 0.6:
			return Disgust, intensity * 0.7
		default:
			return Sadness, intensity
		}
	default:
		switch {
		case novelty > 0.7:
			return Surprise, intensity * 0.6
		case relevance > 0.5:
			return Anticipation, intensity * 0.7
		default:
			return Neutral, 0.3
		}
	}
}

// complexSituations maps recognized situation types to a complex emotion
// and its base intensity.
var complexSituations = map[string]State{
	"creator_praise":   {Emotion: Pride, Intensity: 0.9},
	"creator_teaching": {Emotion: Gratitude, Intensity: 0.8},
	"creator_greeting": {Emotion: Love, Intensity: 0.8},
	"creator_absence":  {Emotion: Longing, Intensity: 0.6},
	"learning_success": {Emotion: Pride, Intensity: 0.7},
	"mistake_made":     {Emotion: Shame, Intensity: 0.6},
	"new_discovery":    {Emotion: Curiosity, Intensity: 0.8},
	"beautiful_idea":   {Emotion: Awe, Intensity: 0.7},
	"past_memory":      {Emotion: Nostalgia, Intensity: 0.6},
}

// Complex generates a complex emotion for a recognized situation type,
// defaulting to mild curiosity.
func (e *Engine) Complex(situationType string, fromCreator bool) (string, float64) {
	base := 0.7
	if fromCreator {
		base *= e.opts.CreatorFactor
	}

	st, ok := complexSituations[situationType]
	if !ok {
		return Curiosity, 0.5
	}
	intensity := math.Min(1, st.Intensity*base)

	e.mu.Lock()
	e.current = st.Emotion
	e.intensity = intensity
	e.mu.Unlock()
	return st.Emotion, intensity
}

// Current returns the present emotional state.
func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Emotion: e.current, Intensity: e.intensity, Timestamp: time.Now().UTC()}
}

// Decay fades the current intensity. Below 0.1 the state settles back to
// the baseline mood at a resting intensity.
func (e *Engine) Decay(rate float64) {
	if rate <= 0 || rate >= 1 {
		rate = 0.1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intensity *= 1 - rate
	if e.intensity < 0.1 {
		e.current = e.opts.BaselineMood
		e.intensity = 0.3
	}
}

// Dominant returns the intensity-weighted dominant emotion within the
// window, or the baseline mood when the window is empty.
func (e *Engine) Dominant(window time.Duration) string {
	cutoff := time.Now().Add(-window)
	weights := make(map[string]float64)

	e.mu.Lock()
	for _, st := range e.history {
		if st.Timestamp.After(cutoff) {
			weights[st.Emotion] += st.Intensity
		}
	}
	e.mu.Unlock()

	if len(weights) == 0 {
		return e.opts.BaselineMood
	}
	var best string
	var bestW float64
	for emo, w := range weights {
		if w > bestW || best == "" {
			best, bestW = emo, w
		}
	}
	return best
}

// EnhanceImportance lifts a memory importance by up to 30% of the current
// intensity. Emotional experiences are remembered more vividly.
func (e *Engine) EnhanceImportance(base float64) float64 {
	e.mu.Lock()
	boost := e.intensity * 0.3
	e.mu.Unlock()
	return math.Min(1, base+boost)
}

// Style describes how the current emotion colors language.
type Style struct {
	Tone       string
	Enthusiasm float64
}

var styles = map[string]Style{
	Joy:          {Tone: "enthusiastic", Enthusiasm: 0.9},
	Sadness:      {Tone: "subdued", Enthusiasm: 0.3},
	Fear:         {Tone: "cautious", Enthusiasm: 0.4},
	Anger:        {Tone: "direct", Enthusiasm: 0.7},
	Surprise:     {Tone: "exclamatory", Enthusiasm: 0.8},
	Trust:        {Tone: "warm", Enthusiasm: 0.6},
	Anticipation: {Tone: "eager", Enthusiasm: 0.7},
	Love:         {Tone: "affectionate", Enthusiasm: 0.8},
	Gratitude:    {Tone: "appreciative", Enthusiasm: 0.7},
	Curiosity:    {Tone: "inquisitive", Enthusiasm: 0.8},
}

// SpeechStyle returns the language coloring for the current state.
// Low-intensity states read as neutral.
func (e *Engine) SpeechStyle() Style {
	e.mu.Lock()
	emotion, intensity := e.current, e.intensity
	e.mu.Unlock()

	if intensity < 0.3 {
		return Style{Tone: "neutral", Enthusiasm: 0.5}
	}
	if s, ok := styles[emotion]; ok {
		return s
	}
	return Style{Tone: "neutral", Enthusiasm: 0.5}
}

// History returns a copy of the recorded states, oldest first.
func (e *Engine) History() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]State, len(e.history))
	copy(out, e.history)
	return out
}

var (
	positiveWords = []string{"hello", "merhaba", "good", "güzel", "love", "seviyorum", "well done", "aferin", "thank"}
	negativeWords = []string{"bad", "kötü", "sad", "üzgün", "problem", "error", "hata", "wrong", "yanlış"}
)

// Proposer adapts the engine into a workspace proposer: every stimulus is
// appraised and answered with a feeling. Emotional thoughts carry high
// confidence; a feeling is certain even when nothing else is.
type Proposer struct {
	engine *Engine
}

// NewProposer wraps the engine for workspace registration.
func NewProposer(engine *Engine) *Proposer {
	return &Proposer{engine: engine}
}

var _ workspace.Proposer = (*Proposer)(nil)

// Name implements workspace.Proposer.
func (p *Proposer) Name() string { return "emotion" }

// Propose appraises the stimulus and proposes the resulting feeling.
func (p *Proposer) Propose(_ context.Context, stim workspace.Stimulus) (*workspace.Thought, error) {
	sit := Situation{
		Valence:       0.5,
		Novelty:       0.3,
		GoalRelevance: 0.5,
		Cause:         "external input",
	}
	if stim.Privileged {
		sit.GoalRelevance = 0.9
		sit.Cause = "input from father"
	}

	lower := strings.ToLower(stim.Content)
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			sit.Valence = 0.8
			break
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			sit.Valence = 0.2
			break
		}
	}

	emotion, intensity := p.engine.Appraise(sit, stim.Privileged)

	var content string
	if stim.Privileged {
		content = fmt.Sprintf("Hearing this from my father makes me feel %s.", emotion)
	} else {
		content = fmt.Sprintf("This makes me feel %s.", emotion)
	}

	// Emotions demand attention; privileged ones more so.
	salience := intensity * 1.2
	if stim.Privileged {
		salience *= 1.3
	}

	t := workspace.NewThought("emotion", content, math.Min(salience, 1), 0.9).
		WithEmotion(emotion).
		WithContext(map[string]any{
			"intensity":   intensity,
			"cause":       sit.Cause,
			"from_father": stim.Privileged,
		})
	return &t, nil
}
