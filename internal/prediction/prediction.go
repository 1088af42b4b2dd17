// Package prediction implements Ali's forward model. The world model
// learns regularities from experience, the engine turns them into
// expectations about what happens next, and verification failures feed
// surprise back into curiosity.
package prediction

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ckaya/ali/internal/workspace"
)

// Expected outcomes the world model can predict.
const (
	ExpectGreeting     = "greeting_response"
	ExpectAnswer       = "answer_required"
	ExpectLearning     = "learning_moment"
	ExpectConversation = "continue_conversation"
)

const (
	historyCap = 1000
	patternCap = 100
)

// Experience is one observed stimulus/response pair.
type Experience struct {
	Stimulus    string
	Response    string
	FromCreator bool
	Context     map[string]any
	Timestamp   time.Time
}

// Prediction is an expectation about what happens next.
type Prediction struct {
	Expected   string
	Confidence float64
	Reasoning  string
}

// CreatorModel collects observed patterns of the creator's behavior.
type CreatorModel struct {
	Greetings []string
	Questions []string
}

var greetingWords = []string{"merhaba", "selam", "günaydın", "hello", "good morning"}

// WorldModel is Ali's internal model of how interactions unfold. It
// learns patterns from experience and grounds predictions in them.
type WorldModel struct {
	logger *slog.Logger

	mu      sync.Mutex
	history []Experience
	creator CreatorModel
}

// NewWorldModel creates an empty world model.
func NewWorldModel(logger *slog.Logger) *WorldModel {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WorldModel{logger: logger}
}

// Observe updates the model with a new experience.
func (m *WorldModel) Observe(exp Experience) {
	if exp.Timestamp.IsZero() {
		exp.Timestamp = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, exp)
	if len(m.history) > historyCap {
		m.history = m.history[len(m.history)-historyCap:]
	}

	if exp.FromCreator {
		lower := strings.ToLower(exp.Stimulus)
		if containsAny(lower, greetingWords) {
			m.creator.Greetings = capAppend(m.creator.Greetings, exp.Stimulus)
		}
		if strings.Contains(exp.Stimulus, "?") || containsAny(lower, []string{"ne", "nasıl", "neden", "kim", "what", "why", "who"}) {
			m.creator.Questions = capAppend(m.creator.Questions, exp.Stimulus)
		}
	}
}

func capAppend(list []string, s string) []string {
	list = append(list, s)
	if len(list) > patternCap {
		list = list[len(list)-patternCap:]
	}
	return list
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// Predict expects what should follow the current context. Creator input
// carries stronger expectations than anonymous input.
func (m *WorldModel) Predict(current string, fromCreator bool) Prediction {
	lower := strings.ToLower(current)

	if fromCreator {
		switch {
		case containsAny(lower, greetingWords):
			return Prediction{Expected: ExpectGreeting, Confidence: 0.8, Reasoning: "a greeting from my father invites a greeting back"}
		case strings.Contains(current, "?"):
			return Prediction{Expected: ExpectAnswer, Confidence: 0.9, Reasoning: "my father asked a question, an answer is expected"}
		case containsAny(lower, []string{"öğren", "learn", "teach"}):
			return Prediction{Expected: ExpectLearning, Confidence: 0.7, Reasoning: "my father is teaching, I should learn and acknowledge"}
		}
	}

	return Prediction{Expected: ExpectConversation, Confidence: 0.5, Reasoning: "the conversation continues"}
}

// Creator returns a copy of the learned creator model.
func (m *WorldModel) Creator() CreatorModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := CreatorModel{
		Greetings: make([]string, len(m.creator.Greetings)),
		Questions: make([]string, len(m.creator.Questions)),
	}
	copy(out.Greetings, m.creator.Greetings)
	copy(out.Questions, m.creator.Questions)
	return out
}

// HistoryLen reports how many experiences the model holds.
func (m *WorldModel) HistoryLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// Verification is the result of checking a prediction against reality.
type Verification struct {
	ID       string
	Expected string
	Actual   string
	Match    bool
	// Surprise is zero on a match, otherwise grows with how confident
	// the missed prediction was.
	Surprise float64
}

type active struct {
	prediction Prediction
	context    string
	verified   bool
}

// Engine tracks active predictions and measures surprise when they miss.
type Engine struct {
	model  *WorldModel
	logger *slog.Logger

	mu      sync.Mutex
	active  map[string]*active
	seq     int
	lastErr float64
}

// NewEngine creates a prediction engine over the world model.
func NewEngine(model *WorldModel, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{model: model, logger: logger, active: make(map[string]*active)}
}

// PredictNext generates and registers a prediction for the current
// context. The returned ID verifies it later.
func (e *Engine) PredictNext(current string, fromCreator bool) (string, Prediction) {
	p := e.model.Predict(current, fromCreator)

	e.mu.Lock()
	defer e.mu.Unlock()
	id := fmt.Sprintf("pred_%d", e.seq)
	e.seq++
	e.active[id] = &active{prediction: p, context: current}

	e.logger.Debug("prediction made",
		slog.String("id", id),
		slog.String("expected", p.Expected),
		slog.Float64("confidence", p.Confidence))
	return id, p
}

// Verify checks a prediction against the actual outcome. A miss yields
// surprise proportional to the confidence that was wrong.
func (e *Engine) Verify(id, actual string) (Verification, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, ok := e.active[id]
	if !ok {
		return Verification{}, fmt.Errorf("prediction %s not found", id)
	}

	match := strings.Contains(strings.ToLower(actual), strings.ToLower(a.prediction.Expected))
	a.verified = true

	v := Verification{
		ID:       id,
		Expected: a.prediction.Expected,
		Actual:   actual,
		Match:    match,
	}
	if !match {
		v.Surprise = 1.0 - a.prediction.Confidence
	}
	e.lastErr = v.Surprise

	e.logger.Info("prediction verified",
		slog.String("id", id),
		slog.Bool("match", match),
		slog.Float64("surprise", v.Surprise))
	return v, nil
}

// PredictionError reports the surprise of the last verification. This
// feeds the curiosity drive.
func (e *Engine) PredictionError() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// ActiveCount reports how many predictions await verification or cleanup.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// Clear drops verified predictions; unverified ones stay active.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, a := range e.active {
		if a.verified {
			delete(e.active, id)
		}
	}
}

// Proposer speaks for predictive processing in the workspace. Its
// thoughts are less salient than direct stimuli.
type Proposer struct {
	engine *Engine
}

// NewProposer creates the prediction proposer.
func NewProposer(engine *Engine) *Proposer {
	return &Proposer{engine: engine}
}

var _ workspace.Proposer = (*Proposer)(nil)

// Name identifies this proposer in the arena.
func (p *Proposer) Name() string { return "prediction" }

// Propose registers a prediction for the stimulus and offers it as a
// thought, salience scaled down below direct perception.
func (p *Proposer) Propose(_ context.Context, stim workspace.Stimulus) (*workspace.Thought, error) {
	id, pred := p.engine.PredictNext(stim.Content, stim.Privileged)

	t := workspace.NewThought("prediction",
		fmt.Sprintf("I predict: %s. %s", pred.Expected, pred.Reasoning),
		pred.Confidence*0.6,
		pred.Confidence).
		WithContext(map[string]any{
			"prediction_id": id,
			"expected":      pred.Expected,
			"stimulus":      stim.Content,
		})
	return &t, nil
}
