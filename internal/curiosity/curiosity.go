// Package curiosity implements Ali's drive to learn. A knowledge gap, a
// failed prediction, or a teaching cue from the creator raises the
// curiosity level; above a threshold the drive proposes a question.
package curiosity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/ckaya/ali/internal/memory"
	"github.com/ckaya/ali/internal/workspace"
)

// Threshold above which curiosity turns into a question.
const Threshold = 0.3

// UnknownType classifies what kind of gap was detected.
type UnknownType string

const (
	UnknownWord    UnknownType = "word"
	UnknownConcept UnknownType = "concept"
	UnknownReason  UnknownType = "reason"
	UnknownHow     UnknownType = "how"
	UnknownGeneral UnknownType = "general"
)

// Question is something Ali wants to ask.
type Question struct {
	Text           string
	Stimulus       string
	CuriosityLevel float64
	Type           UnknownType
}

// teachingWords signal a learning opportunity, in English and Turkish.
var teachingWords = []string{
	"learn", "teach", "understand", "know", "explain",
	"öğren", "bilmek", "anlamak", "anlat",
}

// ErrorSource reports how badly the last prediction missed. The
// prediction engine implements this.
type ErrorSource interface {
	PredictionError() float64
}

// Drive tracks curiosity and the questions it produces.
type Drive struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []Question
	asked   []Question
}

// NewDrive creates a curiosity drive.
func NewDrive(logger *slog.Logger) *Drive {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Drive{logger: logger}
}

// DetectUnknown scores how curious a stimulus should make Ali, in [0, 1].
// Missing memories and concepts each add 0.4, prediction error adds up to
// 0.5, question marks and teaching words 0.3 each.
func (d *Drive) DetectUnknown(stimulus string, hasMemory, hasConcept bool, predictionError float64) float64 {
	var level float64
	if !hasMemory {
		level += 0.4
	}
	if !hasConcept {
		level += 0.4
	}
	level += predictionError * 0.5
	if strings.Contains(stimulus, "?") {
		level += 0.3
	}
	lower := strings.ToLower(stimulus)
	for _, w := range teachingWords {
		if strings.Contains(lower, w) {
			level += 0.3
			break
		}
	}
	if level > 1 {
		level = 1
	}
	return level
}

// GenerateQuestion phrases a question about the stimulus.
func (d *Drive) GenerateQuestion(stimulus string, t UnknownType) string {
	switch t {
	case UnknownWord:
		return fmt.Sprintf("Father, what does %q mean?", stimulus)
	case UnknownConcept:
		return "Father, can you explain this topic to me?"
	case UnknownReason:
		return "Father, why is it like this?"
	case UnknownHow:
		return "Father, how does this work?"
	default:
		return "Father, I did not understand this, can you explain?"
	}
}

func (d *Drive) addPending(q Question) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, q)
}

// Pending returns the questions Ali still wants to ask.
func (d *Drive) Pending() []Question {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Question, len(d.pending))
	copy(out, d.pending)
	return out
}

// MarkAsked moves a question from pending to asked.
func (d *Drive) MarkAsked(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, q := range d.pending {
		if q.Text == text {
			d.asked = append(d.asked, q)
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			d.logger.Debug("question asked", slog.String("question", text))
			return
		}
	}
}

// Asked returns the questions already voiced.
func (d *Drive) Asked() []Question {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Question, len(d.asked))
	copy(out, d.asked)
	return out
}

// ClearPending drops all pending questions.
func (d *Drive) ClearPending() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
}

// Proposer speaks for curiosity in the workspace competition. It checks
// the memory stores for knowledge gaps and pulls the last prediction
// error from the error source.
type Proposer struct {
	drive           *Drive
	episodes        memory.EpisodeStore
	concepts        memory.ConceptStore
	consciousnessID string
	errors          ErrorSource
}

// NewProposer wires the drive to its knowledge sources. errors may be nil.
func NewProposer(drive *Drive, episodes memory.EpisodeStore, concepts memory.ConceptStore, consciousnessID string, errors ErrorSource) *Proposer {
	return &Proposer{
		drive:           drive,
		episodes:        episodes,
		concepts:        concepts,
		consciousnessID: consciousnessID,
		errors:          errors,
	}
}

var _ workspace.Proposer = (*Proposer)(nil)

// Name identifies this proposer in the arena.
func (p *Proposer) Name() string { return "curiosity" }

// Propose scores the stimulus for unknowns and, above the threshold,
// proposes asking a question. Below it the proposal is a quiet
// acknowledgement that the topic is understood.
func (p *Proposer) Propose(ctx context.Context, stim workspace.Stimulus) (*workspace.Thought, error) {
	hasMemory, hasConcept := p.knowledge(ctx, stim.Content)
	var predErr float64
	if p.errors != nil {
		predErr = p.errors.PredictionError()
	}

	level := p.drive.DetectUnknown(stim.Content, hasMemory, hasConcept, predErr)
	if level < Threshold {
		t := workspace.NewThought("curiosity", "I understand this well enough.", 0.1, 0.9).
			WithContext(map[string]any{"curious": false})
		return &t, nil
	}

	unknownType := UnknownGeneral
	switch {
	case !hasConcept && !hasMemory:
		unknownType = UnknownConcept
	case predErr > 0.5:
		unknownType = UnknownReason
	}

	topic := stim.Content
	if len(topic) > 50 {
		topic = topic[:50]
	}
	question := p.drive.GenerateQuestion(topic, unknownType)
	p.drive.addPending(Question{
		Text:           question,
		Stimulus:       stim.Content,
		CuriosityLevel: level,
		Type:           unknownType,
	})

	salience := level * 0.9
	content := "I am curious about this: " + question
	if stim.Privileged {
		// Father teaching carries extra pull.
		salience *= 1.4
		content = "My father is teaching me something, and I want to know more: " + question
	}
	if salience > 1 {
		salience = 1
	}

	t := workspace.NewThought("curiosity", content, salience, 0.8).
		WithEmotion("curiosity").
		WithContext(map[string]any{
			"curious":         true,
			"curiosity_level": level,
			"question":        question,
			"unknown_type":    string(unknownType),
		})
	return &t, nil
}

// knowledge checks whether Ali already holds memories or concepts about
// the stimulus. Store errors count as no knowledge; curiosity is the
// safe default.
func (p *Proposer) knowledge(ctx context.Context, content string) (hasMemory, hasConcept bool) {
	if p.episodes != nil {
		if eps, err := p.episodes.Search(ctx, p.consciousnessID, content, 1); err == nil && len(eps) > 0 {
			hasMemory = true
		}
	}
	if p.concepts != nil {
		if cs, err := p.concepts.Search(ctx, content, 1); err == nil && len(cs) > 0 {
			hasConcept = true
		}
	}
	return hasMemory, hasConcept
}
