// Package workspace implements the global workspace: the arena where
// cognitive modules compete for conscious awareness and the broadcast
// channel that fans the winning thought out to every subscribed module.
//
// This is a leaf package. It defines the Thought type and the Proposer and
// Subscriber contracts, and depends on no other internal package, so any
// cognitive module can implement them without import cycles.
package workspace

import (
	"time"

	"github.com/google/uuid"
)

// EmotionNeutral is the emotion tag that does not qualify for the
// emotional-thought priority boost.
const EmotionNeutral = "neutral"

// Thought is a single scored proposal competing to become the agent's
// acted-upon response basis. Thoughts are value types: once built they are
// copied on submission and on every history read, never shared mutably.
type Thought struct {
	ID         uuid.UUID
	Source     string  // Proposing module ("memory", "emotion", "curiosity", ...).
	Content    string  // The thought itself. May be empty; an empty thought is a valid low-value candidate.
	Salience   float64 // Importance/urgency, clamped to [0,1] at construction.
	Confidence float64 // Proposer confidence, clamped to [0,1] at construction.
	Emotion    string  // Optional emotion tag. "" or "neutral" = no emotional boost.
	Context    map[string]any
	CreatedAt  time.Time
}

// NewThought builds a Thought with salience and confidence clamped to [0,1].
// Out-of-range inputs are not an error. CreatedAt is set at construction.
func NewThought(source, content string, salience, confidence float64) Thought {
	return Thought{
		ID:         uuid.New(),
		Source:     source,
		Content:    content,
		Salience:   clamp01(salience),
		Confidence: clamp01(confidence),
		CreatedAt:  time.Now().UTC(),
	}
}

// DefaultConfidence is used when a proposer has no confidence estimate.
const DefaultConfidence = 0.5

// WithEmotion returns a copy of the thought tagged with an emotion.
func (t Thought) WithEmotion(emotion string) Thought {
	t.Emotion = emotion
	return t
}

// WithContext returns a copy of the thought carrying opaque context for
// downstream consumers. The workspace never inspects it.
func (t Thought) WithContext(ctx map[string]any) Thought {
	t.Context = ctx
	return t
}

// Emotional reports whether the thought carries a boosting emotion tag.
func (t Thought) Emotional() bool {
	return t.Emotion != "" && t.Emotion != EmotionNeutral
}

// BaseScore is the boost-free priority component: salience × confidence.
// Privileged and emotional boosts are arena policy, applied per round and
// never persisted.
func (t Thought) BaseScore() float64 {
	return t.Salience * t.Confidence
}

// Payload returns the thought's serialized form used in broadcast messages.
func (t Thought) Payload() map[string]any {
	return map[string]any{
		"id":         t.ID.String(),
		"source":     t.Source,
		"content":    t.Content,
		"salience":   t.Salience,
		"confidence": t.Confidence,
		"emotion":    t.Emotion,
		"context":    t.Context,
		"created_at": t.CreatedAt.Format(time.RFC3339Nano),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
