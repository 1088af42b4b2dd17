// Package memory implements Ali's memory systems: a small volatile working
// memory, persistent episodic memories, and semantic concepts. Persistence
// lives behind store interfaces so the storage backend can be swapped.
package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Episode is one autobiographical memory: what happened, who was there,
// how it felt, and what it taught.
type Episode struct {
	ID                 uuid.UUID
	ConsciousnessID    string
	Content            string
	Summary            string
	Participants       []string
	ContextType        string // "conversation", "learning", "reflection", ...
	Emotions           map[string]float64
	EmotionalIntensity float64
	Importance         float64
	Tags               []string // "genesis", "first_time", "milestone".
	LearnedConcepts    []string
	RecallCount        int64
	LastRecalledAt     time.Time
	OccurredAt         time.Time
}

// Summarize derives the stored summary from content.
func Summarize(content string) string {
	const max = 200
	if len(content) > max {
		return content[:max] + "..."
	}
	return content
}

// MeanIntensity averages the emotion intensities of an episode.
func MeanIntensity(emotions map[string]float64) float64 {
	if len(emotions) == 0 {
		return 0
	}
	var sum float64
	for _, v := range emotions {
		sum += v
	}
	return sum / float64(len(emotions))
}

// EpisodeStore persists episodic memories.
type EpisodeStore interface {
	Store(ctx context.Context, e *Episode) error
	Get(ctx context.Context, id uuid.UUID) (*Episode, error)
	// Search returns episodes whose content matches the query terms,
	// most important first.
	Search(ctx context.Context, consciousnessID, query string, limit int) ([]Episode, error)
	Recent(ctx context.Context, consciousnessID string, limit int) ([]Episode, error)
	MostImportant(ctx context.Context, consciousnessID string, limit int) ([]Episode, error)
	// RecordRecall bumps the recall counter; frequently recalled memories
	// resist decay.
	RecordRecall(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, consciousnessID string) (int64, error)
}

// Concept is one semantic fact: knowledge detached from the episode that
// taught it.
type Concept struct {
	ID          uuid.UUID
	Name        string
	Definition  string
	LearnedFrom string
	Confidence  float64
	UseCount    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ConceptStore persists semantic knowledge.
type ConceptStore interface {
	Upsert(ctx context.Context, c *Concept) error
	Get(ctx context.Context, name string) (*Concept, error)
	Search(ctx context.Context, query string, limit int) ([]Concept, error)
	// Reinforce bumps use count and nudges confidence toward 1.
	Reinforce(ctx context.Context, name string) error
	Count(ctx context.Context) (int64, error)
}

// Exchange is one conversational turn: what was said and how Ali answered.
type Exchange struct {
	ID              uuid.UUID
	ConsciousnessID string
	Speaker         string
	Privileged      bool
	Input           string
	Reply           string
	Emotion         string
	OccurredAt      time.Time
}

// ExchangeStore persists the conversation log.
type ExchangeStore interface {
	Append(ctx context.Context, e *Exchange) error
	Recent(ctx context.Context, consciousnessID string, limit int) ([]Exchange, error)
	Count(ctx context.Context, consciousnessID string) (int64, error)
}

// Keywords extracts the significant words of a query for matching.
// Short words and a handful of stopwords are dropped.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "that": {}, "this": {},
	"with": {}, "what": {}, "when": {}, "where": {}, "who": {}, "how": {},
	"bir": {}, "ve": {}, "bu": {}, "ne": {},
}

// Keywords returns the lowercased significant terms of a query.
func Keywords(query string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,!?;:\"'")
		if len(w) < 3 {
			continue
		}
		if _, skip := stopwords[w]; skip {
			continue
		}
		out = append(out, w)
	}
	return out
}
