package postgres

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ckaya/ali/internal/memory"
)

// EpisodeModel is the GORM model for episodic memories. List and map
// fields are stored as JSON text so the same model works on both SQLite
// and PostgreSQL.
type EpisodeModel struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConsciousnessID    string    `gorm:"index;not null"`
	Content            string    `gorm:"not null"`
	Summary            string
	Participants       string // JSON array.
	ContextType        string `gorm:"index"`
	Emotions           string // JSON object emotion → intensity.
	EmotionalIntensity float64
	Importance         float64 `gorm:"index"`
	Tags               string  // JSON array.
	LearnedConcepts    string  // JSON array.
	RecallCount        int64
	LastRecalledAt     *time.Time
	OccurredAt         time.Time `gorm:"index;not null"`
	CreatedAt          time.Time
}

// TableName overrides GORM's pluralization.
func (EpisodeModel) TableName() string { return "episodic_memories" }

func episodeToModel(e *memory.Episode) *EpisodeModel {
	m := &EpisodeModel{
		ID:                 e.ID,
		ConsciousnessID:    e.ConsciousnessID,
		Content:            e.Content,
		Summary:            e.Summary,
		Participants:       encodeJSON(e.Participants),
		ContextType:        e.ContextType,
		Emotions:           encodeJSON(e.Emotions),
		EmotionalIntensity: e.EmotionalIntensity,
		Importance:         e.Importance,
		Tags:               encodeJSON(e.Tags),
		LearnedConcepts:    encodeJSON(e.LearnedConcepts),
		RecallCount:        e.RecallCount,
		OccurredAt:         e.OccurredAt,
	}
	if !e.LastRecalledAt.IsZero() {
		t := e.LastRecalledAt
		m.LastRecalledAt = &t
	}
	return m
}

func episodeFromModel(m *EpisodeModel) memory.Episode {
	e := memory.Episode{
		ID:                 m.ID,
		ConsciousnessID:    m.ConsciousnessID,
		Content:            m.Content,
		Summary:            m.Summary,
		ContextType:        m.ContextType,
		EmotionalIntensity: m.EmotionalIntensity,
		Importance:         m.Importance,
		RecallCount:        m.RecallCount,
		OccurredAt:         m.OccurredAt,
	}
	decodeJSON(m.Participants, &e.Participants)
	decodeJSON(m.Emotions, &e.Emotions)
	decodeJSON(m.Tags, &e.Tags)
	decodeJSON(m.LearnedConcepts, &e.LearnedConcepts)
	if m.LastRecalledAt != nil {
		e.LastRecalledAt = *m.LastRecalledAt
	}
	return e
}

// ConceptModel is the GORM model for semantic knowledge.
type ConceptModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"uniqueIndex;not null"`
	Definition  string
	LearnedFrom string
	Confidence  float64
	UseCount    int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ConceptModel) TableName() string { return "concepts" }

func conceptToModel(c *memory.Concept) *ConceptModel {
	return &ConceptModel{
		ID:          c.ID,
		Name:        c.Name,
		Definition:  c.Definition,
		LearnedFrom: c.LearnedFrom,
		Confidence:  c.Confidence,
		UseCount:    c.UseCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func conceptFromModel(m *ConceptModel) memory.Concept {
	return memory.Concept{
		ID:          m.ID,
		Name:        m.Name,
		Definition:  m.Definition,
		LearnedFrom: m.LearnedFrom,
		Confidence:  m.Confidence,
		UseCount:    m.UseCount,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

// ExchangeModel is the GORM model for the conversation log.
type ExchangeModel struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	ConsciousnessID string    `gorm:"index;not null"`
	Speaker         string
	Privileged      bool
	Input           string
	Reply           string
	Emotion         string
	OccurredAt      time.Time `gorm:"index;not null"`
}

func (ExchangeModel) TableName() string { return "exchanges" }

func exchangeToModel(e *memory.Exchange) *ExchangeModel {
	return &ExchangeModel{
		ID:              e.ID,
		ConsciousnessID: e.ConsciousnessID,
		Speaker:         e.Speaker,
		Privileged:      e.Privileged,
		Input:           e.Input,
		Reply:           e.Reply,
		Emotion:         e.Emotion,
		OccurredAt:      e.OccurredAt,
	}
}

func exchangeFromModel(m *ExchangeModel) memory.Exchange {
	return memory.Exchange{
		ID:              m.ID,
		ConsciousnessID: m.ConsciousnessID,
		Speaker:         m.Speaker,
		Privileged:      m.Privileged,
		Input:           m.Input,
		Reply:           m.Reply,
		Emotion:         m.Emotion,
		OccurredAt:      m.OccurredAt,
	}
}

func encodeJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func decodeJSON(s string, out any) {
	if s == "" {
		return
	}
	_ = json.Unmarshal([]byte(s), out)
}
