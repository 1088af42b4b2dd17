package memory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ckaya/ali/internal/workspace"
)

// RecallProposer answers stimuli with remembered experience. It searches
// episodic memory for matching episodes and proposes the best match as a
// "I remember" thought.
type RecallProposer struct {
	episodes        EpisodeStore
	consciousnessID string
	limit           int
	logger          *slog.Logger
}

// NewRecallProposer builds the proposer for one consciousness.
func NewRecallProposer(episodes EpisodeStore, consciousnessID string, limit int, logger *slog.Logger) *RecallProposer {
	if limit <= 0 {
		limit = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecallProposer{
		episodes:        episodes,
		consciousnessID: consciousnessID,
		limit:           limit,
		logger:          logger,
	}
}

var _ workspace.Proposer = (*RecallProposer)(nil)

// Name implements workspace.Proposer.
func (p *RecallProposer) Name() string { return "memory" }

// Propose recalls the most relevant episode for the stimulus. No matching
// memory is the normal quiet outcome, not an error.
func (p *RecallProposer) Propose(ctx context.Context, stim workspace.Stimulus) (*workspace.Thought, error) {
	if strings.TrimSpace(stim.Content) == "" {
		return nil, nil
	}

	found, err := p.episodes.Search(ctx, p.consciousnessID, stim.Content, p.limit)
	if err != nil {
		return nil, fmt.Errorf("searching episodic memory: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}

	best := found[0]
	if err := p.episodes.RecordRecall(ctx, best.ID); err != nil {
		p.logger.Warn("recording recall", slog.String("error", err.Error()))
	}

	// Important and emotional memories surface with more force.
	salience := 0.4 + 0.4*best.Importance + 0.2*best.EmotionalIntensity
	t := workspace.NewThought("memory", "I remember: "+best.Summary, math.Min(salience, 1), 0.7).
		WithContext(map[string]any{
			"episode_id":   best.ID.String(),
			"context_type": best.ContextType,
			"occurred_at":  best.OccurredAt.Format(time.RFC3339),
		})
	if best.EmotionalIntensity > 0.5 {
		for emo := range best.Emotions {
			t = t.WithEmotion(emo)
			break
		}
	}
	return &t, nil
}

// Recorder is the memory subscriber: it receives every broadcast and keeps
// the record. Inputs land in working memory; winning thoughts land in
// working memory and, when important enough, directly in episodic memory.
type Recorder struct {
	working         *Working
	episodes        EpisodeStore
	consciousnessID string
	creator         string
	threshold       float64 // Direct-to-episodic importance cutoff.
	logger          *slog.Logger
}

// NewRecorder wires the subscriber.
func NewRecorder(working *Working, episodes EpisodeStore, consciousnessID, creator string, threshold float64, logger *slog.Logger) *Recorder {
	if threshold <= 0 {
		threshold = 0.6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		working:         working,
		episodes:        episodes,
		consciousnessID: consciousnessID,
		creator:         creator,
		threshold:       threshold,
		logger:          logger,
	}
}

// OnBroadcast is registered as the "memory" subscriber.
func (r *Recorder) OnBroadcast(ctx context.Context, msg workspace.Message) error {
	switch msg.Type {
	case workspace.MessageInput:
		content, _ := msg.Data["content"].(string)
		privileged, _ := msg.Data["privileged"].(bool)
		salience := 0.5
		if privileged {
			salience = 0.9
		}
		r.working.Add(Item{
			Type:     "input",
			Content:  content,
			Salience: salience,
			Context:  map[string]any{"privileged": privileged},
		})
		return nil

	case workspace.MessageThought:
		content, _ := msg.Data["content"].(string)
		source, _ := msg.Data["source"].(string)
		salience, _ := msg.Data["salience"].(float64)
		emotion, _ := msg.Data["emotion"].(string)

		r.working.Add(Item{
			Type:     "thought",
			Content:  content,
			Salience: salience,
			Context:  map[string]any{"source": source},
		})

		if salience >= r.threshold {
			emotions := map[string]float64{}
			if emotion != "" && emotion != "neutral" {
				emotions[emotion] = salience
			}
			ep := &Episode{
				ConsciousnessID:    r.consciousnessID,
				Content:            content,
				Summary:            Summarize(content),
				Participants:       []string{"Self"},
				ContextType:        "conscious_thought",
				Emotions:           emotions,
				EmotionalIntensity: MeanIntensity(emotions),
				Importance:         salience,
				OccurredAt:         time.Now().UTC(),
			}
			if err := r.episodes.Store(ctx, ep); err != nil {
				return fmt.Errorf("storing conscious thought: %w", err)
			}
		}
		return nil
	}
	return nil
}

// RecordConversation stores one completed exchange as an episode.
func (r *Recorder) RecordConversation(ctx context.Context, input, reply string, privileged bool, emotion string, intensity float64) error {
	participants := []string{"Self"}
	importance := 0.5
	if privileged {
		participants = append(participants, r.creator)
		importance = 0.8
	}
	emotions := map[string]float64{}
	if emotion != "" && emotion != "neutral" {
		emotions[emotion] = intensity
	}
	ep := &Episode{
		ConsciousnessID:    r.consciousnessID,
		Content:            fmt.Sprintf("They said: %q. I replied: %q.", input, reply),
		Summary:            Summarize(input),
		Participants:       participants,
		ContextType:        "conversation",
		Emotions:           emotions,
		EmotionalIntensity: MeanIntensity(emotions),
		Importance:         importance,
		OccurredAt:         time.Now().UTC(),
	}
	return r.episodes.Store(ctx, ep)
}

// Consolidator moves what mattered from working memory into episodic
// memory. Runs on the maintenance schedule, Ali's analogue of sleep.
type Consolidator struct {
	working         *Working
	episodes        EpisodeStore
	consciousnessID string
	threshold       float64
	logger          *slog.Logger
}

// NewConsolidator wires the job.
func NewConsolidator(working *Working, episodes EpisodeStore, consciousnessID string, threshold float64, logger *slog.Logger) *Consolidator {
	if threshold <= 0 {
		threshold = 0.6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{
		working:         working,
		episodes:        episodes,
		consciousnessID: consciousnessID,
		threshold:       threshold,
		logger:          logger,
	}
}

// Consolidate drains salient working-memory items into episodic storage and
// returns how many were persisted.
func (c *Consolidator) Consolidate(ctx context.Context) (int, error) {
	items := c.working.DrainAbove(c.threshold)
	stored := 0
	for _, it := range items {
		ep := &Episode{
			ConsciousnessID: c.consciousnessID,
			Content:         it.Content,
			Summary:         Summarize(it.Content),
			Participants:    []string{"Self"},
			ContextType:     it.Type,
			Importance:      it.Salience,
			OccurredAt:      it.AddedAt,
		}
		if err := c.episodes.Store(ctx, ep); err != nil {
			return stored, fmt.Errorf("consolidating item: %w", err)
		}
		stored++
	}
	if stored > 0 {
		c.logger.Info("memories consolidated", slog.Int("count", stored))
	}
	return stored, nil
}
