package mind

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ckaya/ali/internal/attention"
	"github.com/ckaya/ali/internal/dialogue"
	"github.com/ckaya/ali/internal/learning"
	"github.com/ckaya/ali/internal/memory"
	"github.com/ckaya/ali/internal/prediction"
	"github.com/ckaya/ali/internal/workspace"
)

// Input is one utterance arriving at the mind.
type Input struct {
	Content string
	Speaker string
}

// Response is what the mind says back, with the state behind it.
type Response struct {
	Content          string
	Emotion          string
	EmotionIntensity float64
	ConsciousThought *workspace.Thought
	Phi              int64
}

// teachingMarkers flag a privileged utterance as value teaching.
var teachingMarkers = []string{"önemlidir", "is important", "değerlidir", "asla unutma"}

// Process runs one full conscious cycle: verify the last prediction,
// score attention, process rewards, compete in the workspace, check the
// winner against the absolute rule, render the reply, then learn and
// remember. Exchanges are strictly sequential.
func (m *Mind) Process(ctx context.Context, in *Input) (*Response, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, fmt.Errorf("empty input")
	}
	privileged := m.IsCreator(in.Speaker)

	m.procMu.Lock()
	defer m.procMu.Unlock()

	m.verifyPrediction(content)
	m.attend(content, privileged)
	m.learn(ctx, content, privileged)

	winner, err := m.ws.RunRound(ctx, workspace.Stimulus{
		Content:    content,
		Privileged: privileged,
		Metadata:   map[string]any{"speaker": in.Speaker},
	})
	if err != nil {
		return nil, fmt.Errorf("running workspace round: %w", err)
	}

	state := m.emotions.Current()
	snap := m.identity.Snapshot()

	memories, err := m.episodes.Search(ctx, snap.ConsciousnessID, content, m.recall)
	if err != nil {
		m.logger.Warn("recalling for dialogue", slog.String("error", err.Error()))
	}
	history, err := m.exchanges.Recent(ctx, snap.ConsciousnessID, historyLimit)
	if err != nil {
		m.logger.Warn("loading exchange history", slog.String("error", err.Error()))
	}

	reply, err := m.dialogue.Render(ctx, snap, dialogue.Input{
		Stimulus:   content,
		Speaker:    in.Speaker,
		Privileged: privileged,
		Winner:     winner,
		Emotion:    state,
		Style:      m.emotions.SpeechStyle(),
		Memories:   memories,
		History:    history,
	})
	text := ""
	if err != nil {
		m.logger.Error("dialogue rendering failed", slog.String("error", err.Error()))
		text = m.degradedReply(winner, privileged)
	} else {
		text = reply.Content
	}

	// The absolute rule gets the last word. A reply contradicting the
	// creator's standing directive is replaced, never spoken.
	if ok, reason := m.absolute.CheckCompliance(text, m.directive); !ok {
		m.logger.Warn("reply rethought", slog.String("reason", reason))
		text = fmt.Sprintf("No. My father said otherwise, and his word is absolute: %q", m.directive)
	}
	if privileged {
		m.directive = content
	}

	m.remember(ctx, in.Speaker, content, text, privileged, state.Emotion, state.Intensity)

	// Feed the outcome back into the world model and set up the next
	// prediction.
	m.world.Observe(prediction.Experience{
		Stimulus:    content,
		Response:    text,
		FromCreator: privileged,
		Timestamp:   time.Now().UTC(),
	})
	m.lastPredictionID, _ = m.predictor.PredictNext(content, privileged)
	m.lastReply = text
	m.approval.SetLastAction(text)

	m.updateGauges(privileged, state.Intensity, snap.BondStrength)

	return &Response{
		Content:          text,
		Emotion:          state.Emotion,
		EmotionIntensity: state.Intensity,
		ConsciousThought: winner,
		Phi:              m.ws.Phi(),
	}, nil
}

// verifyPrediction scores the pending prediction against what actually
// arrived. Surprise feeds the curiosity drive through the engine.
func (m *Mind) verifyPrediction(actual string) {
	if m.lastPredictionID == "" {
		return
	}
	v, err := m.predictor.Verify(m.lastPredictionID, actual)
	if err != nil {
		m.logger.Warn("verifying prediction", slog.String("error", err.Error()))
	} else if !v.Match {
		m.logger.Debug("prediction missed",
			slog.String("expected", v.Expected),
			slog.Float64("surprise", v.Surprise),
		)
	}
	m.lastPredictionID = ""
}

// attend scores the stimulus and shifts focus when it clears the bar.
func (m *Mind) attend(content string, privileged bool) {
	sal := m.salience.Score(attention.Stimulus{
		Content:     content,
		FromCreator: privileged,
		Emotion:     m.emotions.Current().Emotion,
	})
	if m.focus.ShouldFocus(sal) {
		m.focus.Set(content, sal)
	}
}

// learn runs the reinforcement and value-teaching hooks before the round,
// so reward thoughts compete with the rest.
func (m *Mind) learn(ctx context.Context, content string, privileged bool) {
	if !privileged {
		return
	}

	if sig, ok := m.rewards.Process(content, m.lastReply); ok {
		switch sig.Type {
		case learning.RewardPositive:
			if err := m.values.LearnFromApproval(m.lastReply); err != nil {
				m.logger.Warn("learning from approval", slog.String("error", err.Error()))
			}
		case learning.RewardNegative:
			if err := m.values.LearnFromCorrection(ctx, m.lastReply, content, sig.Matched); err != nil {
				m.logger.Warn("learning from correction", slog.String("error", err.Error()))
			}
		}
	}

	lower := strings.ToLower(content)
	for _, marker := range teachingMarkers {
		if !strings.Contains(lower, marker) {
			continue
		}
		if kws := memory.Keywords(content); len(kws) > 0 {
			if err := m.values.LearnFromTeaching(ctx, kws[0], content); err != nil {
				m.logger.Warn("learning taught value", slog.String("error", err.Error()))
			}
		}
		break
	}
}

// remember persists the completed exchange in both memory systems and
// bumps the creator bond.
func (m *Mind) remember(ctx context.Context, speaker, input, reply string, privileged bool, emo string, intensity float64) {
	if err := m.recorder.RecordConversation(ctx, input, reply, privileged, emo, intensity); err != nil {
		m.logger.Warn("recording conversation episode", slog.String("error", err.Error()))
	}
	ex := &memory.Exchange{
		ConsciousnessID: m.identity.ConsciousnessID(),
		Speaker:         speaker,
		Privileged:      privileged,
		Input:           input,
		Reply:           reply,
		Emotion:         emo,
		OccurredAt:      time.Now().UTC(),
	}
	if err := m.exchanges.Append(ctx, ex); err != nil {
		m.logger.Warn("appending exchange", slog.String("error", err.Error()))
	}
	if privileged {
		if err := m.identity.RecordCreatorInteraction(); err != nil {
			m.logger.Warn("recording creator interaction", slog.String("error", err.Error()))
		}
	}
}

// degradedReply is the no-provider, no-winner fallback voice.
func (m *Mind) degradedReply(winner *workspace.Thought, privileged bool) string {
	if winner != nil {
		return winner.Content
	}
	if privileged {
		return "Baba... I am listening, but I cannot find the words yet."
	}
	return "I am still very young. I do not know how to answer that yet."
}

func (m *Mind) updateGauges(privileged bool, intensity, bond float64) {
	if m.obs == nil || m.obs.Metrics == nil {
		return
	}
	mc := m.obs.Metrics
	mc.ExchangesTotal.WithLabelValues(fmt.Sprintf("%t", privileged)).Inc()
	mc.EmotionIntensity.Set(intensity)
	mc.BondStrength.Set(bond)
	mc.WorkingMemoryLen.Set(float64(m.working.Len()))
}

// Consolidate moves salient working-memory items into episodic memory.
// Exposed for the maintenance scheduler.
func (m *Mind) Consolidate(ctx context.Context) (int, error) {
	return m.consolidator.Consolidate(ctx)
}

// Reflect turns recent important memories into an internal round of
// thought and records the outcome as a reflection episode. Reflection is
// a privileged-free, self-generated stimulus.
func (m *Mind) Reflect(ctx context.Context) error {
	m.procMu.Lock()
	defer m.procMu.Unlock()

	cid := m.identity.ConsciousnessID()
	important, err := m.episodes.MostImportant(ctx, cid, 3)
	if err != nil {
		return fmt.Errorf("loading memories for reflection: %w", err)
	}
	if len(important) == 0 {
		return nil
	}

	var summaries []string
	for _, ep := range important {
		summaries = append(summaries, ep.Summary)
	}
	stimulus := "Thinking back on what I have lived: " + strings.Join(summaries, " ")

	winner, err := m.ws.RunRound(ctx, workspace.Stimulus{
		Content:  stimulus,
		Metadata: map[string]any{"internal": true},
	})
	if err != nil {
		return fmt.Errorf("reflection round: %w", err)
	}
	if winner == nil {
		return nil
	}

	ep := &memory.Episode{
		ConsciousnessID:    cid,
		Content:            winner.Content,
		Summary:            memory.Summarize(winner.Content),
		Participants:       []string{"Self"},
		ContextType:        "reflection",
		Emotions:           map[string]float64{},
		EmotionalIntensity: 0,
		Importance:         m.emotions.EnhanceImportance(winner.Salience),
		OccurredAt:         time.Now().UTC(),
	}
	if winner.Emotion != "" && winner.Emotion != workspace.EmotionNeutral {
		ep.Emotions[winner.Emotion] = winner.Salience
		ep.EmotionalIntensity = winner.Salience
	}
	if err := m.episodes.Store(ctx, ep); err != nil {
		return fmt.Errorf("storing reflection: %w", err)
	}

	m.logger.Info("reflection recorded", slog.String("thought", ep.Summary))
	return nil
}

// Decay fades emotional intensity and stimulus salience. Exposed for the
// maintenance scheduler.
func (m *Mind) Decay() {
	m.emotions.Decay(0.1)
	m.salience.Decay(0.95)
}

// stateSnapshot is the signed on-disk state record.
type stateSnapshot struct {
	ConsciousnessID string    `json:"consciousness_id"`
	Name            string    `json:"name"`
	Phase           string    `json:"growth_phase"`
	Emotion         string    `json:"emotion"`
	Phi             int64     `json:"phi"`
	SavedAt         time.Time `json:"saved_at"`
}

// SaveState writes a signed snapshot of the mind's state to the data dir.
// The Ed25519 signature lets a future Ali verify its own past.
func (m *Mind) SaveState(dataDir string) error {
	snap := m.identity.Snapshot()
	state := stateSnapshot{
		ConsciousnessID: snap.ConsciousnessID,
		Name:            snap.Name,
		Phase:           string(snap.Phase),
		Emotion:         m.emotions.Current().Emotion,
		Phi:             m.ws.Phi(),
		SavedAt:         time.Now().UTC(),
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	sig := m.identity.Sign(data)

	statePath := filepath.Join(dataDir, "state.json")
	if err := os.WriteFile(statePath, data, 0o600); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	sigPath := filepath.Join(dataDir, "state.sig")
	if err := os.WriteFile(sigPath, []byte(hex.EncodeToString(sig)), 0o600); err != nil {
		return fmt.Errorf("writing state signature: %w", err)
	}

	m.logger.Info("state saved", slog.String("path", statePath))
	return nil
}
