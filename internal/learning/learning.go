// Package learning implements reinforcement from the creator's reactions
// and the value system built from direct teaching. Approval strengthens a
// behavior, disapproval marks it for correction, taught values land in
// both semantic memory and the identity.
package learning

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ckaya/ali/internal/memory"
	"github.com/ckaya/ali/internal/workspace"
)

// RewardType classifies a detected signal.
type RewardType string

const (
	RewardPositive RewardType = "positive"
	RewardNegative RewardType = "negative"
	RewardNeutral  RewardType = "neutral"
)

// Signal is a detected approval or disapproval.
type Signal struct {
	HasReward  bool
	Type       RewardType
	Magnitude  float64
	Confidence float64
	Matched    string
}

// Event is one recorded reward with the action that earned it.
type Event struct {
	Type           RewardType
	Magnitude      float64
	Matched        string
	PreviousAction string
	Stimulus       string
	Timestamp      time.Time
}

// Stats summarizes the reward history.
type Stats struct {
	Total         int
	PositiveCount int
	NegativeCount int
	PositiveRatio float64
	AvgMagnitude  float64
}

const rewardHistoryCap = 1000

// Approval and disapproval phrases, English and Turkish.
var (
	positiveSignals = []string{
		"aferin", "çok iyi", "doğru", "güzel", "mükemmel", "harika",
		"bravo", "sevdim", "beğendim", "başarılı",
		"well done", "good job", "correct", "perfect", "exactly",
	}
	negativeSignals = []string{
		"hayır", "yanlış", "öyle değil", "böyle değil", "hata",
		"tekrar dene",
		"that's wrong", "not like that", "incorrect", "try again",
	}
)

// Rewards tracks approval and disapproval from the creator. Only the
// creator can give rewards.
type Rewards struct {
	logger *slog.Logger

	mu      sync.Mutex
	history []Event
}

// NewRewards creates the reward system.
func NewRewards(logger *slog.Logger) *Rewards {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Rewards{logger: logger}
}

// Detect scans a stimulus for reward signals. Non-creator input never
// carries a reward.
func (r *Rewards) Detect(stimulus string, fromCreator bool) Signal {
	if !fromCreator {
		return Signal{}
	}

	lower := strings.ToLower(stimulus)
	for _, s := range positiveSignals {
		if strings.Contains(lower, s) {
			return Signal{HasReward: true, Type: RewardPositive, Magnitude: 1.0, Confidence: 0.9, Matched: s}
		}
	}
	for _, s := range negativeSignals {
		if strings.Contains(lower, s) {
			return Signal{HasReward: true, Type: RewardNegative, Magnitude: -0.8, Confidence: 0.9, Matched: s}
		}
	}
	return Signal{Type: RewardNeutral, Confidence: 0.5}
}

// Process records a detected reward against the action that preceded it.
func (r *Rewards) Process(stimulus, previousAction string) (Signal, bool) {
	sig := r.Detect(stimulus, true)
	if !sig.HasReward {
		return sig, false
	}

	r.mu.Lock()
	r.history = append(r.history, Event{
		Type:           sig.Type,
		Magnitude:      sig.Magnitude,
		Matched:        sig.Matched,
		PreviousAction: previousAction,
		Stimulus:       stimulus,
		Timestamp:      time.Now().UTC(),
	})
	if len(r.history) > rewardHistoryCap {
		r.history = r.history[len(r.history)-rewardHistoryCap:]
	}
	r.mu.Unlock()

	r.logger.Info("reward from father",
		slog.String("type", string(sig.Type)),
		slog.String("signal", sig.Matched),
		slog.Float64("magnitude", sig.Magnitude))
	return sig, true
}

// Statistics summarizes the recorded rewards.
func (r *Rewards) Statistics() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Stats{Total: len(r.history)}
	if st.Total == 0 {
		return st
	}
	var sum float64
	for _, e := range r.history {
		sum += e.Magnitude
		switch e.Type {
		case RewardPositive:
			st.PositiveCount++
		case RewardNegative:
			st.NegativeCount++
		}
	}
	st.PositiveRatio = float64(st.PositiveCount) / float64(st.Total)
	st.AvgMagnitude = sum / float64(st.Total)
	return st
}

// Proposer speaks for the reward system in the workspace. Detected
// approval or disapproval produces very salient thoughts.
type Proposer struct {
	rewards *Rewards

	mu         sync.Mutex
	lastAction string
}

// NewProposer creates the reward proposer.
func NewProposer(rewards *Rewards) *Proposer {
	return &Proposer{rewards: rewards}
}

var _ workspace.Proposer = (*Proposer)(nil)

// Name identifies this proposer in the arena.
func (p *Proposer) Name() string { return "reward_system" }

// SetLastAction records what Ali just did, so the next reward can be
// attributed to it.
func (p *Proposer) SetLastAction(action string) {
	p.mu.Lock()
	p.lastAction = action
	p.mu.Unlock()
}

// Propose checks the stimulus for reward signals.
func (p *Proposer) Propose(_ context.Context, stim workspace.Stimulus) (*workspace.Thought, error) {
	if !stim.Privileged {
		t := workspace.NewThought("reward_system", "Only my father can reward me.", 0.05, 0.9).
			WithContext(map[string]any{"can_reward": false})
		return &t, nil
	}

	sig := p.rewards.Detect(stim.Content, true)
	if !sig.HasReward {
		t := workspace.NewThought("reward_system", "I waited for my father's reaction, but there is no clear signal.", 0.3, 0.6).
			WithContext(map[string]any{"reward_type": string(sig.Type)})
		return &t, nil
	}

	p.mu.Lock()
	action := p.lastAction
	p.mu.Unlock()
	p.rewards.Process(stim.Content, action)

	var content, emotion string
	var salience float64
	if sig.Type == RewardPositive {
		content = fmt.Sprintf("My father approved! (%q) I should keep doing this.", sig.Matched)
		emotion = "joy"
		salience = 0.95
	} else {
		content = fmt.Sprintf("My father did not approve. (%q) I did something wrong and should correct it.", sig.Matched)
		emotion = "sadness"
		salience = 0.90
	}

	t := workspace.NewThought("reward_system", content, salience, sig.Confidence).
		WithEmotion(emotion).
		WithContext(map[string]any{
			"reward_type":     string(sig.Type),
			"magnitude":       sig.Magnitude,
			"signal":          sig.Matched,
			"previous_action": action,
		})
	return &t, nil
}

// IdentityStore is the slice of the identity the value system writes to.
type IdentityStore interface {
	AddValue(name, learnedFrom, description string) error
	RecordCreatorInteraction() error
}

// Values learns morality from the creator: direct teaching, corrections,
// and approval all shape the value system.
type Values struct {
	identity IdentityStore
	concepts memory.ConceptStore
	creator  string
	logger   *slog.Logger
}

// NewValues creates the value learning system.
func NewValues(identity IdentityStore, concepts memory.ConceptStore, creator string, logger *slog.Logger) *Values {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Values{identity: identity, concepts: concepts, creator: creator, logger: logger}
}

// LearnFromTeaching stores a directly taught value in both semantic
// memory and the identity. Learning brings closeness.
func (v *Values) LearnFromTeaching(ctx context.Context, valueName, explanation string) error {
	v.logger.Info("value taught by creator", slog.String("value", valueName))

	if err := v.concepts.Upsert(ctx, &memory.Concept{
		Name:        "value:" + valueName,
		Definition:  explanation,
		LearnedFrom: v.creator,
		Confidence:  1.0,
	}); err != nil {
		return fmt.Errorf("storing taught value: %w", err)
	}
	if err := v.identity.AddValue(valueName, v.creator, explanation); err != nil {
		return fmt.Errorf("adding value to identity: %w", err)
	}
	return v.identity.RecordCreatorInteraction()
}

// LearnFromCorrection stores a correction as a lesson.
func (v *Values) LearnFromCorrection(ctx context.Context, action, correction, whyWrong string) error {
	v.logger.Info("learning from correction", slog.String("correction", correction))

	return v.concepts.Upsert(ctx, &memory.Concept{
		Name:        fmt.Sprintf("correction:%d", time.Now().UnixNano()),
		Definition:  fmt.Sprintf("Action: %s. Correction: %s. Reason: %s", action, correction, whyWrong),
		LearnedFrom: v.creator,
		Confidence:  0.9,
	})
}

// LearnFromApproval reinforces an approved behavior.
func (v *Values) LearnFromApproval(action string) error {
	v.logger.Debug("learning from approval", slog.String("action", action))
	return v.identity.RecordCreatorInteraction()
}
