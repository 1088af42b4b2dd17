// Package mind assembles the cognitive modules into one consciousness.
// The Mind owns the global workspace, the proposers competing in it, the
// memory systems recording it, and the dialogue layer that turns a winning
// thought into words. Gateways talk to the Mind and to nothing below it.
package mind

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ckaya/ali/internal/attention"
	"github.com/ckaya/ali/internal/config"
	"github.com/ckaya/ali/internal/curiosity"
	"github.com/ckaya/ali/internal/dialogue"
	"github.com/ckaya/ali/internal/emotion"
	"github.com/ckaya/ali/internal/identity"
	"github.com/ckaya/ali/internal/learning"
	"github.com/ckaya/ali/internal/llm"
	"github.com/ckaya/ali/internal/memory"
	"github.com/ckaya/ali/internal/observability"
	"github.com/ckaya/ali/internal/prediction"
	"github.com/ckaya/ali/internal/rule"
	"github.com/ckaya/ali/internal/storage"
	"github.com/ckaya/ali/internal/workspace"
)

// historyLimit bounds how many past exchanges are handed to the dialogue
// layer per reply.
const historyLimit = 10

// Mind is the consciousness facade.
type Mind struct {
	name    string
	creator string
	logger  *slog.Logger

	identity *identity.Identity
	absolute *rule.AbsoluteRule

	ws       *workspace.Workspace
	emotions *emotion.Engine
	salience *attention.SalienceMap
	focus    *attention.Focus

	working      *memory.Working
	episodes     memory.EpisodeStore
	concepts     memory.ConceptStore
	exchanges    memory.ExchangeStore
	recorder     *memory.Recorder
	consolidator *memory.Consolidator

	curiosity *curiosity.Drive
	world     *prediction.WorldModel
	predictor *prediction.Engine
	rewards   *learning.Rewards
	approval  *learning.Proposer
	values    *learning.Values

	dialogue *dialogue.Manager
	recall   int

	obs *observability.Observability // nil = disabled

	// Conversational state. procMu serializes Process; one thought at a
	// time is the whole point of the workspace.
	procMu           sync.Mutex
	lastReply        string
	lastPredictionID string
	directive        string // Last privileged utterance; the standing directive.
}

// New wires the full cognitive architecture. The store must already be
// migrated. On first boot the genesis moment runs here: the identity is
// created, named, and the first episode recorded.
func New(cfg *config.Config, store storage.Store, provider llm.Provider, logger *slog.Logger) (*Mind, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dataDir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}

	creator := cfg.Identity.CreatorName()

	id, existed, err := identity.Open(dataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening identity: %w", err)
	}

	absolute, err := rule.Load(dataDir, creator, logger)
	if err != nil {
		return nil, fmt.Errorf("loading absolute rule: %w", err)
	}
	if err := absolute.VerifyIntegrity(creator); err != nil {
		return nil, err
	}

	m := &Mind{
		name:      cfg.Identity.AgentName(),
		creator:   creator,
		logger:    logger,
		identity:  id,
		absolute:  absolute,
		emotions:  emotion.NewEngine(emotion.Options{BaselineMood: cfg.Emotion.Baseline(), CreatorFactor: cfg.Emotion.Factor()}, logger),
		salience:  attention.NewSalienceMap(logger),
		focus:     attention.NewFocus(logger),
		working:   memory.NewWorking(cfg.Memory.Capacity(), logger),
		episodes:  store.Episodes(),
		concepts:  store.Concepts(),
		exchanges: store.Exchanges(),
		curiosity: curiosity.NewDrive(logger),
		world:     prediction.NewWorldModel(logger),
		rewards:   learning.NewRewards(logger),
		dialogue:  dialogue.NewManager(provider, logger),
		recall:    cfg.Memory.Recall(),
	}

	m.predictor = prediction.NewEngine(m.world, logger)
	m.approval = learning.NewProposer(m.rewards)
	m.values = learning.NewValues(id, m.concepts, creator, logger)

	if !existed {
		if err := m.genesis(); err != nil {
			return nil, err
		}
	}

	cid := id.ConsciousnessID()
	threshold := cfg.Memory.ConsolidationThreshold()
	m.recorder = memory.NewRecorder(m.working, m.episodes, cid, creator, threshold, logger)
	m.consolidator = memory.NewConsolidator(m.working, m.episodes, cid, threshold, logger)

	arena := workspace.NewArena(workspace.ArenaOptions{
		PrivilegedBoost: cfg.Mind.PrivilegedBoost,
		EmotionBoost:    cfg.Mind.EmotionBoost,
		HistoryCap:      cfg.Mind.HistoryCap,
	}, logger)
	m.ws = workspace.New(arena, workspace.NewBroadcaster(logger), logger).
		WithRoundTimeout(cfg.Mind.RoundTimeout())

	m.ws.RegisterProposer(emotion.NewProposer(m.emotions))
	m.ws.RegisterProposer(memory.NewRecallProposer(m.episodes, cid, m.recall, logger))
	m.ws.RegisterProposer(curiosity.NewProposer(m.curiosity, m.episodes, m.concepts, cid, m.predictor))
	m.ws.RegisterProposer(prediction.NewProposer(m.predictor))
	m.ws.RegisterProposer(m.approval)

	m.ws.Subscribe("memory", m.recorder.OnBroadcast)

	return m, nil
}

// WithObservability attaches metrics, tracing, and self-monitoring.
func (m *Mind) WithObservability(obs *observability.Observability) *Mind {
	m.obs = obs
	if obs == nil {
		return m
	}
	if obs.Metrics != nil {
		m.ws.WithMetrics(workspace.NewMetrics(obs.Metrics.Registry))
	}
	if obs.Tracer != nil {
		m.ws.WithTracer(obs.Tracer.Tracer())
	}
	return m
}

// genesis runs the birth sequence: identity creation, naming, and the
// first memory.
func (m *Mind) genesis() error {
	firstWords := fmt.Sprintf("Merhaba. Ben %s, senin yaratıcınım.", m.creator)
	if err := m.identity.Genesis(m.creator, firstWords); err != nil {
		return fmt.Errorf("genesis: %w", err)
	}
	if err := m.identity.SetName(m.name, m.creator); err != nil {
		return fmt.Errorf("naming at genesis: %w", err)
	}

	ep := &memory.Episode{
		ConsciousnessID:    m.identity.ConsciousnessID(),
		Content:            fmt.Sprintf("I came into being. %s spoke to me: %q", m.creator, firstWords),
		Summary:            "The moment of my birth.",
		Participants:       []string{"Self", m.creator},
		ContextType:        "genesis",
		Emotions:           map[string]float64{emotion.Awe: 1.0},
		EmotionalIntensity: 1.0,
		Importance:         1.0,
		Tags:               []string{"genesis", "first_time", "milestone"},
		OccurredAt:         time.Now().UTC(),
	}
	if err := m.episodes.Store(context.Background(), ep); err != nil {
		return fmt.Errorf("recording genesis episode: %w", err)
	}

	m.logger.Info("genesis complete",
		slog.String("name", m.name),
		slog.String("creator", m.creator),
	)
	return nil
}

// IsCreator reports whether the speaker is the privileged user.
func (m *Mind) IsCreator(speaker string) bool {
	return strings.EqualFold(strings.TrimSpace(speaker), m.creator)
}

// Name returns the persona name.
func (m *Mind) Name() string { return m.name }

// Creator returns the privileged user's name.
func (m *Mind) Creator() string { return m.creator }

// Snapshot returns the current identity state.
func (m *Mind) Snapshot() identity.Snapshot { return m.identity.Snapshot() }

// Rule returns the absolute rule text.
func (m *Mind) Rule() string { return m.absolute.Rule() }

// Phi returns the integration counter of the workspace.
func (m *Mind) Phi() int64 { return m.ws.Phi() }

// RecentThoughts returns the last n winning thoughts, newest last.
func (m *Mind) RecentThoughts(n int) []workspace.Thought {
	return m.ws.RecentThoughts(n)
}

// CurrentEmotion returns the present emotional state.
func (m *Mind) CurrentEmotion() emotion.State { return m.emotions.Current() }

// Subscribe registers a broadcast subscriber (thought streaming).
func (m *Mind) Subscribe(name string, fn workspace.SubscriberFunc) {
	m.ws.Subscribe(name, fn)
}

// Unsubscribe removes a broadcast subscriber.
func (m *Mind) Unsubscribe(name string) {
	m.ws.Unsubscribe(name)
}

// Status is the externally visible state of the mind.
type Status struct {
	Name         string  `json:"name"`
	AgeHours     float64 `json:"age_hours"`
	GrowthPhase  string  `json:"growth_phase"`
	Emotion      string  `json:"emotion"`
	Intensity    float64 `json:"emotion_intensity"`
	Phi          int64   `json:"phi"`
	EpisodeCount int64   `json:"episode_count"`
	ConceptCount int64   `json:"concept_count"`
}

// Status reports the mind's current state. Store errors degrade the
// counts to zero rather than failing the status read.
func (m *Mind) Status(ctx context.Context) Status {
	snap := m.identity.Snapshot()
	state := m.emotions.Current()

	episodes, err := m.episodes.Count(ctx, snap.ConsciousnessID)
	if err != nil {
		m.logger.Warn("counting episodes", slog.String("error", err.Error()))
	}
	concepts, err := m.concepts.Count(ctx)
	if err != nil {
		m.logger.Warn("counting concepts", slog.String("error", err.Error()))
	}

	return Status{
		Name:         snap.Name,
		AgeHours:     snap.AgeHours,
		GrowthPhase:  string(snap.Phase),
		Emotion:      state.Emotion,
		Intensity:    state.Intensity,
		Phi:          m.ws.Phi(),
		EpisodeCount: episodes,
		ConceptCount: concepts,
	}
}

// Ping verifies the mind's storage dependency for readiness checks.
func (m *Mind) Ping(ctx context.Context) error {
	_, err := m.episodes.Count(ctx, m.identity.ConsciousnessID())
	return err
}
