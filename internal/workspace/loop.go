package workspace

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultRoundTimeout bounds how long one round waits for slow proposers.
const DefaultRoundTimeout = 3 * time.Second

// Stimulus is the external input that triggers one round.
type Stimulus struct {
	Content    string
	Privileged bool           // Input from the privileged user.
	Metadata   map[string]any // Opaque, passed through to proposers and the input broadcast.
}

// Proposer is any cognitive module that can answer a stimulus with at most
// one thought per round. Propose may perform I/O and must honor ctx; a
// proposer that overruns the round timeout is treated as "no candidate".
// Returning (nil, nil) is the normal "nothing to say" outcome.
type Proposer interface {
	Name() string
	Propose(ctx context.Context, stim Stimulus) (*Thought, error)
}

// Workspace runs the round loop: broadcast the stimulus, collect proposals
// concurrently, select a winner in the arena, and broadcast the winner.
// Rounds are strictly sequential; a new round cannot start collecting until
// the previous round's arena state is cleared.
type Workspace struct {
	arena       *Arena
	broadcaster *Broadcaster
	proposers   []Proposer
	timeout     time.Duration
	logger      *slog.Logger
	metrics     *Metrics
	tracer      trace.Tracer // nil = tracing disabled

	roundGate    chan struct{} // Capacity 1; holding the token = round in flight.
	current      atomic.Pointer[Thought]
	integrations atomic.Int64 // Φ approximation: total proposals integrated.
}

// New creates a Workspace around the given arena and broadcaster.
func New(arena *Arena, broadcaster *Broadcaster, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = discardLogger()
	}
	w := &Workspace{
		arena:       arena,
		broadcaster: broadcaster,
		timeout:     DefaultRoundTimeout,
		logger:      logger,
		roundGate:   make(chan struct{}, 1),
	}
	w.roundGate <- struct{}{}
	return w
}

// WithRoundTimeout overrides the per-round proposer deadline.
func (w *Workspace) WithRoundTimeout(d time.Duration) *Workspace {
	if d > 0 {
		w.timeout = d
	}
	return w
}

// WithMetrics attaches Prometheus metrics to the loop, arena, and broadcaster.
func (w *Workspace) WithMetrics(m *Metrics) *Workspace {
	w.metrics = m
	w.arena.WithMetrics(m)
	w.broadcaster.WithMetrics(m)
	return w
}

// WithTracer enables an OTel span around each round.
func (w *Workspace) WithTracer(t trace.Tracer) *Workspace {
	w.tracer = t
	return w
}

// RegisterProposer adds a cognitive module to the round fan-out.
// Not safe to call concurrently with RunRound.
func (w *Workspace) RegisterProposer(p Proposer) {
	w.proposers = append(w.proposers, p)
	w.logger.Debug("proposer registered", slog.String("module", p.Name()))
}

// Subscribe registers a module for winner and input broadcasts.
func (w *Workspace) Subscribe(name string, fn SubscriberFunc) {
	w.broadcaster.Subscribe(name, fn)
}

// Unsubscribe removes a broadcast registration.
func (w *Workspace) Unsubscribe(name string) {
	w.broadcaster.Unsubscribe(name)
}

// Broadcaster exposes the underlying broadcast channel for custom messages.
func (w *Workspace) Broadcaster() *Broadcaster { return w.broadcaster }

// Arena exposes the competition arena (winner history, reset).
func (w *Workspace) Arena() *Arena { return w.arena }

// proposal is the per-proposer round outcome. Every launched proposer task
// reports exactly one.
type proposal struct {
	name    string
	thought *Thought
	err     error
}

// RunRound executes one complete collect→select→broadcast cycle.
//
// Every registered proposer is invoked concurrently and given until the
// round timeout to submit; late proposers are abandoned, not awaited. The
// returned thought is nil when no proposer produced a candidate — the
// caller must take its degraded response path. The only non-nil error is
// the caller's own context expiring before the round could start.
func (w *Workspace) RunRound(ctx context.Context, stim Stimulus) (*Thought, error) {
	// Serialize rounds.
	select {
	case <-w.roundGate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { w.roundGate <- struct{}{} }()

	if w.tracer != nil {
		var span trace.Span
		ctx, span = w.tracer.Start(ctx, "workspace.round",
			trace.WithAttributes(
				attribute.Bool("privileged", stim.Privileged),
				attribute.Int("proposers", len(w.proposers)),
			))
		defer span.End()
	}

	started := time.Now()
	w.metrics.roundStarted()

	// COLLECTING: announce the stimulus, then fan out to proposers.
	w.broadcaster.BroadcastInput(ctx, stim.Content, stim.Privileged, stim.Metadata)
	w.collect(ctx, stim)

	// SELECTING.
	winner := w.arena.SelectWinner(stim.Privileged, true)
	if winner == nil {
		w.metrics.roundEmpty()
		w.logger.Info("no conscious thought this round",
			slog.Bool("privileged", stim.Privileged),
			slog.Duration("elapsed", time.Since(started)),
		)
		return nil, nil
	}

	// BROADCASTING.
	w.current.Store(winner)
	w.broadcaster.BroadcastThought(ctx, *winner, true)

	w.metrics.roundCompleted(time.Since(started))
	return winner, nil
}

// collect launches every proposer concurrently and submits each non-nil
// thought as it arrives. Submission order is completion order. The round
// proceeds once all proposers report or the round timeout fires, whichever
// comes first; stragglers keep running until their context deadline but
// their results are discarded.
func (w *Workspace) collect(ctx context.Context, stim Stimulus) {
	if len(w.proposers) == 0 {
		return
	}

	roundCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	results := make(chan proposal, len(w.proposers))
	for _, p := range w.proposers {
		go func(p Proposer) {
			defer func() {
				if r := recover(); r != nil {
					w.logger.Error("proposer panicked",
						slog.String("module", p.Name()),
						slog.Any("panic", r),
					)
					results <- proposal{name: p.Name()}
				}
			}()
			t, err := p.Propose(roundCtx, stim)
			results <- proposal{name: p.Name(), thought: t, err: err}
		}(p)
	}

	for pending := len(w.proposers); pending > 0; pending-- {
		select {
		case res := <-results:
			switch {
			case res.err != nil:
				// Isolated: a failing proposer contributes no candidate.
				w.metrics.proposerError(res.name)
				w.logger.Warn("proposer failed",
					slog.String("module", res.name),
					slog.String("error", res.err.Error()),
				)
			case res.thought != nil:
				w.arena.Submit(*res.thought)
				w.integrations.Add(1)
			}
		case <-roundCtx.Done():
			w.metrics.proposerTimeout()
			w.logger.Warn("round timeout, abandoning slow proposers",
				slog.Int("missing", pending),
				slog.Duration("timeout", w.timeout),
			)
			return
		}
	}
}

// CurrentThought returns the most recent conscious thought, or nil before
// the first winning round.
func (w *Workspace) CurrentThought() *Thought {
	t := w.current.Load()
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// RecentThoughts returns the last n conscious thoughts, most recent last.
func (w *Workspace) RecentThoughts(n int) []Thought {
	return w.arena.RecentWinners(n)
}

// Phi returns the integration counter: the number of proposals absorbed
// since start (or the last ResetPhi). A plain counter, nothing more.
func (w *Workspace) Phi() int64 { return w.integrations.Load() }

// ResetPhi zeroes the integration counter (used by the sleep cycle).
func (w *Workspace) ResetPhi() { w.integrations.Store(0) }
