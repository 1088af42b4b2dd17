package workspace

import (
	"log/slog"
	"sync"
)

// Default arena tuning. The boosts mirror the priority policy: privileged
// input doubles a thought's score, a non-neutral emotion tag adds 20%.
// Everything else a module wants to favor must be expressed through the
// salience it submits.
const (
	DefaultPrivilegedBoost = 2.0
	DefaultEmotionBoost    = 1.2
	DefaultHistoryCap      = 100
)

// ArenaOptions tunes winner selection. Zero values fall back to defaults.
type ArenaOptions struct {
	PrivilegedBoost float64 // Multiplier for privileged-user rounds. Default 2.0.
	EmotionBoost    float64 // Multiplier for emotionally tagged thoughts. Default 1.2.
	HistoryCap      int     // Winner history ring capacity. Default 100.
}

func (o ArenaOptions) withDefaults() ArenaOptions {
	if o.PrivilegedBoost <= 0 {
		o.PrivilegedBoost = DefaultPrivilegedBoost
	}
	if o.EmotionBoost <= 0 {
		o.EmotionBoost = DefaultEmotionBoost
	}
	if o.HistoryCap <= 0 {
		o.HistoryCap = DefaultHistoryCap
	}
	return o
}

// Arena collects the thoughts submitted during one round and selects a
// single winner. The pending list lives for exactly one round: SelectWinner
// clears it unconditionally, winner or not.
type Arena struct {
	opts    ArenaOptions
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	pending []Thought
	winners []Thought // Bounded ring, oldest first.
}

// NewArena creates an empty competition arena.
func NewArena(opts ArenaOptions, logger *slog.Logger) *Arena {
	if logger == nil {
		logger = discardLogger()
	}
	return &Arena{
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// WithMetrics attaches Prometheus metrics. Nil-safe.
func (a *Arena) WithMetrics(m *Metrics) *Arena {
	a.metrics = m
	return a
}

// Submit adds a thought to the current round. Safe for concurrent use;
// submission order under concurrency is whatever order callers arrive in.
func (a *Arena) Submit(t Thought) {
	a.mu.Lock()
	a.pending = append(a.pending, t)
	a.mu.Unlock()

	a.metrics.candidateSubmitted(t.Source)
	a.logger.Debug("thought submitted",
		slog.String("source", t.Source),
		slog.Float64("salience", t.Salience),
		slog.Float64("confidence", t.Confidence),
	)
}

// PendingCount reports how many thoughts are waiting in the current round.
func (a *Arena) PendingCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// SelectWinner scores every pending thought and returns the one with the
// strictly highest priority, recording it in the winner history and clearing
// the round. Returns nil when the round is empty; that is a valid
// "no conscious thought emerged" outcome, not an error.
//
// Priority = salience × confidence, ×PrivilegedBoost when privileged,
// ×EmotionBoost when boostEmotion is set and the thought carries a
// non-neutral emotion tag. Exact ties resolve to the earliest submission.
// Under concurrent proposers, submission order is completion order, so tied
// outcomes are only reproducible when submissions are sequenced explicitly.
func (a *Arena) SelectWinner(privileged, boostEmotion bool) *Thought {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.pending) == 0 {
		a.logger.Debug("no thoughts in competition")
		return nil
	}

	// Single max scan with strict > keeps the earliest submission on ties,
	// equivalent to a stable descending sort on priority.
	best := 0
	bestScore := a.score(a.pending[0], privileged, boostEmotion)
	for i := 1; i < len(a.pending); i++ {
		if s := a.score(a.pending[i], privileged, boostEmotion); s > bestScore {
			best, bestScore = i, s
		}
	}

	winner := a.pending[best]
	a.recordWinner(winner)
	a.pending = nil

	a.metrics.winnerSelected(winner.Source)
	a.logger.Info("winner selected",
		slog.String("source", winner.Source),
		slog.Float64("priority", bestScore),
		slog.Bool("privileged", privileged),
	)

	cp := winner
	return &cp
}

// Reset clears the pending round without recording a winner. Used when a
// round is abandoned (for example an upstream timeout).
func (a *Arena) Reset() {
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
	a.logger.Debug("competition reset")
}

// LastWinner returns a copy of the most recent winner, or nil if none.
func (a *Arena) LastWinner() *Thought {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.winners) == 0 {
		return nil
	}
	cp := a.winners[len(a.winners)-1]
	return &cp
}

// RecentWinners returns copies of the last n winners, most recent last.
// Never returns more entries than have ever been selected or than the
// history cap retains.
func (a *Arena) RecentWinners(n int) []Thought {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 || len(a.winners) == 0 {
		return nil
	}
	if n > len(a.winners) {
		n = len(a.winners)
	}
	out := make([]Thought, n)
	copy(out, a.winners[len(a.winners)-n:])
	return out
}

func (a *Arena) score(t Thought, privileged, boostEmotion bool) float64 {
	priority := t.BaseScore()
	if privileged {
		priority *= a.opts.PrivilegedBoost
	}
	if boostEmotion && t.Emotional() {
		priority *= a.opts.EmotionBoost
	}
	return priority
}

// recordWinner appends to the bounded history ring, dropping the oldest
// entry on overflow. Caller holds a.mu.
func (a *Arena) recordWinner(t Thought) {
	a.winners = append(a.winners, t)
	if len(a.winners) > a.opts.HistoryCap {
		a.winners = a.winners[len(a.winners)-a.opts.HistoryCap:]
	}
}
