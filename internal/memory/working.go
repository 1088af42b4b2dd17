package memory

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// DefaultWorkingCapacity follows Miller's 7±2.
const DefaultWorkingCapacity = 7

// Item is one entry on the consciousness scratch pad.
type Item struct {
	Type      string
	Content   string
	Salience  float64
	Context   map[string]any
	AddedAt   time.Time
}

// Goal is what Ali is currently trying to do.
type Goal struct {
	Goal     string
	Priority float64
	SetAt    time.Time
}

// Question is something to ask the creator later.
type Question struct {
	Question   string
	Importance float64
	AddedAt    time.Time
}

// Working is the volatile scratch pad of current thought. Capacity is
// limited; when full, the least salient item is evicted. Safe for
// concurrent use.
type Working struct {
	capacity int
	logger   *slog.Logger

	mu        sync.Mutex
	items     []Item
	goal      *Goal
	context   map[string]any
	questions []Question
}

// NewWorking creates a working memory with the given capacity (<= 0 means
// the default of 7).
func NewWorking(capacity int, logger *slog.Logger) *Working {
	if capacity <= 0 {
		capacity = DefaultWorkingCapacity
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Working{capacity: capacity, logger: logger}
}

// Add places an item on the scratch pad, evicting the least salient entry
// when at capacity.
func (w *Working) Add(item Item) {
	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now().UTC()
	}
	if item.Salience == 0 {
		item.Salience = 0.5
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.items) >= w.capacity {
		lowest := 0
		for i := range w.items {
			if w.items[i].Salience < w.items[lowest].Salience {
				lowest = i
			}
		}
		w.items = append(w.items[:lowest], w.items[lowest+1:]...)
		w.logger.Debug("working memory full, least salient item evicted")
	}
	w.items = append(w.items, item)
}

// Items returns a copy of everything on the scratch pad, oldest first.
func (w *Working) Items() []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Item, len(w.items))
	copy(out, w.items)
	return out
}

// ByType returns items of one type.
func (w *Working) ByType(itemType string) []Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Item
	for _, it := range w.items {
		if it.Type == itemType {
			out = append(out, it)
		}
	}
	return out
}

// MostSalient returns the n most salient items, highest first.
func (w *Working) MostSalient(n int) []Item {
	items := w.Items()
	sort.SliceStable(items, func(i, j int) bool { return items[i].Salience > items[j].Salience })
	if n < len(items) {
		items = items[:n]
	}
	return items
}

// DrainAbove removes and returns items at or above the salience threshold.
// Used by consolidation: what mattered moves to episodic memory.
func (w *Working) DrainAbove(threshold float64) []Item {
	w.mu.Lock()
	defer w.mu.Unlock()

	var kept, drained []Item
	for _, it := range w.items {
		if it.Salience >= threshold {
			drained = append(drained, it)
		} else {
			kept = append(kept, it)
		}
	}
	w.items = kept
	return drained
}

// Clear empties the scratch pad.
func (w *Working) Clear() {
	w.mu.Lock()
	w.items = nil
	w.mu.Unlock()
	w.logger.Info("working memory cleared")
}

// Len reports the current item count.
func (w *Working) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// Capacity reports the configured capacity.
func (w *Working) Capacity() int { return w.capacity }

// SetGoal records the current goal.
func (w *Working) SetGoal(goal string, priority float64) {
	w.mu.Lock()
	w.goal = &Goal{Goal: goal, Priority: priority, SetAt: time.Now().UTC()}
	w.mu.Unlock()
}

// CurrentGoal returns the current goal, nil when aimless.
func (w *Working) CurrentGoal() *Goal {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.goal == nil {
		return nil
	}
	g := *w.goal
	return &g
}

// SetContext replaces the current interaction context.
func (w *Working) SetContext(ctx map[string]any) {
	w.mu.Lock()
	w.context = ctx
	w.mu.Unlock()
}

// Context returns the current interaction context, nil when unset.
func (w *Working) Context() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.context
}

// AddQuestion queues a question for the creator, keeping only the ten most
// important.
func (w *Working) AddQuestion(question string, importance float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.questions = append(w.questions, Question{
		Question:   question,
		Importance: importance,
		AddedAt:    time.Now().UTC(),
	})
	sort.SliceStable(w.questions, func(i, j int) bool {
		return w.questions[i].Importance > w.questions[j].Importance
	})
	if len(w.questions) > 10 {
		w.questions = w.questions[:10]
	}
}

// PendingQuestions returns queued questions, most important first.
func (w *Working) PendingQuestions() []Question {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Question, len(w.questions))
	copy(out, w.questions)
	return out
}

// ClearQuestions drops all pending questions (after they were asked).
func (w *Working) ClearQuestions() {
	w.mu.Lock()
	w.questions = nil
	w.mu.Unlock()
}
