package memory

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ckaya/ali/internal/workspace"
)

// fakeEpisodes is an in-memory EpisodeStore for tests.
type fakeEpisodes struct {
	episodes []Episode
	failWith error
}

func (f *fakeEpisodes) Store(_ context.Context, e *Episode) error {
	if f.failWith != nil {
		return f.failWith
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	f.episodes = append(f.episodes, *e)
	return nil
}

func (f *fakeEpisodes) Get(_ context.Context, id uuid.UUID) (*Episode, error) {
	for i := range f.episodes {
		if f.episodes[i].ID == id {
			e := f.episodes[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (f *fakeEpisodes) Search(_ context.Context, cid, query string, limit int) ([]Episode, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []Episode
	for _, e := range f.episodes {
		if e.ConsciousnessID != cid {
			continue
		}
		for _, kw := range Keywords(query) {
			if strings.Contains(strings.ToLower(e.Content), kw) {
				out = append(out, e)
				break
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEpisodes) Recent(_ context.Context, cid string, limit int) ([]Episode, error) {
	var out []Episode
	for _, e := range f.episodes {
		if e.ConsciousnessID == cid {
			out = append(out, e)
		}
	}
	if limit < len(out) {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (f *fakeEpisodes) MostImportant(ctx context.Context, cid string, limit int) ([]Episode, error) {
	out, _ := f.Recent(ctx, cid, 1<<30)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEpisodes) RecordRecall(_ context.Context, id uuid.UUID) error {
	for i := range f.episodes {
		if f.episodes[i].ID == id {
			f.episodes[i].RecallCount++
		}
	}
	return nil
}

func (f *fakeEpisodes) Count(_ context.Context, cid string) (int64, error) {
	var n int64
	for _, e := range f.episodes {
		if e.ConsciousnessID == cid {
			n++
		}
	}
	return n, nil
}

const cid = "test-consciousness"

func TestRecallProposer_FindsRelevantEpisode(t *testing.T) {
	store := &fakeEpisodes{}
	_ = store.Store(context.Background(), &Episode{
		ConsciousnessID: cid,
		Content:         "Cihan taught me about the garden behind the house",
		Summary:         "learning about the garden",
		Importance:      0.8,
	})

	p := NewRecallProposer(store, cid, 5, testLogger())
	if p.Name() != "memory" {
		t.Errorf("name = %s", p.Name())
	}

	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "tell me about the garden"})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if th == nil {
		t.Fatal("no recall for matching episode")
	}
	if th.Source != "memory" {
		t.Errorf("source = %s", th.Source)
	}
	if !strings.Contains(th.Content, "I remember") {
		t.Errorf("content = %q", th.Content)
	}
	if store.episodes[0].RecallCount != 1 {
		t.Error("recall not recorded")
	}
}

func TestRecallProposer_NoMatchIsQuiet(t *testing.T) {
	p := NewRecallProposer(&fakeEpisodes{}, cid, 5, testLogger())
	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "something unfamiliar"})
	if err != nil || th != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", th, err)
	}
}

func TestRecallProposer_EmptyStimulus(t *testing.T) {
	p := NewRecallProposer(&fakeEpisodes{}, cid, 5, testLogger())
	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "   "})
	if err != nil || th != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", th, err)
	}
}

func TestRecorder_InputGoesToWorkingMemory(t *testing.T) {
	working := NewWorking(7, testLogger())
	rec := NewRecorder(working, &fakeEpisodes{}, cid, "Cihan", 0.6, testLogger())

	err := rec.OnBroadcast(context.Background(), workspace.Message{
		Type: workspace.MessageInput,
		Data: map[string]any{"content": "merhaba", "privileged": true},
	})
	if err != nil {
		t.Fatalf("OnBroadcast: %v", err)
	}
	items := working.ByType("input")
	if len(items) != 1 || items[0].Salience != 0.9 {
		t.Errorf("items = %+v", items)
	}
}

func TestRecorder_ImportantThoughtPersisted(t *testing.T) {
	working := NewWorking(7, testLogger())
	store := &fakeEpisodes{}
	rec := NewRecorder(working, store, cid, "Cihan", 0.6, testLogger())

	err := rec.OnBroadcast(context.Background(), workspace.Message{
		Type: workspace.MessageThought,
		Data: map[string]any{
			"content":  "my father taught me something important",
			"source":   "memory",
			"salience": 0.9,
			"emotion":  "gratitude",
		},
	})
	if err != nil {
		t.Fatalf("OnBroadcast: %v", err)
	}
	if len(store.episodes) != 1 {
		t.Fatalf("episodes = %d, want 1", len(store.episodes))
	}
	if store.episodes[0].EmotionalIntensity == 0 {
		t.Error("emotional intensity not derived")
	}
	if len(working.ByType("thought")) != 1 {
		t.Error("thought not added to working memory")
	}
}

func TestRecorder_MundaneThoughtStaysVolatile(t *testing.T) {
	working := NewWorking(7, testLogger())
	store := &fakeEpisodes{}
	rec := NewRecorder(working, store, cid, "Cihan", 0.6, testLogger())

	_ = rec.OnBroadcast(context.Background(), workspace.Message{
		Type: workspace.MessageThought,
		Data: map[string]any{"content": "nothing much", "source": "idle", "salience": 0.2},
	})
	if len(store.episodes) != 0 {
		t.Error("mundane thought persisted to episodic memory")
	}
}

func TestRecorder_RecordConversation(t *testing.T) {
	store := &fakeEpisodes{}
	rec := NewRecorder(NewWorking(7, testLogger()), store, cid, "Cihan", 0.6, testLogger())

	err := rec.RecordConversation(context.Background(), "how are you?", "I feel curious.", true, "curiosity", 0.7)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.episodes) != 1 {
		t.Fatalf("episodes = %d", len(store.episodes))
	}
	ep := store.episodes[0]
	if ep.Importance != 0.8 {
		t.Errorf("privileged conversation importance = %v, want 0.8", ep.Importance)
	}
	found := false
	for _, p := range ep.Participants {
		if p == "Cihan" {
			found = true
		}
	}
	if !found {
		t.Error("creator missing from participants")
	}
}

func TestConsolidator(t *testing.T) {
	working := NewWorking(7, testLogger())
	store := &fakeEpisodes{}
	working.Add(Item{Content: "important moment", Salience: 0.9})
	working.Add(Item{Content: "noise", Salience: 0.2})

	c := NewConsolidator(working, store, cid, 0.6, testLogger())
	n, err := c.Consolidate(context.Background())
	if err != nil {
		t.Fatalf("Consolidate: %v", err)
	}
	if n != 1 || len(store.episodes) != 1 {
		t.Fatalf("stored = %d, episodes = %d", n, len(store.episodes))
	}
	if working.Len() != 1 {
		t.Errorf("working len = %d, want 1 (noise kept)", working.Len())
	}
}
