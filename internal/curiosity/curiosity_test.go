package curiosity

import (
	"context"
	"strings"
	"testing"

	"github.com/ckaya/ali/internal/memory"
	"github.com/ckaya/ali/internal/workspace"
)

func TestDetectUnknown(t *testing.T) {
	d := NewDrive(nil)

	tests := []struct {
		name       string
		stimulus   string
		hasMemory  bool
		hasConcept bool
		predErr    float64
		want       float64
	}{
		{"totally unknown", "quantum foam", false, false, 0, 0.8},
		{"known topic", "the garden", true, true, 0, 0},
		{"question invites learning", "what is this?", true, true, 0, 0.3},
		{"prediction miss", "something odd", true, true, 0.8, 0.4},
		{"teaching word", "let me teach you something", true, true, 0, 0.3},
		{"everything at once caps at one", "teach me, what is this?", false, false, 1.0, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.DetectUnknown(tt.stimulus, tt.hasMemory, tt.hasConcept, tt.predErr)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("DetectUnknown = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateQuestion(t *testing.T) {
	d := NewDrive(nil)
	if q := d.GenerateQuestion("elma", UnknownWord); !strings.Contains(q, "elma") {
		t.Errorf("word question missing the word: %q", q)
	}
	for _, typ := range []UnknownType{UnknownConcept, UnknownReason, UnknownHow, UnknownGeneral} {
		if q := d.GenerateQuestion("x", typ); !strings.HasPrefix(q, "Father,") {
			t.Errorf("%s question = %q, want addressed to Father", typ, q)
		}
	}
}

func TestQuestionLifecycle(t *testing.T) {
	d := NewDrive(nil)
	d.addPending(Question{Text: "why?", Stimulus: "x"})
	d.addPending(Question{Text: "how?", Stimulus: "y"})

	if len(d.Pending()) != 2 {
		t.Fatalf("pending = %d", len(d.Pending()))
	}

	d.MarkAsked("why?")
	if len(d.Pending()) != 1 || d.Pending()[0].Text != "how?" {
		t.Errorf("pending after ask = %+v", d.Pending())
	}
	if len(d.Asked()) != 1 || d.Asked()[0].Text != "why?" {
		t.Errorf("asked = %+v", d.Asked())
	}

	// Unknown question is a no-op.
	d.MarkAsked("never queued")
	if len(d.Pending()) != 1 {
		t.Error("MarkAsked on unknown question changed pending")
	}

	d.ClearPending()
	if len(d.Pending()) != 0 {
		t.Error("ClearPending left questions")
	}
}

type fakeEpisodes struct {
	memory.EpisodeStore
	hits []memory.Episode
}

func (f *fakeEpisodes) Search(_ context.Context, _, _ string, _ int) ([]memory.Episode, error) {
	return f.hits, nil
}

type fakeConcepts struct {
	memory.ConceptStore
	hits []memory.Concept
}

func (f *fakeConcepts) Search(_ context.Context, _ string, _ int) ([]memory.Concept, error) {
	return f.hits, nil
}

type fixedError float64

func (f fixedError) PredictionError() float64 { return float64(f) }

func TestProposer_UnknownTopicProposesQuestion(t *testing.T) {
	d := NewDrive(nil)
	p := NewProposer(d, &fakeEpisodes{}, &fakeConcepts{}, "c1", nil)

	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "something entirely new"})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if th == nil || th.Emotion != "curiosity" {
		t.Fatalf("thought = %+v", th)
	}
	if th.Confidence != 0.8 {
		t.Errorf("confidence = %v", th.Confidence)
	}
	// 0.8 curiosity * 0.9.
	if th.Salience < 0.71 || th.Salience > 0.73 {
		t.Errorf("salience = %v", th.Salience)
	}
	if th.Context["unknown_type"] != string(UnknownConcept) {
		t.Errorf("unknown_type = %v", th.Context["unknown_type"])
	}
	if len(d.Pending()) != 1 {
		t.Errorf("pending questions = %d, want 1", len(d.Pending()))
	}
}

func TestProposer_PrivilegedBoostsSalience(t *testing.T) {
	d := NewDrive(nil)
	p := NewProposer(d, &fakeEpisodes{}, &fakeConcepts{}, "c1", nil)

	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "new topic", Privileged: true})
	if err != nil {
		t.Fatal(err)
	}
	// 0.8 * 0.9 * 1.4.
	if th.Salience < 1.0 {
		t.Errorf("salience = %v, want capped at 1", th.Salience)
	}
	if !strings.Contains(th.Content, "father") {
		t.Errorf("privileged content = %q", th.Content)
	}
}

func TestProposer_KnownTopicStaysQuiet(t *testing.T) {
	d := NewDrive(nil)
	p := NewProposer(d,
		&fakeEpisodes{hits: []memory.Episode{{Content: "seen before"}}},
		&fakeConcepts{hits: []memory.Concept{{Name: "known"}}},
		"c1", nil)

	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "a familiar statement"})
	if err != nil {
		t.Fatal(err)
	}
	if th == nil {
		t.Fatal("expected a low-salience thought")
	}
	if th.Salience != 0.1 {
		t.Errorf("salience = %v", th.Salience)
	}
	if th.Context["curious"] != false {
		t.Errorf("context = %+v", th.Context)
	}
	if len(d.Pending()) != 0 {
		t.Error("quiet proposal queued a question")
	}
}

func TestProposer_PredictionErrorDrivesReasonQuestion(t *testing.T) {
	d := NewDrive(nil)
	p := NewProposer(d,
		&fakeEpisodes{hits: []memory.Episode{{Content: "seen"}}},
		&fakeConcepts{hits: []memory.Concept{{Name: "known"}}},
		"c1", fixedError(0.8))

	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "that surprised me"})
	if err != nil {
		t.Fatal(err)
	}
	if th.Context["unknown_type"] != string(UnknownReason) {
		t.Errorf("unknown_type = %v, want reason", th.Context["unknown_type"])
	}
}
