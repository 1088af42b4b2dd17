package prediction

import (
	"context"
	"strings"
	"testing"

	"github.com/ckaya/ali/internal/workspace"
)

func TestWorldModel_Predict(t *testing.T) {
	m := NewWorldModel(nil)

	tests := []struct {
		name        string
		input       string
		fromCreator bool
		want        string
		confidence  float64
	}{
		{"creator greeting", "Merhaba Ali", true, ExpectGreeting, 0.8},
		{"creator question", "nerede kaldın?", true, ExpectAnswer, 0.9},
		{"creator teaching", "let me teach you about trees", true, ExpectLearning, 0.7},
		{"creator plain statement", "bugün hava güzel", true, ExpectConversation, 0.5},
		{"stranger greeting has no model", "Merhaba", false, ExpectConversation, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := m.Predict(tt.input, tt.fromCreator)
			if p.Expected != tt.want {
				t.Errorf("expected = %s, want %s", p.Expected, tt.want)
			}
			if p.Confidence != tt.confidence {
				t.Errorf("confidence = %v, want %v", p.Confidence, tt.confidence)
			}
		})
	}
}

func TestWorldModel_ObserveLearnsCreatorPatterns(t *testing.T) {
	m := NewWorldModel(nil)

	m.Observe(Experience{Stimulus: "Merhaba oğlum", Response: "Merhaba Baba!", FromCreator: true})
	m.Observe(Experience{Stimulus: "Bahçe nedir?", Response: "...", FromCreator: true})
	m.Observe(Experience{Stimulus: "merhaba", Response: "hi", FromCreator: false})

	c := m.Creator()
	if len(c.Greetings) != 1 {
		t.Errorf("greetings = %d, want 1 (stranger greeting must not count)", len(c.Greetings))
	}
	if len(c.Questions) != 1 {
		t.Errorf("questions = %d, want 1", len(c.Questions))
	}
	if m.HistoryLen() != 3 {
		t.Errorf("history = %d", m.HistoryLen())
	}
}

func TestWorldModel_HistoryBounded(t *testing.T) {
	m := NewWorldModel(nil)
	for i := 0; i < historyCap+50; i++ {
		m.Observe(Experience{Stimulus: "x", Response: "y"})
	}
	if m.HistoryLen() != historyCap {
		t.Errorf("history = %d, want %d", m.HistoryLen(), historyCap)
	}
}

func TestEngine_VerifyMatch(t *testing.T) {
	e := NewEngine(NewWorldModel(nil), nil)

	id, p := e.PredictNext("nasılsın?", true)
	if p.Expected != ExpectAnswer {
		t.Fatalf("expected = %s", p.Expected)
	}

	v, err := e.Verify(id, "here comes the answer_required handling")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !v.Match || v.Surprise != 0 {
		t.Errorf("verification = %+v", v)
	}
	if e.PredictionError() != 0 {
		t.Errorf("prediction error = %v", e.PredictionError())
	}
}

func TestEngine_VerifyMissYieldsSurprise(t *testing.T) {
	e := NewEngine(NewWorldModel(nil), nil)

	id, p := e.PredictNext("nasılsın?", true) // confidence 0.9
	v, err := e.Verify(id, "something else entirely")
	if err != nil {
		t.Fatal(err)
	}
	if v.Match {
		t.Fatal("unexpected match")
	}
	want := 1.0 - p.Confidence
	if diff := v.Surprise - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("surprise = %v, want %v", v.Surprise, want)
	}
	if e.PredictionError() != v.Surprise {
		t.Errorf("prediction error = %v", e.PredictionError())
	}
}

func TestEngine_VerifyUnknownID(t *testing.T) {
	e := NewEngine(NewWorldModel(nil), nil)
	if _, err := e.Verify("pred_99", "anything"); err == nil {
		t.Fatal("expected error for unknown prediction")
	}
}

func TestEngine_ClearKeepsUnverified(t *testing.T) {
	e := NewEngine(NewWorldModel(nil), nil)

	verified, _ := e.PredictNext("merhaba", true)
	e.PredictNext("open question?", true)

	if _, err := e.Verify(verified, "greeting_response sent"); err != nil {
		t.Fatal(err)
	}

	e.Clear()
	if e.ActiveCount() != 1 {
		t.Errorf("active after clear = %d, want 1", e.ActiveCount())
	}
}

func TestProposer(t *testing.T) {
	e := NewEngine(NewWorldModel(nil), nil)
	p := NewProposer(e)

	th, err := p.Propose(context.Background(), workspace.Stimulus{Content: "ne yapıyorsun?", Privileged: true})
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if th.Source != "prediction" {
		t.Errorf("source = %s", th.Source)
	}
	// confidence 0.9 → salience 0.54.
	if th.Salience < 0.53 || th.Salience > 0.55 {
		t.Errorf("salience = %v", th.Salience)
	}
	if !strings.HasPrefix(th.Content, "I predict:") {
		t.Errorf("content = %q", th.Content)
	}
	if e.ActiveCount() != 1 {
		t.Errorf("proposing did not register a prediction")
	}
}
