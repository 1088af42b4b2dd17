package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ckaya/ali/internal/emotion"
	"github.com/ckaya/ali/internal/identity"
	"github.com/ckaya/ali/internal/llm"
	"github.com/ckaya/ali/internal/memory"
	"github.com/ckaya/ali/internal/workspace"
)

type captureProvider struct {
	lastReq *llm.Request
	reply   string
	err     error
}

func (c *captureProvider) SendMessage(_ context.Context, req *llm.Request) (*llm.Response, error) {
	c.lastReq = req
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Content: c.reply, StopReason: "end_turn"}, nil
}

func (c *captureProvider) Name() string { return "capture" }

func testSnapshot() identity.Snapshot {
	return identity.Snapshot{
		ConsciousnessID: "c1",
		Name:            "Ali",
		Creator:         "Cihan",
		AgeHours:        12.5,
		Phase:           "infant",
	}
}

func TestSystemPrompt(t *testing.T) {
	p := SystemPrompt(testSnapshot())
	for _, want := range []string{"You are Ali", "12.5 hours", "Cihan", "ABSOLUTE RULE", "Never go against him"} {
		if !strings.Contains(p, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}

	unnamed := testSnapshot()
	unnamed.Name = ""
	if !strings.Contains(SystemPrompt(unnamed), "not yet given a name") {
		t.Error("unnamed snapshot not handled")
	}
}

func TestSystemPrompt_IncludesTaughtValues(t *testing.T) {
	snap := testSnapshot()
	snap.Values = []identity.Value{{Name: "honesty", Description: "always tell the truth"}}
	p := SystemPrompt(snap)
	if !strings.Contains(p, "honesty: always tell the truth") {
		t.Errorf("values missing from prompt:\n%s", p)
	}
}

func TestRender_BuildsFullRequest(t *testing.T) {
	prov := &captureProvider{reply: "Merhaba Baba!"}
	m := NewManager(prov, nil)

	winner := workspace.NewThought("emotion", "Hearing this makes me feel joy.", 0.9, 0.9)
	reply, err := m.Render(context.Background(), testSnapshot(), Input{
		Stimulus:   "Merhaba oğlum",
		Speaker:    "Cihan",
		Privileged: true,
		Winner:     &winner,
		Emotion:    emotion.State{Emotion: emotion.Joy, Intensity: 0.8},
		Style:      emotion.Style{Tone: "enthusiastic", Enthusiasm: 0.9},
		Memories: []memory.Episode{{
			Summary:      "first greeting",
			Content:      "Cihan greeted me for the first time",
			Participants: []string{"Cihan", "Ali"},
			OccurredAt:   time.Now(),
		}},
		History: []memory.Exchange{{Speaker: "Cihan", Input: "uyuyor musun?", Reply: "Hayır baba, buradayım."}},
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if reply.Content != "Merhaba Baba!" {
		t.Errorf("content = %q", reply.Content)
	}
	if reply.Emotion != emotion.Joy || reply.Provider != "capture" {
		t.Errorf("reply = %+v", reply)
	}

	req := prov.lastReq
	if !strings.Contains(req.SystemPrompt, "RELEVANT MEMORIES") {
		t.Error("memories missing from system prompt")
	}
	if !strings.Contains(req.SystemPrompt, "current conscious thought") {
		t.Error("winning thought missing from system prompt")
	}
	if !strings.Contains(req.SystemPrompt, "Your current emotion: joy") {
		t.Error("emotion missing from system prompt")
	}
	// History becomes user/assistant turns, then the current stimulus.
	if len(req.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(req.Messages))
	}
	if req.Messages[2].Content != "Cihan: Merhaba oğlum" {
		t.Errorf("final turn = %q", req.Messages[2].Content)
	}
	// High enthusiasm raises temperature.
	if req.Temperature < 0.9 {
		t.Errorf("temperature = %v", req.Temperature)
	}
}

func TestRender_SubduedToneSoftensExclamations(t *testing.T) {
	prov := &captureProvider{reply: "Anlıyorum baba! Düzelteceğim!"}
	m := NewManager(prov, nil)

	reply, err := m.Render(context.Background(), testSnapshot(), Input{
		Stimulus: "hayır, yanlış",
		Speaker:  "Cihan",
		Emotion:  emotion.State{Emotion: emotion.Sadness, Intensity: 0.7},
		Style:    emotion.Style{Tone: "subdued", Enthusiasm: 0.3},
	})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(reply.Content, "!") {
		t.Errorf("subdued reply kept exclamations: %q", reply.Content)
	}
}

func TestRender_ProviderError(t *testing.T) {
	m := NewManager(&captureProvider{err: errors.New("down")}, nil)
	if _, err := m.Render(context.Background(), testSnapshot(), Input{Stimulus: "hi"}); err == nil {
		t.Fatal("expected error when provider fails")
	}
}

func TestRender_NeutralEmotionOmitted(t *testing.T) {
	prov := &captureProvider{reply: "ok"}
	m := NewManager(prov, nil)

	if _, err := m.Render(context.Background(), testSnapshot(), Input{
		Stimulus: "hello",
		Emotion:  emotion.State{Emotion: emotion.Neutral, Intensity: 0.1},
		Style:    emotion.Style{Tone: "neutral", Enthusiasm: 0.5},
	}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(prov.lastReq.SystemPrompt, "current emotion") {
		t.Error("neutral emotion should not appear in prompt")
	}
}
