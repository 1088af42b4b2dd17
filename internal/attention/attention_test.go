package attention

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScore_Boosts(t *testing.T) {
	m := NewSalienceMap(testLogger())

	cases := []struct {
		name string
		stim Stimulus
		want float64
	}{
		{"base default", Stimulus{Content: "a"}, 0.5},
		{"creator", Stimulus{Content: "b", FromCreator: true}, 1.0},
		{"emotion", Stimulus{Content: "c", Emotion: "joy"}, 0.65},
		{"neutral emotion ignored", Stimulus{Content: "d", Emotion: "neutral"}, 0.5},
		{"novel", Stimulus{Content: "e", Novel: true}, 0.75},
		{"repetitive", Stimulus{Content: "f", Repetitive: true}, 0.4},
		{"creator and emotion", Stimulus{Content: "g", FromCreator: true, Emotion: "fear"}, 1.3},
		{"explicit base", Stimulus{Content: "h", BaseImportance: 0.8}, 0.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Score(tc.stim)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("salience = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGet_UnknownReturnsBase(t *testing.T) {
	m := NewSalienceMap(testLogger())
	if got := m.Get("never seen"); got != BaseSalience {
		t.Errorf("got %v, want base", got)
	}
}

func TestTop_OrdersBySalience(t *testing.T) {
	m := NewSalienceMap(testLogger())
	m.Score(Stimulus{Content: "low", BaseImportance: 0.1})
	m.Score(Stimulus{Content: "high", FromCreator: true, BaseImportance: 0.9})
	m.Score(Stimulus{Content: "mid", BaseImportance: 0.5})

	top := m.Top(2)
	if len(top) != 2 {
		t.Fatalf("top = %d entries, want 2", len(top))
	}
	if top[0].Stimulus != "high" || top[1].Stimulus != "mid" {
		t.Errorf("order = %v, %v", top[0].Stimulus, top[1].Stimulus)
	}
}

func TestDecay_DropsFadedEntries(t *testing.T) {
	m := NewSalienceMap(testLogger())
	m.Score(Stimulus{Content: "fading", BaseImportance: 0.02})
	m.Score(Stimulus{Content: "strong", BaseImportance: 0.9})

	m.Decay(0.4)

	if got := m.Get("fading"); got != BaseSalience {
		t.Errorf("faded entry survived with %v", got)
	}
	if got := m.Get("strong"); got == BaseSalience {
		t.Error("strong entry was dropped")
	}
}

func TestScore_TruncatesLongKeys(t *testing.T) {
	m := NewSalienceMap(testLogger())
	long := ""
	for i := 0; i < 30; i++ {
		long += fmt.Sprintf("word%d ", i)
	}
	m.Score(Stimulus{Content: long, BaseImportance: 0.9})
	if got := m.Get(long); got != 0.9 {
		t.Errorf("lookup by full content = %v, want 0.9", got)
	}
}

func TestFocus_ShiftAndHistory(t *testing.T) {
	f := NewFocus(testLogger())
	if f.Current() != "" {
		t.Fatal("new focus not empty")
	}
	if f.ShouldFocus(0.2) {
		t.Error("below-threshold salience accepted")
	}
	if !f.ShouldFocus(0.6) {
		t.Error("above-threshold salience rejected")
	}

	f.Set("conversation with Cihan", 1.0)
	if f.Current() != "conversation with Cihan" {
		t.Errorf("current = %q", f.Current())
	}
	f.Set("idle reflection", 0.4)

	h := f.History()
	if len(h) != 2 {
		t.Fatalf("history = %d shifts, want 2", len(h))
	}
	if h[1].From != "conversation with Cihan" || h[1].To != "idle reflection" {
		t.Errorf("shift = %+v", h[1])
	}

	f.Clear()
	if f.Current() != "" {
		t.Error("clear did not drop focus")
	}
}

func TestFocus_HistoryBounded(t *testing.T) {
	f := NewFocus(testLogger())
	for i := 0; i < 150; i++ {
		f.Set(fmt.Sprintf("target %d", i), 0.5)
	}
	h := f.History()
	if len(h) != 100 {
		t.Fatalf("history = %d, want 100", len(h))
	}
	if h[99].To != "target 149" {
		t.Errorf("most recent = %q", h[99].To)
	}
}
