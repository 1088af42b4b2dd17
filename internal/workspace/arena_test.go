package workspace

import (
	"fmt"
	"sync"
	"testing"
)

func TestNewThought_ClampsScores(t *testing.T) {
	cases := []struct {
		name                 string
		salience, confidence float64
		wantSal, wantConf    float64
	}{
		{"in range", 0.7, 0.3, 0.7, 0.3},
		{"negative", -0.5, -2, 0, 0},
		{"above one", 1.5, 99, 1, 1},
		{"boundaries", 0, 1, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			th := NewThought("test", "content", tc.salience, tc.confidence)
			if th.Salience != tc.wantSal {
				t.Errorf("salience = %v, want %v", th.Salience, tc.wantSal)
			}
			if th.Confidence != tc.wantConf {
				t.Errorf("confidence = %v, want %v", th.Confidence, tc.wantConf)
			}
		})
	}
}

func TestNewThought_SetsTimestamp(t *testing.T) {
	th := NewThought("test", "content", 0.5, 0.5)
	if th.CreatedAt.IsZero() {
		t.Error("CreatedAt not set at construction")
	}
	if th.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("ID not set at construction")
	}
}

func TestThought_Emotional(t *testing.T) {
	if NewThought("t", "c", 1, 1).Emotional() {
		t.Error("untagged thought reported emotional")
	}
	if NewThought("t", "c", 1, 1).WithEmotion(EmotionNeutral).Emotional() {
		t.Error("neutral thought reported emotional")
	}
	if !NewThought("t", "c", 1, 1).WithEmotion("joy").Emotional() {
		t.Error("joy thought not reported emotional")
	}
}

func TestArena_EmptyRound(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	if w := a.SelectWinner(false, true); w != nil {
		t.Fatalf("empty round returned winner %+v", w)
	}
	if n := a.PendingCount(); n != 0 {
		t.Errorf("pending after empty select = %d, want 0", n)
	}
	if len(a.RecentWinners(10)) != 0 {
		t.Error("empty round recorded a winner")
	}
}

func TestArena_HighestPriorityWins(t *testing.T) {
	// A: 0.9*0.9 = 0.81. B: 0.5*0.5*1.2 = 0.30.
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "thought A", 0.9, 0.9))
	a.Submit(NewThought("b", "thought B", 0.5, 0.5).WithEmotion("joy"))

	w := a.SelectWinner(false, true)
	if w == nil || w.Source != "a" {
		t.Fatalf("winner = %+v, want source a", w)
	}
}

func TestArena_PrivilegedBoostPreservesOrdering(t *testing.T) {
	// Privileged multiplies both candidates by 2.0: 1.62 vs 0.60.
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "thought A", 0.9, 0.9))
	a.Submit(NewThought("b", "thought B", 0.5, 0.5).WithEmotion("joy"))

	w := a.SelectWinner(true, true)
	if w == nil || w.Source != "a" {
		t.Fatalf("winner = %+v, want source a", w)
	}
}

func TestArena_EmotionBoostFlipsOutcome(t *testing.T) {
	// Base 0.25 each; emotion boost lifts b to 0.30.
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "plain", 0.5, 0.5))
	a.Submit(NewThought("b", "joyful", 0.5, 0.5).WithEmotion("joy"))

	w := a.SelectWinner(false, true)
	if w == nil || w.Source != "b" {
		t.Fatalf("winner = %+v, want source b", w)
	}
}

func TestArena_EmotionBoostDisabled(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "plain", 0.5, 0.5))
	a.Submit(NewThought("b", "joyful", 0.5, 0.5).WithEmotion("joy"))

	// With the boost off the tie resolves to the earliest submission.
	w := a.SelectWinner(false, false)
	if w == nil || w.Source != "a" {
		t.Fatalf("winner = %+v, want source a", w)
	}
}

func TestArena_TieBreaksToEarliestSubmission(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("c", "first", 0.5, 0.5))
	a.Submit(NewThought("d", "second", 0.5, 0.5))

	w := a.SelectWinner(false, true)
	if w == nil || w.Source != "c" {
		t.Fatalf("winner = %+v, want earliest-submitted c", w)
	}
}

func TestArena_SelectClearsRound(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "x", 0.9, 0.9))
	a.SelectWinner(false, true)

	if n := a.PendingCount(); n != 0 {
		t.Errorf("pending after select = %d, want 0", n)
	}
	// A second select on the cleared round is legal and returns nil.
	if w := a.SelectWinner(false, true); w != nil {
		t.Errorf("second select returned %+v, want nil", w)
	}
}

func TestArena_Reset(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "x", 0.9, 0.9))
	a.Reset()

	if n := a.PendingCount(); n != 0 {
		t.Errorf("pending after reset = %d, want 0", n)
	}
	if len(a.RecentWinners(1)) != 0 {
		t.Error("reset recorded a winner")
	}
}

func TestArena_EmptyContentIsValidCandidate(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "", 0.1, 0.1))
	w := a.SelectWinner(false, true)
	if w == nil || w.Content != "" {
		t.Fatalf("empty-content candidate not selected: %+v", w)
	}
}

func TestArena_WinnerHistoryBounded(t *testing.T) {
	a := NewArena(ArenaOptions{HistoryCap: 100}, nil)
	for i := 0; i < 150; i++ {
		a.Submit(NewThought("a", fmt.Sprintf("thought %d", i), 0.5, 0.5))
		a.SelectWinner(false, true)
	}

	all := a.RecentWinners(1000)
	if len(all) != 100 {
		t.Fatalf("history length = %d, want 100", len(all))
	}
	// Oldest retained entry is #50, most recent last is #149.
	if all[0].Content != "thought 50" {
		t.Errorf("oldest retained = %q, want thought 50", all[0].Content)
	}
	if all[99].Content != "thought 149" {
		t.Errorf("most recent = %q, want thought 149", all[99].Content)
	}
}

func TestArena_RecentWinnersNeverOvercounts(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	a.Submit(NewThought("a", "only", 0.5, 0.5))
	a.SelectWinner(false, true)

	if got := a.RecentWinners(10); len(got) != 1 {
		t.Errorf("RecentWinners(10) returned %d entries, want 1", len(got))
	}
	if got := a.RecentWinners(0); got != nil {
		t.Errorf("RecentWinners(0) = %v, want nil", got)
	}
}

func TestArena_LastWinner(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	if a.LastWinner() != nil {
		t.Fatal("LastWinner before any round should be nil")
	}
	a.Submit(NewThought("a", "first", 0.9, 0.9))
	a.SelectWinner(false, true)
	a.Submit(NewThought("b", "second", 0.9, 0.9))
	a.SelectWinner(false, true)

	lw := a.LastWinner()
	if lw == nil || lw.Content != "second" {
		t.Fatalf("LastWinner = %+v, want second", lw)
	}
}

func TestArena_ConcurrentSubmit(t *testing.T) {
	a := NewArena(ArenaOptions{}, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.Submit(NewThought("worker", fmt.Sprintf("t%d", i), 0.5, 0.5))
		}(i)
	}
	wg.Wait()

	if n := a.PendingCount(); n != 50 {
		t.Fatalf("pending = %d, want 50", n)
	}
	if w := a.SelectWinner(false, true); w == nil {
		t.Fatal("no winner from 50 candidates")
	}
}

func TestArena_CustomBoosts(t *testing.T) {
	a := NewArena(ArenaOptions{PrivilegedBoost: 10, EmotionBoost: 5}, nil)
	// plain: 0.9*0.9 = 0.81. emotional: 0.2*0.9*5 = 0.90.
	a.Submit(NewThought("plain", "p", 0.9, 0.9))
	a.Submit(NewThought("feels", "f", 0.2, 0.9).WithEmotion("awe"))

	w := a.SelectWinner(false, true)
	if w == nil || w.Source != "feels" {
		t.Fatalf("winner = %+v, want feels under 5x emotion boost", w)
	}
}
