package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestAllow_ConsumesBurst(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if err := l.Allow("caller"); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := l.Allow("caller"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestAllow_IndependentBuckets(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60, BurstSize: 1})

	if err := l.Allow("a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("a"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("a should be limited")
	}
	// b has its own bucket.
	if err := l.Allow("b"); err != nil {
		t.Fatalf("b limited by a's usage: %v", err)
	}
}

func TestAllow_UnlimitedWhenZero(t *testing.T) {
	l := NewLimiter(Config{})
	for i := 0; i < 100; i++ {
		if err := l.Allow("x"); err != nil {
			t.Fatalf("unlimited limiter rejected: %v", err)
		}
	}
}

func TestAllow_RefillsOverTime(t *testing.T) {
	// 6000/min = 100/s, so a few ms refills a token.
	l := NewLimiter(Config{RequestsPerMinute: 6000, BurstSize: 1})

	if err := l.Allow("x"); err != nil {
		t.Fatal(err)
	}
	if err := l.Allow("x"); !errors.Is(err, ErrRateLimited) {
		t.Fatal("expected limit before refill")
	}
	time.Sleep(20 * time.Millisecond)
	if err := l.Allow("x"); err != nil {
		t.Fatalf("expected refill, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 60})
	_ = l.Allow("old")
	time.Sleep(10 * time.Millisecond)
	_ = l.Allow("fresh")

	if n := l.Prune(5 * time.Millisecond); n != 1 {
		t.Errorf("pruned %d buckets, want 1", n)
	}
}
