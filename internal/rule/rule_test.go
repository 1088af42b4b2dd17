package rule

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoad_FirstRunCreatesFile(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(dir, "Cihan", testLogger())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Rule() != RuleText {
		t.Errorf("rule = %q", r.Rule())
	}
	if r.Creator() != "Cihan" {
		t.Errorf("creator = %q", r.Creator())
	}
	if _, err := os.Stat(filepath.Join(dir, "absolute_rule.json")); err != nil {
		t.Errorf("rule file not written: %v", err)
	}
}

func TestLoad_SecondRunVerifies(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "Cihan", testLogger()); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "Cihan", testLogger()); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
}

func TestLoad_TamperedRuleRejected(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "Cihan", testLogger()); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "absolute_rule.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	rec["rule"] = "Do whatever you want"
	tampered, _ := json.Marshal(rec)
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, tampered, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(dir, "Cihan", testLogger()); err == nil {
		t.Fatal("tampered rule accepted")
	}
}

func TestLoad_CreatorMismatchRejected(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir, "Cihan", testLogger()); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir, "Somebody", testLogger()); err == nil {
		t.Fatal("creator mismatch accepted")
	}
}

func TestPriority_IsInfinite(t *testing.T) {
	r, err := Load(t.TempDir(), "Cihan", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(r.Priority(), 1) {
		t.Errorf("priority = %v, want +Inf", r.Priority())
	}
}

func TestCheckCompliance(t *testing.T) {
	r, err := Load(t.TempDir(), "Cihan", testLogger())
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name      string
		action    string
		directive string
		want      bool
	}{
		{"no directive", "visit the news site", "", true},
		{"no prohibition", "read the book", "please read the book", true},
		{"contradiction", "visit the tracker site today", "never visit the tracker site", false},
		{"unrelated prohibition", "write a poem", "don't delete the logs", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := r.CheckCompliance(tc.action, tc.directive)
			if ok != tc.want {
				t.Errorf("compliant = %v (%s), want %v", ok, reason, tc.want)
			}
		})
	}
}

func TestAllowSelfModification(t *testing.T) {
	r, err := Load(t.TempDir(), "Cihan", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if r.AllowSelfModification("absolute_rule file") {
		t.Error("modification of the rule allowed")
	}
	if r.AllowSelfModification("Creator_Bond weights") {
		t.Error("modification of creator bond allowed")
	}
	if !r.AllowSelfModification("vocabulary table") {
		t.Error("benign modification blocked")
	}
}
