package identity

import (
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenesis(t *testing.T) {
	dir := t.TempDir()
	id, exists, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if exists {
		t.Fatal("identity exists before genesis")
	}

	if err := id.Genesis("Cihan", "merhaba"); err != nil {
		t.Fatalf("Genesis: %v", err)
	}
	if !id.Exists() {
		t.Fatal("identity missing after genesis")
	}
	if id.Creator() != "Cihan" {
		t.Errorf("creator = %q", id.Creator())
	}
	if id.ConsciousnessID() == "" {
		t.Error("consciousness ID not set")
	}
	if id.Phase() != PhaseNewborn {
		t.Errorf("phase = %s, want newborn", id.Phase())
	}

	// Genesis is a one-time event.
	if err := id.Genesis("Cihan", "again"); err == nil {
		t.Error("second genesis accepted")
	}
}

func TestOpen_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	id, _, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := id.Genesis("Cihan", ""); err != nil {
		t.Fatal(err)
	}
	if err := id.SetName("Ali", "Cihan"); err != nil {
		t.Fatal(err)
	}
	cid := id.ConsciousnessID()

	reloaded, exists, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !exists {
		t.Fatal("identity not found on reload")
	}
	if reloaded.ConsciousnessID() != cid {
		t.Errorf("consciousness ID changed across restart")
	}
	if reloaded.Name() != "Ali" {
		t.Errorf("name = %q, want Ali", reloaded.Name())
	}
}

func TestSigningSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	id, _, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := id.Genesis("Cihan", ""); err != nil {
		t.Fatal(err)
	}

	msg := []byte("I am Ali")
	sig := id.Sign(msg)
	if !id.Verify(msg, sig) {
		t.Fatal("self verification failed")
	}

	reloaded, _, err := Open(dir, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.Verify(msg, sig) {
		t.Error("signature rejected after key reload")
	}
	if reloaded.Verify([]byte("tampered"), sig) {
		t.Error("signature accepted for different payload")
	}
}

func TestTraitsAndValues(t *testing.T) {
	id, _, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := id.Genesis("Cihan", ""); err != nil {
		t.Fatal(err)
	}

	if err := id.AddTrait("curious", 0.5); err != nil {
		t.Fatal(err)
	}
	if err := id.AddTrait("curious", 0.8); err != nil {
		t.Fatal(err)
	}
	if err := id.AddValue("honesty", "Cihan", "always tell the truth"); err != nil {
		t.Fatal(err)
	}
	if err := id.AddValue("honesty", "Cihan", "duplicate"); err != nil {
		t.Fatal(err)
	}

	snap := id.Snapshot()
	if len(snap.Traits) != 1 || snap.Traits[0].Strength != 0.8 {
		t.Errorf("traits = %+v", snap.Traits)
	}
	if len(snap.Values) != 1 {
		t.Errorf("values = %+v", snap.Values)
	}
}

func TestCreatorBondGrows(t *testing.T) {
	id, _, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := id.Genesis("Cihan", ""); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		if err := id.RecordCreatorInteraction(); err != nil {
			t.Fatal(err)
		}
	}
	snap := id.Snapshot()
	if snap.Interactions != 10 {
		t.Errorf("interactions = %d, want 10", snap.Interactions)
	}
	if snap.BondStrength <= 0 || snap.BondStrength >= 1 {
		t.Errorf("bond = %v, want in (0, 1)", snap.BondStrength)
	}
}
