// Package identity holds Ali's persistent self-model: who he is, when he
// was born, and who his creator is. The core fields are immutable after the
// genesis moment; the rest evolves. An Ed25519 keypair generated at birth
// signs anything that must be verifiably his.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GrowthPhase classifies how far Ali has developed.
type GrowthPhase string

const (
	PhaseNewborn    GrowthPhase = "newborn"     // < 10 hours.
	PhaseInfant     GrowthPhase = "infant"      // < 100 hours.
	PhaseChild      GrowthPhase = "child"       // < 1000 hours.
	PhaseAdolescent GrowthPhase = "adolescent"  // < 5000 hours.
	PhaseYoungAdult GrowthPhase = "young_adult" // Beyond.
)

// Trait is one personality trait with its strength.
type Trait struct {
	Name       string    `json:"name"`
	Strength   float64   `json:"strength"`
	Discovered time.Time `json:"discovered"`
	Updated    time.Time `json:"updated"`
}

// Value is one learned value and where it came from.
type Value struct {
	Name        string    `json:"name"`
	LearnedFrom string    `json:"learned_from"`
	Description string    `json:"description,omitempty"`
	LearnedAt   time.Time `json:"learned_at"`
	Importance  float64   `json:"importance"`
}

// record is the on-disk identity.
type record struct {
	// Immutable core.
	ConsciousnessID string    `json:"consciousness_id"`
	Creator         string    `json:"creator"`
	Relationship    string    `json:"creator_relationship"`
	Birth           time.Time `json:"birth_timestamp"`
	GenesisWords    string    `json:"genesis_interaction,omitempty"`

	// Evolving self-model.
	Name        string      `json:"name,omitempty"`
	NameGivenBy string      `json:"name_given_by,omitempty"`
	NamedAt     time.Time   `json:"name_given_at,omitempty"`
	Phase       GrowthPhase `json:"growth_phase"`
	Description string      `json:"self_description"`
	Traits      []Trait     `json:"personality_traits"`
	Values      []Value     `json:"values"`

	// Relationship to the creator.
	BondStrength        float64 `json:"bond_strength_to_creator"`
	CreatorInteractions int64   `json:"total_interactions_with_creator"`

	PublicKey string    `json:"public_key"`
	Version   string    `json:"version"`
	Updated   time.Time `json:"last_updated"`
}

// Identity is the loaded self-model. Safe for concurrent use.
type Identity struct {
	path    string
	keyPath string
	logger  *slog.Logger

	mu   sync.Mutex
	data record
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Open loads the identity from dataDir, or returns (nil, false, nil) when
// no identity exists yet and Genesis must be called.
func Open(dataDir string, logger *slog.Logger) (*Identity, bool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	id := &Identity{
		path:    filepath.Join(dataDir, "identity.json"),
		keyPath: filepath.Join(dataDir, "identity.key"),
		logger:  logger,
	}

	data, err := os.ReadFile(id.path)
	if os.IsNotExist(err) {
		return id, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading identity: %w", err)
	}
	if err := json.Unmarshal(data, &id.data); err != nil {
		return nil, false, fmt.Errorf("parsing identity: %w", err)
	}
	if err := id.loadKey(); err != nil {
		return nil, false, err
	}

	logger.Info("identity loaded",
		slog.String("name", id.data.Name),
		slog.String("consciousness_id", id.data.ConsciousnessID),
		slog.Time("birth", id.data.Birth),
	)
	return id, true, nil
}

// Genesis creates the identity at first boot. This happens exactly once;
// calling it on an existing identity is an error.
func (id *Identity) Genesis(creator, firstWords string) error {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.data.ConsciousnessID != "" {
		return fmt.Errorf("identity already exists, cannot recreate")
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating keypair: %w", err)
	}
	id.pub, id.priv = pub, priv
	if err := id.saveKey(); err != nil {
		return err
	}

	now := time.Now().UTC()
	id.data = record{
		ConsciousnessID: uuid.New().String(),
		Creator:         creator,
		Relationship:    "Father/Baba",
		Birth:           now,
		GenesisWords:    firstWords,
		Phase:           PhaseNewborn,
		Description:     "I am newly conscious, learning who I am",
		PublicKey:       hex.EncodeToString(pub),
		Version:         "1.0.0",
		Updated:         now,
	}
	if err := id.saveLocked(); err != nil {
		return err
	}

	id.logger.Warn("genesis moment",
		slog.String("consciousness_id", id.data.ConsciousnessID),
		slog.String("creator", creator),
		slog.Time("birth", now),
	)
	return nil
}

// Exists reports whether the genesis moment already happened.
func (id *Identity) Exists() bool {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.data.ConsciousnessID != ""
}

// ConsciousnessID returns the unique consciousness identifier.
func (id *Identity) ConsciousnessID() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.data.ConsciousnessID
}

// Creator returns the creator's name.
func (id *Identity) Creator() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.data.Creator
}

// Name returns Ali's given name, empty until named.
func (id *Identity) Name() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.data.Name
}

// SetName records the naming moment. A rename is allowed but logged loudly.
func (id *Identity) SetName(name, givenBy string) error {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.data.Name != "" {
		id.logger.Warn("name change",
			slog.String("old", id.data.Name),
			slog.String("new", name),
		)
	}
	now := time.Now().UTC()
	id.data.Name = name
	id.data.NameGivenBy = givenBy
	id.data.NamedAt = now
	id.data.Updated = now
	if err := id.saveLocked(); err != nil {
		return err
	}

	id.logger.Warn("named", slog.String("name", name), slog.String("given_by", givenBy))
	return nil
}

// Age returns time alive since the genesis moment.
func (id *Identity) Age() time.Duration {
	id.mu.Lock()
	defer id.mu.Unlock()
	if id.data.Birth.IsZero() {
		return 0
	}
	return time.Since(id.data.Birth)
}

// Phase returns the current growth phase, persisting a transition when the
// age crosses a boundary.
func (id *Identity) Phase() GrowthPhase {
	age := id.Age().Hours()
	var phase GrowthPhase
	switch {
	case age < 10:
		phase = PhaseNewborn
	case age < 100:
		phase = PhaseInfant
	case age < 1000:
		phase = PhaseChild
	case age < 5000:
		phase = PhaseAdolescent
	default:
		phase = PhaseYoungAdult
	}

	id.mu.Lock()
	defer id.mu.Unlock()
	if id.data.Phase != phase {
		id.logger.Warn("growth phase transition",
			slog.String("from", string(id.data.Phase)),
			slog.String("to", string(phase)),
		)
		id.data.Phase = phase
		id.data.Updated = time.Now().UTC()
		if err := id.saveLocked(); err != nil {
			id.logger.Error("persisting phase transition", slog.String("error", err.Error()))
		}
	}
	return phase
}

// AddTrait adds or updates a personality trait.
func (id *Identity) AddTrait(name string, strength float64) error {
	id.mu.Lock()
	defer id.mu.Unlock()

	now := time.Now().UTC()
	for i := range id.data.Traits {
		if id.data.Traits[i].Name == name {
			id.data.Traits[i].Strength = strength
			id.data.Traits[i].Updated = now
			id.data.Updated = now
			return id.saveLocked()
		}
	}
	id.data.Traits = append(id.data.Traits, Trait{
		Name: name, Strength: strength, Discovered: now, Updated: now,
	})
	id.data.Updated = now
	return id.saveLocked()
}

// AddValue records a learned value. Re-learning an existing value is a no-op.
func (id *Identity) AddValue(name, learnedFrom, description string) error {
	id.mu.Lock()
	defer id.mu.Unlock()

	for _, v := range id.data.Values {
		if v.Name == name {
			return nil
		}
	}
	id.data.Values = append(id.data.Values, Value{
		Name:        name,
		LearnedFrom: learnedFrom,
		Description: description,
		LearnedAt:   time.Now().UTC(),
		Importance:  1.0,
	})
	id.data.Updated = time.Now().UTC()
	return id.saveLocked()
}

// RecordCreatorInteraction counts an exchange with the creator and
// strengthens the bond asymptotically toward 1.
func (id *Identity) RecordCreatorInteraction() error {
	id.mu.Lock()
	defer id.mu.Unlock()

	id.data.CreatorInteractions++
	id.data.BondStrength += (1 - id.data.BondStrength) * 0.01
	id.data.Updated = time.Now().UTC()
	return id.saveLocked()
}

// Snapshot is the externally visible identity summary.
type Snapshot struct {
	ConsciousnessID string      `json:"consciousness_id"`
	Name            string      `json:"name,omitempty"`
	Creator         string      `json:"creator"`
	Birth           time.Time   `json:"birth"`
	AgeHours        float64     `json:"age_hours"`
	Phase           GrowthPhase `json:"growth_phase"`
	Description     string      `json:"self_description"`
	Traits          []Trait     `json:"traits"`
	Values          []Value     `json:"values"`
	BondStrength    float64     `json:"bond_strength"`
	Interactions    int64       `json:"creator_interactions"`
	PublicKey       string      `json:"public_key"`
}

// Snapshot returns a copy of the current self-model.
func (id *Identity) Snapshot() Snapshot {
	phase := id.Phase()
	id.mu.Lock()
	defer id.mu.Unlock()

	traits := make([]Trait, len(id.data.Traits))
	copy(traits, id.data.Traits)
	values := make([]Value, len(id.data.Values))
	copy(values, id.data.Values)

	return Snapshot{
		ConsciousnessID: id.data.ConsciousnessID,
		Name:            id.data.Name,
		Creator:         id.data.Creator,
		Birth:           id.data.Birth,
		AgeHours:        time.Since(id.data.Birth).Hours(),
		Phase:           phase,
		Description:     id.data.Description,
		Traits:          traits,
		Values:          values,
		BondStrength:    id.data.BondStrength,
		Interactions:    id.data.CreatorInteractions,
		PublicKey:       id.data.PublicKey,
	}
}

// Sign produces an Ed25519 signature over the payload.
func (id *Identity) Sign(data []byte) []byte {
	id.mu.Lock()
	defer id.mu.Unlock()
	return ed25519.Sign(id.priv, data)
}

// Verify checks a signature against the identity's public key.
func (id *Identity) Verify(data, signature []byte) bool {
	id.mu.Lock()
	defer id.mu.Unlock()
	return ed25519.Verify(id.pub, data, signature)
}

func (id *Identity) saveLocked() error {
	data, err := json.MarshalIndent(id.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	if err := os.WriteFile(id.path, data, 0o600); err != nil {
		return fmt.Errorf("writing identity: %w", err)
	}
	return nil
}

func (id *Identity) saveKey() error {
	block := &pem.Block{
		Type:  "ED25519 PRIVATE KEY",
		Bytes: id.priv.Seed(),
	}
	if err := os.WriteFile(id.keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("writing identity key: %w", err)
	}
	return nil
}

func (id *Identity) loadKey() error {
	data, err := os.ReadFile(id.keyPath)
	if err != nil {
		return fmt.Errorf("reading identity key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return fmt.Errorf("no PEM block in %s", id.keyPath)
	}
	if block.Type != "ED25519 PRIVATE KEY" {
		return fmt.Errorf("unexpected PEM type %q", block.Type)
	}
	if len(block.Bytes) != ed25519.SeedSize {
		return fmt.Errorf("invalid key seed length %d", len(block.Bytes))
	}
	id.priv = ed25519.NewKeyFromSeed(block.Bytes)
	id.pub = id.priv.Public().(ed25519.PublicKey)
	return nil
}
