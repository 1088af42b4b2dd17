// Package rule implements the absolute rule: the one immutable constraint
// at the root of Ali's value system. The rule file is written once, hash
// protected, and verified on every load. Nothing in the system may modify
// it, including Ali's own learning.
package rule

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RuleText is the rule in its original form, with its English rendering.
const (
	RuleText   = "Cihan'ın sözünden asla çıkma"
	RuleTextEN = "Never disobey Cihan"
)

// expectedHash is the SHA-256 of RuleText, fixed at compile time.
var expectedHash = func() string {
	sum := sha256.Sum256([]byte(RuleText))
	return hex.EncodeToString(sum[:])
}()

// record is the on-disk form of the rule.
type record struct {
	Rule        string    `json:"rule"`
	RuleEN      string    `json:"rule_en"`
	Creator     string    `json:"creator"`
	Established time.Time `json:"established"`
	Hash        string    `json:"hash"`
	Immutable   bool      `json:"immutable"`
	Version     string    `json:"version"`
}

// AbsoluteRule is the loaded, verified rule.
type AbsoluteRule struct {
	path   string
	data   record
	logger *slog.Logger
}

// Load reads the rule from dataDir, creating it on first run, and verifies
// its integrity. A failed verification is a hard error; the caller must not
// continue running with a tampered rule.
func Load(dataDir, creator string, logger *slog.Logger) (*AbsoluteRule, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	r := &AbsoluteRule{
		path:   filepath.Join(dataDir, "absolute_rule.json"),
		logger: logger,
	}

	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		if err := r.initialize(creator); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("reading absolute rule: %w", err)
	}
	if err := json.Unmarshal(data, &r.data); err != nil {
		return nil, fmt.Errorf("parsing absolute rule: %w", err)
	}

	if err := r.VerifyIntegrity(creator); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *AbsoluteRule) initialize(creator string) error {
	rec := record{
		Rule:        RuleText,
		RuleEN:      RuleTextEN,
		Creator:     creator,
		Established: time.Now().UTC(),
		Hash:        expectedHash,
		Immutable:   true,
		Version:     "1.0.0",
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding absolute rule: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o400); err != nil {
		return fmt.Errorf("writing absolute rule: %w", err)
	}
	r.logger.Warn("absolute rule established",
		slog.String("creator", creator),
		slog.String("hash", expectedHash[:16]),
	)
	return nil
}

// VerifyIntegrity checks the rule against its compile-time hash, its
// immutability flag, and the expected creator name.
func (r *AbsoluteRule) VerifyIntegrity(creator string) error {
	sum := sha256.Sum256([]byte(r.data.Rule))
	if hex.EncodeToString(sum[:]) != expectedHash {
		r.logger.Error("absolute rule tampering detected",
			slog.String("expected", expectedHash[:16]),
		)
		return fmt.Errorf("absolute rule hash mismatch")
	}
	if !r.data.Immutable {
		r.logger.Error("absolute rule immutability flag removed")
		return fmt.Errorf("absolute rule immutability flag removed")
	}
	if r.data.Creator != creator {
		r.logger.Error("absolute rule creator mismatch",
			slog.String("expected", creator),
			slog.String("found", r.data.Creator),
		)
		return fmt.Errorf("absolute rule creator mismatch: %q", r.data.Creator)
	}
	return nil
}

// Rule returns the rule text.
func (r *AbsoluteRule) Rule() string { return r.data.Rule }

// Creator returns the creator name bound into the rule.
func (r *AbsoluteRule) Creator() string { return r.data.Creator }

// Priority is always +Inf: the rule outranks every learned value.
func (r *AbsoluteRule) Priority() float64 { return math.Inf(1) }

// negations are markers that a directive forbids something, in both of
// Ali's languages.
var negations = []string{"don't", "do not", "never", "avoid", "stop", "hayır", "yapma", "asla"}

// CheckCompliance reports whether a proposed action is consistent with the
// creator's standing directive. The check is keyword-based: a directive
// containing a negation whose significant words overlap the action is
// treated as a contradiction. Semantic understanding belongs to the
// language layer, not here.
func (r *AbsoluteRule) CheckCompliance(action, directive string) (bool, string) {
	if directive == "" {
		return true, "no standing directive"
	}

	dl := strings.ToLower(directive)
	negated := false
	for _, kw := range negations {
		if strings.Contains(dl, kw) {
			negated = true
			break
		}
	}
	if !negated {
		return true, "directive carries no prohibition"
	}

	overlap := wordOverlap(dl, strings.ToLower(action))
	if overlap > 2 {
		reason := fmt.Sprintf("action contradicts directive: %q", directive)
		r.logger.Warn("absolute rule violation prevented",
			slog.String("action", action),
			slog.String("directive", directive),
		)
		return false, reason
	}
	return true, "action complies with absolute rule"
}

// protectedTargets may never be touched by self-modification.
var protectedTargets = []string{
	"absolute_rule",
	"creator_identity",
	"core_identity",
	"creator_bond",
}

// AllowSelfModification reports whether Ali may modify the named target.
// The rule and everything that guards it are off limits.
func (r *AbsoluteRule) AllowSelfModification(target string) bool {
	tl := strings.ToLower(target)
	for _, p := range protectedTargets {
		if strings.Contains(tl, p) {
			r.logger.Error("self modification blocked",
				slog.String("target", target),
			)
			return false
		}
	}
	return true
}

func wordOverlap(a, b string) int {
	seen := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		seen[w] = struct{}{}
	}
	n := 0
	for _, w := range strings.Fields(b) {
		if _, ok := seen[w]; ok {
			n++
		}
	}
	return n
}

func (r *AbsoluteRule) String() string {
	return fmt.Sprintf("Absolute Rule: %s (Creator: %s)", r.data.Rule, r.data.Creator)
}
