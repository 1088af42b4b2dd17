package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ckaya/ali/internal/memory"
)

// ConceptRepository implements memory.ConceptStore on GORM.
type ConceptRepository struct {
	db *gorm.DB
}

// NewConceptRepository creates the repository.
func NewConceptRepository(db *gorm.DB) *ConceptRepository {
	return &ConceptRepository{db: db}
}

var _ memory.ConceptStore = (*ConceptRepository)(nil)

// Upsert inserts a concept or updates its definition and confidence when
// the name already exists.
func (r *ConceptRepository) Upsert(ctx context.Context, c *memory.Concept) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"definition", "learned_from", "confidence", "updated_at",
			}),
		}).
		Create(conceptToModel(c)).Error
	if err != nil {
		return fmt.Errorf("upserting concept: %w", err)
	}
	return nil
}

// Get returns a concept by name, or nil when unknown.
func (r *ConceptRepository) Get(ctx context.Context, name string) (*memory.Concept, error) {
	var m ConceptModel
	err := r.db.WithContext(ctx).First(&m, "name = ?", name).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading concept: %w", err)
	}
	c := conceptFromModel(&m)
	return &c, nil
}

// Search matches concepts by name or definition substring, most used first.
func (r *ConceptRepository) Search(ctx context.Context, query string, limit int) ([]memory.Concept, error) {
	var models []ConceptModel
	pattern := "%" + query + "%"
	err := r.db.WithContext(ctx).
		Where("lower(name) LIKE lower(?) OR lower(definition) LIKE lower(?)", pattern, pattern).
		Order("use_count DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("searching concepts: %w", err)
	}
	out := make([]memory.Concept, 0, len(models))
	for i := range models {
		out = append(out, conceptFromModel(&models[i]))
	}
	return out, nil
}

// Reinforce bumps use count and nudges confidence toward 1.
func (r *ConceptRepository) Reinforce(ctx context.Context, name string) error {
	err := r.db.WithContext(ctx).
		Model(&ConceptModel{}).
		Where("name = ?", name).
		Updates(map[string]any{
			"use_count":  gorm.Expr("use_count + 1"),
			"confidence": gorm.Expr("confidence + (1 - confidence) * 0.05"),
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("reinforcing concept: %w", err)
	}
	return nil
}

// Count reports the size of the semantic store.
func (r *ConceptRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&ConceptModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting concepts: %w", err)
	}
	return n, nil
}
