package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ckaya/ali/internal/memory"
)

// ExchangeRepository implements memory.ExchangeStore on GORM.
type ExchangeRepository struct {
	db *gorm.DB
}

// NewExchangeRepository creates the repository.
func NewExchangeRepository(db *gorm.DB) *ExchangeRepository {
	return &ExchangeRepository{db: db}
}

var _ memory.ExchangeStore = (*ExchangeRepository)(nil)

// Append stores one conversational turn.
func (r *ExchangeRepository) Append(ctx context.Context, e *memory.Exchange) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(exchangeToModel(e)).Error; err != nil {
		return fmt.Errorf("appending exchange: %w", err)
	}
	return nil
}

// Recent returns the latest turns, oldest first, so callers can replay the
// conversation in order.
func (r *ExchangeRepository) Recent(ctx context.Context, consciousnessID string, limit int) ([]memory.Exchange, error) {
	var models []ExchangeModel
	err := r.db.WithContext(ctx).
		Where("consciousness_id = ?", consciousnessID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("loading recent exchanges: %w", err)
	}

	out := make([]memory.Exchange, len(models))
	for i := range models {
		out[len(models)-1-i] = exchangeFromModel(&models[i])
	}
	return out, nil
}

// Count reports the total number of turns.
func (r *ExchangeRepository) Count(ctx context.Context, consciousnessID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&ExchangeModel{}).
		Where("consciousness_id = ?", consciousnessID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting exchanges: %w", err)
	}
	return n, nil
}
