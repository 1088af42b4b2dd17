package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ckaya/ali/internal/memory"
)

// EpisodeRepository implements memory.EpisodeStore on GORM.
type EpisodeRepository struct {
	db *gorm.DB
}

// NewEpisodeRepository creates the repository.
func NewEpisodeRepository(db *gorm.DB) *EpisodeRepository {
	return &EpisodeRepository{db: db}
}

var _ memory.EpisodeStore = (*EpisodeRepository)(nil)

// Store persists a new episode, assigning an ID when missing.
func (r *EpisodeRepository) Store(ctx context.Context, e *memory.Episode) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(episodeToModel(e)).Error; err != nil {
		return fmt.Errorf("storing episode: %w", err)
	}
	return nil
}

// Get returns one episode by ID, or nil when absent.
func (r *EpisodeRepository) Get(ctx context.Context, id uuid.UUID) (*memory.Episode, error) {
	var m EpisodeModel
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading episode: %w", err)
	}
	e := episodeFromModel(&m)
	return &e, nil
}

// Search matches episodes whose content contains any of the query's
// significant terms, ordered by importance.
func (r *EpisodeRepository) Search(ctx context.Context, consciousnessID, query string, limit int) ([]memory.Episode, error) {
	keywords := memory.Keywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	like := r.db.Where("lower(content) LIKE ?", "%"+keywords[0]+"%")
	for _, kw := range keywords[1:] {
		like = like.Or("lower(content) LIKE ?", "%"+kw+"%")
	}

	q := r.db.WithContext(ctx).
		Where("consciousness_id = ?", consciousnessID).
		Where(like)

	var models []EpisodeModel
	if err := q.Order("importance DESC, occurred_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("searching episodes: %w", err)
	}
	return episodesFromModels(models), nil
}

// Recent returns the latest episodes, most recent first.
func (r *EpisodeRepository) Recent(ctx context.Context, consciousnessID string, limit int) ([]memory.Episode, error) {
	var models []EpisodeModel
	err := r.db.WithContext(ctx).
		Where("consciousness_id = ?", consciousnessID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("loading recent episodes: %w", err)
	}
	return episodesFromModels(models), nil
}

// MostImportant returns the highest-importance episodes.
func (r *EpisodeRepository) MostImportant(ctx context.Context, consciousnessID string, limit int) ([]memory.Episode, error) {
	var models []EpisodeModel
	err := r.db.WithContext(ctx).
		Where("consciousness_id = ?", consciousnessID).
		Order("importance DESC, occurred_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("loading important episodes: %w", err)
	}
	return episodesFromModels(models), nil
}

// RecordRecall bumps the recall counter and timestamp.
func (r *EpisodeRepository) RecordRecall(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&EpisodeModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"recall_count":     gorm.Expr("recall_count + 1"),
			"last_recalled_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("recording recall: %w", err)
	}
	return nil
}

// Count reports how many episodes a consciousness holds.
func (r *EpisodeRepository) Count(ctx context.Context, consciousnessID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&EpisodeModel{}).
		Where("consciousness_id = ?", consciousnessID).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("counting episodes: %w", err)
	}
	return n, nil
}

func episodesFromModels(models []EpisodeModel) []memory.Episode {
	out := make([]memory.Episode, 0, len(models))
	for i := range models {
		out = append(out, episodeFromModel(&models[i]))
	}
	return out
}
