package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"gorm.io/gorm"
)

// ScheduleItemRepository handles a channel's program schedule
type ScheduleItemRepository struct {
	db *DB
}

// NewScheduleItemRepository creates a new schedule item repository
func NewScheduleItemRepository(db *DB) *ScheduleItemRepository {
	return &ScheduleItemRepository{db: db}
}

// Create inserts a schedule item
func (r *ScheduleItemRepository) Create(ctx context.Context, item *models.ScheduleItem) error {
	result := r.db.WithContext(ctx).Create(item)
	if result.Error != nil {
		return fmt.Errorf("failed to create schedule item: %w", MapGormError(result.Error))
	}
	return nil
}

// ListByChannel retrieves a channel's schedule items in index order
func (r *ScheduleItemRepository) ListByChannel(ctx context.Context, channelID uuid.UUID) ([]*models.ScheduleItem, error) {
	var items []*models.ScheduleItem
	result := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID.String()).
		Order("item_index ASC").
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list schedule items: %w", MapGormError(result.Error))
	}
	return items, nil
}

// ReplaceForChannel atomically swaps a channel's schedule. Items are re-indexed in slice order.
func (r *ScheduleItemRepository) ReplaceForChannel(ctx context.Context, channelID uuid.UUID, items []*models.ScheduleItem) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("channel_id = ?", channelID.String()).Delete(&models.ScheduleItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear schedule: %w", MapGormError(err))
		}
		for i, item := range items {
			item.ChannelID = channelID
			item.Index = i
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Create(items).Error; err != nil {
			return fmt.Errorf("failed to create schedule items: %w", MapGormError(err))
		}
		return nil
	})
}
