package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FillerPresetRepository handles filler presets and their items
type FillerPresetRepository struct {
	db *DB
}

// NewFillerPresetRepository creates a new filler preset repository
func NewFillerPresetRepository(db *DB) *FillerPresetRepository {
	return &FillerPresetRepository{db: db}
}

// Create inserts a preset together with its items. Item media must already exist.
func (r *FillerPresetRepository) Create(ctx context.Context, preset *models.FillerPreset) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(preset).Error; err != nil {
			return fmt.Errorf("failed to create filler preset: %w", MapGormError(err))
		}
		for i := range preset.Items {
			preset.Items[i].PresetID = preset.ID
		}
		if len(preset.Items) == 0 {
			return nil
		}
		if err := tx.Omit("Media").Create(&preset.Items).Error; err != nil {
			return fmt.Errorf("failed to create filler items: %w", MapGormError(err))
		}
		return nil
	})
}

// Replace updates a preset row in place and swaps its items, so schedule references survive
func (r *FillerPresetRepository) Replace(ctx context.Context, preset *models.FillerPreset) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&models.FillerPreset{}).
			Where("id = ?", preset.ID.String()).
			Select("name", "filler_mode", "filler_duration", "pad_to_nearest_minute", "count").
			Updates(map[string]interface{}{
				"name":                  preset.Name,
				"filler_mode":           preset.FillerMode,
				"filler_duration":       preset.FillerDuration,
				"pad_to_nearest_minute": preset.PadToNearestMinute,
				"count":                 preset.Count,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update filler preset: %w", MapGormError(result.Error))
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("preset_id = ?", preset.ID.String()).Delete(&models.FillerItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear filler items: %w", MapGormError(err))
		}
		for i := range preset.Items {
			preset.Items[i].PresetID = preset.ID
		}
		if len(preset.Items) == 0 {
			return nil
		}
		if err := tx.Omit("Media").Create(&preset.Items).Error; err != nil {
			return fmt.Errorf("failed to create filler items: %w", MapGormError(err))
		}
		return nil
	})
}

// GetByID retrieves a preset with its items and their media
func (r *FillerPresetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.FillerPreset, error) {
	var preset models.FillerPreset
	result := r.db.WithContext(ctx).
		Preload("Items.Media").
		Where("id = ?", id.String()).
		First(&preset)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &preset, nil
}

// GetByName retrieves a preset by its unique name
func (r *FillerPresetRepository) GetByName(ctx context.Context, name string) (*models.FillerPreset, error) {
	var preset models.FillerPreset
	result := r.db.WithContext(ctx).
		Preload("Items.Media").
		Where("name = ?", name).
		First(&preset)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &preset, nil
}

// ListByIDs retrieves presets with items and media; unknown IDs are skipped
func (r *FillerPresetRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.FillerPreset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var presets []*models.FillerPreset
	result := r.db.WithContext(ctx).
		Preload("Items.Media").
		Where("id IN ?", keys).
		Find(&presets)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list filler presets: %w", MapGormError(result.Error))
	}
	return presets, nil
}

// Delete deletes a preset; its items cascade and schedule references are cleared
func (r *FillerPresetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.FillerPreset{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete filler preset: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
