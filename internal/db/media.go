package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// MediaRepository handles database operations for media
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// Create inserts a new media item into the database
func (r *MediaRepository) Create(ctx context.Context, media *models.Media) error {
	result := r.db.WithContext(ctx).Create(media)
	if result.Error != nil {
		return fmt.Errorf("failed to create media: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByID retrieves a media item by its UUID
func (r *MediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	var media models.Media
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&media)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &media, nil
}

// GetByPath retrieves a media item by its file path (for duplicate checking)
func (r *MediaRepository) GetByPath(ctx context.Context, path string) (*models.Media, error) {
	var media models.Media
	result := r.db.WithContext(ctx).Where("file_path = ?", path).First(&media)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &media, nil
}

// GetByIDs retrieves media items keyed by ID; unknown IDs are absent from the map
func (r *MediaRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Media, error) {
	out := make(map[uuid.UUID]*models.Media, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	var mediaList []*models.Media
	result := r.db.WithContext(ctx).Where("id IN ?", keys).Find(&mediaList)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load media: %w", MapGormError(result.Error))
	}
	for _, m := range mediaList {
		out[m.ID] = m
	}
	return out, nil
}

// ListByShow retrieves media items of a show in release order.
// COALESCE sorts missing season/episode last (SQLite sorts NULLs first by default).
func (r *MediaRepository) ListByShow(ctx context.Context, showName string) ([]*models.Media, error) {
	var mediaList []*models.Media
	result := r.db.WithContext(ctx).
		Where("show_name = ?", showName).
		Order("COALESCE(season, 9999999) ASC, COALESCE(episode, 9999999) ASC").
		Find(&mediaList)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list media by show: %w", MapGormError(result.Error))
	}
	return mediaList, nil
}

// Count returns the total number of media items
func (r *MediaRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.Media{}).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count media: %w", MapGormError(result.Error))
	}
	return count, nil
}

// Update updates an existing media item.
// Map-based updates let show/season/episode be cleared.
func (r *MediaRepository) Update(ctx context.Context, media *models.Media) error {
	updates := map[string]interface{}{
		"file_path": media.FilePath,
		"title":     media.Title,
		"show_name": media.ShowName,
		"season":    media.Season,
		"episode":   media.Episode,
		"duration":  media.Duration,
	}

	result := r.db.WithContext(ctx).
		Model(&models.Media{}).
		Where("id = ?", media.ID.String()).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update media: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert creates media by file path, or updates the existing row and adopts its ID
func (r *MediaRepository) Upsert(ctx context.Context, media *models.Media) error {
	existing, err := r.GetByPath(ctx, media.FilePath)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("failed to look up media: %w", err)
	}
	if existing == nil {
		return r.Create(ctx, media)
	}
	media.ID = existing.ID
	media.CreatedAt = existing.CreatedAt
	return r.Update(ctx, media)
}
