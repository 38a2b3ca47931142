package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"gorm.io/gorm"
)

// CollectionRepository handles collections, playlists and multi-collections
type CollectionRepository struct {
	db *DB
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(db *DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Create inserts a new collection
func (r *CollectionRepository) Create(ctx context.Context, collection *models.Collection) error {
	if !collection.Kind.Valid() {
		return fmt.Errorf("%w: collection kind %q", ErrInvalidInput, collection.Kind)
	}
	result := r.db.WithContext(ctx).Create(collection)
	if result.Error != nil {
		return fmt.Errorf("failed to create collection: %w", MapGormError(result.Error))
	}
	return nil
}

// GetByKey retrieves a collection by kind and ID
func (r *CollectionRepository) GetByKey(ctx context.Context, key models.CollectionKey) (*models.Collection, error) {
	var collection models.Collection
	result := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", key.ID.String(), string(key.Kind)).
		First(&collection)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &collection, nil
}

// GetByName retrieves a collection by kind and name
func (r *CollectionRepository) GetByName(ctx context.Context, kind models.CollectionKind, name string) (*models.Collection, error) {
	var collection models.Collection
	result := r.db.WithContext(ctx).
		Where("kind = ? AND name = ?", string(kind), name).
		First(&collection)
	if result.Error != nil {
		return nil, MapGormError(result.Error)
	}
	return &collection, nil
}

// List retrieves all collections ordered by kind and name
func (r *CollectionRepository) List(ctx context.Context) ([]*models.Collection, error) {
	var collections []*models.Collection
	result := r.db.WithContext(ctx).Order("kind ASC, name ASC").Find(&collections)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list collections: %w", MapGormError(result.Error))
	}
	return collections, nil
}

// ReplaceItems rewrites a collection's membership in position order
func (r *CollectionRepository) ReplaceItems(ctx context.Context, collectionID uuid.UUID, items []*models.CollectionItem) error {
	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", collectionID.String()).Delete(&models.CollectionItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear collection items: %w", MapGormError(err))
		}
		for i, item := range items {
			item.CollectionID = collectionID
			item.Position = i
		}
		if len(items) == 0 {
			return nil
		}
		if err := tx.Create(items).Error; err != nil {
			return fmt.Errorf("failed to create collection items: %w", MapGormError(err))
		}
		return nil
	})
}

// Resolve returns the ordered media of a collection. A multi-collection resolves to the
// concatenation of its members in position order.
func (r *CollectionRepository) Resolve(ctx context.Context, key models.CollectionKey) ([]*models.Media, error) {
	if _, err := r.GetByKey(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to resolve collection %s: %w", key, err)
	}
	return r.resolve(ctx, key.ID, map[uuid.UUID]bool{})
}

func (r *CollectionRepository) resolve(ctx context.Context, collectionID uuid.UUID, visiting map[uuid.UUID]bool) ([]*models.Media, error) {
	if visiting[collectionID] {
		return nil, fmt.Errorf("%w: %s", ErrCollectionCycle, collectionID)
	}
	visiting[collectionID] = true
	defer delete(visiting, collectionID)

	var items []*models.CollectionItem
	result := r.db.WithContext(ctx).
		Where("collection_id = ?", collectionID.String()).
		Order("position ASC").
		Find(&items)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load collection items: %w", MapGormError(result.Error))
	}

	var mediaIDs []uuid.UUID
	for _, item := range items {
		if item.MediaID != nil {
			mediaIDs = append(mediaIDs, *item.MediaID)
		}
	}
	byID, err := NewMediaRepository(r.db).GetByIDs(ctx, mediaIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Media, 0, len(items))
	for _, item := range items {
		switch {
		case item.MediaID != nil:
			if m, ok := byID[*item.MediaID]; ok {
				out = append(out, m)
			}
		case item.MemberCollectionID != nil:
			members, err := r.resolve(ctx, *item.MemberCollectionID, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, members...)
		}
	}
	return out, nil
}

// Delete deletes a collection and its membership rows
func (r *CollectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id.String()).Delete(&models.Collection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete collection: %w", MapGormError(result.Error))
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
