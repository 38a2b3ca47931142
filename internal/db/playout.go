package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const playoutItemBatchSize = 200

// PlayoutSnapshot is everything persisted for one channel's playout
type PlayoutSnapshot struct {
	ScheduleItemIndex int
	Items             []*models.PlayoutItem
	Anchors           []*models.PlayoutAnchor
}

// PlayoutChanges describes one committed build. ClearAll replaces everything; otherwise
// items starting at or after RemoveFrom are replaced when RemoveFrom is set.
type PlayoutChanges struct {
	ChannelID         uuid.UUID
	ClearAll          bool
	RemoveFrom        *time.Time
	Items             []*models.PlayoutItem
	Anchors           []*models.PlayoutAnchor
	ScheduleItemIndex int
}

// PlayoutRepository persists timelines, anchors and schedule cursors
type PlayoutRepository struct {
	db *DB
}

// NewPlayoutRepository creates a new playout repository
func NewPlayoutRepository(db *DB) *PlayoutRepository {
	return &PlayoutRepository{db: db}
}

// Load returns a channel's persisted playout. A channel that was never built yields an
// empty snapshot.
func (r *PlayoutRepository) Load(ctx context.Context, channelID uuid.UUID) (*PlayoutSnapshot, error) {
	snapshot := &PlayoutSnapshot{}
	tx := r.db.WithContext(ctx)

	var header models.Playout
	err := tx.Where("channel_id = ?", channelID.String()).First(&header).Error
	switch {
	case err == nil:
		snapshot.ScheduleItemIndex = header.ScheduleItemIndex
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("failed to load playout: %w", MapGormError(err))
	}

	if err := tx.Where("channel_id = ?", channelID.String()).
		Order("start_at ASC").
		Find(&snapshot.Items).Error; err != nil {
		return nil, fmt.Errorf("failed to load playout items: %w", MapGormError(err))
	}
	for _, item := range snapshot.Items {
		item.Start = item.Start.UTC()
		item.Finish = item.Finish.UTC()
	}

	if err := tx.Where("channel_id = ?", channelID.String()).
		Order("collection_kind ASC, collection_id ASC").
		Find(&snapshot.Anchors).Error; err != nil {
		return nil, fmt.Errorf("failed to load playout anchors: %w", MapGormError(err))
	}
	for _, anchor := range snapshot.Anchors {
		if anchor.AnchorDate != nil {
			d := anchor.AnchorDate.UTC()
			anchor.AnchorDate = &d
		}
	}

	return snapshot, nil
}

// Apply writes a build's changes in one transaction so readers never see a partial merge
func (r *PlayoutRepository) Apply(ctx context.Context, changes *PlayoutChanges) error {
	channelID := changes.ChannelID.String()

	return r.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		switch {
		case changes.ClearAll:
			if err := tx.Where("channel_id = ?", channelID).Delete(&models.PlayoutItem{}).Error; err != nil {
				return fmt.Errorf("failed to clear playout items: %w", MapGormError(err))
			}
			if err := tx.Where("channel_id = ?", channelID).Delete(&models.PlayoutAnchor{}).Error; err != nil {
				return fmt.Errorf("failed to clear playout anchors: %w", MapGormError(err))
			}
		case changes.RemoveFrom != nil:
			if err := tx.Where("channel_id = ? AND start_at >= ?", channelID, changes.RemoveFrom.UTC()).
				Delete(&models.PlayoutItem{}).Error; err != nil {
				return fmt.Errorf("failed to remove future playout items: %w", MapGormError(err))
			}
		}

		if len(changes.Items) > 0 {
			for _, item := range changes.Items {
				item.ChannelID = changes.ChannelID
				item.Start = item.Start.UTC()
				item.Finish = item.Finish.UTC()
			}
			if err := tx.CreateInBatches(changes.Items, playoutItemBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert playout items: %w", MapGormError(err))
			}
		}

		for _, anchor := range changes.Anchors {
			anchor.ChannelID = changes.ChannelID
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "channel_id"}, {Name: "collection_kind"}, {Name: "collection_id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"playback_order", "enumerator_index", "enumerator_seed", "enumerator_last_index", "anchor_date",
				}),
			}).Create(anchor).Error
			if err != nil {
				return fmt.Errorf("failed to upsert playout anchor: %w", MapGormError(err))
			}
		}

		header := models.Playout{
			ChannelID:         changes.ChannelID,
			ScheduleItemIndex: changes.ScheduleItemIndex,
			UpdatedAt:         time.Now().UTC(),
		}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"schedule_item_index", "updated_at"}),
		}).Create(&header).Error
		if err != nil {
			return fmt.Errorf("failed to save playout cursor: %w", MapGormError(err))
		}
		return nil
	})
}

// DeleteItemsBefore removes items that finished at or before the cutoff
func (r *PlayoutRepository) DeleteItemsBefore(ctx context.Context, channelID uuid.UUID, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("channel_id = ? AND finish_at <= ?", channelID.String(), before.UTC()).
		Delete(&models.PlayoutItem{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to trim playout history: %w", MapGormError(result.Error))
	}
	return result.RowsAffected, nil
}
