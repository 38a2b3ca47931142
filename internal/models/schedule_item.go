package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleItem is one rule of a channel's program schedule
type ScheduleItem struct {
	ID             uuid.UUID      `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID      uuid.UUID      `json:"channel_id" gorm:"type:text;not null;column:channel_id" validate:"required"`
	Index          int            `json:"index" gorm:"type:integer;not null;column:item_index" validate:"gte=0"`
	CollectionKind CollectionKind `json:"collection_kind" gorm:"type:text;not null;column:collection_kind" validate:"required"`
	CollectionID   uuid.UUID      `json:"collection_id" gorm:"type:text;not null;column:collection_id" validate:"required"`
	PlaybackMode   PlaybackMode   `json:"playback_mode" gorm:"type:text;not null;default:one;column:playback_mode"`
	PlaybackOrder  PlaybackOrder  `json:"playback_order,omitempty" gorm:"type:text;column:playback_order"`

	// Count applies to PlaybackModeMultiple
	Count *int `json:"count,omitempty" gorm:"type:integer;column:count"`
	// TargetDuration applies to PlaybackModeDuration (seconds)
	TargetDuration *int64 `json:"target_duration,omitempty" gorm:"type:integer;column:target_duration"`
	// FloodEnd applies to PlaybackModeFlood; nil floods to the end of the build window
	FloodEnd *time.Time `json:"flood_end,omitempty" gorm:"type:datetime;column:flood_end"`
	// FixedStart is an optional "HH:MM" time of day in the channel time zone
	FixedStart *string `json:"fixed_start,omitempty" gorm:"type:text;column:fixed_start"`

	PreRollFillerID  *uuid.UUID `json:"pre_roll_filler_id,omitempty" gorm:"type:text;column:pre_roll_filler_id"`
	MidRollFillerID  *uuid.UUID `json:"mid_roll_filler_id,omitempty" gorm:"type:text;column:mid_roll_filler_id"`
	PostRollFillerID *uuid.UUID `json:"post_roll_filler_id,omitempty" gorm:"type:text;column:post_roll_filler_id"`
	TailFillerID     *uuid.UUID `json:"tail_filler_id,omitempty" gorm:"type:text;column:tail_filler_id"`
	FallbackFillerID *uuid.UUID `json:"fallback_filler_id,omitempty" gorm:"type:text;column:fallback_filler_id"`

	CustomTitle *string   `json:"custom_title,omitempty" gorm:"type:text;column:custom_title"`
	GuideMode   GuideMode `json:"guide_mode" gorm:"type:text;not null;default:normal;column:guide_mode"`
	CreatedAt   time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// NewScheduleItem creates a ONE-mode schedule item for a collection
func NewScheduleItem(channelID uuid.UUID, index int, key CollectionKey) *ScheduleItem {
	return &ScheduleItem{
		ID:             uuid.New(),
		ChannelID:      channelID,
		Index:          index,
		CollectionKind: key.Kind,
		CollectionID:   key.ID,
		PlaybackMode:   PlaybackModeOne,
		GuideMode:      GuideModeNormal,
		CreatedAt:      time.Now().UTC(),
	}
}

// CollectionKey returns the typed key of the source collection
func (s *ScheduleItem) CollectionKey() CollectionKey {
	return CollectionKey{Kind: s.CollectionKind, ID: s.CollectionID}
}

// Target returns the DURATION target, zero when unset
func (s *ScheduleItem) Target() time.Duration {
	if s.TargetDuration == nil {
		return 0
	}
	return time.Duration(*s.TargetDuration) * time.Second
}

// MultipleCount returns the MULTIPLE count, defaulting to 1
func (s *ScheduleItem) MultipleCount() int {
	if s.Count == nil || *s.Count < 1 {
		return 1
	}
	return *s.Count
}

// NextFixedStart returns the first occurrence of FixedStart at or after t in loc.
// ok is false when the item has no fixed start.
func (s *ScheduleItem) NextFixedStart(t time.Time, loc *time.Location) (time.Time, bool, error) {
	if s.FixedStart == nil || *s.FixedStart == "" {
		return time.Time{}, false, nil
	}
	clock, err := time.Parse("15:04", *s.FixedStart)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid fixed start %q: %w", *s.FixedStart, err)
	}
	local := t.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	if next.Before(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next.UTC(), true, nil
}
