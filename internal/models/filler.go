package models

import (
	"time"

	"github.com/google/uuid"
)

// FillerPreset is a named group of filler items and the rules for using them
type FillerPreset struct {
	ID         uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	Name       string     `json:"name" gorm:"type:text;not null;column:name" validate:"required"`
	FillerMode FillerMode `json:"filler_mode" gorm:"type:text;not null;default:none;column:filler_mode"`
	// FillerDuration is a fixed target in seconds for count-based modes
	FillerDuration     *int64    `json:"filler_duration,omitempty" gorm:"type:integer;column:filler_duration"`
	PadToNearestMinute *int      `json:"pad_to_nearest_minute,omitempty" gorm:"type:integer;column:pad_to_nearest_minute"`
	Count              *int      `json:"count,omitempty" gorm:"type:integer;column:count"`
	CreatedAt          time.Time `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`

	// Populated by joins, not stored on this row
	Items []FillerItem `json:"items,omitempty" gorm:"foreignKey:PresetID"`
}

// NewFillerPreset creates a new FillerPreset with generated UUID and timestamp
func NewFillerPreset(name string, mode FillerMode) *FillerPreset {
	return &FillerPreset{
		ID:         uuid.New(),
		Name:       name,
		FillerMode: mode,
		CreatedAt:  time.Now().UTC(),
	}
}

// FixedDuration returns FillerDuration as a time.Duration, zero when unset
func (p *FillerPreset) FixedDuration() time.Duration {
	if p.FillerDuration == nil {
		return 0
	}
	return time.Duration(*p.FillerDuration) * time.Second
}

// FillerItem is one candidate piece of filler
type FillerItem struct {
	ID       uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	PresetID uuid.UUID `json:"preset_id" gorm:"type:text;not null;column:preset_id"`
	MediaID  uuid.UUID `json:"media_id" gorm:"type:text;not null;column:media_id"`
	Weight   int       `json:"weight" gorm:"type:integer;not null;default:1;column:weight"`

	Media *Media `json:"media,omitempty" gorm:"foreignKey:MediaID"`
}

// NewFillerItem creates a filler item with weight 1
func NewFillerItem(presetID uuid.UUID, media *Media) FillerItem {
	return FillerItem{
		ID:       uuid.New(),
		PresetID: presetID,
		MediaID:  media.ID,
		Weight:   1,
		Media:    media,
	}
}

// Runtime returns the filler media duration, zero when media is not loaded
func (f *FillerItem) Runtime() time.Duration {
	if f.Media == nil {
		return 0
	}
	return f.Media.Runtime()
}
