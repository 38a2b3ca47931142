package models

import (
	"time"

	"github.com/google/uuid"
)

// Playout is the per-channel playout header row
type Playout struct {
	ChannelID         uuid.UUID `json:"channel_id" gorm:"type:text;primaryKey;column:channel_id"`
	ScheduleItemIndex int       `json:"schedule_item_index" gorm:"type:integer;not null;default:0;column:schedule_item_index"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:updated_at"`
}

// PlayoutItem is one timeline entry covering the half-open interval [Start, Finish)
type PlayoutItem struct {
	ID        uuid.UUID `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID uuid.UUID `json:"channel_id" gorm:"type:text;not null;column:channel_id"`
	MediaID   uuid.UUID `json:"media_item_id" gorm:"type:text;not null;column:media_id"`
	Start     time.Time `json:"start" gorm:"type:datetime;not null;column:start_at"`
	Finish    time.Time `json:"finish" gorm:"type:datetime;not null;column:finish_at"`
	// InPoint and OutPoint are trim points in seconds from the start of the media
	InPoint       *int64     `json:"in_point,omitempty" gorm:"type:integer;column:in_point"`
	OutPoint      *int64     `json:"out_point,omitempty" gorm:"type:integer;column:out_point"`
	FillerKind    FillerMode `json:"filler_kind,omitempty" gorm:"type:text;column:filler_kind"`
	CustomTitle   *string    `json:"custom_title,omitempty" gorm:"type:text;column:custom_title"`
	CollectionKey string     `json:"collection_key" gorm:"type:text;not null;column:collection_key"`
	GuideHidden   bool       `json:"guide_hidden" gorm:"type:integer;not null;default:0;column:guide_hidden"`

	// ScheduleItemIndex and Cursor record where this item came from so a REFRESH
	// can rewind the enumerator to the state it had before the item was drawn.
	ScheduleItemIndex int             `json:"schedule_item_index" gorm:"type:integer;not null;default:0;column:schedule_item_index"`
	Cursor            EnumeratorState `json:"cursor" gorm:"embedded;embeddedPrefix:cursor_"`
}

// Duration returns Finish - Start
func (p *PlayoutItem) Duration() time.Duration {
	return p.Finish.Sub(p.Start)
}

// Contains reports whether t falls in [Start, Finish)
func (p *PlayoutItem) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.Finish)
}

// IsFiller reports whether the item was inserted by the filler manager
func (p *PlayoutItem) IsFiller() bool {
	return p.FillerKind != "" && p.FillerKind != FillerModeNone
}

// Clone returns a deep copy
func (p *PlayoutItem) Clone() *PlayoutItem {
	out := *p
	if p.InPoint != nil {
		v := *p.InPoint
		out.InPoint = &v
	}
	if p.OutPoint != nil {
		v := *p.OutPoint
		out.OutPoint = &v
	}
	if p.CustomTitle != nil {
		v := *p.CustomTitle
		out.CustomTitle = &v
	}
	out.Cursor = p.Cursor.Clone()
	return &out
}

// PlayoutAnchor persists enumerator state for one collection of one channel.
// An anchor with AnchorDate set is a checkpoint: the cursor was valid as of that time.
type PlayoutAnchor struct {
	ID             uuid.UUID       `json:"id" gorm:"type:text;primaryKey;column:id"`
	ChannelID      uuid.UUID       `json:"channel_id" gorm:"type:text;not null;column:channel_id"`
	CollectionKind CollectionKind  `json:"collection_type" gorm:"type:text;not null;column:collection_kind"`
	CollectionID   uuid.UUID       `json:"collection_id" gorm:"type:text;not null;column:collection_id"`
	PlaybackOrder  PlaybackOrder   `json:"playback_order" gorm:"type:text;not null;column:playback_order"`
	State          EnumeratorState `json:"enumerator_state" gorm:"embedded;embeddedPrefix:enumerator_"`
	AnchorDate     *time.Time      `json:"anchor_date,omitempty" gorm:"type:datetime;column:anchor_date"`
}

// NewPlayoutAnchor creates an anchor for a collection
func NewPlayoutAnchor(channelID uuid.UUID, key CollectionKey, order PlaybackOrder, state EnumeratorState) *PlayoutAnchor {
	return &PlayoutAnchor{
		ID:             uuid.New(),
		ChannelID:      channelID,
		CollectionKind: key.Kind,
		CollectionID:   key.ID,
		PlaybackOrder:  order,
		State:          state,
	}
}

// Key returns the typed collection key
func (a *PlayoutAnchor) Key() CollectionKey {
	return CollectionKey{Kind: a.CollectionKind, ID: a.CollectionID}
}

// IsCheckpoint reports whether the anchor carries a synchronization date
func (a *PlayoutAnchor) IsCheckpoint() bool {
	return a.AnchorDate != nil
}

// Clone returns a deep copy
func (a *PlayoutAnchor) Clone() *PlayoutAnchor {
	out := *a
	out.State = a.State.Clone()
	if a.AnchorDate != nil {
		d := *a.AnchorDate
		out.AnchorDate = &d
	}
	return &out
}
