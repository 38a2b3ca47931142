package models

import (
	"time"

	"github.com/google/uuid"
)

// Collection is a named group of media. Playlists and multi-collections share the table
// and are told apart by Kind; a multi-collection's members are other collections.
type Collection struct {
	ID        uuid.UUID      `json:"id" gorm:"type:text;primaryKey;column:id"`
	Kind      CollectionKind `json:"kind" gorm:"type:text;not null;column:kind" validate:"required,oneof=collection playlist multi_collection"`
	Name      string         `json:"name" gorm:"type:text;not null;column:name" validate:"required"`
	CreatedAt time.Time      `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`
}

// NewCollection creates a new Collection with generated UUID and timestamp
func NewCollection(kind CollectionKind, name string) *Collection {
	return &Collection{
		ID:        uuid.New(),
		Kind:      kind,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
}

// Key returns the typed collection key
func (c *Collection) Key() CollectionKey {
	return CollectionKey{Kind: c.Kind, ID: c.ID}
}

// CollectionItem is an ordered membership row. Exactly one of MediaID and
// MemberCollectionID is set; the latter only for multi-collections.
type CollectionItem struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:text;primaryKey;column:id"`
	CollectionID       uuid.UUID  `json:"collection_id" gorm:"type:text;not null;column:collection_id" validate:"required"`
	MediaID            *uuid.UUID `json:"media_id,omitempty" gorm:"type:text;column:media_id"`
	MemberCollectionID *uuid.UUID `json:"member_collection_id,omitempty" gorm:"type:text;column:member_collection_id"`
	Position           int        `json:"position" gorm:"type:integer;not null;column:position" validate:"gte=0"`
	CreatedAt          time.Time  `json:"created_at" gorm:"type:datetime;default:CURRENT_TIMESTAMP;column:created_at"`

	// Populated by joins, not stored in database
	Media *Media `json:"media,omitempty" gorm:"-"`
}

// NewCollectionItem creates a media membership row
func NewCollectionItem(collectionID, mediaID uuid.UUID, position int) *CollectionItem {
	return &CollectionItem{
		ID:           uuid.New(),
		CollectionID: collectionID,
		MediaID:      &mediaID,
		Position:     position,
		CreatedAt:    time.Now().UTC(),
	}
}

// NewCollectionMember creates a multi-collection membership row
func NewCollectionMember(collectionID, memberID uuid.UUID, position int) *CollectionItem {
	return &CollectionItem{
		ID:                 uuid.New(),
		CollectionID:       collectionID,
		MemberCollectionID: &memberID,
		Position:           position,
		CreatedAt:          time.Now().UTC(),
	}
}
