package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CollectionKind identifies which namespace a collection ID belongs to
type CollectionKind string

// Collection kinds
const (
	CollectionKindCollection      CollectionKind = "collection"
	CollectionKindPlaylist        CollectionKind = "playlist"
	CollectionKindMultiCollection CollectionKind = "multi_collection"
)

// Valid reports whether the kind is one of the known collection kinds
func (k CollectionKind) Valid() bool {
	switch k {
	case CollectionKindCollection, CollectionKindPlaylist, CollectionKindMultiCollection:
		return true
	}
	return false
}

// PlaybackMode controls how many items a schedule item emits before the cursor moves on
type PlaybackMode string

// Playback modes
const (
	PlaybackModeOne      PlaybackMode = "one"
	PlaybackModeMultiple PlaybackMode = "multiple"
	PlaybackModeDuration PlaybackMode = "duration"
	PlaybackModeFlood    PlaybackMode = "flood"
)

// PlaybackOrder selects the enumerator policy used for a collection
type PlaybackOrder string

// Playback orders
const (
	PlaybackOrderChronological   PlaybackOrder = "chronological"
	PlaybackOrderShuffle         PlaybackOrder = "shuffle"
	PlaybackOrderRandom          PlaybackOrder = "random"
	PlaybackOrderRotatingShuffle PlaybackOrder = "rotating_shuffle"
)

// Valid reports whether the order is a known enumerator policy
func (o PlaybackOrder) Valid() bool {
	switch o {
	case PlaybackOrderChronological, PlaybackOrderShuffle, PlaybackOrderRandom, PlaybackOrderRotatingShuffle:
		return true
	}
	return false
}

// FillerMode selects the filler selection algorithm
type FillerMode string

// Filler modes
const (
	FillerModeNone     FillerMode = "none"
	FillerModePreRoll  FillerMode = "pre_roll"
	FillerModeMidRoll  FillerMode = "mid_roll"
	FillerModePostRoll FillerMode = "post_roll"
	FillerModeTail     FillerMode = "tail"
	FillerModeFallback FillerMode = "fallback"
	FillerModePad      FillerMode = "pad"
)

// GuideMode controls whether a schedule item's output is shown in program guides
type GuideMode string

// Guide modes
const (
	GuideModeNormal GuideMode = "normal"
	GuideModeFiller GuideMode = "filler"
	GuideModeHidden GuideMode = "hidden"
)

// CollectionKey is the typed identity of a collection. Collections, playlists and
// multi-collections live in separate ID namespaces, so the kind is part of the key.
type CollectionKey struct {
	Kind CollectionKind
	ID   uuid.UUID
}

// String renders the key as "kind:uuid"
func (k CollectionKey) String() string {
	return string(k.Kind) + ":" + k.ID.String()
}

// ParseCollectionKey parses the "kind:uuid" form produced by String
func ParseCollectionKey(s string) (CollectionKey, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok {
		return CollectionKey{}, fmt.Errorf("invalid collection key %q", s)
	}
	k := CollectionKind(kind)
	if !k.Valid() {
		return CollectionKey{}, fmt.Errorf("invalid collection kind %q", kind)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return CollectionKey{}, fmt.Errorf("invalid collection id %q: %w", id, err)
	}
	return CollectionKey{Kind: k, ID: parsed}, nil
}

// EnumeratorState is the compact, serializable cursor of a collection enumerator
type EnumeratorState struct {
	Index     int    `json:"index" gorm:"type:integer;not null;default:0;column:index"`
	Seed      *int64 `json:"seed,omitempty" gorm:"type:integer;column:seed"`
	LastIndex *int   `json:"last_index,omitempty" gorm:"type:integer;column:last_index"`
}

// Clone returns a copy that shares no pointers with the receiver
func (s EnumeratorState) Clone() EnumeratorState {
	out := EnumeratorState{Index: s.Index}
	if s.Seed != nil {
		seed := *s.Seed
		out.Seed = &seed
	}
	if s.LastIndex != nil {
		last := *s.LastIndex
		out.LastIndex = &last
	}
	return out
}
