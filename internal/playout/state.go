package playout

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// State is the authoritative record of one channel's playout. Items stay sorted by start
// and non-overlapping because they only change through AddItem, RemoveOldItems and the
// builder's merge.
type State struct {
	ChannelID         uuid.UUID
	Items             []*models.PlayoutItem
	Anchors           []*models.PlayoutAnchor
	ScheduleItemIndex int
}

// NewState creates an empty state for a channel
func NewState(channelID uuid.UUID) *State {
	return &State{ChannelID: channelID}
}

// AddItem inserts an item keeping Items sorted by start
func (s *State) AddItem(item *models.PlayoutItem) {
	i := sort.Search(len(s.Items), func(i int) bool {
		return s.Items[i].Start.After(item.Start)
	})
	s.Items = append(s.Items, nil)
	copy(s.Items[i+1:], s.Items[i:])
	s.Items[i] = item
}

// RemoveOldItems drops items that finished at or before the cutoff and returns how many
func (s *State) RemoveOldItems(before time.Time) int {
	kept := s.Items[:0]
	removed := 0
	for _, item := range s.Items {
		if !item.Finish.After(before) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	for i := len(kept); i < len(s.Items); i++ {
		s.Items[i] = nil
	}
	s.Items = kept
	return removed
}

// AnchorFor returns the anchor of a collection, or nil
func (s *State) AnchorFor(key models.CollectionKey) *models.PlayoutAnchor {
	for _, a := range s.Anchors {
		if a.Key() == key {
			return a
		}
	}
	return nil
}

// UpdateAnchor replaces the anchor for the same collection in place, or appends it
func (s *State) UpdateAnchor(anchor *models.PlayoutAnchor) {
	for i, a := range s.Anchors {
		if a.Key() == anchor.Key() {
			anchor.ID = a.ID
			s.Anchors[i] = anchor
			return
		}
	}
	s.Anchors = append(s.Anchors, anchor)
}

// TimelineEnd returns the finish of the last item; ok is false for an empty timeline
func (s *State) TimelineEnd() (time.Time, bool) {
	if len(s.Items) == 0 {
		return time.Time{}, false
	}
	return s.Items[len(s.Items)-1].Finish, true
}

// HoldsCursor reports whether the timeline ends on the schedule item the cursor points
// at. The cursor only stays put after an unfinished flood, so the next build resumes it.
func (s *State) HoldsCursor() bool {
	if len(s.Items) == 0 {
		return false
	}
	return s.Items[len(s.Items)-1].ScheduleItemIndex == s.ScheduleItemIndex
}

// Clone returns a deep copy used as a build's working copy
func (s *State) Clone() *State {
	out := &State{
		ChannelID:         s.ChannelID,
		ScheduleItemIndex: s.ScheduleItemIndex,
		Items:             make([]*models.PlayoutItem, len(s.Items)),
		Anchors:           make([]*models.PlayoutAnchor, len(s.Anchors)),
	}
	for i, item := range s.Items {
		out.Items[i] = item.Clone()
	}
	for i, a := range s.Anchors {
		out.Anchors[i] = a.Clone()
	}
	return out
}
