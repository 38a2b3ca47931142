package playout

import (
	"sort"
	"time"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// GetCurrentItem returns the item whose [Start, Finish) contains at, or nil
func GetCurrentItem(state *State, at time.Time) *models.PlayoutItem {
	if state == nil {
		return nil
	}
	// first item starting after at; the candidate is the one before it
	i := sort.Search(len(state.Items), func(i int) bool {
		return state.Items[i].Start.After(at)
	})
	if i == 0 {
		return nil
	}
	if item := state.Items[i-1]; item.Contains(at) {
		return item
	}
	return nil
}

// GetUpcomingItems returns up to count items starting strictly after after, in start order
func GetUpcomingItems(state *State, count int, after time.Time) []*models.PlayoutItem {
	if state == nil || count <= 0 {
		return nil
	}
	i := sort.Search(len(state.Items), func(i int) bool {
		return state.Items[i].Start.After(after)
	})
	end := min(i+count, len(state.Items))
	out := make([]*models.PlayoutItem, end-i)
	copy(out, state.Items[i:end])
	return out
}

// TimeUntilNext returns the time left in the item playing at at, or the wait until the
// next item starts. ok is false when the timeline has no coverage after at.
func TimeUntilNext(state *State, at time.Time) (time.Duration, bool) {
	if current := GetCurrentItem(state, at); current != nil {
		return current.Finish.Sub(at), true
	}
	next := GetUpcomingItems(state, 1, at)
	if len(next) == 0 {
		return 0, false
	}
	return next[0].Start.Sub(at), true
}
