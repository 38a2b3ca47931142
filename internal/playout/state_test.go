package playout

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// at returns a fixed test date at h:m UTC
func at(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

// newTestMedia creates one media item per title, each minutes long
func newTestMedia(minutes int, titles ...string) []*models.Media {
	out := make([]*models.Media, len(titles))
	for i, title := range titles {
		out[i] = models.NewMedia(fmt.Sprintf("/media/%s.mp4", title), title, int64(minutes*60))
	}
	return out
}

// newTestPreset creates a filler preset with one item per duration (seconds)
func newTestPreset(mode models.FillerMode, durations ...int64) *models.FillerPreset {
	preset := models.NewFillerPreset(fmt.Sprintf("%s filler", mode), mode)
	for i, d := range durations {
		m := models.NewMedia(fmt.Sprintf("/filler/%s-%d.mp4", mode, i), fmt.Sprintf("Filler %d", i), d)
		preset.Items = append(preset.Items, models.NewFillerItem(preset.ID, m))
	}
	return preset
}

func newTestItem(start, finish time.Time) *models.PlayoutItem {
	return &models.PlayoutItem{
		ID:            uuid.New(),
		MediaID:       uuid.New(),
		Start:         start,
		Finish:        finish,
		CollectionKey: "collection:" + uuid.NewString(),
	}
}

func collectionKey() models.CollectionKey {
	return models.CollectionKey{Kind: models.CollectionKindCollection, ID: uuid.New()}
}

// titlesOf maps timeline entries back to media titles
func titlesOf(items []*models.PlayoutItem, media ...[]*models.Media) []string {
	byID := make(map[uuid.UUID]string)
	for _, list := range media {
		for _, m := range list {
			byID[m.ID] = m.Title
		}
	}
	out := make([]string, len(items))
	for i, item := range items {
		title, ok := byID[item.MediaID]
		if !ok {
			title = "?"
		}
		out[i] = title
	}
	return out
}

// requireTimeline asserts items are sorted by start and non-overlapping
func requireTimeline(t *testing.T, items []*models.PlayoutItem) {
	t.Helper()
	for i := 1; i < len(items); i++ {
		require.False(t, items[i].Start.Before(items[i-1].Start), "item %d starts before item %d", i, i-1)
		require.False(t, items[i-1].Finish.After(items[i].Start), "item %d overlaps item %d", i-1, i)
	}
}

func TestState_AddItemKeepsOrder(t *testing.T) {
	s := NewState(uuid.New())
	s.AddItem(newTestItem(at(10, 0), at(10, 30)))
	s.AddItem(newTestItem(at(9, 0), at(9, 30)))
	s.AddItem(newTestItem(at(9, 30), at(10, 0)))

	require.Len(t, s.Items, 3)
	assert.True(t, s.Items[0].Start.Equal(at(9, 0)))
	assert.True(t, s.Items[1].Start.Equal(at(9, 30)))
	assert.True(t, s.Items[2].Start.Equal(at(10, 0)))
	requireTimeline(t, s.Items)
}

func TestState_RemoveOldItems(t *testing.T) {
	s := NewState(uuid.New())
	s.AddItem(newTestItem(at(9, 0), at(9, 30)))
	s.AddItem(newTestItem(at(9, 30), at(10, 0)))
	s.AddItem(newTestItem(at(10, 0), at(10, 30)))

	removed := s.RemoveOldItems(at(10, 15))

	assert.Equal(t, 2, removed)
	require.Len(t, s.Items, 1)
	assert.True(t, s.Items[0].Start.Equal(at(10, 0)), "item still playing at the cutoff is kept")
}

func TestState_RemoveOldItemsNothingToRemove(t *testing.T) {
	s := NewState(uuid.New())
	s.AddItem(newTestItem(at(9, 0), at(9, 30)))

	assert.Equal(t, 0, s.RemoveOldItems(at(8, 0)))
	assert.Len(t, s.Items, 1)
}

func TestState_UpdateAnchorUpserts(t *testing.T) {
	channelID := uuid.New()
	key := collectionKey()
	s := NewState(channelID)

	first := models.NewPlayoutAnchor(channelID, key, models.PlaybackOrderChronological, models.EnumeratorState{Index: 1})
	s.UpdateAnchor(first)
	second := models.NewPlayoutAnchor(channelID, key, models.PlaybackOrderChronological, models.EnumeratorState{Index: 5})
	s.UpdateAnchor(second)

	require.Len(t, s.Anchors, 1)
	assert.Equal(t, first.ID, s.Anchors[0].ID, "existing anchor id is kept")
	assert.Equal(t, 5, s.AnchorFor(key).State.Index)

	other := collectionKey()
	s.UpdateAnchor(models.NewPlayoutAnchor(channelID, other, models.PlaybackOrderShuffle, models.EnumeratorState{}))
	assert.Len(t, s.Anchors, 2)
	assert.Nil(t, s.AnchorFor(collectionKey()))
}

func TestState_AnchorKeysDoNotCollideAcrossKinds(t *testing.T) {
	channelID := uuid.New()
	id := uuid.New()
	s := NewState(channelID)

	s.UpdateAnchor(models.NewPlayoutAnchor(channelID, models.CollectionKey{Kind: models.CollectionKindCollection, ID: id}, models.PlaybackOrderShuffle, models.EnumeratorState{Index: 1}))
	s.UpdateAnchor(models.NewPlayoutAnchor(channelID, models.CollectionKey{Kind: models.CollectionKindPlaylist, ID: id}, models.PlaybackOrderShuffle, models.EnumeratorState{Index: 2}))

	assert.Len(t, s.Anchors, 2)
}

func TestState_TimelineEnd(t *testing.T) {
	s := NewState(uuid.New())
	_, ok := s.TimelineEnd()
	assert.False(t, ok)

	s.AddItem(newTestItem(at(9, 0), at(9, 30)))
	end, ok := s.TimelineEnd()
	assert.True(t, ok)
	assert.True(t, end.Equal(at(9, 30)))
}

func TestState_HoldsCursor(t *testing.T) {
	s := NewState(uuid.New())
	assert.False(t, s.HoldsCursor())

	item := newTestItem(at(9, 0), at(9, 30))
	item.ScheduleItemIndex = 1
	s.AddItem(item)
	assert.False(t, s.HoldsCursor())

	s.ScheduleItemIndex = 1
	assert.True(t, s.HoldsCursor())
}

func TestState_CloneIsDeep(t *testing.T) {
	channelID := uuid.New()
	s := NewState(channelID)
	s.AddItem(newTestItem(at(9, 0), at(9, 30)))
	s.UpdateAnchor(models.NewPlayoutAnchor(channelID, collectionKey(), models.PlaybackOrderShuffle, models.EnumeratorState{Index: 3}))
	s.ScheduleItemIndex = 2

	c := s.Clone()
	c.Items[0].Finish = at(11, 0)
	c.Anchors[0].State.Index = 9
	c.AddItem(newTestItem(at(12, 0), at(12, 30)))

	assert.True(t, s.Items[0].Finish.Equal(at(9, 30)))
	assert.Equal(t, 3, s.Anchors[0].State.Index)
	assert.Len(t, s.Items, 1)
	assert.Equal(t, 2, c.ScheduleItemIndex)
}
