package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

func testTime(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

func newPlayoutItem(channelID uuid.UUID, start, finish time.Time) *models.PlayoutItem {
	seed := int64(7)
	return &models.PlayoutItem{
		ID:            uuid.New(),
		ChannelID:     channelID,
		MediaID:       uuid.New(),
		Start:         start,
		Finish:        finish,
		CollectionKey: "collection:" + uuid.NewString(),
		Cursor:        models.EnumeratorState{Index: 3, Seed: &seed},
	}
}

func TestPlayoutRepository_LoadNeverBuilt(t *testing.T) {
	_, repos := setupTestDB(t)
	ch := createTestChannel(t, repos, "Empty")

	snapshot, err := repos.Playouts.Load(context.Background(), ch.ID)

	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.ScheduleItemIndex)
	assert.Empty(t, snapshot.Items)
	assert.Empty(t, snapshot.Anchors)
}

func TestPlayoutRepository_ApplyRoundTrip(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "News")
	key := models.CollectionKey{Kind: models.CollectionKindCollection, ID: uuid.New()}

	out := int64(600)
	trimmed := newPlayoutItem(ch.ID, testTime(9, 30), testTime(9, 40))
	trimmed.OutPoint = &out
	seed := int64(42)
	anchor := models.NewPlayoutAnchor(ch.ID, key, models.PlaybackOrderShuffle, models.EnumeratorState{Index: 2, Seed: &seed})
	date := testTime(9, 40)
	anchor.AnchorDate = &date

	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{
		ChannelID:         ch.ID,
		Items:             []*models.PlayoutItem{trimmed, newPlayoutItem(ch.ID, testTime(9, 0), testTime(9, 30))},
		Anchors:           []*models.PlayoutAnchor{anchor},
		ScheduleItemIndex: 3,
	}))

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, snapshot.ScheduleItemIndex)
	require.Len(t, snapshot.Items, 2)
	assert.True(t, snapshot.Items[0].Start.Equal(testTime(9, 0)), "items load in start order")
	assert.Equal(t, trimmed.ID, snapshot.Items[1].ID)
	require.NotNil(t, snapshot.Items[1].OutPoint)
	assert.Equal(t, int64(600), *snapshot.Items[1].OutPoint)
	assert.Equal(t, 3, snapshot.Items[1].Cursor.Index)
	require.NotNil(t, snapshot.Items[1].Cursor.Seed)
	assert.Equal(t, int64(7), *snapshot.Items[1].Cursor.Seed)

	require.Len(t, snapshot.Anchors, 1)
	got := snapshot.Anchors[0]
	assert.Equal(t, key, got.Key())
	assert.Equal(t, 2, got.State.Index)
	require.NotNil(t, got.State.Seed)
	assert.Equal(t, int64(42), *got.State.Seed)
	assert.Nil(t, got.State.LastIndex)
	require.True(t, got.IsCheckpoint())
	assert.True(t, got.AnchorDate.Equal(date))
}

func TestPlayoutRepository_ApplyUpsertsAnchors(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "Sports")
	key := models.CollectionKey{Kind: models.CollectionKindPlaylist, ID: uuid.New()}

	first := models.NewPlayoutAnchor(ch.ID, key, models.PlaybackOrderChronological, models.EnumeratorState{Index: 1})
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, Anchors: []*models.PlayoutAnchor{first}}))

	last := 4
	second := models.NewPlayoutAnchor(ch.ID, key, models.PlaybackOrderRandom, models.EnumeratorState{Index: 9, LastIndex: &last})
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, Anchors: []*models.PlayoutAnchor{second}, ScheduleItemIndex: 1}))

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Anchors, 1)
	assert.Equal(t, first.ID, snapshot.Anchors[0].ID)
	assert.Equal(t, models.PlaybackOrderRandom, snapshot.Anchors[0].PlaybackOrder)
	assert.Equal(t, 9, snapshot.Anchors[0].State.Index)
	require.NotNil(t, snapshot.Anchors[0].State.LastIndex)
	assert.Equal(t, 4, *snapshot.Anchors[0].State.LastIndex)
	assert.Equal(t, 1, snapshot.ScheduleItemIndex)
}

func TestPlayoutRepository_ApplyReplacesFrom(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "Music")

	history := newPlayoutItem(ch.ID, testTime(9, 0), testTime(9, 30))
	future := newPlayoutItem(ch.ID, testTime(9, 30), testTime(10, 0))
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, Items: []*models.PlayoutItem{history, future}}))

	from := testTime(9, 30)
	regenerated := newPlayoutItem(ch.ID, testTime(9, 30), testTime(9, 50))
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{
		ChannelID:  ch.ID,
		RemoveFrom: &from,
		Items:      []*models.PlayoutItem{regenerated},
	}))

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 2)
	assert.Equal(t, history.ID, snapshot.Items[0].ID)
	assert.Equal(t, regenerated.ID, snapshot.Items[1].ID)
}

func TestPlayoutRepository_ApplyClearAll(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "Kids")
	key := models.CollectionKey{Kind: models.CollectionKindCollection, ID: uuid.New()}

	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{
		ChannelID: ch.ID,
		Items:     []*models.PlayoutItem{newPlayoutItem(ch.ID, testTime(9, 0), testTime(9, 30))},
		Anchors:   []*models.PlayoutAnchor{models.NewPlayoutAnchor(ch.ID, key, models.PlaybackOrderShuffle, models.EnumeratorState{Index: 5})},
	}))

	fresh := newPlayoutItem(ch.ID, testTime(12, 0), testTime(12, 30))
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{
		ChannelID: ch.ID,
		ClearAll:  true,
		Items:     []*models.PlayoutItem{fresh},
	}))

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, fresh.ID, snapshot.Items[0].ID)
	assert.Empty(t, snapshot.Anchors)
}

func TestPlayoutRepository_ApplyIsAtomic(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "Atomic")

	kept := newPlayoutItem(ch.ID, testTime(9, 0), testTime(9, 30))
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, Items: []*models.PlayoutItem{kept}}))

	// finish before start violates the CHECK constraint and must roll back the clear
	broken := newPlayoutItem(ch.ID, testTime(11, 0), testTime(10, 0))
	err := repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, ClearAll: true, Items: []*models.PlayoutItem{broken}})
	require.Error(t, err)

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, kept.ID, snapshot.Items[0].ID)
}

func TestPlayoutRepository_DeleteItemsBefore(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "Trim")

	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, Items: []*models.PlayoutItem{
		newPlayoutItem(ch.ID, testTime(9, 0), testTime(9, 30)),
		newPlayoutItem(ch.ID, testTime(9, 30), testTime(10, 0)),
		newPlayoutItem(ch.ID, testTime(10, 0), testTime(10, 30)),
	}}))

	removed, err := repos.Playouts.DeleteItemsBefore(ctx, ch.ID, testTime(10, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Items, 1)
	assert.True(t, snapshot.Items[0].Start.Equal(testTime(10, 0)))
}

func TestPlayoutRepository_ChannelDeleteCascades(t *testing.T) {
	_, repos := setupTestDB(t)
	ctx := context.Background()
	ch := createTestChannel(t, repos, "Doomed")
	require.NoError(t, repos.Playouts.Apply(ctx, &PlayoutChanges{ChannelID: ch.ID, Items: []*models.PlayoutItem{
		newPlayoutItem(ch.ID, testTime(9, 0), testTime(9, 30)),
	}, ScheduleItemIndex: 2}))

	require.NoError(t, repos.Channels.Delete(ctx, ch.ID))

	snapshot, err := repos.Playouts.Load(ctx, ch.ID)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Items)
	assert.Equal(t, 0, snapshot.ScheduleItemIndex)
}
