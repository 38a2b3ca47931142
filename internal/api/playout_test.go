package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
)

var testNow = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// setupTestDB creates a migrated test database
func setupTestDB(t *testing.T) (*db.DB, *db.Repositories) {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	sqlDB, err := database.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(sqlDB, "file://../../migrations"))

	return database, db.NewRepositories(database)
}

// createTestChannel creates a channel that plays three 30 minute episodes in order
func createTestChannel(t *testing.T, repos *db.Repositories) *models.Channel {
	t.Helper()
	ctx := context.Background()

	ch := models.NewChannel(3, "Test Channel")
	require.NoError(t, repos.Channels.Create(ctx, ch))

	col := models.NewCollection(models.CollectionKindCollection, "Episodes")
	require.NoError(t, repos.Collections.Create(ctx, col))
	var members []*models.CollectionItem
	for i, title := range []string{"One", "Two", "Three"} {
		m := models.NewMedia(fmt.Sprintf("/media/%s.mp4", title), title, 30*60)
		require.NoError(t, repos.Media.Create(ctx, m))
		members = append(members, models.NewCollectionItem(col.ID, m.ID, i))
	}
	require.NoError(t, repos.Collections.ReplaceItems(ctx, col.ID, members))

	si := models.NewScheduleItem(ch.ID, 0, col.Key())
	si.PlaybackOrder = models.PlaybackOrderChronological
	require.NoError(t, repos.ScheduleItems.ReplaceForChannel(ctx, ch.ID, []*models.ScheduleItem{si}))
	return ch
}

// setupPlayoutRouter creates a test Gin router with playout routes and a fixed clock
func setupPlayoutRouter(t *testing.T) (*gin.Engine, *db.Repositories) {
	t.Helper()
	_, repos := setupTestDB(t)

	service := playout.NewService(repos, playout.ServiceOptions{
		Builder: playout.NewBuilder(playout.BuilderOptions{
			DefaultOrder: models.PlaybackOrderChronological,
			NewSeed:      func() int64 { return 1 },
		}),
		Now: func() time.Time { return testNow },
	})
	handler := NewPlayoutHandler(service, 2*time.Hour)
	handler.now = func() time.Time { return testNow }

	gin.SetMode(gin.TestMode)
	router := gin.New()
	apiGroup := router.Group("/api")
	apiGroup.POST("/channels/:id/playout/build", handler.Build)
	apiGroup.GET("/channels/:id/playout/now", handler.Now)
	apiGroup.GET("/channels/:id/playout/upcoming", handler.Upcoming)
	apiGroup.GET("/channels/:id/playout/anchors", handler.Anchors)
	return router, repos
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func buildPath(id uuid.UUID) string {
	return fmt.Sprintf("/api/channels/%s/playout/build", id)
}

func TestBuildPlayout(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ch := createTestChannel(t, repos)

	t.Run("defaults to continue over the lookahead", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, buildPath(ch.ID), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp BuildPlayoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, playout.BuildModeContinue, resp.Mode)
		assert.Equal(t, 4, resp.ItemsAdded)
		require.NotNil(t, resp.TimelineEnd)
		assert.True(t, resp.TimelineEnd.Equal(testNow.Add(2*time.Hour)))
		assert.NotNil(t, resp.Warnings)
	})

	t.Run("covered window adds nothing", func(t *testing.T) {
		w := doRequest(router, http.MethodPost, buildPath(ch.ID), BuildPlayoutRequest{Mode: "continue"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp BuildPlayoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Zero(t, resp.ItemsAdded)
		assert.NotNil(t, resp.Items)
	})

	t.Run("refresh from an explicit start", func(t *testing.T) {
		start := testNow.Add(time.Hour)
		hours := 1.0
		w := doRequest(router, http.MethodPost, buildPath(ch.ID), BuildPlayoutRequest{
			Mode:  "refresh",
			Start: &start,
			Hours: &hours,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp BuildPlayoutResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, playout.BuildModeRefresh, resp.Mode)
		assert.Equal(t, 2, resp.ItemsRemoved)
		assert.Equal(t, 2, resp.ItemsAdded)
	})
}

func TestBuildPlayout_Errors(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ch := createTestChannel(t, repos)

	tests := []struct {
		name       string
		path       string
		body       any
		wantStatus int
		wantError  string
	}{
		{
			name:       "invalid id",
			path:       "/api/channels/not-a-uuid/playout/build",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_id",
		},
		{
			name:       "unknown channel",
			path:       buildPath(uuid.New()),
			wantStatus: http.StatusNotFound,
			wantError:  "channel_not_found",
		},
		{
			name:       "unknown mode",
			path:       buildPath(ch.ID),
			body:       BuildPlayoutRequest{Mode: "rewind"},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_mode",
		},
		{
			name:       "non-positive hours",
			path:       buildPath(ch.ID),
			body:       map[string]any{"hours": 0},
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantError, resp.Error)
		})
	}
}

func TestBuildPlayout_EmptyScheduleIsUnprocessable(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ch := models.NewChannel(9, "Empty")
	require.NoError(t, repos.Channels.Create(context.Background(), ch))

	w := doRequest(router, http.MethodPost, buildPath(ch.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_schedule", resp.Error)
}

func TestBuildPlayout_StallReportsWarnings(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ctx := context.Background()

	ch := models.NewChannel(11, "Stalled")
	require.NoError(t, repos.Channels.Create(ctx, ch))
	col := models.NewCollection(models.CollectionKindCollection, "Nothing Yet")
	require.NoError(t, repos.Collections.Create(ctx, col))
	si := models.NewScheduleItem(ch.ID, 0, col.Key())
	require.NoError(t, repos.ScheduleItems.ReplaceForChannel(ctx, ch.ID, []*models.ScheduleItem{si}))

	w := doRequest(router, http.MethodPost, buildPath(ch.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "scheduler_stalled", resp.Error)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "is empty")
}

func TestNowPlaying(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ch := createTestChannel(t, repos)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, buildPath(ch.ID), nil).Code)

	t.Run("item airing at instant", func(t *testing.T) {
		path := fmt.Sprintf("/api/channels/%s/playout/now?at=%s", ch.ID, testNow.Add(40*time.Minute).Format(time.RFC3339))
		w := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp NowPlayingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Item)
		assert.True(t, resp.Item.Start.Equal(testNow.Add(30*time.Minute)))
		require.NotNil(t, resp.SecondsUntilNext)
		assert.InDelta(t, 20*60, *resp.SecondsUntilNext, 0.001)
	})

	t.Run("dead air past the timeline", func(t *testing.T) {
		path := fmt.Sprintf("/api/channels/%s/playout/now?at=%s", ch.ID, testNow.Add(5*time.Hour).Format(time.RFC3339))
		w := doRequest(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp NowPlayingResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.Item)
		assert.Nil(t, resp.SecondsUntilNext)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		path := fmt.Sprintf("/api/channels/%s/playout/now?at=yesterday", ch.ID)
		w := doRequest(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestUpcoming(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ch := createTestChannel(t, repos)
	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, buildPath(ch.ID), nil).Code)

	w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/channels/%s/playout/upcoming?count=2", ch.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UpcomingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.True(t, resp.Items[0].Start.Equal(testNow.Add(30*time.Minute)))
	assert.True(t, resp.Items[1].Start.Equal(testNow.Add(time.Hour)))

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/api/channels/%s/playout/upcoming?count=-1", ch.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/api/channels/%s/playout/upcoming", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnchors(t *testing.T) {
	router, repos := setupPlayoutRouter(t)
	ch := createTestChannel(t, repos)

	w := doRequest(router, http.MethodGet, fmt.Sprintf("/api/channels/%s/playout/anchors", ch.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AnchorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Anchors)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodPost, buildPath(ch.ID), nil).Code)

	w = doRequest(router, http.MethodGet, fmt.Sprintf("/api/channels/%s/playout/anchors", ch.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Anchors, 1)
	assert.Equal(t, models.PlaybackOrderChronological, resp.Anchors[0].PlaybackOrder)
	assert.Equal(t, 4, resp.Anchors[0].State.Index)
}
