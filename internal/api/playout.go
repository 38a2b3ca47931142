package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"github.com/stwalsh4118/hermes-playout/internal/playout"
)

const (
	defaultUpcomingCount = 10
	maxUpcomingCount     = 100
)

// BuildPlayoutRequest represents a request to build a channel's timeline
type BuildPlayoutRequest struct {
	Mode  string     `json:"mode"`
	Start *time.Time `json:"start,omitempty"`
	Hours *float64   `json:"hours,omitempty"`
}

// BuildPlayoutResponse summarises a completed build
type BuildPlayoutResponse struct {
	ChannelID    uuid.UUID             `json:"channel_id"`
	Mode         playout.BuildMode     `json:"mode"`
	ItemsAdded   int                   `json:"items_added"`
	ItemsRemoved int                   `json:"items_removed"`
	ClearAll     bool                  `json:"clear_all"`
	TimelineEnd  *time.Time            `json:"timeline_end,omitempty"`
	Warnings     []string              `json:"warnings"`
	Items        []*models.PlayoutItem `json:"items"`
}

// NowPlayingResponse describes what a channel is airing at an instant
type NowPlayingResponse struct {
	ChannelID uuid.UUID           `json:"channel_id"`
	At        time.Time           `json:"at"`
	Item      *models.PlayoutItem `json:"item"`
	// SecondsUntilNext is omitted when no boundary follows At
	SecondsUntilNext *float64 `json:"seconds_until_next,omitempty"`
}

// UpcomingResponse lists items starting after an instant
type UpcomingResponse struct {
	ChannelID uuid.UUID             `json:"channel_id"`
	After     time.Time             `json:"after"`
	Items     []*models.PlayoutItem `json:"items"`
	Count     int                   `json:"count"`
}

// AnchorsResponse lists a channel's collection anchors
type AnchorsResponse struct {
	ChannelID uuid.UUID               `json:"channel_id"`
	Anchors   []*models.PlayoutAnchor `json:"anchors"`
}

// PlayoutHandler handles playout API requests
type PlayoutHandler struct {
	service   *playout.Service
	lookahead time.Duration
	now       func() time.Time
}

// NewPlayoutHandler creates a new playout handler. lookahead is the window length of builds
// that do not name one.
func NewPlayoutHandler(service *playout.Service, lookahead time.Duration) *PlayoutHandler {
	return &PlayoutHandler{
		service:   service,
		lookahead: lookahead,
		now:       time.Now,
	}
}

// Build handles POST /api/channels/:id/playout/build
func (h *PlayoutHandler) Build(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	var req BuildPlayoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// Empty body builds with defaults
		if c.Request.ContentLength > 0 {
			badRequest(c, "invalid_request", "Invalid request body")
			return
		}
	}

	mode, err := playout.ParseBuildMode(req.Mode)
	if err != nil {
		badRequest(c, "invalid_mode", err.Error())
		return
	}

	start := h.now()
	if req.Start != nil {
		start = *req.Start
	}
	window := h.lookahead
	if req.Hours != nil {
		if *req.Hours <= 0 {
			badRequest(c, "invalid_hours", "hours must be positive")
			return
		}
		window = time.Duration(*req.Hours * float64(time.Hour))
	}

	result, err := h.service.Build(c.Request.Context(), channelID, mode, start, start.Add(window))
	if err != nil {
		var warnings []string
		if result != nil {
			warnings = result.Warnings
		}
		writeBuildError(c, err, warnings)
		return
	}

	resp := BuildPlayoutResponse{
		ChannelID:    channelID,
		Mode:         result.Mode,
		ItemsAdded:   len(result.Items),
		ItemsRemoved: len(result.ItemsToRemove),
		ClearAll:     result.ClearAll,
		Warnings:     result.Warnings,
		Items:        result.Items,
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	if resp.Items == nil {
		resp.Items = []*models.PlayoutItem{}
	}
	if end, ok := result.State.TimelineEnd(); ok {
		resp.TimelineEnd = &end
	}
	c.JSON(http.StatusOK, resp)
}

// Now handles GET /api/channels/:id/playout/now
func (h *PlayoutHandler) Now(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}
	at, ok := h.parseInstant(c, "at")
	if !ok {
		return
	}

	item, err := h.service.Current(c.Request.Context(), channelID, at)
	if err != nil {
		writePlayoutError(c, err)
		return
	}
	wait, hasNext, err := h.service.TimeUntilNext(c.Request.Context(), channelID, at)
	if err != nil {
		writePlayoutError(c, err)
		return
	}

	resp := NowPlayingResponse{
		ChannelID: channelID,
		At:        at,
		Item:      item,
	}
	if hasNext {
		seconds := wait.Seconds()
		resp.SecondsUntilNext = &seconds
	}
	c.JSON(http.StatusOK, resp)
}

// Upcoming handles GET /api/channels/:id/playout/upcoming
func (h *PlayoutHandler) Upcoming(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}
	after, ok := h.parseInstant(c, "after")
	if !ok {
		return
	}

	count := defaultUpcomingCount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			badRequest(c, "invalid_count", "count must be a positive integer")
			return
		}
		count = min(n, maxUpcomingCount)
	}

	items, err := h.service.Upcoming(c.Request.Context(), channelID, count, after)
	if err != nil {
		writePlayoutError(c, err)
		return
	}
	if items == nil {
		items = []*models.PlayoutItem{}
	}

	c.JSON(http.StatusOK, UpcomingResponse{
		ChannelID: channelID,
		After:     after,
		Items:     items,
		Count:     len(items),
	})
}

// Anchors handles GET /api/channels/:id/playout/anchors
func (h *PlayoutHandler) Anchors(c *gin.Context) {
	channelID, ok := parseChannelID(c)
	if !ok {
		return
	}

	anchors, err := h.service.Anchors(c.Request.Context(), channelID)
	if err != nil {
		writePlayoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, AnchorsResponse{
		ChannelID: channelID,
		Anchors:   anchors,
	})
}

func parseChannelID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid_id", "Invalid channel ID format")
		return uuid.Nil, false
	}
	return id, true
}

// parseInstant reads an RFC 3339 query parameter, defaulting to now
func (h *PlayoutHandler) parseInstant(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return h.now(), true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		badRequest(c, "invalid_"+name, name+" must be an RFC 3339 timestamp")
		return time.Time{}, false
	}
	return t, true
}

// SetupPlayoutRoutes registers playout routes
func SetupPlayoutRoutes(apiGroup *gin.RouterGroup, service *playout.Service, lookahead time.Duration) {
	handler := NewPlayoutHandler(service, lookahead)

	apiGroup.POST("/channels/:id/playout/build", handler.Build)
	apiGroup.GET("/channels/:id/playout/now", handler.Now)
	apiGroup.GET("/channels/:id/playout/upcoming", handler.Upcoming)
	apiGroup.GET("/channels/:id/playout/anchors", handler.Anchors)
}
