// Package playout builds and maintains a channel's timeline: the scheduler turns schedule
// items and collection enumerators into timeline entries, the builder decides what persisted
// state to keep, and the service serialises builds per channel and persists the result.
package playout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// BuildMode selects what a build keeps from the existing state
type BuildMode string

const (
	// BuildModeContinue keeps everything and extends the timeline from where it ends
	BuildModeContinue BuildMode = "continue"

	// BuildModeRefresh keeps items starting before the window start and regenerates the rest
	BuildModeRefresh BuildMode = "refresh"

	// BuildModeReset discards all items and anchors and rebuilds from scratch
	BuildModeReset BuildMode = "reset"
)

// ParseBuildMode parses a build mode name; empty means continue
func ParseBuildMode(s string) (BuildMode, error) {
	switch BuildMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BuildModeContinue:
		return BuildModeContinue, nil
	case BuildModeRefresh:
		return BuildModeRefresh, nil
	case BuildModeReset:
		return BuildModeReset, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBuildMode, s)
}

// BuildRequest carries everything one build needs. Collections must be resolved by the
// caller and stay consistent for the duration of the build.
type BuildRequest struct {
	ScheduleItems []*models.ScheduleItem
	Collections   map[models.CollectionKey][]*models.Media
	FillerPresets []*models.FillerPreset
	Start         time.Time
	Finish        time.Time
	Mode          BuildMode
	// Location resolves fixed start times; nil means UTC
	Location *time.Location
}

// BuildResult describes the outcome of a build
type BuildResult struct {
	// State is the merged working copy; nil when the build failed
	State *State

	// Items are the newly scheduled timeline entries
	Items []*models.PlayoutItem

	// Anchors is the full anchor set after the merge
	Anchors []*models.PlayoutAnchor

	// ItemsToRemove lists entries a REFRESH dropped from the previous timeline
	ItemsToRemove []*models.PlayoutItem

	// RemoveFrom is the start boundary of ItemsToRemove for REFRESH builds
	RemoveFrom *time.Time

	// ClearAll is set by RESET builds
	ClearAll bool

	Mode     BuildMode
	Warnings []string
}

// Success reports whether the result carries a merged state
func (r *BuildResult) Success() bool {
	return r != nil && r.State != nil
}

// BuildEvent summarises a persisted build for downstream consumers such as guide generators
type BuildEvent struct {
	ChannelID    uuid.UUID `json:"channel_id"`
	Mode         BuildMode `json:"mode"`
	ItemsAdded   int       `json:"items_added"`
	ItemsRemoved int       `json:"items_removed"`
	ClearAll     bool      `json:"clear_all"`
	TimelineEnd  time.Time `json:"timeline_end"`
	Warnings     []string  `json:"warnings,omitempty"`
	BuiltAt      time.Time `json:"built_at"`
}
