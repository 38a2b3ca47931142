package playout

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stwalsh4118/hermes-playout/internal/enumerator"
	"github.com/stwalsh4118/hermes-playout/internal/filler"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// BuilderOptions configures a Builder
type BuilderOptions struct {
	// DefaultOrder applies to schedule items without a playback order
	DefaultOrder models.PlaybackOrder
	// AvoidRepeats is passed to random enumerators
	AvoidRepeats bool
	// ReleaseOrder pre-sorts chronological collections; nil keeps collection order
	ReleaseOrder func(a, b *models.Media) bool
	// NewSeed seeds enumerators that have no anchor and the filler manager
	NewSeed func() int64
}

// DefaultBuilderOptions returns shuffle ordering with repeat avoidance and time-based seeds
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		DefaultOrder: models.PlaybackOrderShuffle,
		AvoidRepeats: true,
		ReleaseOrder: enumerator.ByEpisode,
	}
}

// Builder turns a channel's state and schedule into a new timeline. It keeps no state
// between builds and may be shared across channels.
type Builder struct {
	opts BuilderOptions
	log  zerolog.Logger

	mu   sync.Mutex
	seed *rand.Rand
}

// NewBuilder creates a builder
func NewBuilder(opts BuilderOptions) *Builder {
	if opts.DefaultOrder == "" {
		opts.DefaultOrder = models.PlaybackOrderShuffle
	}
	b := &Builder{
		opts: opts,
		log:  logger.WithComponent("builder"),
	}
	if opts.NewSeed == nil {
		b.seed = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b
}

// Build computes a new timeline for state over [req.Start, req.Finish). The input state is
// never mutated: the returned result carries a merged working copy on success. On error the
// result still carries warnings and, for stalls, the items produced before the stall.
func (b *Builder) Build(state *State, req BuildRequest) (*BuildResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = BuildModeContinue
	}
	result := &BuildResult{Mode: mode}

	if state == nil {
		return result, fmt.Errorf("%w: nil state", ErrChannelNotFound)
	}
	if err := b.validate(req, mode); err != nil {
		return result, err
	}

	log := b.log.With().
		Str("channel_id", state.ChannelID.String()).
		Str("mode", string(mode)).
		Logger()

	working := state.Clone()
	start := req.Start
	rewind := make(map[models.CollectionKey]models.EnumeratorState)

	switch mode {
	case BuildModeReset:
		working.Items = nil
		working.Anchors = nil
		working.ScheduleItemIndex = 0
		result.ClearAll = true

	case BuildModeRefresh:
		kept, removed := splitAt(working.Items, req.Start)
		working.Items = kept
		if len(removed) > 0 {
			from := req.Start
			result.RemoveFrom = &from
			result.ItemsToRemove = removed
			working.ScheduleItemIndex = removed[0].ScheduleItemIndex
			for _, item := range removed {
				if item.IsFiller() {
					continue
				}
				key, err := models.ParseCollectionKey(item.CollectionKey)
				if err != nil {
					continue
				}
				if _, seen := rewind[key]; !seen {
					rewind[key] = item.Cursor.Clone()
				}
			}
		}
		if end, ok := working.TimelineEnd(); ok && end.After(start) {
			start = end
		}

	default:
		if end, ok := working.TimelineEnd(); ok && end.After(start) {
			start = end
		}
	}

	if !start.Before(req.Finish) {
		log.Debug().
			Time("timeline_end", start).
			Time("finish", req.Finish).
			Msg("Timeline already covers build window")
		result.State = working
		result.Anchors = working.Anchors
		return result, nil
	}

	enums, orders, warnings, err := b.enumerators(working, req, rewind)
	result.Warnings = append(result.Warnings, warnings...)
	if err != nil {
		return result, err
	}

	fillers := filler.NewManager(req.FillerPresets, b.nextSeed())
	scheduler := NewScheduler(working.ChannelID, req.ScheduleItems, enums, fillers, req.Location)
	var sr ScheduleResult
	if working.HoldsCursor() {
		sr = scheduler.ResumeRange(start, req.Finish, working.ScheduleItemIndex)
	} else {
		sr = scheduler.ScheduleRange(start, req.Finish, working.ScheduleItemIndex)
	}
	result.Warnings = append(result.Warnings, sr.Warnings...)
	result.Items = sr.Items

	if sr.Err != nil {
		log.Warn().
			Err(sr.Err).
			Int("partial_items", len(sr.Items)).
			Msg("Build failed, state not merged")
		return result, fmt.Errorf("failed to schedule channel %s: %w", working.ChannelID, sr.Err)
	}

	for _, item := range sr.Items {
		working.AddItem(item)
	}

	keys := make([]models.CollectionKey, 0, len(sr.NewAnchors))
	for key := range sr.NewAnchors {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, key := range keys {
		anchor := models.NewPlayoutAnchor(working.ChannelID, key, orders[key], sr.NewAnchors[key])
		date := sr.End
		anchor.AnchorDate = &date
		working.UpdateAnchor(anchor)
	}
	working.ScheduleItemIndex = sr.NextScheduleItemIndex

	result.State = working
	result.Anchors = working.Anchors

	log.Debug().
		Time("start", start).
		Time("finish", req.Finish).
		Int("items", len(sr.Items)).
		Int("removed", len(result.ItemsToRemove)).
		Int("warnings", len(result.Warnings)).
		Msg("Build computed")

	return result, nil
}

func (b *Builder) validate(req BuildRequest, mode BuildMode) error {
	switch mode {
	case BuildModeContinue, BuildModeRefresh, BuildModeReset:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBuildMode, mode)
	}
	if !req.Finish.After(req.Start) {
		return fmt.Errorf("%w: start %s, finish %s", ErrInvalidWindow, req.Start.Format(time.RFC3339), req.Finish.Format(time.RFC3339))
	}
	if len(req.ScheduleItems) == 0 {
		return ErrEmptySchedule
	}
	if len(req.Collections) == 0 {
		return ErrNoCollections
	}
	for _, si := range req.ScheduleItems {
		key := si.CollectionKey()
		if _, ok := req.Collections[key]; !ok {
			return fmt.Errorf("%w: schedule item %d references %s", ErrMissingCollection, si.Index, key)
		}
		if si.PlaybackOrder != "" && !si.PlaybackOrder.Valid() {
			return fmt.Errorf("%w: schedule item %d has playback order %q", ErrInvalidScheduleItem, si.Index, si.PlaybackOrder)
		}
		switch si.PlaybackMode {
		case models.PlaybackModeDuration:
			if si.Target() <= 0 {
				return fmt.Errorf("%w: schedule item %d needs a positive target duration", ErrInvalidScheduleItem, si.Index)
			}
		case models.PlaybackModeOne, models.PlaybackModeMultiple, models.PlaybackModeFlood, "":
		default:
			return fmt.Errorf("%w: schedule item %d has playback mode %q", ErrInvalidScheduleItem, si.Index, si.PlaybackMode)
		}
	}
	return nil
}

// enumerators creates one enumerator per referenced collection. State comes from the REFRESH
// rewind point when present, else from the collection's anchor. An anchor written under a
// different playback order is ignored.
func (b *Builder) enumerators(
	working *State,
	req BuildRequest,
	rewind map[models.CollectionKey]models.EnumeratorState,
) (map[models.CollectionKey]enumerator.Enumerator, map[models.CollectionKey]models.PlaybackOrder, []string, error) {
	orders := make(map[models.CollectionKey]models.PlaybackOrder)
	var keys []models.CollectionKey
	for _, si := range req.ScheduleItems {
		key := si.CollectionKey()
		if _, ok := orders[key]; ok {
			continue
		}
		order := si.PlaybackOrder
		if order == "" {
			order = b.opts.DefaultOrder
		}
		orders[key] = order
		keys = append(keys, key)
	}

	var warnings []string
	enums := make(map[models.CollectionKey]enumerator.Enumerator, len(keys))
	for _, key := range keys {
		order := orders[key]
		var state *models.EnumeratorState
		if anchor := working.AnchorFor(key); anchor != nil && anchor.PlaybackOrder != order {
			warnings = append(warnings, fmt.Sprintf(
				"collection %s changed playback order from %s to %s; starting fresh", key, anchor.PlaybackOrder, order))
		} else if st, ok := rewind[key]; ok {
			state = &st
		} else if anchor != nil {
			st := anchor.State.Clone()
			state = &st
		}

		seed := b.nextSeed()
		e, err := enumerator.New(order, req.Collections[key], state, enumerator.Options{
			Less:         b.opts.ReleaseOrder,
			AvoidRepeats: b.opts.AvoidRepeats,
			Seed:         &seed,
		})
		if err != nil {
			return nil, nil, warnings, fmt.Errorf("%w: collection %s: %v", ErrInvalidScheduleItem, key, err)
		}
		enums[key] = e
	}
	return enums, orders, warnings, nil
}

func (b *Builder) nextSeed() int64 {
	if b.opts.NewSeed != nil {
		return b.opts.NewSeed()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seed.Int63()
}

// splitAt partitions sorted items into those starting before t and the rest
func splitAt(items []*models.PlayoutItem, t time.Time) (kept, removed []*models.PlayoutItem) {
	i := sort.Search(len(items), func(i int) bool {
		return !items[i].Start.Before(t)
	})
	return items[:i:i], items[i:]
}
