package playout

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/events"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/models"
	"github.com/stwalsh4118/hermes-playout/internal/telemetry"
)

// ServiceOptions configures a Service
type ServiceOptions struct {
	Builder   *Builder
	Metrics   *telemetry.Metrics
	Publisher events.Publisher
	// Now is the clock used for events and coverage metrics
	Now func() time.Time
}

// channelSlot serialises builds for one channel and publishes its latest merged state.
// Readers load the pointer and never see a partial merge.
type channelSlot struct {
	build sync.Mutex
	state atomic.Pointer[State]
}

// Service runs builds against persisted channel state
type Service struct {
	repos     *db.Repositories
	builder   *Builder
	metrics   *telemetry.Metrics
	publisher events.Publisher
	now       func() time.Time
	log       zerolog.Logger

	mu    sync.Mutex
	slots map[uuid.UUID]*channelSlot
}

// NewService creates a new playout service instance
func NewService(repos *db.Repositories, opts ServiceOptions) *Service {
	if opts.Builder == nil {
		opts.Builder = NewBuilder(DefaultBuilderOptions())
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repos:     repos,
		builder:   opts.Builder,
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		now:       opts.Now,
		log:       logger.WithComponent("playout"),
		slots:     make(map[uuid.UUID]*channelSlot),
	}
}

func (s *Service) slot(channelID uuid.UUID) *channelSlot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[channelID]
	if !ok {
		sl = &channelSlot{}
		s.slots[channelID] = sl
	}
	return sl
}

// Evict drops the cached state and lock of a channel that no longer has a worker. It
// waits for an in-flight build on the channel to finish first.
func (s *Service) Evict(channelID uuid.UUID) {
	s.mu.Lock()
	sl, ok := s.slots[channelID]
	s.mu.Unlock()
	if !ok {
		return
	}

	sl.build.Lock()
	defer sl.build.Unlock()
	s.mu.Lock()
	if s.slots[channelID] == sl {
		delete(s.slots, channelID)
	}
	s.mu.Unlock()
	s.log.Debug().
		Str("channel_id", channelID.String()).
		Msg("Evicted channel state")
}

// cached reports whether the service holds a slot for the channel
func (s *Service) cached(channelID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[channelID]
	return ok
}

// getChannel maps a missing channel to ErrChannelNotFound
func (s *Service) getChannel(ctx context.Context, channelID uuid.UUID) (*models.Channel, error) {
	ch, err := s.repos.Channels.GetByID(ctx, channelID)
	if err != nil {
		if db.IsNotFound(err) {
			s.log.Warn().
				Str("channel_id", channelID.String()).
				Msg("Channel not found")
			return nil, ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

// loadState returns the cached state of a channel, loading it from the database on first use
func (s *Service) loadState(ctx context.Context, channelID uuid.UUID, sl *channelSlot) (*State, error) {
	if st := sl.state.Load(); st != nil {
		return st, nil
	}
	if _, err := s.getChannel(ctx, channelID); err != nil {
		return nil, err
	}

	snapshot, err := s.repos.Playouts.Load(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playout state: %w", err)
	}
	st := &State{
		ChannelID:         channelID,
		Items:             snapshot.Items,
		Anchors:           snapshot.Anchors,
		ScheduleItemIndex: snapshot.ScheduleItemIndex,
	}
	// another reader may have loaded it first
	if !sl.state.CompareAndSwap(nil, st) {
		return sl.state.Load(), nil
	}
	return st, nil
}

// State returns the current merged state of a channel. The returned value is shared and must
// not be modified.
func (s *Service) State(ctx context.Context, channelID uuid.UUID) (*State, error) {
	return s.loadState(ctx, channelID, s.slot(channelID))
}

// Build runs one build for a channel over [start, finish) and persists the result. Builds of
// the same channel are serialised; different channels build concurrently.
func (s *Service) Build(ctx context.Context, channelID uuid.UUID, mode BuildMode, start, finish time.Time) (*BuildResult, error) {
	began := time.Now()
	if mode == "" {
		mode = BuildModeContinue
	}
	log := s.log.With().
		Str("channel_id", channelID.String()).
		Str("mode", string(mode)).
		Logger()

	ch, err := s.getChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	sl := s.slot(channelID)
	sl.build.Lock()
	defer sl.build.Unlock()

	state, err := s.loadState(ctx, channelID, sl)
	if err != nil {
		return nil, err
	}

	req, err := s.buildRequest(ctx, ch, mode, start, finish)
	if err != nil {
		s.observe(channelID, mode, telemetry.ResultError, began, nil)
		return nil, err
	}

	result, err := s.builder.Build(state, req)
	if err != nil {
		outcome := telemetry.ResultError
		switch {
		case IsConfigurationError(err):
			outcome = telemetry.ResultConfig
		case IsStalled(err):
			outcome = telemetry.ResultStalled
		}
		s.observe(channelID, mode, outcome, began, result)
		log.Warn().
			Err(err).
			Strs("warnings", result.Warnings).
			Msg("Playout build failed")
		return result, err
	}

	if hasChanges(result) {
		changes := &db.PlayoutChanges{
			ChannelID:         channelID,
			ClearAll:          result.ClearAll,
			RemoveFrom:        result.RemoveFrom,
			Items:             result.Items,
			Anchors:           result.Anchors,
			ScheduleItemIndex: result.State.ScheduleItemIndex,
		}
		if err := s.repos.Playouts.Apply(ctx, changes); err != nil {
			s.observe(channelID, mode, telemetry.ResultError, began, nil)
			log.Error().
				Err(err).
				Msg("Failed to persist playout build")
			return nil, fmt.Errorf("failed to persist playout: %w", err)
		}
	}
	sl.state.Store(result.State)

	s.observe(channelID, mode, telemetry.ResultSuccess, began, result)
	if end, ok := result.State.TimelineEnd(); ok {
		s.metrics.SetTimelineAhead(channelID.String(), end.Sub(s.now()))
	}

	for _, w := range result.Warnings {
		log.Warn().Str("warning", w).Msg("Playout build warning")
	}
	log.Info().
		Int("items_added", len(result.Items)).
		Int("items_removed", len(result.ItemsToRemove)).
		Int("schedule_item_index", result.State.ScheduleItemIndex).
		Dur("elapsed", time.Since(began)).
		Msg("Playout build completed")

	if hasChanges(result) {
		s.publish(ctx, log, result)
	}
	return result, nil
}

// buildRequest resolves the channel's schedule, collections and filler presets
func (s *Service) buildRequest(ctx context.Context, ch *models.Channel, mode BuildMode, start, finish time.Time) (BuildRequest, error) {
	req := BuildRequest{
		Start:    start,
		Finish:   finish,
		Mode:     mode,
		Location: ch.Location(),
	}

	items, err := s.repos.ScheduleItems.ListByChannel(ctx, ch.ID)
	if err != nil {
		return req, fmt.Errorf("failed to load schedule: %w", err)
	}
	req.ScheduleItems = items

	req.Collections = make(map[models.CollectionKey][]*models.Media)
	presetIDs := make(map[uuid.UUID]bool)
	for _, si := range items {
		key := si.CollectionKey()
		if _, done := req.Collections[key]; !done {
			media, err := s.repos.Collections.Resolve(ctx, key)
			switch {
			case err == nil:
				req.Collections[key] = media
			case db.IsNotFound(err):
				// left out so the builder reports the missing collection
				s.log.Warn().
					Str("channel_id", ch.ID.String()).
					Str("collection", key.String()).
					Msg("Schedule item references a missing collection")
			default:
				return req, fmt.Errorf("failed to resolve collection %s: %w", key, err)
			}
		}
		for _, id := range []*uuid.UUID{si.PreRollFillerID, si.MidRollFillerID, si.PostRollFillerID, si.TailFillerID, si.FallbackFillerID} {
			if id != nil {
				presetIDs[*id] = true
			}
		}
	}

	if len(presetIDs) > 0 {
		ids := make([]uuid.UUID, 0, len(presetIDs))
		for id := range presetIDs {
			ids = append(ids, id)
		}
		presets, err := s.repos.FillerPresets.ListByIDs(ctx, ids)
		if err != nil {
			return req, fmt.Errorf("failed to load filler presets: %w", err)
		}
		req.FillerPresets = presets
	}
	return req, nil
}

func hasChanges(result *BuildResult) bool {
	return len(result.Items) > 0 || result.ClearAll || result.RemoveFrom != nil
}

func (s *Service) observe(channelID uuid.UUID, mode BuildMode, outcome string, began time.Time, result *BuildResult) {
	var items, warnings int
	if result != nil {
		warnings = len(result.Warnings)
		if result.Success() {
			items = len(result.Items)
		}
	}
	s.metrics.ObserveBuild(channelID.String(), string(mode), outcome, time.Since(began), items, warnings)
}

// publish notifies consumers of a persisted build. Delivery failures are logged only.
func (s *Service) publish(ctx context.Context, log zerolog.Logger, result *BuildResult) {
	event := &BuildEvent{
		ChannelID:    result.State.ChannelID,
		Mode:         result.Mode,
		ItemsAdded:   len(result.Items),
		ItemsRemoved: len(result.ItemsToRemove),
		ClearAll:     result.ClearAll,
		Warnings:     result.Warnings,
		BuiltAt:      s.now().UTC(),
	}
	if end, ok := result.State.TimelineEnd(); ok {
		event.TimelineEnd = end
	}
	if err := s.publisher.Publish(ctx, events.TopicPlayoutBuilt, event); err != nil {
		log.Warn().Err(err).Msg("Failed to publish build event")
	}
}

// TrimHistory removes items that finished at or before the cutoff and returns how many
func (s *Service) TrimHistory(ctx context.Context, channelID uuid.UUID, before time.Time) (int, error) {
	sl := s.slot(channelID)
	sl.build.Lock()
	defer sl.build.Unlock()

	state, err := s.loadState(ctx, channelID, sl)
	if err != nil {
		return 0, err
	}
	if len(state.Items) == 0 || state.Items[0].Finish.After(before) {
		return 0, nil
	}

	deleted, err := s.repos.Playouts.DeleteItemsBefore(ctx, channelID, before)
	if err != nil {
		return 0, err
	}

	trimmed := state.Clone()
	removed := trimmed.RemoveOldItems(before)
	sl.state.Store(trimmed)
	s.metrics.AddTrimmed(channelID.String(), deleted)

	s.log.Debug().
		Str("channel_id", channelID.String()).
		Time("before", before).
		Int("removed", removed).
		Int64("deleted", deleted).
		Msg("Trimmed playout history")
	return removed, nil
}

// Current returns the item playing at at, or nil during dead air
func (s *Service) Current(ctx context.Context, channelID uuid.UUID, at time.Time) (*models.PlayoutItem, error) {
	state, err := s.State(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return GetCurrentItem(state, at), nil
}

// Upcoming returns up to count items starting after after
func (s *Service) Upcoming(ctx context.Context, channelID uuid.UUID, count int, after time.Time) ([]*models.PlayoutItem, error) {
	state, err := s.State(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return GetUpcomingItems(state, count, after), nil
}

// TimeUntilNext returns the wait until the next item boundary after at
func (s *Service) TimeUntilNext(ctx context.Context, channelID uuid.UUID, at time.Time) (time.Duration, bool, error) {
	state, err := s.State(ctx, channelID)
	if err != nil {
		return 0, false, err
	}
	d, ok := TimeUntilNext(state, at)
	return d, ok, nil
}

// Anchors returns the channel's collection anchors
func (s *Service) Anchors(ctx context.Context, channelID uuid.UUID) ([]*models.PlayoutAnchor, error) {
	state, err := s.State(ctx, channelID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.PlayoutAnchor, len(state.Anchors))
	copy(out, state.Anchors)
	return out, nil
}

