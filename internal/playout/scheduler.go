package playout

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/hermes-playout/internal/enumerator"
	"github.com/stwalsh4118/hermes-playout/internal/filler"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// ScheduleResult is the output of one scheduling pass over a time window
type ScheduleResult struct {
	Items                 []*models.PlayoutItem
	NextScheduleItemIndex int
	NewAnchors            map[models.CollectionKey]models.EnumeratorState
	// Finished is false when the last dispatched item (a flood) still has time left
	// beyond the window and the cursor stayed on it
	Finished bool
	// End is the scheduler's clock when the pass stopped
	End      time.Time
	Warnings []string
	Err      error
}

// Scheduler advances through schedule items producing timeline entries. Enumerators are
// passed in by the builder and mutated in place; the scheduler holds no state across calls.
type Scheduler struct {
	channelID   uuid.UUID
	items       []*models.ScheduleItem
	enumerators map[models.CollectionKey]enumerator.Enumerator
	fillers     *filler.Manager
	location    *time.Location
	log         zerolog.Logger
}

// NewScheduler creates a scheduler for one build
func NewScheduler(
	channelID uuid.UUID,
	items []*models.ScheduleItem,
	enumerators map[models.CollectionKey]enumerator.Enumerator,
	fillers *filler.Manager,
	location *time.Location,
) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		channelID:   channelID,
		items:       items,
		enumerators: enumerators,
		fillers:     fillers,
		location:    location,
		log:         logger.WithComponent("scheduler").With().Str("channel_id", channelID.String()).Logger(),
	}
}

// ScheduleRange fills [start, end) beginning at schedule item index. It stops once the
// clock reaches end, or with ErrSchedulerStalled when a full pass over the schedule
// items fails to move the clock.
func (s *Scheduler) ScheduleRange(start, end time.Time, index int) ScheduleResult {
	return s.scheduleRange(start, end, index, false)
}

// ResumeRange is ScheduleRange for a cursor that was held on an unfinished flood by the
// previous pass. A flood still inside its bound carries on at start without waiting for
// its fixed start again.
func (s *Scheduler) ResumeRange(start, end time.Time, index int) ScheduleResult {
	return s.scheduleRange(start, end, index, true)
}

func (s *Scheduler) scheduleRange(start, end time.Time, index int, resume bool) ScheduleResult {
	result := ScheduleResult{
		NewAnchors: make(map[models.CollectionKey]models.EnumeratorState),
		Finished:   true,
		End:        start,
	}
	n := len(s.items)
	if n == 0 {
		result.Err = ErrEmptySchedule
		return result
	}

	idx := ((index % n) + n) % n
	current := start
	idlePasses := 0

	for current.Before(end) {
		si := s.items[idx]
		held := resume && heldFlood(si, current)
		resume = false

		// fixed start: wait for the next occurrence, closing the gap with fallback filler
		next, hasFixed, err := si.NextFixedStart(current, s.location)
		if held {
			hasFixed = false
		}
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("schedule item %d: %v", si.Index, err))
		} else if hasFixed && next.After(current) {
			if !next.Before(end) {
				break
			}
			b := s.newBlock(si, idx, current)
			b.fill(si.FallbackFillerID, next.Sub(current), models.FillerModeFallback, next)
			result.Items = append(result.Items, b.items...)
			current = next
			idlePasses = 0
		}

		b, warnings := s.dispatch(si, idx, current, end)
		result.Warnings = append(result.Warnings, warnings...)
		result.Items = append(result.Items, b.items...)
		result.Finished = b.finished
		if e, ok := s.enumerators[si.CollectionKey()]; ok {
			result.NewAnchors[si.CollectionKey()] = e.State()
		}

		if b.current.After(current) {
			current = b.current
			idlePasses = 0
		} else {
			idlePasses++
		}

		if b.finished {
			idx = (idx + 1) % n
		}

		if idlePasses >= n {
			s.log.Warn().
				Time("at", current).
				Int("schedule_items", n).
				Msg("Scheduler stalled")
			result.Err = ErrSchedulerStalled
			break
		}
	}

	result.NextScheduleItemIndex = idx
	result.End = current
	return result
}

// heldFlood reports whether si is a flood that still has time left at t
func heldFlood(si *models.ScheduleItem, t time.Time) bool {
	if si.PlaybackMode != models.PlaybackModeFlood {
		return false
	}
	return si.FloodEnd == nil || t.Before(*si.FloodEnd)
}

// dispatch runs the mode handler for one schedule item starting at current
func (s *Scheduler) dispatch(si *models.ScheduleItem, idx int, current, end time.Time) (*block, []string) {
	b := s.newBlock(si, idx, current)
	key := si.CollectionKey()
	e, ok := s.enumerators[key]
	if !ok {
		return b, []string{fmt.Sprintf("schedule item %d: no enumerator for collection %s", si.Index, key)}
	}
	b.enum = e

	var warnings []string
	if e.Len() == 0 {
		warnings = append(warnings, fmt.Sprintf("schedule item %d: collection %s is empty", si.Index, key))
	}

	s.log.Debug().
		Int("schedule_item", si.Index).
		Str("mode", string(si.PlaybackMode)).
		Str("collection", key.String()).
		Time("start", current).
		Msg("Scheduling item")

	switch si.PlaybackMode {
	case models.PlaybackModeMultiple:
		s.scheduleMultiple(b, si.MultipleCount())
	case models.PlaybackModeDuration:
		s.scheduleDuration(b, si.Target())
	case models.PlaybackModeFlood:
		s.scheduleFlood(b, end)
	default:
		s.scheduleMultiple(b, 1)
	}
	return b, warnings
}

// scheduleMultiple emits up to count items back to back, stopping early on an empty
// collection, then pads to the tail preset's minute boundary when one is configured
func (s *Scheduler) scheduleMultiple(b *block, count int) {
	for i := 0; i < count; i++ {
		if i > 0 && b.enum.Peek() != nil {
			b.roll(b.si.MidRollFillerID, models.FillerModeMidRoll, farFuture)
		}
		if !b.program(farFuture, false) {
			break
		}
	}
	s.padBlock(b)
}

// scheduleDuration emits items until target is met. The final item is trimmed so the
// block spans exactly target, unless a tail preset is set: then the item that would
// overshoot is not played and tail filler covers the remainder.
func (s *Scheduler) scheduleDuration(b *block, target time.Duration) {
	blockEnd := b.start.Add(target)
	first := true
	for b.current.Before(blockEnd) {
		next := b.enum.Peek()
		if next == nil {
			b.fill(b.si.FallbackFillerID, blockEnd.Sub(b.current), models.FillerModeFallback, blockEnd)
			break
		}
		if !first {
			b.roll(b.si.MidRollFillerID, models.FillerModeMidRoll, blockEnd)
		}
		if b.si.TailFillerID != nil && b.current.Add(next.Runtime()).After(blockEnd) {
			b.fill(b.si.TailFillerID, blockEnd.Sub(b.current), models.FillerModeTail, blockEnd)
			break
		}
		if !b.program(blockEnd, true) {
			break
		}
		first = false
	}
	// the block owns its full target only once something was placed in it
	if b.current.Before(blockEnd) && len(b.items) > 0 {
		b.current = blockEnd
	}
}

// scheduleFlood emits whole items while the clock is before the flood bound: FloodEnd
// when set and earlier than the window end, otherwise the window end. The last item is
// not clipped and may run past the bound.
func (s *Scheduler) scheduleFlood(b *block, windowEnd time.Time) {
	limit := windowEnd
	floodEnd := b.si.FloodEnd
	if floodEnd != nil && floodEnd.Before(limit) {
		limit = *floodEnd
	}

	if b.enum.Peek() == nil {
		b.fill(b.si.FallbackFillerID, limit.Sub(b.current), models.FillerModeFallback, limit)
		if b.current.Before(limit) && len(b.items) > 0 {
			b.current = limit
		}
		// nothing to flood with: let the cursor move on unless fallback is holding the slot
		b.finished = len(b.items) == 0 || (floodEnd != nil && !b.current.Before(*floodEnd))
		return
	}

	first := true
	for b.current.Before(limit) {
		if !first {
			b.roll(b.si.MidRollFillerID, models.FillerModeMidRoll, limit)
		}
		if !b.program(limit, false) {
			break
		}
		first = false
	}
	b.finished = floodEnd != nil && !b.current.Before(*floodEnd)
}

// padBlock rounds a ONE/MULTIPLE block's runtime up to the tail preset's minute boundary
func (s *Scheduler) padBlock(b *block) {
	if b.si.TailFillerID == nil || len(b.items) == 0 {
		return
	}
	preset, ok := s.fillers.Preset(*b.si.TailFillerID)
	if !ok || preset.PadToNearestMinute == nil || *preset.PadToNearestMinute <= 0 {
		return
	}
	runtime := b.current.Sub(b.start)
	padded := filler.PadTarget(runtime, *preset.PadToNearestMinute)
	boundary := b.start.Add(padded)
	if gap := padded - runtime; gap > 0 {
		b.fill(b.si.TailFillerID, gap, models.FillerModePad, boundary)
		b.current = boundary
	}
}

func (s *Scheduler) newBlock(si *models.ScheduleItem, idx int, start time.Time) *block {
	return &block{
		s:        s,
		si:       si,
		idx:      idx,
		start:    start,
		current:  start,
		finished: true,
	}
}

// farFuture is the "no bound" limit for ONE/MULTIPLE blocks
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// block accumulates the timeline entries of one schedule item run
type block struct {
	s        *Scheduler
	si       *models.ScheduleItem
	idx      int
	enum     enumerator.Enumerator
	start    time.Time
	current  time.Time
	items    []*models.PlayoutItem
	finished bool
}

// program draws one item with its pre and post roll. With clip set the item is trimmed
// at limit. Returns false when the collection is empty or no room is left before limit.
func (b *block) program(limit time.Time, clip bool) bool {
	if b.enum.Peek() == nil {
		return false
	}
	b.roll(b.si.PreRollFillerID, models.FillerModePreRoll, limit)
	if !b.current.Before(limit) {
		return false
	}

	cursor := b.enum.State()
	media := b.enum.Next()
	item := &models.PlayoutItem{
		ID:                uuid.New(),
		ChannelID:         b.s.channelID,
		MediaID:           media.ID,
		Start:             b.current,
		Finish:            b.current.Add(media.Runtime()),
		CustomTitle:       b.si.CustomTitle,
		CollectionKey:     b.si.CollectionKey().String(),
		GuideHidden:       b.si.GuideMode == models.GuideModeFiller || b.si.GuideMode == models.GuideModeHidden,
		ScheduleItemIndex: b.idx,
		Cursor:            cursor,
	}
	if clip && item.Finish.After(limit) {
		out := int64(limit.Sub(item.Start) / time.Second)
		item.OutPoint = &out
		item.Finish = limit
	}
	b.items = append(b.items, item)
	b.current = item.Finish

	if b.current.Before(limit) {
		b.roll(b.si.PostRollFillerID, models.FillerModePostRoll, limit)
	}
	return true
}

// roll inserts count-based filler when it fits entirely before limit
func (b *block) roll(presetID *uuid.UUID, mode models.FillerMode, limit time.Time) {
	if presetID == nil {
		return
	}
	preset, ok := b.s.fillers.Preset(*presetID)
	if !ok {
		return
	}
	target := filler.RollTarget(preset)
	if limit != farFuture {
		target = min(target, limit.Sub(b.current))
	}
	if target <= 0 {
		return
	}
	selected := b.s.fillers.Select(*presetID, target, mode)
	if limit != farFuture && !b.current.Add(filler.TotalDuration(selected)).Before(limit) {
		// a roll must leave room for the program that follows it
		if mode == models.FillerModePreRoll || mode == models.FillerModeMidRoll {
			return
		}
	}
	b.emitFiller(*presetID, selected, mode)
}

// fill closes a gap of target with fit-based filler, never passing limit
func (b *block) fill(presetID *uuid.UUID, target time.Duration, mode models.FillerMode, limit time.Time) {
	if presetID == nil || target <= 0 {
		return
	}
	selected := b.s.fillers.Select(*presetID, target, mode)
	var fitting []models.FillerItem
	at := b.current
	for _, f := range selected {
		if at.Add(f.Runtime()).After(limit) {
			break
		}
		fitting = append(fitting, f)
		at = at.Add(f.Runtime())
	}
	b.emitFiller(*presetID, fitting, mode)
}

func (b *block) emitFiller(presetID uuid.UUID, selected []models.FillerItem, mode models.FillerMode) {
	for _, f := range selected {
		item := &models.PlayoutItem{
			ID:                uuid.New(),
			ChannelID:         b.s.channelID,
			MediaID:           f.MediaID,
			Start:             b.current,
			Finish:            b.current.Add(f.Runtime()),
			FillerKind:        mode,
			CollectionKey:     "filler:" + presetID.String(),
			GuideHidden:       true,
			ScheduleItemIndex: b.idx,
		}
		b.items = append(b.items, item)
		b.current = item.Finish
	}
}
