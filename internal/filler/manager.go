// Package filler selects supplementary items (bumpers, promos, ads) to close timing gaps.
// Selection never fails: an empty result means the gap stays unfilled.
package filler

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// Unbounded is the target used for count-based selection when a preset has no fixed duration
const Unbounded = time.Duration(math.MaxInt64)

const defaultRollCount = 1

// Manager selects filler from a fixed set of presets. It is not safe for concurrent use;
// the builder creates one per build.
type Manager struct {
	presets map[uuid.UUID]*models.FillerPreset
	rng     *rand.Rand
}

// NewManager creates a filler manager over presets using a seeded random source
func NewManager(presets []*models.FillerPreset, seed int64) *Manager {
	byID := make(map[uuid.UUID]*models.FillerPreset, len(presets))
	for _, p := range presets {
		if p != nil {
			byID[p.ID] = p
		}
	}
	return &Manager{
		presets: byID,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Preset looks up a preset by ID
func (m *Manager) Preset(id uuid.UUID) (*models.FillerPreset, bool) {
	p, ok := m.presets[id]
	return p, ok
}

// RollTarget is the target for count-based selection from a preset
func RollTarget(p *models.FillerPreset) time.Duration {
	if d := p.FixedDuration(); d > 0 {
		return d
	}
	return Unbounded
}

// Select picks filler from a preset to fit target. An empty mode uses the preset's own mode.
func (m *Manager) Select(presetID uuid.UUID, target time.Duration, mode models.FillerMode) []models.FillerItem {
	preset, ok := m.presets[presetID]
	if !ok {
		logger.Log.Debug().
			Str("preset_id", presetID.String()).
			Msg("Filler preset not found, leaving gap unfilled")
		return nil
	}
	if mode == "" {
		mode = preset.FillerMode
	}

	switch mode {
	case models.FillerModePreRoll, models.FillerModeMidRoll, models.FillerModePostRoll:
		return m.selectRoll(preset, target)
	case models.FillerModeTail, models.FillerModePad, models.FillerModeFallback:
		return m.selectFit(preset, target)
	default:
		return nil
	}
}

// selectRoll shuffles the preset and takes up to count items whose cumulative
// duration stays within target. Items that would overshoot are skipped.
func (m *Manager) selectRoll(preset *models.FillerPreset, target time.Duration) []models.FillerItem {
	limit := defaultRollCount
	if preset.Count != nil && *preset.Count > 0 {
		limit = *preset.Count
	}

	candidates := playable(preset.Items)
	m.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	var out []models.FillerItem
	var total time.Duration
	for _, item := range candidates {
		if len(out) >= limit {
			break
		}
		d := item.Runtime()
		if d > target-total {
			continue
		}
		out = append(out, item)
		total += d
	}
	return out
}

// selectFit repeatedly draws a weighted-random item that fits the remaining time.
// It never overshoots target.
func (m *Manager) selectFit(preset *models.FillerPreset, target time.Duration) []models.FillerItem {
	limit := math.MaxInt
	if preset.Count != nil && *preset.Count > 0 {
		limit = *preset.Count
	}

	candidates := playable(preset.Items)
	remaining := target
	var out []models.FillerItem
	for remaining > 0 && len(out) < limit {
		eligible := candidates[:0:0]
		totalWeight := 0
		for _, item := range candidates {
			if item.Runtime() <= remaining {
				eligible = append(eligible, item)
				totalWeight += weightOf(item)
			}
		}
		if len(eligible) == 0 {
			break
		}

		pick := m.rng.Intn(totalWeight)
		for _, item := range eligible {
			pick -= weightOf(item)
			if pick < 0 {
				out = append(out, item)
				remaining -= item.Runtime()
				break
			}
		}
	}
	return out
}

// playable drops items with no media or no duration; a zero-length item would never
// reduce the remaining gap
func playable(items []models.FillerItem) []models.FillerItem {
	out := make([]models.FillerItem, 0, len(items))
	for _, item := range items {
		if item.Runtime() > 0 {
			out = append(out, item)
		}
	}
	return out
}

func weightOf(item models.FillerItem) int {
	if item.Weight <= 0 {
		return 1
	}
	return item.Weight
}

// PadTarget rounds current up to the next multiple of padToMinute minutes
func PadTarget(current time.Duration, padToMinute int) time.Duration {
	if padToMinute <= 0 {
		return current
	}
	step := time.Duration(padToMinute) * time.Minute
	if rem := current % step; rem != 0 {
		return current + step - rem
	}
	return current
}

// TotalDuration sums the runtime of selected filler
func TotalDuration(items []models.FillerItem) time.Duration {
	var total time.Duration
	for _, item := range items {
		total += item.Runtime()
	}
	return total
}
