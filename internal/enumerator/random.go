package enumerator

import (
	"math/rand"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// Random draws uniformly on every call. Values are not reproducible across restores,
// but the last drawn index is exported so repeat avoidance survives a restore.
type Random struct {
	cursor
	rng          *rand.Rand
	avoidRepeats bool
	last         *int
	pending      *int
}

// NewRandom creates a random enumerator
func NewRandom(items []*models.Media, seed int64, avoidRepeats bool) *Random {
	return &Random{
		cursor:       newCursor(items),
		rng:          rand.New(rand.NewSource(seed)),
		avoidRepeats: avoidRepeats,
	}
}

// Next draws the next item
func (r *Random) Next() *models.Media {
	if r.empty() {
		return nil
	}
	pick := r.draw()
	r.pending = nil
	r.last = &pick
	r.index++
	return r.items[pick]
}

// Peek returns the item Next would return; the draw is held until Next consumes it
func (r *Random) Peek() *models.Media {
	if r.empty() {
		return nil
	}
	return r.items[r.draw()]
}

func (r *Random) draw() int {
	if r.pending != nil {
		return *r.pending
	}
	n := len(r.items)
	var pick int
	if r.avoidRepeats && n > 1 && r.last != nil && *r.last < n {
		// draw from n-1 slots and skip over the previous index
		pick = r.rng.Intn(n - 1)
		if pick >= *r.last {
			pick++
		}
	} else {
		pick = r.rng.Intn(n)
	}
	r.pending = &pick
	return pick
}

// State exports the draw count and the previous index
func (r *Random) State() models.EnumeratorState {
	state := models.EnumeratorState{Index: r.index}
	if r.last != nil {
		last := *r.last
		state.LastIndex = &last
	}
	return state
}

// Restore resumes repeat avoidance from an exported state
func (r *Random) Restore(state models.EnumeratorState) {
	r.index = max(state.Index, 0)
	r.pending = nil
	r.last = nil
	if state.LastIndex != nil && *state.LastIndex >= 0 && *state.LastIndex < len(r.items) {
		last := *state.LastIndex
		r.last = &last
	}
}

// Reset forgets the draw history
func (r *Random) Reset() {
	r.index = 0
	r.last = nil
	r.pending = nil
}
