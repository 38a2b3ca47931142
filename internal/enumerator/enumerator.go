// Package enumerator yields the next item of a collection under a selection policy and
// exports a compact state so the sequence can resume exactly after an interruption.
package enumerator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// Enumerator is a stateful cursor over one collection.
// Next returns nil only when the collection is empty.
type Enumerator interface {
	Next() *models.Media
	Peek() *models.Media
	State() models.EnumeratorState
	Restore(state models.EnumeratorState)
	Reset()
	Len() int
}

// Options tunes enumerator construction
type Options struct {
	// Less pre-sorts a chronological collection; nil keeps the given order
	Less func(a, b *models.Media) bool
	// GroupKey buckets items for rotating shuffle; nil groups by show name
	GroupKey func(*models.Media) string
	// AvoidRepeats stops random order from emitting the same item twice in a row
	AvoidRepeats bool
	// Seed is used when no state is restored; nil draws a fresh seed
	Seed *int64
}

// New builds the enumerator for order over items, restoring state when non-nil
func New(order models.PlaybackOrder, items []*models.Media, state *models.EnumeratorState, opts Options) (Enumerator, error) {
	var e Enumerator
	switch order {
	case models.PlaybackOrderChronological:
		e = NewChronological(items, opts.Less)
	case models.PlaybackOrderShuffle:
		e = NewShuffled(items, seedFrom(opts))
	case models.PlaybackOrderRandom:
		e = NewRandom(items, seedFrom(opts), opts.AvoidRepeats)
	case models.PlaybackOrderRotatingShuffle:
		e = NewRotatingShuffled(items, seedFrom(opts), opts.GroupKey)
	default:
		return nil, fmt.Errorf("unknown playback order %q", order)
	}
	if state != nil {
		e.Restore(*state)
	}
	return e, nil
}

func seedFrom(opts Options) int64 {
	if opts.Seed != nil {
		return *opts.Seed
	}
	return rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
}

// cursor is the bookkeeping shared by every policy
type cursor struct {
	items []*models.Media
	index int
}

func newCursor(items []*models.Media) cursor {
	cp := make([]*models.Media, len(items))
	copy(cp, items)
	return cursor{items: cp}
}

// Len returns the collection size
func (c *cursor) Len() int {
	return len(c.items)
}

func (c *cursor) empty() bool {
	return len(c.items) == 0
}
