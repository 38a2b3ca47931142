package enumerator

import (
	"sort"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// Chronological walks the collection in order and wraps around forever
type Chronological struct {
	cursor
}

// NewChronological creates a chronological enumerator, stable-sorting by less when given
func NewChronological(items []*models.Media, less func(a, b *models.Media) bool) *Chronological {
	c := &Chronological{cursor: newCursor(items)}
	if less != nil {
		sort.SliceStable(c.items, func(i, j int) bool {
			return less(c.items[i], c.items[j])
		})
	}
	return c
}

// Next returns items[index % len] and advances
func (c *Chronological) Next() *models.Media {
	item := c.Peek()
	if item != nil {
		c.index++
	}
	return item
}

// Peek returns the item Next would return without advancing
func (c *Chronological) Peek() *models.Media {
	if c.empty() {
		return nil
	}
	return c.items[c.index%len(c.items)]
}

// State exports the cursor
func (c *Chronological) State() models.EnumeratorState {
	return models.EnumeratorState{Index: c.index}
}

// Restore resumes from an exported cursor
func (c *Chronological) Restore(state models.EnumeratorState) {
	c.index = max(state.Index, 0)
}

// Reset rewinds to the first item
func (c *Chronological) Reset() {
	c.index = 0
}

// ByEpisode orders media by show, season, episode, then title; media without
// episode numbers sort after numbered ones of the same show.
func ByEpisode(a, b *models.Media) bool {
	as, bs := deref(a.ShowName), deref(b.ShowName)
	if as != bs {
		return as < bs
	}
	if c := compareOptional(a.Season, b.Season); c != 0 {
		return c < 0
	}
	if c := compareOptional(a.Episode, b.Episode); c != 0 {
		return c < 0
	}
	return a.Title < b.Title
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func compareOptional(a, b *int) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}
