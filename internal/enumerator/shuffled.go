package enumerator

import (
	"math/rand"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// permuted walks a seed-derived permutation of the collection. When a pass completes the
// seed is incremented and a new permutation is derived, so (index, seed) alone pins down
// which permutation is in play and where in it the cursor sits.
type permuted struct {
	cursor
	seed        int64
	initialSeed int64
	order       []int
	build       func(n int, seed int64) []int
}

func newPermuted(items []*models.Media, seed int64, build func(n int, seed int64) []int) permuted {
	p := permuted{
		cursor:      newCursor(items),
		seed:        seed,
		initialSeed: seed,
		build:       build,
	}
	p.order = build(len(p.items), seed)
	return p
}

// Next returns the current permutation entry and advances, reshuffling after a full pass
func (p *permuted) Next() *models.Media {
	item := p.Peek()
	if item == nil {
		return nil
	}
	p.index++
	if p.index >= len(p.order) {
		p.seed++
		p.index = 0
		p.order = p.build(len(p.items), p.seed)
	}
	return item
}

// Peek returns the item Next would return without advancing
func (p *permuted) Peek() *models.Media {
	if p.empty() {
		return nil
	}
	return p.items[p.order[p.index]]
}

// State exports index and seed
func (p *permuted) State() models.EnumeratorState {
	seed := p.seed
	return models.EnumeratorState{Index: p.index, Seed: &seed}
}

// Restore rebuilds the permutation for the exported seed. An index past the end of a
// collection that shrank since the export restarts the pass.
func (p *permuted) Restore(state models.EnumeratorState) {
	if state.Seed != nil {
		p.seed = *state.Seed
	}
	p.index = state.Index
	if p.index < 0 || p.index >= len(p.items) {
		p.index = 0
	}
	p.order = p.build(len(p.items), p.seed)
}

// Reset returns to the constructed seed and the start of its pass
func (p *permuted) Reset() {
	p.seed = p.initialSeed
	p.index = 0
	p.order = p.build(len(p.items), p.seed)
}

// Shuffled visits every item exactly once per pass in a seeded random order
type Shuffled struct {
	permuted
}

// NewShuffled creates a shuffled enumerator for seed
func NewShuffled(items []*models.Media, seed int64) *Shuffled {
	return &Shuffled{permuted: newPermuted(items, seed, shufflePermutation)}
}

func shufflePermutation(n int, seed int64) []int {
	return rand.New(rand.NewSource(seed)).Perm(n)
}
