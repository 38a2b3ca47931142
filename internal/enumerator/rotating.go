package enumerator

import (
	"math/rand"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// RotatingShuffled buckets items by a group key, shuffles each bucket independently and
// round-robins across a shuffled bucket order, taking one item per bucket per round.
type RotatingShuffled struct {
	permuted
}

// NewRotatingShuffled creates a rotating shuffle enumerator. A nil groupKey groups by show name.
func NewRotatingShuffled(items []*models.Media, seed int64, groupKey func(*models.Media) string) *RotatingShuffled {
	if groupKey == nil {
		groupKey = ShowGroup
	}
	groups := groupIndexes(items, groupKey)
	build := func(_ int, seed int64) []int {
		return rotatingPermutation(groups, seed)
	}
	return &RotatingShuffled{permuted: newPermuted(items, seed, build)}
}

// ShowGroup groups media by show name; media without a show share one bucket
func ShowGroup(m *models.Media) string {
	return deref(m.ShowName)
}

// groupIndexes buckets item positions in order of first appearance
func groupIndexes(items []*models.Media, groupKey func(*models.Media) string) [][]int {
	var groups [][]int
	seen := make(map[string]int)
	for i, item := range items {
		key := groupKey(item)
		g, ok := seen[key]
		if !ok {
			g = len(groups)
			seen[key] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}

func rotatingPermutation(groups [][]int, seed int64) []int {
	rng := rand.New(rand.NewSource(seed))

	shuffled := make([][]int, len(groups))
	longest := 0
	for i, g := range groups {
		cp := make([]int, len(g))
		copy(cp, g)
		rng.Shuffle(len(cp), func(a, b int) { cp[a], cp[b] = cp[b], cp[a] })
		shuffled[i] = cp
		longest = max(longest, len(cp))
	}

	groupOrder := rng.Perm(len(shuffled))
	var out []int
	for round := 0; round < longest; round++ {
		for _, g := range groupOrder {
			if round < len(shuffled[g]) {
				out = append(out, shuffled[g][round])
			}
		}
	}
	return out
}
