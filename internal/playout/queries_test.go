package playout

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGappyState covers 9:00-10:00 and 10:30-11:00
func newGappyState() *State {
	s := NewState(uuid.New())
	s.AddItem(newTestItem(at(9, 0), at(9, 30)))
	s.AddItem(newTestItem(at(9, 30), at(10, 0)))
	s.AddItem(newTestItem(at(10, 30), at(11, 0)))
	return s
}

func TestGetCurrentItem(t *testing.T) {
	s := newGappyState()

	tests := []struct {
		name      string
		at        time.Time
		wantStart *time.Time
	}{
		{"before timeline", at(8, 0), nil},
		{"at first start", at(9, 0), ptrTime(at(9, 0))},
		{"inside second", at(9, 45), ptrTime(at(9, 30))},
		{"finish is exclusive", at(10, 0), nil},
		{"in gap", at(10, 15), nil},
		{"inside last", at(10, 59), ptrTime(at(10, 30))},
		{"after timeline", at(12, 0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetCurrentItem(s, tt.at)
			if tt.wantStart == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, got.Start.Equal(*tt.wantStart))
		})
	}
}

func TestGetCurrentItem_NilState(t *testing.T) {
	assert.Nil(t, GetCurrentItem(nil, at(9, 0)))
}

func TestGetUpcomingItems(t *testing.T) {
	s := newGappyState()

	got := GetUpcomingItems(s, 5, at(9, 0))
	require.Len(t, got, 2, "items starting exactly at the query time are not upcoming")
	assert.True(t, got[0].Start.Equal(at(9, 30)))
	assert.True(t, got[1].Start.Equal(at(10, 30)))

	got = GetUpcomingItems(s, 1, at(8, 0))
	require.Len(t, got, 1)
	assert.True(t, got[0].Start.Equal(at(9, 0)))

	assert.Empty(t, GetUpcomingItems(s, 3, at(10, 30)))
	assert.Empty(t, GetUpcomingItems(s, 0, at(8, 0)))
}

func TestTimeUntilNext(t *testing.T) {
	s := newGappyState()

	d, ok := TimeUntilNext(s, at(9, 10))
	assert.True(t, ok)
	assert.Equal(t, 20*time.Minute, d, "remaining time of the playing item")

	d, ok = TimeUntilNext(s, at(10, 10))
	assert.True(t, ok)
	assert.Equal(t, 20*time.Minute, d, "wait until the next item")

	_, ok = TimeUntilNext(s, at(11, 0))
	assert.False(t, ok, "no coverage means a build is needed")

	_, ok = TimeUntilNext(NewState(uuid.New()), at(9, 0))
	assert.False(t, ok)
}

func ptrTime(t time.Time) *time.Time { return &t }
