package lineup

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

const sampleLineup = `
media:
  - path: shows/Frasier/Season 1/01 - The Good Son.mkv
    duration: 22m
  - path: shows/Frasier/Season 1/02 - Space Quest.mkv
    duration: 1320
    title: Space Quest

collections:
  - name: Frasier
    media:
      - shows/Frasier/Season 1/01 - The Good Son.mkv
      - shows/Frasier/Season 1/02 - Space Quest.mkv
  - name: Sitcoms
    kind: multi_collection
    members: ["collection:Frasier"]

filler:
  - name: Bumpers
    mode: pre_roll
    duration: 30s
    directory: filler

channels:
  - number: 3
    name: Classic TV
    time_zone: America/New_York
    schedule:
      - collection: multi_collection:Sitcoms
        mode: multiple
        count: 2
        order: chronological
        pre_roll: Bumpers
      - collection: Frasier
        mode: duration
        duration: 1h
        fixed_start: "20:00"
        fallback: Bumpers
      - collection: Frasier
        mode: flood
        flood_end: 2024-03-05T06:00:00Z
        guide: hidden
`

func TestParse(t *testing.T) {
	l, err := Parse(strings.NewReader(sampleLineup))
	require.NoError(t, err)

	require.Len(t, l.Media, 2)
	assert.Equal(t, int64(1320), l.Media[0].Duration.Seconds())
	assert.Equal(t, int64(1320), l.Media[1].Duration.Seconds())

	require.Len(t, l.Collections, 2)
	assert.Equal(t, models.CollectionKindCollection, l.Collections[0].Kind, "kind defaults to collection")
	assert.Equal(t, models.CollectionKindMultiCollection, l.Collections[1].Kind)

	require.Len(t, l.Filler, 1)
	require.NotNil(t, l.Filler[0].Duration)
	assert.Equal(t, Duration(30*time.Second), *l.Filler[0].Duration)

	require.Len(t, l.Channels, 1)
	schedule := l.Channels[0].Schedule
	require.Len(t, schedule, 3)
	assert.Equal(t, models.PlaybackModeMultiple, schedule[0].Mode)
	assert.Equal(t, models.GuideModeNormal, schedule[0].Guide, "guide defaults to normal")
	assert.Equal(t, int64(3600), schedule[1].Duration.Seconds())
	require.NotNil(t, schedule[2].FloodEnd)
	assert.True(t, schedule[2].FloodEnd.Equal(time.Date(2024, 3, 5, 6, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.GuideModeHidden, schedule[2].Guide)
}

func TestParse_Empty(t *testing.T) {
	l, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, l.Channels)
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("channels:\n  - name: A\n    colour: red\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown collection",
			yaml: "channels:\n  - name: A\n    schedule:\n      - collection: Missing\n",
			want: `unknown collection "Missing"`,
		},
		{
			name: "multiple without count",
			yaml: "collections:\n  - name: C\n    media: [a.mp4]\nchannels:\n  - name: A\n    schedule:\n      - collection: C\n        mode: multiple\n",
			want: "needs a positive count",
		},
		{
			name: "duration without target",
			yaml: "collections:\n  - name: C\nchannels:\n  - name: A\n    schedule:\n      - collection: C\n        mode: duration\n",
			want: "needs a positive duration",
		},
		{
			name: "unknown order",
			yaml: "collections:\n  - name: C\nchannels:\n  - name: A\n    schedule:\n      - collection: C\n        order: sideways\n",
			want: `unknown order "sideways"`,
		},
		{
			name: "unknown filler",
			yaml: "collections:\n  - name: C\nchannels:\n  - name: A\n    schedule:\n      - collection: C\n        tail: Nope\n",
			want: `unknown filler preset "Nope"`,
		},
		{
			name: "bad fixed start",
			yaml: "collections:\n  - name: C\nchannels:\n  - name: A\n    schedule:\n      - collection: C\n        fixed_start: \"25:00\"\n",
			want: "invalid fixed_start",
		},
		{
			name: "bad time zone",
			yaml: "channels:\n  - name: A\n    time_zone: Mars/Olympus\n",
			want: "unknown time zone",
		},
		{
			name: "duplicate channel",
			yaml: "channels:\n  - name: A\n  - name: A\n",
			want: "declared twice",
		},
		{
			name: "members on plain collection",
			yaml: "collections:\n  - name: C\n    members: [D]\n  - name: D\n",
			want: "cannot have members",
		},
		{
			name: "filler without media",
			yaml: "filler:\n  - name: F\n    mode: tail\n",
			want: "has no media",
		},
		{
			name: "bad duration",
			yaml: "media:\n  - path: a.mp4\n    duration: soon\n",
			want: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_IsInvalidLineup(t *testing.T) {
	_, err := Parse(strings.NewReader("channels:\n  - name: A\n    schedule:\n      - collection: Missing\n"))
	assert.True(t, errors.Is(err, ErrInvalidLineup))
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		ref      string
		wantKind models.CollectionKind
		wantName string
	}{
		{"Frasier", models.CollectionKindCollection, "Frasier"},
		{"playlist:Morning", models.CollectionKindPlaylist, "Morning"},
		{"multi_collection:Sitcoms", models.CollectionKindMultiCollection, "Sitcoms"},
		{"Star Trek: TNG", models.CollectionKindCollection, "Star Trek: TNG"},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			kind, name := ParseReference(tt.ref)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lineup.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleLineup), 0o644))

	l, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, l.Channels, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
