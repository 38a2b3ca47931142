// Package lineup loads channel lineups from YAML and imports them into the database.
package lineup

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/stwalsh4118/hermes-playout/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrInvalidLineup wraps every validation failure
var ErrInvalidLineup = errors.New("invalid lineup")

// Lineup is the root of a lineup file
type Lineup struct {
	Media       []MediaSpec      `yaml:"media"`
	Collections []CollectionSpec `yaml:"collections"`
	Filler      []FillerSpec     `yaml:"filler"`
	Channels    []ChannelSpec    `yaml:"channels"`
}

// MediaSpec declares one media file. Anything left out is parsed from the path or probed.
type MediaSpec struct {
	Path     string   `yaml:"path"`
	Title    string   `yaml:"title"`
	Duration Duration `yaml:"duration"`
	Show     *string  `yaml:"show"`
	Season   *int     `yaml:"season"`
	Episode  *int     `yaml:"episode"`
}

// CollectionSpec declares a collection, playlist or multi-collection
type CollectionSpec struct {
	Name string                `yaml:"name"`
	Kind models.CollectionKind `yaml:"kind"`
	// Media lists file paths in order
	Media []string `yaml:"media"`
	// Directory adds every video file found under it, sorted by path
	Directory string `yaml:"directory"`
	// Members references other collections as "kind:name" (multi-collections only)
	Members []string `yaml:"members"`
}

// FillerSpec declares a filler preset
type FillerSpec struct {
	Name               string            `yaml:"name"`
	Mode               models.FillerMode `yaml:"mode"`
	Duration           *Duration         `yaml:"duration"`
	PadToNearestMinute *int              `yaml:"pad_to_nearest_minute"`
	Count              *int              `yaml:"count"`
	Media              []string          `yaml:"media"`
	Directory          string            `yaml:"directory"`
}

// ChannelSpec declares a channel and its schedule
type ChannelSpec struct {
	Number   int            `yaml:"number"`
	Name     string         `yaml:"name"`
	Icon     *string        `yaml:"icon"`
	TimeZone string         `yaml:"time_zone"`
	Schedule []ScheduleSpec `yaml:"schedule"`
}

// ScheduleSpec declares one schedule item. Collection is "kind:name" or a plain collection name.
type ScheduleSpec struct {
	Collection string               `yaml:"collection"`
	Mode       models.PlaybackMode  `yaml:"mode"`
	Order      models.PlaybackOrder `yaml:"order"`
	Count      *int                 `yaml:"count"`
	Duration   *Duration            `yaml:"duration"`
	FloodEnd   *time.Time           `yaml:"flood_end"`
	FixedStart *string              `yaml:"fixed_start"`
	PreRoll    string               `yaml:"pre_roll"`
	MidRoll    string               `yaml:"mid_roll"`
	PostRoll   string               `yaml:"post_roll"`
	Tail       string               `yaml:"tail"`
	Fallback   string               `yaml:"fallback"`
	Title      *string              `yaml:"title"`
	Guide      models.GuideMode     `yaml:"guide"`
}

// Duration accepts Go duration strings ("22m30s") or a plain number of seconds
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		var seconds int64
		if err := node.Decode(&seconds); err != nil {
			return err
		}
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Seconds returns the duration in whole seconds
func (d Duration) Seconds() int64 {
	return int64(time.Duration(d) / time.Second)
}

// Load reads and validates a lineup file
func Load(path string) (*Lineup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lineup: %w", err)
	}
	l, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a lineup. Unknown keys are rejected.
func Parse(r io.Reader) (*Lineup, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var l Lineup
	if err := dec.Decode(&l); err != nil {
		if errors.Is(err, io.EOF) {
			return &l, nil
		}
		return nil, fmt.Errorf("failed to parse lineup: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Validate checks names, enums and cross references
func (l *Lineup) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidLineup}, args...)...))
	}

	for i, m := range l.Media {
		if strings.TrimSpace(m.Path) == "" {
			invalid("media %d has no path", i)
		}
		if m.Duration < 0 {
			invalid("media %s has a negative duration", m.Path)
		}
	}

	collections := make(map[string]bool)
	for i := range l.Collections {
		c := &l.Collections[i]
		if c.Kind == "" {
			c.Kind = models.CollectionKindCollection
		}
		if c.Name == "" {
			invalid("collection %d has no name", i)
			continue
		}
		if !c.Kind.Valid() {
			invalid("collection %s has unknown kind %q", c.Name, c.Kind)
			continue
		}
		ref := reference(c.Kind, c.Name)
		if collections[ref] {
			invalid("collection %s is declared twice", ref)
		}
		collections[ref] = true

		isMulti := c.Kind == models.CollectionKindMultiCollection
		if isMulti && (len(c.Media) > 0 || c.Directory != "") {
			invalid("multi-collection %s can only list members", c.Name)
		}
		if !isMulti && len(c.Members) > 0 {
			invalid("%s %s cannot have members", c.Kind, c.Name)
		}
	}
	for _, c := range l.Collections {
		for _, member := range c.Members {
			kind, name := ParseReference(member)
			if !collections[reference(kind, name)] {
				invalid("multi-collection %s references unknown collection %q", c.Name, member)
			}
		}
	}

	presets := make(map[string]bool)
	for i, f := range l.Filler {
		if f.Name == "" {
			invalid("filler preset %d has no name", i)
			continue
		}
		if presets[f.Name] {
			invalid("filler preset %s is declared twice", f.Name)
		}
		presets[f.Name] = true
		if f.Mode == "" {
			invalid("filler preset %s has no mode", f.Name)
		}
		if len(f.Media) == 0 && f.Directory == "" {
			invalid("filler preset %s has no media", f.Name)
		}
	}

	channels := make(map[string]bool)
	for i := range l.Channels {
		ch := &l.Channels[i]
		if ch.Name == "" {
			invalid("channel %d has no name", i)
			continue
		}
		if channels[ch.Name] {
			invalid("channel %s is declared twice", ch.Name)
		}
		channels[ch.Name] = true
		if ch.TimeZone != "" {
			if _, err := time.LoadLocation(ch.TimeZone); err != nil {
				invalid("channel %s has unknown time zone %q", ch.Name, ch.TimeZone)
			}
		}
		for j := range ch.Schedule {
			s := &ch.Schedule[j]
			where := fmt.Sprintf("channel %s schedule item %d", ch.Name, j)
			if s.Mode == "" {
				s.Mode = models.PlaybackModeOne
			}
			if s.Guide == "" {
				s.Guide = models.GuideModeNormal
			}
			kind, name := ParseReference(s.Collection)
			if !collections[reference(kind, name)] {
				invalid("%s references unknown collection %q", where, s.Collection)
			}
			if s.Order != "" && !s.Order.Valid() {
				invalid("%s has unknown order %q", where, s.Order)
			}
			switch s.Mode {
			case models.PlaybackModeOne, models.PlaybackModeFlood:
			case models.PlaybackModeMultiple:
				if s.Count == nil || *s.Count < 1 {
					invalid("%s needs a positive count", where)
				}
			case models.PlaybackModeDuration:
				if s.Duration == nil || *s.Duration <= 0 {
					invalid("%s needs a positive duration", where)
				}
			default:
				invalid("%s has unknown mode %q", where, s.Mode)
			}
			if s.FixedStart != nil {
				if _, err := time.Parse("15:04", *s.FixedStart); err != nil {
					invalid("%s has invalid fixed_start %q", where, *s.FixedStart)
				}
			}
			for _, preset := range []string{s.PreRoll, s.MidRoll, s.PostRoll, s.Tail, s.Fallback} {
				if preset != "" && !presets[preset] {
					invalid("%s references unknown filler preset %q", where, preset)
				}
			}
		}
	}

	return errors.Join(errs...)
}

// ParseReference splits "kind:name"; a bare name refers to a plain collection
func ParseReference(ref string) (models.CollectionKind, string) {
	if kind, name, ok := strings.Cut(ref, ":"); ok && models.CollectionKind(kind).Valid() {
		return models.CollectionKind(kind), name
	}
	return models.CollectionKindCollection, ref
}

func reference(kind models.CollectionKind, name string) string {
	return string(kind) + ":" + name
}
