package lineup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stwalsh4118/hermes-playout/internal/db"
	"github.com/stwalsh4118/hermes-playout/internal/logger"
	"github.com/stwalsh4118/hermes-playout/internal/media"
	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// ImportOptions configures an Importer
type ImportOptions struct {
	// LibraryPath is joined to relative media paths and directories
	LibraryPath string
	// Formats are the extensions picked up by directory scans
	Formats []string
	// Prober supplies durations for media that do not declare one
	Prober media.Prober
	// TimeZone applies to channels without one
	TimeZone string
}

// Summary counts what an import wrote
type Summary struct {
	Media         int `json:"media"`
	Collections   int `json:"collections"`
	FillerPresets int `json:"filler_presets"`
	Channels      int `json:"channels"`
	ScheduleItems int `json:"schedule_items"`
	// ChannelIDs lists every channel touched, in lineup order
	ChannelIDs []uuid.UUID `json:"channel_ids"`
}

// Importer writes lineups through the repositories. Importing the same lineup twice
// updates rows in place: media are matched by path, collections by kind and name,
// filler presets and channels by name.
type Importer struct {
	repos *db.Repositories
	opts  ImportOptions
	log   zerolog.Logger

	media map[string]*models.Media
}

// NewImporter creates an importer
func NewImporter(repos *db.Repositories, opts ImportOptions) *Importer {
	if opts.TimeZone == "" {
		opts.TimeZone = "UTC"
	}
	return &Importer{
		repos: repos,
		opts:  opts,
		log:   logger.WithComponent("lineup"),
	}
}

// Import writes every declared object. Schedules of imported channels are replaced.
func (imp *Importer) Import(ctx context.Context, l *Lineup) (*Summary, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	imp.media = make(map[string]*models.Media)
	summary := &Summary{}

	for _, spec := range l.Media {
		m := models.NewMedia(imp.resolve(spec.Path), spec.Title, spec.Duration.Seconds())
		m.ShowName = spec.Show
		m.Season = spec.Season
		m.Episode = spec.Episode
		if _, err := imp.saveMedia(ctx, m); err != nil {
			return nil, err
		}
	}

	collections, err := imp.importCollections(ctx, l.Collections)
	if err != nil {
		return nil, err
	}
	summary.Collections = len(collections)

	presets := make(map[string]uuid.UUID, len(l.Filler))
	for _, spec := range l.Filler {
		id, err := imp.importFiller(ctx, spec)
		if err != nil {
			return nil, err
		}
		presets[spec.Name] = id
	}
	summary.FillerPresets = len(presets)

	for _, spec := range l.Channels {
		ch, items, err := imp.importChannel(ctx, spec, collections, presets)
		if err != nil {
			return nil, err
		}
		summary.Channels++
		summary.ScheduleItems += items
		summary.ChannelIDs = append(summary.ChannelIDs, ch.ID)
	}
	summary.Media = len(imp.media)

	imp.log.Info().
		Int("media", summary.Media).
		Int("collections", summary.Collections).
		Int("filler_presets", summary.FillerPresets).
		Int("channels", summary.Channels).
		Int("schedule_items", summary.ScheduleItems).
		Msg("Lineup imported")
	return summary, nil
}

func (imp *Importer) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || imp.opts.LibraryPath == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(imp.opts.LibraryPath, path)
}

// saveMedia fills parsed and probed metadata, then upserts by path
func (imp *Importer) saveMedia(ctx context.Context, m *models.Media) (*models.Media, error) {
	if existing, ok := imp.media[m.FilePath]; ok {
		return existing, nil
	}
	media.Enrich(m)
	if m.Duration <= 0 {
		if imp.opts.Prober == nil {
			return nil, fmt.Errorf("%w: media %s has no duration and probing is disabled", ErrInvalidLineup, m.FilePath)
		}
		seconds, err := imp.opts.Prober.Duration(ctx, m.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to probe %s: %w", m.FilePath, err)
		}
		m.Duration = seconds
	}
	if err := imp.repos.Media.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save media %s: %w", m.FilePath, err)
	}
	imp.media[m.FilePath] = m
	return m, nil
}

// mediaFor returns the media of explicit paths followed by a directory scan
func (imp *Importer) mediaFor(ctx context.Context, paths []string, dir string) ([]*models.Media, error) {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		files = append(files, imp.resolve(p))
	}
	if dir != "" {
		found, err := media.ScanDirectory(ctx, imp.resolve(dir), imp.opts.Formats)
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}

	out := make([]*models.Media, 0, len(files))
	for _, f := range files {
		m, err := imp.saveMedia(ctx, models.NewMedia(f, "", 0))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// importCollections creates or finds every collection before filling any, so
// multi-collections may reference collections declared after them
func (imp *Importer) importCollections(ctx context.Context, specs []CollectionSpec) (map[string]*models.Collection, error) {
	byRef := make(map[string]*models.Collection, len(specs))
	for _, spec := range specs {
		c, err := imp.repos.Collections.GetByName(ctx, spec.Kind, spec.Name)
		switch {
		case err == nil:
		case db.IsNotFound(err):
			c = models.NewCollection(spec.Kind, spec.Name)
			if err := imp.repos.Collections.Create(ctx, c); err != nil {
				return nil, fmt.Errorf("failed to create %s %s: %w", spec.Kind, spec.Name, err)
			}
		default:
			return nil, fmt.Errorf("failed to look up %s %s: %w", spec.Kind, spec.Name, err)
		}
		byRef[reference(spec.Kind, spec.Name)] = c
	}

	for _, spec := range specs {
		c := byRef[reference(spec.Kind, spec.Name)]
		var items []*models.CollectionItem
		if spec.Kind == models.CollectionKindMultiCollection {
			for i, member := range spec.Members {
				kind, name := ParseReference(member)
				items = append(items, models.NewCollectionMember(c.ID, byRef[reference(kind, name)].ID, i))
			}
		} else {
			list, err := imp.mediaFor(ctx, spec.Media, spec.Directory)
			if err != nil {
				return nil, fmt.Errorf("collection %s: %w", spec.Name, err)
			}
			for i, m := range list {
				items = append(items, models.NewCollectionItem(c.ID, m.ID, i))
			}
		}
		if err := imp.repos.Collections.ReplaceItems(ctx, c.ID, items); err != nil {
			return nil, fmt.Errorf("failed to fill %s %s: %w", spec.Kind, spec.Name, err)
		}
		imp.log.Debug().
			Str("collection", c.Key().String()).
			Str("name", spec.Name).
			Int("items", len(items)).
			Msg("Collection imported")
	}
	return byRef, nil
}

// importFiller creates a preset or replaces the one of the same name in place, so schedules
// of channels outside this lineup still point at it
func (imp *Importer) importFiller(ctx context.Context, spec FillerSpec) (uuid.UUID, error) {
	preset := models.NewFillerPreset(spec.Name, spec.Mode)
	existing, err := imp.repos.FillerPresets.GetByName(ctx, spec.Name)
	replace := err == nil
	switch {
	case replace:
		preset.ID = existing.ID
	case !db.IsNotFound(err):
		return uuid.Nil, fmt.Errorf("failed to look up filler preset %s: %w", spec.Name, err)
	}

	if spec.Duration != nil {
		seconds := spec.Duration.Seconds()
		preset.FillerDuration = &seconds
	}
	preset.PadToNearestMinute = spec.PadToNearestMinute
	preset.Count = spec.Count

	list, err := imp.mediaFor(ctx, spec.Media, spec.Directory)
	if err != nil {
		return uuid.Nil, fmt.Errorf("filler preset %s: %w", spec.Name, err)
	}
	for _, m := range list {
		preset.Items = append(preset.Items, models.NewFillerItem(preset.ID, m))
	}

	if replace {
		err = imp.repos.FillerPresets.Replace(ctx, preset)
	} else {
		err = imp.repos.FillerPresets.Create(ctx, preset)
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save filler preset %s: %w", spec.Name, err)
	}
	return preset.ID, nil
}

func (imp *Importer) importChannel(
	ctx context.Context,
	spec ChannelSpec,
	collections map[string]*models.Collection,
	presets map[string]uuid.UUID,
) (*models.Channel, int, error) {
	tz := spec.TimeZone
	if tz == "" {
		tz = imp.opts.TimeZone
	}

	ch, err := imp.repos.Channels.GetByName(ctx, spec.Name)
	switch {
	case err == nil:
		ch.Number = spec.Number
		ch.Icon = spec.Icon
		ch.TimeZone = tz
		if err := imp.repos.Channels.Update(ctx, ch); err != nil {
			return nil, 0, fmt.Errorf("failed to update channel %s: %w", spec.Name, err)
		}
	case db.IsNotFound(err):
		ch = models.NewChannel(spec.Number, spec.Name)
		ch.Icon = spec.Icon
		ch.TimeZone = tz
		if err := imp.repos.Channels.Create(ctx, ch); err != nil {
			return nil, 0, fmt.Errorf("failed to create channel %s: %w", spec.Name, err)
		}
	default:
		return nil, 0, fmt.Errorf("failed to look up channel %s: %w", spec.Name, err)
	}

	presetID := func(name string) *uuid.UUID {
		if name == "" {
			return nil
		}
		id := presets[name]
		return &id
	}

	items := make([]*models.ScheduleItem, 0, len(spec.Schedule))
	for i, s := range spec.Schedule {
		kind, name := ParseReference(s.Collection)
		si := models.NewScheduleItem(ch.ID, i, collections[reference(kind, name)].Key())
		si.PlaybackMode = s.Mode
		si.PlaybackOrder = s.Order
		si.Count = s.Count
		if s.Duration != nil {
			seconds := s.Duration.Seconds()
			si.TargetDuration = &seconds
		}
		if s.FloodEnd != nil {
			end := s.FloodEnd.UTC()
			si.FloodEnd = &end
		}
		si.FixedStart = s.FixedStart
		si.PreRollFillerID = presetID(s.PreRoll)
		si.MidRollFillerID = presetID(s.MidRoll)
		si.PostRollFillerID = presetID(s.PostRoll)
		si.TailFillerID = presetID(s.Tail)
		si.FallbackFillerID = presetID(s.Fallback)
		si.CustomTitle = s.Title
		si.GuideMode = s.Guide
		items = append(items, si)
	}
	if err := imp.repos.ScheduleItems.ReplaceForChannel(ctx, ch.ID, items); err != nil {
		return nil, 0, fmt.Errorf("failed to save schedule for channel %s: %w", spec.Name, err)
	}

	imp.log.Debug().
		Str("channel_id", ch.ID.String()).
		Str("name", ch.Name).
		Int("schedule_items", len(items)).
		Msg("Channel imported")
	return ch, len(items), nil
}
