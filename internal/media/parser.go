// Package media turns files into playable media rows: episode metadata from filenames,
// durations from ffprobe, and video files found under a directory.
package media

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/stwalsh4118/hermes-playout/internal/models"
)

// Episode is the show/season/episode information recovered from a path
type Episode struct {
	ShowName *string
	Season   *int
	Episode  *int
	// Title is "Show - S01E02" when fully numbered, else the show or cleaned filename
	Title string
}

// Numbered reports whether both season and episode were found
func (e Episode) Numbered() bool {
	return e.Season != nil && e.Episode != nil
}

// filename patterns tried in order; each captures show, season, episode
var episodePatterns = []*regexp.Regexp{
	// "Show Name - S01E01 - Title"
	regexp.MustCompile(`(?i)^(.+?)\s*-\s*s(\d+)e(\d+)`),
	// "Show.Name.S01E01", "Show_Name S01E01"
	regexp.MustCompile(`(?i)^(.+?)[._ ]s(\d+)e(\d+)`),
	// "Show.Name.1x01"
	regexp.MustCompile(`(?i)^(.+?)[._ ](\d+)x(\d+)`),
}

var (
	// "Season 1", "Season.01", "S01"
	seasonDirPattern = regexp.MustCompile(`(?i)^(?:season|s)[\s._]?(\d+)$`)
	// "01 - Title", "E01", "Episode 01"
	episodeFilePattern = regexp.MustCompile(`(?i)^(\d+)\s*-|^e(\d+)|^episode[\s._]?(\d+)`)
	spaceRun           = regexp.MustCompile(`\s+`)
)

// ParseFilename recovers episode metadata from a file path, trying the filename first and
// then a "Show/Season N/NN - Title" directory layout
func ParseFilename(path string) Episode {
	slashed := filepath.ToSlash(path)
	base := strings.TrimSuffix(filepathBase(slashed), filepath.Ext(slashed))

	var ep Episode
	if !matchFilename(base, &ep) {
		matchDirectory(slashed, base, &ep)
	}
	ep.Title = episodeTitle(ep, base)
	return ep
}

// Enrich fills media fields the caller left empty from the file path
func Enrich(m *models.Media) {
	ep := ParseFilename(m.FilePath)
	if m.ShowName == nil {
		m.ShowName = ep.ShowName
	}
	if m.Season == nil {
		m.Season = ep.Season
	}
	if m.Episode == nil {
		m.Episode = ep.Episode
	}
	if strings.TrimSpace(m.Title) == "" {
		m.Title = ep.Title
	}
}

func matchFilename(base string, ep *Episode) bool {
	for _, p := range episodePatterns {
		m := p.FindStringSubmatch(base)
		if m == nil {
			continue
		}
		show := cleanName(m[1])
		ep.ShowName = &show
		ep.Season = atoi(m[2])
		ep.Episode = atoi(m[3])
		return true
	}
	return false
}

func matchDirectory(path, base string, ep *Episode) {
	parts := strings.Split(strings.Trim(pathDir(path), "/"), "/")
	if len(parts) < 2 {
		return
	}
	m := seasonDirPattern.FindStringSubmatch(parts[len(parts)-1])
	if m == nil {
		return
	}
	show := cleanName(parts[len(parts)-2])
	ep.ShowName = &show
	ep.Season = atoi(m[1])

	if m := episodeFilePattern.FindStringSubmatch(base); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				ep.Episode = atoi(g)
				break
			}
		}
	}
}

func episodeTitle(ep Episode, base string) string {
	switch {
	case ep.ShowName != nil && ep.Numbered():
		return fmt.Sprintf("%s - S%02dE%02d", *ep.ShowName, *ep.Season, *ep.Episode)
	case ep.ShowName != nil:
		return *ep.ShowName
	}
	return cleanName(base)
}

// cleanName turns dot and underscore separators into single spaces
func cleanName(name string) string {
	name = strings.NewReplacer(".", " ", "_", " ").Replace(name)
	return spaceRun.ReplaceAllString(strings.TrimSpace(name), " ")
}

func atoi(s string) *int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func filepathBase(slashed string) string {
	if i := strings.LastIndex(slashed, "/"); i >= 0 {
		return slashed[i+1:]
	}
	return slashed
}

func pathDir(slashed string) string {
	if i := strings.LastIndex(slashed, "/"); i >= 0 {
		return slashed[:i]
	}
	return ""
}
