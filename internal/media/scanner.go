package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultFormats are the extensions picked up when none are configured
var DefaultFormats = []string{".mp4", ".mkv", ".avi", ".mov"}

// ErrInvalidDirectory is returned when a scan root is missing or not a directory
var ErrInvalidDirectory = errors.New("invalid directory path")

// ScanDirectory returns every file under dir with one of the given extensions, sorted by
// path. Hidden files and directories are skipped.
func ScanDirectory(ctx context.Context, dir string, formats []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, dir)
	}
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	exts := make(map[string]bool, len(formats))
	for _, f := range formats {
		f = strings.ToLower(f)
		if !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		exts[f] = true
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && exts[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
