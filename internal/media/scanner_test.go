package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createFiles(t *testing.T, dir string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir,
		"Show/Season 1/02 - Two.mkv",
		"Show/Season 1/01 - One.MP4",
		"Show/Season 1/notes.txt",
		"movie.avi",
		".hidden/secret.mp4",
		"._resource.mp4",
	)

	files, err := ScanDirectory(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "Show/Season 1/01 - One.MP4"),
		filepath.Join(dir, "Show/Season 1/02 - Two.mkv"),
		filepath.Join(dir, "movie.avi"),
	}, files)
}

func TestScanDirectory_Formats(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "a.mp4", "b.webm")

	files, err := ScanDirectory(context.Background(), dir, []string{"webm"})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "b.webm")}, files)
}

func TestScanDirectory_Invalid(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "file.mp4")

	_, err := ScanDirectory(context.Background(), filepath.Join(dir, "missing"), nil)
	assert.ErrorIs(t, err, ErrInvalidDirectory)

	_, err = ScanDirectory(context.Background(), filepath.Join(dir, "file.mp4"), nil)
	assert.ErrorIs(t, err, ErrInvalidDirectory)
}

func TestScanDirectory_Cancelled(t *testing.T) {
	dir := t.TempDir()
	createFiles(t, dir, "a.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ScanDirectory(ctx, dir, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
