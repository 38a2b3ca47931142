package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/stwalsh4118/hermes-playout/internal/logger"
)

const ffprobeTimeout = 30 * time.Second

// Probe errors
var (
	ErrFFprobeNotFound = errors.New("ffprobe not found in PATH")
	ErrInvalidFile     = errors.New("invalid or corrupted media file")
	ErrProbeTimeout    = errors.New("ffprobe execution timed out")
)

// Prober reports the playable duration of a file in whole seconds
type Prober interface {
	Duration(ctx context.Context, path string) (int64, error)
}

// FFprobe shells out to ffprobe
type FFprobe struct {
	// Binary defaults to "ffprobe" on PATH
	Binary string
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration runs ffprobe and returns the first video stream duration, falling back to the
// container duration
func (f FFprobe) Duration(ctx context.Context, path string) (int64, error) {
	binary := f.Binary
	if binary == "" {
		binary = "ffprobe"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return 0, ErrFFprobeNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, ffprobeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	).Output()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, ErrProbeTimeout
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrInvalidFile, exitErr.Stderr)
		}
		return 0, fmt.Errorf("%w: %v", ErrInvalidFile, err)
	}

	seconds, err := parseProbeOutput(out)
	if err != nil {
		return 0, err
	}
	logger.Log.Debug().
		Str("file_path", path).
		Int64("duration", seconds).
		Msg("Probed media duration")
	return seconds, nil
}

func parseProbeOutput(data []byte) (int64, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	for _, s := range out.Streams {
		if s.CodecType != "video" || s.Duration == "" {
			continue
		}
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil && d >= 1 {
			return int64(d), nil
		}
		break
	}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil && d >= 1 {
		return int64(d), nil
	}
	return 0, fmt.Errorf("%w: could not determine duration", ErrInvalidFile)
}
