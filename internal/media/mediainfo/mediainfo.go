// Package mediainfo reads video dimensions with the MediaInfo CLI, which
// handles NotchLC and HAP sources that ffprobe often cannot decode.
package mediainfo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// inform prints the first video track as "width|height|frame rate".
const inform = "--Inform=Video;%Width%|%Height%|%FrameRate%\\n"

// ErrNoVideo reports output without usable video dimensions.
var ErrNoVideo = errors.New("no video track")

// Video holds the first video track's properties.
type Video struct {
	Width     int
	Height    int
	FrameRate float64
}

// Runner executes mediainfo and returns its stdout.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Inspect runs mediainfo against path.
func Inspect(ctx context.Context, binary, path string) (Video, error) {
	return InspectWith(ctx, runCommand, binary, path)
}

// InspectWith is Inspect with an injected runner.
func InspectWith(ctx context.Context, run Runner, binary, path string) (Video, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "mediainfo"
	}
	if strings.TrimSpace(path) == "" {
		return Video{}, errors.New("mediainfo inspect: empty path")
	}
	out, err := run(ctx, binary, inform, path)
	if err != nil {
		return Video{}, fmt.Errorf("mediainfo inspect: %w", err)
	}
	return Parse(string(out))
}

// Parse reads the first "width|height|fps" line. MediaInfo may group
// thousands with spaces ("3 840"), so whitespace inside numbers is dropped.
func Parse(output string) (Video, error) {
	for line := range strings.Lines(output) {
		parts := strings.Split(strings.TrimSpace(line), "|")
		if len(parts) < 2 {
			continue
		}
		width, errW := strconv.Atoi(stripSpaces(parts[0]))
		height, errH := strconv.Atoi(stripSpaces(parts[1]))
		if errW != nil || errH != nil || width <= 0 || height <= 0 {
			continue
		}
		video := Video{Width: width, Height: height}
		if len(parts) > 2 {
			if fps, err := strconv.ParseFloat(stripSpaces(parts[2]), 64); err == nil && fps > 0 {
				video.FrameRate = fps
			}
		}
		return video, nil
	}
	return Video{}, ErrNoVideo
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
