package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_type": "audio", "codec_name": "pcm_s24le"},
    {"index": 1, "codec_type": "video", "codec_name": "prores", "width": 3840, "height": 2160,
     "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001"}
  ],
  "format": {"duration": "12.5", "size": "1000", "format_name": "mov,mp4"}
}`

func TestInspectWithParsesVideo(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, binary string, args ...string) ([]byte, error) {
		gotArgs = append([]string{binary}, args...)
		return []byte(sampleJSON), nil
	}
	result, err := InspectWith(context.Background(), run, "", "/media/clip.mov")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if gotArgs[0] != "ffprobe" || gotArgs[len(gotArgs)-1] != "/media/clip.mov" || gotArgs[len(gotArgs)-2] != "--" {
		t.Fatalf("unexpected command: %v", gotArgs)
	}
	video, err := result.FirstVideo()
	if err != nil {
		t.Fatalf("FirstVideo: %v", err)
	}
	if video.Width != 3840 || video.Height != 2160 {
		t.Fatalf("unexpected dimensions %dx%d", video.Width, video.Height)
	}
	if rate := video.FrameRate(); math.Abs(rate-29.97) > 0.01 {
		t.Fatalf("unexpected frame rate %v", rate)
	}
	if result.VideoStreamCount() != 1 || result.DurationSeconds() != 12.5 || result.SizeBytes() != 1000 {
		t.Fatalf("unexpected helpers: %d %v %d", result.VideoStreamCount(), result.DurationSeconds(), result.SizeBytes())
	}
}

func TestInspectWithErrors(t *testing.T) {
	if _, err := InspectWith(context.Background(), nil, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1: moov atom not found")
	}
	_, err := InspectWith(context.Background(), failing, "ffprobe", "/x.mov")
	if err == nil || !strings.Contains(err.Error(), "moov atom") {
		t.Fatalf("expected wrapped runner error, got %v", err)
	}
}

func TestFirstVideoMissing(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio"}, {CodecType: "video"}}}
	if _, err := result.FirstVideo(); !errors.Is(err, ErrNoVideo) {
		t.Fatalf("expected ErrNoVideo, got %v", err)
	}
}

func TestParseRational(t *testing.T) {
	tests := map[string]float64{
		"25/1":   25,
		"24":     24,
		"0/0":    0,
		"":       0,
		"bad":    0,
		"60000/": 0,
	}
	for in, want := range tests {
		if got := parseRational(in); got != want {
			t.Fatalf("parseRational(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}
