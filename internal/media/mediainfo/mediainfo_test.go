package mediainfo

import (
	"context"
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   Video
	}{
		{name: "plain", output: "1920|1080|25.000\n", want: Video{Width: 1920, Height: 1080, FrameRate: 25}},
		{name: "grouped digits", output: "3 840|2 160|29.970", want: Video{Width: 3840, Height: 2160, FrameRate: 29.97}},
		{name: "no frame rate", output: "1280|720|", want: Video{Width: 1280, Height: 720}},
		{name: "skips empty first track", output: "||\n4096|2160|24\n", want: Video{Width: 4096, Height: 2160, FrameRate: 24}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.output)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseNoVideo(t *testing.T) {
	for _, output := range []string{"", "\n", "abc|def"} {
		if _, err := Parse(output); !errors.Is(err, ErrNoVideo) {
			t.Fatalf("Parse(%q): expected ErrNoVideo, got %v", output, err)
		}
	}
}

func TestInspectWithPassesInform(t *testing.T) {
	var args []string
	run := func(_ context.Context, binary string, a ...string) ([]byte, error) {
		args = append([]string{binary}, a...)
		return []byte("1920|1080|50\n"), nil
	}
	video, err := InspectWith(context.Background(), run, "", "/media/a.mov")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if args[0] != "mediainfo" || args[1] != inform || args[2] != "/media/a.mov" {
		t.Fatalf("unexpected args %v", args)
	}
	if video.FrameRate != 50 {
		t.Fatalf("unexpected video %+v", video)
	}
}
