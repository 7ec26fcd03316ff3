package scan

import (
	"context"
	"errors"
	"fmt"

	"proxyoda/internal/config"
	"proxyoda/internal/media/ffprobe"
	"proxyoda/internal/media/mediainfo"
)

// VideoInfo is the probed geometry of a source.
type VideoInfo struct {
	Width     int
	Height    int
	FrameRate float64
}

// Prober reads video geometry from a file.
type Prober interface {
	Probe(ctx context.Context, path string) (VideoInfo, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, path string) (VideoInfo, error)

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, path string) (VideoInfo, error) {
	return f(ctx, path)
}

// ChainProber tries each prober in order and returns the first success.
type ChainProber []Prober

// Probe implements Prober.
func (c ChainProber) Probe(ctx context.Context, path string) (VideoInfo, error) {
	var errs []error
	for _, p := range c {
		info, err := p.Probe(ctx, path)
		if err == nil {
			return info, nil
		}
		if ctx.Err() != nil {
			return VideoInfo{}, ctx.Err()
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return VideoInfo{}, errors.New("no probers configured")
	}
	return VideoInfo{}, fmt.Errorf("probe %s: %w", path, errors.Join(errs...))
}

// MediaInfoProber probes with the MediaInfo CLI.
func MediaInfoProber(binary string) Prober {
	return ProberFunc(func(ctx context.Context, path string) (VideoInfo, error) {
		video, err := mediainfo.Inspect(ctx, binary, path)
		if err != nil {
			return VideoInfo{}, err
		}
		return VideoInfo{Width: video.Width, Height: video.Height, FrameRate: video.FrameRate}, nil
	})
}

// FFprobeProber probes with ffprobe.
func FFprobeProber(binary string) Prober {
	return ProberFunc(func(ctx context.Context, path string) (VideoInfo, error) {
		result, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return VideoInfo{}, err
		}
		stream, err := result.FirstVideo()
		if err != nil {
			return VideoInfo{}, err
		}
		return VideoInfo{Width: stream.Width, Height: stream.Height, FrameRate: stream.FrameRate()}, nil
	})
}

// NewProber returns MediaInfo with an ffprobe fallback. MediaInfo goes first
// because it reads NotchLC and HAP headers that ffprobe rejects.
func NewProber(cfg *config.Config) Prober {
	return ChainProber{
		MediaInfoProber(cfg.Scan.MediaInfoBinary),
		FFprobeProber(cfg.Scan.FFprobeBinary),
	}
}
