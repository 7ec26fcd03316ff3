package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"proxyoda/internal/logging"
	"proxyoda/internal/services"
)

// UnknownResolution labels files whose geometry could not be probed.
const UnknownResolution = "Unknown"

// File is one discovered original.
type File struct {
	Path       string
	RelPath    string
	Name       string
	Ext        string
	Size       int64
	Width      int
	Height     int
	FrameRate  float64
	Resolution string
	ProbeErr   error
}

// BaseName returns the file name without its extension.
func (f File) BaseName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// RelDir returns the directory of RelPath, or "" for files at the root.
func (f File) RelDir() string {
	dir := filepath.Dir(f.RelPath)
	if dir == "." {
		return ""
	}
	return dir
}

// Options control a scan.
type Options struct {
	Extensions  []string
	Concurrency int
	Prober      Prober
	// ExcludeDirs are skipped during the walk, typically the proxy root
	// when it lives inside the original root.
	ExcludeDirs []string
	Logger      *slog.Logger
}

// Originals walks root and returns supported media ordered by relative path.
// Probe failures do not fail the scan; the file is labelled Unknown.
func Originals(ctx context.Context, root string, opts Options) ([]File, error) {
	logger := logging.NewComponentLogger(opts.Logger, "scan")
	if strings.TrimSpace(root) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "originals", "original directory not configured", nil)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", root)
		}
		return nil, services.Wrap(services.ErrFilesystem, "scan", "originals", root, err)
	}

	files, err := walk(root, opts)
	if err != nil {
		return nil, err
	}
	if opts.Prober == nil {
		for i := range files {
			files[i].Resolution = UnknownResolution
		}
		return files, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			probed, err := opts.Prober.Probe(gctx, files[i].Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				files[i].ProbeErr = err
				files[i].Resolution = UnknownResolution
				logger.Debug("probe failed", logging.String("path", files[i].Path), logging.Error(err))
				return nil
			}
			files[i].Width = probed.Width
			files[i].Height = probed.Height
			files[i].FrameRate = probed.FrameRate
			files[i].Resolution = ResolutionLabel(probed.Width, probed.Height)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unknown := 0
	for _, f := range files {
		if f.ProbeErr != nil {
			unknown++
		}
	}
	if unknown > 0 {
		logging.WarnWithContext(logger, "could not determine resolution for some files", "probe_failed",
			logging.Int("files", unknown),
			logging.String(logging.FieldErrorHint, "install MediaInfo CLI or ffprobe and check scan.mediainfo_binary / scan.ffprobe_binary"),
			logging.String(logging.FieldImpact, "files with unknown resolution are not submitted"),
		)
	}
	logger.Debug("scan complete", logging.Int("files", len(files)), logging.String("root", root))
	return files, nil
}

func walk(root string, opts Options) ([]File, error) {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(opts.ExcludeDirs))
	for _, dir := range opts.ExcludeDirs {
		if strings.TrimSpace(dir) != "" {
			excluded[filepath.Clean(dir)] = struct{}{}
		}
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped, matching a best-effort listing.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if _, skip := excluded[filepath.Clean(path)]; skip && path != root {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		var size int64
		if info, err := d.Info(); err == nil {
			size = info.Size()
		}
		files = append(files, File{Path: path, RelPath: rel, Name: name, Ext: ext, Size: size})
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "scan", "walk", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// ResolutionLabel formats a WxH label.
func ResolutionLabel(width, height int) string {
	if width <= 0 || height <= 0 {
		return UnknownResolution
	}
	return fmt.Sprintf("%dx%d", width, height)
}

// ScaledResolution scales dimensions, rounding to nearest and then down to
// an even number as most codecs require.
func ScaledResolution(width, height int, scale float64) (int, int) {
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return w &^ 1, h &^ 1
}
