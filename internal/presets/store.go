package presets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"proxyoda/internal/config"
	"proxyoda/internal/fileutil"
	"proxyoda/internal/services"
)

// Extension is the AME preset file extension.
const Extension = ".epr"

// ErrNotFound reports a preset name with no file behind it.
var ErrNotFound = errors.New("preset not found")

// Dir returns the AME user preset directory for a version:
// <home>/Documents/Adobe/Adobe Media Encoder/<version>/Presets.
func Dir(home, version string) string {
	return filepath.Join(home, "Documents", "Adobe", "Adobe Media Encoder", version, "Presets")
}

// Preset is one preset file on disk.
type Preset struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Store reads and writes presets in a single directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// NewStoreFromConfig uses encoder.preset_dir when set and otherwise the
// per-version directory under the user's home.
func NewStoreFromConfig(cfg *config.Config) (*Store, error) {
	if dir := strings.TrimSpace(cfg.Encoder.PresetDir); dir != "" {
		return NewStore(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	return NewStore(Dir(home, cfg.Encoder.Version)), nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// List returns presets sorted by name. A missing directory yields no presets.
func (s *Store) List() ([]Preset, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrFilesystem, "presets", "list", s.dir, err)
	}
	presets := make([]Preset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), Extension) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		presets = append(presets, Preset{
			Name:    strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name())),
			Path:    filepath.Join(s.dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(presets, func(i, j int) bool {
		return strings.ToLower(presets[i].Name) < strings.ToLower(presets[j].Name)
	})
	return presets, nil
}

// Path returns where a preset named name lives, whether or not it exists.
func (s *Store) Path(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+Extension), nil
}

// Resolve returns the path of an existing preset.
func (s *Store) Resolve(name string) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s (looked in %s)", ErrNotFound, name, s.dir)
	}
	return path, nil
}

// Load returns the preset XML.
func (s *Store) Load(name string) ([]byte, error) {
	path, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "presets", "load", path, err)
	}
	return data, nil
}

// Save writes preset XML as <name>.epr, creating the directory if needed.
func (s *Store) Save(name string, xml []byte) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "presets", "create dir", s.dir, err)
	}
	if err := fileutil.WriteAtomic(path, xml, 0o644); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "presets", "save", path, err)
	}
	return path, nil
}

// Import copies an existing .epr file into the store under its base name.
func (s *Store) Import(src string) (string, error) {
	if !strings.EqualFold(filepath.Ext(src), Extension) {
		return "", fmt.Errorf("%s is not a %s preset", src, Extension)
	}
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst, err := s.Path(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "presets", "create dir", s.dir, err)
	}
	if err := fileutil.CopyFileVerified(src, dst); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "presets", "import", src, err)
	}
	return dst, nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return errors.New("preset name is empty")
	case trimmed != name:
		return fmt.Errorf("preset name %q has surrounding whitespace", name)
	case strings.ContainsAny(name, `/\:*?"<>|`):
		return fmt.Errorf("preset name %q contains characters not allowed in file names", name)
	case name == config.PresetUnassigned:
		return fmt.Errorf("preset name %q is reserved", name)
	}
	return nil
}
