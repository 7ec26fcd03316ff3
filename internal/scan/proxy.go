package scan

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"proxyoda/internal/services"
)

// FindProxy returns an existing proxy for original: a file in the mirrored
// directory under proxyRoot whose name starts with "<base>_" and has one of
// extensions. Any suffix after the underscore matches, so renamed proxies
// such as clip_proxy4.mov still count.
func FindProxy(original File, proxyRoot string, extensions []string) (string, bool) {
	if strings.TrimSpace(proxyRoot) == "" {
		return "", false
	}
	dir := filepath.Join(proxyRoot, original.RelDir())
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	prefix := original.BaseName() + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, allowed := range extensions {
			if ext == strings.ToLower(allowed) {
				return filepath.Join(dir, entry.Name()), true
			}
		}
	}
	return "", false
}

// MirrorFolders recreates every directory under originalRoot beneath
// proxyRoot without copying files. It returns the directories it created.
func MirrorFolders(originalRoot, proxyRoot string) ([]string, error) {
	if strings.TrimSpace(originalRoot) == "" || strings.TrimSpace(proxyRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "mirror folders",
			"both original and proxy directories are required", nil)
	}
	originalRoot = filepath.Clean(originalRoot)
	proxyRoot = filepath.Clean(proxyRoot)
	if proxyRoot == originalRoot {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "mirror folders",
			"proxy directory must differ from original directory", nil)
	}

	var created []string
	err := filepath.WalkDir(originalRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == proxyRoot {
			return fs.SkipDir
		}
		rel, err := filepath.Rel(originalRoot, path)
		if err != nil {
			return err
		}
		target := filepath.Join(proxyRoot, rel)
		if info, statErr := os.Stat(target); statErr == nil {
			if !info.IsDir() {
				return errors.New(target + " exists and is not a directory")
			}
			return nil
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return err
		}
		created = append(created, target)
		return nil
	})
	if err != nil {
		return created, services.Wrap(services.ErrFilesystem, "scan", "mirror folders", originalRoot, err)
	}
	sort.Strings(created)
	return created, nil
}
