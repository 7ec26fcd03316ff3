package jobplan

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"proxyoda/internal/manifest"
	"proxyoda/internal/presets"
)

// FileEntry is one job in a YAML job file. Preset is either a path to an
// .epr file or a preset name resolved through the preset store.
type FileEntry struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Preset string `yaml:"preset"`
}

type jobFile struct {
	Jobs []FileEntry `yaml:"jobs"`
}

// LoadFile reads a YAML job file. Both a top-level list and a document with
// a "jobs" key are accepted.
func LoadFile(path string, resolver PresetResolver) ([]manifest.JobDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	entries, err := decodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("job file %s contains no jobs", path)
	}

	jobs := make([]manifest.JobDescriptor, 0, len(entries))
	for i, entry := range entries {
		presetPath, err := resolvePreset(entry.Preset, resolver)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		job, err := manifest.NewJob(entry.Input, entry.Output, presetPath)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func decodeEntries(data []byte) ([]FileEntry, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	var entries []FileEntry
	if root.Content[0].Kind == yaml.SequenceNode {
		if err := strictDecode(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var doc jobFile
	if err := strictDecode(data, &doc); err != nil {
		return nil, err
	}
	return doc.Jobs, nil
}

func strictDecode(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func resolvePreset(preset string, resolver PresetResolver) (string, error) {
	preset = strings.TrimSpace(preset)
	if preset == "" {
		return "", errors.New("preset is required")
	}
	if strings.ContainsAny(preset, `/\`) || strings.EqualFold(extOf(preset), presets.Extension) {
		return preset, nil
	}
	if resolver == nil {
		return "", fmt.Errorf("preset %q is a name but no preset store is available", preset)
	}
	return resolver.Resolve(preset)
}

func extOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx:]
	}
	return ""
}
