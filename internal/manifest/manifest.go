// Package manifest models AME transcode jobs and renders the XML manifest the
// AME web service expects on POST /job.
package manifest

import (
	"errors"
	"path/filepath"
	"strings"
)

// JobDescriptor is one transcode request: source file, destination file, and
// the preset AME applies. Values are immutable once built with NewJob.
type JobDescriptor struct {
	InputPath  string
	OutputPath string
	PresetPath string
	PresetName string
}

// NewJob validates and builds a JobDescriptor. The preset name is derived from
// the preset file name.
func NewJob(inputPath, outputPath, presetPath string) (JobDescriptor, error) {
	inputPath = strings.TrimSpace(inputPath)
	outputPath = strings.TrimSpace(outputPath)
	presetPath = strings.TrimSpace(presetPath)
	switch {
	case inputPath == "":
		return JobDescriptor{}, errors.New("job input path required")
	case outputPath == "":
		return JobDescriptor{}, errors.New("job output path required")
	case presetPath == "":
		return JobDescriptor{}, errors.New("job preset path required")
	}
	return JobDescriptor{
		InputPath:  inputPath,
		OutputPath: outputPath,
		PresetPath: presetPath,
		PresetName: presetNameFromPath(presetPath),
	}, nil
}

// Label returns a short display name for logs and tables.
func (j JobDescriptor) Label() string {
	return baseName(j.InputPath)
}

func presetNameFromPath(path string) string {
	name := baseName(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// baseName handles both separators since job files may carry Windows paths
// while tests run elsewhere.
func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
