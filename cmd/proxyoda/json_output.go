package main

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"proxyoda/internal/jobplan"
	"proxyoda/internal/manifest"
	"proxyoda/internal/scan"
	"proxyoda/internal/submission"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type jsonJob struct {
	Input  string `json:"input"`
	Output string `json:"output"`
	Preset string `json:"preset"`
}

func toJSONJob(job manifest.JobDescriptor) jsonJob {
	return jsonJob{Input: job.InputPath, Output: job.OutputPath, Preset: job.PresetPath}
}

type jsonClip struct {
	Path       string  `json:"path"`
	RelPath    string  `json:"rel_path"`
	Size       int64   `json:"size"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	Resolution string  `json:"resolution"`
	Proxy      string  `json:"proxy,omitempty"`
	ProbeError string  `json:"probe_error,omitempty"`
}

func toJSONClip(f scan.File, proxy string) jsonClip {
	clip := jsonClip{
		Path:       f.Path,
		RelPath:    f.RelPath,
		Size:       f.Size,
		Width:      f.Width,
		Height:     f.Height,
		FrameRate:  f.FrameRate,
		Resolution: f.Resolution,
		Proxy:      proxy,
	}
	if f.ProbeErr != nil {
		clip.ProbeError = f.ProbeErr.Error()
	}
	return clip
}

type jsonSkip struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type jsonPlannedJob struct {
	jsonJob
	Target string `json:"target_resolution,omitempty"`
}

type jsonPlan struct {
	Jobs    []jsonPlannedJob `json:"jobs"`
	Skipped []jsonSkip       `json:"skipped"`
}

func toJSONPlan(jobs []manifest.JobDescriptor, targets []string, skipped []jobplan.Skip) jsonPlan {
	out := jsonPlan{Jobs: make([]jsonPlannedJob, 0, len(jobs)), Skipped: make([]jsonSkip, 0, len(skipped))}
	for i, job := range jobs {
		item := jsonPlannedJob{jsonJob: toJSONJob(job)}
		if i < len(targets) {
			item.Target = targets[i]
		}
		out.Jobs = append(out.Jobs, item)
	}
	for _, skip := range skipped {
		out.Skipped = append(out.Skipped, jsonSkip{Path: skip.File.RelPath, Reason: string(skip.Reason), Detail: skip.Detail})
	}
	return out
}

type jsonJobResult struct {
	Index int `json:"index"`
	jsonJob
	Outcome    string `json:"outcome"`
	Attempts   int    `json:"attempts"`
	StatusCode int    `json:"status_code,omitempty"`
	AMEJobID   string `json:"ame_job_id,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type jsonReport struct {
	RunID    string          `json:"run_id"`
	Started  time.Time       `json:"started"`
	Finished time.Time       `json:"finished"`
	Accepted int             `json:"accepted"`
	Busy     int             `json:"busy_exhausted"`
	Rejected int             `json:"rejected"`
	Errored  int             `json:"errored"`
	Skipped  int             `json:"skipped"`
	Results  []jsonJobResult `json:"results"`
	RunError string          `json:"run_error,omitempty"`
}

func toJSONReport(report submission.Report, runErr error) jsonReport {
	out := jsonReport{
		RunID:    report.RunID,
		Started:  report.Started,
		Finished: report.Finished,
		Accepted: report.Counts.Accepted,
		Busy:     report.Counts.BusyExhausted,
		Rejected: report.Counts.Rejected,
		Errored:  report.Counts.Errored,
		Skipped:  report.Counts.Skipped,
		Results:  make([]jsonJobResult, 0, len(report.Results)),
	}
	if runErr != nil {
		out.RunError = runErr.Error()
	}
	for _, r := range report.Results {
		item := jsonJobResult{
			Index:      r.Index,
			jsonJob:    toJSONJob(r.Job),
			Outcome:    string(r.Outcome),
			Attempts:   r.Attempts,
			StatusCode: r.Final.StatusCode,
			AMEJobID:   r.Final.JobID,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		out.Results = append(out.Results, item)
	}
	return out
}
