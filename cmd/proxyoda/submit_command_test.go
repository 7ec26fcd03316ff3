package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"proxyoda/internal/config"
	"proxyoda/internal/services"
	"proxyoda/internal/testsupport"
)

func setupSubmitEnv(t *testing.T) *cliEnv {
	t.Helper()
	env := setupCLIEnv(t,
		testsupport.WithResolutions(
			config.Resolution{Resolution: "1920x1080", Scale: "0.5", Preset: "proxy_hd"},
		),
		testsupport.WithPresets("proxy_hd"),
	)
	orig := env.cfg.Paths.OriginalDir
	testsupport.WriteClip(t, orig, "day1/a.mov", 64)
	testsupport.WriteClip(t, orig, "day1/b.mov", 64)
	testsupport.WriteClip(t, orig, "broken.mov", 64)
	testsupport.WriteClip(t, orig, "notes.txt", 8)
	testsupport.WriteClip(t, env.cfg.Paths.ProxyDir, "day1/b_proxy.mov", 8)
	return env
}

func TestScanJSON(t *testing.T) {
	env := setupSubmitEnv(t)
	out, _, err := env.run(t, "scan", "--json")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var clips []jsonClip
	if err := json.Unmarshal([]byte(out), &clips); err != nil {
		t.Fatalf("decode scan output: %v\n%s", err, out)
	}
	if len(clips) != 3 {
		t.Fatalf("expected 3 clips, got %+v", clips)
	}
	byName := map[string]jsonClip{}
	for _, c := range clips {
		byName[filepath.Base(c.Path)] = c
	}
	if byName["a.mov"].Resolution != "1920x1080" || byName["a.mov"].Proxy != "" {
		t.Fatalf("unexpected a.mov: %+v", byName["a.mov"])
	}
	if byName["b.mov"].Proxy == "" {
		t.Fatalf("expected b.mov proxy to be found: %+v", byName["b.mov"])
	}
	if byName["broken.mov"].Resolution != "Unknown" || byName["broken.mov"].ProbeError == "" {
		t.Fatalf("unexpected broken.mov: %+v", byName["broken.mov"])
	}
}

func TestScanTable(t *testing.T) {
	env := setupSubmitEnv(t)
	out, _, err := env.run(t, "scan")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	requireContains(t, out, "1920x1080")
	// Table footers are upper-cased by the renderer.
	requireContains(t, strings.ToLower(out), "3 clips")
	requireContains(t, strings.ToLower(out), "2 missing")
}

func TestSubmitDryRun(t *testing.T) {
	env := setupSubmitEnv(t)
	out, _, err := env.run(t, "submit", "--dry-run", "--json")
	if err != nil {
		t.Fatalf("submit --dry-run: %v", err)
	}
	var plan jsonPlan
	if err := json.Unmarshal([]byte(out), &plan); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	if len(plan.Jobs) != 1 {
		t.Fatalf("expected one job, got %+v", plan.Jobs)
	}
	wantOutput := filepath.Join(env.cfg.Paths.ProxyDir, "day1", "a_proxy.mov")
	if plan.Jobs[0].Output != wantOutput {
		t.Fatalf("unexpected output %q, want %q", plan.Jobs[0].Output, wantOutput)
	}
	if plan.Jobs[0].Target != "960x540" {
		t.Fatalf("unexpected target resolution %q", plan.Jobs[0].Target)
	}
	reasons := map[string]bool{}
	for _, s := range plan.Skipped {
		reasons[s.Reason] = true
	}
	if !reasons["proxy_exists"] || !reasons["unknown_resolution"] {
		t.Fatalf("unexpected skips: %+v", plan.Skipped)
	}

	out, _, err = env.run(t, "submit", "--dry-run", "--force")
	if err != nil {
		t.Fatalf("submit --dry-run --force: %v", err)
	}
	requireContains(t, out, "b_proxy.mov")
	requireContains(t, out, "Unknown Resolution")
}

func TestSubmitWebServiceRecordsHistory(t *testing.T) {
	env := setupSubmitEnv(t)
	ame := newFakeAME(t, env.cfg, fakeReply{status: http.StatusOK, body: "<Response><SubmitResult>Busy</SubmitResult></Response>"})
	env.rewriteConfig(t)

	out, _, err := env.run(t, "submit", "--json")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	var report jsonReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Accepted != 1 || len(report.Results) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Results[0].Attempts != 2 {
		t.Fatalf("expected busy retry, got %d attempts", report.Results[0].Attempts)
	}
	if ame.postCount() != 2 {
		t.Fatalf("expected 2 POSTs, got %d", ame.postCount())
	}

	out, _, err = env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, report.RunID)

	out, _, err = env.run(t, "history", "--run", report.RunID)
	if err != nil {
		t.Fatalf("history --run: %v", err)
	}
	requireContains(t, out, "Accepted")
	requireContains(t, out, "a.mov")

	store := testsupport.MustOpenHistory(t, env.cfg)
	run, err := store.GetRun(context.Background(), report.RunID)
	if err != nil || run == nil {
		t.Fatalf("GetRun: %v (run=%v)", err, run)
	}
	if run.Counts.Accepted != 1 || run.Total() != 1 {
		t.Fatalf("unexpected recorded counts: %+v", run.Counts)
	}

	if _, err := os.Stat(filepath.Join(env.cfg.Paths.LogDir, "runs", report.RunID+".log")); err != nil {
		t.Fatalf("expected run log: %v", err)
	}
}

func TestSubmitFailsWhenJobRejected(t *testing.T) {
	env := setupSubmitEnv(t)
	newFakeAME(t, env.cfg, fakeReply{status: http.StatusBadRequest, body: "<Response><SubmitResult>Error</SubmitResult></Response>"})
	env.rewriteConfig(t)

	out, _, err := env.run(t, "submit")
	if err == nil {
		t.Fatal("expected non-nil error when a job is rejected")
	}
	requireContains(t, err.Error(), "1 of 1 jobs were not accepted")
	requireContains(t, out, "Rejected")
}

func TestSubmitFromJobFile(t *testing.T) {
	env := setupSubmitEnv(t)
	ame := newFakeAME(t, env.cfg)
	env.rewriteConfig(t)

	jobsPath := filepath.Join(t.TempDir(), "jobs.yaml")
	content := strings.Join([]string{
		"jobs:",
		"  - input: /orig/x.mov",
		"    output: /proxy/x_proxy.mov",
		"    preset: proxy_hd",
		"  - input: /orig/y.mov",
		"    output: /proxy/y_proxy.mov",
		"    preset: proxy_hd",
		"",
	}, "\n")
	if err := os.WriteFile(jobsPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	out, _, err := env.run(t, "submit", "--jobs", jobsPath)
	if err != nil {
		t.Fatalf("submit --jobs: %v\n%s", err, out)
	}
	if ame.postCount() != 2 {
		t.Fatalf("expected 2 POSTs, got %d", ame.postCount())
	}
	requireContains(t, out, "2 accepted")
}

func TestSubmitScriptMethod(t *testing.T) {
	env := setupSubmitEnv(t)
	app := testsupport.WriteClip(t, testsupport.BaseDir(env.cfg), "Adobe Media Encoder.exe", 1)
	env.cfg.Encoder.AppPaths = []string{app}
	env.rewriteConfig(t)

	out, _, err := env.run(t, "submit", "--method", "script")
	if err != nil {
		t.Fatalf("submit --method script: %v\n%s", err, out)
	}
	requireContains(t, out, "process_jobs_")
	if len(env.controller.spawned) != 1 {
		t.Fatalf("expected one spawn, got %v", env.controller.spawned)
	}
	spawn := env.controller.spawned[0]
	if spawn[0] != app || spawn[1] != "--console" || spawn[2] != "es.processFile" {
		t.Fatalf("unexpected spawn: %v", spawn)
	}

	env.controller.running[env.cfg.Encoder.AppProcess] = true
	_, _, err = env.run(t, "submit", "--method", "script")
	if !errors.Is(err, services.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestSubmitRejectsUnknownMethod(t *testing.T) {
	env := setupSubmitEnv(t)
	if _, _, err := env.run(t, "submit", "--method", "carrier-pigeon"); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestSubmitMissingOriginalDir(t *testing.T) {
	env := setupSubmitEnv(t)
	env.cfg.Paths.OriginalDir = filepath.Join(t.TempDir(), "gone")
	env.rewriteConfig(t)
	_, _, err := env.run(t, "submit", "--dry-run")
	if !errors.Is(err, services.ErrFilesystem) {
		t.Fatalf("expected ErrFilesystem, got %v", err)
	}
}
