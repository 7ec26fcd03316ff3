package submission_test

import (
	"context"
	"os"
	"testing"
	"time"

	"proxyoda/internal/logging"
	"proxyoda/internal/submission"
)

type fakeRecorder struct {
	reports []submission.Report
}

func (r *fakeRecorder) RecordRun(_ context.Context, report submission.Report) error {
	r.reports = append(r.reports, report)
	return nil
}

type fakeNotifier struct {
	started      int
	completed    int
	errors       int
	lastAccepted int
}

func (n *fakeNotifier) NotifyRunStarted(context.Context, int) error {
	n.started++
	return nil
}

func (n *fakeNotifier) NotifyRunCompleted(_ context.Context, accepted, _ int, _ time.Duration) error {
	n.completed++
	n.lastAccepted = accepted
	return nil
}

func (n *fakeNotifier) NotifyError(context.Context, error, string) error {
	n.errors++
	return nil
}

func assertRunLog(t *testing.T, dir, runID string) {
	t.Helper()
	data, err := os.ReadFile(logging.RunLogPath(dir, runID))
	if err != nil {
		t.Fatalf("read run log: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected run log content")
	}
}
