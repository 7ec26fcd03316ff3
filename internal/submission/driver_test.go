package submission_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"proxyoda/internal/encoderctl"
	"proxyoda/internal/manifest"
	"proxyoda/internal/services"
	"proxyoda/internal/services/ame"
	"proxyoda/internal/submission"
)

type scriptedClient struct {
	endpoint ame.Endpoint
	results  map[string][]ame.Result
	calls    []string
}

func (c *scriptedClient) Endpoint() ame.Endpoint { return c.endpoint }

func (c *scriptedClient) Submit(_ context.Context, job manifest.JobDescriptor) ame.Result {
	c.calls = append(c.calls, job.InputPath)
	queue := c.results[job.InputPath]
	if len(queue) == 0 {
		return ame.Result{Kind: ame.KindAccepted, StatusCode: 200}
	}
	res := queue[0]
	if len(queue) > 1 {
		c.results[job.InputPath] = queue[1:]
	}
	return res
}

type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
	return nil
}

func (s *recordingSleeper) count(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, got := range s.sleeps {
		if got == d {
			n++
		}
	}
	return n
}

type stubStarter struct {
	result encoderctl.StartResult
	err    error
	calls  int
}

func (s *stubStarter) EnsureRunning(context.Context) (encoderctl.StartResult, error) {
	s.calls++
	return s.result, s.err
}

func makeJobs(t *testing.T, n int) []manifest.JobDescriptor {
	t.Helper()
	jobs := make([]manifest.JobDescriptor, 0, n)
	for i := range n {
		job, err := manifest.NewJob(
			fmt.Sprintf(`D:\orig\clip%d.mov`, i),
			fmt.Sprintf(`D:\proxy\clip%d_proxy.mov`, i),
			`C:\presets\proxy_hd.epr`,
		)
		if err != nil {
			t.Fatalf("NewJob: %v", err)
		}
		jobs = append(jobs, job)
	}
	return jobs
}

const (
	busyDelay = 7 * time.Millisecond
	cooldown  = 11 * time.Millisecond
)

func newDriver(client submission.Submitter, starter submission.ServiceStarter, sleeper *recordingSleeper, opts ...submission.Option) *submission.Driver {
	base := []submission.Option{
		submission.WithCooldown(cooldown),
		submission.WithSleeper(sleeper.Sleep),
	}
	return submission.NewDriver(client, starter, append(base, opts...)...)
}

func TestRunAllBusyThenAccepted(t *testing.T) {
	jobs := makeJobs(t, 1)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 5, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[0].InputPath: {{Kind: ame.KindBusy, StatusCode: 200}, {Kind: ame.KindAccepted, StatusCode: 200}},
		},
	}
	sleeper := &recordingSleeper{}
	starter := &stubStarter{result: encoderctl.StartResult{State: encoderctl.StateReady}}

	report, err := newDriver(client, starter, sleeper).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if starter.calls != 1 {
		t.Fatalf("expected service ensured once, got %d", starter.calls)
	}
	if report.RunID == "" {
		t.Fatal("expected run id")
	}
	got := report.Results[0]
	if got.Outcome != submission.OutcomeAccepted || got.Attempts != 2 {
		t.Fatalf("expected accepted after 2 attempts, got %s after %d", got.Outcome, got.Attempts)
	}
	if sleeper.count(busyDelay) != 1 {
		t.Fatalf("expected one busy delay, got %v", sleeper.sleeps)
	}
	if !report.AllAccepted() {
		t.Fatalf("expected all accepted: %+v", report.Counts)
	}
}

func TestRunAllBusyExhaustionIsBounded(t *testing.T) {
	jobs := makeJobs(t, 1)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 3, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[0].InputPath: {{Kind: ame.KindBusy, StatusCode: 200}},
		},
	}
	sleeper := &recordingSleeper{}

	report, err := newDriver(client, nil, sleeper).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(client.calls) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(client.calls))
	}
	if sleeper.count(busyDelay) != 2 {
		t.Fatalf("expected no delay after final busy reply, got %v", sleeper.sleeps)
	}
	got := report.Results[0]
	if got.Outcome != submission.OutcomeBusyExhausted || got.Attempts != 3 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if !errors.Is(got.Err, services.ErrServiceBusy) {
		t.Fatalf("expected busy marker, got %v", got.Err)
	}
	if report.Counts.BusyExhausted != 1 || report.AllAccepted() {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}
}

func TestRunAllSocketResetCountsAsAccepted(t *testing.T) {
	jobs := makeJobs(t, 1)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 3, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[0].InputPath: {{Kind: ame.KindSocketResetLikelySuccess, Err: errors.New("connection reset by peer")}},
		},
	}
	report, err := newDriver(client, nil, &recordingSleeper{}).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	got := report.Results[0]
	if got.Outcome != submission.OutcomeAccepted || got.Attempts != 1 || got.Err != nil {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestRunAllPreservesOrderWithCooldown(t *testing.T) {
	jobs := makeJobs(t, 4)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 3, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[3].InputPath: {{Kind: ame.KindRejected, StatusCode: 500, Body: "bad preset"}},
		},
	}
	sleeper := &recordingSleeper{}

	report, err := newDriver(client, nil, sleeper).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(client.calls) != 4 {
		t.Fatalf("expected 4 submissions, got %d", len(client.calls))
	}
	for i, job := range jobs {
		if client.calls[i] != job.InputPath {
			t.Fatalf("submission %d out of order: %q", i, client.calls[i])
		}
		if report.Results[i].Index != i+1 || report.Results[i].Job.InputPath != job.InputPath {
			t.Fatalf("result %d out of order: %+v", i, report.Results[i])
		}
	}
	if sleeper.count(cooldown) != 3 {
		t.Fatalf("expected 3 cooldowns, got %v", sleeper.sleeps)
	}
	if report.Counts.Accepted != 3 || report.Counts.Rejected != 1 {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}
	if !errors.Is(report.Results[3].Err, services.ErrRejected) {
		t.Fatalf("expected rejected marker, got %v", report.Results[3].Err)
	}
}

func TestRunAllCooldownOnlyAfterAcceptedJob(t *testing.T) {
	jobs := makeJobs(t, 4)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 3, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[0].InputPath: {{Kind: ame.KindTransportError, Err: errors.New("connection refused")}},
			jobs[1].InputPath: {{Kind: ame.KindRejected, StatusCode: 500, Body: "bad preset"}},
		},
	}
	sleeper := &recordingSleeper{}

	report, err := newDriver(client, nil, sleeper).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(client.calls) != 4 {
		t.Fatalf("expected 4 submissions, got %d", len(client.calls))
	}
	// Only job 3 was accepted before another job followed it.
	if sleeper.count(cooldown) != 1 {
		t.Fatalf("expected 1 cooldown, got %v", sleeper.sleeps)
	}
	if report.Counts.Accepted != 2 || report.Counts.Rejected != 1 || report.Counts.Errored != 1 {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}
}

func TestRunAllStopOnFatalSkipsRemaining(t *testing.T) {
	jobs := makeJobs(t, 3)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 3, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[0].InputPath: {{Kind: ame.KindOffline, StatusCode: 200}},
		},
	}

	report, err := newDriver(client, nil, &recordingSleeper{}, submission.WithStopOnFatal(true)).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(client.calls) != 1 {
		t.Fatalf("expected only the first job sent, got %v", client.calls)
	}
	if report.Counts.Errored != 1 || report.Counts.Skipped != 2 {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}
	if !errors.Is(report.Results[2].Err, services.ErrServiceOffline) {
		t.Fatalf("expected skipped job to carry the cause, got %v", report.Results[2].Err)
	}
}

func TestRunAllContinuesAfterTransportErrorByDefault(t *testing.T) {
	jobs := makeJobs(t, 2)
	client := &scriptedClient{
		endpoint: ame.Endpoint{BusyRetryLimit: 3, BusyRetryDelay: busyDelay},
		results: map[string][]ame.Result{
			jobs[0].InputPath: {{Kind: ame.KindTransportError, Err: errors.New("connection refused")}},
		},
	}
	report, err := newDriver(client, nil, &recordingSleeper{}).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(client.calls) != 2 {
		t.Fatalf("expected both jobs sent, got %v", client.calls)
	}
	if report.Results[0].Outcome != submission.OutcomeTransportError || report.Results[1].Outcome != submission.OutcomeAccepted {
		t.Fatalf("unexpected outcomes: %s, %s", report.Results[0].Outcome, report.Results[1].Outcome)
	}
}

func TestRunAllServiceFailureSkipsAll(t *testing.T) {
	jobs := makeJobs(t, 2)
	client := &scriptedClient{endpoint: ame.Endpoint{BusyRetryLimit: 3}}
	starter := &stubStarter{err: services.Wrap(services.ErrTimeout, "encoderctl", "wait ready", "", nil)}
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}

	report, err := newDriver(client, starter, &recordingSleeper{},
		submission.WithRecorder(recorder),
		submission.WithNotifier(notifier),
	).RunAll(context.Background(), jobs)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if len(client.calls) != 0 {
		t.Fatalf("expected no submissions, got %v", client.calls)
	}
	if report.Counts.Skipped != 2 {
		t.Fatalf("expected all jobs skipped, got %+v", report.Counts)
	}
	if len(recorder.reports) != 1 || notifier.started != 1 || notifier.errors != 1 || notifier.completed != 0 {
		t.Fatalf("unexpected hook calls: recorder=%d notifier=%+v", len(recorder.reports), notifier)
	}
}

func TestRunAllUnavailableLauncherStillSubmits(t *testing.T) {
	jobs := makeJobs(t, 1)
	client := &scriptedClient{endpoint: ame.Endpoint{BusyRetryLimit: 3}}
	starter := &stubStarter{result: encoderctl.StartResult{State: encoderctl.StateUnavailable}}

	report, err := newDriver(client, starter, &recordingSleeper{}).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(client.calls) != 1 || report.Counts.Accepted != 1 {
		t.Fatalf("expected submission to proceed, calls=%v counts=%+v", client.calls, report.Counts)
	}
}

func TestRunAllEmptyDoesNotStartService(t *testing.T) {
	starter := &stubStarter{}
	client := &scriptedClient{endpoint: ame.Endpoint{BusyRetryLimit: 3}}
	report, err := newDriver(client, starter, &recordingSleeper{}).RunAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if starter.calls != 0 || len(report.Results) != 0 {
		t.Fatalf("expected no work, starter=%d results=%d", starter.calls, len(report.Results))
	}
}

func TestRunAllWritesRunLog(t *testing.T) {
	dir := t.TempDir()
	jobs := makeJobs(t, 1)
	client := &scriptedClient{endpoint: ame.Endpoint{BusyRetryLimit: 3}}
	recorder := &fakeRecorder{}
	notifier := &fakeNotifier{}

	report, err := newDriver(client, nil, &recordingSleeper{},
		submission.WithRunLogDir(dir),
		submission.WithRecorder(recorder),
		submission.WithNotifier(notifier),
	).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if notifier.completed != 1 || notifier.lastAccepted != 1 {
		t.Fatalf("unexpected completion notification: %+v", notifier)
	}
	if len(recorder.reports) != 1 || recorder.reports[0].RunID != report.RunID {
		t.Fatalf("expected report recorded")
	}
	assertRunLog(t, dir, report.RunID)
}

// TestRunAllAgainstWebService drives the real client against an httptest AME.
func TestRunAllAgainstWebService(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
		busy   = 1
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/job" {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		reply := "<SubmitResult>Accepted</SubmitResult>"
		if busy > 0 {
			busy--
			reply = "<SubmitResult>Busy</SubmitResult>"
		}
		mu.Unlock()
		_, _ = io.WriteString(w, reply)
	}))
	defer server.Close()

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(server.URL, "http://"))
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	client := ame.NewClient(ame.Endpoint{
		Host:           host,
		Port:           port,
		BusyRetryLimit: 3,
		BusyRetryDelay: busyDelay,
		RequestTimeout: 2 * time.Second,
	})

	jobs := makeJobs(t, 4)
	sleeper := &recordingSleeper{}
	report, err := newDriver(client, nil, sleeper).RunAll(context.Background(), jobs)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if report.Counts.Accepted != 4 {
		t.Fatalf("expected 4 accepted, got %+v", report.Counts)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(bodies) != 5 {
		t.Fatalf("expected 5 POSTs (one busy retry), got %d", len(bodies))
	}
	// The busy retry resends the first job; the rest follow in order.
	want := []int{0, 0, 1, 2, 3}
	for i, idx := range want {
		if bodies[i] != manifest.Serialize(jobs[idx]) {
			t.Fatalf("POST %d carried wrong manifest:\n%s", i, bodies[i])
		}
	}
	if sleeper.count(cooldown) != 3 {
		t.Fatalf("expected 3 cooldowns, got %v", sleeper.sleeps)
	}
}
