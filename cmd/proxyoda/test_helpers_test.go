package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"proxyoda/internal/config"
	"proxyoda/internal/logging"
	"proxyoda/internal/scan"
	"proxyoda/internal/testsupport"
)

type fakeController struct {
	mu      sync.Mutex
	running map[string]bool
	spawned [][]string
}

func (f *fakeController) IsRunning(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running[name], nil
}

func (f *fakeController) Terminate(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	was := f.running[name]
	delete(f.running, name)
	return was, nil
}

func (f *fakeController) SpawnDetached(path string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawned = append(f.spawned, append([]string{path}, args...))
	return nil
}

// fixedProber reports every clip as resolution unless its name contains "broken".
func fixedProber(width, height int) scan.Prober {
	return scan.ProberFunc(func(_ context.Context, path string) (scan.VideoInfo, error) {
		if strings.Contains(filepath.Base(path), "broken") {
			return scan.VideoInfo{}, io.ErrUnexpectedEOF
		}
		return scan.VideoInfo{Width: width, Height: height, FrameRate: 25}, nil
	})
}

type cliEnv struct {
	cfg        *config.Config
	configPath string
	controller *fakeController
}

func setupCLIEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := testsupport.NewConfig(t, opts...)
	return &cliEnv{
		cfg:        cfg,
		configPath: writeTestConfig(t, cfg),
		controller: &fakeController{running: map[string]bool{}},
	}
}

func (e *cliEnv) rewriteConfig(t *testing.T) {
	t.Helper()
	e.configPath = writeTestConfig(t, e.cfg)
}

func writeTestConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "proxyoda.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, e.configPath, args,
		withController(e.controller),
		withProber(fixedProber(1920, 1080)),
		withSleeper(func(context.Context, time.Duration) error { return nil }),
		withLogger(logging.NewNop()),
	)
}

func runCLI(t *testing.T, configPath string, args []string, opts ...contextOption) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts...)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

type fakeReply struct {
	status int
	body   string
}

// fakeAME serves GET /server and POST /job. Replies for /job are consumed in
// order; once exhausted every job is accepted.
type fakeAME struct {
	mu      sync.Mutex
	replies []fakeReply
	posts   int
	state   string
}

func newFakeAME(t *testing.T, cfg *config.Config, replies ...fakeReply) *fakeAME {
	t.Helper()
	f := &fakeAME{replies: replies, state: "Online"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/server":
			_, _ = io.WriteString(w, "<Response><ServerStatus>"+f.state+"</ServerStatus></Response>")
		case r.Method == http.MethodPost && r.URL.Path == "/job":
			_, _ = io.ReadAll(r.Body)
			f.posts++
			reply := fakeReply{
				status: http.StatusOK,
				body:   "<Response><SubmitResult>Accepted</SubmitResult><JobId>" + strconv.Itoa(f.posts) + "</JobId></Response>",
			}
			if len(f.replies) > 0 {
				reply = f.replies[0]
				f.replies = f.replies[1:]
			}
			w.WriteHeader(reply.status)
			_, _ = io.WriteString(w, reply.body)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	host, portStr, err := net.SplitHostPort(strings.TrimPrefix(srv.URL, "http://"))
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	cfg.WebService.Host = host
	cfg.WebService.Port = port
	return f
}

func (f *fakeAME) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
