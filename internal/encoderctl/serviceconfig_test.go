package encoderctl_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"proxyoda/internal/encoderctl"
	"proxyoda/internal/services"
)

func TestSetServicePort(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		want    string
	}{
		{name: "replace", initial: "[server]\nPort = 8080\nthreads=4\n", want: "[server]\nport=9090\nthreads=4\n"},
		{name: "append", initial: "threads=4", want: "threads=4\nport=9090\n"},
		{name: "empty", initial: "", want: "port=9090\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), encoderctl.ServiceConfigFile)
			if err := os.WriteFile(path, []byte(tt.initial), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := encoderctl.SetServicePort(path, 9090); err != nil {
				t.Fatalf("SetServicePort: %v", err)
			}
			got, _ := os.ReadFile(path)
			if string(got) != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetServicePortErrors(t *testing.T) {
	if err := encoderctl.SetServicePort(filepath.Join(t.TempDir(), "missing.ini"), 8087); !errors.Is(err, services.ErrFilesystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
	if err := encoderctl.SetServicePort("unused", 0); err == nil {
		t.Fatal("expected port validation error")
	}
}

func TestServiceConfigPath(t *testing.T) {
	got := encoderctl.ServiceConfigPath(filepath.Join("opt", "ame", "ame_webservice_console.exe"))
	if got != filepath.Join("opt", "ame", encoderctl.ServiceConfigFile) {
		t.Fatalf("unexpected path %q", got)
	}
}
