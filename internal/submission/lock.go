package submission

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"proxyoda/internal/services"
)

// LockFileName is the run lock created in the state directory.
const LockFileName = "submit.lock"

// RunLock is held for the duration of a submission run.
type RunLock struct {
	lock *flock.Flock
	path string
}

// AcquireRunLock takes the host-wide submission lock without blocking. It
// fails with ErrAlreadyRunning when another proxyoda process holds it.
func AcquireRunLock(dir string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "submission", "run lock", dir, err)
	}
	path := filepath.Join(dir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "submission", "run lock", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrAlreadyRunning, "submission", "run lock",
			fmt.Sprintf("another proxyoda submission holds %s", path), nil)
	}
	return &RunLock{lock: lock, path: path}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.path
}

// Release unlocks the run lock. It is safe to call more than once.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
