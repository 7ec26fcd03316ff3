package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteClip creates a placeholder media file at root/rel (slash-separated)
// holding size bytes and returns its path. Tests stub the resolution probe,
// so only the name and size matter. A size <= 0 writes a single byte.
func WriteClip(t testing.TB, root, rel string, size int64) string {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for clip %s: %v", rel, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create clip %s: %v", rel, err)
	}
	defer f.Close()
	if err := f.Truncate(size); err != nil {
		t.Fatalf("size clip %s: %v", rel, err)
	}
	return path
}
