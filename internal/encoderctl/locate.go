package encoderctl

import (
	"os"
	"strings"
)

// LocateExecutable returns the first candidate that exists as a regular file.
func LocateExecutable(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return candidate, true
	}
	return "", false
}
