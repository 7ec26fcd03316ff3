// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties, including dimensions and frame rate
//   - Format: container-level metadata (duration, size)
//
// Inspect executes ffprobe and returns the parsed Result; InspectWith accepts
// an injected Runner for tests.
package ffprobe
