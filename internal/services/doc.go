// Package services defines shared utilities consumed by the submission
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, job indexes, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, so callers can classify
//     failures with errors.Is and look up a remediation Hint for the ones that
//     need user action.
//
// The ame subpackage holds the Adobe Media Encoder web service client.
package services
