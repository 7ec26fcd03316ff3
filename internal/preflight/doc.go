// Package preflight provides readiness checks for the filesystem paths,
// external binaries, and AME web service that proxyoda depends on.
//
// `proxyoda preflight` runs RunAll and exits non-zero when a required check
// fails. When `proxyoda submit` plans from a scan it runs the directory
// checks first, so a missing proxy drive is reported before any job is
// attempted.
package preflight
