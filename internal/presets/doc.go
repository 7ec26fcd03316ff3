// Package presets manages Adobe Media Encoder .epr preset files in the
// per-user, per-version Presets directory.
package presets
