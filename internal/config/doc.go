// Package config loads, migrates, normalizes, and validates proxyoda
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// PROXYODA_AME_HOST. Documents carry a config_version; older layouts, including
// the flat settings blob written by the desktop app, are upgraded through an
// ordered list of migrations before decoding.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
