// Package main hosts the proxyoda CLI entrypoint and command graph.
//
// The Cobra command tree scans original media, plans proxy jobs from the
// configured resolution mappings, and submits them to Adobe Media Encoder
// through its web service or a console-mode ExtendScript batch. It
// centralizes configuration resolution and logging setup so subcommands can
// focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
