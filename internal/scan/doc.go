// Package scan discovers original media, probes their resolution, and
// matches them against proxies in a mirrored folder tree.
//
// Originals walks the original root for supported extensions and probes
// each file with bounded concurrency; results are ordered by relative path
// regardless of probe completion order. FindProxy looks for an existing
// proxy in the mirrored directory, and MirrorFolders recreates the original
// directory tree under the proxy root.
package scan
