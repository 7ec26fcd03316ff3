// Package history persists submission runs in a SQLite database so past
// runs and their per-job outcomes can be reviewed with `proxyoda history`.
//
// The schema is versioned through a single-row schema_version table. A
// database written by a different schema version is refused with
// ErrSchemaMismatch rather than migrated; history is disposable and the file
// can be deleted.
package history
