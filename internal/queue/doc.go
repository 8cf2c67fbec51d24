// Package queue persists download queues and their items in SQLite and
// exposes helpers for driving their lifecycle.
//
// The Store manages database connections, schema initialization, idempotent
// item ingestion, status transitions, stuck-item recovery, and daily download
// statistics. A queue survives process restarts: completed and skipped items
// keep their terminal state so a rerun only touches what is still pending.
//
// Treat this package as the single source of truth for queue semantics; when
// you add new statuses or columns, update schema.sql and bump schemaVersion.
package queue
