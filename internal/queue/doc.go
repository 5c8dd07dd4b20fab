// Package queue persists tasks in SQLite and exposes helpers for driving
// their lifecycle.
//
// The Store manages database connections, schema initialization, FIFO
// dequeue, stats queries, and the status transitions the dispatcher and
// pipeline rely on. The database is scratch storage for one run rather than a
// long-term archive: the dispatcher fails any non-terminal leftovers at
// startup before admitting new work.
//
// Treat this package as the single source of truth for task semantics; when
// you add new statuses or fields, update schema.sql and bump schemaVersion.
package queue
