// Package store provides a SQLite-backed journal of executed requests.
//
// Every request the runner sends is appended as one row: its id, the
// operation, method and URL, the final state and outcome, the HTTP status,
// how many records were read and how long it took.
//
// # Ordering
//
// Rows are ordered by seq, a logical clock owned by the Store, never by
// wall-clock timestamps. Ties (impossible in practice) break on id
// COLLATE BINARY. On Open the clock resumes after the highest stored seq.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - A single connection: SQLite serialises writers anyway
package store
