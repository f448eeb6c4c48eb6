// Package store provides the SQLite-backed request journal.
//
// Every request the engine executes is appended as one row: a UUIDv7 id,
// the logical clock value, the operation that produced it, the request
// URL and body, the plan hash and the outcome.
//
// # Ordering
//
//   - All ordering uses seq INTEGER (logical clock), never timestamps
//   - All queries include ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5 seconds on lock contention
//   - foreign_keys=ON
package store
