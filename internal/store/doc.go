// Package store is a SQLite catalog of validated graphs.
//
// It keeps three tables:
//   - graphs: canonical JSON of each validated config, keyed by content hash
//   - edges: the four edge tables of each stored graph
//   - validation_runs: one row per validation attempt, accepted or not
//
// Graph rows are content-addressed, so storing the same canonical config
// twice is a no-op. Validation runs are ordered by seq, a logical counter,
// never by wall time:
//
//	ORDER BY seq ASC, id COLLATE BINARY ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
