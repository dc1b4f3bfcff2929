// Package store provides SQLite-backed durable storage for the ledger's
// auditable event trail.
//
// The store is an append-only log with:
//   - Blocks: applied blocks with their hash, run id and encoded payload
//   - Trigger events: lifecycle events (Created, Deleted, Extended, Shortened)
//   - Notifications: TriggerCompleted events with their outcome
//
// # Ordering
//
// All trail ordering uses the seq column (logical clock), never wall time.
// Every query orders by seq ASC, id ASC COLLATE BINARY so results are
// identical across replays.
//
// # Idempotency
//
// Ids are content-addressed (internal/model/hash.go). Writes use
// ON CONFLICT(id) DO NOTHING, so re-writing a record is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
