// Package model defines the ledger data model shared by every other package.
//
// This package contains type definitions and pure predicates only. All other
// internal packages import model; model imports nothing internal. Nothing in
// here performs I/O or reads the wall clock.
//
// Key design constraints:
//   - NO float types anywhere - values use int64 for numbers (determinism)
//   - Sealed interfaces (Value, Instruction, Query, Expression, EventFilter,
//     NotificationEvent) so every dispatch site can enumerate the variants
//   - Optional filter fields use pointers: nil means wildcard
//   - Content-addressed ids are computed from canonical JSON (hash.go)
package model
