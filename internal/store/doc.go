// Package store provides SQLite-backed durable storage for wikichain elements.
//
// The store is an append-only log with one table, elements. Each row is a
// page plus the metadata attached at append time: author, author_seq,
// the predecessor address (target) and a local seq.
//
// # Invariants
//
// Content-addressed identity:
//   - address is computed by ir.ElementAddress inside the append
//     transaction, after author_seq is assigned
//   - UNIQUE(address) makes re-appending the same element a no-op
//
// Author chains:
//   - UNIQUE(author, author_seq); author_seq = MAX for author + 1
//
// Deterministic reads:
//   - All multi-row queries use ORDER BY seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Targets are deliberately not foreign keys: a replica may hold an update
// before the page it supersedes has synced.
package store
