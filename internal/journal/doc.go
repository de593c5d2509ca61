// Package journal is a SQLite-backed log of committed cache transforms.
//
// Each committed batch is stored as one entry holding the applied
// operations and their inverse, so the log can rebuild a cache (Replay) or
// undo one batch (Rollback).
//
// # Ordering
//
//   - Entries are ordered by seq, a logical clock, never by wall time
//   - Every read is ORDER BY seq ASC so replays are deterministic
//   - Entry ids are UUIDv7 and sort by creation time
//
// # Content
//
// Operations and inverse are stored as canonical JSON (RFC 8785) of the
// operation wire form. The entry hash covers both, with the transform
// domain prefix from internal/ir/hash.go.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: schema migrations
package journal
