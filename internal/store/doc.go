// Package store provides SQLite-backed durable storage for the terminal's
// ledgers.
//
// Tables:
//   - orders: one row per order, keyed by the day-scoped order ID
//     (reversals keyed "R-" + original ID)
//   - shifts: one row per shift, keyed by shift ID; close-time figures
//     frozen into the row
//   - drawer_activities: append-only cash-drawer log, ordered by a
//     per-shift seq allocated inside the appending transaction
//   - daily_summary: materialized per-day rollup, keyed by ISO date
//
// # Critical Patterns
//
// CP-1: Read-Then-Write Is Transactional
//   - Any value derived by reading and then written back (order ID
//     allocation, activity seq, close-time reconciliation, summary bumps)
//     happens inside WithTx, never as separate calls
//
// CP-2: Append-Only Activities
//   - drawer_activities has insert and select operations only; there is no
//     update or delete statement for it anywhere in this package
//
// CP-3: One OPEN Shift
//   - A partial unique index on shifts(status) WHERE status = 'OPEN'
//     enforces the single-open-shift invariant at the storage layer as well
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Monetary amounts are stored as exact decimal TEXT, never as REAL.
// Timestamps are stored as Unix milliseconds.
package store
