// Package reputation implements the per-worker trust score ledger.
//
// Every account starts at the baseline score of 100. Uninterrupted safe
// days earn points, approved claims cost points, and the current score
// maps onto a premium discount tier (or a surcharge below baseline).
//
// Two implementations of the Ledger interface are provided:
//   - MemoryLedger: in-process, for testing and development.
//   - PostgresLedger: durable, for production use.
package reputation
