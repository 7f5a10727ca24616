// Package store persists investigation sessions and anomaly events in SQLite.
//
// The schema lives in schema.sql and is versioned; a mismatched database is
// refused with ErrSchemaMismatch rather than migrated. Writes that race with
// each other are made safe by conditional updates:
//
//   - ApplyEnrichment only touches events still marked pending, so the
//     classification is written at most once.
//   - ApplyCorrelation writes both members of a pair in one transaction and
//     only when neither already carries a correlation (first writer wins).
//   - A partial unique index keeps at most one session active.
//
// Busy database errors are retried with a short exponential backoff.
package store
