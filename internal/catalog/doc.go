// Package catalog persists the acquisition ledger backed by SQLite.
//
// Every asset the pipeline touches gets a row that moves through pending,
// validated, requested, and finally imported or failed. The ledger is
// daemon-local bookkeeping: the bridge protocol never reads it, but the
// CLI surfaces it so a timed-out or failed acquisition is visible instead
// of silently dropped. To change the layout, update schema.sql and bump
// schemaVersion.
package catalog
