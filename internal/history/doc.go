// Package history persists a ledger of batch jobs in SQLite.
//
// Every finished batch item (succeeded, failed, rejected by validation, or
// cancelled before it started) becomes one row keyed by the run identifier of
// the batch that produced it. The CLI reads the ledger back for the history
// command; nothing in the encode path depends on it.
package history
