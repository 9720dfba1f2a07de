// Package history stores run summaries in SQLite so the CLI can show past
// runs and send recovery notifications when a failing suite passes again.
package history
