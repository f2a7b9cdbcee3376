// Package journal keeps a local record of the operations notifyctl issued.
//
// The notification server is the source of truth for job state; the journal
// only answers "what did this machine send, and did the call go through".
//
// Drivers:
//   - "file": append-only JSON Lines
//   - "sqlite": SQLite database file (modernc.org/sqlite, no cgo)
package journal
