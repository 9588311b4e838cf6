// Package database provides the SQLite download ledger for aaofetch.
//
// The Ledger stores:
//   - One row per crawl run with its final state, stop reason and counters
//   - One row per stored document with its source URL, size and checksum
//
// The ledger is an audit trail. It is never consulted to decide whether a
// document needs downloading; the file in the download directory is the
// only marker for that, so deleting a file makes it eligible again.
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. The database is a single file next to the user's other data
// 2. The CGO-free driver allows easy cross-compilation
// 3. WAL mode lets `aaofetch history` read while a crawl writes
package database
