// Package database manages the SQLite connection backing the operation
// audit trail, including schema migrations embedded into the binary.
//
// The connection is configured for SQLite's single-writer model (one open
// connection, WAL mode, busy timeout) and migrations are applied one
// transaction each, oldest first.
package database
