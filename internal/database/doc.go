// Package database wraps a database/sql handle for plugin storage.
//
// Ownership boundary:
// - Manager owns the *sql.DB and its lifetime (Open to Close).
// - Callers own schema and statements; Manager only executes and traces them.
//
// Supported drivers:
// - sqlite: embedded file database through modernc.org/sqlite.
// - postgres: remote database through github.com/lib/pq.
//
// Debug mode logs every statement with its arguments inlined.
package database
