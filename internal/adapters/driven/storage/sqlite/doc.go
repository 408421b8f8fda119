// Package sqlite persists scan history using modernc.org/sqlite, a pure Go
// SQLite implementation that needs no CGO.
//
// # Schema
//
// The schema is managed through versioned migrations in the migrations/
// directory. Each migration is a pair of .up.sql and .down.sql files and
// records its own version in schema_migrations.
//
// # Data Location
//
// The database lives at <history.path>/history.db. When no directory is
// configured it defaults to ~/.linkcheck/data/history.db.
//
// # Thread Safety
//
// All operations are safe for concurrent use. SQLite runs in WAL mode.
package sqlite
