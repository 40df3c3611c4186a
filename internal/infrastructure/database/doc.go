// Package database provides SQLite connectivity for the audit trail.
//
// Registry state is held in memory; the database only stores the audit log
// and its schema_migrations bookkeeping.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Schema migrations read from any fs.FS (normally the embedded migrations package)
//   - In-memory databases (MemoryPath) for tests and ephemeral runs
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmod 0600 and its directory created 0750
//   - Audit details are stored as JSON text and never interpolated into SQL
//
// Performance Characteristics:
//   - WAL mode lets /audit reads proceed while the recorder writes
//   - The pool is capped at one connection, matching SQLite's single writer
//   - BusyTimeout bounds how long a write waits for the lock
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration Strategy:
//
// Each migration is a YYYYMMDD_HHMMSS_name.up.sql file with a matching
// .down.sql. Migrations are additive so an older binary can still read the
// audit table:
//   - New columns must be nullable or have a default
//   - Columns are never dropped or renamed
//   - Down files undo exactly their up file and nothing else
package database
