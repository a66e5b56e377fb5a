// Package database provides the relay's optional SQLite flush journal.
//
// This package manages:
//   - The SQLite connection (WAL mode, busy timeout, single writer)
//   - Schema migrations read from an fs.FS (see package migrations)
//   - Journal, an upload.Recorder that stores one row per flush cycle
//
// The journal is an operational record only. Readings themselves are never
// persisted; the Notecard remains the durable store.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//	coordinator.AddRecorder(database.NewJournal(db))
//
// Migrations are additive: each version ships an .up.sql and a .down.sql
// named YYYYMMDD_HHMMSS_description.
package database
