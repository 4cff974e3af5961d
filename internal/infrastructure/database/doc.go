// Package database provides the SQLite file backing panelnode's small
// amount of persistent state.
//
// This package manages:
//   - Opening the database with WAL mode and a busy timeout
//   - Schema migrations from embedded .up.sql/.down.sql files
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
