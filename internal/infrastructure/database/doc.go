// Package database provides SQLite storage for Skynet Core.
//
// It wraps database/sql with the mattn/go-sqlite3 driver and adds:
//   - WAL mode and a busy timeout
//   - versioned migrations read from any fs.FS (normally the embedded
//     migrations package)
//   - health checks
//
// Usage:
//
//	db, err := database.Open(ctx, database.FromConfig(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns must be nullable or carry a default,
// and every .up.sql has a matching .down.sql.
package database
